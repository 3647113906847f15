package game

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewBoardRejectsNonPositivePoints(t *testing.T) {
	_, err := NewBoard([]string{"Science"}, []int{100, 0})
	assert.ErrorIs(t, err, ErrBadPointValue)

	_, err = NewBoard([]string{"Science"}, []int{-50})
	assert.ErrorIs(t, err, ErrBadPointValue)
}

func TestDefaultBoards(t *testing.T) {
	b := DefaultBoard()
	require.Len(t, b.Categories, 5)
	for _, cat := range b.Categories {
		require.Len(t, cat.Questions, 5)
	}
	assert.Equal(t, []int{100, 200, 400, 600, 1000}, b.Points)

	d := DefaultDoubleBoard()
	assert.Equal(t, []int{200, 400, 800, 1200, 2000}, d.Points)
	assert.NoError(t, b.Validate())
	assert.NoError(t, d.Validate())
}

func TestCategoryEditing(t *testing.T) {
	b, err := NewBoard([]string{"History"}, []int{100, 200})
	require.NoError(t, err)

	require.NoError(t, b.AddCategory("Science"))
	require.Len(t, b.Categories, 2)
	// new column sized to the board's rows, all unasked
	require.Len(t, b.Categories[1].Questions, 2)
	assert.Equal(t, 100, b.Categories[1].Questions[0].Points)

	assert.ErrorIs(t, b.AddCategory(""), ErrEmptyCategory)

	require.NoError(t, b.RenameCategory(1, "Nature"))
	assert.Equal(t, "Nature", b.Categories[1].Name)
	assert.ErrorIs(t, b.RenameCategory(5, "x"), ErrCategoryIndex)
	assert.ErrorIs(t, b.RenameCategory(0, ""), ErrEmptyCategory)

	require.NoError(t, b.SetQuestion(0, 1, Media{Text: "In what year..."}, "1492"))
	q, err := b.Question(0, 1)
	require.NoError(t, err)
	assert.Equal(t, "1492", q.Answer)
	assert.Equal(t, 200, q.Points)

	require.NoError(t, b.RemoveCategory(0))
	require.Len(t, b.Categories, 1)
	assert.Equal(t, "Nature", b.Categories[0].Name)
	assert.ErrorIs(t, b.RemoveCategory(3), ErrCategoryIndex)
}

func TestValidate(t *testing.T) {
	empty := &Board{}
	assert.ErrorIs(t, empty.Validate(), ErrEmptyBoard)

	ragged := &Board{Categories: []Category{
		{Name: "A", Questions: []Question{{Points: 100}, {Points: 200}}},
		{Name: "B", Questions: []Question{{Points: 100}}},
	}}
	assert.ErrorIs(t, ragged.Validate(), ErrRaggedBoard)

	unnamed := &Board{Categories: []Category{
		{Name: "", Questions: []Question{{Points: 100}}},
	}}
	assert.ErrorIs(t, unnamed.Validate(), ErrEmptyCategory)

	badPoints := &Board{Categories: []Category{
		{Name: "A", Questions: []Question{{Points: 0}}},
	}}
	assert.ErrorIs(t, badPoints.Validate(), ErrBadPointValue)
}

func TestInstantiateForPlayIsIndependent(t *testing.T) {
	src, err := NewBoard([]string{"Science", "History"}, []int{100, 200})
	require.NoError(t, err)
	require.NoError(t, src.SetQuestion(0, 0, Media{Text: "Closest star?"}, "the sun"))
	src.Categories[0].Questions[1].Asked = true

	play := src.InstantiateForPlay()

	// identical structure and content, every cell unasked
	require.Len(t, play.Categories, 2)
	assert.Equal(t, "the sun", play.Categories[0].Questions[0].Answer)
	for _, cat := range play.Categories {
		for _, q := range cat.Questions {
			assert.False(t, q.Asked)
		}
	}

	// marking the play copy never touches the source
	play.Categories[0].Questions[0].Asked = true
	assert.False(t, src.Categories[0].Questions[0].Asked)

	// and editing the source never touches the play copy
	require.NoError(t, src.SetQuestion(1, 0, Media{}, "changed"))
	assert.Empty(t, play.Categories[1].Questions[0].Answer)
}

func TestComplete(t *testing.T) {
	empty := &Board{}
	assert.False(t, empty.Complete())

	b, err := NewBoard([]string{"Science"}, []int{100, 200})
	require.NoError(t, err)
	assert.False(t, b.Complete())

	b.Categories[0].Questions[0].Asked = true
	assert.False(t, b.Complete())
	b.Categories[0].Questions[1].Asked = true
	assert.True(t, b.Complete())
}
