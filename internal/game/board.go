package game

import (
	"errors"
	"fmt"
)

var (
	ErrEmptyBoard     = errors.New("board has no categories")
	ErrRaggedBoard    = errors.New("categories have unequal question counts")
	ErrBadPointValue  = errors.New("point value must be positive")
	ErrCategoryIndex  = errors.New("category index out of range")
	ErrQuestionIndex  = errors.New("question index out of range")
	ErrEmptyCategory  = errors.New("category name must not be empty")
)

// Media holds the optional typed content of a question. At most one
// reference of each kind; empty string means absent.
type Media struct {
	Text  string `json:"text,omitempty"`
	Image string `json:"image,omitempty"`
	Video string `json:"video,omitempty"`
	Audio string `json:"audio,omitempty"`
}

// Question is a single cell of the board grid.
type Question struct {
	Points  int    `json:"points"`
	Asked   bool   `json:"asked"`
	Content Media  `json:"content"`
	Answer  string `json:"answer"`
}

// Category is one column: a name plus its ordered questions.
type Category struct {
	Name      string     `json:"category"`
	Questions []Question `json:"questions"`
}

// Board is a rectangular grid of categories and questions. The same
// struct serves both the authoring copy and the in-play copy; the two
// are always distinct values (see InstantiateForPlay).
type Board struct {
	Categories []Category `json:"categories"`
	// Points are the row values used when categories are added,
	// so the grid stays rectangular.
	Points []int `json:"points"`
}

// NewBoard builds an all-unasked board with one question per point
// value in every category.
func NewBoard(categories []string, points []int) (*Board, error) {
	for _, p := range points {
		if p <= 0 {
			return nil, fmt.Errorf("%w: %d", ErrBadPointValue, p)
		}
	}
	b := &Board{Points: append([]int(nil), points...)}
	for _, name := range categories {
		b.Categories = append(b.Categories, Category{
			Name:      name,
			Questions: freshColumn(points),
		})
	}
	return b, nil
}

func freshColumn(points []int) []Question {
	qs := make([]Question, len(points))
	for i, p := range points {
		qs[i] = Question{Points: p}
	}
	return qs
}

// DefaultBoard returns the stock normal-round grid.
func DefaultBoard() *Board {
	b, _ := NewBoard(
		[]string{"Category 1", "Category 2", "Category 3", "Category 4", "Category 5"},
		[]int{100, 200, 400, 600, 1000},
	)
	return b
}

// DefaultDoubleBoard returns the stock double-round grid.
func DefaultDoubleBoard() *Board {
	b, _ := NewBoard(
		[]string{"Double 1", "Double 2", "Double 3", "Double 4", "Double 5"},
		[]int{200, 400, 800, 1200, 2000},
	)
	return b
}

// AddCategory appends a fresh column of unasked questions, sized to the
// board's point values.
func (b *Board) AddCategory(name string) error {
	if name == "" {
		return ErrEmptyCategory
	}
	b.Categories = append(b.Categories, Category{
		Name:      name,
		Questions: freshColumn(b.Points),
	})
	return nil
}

// RemoveCategory drops the column at index; other columns keep their
// content untouched.
func (b *Board) RemoveCategory(index int) error {
	if index < 0 || index >= len(b.Categories) {
		return ErrCategoryIndex
	}
	b.Categories = append(b.Categories[:index], b.Categories[index+1:]...)
	return nil
}

// RenameCategory changes only the column heading.
func (b *Board) RenameCategory(index int, name string) error {
	if index < 0 || index >= len(b.Categories) {
		return ErrCategoryIndex
	}
	if name == "" {
		return ErrEmptyCategory
	}
	b.Categories[index].Name = name
	return nil
}

// SetQuestion replaces the content and answer of one cell. The point
// value is fixed by the row.
func (b *Board) SetQuestion(catIndex, row int, content Media, answer string) error {
	if catIndex < 0 || catIndex >= len(b.Categories) {
		return ErrCategoryIndex
	}
	if row < 0 || row >= len(b.Categories[catIndex].Questions) {
		return ErrQuestionIndex
	}
	q := &b.Categories[catIndex].Questions[row]
	q.Content = content
	q.Answer = answer
	return nil
}

// Question returns the cell at (catIndex, row).
func (b *Board) Question(catIndex, row int) (*Question, error) {
	if catIndex < 0 || catIndex >= len(b.Categories) {
		return nil, ErrCategoryIndex
	}
	if row < 0 || row >= len(b.Categories[catIndex].Questions) {
		return nil, ErrQuestionIndex
	}
	return &b.Categories[catIndex].Questions[row], nil
}

// Validate checks the rectangular invariant and point values. Used on
// host-supplied boards before they are accepted.
func (b *Board) Validate() error {
	if len(b.Categories) == 0 {
		return ErrEmptyBoard
	}
	rows := len(b.Categories[0].Questions)
	for _, cat := range b.Categories {
		if cat.Name == "" {
			return ErrEmptyCategory
		}
		if len(cat.Questions) != rows {
			return ErrRaggedBoard
		}
		for _, q := range cat.Questions {
			if q.Points <= 0 {
				return fmt.Errorf("%w: %d", ErrBadPointValue, q.Points)
			}
		}
	}
	return nil
}

// Clone returns a deep, independent copy. Mutating the clone never
// touches the receiver.
func (b *Board) Clone() *Board {
	c := &Board{Points: append([]int(nil), b.Points...)}
	c.Categories = make([]Category, len(b.Categories))
	for i, cat := range b.Categories {
		c.Categories[i] = Category{
			Name:      cat.Name,
			Questions: append([]Question(nil), cat.Questions...),
		}
	}
	return c
}

// InstantiateForPlay snapshots the authoring board into an in-play
// board: identical names, order and content, every question unasked.
// The result owns its memory; marking cells asked during play never
// mutates the source.
func (b *Board) InstantiateForPlay() *Board {
	c := b.Clone()
	for i := range c.Categories {
		for j := range c.Categories[i].Questions {
			c.Categories[i].Questions[j].Asked = false
		}
	}
	return c
}

// Complete reports whether every question on the board has been asked.
// An empty board is never complete.
func (b *Board) Complete() bool {
	if len(b.Categories) == 0 {
		return false
	}
	for _, cat := range b.Categories {
		for _, q := range cat.Questions {
			if !q.Asked {
				return false
			}
		}
	}
	return true
}

// Empty reports whether the board has no categories.
func (b *Board) Empty() bool {
	return len(b.Categories) == 0
}
