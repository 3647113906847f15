package game

import (
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLedgerInitPreservesScore(t *testing.T) {
	l := NewLedger()
	id := uuid.New()

	l.Init(id)
	_, err := l.ApplyDelta(id, 300)
	require.NoError(t, err)

	// a rejoin re-inits; the score must survive
	l.Init(id)
	score, ok := l.Score(id)
	require.True(t, ok)
	assert.Equal(t, 300, score)
}

func TestLedgerApplyDelta(t *testing.T) {
	l := NewLedger()
	ann, bob := uuid.New(), uuid.New()
	l.Init(ann)
	l.Init(bob)

	snap, err := l.ApplyDelta(ann, 100)
	require.NoError(t, err)
	assert.Equal(t, map[uuid.UUID]int{ann: 100, bob: 0}, snap)

	snap, err = l.ApplyDelta(ann, -400)
	require.NoError(t, err)
	assert.Equal(t, -300, snap[ann])

	_, err = l.ApplyDelta(uuid.New(), 100)
	assert.ErrorIs(t, err, ErrUnknownPlayer)
}

func TestLedgerSnapshotIsCopy(t *testing.T) {
	l := NewLedger()
	id := uuid.New()
	l.Init(id)

	snap := l.Snapshot()
	snap[id] = 9999

	score, _ := l.Score(id)
	assert.Zero(t, score)
}

func TestLedgerConcurrentDeltas(t *testing.T) {
	l := NewLedger()
	ann, bob := uuid.New(), uuid.New()
	l.Init(ann)
	l.Init(bob)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, _ = l.ApplyDelta(ann, 100)
		}()
		go func() {
			defer wg.Done()
			_, _ = l.ApplyDelta(bob, -100)
		}()
	}
	wg.Wait()

	snap := l.Snapshot()
	assert.Equal(t, 5000, snap[ann])
	assert.Equal(t, -5000, snap[bob])
}
