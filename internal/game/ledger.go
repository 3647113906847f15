package game

import (
	"errors"
	"sync"

	"github.com/google/uuid"
)

var ErrUnknownPlayer = errors.New("player not in ledger")

// Ledger is the authoritative player -> score mapping. Scores may go
// negative. Every mutation returns a full snapshot; partial diffs are
// never exposed, so a client that missed intermediate updates converges
// on the next one.
type Ledger struct {
	mu     sync.Mutex
	scores map[uuid.UUID]int
}

// NewLedger returns an empty ledger.
func NewLedger() *Ledger {
	return &Ledger{scores: make(map[uuid.UUID]int)}
}

// Init creates an entry at zero if the player has none. Existing
// entries are preserved, so a rejoining player keeps their score.
func (l *Ledger) Init(playerID uuid.UUID) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.scores[playerID]; !ok {
		l.scores[playerID] = 0
	}
}

// ApplyDelta adds delta to a player's score and returns the full
// snapshot. Concurrent calls for different players never lose updates;
// calls for the same player serialize.
func (l *Ledger) ApplyDelta(playerID uuid.UUID, delta int) (map[uuid.UUID]int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.scores[playerID]; !ok {
		return nil, ErrUnknownPlayer
	}
	l.scores[playerID] += delta
	return l.snapshotLocked(), nil
}

// Score returns one player's current score.
func (l *Ledger) Score(playerID uuid.UUID) (int, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	s, ok := l.scores[playerID]
	return s, ok
}

// Snapshot returns a copy of the full mapping.
func (l *Ledger) Snapshot() map[uuid.UUID]int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.snapshotLocked()
}

func (l *Ledger) snapshotLocked() map[uuid.UUID]int {
	out := make(map[uuid.UUID]int, len(l.scores))
	for id, s := range l.scores {
		out[id] = s
	}
	return out
}
