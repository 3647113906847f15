package room

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/quizhall/jeopardy-server/internal/auth"
	"github.com/quizhall/jeopardy-server/internal/metrics"
)

// Manager handles room creation, lookup and lifecycle. Rooms share no
// state with each other; the manager only maps codes to actors.
type Manager struct {
	hub    Broadcaster
	tokens *auth.Manager
	sinks  []ResultSink
	logger zerolog.Logger

	mu    sync.RWMutex
	rooms map[string]*Room

	idleTTL        time.Duration
	reconnectGrace time.Duration
}

// ManagerOptions configures room lifecycle behavior.
type ManagerOptions struct {
	// IdleTTL reaps rooms with no intent activity. Zero disables
	// idle reaping.
	IdleTTL time.Duration
	// ReconnectGrace is how long a fully disconnected room survives
	// awaiting resume tokens.
	ReconnectGrace time.Duration
}

// NewManager creates a room manager.
func NewManager(hub Broadcaster, tokens *auth.Manager, sinks []ResultSink, opts ManagerOptions, logger zerolog.Logger) *Manager {
	grace := opts.ReconnectGrace
	if grace == 0 {
		grace = 2 * time.Minute
	}
	return &Manager{
		hub:            hub,
		tokens:         tokens,
		sinks:          sinks,
		logger:         logger.With().Str("component", "rooms").Logger(),
		rooms:          make(map[string]*Room),
		idleTTL:        opts.IdleTTL,
		reconnectGrace: grace,
	}
}

var ErrRoomNotFound = fmt.Errorf("room not found")

// Create allocates a room with a fresh code, owned by hostID.
func (m *Manager) Create(hostID uuid.UUID, capacity int) (*Room, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	code := m.generateCodeLocked()
	r, err := newRoom(code, hostID, capacity, m.hub, m.tokens, m.sinks, m.logger)
	if err != nil {
		return nil, err
	}
	m.rooms[code] = r
	metrics.RoomsActive.Set(float64(len(m.rooms)))

	m.logger.Info().
		Str("room", code).
		Str("host_id", hostID.String()).
		Int("capacity", capacity).
		Msg("room created")
	return r, nil
}

// Get retrieves a room by code.
func (m *Manager) Get(code string) (*Room, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	r, ok := m.rooms[code]
	if !ok {
		return nil, ErrRoomNotFound
	}
	return r, nil
}

// Remove closes a room's actor and drops it from the registry.
func (m *Manager) Remove(code string) {
	m.mu.Lock()
	r, ok := m.rooms[code]
	if ok {
		delete(m.rooms, code)
	}
	metrics.RoomsActive.Set(float64(len(m.rooms)))
	m.mu.Unlock()

	if ok {
		r.Close()
		m.logger.Info().Str("room", code).Msg("room removed")
	}
}

// Count returns the number of live rooms.
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.rooms)
}

// Run sweeps for dead rooms until the context is canceled: rooms whose
// participants all left past the reconnect grace, and rooms idle past
// the TTL.
func (m *Manager) Run(ctx context.Context) error {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			m.sweep()
		}
	}
}

func (m *Manager) sweep() {
	m.mu.RLock()
	candidates := make([]*Room, 0, len(m.rooms))
	for _, r := range m.rooms {
		candidates = append(candidates, r)
	}
	m.mu.RUnlock()

	now := time.Now()
	for _, r := range candidates {
		idle := now.Sub(r.LastActive())
		switch {
		case r.ConnectedCount() == 0 && idle > m.reconnectGrace:
			m.logger.Info().Str("room", r.Code()).Msg("reaping abandoned room")
			m.Remove(r.Code())
		case m.idleTTL > 0 && idle > m.idleTTL:
			m.logger.Info().Str("room", r.Code()).Dur("idle", idle).Msg("reaping idle room")
			m.Remove(r.Code())
		}
	}
}

// generateCodeLocked creates a unique 6-digit room code. Caller holds
// the write lock.
func (m *Manager) generateCodeLocked() string {
	for {
		code := fmt.Sprintf("%06d", 100000+rand.Intn(900000))
		if _, exists := m.rooms[code]; !exists {
			return code
		}
	}
}
