package archive

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/quizhall/jeopardy-server/internal/game"
)

// GameSummary is one archived game for listings.
type GameSummary struct {
	GameID     uuid.UUID `json:"game_id"`
	RoomCode   string    `json:"room_code"`
	Winner     string    `json:"winner"`
	TopScore   int       `json:"top_score"`
	Players    int       `json:"players"`
	FinishedAt time.Time `json:"finished_at"`
}

type gameStore interface {
	InsertGame(ctx context.Context, roomCode string, winner string, topScore, players int) (uuid.UUID, error)
	InsertResult(ctx context.Context, gameID uuid.UUID, placement int, result game.FinalResult) error
	ListRecentGames(ctx context.Context, limit int) ([]GameSummary, error)
}

// Repository persists finished games and their per-player outcomes.
type Repository struct {
	store  gameStore
	logger zerolog.Logger
}

// NewRepository constructs a game archive repository.
func NewRepository(store gameStore, logger zerolog.Logger) *Repository {
	return &Repository{
		store:  store,
		logger: logger.With().Str("component", "archive").Logger(),
	}
}

// RecordGame archives a finished game. Results arrive sorted by
// resulting score descending, so results[0] is the winner.
func (r *Repository) RecordGame(ctx context.Context, roomCode string, results []game.FinalResult) {
	if len(results) == 0 {
		return
	}

	gameID, err := r.store.InsertGame(ctx, roomCode, results[0].Name, results[0].Score, len(results))
	if err != nil {
		r.logger.Warn().Err(err).Str("room", roomCode).Msg("archive game failed")
		return
	}
	for i, res := range results {
		if err := r.store.InsertResult(ctx, gameID, i+1, res); err != nil {
			r.logger.Warn().Err(err).
				Str("room", roomCode).
				Str("player", res.Name).
				Msg("archive result failed")
		}
	}

	r.logger.Info().
		Str("room", roomCode).
		Str("game_id", gameID.String()).
		Int("players", len(results)).
		Msg("game archived")
}

// ListRecent returns the most recently finished games.
func (r *Repository) ListRecent(ctx context.Context, limit int) ([]GameSummary, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	return r.store.ListRecentGames(ctx, limit)
}
