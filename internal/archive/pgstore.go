package archive

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/quizhall/jeopardy-server/internal/game"
)

// PGStore is the Postgres-backed game store.
type PGStore struct {
	pool *pgxpool.Pool
}

// NewPGStore constructs a Postgres game store.
func NewPGStore(pool *pgxpool.Pool) *PGStore {
	return &PGStore{pool: pool}
}

const insertGameQuery = `
INSERT INTO games (room_code, winner, top_score, players)
VALUES ($1, $2, $3, $4)
RETURNING game_id`

func (s *PGStore) InsertGame(ctx context.Context, roomCode, winner string, topScore, players int) (uuid.UUID, error) {
	var gameID uuid.UUID
	err := s.pool.QueryRow(ctx, insertGameQuery, roomCode, winner, topScore, players).Scan(&gameID)
	if err != nil {
		return uuid.Nil, fmt.Errorf("insert game: %w", err)
	}
	return gameID, nil
}

const insertResultQuery = `
INSERT INTO game_results (game_id, player_id, display_name, placement, wager, answer, correct, final_score)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

func (s *PGStore) InsertResult(ctx context.Context, gameID uuid.UUID, placement int, result game.FinalResult) error {
	_, err := s.pool.Exec(ctx, insertResultQuery,
		gameID, result.PlayerID, result.Name, placement,
		result.Wager, result.Answer, result.Correct, result.Score)
	if err != nil {
		return fmt.Errorf("insert game result: %w", err)
	}
	return nil
}

const listRecentQuery = `
SELECT game_id, room_code, winner, top_score, players, finished_at
FROM games
ORDER BY finished_at DESC
LIMIT $1`

func (s *PGStore) ListRecentGames(ctx context.Context, limit int) ([]GameSummary, error) {
	rows, err := s.pool.Query(ctx, listRecentQuery, limit)
	if err != nil {
		return nil, fmt.Errorf("list recent games: %w", err)
	}
	defer rows.Close()

	var out []GameSummary
	for rows.Next() {
		var g GameSummary
		if err := rows.Scan(&g.GameID, &g.RoomCode, &g.Winner, &g.TopScore, &g.Players, &g.FinishedAt); err != nil {
			return nil, fmt.Errorf("scan game row: %w", err)
		}
		out = append(out, g)
	}
	return out, rows.Err()
}
