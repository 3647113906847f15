package halloffame

import (
	"context"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/quizhall/jeopardy-server/internal/game"
)

// Entry is one hall-of-fame record, keyed by display name since rooms
// have no accounts.
type Entry struct {
	Name      string `json:"name"`
	Wins      int    `json:"wins"`
	Games     int    `json:"games"`
	BestScore int    `json:"best_score"`
}

// ServiceOptions configures hall-of-fame behavior.
type ServiceOptions struct {
	TopN           int
	RedisKeyPrefix string
}

// Service keeps a cross-game winners board in Redis. It implements the
// room result sink: every finished game records its podium here.
type Service struct {
	redis  *redis.Client
	logger zerolog.Logger
	topN   int
	prefix string
}

// NewService constructs a hall-of-fame service.
func NewService(redis *redis.Client, logger zerolog.Logger, opts ServiceOptions) *Service {
	topN := opts.TopN
	if topN <= 0 {
		topN = 50
	}
	prefix := opts.RedisKeyPrefix
	if prefix == "" {
		prefix = "hof"
	}
	return &Service{
		redis:  redis,
		logger: logger.With().Str("component", "halloffame").Logger(),
		topN:   topN,
		prefix: prefix,
	}
}

// RecordGame credits the winner of a finished game and bumps per-player
// aggregates. Results arrive sorted by resulting score descending.
func (s *Service) RecordGame(ctx context.Context, roomCode string, results []game.FinalResult) {
	if len(results) == 0 {
		return
	}

	pipe := s.redis.TxPipeline()
	pipe.ZIncrBy(ctx, s.winsKey(), 1, results[0].Name)
	for _, r := range results {
		metaKey := s.metaKey(r.Name)
		pipe.HIncrBy(ctx, metaKey, "games", 1)
		// NX add keeps non-winners visible at zero wins without
		// clobbering an existing count.
		pipe.ZAddNX(ctx, s.winsKey(), redis.Z{Score: 0, Member: r.Name})
		pipe.HSet(ctx, metaKey, "name", r.Name)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		s.logger.Warn().Err(err).Str("room", roomCode).Msg("record game failed")
		return
	}

	// Best scores are monotone per player; update outside the
	// pipeline where the comparison can be read back.
	for _, r := range results {
		s.updateBest(ctx, r.Name, r.Score)
	}

	s.logger.Info().
		Str("room", roomCode).
		Str("winner", results[0].Name).
		Int("players", len(results)).
		Msg("game recorded")
}

func (s *Service) updateBest(ctx context.Context, name string, score int) {
	metaKey := s.metaKey(name)
	current, err := s.redis.HGet(ctx, metaKey, "best_score").Result()
	if err != nil && err != redis.Nil {
		s.logger.Warn().Err(err).Msg("read best score failed")
		return
	}
	if err == nil {
		if prev, convErr := strconv.Atoi(current); convErr == nil && prev >= score {
			return
		}
	}
	if err := s.redis.HSet(ctx, metaKey, "best_score", score).Err(); err != nil {
		s.logger.Warn().Err(err).Msg("write best score failed")
	}
}

// Top returns the leading entries ordered by wins.
func (s *Service) Top(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 || limit > s.topN {
		limit = s.topN
	}

	results, err := s.redis.ZRevRangeWithScores(ctx, s.winsKey(), 0, int64(limit-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("fetch hall of fame: %w", err)
	}

	entries := make([]Entry, 0, len(results))
	for _, z := range results {
		name := z.Member.(string)
		entry := Entry{Name: name, Wins: int(z.Score)}
		meta, err := s.redis.HGetAll(ctx, s.metaKey(name)).Result()
		if err != nil {
			s.logger.Warn().Err(err).Str("name", name).Msg("read meta failed")
		} else {
			entry.Games, _ = strconv.Atoi(meta["games"])
			entry.BestScore, _ = strconv.Atoi(meta["best_score"])
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

func (s *Service) winsKey() string {
	return s.prefix + ":wins"
}

func (s *Service) metaKey(name string) string {
	return fmt.Sprintf("%s:meta:%s", s.prefix, name)
}
