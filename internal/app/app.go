package app

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/quizhall/jeopardy-server/internal/archive"
	"github.com/quizhall/jeopardy-server/internal/auth"
	"github.com/quizhall/jeopardy-server/internal/config"
	"github.com/quizhall/jeopardy-server/internal/halloffame"
	"github.com/quizhall/jeopardy-server/internal/logging"
	"github.com/quizhall/jeopardy-server/internal/room"
	"github.com/quizhall/jeopardy-server/internal/server"
	ws "github.com/quizhall/jeopardy-server/pkg/http/ws"
)

// Application aggregates shared infrastructure (stores, room manager,
// HTTP server).
type Application struct {
	cfg    *config.App
	logger zerolog.Logger

	pool  *pgxpool.Pool
	redis *redis.Client
	http  *http.Server

	rooms     *room.Manager
	bgCancels []context.CancelFunc
}

// New bootstraps config, logger, optional stores, the room manager and
// the HTTP server.
func New(ctx context.Context, cfg *config.App) (*Application, error) {
	logger := logging.New(cfg.Name, cfg.Env)
	logger.Info().Msg("starting application bootstrap")

	if cfg.Security.TokenSecret == "" {
		return nil, fmt.Errorf("TOKEN_SECRET must be configured")
	}

	var pool *pgxpool.Pool
	if cfg.Postgres.Enabled() {
		var err error
		pool, err = pgxpool.New(ctx, cfg.Postgres.DSN()+" pool_max_conns=10")
		if err != nil {
			return nil, fmt.Errorf("connect postgres: %w", err)
		}
	} else {
		logger.Warn().Msg("PG_HOST not set; game archive disabled")
	}

	var redisClient *redis.Client
	if cfg.Redis.Enabled() {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			DB:       cfg.Redis.DB,
			PoolSize: cfg.Redis.PoolSize,
		})
	} else {
		logger.Warn().Msg("REDIS_ADDR not set; hall of fame disabled")
	}

	tokens := auth.NewManager(auth.TokenConfig{
		Secret: []byte(cfg.Security.TokenSecret),
		Issuer: cfg.Name,
		TTL:    cfg.Security.TokenTTL,
	})

	var (
		sinks      []room.ResultSink
		hofHandler *halloffame.HTTPHandler
		arcHandler *archive.HTTPHandler
	)
	if redisClient != nil {
		hofSvc := halloffame.NewService(redisClient, logger, halloffame.ServiceOptions{})
		hofHandler = halloffame.NewHTTPHandler(hofSvc, logger)
		sinks = append(sinks, hofSvc)
	}
	if pool != nil {
		repo := archive.NewRepository(archive.NewPGStore(pool), logger)
		arcHandler = archive.NewHTTPHandler(repo, logger)
		sinks = append(sinks, repo)
	}

	wsHub := ws.NewHub(logger)
	rooms := room.NewManager(wsHub, tokens, sinks, room.ManagerOptions{
		IdleTTL:        cfg.Rooms.IdleTTL,
		ReconnectGrace: cfg.Rooms.ReconnectGrace,
	}, logger)
	wsHandler := room.NewHandler(rooms, wsHub, tokens, logger)

	handlers := server.Handlers{RoomWS: wsHandler.HandleWebSocket}
	if hofHandler != nil {
		handlers.HallOfFame = hofHandler.HandleGet
	}
	if arcHandler != nil {
		handlers.Archive = arcHandler.HandleRecent
	}

	apiServer := server.NewHTTPServer(cfg, logger, pool, redisClient, handlers)

	return &Application{
		cfg:       cfg,
		logger:    logger,
		pool:      pool,
		redis:     redisClient,
		http:      apiServer,
		rooms:     rooms,
		bgCancels: make([]context.CancelFunc, 0, 1),
	}, nil
}

// Run starts the HTTP server and waits for termination signals.
func (a *Application) Run(ctx context.Context) error {
	errCh := make(chan error, 1)

	a.startBackgroundWorkers(ctx)

	go func() {
		a.logger.Info().Str("addr", a.cfg.HTTPAddr).Msg("http server listening")
		if err := a.http.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		a.logger.Info().Str("signal", sig.String()).Msg("shutdown signal received")
	case err := <-errCh:
		return fmt.Errorf("http server error: %w", err)
	case <-ctx.Done():
		a.logger.Warn().Msg("context canceled")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.GracefulShutdownTimeout)
	defer cancel()

	if err := a.http.Shutdown(shutdownCtx); err != nil {
		a.logger.Error().Err(err).Msg("http shutdown error")
	}

	for _, cancel := range a.bgCancels {
		cancel()
	}

	if a.pool != nil {
		a.pool.Close()
	}
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.logger.Error().Err(err).Msg("redis shutdown error")
		}
	}

	a.logger.Info().Msg("shutdown complete")
	return nil
}

func (a *Application) startBackgroundWorkers(ctx context.Context) {
	bgCtx, cancel := context.WithCancel(ctx)
	a.bgCancels = append(a.bgCancels, cancel)
	go func() {
		if err := a.rooms.Run(bgCtx); err != nil && err != context.Canceled {
			a.logger.Warn().Err(err).Msg("room reaper stopped")
		}
	}()
}
