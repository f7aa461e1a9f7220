package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/actuallystonmai/flick-found/internal/cache"
	"github.com/actuallystonmai/flick-found/internal/catalog"
	"github.com/actuallystonmai/flick-found/internal/config"
	"github.com/actuallystonmai/flick-found/internal/domain"
	"github.com/actuallystonmai/flick-found/internal/genre"
	"github.com/actuallystonmai/flick-found/internal/handler"
	"github.com/actuallystonmai/flick-found/internal/llm"
	"github.com/actuallystonmai/flick-found/internal/logging"
	"github.com/actuallystonmai/flick-found/internal/model"
	"github.com/actuallystonmai/flick-found/internal/prompt"
	"github.com/actuallystonmai/flick-found/internal/repository"
	"github.com/actuallystonmai/flick-found/internal/repository/sqlite"
	"github.com/actuallystonmai/flick-found/internal/router"
	"github.com/actuallystonmai/flick-found/internal/service"
	"github.com/actuallystonmai/flick-found/internal/upcoming"
	"github.com/actuallystonmai/flick-found/migrations"
	"github.com/actuallystonmai/flick-found/seeds"
)

type store interface {
	service.Store
	Ping(ctx context.Context) error
}

type recentCache interface {
	service.Cache
	Ping(ctx context.Context) error
}

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("failed to load config")
	}
	logging.Init(logging.Config{Level: cfg.Logging.Level, Format: cfg.Logging.Format})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// for migrate-down using CLI command
	migrateDownOnly := len(os.Args) > 1 && os.Args[1] == "migrate-down"

	// ------------ Storage ---------------
	var st store
	switch cfg.Database.Driver {
	case "sqlite":
		if migrateDownOnly {
			logging.Fatal().Msg("migrate-down is only supported for postgres")
		}
		s, err := sqlite.Open(cfg.Database.SQLitePath)
		if err != nil {
			logging.Fatal().Err(err).Str("path", cfg.Database.SQLitePath).Msg("failed to open sqlite")
		}
		defer s.Close()
		logging.Info().Str("path", cfg.Database.SQLitePath).Msg("opened SQLite")
		st = s
	default:
		pool, err := openPostgres(ctx, cfg.Database)
		if err != nil {
			logging.Fatal().Err(err).Msg("failed to connect to database")
		}
		defer pool.Close()

		if migrateDownOnly {
			if err := migrateDown(ctx, pool); err != nil {
				logging.Fatal().Err(err).Msg("failed to migrate down")
			}
			return
		}
		if err := migrateUp(ctx, pool); err != nil {
			logging.Fatal().Err(err).Msg("failed to migrate up")
		}
		st = repository.New(pool)
	}

	// ------------ Setup Seed Data ---------------
	if cfg.Database.Seed {
		if err := seeds.Setup(ctx, st); err != nil {
			logging.Fatal().Err(err).Msg("failed to seed")
		}
	}

	// ------------ Cache ---------------
	rc := openCache(ctx, cfg)

	// ------------ Generation ---------------
	backend, err := llm.New(ctx, llm.Config{
		Provider: cfg.Generation.Provider,
		APIKey:   cfg.Generation.APIKey,
		Model:    cfg.Generation.Model,
		BaseURL:  cfg.Generation.BaseURL,
		Timeout:  cfg.Generation.RequestTimeout,
	})
	if err != nil {
		logging.Fatal().Err(err).Msg("failed to create generation backend")
	}
	generator := model.NewClient(backend, model.RetryPolicy{
		MaxAttempts:    cfg.Generation.MaxAttempts,
		BaseDelay:      cfg.Generation.BaseDelay,
		MaxDelay:       cfg.Generation.MaxDelay,
		RequestTimeout: cfg.Generation.RequestTimeout,
	})

	// ------------ Catalog ---------------
	var (
		matcher service.UpcomingMatcher
		opts    []service.Option
	)
	if cfg.Catalog.APIKey != "" {
		cat := catalog.NewClient(catalog.Config{
			APIKey:         cfg.Catalog.APIKey,
			BaseURL:        cfg.Catalog.BaseURL,
			ImageBaseURL:   cfg.Catalog.ImageBaseURL,
			Language:       cfg.Catalog.Language,
			Region:         cfg.Catalog.Region,
			RequestTimeout: cfg.Catalog.RequestTimeout,
			MaxAttempts:    cfg.Catalog.MaxAttempts,
			RPS:            cfg.Catalog.RPS,
			Burst:          cfg.Catalog.Burst,
			PosterCacheTTL: cfg.Catalog.PosterCacheTTL,
		})
		matcher = upcoming.NewMatcher(st, cat, genre.Default(), cat.ImageBaseURL())
		opts = append(opts, service.WithPosters(cat))
	} else {
		logging.Warn().Msg("catalog api key not set, upcoming matches and posters disabled")
	}

	svc := service.NewService(st, rc, prompt.NewBuilder(cfg.Generation.Count), generator, matcher, service.Config{
		Policy:       domain.Policy(cfg.Recommendations.Policy),
		DefaultLimit: cfg.Recommendations.DefaultLimit,
		MaxLimit:     cfg.Recommendations.MaxLimit,
	}, opts...)

	// ---------------- Server --------------------
	h := handler.NewHandler(svc, map[string]handler.Pinger{"database": st, "cache": rc})
	srv := &http.Server{
		Addr: cfg.Addr(),
		Handler: router.Setup(h, router.Options{
			RequestTimeout: cfg.Server.RequestTimeout,
			GenerateLimit:  cfg.Server.GenerateRateLimit,
			GenerateWindow: cfg.Server.GenerateRateWindow,
			CORSOrigins:    cfg.Server.CORSOrigins,
		}),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logging.Info().Str("addr", srv.Addr).Str("backend", backend.Name()).
			Str("policy", string(svc.Policy())).Msg("server running")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			logging.Fatal().Err(err).Msg("server failed")
		}
	case <-ctx.Done():
		logging.Info().Msg("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logging.Error().Err(err).Msg("graceful shutdown failed")
		}
	}
}

func openPostgres(ctx context.Context, cfg config.DatabaseConfig) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse database config: %w", err)
	}
	poolConfig.MaxConns = int32(cfg.PoolSize)
	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}
	if err := waitForDB(ctx, pool); err != nil {
		pool.Close()
		return nil, err
	}
	logging.Info().Msg("connected to PostgreSQL")
	return pool, nil
}

// openCache prefers Redis and falls back to the in-process cache when it is disabled or unreachable.
func openCache(ctx context.Context, cfg *config.Config) recentCache {
	if !cfg.Redis.Enabled {
		return cache.NewMemory(cfg.Cache.Size, cfg.Cache.TTL)
	}
	opts, err := redis.ParseURL(cfg.Redis.URL)
	if err != nil {
		logging.Fatal().Err(err).Msg("failed to parse redis url")
	}
	c := cache.NewCache(redis.NewClient(opts), cfg.Cache.TTL)

	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := c.Ping(pingCtx); err != nil {
		logging.Warn().Err(err).Msg("redis unreachable, using in-process cache")
		return cache.NewMemory(cfg.Cache.Size, cfg.Cache.TTL)
	}
	logging.Info().Msg("connected to Redis")
	return c
}

func waitForDB(ctx context.Context, pool *pgxpool.Pool) error {
	for i := 0; i < 30; i++ {
		if err := pool.Ping(ctx); err == nil {
			return nil
		}
		logging.Info().Msgf("waiting for database... (%d/30)", i+1)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Second):
		}
	}
	return fmt.Errorf("database connection timeout after 30s")
}

func migrateDown(ctx context.Context, pool *pgxpool.Pool) error {
	sql, err := migrations.PostgresDown()
	if err != nil {
		return err
	}
	if _, err := pool.Exec(ctx, sql); err != nil {
		return fmt.Errorf("execute migration: %w", err)
	}
	logging.Info().Msg("migrations dropped successfully")
	return nil
}

func migrateUp(ctx context.Context, pool *pgxpool.Pool) error {
	sql, err := migrations.PostgresUp()
	if err != nil {
		return err
	}
	if _, err := pool.Exec(ctx, sql); err != nil {
		return fmt.Errorf("execute migration: %w", err)
	}
	logging.Info().Msg("migrations applied successfully")
	return nil
}
