// Package app assembles the engine from configuration for the binaries.
package app

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/mind-engage/pcbuild-assess/internal/config"
	"github.com/mind-engage/pcbuild-assess/internal/db"
	"github.com/mind-engage/pcbuild-assess/internal/lifecycle"
	"github.com/mind-engage/pcbuild-assess/internal/logger"
	"github.com/mind-engage/pcbuild-assess/internal/results"
	"github.com/mind-engage/pcbuild-assess/internal/store"
	syncx "github.com/mind-engage/pcbuild-assess/internal/sync"
)

// Engine is the wired controller plus what must be closed on shutdown.
type Engine struct {
	Controller *lifecycle.Controller
	Results    *results.Aggregator

	db    *sql.DB
	redis *redis.Client
}

// Open builds the backend selected by STORE_BACKEND. The SQL backend also
// records lifecycle events in event_log.
func Open(ctx context.Context, cfg config.Config, log *logger.Logger) (*Engine, error) {
	e := &Engine{}
	var (
		backend store.Backend
		opts    = []lifecycle.Option{lifecycle.WithLogger(log)}
	)
	switch cfg.StoreBackend {
	case config.BackendMemory:
		backend = store.NewMemoryBackend()
	case config.BackendFS:
		fsb, err := store.NewFSBackend(cfg.StoreFSPath)
		if err != nil {
			return nil, fmt.Errorf("fs store: %w", err)
		}
		backend = fsb
	case config.BackendSQL:
		conn, err := db.Open(ctx, db.Driver(cfg.DBDriver), cfg.DBDSN)
		if err != nil {
			return nil, fmt.Errorf("db open failed: %w", err)
		}
		e.db = conn
		backend = store.NewSQLBackend(conn, db.Driver(cfg.DBDriver))
		opts = append(opts, lifecycle.WithEvents(syncx.NewEventRepo(conn, string(cfg.Mode))))
	case config.BackendRedis:
		client, err := store.DialRedis(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			return nil, err
		}
		e.redis = client
		backend = store.NewRedisBackend(client, cfg.RedisKeyPrefix)
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.StoreBackend)
	}
	e.Controller = lifecycle.New(store.New(backend), opts...)
	e.Results = results.New(e.Controller)
	log.Info("store ready", "backend", cfg.StoreBackend, "db_driver", cfg.DBDriver)
	return e, nil
}

// Ping checks the external dependency, if any.
func (e *Engine) Ping(ctx context.Context) error {
	switch {
	case e.db != nil:
		return e.db.PingContext(ctx)
	case e.redis != nil:
		return e.redis.Ping(ctx).Err()
	}
	return nil
}

func (e *Engine) Close() error {
	if e.db != nil {
		return e.db.Close()
	}
	if e.redis != nil {
		return e.redis.Close()
	}
	return nil
}
