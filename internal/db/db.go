package db

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/existflow/taskboard/internal/config"
	"github.com/existflow/taskboard/internal/logger"
	"github.com/existflow/taskboard/internal/store"
	"github.com/existflow/taskboard/internal/store/mongostore"
	"github.com/existflow/taskboard/internal/store/sqlstore"
)

// Open opens the store selected by cfg and runs its migrations
func Open(ctx context.Context, cfg config.DatabaseConfig) (store.Store, error) {
	s, err := open(ctx, cfg)
	if err != nil {
		return nil, err
	}

	if err := s.Migrate(ctx); err != nil {
		s.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	logger.Info("Database ready", logger.F("driver", cfg.Driver))
	return s, nil
}

func open(ctx context.Context, cfg config.DatabaseConfig) (store.Store, error) {
	switch cfg.Driver {
	case config.DriverMongo:
		return mongostore.Open(ctx, cfg.URL, cfg.MongoDB)

	case config.DriverPostgres:
		return sqlstore.Open(ctx, sqlstore.Postgres, cfg.URL, sqlstore.Options{
			MaxOpenConns: cfg.MaxOpenConns,
			MaxIdleConns: cfg.MaxIdleConns,
		})

	case config.DriverSQLite, "":
		if cfg.URL == "" || cfg.URL == ":memory:" {
			return sqlstore.OpenMemory(ctx)
		}
		if err := ensureDir(cfg.URL); err != nil {
			return nil, err
		}
		return sqlstore.Open(ctx, sqlstore.SQLite, cfg.URL, sqlstore.Options{})

	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}
}

// ensureDir creates the parent directory of a sqlite file path
func ensureDir(dsn string) error {
	path := strings.TrimPrefix(dsn, "file:")
	if i := strings.IndexByte(path, '?'); i >= 0 {
		path = path[:i]
	}
	dir := filepath.Dir(path)
	if dir == "." || dir == "" {
		return nil
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create database directory: %w", err)
	}
	return nil
}
