package storage

import (
	"context"
	"fmt"
	"log/slog"

	"mercator-hq/ddsguard/pkg/evidence"
)

// Backend names.
const (
	BackendMemory   = "memory"
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
)

// Config selects and configures a storage backend.
type Config struct {
	Backend  string
	SQLite   *SQLiteConfig
	Postgres *PostgresConfig
}

// Pinger is implemented by backends that can check their connection.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Open creates the backend named by cfg.Backend.
func Open(ctx context.Context, cfg Config, logger *slog.Logger) (evidence.Storage, error) {
	switch cfg.Backend {
	case BackendMemory:
		return NewMemoryStorage(), nil
	case BackendSQLite, "":
		return NewSQLiteStorage(cfg.SQLite, logger)
	case BackendPostgres:
		return NewPostgresStorage(ctx, cfg.Postgres, logger)
	default:
		return nil, evidence.NewStorageError(cfg.Backend, "open", fmt.Errorf("unknown storage backend %q", cfg.Backend))
	}
}
