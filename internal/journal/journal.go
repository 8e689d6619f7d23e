// Package journal keeps a record of /start launches for usage reports.
package journal

import (
	"context"
	"embed"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"poliglotbot/internal/config"
	"poliglotbot/internal/platform/pg"
	"poliglotbot/internal/platform/sqlite"
	"poliglotbot/internal/shared"
	"poliglotbot/pkg/retry"
)

//go:embed migrations
var migrationsFS embed.FS

// Launch is one /start received from a user.
type Launch struct {
	ID           uuid.UUID
	ChatID       int64
	UserID       int64
	Username     string
	LanguageCode string
	At           time.Time
}

// Stats aggregates launches since a point in time.
type Stats struct {
	Launches    int64
	UniqueUsers int64
	Since       time.Time
}

// Store persists launches.
type Store interface {
	Record(ctx context.Context, l Launch) error
	Stats(ctx context.Context, since time.Time) (Stats, error)
	Ping(ctx context.Context) error
	Close() error
}

// Open selects the store for cfg.Driver, applies its migrations and returns it ready to use.
func Open(ctx context.Context, cfg config.Storage, log *slog.Logger) (Store, error) {
	switch cfg.Driver {
	case config.DriverNone:
		return Nop{}, nil
	case config.DriverSQLite:
		return OpenSQLite(ctx, cfg.SQLitePath, log)
	case config.DriverPostgres:
		return OpenPostgres(ctx, cfg.PostgresDSN, log)
	default:
		return nil, shared.MarkKind(fmt.Errorf("journal: unknown driver %q", cfg.Driver), shared.KindValidation)
	}
}

// OpenSQLite applies migrations to the file at path and opens it.
func OpenSQLite(ctx context.Context, path string, log *slog.Logger) (*SQLiteStore, error) {
	version, err := sqlite.ApplyMigrationsFromFS(path, migrationsFS, "migrations/sqlite")
	if err != nil {
		return nil, shared.MarkKind(fmt.Errorf("journal: %w", err), shared.KindDependencyFailure)
	}
	db, err := sqlite.NewDB(ctx, path)
	if err != nil {
		return nil, shared.MarkKind(fmt.Errorf("journal: %w", err), shared.KindDependencyFailure)
	}
	log.Info("launch journal ready", "driver", config.DriverSQLite, "path", path, "schema_version", version)
	return NewSQLiteStore(db), nil
}

// OpenPostgres waits for the server, applies migrations and opens a pool.
func OpenPostgres(ctx context.Context, dsn string, log *slog.Logger) (*PostgresStore, error) {
	if err := pg.WaitForDB(ctx, dsn, retry.DefaultConfig(), log); err != nil {
		return nil, shared.MarkKind(fmt.Errorf("journal: %w", err), shared.KindDependencyFailure)
	}
	version, err := pg.ApplyMigrationsFromFS(dsn, migrationsFS, "migrations/postgres")
	if err != nil {
		return nil, shared.MarkKind(fmt.Errorf("journal: %w", err), shared.KindDependencyFailure)
	}
	pool, err := pg.NewPool(ctx, dsn)
	if err != nil {
		return nil, shared.MarkKind(fmt.Errorf("journal: %w", err), shared.KindDependencyFailure)
	}
	log.Info("launch journal ready", "driver", config.DriverPostgres, "schema_version", version)
	return NewPostgresStore(pool), nil
}

// Nop discards launches (STORAGE_DRIVER=none).
type Nop struct{}

func (Nop) Record(context.Context, Launch) error { return nil }

func (Nop) Stats(_ context.Context, since time.Time) (Stats, error) {
	return Stats{Since: since}, nil
}

func (Nop) Ping(context.Context) error { return nil }

func (Nop) Close() error { return nil }
