package pg

import (
	"context"
	"database/sql"
	"errors"
	"io/fs"
	"os"
	"sync"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
)

// goose keeps dialect, table name and base FS in package globals.
var gooseMu sync.Mutex

// MigrateOption configures Migrate and MigrationStatus.
type MigrateOption func(*migrateOptions)

type migrateOptions struct {
	fsys fs.FS
}

// WithMigrationsFS reads migrations from fsys instead of the local disk.
func WithMigrationsFS(fsys fs.FS) MigrateOption {
	return func(o *migrateOptions) { o.fsys = fsys }
}

// Migrate applies all pending migrations.
func Migrate(ctx context.Context, pool *pgxpool.Pool, cfg Config, log Logger, opts ...MigrateOption) error {
	return runGoose(ctx, pool, cfg, log, opts, func(ctx context.Context, db *sql.DB, dir string) error {
		return goose.UpContext(ctx, db, dir)
	})
}

// MigrationStatus logs the applied state of every migration.
func MigrationStatus(ctx context.Context, pool *pgxpool.Pool, cfg Config, log Logger, opts ...MigrateOption) error {
	return runGoose(ctx, pool, cfg, log, opts, func(ctx context.Context, db *sql.DB, dir string) error {
		return goose.StatusContext(ctx, db, dir)
	})
}

func runGoose(
	ctx context.Context,
	pool *pgxpool.Pool,
	cfg Config,
	log Logger,
	opts []MigrateOption,
	run func(ctx context.Context, db *sql.DB, dir string) error,
) error {
	var o migrateOptions
	for _, opt := range opts {
		opt(&o)
	}

	if cfg.MigrationsPath == "" {
		return errors.Join(ErrFailedToApplyMigrations, ErrMigrationPathNotProvided)
	}
	if o.fsys == nil {
		if _, err := os.Stat(cfg.MigrationsPath); err != nil {
			if os.IsNotExist(err) {
				return errors.Join(ErrMigrationsDirNotFound, err)
			}
			return errors.Join(ErrFailedToApplyMigrations, err)
		}
	}

	// goose needs database/sql; this shares the pool's connections
	db := stdlib.OpenDBFromPool(pool)
	defer func() {
		if err := db.Close(); err != nil {
			log.ErrorContext(ctx, "failed to close migration connection", "error", err)
		}
	}()

	gooseMu.Lock()
	defer gooseMu.Unlock()

	goose.SetLogger(&gooseLogger{log: log})
	goose.SetTableName(cfg.MigrationsTable)
	goose.SetBaseFS(o.fsys)
	defer goose.SetBaseFS(nil)

	if err := goose.SetDialect("postgres"); err != nil {
		return errors.Join(ErrFailedToApplyMigrations, err)
	}
	if err := run(ctx, db, cfg.MigrationsPath); err != nil {
		return errors.Join(ErrFailedToApplyMigrations, err)
	}
	return nil
}
