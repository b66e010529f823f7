package main

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"

	"github.com/dmitrymomot/billsync/db"
	"github.com/dmitrymomot/billsync/pkg/config"
	"github.com/dmitrymomot/billsync/pkg/pg"
)

func newMigrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withMigrations(cmd.Context(), pg.Migrate)
		},
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "Show the state of every migration",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withMigrations(cmd.Context(), pg.MigrationStatus)
		},
	})
	return cmd
}

type migrateFunc func(ctx context.Context, pool *pgxpool.Pool, cfg pg.Config, log pg.Logger, opts ...pg.MigrateOption) error

func withMigrations(ctx context.Context, run migrateFunc) error {
	_, log, err := loadApp()
	if err != nil {
		return err
	}
	var cfg pg.Config
	if err := config.Load(&cfg); err != nil {
		return err
	}

	pool, err := pg.Connect(ctx, cfg)
	if err != nil {
		return err
	}
	defer pool.Close()

	return run(ctx, pool, cfg, log, pg.WithMigrationsFS(db.Migrations))
}
