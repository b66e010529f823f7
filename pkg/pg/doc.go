// Package pg bootstraps PostgreSQL access with pgx/v5.
//
// Connect opens a *pgxpool.Pool from Config and retries until the database
// answers a ping. Migrate and MigrationStatus run goose migrations over the
// same pool, either from a directory on disk or from an embedded filesystem
// passed with WithMigrationsFS. Healthcheck adapts the pool to a readiness
// probe, and IsNotFoundError / IsDuplicateKeyError / IsCheckViolationError
// classify driver errors.
//
//	var cfg pg.Config
//	config.MustLoad(&cfg)
//
//	pool, err := pg.Connect(ctx, cfg)
//	if err != nil {
//		return err
//	}
//	defer pool.Close()
//
//	if err := pg.Migrate(ctx, pool, cfg, log, pg.WithMigrationsFS(db.Migrations)); err != nil {
//		return err
//	}
package pg
