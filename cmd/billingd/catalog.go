package main

import (
	"context"
	"log/slog"

	"github.com/dmitrymomot/billsync/pkg/config"
	"github.com/dmitrymomot/billsync/pkg/httpserver"
	"github.com/dmitrymomot/billsync/pkg/redis"
	"github.com/dmitrymomot/billsync/pkg/subscription"
	"github.com/dmitrymomot/billsync/svc/billing"
)

// openCatalog returns the configured plan catalog, wrapped in the cache when
// enabled, plus readiness checks for what it connected to and a cleanup func.
func openCatalog(ctx context.Context, cfg billing.CatalogConfig, log *slog.Logger) (subscription.PlanCatalog, map[string]httpserver.Check, func(), error) {
	checks := map[string]httpserver.Check{}
	cleanup := func() {}

	var source subscription.PlanCatalog
	if cfg.UsesCMS() {
		source = billing.NewCMSCatalog(cfg, nil, log)
		log.InfoContext(ctx, "plan catalog: cms", slog.String("base_url", cfg.CMSBaseURL))
	} else {
		fc, err := billing.LoadFileCatalog(cfg.File)
		if err != nil {
			return nil, nil, cleanup, err
		}
		source = fc
		log.InfoContext(ctx, "plan catalog: file", slog.String("path", cfg.File), slog.Int("plans", len(fc.Plans())))
	}

	if !cfg.CacheEnabled {
		return source, checks, cleanup, nil
	}

	var redisCfg redis.Config
	if err := config.Load(&redisCfg); err != nil {
		return nil, nil, cleanup, err
	}
	client, err := redis.Connect(ctx, redisCfg)
	if err != nil {
		return nil, nil, cleanup, err
	}
	cleanup = func() {
		if err := client.Close(); err != nil {
			log.ErrorContext(context.Background(), "failed to close redis client", "error", err)
		}
	}
	checks["redis"] = redis.Healthcheck(client)

	cached := billing.NewCachedCatalog(source,
		billing.WithRemoteCache(redis.NewStorage(client, redisCfg.KeyPrefix), cfg.CacheTTL),
		billing.WithLocalCache(cfg.LocalCacheMax, cfg.LocalCacheTTL),
		billing.WithCacheLogger(log),
	)
	return cached, checks, cleanup, nil
}
