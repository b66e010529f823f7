package main

import (
	"context"
	"errors"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"github.com/dmitrymomot/billsync/db"
	"github.com/dmitrymomot/billsync/pkg/config"
	"github.com/dmitrymomot/billsync/pkg/httpserver"
	"github.com/dmitrymomot/billsync/pkg/pg"
	"github.com/dmitrymomot/billsync/pkg/subscription"
	"github.com/dmitrymomot/billsync/svc/billing"
)

var errWebhookSecretRequired = errors.New("STRIPE_WEBHOOK_SECRET is required in production")

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the webhook HTTP server",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return serve(cmd.Context())
		},
	}
}

func serve(ctx context.Context) error {
	app, log, err := loadApp()
	if err != nil {
		return err
	}

	var (
		pgCfg      pg.Config
		httpCfg    httpserver.Config
		stripeCfg  subscription.StripeConfig
		catalogCfg billing.CatalogConfig
		archiveCfg billing.ArchiveConfig
		webhookCfg billing.WebhookConfig
	)
	for _, load := range []func() error{
		func() error { return config.Load(&pgCfg) },
		func() error { return config.Load(&httpCfg) },
		func() error { return config.Load(&stripeCfg) },
		func() error { return config.Load(&catalogCfg) },
		func() error { return config.Load(&archiveCfg) },
		func() error { return config.Load(&webhookCfg) },
	} {
		if err := load(); err != nil {
			return err
		}
	}

	if stripeCfg.WebhookSecret == "" {
		if app.Environment().IsProduction() {
			return errWebhookSecretRequired
		}
		log.WarnContext(ctx, "STRIPE_WEBHOOK_SECRET is empty, every webhook will be refused")
	}
	stripeClient, err := subscription.NewStripeClient(stripeCfg)
	if err != nil {
		return err
	}

	pool, err := pg.Connect(ctx, pgCfg)
	if err != nil {
		return err
	}
	defer pool.Close()

	if pgCfg.MigrateOnStart {
		if err := pg.Migrate(ctx, pool, pgCfg, log, pg.WithMigrationsFS(db.Migrations)); err != nil {
			return err
		}
	}

	catalog, checks, closeCatalog, err := openCatalog(ctx, catalogCfg, log)
	if err != nil {
		return err
	}
	defer closeCatalog()
	checks["postgres"] = pg.Healthcheck(pool)

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metrics := billing.NewMetrics(reg)

	reconciler := subscription.NewReconciler(
		billing.NewPGStore(pool),
		stripeClient,
		catalog,
		subscription.WithLogger(log),
		subscription.WithObserver(metrics),
	)

	routerOpts := []subscription.RouterOption{subscription.WithRouterLogger(log)}
	if archiveCfg.Enabled() {
		archive, err := billing.NewS3Archive(ctx, archiveCfg, log)
		if err != nil {
			return err
		}
		routerOpts = append(routerOpts, subscription.WithVerifiedHook(archive.Hook()))
		log.InfoContext(ctx, "webhook archive enabled", slog.String("bucket", archiveCfg.Bucket))
	}
	router := subscription.NewEventRouter(
		subscription.NewStripeVerifier(stripeCfg.WebhookSecret),
		reconciler.Handlers(),
		routerOpts...,
	)

	handler := billing.Routes(billing.RoutesConfig{
		WebhookPath: webhookCfg.Path,
		Webhook: billing.NewWebhookHandler(router,
			billing.WithMetrics(metrics),
			billing.WithWebhookLogger(log),
			billing.WithMaxBodyBytes(webhookCfg.MaxBodyBytes),
		),
		Checks:   checks,
		Gatherer: reg,
		Logger:   log,
	})

	return httpserver.NewFromConfig(httpCfg, httpserver.WithLogger(log)).Run(ctx, handler)
}
