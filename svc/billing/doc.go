// Package billing wires the subscription reconciliation core to real
// infrastructure.
//
// It provides:
//
//   - PGStore, a Postgres implementation of subscription.Store and
//     subscription.Transactor built on pgx;
//   - MemoryStore for tests and local runs;
//   - CMSCatalog, FileCatalog and CachedCatalog, sources of plan definitions;
//   - S3Archive, which keeps a copy of every verified webhook payload;
//   - Metrics, Prometheus collectors for webhook traffic and handler outcomes;
//   - WebhookHandler and Routes, the HTTP surface of the service.
//
// Typical wiring:
//
//	store := billing.NewPGStore(pool)
//	catalog := billing.NewCachedCatalog(billing.NewCMSCatalog(cfg, nil, log),
//		billing.WithRemoteCache(redis.NewStorage(client, prefix), cfg.CacheTTL),
//	)
//	rec := subscription.NewReconciler(store, stripeClient, catalog,
//		subscription.WithLogger(log),
//		subscription.WithObserver(metrics),
//	)
//	router := subscription.NewEventRouter(subscription.NewStripeVerifier(secret), rec.Handlers())
//	mux := billing.Routes(billing.RoutesConfig{
//		Webhook: billing.NewWebhookHandler(router, billing.WithMetrics(metrics)),
//	})
package billing
