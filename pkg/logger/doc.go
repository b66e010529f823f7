// Package logger builds *slog.Logger instances for the billing service and
// provides attribute helpers that keep key names consistent across packages.
//
// New creates a JSON or text handler according to the supplied options. When
// ContextExtractor callbacks are registered they run on every record. Request ids and webhook event ids reach the log
// this way without threading loggers through every call.
//
// # Usage
//
//	log := logger.New(
//		logger.WithLevelName(cfg.LogLevel),
//		logger.WithEnvironment(cfg.Env, cfg.Name),
//		logger.WithContextExtractors(
//			requestid.LoggerExtractor(),
//			subscription.LoggerExtractor(),
//		),
//	)
//
//	log.InfoContext(ctx, "subscription_created completed",
//		logger.SubscriptionID("sub_123"),
//		logger.Duration(time.Since(start)),
//	)
//
// # Configuration
//
//   - WithDevelopment / WithStaging / WithProduction set per-environment defaults.
//   - WithEnvironment picks one of them from an APP_ENV value.
//   - WithLevel / WithLevelName override the level; presets keep an explicit level.
//   - WithFormat / WithTextFormatter / WithJSONFormatter override the format.
//   - WithAttr attaches static attributes; WithSource adds the caller.
//   - WithContextExtractors injects attributes from context.
//
// Error, Errors and the identifier helpers return an empty attribute for nil
// errors and empty ids, so they can be passed unconditionally.
package logger
