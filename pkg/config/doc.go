// Package config loads typed configuration from environment variables.
//
// Configuration structs declare their variables with caarlos0/env tags and
// live next to the code that uses them (pg.Config, redis.Config,
// httpserver.Config, subscription.StripeConfig, ...). Load parses a struct
// once per type and caches the result for the lifetime of the process.
//
//	type CatalogConfig struct {
//		BaseURL string        `env:"CMS_BASE_URL"`
//		Timeout time.Duration `env:"CMS_TIMEOUT" envDefault:"5s"`
//	}
//
//	var cfg CatalogConfig
//	config.MustLoad(&cfg)
//
// A .env file in the working directory is read on first use. Extra files can
// be loaded with LoadEnvFiles; existing variables are never overridden.
// Tests that change the environment call Reset between loads.
package config
