package main

import (
	"log/slog"

	"github.com/dmitrymomot/billsync/pkg/config"
	"github.com/dmitrymomot/billsync/pkg/environment"
	"github.com/dmitrymomot/billsync/pkg/logger"
	"github.com/dmitrymomot/billsync/pkg/requestid"
	"github.com/dmitrymomot/billsync/pkg/subscription"
)

// AppConfig holds process-wide settings.
type AppConfig struct {
	Env      string `env:"APP_ENV" envDefault:"development"`
	Name     string `env:"APP_NAME" envDefault:"billingd"`
	LogLevel string `env:"LOG_LEVEL"`
}

// Environment returns the parsed APP_ENV.
func (c AppConfig) Environment() environment.Environment {
	return environment.Parse(c.Env)
}

func loadEnvFiles(files []string) error {
	if len(files) == 0 {
		return nil
	}
	if err := config.LoadEnvFiles(files...); err != nil {
		return err
	}
	config.Reset()
	return nil
}

func loadApp() (AppConfig, *slog.Logger, error) {
	var app AppConfig
	if err := config.Load(&app); err != nil {
		return app, nil, err
	}
	log := logger.New(
		logger.WithEnvironment(string(app.Environment()), app.Name),
		logger.WithLevelName(app.LogLevel),
		logger.WithContextExtractors(
			requestid.LoggerExtractor(),
			subscription.LoggerExtractor(),
		),
	)
	return app, log, nil
}
