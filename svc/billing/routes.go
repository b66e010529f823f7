package billing

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/dmitrymomot/billsync/pkg/httpserver"
	"github.com/dmitrymomot/billsync/pkg/requestid"
)

// RoutesConfig lists what the HTTP surface serves.
type RoutesConfig struct {
	WebhookPath string
	Webhook     http.Handler
	// Checks are the readiness probes by name.
	Checks map[string]httpserver.Check
	// Gatherer exposes /metrics when set.
	Gatherer prometheus.Gatherer
	Logger   *slog.Logger
}

// Routes builds the service router.
func Routes(cfg RoutesConfig) http.Handler {
	if cfg.Webhook == nil {
		panic("billing: webhook handler cannot be nil")
	}
	path := cfg.WebhookPath
	if path == "" {
		path = "/api/payment/webhook"
	}

	r := chi.NewRouter()
	r.Use(requestid.Middleware)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	// any method reaches the handler so it can answer 405 itself
	r.Handle(path, cfg.Webhook)

	r.Get("/health/live", httpserver.LivenessHandler())
	r.Get("/health/ready", httpserver.ReadinessHandler(cfg.Logger, cfg.Checks))

	if cfg.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(cfg.Gatherer, promhttp.HandlerOpts{}))
	}
	return r
}
