package billing

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/dmitrymomot/billsync/pkg/subscription"
)

// Metrics holds the service collectors.
type Metrics struct {
	// WebhookRequests counts webhook requests by event type and HTTP status.
	WebhookRequests *prometheus.CounterVec
	// WebhookDuration tracks webhook processing latency.
	WebhookDuration *prometheus.HistogramVec
	// Reconcile counts handler runs by outcome.
	Reconcile *prometheus.CounterVec
	// ReconcileDuration tracks handler latency.
	ReconcileDuration *prometheus.HistogramVec
}

var _ subscription.Observer = (*Metrics)(nil)

// NewMetrics registers the collectors with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		WebhookRequests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "billing",
			Name:      "webhook_requests_total",
			Help:      "Total Stripe webhook requests by event type and HTTP status.",
		}, []string{"event_type", "status"}),
		WebhookDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "billing",
			Name:      "webhook_duration_seconds",
			Help:      "Stripe webhook processing duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"event_type"}),
		Reconcile: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "billing",
			Name:      "reconcile_total",
			Help:      "Reconciliation handler runs by handler and outcome.",
		}, []string{"handler", "outcome"}),
		ReconcileDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "billing",
			Name:      "reconcile_duration_seconds",
			Help:      "Reconciliation handler duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"handler"}),
	}
}

// ObserveWebhook records one webhook request.
func (m *Metrics) ObserveWebhook(eventType string, status int, d time.Duration) {
	m.WebhookRequests.WithLabelValues(eventType, strconv.Itoa(status)).Inc()
	m.WebhookDuration.WithLabelValues(eventType).Observe(d.Seconds())
}

// ObserveHandler records one handler run.
func (m *Metrics) ObserveHandler(handler, outcome string, d time.Duration) {
	m.Reconcile.WithLabelValues(handler, outcome).Inc()
	if outcome != subscription.OutcomeSkipped {
		m.ReconcileDuration.WithLabelValues(handler).Observe(d.Seconds())
	}
}
