package billing

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/dmitrymomot/billsync/pkg/logger"
	"github.com/dmitrymomot/billsync/pkg/subscription"
)

// SignatureHeader carries the Stripe webhook signature.
const SignatureHeader = "Stripe-Signature"

const defaultMaxBodyBytes = 1 << 20

// EventRouter verifies and dispatches a raw webhook.
type EventRouter interface {
	Route(ctx context.Context, payload []byte, signature string) (*subscription.Event, error)
}

// WebhookHandler is the HTTP endpoint for processor webhooks.
// Any non-2xx answer makes the processor redeliver the event.
type WebhookHandler struct {
	router       EventRouter
	metrics      *Metrics
	log          *slog.Logger
	maxBodyBytes int64
}

// WebhookOption configures a WebhookHandler.
type WebhookOption func(*WebhookHandler)

// WithMetrics records request counts and latency.
func WithMetrics(m *Metrics) WebhookOption {
	return func(h *WebhookHandler) { h.metrics = m }
}

// WithWebhookLogger sets the logger.
func WithWebhookLogger(log *slog.Logger) WebhookOption {
	return func(h *WebhookHandler) {
		if log != nil {
			h.log = log
		}
	}
}

// WithMaxBodyBytes limits the accepted payload size. Defaults to 1 MiB.
func WithMaxBodyBytes(n int64) WebhookOption {
	return func(h *WebhookHandler) {
		if n > 0 {
			h.maxBodyBytes = n
		}
	}
}

// NewWebhookHandler creates the endpoint. Panics if router is nil.
func NewWebhookHandler(router EventRouter, opts ...WebhookOption) *WebhookHandler {
	if router == nil {
		panic("billing: event router cannot be nil")
	}
	h := &WebhookHandler{
		router:       router,
		log:          slog.New(slog.DiscardHandler),
		maxBodyBytes: defaultMaxBodyBytes,
	}
	for _, opt := range opts {
		opt(h)
	}
	h.log = h.log.With(logger.Component("webhook"))
	return h
}

type errorResponse struct {
	Error string `json:"error"`
}

type receivedResponse struct {
	Received bool `json:"received"`
}

func (h *WebhookHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	eventType := "unknown"
	status := http.StatusOK
	defer func() {
		if h.metrics != nil {
			h.metrics.ObserveWebhook(eventType, status, time.Since(start))
		}
	}()

	if r.Method != http.MethodPost {
		status = http.StatusMethodNotAllowed
		w.Header().Set("Allow", http.MethodPost)
		writeJSON(w, status, errorResponse{Error: "method not allowed"})
		return
	}

	payload, err := io.ReadAll(http.MaxBytesReader(w, r.Body, h.maxBodyBytes))
	if err != nil {
		status = http.StatusBadRequest
		msg := "failed to read request body"
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			status = http.StatusRequestEntityTooLarge
			msg = "request body too large"
		}
		writeJSON(w, status, errorResponse{Error: msg})
		return
	}

	evt, err := h.router.Route(r.Context(), payload, r.Header.Get(SignatureHeader))
	if evt != nil {
		eventType = string(evt.Type)
	}
	if err != nil {
		var msg string
		status, msg = h.classify(evt, err)
		if evt != nil {
			h.log.ErrorContext(r.Context(), "webhook processing failed",
				logger.Event(evt.ID),
				logger.EventType(eventType),
				logger.Error(err),
			)
		}
		writeJSON(w, status, errorResponse{Error: msg})
		return
	}

	writeJSON(w, status, receivedResponse{Received: true})
}

func (h *WebhookHandler) classify(evt *subscription.Event, err error) (int, string) {
	switch {
	case evt != nil:
		return http.StatusBadRequest, "webhook processing failed"
	case errors.Is(err, subscription.ErrWebhookSecretMissing):
		return http.StatusServiceUnavailable, "webhook secret not configured"
	case errors.Is(err, subscription.ErrMissingSignature):
		return http.StatusBadRequest, "missing Stripe signature"
	case errors.Is(err, subscription.ErrInvalidSignature):
		return http.StatusBadRequest, "invalid Stripe signature"
	}
	return http.StatusBadRequest, "invalid payload"
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
