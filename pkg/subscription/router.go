package subscription

import (
	"context"
	"log/slog"

	"github.com/dmitrymomot/billsync/pkg/logger"
)

// Verifier authenticates a raw webhook payload and decodes the event envelope.
type Verifier interface {
	Verify(payload []byte, signature string) (*Event, error)
}

// VerifiedHook is called for every authenticated event before dispatch.
type VerifiedHook func(ctx context.Context, evt *Event, payload []byte)

// EventRouter verifies inbound webhooks and dispatches them by type.
type EventRouter struct {
	verifier Verifier
	handlers map[EventType]HandlerFunc
	hooks    []VerifiedHook
	log      *slog.Logger
}

// RouterOption configures an EventRouter.
type RouterOption func(*EventRouter)

// WithRouterLogger sets the router logger.
func WithRouterLogger(log *slog.Logger) RouterOption {
	return func(r *EventRouter) {
		if log != nil {
			r.log = log
		}
	}
}

// WithVerifiedHook registers a hook run for each verified event, e.g. archiving.
func WithVerifiedHook(hook VerifiedHook) RouterOption {
	return func(r *EventRouter) {
		if hook != nil {
			r.hooks = append(r.hooks, hook)
		}
	}
}

// NewEventRouter creates a router. Panics if verifier is nil.
func NewEventRouter(verifier Verifier, handlers map[EventType]HandlerFunc, opts ...RouterOption) *EventRouter {
	if verifier == nil {
		panic("subscription: webhook verifier cannot be nil")
	}
	r := &EventRouter{
		verifier: verifier,
		handlers: make(map[EventType]HandlerFunc, len(handlers)),
		log:      slog.New(slog.DiscardHandler),
	}
	for t, h := range handlers {
		r.handlers[t] = h
	}
	for _, opt := range opts {
		opt(r)
	}
	r.log = r.log.With(logger.Component("event_router"))
	return r
}

// Handles reports whether t has a registered handler.
func (r *EventRouter) Handles(t EventType) bool {
	_, ok := r.handlers[t]
	return ok
}

// Route verifies payload and runs the handler for its type.
// Unverified payloads never reach a handler. Unknown event types are
// acknowledged without side effects. The verified event is returned
// together with any handler error.
func (r *EventRouter) Route(ctx context.Context, payload []byte, signature string) (*Event, error) {
	if signature == "" {
		return nil, ErrMissingSignature
	}

	evt, err := r.verifier.Verify(payload, signature)
	if err != nil {
		r.log.WarnContext(ctx, "webhook verification failed", logger.Error(err))
		return nil, err
	}

	ctx = WithEvent(ctx, evt)
	log := r.log.With(logger.EventType(string(evt.Type)), logger.Event(evt.ID))
	for _, hook := range r.hooks {
		hook(ctx, evt, payload)
	}

	handler, ok := r.handlers[evt.Type]
	if !ok {
		log.InfoContext(ctx, "ignored webhook event")
		return evt, nil
	}

	if err := handler(ctx, evt); err != nil {
		return evt, err
	}
	log.DebugContext(ctx, "webhook event processed")
	return evt, nil
}
