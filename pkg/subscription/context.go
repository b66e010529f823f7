package subscription

import (
	"context"
	"log/slog"
)

type eventCtxKey struct{}

// WithEvent stores the event being processed in ctx.
func WithEvent(ctx context.Context, evt *Event) context.Context {
	return context.WithValue(ctx, eventCtxKey{}, evt)
}

// EventFromContext returns the event being processed, if any.
func EventFromContext(ctx context.Context) (*Event, bool) {
	evt, ok := ctx.Value(eventCtxKey{}).(*Event)
	return evt, ok && evt != nil
}

// LoggerExtractor adds the id of the event being processed to log records.
func LoggerExtractor() func(ctx context.Context) (slog.Attr, bool) {
	return func(ctx context.Context) (slog.Attr, bool) {
		if evt, ok := EventFromContext(ctx); ok && evt.ID != "" {
			return slog.String("event_id", evt.ID), true
		}
		return slog.Attr{}, false
	}
}
