package subscription

import (
	"log/slog"
	"time"
)

// Observer receives the outcome of every handler run.
type Observer interface {
	ObserveHandler(handler, outcome string, duration time.Duration)
}

type options struct {
	log      *slog.Logger
	now      func() time.Time
	observer Observer
}

func newOptions(opts []Option) options {
	o := options{
		log: slog.New(slog.DiscardHandler),
		now: time.Now,
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// Option configures the builder, the reconciler and the router.
type Option func(*options)

// WithLogger sets the logger. Defaults to a discarding logger.
func WithLogger(log *slog.Logger) Option {
	return func(o *options) {
		if log != nil {
			o.log = log
		}
	}
}

// WithClock overrides the source of "now" used for updatedAt and similar fields.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		if now != nil {
			o.now = now
		}
	}
}

// WithObserver reports handler outcomes, e.g. to metrics.
func WithObserver(observer Observer) Option {
	return func(o *options) {
		o.observer = observer
	}
}
