package httpserver

import (
	"log/slog"
	"time"
)

// Option configures a Server.
type Option func(*settings)

// WithAddr sets the listen address. Use "127.0.0.1:0" for an ephemeral port.
func WithAddr(addr string) Option {
	if addr == "" {
		panic("httpserver: empty address")
	}
	return func(s *settings) { s.addr = addr }
}

func WithReadTimeout(d time.Duration) Option {
	return func(s *settings) { s.readTimeout = positive("read timeout", d) }
}

// WithReadHeaderTimeout bounds how long a client may take to send headers.
func WithReadHeaderTimeout(d time.Duration) Option {
	return func(s *settings) { s.readHeaderTimeout = positive("read header timeout", d) }
}

func WithWriteTimeout(d time.Duration) Option {
	return func(s *settings) { s.writeTimeout = positive("write timeout", d) }
}

func WithIdleTimeout(d time.Duration) Option {
	return func(s *settings) { s.idleTimeout = positive("idle timeout", d) }
}

// WithShutdownTimeout bounds the drain on shutdown.
func WithShutdownTimeout(d time.Duration) Option {
	return func(s *settings) { s.shutdownTimeout = positive("shutdown timeout", d) }
}

// WithLogger sets the lifecycle and error logger. Nil is ignored.
func WithLogger(l *slog.Logger) Option {
	return func(s *settings) {
		if l != nil {
			s.log = l
		}
	}
}

func positive(name string, d time.Duration) time.Duration {
	if d <= 0 {
		panic("httpserver: " + name + " must be positive")
	}
	return d
}
