package logger

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/dmitrymomot/billsync/pkg/environment"
)

// Format is the handler output format.
type Format string

const (
	FormatJSON Format = "json"
	FormatText Format = "text"
)

// Option configures New.
type Option func(*settings)

type settings struct {
	level         slog.Level
	levelExplicit bool
	format        Format
	output        io.Writer
	addSource     bool
	attrs         []slog.Attr
	extractors    []ContextExtractor
}

// New builds a logger. Without options it writes JSON at info level to stdout.
func New(opts ...Option) *slog.Logger {
	s := &settings{level: slog.LevelInfo, format: FormatJSON}
	for _, opt := range opts {
		opt(s)
	}
	if s.output == nil {
		s.output = os.Stdout
	}

	ho := &slog.HandlerOptions{Level: s.level, AddSource: s.addSource}
	var h slog.Handler
	switch s.format {
	case FormatText:
		h = slog.NewTextHandler(s.output, ho)
	default:
		h = slog.NewJSONHandler(s.output, ho)
	}
	if len(s.attrs) > 0 {
		h = h.WithAttrs(s.attrs)
	}
	return slog.New(newContextHandler(h, s.extractors))
}

// SetAsDefault installs l as the slog default logger.
func SetAsDefault(l *slog.Logger) {
	slog.SetDefault(l)
}

func WithLevel(l slog.Level) Option {
	return func(s *settings) {
		s.level = l
		s.levelExplicit = true
	}
}

// WithLevelName sets the level by name. Empty or unknown names are ignored.
func WithLevelName(name string) Option {
	return func(s *settings) {
		if l, ok := ParseLevel(name); ok {
			s.level = l
			s.levelExplicit = true
		}
	}
}

// ParseLevel converts "debug", "info", "warn"/"warning" or "error" to a level.
func ParseLevel(name string) (slog.Level, bool) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "debug":
		return slog.LevelDebug, true
	case "info":
		return slog.LevelInfo, true
	case "warn", "warning":
		return slog.LevelWarn, true
	case "error":
		return slog.LevelError, true
	}
	return 0, false
}

// WithFormat sets the output format. It panics on anything but json or text.
func WithFormat(f Format) Option {
	switch f {
	case FormatJSON, FormatText:
	default:
		panic(fmt.Errorf("logger: invalid format %q", f))
	}
	return func(s *settings) { s.format = f }
}

func WithTextFormatter() Option { return WithFormat(FormatText) }

func WithJSONFormatter() Option { return WithFormat(FormatJSON) }

// WithOutput sets the destination. Nil keeps stdout.
func WithOutput(w io.Writer) Option {
	return func(s *settings) {
		if w != nil {
			s.output = w
		}
	}
}

// WithSource adds the caller file and line to every record.
func WithSource() Option {
	return func(s *settings) { s.addSource = true }
}

// WithAttr attaches static attributes to every record.
func WithAttr(attrs ...slog.Attr) Option {
	return func(s *settings) { s.attrs = append(s.attrs, attrs...) }
}

// WithContextExtractors adds attributes pulled from the context of each call.
func WithContextExtractors(extractors ...ContextExtractor) Option {
	return func(s *settings) {
		for _, ex := range extractors {
			if ex != nil {
				s.extractors = append(s.extractors, ex)
			}
		}
	}
}

// WithDevelopment selects text output at debug level.
func WithDevelopment(service string) Option {
	return preset(environment.Development, service, FormatText, slog.LevelDebug)
}

// WithStaging selects JSON output at info level.
func WithStaging(service string) Option {
	return preset(environment.Staging, service, FormatJSON, slog.LevelInfo)
}

// WithProduction selects JSON output at info level.
func WithProduction(service string) Option {
	return preset(environment.Production, service, FormatJSON, slog.LevelInfo)
}

// WithEnvironment applies the preset for an APP_ENV value.
// Unrecognized values get the development preset.
func WithEnvironment(env, service string) Option {
	switch environment.Parse(env) {
	case environment.Production:
		return WithProduction(service)
	case environment.Staging:
		return WithStaging(service)
	default:
		return WithDevelopment(service)
	}
}

// preset never lowers an explicitly chosen level.
func preset(env environment.Environment, service string, f Format, l slog.Level) Option {
	return func(s *settings) {
		s.format = f
		if !s.levelExplicit {
			s.level = l
		}
		if service != "" {
			s.attrs = append(s.attrs, slog.String("service", service))
		}
		s.attrs = append(s.attrs, slog.String("env", string(env)))
	}
}
