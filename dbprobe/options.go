package dbprobe

import (
	"log/slog"
	"time"
)

// Option is a functional option for New.
type Option func(*config)

type config struct {
	logger       *slog.Logger
	metrics      *MetricsExporter
	transports   map[Kind]Transport
	diagnose     bool
	overall      time.Duration
	closeTimeout time.Duration
	now          func() time.Time
}

// DefaultCloseTimeout bounds releasing a session after the probe finished.
const DefaultCloseTimeout = 5 * time.Second

func defaultConfig() config {
	return config{
		logger:       slog.Default(),
		transports:   map[Kind]Transport{},
		diagnose:     true,
		closeTimeout: DefaultCloseTimeout,
		now:          time.Now,
	}
}

// WithLogger sets the logger. Only sanitized targets are logged.
func WithLogger(l *slog.Logger) Option {
	return func(c *config) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithMetrics records every finished probe in m.
func WithMetrics(m *MetricsExporter) Option {
	return func(c *config) {
		c.metrics = m
	}
}

// WithTransport uses t for its kind instead of the registered transport.
// A nil transport is ignored.
func WithTransport(t Transport) Option {
	return func(c *config) {
		if t != nil {
			c.transports[t.Kind()] = t
		}
	}
}

// WithSecondaryDiagnostic enables or disables the read-only call made after
// a successful liveness command. Enabled by default; an endpoint can also
// disable it with the "diagnose" option.
func WithSecondaryDiagnostic(enabled bool) Option {
	return func(c *config) {
		c.diagnose = enabled
	}
}

// WithOverallTimeout bounds the whole Check call. The stage timeouts are
// capped to what remains of it.
func WithOverallTimeout(d time.Duration) Option {
	return func(c *config) {
		c.overall = d
	}
}

// WithCloseTimeout bounds the release of the session.
func WithCloseTimeout(d time.Duration) Option {
	return func(c *config) {
		if d > 0 {
			c.closeTimeout = d
		}
	}
}

// WithClock overrides time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(c *config) {
		if now != nil {
			c.now = now
		}
	}
}
