package session

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/teslashibe/go-companion/pkg/billing"
	"github.com/teslashibe/go-companion/pkg/checkpoint"
	"github.com/teslashibe/go-companion/pkg/metrics"
)

// Default lifecycle settings.
const (
	DefaultIdleTimeout = 2 * time.Minute
	DefaultHardTimeout = 15 * time.Minute
	DefaultDrainGrace  = 5 * time.Second
	DefaultRetention   = 15 * time.Minute
)

// Config holds configuration for a Manager.
type Config struct {
	// IdleTimeout parks an Active session after this much inactivity.
	IdleTimeout time.Duration

	// HardTimeout ends any open session after this much inactivity.
	HardTimeout time.Duration

	// DrainGrace bounds how long End waits for an in-flight cycle.
	DrainGrace time.Duration

	// Retention keeps ended sessions queryable before they are purged.
	Retention time.Duration

	// LanguageHint passes the session language to the recognizer.
	LanguageHint bool

	// Billing gates voice sessions (nil allows everyone).
	Billing billing.Checker

	// Checkpoint persists sessions (nil disables persistence).
	Checkpoint checkpoint.Store

	// Metrics records Prometheus metrics (nil disables).
	Metrics *metrics.Metrics

	// OnEvent receives lifecycle events. It must not block.
	OnEvent func(Event)

	// Now is the clock.
	Now func() time.Time

	// Logger is the structured logger to use.
	Logger *slog.Logger
}

// Option configures a Manager.
type Option func(*Config)

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		IdleTimeout: DefaultIdleTimeout,
		HardTimeout: DefaultHardTimeout,
		DrainGrace:  DefaultDrainGrace,
		Retention:   DefaultRetention,
		Checkpoint:  checkpoint.Nop{},
		Now:         time.Now,
		Logger:      slog.Default(),
	}
}

// Apply applies functional options to the config.
func (c *Config) Apply(opts ...Option) {
	for _, opt := range opts {
		opt(c)
	}
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	switch {
	case c.IdleTimeout <= 0:
		return fmt.Errorf("%w: idle timeout %s", ErrInvalidTimeout, c.IdleTimeout)
	case c.HardTimeout <= c.IdleTimeout:
		return fmt.Errorf("%w: hard timeout %s must exceed idle timeout %s", ErrInvalidTimeout, c.HardTimeout, c.IdleTimeout)
	case c.DrainGrace <= 0:
		return fmt.Errorf("%w: drain grace %s", ErrInvalidTimeout, c.DrainGrace)
	case c.Retention < 0:
		return fmt.Errorf("%w: retention %s", ErrInvalidTimeout, c.Retention)
	}
	return nil
}

// WithIdleTimeout sets the idle threshold.
func WithIdleTimeout(d time.Duration) Option {
	return func(c *Config) {
		c.IdleTimeout = d
	}
}

// WithHardTimeout sets the hard ceiling.
func WithHardTimeout(d time.Duration) Option {
	return func(c *Config) {
		c.HardTimeout = d
	}
}

// WithDrainGrace sets how long End waits for an in-flight cycle.
func WithDrainGrace(d time.Duration) Option {
	return func(c *Config) {
		c.DrainGrace = d
	}
}

// WithRetention sets how long ended sessions stay queryable.
func WithRetention(d time.Duration) Option {
	return func(c *Config) {
		c.Retention = d
	}
}

// WithLanguageHint enables passing the session language to the recognizer.
func WithLanguageHint(enabled bool) Option {
	return func(c *Config) {
		c.LanguageHint = enabled
	}
}

// WithBilling sets the capability gate.
func WithBilling(checker billing.Checker) Option {
	return func(c *Config) {
		c.Billing = checker
	}
}

// WithCheckpoint sets the snapshot store.
func WithCheckpoint(store checkpoint.Store) Option {
	return func(c *Config) {
		if store != nil {
			c.Checkpoint = store
		}
	}
}

// WithMetrics sets the metrics sink.
func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Config) {
		c.Metrics = m
	}
}

// WithEventHandler sets the lifecycle event callback.
func WithEventHandler(fn func(Event)) Option {
	return func(c *Config) {
		c.OnEvent = fn
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(c *Config) {
		if now != nil {
			c.Now = now
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Config) {
		if logger != nil {
			c.Logger = logger
		}
	}
}
