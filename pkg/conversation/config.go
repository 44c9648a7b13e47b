package conversation

import "log/slog"

// DefaultPairs is the default history depth in user/assistant pairs.
const DefaultPairs = 5

// Config holds configuration for a Store.
type Config struct {
	// Pairs is the number of user/assistant pairs kept per session.
	Pairs int

	// Logger is the structured logger to use.
	Logger *slog.Logger
}

// Option configures a Store.
type Option func(*Config)

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Pairs:  DefaultPairs,
		Logger: slog.Default(),
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
	if c.Pairs < 1 {
		return ErrInvalidCapacity
	}
	return nil
}

// WithPairs sets the history depth in pairs.
func WithPairs(k int) Option {
	return func(c *Config) {
		c.Pairs = k
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
