package reply

import (
	"log/slog"
	"time"
)

// Config holds configuration for a Generator.
type Config struct {
	// DefaultLanguage selects the template for unknown languages.
	DefaultLanguage string

	// Templates overrides or adds instruction preambles by language code.
	Templates map[string]string

	// Timeout bounds one generation call (0 disables).
	Timeout time.Duration

	// Profiles supplies optional per-user context for the preamble.
	Profiles ProfileSource

	// Logger is the structured logger to use.
	Logger *slog.Logger
}

// Option configures a Generator.
type Option func(*Config)

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		DefaultLanguage: "en",
		Timeout:         30 * time.Second,
		Logger:          slog.Default(),
	}
}

// Apply applies functional options to the config.
func (c *Config) Apply(opts ...Option) {
	for _, opt := range opts {
		opt(c)
	}
}

// WithDefaultLanguage sets the fallback template language.
func WithDefaultLanguage(code string) Option {
	return func(c *Config) { c.DefaultLanguage = code }
}

// WithTemplates overrides instruction preambles by language code.
func WithTemplates(t map[string]string) Option {
	return func(c *Config) { c.Templates = t }
}

// WithTimeout sets the generation deadline.
func WithTimeout(d time.Duration) Option {
	return func(c *Config) { c.Timeout = d }
}

// WithProfiles sets the user profile source.
func WithProfiles(p ProfileSource) Option {
	return func(c *Config) { c.Profiles = p }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Config) {
		if l != nil {
			c.Logger = l
		}
	}
}
