package language

import (
	"log/slog"
	"strings"
)

// Defaults for detection.
const (
	DefaultLanguage            = "en"
	DefaultMinLength           = 3
	DefaultMinLetterRatio      = 0.5
	DefaultMinRelativeDistance = 0.1
)

// Config holds configuration for a Detector.
type Config struct {
	// Default is returned whenever detection cannot produce a supported code.
	Default string

	// Supported is the set of language codes the companion serves.
	Supported []string

	// MinLength is the minimum number of letters needed to attempt detection.
	MinLength int

	// MinLetterRatio is the share of non-space runes that must be letters.
	MinLetterRatio float64

	// MinConfidence rejects detections below this confidence (0 disables).
	MinConfidence float64

	// MinRelativeDistance makes the backend report ambiguous text as undetected.
	MinRelativeDistance float64

	// Backend overrides the lingua backend.
	Backend Backend

	// Logger is the structured logger to use.
	Logger *slog.Logger
}

// Option configures a Detector.
type Option func(*Config)

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Default:             DefaultLanguage,
		Supported:           DefaultSupported(),
		MinLength:           DefaultMinLength,
		MinLetterRatio:      DefaultMinLetterRatio,
		MinRelativeDistance: DefaultMinRelativeDistance,
		Logger:              slog.Default(),
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
	if len(c.Supported) == 0 {
		return ErrNoLanguages
	}
	if c.MinRelativeDistance < 0 || c.MinRelativeDistance > 0.99 {
		return ErrInvalidThreshold
	}
	for _, code := range c.Supported {
		if Normalize(strings.ToLower(code)) == c.Default {
			return nil
		}
	}
	return ErrUnsupportedDefault
}

// WithDefault sets the fallback language.
func WithDefault(code string) Option {
	return func(c *Config) {
		c.Default = Normalize(strings.ToLower(code))
	}
}

// WithSupported sets the supported language codes.
func WithSupported(codes ...string) Option {
	return func(c *Config) {
		c.Supported = codes
	}
}

// WithMinLength sets the minimum letters required for detection.
func WithMinLength(n int) Option {
	return func(c *Config) {
		c.MinLength = n
	}
}

// WithMinLetterRatio sets the letter share below which text counts as noise.
func WithMinLetterRatio(v float64) Option {
	return func(c *Config) {
		c.MinLetterRatio = v
	}
}

// WithMinConfidence sets the confidence floor.
func WithMinConfidence(v float64) Option {
	return func(c *Config) {
		c.MinConfidence = v
	}
}

// WithMinRelativeDistance sets the ambiguity threshold passed to the backend.
func WithMinRelativeDistance(v float64) Option {
	return func(c *Config) {
		c.MinRelativeDistance = v
	}
}

// WithBackend replaces the detection backend.
func WithBackend(b Backend) Option {
	return func(c *Config) {
		c.Backend = b
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
