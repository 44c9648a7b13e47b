package voice

import (
	"log/slog"
	"time"
)

// Defaults for the bridge.
const (
	DefaultTranscriptionTimeout = 15 * time.Second
	DefaultSynthesisTimeout     = 15 * time.Second

	// DefaultMaxAudioBytes bounds one utterance (about two minutes of
	// 16kHz PCM16).
	DefaultMaxAudioBytes = 4 << 20
)

// Config holds bridge configuration.
type Config struct {
	// TranscriptionTimeout bounds one speech-recognition call.
	TranscriptionTimeout time.Duration

	// SynthesisTimeout bounds one speech-synthesis call.
	SynthesisTimeout time.Duration

	// MaxAudioBytes is the largest accepted utterance payload.
	MaxAudioBytes int

	Logger *slog.Logger
}

// Option is a functional option for configuring the bridge.
type Option func(*Config)

// WithTranscriptionTimeout sets the transcription stage ceiling.
func WithTranscriptionTimeout(d time.Duration) Option {
	return func(c *Config) {
		c.TranscriptionTimeout = d
	}
}

// WithSynthesisTimeout sets the synthesis stage ceiling.
func WithSynthesisTimeout(d time.Duration) Option {
	return func(c *Config) {
		c.SynthesisTimeout = d
	}
}

// WithMaxAudioBytes sets the largest accepted utterance payload.
func WithMaxAudioBytes(n int) Option {
	return func(c *Config) {
		c.MaxAudioBytes = n
	}
}

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Config) {
		if logger != nil {
			c.Logger = logger
		}
	}
}

// DefaultConfig returns the default bridge configuration.
func DefaultConfig() *Config {
	return &Config{
		TranscriptionTimeout: DefaultTranscriptionTimeout,
		SynthesisTimeout:     DefaultSynthesisTimeout,
		MaxAudioBytes:        DefaultMaxAudioBytes,
		Logger:               slog.Default(),
	}
}

// Apply applies functional options to the config.
func (c *Config) Apply(opts ...Option) {
	for _, opt := range opts {
		opt(c)
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if c.TranscriptionTimeout <= 0 || c.SynthesisTimeout <= 0 {
		return ErrInvalidTimeout
	}
	if c.MaxAudioBytes <= 0 {
		return ErrInvalidAudioLimit
	}
	return nil
}
