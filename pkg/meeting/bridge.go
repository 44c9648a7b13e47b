package meeting

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

const (
	// DefaultReleaseTimeout bounds one release attempt.
	DefaultReleaseTimeout = 10 * time.Second

	// DefaultReleaseMemory is how long a released call id is remembered.
	DefaultReleaseMemory = time.Hour
)

// Config holds bridge configuration.
type Config struct {
	// ReleaseTimeout bounds one release call so teardown never hangs.
	ReleaseTimeout time.Duration

	// ReleaseMemory is how long repeated releases of a call are suppressed.
	// Providers treat releasing a gone call as success, so forgetting an id
	// after this window only costs one extra provider request.
	ReleaseMemory time.Duration

	Logger *slog.Logger
}

// Option is a functional option for configuring the bridge.
type Option func(*Config)

// WithReleaseTimeout sets the release ceiling.
func WithReleaseTimeout(d time.Duration) Option {
	return func(c *Config) {
		if d > 0 {
			c.ReleaseTimeout = d
		}
	}
}

// WithReleaseMemory sets how long released call ids are remembered.
func WithReleaseMemory(d time.Duration) Option {
	return func(c *Config) {
		if d > 0 {
			c.ReleaseMemory = d
		}
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

// Bridge is the session layer's view of a call-hosting provider.
type Bridge struct {
	provider Provider
	config   Config
	logger   *slog.Logger

	mu       sync.Mutex
	released map[string]time.Time
}

// NewBridge creates a bridge over provider.
func NewBridge(provider Provider, opts ...Option) (*Bridge, error) {
	if provider == nil {
		return nil, ErrNoProvider
	}
	cfg := Config{
		ReleaseTimeout: DefaultReleaseTimeout,
		ReleaseMemory:  DefaultReleaseMemory,
		Logger:         slog.Default(),
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Bridge{
		provider: provider,
		config:   cfg,
		logger:   cfg.Logger.With("component", "meeting.bridge", "platform", provider.Name()),
		released: make(map[string]time.Time),
	}, nil
}

// Platform returns the provider's platform name.
func (b *Bridge) Platform() string {
	return b.provider.Name()
}

// CreateCall allocates a call for the session.
func (b *Bridge) CreateCall(ctx context.Context, sessionID string) (Handle, error) {
	h, err := b.provider.Create(ctx, sessionID)
	if err != nil {
		b.logger.Error("call creation failed", "session_id", sessionID, "error", err)
		return Handle{}, fmt.Errorf("%w: %w", ErrMeetingCreateFailed, err)
	}
	if h == nil || h.IsZero() {
		return Handle{}, fmt.Errorf("%w: provider returned no call", ErrMeetingCreateFailed)
	}
	if h.CreatedAt.IsZero() {
		h.CreatedAt = time.Now()
	}
	b.logger.Info("call created", "session_id", sessionID, "call_id", h.ID)
	return *h, nil
}

// ReleaseCall ends the call. It is idempotent and best-effort: provider
// failures are logged, never returned.
func (b *Bridge) ReleaseCall(ctx context.Context, h Handle) {
	if h.IsZero() {
		return
	}

	now := time.Now()
	b.mu.Lock()
	for id, at := range b.released {
		if now.Sub(at) > b.config.ReleaseMemory {
			delete(b.released, id)
		}
	}
	if _, done := b.released[h.ID]; done {
		b.mu.Unlock()
		return
	}
	b.released[h.ID] = now
	b.mu.Unlock()

	// Teardown must complete even when the caller's context is gone.
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), b.config.ReleaseTimeout)
	defer cancel()

	if err := b.provider.Release(ctx, h); err != nil {
		b.logger.Warn("call release failed", "call_id", h.ID, "error", err)
		return
	}
	b.logger.Info("call released", "call_id", h.ID)
}

// ValidateCall reports whether a call can still be rejoined. Handles from
// another platform never validate.
func (b *Bridge) ValidateCall(ctx context.Context, h Handle) (bool, error) {
	if h.IsZero() || h.Platform != b.provider.Name() {
		return false, nil
	}
	return b.provider.Validate(ctx, h)
}

// Answer forwards the participant's SDP answer to providers that take one.
func (b *Bridge) Answer(ctx context.Context, h Handle, sdp string) error {
	a, ok := b.provider.(Answerer)
	if !ok {
		return ErrAnswerUnsupported
	}
	return a.Answer(ctx, h, sdp)
}

// Close closes the provider.
func (b *Bridge) Close() error {
	return b.provider.Close()
}
