package tts

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
)

// Router implements Provider by routing each request to the first provider
// that speaks the requested language. A provider failure is returned as is;
// the router never retries on another provider.
type Router struct {
	providers []Provider
	logger    *slog.Logger
}

// NewRouter creates a router over providers in priority order.
// At least one provider is required.
func NewRouter(logger *slog.Logger, providers ...Provider) (*Router, error) {
	if len(providers) == 0 {
		return nil, ErrProviderUnavailable
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Router{
		providers: providers,
		logger:    logger.With("component", "tts.router"),
	}, nil
}

// Name implements Provider.
func (r *Router) Name() string {
	names := make([]string, len(r.providers))
	for i, p := range r.providers {
		names[i] = p.Name()
	}
	return "router(" + strings.Join(names, ",") + ")"
}

// Supports reports whether any provider speaks the language.
func (r *Router) Supports(language string) bool {
	return r.pick(language) != nil
}

// Synthesize delegates to the first provider supporting req.Language.
func (r *Router) Synthesize(ctx context.Context, req *Request) (*AudioResult, error) {
	p := r.pick(req.Language)
	if p == nil {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedLanguage, req.Language)
	}
	r.logger.Debug("routing synthesis", "language", req.Language, "provider", p.Name())
	return p.Synthesize(ctx, req)
}

// Close closes every provider and returns the first error.
func (r *Router) Close() error {
	var first error
	for _, p := range r.providers {
		if err := p.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

func (r *Router) pick(language string) Provider {
	for _, p := range r.providers {
		if p.Supports(language) {
			return p
		}
	}
	return nil
}

// Verify Router implements Provider at compile time.
var _ Provider = (*Router)(nil)
