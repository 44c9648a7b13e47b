// Package billing answers one question for the session engine: may this
// user open a voice session.
package billing

import (
	"context"
	"errors"
	"sync"
)

// ErrNoUser indicates an empty user id.
var ErrNoUser = errors.New("billing: user id required")

// Checker reports whether a user's plan includes voice sessions.
type Checker interface {
	VoiceEnabled(ctx context.Context, userID string) (bool, error)
}

// Tier is a subscription tier.
type Tier string

const (
	TierFree    Tier = "free"
	TierBasic   Tier = "basic"
	TierPremium Tier = "premium"
)

// Voice reports whether the tier includes voice sessions.
func (t Tier) Voice() bool {
	return t != "" && t != TierFree
}

// Static assigns tiers from a fixed map. Users not in the map get Default.
type Static struct {
	mu      sync.RWMutex
	tiers   map[string]Tier
	Default Tier
}

// NewStatic creates a static checker.
func NewStatic(def Tier, tiers map[string]Tier) *Static {
	s := &Static{tiers: make(map[string]Tier, len(tiers)), Default: def}
	for u, t := range tiers {
		s.tiers[u] = t
	}
	return s
}

// Set assigns a tier to a user.
func (s *Static) Set(userID string, t Tier) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tiers[userID] = t
}

// Tier returns the user's tier.
func (s *Static) Tier(userID string) Tier {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if t, ok := s.tiers[userID]; ok {
		return t
	}
	return s.Default
}

// VoiceEnabled implements Checker.
func (s *Static) VoiceEnabled(ctx context.Context, userID string) (bool, error) {
	if userID == "" {
		return false, ErrNoUser
	}
	return s.Tier(userID).Voice(), nil
}

// CheckerFunc adapts a function to Checker.
type CheckerFunc func(ctx context.Context, userID string) (bool, error)

// VoiceEnabled implements Checker.
func (f CheckerFunc) VoiceEnabled(ctx context.Context, userID string) (bool, error) {
	return f(ctx, userID)
}

// Verify implementations at compile time.
var (
	_ Checker = (*Static)(nil)
	_ Checker = CheckerFunc(nil)
)
