// Package meeting creates and tears down the live calls a companion session
// speaks in.
//
// A Provider wraps one call-hosting platform. Bridge sits in front of it and
// gives the session layer its contract: creation failures surface as
// ErrMeetingCreateFailed, and release is idempotent and never fails.
package meeting

import (
	"context"
	"time"
)

// Platform names.
const (
	PlatformWebRTC     = "webrtc"
	PlatformZoom       = "zoom"
	PlatformGoogleMeet = "google_meet"
	PlatformMock       = "mock"
)

// Handle references one external call instance.
type Handle struct {
	// ID is the platform's identifier for the call.
	ID string `json:"id"`

	// Platform is the provider that created the call.
	Platform string `json:"platform"`

	// JoinURL is where the user joins, if the platform has one.
	JoinURL string `json:"join_url,omitempty"`

	// Passcode protects the call, if the platform uses one.
	Passcode string `json:"passcode,omitempty"`

	// Offer is the bot's SDP offer for WebRTC calls.
	Offer string `json:"offer,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}

// IsZero reports whether h references no call.
func (h Handle) IsZero() bool {
	return h.ID == ""
}

// Provider wraps one call-hosting platform.
type Provider interface {
	// Name returns the platform name.
	Name() string

	// Create starts a call for the session.
	Create(ctx context.Context, sessionID string) (*Handle, error)

	// Release ends the call. Releasing a call that no longer exists
	// succeeds.
	Release(ctx context.Context, h Handle) error

	// Validate reports whether the call still exists and can be rejoined.
	Validate(ctx context.Context, h Handle) (bool, error)

	// Close releases provider resources.
	Close() error
}

// Answerer is implemented by providers that complete a call with the
// participant's SDP answer.
type Answerer interface {
	Answer(ctx context.Context, h Handle, sdp string) error
}
