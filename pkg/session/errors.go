package session

import (
	"context"
	"errors"

	"github.com/teslashibe/go-companion/pkg/meeting"
	"github.com/teslashibe/go-companion/pkg/reply"
	"github.com/teslashibe/go-companion/pkg/voice"
)

// Sentinel errors for the session package.
var (
	// ErrSessionAlreadyActive indicates the user already holds an open session.
	ErrSessionAlreadyActive = errors.New("session: user already has an active session")

	// ErrSessionNotFound indicates an unknown session id.
	ErrSessionNotFound = errors.New("session: not found")

	// ErrSessionClosed indicates the session has ended or is ending.
	ErrSessionClosed = errors.New("session: closed")

	// ErrCapabilityDenied indicates the user's plan does not include voice sessions.
	ErrCapabilityDenied = errors.New("session: voice sessions not enabled for user")

	// ErrNoUser indicates a start without a user id.
	ErrNoUser = errors.New("session: user id is required")

	// ErrMissingDependency indicates a manager built without a pipeline component.
	ErrMissingDependency = errors.New("session: missing dependency")

	// ErrInvalidTimeout indicates a non-positive or inconsistent timeout.
	ErrInvalidTimeout = errors.New("session: invalid timeout")
)

// Error kinds reported in events, metrics and API responses.
const (
	KindSessionAlreadyActive  = "SessionAlreadyActive"
	KindSessionNotFound       = "SessionNotFound"
	KindSessionClosed         = "SessionClosed"
	KindCapabilityDenied      = "CapabilityDenied"
	KindTranscriptionFailed   = "TranscriptionFailed"
	KindTranscriptionTimeout  = "TranscriptionTimeout"
	KindGenerationUnavailable = "GenerationUnavailable"
	KindGenerationTimeout     = "GenerationTimeout"
	KindSynthesisFailed       = "SynthesisFailed"
	KindSynthesisTimeout      = "SynthesisTimeout"
	KindMeetingCreateFailed   = "MeetingCreateFailed"
	KindCanceled              = "Canceled"
	KindInternal              = "Internal"
)

var kinds = []struct {
	err  error
	kind string
}{
	{ErrSessionAlreadyActive, KindSessionAlreadyActive},
	{ErrSessionNotFound, KindSessionNotFound},
	{ErrSessionClosed, KindSessionClosed},
	{ErrCapabilityDenied, KindCapabilityDenied},
	{voice.ErrTranscriptionTimeout, KindTranscriptionTimeout},
	{voice.ErrTranscriptionFailed, KindTranscriptionFailed},
	{reply.ErrGenerationTimeout, KindGenerationTimeout},
	{reply.ErrGenerationUnavailable, KindGenerationUnavailable},
	{voice.ErrSynthesisTimeout, KindSynthesisTimeout},
	{voice.ErrSynthesisFailed, KindSynthesisFailed},
	{meeting.ErrMeetingCreateFailed, KindMeetingCreateFailed},
	{context.Canceled, KindCanceled},
	{context.DeadlineExceeded, KindCanceled},
}

// Kind names the failure class of err. Unknown errors are KindInternal.
func Kind(err error) string {
	if err == nil {
		return ""
	}
	for _, k := range kinds {
		if errors.Is(err, k.err) {
			return k.kind
		}
	}
	return KindInternal
}
