package voice

import (
	"context"
	"errors"
	"fmt"
)

// Failure kinds returned by the bridge. Provider errors are wrapped, so both
// the kind and the cause match errors.Is.
var (
	ErrTranscriptionFailed  = errors.New("voice: transcription failed")
	ErrTranscriptionTimeout = errors.New("voice: transcription timed out")
	ErrSynthesisFailed      = errors.New("voice: synthesis failed")
	ErrSynthesisTimeout     = errors.New("voice: synthesis timed out")
)

// Input validation errors.
var (
	ErrEmptyAudio    = errors.New("voice: audio is empty")
	ErrAudioTooLarge = errors.New("voice: audio exceeds size limit")
)

// Configuration errors.
var (
	ErrNoRecognizer      = errors.New("voice: speech recognizer required")
	ErrNoSynthesizer     = errors.New("voice: speech synthesizer required")
	ErrInvalidTimeout    = errors.New("voice: stage timeouts must be positive")
	ErrInvalidAudioLimit = errors.New("voice: audio size limit must be positive")
)

// classify wraps err in the failed or timeout kind. A stage deadline counts as
// a timeout; cancellation by the caller does not.
func classify(stageCtx context.Context, err error, failed, timeout error) error {
	if errors.Is(stageCtx.Err(), context.DeadlineExceeded) || errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %w", timeout, err)
	}
	var te interface{ Timeout() bool }
	if errors.As(err, &te) && te.Timeout() {
		return fmt.Errorf("%w: %w", timeout, err)
	}
	return fmt.Errorf("%w: %w", failed, err)
}
