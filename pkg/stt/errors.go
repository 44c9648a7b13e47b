package stt

import (
	"errors"
	"fmt"
)

// Sentinel errors for common failure conditions.
var (
	// ErrNoAPIKey indicates the API key was not provided.
	ErrNoAPIKey = errors.New("stt: API key required")

	// ErrEmptyAudio indicates no audio was supplied.
	ErrEmptyAudio = errors.New("stt: audio is empty")

	// ErrUnsupportedFormat indicates the audio container was not recognized.
	ErrUnsupportedFormat = errors.New("stt: unsupported audio format")

	// ErrNoSpeech indicates the provider heard nothing intelligible.
	ErrNoSpeech = errors.New("stt: no speech recognized")

	// ErrProviderUnavailable indicates the provider is not reachable.
	ErrProviderUnavailable = errors.New("stt: provider unavailable")
)

// APIError represents an error response from an STT provider's API.
type APIError struct {
	StatusCode int
	Message    string
	Code       string
	Provider   string
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("stt/%s: %s (status=%d, code=%s)", e.Provider, e.Message, e.StatusCode, e.Code)
	}
	return fmt.Sprintf("stt/%s: %s (status=%d)", e.Provider, e.Message, e.StatusCode)
}

// IsRateLimited returns true if the error is a rate limit error.
func (e *APIError) IsRateLimited() bool {
	return e.StatusCode == 429
}

// IsAuthError returns true if the error is an authentication error.
func (e *APIError) IsAuthError() bool {
	return e.StatusCode == 401 || e.StatusCode == 403
}

// ProviderError wraps an error with provider context.
type ProviderError struct {
	Provider string
	Err      error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("stt/%s: %v", e.Provider, e.Err)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// WrapError wraps an error with provider context.
func WrapError(provider string, err error) error {
	if err == nil {
		return nil
	}
	return &ProviderError{Provider: provider, Err: err}
}
