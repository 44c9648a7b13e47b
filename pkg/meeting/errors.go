package meeting

import (
	"errors"
	"fmt"
)

var (
	// ErrMeetingCreateFailed is returned by Bridge.CreateCall for any
	// provider failure.
	ErrMeetingCreateFailed = errors.New("meeting: create failed")

	// ErrNoProvider indicates the bridge was built without a provider.
	ErrNoProvider = errors.New("meeting: provider required")

	// ErrInvalidHandle indicates a handle without an ID or from another platform.
	ErrInvalidHandle = errors.New("meeting: invalid handle")

	// ErrCallNotFound indicates the call no longer exists.
	ErrCallNotFound = errors.New("meeting: call not found")

	// ErrAnswerUnsupported indicates the platform takes no SDP answer.
	ErrAnswerUnsupported = errors.New("meeting: platform does not accept answers")

	// ErrMissingCredentials indicates required provider credentials are absent.
	ErrMissingCredentials = errors.New("meeting: missing credentials")
)

// APIError represents an error response from a call-hosting API.
type APIError struct {
	StatusCode int
	Message    string
	Provider   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("meeting/%s: %s (status=%d)", e.Provider, e.Message, e.StatusCode)
}

// IsNotFound returns true if the API reported a missing resource.
func (e *APIError) IsNotFound() bool {
	return e.StatusCode == 404
}

func isNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.IsNotFound()
}
