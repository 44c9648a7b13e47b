package stt

import (
	"context"
	"sync"
	"time"
)

// Mock implements Provider for testing.
type Mock struct {
	// TranscribeFunc is called when Transcribe is invoked.
	// If nil, the audio bytes are returned as the transcript text.
	TranscribeFunc func(ctx context.Context, req *Request) (*Transcript, error)

	// CloseFunc is called when Close is invoked.
	CloseFunc func() error

	mu    sync.Mutex
	calls []MockCall
}

// MockCall records a method invocation for verification.
type MockCall struct {
	Method       string
	Bytes        int
	LanguageHint string
	Time         time.Time
}

// NewMock creates a mock that echoes the audio payload as text, which lets
// tests drive the pipeline with plain strings.
func NewMock() *Mock {
	return &Mock{
		TranscribeFunc: func(ctx context.Context, req *Request) (*Transcript, error) {
			if len(req.Audio) == 0 {
				return nil, WrapError("mock", ErrEmptyAudio)
			}
			return &Transcript{Text: string(req.Audio), Provider: "mock"}, nil
		},
	}
}

// WithText returns a mock that always transcribes to text.
func WithText(text string) *Mock {
	return &Mock{
		TranscribeFunc: func(ctx context.Context, req *Request) (*Transcript, error) {
			return &Transcript{Text: text, Provider: "mock"}, nil
		},
	}
}

// WithError returns a mock whose Transcribe always fails with err.
func WithError(err error) *Mock {
	return &Mock{
		TranscribeFunc: func(ctx context.Context, req *Request) (*Transcript, error) {
			return nil, err
		},
	}
}

// Name implements Provider.
func (m *Mock) Name() string { return "mock" }

// Transcribe calls TranscribeFunc and records the call.
func (m *Mock) Transcribe(ctx context.Context, req *Request) (*Transcript, error) {
	m.mu.Lock()
	m.calls = append(m.calls, MockCall{
		Method:       "Transcribe",
		Bytes:        len(req.Audio),
		LanguageHint: req.LanguageHint,
		Time:         time.Now(),
	})
	m.mu.Unlock()

	if m.TranscribeFunc != nil {
		return m.TranscribeFunc(ctx, req)
	}
	return nil, WrapError("mock", ErrProviderUnavailable)
}

// Close calls CloseFunc.
func (m *Mock) Close() error {
	if m.CloseFunc != nil {
		return m.CloseFunc()
	}
	return nil
}

// Calls returns all recorded calls.
func (m *Mock) Calls() []MockCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	result := make([]MockCall, len(m.calls))
	copy(result, m.calls)
	return result
}

// CallCount returns the number of calls to a method.
func (m *Mock) CallCount(method string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	count := 0
	for _, c := range m.calls {
		if c.Method == method {
			count++
		}
	}
	return count
}

// Reset clears all recorded calls.
func (m *Mock) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = nil
}

// Verify Mock implements Provider at compile time.
var _ Provider = (*Mock)(nil)
