package meeting

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Mock implements Provider for testing. By default calls are tracked in
// memory: Validate succeeds until the call is released.
type Mock struct {
	CreateFunc   func(ctx context.Context, sessionID string) (*Handle, error)
	ReleaseFunc  func(ctx context.Context, h Handle) error
	ValidateFunc func(ctx context.Context, h Handle) (bool, error)

	mu    sync.Mutex
	live  map[string]bool
	calls []MockCall
}

// MockCall records a method invocation for verification.
type MockCall struct {
	Method string
	CallID string
	Time   time.Time
}

// NewMock creates a mock provider.
func NewMock() *Mock {
	return &Mock{live: make(map[string]bool)}
}

// Name implements Provider.
func (m *Mock) Name() string { return PlatformMock }

// Create implements Provider.
func (m *Mock) Create(ctx context.Context, sessionID string) (*Handle, error) {
	if m.CreateFunc != nil {
		h, err := m.CreateFunc(ctx, sessionID)
		if h != nil {
			m.record("Create", h.ID)
		} else {
			m.record("Create", "")
		}
		return h, err
	}

	id := uuid.NewString()
	m.mu.Lock()
	if m.live == nil {
		m.live = make(map[string]bool)
	}
	m.live[id] = true
	m.mu.Unlock()
	m.record("Create", id)

	return &Handle{
		ID:        id,
		Platform:  PlatformMock,
		JoinURL:   "https://meet.example.test/" + id,
		CreatedAt: time.Now(),
	}, nil
}

// Release implements Provider.
func (m *Mock) Release(ctx context.Context, h Handle) error {
	m.record("Release", h.ID)
	m.mu.Lock()
	delete(m.live, h.ID)
	m.mu.Unlock()
	if m.ReleaseFunc != nil {
		return m.ReleaseFunc(ctx, h)
	}
	return nil
}

// Validate implements Provider.
func (m *Mock) Validate(ctx context.Context, h Handle) (bool, error) {
	m.record("Validate", h.ID)
	if m.ValidateFunc != nil {
		return m.ValidateFunc(ctx, h)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.live[h.ID], nil
}

// Close implements Provider.
func (m *Mock) Close() error { return nil }

// Live reports whether the call is created and not yet released.
func (m *Mock) Live(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.live[id]
}

func (m *Mock) record(method, id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, MockCall{Method: method, CallID: id, Time: time.Now()})
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

// Verify Mock implements Provider at compile time.
var _ Provider = (*Mock)(nil)
