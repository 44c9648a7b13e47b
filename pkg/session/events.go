package session

import (
	"time"

	"github.com/teslashibe/go-companion/pkg/voice"
)

// Event types.
const (
	EventStarted         = "session.started"
	EventIdle            = "session.idle"
	EventResumed         = "session.resumed"
	EventEnded           = "session.ended"
	EventUtterance       = "session.utterance"
	EventUtteranceFailed = "session.utterance_failed"
)

// Event describes a session lifecycle change or a finished cycle. Events
// carry no conversation text.
type Event struct {
	Type      string         `json:"type"`
	SessionID string         `json:"session_id"`
	UserID    string         `json:"user_id"`
	State     State          `json:"state"`
	Language  string         `json:"language,omitempty"`
	Reason    string         `json:"reason,omitempty"`
	Error     string         `json:"error,omitempty"`
	Crisis    bool           `json:"crisis,omitempty"`
	Timings   *voice.Timings `json:"timings,omitempty"`
	Time      time.Time      `json:"time"`
}

func (m *Manager) emit(e Event) {
	if m.config.OnEvent == nil {
		return
	}
	if e.Time.IsZero() {
		e.Time = m.now()
	}
	m.config.OnEvent(e)
}
