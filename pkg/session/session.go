// Package session owns the lifecycle of live support sessions and sequences
// the utterance pipeline: transcribe, detect language, generate a reply, and
// synthesize it.
//
// Every mutating operation on a session runs inside that session's lane, a
// one-slot queue. Unrelated sessions never contend; the only shared critical
// section is the user index that keeps one open session per user.
package session

import (
	"time"

	"github.com/teslashibe/go-companion/pkg/conversation"
	"github.com/teslashibe/go-companion/pkg/language"
	"github.com/teslashibe/go-companion/pkg/meeting"
	"github.com/teslashibe/go-companion/pkg/voice"
)

// State is a session lifecycle state.
type State string

// Lifecycle states. Ended is absorbing.
const (
	StateCreated State = "created"
	StateActive  State = "active"
	StateIdle    State = "idle"
	StateEnded   State = "ended"
)

// Open reports whether the state still counts against the user's
// one-session limit.
func (s State) Open() bool {
	return s == StateCreated || s == StateActive || s == StateIdle
}

// End reasons.
const (
	ReasonUser        = "user"
	ReasonHardTimeout = "hard_timeout"
	ReasonInvalidCall = "invalid_call"
)

// Info is a read-only view of a session.
type Info struct {
	SessionID      string         `json:"session_id"`
	UserID         string         `json:"user_id"`
	Language       string         `json:"language"`
	State          State          `json:"state"`
	Call           meeting.Handle `json:"meeting"`
	Turns          int            `json:"turns"`
	CreatedAt      time.Time      `json:"created_at"`
	LastActivityAt time.Time      `json:"last_activity_at"`
	EndedAt        time.Time      `json:"ended_at,omitzero"`
	EndReason      string         `json:"end_reason,omitempty"`
}

// Started is returned by Start.
type Started struct {
	Info

	// Greeting welcomes the user in the session language. It is not part of
	// the history.
	Greeting string `json:"greeting"`
}

// Result is the outcome of one successful pipeline cycle.
type Result struct {
	SessionID  string             `json:"session_id"`
	Transcript string             `json:"transcript"`
	ReplyText  string             `json:"reply_text"`
	ReplyAudio []byte             `json:"reply_audio"`
	Language   string             `json:"language"`
	Detection  language.Detection `json:"detection"`

	// Crisis flags utterances that mention self-harm so callers can surface
	// emergency resources.
	Crisis bool `json:"crisis"`

	Timings voice.Timings `json:"timings"`
}

// SweepReport summarizes one SweepIdle pass.
type SweepReport struct {
	Idled   []string `json:"idled,omitempty"`
	Ended   []string `json:"ended,omitempty"`
	Purged  []string `json:"purged,omitempty"`
	Skipped int      `json:"skipped"`
}

// Empty reports whether the sweep changed nothing.
func (r SweepReport) Empty() bool {
	return len(r.Idled) == 0 && len(r.Ended) == 0 && len(r.Purged) == 0
}

// RestoreReport summarizes a Restore.
type RestoreReport struct {
	Restored []string `json:"restored,omitempty"`
	Ended    []string `json:"ended,omitempty"`
}

// Stats is a point-in-time summary of the arena.
type Stats struct {
	Sessions map[State]int `json:"sessions"`
	Cycles   int           `json:"cycles"`
	Average  voice.Timings `json:"average"`
}

// promptHistory drops a trailing unanswered user turn left by a failed cycle.
func promptHistory(turns []conversation.Turn) []conversation.Turn {
	if n := len(turns); n > 0 && turns[n-1].Role == conversation.RoleUser {
		return turns[:n-1]
	}
	return turns
}
