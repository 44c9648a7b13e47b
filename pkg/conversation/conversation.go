// Package conversation keeps the bounded, per-session message history that
// feeds reply generation.
//
// History is stored as user/assistant pairs in a fixed-capacity ring. The
// ring holds at most K pairs, so a session never carries more than 2K turns,
// and the oldest pair is evicted first when a new pair arrives at capacity.
//
// Example usage:
//
//	store := conversation.NewStore(conversation.WithPairs(5))
//	_ = store.Append("s1", conversation.UserTurn("I feel anxious today", time.Now()))
//	_ = store.Append("s1", conversation.AssistantTurn("I'm here with you.", time.Now()))
//	turns := store.Snapshot("s1")
package conversation

import "time"

// Role identifies who produced a turn.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	return r == RoleUser || r == RoleAssistant
}

// Turn is one message within a session's history.
type Turn struct {
	Role      Role      `json:"role"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"created_at"`
}

// UserTurn builds a user turn.
func UserTurn(text string, at time.Time) Turn {
	return Turn{Role: RoleUser, Text: text, CreatedAt: at}
}

// AssistantTurn builds an assistant turn.
func AssistantTurn(text string, at time.Time) Turn {
	return Turn{Role: RoleAssistant, Text: text, CreatedAt: at}
}
