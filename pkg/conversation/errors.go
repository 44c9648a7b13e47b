package conversation

import "errors"

// Sentinel errors for the conversation package.
var (
	// ErrInvalidRole indicates a turn with a role other than user or assistant.
	ErrInvalidRole = errors.New("conversation: invalid turn role")

	// ErrEmptyTurn indicates a turn without text.
	ErrEmptyTurn = errors.New("conversation: turn text is empty")

	// ErrUnpairedTurn indicates an assistant turn with no open user turn to answer.
	ErrUnpairedTurn = errors.New("conversation: assistant turn without preceding user turn")

	// ErrInvalidCapacity indicates a non-positive history depth.
	ErrInvalidCapacity = errors.New("conversation: history depth must be positive")
)
