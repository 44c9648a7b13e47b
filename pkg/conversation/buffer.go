package conversation

import "strings"

type pair struct {
	user      Turn
	assistant Turn
	closed    bool
}

// Buffer is a fixed-capacity ring of user/assistant pairs.
//
// The newest pair may be open (user turn only) while its reply is pending.
// A new user turn arriving while the newest pair is still open replaces the
// abandoned user turn instead of opening another pair. Buffer is not safe for
// concurrent use; Store adds the locking.
type Buffer struct {
	pairs []pair
	head  int
	n     int
}

// NewBuffer returns a buffer holding at most capacity pairs.
// A non-positive capacity is treated as 1.
func NewBuffer(capacity int) *Buffer {
	if capacity < 1 {
		capacity = 1
	}
	return &Buffer{pairs: make([]pair, capacity)}
}

// Cap returns the maximum number of pairs.
func (b *Buffer) Cap() int { return len(b.pairs) }

// Pairs returns the number of stored pairs, including an open one.
func (b *Buffer) Pairs() int { return b.n }

// Len returns the number of stored turns.
func (b *Buffer) Len() int {
	if b.n == 0 {
		return 0
	}
	turns := 2 * b.n
	if !b.last().closed {
		turns--
	}
	return turns
}

// Open reports whether the newest pair is waiting for an assistant turn.
func (b *Buffer) Open() bool {
	return b.n > 0 && !b.last().closed
}

// Append adds t to the buffer, evicting the oldest pair when a new pair
// would exceed capacity.
func (b *Buffer) Append(t Turn) error {
	if !t.Role.Valid() {
		return ErrInvalidRole
	}
	if strings.TrimSpace(t.Text) == "" {
		return ErrEmptyTurn
	}

	switch t.Role {
	case RoleUser:
		if b.Open() {
			b.last().user = t
			return nil
		}
		if b.n == len(b.pairs) {
			b.pairs[b.head] = pair{}
			b.head = (b.head + 1) % len(b.pairs)
			b.n--
		}
		b.pairs[(b.head+b.n)%len(b.pairs)] = pair{user: t}
		b.n++
	case RoleAssistant:
		if !b.Open() {
			return ErrUnpairedTurn
		}
		p := b.last()
		p.assistant = t
		p.closed = true
	}
	return nil
}

// Turns returns a copy of the stored turns in chronological order.
func (b *Buffer) Turns() []Turn {
	out := make([]Turn, 0, b.Len())
	for i := 0; i < b.n; i++ {
		p := b.pairs[(b.head+i)%len(b.pairs)]
		out = append(out, p.user)
		if p.closed {
			out = append(out, p.assistant)
		}
	}
	return out
}

// Reset removes every pair.
func (b *Buffer) Reset() {
	for i := range b.pairs {
		b.pairs[i] = pair{}
	}
	b.head, b.n = 0, 0
}

func (b *Buffer) last() *pair {
	return &b.pairs[(b.head+b.n-1)%len(b.pairs)]
}
