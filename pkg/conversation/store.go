package conversation

import (
	"log/slog"
	"sync"
)

type entry struct {
	mu  sync.Mutex
	buf *Buffer
}

// Store holds one bounded Buffer per session.
//
// The session map lock is only held to find or create an entry; appends and
// snapshots take the entry's own lock, so sessions never contend with each
// other.
type Store struct {
	mu      sync.RWMutex
	entries map[string]*entry
	pairs   int
	logger  *slog.Logger
}

// NewStore creates an empty Store. Invalid options fall back to defaults.
func NewStore(opts ...Option) *Store {
	cfg := DefaultConfig()
	cfg.Apply(opts...)
	if err := cfg.Validate(); err != nil {
		cfg.Pairs = DefaultPairs
	}
	return &Store{
		entries: make(map[string]*entry),
		pairs:   cfg.Pairs,
		logger:  cfg.Logger.With("component", "conversation.store"),
	}
}

// Pairs returns the configured history depth.
func (s *Store) Pairs() int { return s.pairs }

// Append adds a turn to the session's history, creating it on first use.
func (s *Store) Append(sessionID string, t Turn) error {
	e := s.entry(sessionID, true)
	e.mu.Lock()
	defer e.mu.Unlock()

	superseded := t.Role == RoleUser && e.buf.Open()
	if err := e.buf.Append(t); err != nil {
		return err
	}
	if superseded {
		s.logger.Debug("unanswered user turn superseded", "session_id", sessionID)
	}
	return nil
}

// Snapshot returns the session's history in chronological order.
// Unknown sessions yield an empty history.
func (s *Store) Snapshot(sessionID string) []Turn {
	e := s.entry(sessionID, false)
	if e == nil {
		return []Turn{}
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.buf.Turns()
}

// Len returns the number of turns stored for the session.
func (s *Store) Len(sessionID string) int {
	e := s.entry(sessionID, false)
	if e == nil {
		return 0
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.buf.Len()
}

// Restore replaces the session's history with turns, keeping the newest
// pairs that fit.
func (s *Store) Restore(sessionID string, turns []Turn) error {
	buf := NewBuffer(s.pairs)
	for _, t := range turns {
		if err := buf.Append(t); err != nil {
			return err
		}
	}

	e := s.entry(sessionID, true)
	e.mu.Lock()
	e.buf = buf
	e.mu.Unlock()
	return nil
}

// Drop forgets the session's history.
func (s *Store) Drop(sessionID string) {
	s.mu.Lock()
	delete(s.entries, sessionID)
	s.mu.Unlock()
}

// Sessions returns the number of sessions with history.
func (s *Store) Sessions() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

func (s *Store) entry(sessionID string, create bool) *entry {
	s.mu.RLock()
	e, ok := s.entries[sessionID]
	s.mu.RUnlock()
	if ok || !create {
		return e
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok = s.entries[sessionID]; ok {
		return e
	}
	e = &entry{buf: NewBuffer(s.pairs)}
	s.entries[sessionID] = e
	return e
}
