package session

import (
	"context"
	"fmt"
	"sort"

	"github.com/teslashibe/go-companion/pkg/checkpoint"
	"github.com/teslashibe/go-companion/pkg/meeting"
)

// Restore reloads checkpointed sessions after a restart. Open sessions
// whose call still validates come back exactly as saved; the rest are
// marked Ended and their checkpoints deleted. When two snapshots claim the
// same user, the most recently updated one wins.
func (m *Manager) Restore(ctx context.Context) (RestoreReport, error) {
	var report RestoreReport

	snaps, err := m.config.Checkpoint.LoadAll(ctx)
	if err != nil {
		return report, fmt.Errorf("session: load checkpoints: %w", err)
	}
	sort.Slice(snaps, func(i, j int) bool {
		return snaps[i].UpdatedAt.After(snaps[j].UpdatedAt)
	})

	for _, snap := range snaps {
		if _, err := m.lookup(snap.SessionID); err == nil {
			continue
		}
		if m.restoreOne(ctx, snap) {
			report.Restored = append(report.Restored, snap.SessionID)
		} else {
			report.Ended = append(report.Ended, snap.SessionID)
		}
	}

	if len(snaps) > 0 {
		m.logger.Info("sessions restored", "restored", len(report.Restored), "ended", len(report.Ended))
	}
	return report, nil
}

func (m *Manager) restoreOne(ctx context.Context, snap checkpoint.Snapshot) bool {
	s := &session{
		id:           snap.SessionID,
		userID:       snap.UserID,
		lane:         newLane(),
		state:        State(snap.State),
		language:     snap.Language,
		call:         snap.Call,
		createdAt:    snap.CreatedAt,
		lastActivity: snap.LastActivityAt,
	}
	if s.language == "" {
		s.language = m.deps.Detector.Default()
	}
	if err := m.deps.Store.Restore(s.id, snap.History); err != nil {
		m.logger.Warn("checkpoint history rejected", "session_id", s.id, "error", err)
	}

	live := m.validate(ctx, snap)
	if live && m.claim(s) {
		m.metrics.SessionRestored(string(s.state))
		m.logger.Debug("session restored", "session_id", s.id, "state", s.state)
		return true
	}

	// A live call that lost the user slot to a newer session is released.
	if live {
		m.deps.Calls.ReleaseCall(ctx, snap.Call)
	}

	s.state = StateEnded
	s.closing = true
	s.call = meeting.Handle{}
	s.endedAt = m.now()
	s.endReason = ReasonInvalidCall

	m.mu.Lock()
	m.sessions[s.id] = s
	m.mu.Unlock()
	m.forget(ctx, s)

	m.emit(Event{Type: EventEnded, SessionID: s.id, UserID: s.userID, State: StateEnded, Reason: ReasonInvalidCall})
	m.logger.Info("checkpointed session ended", "session_id", s.id, "state", snap.State)
	return false
}

// validate reports whether snap is an open session with a call that still
// exists.
func (m *Manager) validate(ctx context.Context, snap checkpoint.Snapshot) bool {
	state := State(snap.State)
	if state != StateActive && state != StateIdle {
		return false
	}
	if snap.Call.IsZero() {
		return false
	}
	ok, err := m.deps.Calls.ValidateCall(ctx, snap.Call)
	if err != nil {
		m.logger.Warn("call validation failed", "session_id", snap.SessionID, "call_id", snap.Call.ID, "error", err)
		return false
	}
	return ok
}

// claim inserts s and indexes its user unless the user already holds an
// open session.
func (m *Manager) claim(s *session) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if id, ok := m.byUser[s.userID]; ok {
		if cur := m.sessions[id]; cur != nil && cur.info().State.Open() {
			return false
		}
	}
	m.sessions[s.id] = s
	m.byUser[s.userID] = s.id
	return true
}
