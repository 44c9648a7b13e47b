package session

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/teslashibe/go-companion/pkg/checkpoint"
	"github.com/teslashibe/go-companion/pkg/conversation"
	"github.com/teslashibe/go-companion/pkg/language"
	"github.com/teslashibe/go-companion/pkg/meeting"
	"github.com/teslashibe/go-companion/pkg/metrics"
	"github.com/teslashibe/go-companion/pkg/reply"
	"github.com/teslashibe/go-companion/pkg/voice"
)

// Detector identifies the language of a transcript.
type Detector interface {
	Detect(text string) language.Detection
	Default() string
	Greeting(code string) string
}

// Replier generates assistant replies.
type Replier interface {
	Generate(ctx context.Context, req reply.Request) (string, error)
}

// Voice converts between speech and text.
type Voice interface {
	Transcribe(ctx context.Context, audio []byte, hint string) (string, error)
	Synthesize(ctx context.Context, text, language string) ([]byte, error)
}

// Calls hosts the external call of each session.
type Calls interface {
	CreateCall(ctx context.Context, sessionID string) (meeting.Handle, error)
	ReleaseCall(ctx context.Context, h meeting.Handle)
	ValidateCall(ctx context.Context, h meeting.Handle) (bool, error)
}

// Deps are the pipeline components a Manager sequences.
type Deps struct {
	Detector Detector
	Store    *conversation.Store
	Replies  Replier
	Voice    Voice
	Calls    Calls
}

func (d Deps) validate() error {
	switch {
	case d.Detector == nil:
		return fmt.Errorf("%w: language detector", ErrMissingDependency)
	case d.Store == nil:
		return fmt.Errorf("%w: conversation store", ErrMissingDependency)
	case d.Replies == nil:
		return fmt.Errorf("%w: reply generator", ErrMissingDependency)
	case d.Voice == nil:
		return fmt.Errorf("%w: voice bridge", ErrMissingDependency)
	case d.Calls == nil:
		return fmt.Errorf("%w: meeting bridge", ErrMissingDependency)
	}
	return nil
}

// session is the arena record. Fields below mu are guarded by it; mutations
// additionally happen inside the lane.
type session struct {
	id     string
	userID string
	lane   lane

	// persist orders checkpoint writes against the final delete.
	persist sync.Mutex

	mu           sync.Mutex
	state        State
	closing      bool
	language     string
	call         meeting.Handle
	createdAt    time.Time
	lastActivity time.Time
	endedAt      time.Time
	endReason    string
}

func (s *session) closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closing || s.state == StateEnded
}

func (s *session) infoLocked() Info {
	return Info{
		SessionID:      s.id,
		UserID:         s.userID,
		Language:       s.language,
		State:          s.state,
		Call:           s.call,
		CreatedAt:      s.createdAt,
		LastActivityAt: s.lastActivity,
		EndedAt:        s.endedAt,
		EndReason:      s.endReason,
	}
}

func (s *session) info() Info {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.infoLocked()
}

// Manager owns the session arena.
type Manager struct {
	config    *Config
	deps      Deps
	metrics   *metrics.Metrics
	collector *voice.Collector
	logger    *slog.Logger

	// mu guards the arena and the user index only; it is never held across
	// an external call.
	mu       sync.RWMutex
	sessions map[string]*session
	byUser   map[string]string
}

// New creates a Manager.
func New(deps Deps, opts ...Option) (*Manager, error) {
	if err := deps.validate(); err != nil {
		return nil, err
	}
	cfg := DefaultConfig()
	cfg.Apply(opts...)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &Manager{
		config:    cfg,
		deps:      deps,
		metrics:   cfg.Metrics,
		collector: voice.NewCollector(),
		logger:    cfg.Logger.With("component", "session.manager"),
		sessions:  make(map[string]*session),
		byUser:    make(map[string]string),
	}, nil
}

func (m *Manager) now() time.Time { return m.config.Now() }

// Start opens a session for userID: it checks the voice capability,
// reserves the user's single slot, and allocates the external call. A call
// that cannot be created aborts the start and leaves nothing behind.
func (m *Manager) Start(ctx context.Context, userID string) (*Started, error) {
	if userID == "" {
		return nil, ErrNoUser
	}
	if err := m.checkCapability(ctx, userID); err != nil {
		m.metrics.StartRejectedWith(Kind(err))
		return nil, err
	}

	now := m.now()
	s := &session{
		id:           uuid.NewString(),
		userID:       userID,
		lane:         newLane(),
		state:        StateCreated,
		language:     m.deps.Detector.Default(),
		createdAt:    now,
		lastActivity: now,
	}
	s.lane.tryAcquire()
	defer s.lane.release()

	if err := m.reserve(s); err != nil {
		m.metrics.StartRejectedWith(Kind(err))
		return nil, err
	}

	call, err := m.deps.Calls.CreateCall(ctx, s.id)
	if err != nil {
		m.unreserve(s)
		m.metrics.StartRejectedWith(Kind(err))
		m.logger.Warn("session start aborted", "session_id", s.id, "user_id", userID, "error", err)
		return nil, err
	}

	s.mu.Lock()
	s.state = StateActive
	s.call = call
	info := s.infoLocked()
	s.mu.Unlock()

	m.save(s)
	m.metrics.SessionStarted(string(StateActive))
	m.emit(Event{Type: EventStarted, SessionID: s.id, UserID: userID, State: StateActive, Language: info.Language})
	m.logger.Info("session started",
		"session_id", s.id,
		"user_id", userID,
		"platform", call.Platform,
		"call_id", call.ID,
	)

	return &Started{Info: info, Greeting: m.deps.Detector.Greeting(info.Language)}, nil
}

func (m *Manager) checkCapability(ctx context.Context, userID string) error {
	if m.config.Billing == nil {
		return nil
	}
	ok, err := m.config.Billing.VoiceEnabled(ctx, userID)
	if err != nil {
		m.logger.Warn("capability check failed, denying voice", "user_id", userID, "error", err)
		return fmt.Errorf("%w: %w", ErrCapabilityDenied, err)
	}
	if !ok {
		return ErrCapabilityDenied
	}
	return nil
}

func (m *Manager) reserve(s *session) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if id, ok := m.byUser[s.userID]; ok {
		if cur := m.sessions[id]; cur != nil && cur.info().State.Open() {
			return ErrSessionAlreadyActive
		}
	}
	m.sessions[s.id] = s
	m.byUser[s.userID] = s.id
	return nil
}

func (m *Manager) unreserve(s *session) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, s.id)
	if m.byUser[s.userID] == s.id {
		delete(m.byUser, s.userID)
	}
}

func (m *Manager) lookup(sessionID string) (*session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[sessionID]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return s, nil
}

// ProcessUtterance runs one pipeline cycle for the session. Cycles on the
// same session queue behind each other; cycles on different sessions run in
// parallel.
func (m *Manager) ProcessUtterance(ctx context.Context, sessionID string, audio []byte) (*Result, error) {
	s, err := m.lookup(sessionID)
	if err != nil {
		return nil, err
	}
	if s.closed() {
		m.metrics.Utterance(KindSessionClosed)
		return nil, ErrSessionClosed
	}

	if err := s.lane.acquire(ctx); err != nil {
		return nil, err
	}
	defer s.lane.release()

	if s.closed() {
		m.metrics.Utterance(KindSessionClosed)
		return nil, ErrSessionClosed
	}
	m.resume(s)

	res, err := m.cycle(ctx, s, audio)
	if err != nil {
		kind := Kind(err)
		m.metrics.Utterance(kind)
		m.logger.Warn("utterance failed", "session_id", s.id, "kind", kind, "error", err)
		m.emit(Event{
			Type:      EventUtteranceFailed,
			SessionID: s.id,
			UserID:    s.userID,
			State:     s.info().State,
			Error:     kind,
		})
		return nil, err
	}

	m.metrics.Utterance("ok")
	m.emit(Event{
		Type:      EventUtterance,
		SessionID: s.id,
		UserID:    s.userID,
		State:     StateActive,
		Language:  res.Language,
		Crisis:    res.Crisis,
		Timings:   &res.Timings,
	})
	return res, nil
}

// resume moves an Idle session back to Active. The call handle is kept.
func (m *Manager) resume(s *session) {
	s.mu.Lock()
	resumed := s.state == StateIdle
	if resumed {
		s.state = StateActive
	}
	s.mu.Unlock()
	if !resumed {
		return
	}

	m.metrics.SessionMoved(string(StateIdle), string(StateActive))
	m.save(s)
	m.emit(Event{Type: EventResumed, SessionID: s.id, UserID: s.userID, State: StateActive})
	m.logger.Debug("session resumed", "session_id", s.id)
}

func (m *Manager) cycle(ctx context.Context, s *session, audio []byte) (*Result, error) {
	timer := voice.NewTimer()

	var hint string
	if m.config.LanguageHint {
		hint = s.info().Language
	}
	transcript, err := m.deps.Voice.Transcribe(ctx, audio, hint)
	m.metrics.Stage(string(voice.StageTranscription), timer.Mark(voice.StageTranscription))
	if err != nil {
		return nil, err
	}

	det := m.deps.Detector.Detect(transcript)
	m.metrics.Stage(string(voice.StageDetection), timer.Mark(voice.StageDetection))
	m.metrics.Language(det.Code, det.Fallback)

	history := promptHistory(m.deps.Store.Snapshot(s.id))
	if err := m.appendTurn(s, conversation.UserTurn(transcript, m.now()), det.Code); err != nil {
		return nil, err
	}
	defer m.save(s)

	text, err := m.deps.Replies.Generate(ctx, reply.Request{
		UserID:    s.userID,
		History:   history,
		Utterance: transcript,
		Language:  det.Code,
	})
	m.metrics.Stage(string(voice.StageGeneration), timer.Mark(voice.StageGeneration))
	if err != nil {
		return nil, err
	}

	if err := m.appendTurn(s, conversation.AssistantTurn(text, m.now()), ""); err != nil {
		return nil, err
	}

	speech, err := m.deps.Voice.Synthesize(ctx, text, det.Code)
	m.metrics.Stage(string(voice.StageSynthesis), timer.Mark(voice.StageSynthesis))
	if err != nil {
		return nil, err
	}

	timings := timer.Done()
	s.mu.Lock()
	s.lastActivity = m.now()
	s.mu.Unlock()

	m.collector.Record(timings)
	m.metrics.Cycle(timings.Total)
	m.logger.Debug("utterance processed",
		"session_id", s.id,
		"language", det.Code,
		"fallback", det.Fallback,
		"latency", timings.FormatLatency(),
	)

	return &Result{
		SessionID:  s.id,
		Transcript: transcript,
		ReplyText:  text,
		ReplyAudio: speech,
		Language:   det.Code,
		Detection:  det,
		Crisis:     reply.IsCrisis(transcript),
		Timings:    timings,
	}, nil
}

// appendTurn adds a turn unless the session was force-ended meanwhile.
func (m *Manager) appendTurn(s *session, t conversation.Turn, lang string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateEnded {
		return ErrSessionClosed
	}
	if err := m.deps.Store.Append(s.id, t); err != nil {
		return fmt.Errorf("session: append %s turn: %w", t.Role, err)
	}
	if lang != "" {
		s.language = lang
	}
	return nil
}

// End closes the session. New and queued utterances fail with
// ErrSessionClosed at once; an in-flight cycle gets DrainGrace to finish
// before the session is ended regardless. Ending an Ended session is a
// no-op.
func (m *Manager) End(ctx context.Context, sessionID string) error {
	s, err := m.lookup(sessionID)
	if err != nil {
		return err
	}

	s.mu.Lock()
	if s.state == StateEnded {
		s.mu.Unlock()
		return nil
	}
	s.closing = true
	s.mu.Unlock()

	graceCtx, cancel := context.WithTimeout(ctx, m.config.DrainGrace)
	defer cancel()
	if err := s.lane.acquire(graceCtx); err != nil {
		m.logger.Warn("in-flight cycle did not drain, forcing end", "session_id", s.id, "grace", m.config.DrainGrace)
	} else {
		defer s.lane.release()
	}

	m.finish(ctx, s, ReasonUser)
	return nil
}

// finish moves s to Ended and tears down its call, user slot and
// checkpoint. It reports false if s had already ended.
func (m *Manager) finish(ctx context.Context, s *session, reason string) bool {
	s.mu.Lock()
	if s.state == StateEnded {
		s.mu.Unlock()
		return false
	}
	from := s.state
	call := s.call
	s.state = StateEnded
	s.closing = true
	s.call = meeting.Handle{}
	s.endedAt = m.now()
	s.endReason = reason
	s.mu.Unlock()

	m.mu.Lock()
	if m.byUser[s.userID] == s.id {
		delete(m.byUser, s.userID)
	}
	m.mu.Unlock()

	if !call.IsZero() {
		m.deps.Calls.ReleaseCall(ctx, call)
	}
	m.forget(ctx, s)

	m.metrics.SessionEnded(string(from), reason)
	m.emit(Event{Type: EventEnded, SessionID: s.id, UserID: s.userID, State: StateEnded, Reason: reason})
	m.logger.Info("session ended", "session_id", s.id, "user_id", s.userID, "reason", reason)
	return true
}

// SweepIdle parks Active sessions past IdleTimeout, ends open sessions past
// HardTimeout, and purges ended sessions older than Retention. Sessions with
// a cycle in progress are not idle and are skipped.
func (m *Manager) SweepIdle(ctx context.Context) SweepReport {
	var report SweepReport
	now := m.now()

	for _, s := range m.list() {
		info := s.info()
		if info.State == StateEnded {
			if now.Sub(info.EndedAt) >= m.config.Retention {
				m.purge(s)
				report.Purged = append(report.Purged, s.id)
			}
			continue
		}

		if !s.lane.tryAcquire() {
			report.Skipped++
			continue
		}
		switch m.sweepOne(ctx, s, now) {
		case StateIdle:
			report.Idled = append(report.Idled, s.id)
		case StateEnded:
			report.Ended = append(report.Ended, s.id)
		}
		s.lane.release()
	}

	if !report.Empty() {
		m.logger.Info("idle sweep",
			"idled", len(report.Idled),
			"ended", len(report.Ended),
			"purged", len(report.Purged),
			"skipped", report.Skipped,
		)
	}
	return report
}

// sweepOne applies the timeouts to one session whose lane is held and
// returns the state it moved to, or "".
func (m *Manager) sweepOne(ctx context.Context, s *session, now time.Time) State {
	s.mu.Lock()
	state := s.state
	if s.closing || (state != StateActive && state != StateIdle) {
		s.mu.Unlock()
		return ""
	}
	inactive := now.Sub(s.lastActivity)

	switch {
	case inactive > m.config.HardTimeout:
		s.mu.Unlock()
		if m.finish(ctx, s, ReasonHardTimeout) {
			m.metrics.Sweep(string(state) + "_ended")
			return StateEnded
		}
		return ""

	case state == StateActive && inactive > m.config.IdleTimeout:
		s.state = StateIdle
		s.mu.Unlock()

		m.metrics.SessionMoved(string(StateActive), string(StateIdle))
		m.metrics.Sweep("active_idle")
		m.save(s)
		m.emit(Event{Type: EventIdle, SessionID: s.id, UserID: s.userID, State: StateIdle})
		m.logger.Debug("session idle", "session_id", s.id, "inactive", inactive)
		return StateIdle
	}

	s.mu.Unlock()
	return ""
}

func (m *Manager) list() []*session {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*session, 0, len(m.sessions))
	for _, s := range m.sessions {
		out = append(out, s)
	}
	return out
}

func (m *Manager) purge(s *session) {
	m.mu.Lock()
	delete(m.sessions, s.id)
	if m.byUser[s.userID] == s.id {
		delete(m.byUser, s.userID)
	}
	m.mu.Unlock()
	m.deps.Store.Drop(s.id)
}

// Info returns a view of the session, including ended sessions that have
// not been purged yet.
func (m *Manager) Info(sessionID string) (Info, error) {
	s, err := m.lookup(sessionID)
	if err != nil {
		return Info{}, err
	}
	info := s.info()
	info.Turns = m.deps.Store.Len(s.id)
	return info, nil
}

// History returns the session's bounded history in chronological order.
func (m *Manager) History(sessionID string) ([]conversation.Turn, error) {
	s, err := m.lookup(sessionID)
	if err != nil {
		return nil, err
	}
	return m.deps.Store.Snapshot(s.id), nil
}

// ActiveSession returns the user's open session, if any.
func (m *Manager) ActiveSession(userID string) (Info, bool) {
	m.mu.RLock()
	id, ok := m.byUser[userID]
	m.mu.RUnlock()
	if !ok {
		return Info{}, false
	}
	info, err := m.Info(id)
	if err != nil || !info.State.Open() {
		return Info{}, false
	}
	return info, true
}

// Stats summarizes the arena and recent cycle latencies.
func (m *Manager) Stats() Stats {
	stats := Stats{
		Sessions: make(map[State]int),
		Cycles:   m.collector.Count(),
		Average:  m.collector.Average(),
	}
	for _, s := range m.list() {
		stats.Sessions[s.info().State]++
	}
	return stats
}

// save checkpoints s. Failures are logged; persistence never fails a call.
func (m *Manager) save(s *session) {
	s.persist.Lock()
	defer s.persist.Unlock()

	snap := m.snapshot(s)
	if snap.State == string(StateEnded) {
		return
	}
	if err := m.config.Checkpoint.Save(context.Background(), snap); err != nil {
		m.logger.Warn("checkpoint save failed", "session_id", s.id, "error", err)
	}
}

func (m *Manager) forget(ctx context.Context, s *session) {
	s.persist.Lock()
	defer s.persist.Unlock()
	if err := m.config.Checkpoint.Delete(context.WithoutCancel(ctx), s.id); err != nil {
		m.logger.Warn("checkpoint delete failed", "session_id", s.id, "error", err)
	}
}

func (m *Manager) snapshot(s *session) checkpoint.Snapshot {
	s.mu.Lock()
	snap := checkpoint.Snapshot{
		SessionID:      s.id,
		UserID:         s.userID,
		Language:       s.language,
		State:          string(s.state),
		Call:           s.call,
		CreatedAt:      s.createdAt,
		LastActivityAt: s.lastActivity,
	}
	s.mu.Unlock()

	snap.History = m.deps.Store.Snapshot(s.id)
	snap.UpdatedAt = m.now()
	return snap
}
