package meeting

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pion/webrtc/v3"
)

// DefaultICEServers are public STUN servers used when none are configured.
var DefaultICEServers = []string{
	"stun:stun.l.google.com:19302",
	"stun:stun1.l.google.com:19302",
}

// WebRTCConfig configures the WebRTC provider.
type WebRTCConfig struct {
	// ICEServers are STUN/TURN URLs. Nil selects DefaultICEServers; an
	// empty non-nil slice gathers host candidates only.
	ICEServers []string

	// JoinBaseURL, when set, is prefixed to the call ID to build JoinURL.
	JoinBaseURL string

	// GatherTimeout bounds ICE candidate gathering for the offer.
	GatherTimeout time.Duration

	Logger *slog.Logger
}

// call is one bot-side peer connection.
type call struct {
	pc    *webrtc.PeerConnection
	track *webrtc.TrackLocalStaticSample
}

// WebRTC hosts calls as bot-side peer connections. Each call carries one
// Opus send track for the companion's voice; the SDP offer is published in
// the handle for the participant's client to answer.
type WebRTC struct {
	config WebRTCConfig
	logger *slog.Logger

	mu    sync.Mutex
	calls map[string]*call
}

// NewWebRTC creates a WebRTC provider.
func NewWebRTC(cfg WebRTCConfig) *WebRTC {
	if cfg.ICEServers == nil {
		cfg.ICEServers = DefaultICEServers
	}
	if cfg.GatherTimeout <= 0 {
		cfg.GatherTimeout = 5 * time.Second
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &WebRTC{
		config: cfg,
		logger: cfg.Logger.With("component", "meeting.webrtc"),
		calls:  make(map[string]*call),
	}
}

// Name implements Provider.
func (w *WebRTC) Name() string { return PlatformWebRTC }

// Create opens a peer connection and returns its gathered offer.
func (w *WebRTC) Create(ctx context.Context, sessionID string) (*Handle, error) {
	var iceServers []webrtc.ICEServer
	if len(w.config.ICEServers) > 0 {
		iceServers = []webrtc.ICEServer{{URLs: w.config.ICEServers}}
	}

	pc, err := webrtc.NewPeerConnection(webrtc.Configuration{ICEServers: iceServers})
	if err != nil {
		return nil, fmt.Errorf("create peer connection: %w", err)
	}

	track, err := webrtc.NewTrackLocalStaticSample(
		webrtc.RTPCodecCapability{MimeType: webrtc.MimeTypeOpus, ClockRate: 48000, Channels: 2},
		"audio", "companion-"+sessionID,
	)
	if err != nil {
		pc.Close()
		return nil, fmt.Errorf("create audio track: %w", err)
	}
	if _, err := pc.AddTrack(track); err != nil {
		pc.Close()
		return nil, fmt.Errorf("add audio track: %w", err)
	}

	offer, err := pc.CreateOffer(nil)
	if err != nil {
		pc.Close()
		return nil, fmt.Errorf("create offer: %w", err)
	}

	gathered := webrtc.GatheringCompletePromise(pc)
	if err := pc.SetLocalDescription(offer); err != nil {
		pc.Close()
		return nil, fmt.Errorf("set local description: %w", err)
	}

	gatherCtx, cancel := context.WithTimeout(ctx, w.config.GatherTimeout)
	defer cancel()
	select {
	case <-gathered:
	case <-gatherCtx.Done():
		// Trickle the rest; the offer already holds what was gathered.
		w.logger.Debug("ice gathering incomplete", "session_id", sessionID)
	}
	if ctx.Err() != nil {
		pc.Close()
		return nil, ctx.Err()
	}

	id := uuid.NewString()
	pc.OnConnectionStateChange(func(state webrtc.PeerConnectionState) {
		w.logger.Debug("connection state", "call_id", id, "state", state.String())
	})

	w.mu.Lock()
	w.calls[id] = &call{pc: pc, track: track}
	w.mu.Unlock()

	h := &Handle{
		ID:        id,
		Platform:  PlatformWebRTC,
		Offer:     pc.LocalDescription().SDP,
		CreatedAt: time.Now(),
	}
	if w.config.JoinBaseURL != "" {
		h.JoinURL = w.config.JoinBaseURL + id
	}
	return h, nil
}

// Answer applies the participant's SDP answer to the call.
func (w *WebRTC) Answer(ctx context.Context, h Handle, sdp string) error {
	c, ok := w.lookup(h.ID)
	if !ok {
		return ErrCallNotFound
	}
	return c.pc.SetRemoteDescription(webrtc.SessionDescription{Type: webrtc.SDPTypeAnswer, SDP: sdp})
}

// Release closes the peer connection.
func (w *WebRTC) Release(ctx context.Context, h Handle) error {
	w.mu.Lock()
	c, ok := w.calls[h.ID]
	delete(w.calls, h.ID)
	w.mu.Unlock()

	if !ok {
		return nil
	}
	return c.pc.Close()
}

// Validate reports whether the peer connection is still open. Calls do not
// survive a process restart.
func (w *WebRTC) Validate(ctx context.Context, h Handle) (bool, error) {
	c, ok := w.lookup(h.ID)
	if !ok {
		return false, nil
	}
	switch c.pc.ConnectionState() {
	case webrtc.PeerConnectionStateClosed, webrtc.PeerConnectionStateFailed:
		return false, nil
	}
	return true, nil
}

// Track returns the call's outbound audio track.
func (w *WebRTC) Track(callID string) (*webrtc.TrackLocalStaticSample, bool) {
	c, ok := w.lookup(callID)
	if !ok {
		return nil, false
	}
	return c.track, true
}

// Close closes every open call.
func (w *WebRTC) Close() error {
	w.mu.Lock()
	calls := w.calls
	w.calls = make(map[string]*call)
	w.mu.Unlock()

	var first error
	for _, c := range calls {
		if err := c.pc.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

func (w *WebRTC) lookup(id string) (*call, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	c, ok := w.calls[id]
	return c, ok
}

// Verify WebRTC implements Provider and Answerer at compile time.
var (
	_ Provider = (*WebRTC)(nil)
	_ Answerer = (*WebRTC)(nil)
)
