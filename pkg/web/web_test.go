package web

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	gws "github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teslashibe/go-companion/pkg/conversation"
	"github.com/teslashibe/go-companion/pkg/hub"
	"github.com/teslashibe/go-companion/pkg/inference"
	"github.com/teslashibe/go-companion/pkg/language"
	"github.com/teslashibe/go-companion/pkg/meeting"
	"github.com/teslashibe/go-companion/pkg/metrics"
	"github.com/teslashibe/go-companion/pkg/reply"
	"github.com/teslashibe/go-companion/pkg/session"
	"github.com/teslashibe/go-companion/pkg/stt"
	"github.com/teslashibe/go-companion/pkg/tts"
	"github.com/teslashibe/go-companion/pkg/voice"
)

// keywords is a deterministic language backend.
type keywords struct{}

func (keywords) Detect(text string) (string, float64, bool) {
	if strings.Contains(strings.ToLower(text), "je suis") {
		return "fr", 0.95, true
	}
	return "en", 0.9, true
}

type fixture struct {
	server   *Server
	sessions *session.Manager
	events   *hub.Hub
	llm      *inference.Mock
	stt      *stt.Mock
}

func newFixture(t *testing.T, tweak func(*fixture), opts ...Option) *fixture {
	t.Helper()
	f := &fixture{
		llm: inference.NewMock(),
		stt: stt.NewMock(),
	}
	f.llm.ChatFunc = func(ctx context.Context, req *inference.ChatRequest) (*inference.ChatResponse, error) {
		last := req.Messages[len(req.Messages)-1].Content
		return &inference.ChatResponse{Message: inference.NewAssistantMessage("re: " + last)}, nil
	}
	if tweak != nil {
		tweak(f)
	}

	detector, err := language.New(language.WithBackend(keywords{}))
	require.NoError(t, err)
	generator, err := reply.New(f.llm)
	require.NoError(t, err)
	bridge, err := voice.New(f.stt, tts.NewMock())
	require.NoError(t, err)
	calls, err := meeting.NewBridge(meeting.NewMock())
	require.NoError(t, err)

	f.events = hub.New("events", nil)
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go f.events.Run(ctx)

	m := metrics.New("")
	f.sessions, err = session.New(session.Deps{
		Detector: detector,
		Store:    conversation.NewStore(),
		Replies:  generator,
		Voice:    bridge,
		Calls:    calls,
	}, session.WithMetrics(m), session.WithEventHandler(PublishEvents(f.events, nil)))
	require.NoError(t, err)

	f.server, err = NewServer(Deps{
		Sessions:  f.sessions,
		Languages: detector,
		Calls:     calls,
		Events:    f.events,
		Metrics:   m,
	}, opts...)
	require.NoError(t, err)
	return f
}

func (f *fixture) do(t *testing.T, method, path, user string, body any) *http.Response {
	t.Helper()
	var r io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		r = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, r)
	if body != nil {
		req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	}
	if user != "" {
		req.Header.Set("X-User-ID", user)
	}
	resp, err := f.server.App().Test(req, 5000)
	require.NoError(t, err)
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	defer resp.Body.Close()
	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}

func (f *fixture) start(t *testing.T, user string) StartResponse {
	t.Helper()
	resp := f.do(t, fiber.MethodPost, "/api/ai/start-session", user, nil)
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)
	return decode[StartResponse](t, resp)
}

func voiceBody(id, text string) VoiceMessageRequest {
	return VoiceMessageRequest{SessionID: id, Audio: base64.StdEncoding.EncodeToString([]byte(text))}
}

func TestNewServerRequiresSessions(t *testing.T) {
	_, err := NewServer(Deps{})
	assert.ErrorIs(t, err, ErrMissingDependency)
}

func TestStartSession(t *testing.T) {
	f := newFixture(t, nil)

	started := f.start(t, "u1")
	assert.NotEmpty(t, started.SessionID)
	assert.Equal(t, "en", started.Language)
	assert.NotEmpty(t, started.Greeting)
	assert.Equal(t, meeting.PlatformMock, started.Meeting.Platform)
	assert.NotEmpty(t, started.Meeting.ID)

	resp := f.do(t, fiber.MethodPost, "/api/ai/start-session", "u1", nil)
	assert.Equal(t, fiber.StatusConflict, resp.StatusCode)
	assert.Equal(t, session.KindSessionAlreadyActive, decode[ErrorResponse](t, resp).Kind)

	resp = f.do(t, fiber.MethodGet, "/api/ai/active-session", "u1", nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, started.SessionID, decode[session.Info](t, resp).SessionID)
}

func TestHeaderAuthRequired(t *testing.T) {
	f := newFixture(t, nil)
	resp := f.do(t, fiber.MethodPost, "/api/ai/start-session", "", nil)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "Unauthenticated", decode[ErrorResponse](t, resp).Kind)
}

func TestJWTAuth(t *testing.T) {
	const secret = "test-secret"
	f := newFixture(t, nil, WithJWTSecret(secret))

	token, err := IssueToken(secret, "u7", time.Minute)
	require.NoError(t, err)
	sub, err := ParseToken(token, secret)
	require.NoError(t, err)
	assert.Equal(t, "u7", sub)

	req := httptest.NewRequest(fiber.MethodPost, "/api/ai/start-session", nil)
	req.Header.Set(fiber.HeaderAuthorization, "Bearer "+token)
	resp, err := f.server.App().Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)
	info, ok := f.sessions.ActiveSession("u7")
	require.True(t, ok)
	assert.Equal(t, decode[StartResponse](t, resp).SessionID, info.SessionID)

	forged, err := IssueToken("other-secret", "u8", time.Minute)
	require.NoError(t, err)
	_, err = ParseToken(forged, secret)
	assert.ErrorIs(t, err, ErrInvalidToken)

	expired, err := IssueToken(secret, "u9", -time.Minute)
	require.NoError(t, err)
	req = httptest.NewRequest(fiber.MethodPost, "/api/ai/start-session", nil)
	req.Header.Set(fiber.HeaderAuthorization, "Bearer "+expired)
	resp, err = f.server.App().Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)

	// The development header is ignored once a secret is configured.
	resp = f.do(t, fiber.MethodPost, "/api/ai/start-session", "u10", nil)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}

func TestVoiceMessage(t *testing.T) {
	f := newFixture(t, nil)
	id := f.start(t, "u1").SessionID

	resp := f.do(t, fiber.MethodPost, "/api/ai/voice-message", "u1", voiceBody(id, "I had a rough day"))
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	result := decode[session.Result](t, resp)
	assert.Equal(t, "I had a rough day", result.Transcript)
	assert.Equal(t, "re: I had a rough day", result.ReplyText)
	assert.NotEmpty(t, result.ReplyAudio)
	assert.Equal(t, "en", result.Language)
	assert.False(t, result.Crisis)

	req := httptest.NewRequest(fiber.MethodPost, "/api/ai/voice-message?session_id="+id, strings.NewReader("raw audio body"))
	req.Header.Set(fiber.HeaderContentType, "audio/wav")
	req.Header.Set("X-User-ID", "u1")
	resp, err := f.server.App().Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, "raw audio body", decode[session.Result](t, resp).Transcript)

	resp = f.do(t, fiber.MethodGet, "/api/ai/sessions/"+id+"/messages", "u1", nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	msgs := decode[MessagesResponse](t, resp)
	require.Len(t, msgs.Messages, 4)
	assert.Equal(t, conversation.RoleUser, msgs.Messages[0].Role)
	assert.Equal(t, "re: raw audio body", msgs.Messages[3].Text)
}

func TestVoiceMessageRejectsBadInput(t *testing.T) {
	f := newFixture(t, nil)
	id := f.start(t, "u1").SessionID

	tests := []struct {
		name string
		body any
		want int
	}{
		{"bad base64", VoiceMessageRequest{SessionID: id, Audio: "%%%"}, fiber.StatusBadRequest},
		{"empty audio", VoiceMessageRequest{SessionID: id}, fiber.StatusBadRequest},
		{"no session", voiceBody("", "hi"), fiber.StatusBadRequest},
		{"unknown session", voiceBody("nope", "hi"), fiber.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := f.do(t, fiber.MethodPost, "/api/ai/voice-message", "u1", tt.body)
			assert.Equal(t, tt.want, resp.StatusCode)
		})
	}

	resp := f.do(t, fiber.MethodPost, "/api/ai/voice-message", "u2", voiceBody(id, "hi"))
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode, "other users' sessions are hidden")

	history, err := f.sessions.History(id)
	require.NoError(t, err)
	assert.Empty(t, history)
}

func TestVoiceMessagePipelineFailures(t *testing.T) {
	t.Run("transcription", func(t *testing.T) {
		f := newFixture(t, func(f *fixture) { f.stt = stt.WithError(stt.ErrNoSpeech) })
		id := f.start(t, "u1").SessionID

		resp := f.do(t, fiber.MethodPost, "/api/ai/voice-message", "u1", voiceBody(id, "mumble"))
		assert.Equal(t, fiber.StatusBadGateway, resp.StatusCode)
		body := decode[ErrorResponse](t, resp)
		assert.Equal(t, session.KindTranscriptionFailed, body.Kind)
		assert.True(t, body.Retry)
		assert.Equal(t, repeatMessage, body.Error)
	})

	t.Run("generation", func(t *testing.T) {
		f := newFixture(t, func(f *fixture) { f.llm = inference.WithError(errors.New("upstream down")) })
		id := f.start(t, "u1").SessionID

		resp := f.do(t, fiber.MethodPost, "/api/ai/voice-message", "u1", voiceBody(id, "hello"))
		assert.Equal(t, fiber.StatusBadGateway, resp.StatusCode)
		body := decode[ErrorResponse](t, resp)
		assert.Equal(t, session.KindGenerationUnavailable, body.Kind)
		assert.False(t, body.Retry)
		assert.Equal(t, 1, f.llm.CallCount("Chat"), "no retries")
	})
}

func TestEndSession(t *testing.T) {
	f := newFixture(t, nil)
	id := f.start(t, "u1").SessionID

	resp := f.do(t, fiber.MethodPost, "/api/ai/end-session", "u2", EndSessionRequest{SessionID: id})
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)

	for range 2 {
		resp = f.do(t, fiber.MethodPost, "/api/ai/end-session", "u1", EndSessionRequest{SessionID: id})
		assert.Equal(t, fiber.StatusNoContent, resp.StatusCode)
	}

	resp = f.do(t, fiber.MethodPost, "/api/ai/voice-message", "u1", voiceBody(id, "still there?"))
	assert.Equal(t, fiber.StatusGone, resp.StatusCode)

	resp = f.do(t, fiber.MethodGet, "/api/ai/sessions/"+id, "u1", nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	info := decode[session.Info](t, resp)
	assert.Equal(t, session.StateEnded, info.State)
	assert.Equal(t, session.ReasonUser, info.EndReason)

	resp = f.do(t, fiber.MethodPost, "/api/ai/end-session", "u1", fiber.Map{})
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

	// A new session can start once the old one ended.
	f.start(t, "u1")
}

func TestSupportedLanguagesAndHealth(t *testing.T) {
	f := newFixture(t, nil)

	resp := f.do(t, fiber.MethodGet, "/api/ai/supported-languages", "u1", nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	langs := decode[LanguagesResponse](t, resp)
	assert.Equal(t, "en", langs.Default)
	assert.Equal(t, meeting.PlatformMock, langs.Platform)
	assert.Len(t, langs.Languages, len(language.DefaultSupported()))

	f.start(t, "u1")
	resp = f.do(t, fiber.MethodGet, "/healthz", "", nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	health := decode[map[string]any](t, resp)
	assert.Equal(t, "ok", health["status"])
	assert.Equal(t, map[string]any{"active": 1.0}, health["sessions"])

	resp = f.do(t, fiber.MethodGet, "/metrics", "", nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(data), `companion_sessions_open{state="active"} 1`)
}

func TestAnswerUnsupportedPlatform(t *testing.T) {
	f := newFixture(t, nil)
	id := f.start(t, "u1").SessionID

	resp := f.do(t, fiber.MethodPost, "/api/ai/sessions/"+id+"/answer", "u1", AnswerRequest{SDP: "v=0"})
	assert.Equal(t, fiber.StatusNotImplemented, resp.StatusCode)
}

func TestDescribe(t *testing.T) {
	tests := []struct {
		err    error
		status int
		kind   string
	}{
		{session.ErrSessionAlreadyActive, fiber.StatusConflict, session.KindSessionAlreadyActive},
		{session.ErrCapabilityDenied, fiber.StatusForbidden, session.KindCapabilityDenied},
		{session.ErrSessionClosed, fiber.StatusGone, session.KindSessionClosed},
		{meeting.ErrMeetingCreateFailed, fiber.StatusBadGateway, session.KindMeetingCreateFailed},
		{reply.ErrGenerationTimeout, fiber.StatusGatewayTimeout, session.KindGenerationTimeout},
		{voice.ErrSynthesisTimeout, fiber.StatusGatewayTimeout, session.KindSynthesisTimeout},
		{voice.ErrSynthesisFailed, fiber.StatusBadGateway, session.KindSynthesisFailed},
		{errors.Join(voice.ErrTranscriptionFailed, voice.ErrAudioTooLarge), fiber.StatusBadRequest, KindBadRequest},
		{errors.New("boom"), fiber.StatusInternalServerError, session.KindInternal},
	}
	for _, tt := range tests {
		status, resp := describe(tt.err)
		assert.Equal(t, tt.status, status, tt.err.Error())
		assert.Equal(t, tt.kind, resp.Kind, tt.err.Error())
	}
}

// listen serves the app on a random local port.
func listen(t *testing.T, s *Server) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	go s.App().Listener(ln)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		s.Shutdown(ctx)
	})
	return ln.Addr().String()
}

func dial(t *testing.T, addr, path, user string) *gws.Conn {
	t.Helper()
	conn, _, err := gws.DefaultDialer.Dial("ws://"+addr+path, http.Header{"X-User-ID": {user}})
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	return conn
}

func TestSessionWebsocket(t *testing.T) {
	f := newFixture(t, nil)
	id := f.start(t, "u1").SessionID
	addr := listen(t, f.server)

	conn := dial(t, addr, "/ws/sessions/"+id, "u1")

	require.NoError(t, conn.WriteMessage(gws.BinaryMessage, []byte("je suis fatigué")))
	var frame Frame
	require.NoError(t, conn.ReadJSON(&frame))
	require.Equal(t, FrameReply, frame.Type)
	assert.Equal(t, "je suis fatigué", frame.Result.Transcript)
	assert.Equal(t, "fr", frame.Result.Language)

	require.NoError(t, conn.WriteMessage(gws.BinaryMessage, nil))
	frame = Frame{}
	require.NoError(t, conn.ReadJSON(&frame))
	require.Equal(t, FrameError, frame.Type)
	assert.True(t, frame.Error.Retry)

	require.NoError(t, conn.WriteMessage(gws.TextMessage, []byte(`{"type":"end"}`)))
	frame = Frame{}
	require.NoError(t, conn.ReadJSON(&frame))
	assert.Equal(t, FrameEnded, frame.Type)

	info, err := f.sessions.Info(id)
	require.NoError(t, err)
	assert.Equal(t, session.StateEnded, info.State)
}

func TestSessionWebsocketHidesOtherUsers(t *testing.T) {
	f := newFixture(t, nil)
	id := f.start(t, "u1").SessionID
	addr := listen(t, f.server)

	conn := dial(t, addr, "/ws/sessions/"+id, "u2")
	var frame Frame
	require.NoError(t, conn.ReadJSON(&frame))
	require.Equal(t, FrameError, frame.Type)
	assert.Equal(t, session.KindSessionNotFound, frame.Error.Kind)
}

func TestEventsWebsocket(t *testing.T) {
	f := newFixture(t, nil)
	addr := listen(t, f.server)

	mine := dial(t, addr, "/ws/events", "u1")
	dial(t, addr, "/ws/events", "u2")
	require.Eventually(t, func() bool { return f.events.ClientCount() == 2 }, time.Second, 10*time.Millisecond)

	id := f.start(t, "u1").SessionID

	var event session.Event
	require.NoError(t, mine.ReadJSON(&event))
	assert.Equal(t, session.EventStarted, event.Type)
	assert.Equal(t, id, event.SessionID)
	assert.Equal(t, "u1", event.UserID)
}

type brokenPeer struct{ writes int }

func (b *brokenPeer) WriteJSON(interface{}) error {
	b.writes++
	return errors.New("broken pipe")
}

func TestFrameWriteFailuresAreLogged(t *testing.T) {
	var logs bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&logs, &slog.HandlerOptions{Level: slog.LevelDebug}))
	peer := &brokenPeer{}

	assert.Error(t, send(peer, logger, Frame{Type: FrameEnded}))
	assert.Error(t, writeError(peer, logger, session.ErrSessionClosed))
	assert.Equal(t, 2, peer.writes)

	lines := strings.Split(strings.TrimSpace(logs.String()), "\n")
	require.Len(t, lines, 2)
	var first map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &first))
	assert.Equal(t, "DEBUG", first["level"])
	assert.Equal(t, "websocket write failed", first["msg"])
	assert.Equal(t, FrameEnded, first["frame"])
	assert.Equal(t, "broken pipe", first["error"])
	assert.Contains(t, lines[1], `"frame":"error"`)
}
