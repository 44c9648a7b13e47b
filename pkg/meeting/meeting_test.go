package meeting_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"

	"github.com/teslashibe/go-companion/pkg/meeting"
)

func TestBridgeCreateCall(t *testing.T) {
	ctx := context.Background()

	t.Run("success", func(t *testing.T) {
		b, err := meeting.NewBridge(meeting.NewMock())
		require.NoError(t, err)

		h, err := b.CreateCall(ctx, "s1")
		require.NoError(t, err)
		assert.NotEmpty(t, h.ID)
		assert.Equal(t, meeting.PlatformMock, h.Platform)
		assert.False(t, h.CreatedAt.IsZero())
	})

	t.Run("provider failure is wrapped", func(t *testing.T) {
		boom := errors.New("quota exceeded")
		mock := meeting.NewMock()
		mock.CreateFunc = func(context.Context, string) (*meeting.Handle, error) { return nil, boom }
		b, _ := meeting.NewBridge(mock)

		_, err := b.CreateCall(ctx, "s1")
		assert.ErrorIs(t, err, meeting.ErrMeetingCreateFailed)
		assert.ErrorIs(t, err, boom)
	})

	t.Run("empty handle is a failure", func(t *testing.T) {
		mock := meeting.NewMock()
		mock.CreateFunc = func(context.Context, string) (*meeting.Handle, error) { return &meeting.Handle{}, nil }
		b, _ := meeting.NewBridge(mock)

		_, err := b.CreateCall(ctx, "s1")
		assert.ErrorIs(t, err, meeting.ErrMeetingCreateFailed)
	})

	t.Run("requires provider", func(t *testing.T) {
		_, err := meeting.NewBridge(nil)
		assert.ErrorIs(t, err, meeting.ErrNoProvider)
	})
}

func TestBridgeReleaseCall(t *testing.T) {
	ctx := context.Background()

	t.Run("idempotent", func(t *testing.T) {
		mock := meeting.NewMock()
		b, _ := meeting.NewBridge(mock)
		h, err := b.CreateCall(ctx, "s1")
		require.NoError(t, err)

		b.ReleaseCall(ctx, h)
		b.ReleaseCall(ctx, h)

		assert.Equal(t, 1, mock.CallCount("Release"))
		assert.False(t, mock.Live(h.ID))
	})

	t.Run("released ids are forgotten after the memory window", func(t *testing.T) {
		mock := meeting.NewMock()
		b, _ := meeting.NewBridge(mock, meeting.WithReleaseMemory(10*time.Millisecond))
		first, _ := b.CreateCall(ctx, "s1")
		second, _ := b.CreateCall(ctx, "s2")

		b.ReleaseCall(ctx, first)
		b.ReleaseCall(ctx, first)
		assert.Equal(t, 1, mock.CallCount("Release"), "repeat inside the window is suppressed")

		time.Sleep(30 * time.Millisecond)
		b.ReleaseCall(ctx, second)
		b.ReleaseCall(ctx, first)
		assert.Equal(t, 3, mock.CallCount("Release"), "expired id reaches the provider again")
	})

	t.Run("provider failure is swallowed", func(t *testing.T) {
		mock := meeting.NewMock()
		mock.ReleaseFunc = func(context.Context, meeting.Handle) error { return errors.New("stuck") }
		b, _ := meeting.NewBridge(mock)
		h, _ := b.CreateCall(ctx, "s1")

		assert.NotPanics(t, func() { b.ReleaseCall(ctx, h) })
		assert.Equal(t, 1, mock.CallCount("Release"))
	})

	t.Run("cancelled context still releases", func(t *testing.T) {
		mock := meeting.NewMock()
		var sawCancelled bool
		mock.ReleaseFunc = func(ctx context.Context, _ meeting.Handle) error {
			sawCancelled = ctx.Err() != nil
			return nil
		}
		b, _ := meeting.NewBridge(mock)
		h, _ := b.CreateCall(ctx, "s1")

		cctx, cancel := context.WithCancel(ctx)
		cancel()
		b.ReleaseCall(cctx, h)
		assert.False(t, sawCancelled)
	})

	t.Run("zero handle is a no-op", func(t *testing.T) {
		mock := meeting.NewMock()
		b, _ := meeting.NewBridge(mock)
		b.ReleaseCall(ctx, meeting.Handle{})
		assert.Zero(t, mock.CallCount("Release"))
	})
}

func TestBridgeValidateCall(t *testing.T) {
	ctx := context.Background()
	mock := meeting.NewMock()
	b, _ := meeting.NewBridge(mock)
	h, _ := b.CreateCall(ctx, "s1")

	ok, err := b.ValidateCall(ctx, h)
	require.NoError(t, err)
	assert.True(t, ok)

	foreign := h
	foreign.Platform = meeting.PlatformZoom
	ok, err = b.ValidateCall(ctx, foreign)
	require.NoError(t, err)
	assert.False(t, ok)

	b.ReleaseCall(ctx, h)
	ok, _ = b.ValidateCall(ctx, h)
	assert.False(t, ok)

	assert.ErrorIs(t, b.Answer(ctx, h, "v=0"), meeting.ErrAnswerUnsupported)
}

func TestWebRTC(t *testing.T) {
	ctx := context.Background()
	w := meeting.NewWebRTC(meeting.WebRTCConfig{ICEServers: []string{}, JoinBaseURL: "https://talk.example.test/"})
	defer w.Close()

	h, err := w.Create(ctx, "s1")
	require.NoError(t, err)

	assert.Equal(t, meeting.PlatformWebRTC, h.Platform)
	assert.Contains(t, h.Offer, "m=audio")
	assert.Contains(t, strings.ToLower(h.Offer), "opus")
	assert.Equal(t, "https://talk.example.test/"+h.ID, h.JoinURL)

	track, ok := w.Track(h.ID)
	require.True(t, ok)
	assert.Equal(t, "audio", track.ID())

	ok, err = w.Validate(ctx, *h)
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, w.Release(ctx, *h))
	ok, _ = w.Validate(ctx, *h)
	assert.False(t, ok)
	assert.NoError(t, w.Release(ctx, *h), "second release is a no-op")

	assert.ErrorIs(t, w.Answer(ctx, *h, "v=0"), meeting.ErrCallNotFound)
}

func TestWebRTCDefaults(t *testing.T) {
	assert.Equal(t, []string{"stun:stun.l.google.com:19302", "stun:stun1.l.google.com:19302"}, meeting.DefaultICEServers)
}

func newZoomServer(t *testing.T) (*httptest.Server, *zoomState) {
	t.Helper()
	st := &zoomState{meetings: map[string]string{}}
	mux := http.NewServeMux()
	mux.HandleFunc("/oauth/token", func(w http.ResponseWriter, r *http.Request) {
		user, pass, _ := r.BasicAuth()
		assert.Equal(t, "cid", user)
		assert.Equal(t, "secret", pass)
		_ = r.ParseForm()
		assert.Equal(t, "account_credentials", r.PostForm.Get("grant_type"))
		assert.Equal(t, "acct", r.PostForm.Get("account_id"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"zoom-token","token_type":"bearer","expires_in":3600}`))
	})
	mux.HandleFunc("/v2/", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer zoom-token", r.Header.Get("Authorization"))
		st.mu.Lock()
		defer st.mu.Unlock()
		path := strings.TrimPrefix(r.URL.Path, "/v2")
		switch {
		case r.Method == http.MethodPost && path == "/users/me/meetings":
			var body map[string]interface{}
			_ = json.NewDecoder(r.Body).Decode(&body)
			assert.EqualValues(t, 1, body["type"])
			st.meetings["8675309"] = "started"
			_, _ = w.Write([]byte(`{"id":8675309,"join_url":"https://zoom.us/j/8675309","password":"abc"}`))
		case r.Method == http.MethodPut && path == "/meetings/8675309/status":
			st.ended = true
			w.WriteHeader(http.StatusNoContent)
		case r.Method == http.MethodDelete && strings.HasPrefix(path, "/meetings/"):
			id := strings.TrimPrefix(path, "/meetings/")
			if _, ok := st.meetings[id]; !ok {
				w.WriteHeader(http.StatusNotFound)
				_, _ = w.Write([]byte(`{"code":3001,"message":"Meeting does not exist"}`))
				return
			}
			delete(st.meetings, id)
			w.WriteHeader(http.StatusNoContent)
		case r.Method == http.MethodGet && strings.HasPrefix(path, "/meetings/"):
			id := strings.TrimPrefix(path, "/meetings/")
			status, ok := st.meetings[id]
			if !ok {
				w.WriteHeader(http.StatusNotFound)
				_, _ = w.Write([]byte(`{"code":3001,"message":"Meeting does not exist"}`))
				return
			}
			_ = json.NewEncoder(w).Encode(map[string]string{"status": status})
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	})
	return httptest.NewServer(mux), st
}

type zoomState struct {
	mu       sync.Mutex
	meetings map[string]string
	ended    bool
}

func TestZoom(t *testing.T) {
	server, st := newZoomServer(t)
	defer server.Close()

	z, err := meeting.NewZoom(meeting.ZoomConfig{
		AccountID:    "acct",
		ClientID:     "cid",
		ClientSecret: "secret",
		BaseURL:      server.URL + "/v2",
		TokenURL:     server.URL + "/oauth/token",
	})
	require.NoError(t, err)
	defer z.Close()

	ctx := context.Background()
	h, err := z.Create(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, "8675309", h.ID)
	assert.Equal(t, "https://zoom.us/j/8675309", h.JoinURL)
	assert.Equal(t, "abc", h.Passcode)

	ok, err := z.Validate(ctx, *h)
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, z.Release(ctx, *h))
	assert.True(t, st.ended)

	ok, err = z.Validate(ctx, *h)
	require.NoError(t, err)
	assert.False(t, ok)

	assert.NoError(t, z.Release(ctx, *h), "releasing a deleted meeting succeeds")
}

func TestZoomRequiresCredentials(t *testing.T) {
	_, err := meeting.NewZoom(meeting.ZoomConfig{ClientID: "cid"})
	assert.ErrorIs(t, err, meeting.ErrMissingCredentials)
}

func TestGoogleMeet(t *testing.T) {
	var ended bool
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer meet-token", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		switch {
		case r.Method == http.MethodPost && r.URL.Path == "/v2/spaces":
			var body struct {
				Config struct {
					AccessType string `json:"accessType"`
				} `json:"config"`
			}
			_ = json.NewDecoder(r.Body).Decode(&body)
			assert.Equal(t, "OPEN", body.Config.AccessType)
			_, _ = w.Write([]byte(`{"name":"spaces/abc","meetingUri":"https://meet.google.com/abc-defg-hij","meetingCode":"abc-defg-hij"}`))
		case r.Method == http.MethodPost && strings.HasSuffix(r.URL.Path, ":endActiveConference"):
			ended = true
			_, _ = w.Write([]byte(`{}`))
		case r.Method == http.MethodGet && r.URL.Path == "/v2/spaces/abc":
			_, _ = w.Write([]byte(`{"name":"spaces/abc"}`))
		default:
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"error":{"code":404,"message":"not found"}}`))
		}
	}))
	defer server.Close()

	ctx := context.Background()
	g, err := meeting.NewGoogleMeet(ctx, meeting.GoogleMeetConfig{
		TokenSource: oauth2.StaticTokenSource(&oauth2.Token{AccessToken: "meet-token"}),
		Endpoint:    server.URL + "/",
	})
	require.NoError(t, err)

	h, err := g.Create(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, "spaces/abc", h.ID)
	assert.Equal(t, "https://meet.google.com/abc-defg-hij", h.JoinURL)

	ok, err := g.Validate(ctx, *h)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = g.Validate(ctx, meeting.Handle{ID: "spaces/gone", Platform: meeting.PlatformGoogleMeet})
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, g.Release(ctx, *h))
	assert.True(t, ended)
}
