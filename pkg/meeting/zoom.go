package meeting

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"

	"github.com/teslashibe/go-companion/internal/httpc"
)

const (
	zoomAPIURL   = "https://api.zoom.us/v2"
	zoomTokenURL = "https://zoom.us/oauth/token"

	zoomInstantMeeting = 1
)

// ZoomConfig configures the Zoom provider with Server-to-Server OAuth app
// credentials.
type ZoomConfig struct {
	AccountID    string
	ClientID     string
	ClientSecret string

	// BaseURL and TokenURL override the Zoom endpoints.
	BaseURL  string
	TokenURL string

	// Topic prefixes each meeting's topic.
	Topic string

	Timeout time.Duration
	Logger  *slog.Logger
}

// Zoom hosts calls as instant Zoom meetings.
type Zoom struct {
	config  ZoomConfig
	client  *http.Client
	baseURL string
	logger  *slog.Logger
}

// NewZoom creates a Zoom provider. The client fetches and refreshes
// account_credentials tokens on demand.
func NewZoom(cfg ZoomConfig) (*Zoom, error) {
	if cfg.AccountID == "" || cfg.ClientID == "" || cfg.ClientSecret == "" {
		return nil, fmt.Errorf("%w: zoom account id, client id and secret", ErrMissingCredentials)
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = zoomAPIURL
	}
	if cfg.TokenURL == "" {
		cfg.TokenURL = zoomTokenURL
	}
	if cfg.Topic == "" {
		cfg.Topic = "Companion session"
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	cc := &clientcredentials.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		TokenURL:     cfg.TokenURL,
		AuthStyle:    oauth2.AuthStyleInHeader,
		EndpointParams: url.Values{
			"grant_type": {"account_credentials"},
			"account_id": {cfg.AccountID},
		},
	}
	base := httpc.New(cfg.Timeout)
	tokenCtx := context.WithValue(context.Background(), oauth2.HTTPClient, base)

	client := cc.Client(tokenCtx)
	client.Timeout = base.Timeout

	return &Zoom{
		config:  cfg,
		client:  client,
		baseURL: strings.TrimSuffix(cfg.BaseURL, "/"),
		logger:  cfg.Logger.With("component", "meeting.zoom"),
	}, nil
}

// Name implements Provider.
func (z *Zoom) Name() string { return PlatformZoom }

// Create schedules an instant meeting the user can join before the host.
func (z *Zoom) Create(ctx context.Context, sessionID string) (*Handle, error) {
	payload := map[string]interface{}{
		"topic":    z.config.Topic,
		"type":     zoomInstantMeeting,
		"agenda":   "session " + sessionID,
		"settings": map[string]interface{}{"join_before_host": true, "waiting_room": false},
	}

	var out struct {
		ID       int64  `json:"id"`
		JoinURL  string `json:"join_url"`
		Password string `json:"password"`
	}
	if err := z.do(ctx, http.MethodPost, "/users/me/meetings", payload, &out); err != nil {
		return nil, err
	}

	return &Handle{
		ID:        strconv.FormatInt(out.ID, 10),
		Platform:  PlatformZoom,
		JoinURL:   out.JoinURL,
		Passcode:  out.Password,
		CreatedAt: time.Now(),
	}, nil
}

// Release ends the meeting for all participants and deletes it.
func (z *Zoom) Release(ctx context.Context, h Handle) error {
	path := "/meetings/" + url.PathEscape(h.ID)
	err := z.do(ctx, http.MethodPut, path+"/status", map[string]string{"action": "end"}, nil)
	if err != nil && !isNotFound(err) {
		return err
	}
	if err := z.do(ctx, http.MethodDelete, path, nil, nil); err != nil && !isNotFound(err) {
		return err
	}
	return nil
}

// Validate reports whether the meeting still exists and has not finished.
func (z *Zoom) Validate(ctx context.Context, h Handle) (bool, error) {
	var out struct {
		Status string `json:"status"`
	}
	err := z.do(ctx, http.MethodGet, "/meetings/"+url.PathEscape(h.ID), nil, &out)
	if isNotFound(err) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return out.Status != "finished", nil
}

// Close releases idle connections.
func (z *Zoom) Close() error {
	z.client.CloseIdleConnections()
	return nil
}

func (z *Zoom) do(ctx context.Context, method, path string, in, out interface{}) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("marshal payload: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, z.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := z.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		data, _ := io.ReadAll(resp.Body)
		var e struct {
			Message string `json:"message"`
		}
		msg := string(data)
		if json.Unmarshal(data, &e) == nil && e.Message != "" {
			msg = e.Message
		}
		return &APIError{StatusCode: resp.StatusCode, Message: msg, Provider: PlatformZoom}
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}

// Verify Zoom implements Provider at compile time.
var _ Provider = (*Zoom)(nil)
