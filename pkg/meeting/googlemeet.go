package meeting

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/googleapi"
	meet "google.golang.org/api/meet/v2"
	"google.golang.org/api/option"
)

// meetScope lets the app create spaces and manage the spaces it created.
const meetScope = "https://www.googleapis.com/auth/meetings.space.created"

// GoogleMeetConfig configures the Google Meet provider. Meet spaces belong
// to a user, so credentials are either a stored user token (ClientID,
// ClientSecret and TokenPath) or application default credentials.
type GoogleMeetConfig struct {
	ClientID     string
	ClientSecret string

	// TokenPath is a JSON-encoded oauth2.Token for the hosting user.
	TokenPath string

	// TokenSource overrides every other credential source.
	TokenSource oauth2.TokenSource

	// Endpoint overrides the Meet API endpoint.
	Endpoint string

	Logger *slog.Logger
}

// GoogleMeet hosts calls as Google Meet spaces.
type GoogleMeet struct {
	service *meet.Service
	logger  *slog.Logger
}

// NewGoogleMeet creates a Google Meet provider.
func NewGoogleMeet(ctx context.Context, cfg GoogleMeetConfig) (*GoogleMeet, error) {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	ts, err := meetTokenSource(ctx, cfg)
	if err != nil {
		return nil, err
	}

	opts := []option.ClientOption{option.WithTokenSource(ts)}
	if cfg.Endpoint != "" {
		opts = append(opts, option.WithEndpoint(cfg.Endpoint))
	}

	service, err := meet.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create meet service: %w", err)
	}

	return &GoogleMeet{
		service: service,
		logger:  cfg.Logger.With("component", "meeting.googlemeet"),
	}, nil
}

func meetTokenSource(ctx context.Context, cfg GoogleMeetConfig) (oauth2.TokenSource, error) {
	if cfg.TokenSource != nil {
		return cfg.TokenSource, nil
	}
	if cfg.TokenPath != "" {
		if cfg.ClientID == "" || cfg.ClientSecret == "" {
			return nil, fmt.Errorf("%w: google client id and secret", ErrMissingCredentials)
		}
		data, err := os.ReadFile(cfg.TokenPath)
		if err != nil {
			return nil, fmt.Errorf("read token: %w", err)
		}
		var token oauth2.Token
		if err := json.Unmarshal(data, &token); err != nil {
			return nil, fmt.Errorf("parse token: %w", err)
		}
		oc := &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			Scopes:       []string{meetScope},
			Endpoint:     google.Endpoint,
		}
		return oc.TokenSource(ctx, &token), nil
	}
	ts, err := google.DefaultTokenSource(ctx, meetScope)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMissingCredentials, err)
	}
	return ts, nil
}

// Name implements Provider.
func (g *GoogleMeet) Name() string { return PlatformGoogleMeet }

// Create opens a space anyone with the link can join.
func (g *GoogleMeet) Create(ctx context.Context, sessionID string) (*Handle, error) {
	space, err := g.service.Spaces.Create(&meet.Space{
		Config: &meet.SpaceConfig{AccessType: "OPEN"},
	}).Context(ctx).Do()
	if err != nil {
		return nil, wrapGoogleError(err)
	}
	g.logger.Debug("space created", "session_id", sessionID, "space", space.Name)

	return &Handle{
		ID:        space.Name,
		Platform:  PlatformGoogleMeet,
		JoinURL:   space.MeetingUri,
		Passcode:  space.MeetingCode,
		CreatedAt: time.Now(),
	}, nil
}

// Release ends the space's active conference. A space with no conference
// or that no longer exists counts as released.
func (g *GoogleMeet) Release(ctx context.Context, h Handle) error {
	_, err := g.service.Spaces.EndActiveConference(h.ID, &meet.EndActiveConferenceRequest{}).Context(ctx).Do()
	if err == nil {
		return nil
	}
	err = wrapGoogleError(err)
	var apiErr *APIError
	if errors.As(err, &apiErr) && (apiErr.IsNotFound() || apiErr.StatusCode == 400) {
		return nil
	}
	return err
}

// Validate reports whether the space still exists.
func (g *GoogleMeet) Validate(ctx context.Context, h Handle) (bool, error) {
	_, err := g.service.Spaces.Get(h.ID).Context(ctx).Do()
	if err == nil {
		return true, nil
	}
	err = wrapGoogleError(err)
	if isNotFound(err) {
		return false, nil
	}
	return false, err
}

// Close releases resources.
func (g *GoogleMeet) Close() error {
	return nil
}

func wrapGoogleError(err error) error {
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		return &APIError{StatusCode: gerr.Code, Message: gerr.Message, Provider: PlatformGoogleMeet}
	}
	return err
}

// Verify GoogleMeet implements Provider at compile time.
var _ Provider = (*GoogleMeet)(nil)
