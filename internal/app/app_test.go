package app

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teslashibe/go-companion/internal/config"
	"github.com/teslashibe/go-companion/internal/log"
	"github.com/teslashibe/go-companion/pkg/session"
)

func mockConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.Server.Addr = "127.0.0.1:0"
	cfg.STT.Provider = "mock"
	cfg.TTS.Providers = []string{"mock"}
	cfg.LLM.Provider = "mock"
	cfg.Meeting.Provider = "mock"
	cfg.Checkpoint.Driver = "file"
	cfg.Checkpoint.Path = filepath.Join(t.TempDir(), "sessions.json")
	return cfg
}

func TestInitAndRun(t *testing.T) {
	a, err := New(mockConfig(t), log.Discard())
	require.NoError(t, err)
	require.NoError(t, a.Init(context.Background()))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- a.Run(ctx) }()

	started, err := a.Sessions.Start(context.Background(), "u1")
	require.NoError(t, err)
	res, err := a.Sessions.ProcessUtterance(context.Background(), started.SessionID, []byte("I feel lonely"))
	require.NoError(t, err)
	assert.Equal(t, "I feel lonely", res.Transcript)
	assert.NotEmpty(t, res.ReplyText)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return")
	}
	assert.NoError(t, a.Shutdown())
}

func TestCheckpointsSurviveRestart(t *testing.T) {
	cfg := mockConfig(t)

	first, err := New(cfg, log.Discard())
	require.NoError(t, err)
	require.NoError(t, first.Init(context.Background()))
	started, err := first.Sessions.Start(context.Background(), "u1")
	require.NoError(t, err)
	require.NoError(t, first.Checkpoints.Close())

	// The mock platform forgets its calls, so the restored session's call
	// is gone and the session is closed instead of resumed.
	second, err := New(cfg, log.Discard())
	require.NoError(t, err)
	require.NoError(t, second.Init(context.Background()))
	report, err := second.Sessions.Restore(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{started.SessionID}, report.Ended)

	info, err := second.Sessions.Info(started.SessionID)
	require.NoError(t, err)
	assert.Equal(t, session.StateEnded, info.State)
	_, open := second.Sessions.ActiveSession("u1")
	assert.False(t, open)
}

func TestUnknownProviders(t *testing.T) {
	tests := map[string]func(*config.Config){
		"stt":     func(c *config.Config) { c.STT.Provider = "carrier-pigeon" },
		"tts":     func(c *config.Config) { c.TTS.Providers = []string{"mock", "telegraph"} },
		"llm":     func(c *config.Config) { c.LLM.Provider = "oracle" },
		"meeting": func(c *config.Config) { c.Meeting.Provider = "skype" },
		"billing": func(c *config.Config) { c.Billing.Provider = "barter" },
	}
	for name, mutate := range tests {
		t.Run(name, func(t *testing.T) {
			cfg := mockConfig(t)
			mutate(cfg)
			a, err := New(cfg, log.Discard())
			require.NoError(t, err)
			assert.ErrorIs(t, a.Init(context.Background()), ErrUnknownProvider)
		})
	}
}

func TestStaticBillingGate(t *testing.T) {
	cfg := mockConfig(t)
	cfg.Billing.Provider = "static"
	cfg.Billing.Tiers = map[string]string{"paid": "premium"}

	a, err := New(cfg, log.Discard())
	require.NoError(t, err)
	require.NoError(t, a.Init(context.Background()))

	_, err = a.Sessions.Start(context.Background(), "free-user")
	assert.ErrorIs(t, err, session.ErrCapabilityDenied)
	_, err = a.Sessions.Start(context.Background(), "paid")
	assert.NoError(t, err)
}

func TestNewRejectsInvalidConfig(t *testing.T) {
	cfg := mockConfig(t)
	cfg.Session.HardTimeout = cfg.Session.IdleTimeout
	_, err := New(cfg, nil)
	assert.ErrorIs(t, err, config.ErrInvalidTimeout)
}
