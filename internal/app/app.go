// Package app assembles the companion service from configuration and runs
// it until the context is canceled.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/teslashibe/go-companion/internal/config"
	"github.com/teslashibe/go-companion/pkg/checkpoint"
	"github.com/teslashibe/go-companion/pkg/conversation"
	"github.com/teslashibe/go-companion/pkg/hub"
	"github.com/teslashibe/go-companion/pkg/language"
	"github.com/teslashibe/go-companion/pkg/meeting"
	"github.com/teslashibe/go-companion/pkg/metrics"
	"github.com/teslashibe/go-companion/pkg/reply"
	"github.com/teslashibe/go-companion/pkg/session"
	"github.com/teslashibe/go-companion/pkg/voice"
	"github.com/teslashibe/go-companion/pkg/web"
)

// shutdownTimeout bounds the HTTP drain on shutdown.
const shutdownTimeout = 10 * time.Second

// App is the assembled service.
type App struct {
	config *config.Config
	logger *slog.Logger

	// Pipeline
	Languages *language.Detector
	Voice     *voice.Bridge
	Replies   *reply.Generator
	Calls     *meeting.Bridge

	// Session engine
	Sessions    *session.Manager
	Checkpoints checkpoint.Store
	sweeper     *session.Sweeper

	// Outer surface
	Metrics *metrics.Metrics
	Events  *hub.Hub
	Server  *web.Server
}

// New validates cfg and returns an uninitialized App.
func New(cfg *config.Config, logger *slog.Logger) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &App{config: cfg, logger: logger}, nil
}

// Init builds every component. Call this after New and before Run.
func (a *App) Init(ctx context.Context) error {
	cfg := a.config

	langOpts := []language.Option{
		language.WithDefault(cfg.Language.Default),
		language.WithSupported(cfg.Language.Supported...),
		language.WithMinRelativeDistance(cfg.Language.MinRelativeDistance),
		language.WithLogger(a.logger),
	}
	if cfg.Language.MinConfidence > 0 {
		langOpts = append(langOpts, language.WithMinConfidence(cfg.Language.MinConfidence))
	}
	var err error
	a.Languages, err = language.New(langOpts...)
	if err != nil {
		return fmt.Errorf("language: %w", err)
	}

	if err := a.initPipeline(ctx); err != nil {
		return err
	}

	a.Checkpoints, err = checkpoint.Open(ctx, checkpoint.Config{
		Driver:    cfg.Checkpoint.Driver,
		Path:      cfg.Checkpoint.Path,
		DSN:       cfg.Checkpoint.DSN,
		RedisURL:  cfg.Checkpoint.RedisURL,
		KeyPrefix: cfg.Checkpoint.KeyPrefix,
		Logger:    a.logger,
	})
	if err != nil {
		return fmt.Errorf("checkpoint: %w", err)
	}

	if cfg.Metrics.Enabled {
		a.Metrics = metrics.New(cfg.Metrics.Namespace)
	}
	a.Events = hub.New("events", a.logger)
	a.Events.OnChange(a.Metrics.ClientConnected)

	if err := a.initSessions(); err != nil {
		return err
	}

	a.Server, err = web.NewServer(web.Deps{
		Sessions:  a.Sessions,
		Languages: a.Languages,
		Calls:     a.Calls,
		Events:    a.Events,
		Metrics:   a.Metrics,
	},
		web.WithAddr(cfg.Server.Addr),
		web.WithJWTSecret(cfg.Server.JWTSecret),
		web.WithCORSOrigins(cfg.Server.CORSOrigins),
		web.WithBodyLimit(cfg.Voice.MaxAudioBytes*2),
		web.WithLogger(a.logger),
	)
	if err != nil {
		return fmt.Errorf("web: %w", err)
	}
	return nil
}

func (a *App) initPipeline(ctx context.Context) error {
	cfg := a.config

	recognizer, err := newRecognizer(ctx, cfg, a.logger)
	if err != nil {
		return fmt.Errorf("stt: %w", err)
	}
	synthesizer, err := newSynthesizer(ctx, cfg, a.logger)
	if err != nil {
		return fmt.Errorf("tts: %w", err)
	}
	a.Voice, err = voice.New(recognizer, synthesizer,
		voice.WithTranscriptionTimeout(cfg.Voice.TranscriptionTimeout),
		voice.WithSynthesisTimeout(cfg.Voice.SynthesisTimeout),
		voice.WithMaxAudioBytes(cfg.Voice.MaxAudioBytes),
		voice.WithLogger(a.logger),
	)
	if err != nil {
		return fmt.Errorf("voice: %w", err)
	}

	llm, err := newLLM(ctx, cfg, a.logger)
	if err != nil {
		return fmt.Errorf("llm: %w", err)
	}
	opts := []reply.Option{
		reply.WithTimeout(cfg.LLM.Timeout),
		reply.WithDefaultLanguage(cfg.Language.Default),
		reply.WithLogger(a.logger),
	}
	if len(cfg.Language.Templates) > 0 {
		opts = append(opts, reply.WithTemplates(cfg.Language.Templates))
	}
	if len(cfg.Profiles) > 0 {
		opts = append(opts, reply.WithProfiles(reply.StaticProfiles(cfg.Profiles)))
	}
	a.Replies, err = reply.New(llm, opts...)
	if err != nil {
		return fmt.Errorf("reply: %w", err)
	}

	provider, err := newMeetingProvider(ctx, cfg, a.logger)
	if err != nil {
		return fmt.Errorf("meeting: %w", err)
	}
	a.Calls, err = meeting.NewBridge(provider,
		meeting.WithReleaseTimeout(cfg.Meeting.ReleaseTimeout),
		meeting.WithLogger(a.logger),
	)
	if err != nil {
		return fmt.Errorf("meeting: %w", err)
	}
	return nil
}

func (a *App) initSessions() error {
	cfg := a.config

	checker, err := newBilling(cfg, a.logger)
	if err != nil {
		return fmt.Errorf("billing: %w", err)
	}

	a.Sessions, err = session.New(session.Deps{
		Detector: a.Languages,
		Store:    conversation.NewStore(conversation.WithPairs(cfg.Session.HistoryPairs), conversation.WithLogger(a.logger)),
		Replies:  a.Replies,
		Voice:    a.Voice,
		Calls:    a.Calls,
	},
		session.WithIdleTimeout(cfg.Session.IdleTimeout),
		session.WithHardTimeout(cfg.Session.HardTimeout),
		session.WithDrainGrace(cfg.Session.DrainGrace),
		session.WithRetention(cfg.Session.Retention),
		session.WithLanguageHint(cfg.Session.LanguageHint),
		session.WithBilling(checker),
		session.WithCheckpoint(a.Checkpoints),
		session.WithMetrics(a.Metrics),
		session.WithEventHandler(web.PublishEvents(a.Events, a.logger)),
		session.WithLogger(a.logger),
	)
	if err != nil {
		return fmt.Errorf("session: %w", err)
	}

	a.sweeper, err = session.NewSweeper(a.Sessions, cfg.Session.SweepSchedule, a.logger)
	if err != nil {
		return fmt.Errorf("sweeper: %w", err)
	}
	return nil
}

// Run restores checkpointed sessions, starts the sweeper and serves the API.
// Blocks until ctx is canceled or the server fails.
func (a *App) Run(ctx context.Context) error {
	go a.Events.Run(ctx)

	if _, err := a.Sessions.Restore(ctx); err != nil {
		a.logger.Warn("session restore failed", "error", err)
	}

	a.sweeper.Start()

	errCh := make(chan error, 1)
	go func() { errCh <- a.Server.Start() }()

	a.logger.Info("companion ready",
		"addr", a.config.Server.Addr,
		"languages", len(a.config.Language.Supported),
		"meeting", a.Calls.Platform(),
		"checkpoint", a.config.Checkpoint.Driver,
	)

	// Block until context cancelled
	select {
	case <-ctx.Done():
		return nil
	case err := <-errCh:
		return err
	}
}

// Shutdown stops the API and releases providers. Open sessions stay in the
// checkpoint store for the next process to restore.
func (a *App) Shutdown() error {
	var errs []error

	if a.Server != nil {
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		errs = append(errs, a.Server.Shutdown(ctx))
		cancel()
	}
	if a.sweeper != nil {
		a.sweeper.Stop()
	}
	if a.Voice != nil {
		errs = append(errs, a.Voice.Close())
	}
	if a.Calls != nil {
		errs = append(errs, a.Calls.Close())
	}
	if a.Checkpoints != nil {
		errs = append(errs, a.Checkpoints.Close())
	}

	a.logger.Info("companion stopped")
	return errors.Join(errs...)
}
