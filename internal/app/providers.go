package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/teslashibe/go-companion/internal/config"
	"github.com/teslashibe/go-companion/pkg/billing"
	"github.com/teslashibe/go-companion/pkg/inference"
	"github.com/teslashibe/go-companion/pkg/meeting"
	"github.com/teslashibe/go-companion/pkg/stt"
	"github.com/teslashibe/go-companion/pkg/tts"
)

// ErrUnknownProvider indicates a provider name no builder knows.
var ErrUnknownProvider = errors.New("app: unknown provider")

func unknown(kind, name string) error {
	return fmt.Errorf("%w: %s %q", ErrUnknownProvider, kind, name)
}

func newRecognizer(ctx context.Context, cfg *config.Config, logger *slog.Logger) (stt.Provider, error) {
	opts := []stt.Option{
		stt.WithLanguages(cfg.Language.Supported...),
		stt.WithTimeout(cfg.Voice.TranscriptionTimeout),
		stt.WithLogger(logger),
	}
	if cfg.STT.APIKey != "" {
		opts = append(opts, stt.WithAPIKey(cfg.STT.APIKey))
	}
	if cfg.STT.BaseURL != "" {
		opts = append(opts, stt.WithBaseURL(cfg.STT.BaseURL))
	}
	if cfg.STT.Model != "" {
		opts = append(opts, stt.WithModel(cfg.STT.Model))
	}

	switch strings.ToLower(cfg.STT.Provider) {
	case "whisper", "openai":
		p, err := stt.NewWhisper(opts...)
		if err != nil {
			return nil, err
		}
		return p, nil
	case "google":
		if cfg.STT.CredentialsFile != "" {
			opts = append(opts, stt.WithCredentialsFile(cfg.STT.CredentialsFile))
		}
		p, err := stt.NewGoogle(ctx, opts...)
		if err != nil {
			return nil, err
		}
		return p, nil
	case "mock":
		return stt.NewMock(), nil
	}
	return nil, unknown("stt", cfg.STT.Provider)
}

// newSynthesizer builds every configured TTS provider behind a router that
// picks the first one speaking the reply's language.
func newSynthesizer(ctx context.Context, cfg *config.Config, logger *slog.Logger) (tts.Provider, error) {
	var providers []tts.Provider
	for _, name := range cfg.TTS.Providers {
		p, err := newVoiceProvider(ctx, name, cfg, logger)
		if err != nil {
			return nil, err
		}
		providers = append(providers, p)
	}
	return tts.NewRouter(logger, providers...)
}

func newVoiceProvider(ctx context.Context, name string, cfg *config.Config, logger *slog.Logger) (tts.Provider, error) {
	c := cfg.TTS
	base := []tts.Option{
		tts.WithLanguages(cfg.Language.Supported...),
		tts.WithTimeout(c.RequestTimeout),
		tts.WithLogger(logger),
	}

	switch strings.ToLower(name) {
	case "elevenlabs":
		opts := append(base, tts.WithAPIKey(c.ElevenLabsKey), tts.WithLanguageVoices(c.LanguageVoices))
		if c.ElevenLabsVoice != "" {
			opts = append(opts, tts.WithVoice(c.ElevenLabsVoice))
		}
		if c.ElevenLabsModel != "" {
			opts = append(opts, tts.WithModel(c.ElevenLabsModel))
		}
		p, err := tts.NewElevenLabs(opts...)
		if err != nil {
			return nil, err
		}
		return p, nil
	case "openai":
		opts := append(base, tts.WithAPIKey(c.OpenAIKey))
		if c.OpenAIVoice != "" {
			opts = append(opts, tts.WithVoice(c.OpenAIVoice))
		}
		p, err := tts.NewOpenAI(opts...)
		if err != nil {
			return nil, err
		}
		return p, nil
	case "google":
		opts := append(base, tts.WithLanguageVoices(c.LanguageVoices))
		if c.GoogleKey != "" {
			opts = append(opts, tts.WithAPIKey(c.GoogleKey))
		}
		if c.GoogleCredFile != "" {
			opts = append(opts, tts.WithCredentialsFile(c.GoogleCredFile))
		}
		p, err := tts.NewGoogle(ctx, opts...)
		if err != nil {
			return nil, err
		}
		return p, nil
	case "mock":
		return tts.NewMock(), nil
	}
	return nil, unknown("tts", name)
}

func newLLM(ctx context.Context, cfg *config.Config, logger *slog.Logger) (inference.Provider, error) {
	c := cfg.LLM
	opts := []inference.Option{
		inference.WithAPIKey(c.APIKey),
		inference.WithModel(c.Model),
		inference.WithMaxTokens(c.MaxTokens),
		inference.WithTemperature(c.Temperature),
		inference.WithTimeout(c.Timeout),
		inference.WithLogger(logger),
	}
	if c.BaseURL != "" {
		opts = append(opts, inference.WithBaseURL(c.BaseURL))
	}

	switch strings.ToLower(c.Provider) {
	case "openai", "ollama", "groq":
		p, err := inference.NewClient(opts...)
		if err != nil {
			return nil, err
		}
		return p, nil
	case "gemini":
		p, err := inference.NewGemini(ctx, opts...)
		if err != nil {
			return nil, err
		}
		return p, nil
	case "mock":
		return inference.WithReply("I'm here with you. Tell me more about how you're feeling."), nil
	}
	return nil, unknown("llm", c.Provider)
}

func newMeetingProvider(ctx context.Context, cfg *config.Config, logger *slog.Logger) (meeting.Provider, error) {
	c := cfg.Meeting
	switch strings.ToLower(c.Provider) {
	case meeting.PlatformWebRTC:
		return meeting.NewWebRTC(meeting.WebRTCConfig{
			ICEServers:  c.ICEServers,
			JoinBaseURL: c.JoinBaseURL,
			Logger:      logger,
		}), nil
	case meeting.PlatformZoom:
		p, err := meeting.NewZoom(meeting.ZoomConfig{
			AccountID:    c.ZoomAccountID,
			ClientID:     c.ZoomClientID,
			ClientSecret: c.ZoomClientSecret,
			Logger:       logger,
		})
		if err != nil {
			return nil, err
		}
		return p, nil
	case meeting.PlatformGoogleMeet, "meet":
		p, err := meeting.NewGoogleMeet(ctx, meeting.GoogleMeetConfig{
			ClientID:     c.GoogleClientID,
			ClientSecret: c.GoogleClientSecret,
			TokenPath:    c.GoogleTokenPath,
			Logger:       logger,
		})
		if err != nil {
			return nil, err
		}
		return p, nil
	case meeting.PlatformMock:
		return meeting.NewMock(), nil
	}
	return nil, unknown("meeting", c.Provider)
}

// newBilling returns nil when every user may open voice sessions.
func newBilling(cfg *config.Config, logger *slog.Logger) (billing.Checker, error) {
	c := cfg.Billing
	switch strings.ToLower(c.Provider) {
	case "", "none":
		return nil, nil
	case "static":
		tiers := make(map[string]billing.Tier, len(c.Tiers))
		for user, tier := range c.Tiers {
			tiers[user] = billing.Tier(tier)
		}
		return billing.NewStatic(billing.Tier(c.DefaultTier), tiers), nil
	case "stripe":
		p, err := billing.NewStripe(billing.StripeConfig{
			SecretKey: c.StripeKey,
			Logger:    logger,
		})
		if err != nil {
			return nil, err
		}
		return p, nil
	}
	return nil, unknown("billing", c.Provider)
}
