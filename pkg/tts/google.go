package tts

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	texttospeech "google.golang.org/api/texttospeech/v1"

	"github.com/teslashibe/go-companion/pkg/language"
)

const providerGoogle = "google"

// googleLocales overrides the default locale where Cloud TTS uses a
// different tag.
var googleLocales = map[string]string{
	"zh": "cmn-CN",
	"ar": "ar-XA",
}

// Google implements Provider for Google Cloud Text-to-Speech.
type Google struct {
	config    *Config
	service   *texttospeech.Service
	logger    *slog.Logger
	languages languageSet
}

// NewGoogle creates a Google Cloud TTS provider. Credentials come from
// WithCredentialsFile, WithAPIKey, or application default credentials.
func NewGoogle(ctx context.Context, opts ...Option) (*Google, error) {
	cfg := DefaultConfig()
	cfg.ModelID = ""
	cfg.Apply(opts...)

	var clientOpts []option.ClientOption
	switch {
	case cfg.CredentialsFile != "":
		clientOpts = append(clientOpts, option.WithCredentialsFile(cfg.CredentialsFile))
	case cfg.APIKey != "":
		clientOpts = append(clientOpts, option.WithAPIKey(cfg.APIKey))
	}
	if cfg.BaseURL != "" {
		clientOpts = append(clientOpts, option.WithEndpoint(cfg.BaseURL))
	}

	service, err := texttospeech.NewService(ctx, clientOpts...)
	if err != nil {
		return nil, WrapError(providerGoogle, fmt.Errorf("create service: %w", err))
	}

	return &Google{
		config:    cfg,
		service:   service,
		logger:    cfg.Logger.With("component", "tts.google"),
		languages: cfg.languages(language.DefaultSupported()),
	}, nil
}

// Name implements Provider.
func (g *Google) Name() string { return providerGoogle }

// Supports implements Provider.
func (g *Google) Supports(lang string) bool { return g.languages.has(lang) }

// Synthesize converts text to MP3 audio.
func (g *Google) Synthesize(ctx context.Context, r *Request) (*AudioResult, error) {
	if strings.TrimSpace(r.Text) == "" {
		return nil, WrapError(providerGoogle, ErrEmptyText)
	}
	if !g.Supports(r.Language) {
		return nil, WrapError(providerGoogle, fmt.Errorf("%w: %s", ErrUnsupportedLanguage, r.Language))
	}

	start := time.Now()
	voice := &texttospeech.VoiceSelectionParams{
		LanguageCode: googleLocale(r.Language),
		Name:         g.config.LanguageVoices[r.Language],
	}

	resp, err := g.service.Text.Synthesize(&texttospeech.SynthesizeSpeechRequest{
		Input: &texttospeech.SynthesisInput{Text: r.Text},
		Voice: voice,
		AudioConfig: &texttospeech.AudioConfig{
			AudioEncoding: "MP3",
			SpeakingRate:  0.95,
		},
	}).Context(ctx).Do()
	if err != nil {
		return nil, g.wrapError(err)
	}

	audio, err := base64.StdEncoding.DecodeString(resp.AudioContent)
	if err != nil {
		return nil, WrapError(providerGoogle, fmt.Errorf("decode audio: %w", err))
	}

	latency := time.Since(start).Milliseconds()
	g.logger.Debug("synthesized audio",
		"chars", len(r.Text),
		"bytes", len(audio),
		"latency_ms", latency,
		"locale", voice.LanguageCode,
	)

	return &AudioResult{
		Audio:     audio,
		Format:    AudioFormat{Encoding: EncodingMP3, SampleRate: 24000, Channels: 1},
		CharCount: len(r.Text),
		LatencyMs: latency,
		Provider:  providerGoogle,
	}, nil
}

// Close releases resources.
func (g *Google) Close() error {
	return nil
}

func (g *Google) wrapError(err error) error {
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		return &APIError{
			StatusCode: gerr.Code,
			Message:    gerr.Message,
			Provider:   providerGoogle,
		}
	}
	return WrapError(providerGoogle, err)
}

func googleLocale(code string) string {
	if l, ok := googleLocales[code]; ok {
		return l
	}
	return language.Locale(code)
}

// Verify Google implements Provider at compile time.
var _ Provider = (*Google)(nil)
