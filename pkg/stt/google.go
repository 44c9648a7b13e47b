package stt

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
	speech "google.golang.org/api/speech/v1"

	"github.com/teslashibe/go-companion/pkg/language"
)

const (
	providerGoogle = "google"

	// maxAlternativeLanguages is the Cloud Speech limit on alternative codes.
	maxAlternativeLanguages = 3
)

// Google implements Provider for Google Cloud Speech-to-Text.
type Google struct {
	config  *Config
	service *speech.Service
	logger  *slog.Logger
}

// NewGoogle creates a Google Cloud STT provider. Credentials come from
// WithCredentialsFile, WithAPIKey, or application default credentials.
func NewGoogle(ctx context.Context, opts ...Option) (*Google, error) {
	cfg := DefaultConfig()
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

	service, err := speech.NewService(ctx, clientOpts...)
	if err != nil {
		return nil, WrapError(providerGoogle, fmt.Errorf("create service: %w", err))
	}

	return &Google{
		config:  cfg,
		service: service,
		logger:  cfg.Logger.With("component", "stt.google"),
	}, nil
}

// Name implements Provider.
func (g *Google) Name() string { return providerGoogle }

// Transcribe runs synchronous recognition on the utterance.
func (g *Google) Transcribe(ctx context.Context, r *Request) (*Transcript, error) {
	if len(r.Audio) == 0 {
		return nil, WrapError(providerGoogle, ErrEmptyAudio)
	}
	rc, err := g.recognitionConfig(Sniff(r.Audio), r.LanguageHint)
	if err != nil {
		return nil, WrapError(providerGoogle, err)
	}

	start := time.Now()
	resp, err := g.service.Speech.Recognize(&speech.RecognizeRequest{
		Config: rc,
		Audio:  &speech.RecognitionAudio{Content: base64.StdEncoding.EncodeToString(r.Audio)},
	}).Context(ctx).Do()
	if err != nil {
		return nil, g.wrapError(err)
	}

	var (
		parts      []string
		confidence float64
		detected   string
	)
	for _, res := range resp.Results {
		if len(res.Alternatives) == 0 {
			continue
		}
		best := res.Alternatives[0]
		if t := strings.TrimSpace(best.Transcript); t != "" {
			parts = append(parts, t)
		}
		if best.Confidence > confidence {
			confidence = best.Confidence
		}
		if detected == "" && res.LanguageCode != "" {
			detected = codeFromLocale(res.LanguageCode)
		}
	}

	text := strings.Join(parts, " ")
	if text == "" {
		return nil, WrapError(providerGoogle, ErrNoSpeech)
	}

	latency := time.Since(start)
	g.logger.Debug("transcribed audio",
		"bytes", len(r.Audio),
		"chars", len(text),
		"language", detected,
		"confidence", confidence,
		"latency_ms", latency.Milliseconds(),
	)

	return &Transcript{
		Text:       text,
		Language:   detected,
		Confidence: confidence,
		Latency:    latency,
		Provider:   providerGoogle,
	}, nil
}

// Close releases resources.
func (g *Google) Close() error {
	return nil
}

// recognitionConfig maps the container to a Cloud Speech encoding and picks
// the primary and alternative languages.
func (g *Google) recognitionConfig(container Container, hint string) (*speech.RecognitionConfig, error) {
	rc := &speech.RecognitionConfig{
		EnableAutomaticPunctuation: true,
		Model:                      g.config.Model,
	}

	switch container {
	case ContainerWAV, ContainerFLAC:
		// Encoding and sample rate are read from the header.
	case ContainerWebM:
		rc.Encoding = "WEBM_OPUS"
		rc.SampleRateHertz = 48000
	case ContainerOgg:
		rc.Encoding = "OGG_OPUS"
		rc.SampleRateHertz = 48000
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, container)
	}

	if hint != "" {
		rc.LanguageCode = language.Locale(hint)
		return rc, nil
	}

	candidates := g.config.Languages
	if len(candidates) == 0 {
		candidates = []string{"en"}
	}
	rc.LanguageCode = language.Locale(candidates[0])
	for _, code := range candidates[1:] {
		if len(rc.AlternativeLanguageCodes) == maxAlternativeLanguages {
			break
		}
		rc.AlternativeLanguageCodes = append(rc.AlternativeLanguageCodes, language.Locale(code))
	}
	return rc, nil
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

// codeFromLocale turns a locale such as "fr-fr" into its language code.
func codeFromLocale(locale string) string {
	code, _, _ := strings.Cut(strings.ToLower(locale), "-")
	return language.Normalize(code)
}

// Verify Google implements Provider at compile time.
var _ Provider = (*Google)(nil)
