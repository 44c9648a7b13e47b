package tts

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/teslashibe/go-companion/internal/httpc"
)

const (
	elevenLabsBaseURL  = "https://api.elevenlabs.io/v1"
	providerElevenLabs = "elevenlabs"
)

// ElevenLabs model IDs
const (
	// ModelTurboV2_5 is a low-latency multilingual model.
	ModelTurboV2_5 = "eleven_turbo_v2_5"

	// ModelFlashV2_5 is the fastest multilingual model (~150ms latency).
	ModelFlashV2_5 = "eleven_flash_v2_5"

	// ModelMultilingualV2 is the highest quality multilingual model (~300ms latency).
	ModelMultilingualV2 = "eleven_multilingual_v2"
)

// DefaultElevenLabsVoice is a calm multilingual stock voice (Rachel).
const DefaultElevenLabsVoice = "21m00Tcm4TlvDq8ikWAM"

var elevenLabsLanguages = map[string][]string{
	ModelMultilingualV2: {
		"en", "ja", "zh", "de", "hi", "fr", "ko", "pt", "it", "es", "id", "nl", "tr", "fil", "pl",
		"sv", "bg", "ro", "ar", "cs", "el", "fi", "hr", "ms", "sk", "da", "ta", "uk", "ru",
	},
	ModelFlashV2_5: {
		"en", "ja", "zh", "de", "hi", "fr", "ko", "pt", "it", "es", "id", "nl", "tr", "fil", "pl",
		"sv", "bg", "ro", "ar", "cs", "el", "fi", "hr", "ms", "sk", "da", "ta", "uk", "ru",
		"hu", "no", "vi",
	},
}

func init() {
	elevenLabsLanguages[ModelTurboV2_5] = elevenLabsLanguages[ModelFlashV2_5]
}

// ElevenLabs implements Provider for ElevenLabs TTS.
type ElevenLabs struct {
	config    *Config
	client    *http.Client
	logger    *slog.Logger
	baseURL   string
	languages languageSet
}

// NewElevenLabs creates a new ElevenLabs TTS provider.
func NewElevenLabs(opts ...Option) (*ElevenLabs, error) {
	cfg := DefaultConfig()
	cfg.VoiceID = DefaultElevenLabsVoice
	cfg.Apply(opts...)

	if err := cfg.ValidateWithVoice(); err != nil {
		return nil, err
	}

	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = elevenLabsBaseURL
	}

	return &ElevenLabs{
		config:    cfg,
		client:    httpc.New(cfg.Timeout),
		logger:    cfg.Logger.With("component", "tts.elevenlabs"),
		baseURL:   strings.TrimSuffix(baseURL, "/"),
		languages: cfg.languages(elevenLabsLanguages[cfg.ModelID]),
	}, nil
}

// Name implements Provider.
func (e *ElevenLabs) Name() string { return providerElevenLabs }

// Supports implements Provider.
func (e *ElevenLabs) Supports(language string) bool { return e.languages.has(language) }

// Synthesize converts text to audio, returning the complete audio buffer.
func (e *ElevenLabs) Synthesize(ctx context.Context, r *Request) (*AudioResult, error) {
	if strings.TrimSpace(r.Text) == "" {
		return nil, WrapError(providerElevenLabs, ErrEmptyText)
	}
	if !e.Supports(r.Language) {
		return nil, WrapError(providerElevenLabs, fmt.Errorf("%w: %s", ErrUnsupportedLanguage, r.Language))
	}

	start := time.Now()
	voice := e.config.voiceFor(r.Language)
	url := fmt.Sprintf("%s/text-to-speech/%s?output_format=%s", e.baseURL, voice, e.config.OutputFormat)

	body, err := json.Marshal(e.buildPayload(r))
	if err != nil {
		return nil, WrapError(providerElevenLabs, fmt.Errorf("marshal payload: %w", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, WrapError(providerElevenLabs, fmt.Errorf("create request: %w", err))
	}
	req.Header.Set("xi-api-key", e.config.APIKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", e.config.OutputFormat.MIME())

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, WrapError(providerElevenLabs, err)
	}
	defer resp.Body.Close()

	latency := time.Since(start).Milliseconds()

	if resp.StatusCode != http.StatusOK {
		return nil, e.parseError(resp)
	}

	audio, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, WrapError(providerElevenLabs, fmt.Errorf("read response: %w", err))
	}

	e.logger.Debug("synthesized audio",
		"chars", len(r.Text),
		"bytes", len(audio),
		"latency_ms", latency,
		"model", e.config.ModelID,
		"language", r.Language,
	)

	return &AudioResult{
		Audio: audio,
		Format: AudioFormat{
			Encoding:   e.config.OutputFormat,
			SampleRate: SampleRateFromEncoding(e.config.OutputFormat),
			Channels:   1,
			BitDepth:   16,
		},
		CharCount: len(r.Text),
		LatencyMs: latency,
		Duration:  e.estimateDuration(len(audio)),
		Provider:  providerElevenLabs,
	}, nil
}

// Close releases resources held by the provider.
func (e *ElevenLabs) Close() error {
	e.client.CloseIdleConnections()
	return nil
}

// buildPayload constructs the API request payload. The v2.5 models accept
// an explicit language code; multilingual v2 infers it from the text.
func (e *ElevenLabs) buildPayload(r *Request) map[string]interface{} {
	payload := map[string]interface{}{
		"text":     r.Text,
		"model_id": e.config.ModelID,
		"voice_settings": map[string]interface{}{
			"stability":         e.config.VoiceSettings.Stability,
			"similarity_boost":  e.config.VoiceSettings.SimilarityBoost,
			"style":             e.config.VoiceSettings.Style,
			"use_speaker_boost": e.config.VoiceSettings.SpeakerBoost,
		},
	}
	if e.config.ModelID == ModelFlashV2_5 || e.config.ModelID == ModelTurboV2_5 {
		payload["language_code"] = r.Language
	}
	return payload
}

// parseError reads and parses an error response.
func (e *ElevenLabs) parseError(resp *http.Response) error {
	body, _ := io.ReadAll(resp.Body)

	var errResp struct {
		Detail struct {
			Message string `json:"message"`
			Status  string `json:"status"`
		} `json:"detail"`
	}

	message := string(body)
	code := ""
	if json.Unmarshal(body, &errResp) == nil && errResp.Detail.Message != "" {
		message = errResp.Detail.Message
		code = errResp.Detail.Status
	}

	return &APIError{
		StatusCode: resp.StatusCode,
		Message:    message,
		Code:       code,
		Provider:   providerElevenLabs,
	}
}

// estimateDuration estimates audio duration from byte count. Only PCM
// output can be estimated this way.
func (e *ElevenLabs) estimateDuration(n int) time.Duration {
	if e.config.OutputFormat.MIME() != "audio/pcm" {
		return 0
	}
	samples := n / 2
	seconds := float64(samples) / float64(SampleRateFromEncoding(e.config.OutputFormat))
	return time.Duration(seconds * float64(time.Second))
}

// Verify ElevenLabs implements Provider at compile time.
var _ Provider = (*ElevenLabs)(nil)
