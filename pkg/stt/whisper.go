package stt

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/teslashibe/go-companion/internal/httpc"
	"github.com/teslashibe/go-companion/pkg/language"
)

const (
	whisperBaseURL  = "https://api.openai.com/v1"
	providerWhisper = "whisper"

	// ModelWhisper1 is OpenAI's hosted Whisper model.
	ModelWhisper1 = "whisper-1"
)

// Whisper implements Provider for the OpenAI transcription endpoint.
// Any server exposing /audio/transcriptions (Groq, local whisper servers)
// works through WithBaseURL.
type Whisper struct {
	config  *Config
	client  *http.Client
	logger  *slog.Logger
	baseURL string
}

// NewWhisper creates a new Whisper STT provider.
func NewWhisper(opts ...Option) (*Whisper, error) {
	cfg := DefaultConfig()
	cfg.Model = ModelWhisper1
	cfg.Apply(opts...)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = whisperBaseURL
	}

	return &Whisper{
		config:  cfg,
		client:  httpc.New(cfg.Timeout),
		logger:  cfg.Logger.With("component", "stt.whisper"),
		baseURL: strings.TrimSuffix(baseURL, "/"),
	}, nil
}

// Name implements Provider.
func (w *Whisper) Name() string { return providerWhisper }

// Transcribe uploads the utterance and returns its transcript.
func (w *Whisper) Transcribe(ctx context.Context, r *Request) (*Transcript, error) {
	if len(r.Audio) == 0 {
		return nil, WrapError(providerWhisper, ErrEmptyAudio)
	}
	container := Sniff(r.Audio)
	if container == ContainerUnknown {
		return nil, WrapError(providerWhisper, ErrUnsupportedFormat)
	}

	start := time.Now()
	body, contentType, err := w.buildForm(r, container)
	if err != nil {
		return nil, WrapError(providerWhisper, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.baseURL+"/audio/transcriptions", body)
	if err != nil {
		return nil, WrapError(providerWhisper, fmt.Errorf("create request: %w", err))
	}
	req.Header.Set("Authorization", "Bearer "+w.config.APIKey)
	req.Header.Set("Content-Type", contentType)

	resp, err := w.client.Do(req)
	if err != nil {
		return nil, WrapError(providerWhisper, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, w.parseError(resp)
	}

	var result struct {
		Text     string `json:"text"`
		Language string `json:"language"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, WrapError(providerWhisper, fmt.Errorf("decode response: %w", err))
	}

	text := strings.TrimSpace(result.Text)
	if text == "" {
		return nil, WrapError(providerWhisper, ErrNoSpeech)
	}

	// verbose_json reports the language by English name.
	lang, _ := language.CodeForName(result.Language)
	latency := time.Since(start)
	w.logger.Debug("transcribed audio",
		"bytes", len(r.Audio),
		"container", container,
		"chars", len(text),
		"language", lang,
		"latency_ms", latency.Milliseconds(),
	)

	return &Transcript{
		Text:     text,
		Language: lang,
		Latency:  latency,
		Provider: providerWhisper,
	}, nil
}

// Close releases resources.
func (w *Whisper) Close() error {
	w.client.CloseIdleConnections()
	return nil
}

func (w *Whisper) buildForm(r *Request, container Container) (io.Reader, string, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	part, err := mw.CreateFormFile("file", "utterance."+string(container))
	if err != nil {
		return nil, "", fmt.Errorf("create form file: %w", err)
	}
	if _, err := part.Write(r.Audio); err != nil {
		return nil, "", fmt.Errorf("write audio: %w", err)
	}

	fields := map[string]string{
		"model":           w.config.Model,
		"response_format": "verbose_json",
	}
	if r.LanguageHint != "" {
		fields["language"] = r.LanguageHint
	}
	for k, v := range fields {
		if err := mw.WriteField(k, v); err != nil {
			return nil, "", fmt.Errorf("write field %s: %w", k, err)
		}
	}

	if err := mw.Close(); err != nil {
		return nil, "", fmt.Errorf("close form: %w", err)
	}
	return &buf, mw.FormDataContentType(), nil
}

// parseError reads and parses an error response.
func (w *Whisper) parseError(resp *http.Response) error {
	body, _ := io.ReadAll(resp.Body)

	var errResp struct {
		Error struct {
			Message string `json:"message"`
			Code    string `json:"code"`
		} `json:"error"`
	}

	message := string(body)
	code := ""
	if json.Unmarshal(body, &errResp) == nil && errResp.Error.Message != "" {
		message = errResp.Error.Message
		code = errResp.Error.Code
	}

	return &APIError{
		StatusCode: resp.StatusCode,
		Message:    message,
		Code:       code,
		Provider:   providerWhisper,
	}
}

// Verify Whisper implements Provider at compile time.
var _ Provider = (*Whisper)(nil)
