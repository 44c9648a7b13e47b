package voice

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/teslashibe/go-companion/pkg/stt"
	"github.com/teslashibe/go-companion/pkg/tts"
)

// Bridge wraps a speech recognizer and a speech synthesizer.
type Bridge struct {
	recognizer  stt.Provider
	synthesizer tts.Provider
	config      *Config
	logger      *slog.Logger
}

// New creates a bridge over the given providers.
func New(recognizer stt.Provider, synthesizer tts.Provider, opts ...Option) (*Bridge, error) {
	if recognizer == nil {
		return nil, ErrNoRecognizer
	}
	if synthesizer == nil {
		return nil, ErrNoSynthesizer
	}

	cfg := DefaultConfig()
	cfg.Apply(opts...)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &Bridge{
		recognizer:  recognizer,
		synthesizer: synthesizer,
		config:      cfg,
		logger:      cfg.Logger.With("component", "voice.bridge"),
	}, nil
}

// ValidateAudio rejects payloads that cannot be an utterance before any
// provider is called.
func (b *Bridge) ValidateAudio(audio []byte) error {
	switch {
	case len(audio) == 0:
		return ErrEmptyAudio
	case len(audio) > b.config.MaxAudioBytes:
		return fmt.Errorf("%w: %d > %d bytes", ErrAudioTooLarge, len(audio), b.config.MaxAudioBytes)
	}
	return nil
}

// Transcribe converts one utterance to text. Empty or unintelligible audio
// fails with ErrTranscriptionFailed.
func (b *Bridge) Transcribe(ctx context.Context, audio []byte, hint string) (string, error) {
	if err := b.ValidateAudio(audio); err != nil {
		return "", fmt.Errorf("%w: %w", ErrTranscriptionFailed, err)
	}

	stageCtx, cancel := context.WithTimeout(ctx, b.config.TranscriptionTimeout)
	defer cancel()

	t, err := b.recognizer.Transcribe(stageCtx, &stt.Request{Audio: audio, LanguageHint: hint})
	if err != nil {
		err = classify(stageCtx, err, ErrTranscriptionFailed, ErrTranscriptionTimeout)
		b.logger.Warn("transcription failed", "provider", b.recognizer.Name(), "error", err)
		return "", err
	}

	text := strings.TrimSpace(t.Text)
	if text == "" {
		return "", fmt.Errorf("%w: %w", ErrTranscriptionFailed, stt.ErrNoSpeech)
	}
	return text, nil
}

// Synthesize speaks text in language. A language the synthesizer cannot
// speak fails with ErrSynthesisFailed without calling the provider.
func (b *Bridge) Synthesize(ctx context.Context, text, language string) ([]byte, error) {
	if !b.synthesizer.Supports(language) {
		return nil, fmt.Errorf("%w: %w: %s", ErrSynthesisFailed, tts.ErrUnsupportedLanguage, language)
	}

	stageCtx, cancel := context.WithTimeout(ctx, b.config.SynthesisTimeout)
	defer cancel()

	res, err := b.synthesizer.Synthesize(stageCtx, &tts.Request{Text: text, Language: language})
	if err != nil {
		err = classify(stageCtx, err, ErrSynthesisFailed, ErrSynthesisTimeout)
		b.logger.Warn("synthesis failed", "provider", b.synthesizer.Name(), "language", language, "error", err)
		return nil, err
	}
	if len(res.Audio) == 0 {
		return nil, fmt.Errorf("%w: provider returned no audio", ErrSynthesisFailed)
	}
	return res.Audio, nil
}

// SupportsLanguage reports whether replies in language can be spoken.
func (b *Bridge) SupportsLanguage(language string) bool {
	return b.synthesizer.Supports(language)
}

// Close closes both providers and returns the first error.
func (b *Bridge) Close() error {
	err := b.recognizer.Close()
	if serr := b.synthesizer.Close(); err == nil {
		err = serr
	}
	return err
}
