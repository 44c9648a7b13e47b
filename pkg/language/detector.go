// Package language identifies the language of user utterances.
//
// Detection is advisory: Detect never fails. Empty, short, garbled,
// ambiguous or unsupported input resolves to the configured default language
// and the result is flagged as a fallback.
package language

import (
	"log/slog"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Detection is the outcome of language identification.
type Detection struct {
	// Code is a supported language code, never empty.
	Code string `json:"code"`

	// Confidence is the backend confidence for Code (0 on fallback).
	Confidence float64 `json:"confidence"`

	// Fallback is true when Code is the default rather than a detection.
	Fallback bool `json:"fallback"`
}

// Detector maps text onto a supported language code.
type Detector struct {
	cfg       *Config
	backend   Backend
	supported map[string]bool
	logger    *slog.Logger
}

// New creates a Detector. Without WithBackend it builds a lingua backend
// restricted to the supported languages.
func New(opts ...Option) (*Detector, error) {
	cfg := DefaultConfig()
	cfg.Apply(opts...)
	cfg.Default = Normalize(strings.ToLower(cfg.Default))
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	supported := make(map[string]bool, len(cfg.Supported))
	for _, code := range cfg.Supported {
		supported[Normalize(strings.ToLower(code))] = true
	}

	backend := cfg.Backend
	if backend == nil {
		backend = NewLingua(cfg.Supported, cfg.MinRelativeDistance)
	}

	return &Detector{
		cfg:       cfg,
		backend:   backend,
		supported: supported,
		logger:    cfg.Logger.With("component", "language.detector"),
	}, nil
}

// Default returns the fallback language code.
func (d *Detector) Default() string { return d.cfg.Default }

// IsSupported reports whether code is served.
func (d *Detector) IsSupported(code string) bool {
	return d.supported[Normalize(strings.ToLower(code))]
}

// Supported returns the served languages sorted by code.
func (d *Detector) Supported() []Info {
	out := make([]Info, 0, len(d.supported))
	for code := range d.supported {
		info, ok := Lookup(code)
		if !ok {
			info = Info{Code: code, Name: code, Greeting: d.Greeting(d.cfg.Default)}
		}
		out = append(out, info)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out
}

// Greeting returns the welcome line for code, or the default language's.
func (d *Detector) Greeting(code string) string {
	if info, ok := Lookup(code); ok && d.IsSupported(code) {
		return info.Greeting
	}
	if info, ok := Lookup(d.cfg.Default); ok {
		return info.Greeting
	}
	return catalog[DefaultLanguage].Greeting
}

// Name returns the English name for code, or the code itself.
func (d *Detector) Name(code string) string {
	if info, ok := Lookup(code); ok {
		return info.Name
	}
	return code
}

// Detect classifies text. It never fails.
func (d *Detector) Detect(text string) (det Detection) {
	fallback := Detection{Code: d.cfg.Default, Fallback: true}

	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("language detection panicked", "panic", r)
			det = fallback
		}
	}()

	if !utf8.ValidString(text) || !d.legible(text) {
		return fallback
	}

	code, confidence, ok := d.backend.Detect(text)
	if !ok {
		d.logger.Debug("language ambiguous, using default", "default", d.cfg.Default)
		return fallback
	}
	if confidence < d.cfg.MinConfidence {
		d.logger.Debug("language confidence too low", "code", code, "confidence", confidence)
		return fallback
	}

	code = Normalize(strings.ToLower(code))
	if !d.supported[code] {
		d.logger.Warn("unsupported language detected, using default", "code", code, "default", d.cfg.Default)
		return fallback
	}
	return Detection{Code: code, Confidence: confidence}
}

// legible reports whether text looks like words. Control characters and
// replacement runes disqualify it, as does a low share of letters among the
// visible runes.
func (d *Detector) legible(text string) bool {
	letters, visible := 0, 0
	for _, r := range text {
		switch {
		case unicode.IsSpace(r), unicode.Is(unicode.Cf, r):
			continue
		case unicode.IsControl(r), r == utf8.RuneError, !unicode.IsGraphic(r):
			return false
		case unicode.IsLetter(r), unicode.IsMark(r):
			letters++
		}
		visible++
	}
	if letters < d.cfg.MinLength {
		return false
	}
	return float64(letters) >= d.cfg.MinLetterRatio*float64(visible)
}
