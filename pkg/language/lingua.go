package language

import (
	"strings"

	"github.com/pemistahl/lingua-go"
)

// Backend performs raw language identification.
type Backend interface {
	// Detect returns an ISO 639-1 code (lowercase) and a confidence in [0, 1].
	// ok is false when the text could not be attributed to a language.
	Detect(text string) (code string, confidence float64, ok bool)
}

// Lingua is a Backend built on lingua-go, restricted to a set of languages.
type Lingua struct {
	detector lingua.LanguageDetector
}

var _ Backend = (*Lingua)(nil)

// NewLingua builds a lingua detector for the given ISO 639-1 codes.
// Codes lingua does not know are ignored; with fewer than two known
// languages the detector considers every language.
func NewLingua(codes []string, minRelativeDistance float64) *Lingua {
	want := make(map[string]bool, len(codes))
	for _, c := range codes {
		c = strings.ToLower(c)
		want[c] = true
		if c == "no" {
			want["nb"], want["nn"] = true, true
		}
	}

	var langs []lingua.Language
	for _, l := range lingua.AllLanguages() {
		if want[strings.ToLower(l.IsoCode639_1().String())] {
			langs = append(langs, l)
		}
	}

	if len(langs) < 2 {
		langs = lingua.AllLanguages()
	}
	detector := lingua.NewLanguageDetectorBuilder().
		FromLanguages(langs...).
		WithMinimumRelativeDistance(minRelativeDistance).
		Build()
	return &Lingua{detector: detector}
}

// Detect implements Backend.
func (l *Lingua) Detect(text string) (string, float64, bool) {
	lang, ok := l.detector.DetectLanguageOf(text)
	if !ok {
		return "", 0, false
	}
	confidence := l.detector.ComputeLanguageConfidence(text, lang)
	return strings.ToLower(lang.IsoCode639_1().String()), confidence, true
}
