package language

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubBackend struct {
	code       string
	confidence float64
	ok         bool
	panics     bool
	calls      int
}

func (s *stubBackend) Detect(string) (string, float64, bool) {
	s.calls++
	if s.panics {
		panic("model failure")
	}
	return s.code, s.confidence, s.ok
}

func newStub(t *testing.T, b *stubBackend, opts ...Option) *Detector {
	t.Helper()
	d, err := New(append([]Option{WithBackend(b)}, opts...)...)
	require.NoError(t, err)
	return d
}

func TestDetect(t *testing.T) {
	tests := []struct {
		name     string
		backend  stubBackend
		text     string
		want     string
		fallback bool
	}{
		{"empty", stubBackend{code: "fr", ok: true}, "", "en", true},
		{"short", stubBackend{code: "fr", ok: true}, "ok", "en", true},
		{"garbage bytes", stubBackend{code: "fr", ok: true}, string([]byte{0xff, 0xfe, 0xfd, 0x00, 0x81}), "en", true},
		{"no letters", stubBackend{code: "fr", ok: true}, "1234 !!! ???", "en", true},
		{"control characters", stubBackend{code: "pl", confidence: 0.3, ok: true}, "\x01\x02abc\x7f", "en", true},
		{"replacement runes", stubBackend{code: "pl", confidence: 0.3, ok: true}, "abc\uFFFDdef", "en", true},
		{"mostly symbols", stubBackend{code: "fr", confidence: 0.3, ok: true}, "a1b2c3 #### **** 9876", "en", true},
		{"words with emoji", stubBackend{code: "en", confidence: 0.9, ok: true}, "I feel 😢 today", "en", false},
		{"words with punctuation", stubBackend{code: "fr", confidence: 0.8, ok: true}, "Ça va... merci !", "fr", false},
		{"ambiguous", stubBackend{ok: false}, "hello there", "en", true},
		{"unsupported", stubBackend{code: "la", confidence: 0.9, ok: true}, "lorem ipsum dolor", "en", true},
		{"panic", stubBackend{panics: true}, "some text", "en", true},
		{"detected", stubBackend{code: "fr", confidence: 0.8, ok: true}, "Je suis triste", "fr", false},
		{"uppercase code", stubBackend{code: "DE", confidence: 0.8, ok: true}, "Mir geht es gut", "de", false},
		{"alias", stubBackend{code: "nb", confidence: 0.8, ok: true}, "Jeg er lei meg", "no", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := tt.backend
			d := newStub(t, &b)
			got := d.Detect(tt.text)
			assert.Equal(t, tt.want, got.Code)
			assert.Equal(t, tt.fallback, got.Fallback)
		})
	}
}

func TestDetectSkipsBackendForShortInput(t *testing.T) {
	b := &stubBackend{code: "fr", ok: true}
	d := newStub(t, b)
	d.Detect("  a ")
	assert.Equal(t, 0, b.calls)
}

func TestDetectSkipsBackendForNoise(t *testing.T) {
	for _, text := range []string{"\x01\x02abc\x7f", "abc\tdef\x00", "%%%% $$ ab"} {
		b := &stubBackend{code: "fr", ok: true}
		d := newStub(t, b)
		assert.Equal(t, Detection{Code: "en", Fallback: true}, d.Detect(text), "%q", text)
		assert.Equal(t, 0, b.calls, "%q", text)
	}
}

func TestMinConfidence(t *testing.T) {
	b := &stubBackend{code: "fr", confidence: 0.3, ok: true}
	d := newStub(t, b, WithMinConfidence(0.5))
	assert.Equal(t, Detection{Code: "en", Fallback: true}, d.Detect("Je suis triste"))
}

func TestCustomDefault(t *testing.T) {
	b := &stubBackend{ok: false}
	d := newStub(t, b, WithDefault("es"), WithSupported("en", "es"))
	assert.Equal(t, "es", d.Detect("").Code)
	assert.Equal(t, "es", d.Default())
}

func TestNewValidation(t *testing.T) {
	_, err := New(WithBackend(&stubBackend{}), WithSupported())
	assert.ErrorIs(t, err, ErrNoLanguages)

	_, err = New(WithBackend(&stubBackend{}), WithSupported("fr", "de"))
	assert.ErrorIs(t, err, ErrUnsupportedDefault)

	_, err = New(WithBackend(&stubBackend{}), WithMinRelativeDistance(1))
	assert.ErrorIs(t, err, ErrInvalidThreshold)
}

func TestDefaultThresholds(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, DefaultMinRelativeDistance, cfg.MinRelativeDistance)
	assert.Greater(t, cfg.MinRelativeDistance, 0.0)
	assert.Equal(t, DefaultMinLetterRatio, cfg.MinLetterRatio)
}

func TestCatalog(t *testing.T) {
	d := newStub(t, &stubBackend{}, WithSupported("en", "fr", "xx"))

	assert.True(t, d.IsSupported("FR"))
	assert.False(t, d.IsSupported("de"))
	assert.Contains(t, d.Greeting("fr"), "Bonjour")
	assert.Contains(t, d.Greeting("de"), "Hello", "unsupported language falls back to default greeting")
	assert.Equal(t, "French", d.Name("fr"))
	assert.Equal(t, "xx", d.Name("xx"))

	list := d.Supported()
	require.Len(t, list, 3)
	assert.Equal(t, "en", list[0].Code)
	assert.Equal(t, "xx", list[2].Code)
	assert.Len(t, DefaultSupported(), 20)
}

func TestLingua(t *testing.T) {
	if testing.Short() {
		t.Skip("loads language models")
	}

	d, err := New()
	require.NoError(t, err)

	tests := []struct{ want, text string }{
		{"en", "I feel anxious today and I do not know why"},
		{"fr", "Je suis triste"},
		{"de", "Ich fühle mich heute sehr allein und müde"},
		{"es", "Me siento muy solo y cansado esta semana"},
		{"ru", "Мне сегодня очень грустно"},
		{"ja", "今日はとても疲れていて、少し悲しいです"},
		{"nl", "Vandaag voel ik me erg verdrietig en alleen"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			got := d.Detect(tt.text)
			assert.Equal(t, tt.want, got.Code)
			assert.False(t, got.Fallback)
		})
	}

	for _, text := range []string{"asdf jkl", "lol ok", "\x01\x02abc\x7f", "#$%^ qz !!"} {
		t.Run("noise "+text, func(t *testing.T) {
			got := d.Detect(text)
			assert.Equal(t, "en", got.Code)
			assert.True(t, got.Fallback)
		})
	}
}
