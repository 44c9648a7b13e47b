// Package stt provides a unified interface for speech-to-text providers.
//
// Two hosted recognizers are supported: OpenAI Whisper and Google Cloud
// Speech-to-Text. Both accept a whole utterance and return its transcript;
// streaming recognition is not offered.
//
// Example usage:
//
//	provider, _ := stt.NewWhisper(stt.WithAPIKey(os.Getenv("OPENAI_API_KEY")))
//	defer provider.Close()
//
//	t, _ := provider.Transcribe(ctx, &stt.Request{Audio: wav, LanguageHint: "fr"})
//	fmt.Println(t.Text)
package stt

import (
	"bytes"
	"context"
	"time"
)

// Provider defines the STT provider interface.
type Provider interface {
	// Name identifies the provider in logs and errors.
	Name() string

	// Transcribe converts one utterance to text.
	Transcribe(ctx context.Context, req *Request) (*Transcript, error)

	// Close releases any resources held by the provider.
	Close() error
}

// Request is a transcription input.
type Request struct {
	// Audio is an encoded utterance (WAV, WebM/Opus, OGG, MP3 or FLAC).
	Audio []byte

	// LanguageHint is the ISO 639-1 code the speaker most likely uses.
	// Empty lets the provider detect the language.
	LanguageHint string
}

// Transcript is the result of a transcription.
type Transcript struct {
	// Text is the recognized text, trimmed.
	Text string

	// Language is the language reported by the provider, if any.
	Language string

	// Confidence is the provider's confidence in [0, 1], or 0 when unknown.
	Confidence float64

	// Latency is the wall time spent in the provider call.
	Latency time.Duration

	// Provider is the name of the provider that produced the transcript.
	Provider string
}

// Container identifies the container format of an encoded utterance.
type Container string

const (
	ContainerWAV     Container = "wav"
	ContainerWebM    Container = "webm"
	ContainerOgg     Container = "ogg"
	ContainerMP3     Container = "mp3"
	ContainerFLAC    Container = "flac"
	ContainerUnknown Container = ""
)

// Sniff identifies the container of audio from its magic bytes.
func Sniff(audio []byte) Container {
	switch {
	case len(audio) >= 12 && bytes.Equal(audio[:4], []byte("RIFF")) && bytes.Equal(audio[8:12], []byte("WAVE")):
		return ContainerWAV
	case len(audio) >= 4 && bytes.Equal(audio[:4], []byte{0x1A, 0x45, 0xDF, 0xA3}):
		return ContainerWebM
	case len(audio) >= 4 && bytes.Equal(audio[:4], []byte("OggS")):
		return ContainerOgg
	case len(audio) >= 4 && bytes.Equal(audio[:4], []byte("fLaC")):
		return ContainerFLAC
	case len(audio) >= 3 && bytes.Equal(audio[:3], []byte("ID3")):
		return ContainerMP3
	case len(audio) >= 2 && audio[0] == 0xFF && audio[1]&0xE0 == 0xE0:
		return ContainerMP3
	default:
		return ContainerUnknown
	}
}
