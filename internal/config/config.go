// Package config loads companion settings from an optional YAML file,
// COMPANION_* environment variables and a local .env file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/teslashibe/go-companion/pkg/language"
	"github.com/teslashibe/go-companion/pkg/reply"
)

// EnvPrefix namespaces environment variables: session.idle_timeout is read
// from COMPANION_SESSION_IDLE_TIMEOUT.
const EnvPrefix = "COMPANION"

// Config holds the complete application configuration.
type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Log        LogConfig        `mapstructure:"log"`
	Session    SessionConfig    `mapstructure:"session"`
	Language   LanguageConfig   `mapstructure:"language"`
	Voice      VoiceConfig      `mapstructure:"voice"`
	STT        STTConfig        `mapstructure:"stt"`
	TTS        TTSConfig        `mapstructure:"tts"`
	LLM        LLMConfig        `mapstructure:"llm"`
	Meeting    MeetingConfig    `mapstructure:"meeting"`
	Billing    BillingConfig    `mapstructure:"billing"`
	Checkpoint CheckpointConfig `mapstructure:"checkpoint"`
	Metrics    MetricsConfig    `mapstructure:"metrics"`

	// Profiles adds per-user context to reply prompts, keyed by user id.
	Profiles map[string]reply.Profile `mapstructure:"profiles"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Addr        string `mapstructure:"addr"`
	JWTSecret   string `mapstructure:"jwt_secret"`
	CORSOrigins string `mapstructure:"cors_origins"`
}

// LogConfig configures the process logger.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // text, json
}

// SessionConfig configures session lifecycle.
type SessionConfig struct {
	IdleTimeout   time.Duration `mapstructure:"idle_timeout"`
	HardTimeout   time.Duration `mapstructure:"hard_timeout"`
	DrainGrace    time.Duration `mapstructure:"drain_grace"`
	Retention     time.Duration `mapstructure:"retention"`
	SweepSchedule string        `mapstructure:"sweep_schedule"`
	HistoryPairs  int           `mapstructure:"history_pairs"`
	LanguageHint  bool          `mapstructure:"language_hint"`
}

// LanguageConfig configures detection.
type LanguageConfig struct {
	Default       string   `mapstructure:"default"`
	Supported     []string `mapstructure:"supported"`
	MinConfidence float64  `mapstructure:"min_confidence"`
	// MinRelativeDistance below which detection is treated as ambiguous.
	MinRelativeDistance float64 `mapstructure:"min_relative_distance"`
	// Templates overrides reply preambles by language code.
	Templates map[string]string `mapstructure:"templates"`
}

// VoiceConfig bounds the speech stages.
type VoiceConfig struct {
	TranscriptionTimeout time.Duration `mapstructure:"transcription_timeout"`
	SynthesisTimeout     time.Duration `mapstructure:"synthesis_timeout"`
	MaxAudioBytes        int           `mapstructure:"max_audio_bytes"`
}

// STTConfig selects the speech recognizer.
type STTConfig struct {
	Provider        string `mapstructure:"provider"` // whisper, google, mock
	APIKey          string `mapstructure:"api_key"`
	BaseURL         string `mapstructure:"base_url"`
	CredentialsFile string `mapstructure:"credentials_file"`
	Model           string `mapstructure:"model"`
}

// TTSConfig selects the speech synthesizers. Providers are tried in order
// by language support.
type TTSConfig struct {
	Providers       []string          `mapstructure:"providers"` // elevenlabs, openai, google, mock
	ElevenLabsKey   string            `mapstructure:"elevenlabs_key"`
	ElevenLabsVoice string            `mapstructure:"elevenlabs_voice"`
	ElevenLabsModel string            `mapstructure:"elevenlabs_model"`
	OpenAIKey       string            `mapstructure:"openai_key"`
	OpenAIVoice     string            `mapstructure:"openai_voice"`
	GoogleKey       string            `mapstructure:"google_key"`
	GoogleCredFile  string            `mapstructure:"google_credentials_file"`
	LanguageVoices  map[string]string `mapstructure:"language_voices"`
	RequestTimeout  time.Duration     `mapstructure:"request_timeout"`
}

// LLMConfig selects the text-generation service.
type LLMConfig struct {
	Provider    string        `mapstructure:"provider"` // openai, gemini, mock
	APIKey      string        `mapstructure:"api_key"`
	BaseURL     string        `mapstructure:"base_url"`
	Model       string        `mapstructure:"model"`
	MaxTokens   int           `mapstructure:"max_tokens"`
	Temperature float64       `mapstructure:"temperature"`
	Timeout     time.Duration `mapstructure:"timeout"`
}

// MeetingConfig selects the call host.
type MeetingConfig struct {
	Provider       string        `mapstructure:"provider"` // webrtc, zoom, google_meet, mock
	ReleaseTimeout time.Duration `mapstructure:"release_timeout"`
	JoinBaseURL    string        `mapstructure:"join_base_url"`
	ICEServers     []string      `mapstructure:"ice_servers"`

	ZoomAccountID    string `mapstructure:"zoom_account_id"`
	ZoomClientID     string `mapstructure:"zoom_client_id"`
	ZoomClientSecret string `mapstructure:"zoom_client_secret"`

	GoogleClientID     string `mapstructure:"google_client_id"`
	GoogleClientSecret string `mapstructure:"google_client_secret"`
	GoogleTokenPath    string `mapstructure:"google_token_path"`
}

// BillingConfig selects the capability gate.
type BillingConfig struct {
	Provider    string            `mapstructure:"provider"` // none, static, stripe
	DefaultTier string            `mapstructure:"default_tier"`
	Tiers       map[string]string `mapstructure:"tiers"`
	StripeKey   string            `mapstructure:"stripe_key"`
}

// CheckpointConfig selects session persistence.
type CheckpointConfig struct {
	Driver    string `mapstructure:"driver"` // none, file, sqlite, postgres, redis
	Path      string `mapstructure:"path"`
	DSN       string `mapstructure:"dsn"`
	RedisURL  string `mapstructure:"redis_url"`
	KeyPrefix string `mapstructure:"key_prefix"`
}

// MetricsConfig configures Prometheus metrics.
type MetricsConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	Namespace string `mapstructure:"namespace"`
}

// Errors returned by Validate.
var (
	ErrInvalidTimeout  = errors.New("config: invalid timeout")
	ErrInvalidLanguage = errors.New("config: invalid language settings")
	ErrInvalidValue    = errors.New("config: invalid value")
)

// DefaultConfig returns a new configuration with default values.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{Addr: ":8080", CORSOrigins: "*"},
		Log:    LogConfig{Level: "info", Format: "text"},
		Session: SessionConfig{
			IdleTimeout:   2 * time.Minute,
			HardTimeout:   15 * time.Minute,
			DrainGrace:    5 * time.Second,
			Retention:     15 * time.Minute,
			SweepSchedule: "@every 30s",
			HistoryPairs:  5,
		},
		Language: LanguageConfig{
			Default:             language.DefaultLanguage,
			Supported:           language.DefaultSupported(),
			MinRelativeDistance: language.DefaultMinRelativeDistance,
		},
		Voice: VoiceConfig{
			TranscriptionTimeout: 15 * time.Second,
			SynthesisTimeout:     15 * time.Second,
			MaxAudioBytes:        4 << 20,
		},
		STT: STTConfig{Provider: "whisper"},
		TTS: TTSConfig{
			Providers:      []string{"elevenlabs", "openai"},
			RequestTimeout: 30 * time.Second,
		},
		LLM: LLMConfig{
			Provider:    "openai",
			Model:       "gpt-4o-mini",
			MaxTokens:   300,
			Temperature: 0.7,
			Timeout:     30 * time.Second,
		},
		Meeting: MeetingConfig{
			Provider:       "webrtc",
			ReleaseTimeout: 10 * time.Second,
		},
		Billing:    BillingConfig{Provider: "none", DefaultTier: "free"},
		Checkpoint: CheckpointConfig{Driver: "none", Path: "companion-sessions.json"},
		Metrics:    MetricsConfig{Enabled: true, Namespace: "companion"},
	}
}

// Load reads configuration. configPath may be empty, in which case
// ./companion.yaml is used when present. A .env file in the working
// directory is loaded first; existing environment variables win.
func Load(configPath string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("config: load .env: %w", err)
	}

	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Provider credentials under their conventional names.
	v.BindEnv("llm.api_key", "COMPANION_LLM_API_KEY", "OPENAI_API_KEY")
	v.BindEnv("stt.api_key", "COMPANION_STT_API_KEY", "OPENAI_API_KEY")
	v.BindEnv("tts.openai_key", "COMPANION_TTS_OPENAI_KEY", "OPENAI_API_KEY")
	v.BindEnv("tts.elevenlabs_key", "COMPANION_TTS_ELEVENLABS_KEY", "ELEVENLABS_API_KEY")
	v.BindEnv("tts.google_key", "COMPANION_TTS_GOOGLE_KEY", "GOOGLE_API_KEY")
	v.BindEnv("billing.stripe_key", "COMPANION_BILLING_STRIPE_KEY", "STRIPE_SECRET_KEY")
	v.BindEnv("checkpoint.dsn", "COMPANION_CHECKPOINT_DSN", "DATABASE_URL")
	v.BindEnv("server.jwt_secret", "COMPANION_SERVER_JWT_SECRET", "JWT_SECRET")

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("companion")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	// Read config file (ignore if not found)
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("config: read %s: %w", v.ConfigFileUsed(), err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: decode: %w", err)
	}
	cfg.Language.Supported = splitList(cfg.Language.Supported)
	cfg.TTS.Providers = splitList(cfg.TTS.Providers)
	cfg.Meeting.ICEServers = splitList(cfg.Meeting.ICEServers)
	return &cfg, nil
}

// Validate rejects settings the engine cannot run with.
func (c *Config) Validate() error {
	s := c.Session
	switch {
	case s.IdleTimeout <= 0, s.DrainGrace <= 0, s.Retention < 0:
		return fmt.Errorf("%w: session timeouts must be positive", ErrInvalidTimeout)
	case s.HardTimeout <= s.IdleTimeout:
		return fmt.Errorf("%w: hard timeout %s must exceed idle timeout %s", ErrInvalidTimeout, s.HardTimeout, s.IdleTimeout)
	case c.Voice.TranscriptionTimeout <= 0, c.Voice.SynthesisTimeout <= 0, c.LLM.Timeout <= 0:
		return fmt.Errorf("%w: stage timeouts must be positive", ErrInvalidTimeout)
	case s.HistoryPairs <= 0:
		return fmt.Errorf("%w: history_pairs must be positive", ErrInvalidValue)
	case c.Voice.MaxAudioBytes <= 0:
		return fmt.Errorf("%w: max_audio_bytes must be positive", ErrInvalidValue)
	}

	if len(c.Language.Supported) == 0 {
		return fmt.Errorf("%w: no supported languages", ErrInvalidLanguage)
	}
	if d := c.Language.MinRelativeDistance; d < 0 || d > 0.99 {
		return fmt.Errorf("%w: min_relative_distance must be in [0, 0.99]", ErrInvalidLanguage)
	}
	def := language.Normalize(strings.ToLower(c.Language.Default))
	found := false
	for _, code := range c.Language.Supported {
		if language.Normalize(strings.ToLower(code)) == def {
			found = true
			break
		}
	}
	if !found {
		return fmt.Errorf("%w: default %q is not supported", ErrInvalidLanguage, c.Language.Default)
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	d := DefaultConfig()
	v.SetDefault("server.addr", d.Server.Addr)
	v.SetDefault("server.jwt_secret", "")
	v.SetDefault("server.cors_origins", d.Server.CORSOrigins)
	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.format", d.Log.Format)
	v.SetDefault("session.idle_timeout", d.Session.IdleTimeout)
	v.SetDefault("session.hard_timeout", d.Session.HardTimeout)
	v.SetDefault("session.drain_grace", d.Session.DrainGrace)
	v.SetDefault("session.retention", d.Session.Retention)
	v.SetDefault("session.sweep_schedule", d.Session.SweepSchedule)
	v.SetDefault("session.history_pairs", d.Session.HistoryPairs)
	v.SetDefault("session.language_hint", d.Session.LanguageHint)
	v.SetDefault("language.default", d.Language.Default)
	v.SetDefault("language.supported", d.Language.Supported)
	v.SetDefault("language.min_confidence", d.Language.MinConfidence)
	v.SetDefault("language.min_relative_distance", d.Language.MinRelativeDistance)
	v.SetDefault("voice.transcription_timeout", d.Voice.TranscriptionTimeout)
	v.SetDefault("voice.synthesis_timeout", d.Voice.SynthesisTimeout)
	v.SetDefault("voice.max_audio_bytes", d.Voice.MaxAudioBytes)
	v.SetDefault("stt.provider", d.STT.Provider)
	v.SetDefault("stt.api_key", "")
	v.SetDefault("stt.base_url", "")
	v.SetDefault("stt.credentials_file", "")
	v.SetDefault("stt.model", "")
	v.SetDefault("tts.providers", d.TTS.Providers)
	v.SetDefault("tts.elevenlabs_key", "")
	v.SetDefault("tts.elevenlabs_voice", "")
	v.SetDefault("tts.elevenlabs_model", "")
	v.SetDefault("tts.openai_key", "")
	v.SetDefault("tts.openai_voice", "")
	v.SetDefault("tts.google_key", "")
	v.SetDefault("tts.google_credentials_file", "")
	v.SetDefault("tts.request_timeout", d.TTS.RequestTimeout)
	v.SetDefault("llm.provider", d.LLM.Provider)
	v.SetDefault("llm.api_key", "")
	v.SetDefault("llm.base_url", "")
	v.SetDefault("llm.model", d.LLM.Model)
	v.SetDefault("llm.max_tokens", d.LLM.MaxTokens)
	v.SetDefault("llm.temperature", d.LLM.Temperature)
	v.SetDefault("llm.timeout", d.LLM.Timeout)
	v.SetDefault("meeting.provider", d.Meeting.Provider)
	v.SetDefault("meeting.release_timeout", d.Meeting.ReleaseTimeout)
	v.SetDefault("meeting.join_base_url", "")
	v.SetDefault("meeting.ice_servers", []string{})
	v.SetDefault("meeting.zoom_account_id", "")
	v.SetDefault("meeting.zoom_client_id", "")
	v.SetDefault("meeting.zoom_client_secret", "")
	v.SetDefault("meeting.google_client_id", "")
	v.SetDefault("meeting.google_client_secret", "")
	v.SetDefault("meeting.google_token_path", "")
	v.SetDefault("billing.provider", d.Billing.Provider)
	v.SetDefault("billing.default_tier", d.Billing.DefaultTier)
	v.SetDefault("billing.stripe_key", "")
	v.SetDefault("checkpoint.driver", d.Checkpoint.Driver)
	v.SetDefault("checkpoint.path", d.Checkpoint.Path)
	v.SetDefault("checkpoint.dsn", "")
	v.SetDefault("checkpoint.redis_url", "")
	v.SetDefault("checkpoint.key_prefix", "")
	v.SetDefault("metrics.enabled", d.Metrics.Enabled)
	v.SetDefault("metrics.namespace", d.Metrics.Namespace)
}

// splitList accepts both YAML lists and comma-separated env values.
func splitList(in []string) []string {
	var out []string
	for _, item := range in {
		for _, part := range strings.Split(item, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}
