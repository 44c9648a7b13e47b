package log

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"WARN":    slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"":        slog.LevelInfo,
		"verbose": slog.LevelInfo,
	}
	for in, want := range tests {
		if got := ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestNewFormats(t *testing.T) {
	t.Setenv("GO_ENV", "")

	var buf bytes.Buffer
	New(&buf, "info", "json").Info("session started", "session_id", "s1")
	var rec map[string]any
	if err := json.Unmarshal(buf.Bytes(), &rec); err != nil {
		t.Fatalf("json output: %v (%s)", err, buf.String())
	}
	if rec["session_id"] != "s1" {
		t.Errorf("session_id = %v", rec["session_id"])
	}

	buf.Reset()
	l := New(&buf, "warn", "text")
	l.Info("hidden")
	l.Warn("shown", "component", "session.manager")
	out := buf.String()
	if strings.Contains(out, "hidden") || !strings.Contains(out, "component=session.manager") {
		t.Errorf("unexpected text output: %q", out)
	}
}

func TestProductionForcesJSON(t *testing.T) {
	t.Setenv("GO_ENV", "production")
	var buf bytes.Buffer
	New(&buf, "info", "text").Info("hello")
	if !strings.HasPrefix(strings.TrimSpace(buf.String()), "{") {
		t.Errorf("expected JSON in production, got %q", buf.String())
	}
}
