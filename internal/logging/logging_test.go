package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input string
		want  slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"DEBUG", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"ERROR", slog.LevelError},
		{"unknown", slog.LevelInfo},
		{"", slog.LevelInfo},
	}

	for _, tt := range tests {
		got := ParseLevel(tt.input)
		if got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}
}

func TestNewJSON(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf, "JSON", slog.LevelInfo)
	l.Info("feature modelized", "feature", "Thread1")

	var m map[string]any
	if err := json.Unmarshal(buf.Bytes(), &m); err != nil {
		t.Fatalf("output is not JSON: %v (%q)", err, buf.String())
	}
	if m["feature"] != "Thread1" {
		t.Errorf("feature = %v, want Thread1", m["feature"])
	}
}

func TestNewTextFiltersLevel(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf, "text", slog.LevelWarn)
	l.Info("hidden")
	l.Warn("shown", "feature", "Thread2")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("info record should be filtered: %q", out)
	}
	if !strings.Contains(out, "feature=Thread2") {
		t.Errorf("missing warn record: %q", out)
	}
}

func TestInitSetsDefault(t *testing.T) {
	prev := slog.Default()
	defer slog.SetDefault(prev)

	var buf bytes.Buffer
	Init(&buf, "text", slog.LevelDebug)
	slog.Debug("via default")
	if !strings.Contains(buf.String(), "via default") {
		t.Errorf("default logger not installed: %q", buf.String())
	}
}
