package logger

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"
)

func TestNewJSONWritesStructuredRecord(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf, "debug", "json")

	l.Debug("loaded", "tenant", "t-1")

	out := buf.String()
	if !strings.Contains(out, `"msg":"loaded"`) {
		t.Fatalf("expected json message, got %q", out)
	}
	if !strings.Contains(out, `"tenant":"t-1"`) {
		t.Fatalf("expected tenant attribute, got %q", out)
	}
}

func TestContextLogger(t *testing.T) {
	var buf bytes.Buffer
	custom := New(&buf, "info", "text").With("request_id", "12345")

	ctx := WithContext(context.Background(), custom)
	FromContext(ctx).Info("hello")

	if !strings.Contains(buf.String(), "request_id=12345") {
		t.Fatalf("expected request id on context logger, got %q", buf.String())
	}
	if FromContext(context.Background()) != L {
		t.Fatal("expected global logger when context carries none")
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input    string
		expected slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"INFO", slog.LevelInfo},
		{"Warn", slog.LevelWarn},
		{"error", slog.LevelError},
		{"verbose", slog.LevelInfo},
	}
	for _, tt := range tests {
		if got := parseLevel(tt.input); got != tt.expected {
			t.Errorf("parseLevel(%q) = %v, want %v", tt.input, got, tt.expected)
		}
	}
}
