package logging

import (
	"bytes"
	"context"
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
		{"info", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"error", slog.LevelError},
		{"unknown", slog.LevelInfo},
	}

	for _, tt := range tests {
		if got := ParseLevel(tt.input); got != tt.want {
			t.Fatalf("ParseLevel(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}
}

func TestLoggerWithContext(t *testing.T) {
	ctx := context.Background()
	ctx = ContextWithRequestID(ctx, "req-1")
	ctx = ContextWithTenantID(ctx, "acme")

	var buf bytes.Buffer
	base := NewWithWriter(slog.LevelInfo, "json", &buf)
	base.InfoCtx(ctx, "test message")

	output := buf.String()
	if !strings.Contains(output, `"request_id":"req-1"`) || !strings.Contains(output, `"tenant_id":"acme"`) {
		t.Fatalf("expected context fields in log output, got %q", output)
	}
}

func TestLoggerWithoutContextFields(t *testing.T) {
	var buf bytes.Buffer
	base := NewWithWriter(slog.LevelInfo, "json", &buf)
	base.WarnCtx(context.Background(), "plain")

	if strings.Contains(buf.String(), "tenant_id") {
		t.Fatalf("expected no tenant field, got %q", buf.String())
	}
	if TenantIDFromContext(context.Background()) != "" {
		t.Fatalf("expected empty tenant id")
	}
}

func TestLoggerFormats(t *testing.T) {
	tests := []struct {
		name   string
		format string
		prefix string
	}{
		{name: "json format", format: "json", prefix: "{"},
		{name: "text format", format: "text", prefix: "time="},
		{name: "default format", format: "", prefix: "time="},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			logger := NewWithWriter(slog.LevelInfo, tt.format, &buf)
			logger.Info("formatted output")

			if !strings.HasPrefix(buf.String(), tt.prefix) {
				t.Fatalf("expected output to start with %q, got %q", tt.prefix, buf.String())
			}
		})
	}

	var buf bytes.Buffer
	NewWithWriter(slog.LevelError, "json", &buf).DebugCtx(context.Background(), "hidden")
	if buf.Len() != 0 {
		t.Fatalf("expected debug to be filtered, got %q", buf.String())
	}
}
