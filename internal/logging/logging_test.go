package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		" WARN ":  slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"":        slog.LevelInfo,
		"bogus":   slog.LevelInfo,
	}
	for input, want := range cases {
		if got := ParseLevel(input); got != want {
			t.Fatalf("ParseLevel(%q) = %v, want %v", input, got, want)
		}
	}
}

func TestNewWritesJSON(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&buf, "info", "json")
	logger.Debug("hidden")
	logger.Info("visible", "key", "value")

	var record map[string]any
	if err := json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &record); err != nil {
		t.Fatalf("expected a single JSON record, got %q: %v", buf.String(), err)
	}
	if record["msg"] != "visible" || record["key"] != "value" {
		t.Fatalf("unexpected record: %v", record)
	}
}

func TestContextRoundTrip(t *testing.T) {
	logger := Discard()
	ctx := ContextWithLogger(context.Background(), logger)
	if FromContext(ctx) != logger {
		t.Fatalf("expected logger to round trip through context")
	}
	if FromContext(context.Background()) != nil {
		t.Fatalf("expected nil logger for bare context")
	}
}
