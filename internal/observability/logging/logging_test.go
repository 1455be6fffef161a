package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"
)

func TestNewWritesJSONByDefault(t *testing.T) {
	var buffer bytes.Buffer
	logger := New(Config{Writer: &buffer})
	logger.Info("hello", "key", "value")

	var entry map[string]interface{}
	if err := json.Unmarshal(buffer.Bytes(), &entry); err != nil {
		t.Fatalf("expected JSON log line, got %q: %v", buffer.String(), err)
	}
	if entry["msg"] != "hello" || entry["key"] != "value" {
		t.Fatalf("unexpected log entry: %v", entry)
	}
}

func TestNewTextFormat(t *testing.T) {
	var buffer bytes.Buffer
	logger := New(Config{Writer: &buffer, Format: "text"})
	logger.Info("hello")
	if !strings.Contains(buffer.String(), "msg=hello") {
		t.Fatalf("expected text format, got %q", buffer.String())
	}
}

func TestLevelFiltering(t *testing.T) {
	var buffer bytes.Buffer
	logger := New(Config{Writer: &buffer, Level: "error"})
	logger.Info("dropped")
	if buffer.Len() != 0 {
		t.Fatalf("info line should be filtered at error level: %q", buffer.String())
	}
	logger.Error("kept")
	if buffer.Len() == 0 {
		t.Fatal("error line should pass the filter")
	}
}

func TestWithContextAnnotatesRequestID(t *testing.T) {
	var buffer bytes.Buffer
	logger := New(Config{Writer: &buffer})

	ctx := ContextWithRequestID(context.Background(), "req-42")
	WithContext(ctx, logger).Info("handled")

	var entry map[string]interface{}
	if err := json.Unmarshal(buffer.Bytes(), &entry); err != nil {
		t.Fatalf("decode log line: %v", err)
	}
	if entry["request_id"] != "req-42" {
		t.Fatalf("expected request id annotation, got %v", entry)
	}
}

func TestContextLoggerRoundTrip(t *testing.T) {
	logger := New(Config{})
	ctx := ContextWithLogger(context.Background(), logger)
	if got := LoggerFromContext(ctx); got != logger {
		t.Fatal("expected stored logger back from context")
	}
	if got := LoggerFromContext(context.Background()); got != nil {
		t.Fatal("expected nil logger for bare context")
	}
}

func TestContextWithRequestIDIgnoresBlank(t *testing.T) {
	ctx := ContextWithRequestID(context.Background(), "   ")
	if _, ok := RequestIDFromContext(ctx); ok {
		t.Fatal("blank request id should not be stored")
	}
}
