package audit

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"shopcore.dev/internal/auth"
	"shopcore.dev/internal/obs"
)

func TestLogEvent(t *testing.T) {
	logger := obs.Logger()
	original := logger.Writer()
	logger.SetFlags(0)
	var buf bytes.Buffer
	logger.SetOutput(&buf)
	defer logger.SetOutput(original)

	ctx := WithRequestID(context.Background(), "req-123")
	ctx = auth.ContextWithUser(ctx, &auth.User{
		ID:   "user_42",
		Role: &auth.Role{ID: "role_1", Name: "admin"},
	})

	if err := LogEvent(ctx, "user.delete", map[string]any{"target": "user_7"}); err != nil {
		t.Fatalf("LogEvent failed: %v", err)
	}

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("log not valid JSON: %v", err)
	}
	if entry["type"] != "audit" || entry["event"] != "user.delete" {
		t.Fatalf("unexpected entry: %v", entry)
	}
	if entry["request_id"] != "req-123" {
		t.Fatalf("unexpected request id: %v", entry["request_id"])
	}
	if entry["actor_id"] != "user_42" || entry["actor_role"] != "admin" {
		t.Fatalf("unexpected actor: %v", entry)
	}
	fields, ok := entry["fields"].(map[string]any)
	if !ok || fields["target"] != "user_7" {
		t.Fatalf("unexpected fields: %v", entry["fields"])
	}
}

func TestLogEventRequiresName(t *testing.T) {
	if err := LogEvent(context.Background(), "   ", nil); err == nil {
		t.Fatal("expected error for blank event name")
	}
}

func TestWithRequestIDIgnoresBlank(t *testing.T) {
	ctx := WithRequestID(context.Background(), "  ")
	if got := RequestIDFromContext(ctx); got != "" {
		t.Fatalf("blank request id must not attach, got %q", got)
	}
}
