package notify

import (
	"errors"
	"strings"
	"testing"

	"github.com/user/clawboard/internal/session"
)

func TestRegistryNotify(t *testing.T) {
	reg := NewRegistry()

	var gotTarget, gotMsg string
	reg.Register("test:", func(target, message string) error {
		gotTarget = target
		gotMsg = message
		return nil
	})

	if err := reg.Notify("test:123", "hello"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotTarget != "test:123" {
		t.Errorf("expected target %q, got %q", "test:123", gotTarget)
	}
	if gotMsg != "hello" {
		t.Errorf("expected message %q, got %q", "hello", gotMsg)
	}
}

func TestRegistryNoSink(t *testing.T) {
	reg := NewRegistry()

	if err := reg.Notify("unknown:123", "hello"); err == nil {
		t.Fatal("expected error for unregistered prefix, got nil")
	}
}

func TestRegistryMultiplePrefixes(t *testing.T) {
	reg := NewRegistry()

	var telegramCalls, webhookCalls int
	reg.Register("telegram:", func(target, message string) error {
		telegramCalls++
		return nil
	})
	reg.Register("webhook:", func(target, message string) error {
		webhookCalls++
		return nil
	})

	if err := reg.Notify("telegram:42", "msg1"); err != nil {
		t.Fatalf("telegram notify error: %v", err)
	}
	if err := reg.Notify("webhook:https://example.com", "msg2"); err != nil {
		t.Fatalf("webhook notify error: %v", err)
	}

	if telegramCalls != 1 {
		t.Errorf("expected 1 telegram call, got %d", telegramCalls)
	}
	if webhookCalls != 1 {
		t.Errorf("expected 1 webhook call, got %d", webhookCalls)
	}
}

func TestFormatResult(t *testing.T) {
	msg := FormatResult(session.Result{
		Status:    session.StatusCompleted,
		Prompt:    "list files\nand more context",
		TotalCost: 0.0123,
		Turns:     3,
	})
	if !strings.HasPrefix(msg, "Run completed") {
		t.Errorf("unexpected prefix: %q", msg)
	}
	if !strings.Contains(msg, "Prompt: list files") || strings.Contains(msg, "more context") {
		t.Errorf("prompt should be first line only: %q", msg)
	}
	if !strings.Contains(msg, "$0.0123") || !strings.Contains(msg, "3 turns") {
		t.Errorf("missing totals: %q", msg)
	}

	failed := FormatResult(session.Result{
		Status: session.StatusFailed,
		Prompt: "p",
		Err:    errors.New("bridge down"),
	})
	if !strings.HasPrefix(failed, "Run failed") || !strings.Contains(failed, "bridge down") {
		t.Errorf("unexpected failure message: %q", failed)
	}
}
