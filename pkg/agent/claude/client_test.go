package claude

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/user/clawboard/pkg/agent"
)

func TestOpenStreamsBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("expected POST, got %s", r.Method)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("expected JSON content type, got %s", ct)
		}
		body, _ := io.ReadAll(r.Body)
		if !strings.Contains(string(body), `"prompt":"hello"`) {
			t.Errorf("request body missing prompt: %s", body)
		}
		w.Header().Set("Content-Type", "text/event-stream")
		io.WriteString(w, "data: {\"type\":\"init\",\"data\":{\"sessionId\":\"S1\"}}\n\n")
	}))
	defer srv.Close()

	client := New(srv.URL)
	rc, err := client.Open(context.Background(), agent.StartRequest{Prompt: "hello", APIKey: "sk-test"})
	if err != nil {
		t.Fatal(err)
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "sessionId") {
		t.Errorf("unexpected stream body: %s", data)
	}
}

func TestOpenRejectsInvalidRequest(t *testing.T) {
	client := New("http://unused.invalid")

	if _, err := client.Open(context.Background(), agent.StartRequest{APIKey: "k"}); !errors.Is(err, agent.ErrMissingPrompt) {
		t.Errorf("expected ErrMissingPrompt, got %v", err)
	}
	if _, err := client.Open(context.Background(), agent.StartRequest{Prompt: "p"}); !errors.Is(err, agent.ErrMissingAPIKey) {
		t.Errorf("expected ErrMissingAPIKey, got %v", err)
	}
}

func TestOpenNonSuccessStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "agent unavailable", http.StatusBadGateway)
	}))
	defer srv.Close()

	client := New(srv.URL)
	_, err := client.Open(context.Background(), agent.StartRequest{Prompt: "p", APIKey: "k"})
	if err == nil {
		t.Fatal("expected error for non-200 status")
	}
	if !strings.Contains(err.Error(), "502") || !strings.Contains(err.Error(), "agent unavailable") {
		t.Errorf("expected status and body snippet in error, got %v", err)
	}
}

func TestOpenHonorsContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer srv.Close()

	client := New(srv.URL)
	if _, err := client.Open(ctx, agent.StartRequest{Prompt: "p", APIKey: "k"}); err == nil {
		t.Fatal("expected error from cancelled context")
	}
}
