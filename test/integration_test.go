//go:build integration

package test

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/user/clawboard/internal/server"
	"github.com/user/clawboard/internal/session"
	"github.com/user/clawboard/internal/state"
	"github.com/user/clawboard/internal/types"
	"github.com/user/clawboard/pkg/agent/claude"
)

func record(kind, data string) string {
	return fmt.Sprintf("data: {\"type\":%q,\"data\":%s,\"timestamp\":\"2026-01-02T15:04:05Z\"}\n\n", kind, data)
}

// TestEndToEndPipeline drives the whole stack: an HTTP bridge that streams a
// scenario in awkward 7-byte chunks, the real transport, the session
// controller, and the dashboard API.
func TestEndToEndPipeline(t *testing.T) {
	streamBody := record("init", `{"sessionId":"S-e2e","model":"claude-sonnet-4"}`) +
		record("thinking", `{"text":"planning the work"}`) +
		record("tool_start", `{"toolId":"T1","toolName":"Bash","toolInput":{"command":"ls"}}`) +
		record("status", `{"status":"Listing files"}`) +
		record("tool_end", `{"toolId":"T1","result":"a.txt\nb.txt"}`) +
		record("tool_start", `{"toolId":"T2","toolName":"Write","toolInput":{"file_path":"out/report.md","content":"# Report"}}`) +
		record("tool_end", `{"toolId":"T2","result":"ok"}`) +
		record("message", `{"text":"Wrote the report."}`) +
		record("result", `{"subtype":"success","duration_ms":1500,"num_turns":2,"total_cost_usd":0.015,"result":"All done"}`)

	bridge := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/agent/stream" || r.Method != http.MethodPost {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/event-stream")
		flusher := w.(http.Flusher)
		for i := 0; i < len(streamBody); i += 7 {
			end := i + 7
			if end > len(streamBody) {
				end = len(streamBody)
			}
			w.Write([]byte(streamBody[i:end]))
			flusher.Flush()
		}
	}))
	defer bridge.Close()

	broker := server.NewBroker(nil)
	var published atomic.Int32
	ctrl := session.NewController(session.Options{
		Transport: claude.New(bridge.URL),
		OnChange: func(s state.State) {
			published.Add(1)
		},
	})
	srv := server.NewServer(server.Options{
		Controller: ctrl,
		Broker:     broker,
		APIKey:     "sk-e2e",
	})

	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/session/start",
		strings.NewReader(`{"prompt":"write a report"}`)))
	if rec.Code != http.StatusAccepted {
		t.Fatalf("start: expected 202, got %d: %s", rec.Code, rec.Body.String())
	}

	deadline := time.Now().Add(5 * time.Second)
	for {
		if time.Now().After(deadline) {
			t.Fatalf("run did not complete; state: %+v", ctrl.Snapshot())
		}
		s := ctrl.Snapshot()
		if len(s.Tasks) == 1 && s.Tasks[0].Status == types.TaskCompleted {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}

	s := ctrl.Snapshot()
	if s.SessionID != "S-e2e" {
		t.Errorf("expected session S-e2e, got %q", s.SessionID)
	}
	if len(s.ToolRuns) != 2 {
		t.Fatalf("expected two tool runs, got %d", len(s.ToolRuns))
	}
	for _, run := range s.ToolRuns {
		if run.Status != types.ToolRunSucceeded {
			t.Errorf("expected succeeded run, got %s for %s", run.Status, run.Tool)
		}
	}
	if len(s.Artifacts) != 1 || s.Artifacts[0].Filename != "report.md" {
		t.Fatalf("expected report.md artifact, got %+v", s.Artifacts)
	}
	if s.TotalCost != 0.015 || s.Turns != 2 {
		t.Errorf("unexpected totals: cost=%v turns=%d", s.TotalCost, s.Turns)
	}
	if s.Thinking != "planning the work" {
		t.Errorf("unexpected thinking snippet: %q", s.Thinking)
	}
	if published.Load() == 0 {
		t.Error("expected change notifications during the run")
	}

	rec = httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/artifacts/"+string(s.Artifacts[0].ID), nil))
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "# Report") {
		t.Errorf("artifact fetch failed: %d %s", rec.Code, rec.Body.String())
	}
}
