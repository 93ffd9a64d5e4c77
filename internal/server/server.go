// internal/server/server.go
//
// Package server exposes the dashboard API: session control, state reads,
// artifact and document lookups, and a server-sent-events stream of state
// snapshots.
package server

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/user/clawboard/internal/session"
	"github.com/user/clawboard/pkg/agent"
)

const keepaliveInterval = 15 * time.Second

// Options configures a Server.
type Options struct {
	Controller *session.Controller
	Broker     *Broker
	// APIKey is forwarded to the agent on every start.
	APIKey string
	// MaxTurns and WorkingDirectory are defaults for start requests that
	// leave them unset.
	MaxTurns         int
	WorkingDirectory string
	Logger           *slog.Logger
}

// Server is the HTTP handler for the dashboard API.
type Server struct {
	ctrl   *session.Controller
	broker *Broker
	opts   Options
	log    *slog.Logger
	mux    *http.ServeMux
}

// NewServer wires the dashboard routes.
func NewServer(opts Options) *Server {
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	s := &Server{
		ctrl:   opts.Controller,
		broker: opts.Broker,
		opts:   opts,
		log:    log,
		mux:    http.NewServeMux(),
	}
	s.mux.HandleFunc("GET /health", s.handleHealth)
	s.mux.HandleFunc("POST /api/session/start", s.handleStart)
	s.mux.HandleFunc("POST /api/session/stop", s.handleStop)
	s.mux.HandleFunc("POST /api/session/clear", s.handleClear)
	s.mux.HandleFunc("GET /api/state", s.handleState)
	s.mux.HandleFunc("GET /api/stream", s.handleStream)
	s.mux.HandleFunc("GET /api/artifacts/", s.handleArtifact)
	s.mux.HandleFunc("GET /api/document", s.handleDocument)
	return s
}

// ServeHTTP delegates to the internal mux, implementing http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":      "ok",
		"session":     s.ctrl.Status(),
		"subscribers": s.broker.SubscriberCount(),
	})
}

// startRequest is the JSON body for POST /api/session/start.
type startRequest struct {
	Prompt           string `json:"prompt"`
	Model            string `json:"model"`
	MaxTurns         int    `json:"maxTurns"`
	WorkingDirectory string `json:"workingDirectory"`
	SessionID        string `json:"sessionId"`
}

func (s *Server) handleStart(w http.ResponseWriter, r *http.Request) {
	var req startRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"invalid JSON"}`, http.StatusBadRequest)
		return
	}
	if req.Prompt == "" {
		http.Error(w, `{"error":"prompt is required"}`, http.StatusBadRequest)
		return
	}
	if req.MaxTurns == 0 {
		req.MaxTurns = s.opts.MaxTurns
	}
	if req.WorkingDirectory == "" {
		req.WorkingDirectory = s.opts.WorkingDirectory
	}

	err := s.ctrl.Start(agent.StartRequest{
		Prompt:           req.Prompt,
		APIKey:           s.opts.APIKey,
		Model:            req.Model,
		MaxTurns:         req.MaxTurns,
		WorkingDirectory: req.WorkingDirectory,
		SessionID:        req.SessionID,
	})
	switch {
	case errors.Is(err, session.ErrBudgetExceeded):
		writeJSON(w, http.StatusConflict, map[string]string{"error": err.Error()})
	case errors.Is(err, agent.ErrMissingAPIKey):
		http.Error(w, `{"error":"server has no agent api key configured"}`, http.StatusInternalServerError)
	case err != nil:
		s.log.Error("session start failed", "error", err)
		writeJSON(w, http.StatusBadGateway, map[string]string{"error": err.Error()})
	default:
		writeJSON(w, http.StatusAccepted, map[string]string{"status": "started"})
	}
}

func (s *Server) handleStop(w http.ResponseWriter, r *http.Request) {
	s.ctrl.Stop()
	writeJSON(w, http.StatusOK, map[string]string{"status": "stopped"})
}

func (s *Server) handleClear(w http.ResponseWriter, r *http.Request) {
	s.ctrl.Clear()
	writeJSON(w, http.StatusOK, map[string]string{"status": "cleared"})
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.ctrl.Snapshot())
}

func (s *Server) handleArtifact(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimPrefix(r.URL.Path, "/api/artifacts/")
	if id == "" {
		http.Error(w, `{"error":"artifact id required"}`, http.StatusBadRequest)
		return
	}
	snap := s.ctrl.Snapshot()
	for _, a := range snap.Artifacts {
		if string(a.ID) == id {
			writeJSON(w, http.StatusOK, a)
			return
		}
	}
	http.Error(w, `{"error":"artifact not found"}`, http.StatusNotFound)
}

func (s *Server) handleDocument(w http.ResponseWriter, r *http.Request) {
	snap := s.ctrl.Snapshot()
	if snap.Document == nil {
		http.Error(w, `{"error":"no document"}`, http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, snap.Document)
}

// handleStream serves the SSE feed. The client first receives a full state
// snapshot, then one "state" event per applied frame batch.
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, `{"error":"streaming not supported"}`, http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	// Long-lived connection; the server's write timeout must not apply.
	rc := http.NewResponseController(w)
	_ = rc.SetWriteDeadline(time.Time{})

	ch := s.broker.Subscribe()
	defer s.broker.Unsubscribe(ch)

	if snapshot, err := json.Marshal(s.ctrl.Snapshot()); err == nil {
		w.Write(formatSSE("state", snapshot))
		flusher.Flush()
	}

	keepalive := time.NewTicker(keepaliveInterval)
	defer keepalive.Stop()

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case <-keepalive.C:
			if _, err := w.Write([]byte(":keepalive\n\n")); err != nil {
				return
			}
			flusher.Flush()
		case event, ok := <-ch:
			if !ok {
				return
			}
			if _, err := w.Write(event); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}
