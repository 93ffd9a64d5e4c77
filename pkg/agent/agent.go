// Package agent defines the outbound contract for starting an agent run and
// the transport abstraction the session controller consumes. The agent
// runtime itself is an external collaborator; this package only speaks its
// wire protocol.
package agent

import (
	"context"
	"errors"
	"io"
)

// StartRequest is the request body that opens one agent run.
type StartRequest struct {
	Prompt           string `json:"prompt"`
	APIKey           string `json:"apiKey"`
	Model            string `json:"model,omitempty"`
	MaxTurns         int    `json:"maxTurns,omitempty"`
	WorkingDirectory string `json:"workingDirectory,omitempty"`
	// SessionID resumes a previous agent session when set.
	SessionID string `json:"sessionId,omitempty"`
}

var (
	ErrMissingPrompt = errors.New("prompt is required")
	ErrMissingAPIKey = errors.New("api key is required")
)

// Validate rejects requests that must never open a connection.
func (r StartRequest) Validate() error {
	if r.Prompt == "" {
		return ErrMissingPrompt
	}
	if r.APIKey == "" {
		return ErrMissingAPIKey
	}
	return nil
}

// Transport opens the agent's event stream for one run. The returned reader
// yields the raw chunked stream body; closing it aborts the run. Open must
// honor ctx for both connection setup and subsequent reads.
type Transport interface {
	Open(ctx context.Context, req StartRequest) (io.ReadCloser, error)
}
