package claude

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/user/clawboard/pkg/agent"
)

// Client implements agent.Transport against a Claude Code bridge that
// accepts a start request and answers with a server-sent event stream.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// New creates a client for the bridge at baseURL. No timeout is set on the
// underlying http.Client: the stream stays open for the whole run and is
// bounded by the request context instead.
func New(baseURL string) *Client {
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{},
	}
}

// Open validates the request, POSTs it, and returns the streaming response
// body. Cancelling ctx aborts the connection and fails any in-flight read.
func (c *Client) Open(ctx context.Context, req agent.StartRequest) (io.ReadCloser, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshaling request: %w", err)
	}

	url := c.baseURL + "/api/agent/stream"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "text/event-stream")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("connecting to agent: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		resp.Body.Close()
		return nil, fmt.Errorf("agent error (status %d): %s", resp.StatusCode, string(snippet))
	}

	return resp.Body, nil
}
