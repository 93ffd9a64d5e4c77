// internal/notify/registry.go
//
// Package notify routes run notifications to outbound channels. A target key
// carries a channel prefix ("telegram:<chatID>") that selects the sink.
package notify

import (
	"fmt"
	"strings"
	"sync"

	"github.com/user/clawboard/internal/session"
)

// Sink delivers a message to a target identified by its key.
type Sink func(target, message string) error

// Registry routes messages to the sink matching the target key prefix.
type Registry struct {
	mu    sync.RWMutex
	sinks map[string]Sink
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		sinks: make(map[string]Sink),
	}
}

// Register adds a sink for target keys starting with prefix.
func (r *Registry) Register(prefix string, sink Sink) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sinks[prefix] = sink
}

// Notify finds the sink matching the target key prefix and calls it.
// Returns an error if no sink is registered for the prefix.
func (r *Registry) Notify(target, message string) error {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for prefix, sink := range r.sinks {
		if strings.HasPrefix(target, prefix) {
			return sink(target, message)
		}
	}
	return fmt.Errorf("no notification sink for target: %s", target)
}

// FormatResult renders a finished run as a notification message.
func FormatResult(r session.Result) string {
	var b strings.Builder
	switch r.Status {
	case session.StatusCompleted:
		b.WriteString("Run completed")
	case session.StatusCancelled:
		b.WriteString("Run cancelled")
	default:
		b.WriteString("Run failed")
	}
	fmt.Fprintf(&b, "\nPrompt: %s", firstLine(r.Prompt))
	if r.Err != nil {
		fmt.Fprintf(&b, "\nError: %v", r.Err)
	}
	fmt.Fprintf(&b, "\nCost: $%.4f (%d turns)", r.TotalCost, r.Turns)
	return b.String()
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
