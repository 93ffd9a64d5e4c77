// internal/server/broker.go
package server

import (
	"log/slog"
	"sync"
)

// Broker fans out state updates to SSE subscribers. The session controller's
// change hook publishes a snapshot after every applied frame batch; each
// connected dashboard client holds one subscriber channel.
type Broker struct {
	logger *slog.Logger

	mu          sync.RWMutex
	subscribers map[chan []byte]struct{}
}

// NewBroker creates an SSE broker with no subscribers.
func NewBroker(logger *slog.Logger) *Broker {
	if logger == nil {
		logger = slog.Default()
	}
	return &Broker{
		logger:      logger,
		subscribers: make(map[chan []byte]struct{}),
	}
}

// Subscribe returns a channel that receives SSE-formatted events. The caller
// must call Unsubscribe when done.
func (b *Broker) Subscribe() chan []byte {
	ch := make(chan []byte, 64) // Buffer to avoid blocking the publisher.
	b.mu.Lock()
	b.subscribers[ch] = struct{}{}
	b.mu.Unlock()
	return ch
}

// Unsubscribe removes a subscriber channel and closes it.
func (b *Broker) Unsubscribe(ch chan []byte) {
	b.mu.Lock()
	delete(b.subscribers, ch)
	b.mu.Unlock()
	close(ch)
}

// Publish formats one event and sends it to all subscribers. Slow subscribers
// with a full buffer are skipped so one stalled client cannot block the rest;
// they catch up on the next snapshot, which always carries the full state.
func (b *Broker) Publish(eventType string, payload []byte) {
	event := formatSSE(eventType, payload)

	b.mu.RLock()
	defer b.mu.RUnlock()
	for ch := range b.subscribers {
		select {
		case ch <- event:
		default:
		}
	}
}

// SubscriberCount reports the number of connected subscribers.
func (b *Broker) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subscribers)
}

// formatSSE renders "event: <type>\ndata: <payload>\n\n".
func formatSSE(eventType string, data []byte) []byte {
	buf := make([]byte, 0, len(eventType)+len(data)+16)
	buf = append(buf, "event: "...)
	buf = append(buf, eventType...)
	buf = append(buf, "\ndata: "...)
	buf = append(buf, data...)
	buf = append(buf, "\n\n"...)
	return buf
}
