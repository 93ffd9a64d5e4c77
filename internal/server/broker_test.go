package server

import (
	"fmt"
	"strings"
	"testing"
)

func TestBrokerPublishReachesSubscribers(t *testing.T) {
	b := NewBroker(nil)
	ch1 := b.Subscribe()
	ch2 := b.Subscribe()
	defer b.Unsubscribe(ch1)
	defer b.Unsubscribe(ch2)

	b.Publish("state", []byte(`{"turns":1}`))

	want := "event: state\ndata: {\"turns\":1}\n\n"
	for i, ch := range []chan []byte{ch1, ch2} {
		select {
		case got := <-ch:
			if string(got) != want {
				t.Errorf("subscriber %d: got %q, want %q", i, got, want)
			}
		default:
			t.Errorf("subscriber %d received nothing", i)
		}
	}
}

func TestBrokerDropsWhenSubscriberFull(t *testing.T) {
	b := NewBroker(nil)
	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	// Overfill the buffer; the excess must be dropped, not block.
	for i := 0; i < 100; i++ {
		b.Publish("state", []byte(fmt.Sprintf(`{"n":%d}`, i)))
	}
	if got := len(ch); got != cap(ch) {
		t.Errorf("expected a full buffer of %d, got %d", cap(ch), got)
	}
}

func TestBrokerUnsubscribeClosesChannel(t *testing.T) {
	b := NewBroker(nil)
	ch := b.Subscribe()
	if b.SubscriberCount() != 1 {
		t.Fatalf("expected one subscriber, got %d", b.SubscriberCount())
	}
	b.Unsubscribe(ch)
	if b.SubscriberCount() != 0 {
		t.Errorf("expected no subscribers, got %d", b.SubscriberCount())
	}
	if _, ok := <-ch; ok {
		t.Error("expected closed channel")
	}

	// Publishing with no subscribers is a no-op.
	b.Publish("state", []byte("{}"))
}

func TestFormatSSE(t *testing.T) {
	got := string(formatSSE("state", []byte(`{"a":1}`)))
	if !strings.HasPrefix(got, "event: state\n") || !strings.HasSuffix(got, "\n\n") {
		t.Errorf("malformed SSE event: %q", got)
	}
	if !strings.Contains(got, "data: {\"a\":1}") {
		t.Errorf("missing data line: %q", got)
	}
}
