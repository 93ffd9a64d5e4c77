// internal/stream/decoder.go
package stream

import (
	"encoding/json"
	"log/slog"
	"strings"
	"time"
)

// Kind tags a decoded frame. The decoder carries unknown kinds through
// unchanged; the classifier is the component that rejects them.
type Kind string

const (
	KindInit      Kind = "init"
	KindToolStart Kind = "tool_start"
	KindToolEnd   Kind = "tool_end"
	KindThinking  Kind = "thinking"
	KindMessage   Kind = "message"
	KindResult    Kind = "result"
	KindError     Kind = "error"
	KindStatus    Kind = "status"
)

// Frame is one complete, delimiter-bounded unit of the inbound stream before
// semantic interpretation. Data stays opaque here; per-kind payload shapes
// are the classifier's concern.
type Frame struct {
	Kind      Kind            `json:"type"`
	Data      json.RawMessage `json:"data"`
	Timestamp time.Time       `json:"timestamp"`
}

const dataPrefix = "data: "

// Decoder reassembles server-sent records from arbitrarily split chunks.
// Records are separated by a blank line; each record's body is the JSON
// following the "data: " prefix. A Decoder is not safe for concurrent use;
// the session controller feeds it from a single goroutine.
type Decoder struct {
	buf strings.Builder
}

// NewDecoder creates an empty Decoder.
func NewDecoder() *Decoder {
	return &Decoder{}
}

// Feed appends a chunk to the internal buffer and returns every frame whose
// record became complete, in arrival order. A trailing partial record stays
// buffered for the next chunk; if the stream ends first it is dropped.
func (d *Decoder) Feed(chunk string) []Frame {
	d.buf.WriteString(chunk)

	pending := d.buf.String()
	var frames []Frame
	for {
		i, n := nextDelimiter(pending)
		if i < 0 {
			break
		}
		record := pending[:i]
		pending = pending[i+n:]
		if frame, ok := decodeRecord(record); ok {
			frames = append(frames, frame)
		}
	}

	d.buf.Reset()
	d.buf.WriteString(pending)
	return frames
}

// recordDelimiters are the blank-line forms that end a record, longest first
// so a CRLF blank line is never half-consumed as an LF one.
var recordDelimiters = []string{"\r\n\r\n", "\n\r\n", "\n\n", "\r\r"}

// nextDelimiter finds the earliest record delimiter in s, returning its index
// and length, or -1 when no complete delimiter is buffered yet.
func nextDelimiter(s string) (int, int) {
	best, n := -1, 0
	for _, delim := range recordDelimiters {
		if i := strings.Index(s, delim); i >= 0 && (best < 0 || i < best) {
			best, n = i, len(delim)
		}
	}
	return best, n
}

// Buffered reports how many bytes of partial record are waiting for more
// input. Exposed for tests and for end-of-stream diagnostics.
func (d *Decoder) Buffered() int {
	return d.buf.Len()
}

// decodeRecord extracts the JSON body from one delimiter-bounded record and
// unmarshals the event envelope. Bodies that are not valid JSON are dropped:
// garbled records are expected at stream boundaries and must never kill the
// run.
func decodeRecord(record string) (Frame, bool) {
	// Normalize CRLF and bare-CR line endings before splitting.
	record = strings.ReplaceAll(record, "\r\n", "\n")
	record = strings.ReplaceAll(record, "\r", "\n")

	var body strings.Builder
	for _, line := range strings.Split(record, "\n") {
		if !strings.HasPrefix(line, dataPrefix) {
			// event:/id:/comment lines carry no payload for us.
			continue
		}
		if body.Len() > 0 {
			body.WriteByte('\n')
		}
		body.WriteString(line[len(dataPrefix):])
	}
	if body.Len() == 0 {
		return Frame{}, false
	}

	var frame Frame
	if err := json.Unmarshal([]byte(body.String()), &frame); err != nil {
		slog.Debug("dropping undecodable record", "error", err, "bytes", body.Len())
		return Frame{}, false
	}
	return frame, true
}
