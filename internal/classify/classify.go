// internal/classify/classify.go
//
// Package classify interprets decoded stream frames into reducer actions.
// A Classifier is scratch state for exactly one run: it owns the correlation
// map linking a tool_start to its eventual tool_end and is discarded when
// the run ends.
package classify

import (
	"encoding/json"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/user/clawboard/internal/preview"
	"github.com/user/clawboard/internal/state"
	"github.com/user/clawboard/internal/stream"
	"github.com/user/clawboard/internal/tokens"
	"github.com/user/clawboard/internal/types"
)

// DefaultTruncateLimit caps tool output stored in the ledger.
const DefaultTruncateLimit = 10000

// truncationMarker makes truncation lossy-but-visible.
const truncationMarker = "\n[output truncated]"

// Options configures a per-run Classifier.
type Options struct {
	// SessionID is the dashboard's own session id, used until the stream's
	// init frame reports the agent-assigned one.
	SessionID types.SessionID
	// Prompt is the submitted prompt, used for input-token estimation when
	// the result frame carries no usage block.
	Prompt string
	// Model is the configured model name, used when the stream does not
	// report one.
	Model string
	// TruncateLimit caps tool_end output; zero means DefaultTruncateLimit.
	TruncateLimit int
	// IDGen allocates activity/run/artifact ids. Defaults to uuid; tests
	// inject a deterministic generator.
	IDGen func() string
	// Estimator is optional; without it token counts stay zero when the
	// stream omits usage.
	Estimator *tokens.Estimator
}

// pendingCall is one entry of the correlation map.
type pendingCall struct {
	activityID types.ActivityID
	runID      types.ToolRunID
	tool       string
	vendor     bool
	input      map[string]any
	startedAt  time.Time
}

// Classifier turns frames into actions. Not safe for concurrent use; the
// session controller feeds it from a single goroutine.
type Classifier struct {
	opts    Options
	session types.SessionID

	pending    map[string]*pendingCall
	order      []string // pending call ids in registration order
	lastCallID string

	toolsSeen map[string]bool
	toolsUsed []string
	assistant strings.Builder
	initSeen  bool
}

// New creates a Classifier for one run.
func New(opts Options) *Classifier {
	if opts.TruncateLimit <= 0 {
		opts.TruncateLimit = DefaultTruncateLimit
	}
	if opts.IDGen == nil {
		opts.IDGen = types.NewID
	}
	return &Classifier{
		opts:      opts,
		session:   opts.SessionID,
		pending:   make(map[string]*pendingCall),
		toolsSeen: make(map[string]bool),
	}
}

// Classify produces zero or more actions for one frame. Frames whose payload
// does not parse are skipped: partial or garbled frames are expected at
// stream boundaries and must never corrupt state.
func (c *Classifier) Classify(frame stream.Frame) []state.Action {
	switch frame.Kind {
	case stream.KindInit:
		return c.classifyInit(frame)
	case stream.KindToolStart:
		return c.classifyToolStart(frame)
	case stream.KindToolEnd:
		return c.classifyToolEnd(frame)
	case stream.KindThinking:
		return c.classifyThinking(frame)
	case stream.KindMessage:
		return c.classifyMessage(frame)
	case stream.KindStatus:
		return c.classifyStatus(frame)
	case stream.KindResult:
		return c.classifyResult(frame)
	case stream.KindError:
		return c.classifyError(frame)
	default:
		slog.Debug("skipping frame of unknown kind", "kind", frame.Kind)
		return nil
	}
}

type initPayload struct {
	SessionID string `json:"sessionId"`
	Model     string `json:"model"`
}

func (c *Classifier) classifyInit(frame stream.Frame) []state.Action {
	var p initPayload
	if !decode(frame.Data, &p) {
		return nil
	}
	if c.initSeen || p.SessionID == "" {
		return nil
	}
	c.initSeen = true
	c.session = types.SessionID(p.SessionID)
	return []state.Action{state.SessionInit{SessionID: c.session}}
}

type toolStartPayload struct {
	ToolID    string         `json:"toolId"`
	ToolName  string         `json:"toolName"`
	ToolInput map[string]any `json:"toolInput"`
}

func (c *Classifier) classifyToolStart(frame stream.Frame) []state.Action {
	var p toolStartPayload
	if !decode(frame.Data, &p) {
		return nil
	}
	if p.ToolID == "" || p.ToolName == "" {
		slog.Debug("tool_start missing id or name", "tool_id", p.ToolID)
		return nil
	}

	meta := describeTool(p.ToolName, p.ToolInput)
	call := &pendingCall{
		activityID: types.ActivityID(c.opts.IDGen()),
		runID:      types.ToolRunID(c.opts.IDGen()),
		tool:       p.ToolName,
		vendor:     strings.HasPrefix(p.ToolName, vendorPrefix),
		input:      p.ToolInput,
		startedAt:  frame.Timestamp,
	}
	c.pending[p.ToolID] = call
	c.order = append(c.order, p.ToolID)
	c.lastCallID = p.ToolID
	if !c.toolsSeen[p.ToolName] {
		c.toolsSeen[p.ToolName] = true
		c.toolsUsed = append(c.toolsUsed, p.ToolName)
	}

	rawInput, _ := json.Marshal(p.ToolInput)
	return []state.Action{
		state.ActivityCreate{Activity: types.Activity{
			ID:          call.activityID,
			Type:        meta.Type,
			Title:       meta.Title,
			Description: meta.Description,
			CreatedAt:   frame.Timestamp,
			Status:      types.ActivityRunning,
			Vendor:      call.vendor,
		}},
		state.ToolRunCreate{Run: types.ToolRun{
			ID:        call.runID,
			CallID:    p.ToolID,
			Tool:      p.ToolName,
			Label:     meta.Title,
			Status:    types.ToolRunRunning,
			StartedAt: frame.Timestamp,
			Input:     rawInput,
		}},
	}
}

type toolEndPayload struct {
	ToolID  string          `json:"toolId"`
	Result  json.RawMessage `json:"result"`
	IsError bool            `json:"isError"`
	Error   string          `json:"error"`
}

func (c *Classifier) classifyToolEnd(frame stream.Frame) []state.Action {
	var p toolEndPayload
	if !decode(frame.Data, &p) {
		return nil
	}
	if p.ToolID == "" {
		return nil
	}

	result := resultText(p.Result)
	output := c.truncate(result)

	runStatus := types.ToolRunSucceeded
	if p.IsError {
		runStatus = types.ToolRunFailed
	}
	errText := p.Error
	if p.IsError && errText == "" {
		errText = output
	}

	call, ok := c.pending[p.ToolID]
	if !ok {
		// Orphan end: the matching start was never seen (or was dropped).
		// The ledger update is a no-op if no run exists; nothing else moves.
		slog.Debug("orphan tool_end", "tool_id", p.ToolID)
		return []state.Action{state.ToolRunFinish{
			CallID:      p.ToolID,
			Status:      runStatus,
			Output:      output,
			Error:       errText,
			CompletedAt: frame.Timestamp,
		}}
	}

	activityStatus := types.ActivityCompleted
	if p.IsError {
		activityStatus = types.ActivityFailed
	}

	actions := []state.Action{
		state.ActivityFinish{
			ID:          call.activityID,
			Status:      activityStatus,
			Description: errText,
			Duration:    spanDuration(call.startedAt, frame.Timestamp),
		},
		state.ToolRunFinish{
			CallID:      p.ToolID,
			Status:      runStatus,
			Output:      output,
			Error:       errText,
			CompletedAt: frame.Timestamp,
		},
	}

	if !p.IsError {
		if isWriteTool(call.tool) {
			if artifact, ok := c.buildArtifact(call, p.ToolID, result, frame.Timestamp); ok {
				actions = append(actions, state.ArtifactCreate{Artifact: artifact})
			}
		}
		if isReadTool(call.tool) {
			if doc, ok := buildDocument(call, result, frame.Timestamp); ok {
				actions = append(actions, state.DocumentSet{Document: doc})
			}
		}
	}

	// Only drop the correlation entry once every derived action is built.
	c.remove(p.ToolID)
	return actions
}

func (c *Classifier) remove(callID string) {
	delete(c.pending, callID)
	for i, id := range c.order {
		if id == callID {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
	if c.lastCallID == callID {
		c.lastCallID = ""
	}
}

// AbortPending fails every tool call still awaiting its end frame. The
// session controller uses it when the stream ends without a terminal result.
// Calls are processed in registration order so replays stay deterministic.
func (c *Classifier) AbortPending(reason string, at time.Time) []state.Action {
	var actions []state.Action
	for _, callID := range append([]string(nil), c.order...) {
		call := c.pending[callID]
		actions = append(actions,
			state.ActivityFinish{
				ID:          call.activityID,
				Status:      types.ActivityFailed,
				Description: reason,
			},
			state.ToolRunFinish{
				CallID:      callID,
				Status:      types.ToolRunFailed,
				Error:       reason,
				CompletedAt: at,
			},
		)
		c.remove(callID)
	}
	return actions
}

func (c *Classifier) classifyThinking(frame stream.Frame) []state.Action {
	text := textPayload(frame.Data)
	if text == "" {
		return nil
	}
	return []state.Action{state.Thinking{Text: text}}
}

func (c *Classifier) classifyMessage(frame stream.Frame) []state.Action {
	text := textPayload(frame.Data)
	if text == "" {
		return nil
	}
	c.assistant.WriteString(text)
	return []state.Action{state.MessageAppend{Text: text}}
}

type statusPayload struct {
	Status string `json:"status"`
}

func (c *Classifier) classifyStatus(frame stream.Frame) []state.Action {
	var p statusPayload
	if !decode(frame.Data, &p) || p.Status == "" {
		return nil
	}
	// Attaches to the most recently registered tool call. Before the first
	// tool_start of a run there is no target and the frame is discarded.
	call, ok := c.pending[c.lastCallID]
	if !ok {
		return nil
	}
	return []state.Action{state.ActivityStatusLine{
		ID:         call.activityID,
		StatusLine: p.Status,
	}}
}

type resultPayload struct {
	Subtype      string          `json:"subtype"`
	Success      *bool           `json:"success"`
	IsError      bool            `json:"is_error"`
	DurationMs   int64           `json:"duration_ms"`
	NumTurns     int             `json:"num_turns"`
	TotalCostUSD float64         `json:"total_cost_usd"`
	Usage        usagePayload    `json:"usage"`
	Model        string          `json:"model"`
	Result       json.RawMessage `json:"result"`
}

func (c *Classifier) classifyResult(frame stream.Frame) []state.Action {
	var p resultPayload
	if !decode(frame.Data, &p) {
		return nil
	}

	success := !p.IsError && p.Subtype != "error_during_execution" && p.Subtype != "error_max_turns"
	if p.Success != nil {
		success = *p.Success
	}

	model := p.Model
	if model == "" {
		model = c.opts.Model
	}

	usage := p.Usage
	if usage.empty() && c.opts.Estimator != nil {
		usage.InputTokens = c.opts.Estimator.Count(c.opts.Prompt)
		usage.OutputTokens = c.opts.Estimator.Count(c.assistant.String())
	}

	turns := p.NumTurns
	if turns <= 0 {
		turns = 1
	}

	entry := types.CostEntry{
		ID:           types.CostEntryID(c.opts.IDGen()),
		Model:        model,
		Tools:        append([]string(nil), c.toolsUsed...),
		InputTokens:  usage.InputTokens,
		OutputTokens: usage.OutputTokens,
		Cost:         breakdown(model, usage, p.TotalCostUSD),
		CreatedAt:    frame.Timestamp,
	}

	taskStatus := types.TaskCompleted
	summaryType := types.ActivitySuccess
	summaryStatus := types.ActivityCompleted
	summaryTitle := "Task completed"
	if !success {
		taskStatus = types.TaskFailed
		summaryType = types.ActivityError
		summaryStatus = types.ActivityFailed
		summaryTitle = "Task failed"
	}

	return []state.Action{
		state.TaskClose{
			Status:   taskStatus,
			Duration: types.FormatDurationMs(p.DurationMs),
		},
		state.CostAppend{Entry: entry, Turns: turns},
		state.ActivityCreate{Activity: types.Activity{
			ID:          types.ActivityID(c.opts.IDGen()),
			Type:        summaryType,
			Title:       summaryTitle,
			Description: snippet(resultText(p.Result), 200),
			CreatedAt:   frame.Timestamp,
			Status:      summaryStatus,
			Duration:    types.FormatDurationMs(p.DurationMs),
		}},
	}
}

type errorPayload struct {
	Message string `json:"message"`
	Error   string `json:"error"`
}

func (c *Classifier) classifyError(frame stream.Frame) []state.Action {
	var p errorPayload
	if !decode(frame.Data, &p) {
		return nil
	}
	msg := p.Message
	if msg == "" {
		msg = p.Error
	}
	if msg == "" {
		msg = "Unknown error"
	}
	return c.RunError(msg, frame.Timestamp)
}

// RunError builds the actions for a fatal run error: an error activity plus
// a failed task. The session controller reuses it for transport failures.
func (c *Classifier) RunError(msg string, at time.Time) []state.Action {
	return []state.Action{
		state.ActivityCreate{Activity: types.Activity{
			ID:          types.ActivityID(c.opts.IDGen()),
			Type:        types.ActivityError,
			Title:       "Error",
			Description: msg,
			CreatedAt:   at,
			Status:      types.ActivityFailed,
		}},
		state.TaskClose{Status: types.TaskFailed, StatusLine: snippet(msg, titleSnippetLen)},
	}
}

// buildArtifact derives an artifact from a completed file-writing call.
func (c *Classifier) buildArtifact(call *pendingCall, callID, result string, at time.Time) (types.Artifact, bool) {
	path := stringArg(call.input, "file_path")
	if path == "" {
		path = stringArg(call.input, "notebook_path")
	}
	content := stringArg(call.input, "content")
	if content == "" {
		// Edit-style tools don't carry the full file; the tool result is the
		// best content we have.
		content = result
	}
	if path == "" || content == "" {
		return types.Artifact{}, false
	}

	mime := preview.MimeFor(path)
	folder := filepath.Dir(path)
	if folder == "." {
		folder = ""
	}
	return types.Artifact{
		ID:        types.ArtifactID(c.opts.IDGen()),
		SessionID: c.session,
		Filename:  filepath.Base(path),
		Title:     filepath.Base(path),
		Content:   preview.Normalize(content, mime),
		Kind:      artifactKind(path),
		MimeType:  mime,
		Language:  preview.LanguageFor(path),
		Folder:    folder,
		Tags:      []string{call.tool},
		Tool:      call.tool,
		CallID:    callID,
		CreatedAt: at,
	}, true
}

// buildDocument derives the current-document slot from a completed read.
// The untruncated result is used: the document preview is the one place the
// full content matters.
func buildDocument(call *pendingCall, result string, at time.Time) (types.Document, bool) {
	path := stringArg(call.input, "file_path")
	if path == "" || result == "" {
		return types.Document{}, false
	}
	mime := preview.MimeFor(path)
	return types.Document{
		Filename:  filepath.Base(path),
		Content:   preview.Normalize(result, mime),
		MimeType:  mime,
		Language:  preview.LanguageFor(path),
		UpdatedAt: at,
	}, true
}

func artifactKind(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".md", ".txt", ".html", ".htm":
		return "document"
	}
	if preview.LanguageFor(path) != "" {
		return "code"
	}
	return "data"
}

func (c *Classifier) truncate(s string) string {
	if len(s) <= c.opts.TruncateLimit {
		return s
	}
	return s[:runeBoundary(s, c.opts.TruncateLimit)] + truncationMarker
}

// decode unmarshals a frame payload, logging and skipping on failure.
func decode(data json.RawMessage, v any) bool {
	if len(data) == 0 {
		return false
	}
	if err := json.Unmarshal(data, v); err != nil {
		slog.Debug("skipping unparseable frame payload", "error", err)
		return false
	}
	return true
}

// resultText renders a tool result that may be a JSON string or any other
// JSON value.
func resultText(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return string(raw)
}

// textPayload extracts the text of a thinking/message payload.
func textPayload(data json.RawMessage) string {
	var p struct {
		Content  string `json:"content"`
		Text     string `json:"text"`
		Thinking string `json:"thinking"`
	}
	if !decode(data, &p) {
		return ""
	}
	if p.Content != "" {
		return p.Content
	}
	if p.Text != "" {
		return p.Text
	}
	return p.Thinking
}

func spanDuration(start, end time.Time) string {
	if start.IsZero() || end.IsZero() || end.Before(start) {
		return ""
	}
	return types.FormatDurationMs(end.Sub(start).Milliseconds())
}
