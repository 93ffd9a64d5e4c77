// internal/types/models.go
package types

import (
	"encoding/json"
	"fmt"
	"time"
)

// ActivityType is the semantic category shown on the dashboard timeline.
type ActivityType string

const (
	ActivityCommand    ActivityType = "command"
	ActivityGithub     ActivityType = "github"
	ActivityFileRead   ActivityType = "file_read"
	ActivityFileWrite  ActivityType = "file_write"
	ActivityFileCreate ActivityType = "file_create"
	ActivityThinking   ActivityType = "thinking"
	ActivityKnowledge  ActivityType = "knowledge"
	ActivityError      ActivityType = "error"
	ActivitySuccess    ActivityType = "success"
)

// ActivityStatus is the lifecycle state of a timeline entry.
type ActivityStatus string

const (
	ActivityRunning   ActivityStatus = "running"
	ActivityCompleted ActivityStatus = "completed"
	ActivityFailed    ActivityStatus = "error"
)

// Activity is one user-visible timeline entry. Entries are created when a
// tool starts (or a thinking/result/error frame arrives), mutated only
// through status transitions, and removed only by a bulk clear.
type Activity struct {
	ID          ActivityID     `json:"id"`
	Type        ActivityType   `json:"type"`
	Title       string         `json:"title"`
	Description string         `json:"description,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
	Status      ActivityStatus `json:"status"`
	Duration    string         `json:"duration,omitempty"`
	StatusLine  string         `json:"status_line,omitempty"`
	Vendor      bool           `json:"vendor,omitempty"`
	Children    []Activity     `json:"children,omitempty"`
}

// ToolRunStatus is monotonic: running never recurs once left.
type ToolRunStatus string

const (
	ToolRunRunning   ToolRunStatus = "running"
	ToolRunSucceeded ToolRunStatus = "succeeded"
	ToolRunFailed    ToolRunStatus = "failed"
	ToolRunCancelled ToolRunStatus = "cancelled"
)

// ToolRun is one ledger entry per distinct tool-call identifier, correlated
// with its Activity by the classifier but tracked independently.
type ToolRun struct {
	ID          ToolRunID       `json:"id"`
	CallID      string          `json:"call_id"`
	Tool        string          `json:"tool"`
	Label       string          `json:"label"`
	Status      ToolRunStatus   `json:"status"`
	StartedAt   time.Time       `json:"started_at"`
	CompletedAt *time.Time      `json:"completed_at,omitempty"`
	Progress    float64         `json:"progress"`
	Input       json.RawMessage `json:"input,omitempty"`
	Output      string          `json:"output,omitempty"`
	Error       string          `json:"error,omitempty"`
}

type TaskStatus string

const (
	TaskPending    TaskStatus = "pending"
	TaskInProgress TaskStatus = "in_progress"
	TaskCompleted  TaskStatus = "completed"
	TaskFailed     TaskStatus = "failed"
)

// Task is one entry per submitted prompt. At most one task is in_progress
// per session; it closes on the stream's terminal frame or on cancellation
// (which returns it to pending with a "Cancelled" status line).
type Task struct {
	ID         TaskID     `json:"id"`
	Title      string     `json:"title"`
	Status     TaskStatus `json:"status"`
	CreatedAt  time.Time  `json:"created_at"`
	Duration   string     `json:"duration,omitempty"`
	StatusLine string     `json:"status_line,omitempty"`
}

// Artifact is a named content object produced by a successful file-writing
// tool invocation. Revisioning of a logical target is owned downstream; the
// ledger only dedupes exact (session, filename, content) repeats.
type Artifact struct {
	ID        ArtifactID `json:"id"`
	SessionID SessionID  `json:"session_id"`
	Filename  string     `json:"filename"`
	Title     string     `json:"title"`
	Content   string     `json:"content"`
	Kind      string     `json:"kind"`
	MimeType  string     `json:"mime_type"`
	Language  string     `json:"language,omitempty"`
	Folder    string     `json:"folder,omitempty"`
	Tags      []string   `json:"tags,omitempty"`
	Tool      string     `json:"tool"`
	CallID    string     `json:"call_id"`
	CreatedAt time.Time  `json:"created_at"`
}

// CostBreakdown is the four-way split of one turn's spend, in USD.
type CostBreakdown struct {
	Input      float64 `json:"input"`
	Output     float64 `json:"output"`
	CacheRead  float64 `json:"cache_read"`
	CacheWrite float64 `json:"cache_write"`
	Total      float64 `json:"total"`
}

// CostEntry is one record per completed task. Appended, never mutated.
type CostEntry struct {
	ID           CostEntryID   `json:"id"`
	Model        string        `json:"model"`
	Tools        []string      `json:"tools"`
	InputTokens  int           `json:"input_tokens"`
	OutputTokens int           `json:"output_tokens"`
	Cost         CostBreakdown `json:"cost"`
	CreatedAt    time.Time     `json:"created_at"`
}

// Document is the single "currently inspected file" slot. Overwritten
// wholesale whenever a read-like tool result arrives.
type Document struct {
	Filename  string    `json:"filename"`
	Content   string    `json:"content"`
	MimeType  string    `json:"mime_type"`
	Language  string    `json:"language,omitempty"`
	UpdatedAt time.Time `json:"updated_at"`
}

// FormatDurationMs renders a millisecond duration the way the dashboard
// displays it: sub-minute values in seconds with one decimal ("0.5s"),
// longer values as minutes and seconds.
func FormatDurationMs(ms int64) string {
	if ms < 0 {
		ms = 0
	}
	secs := float64(ms) / 1000
	if secs < 60 {
		return fmt.Sprintf("%.1fs", secs)
	}
	m := int(secs) / 60
	s := int(secs) % 60
	return fmt.Sprintf("%dm%ds", m, s)
}
