// internal/state/actions.go
package state

import (
	"time"

	"github.com/user/clawboard/internal/types"
)

// Action is one reducer-ready instruction derived from the stream. Every
// mutation of dashboard state goes through an Action; nothing else writes
// the collections. Timestamps and ids always travel inside the action so
// the reducer itself stays deterministic.
type Action interface {
	isAction()
}

// SessionInit records the agent-assigned session identifier.
type SessionInit struct {
	SessionID types.SessionID
}

// TaskCreate opens a new task for a submitted prompt.
type TaskCreate struct {
	Task types.Task
}

// TaskClose finishes the currently open (in_progress) task. A no-op when no
// task is open.
type TaskClose struct {
	Status     types.TaskStatus
	Duration   string
	StatusLine string
}

// ActivityCreate prepends a timeline entry, most-recent-first.
type ActivityCreate struct {
	Activity types.Activity
}

// ActivityFinish transitions an existing activity out of running. Only the
// status, duration and (for errors) description fields may change.
type ActivityFinish struct {
	ID          types.ActivityID
	Status      types.ActivityStatus
	Description string
	Duration    string
}

// ActivityStatusLine attaches a short status string to an activity.
type ActivityStatusLine struct {
	ID         types.ActivityID
	StatusLine string
}

// ToolRunCreate appends a ledger entry for a newly started tool call.
type ToolRunCreate struct {
	Run types.ToolRun
}

// ToolRunFinish closes the ledger entry for a tool-call id. Ignored when the
// entry is absent or already terminal: tool-run status is monotonic.
type ToolRunFinish struct {
	CallID      string
	Status      types.ToolRunStatus
	Output      string
	Error       string
	CompletedAt time.Time
}

// ArtifactCreate appends an artifact unless an identical
// (session, filename, content) triple already exists.
type ArtifactCreate struct {
	Artifact types.Artifact
}

// DocumentSet overwrites the single current-document slot.
type DocumentSet struct {
	Document types.Document
}

// CostAppend appends one cost entry and bumps the session counters.
type CostAppend struct {
	Entry types.CostEntry
	Turns int
}

// Thinking replaces the current reasoning snippet shown by the dashboard.
type Thinking struct {
	Text string
}

// MessageAppend accumulates assistant message text for the current run.
type MessageAppend struct {
	Text string
}

// CancelPending force-closes everything a cancelled run left open: running
// tool runs become cancelled and the open task returns to pending with a
// "Cancelled" status line.
type CancelPending struct {
	At time.Time
}

// Reset clears all collections and counters atomically.
type Reset struct{}

func (SessionInit) isAction()        {}
func (TaskCreate) isAction()         {}
func (TaskClose) isAction()          {}
func (ActivityCreate) isAction()     {}
func (ActivityFinish) isAction()     {}
func (ActivityStatusLine) isAction() {}
func (ToolRunCreate) isAction()      {}
func (ToolRunFinish) isAction()      {}
func (ArtifactCreate) isAction()     {}
func (DocumentSet) isAction()        {}
func (CostAppend) isAction()         {}
func (Thinking) isAction()           {}
func (MessageAppend) isAction()      {}
func (CancelPending) isAction()      {}
func (Reset) isAction()              {}
