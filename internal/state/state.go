// internal/state/state.go
package state

import (
	"github.com/user/clawboard/internal/types"
)

// State holds every collection the dashboard renders. It is owned by the
// session controller and mutated exclusively through Apply; the classifier
// and the HTTP layer never write it directly.
type State struct {
	SessionID types.SessionID `json:"session_id,omitempty"`

	// Activities is the timeline, most-recent-first.
	Activities []types.Activity `json:"activities"`
	Tasks      []types.Task     `json:"tasks"`
	// ToolRuns is an append-only ledger in start order.
	ToolRuns  []types.ToolRun   `json:"tool_runs"`
	Artifacts []types.Artifact  `json:"artifacts"`
	Costs     []types.CostEntry `json:"costs"`
	Document  *types.Document   `json:"document,omitempty"`

	Thinking string `json:"thinking,omitempty"`
	Message  string `json:"message,omitempty"`

	// Session counters. Monotonically non-decreasing except on Reset.
	TotalCost float64 `json:"total_cost"`
	Turns     int     `json:"turns"`
}

// New returns an empty State.
func New() *State {
	return &State{}
}

// Apply folds one action into the state. Applying the same ordered action
// sequence to the same initial state always produces the same result; the
// reducer performs no I/O and generates no ids or timestamps of its own.
func (s *State) Apply(action Action) {
	switch a := action.(type) {
	case SessionInit:
		s.SessionID = a.SessionID

	case TaskCreate:
		s.Tasks = append(s.Tasks, a.Task)

	case TaskClose:
		for i := len(s.Tasks) - 1; i >= 0; i-- {
			if s.Tasks[i].Status != types.TaskInProgress {
				continue
			}
			s.Tasks[i].Status = a.Status
			s.Tasks[i].Duration = a.Duration
			s.Tasks[i].StatusLine = a.StatusLine
			return
		}
		// No open task: defensive no-op.

	case ActivityCreate:
		s.Activities = append([]types.Activity{a.Activity}, s.Activities...)

	case ActivityFinish:
		for i := range s.Activities {
			if s.Activities[i].ID != a.ID {
				continue
			}
			s.Activities[i].Status = a.Status
			if a.Duration != "" {
				s.Activities[i].Duration = a.Duration
			}
			if a.Status == types.ActivityFailed && a.Description != "" {
				s.Activities[i].Description = a.Description
			}
			return
		}

	case ActivityStatusLine:
		for i := range s.Activities {
			if s.Activities[i].ID == a.ID {
				s.Activities[i].StatusLine = a.StatusLine
				return
			}
		}

	case ToolRunCreate:
		s.ToolRuns = append(s.ToolRuns, a.Run)

	case ToolRunFinish:
		for i := range s.ToolRuns {
			if s.ToolRuns[i].CallID != a.CallID {
				continue
			}
			if s.ToolRuns[i].Status != types.ToolRunRunning {
				return // terminal status never reverts
			}
			s.ToolRuns[i].Status = a.Status
			s.ToolRuns[i].Output = a.Output
			s.ToolRuns[i].Error = a.Error
			completed := a.CompletedAt
			s.ToolRuns[i].CompletedAt = &completed
			s.ToolRuns[i].Progress = 1
			return
		}

	case ArtifactCreate:
		for i := range s.Artifacts {
			if s.Artifacts[i].SessionID == a.Artifact.SessionID &&
				s.Artifacts[i].Filename == a.Artifact.Filename &&
				s.Artifacts[i].Content == a.Artifact.Content {
				return // identical repeat; revisioning is downstream's problem
			}
		}
		s.Artifacts = append(s.Artifacts, a.Artifact)

	case DocumentSet:
		doc := a.Document
		s.Document = &doc

	case CostAppend:
		s.Costs = append(s.Costs, a.Entry)
		s.TotalCost += a.Entry.Cost.Total
		s.Turns += a.Turns

	case Thinking:
		s.Thinking = a.Text

	case MessageAppend:
		s.Message += a.Text

	case CancelPending:
		for i := range s.ToolRuns {
			if s.ToolRuns[i].Status != types.ToolRunRunning {
				continue
			}
			s.ToolRuns[i].Status = types.ToolRunCancelled
			completed := a.At
			s.ToolRuns[i].CompletedAt = &completed
		}
		for i := range s.Activities {
			if s.Activities[i].Status == types.ActivityRunning {
				s.Activities[i].Status = types.ActivityCompleted
				s.Activities[i].StatusLine = "Cancelled"
			}
		}
		for i := len(s.Tasks) - 1; i >= 0; i-- {
			if s.Tasks[i].Status == types.TaskInProgress {
				s.Tasks[i].Status = types.TaskPending
				s.Tasks[i].StatusLine = "Cancelled"
				break
			}
		}

	case Reset:
		*s = State{}
	}
}

// OpenTask returns the currently in_progress task, or nil.
func (s *State) OpenTask() *types.Task {
	for i := len(s.Tasks) - 1; i >= 0; i-- {
		if s.Tasks[i].Status == types.TaskInProgress {
			return &s.Tasks[i]
		}
	}
	return nil
}

// Snapshot returns a copy safe to hand outside the controller. Slice
// elements are copied by value; their nested reference fields are treated as
// immutable after creation.
func (s *State) Snapshot() State {
	out := *s
	out.Activities = append([]types.Activity(nil), s.Activities...)
	out.Tasks = append([]types.Task(nil), s.Tasks...)
	out.ToolRuns = append([]types.ToolRun(nil), s.ToolRuns...)
	out.Artifacts = append([]types.Artifact(nil), s.Artifacts...)
	out.Costs = append([]types.CostEntry(nil), s.Costs...)
	if s.Document != nil {
		doc := *s.Document
		out.Document = &doc
	}
	return out
}
