// internal/types/ids.go
package types

import (
	"github.com/google/uuid"
)

type SessionID string
type TaskID string
type ActivityID string
type ToolRunID string
type ArtifactID string
type CostEntryID string

// NewID is the default identifier generator. Components that allocate ids
// take an injectable generator so tests can run deterministically; callers
// convert the result to the typed id they need.
func NewID() string {
	return uuid.New().String()
}
