// Package queue provides the generic stage worker loop shared by all four
// pipeline stages (spec.md §4.5): claim, heartbeat-concurrent-with-process,
// link artifact, finalize.
package queue

import (
	"context"
	"errors"
	"time"

	"github.com/artzaitsev/submission-scheduler/pkg/work"
)

// ErrNoWorkAvailable indicates the claimed stage's source queue was empty.
var ErrNoWorkAvailable = errors.New("no work available")

// StageProcessor is the pure process function boundary (Design Note 9): it
// receives a claimed work item and returns a ProcessOutcome describing what
// happened, never touching submission state itself. The worker loop is the
// only thing that calls back into work.Repository to record the outcome.
type StageProcessor interface {
	Process(ctx context.Context, claim work.WorkItemClaim) work.ProcessOutcome
}

// StageProcessorFunc adapts a plain function to StageProcessor.
type StageProcessorFunc func(ctx context.Context, claim work.WorkItemClaim) work.ProcessOutcome

// Process implements StageProcessor.
func (f StageProcessorFunc) Process(ctx context.Context, claim work.WorkItemClaim) work.ProcessOutcome {
	return f(ctx, claim)
}

// WorkerStatus represents the current state of a worker.
type WorkerStatus string

// Worker status constants.
const (
	WorkerStatusIdle    WorkerStatus = "idle"
	WorkerStatusWorking WorkerStatus = "working"
)

// WorkerHealth contains health information for a single worker.
type WorkerHealth struct {
	ID                  string    `json:"id"`
	Status              string    `json:"status"`
	CurrentSubmissionID string    `json:"current_submission_id,omitempty"`
	ItemsProcessed      int       `json:"items_processed"`
	LastActivity        time.Time `json:"last_activity"`
}
