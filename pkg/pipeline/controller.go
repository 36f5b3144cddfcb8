// Package pipeline provides a synchronous, single-process harness that
// drives one submission through every stage of the lifecycle without
// spinning up runners, tick loops, or lease heartbeats (spec.md §2 item 7).
// It is built for exercising end-to-end scenarios against pkg/work/memstore
// in tests, reusing the exact claim/process/finalize path pkg/queue.Worker
// uses in production rather than a parallel implementation.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/artzaitsev/submission-scheduler/pkg/lifecycle"
	"github.com/artzaitsev/submission-scheduler/pkg/queue"
	"github.com/artzaitsev/submission-scheduler/pkg/work"
)

// Handlers maps each stage this Controller drives to the StageProcessor that
// implements it. A stage absent from the map cannot be driven; Drive returns
// an error if a submission reaches that stage's source state.
type Handlers map[lifecycle.Stage]queue.StageProcessor

// Controller composes one queue.Worker per registered stage and steps a
// single submission through them in-process, one claim/process/finalize
// cycle at a time, with no background goroutines.
type Controller struct {
	repo    work.Repository
	workers map[lifecycle.Stage]*queue.Worker
}

// New builds a Controller bound to repo and workerID (the claimed_by value
// recorded against every stage this controller drives). leaseSeconds governs
// the claim lease; the harness never heartbeats, so it should comfortably
// exceed however long the slowest StageProcessor in handlers takes to run.
func New(repo work.Repository, workerID string, leaseSeconds int, handlers Handlers) *Controller {
	workers := make(map[lifecycle.Stage]*queue.Worker, len(handlers))
	for stage, h := range handlers {
		// A heartbeat interval longer than the lease disables heartbeat
		// renewal for the harness's single synchronous RunOnce call.
		workers[stage] = queue.NewWorker(workerID, stage, repo, h, leaseSeconds, time.Duration(leaseSeconds)*time.Second*2)
	}
	return &Controller{repo: repo, workers: workers}
}

// RunStageOnce claims and finalizes at most one submission for stage,
// delegating to the same queue.Worker logic a production runner uses.
func (c *Controller) RunStageOnce(ctx context.Context, stage lifecycle.Stage) error {
	w, ok := c.workers[stage]
	if !ok {
		return fmt.Errorf("pipeline: no handler registered for stage %s", stage)
	}
	return w.RunOnce(ctx)
}

// Drive steps submissionID forward one stage at a time until it reaches a
// terminal state (delivered, dead_letter, or any failed_<stage> state) or an
// error occurs. It is meant for harnesses seeding exactly one in-flight
// submission per stage's source state at a time — if another submission is
// already queued ahead of it, RunStageOnce may claim that one instead, and
// Drive will report a stalled-progress error rather than loop forever.
func (c *Controller) Drive(ctx context.Context, submissionID string) (work.SubmissionSnapshot, error) {
	for {
		snap, err := c.repo.GetSubmission(ctx, submissionID)
		if err != nil {
			return snap, fmt.Errorf("pipeline: get submission: %w", err)
		}
		if isTerminal(snap.Status) {
			return snap, nil
		}

		stage, ok := stageForSourceState(snap.Status)
		if !ok {
			return snap, fmt.Errorf("pipeline: submission %s in state %s has no driving stage", submissionID, snap.Status)
		}

		attemptBefore := attemptCount(snap, stage)

		if err := c.RunStageOnce(ctx, stage); err != nil {
			if errors.Is(err, queue.ErrNoWorkAvailable) {
				return snap, fmt.Errorf("pipeline: stage %s queue empty while driving submission %s", stage, submissionID)
			}
			return snap, err
		}

		next, err := c.repo.GetSubmission(ctx, submissionID)
		if err != nil {
			return next, fmt.Errorf("pipeline: get submission: %w", err)
		}
		// A recoverable failure routes a submission back to the same
		// source state with its attempt counter incremented — that's
		// forward progress too, just not a stage transition. Only a
		// submission whose state AND attempt count are both unchanged
		// indicates RunStageOnce claimed some other queued submission.
		if next.Status == snap.Status && attemptCount(next, stage) == attemptBefore {
			return next, fmt.Errorf("pipeline: stage %s claimed another submission ahead of %s", stage, submissionID)
		}
	}
}

func attemptCount(snap work.SubmissionSnapshot, stage lifecycle.Stage) int {
	switch stage {
	case lifecycle.StageRaw:
		return snap.AttemptTelegramIngest
	case lifecycle.StageNormalized:
		return snap.AttemptNormalization
	case lifecycle.StageLLMOutput:
		return snap.AttemptEvaluation
	case lifecycle.StageExports:
		return snap.AttemptDelivery
	default:
		return -1
	}
}

func stageForSourceState(state lifecycle.State) (lifecycle.Stage, bool) {
	for _, stage := range lifecycle.Stages {
		if lifecycle.StageLifecycles[stage].SourceState == state {
			return stage, true
		}
	}
	return "", false
}

func isTerminal(state lifecycle.State) bool {
	switch state {
	case lifecycle.StateDelivered,
		lifecycle.StateDeadLetter,
		lifecycle.StateFailedTelegramIngest,
		lifecycle.StateFailedNormalization,
		lifecycle.StateFailedEvaluation,
		lifecycle.StateFailedDelivery:
		return true
	default:
		return false
	}
}
