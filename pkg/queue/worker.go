package queue

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/artzaitsev/submission-scheduler/pkg/lifecycle"
	"github.com/artzaitsev/submission-scheduler/pkg/work"
)

// Worker is a single queue worker bound to one pipeline stage. It polls
// that stage's source state, claims one submission at a time, keeps its
// lease alive while StageProcessor runs, and finalizes the outcome.
type Worker struct {
	id           string
	stage        lifecycle.Stage
	repo         work.Repository
	process      StageProcessor
	leaseSeconds int
	heartbeat    time.Duration

	mu                  sync.RWMutex
	status              WorkerStatus
	currentSubmissionID string
	itemsProcessed      int
	lastActivity        time.Time
}

// NewWorker creates a worker for stage, identified by id (used as the
// claim's claimed_by value and the heartbeat owner).
func NewWorker(id string, stage lifecycle.Stage, repo work.Repository, process StageProcessor, leaseSeconds int, heartbeatInterval time.Duration) *Worker {
	return &Worker{
		id:           id,
		stage:        stage,
		repo:         repo,
		process:      process,
		leaseSeconds: leaseSeconds,
		heartbeat:    heartbeatInterval,
		status:       WorkerStatusIdle,
		lastActivity: time.Now(),
	}
}

// Health returns the current worker health status.
func (w *Worker) Health() WorkerHealth {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return WorkerHealth{
		ID:                  w.id,
		Status:              string(w.status),
		CurrentSubmissionID: w.currentSubmissionID,
		ItemsProcessed:      w.itemsProcessed,
		LastActivity:        w.lastActivity,
	}
}

// RunOnce claims at most one submission and drives it through process and
// finalize. Returns ErrNoWorkAvailable when the stage's source queue is
// empty — callers should treat that as an idle tick, not an error.
func (w *Worker) RunOnce(ctx context.Context) error {
	claim, err := w.repo.ClaimNext(ctx, w.stage, w.id, w.leaseSeconds)
	if err != nil {
		if errors.Is(err, work.ErrNotFound) {
			return ErrNoWorkAvailable
		}
		return fmt.Errorf("claim_next: %w", err)
	}

	log := slog.With("submission_id", claim.SubmissionID, "stage", w.stage, "worker_id", w.id)
	log.Info("claimed submission")

	w.setStatus(WorkerStatusWorking, claim.SubmissionID)
	defer w.setStatus(WorkerStatusIdle, "")

	var leaseLost atomic.Bool
	heartbeatDone := make(chan struct{})
	heartbeatCtx, cancelHeartbeat := context.WithCancel(ctx)
	go func() {
		defer close(heartbeatDone)
		w.runHeartbeat(heartbeatCtx, claim.SubmissionID, &leaseLost)
	}()

	outcome := w.process.Process(ctx, claim)
	cancelHeartbeat()
	<-heartbeatDone

	if leaseLost.Load() {
		err := work.NewInvariantError("run_once", fmt.Sprintf("lease for submission %s lost to another worker mid-process, finalize skipped", claim.SubmissionID))
		log.Error("lease lost during processing", "error", err)
		return err
	}

	if err := w.finalize(context.Background(), claim, outcome); err != nil {
		log.Error("failed to finalize submission", "error", err)
		return err
	}

	w.mu.Lock()
	w.itemsProcessed++
	w.mu.Unlock()

	log.Info("submission processing complete", "success", outcome.Success)
	return nil
}

func (w *Worker) finalize(ctx context.Context, claim work.WorkItemClaim, outcome work.ProcessOutcome) error {
	if outcome.Success && outcome.ArtifactRef != "" {
		if err := w.repo.LinkArtifact(ctx, claim.SubmissionID, w.stage, outcome.ArtifactRef, outcome.ArtifactVersion); err != nil {
			return fmt.Errorf("link_artifact: %w", err)
		}
	}
	return w.repo.Finalize(ctx, claim.SubmissionID, w.stage, w.id, outcome.Success, outcome.Detail, outcome.ErrorCode)
}

// runHeartbeat periodically renews the lease for submissionID until ctx is
// cancelled (process finished, or the worker is shutting down). If
// HeartbeatClaim ever reports the lease no longer belongs to this worker,
// it sets leaseLost and stops renewing — the caller treats this as an
// invariant fault and skips finalize entirely (spec.md §4.5, §7).
func (w *Worker) runHeartbeat(ctx context.Context, submissionID string, leaseLost *atomic.Bool) {
	ticker := time.NewTicker(w.heartbeat)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			ok, err := w.repo.HeartbeatClaim(ctx, submissionID, w.stage, w.id, w.leaseSeconds)
			if err != nil {
				slog.Warn("heartbeat failed", "submission_id", submissionID, "error", err)
				continue
			}
			if !ok {
				slog.Warn("heartbeat found claim no longer owned", "submission_id", submissionID, "worker_id", w.id)
				leaseLost.Store(true)
				return
			}
		}
	}
}

func (w *Worker) setStatus(status WorkerStatus, submissionID string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.status = status
	w.currentSubmissionID = submissionID
	w.lastActivity = time.Now()
}
