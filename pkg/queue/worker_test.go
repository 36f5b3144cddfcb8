package queue_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/artzaitsev/submission-scheduler/pkg/lifecycle"
	"github.com/artzaitsev/submission-scheduler/pkg/queue"
	"github.com/artzaitsev/submission-scheduler/pkg/work"
	"github.com/artzaitsev/submission-scheduler/pkg/work/memstore"
)

func TestWorker_Health(t *testing.T) {
	repo := memstore.New()
	w := queue.NewWorker("worker-1", lifecycle.StageNormalized, repo, queue.StageProcessorFunc(
		func(context.Context, work.WorkItemClaim) work.ProcessOutcome { return work.ProcessOutcome{Success: true} },
	), 30, time.Second)

	h := w.Health()
	assert.Equal(t, "worker-1", h.ID)
	assert.Equal(t, string(queue.WorkerStatusIdle), h.Status)
	assert.Equal(t, "", h.CurrentSubmissionID)
	assert.Equal(t, 0, h.ItemsProcessed)
}

func TestWorker_RunOnce_NoWorkAvailable(t *testing.T) {
	repo := memstore.New()
	w := queue.NewWorker("worker-1", lifecycle.StageNormalized, repo, queue.StageProcessorFunc(
		func(context.Context, work.WorkItemClaim) work.ProcessOutcome { return work.ProcessOutcome{Success: true} },
	), 30, time.Second)

	err := w.RunOnce(context.Background())
	assert.ErrorIs(t, err, queue.ErrNoWorkAvailable)
}

func TestWorker_RunOnce_SuccessAdvancesState(t *testing.T) {
	ctx := context.Background()
	repo := memstore.New()

	c, err := repo.CreateCandidate(ctx, "Ada", "Lovelace")
	require.NoError(t, err)
	a, err := repo.CreateAssignment(ctx, "Graph Traversal", "Implement BFS/DFS", true)
	require.NoError(t, err)
	res, err := repo.CreateSubmissionWithSource(ctx, c.CandidatePublicID, a.AssignmentPublicID, "api_upload", "src-1", lifecycle.StateUploaded, nil, "")
	require.NoError(t, err)

	w := queue.NewWorker("worker-1", lifecycle.StageNormalized, repo, queue.StageProcessorFunc(
		func(_ context.Context, claim work.WorkItemClaim) work.ProcessOutcome {
			assert.Equal(t, res.SubmissionID, claim.SubmissionID)
			return work.ProcessOutcome{Success: true, ArtifactRef: "normalized/x.json", ArtifactVersion: "v1"}
		},
	), 30, time.Second)

	require.NoError(t, w.RunOnce(ctx))

	snap, err := repo.GetSubmission(ctx, res.SubmissionID)
	require.NoError(t, err)
	assert.Equal(t, lifecycle.StateNormalized, snap.Status)

	ref, err := repo.GetArtifactRef(ctx, res.SubmissionID, lifecycle.StageNormalized)
	require.NoError(t, err)
	assert.Equal(t, "normalized/x.json", ref)

	h := w.Health()
	assert.Equal(t, 1, h.ItemsProcessed)
}

func TestWorker_RunOnce_FailureRoutesBackToSource(t *testing.T) {
	ctx := context.Background()
	repo := memstore.New()

	c, err := repo.CreateCandidate(ctx, "Ada", "Lovelace")
	require.NoError(t, err)
	a, err := repo.CreateAssignment(ctx, "Graph Traversal", "Implement BFS/DFS", true)
	require.NoError(t, err)
	res, err := repo.CreateSubmissionWithSource(ctx, c.CandidatePublicID, a.AssignmentPublicID, "api_upload", "src-1", lifecycle.StateUploaded, nil, "")
	require.NoError(t, err)

	w := queue.NewWorker("worker-1", lifecycle.StageNormalized, repo, queue.StageProcessorFunc(
		func(context.Context, work.WorkItemClaim) work.ProcessOutcome {
			return work.ProcessOutcome{Success: false, Detail: "boom", ErrorCode: "internal_error"}
		},
	), 30, time.Second)

	require.NoError(t, w.RunOnce(ctx))

	snap, err := repo.GetSubmission(ctx, res.SubmissionID)
	require.NoError(t, err)
	assert.Equal(t, lifecycle.StateUploaded, snap.Status)
	assert.Equal(t, 1, snap.AttemptNormalization)
}

// TestWorker_RunOnce_LeaseLostSkipsFinalize exercises spec.md §4.5's
// lease-loss path: if the heartbeat ever discovers the claim no longer
// belongs to this worker, RunOnce must report an invariant fault and must
// not call finalize (no state transition, no artifact link) — otherwise a
// worker whose lease was reclaimed could clobber whatever the new claimant
// already wrote.
func TestWorker_RunOnce_LeaseLostSkipsFinalize(t *testing.T) {
	ctx := context.Background()
	repo := memstore.New()

	c, err := repo.CreateCandidate(ctx, "Ada", "Lovelace")
	require.NoError(t, err)
	a, err := repo.CreateAssignment(ctx, "Graph Traversal", "Implement BFS/DFS", true)
	require.NoError(t, err)
	res, err := repo.CreateSubmissionWithSource(ctx, c.CandidatePublicID, a.AssignmentPublicID, "api_upload", "src-1", lifecycle.StateUploaded, nil, "")
	require.NoError(t, err)

	const workerID = "worker-1"
	w := queue.NewWorker(workerID, lifecycle.StageNormalized, repo, queue.StageProcessorFunc(
		func(_ context.Context, claim work.WorkItemClaim) work.ProcessOutcome {
			// Simulate a second process reclaiming this worker's claim as
			// orphaned while this one is still mid-process.
			_, reclaimErr := repo.ReclaimOwnedByWorker(ctx, workerID)
			require.NoError(t, reclaimErr)
			// Give the heartbeat goroutine time to observe the loss.
			time.Sleep(40 * time.Millisecond)
			return work.ProcessOutcome{Success: true, ArtifactRef: "normalized/x.json", ArtifactVersion: "v1"}
		},
	), 30, 10*time.Millisecond)

	err = w.RunOnce(ctx)
	require.Error(t, err)
	var invariantErr *work.InvariantError
	assert.True(t, errors.As(err, &invariantErr))

	_, err = repo.GetArtifactRef(ctx, res.SubmissionID, lifecycle.StageNormalized)
	assert.ErrorIs(t, err, work.ErrNotFound)

	snap, err := repo.GetSubmission(ctx, res.SubmissionID)
	require.NoError(t, err)
	assert.Equal(t, lifecycle.StateUploaded, snap.Status)
}
