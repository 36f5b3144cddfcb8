package runner_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/artzaitsev/submission-scheduler/pkg/lifecycle"
	"github.com/artzaitsev/submission-scheduler/pkg/queue"
	"github.com/artzaitsev/submission-scheduler/pkg/runner"
	"github.com/artzaitsev/submission-scheduler/pkg/work"
	"github.com/artzaitsev/submission-scheduler/pkg/work/memstore"
)

func TestRunner_ProcessesSeededSubmissions(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	repo := memstore.New()
	c, err := repo.CreateCandidate(ctx, "Ada", "Lovelace")
	require.NoError(t, err)
	a, err := repo.CreateAssignment(ctx, "Graph Traversal", "Implement BFS/DFS", true)
	require.NoError(t, err)
	_, err = repo.CreateSubmissionWithSource(ctx, c.CandidatePublicID, a.AssignmentPublicID, "api_upload", "src-1", lifecycle.StateUploaded, nil, "")
	require.NoError(t, err)

	processed := make(chan struct{}, 1)
	process := queue.StageProcessorFunc(func(context.Context, work.WorkItemClaim) work.ProcessOutcome {
		select {
		case processed <- struct{}{}:
		default:
		}
		return work.ProcessOutcome{Success: true}
	})

	r := runner.New("test-pod", lifecycle.StageNormalized, repo, process, runner.Config{
		WorkerCount:        1,
		PollInterval:       20 * time.Millisecond,
		PollIntervalJitter: 0,
		ErrorBackoff:       20 * time.Millisecond,
		LeaseSeconds:       30,
		HeartbeatInterval:  time.Second,
		ReclaimInterval:    time.Hour,
	})
	r.Start(ctx)
	defer r.Stop()

	select {
	case <-processed:
	case <-ctx.Done():
		t.Fatal("timed out waiting for submission to be processed")
	}

	health := r.Health()
	assert.Equal(t, lifecycle.StageNormalized, health.Stage)
	assert.Equal(t, 1, health.TotalWorkers)
	assert.GreaterOrEqual(t, health.Claims, int64(1))
}
