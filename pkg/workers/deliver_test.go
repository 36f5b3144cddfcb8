package workers_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/artzaitsev/submission-scheduler/pkg/lifecycle"
	"github.com/artzaitsev/submission-scheduler/pkg/work"
	"github.com/artzaitsev/submission-scheduler/pkg/work/memstore"
	"github.com/artzaitsev/submission-scheduler/pkg/workers"
)

type fakeTransport struct {
	externalID string
	err        error
	calls      int
}

func (f *fakeTransport) SendResultNotification(_ context.Context, _, _ string) (string, error) {
	f.calls++
	if f.err != nil {
		return "", f.err
	}
	return f.externalID, nil
}

func claimEvaluatedSubmission(t *testing.T, ctx context.Context, repo work.Repository) work.WorkItemClaim {
	t.Helper()
	candidate, err := repo.CreateCandidate(ctx, "Ada", "Lovelace")
	require.NoError(t, err)
	assignment, err := repo.CreateAssignment(ctx, "Graph Traversal", "Implement BFS", true)
	require.NoError(t, err)
	result, err := repo.CreateSubmissionWithSource(ctx, candidate.CandidatePublicID, assignment.AssignmentPublicID, "api_upload", "ext-1", lifecycle.StateEvaluated, nil, "")
	require.NoError(t, err)

	require.NoError(t, repo.PersistEvaluation(ctx, work.EvaluationRecord{
		SubmissionID: result.SubmissionID,
		Score1To10:   9,
		CandidateFeedback: map[string]interface{}{
			"summary": "great work overall",
		},
		ReproducibilitySubset: work.ReproducibilitySubset{
			ChainVersion:     "v1",
			SpecVersion:      "1",
			Model:            "claude",
			ResponseLanguage: "en",
		},
	}))

	claim, err := repo.ClaimNext(ctx, lifecycle.StageExports, "worker-1", 30)
	require.NoError(t, err)
	require.Equal(t, result.SubmissionID, claim.SubmissionID)
	return claim
}

func TestDeliverProcessor_Success(t *testing.T) {
	ctx := context.Background()
	repo := memstore.New()
	claim := claimEvaluatedSubmission(t, ctx, repo)

	transport := &fakeTransport{externalID: "msg-1"}
	proc := workers.NewDeliverProcessor(repo, transport, "slack")

	outcome := proc.Process(ctx, claim)
	require.True(t, outcome.Success)
	assert.Equal(t, 1, transport.calls)
}

func TestDeliverProcessor_TransportFailureReportsRecoverableCode(t *testing.T) {
	ctx := context.Background()
	repo := memstore.New()
	claim := claimEvaluatedSubmission(t, ctx, repo)

	transport := &fakeTransport{err: errors.New("slack down")}
	proc := workers.NewDeliverProcessor(repo, transport, "slack")

	outcome := proc.Process(ctx, claim)
	assert.False(t, outcome.Success)
	assert.Equal(t, "delivery_transport_failed", outcome.ErrorCode)
}

func TestDeliverProcessor_MissingEvaluationFails(t *testing.T) {
	ctx := context.Background()
	repo := memstore.New()
	candidate, err := repo.CreateCandidate(ctx, "Ada", "Lovelace")
	require.NoError(t, err)
	assignment, err := repo.CreateAssignment(ctx, "Graph Traversal", "Implement BFS", true)
	require.NoError(t, err)
	result, err := repo.CreateSubmissionWithSource(ctx, candidate.CandidatePublicID, assignment.AssignmentPublicID, "api_upload", "ext-2", lifecycle.StateEvaluated, nil, "")
	require.NoError(t, err)
	claim, err := repo.ClaimNext(ctx, lifecycle.StageExports, "worker-1", 30)
	require.NoError(t, err)
	require.Equal(t, result.SubmissionID, claim.SubmissionID)

	proc := workers.NewDeliverProcessor(repo, &fakeTransport{}, "slack")
	outcome := proc.Process(ctx, claim)
	assert.False(t, outcome.Success)
	assert.Equal(t, "artifact_missing", outcome.ErrorCode)
}
