// Package worktest holds the property/scenario suite every work.Repository
// implementation must pass (spec.md §8). Both pkg/work/memstore and
// pkg/work/pgstore run it against a fresh, empty repository.
package worktest

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/artzaitsev/submission-scheduler/pkg/lifecycle"
	"github.com/artzaitsev/submission-scheduler/pkg/work"
)

// Fixture seeds a candidate and an active assignment, returning their
// public ids for use by scenario helpers.
func Fixture(t *testing.T, ctx context.Context, repo work.Repository) (candidateID, assignmentID string) {
	t.Helper()
	c, err := repo.CreateCandidate(ctx, "Ada", "Lovelace")
	require.NoError(t, err)
	a, err := repo.CreateAssignment(ctx, "Graph Traversal", "Implement BFS/DFS", true)
	require.NoError(t, err)
	return c.CandidatePublicID, a.AssignmentPublicID
}

// seedUploaded creates n submissions already in the "uploaded" state, ready
// to be claimed by the normalized stage.
func seedUploaded(t *testing.T, ctx context.Context, repo work.Repository, n int) []string {
	t.Helper()
	candidateID, assignmentID := Fixture(t, ctx, repo)
	ids := make([]string, 0, n)
	for i := 0; i < n; i++ {
		res, err := repo.CreateSubmissionWithSource(ctx, candidateID, assignmentID, "api_upload", idFor(i), lifecycle.StateUploaded, nil, "")
		require.NoError(t, err)
		require.True(t, res.Created)
		ids = append(ids, res.SubmissionID)
	}
	return ids
}

func idFor(i int) string {
	return "src-" + time.Now().Format("150405") + "-" + string(rune('a'+i))
}

// RunSuite exercises P1 (claim exclusivity), P3 (retry then dead_letter),
// P5 (stale ownership guard), P6 (idempotent source upsert) and the concrete
// scenarios from spec.md §8 against a freshly constructed, empty repository.
func RunSuite(t *testing.T, newRepo func() work.Repository) {
	t.Run("P1_ClaimExclusivity", func(t *testing.T) { testClaimExclusivity(t, newRepo()) })
	t.Run("P3_RetryThenDeadLetter", func(t *testing.T) { testRetryThenDeadLetter(t, newRepo()) })
	t.Run("TerminalErrorRouting", func(t *testing.T) { testTerminalErrorRouting(t, newRepo()) })
	t.Run("LeaseExpiryReclaim", func(t *testing.T) { testLeaseExpiryReclaim(t, newRepo()) })
	t.Run("StaleOwnershipGuard", func(t *testing.T) { testStaleOwnershipGuard(t, newRepo()) })
	t.Run("P6_IdempotentSourceUpsert", func(t *testing.T) { testIdempotentSourceUpsert(t, newRepo()) })
	t.Run("SubmissionSourceRoundTrip", func(t *testing.T) { testSubmissionSourceRoundTrip(t, newRepo()) })
	t.Run("ExportProjectionFilter", func(t *testing.T) { testExportProjectionFilter(t, newRepo()) })
	t.Run("ClaimOnEmptyQueueReturnsNotFound", func(t *testing.T) { testClaimOnEmptyQueue(t, newRepo()) })
	t.Run("ReclaimIsNoOpWhenNothingExpired", func(t *testing.T) { testReclaimNoOp(t, newRepo()) })
	t.Run("TransitionRejectsArbitraryEdge", func(t *testing.T) { testTransitionRejectsArbitraryEdge(t, newRepo()) })
	t.Run("ReclaimOwnedByWorkerRecoversStartupOrphans", func(t *testing.T) { testReclaimOwnedByWorker(t, newRepo()) })
}

func testClaimExclusivity(t *testing.T, repo work.Repository) {
	ctx := context.Background()
	seedUploaded(t, ctx, repo, 3)

	var (
		mu      sync.Mutex
		winners = map[string]bool{}
		wg      sync.WaitGroup
	)
	for i := 0; i < 3; i++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			claim, err := repo.ClaimNext(ctx, lifecycle.StageNormalized, workerName(worker), 30)
			require.NoError(t, err)
			mu.Lock()
			winners[claim.SubmissionID] = true
			mu.Unlock()
		}(i)
	}
	wg.Wait()

	assert.Len(t, winners, 3, "each concurrent claim must win a distinct submission")
}

func workerName(i int) string {
	return "worker-" + string(rune('a'+i))
}

func testRetryThenDeadLetter(t *testing.T, repo work.Repository) {
	ctx := context.Background()
	ids := seedUploaded(t, ctx, repo, 1)
	submissionID := ids[0]

	for cycle := 1; cycle <= 3; cycle++ {
		claim, err := repo.ClaimNext(ctx, lifecycle.StageNormalized, "w1", 30)
		require.NoError(t, err)
		require.Equal(t, submissionID, claim.SubmissionID)
		require.Equal(t, cycle, claim.Attempt)

		err = repo.Finalize(ctx, submissionID, lifecycle.StageNormalized, "w1", false, "boom", "internal_error")
		require.NoError(t, err)
	}

	snap, err := repo.GetSubmission(ctx, submissionID)
	require.NoError(t, err)
	assert.Equal(t, lifecycle.StateDeadLetter, snap.Status)
	assert.Equal(t, 3, snap.AttemptNormalization)
	require.NotNil(t, snap.LastErrorCode)
	assert.Equal(t, "internal_error", *snap.LastErrorCode)
}

func testTerminalErrorRouting(t *testing.T, repo work.Repository) {
	ctx := context.Background()
	ids := seedUploaded(t, ctx, repo, 1)
	submissionID := ids[0]

	_, err := repo.ClaimNext(ctx, lifecycle.StageNormalized, "w1", 30)
	require.NoError(t, err)

	err = repo.Finalize(ctx, submissionID, lifecycle.StageNormalized, "w1", false, "bad schema", "schema_validation_failed")
	require.NoError(t, err)

	snap, err := repo.GetSubmission(ctx, submissionID)
	require.NoError(t, err)
	assert.Equal(t, lifecycle.StateFailedNormalization, snap.Status)
}

func testLeaseExpiryReclaim(t *testing.T, repo work.Repository) {
	ctx := context.Background()
	ids := seedUploaded(t, ctx, repo, 1)
	submissionID := ids[0]

	_, err := repo.ClaimNext(ctx, lifecycle.StageNormalized, "w1", 1)
	require.NoError(t, err)

	time.Sleep(1050 * time.Millisecond)

	count, err := repo.ReclaimExpiredClaims(ctx, lifecycle.StageNormalized)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	snap, err := repo.GetSubmission(ctx, submissionID)
	require.NoError(t, err)
	assert.Equal(t, lifecycle.StateUploaded, snap.Status)
	require.NotNil(t, snap.LastErrorCode)
	assert.Equal(t, "lease_expired", *snap.LastErrorCode)
}

func testStaleOwnershipGuard(t *testing.T, repo work.Repository) {
	ctx := context.Background()
	ids := seedUploaded(t, ctx, repo, 1)
	submissionID := ids[0]

	_, err := repo.ClaimNext(ctx, lifecycle.StageNormalized, "w1", 1)
	require.NoError(t, err)
	time.Sleep(1050 * time.Millisecond)

	_, err = repo.ReclaimExpiredClaims(ctx, lifecycle.StageNormalized)
	require.NoError(t, err)

	err = repo.Finalize(ctx, submissionID, lifecycle.StageNormalized, "w1", true, "late", "")
	assert.Error(t, err, "a finalize from the original owner must fail after reclamation")

	var invErr *work.InvariantError
	assert.ErrorAs(t, err, &invErr)
}

func testIdempotentSourceUpsert(t *testing.T, repo work.Repository) {
	ctx := context.Background()
	candidateID, assignmentID := Fixture(t, ctx, repo)

	first, err := repo.CreateSubmissionWithSource(ctx, candidateID, assignmentID, "api_upload", "X", lifecycle.StateUploaded, nil, "")
	require.NoError(t, err)
	assert.True(t, first.Created)

	second, err := repo.CreateSubmissionWithSource(ctx, candidateID, assignmentID, "api_upload", "X", lifecycle.StateUploaded, nil, "")
	require.NoError(t, err)
	assert.False(t, second.Created)
	assert.Equal(t, first.SubmissionID, second.SubmissionID)
}

func testSubmissionSourceRoundTrip(t *testing.T, repo work.Repository) {
	ctx := context.Background()
	candidateID, assignmentID := Fixture(t, ctx, repo)

	metadata := map[string]interface{}{"file_id": "tg-file-1", "file_name": "essay.pdf"}
	result, err := repo.CreateSubmissionWithSource(ctx, candidateID, assignmentID, "telegram_webhook", "upd-1", lifecycle.StateTelegramUpdateReceived, metadata, "")
	require.NoError(t, err)

	source, err := repo.GetSubmissionSource(ctx, result.SubmissionID)
	require.NoError(t, err)
	assert.Equal(t, "telegram_webhook", source.SourceType)
	assert.Equal(t, "upd-1", source.SourceExternalID)
	assert.Equal(t, "tg-file-1", source.Metadata["file_id"])
	assert.Equal(t, "essay.pdf", source.Metadata["file_name"])

	_, err = repo.GetSubmissionSource(ctx, "sub_does_not_exist")
	assert.ErrorIs(t, err, work.ErrNotFound)
}

func testExportProjectionFilter(t *testing.T, repo work.Repository) {
	ctx := context.Background()
	candidateID, assignmentID := Fixture(t, ctx, repo)

	withEval, err := repo.CreateSubmissionWithSource(ctx, candidateID, assignmentID, "api_upload", "with-eval", lifecycle.StateEvaluated, nil, "")
	require.NoError(t, err)
	withoutEval, err := repo.CreateSubmissionWithSource(ctx, candidateID, assignmentID, "api_upload", "without-eval", lifecycle.StateEvaluated, nil, "")
	require.NoError(t, err)

	err = repo.PersistEvaluation(ctx, work.EvaluationRecord{
		SubmissionID: withEval.SubmissionID,
		Score1To10:   9,
		ReproducibilitySubset: work.ReproducibilitySubset{
			ChainVersion:     "chain-v1",
			SpecVersion:      "spec-v1",
			Model:            "claude",
			ResponseLanguage: "en",
		},
	})
	require.NoError(t, err)

	items, err := repo.ListSubmissions(ctx, work.ListQuery{
		Statuses: []lifecycle.State{lifecycle.StateEvaluated},
		Include:  []work.SubmissionFieldGroup{work.FieldGroupCore, work.FieldGroupEvaluation},
		SortBy:   work.SortByCreatedAt,
		Limit:    1000,
	})
	require.NoError(t, err)

	exportable := 0
	for _, item := range items {
		if item.Evaluation != nil && item.Evaluation.Score1To10 != nil && item.Evaluation.ChainVersion != "" {
			exportable++
			assert.Equal(t, withEval.SubmissionID, item.Core.PublicID)
		}
	}
	assert.Equal(t, 1, exportable)
	_ = withoutEval
}

func testClaimOnEmptyQueue(t *testing.T, repo work.Repository) {
	ctx := context.Background()
	_, err := repo.ClaimNext(ctx, lifecycle.StageNormalized, "w1", 30)
	assert.ErrorIs(t, err, work.ErrNotFound)
}

func testReclaimNoOp(t *testing.T, repo work.Repository) {
	ctx := context.Background()
	count, err := repo.ReclaimExpiredClaims(ctx, lifecycle.StageNormalized)
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}

func testReclaimOwnedByWorker(t *testing.T, repo work.Repository) {
	ctx := context.Background()
	ids := seedUploaded(t, ctx, repo, 2)

	claimed, err := repo.ClaimNext(ctx, lifecycle.StageNormalized, "stale-worker", 3600)
	require.NoError(t, err)

	count, err := repo.ReclaimOwnedByWorker(ctx, "stale-worker")
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	snap, err := repo.GetSubmission(ctx, claimed.SubmissionID)
	require.NoError(t, err)
	assert.Equal(t, lifecycle.StateUploaded, snap.Status)
	require.NotNil(t, snap.LastErrorCode)
	assert.Equal(t, "worker_restarted", *snap.LastErrorCode)

	unclaimedID := ids[0]
	if unclaimedID == claimed.SubmissionID {
		unclaimedID = ids[1]
	}
	other, err := repo.GetSubmission(ctx, unclaimedID)
	require.NoError(t, err)
	assert.Equal(t, lifecycle.StateUploaded, other.Status)

	count, err = repo.ReclaimOwnedByWorker(ctx, "stale-worker")
	require.NoError(t, err)
	assert.Equal(t, 0, count, "a second call with no claimed rows left must be a no-op")
}

func testTransitionRejectsArbitraryEdge(t *testing.T, repo work.Repository) {
	ctx := context.Background()
	ids := seedUploaded(t, ctx, repo, 1)
	submissionID := ids[0]

	err := repo.TransitionState(ctx, submissionID, lifecycle.StateUploaded, lifecycle.StateDelivered)
	assert.Error(t, err)

	var invErr *work.InvariantError
	assert.ErrorAs(t, err, &invErr)
}
