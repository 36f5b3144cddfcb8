package pipeline_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/artzaitsev/submission-scheduler/pkg/lifecycle"
	"github.com/artzaitsev/submission-scheduler/pkg/pipeline"
	"github.com/artzaitsev/submission-scheduler/pkg/queue"
	"github.com/artzaitsev/submission-scheduler/pkg/work"
	"github.com/artzaitsev/submission-scheduler/pkg/work/memstore"
)

func seedUploadedSubmission(t *testing.T, repo work.Repository) string {
	t.Helper()
	ctx := context.Background()
	c, err := repo.CreateCandidate(ctx, "Ada", "Lovelace")
	require.NoError(t, err)
	a, err := repo.CreateAssignment(ctx, "Graph Traversal", "Implement BFS/DFS", true)
	require.NoError(t, err)
	res, err := repo.CreateSubmissionWithSource(ctx, c.CandidatePublicID, a.AssignmentPublicID, "api_upload", "src-1", lifecycle.StateUploaded, nil, "raw/src-1.bin")
	require.NoError(t, err)
	return res.SubmissionID
}

func TestController_DrivesSubmissionToDelivered(t *testing.T) {
	ctx := context.Background()
	repo := memstore.New()
	submissionID := seedUploadedSubmission(t, repo)

	handlers := pipeline.Handlers{
		lifecycle.StageNormalized: queue.StageProcessorFunc(func(_ context.Context, claim work.WorkItemClaim) work.ProcessOutcome {
			return work.ProcessOutcome{Success: true, ArtifactRef: "normalized/" + claim.SubmissionID + ".json", ArtifactVersion: "v1"}
		}),
		lifecycle.StageLLMOutput: queue.StageProcessorFunc(func(ctx context.Context, claim work.WorkItemClaim) work.ProcessOutcome {
			err := repo.PersistEvaluation(ctx, work.EvaluationRecord{
				SubmissionID:   claim.SubmissionID,
				Score1To10:     8,
				CriteriaScores: map[string]interface{}{"correctness": 9},
				ReproducibilitySubset: work.ReproducibilitySubset{
					ChainVersion:     "v1",
					SpecVersion:      "v1",
					Model:            "claude",
					ResponseLanguage: "en",
				},
			})
			if err != nil {
				return work.ProcessOutcome{Success: false, Detail: err.Error(), ErrorCode: "internal_error"}
			}
			return work.ProcessOutcome{Success: true, ArtifactRef: "llm-output/" + claim.SubmissionID + ".json", ArtifactVersion: "v1"}
		}),
		lifecycle.StageExports: queue.StageProcessorFunc(func(ctx context.Context, claim work.WorkItemClaim) work.ProcessOutcome {
			err := repo.PersistDelivery(ctx, work.DeliveryRecord{
				SubmissionID: claim.SubmissionID,
				Channel:      "telegram",
				Status:       "sent",
			})
			if err != nil {
				return work.ProcessOutcome{Success: false, Detail: err.Error(), ErrorCode: "internal_error"}
			}
			return work.ProcessOutcome{Success: true}
		}),
	}

	ctrl := pipeline.New(repo, "pipeline-harness", 30, handlers)

	final, err := ctrl.Drive(ctx, submissionID)
	require.NoError(t, err)
	assert.Equal(t, lifecycle.StateDelivered, final.Status)
	assert.Nil(t, final.LastErrorCode)

	ref, err := repo.GetArtifactRef(ctx, submissionID, lifecycle.StageNormalized)
	require.NoError(t, err)
	assert.Equal(t, "normalized/"+submissionID+".json", ref)

	ref, err = repo.GetArtifactRef(ctx, submissionID, lifecycle.StageLLMOutput)
	require.NoError(t, err)
	assert.Equal(t, "llm-output/"+submissionID+".json", ref)
}

func TestController_RoutesTerminalErrorToFailedState(t *testing.T) {
	ctx := context.Background()
	repo := memstore.New()
	submissionID := seedUploadedSubmission(t, repo)

	handlers := pipeline.Handlers{
		lifecycle.StageNormalized: queue.StageProcessorFunc(func(context.Context, work.WorkItemClaim) work.ProcessOutcome {
			return work.ProcessOutcome{Success: false, Detail: "bad schema", ErrorCode: "schema_validation_failed"}
		}),
	}

	ctrl := pipeline.New(repo, "pipeline-harness", 30, handlers)

	final, err := ctrl.Drive(ctx, submissionID)
	require.NoError(t, err)
	assert.Equal(t, lifecycle.StateFailedNormalization, final.Status)
	require.NotNil(t, final.LastErrorCode)
	assert.Equal(t, "schema_validation_failed", *final.LastErrorCode)
}

func TestController_RetriesUntilDeadLetter(t *testing.T) {
	ctx := context.Background()
	repo := memstore.New()
	submissionID := seedUploadedSubmission(t, repo)

	handlers := pipeline.Handlers{
		lifecycle.StageNormalized: queue.StageProcessorFunc(func(context.Context, work.WorkItemClaim) work.ProcessOutcome {
			return work.ProcessOutcome{Success: false, Detail: "transient", ErrorCode: "internal_error"}
		}),
	}

	ctrl := pipeline.New(repo, "pipeline-harness", 30, handlers)

	final, err := ctrl.Drive(ctx, submissionID)
	require.NoError(t, err)
	assert.Equal(t, lifecycle.StateDeadLetter, final.Status)
	assert.Equal(t, 3, final.AttemptNormalization)
}

func TestController_RunStageOnce_UnregisteredStage(t *testing.T) {
	repo := memstore.New()
	ctrl := pipeline.New(repo, "pipeline-harness", 30, pipeline.Handlers{})

	err := ctrl.RunStageOnce(context.Background(), lifecycle.StageNormalized)
	require.Error(t, err)
}
