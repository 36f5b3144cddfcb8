package workers

import (
	"context"
	"errors"
	"fmt"

	"github.com/artzaitsev/submission-scheduler/pkg/artifact"
	"github.com/artzaitsev/submission-scheduler/pkg/errtaxonomy"
	"github.com/artzaitsev/submission-scheduler/pkg/lifecycle"
	"github.com/artzaitsev/submission-scheduler/pkg/normalization"
	"github.com/artzaitsev/submission-scheduler/pkg/objectstorage"
	"github.com/artzaitsev/submission-scheduler/pkg/work"
)

// NormalizeProcessor implements the normalized stage: read the linked raw
// artifact, extract plain text from it, unify whitespace into a single
// markdown body, and save the result as the submission's normalized
// artifact.
type NormalizeProcessor struct {
	repo            work.Repository
	storage         objectstorage.Client
	artifacts       *artifact.Repository
	artifactVersion string
}

// NewNormalizeProcessor builds the normalize stage processor.
func NewNormalizeProcessor(repo work.Repository, storage objectstorage.Client, artifacts *artifact.Repository, artifactVersion string) *NormalizeProcessor {
	return &NormalizeProcessor{repo: repo, storage: storage, artifacts: artifacts, artifactVersion: artifactVersion}
}

// Process implements queue.StageProcessor.
func (p *NormalizeProcessor) Process(ctx context.Context, claim work.WorkItemClaim) work.ProcessOutcome {
	submission, err := p.repo.GetSubmission(ctx, claim.SubmissionID)
	if err != nil {
		return failure(errtaxonomy.CodeInternalError, fmt.Sprintf("load submission: %v", err))
	}

	rawRef, err := p.repo.GetArtifactRef(ctx, claim.SubmissionID, lifecycle.StageRaw)
	if err != nil {
		return failure(errtaxonomy.CodeArtifactMissing, fmt.Sprintf("no raw artifact linked: %v", err))
	}

	raw, err := p.storage.GetBytes(ctx, rawRef)
	if err != nil {
		return failure(errtaxonomy.CodeArtifactMissing, fmt.Sprintf("fetch raw artifact %s: %v", rawRef, err))
	}

	source, err := p.repo.GetSubmissionSource(ctx, claim.SubmissionID)
	if err != nil {
		return failure(errtaxonomy.CodeInternalError, fmt.Sprintf("load submission source: %v", err))
	}

	ext := normalization.ExtensionFromRef(rawRef)
	text, err := normalization.ParseToText(ext, raw)
	if err != nil {
		switch {
		case errors.Is(err, normalization.ErrUnsupportedFormat):
			return failure(errtaxonomy.CodeUnsupportedFormat, err.Error())
		case errors.Is(err, normalization.ErrParseFailed):
			return failure(errtaxonomy.CodeSchemaValidationFailed, err.Error())
		default:
			return failure(errtaxonomy.CodeInternalError, err.Error())
		}
	}
	markdown := normalization.ToUnifiedMarkdown(text)

	sourceType := artifactSourceType(source.SourceType)
	normalized := artifact.NewNormalizedArtifact(
		claim.SubmissionID,
		submission.AssignmentPublicID,
		sourceType,
		markdown,
		map[string]interface{}{"source_extension": ext},
	)

	ref, err := p.artifacts.SaveNormalized(ctx, claim.SubmissionID, normalized)
	if err != nil {
		return failure(errtaxonomy.CodeInternalError, fmt.Sprintf("save normalized artifact: %v", err))
	}

	return work.ProcessOutcome{
		Success:         true,
		Detail:          "normalized to markdown",
		ArtifactRef:     ref,
		ArtifactVersion: p.artifactVersion,
	}
}

func artifactSourceType(raw string) artifact.SourceType {
	if raw == string(artifact.SourceTelegramWebhook) {
		return artifact.SourceTelegramWebhook
	}
	return artifact.SourceAPIUpload
}
