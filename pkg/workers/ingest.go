// Package workers holds the four StageProcessor implementations the
// runners drive: fetch the raw payload from its intake channel, normalize
// it to markdown, evaluate it against the rubric, and deliver the result.
// Each processor is a thin orchestration layer over its stage's
// collaborator boundary (spec.md §6) — object storage, the model client,
// the notification transport — with no persistence logic of its own; the
// worker loop in pkg/queue owns every state transition.
package workers

import (
	"context"
	"fmt"

	"github.com/artzaitsev/submission-scheduler/pkg/errtaxonomy"
	"github.com/artzaitsev/submission-scheduler/pkg/objectstorage"
	"github.com/artzaitsev/submission-scheduler/pkg/telegram"
	"github.com/artzaitsev/submission-scheduler/pkg/work"
)

// IngestProcessor implements the raw stage: fetch the uploaded file's bytes
// from its intake channel and land them in object storage under raw/.
// Direct API uploads never reach this stage (they're created already in
// "uploaded" with their raw artifact linked at upload time); this processor
// only ever sees telegram_webhook submissions.
type IngestProcessor struct {
	repo            work.Repository
	telegram        telegram.Source
	storage         objectstorage.Client
	artifactVersion string
}

// NewIngestProcessor builds the raw stage processor. artifactVersion is
// recorded against every raw artifact link it produces (the artifact
// contract version active for this deployment, not a per-file version).
func NewIngestProcessor(repo work.Repository, source telegram.Source, storage objectstorage.Client, artifactVersion string) *IngestProcessor {
	return &IngestProcessor{repo: repo, telegram: source, storage: storage, artifactVersion: artifactVersion}
}

// Process implements queue.StageProcessor.
func (p *IngestProcessor) Process(ctx context.Context, claim work.WorkItemClaim) work.ProcessOutcome {
	source, err := p.repo.GetSubmissionSource(ctx, claim.SubmissionID)
	if err != nil {
		return failure(errtaxonomy.CodeInternalError, fmt.Sprintf("load submission source: %v", err))
	}

	fileID, _ := source.Metadata["file_id"].(string)
	if fileID == "" {
		return failure(errtaxonomy.CodeTelegramUpdateInvalid, "telegram update is missing file_id")
	}
	fileName, _ := source.Metadata["file_name"].(string)
	if fileName == "" {
		fileName = "telegram_file.bin"
	}

	payload, err := p.telegram.GetFileBytes(ctx, fileID)
	if err != nil {
		return failure(errtaxonomy.CodeTelegramFileFetchFail, fmt.Sprintf("fetch telegram file %s: %v", fileID, err))
	}

	key := fmt.Sprintf("raw/%s/%s", claim.SubmissionID, fileName)
	ref, err := p.storage.PutBytes(ctx, key, payload)
	if err != nil {
		return failure(errtaxonomy.CodeInternalError, fmt.Sprintf("store raw payload: %v", err))
	}

	return work.ProcessOutcome{
		Success:         true,
		Detail:          "raw payload fetched and stored",
		ArtifactRef:     ref,
		ArtifactVersion: p.artifactVersion,
	}
}

func failure(code errtaxonomy.Code, detail string) work.ProcessOutcome {
	return work.ProcessOutcome{Success: false, Detail: detail, ErrorCode: string(code)}
}
