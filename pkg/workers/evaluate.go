package workers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/artzaitsev/submission-scheduler/pkg/artifact"
	"github.com/artzaitsev/submission-scheduler/pkg/errtaxonomy"
	"github.com/artzaitsev/submission-scheduler/pkg/evalchain"
	"github.com/artzaitsev/submission-scheduler/pkg/lifecycle"
	"github.com/artzaitsev/submission-scheduler/pkg/llmclient"
	"github.com/artzaitsev/submission-scheduler/pkg/work"
)

// EvaluateProcessor implements the llm-output stage: load the normalized
// artifact and the assignment it was written against, render them into the
// declared rubric's prompt, call the model, validate its response against
// the rubric's response contract, and persist the evaluation and the
// underlying model-call record.
type EvaluateProcessor struct {
	repo      work.Repository
	artifacts *artifact.Repository
	llm       llmclient.Client
	chain     evalchain.Spec
	provider  string
	apiBase   string
}

// NewEvaluateProcessor builds the evaluate stage processor. chain is the
// declared rubric this deployment scores against (evalchain.LoadDefault()
// unless LLMConfig.ChainSpecPath names an override).
func NewEvaluateProcessor(repo work.Repository, artifacts *artifact.Repository, llm llmclient.Client, chain evalchain.Spec, provider, apiBase string) *EvaluateProcessor {
	return &EvaluateProcessor{repo: repo, artifacts: artifacts, llm: llm, chain: chain, provider: provider, apiBase: apiBase}
}

// Process implements queue.StageProcessor.
func (p *EvaluateProcessor) Process(ctx context.Context, claim work.WorkItemClaim) work.ProcessOutcome {
	normalizedRef, err := p.repo.GetArtifactRef(ctx, claim.SubmissionID, lifecycle.StageNormalized)
	if err != nil {
		return failure(errtaxonomy.CodeArtifactMissing, fmt.Sprintf("no normalized artifact linked: %v", err))
	}
	normalized, err := p.artifacts.LoadNormalized(ctx, normalizedRef)
	if err != nil {
		return failure(errtaxonomy.CodeArtifactMissing, fmt.Sprintf("load normalized artifact %s: %v", normalizedRef, err))
	}

	assignment, err := p.resolveAssignment(ctx, normalized.AssignmentPublicID)
	if err != nil {
		return failure(errtaxonomy.CodeArtifactMissing, err.Error())
	}

	prompt, err := evalchain.RenderUserPrompt(p.chain, map[string]interface{}{
		"assignment": map[string]interface{}{
			"title":       assignment.Title,
			"description": assignment.Description,
		},
		"normalized": map[string]interface{}{
			"content_markdown": normalized.ContentMarkdown,
		},
	})
	if err != nil {
		return failure(errtaxonomy.CodeInternalError, fmt.Sprintf("render rubric prompt: %v", err))
	}

	resp, err := p.llm.Evaluate(ctx, llmclient.Request{
		SystemPrompt:     p.chain.Prompts.System,
		UserPrompt:       prompt,
		Model:            p.chain.Model,
		Temperature:      p.chain.Runtime.Temperature,
		Seed:             p.chain.Runtime.Seed,
		ResponseLanguage: p.chain.Runtime.ResponseLanguage,
	})
	if err != nil {
		if errors.Is(err, llmclient.ErrProviderUnavailable) {
			return failure(errtaxonomy.CodeLLMProviderUnavailable, err.Error())
		}
		return failure(errtaxonomy.CodeInternalError, err.Error())
	}

	payload := resp.RawJSON
	if payload == nil {
		if err := json.Unmarshal([]byte(resp.RawText), &payload); err != nil {
			return failure(errtaxonomy.CodeSchemaValidationFailed, fmt.Sprintf("model response is not valid JSON: %v", err))
		}
	}

	result, err := evalchain.ParseResponse(p.chain, payload)
	if err != nil {
		return failure(errtaxonomy.CodeSchemaValidationFailed, err.Error())
	}

	criteriaScores := make(map[string]interface{}, len(result.Criteria))
	for _, c := range result.Criteria {
		criteriaScores[c.ID] = map[string]interface{}{"score": c.Score, "reason": c.Reason}
	}
	likelihood := result.AILikelihood
	confidence := result.AIConfidence

	if err := p.repo.PersistLLMRun(ctx, work.LLMRunRecord{
		SubmissionID:     claim.SubmissionID,
		Provider:         p.provider,
		Model:            p.chain.Model,
		APIBase:          p.apiBase,
		ChainVersion:     p.chain.ChainVersion,
		SpecVersion:      p.chain.SpecVersion,
		ResponseLanguage: p.chain.Runtime.ResponseLanguage,
		Temperature:      p.chain.Runtime.Temperature,
		Seed:             p.chain.Runtime.Seed,
		TokensInput:      resp.TokensInput,
		TokensOutput:     resp.TokensOutput,
		LatencyMS:        resp.LatencyMS,
	}); err != nil {
		return failure(errtaxonomy.CodeInternalError, fmt.Sprintf("persist llm run: %v", err))
	}

	if err := p.repo.PersistEvaluation(ctx, work.EvaluationRecord{
		SubmissionID:      claim.SubmissionID,
		Score1To10:        result.Score1To10,
		CriteriaScores:    criteriaScores,
		OrganizerFeedback: result.OrganizerFeedback,
		CandidateFeedback: result.CandidateFeedback,
		AILikelihood:      &likelihood,
		AIConfidence:      &confidence,
		ReproducibilitySubset: work.ReproducibilitySubset{
			ChainVersion:     p.chain.ChainVersion,
			SpecVersion:      p.chain.SpecVersion,
			Model:            p.chain.Model,
			ResponseLanguage: p.chain.Runtime.ResponseLanguage,
		},
	}); err != nil {
		return failure(errtaxonomy.CodeInternalError, fmt.Sprintf("persist evaluation: %v", err))
	}

	return work.ProcessOutcome{
		Success: true,
		Detail:  fmt.Sprintf("scored %d/10", result.Score1To10),
	}
}

func (p *EvaluateProcessor) resolveAssignment(ctx context.Context, assignmentPublicID string) (work.AssignmentSnapshot, error) {
	assignments, err := p.repo.ListAssignments(ctx, false)
	if err != nil {
		return work.AssignmentSnapshot{}, fmt.Errorf("list assignments: %w", err)
	}
	for _, a := range assignments {
		if a.AssignmentPublicID == assignmentPublicID {
			return a, nil
		}
	}
	return work.AssignmentSnapshot{}, fmt.Errorf("assignment %s not found", assignmentPublicID)
}
