package pgstore

import (
	"context"
	"encoding/json"

	"github.com/artzaitsev/submission-scheduler/pkg/work"
)

func (s *Store) PersistEvaluation(ctx context.Context, rec work.EvaluationRecord) error {
	criteria, err := marshalOrEmpty(rec.CriteriaScores)
	if err != nil {
		return work.NewValidationError("persist_evaluation", err.Error())
	}
	organizer, err := marshalOrEmpty(rec.OrganizerFeedback)
	if err != nil {
		return work.NewValidationError("persist_evaluation", err.Error())
	}
	candidate, err := marshalOrEmpty(rec.CandidateFeedback)
	if err != nil {
		return work.NewValidationError("persist_evaluation", err.Error())
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO evaluations (
			submission_id, score_1_10, criteria_scores, organizer_feedback, candidate_feedback,
			ai_likelihood, ai_confidence, chain_version, spec_version, model, response_language, updated_at
		)
		SELECT sub.id, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, now()
		FROM submissions sub WHERE sub.public_id = $1
		ON CONFLICT (submission_id) DO UPDATE SET
			score_1_10 = EXCLUDED.score_1_10,
			criteria_scores = EXCLUDED.criteria_scores,
			organizer_feedback = EXCLUDED.organizer_feedback,
			candidate_feedback = EXCLUDED.candidate_feedback,
			ai_likelihood = EXCLUDED.ai_likelihood,
			ai_confidence = EXCLUDED.ai_confidence,
			chain_version = EXCLUDED.chain_version,
			spec_version = EXCLUDED.spec_version,
			model = EXCLUDED.model,
			response_language = EXCLUDED.response_language,
			updated_at = now()`,
		rec.SubmissionID, rec.Score1To10, criteria, organizer, candidate,
		rec.AILikelihood, rec.AIConfidence,
		rec.ReproducibilitySubset.ChainVersion, rec.ReproducibilitySubset.SpecVersion,
		rec.ReproducibilitySubset.Model, rec.ReproducibilitySubset.ResponseLanguage)
	return err
}

func (s *Store) PersistLLMRun(ctx context.Context, rec work.LLMRunRecord) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO llm_runs (
			submission_id, provider, model, api_base, chain_version, spec_version, response_language,
			temperature, seed, tokens_input, tokens_output, latency_ms
		)
		SELECT sub.id, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12
		FROM submissions sub WHERE sub.public_id = $1`,
		rec.SubmissionID, rec.Provider, rec.Model, rec.APIBase, rec.ChainVersion, rec.SpecVersion, rec.ResponseLanguage,
		rec.Temperature, rec.Seed, rec.TokensInput, rec.TokensOutput, rec.LatencyMS)
	return err
}

func (s *Store) PersistDelivery(ctx context.Context, rec work.DeliveryRecord) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO deliveries (submission_id, channel, status, external_message_id, attempts, last_error_code)
		SELECT sub.id, $2, $3, $4, $5, $6
		FROM submissions sub WHERE sub.public_id = $1`,
		rec.SubmissionID, rec.Channel, rec.Status, rec.ExternalMessageID, rec.Attempts, rec.LastErrorCode)
	return err
}

func marshalOrEmpty(m map[string]interface{}) ([]byte, error) {
	if m == nil {
		m = map[string]interface{}{}
	}
	return json.Marshal(m)
}
