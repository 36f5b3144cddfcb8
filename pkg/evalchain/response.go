package evalchain

import "fmt"

// CriterionResult is one parsed "criteria" entry from the model's response.
type CriterionResult struct {
	ID     string
	Score  int
	Reason string
}

// Result is everything evaluate_submission derives from a validated model
// response: the per-criterion scores, the feedback payloads to persist
// verbatim, the AI-assistance disclosure, and the deterministic 1-10 score.
type Result struct {
	Score1To10        int
	Criteria          []CriterionResult
	OrganizerFeedback map[string]interface{}
	CandidateFeedback map[string]interface{}
	AILikelihood      float64
	AIConfidence      float64
}

// ParseResponse validates payload against spec's response contract and
// extracts the fields the evaluate stage persists. payload is the model's
// raw_json (or an already-decoded raw_text fallback); any required field
// named by spec.LLMResponse.Required that's absent, or malformed criteria
// data, fails validation.
func ParseResponse(spec Spec, payload map[string]interface{}) (Result, error) {
	for _, field := range spec.LLMResponse.Required {
		if _, ok := payload[field]; !ok {
			return Result{}, fmt.Errorf("evalchain: response missing required field %q", field)
		}
	}

	rubricWeights := make(map[string]float64, len(spec.Rubric.Criteria))
	for _, c := range spec.Rubric.Criteria {
		rubricWeights[c.ID] = c.Weight
	}

	criteriaRaw, ok := payload["criteria"].([]interface{})
	if !ok {
		return Result{}, fmt.Errorf("evalchain: response.criteria must be an array")
	}
	criteria := make([]CriterionResult, 0, len(criteriaRaw))
	for _, entryRaw := range criteriaRaw {
		entry, ok := entryRaw.(map[string]interface{})
		if !ok {
			return Result{}, fmt.Errorf("evalchain: criteria entry must be an object")
		}
		id, ok := entry["id"].(string)
		if !ok {
			return Result{}, fmt.Errorf("evalchain: criteria entry id must be a string")
		}
		if _, known := rubricWeights[id]; !known {
			return Result{}, fmt.Errorf("evalchain: criteria entry id %q is not in the rubric", id)
		}
		score, err := toInt(entry["score"])
		if err != nil {
			return Result{}, fmt.Errorf("evalchain: criteria entry score: %w", err)
		}
		reason, _ := entry["reason"].(string)
		criteria = append(criteria, CriterionResult{ID: id, Score: score, Reason: reason})
	}

	organizerFeedback, ok := payload["organizer_feedback"].(map[string]interface{})
	if !ok {
		return Result{}, fmt.Errorf("evalchain: response.organizer_feedback must be an object")
	}
	candidateFeedback, ok := payload["candidate_feedback"].(map[string]interface{})
	if !ok {
		return Result{}, fmt.Errorf("evalchain: response.candidate_feedback must be an object")
	}
	aiAssistance, ok := payload["ai_assistance"].(map[string]interface{})
	if !ok {
		return Result{}, fmt.Errorf("evalchain: response.ai_assistance must be an object")
	}
	for _, field := range spec.Rubric.AIAssistancePolicy.RequireFields {
		if _, ok := aiAssistance[field]; !ok {
			return Result{}, fmt.Errorf("evalchain: ai_assistance.%s is required by chain policy", field)
		}
	}
	likelihood, err := toFloat(aiAssistance["likelihood"])
	if err != nil {
		return Result{}, fmt.Errorf("evalchain: ai_assistance.likelihood: %w", err)
	}
	confidence, err := toFloat(aiAssistance["confidence"])
	if err != nil {
		return Result{}, fmt.Errorf("evalchain: ai_assistance.confidence: %w", err)
	}

	return Result{
		Score1To10:        DeterministicScore(criteria, rubricWeights),
		Criteria:          criteria,
		OrganizerFeedback: organizerFeedback,
		CandidateFeedback: candidateFeedback,
		AILikelihood:      likelihood,
		AIConfidence:      confidence,
	}, nil
}

// DeterministicScore folds per-criterion scores (each clamped to [1,10])
// into a single weighted 1-10 score, rounding to the nearest integer. A
// rubric with zero effective weight (or no criteria) scores 1.
func DeterministicScore(criteria []CriterionResult, weights map[string]float64) int {
	if len(criteria) == 0 {
		return 1
	}
	var weightedSum, totalWeight float64
	for _, c := range criteria {
		score := clamp(c.Score, 1, 10)
		weight := weights[c.ID]
		if weight < 0 {
			weight = 0
		}
		weightedSum += float64(score) * weight
		totalWeight += weight
	}
	if totalWeight == 0 {
		return 1
	}
	return int(weightedSum/totalWeight + 0.5)
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func toInt(v interface{}) (int, error) {
	switch n := v.(type) {
	case int:
		return n, nil
	case int64:
		return int(n), nil
	case float64:
		return int(n), nil
	default:
		return 0, fmt.Errorf("expected integer, got %T", v)
	}
}

func toFloat(v interface{}) (float64, error) {
	switch n := v.(type) {
	case float64:
		return n, nil
	case int:
		return float64(n), nil
	case int64:
		return float64(n), nil
	default:
		return 0, fmt.Errorf("expected number, got %T", v)
	}
}
