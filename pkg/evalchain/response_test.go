package evalchain_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/artzaitsev/submission-scheduler/pkg/evalchain"
)

func validPayload() map[string]interface{} {
	return map[string]interface{}{
		"criteria": []interface{}{
			map[string]interface{}{"id": "correctness", "score": 9, "reason": "solid"},
			map[string]interface{}{"id": "clarity", "score": 7, "reason": "mostly clear"},
			map[string]interface{}{"id": "completeness", "score": 10, "reason": "covers everything"},
		},
		"organizer_feedback": map[string]interface{}{"strengths": []interface{}{"clean code"}},
		"candidate_feedback": map[string]interface{}{"summary": "nice work"},
		"ai_assistance":      map[string]interface{}{"likelihood": 0.1, "confidence": 0.8},
	}
}

func TestParseResponse_ValidPayload(t *testing.T) {
	spec, err := evalchain.LoadDefault()
	require.NoError(t, err)

	result, err := evalchain.ParseResponse(spec, validPayload())
	require.NoError(t, err)
	assert.Equal(t, 9, result.Score1To10) // weighted: 9*.5+7*.3+10*.2 = 4.5+2.1+2 = 8.6 -> rounds to 9
	assert.Equal(t, 0.1, result.AILikelihood)
	assert.Equal(t, 0.8, result.AIConfidence)
	assert.Len(t, result.Criteria, 3)
}

func TestParseResponse_MissingRequiredFieldFails(t *testing.T) {
	spec, err := evalchain.LoadDefault()
	require.NoError(t, err)

	payload := validPayload()
	delete(payload, "organizer_feedback")

	_, err = evalchain.ParseResponse(spec, payload)
	assert.Error(t, err)
}

func TestParseResponse_UnknownCriterionIDFails(t *testing.T) {
	spec, err := evalchain.LoadDefault()
	require.NoError(t, err)

	payload := validPayload()
	payload["criteria"] = []interface{}{
		map[string]interface{}{"id": "not_in_rubric", "score": 5, "reason": "x"},
	}

	_, err = evalchain.ParseResponse(spec, payload)
	assert.Error(t, err)
}

func TestParseResponse_MissingAIAssistanceFieldFails(t *testing.T) {
	spec, err := evalchain.LoadDefault()
	require.NoError(t, err)

	payload := validPayload()
	payload["ai_assistance"] = map[string]interface{}{"likelihood": 0.1}

	_, err = evalchain.ParseResponse(spec, payload)
	assert.Error(t, err)
}

func TestDeterministicScore_EmptyCriteriaScoresOne(t *testing.T) {
	assert.Equal(t, 1, evalchain.DeterministicScore(nil, map[string]float64{}))
}

func TestDeterministicScore_ClampsOutOfRangeScores(t *testing.T) {
	criteria := []evalchain.CriterionResult{{ID: "a", Score: 99}}
	assert.Equal(t, 10, evalchain.DeterministicScore(criteria, map[string]float64{"a": 1.0}))
}
