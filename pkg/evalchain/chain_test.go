package evalchain_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/artzaitsev/submission-scheduler/pkg/evalchain"
)

func TestLoadDefault(t *testing.T) {
	spec, err := evalchain.LoadDefault()
	require.NoError(t, err)
	assert.Equal(t, "v1", spec.ChainVersion)
	assert.Equal(t, "en", spec.Runtime.ResponseLanguage)
	assert.Len(t, spec.Rubric.Criteria, 3)
}

func TestParse_RejectsMissingFields(t *testing.T) {
	_, err := evalchain.Parse([]byte(`spec_version: "1"`))
	assert.Error(t, err)
}

func TestParse_RejectsBadLanguageCode(t *testing.T) {
	raw := []byte(`
spec_version: "1"
chain_version: "v1"
model: "m"
runtime:
  temperature: 0.2
  response_language: "english"
rubric:
  criteria:
    - id: a
      description: d
      weight: 1.0
  ai_assistance_policy:
    enabled: false
    affects_score: false
    require_fields: []
prompts:
  system: s
  user_template: u
llm_response:
  type: "json"
  required: []
`)
	_, err := evalchain.Parse(raw)
	assert.Error(t, err)
}

func TestRenderUserPrompt_SubstitutesInputsAndSpecFields(t *testing.T) {
	spec, err := evalchain.LoadDefault()
	require.NoError(t, err)

	rendered, err := evalchain.RenderUserPrompt(spec, map[string]interface{}{
		"assignment": map[string]interface{}{"title": "Graph Traversal", "description": "Implement BFS"},
		"normalized": map[string]interface{}{"content_markdown": "my submission text"},
	})
	require.NoError(t, err)
	assert.Contains(t, rendered, "Graph Traversal")
	assert.Contains(t, rendered, "my submission text")
	assert.Contains(t, rendered, "correctness")
}

func TestRenderUserPrompt_MissingPlaceholderErrors(t *testing.T) {
	spec, err := evalchain.Parse([]byte(`
spec_version: "1"
chain_version: "v1"
model: "m"
runtime:
  temperature: 0.2
  response_language: "en"
rubric:
  criteria:
    - id: a
      description: d
      weight: 1.0
  ai_assistance_policy:
    enabled: false
    affects_score: false
    require_fields: []
prompts:
  system: s
  user_template: "{{does.not.exist}}"
llm_response:
  type: "json"
  required: []
`))
	require.NoError(t, err)

	_, err = evalchain.RenderUserPrompt(spec, nil)
	assert.Error(t, err)
}
