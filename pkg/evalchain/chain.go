// Package evalchain loads the declared grading rubric (spec.md §1 "scores
// the result... against a declared rubric") and renders it into a model
// request, validates the model's response against the rubric's response
// contract, and turns per-criterion scores into the deterministic 1-10
// score persisted on the evaluation record. None of this is the scheduler
// core; it is the "declared rubric" collaborator the evaluate stage process
// function calls through (spec.md §6).
package evalchain

import (
	"embed"
	"fmt"
	"os"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed chain.v1.yaml
var embeddedFS embed.FS

// RubricCriterion is one scored dimension of the rubric, weighted against
// its peers when the final 1-10 score is computed.
type RubricCriterion struct {
	ID          string  `yaml:"id"`
	Description string  `yaml:"description"`
	Weight      float64 `yaml:"weight"`
}

// AIAssistancePolicy declares which ai_assistance fields the model's
// response must carry.
type AIAssistancePolicy struct {
	Enabled        bool     `yaml:"enabled"`
	AffectsScore   bool     `yaml:"affects_score"`
	RequireFields  []string `yaml:"require_fields"`
}

// RuntimeConfig is the model-call parameterization a chain version fixes,
// so that re-running the same chain version reproduces the same request.
type RuntimeConfig struct {
	Temperature      float64 `yaml:"temperature"`
	Seed             *int64  `yaml:"seed"`
	ResponseLanguage string  `yaml:"response_language"`
}

// PromptsConfig holds the system prompt and the user prompt template,
// rendered with RenderUserPrompt.
type PromptsConfig struct {
	System       string `yaml:"system"`
	UserTemplate string `yaml:"user_template"`
}

// RubricConfig bundles the scored criteria with the AI-assistance
// disclosure policy.
type RubricConfig struct {
	Criteria           []RubricCriterion  `yaml:"criteria"`
	AIAssistancePolicy AIAssistancePolicy `yaml:"ai_assistance_policy"`
}

// ResponseSchema is a minimal required-field contract for the model's JSON
// response: every name in Required must be a top-level key of the parsed
// response object.
type ResponseSchema struct {
	Type     string   `yaml:"type"`
	Required []string `yaml:"required"`
}

// Spec is a fully parsed, validated chain specification.
type Spec struct {
	SpecVersion  string         `yaml:"spec_version"`
	ChainVersion string         `yaml:"chain_version"`
	Model        string         `yaml:"model"`
	Runtime      RuntimeConfig  `yaml:"runtime"`
	Rubric       RubricConfig   `yaml:"rubric"`
	Prompts      PromptsConfig  `yaml:"prompts"`
	LLMResponse  ResponseSchema `yaml:"llm_response"`
}

var isoLanguageRE = regexp.MustCompile(`^[a-z]{2}(-[A-Z]{2})?$`)

// LoadDefault parses the chain specification embedded in the binary
// (chain.v1.yaml), the fallback used when LLMConfig.ChainSpecPath names no
// override path.
func LoadDefault() (Spec, error) {
	raw, err := embeddedFS.ReadFile("chain.v1.yaml")
	if err != nil {
		return Spec{}, fmt.Errorf("evalchain: read embedded spec: %w", err)
	}
	return Parse(raw)
}

// LoadFromFile parses the chain specification at path, the override
// LLMConfig.ChainSpecPath names in place of the embedded default.
func LoadFromFile(path string) (Spec, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Spec{}, fmt.Errorf("evalchain: read chain spec %s: %w", path, err)
	}
	return Parse(raw)
}

// Parse decodes and validates raw YAML into a Spec.
func Parse(raw []byte) (Spec, error) {
	var spec Spec
	if err := yaml.Unmarshal(raw, &spec); err != nil {
		return Spec{}, fmt.Errorf("evalchain: decode chain spec: %w", err)
	}
	if err := validate(spec); err != nil {
		return Spec{}, err
	}
	return spec, nil
}

func validate(spec Spec) error {
	if spec.SpecVersion == "" || spec.ChainVersion == "" || spec.Model == "" {
		return fmt.Errorf("evalchain: spec_version, chain_version, and model are required")
	}
	if !isoLanguageRE.MatchString(spec.Runtime.ResponseLanguage) {
		return fmt.Errorf("evalchain: runtime.response_language must be an ISO code, e.g. \"en\"")
	}
	if len(spec.Rubric.Criteria) == 0 {
		return fmt.Errorf("evalchain: rubric.criteria must contain at least one criterion")
	}
	var totalWeight float64
	for _, c := range spec.Rubric.Criteria {
		totalWeight += c.Weight
	}
	if totalWeight <= 0 {
		return fmt.Errorf("evalchain: rubric.criteria total weight must be > 0")
	}
	if spec.LLMResponse.Type != "json" {
		return fmt.Errorf("evalchain: llm_response.type must be \"json\"")
	}
	return nil
}

var placeholderRE = regexp.MustCompile(`\{\{\s*([a-zA-Z0-9_.]+)\s*\}\}`)

// RenderUserPrompt substitutes "{{dotted.path}}" placeholders in the
// rubric's user_template, resolving first against inputs and falling back
// to the spec's own fields (so a template can reference e.g.
// "{{rubric.criteria}}" without the caller re-supplying it).
func RenderUserPrompt(spec Spec, inputs map[string]interface{}) (string, error) {
	specMap := specToMap(spec)

	var renderErr error
	rendered := placeholderRE.ReplaceAllStringFunc(spec.Prompts.UserTemplate, func(match string) string {
		key := placeholderRE.FindStringSubmatch(match)[1]
		if value, ok := lookupDotPath(inputs, key); ok {
			return toPlaceholderText(value)
		}
		if value, ok := lookupDotPath(specMap, key); ok {
			return toPlaceholderText(value)
		}
		renderErr = fmt.Errorf("evalchain: missing placeholder value: %s", key)
		return match
	})
	if renderErr != nil {
		return "", renderErr
	}
	return rendered, nil
}

func specToMap(spec Spec) map[string]interface{} {
	criteria := make([]interface{}, 0, len(spec.Rubric.Criteria))
	for _, c := range spec.Rubric.Criteria {
		criteria = append(criteria, map[string]interface{}{"id": c.ID, "description": c.Description, "weight": c.Weight})
	}
	return map[string]interface{}{
		"spec_version":  spec.SpecVersion,
		"chain_version": spec.ChainVersion,
		"model":         spec.Model,
		"runtime": map[string]interface{}{
			"temperature":       spec.Runtime.Temperature,
			"response_language": spec.Runtime.ResponseLanguage,
		},
		"rubric": map[string]interface{}{
			"criteria": criteria,
		},
	}
}

func lookupDotPath(data map[string]interface{}, dotted string) (interface{}, bool) {
	if data == nil {
		return nil, false
	}
	parts := strings.Split(dotted, ".")
	var current interface{} = data
	for _, part := range parts {
		m, ok := current.(map[string]interface{})
		if !ok {
			return nil, false
		}
		current, ok = m[part]
		if !ok {
			return nil, false
		}
	}
	return current, true
}

func toPlaceholderText(value interface{}) string {
	if s, ok := value.(string); ok {
		return s
	}
	return fmt.Sprintf("%v", value)
}
