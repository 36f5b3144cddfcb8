package config

import "time"

// LLMConfig parameterizes the pkg/llmclient.Client the llm-output stage
// evaluates submissions through, including the circuit breaker tuning
// NewAnthropicClient wraps the upstream call in.
type LLMConfig struct {
	Provider string `yaml:"provider" validate:"required,oneof=anthropic stub"`

	// APIKeyEnv names the environment variable holding the provider API key.
	APIKeyEnv string `yaml:"api_key_env,omitempty"`

	Model              string  `yaml:"model,omitempty"`
	DefaultTemperature float64 `yaml:"default_temperature"`

	// ChainSpecPath optionally overrides the embedded default chain spec
	// with one loaded from disk. Empty uses evalchain.LoadDefault().
	ChainSpecPath string `yaml:"chain_spec_path,omitempty"`

	// BreakerConsecutiveFailures is how many consecutive upstream failures
	// trip the circuit breaker open.
	BreakerConsecutiveFailures uint32 `yaml:"breaker_consecutive_failures" validate:"min=1"`

	// BreakerTimeout is how long the breaker stays open before allowing a
	// single probe request through (half-open).
	BreakerTimeout time.Duration `yaml:"breaker_timeout"`
}

// DefaultLLMConfig returns the built-in LLM client defaults.
func DefaultLLMConfig() *LLMConfig {
	return &LLMConfig{
		Provider:                   "anthropic",
		APIKeyEnv:                  "ANTHROPIC_API_KEY",
		Model:                      "claude-3-5-sonnet-latest",
		DefaultTemperature:         0.2,
		BreakerConsecutiveFailures: 3,
		BreakerTimeout:             30 * time.Second,
	}
}
