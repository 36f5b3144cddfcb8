// Package llmclient provides the narrow model-client boundary consumed by
// the evaluate stage's process function, not by the core directly (spec.md
// §6): given a rubric-bound request, return the model's raw response plus
// token/latency accounting.
package llmclient

import "context"

// Request is the input to Evaluate: a fully-rendered system/user prompt pair
// plus the model parameters that make a run reproducible.
type Request struct {
	SystemPrompt     string
	UserPrompt       string
	Model            string
	Temperature      float64
	Seed             *int64
	ResponseLanguage string
}

// Response is what Evaluate returns on success. RawJSON is populated only
// when the model's response parses as JSON; callers that need structured
// criteria scores parse it themselves — this package does not assume a
// response shape.
type Response struct {
	RawText      string
	RawJSON      map[string]interface{}
	TokensInput  int
	TokensOutput int
	LatencyMS    int
}

// Client is the model-client boundary the evaluate stage depends on.
type Client interface {
	Evaluate(ctx context.Context, req Request) (Response, error)
}
