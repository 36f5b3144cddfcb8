package llmclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/sony/gobreaker"
)

// ErrProviderUnavailable is returned by AnthropicClient.Evaluate whenever the
// circuit breaker is open or the upstream call itself fails, so callers can
// resolve it to the canonical llm_provider_unavailable recoverable code
// without inspecting transport-specific error types.
var ErrProviderUnavailable = errors.New("llmclient: provider unavailable")

// defaultMaxTokens bounds a single evaluate call's response size.
const defaultMaxTokens = 4096

// AnthropicClient implements Client against the Anthropic Messages API,
// wrapped in a gobreaker circuit breaker so a run of upstream failures trips
// open instead of piling up slow, doomed requests against a degraded
// provider (spec.md §6, §7).
type AnthropicClient struct {
	client  anthropic.Client
	breaker *gobreaker.CircuitBreaker[*anthropic.Message]
}

// NewAnthropicClient builds an AnthropicClient using apiKey and the given
// circuit breaker tuning. Zero-valued settings fall back to conservative
// defaults (3 consecutive failures trips the breaker, 30s open timeout).
func NewAnthropicClient(apiKey string, settings gobreaker.Settings) *AnthropicClient {
	if settings.Name == "" {
		settings.Name = "anthropic-evaluate"
	}
	if settings.Timeout == 0 {
		settings.Timeout = 30 * time.Second
	}
	if settings.ReadyToTrip == nil {
		settings.ReadyToTrip = func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 3
		}
	}

	return &AnthropicClient{
		client:  anthropic.NewClient(option.WithAPIKey(apiKey)),
		breaker: gobreaker.NewCircuitBreaker[*anthropic.Message](settings),
	}
}

// Evaluate sends req to the Anthropic Messages API through the circuit
// breaker, returning ErrProviderUnavailable (wrapped) on any upstream or
// breaker failure.
func (c *AnthropicClient) Evaluate(ctx context.Context, req Request) (Response, error) {
	start := time.Now()

	msg, err := c.breaker.Execute(func() (*anthropic.Message, error) {
		return c.client.Messages.New(ctx, anthropic.MessageNewParams{
			Model:       anthropic.Model(req.Model),
			MaxTokens:   defaultMaxTokens,
			Temperature: anthropic.Float(req.Temperature),
			System: []anthropic.TextBlockParam{
				{Text: req.SystemPrompt},
			},
			Messages: []anthropic.MessageParam{
				anthropic.NewUserMessage(anthropic.NewTextBlock(req.UserPrompt)),
			},
		})
	})
	if err != nil {
		return Response{}, fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
	}

	rawText := concatenateText(msg)
	resp := Response{
		RawText:      rawText,
		TokensInput:  int(msg.Usage.InputTokens),
		TokensOutput: int(msg.Usage.OutputTokens),
		LatencyMS:    int(time.Since(start).Milliseconds()),
	}

	var asJSON map[string]interface{}
	if json.Unmarshal([]byte(rawText), &asJSON) == nil {
		resp.RawJSON = asJSON
	}

	return resp, nil
}

func concatenateText(msg *anthropic.Message) string {
	var out string
	for _, block := range msg.Content {
		if text := block.AsText(); text.Text != "" {
			out += text.Text
		}
	}
	return out
}
