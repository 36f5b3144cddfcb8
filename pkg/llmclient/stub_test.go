package llmclient_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/artzaitsev/submission-scheduler/pkg/llmclient"
)

func TestStubFunc_SatisfiesClient(t *testing.T) {
	var client llmclient.Client = llmclient.StubFunc(func(_ context.Context, req llmclient.Request) (llmclient.Response, error) {
		return llmclient.Response{
			RawText:      `{"score": 8}`,
			TokensInput:  100,
			TokensOutput: 20,
			LatencyMS:    5,
		}, nil
	})

	resp, err := client.Evaluate(context.Background(), llmclient.Request{Model: "claude-test", UserPrompt: "grade this"})
	require.NoError(t, err)
	assert.Equal(t, `{"score": 8}`, resp.RawText)
	assert.Equal(t, 100, resp.TokensInput)
}
