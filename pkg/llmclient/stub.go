package llmclient

import "context"

// StubFunc adapts a plain function to Client, for tests and the
// pkg/pipeline harness that need a model client without a live API key.
type StubFunc func(ctx context.Context, req Request) (Response, error)

// Evaluate calls f.
func (f StubFunc) Evaluate(ctx context.Context, req Request) (Response, error) { return f(ctx, req) }
