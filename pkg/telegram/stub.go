package telegram

import (
	"context"
	"fmt"
)

// StubSource is an in-memory Source keyed by file id, used by
// pkg/pipeline's test harness and unit tests exercising the raw stage
// without a live bot token.
type StubSource struct {
	files map[string][]byte
}

// NewStubSource builds a StubSource preloaded with files.
func NewStubSource(files map[string][]byte) *StubSource {
	return &StubSource{files: files}
}

// GetFileBytes returns the preloaded bytes for fileID, or an error if none
// were seeded.
func (s *StubSource) GetFileBytes(_ context.Context, fileID string) ([]byte, error) {
	payload, ok := s.files[fileID]
	if !ok {
		return nil, fmt.Errorf("telegram: no stubbed file for id %q", fileID)
	}
	return payload, nil
}
