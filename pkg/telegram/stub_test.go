package telegram_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/artzaitsev/submission-scheduler/pkg/telegram"
)

func TestStubSource_GetFileBytes(t *testing.T) {
	ctx := context.Background()
	source := telegram.NewStubSource(map[string][]byte{
		"file-1": []byte("payload"),
	})

	var _ telegram.Source = source

	payload, err := source.GetFileBytes(ctx, "file-1")
	require.NoError(t, err)
	assert.Equal(t, []byte("payload"), payload)
}

func TestStubSource_GetFileBytes_Unknown(t *testing.T) {
	ctx := context.Background()
	source := telegram.NewStubSource(nil)

	_, err := source.GetFileBytes(ctx, "missing")
	assert.Error(t, err)
}
