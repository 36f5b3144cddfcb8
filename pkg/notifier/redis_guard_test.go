package notifier_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/artzaitsev/submission-scheduler/pkg/notifier"
)

func newTestRedis(t *testing.T) *redis.Client {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)
	return redis.NewClient(&redis.Options{Addr: mr.Addr()})
}

type countingTransport struct {
	calls int
	err   error
}

func (c *countingTransport) SendResultNotification(_ context.Context, _, _ string) (string, error) {
	c.calls++
	if c.err != nil {
		return "", c.err
	}
	return "ext-msg-1", nil
}

func TestRedisIdempotent_FirstCallDeliversSecondCallSkips(t *testing.T) {
	ctx := context.Background()
	inner := &countingTransport{}
	guard := notifier.NewRedisIdempotent(inner, newTestRedis(t), time.Minute)

	id1, err := guard.SendResultNotification(ctx, "sub-1", "hello")
	require.NoError(t, err)
	assert.Equal(t, "ext-msg-1", id1)

	id2, err := guard.SendResultNotification(ctx, "sub-1", "hello")
	require.NoError(t, err)
	assert.Empty(t, id2)

	assert.Equal(t, 1, inner.calls)
}

func TestRedisIdempotent_DistinctSubmissionsBothDeliver(t *testing.T) {
	ctx := context.Background()
	inner := &countingTransport{}
	guard := notifier.NewRedisIdempotent(inner, newTestRedis(t), time.Minute)

	_, err := guard.SendResultNotification(ctx, "sub-1", "hello")
	require.NoError(t, err)
	_, err = guard.SendResultNotification(ctx, "sub-2", "hello")
	require.NoError(t, err)

	assert.Equal(t, 2, inner.calls)
}

func TestRedisIdempotent_FailureReleasesGuardForRetry(t *testing.T) {
	ctx := context.Background()
	inner := &countingTransport{err: errors.New("slack down")}
	guard := notifier.NewRedisIdempotent(inner, newTestRedis(t), time.Minute)

	_, err := guard.SendResultNotification(ctx, "sub-1", "hello")
	require.Error(t, err)

	inner.err = nil
	id, err := guard.SendResultNotification(ctx, "sub-1", "hello")
	require.NoError(t, err)
	assert.Equal(t, "ext-msg-1", id)
	assert.Equal(t, 2, inner.calls)
}
