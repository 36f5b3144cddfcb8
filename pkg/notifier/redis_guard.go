package notifier

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const defaultGuardTTL = 10 * time.Minute

// RedisIdempotent wraps a Transport with a cross-pod SETNX guard keyed on
// submission_id, so concurrent deliveries triggered by more than one runner
// pod collapse to a single send before the underlying Transport — and before
// the DB-level deliveries row — is ever consulted.
type RedisIdempotent struct {
	inner  Transport
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewRedisIdempotent wraps inner with a guard backed by client. ttl bounds
// how long a successful delivery is remembered; zero uses a 10 minute
// default, comfortably longer than any retry window a stuck worker would
// produce.
func NewRedisIdempotent(inner Transport, client *redis.Client, ttl time.Duration) *RedisIdempotent {
	if ttl <= 0 {
		ttl = defaultGuardTTL
	}
	return &RedisIdempotent{inner: inner, client: client, prefix: "notifier:sent:", ttl: ttl}
}

// SendResultNotification claims the guard key for submissionID before
// calling inner. If the key is already set, another delivery attempt (this
// process or another pod) already sent the notification within the TTL
// window, so this call is a no-op returning ("", nil). On delivery failure
// the guard key is released so a subsequent retry can try again.
func (g *RedisIdempotent) SendResultNotification(ctx context.Context, submissionID, message string) (string, error) {
	key := g.prefix + submissionID

	acquired, err := g.client.SetNX(ctx, key, "1", g.ttl).Result()
	if err != nil {
		return "", fmt.Errorf("notifier: redis guard setnx: %w", err)
	}
	if !acquired {
		return "", nil
	}

	externalID, err := g.inner.SendResultNotification(ctx, submissionID, message)
	if err != nil {
		if delErr := g.client.Del(ctx, key).Err(); delErr != nil {
			return "", fmt.Errorf("notifier: send failed (%w) and guard release failed: %v", err, delErr)
		}
		return "", err
	}
	return externalID, nil
}
