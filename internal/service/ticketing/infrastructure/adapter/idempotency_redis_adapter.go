package adapter

import (
	"context"
	"fmt"
	"time"

	"github.com/pkg/errors"
	goredis "github.com/redis/go-redis/v9"

	"ticketing/internal/service/ticketing/domain"
)

const pendingMarker = "pending"

// IdempotencyRedisAdapter implements port.IdempotencyStore. A key holds pendingMarker
// while its request runs and the serialized result afterwards, both with the same TTL.
type IdempotencyRedisAdapter struct {
	client goredis.UniversalClient
	ttl    time.Duration
}

func NewIdempotencyRedisAdapter(client goredis.UniversalClient, ttl time.Duration) *IdempotencyRedisAdapter {
	return &IdempotencyRedisAdapter{client: client, ttl: ttl}
}

func idempotencyKey(scope, key string) string {
	return fmt.Sprintf("ticketing:idem:{%s}:%s", scope, key)
}

func (a *IdempotencyRedisAdapter) Begin(ctx context.Context, scope, key string) ([]byte, error) {
	k := idempotencyKey(scope, key)
	// A key can expire between SetNX and Get, so try twice.
	for range 2 {
		claimed, err := a.client.SetNX(ctx, k, pendingMarker, a.ttl).Result()
		if err != nil {
			return nil, errors.Wrap(err, "claim idempotency key")
		}
		if claimed {
			return nil, nil
		}
		stored, err := a.client.Get(ctx, k).Bytes()
		if errors.Is(err, goredis.Nil) {
			continue
		}
		if err != nil {
			return nil, errors.Wrap(err, "read idempotency key")
		}
		if string(stored) == pendingMarker {
			return nil, domain.NewConflict("request_in_progress", "a request with this Idempotency-Key is still in progress")
		}
		return stored, nil
	}
	return nil, domain.NewConflict("request_in_progress", "a request with this Idempotency-Key is still in progress")
}

func (a *IdempotencyRedisAdapter) Complete(ctx context.Context, scope, key string, result []byte) error {
	if err := a.client.Set(ctx, idempotencyKey(scope, key), result, a.ttl).Err(); err != nil {
		return errors.Wrap(err, "store idempotent result")
	}
	return nil
}

func (a *IdempotencyRedisAdapter) Release(ctx context.Context, scope, key string) error {
	if err := a.client.Del(ctx, idempotencyKey(scope, key)).Err(); err != nil {
		return errors.Wrap(err, "release idempotency key")
	}
	return nil
}
