package payments

import (
	"context"

	"github.com/nandazuhri/lokapasar-backend/pkg/redis"
)

// redisGuard implements ReplayGuard on the shared redis client with SETNX
// and a TTL.
type redisGuard struct {
	client *redis.Client
}

// NewRedisGuard builds the webhook duplicate filter.
func NewRedisGuard(client *redis.Client) ReplayGuard {
	return &redisGuard{client: client}
}

func (g *redisGuard) Once(ctx context.Context, parts ...string) (bool, error) {
	return g.client.SetNX(ctx, g.client.WebhookKey(parts...), 1, replayTTL)
}

func (g *redisGuard) Release(ctx context.Context, parts ...string) error {
	return g.client.Del(ctx, g.client.WebhookKey(parts...))
}
