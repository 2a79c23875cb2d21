package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/pkordes/shuttle-fleet/internal/domain"
)

const redisKeyPrefix = "fleet:snapshot:"

// Redis is a SnapshotCache shared across processes. Expiry is enforced by
// Redis itself through SET ... EX.
type Redis struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedis wraps an existing client. The caller owns the client's lifecycle.
func NewRedis(client *redis.Client, ttl time.Duration) *Redis {
	return &Redis{client: client, ttl: ttl}
}

func redisKey(tenantID uuid.UUID) string {
	return redisKeyPrefix + tenantID.String()
}

func (r *Redis) Get(ctx context.Context, tenantID uuid.UUID) ([]domain.FleetEntry, bool, error) {
	raw, err := r.client.Get(ctx, redisKey(tenantID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("cache.Redis.Get: %w", err)
	}

	var entries []domain.FleetEntry
	if err := json.Unmarshal(raw, &entries); err != nil {
		return nil, false, fmt.Errorf("cache.Redis.Get: decode: %w", err)
	}
	return entries, true, nil
}

func (r *Redis) Set(ctx context.Context, tenantID uuid.UUID, entries []domain.FleetEntry) error {
	raw, err := json.Marshal(entries)
	if err != nil {
		return fmt.Errorf("cache.Redis.Set: encode: %w", err)
	}
	if err := r.client.Set(ctx, redisKey(tenantID), raw, r.ttl).Err(); err != nil {
		return fmt.Errorf("cache.Redis.Set: %w", err)
	}
	return nil
}

func (r *Redis) Delete(ctx context.Context, tenantID uuid.UUID) error {
	if err := r.client.Del(ctx, redisKey(tenantID)).Err(); err != nil {
		return fmt.Errorf("cache.Redis.Delete: %w", err)
	}
	return nil
}
