// Copyright (c) 2026 Gatehouse. All rights reserved.
// Author: huy.lehoang.vn@gmail.com

package revocation

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/lehoanghuy/gatehouse/internal/platform/apperr"
	"github.com/lehoanghuy/gatehouse/internal/platform/constants"
)

// RedisRegistry implements [Registry] on top of Redis.
//
// Revoked entries are stored under a dedicated key prefix with a TTL equal
// to the token's remaining lifetime, so Redis prunes them exactly when the
// token would have expired on its own.
type RedisRegistry struct {
	client *redis.Client
}

// NewRedisRegistry creates a Redis-backed revocation registry.
func NewRedisRegistry(client *redis.Client) *RedisRegistry {
	return &RedisRegistry{client: client}
}

// IsRevoked implements [Registry].
func (registry *RedisRegistry) IsRevoked(ctx context.Context, token string) (bool, error) {
	key := constants.RedisPrefixRevoked + token

	count, err := registry.client.Exists(ctx, key).Result()
	if err != nil {
		return false, apperr.StoreUnavailable(fmt.Errorf("redis_revocation_check_failed: %w", err))
	}

	return count > 0, nil
}

// Revoke implements [Registry].
func (registry *RedisRegistry) Revoke(ctx context.Context, token string, ttl time.Duration) error {
	key := constants.RedisPrefixRevoked + token

	// A non-positive ttl means the caller could not determine the token's
	// expiry; keep the entry until an operator clears it.
	if ttl <= 0 {
		ttl = 0
	}

	if err := registry.client.Set(ctx, key, "1", ttl).Err(); err != nil {
		return apperr.StoreUnavailable(fmt.Errorf("redis_revocation_set_failed: %w", err))
	}

	return nil
}
