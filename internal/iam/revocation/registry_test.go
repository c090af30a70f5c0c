// Copyright (c) 2026 Gatehouse. All rights reserved.
// Author: huy.lehoang.vn@gmail.com

package revocation_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lehoanghuy/gatehouse/internal/iam/revocation"
)

/*
TestMemoryRegistry_RevokeThenCheck verifies the read-after-write guarantee.
*/
func TestMemoryRegistry_RevokeThenCheck(t *testing.T) {
	ctx := context.Background()
	registry := revocation.NewMemoryRegistry()

	revoked, err := registry.IsRevoked(ctx, "token-a")
	require.NoError(t, err)
	assert.False(t, revoked)

	require.NoError(t, registry.Revoke(ctx, "token-a", time.Hour))

	revoked, err = registry.IsRevoked(ctx, "token-a")
	require.NoError(t, err)
	assert.True(t, revoked)

	// Revocation is per-token: a sibling token stays valid.
	revoked, err = registry.IsRevoked(ctx, "token-b")
	require.NoError(t, err)
	assert.False(t, revoked)
}

/*
TestMemoryRegistry_ExpiredEntryPruned checks lazy TTL pruning.
*/
func TestMemoryRegistry_ExpiredEntryPruned(t *testing.T) {
	ctx := context.Background()
	registry := revocation.NewMemoryRegistry()

	require.NoError(t, registry.Revoke(ctx, "short-lived", time.Nanosecond))
	time.Sleep(5 * time.Millisecond)

	revoked, err := registry.IsRevoked(ctx, "short-lived")
	require.NoError(t, err)
	assert.False(t, revoked)
}

/*
TestMemoryRegistry_ConcurrentReaders hammers the registry from concurrent
goroutines while a writer revokes. Run with -race.
*/
func TestMemoryRegistry_ConcurrentReaders(t *testing.T) {
	ctx := context.Background()
	registry := revocation.NewMemoryRegistry()

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 200; j++ {
				_, err := registry.IsRevoked(ctx, "contended")
				assert.NoError(t, err)
			}
		}()
	}

	require.NoError(t, registry.Revoke(ctx, "contended", time.Hour))
	wg.Wait()

	revoked, err := registry.IsRevoked(ctx, "contended")
	require.NoError(t, err)
	assert.True(t, revoked)
}

func newRedisRegistry(t *testing.T) (*revocation.RedisRegistry, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return revocation.NewRedisRegistry(client), mr
}

/*
TestRedisRegistry_RevokeThenCheck verifies the Redis-backed registry against
an embedded server.
*/
func TestRedisRegistry_RevokeThenCheck(t *testing.T) {
	ctx := context.Background()
	registry, _ := newRedisRegistry(t)

	revoked, err := registry.IsRevoked(ctx, "token-a")
	require.NoError(t, err)
	assert.False(t, revoked)

	require.NoError(t, registry.Revoke(ctx, "token-a", time.Hour))

	revoked, err = registry.IsRevoked(ctx, "token-a")
	require.NoError(t, err)
	assert.True(t, revoked)
}

/*
TestRedisRegistry_EntryExpiresWithToken checks TTL-aligned pruning.
*/
func TestRedisRegistry_EntryExpiresWithToken(t *testing.T) {
	ctx := context.Background()
	registry, mr := newRedisRegistry(t)

	require.NoError(t, registry.Revoke(ctx, "short-lived", time.Minute))

	// Simulate the token's natural expiry passing.
	mr.FastForward(2 * time.Minute)

	revoked, err := registry.IsRevoked(ctx, "short-lived")
	require.NoError(t, err)
	assert.False(t, revoked)
}
