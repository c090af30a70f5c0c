// Copyright (c) 2026 Gatehouse. All rights reserved.
// Author: huy.lehoang.vn@gmail.com

package session_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lehoanghuy/gatehouse/internal/iam/session"
	"github.com/lehoanghuy/gatehouse/internal/platform/apperr"
)

func newRedisStore(t *testing.T) (*session.RedisStore, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return session.NewRedisStore(client), mr
}

/*
TestRedisStore_CreateAndRead covers the basic lifecycle: a created session is
readable and carries a unique random token bound to the user.
*/
func TestRedisStore_CreateAndRead(t *testing.T) {
	ctx := context.Background()
	store, _ := newRedisStore(t)

	created, err := store.Create(ctx, "user-1")
	require.NoError(t, err)
	require.NotEmpty(t, created.Token)
	assert.Equal(t, "user-1", created.UserID)

	other, err := store.Create(ctx, "user-1")
	require.NoError(t, err)
	assert.NotEqual(t, created.Token, other.Token)

	fetched, err := store.Read(ctx, created.Token)
	require.NoError(t, err)
	assert.Equal(t, created.UserID, fetched.UserID)
	assert.WithinDuration(t, created.ExpiresAt, fetched.ExpiresAt, time.Second)
}

/*
TestRedisStore_Read_UnknownToken maps an absent key to NOT_FOUND.
*/
func TestRedisStore_Read_UnknownToken(t *testing.T) {
	ctx := context.Background()
	store, _ := newRedisStore(t)

	fetched, err := store.Read(ctx, "no-such-token")
	assert.Nil(t, fetched)
	assert.True(t, apperr.IsNotFound(err))
}

/*
TestRedisStore_Read_Expired checks that a session past its window is treated
exactly like an absent one.
*/
func TestRedisStore_Read_Expired(t *testing.T) {
	ctx := context.Background()
	store, mr := newRedisStore(t)

	created, err := store.Create(ctx, "user-1")
	require.NoError(t, err)

	mr.FastForward(session.DefaultTTL + time.Minute)

	fetched, err := store.Read(ctx, created.Token)
	assert.Nil(t, fetched)
	assert.True(t, apperr.IsNotFound(err))
}

/*
TestRedisStore_Update persists content mutations and slides the expiry.
*/
func TestRedisStore_Update(t *testing.T) {
	ctx := context.Background()
	store, _ := newRedisStore(t)

	created, err := store.Create(ctx, "user-1")
	require.NoError(t, err)

	created.Content["theme"] = "dark"
	created.Touch(time.Now().Add(5 * time.Minute))
	require.NoError(t, store.Update(ctx, created))

	fetched, err := store.Read(ctx, created.Token)
	require.NoError(t, err)
	assert.Equal(t, "dark", fetched.Content["theme"])
	assert.True(t, fetched.ExpiresAt.After(time.Now().Add(session.DefaultTTL)))
}

/*
TestRedisStore_Destroy_Idempotent destroys a session twice; the second call
must not error.
*/
func TestRedisStore_Destroy_Idempotent(t *testing.T) {
	ctx := context.Background()
	store, _ := newRedisStore(t)

	created, err := store.Create(ctx, "user-1")
	require.NoError(t, err)

	require.NoError(t, store.Destroy(ctx, created.Token))

	_, err = store.Read(ctx, created.Token)
	assert.True(t, apperr.IsNotFound(err))

	// Second destroy of the same (now absent) token.
	require.NoError(t, store.Destroy(ctx, created.Token))

	// Destroying a token that never existed is equally fine.
	require.NoError(t, store.Destroy(ctx, "never-existed"))
}
