// Copyright (c) 2026 Gatehouse. All rights reserved.
// Author: huy.lehoang.vn@gmail.com

package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/lehoanghuy/gatehouse/internal/platform/apperr"
	"github.com/lehoanghuy/gatehouse/internal/platform/constants"
)

// RedisStore implements [Store] on Redis.
//
// Each session is one JSON value under a prefixed key whose Redis TTL mirrors
// the session expiry, so the server prunes dead sessions on its own. The
// expiry is still double-checked after fetch: a key read microseconds before
// its TTL fires must not authenticate.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore creates a Redis-backed session store.
func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

/*
Create persists a new session under the session key prefix.

Parameters:
  - context: context.Context
  - userID: string

Returns:
  - *Session: The persisted session
  - error: Persistence failures
*/
func (store *RedisStore) Create(context context.Context, userID string) (*Session, error) {
	session, err := newSession(userID)
	if err != nil {
		return nil, err
	}

	if err := store.write(context, session); err != nil {
		return nil, err
	}

	return session, nil
}

/*
Read fetches a live session by token.

Parameters:
  - context: context.Context
  - token: string

Returns:
  - *Session: Hydrated session
  - error: apperr.NotFound when absent or expired; store failures otherwise
*/
func (store *RedisStore) Read(context context.Context, token string) (*Session, error) {
	key := constants.RedisPrefixSession + token

	payload, err := store.client.Get(context, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, apperr.NotFound("Session")
		}
		return nil, apperr.StoreUnavailable(fmt.Errorf("redis_session_read_failed: %w", err))
	}

	session := &Session{}
	if err := json.Unmarshal(payload, session); err != nil {
		return nil, fmt.Errorf("redis_session_decode_failed: %w", err)
	}

	if session.Expired(time.Now()) {
		return nil, apperr.NotFound("Session")
	}

	return session, nil
}

/*
Update persists mutated content and expiry, re-aligning the key TTL.

Parameters:
  - context: context.Context
  - session: *Session

Returns:
  - error: Persistence failures
*/
func (store *RedisStore) Update(context context.Context, session *Session) error {
	return store.write(context, session)
}

/*
Destroy deletes the session key. Deleting an absent token is a no-op.

Parameters:
  - context: context.Context
  - token: string

Returns:
  - error: Persistence failures only
*/
func (store *RedisStore) Destroy(context context.Context, token string) error {
	key := constants.RedisPrefixSession + token

	if err := store.client.Del(context, key).Err(); err != nil {
		return apperr.StoreUnavailable(fmt.Errorf("redis_session_destroy_failed: %w", err))
	}

	return nil
}

// write serializes the session and stores it with a TTL matching its expiry.
func (store *RedisStore) write(context context.Context, session *Session) error {
	key := constants.RedisPrefixSession + session.Token

	payload, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("redis_session_encode_failed: %w", err)
	}

	ttl := time.Until(session.ExpiresAt)
	if ttl <= 0 {
		// Already expired: storing it would create an unreadable ghost.
		return store.Destroy(context, session.Token)
	}

	if err := store.client.Set(context, key, payload, ttl).Err(); err != nil {
		return apperr.StoreUnavailable(fmt.Errorf("redis_session_write_failed: %w", err))
	}

	return nil
}
