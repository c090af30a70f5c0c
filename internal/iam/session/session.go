// Copyright (c) 2026 Gatehouse. All rights reserved.
// Author: huy.lehoang.vn@gmail.com

/*
Package session implements the opaque-token session store.

A session is the stateful alternative to a signed bearer token: the client
holds only a random token, and all state (principal binding, arbitrary
content, expiry) lives server-side. Destroying the record is an immediate,
global logout for that token.

# Backends

Two interchangeable backends implement [Store]: PostgreSQL (durable, the
default) and Redis (TTL-native). The selection is a deployment concern; the
authentication guard only sees the interface.
*/
package session

import (
	"time"

	"github.com/lehoanghuy/gatehouse/internal/platform/sec"
)

// # Session Constraints

const (
	// TokenLength is the byte length of the random session token.
	TokenLength = 32

	// DefaultTTL is the sliding inactivity window of a session. Each
	// authenticated request pushes the expiry forward by this amount.
	DefaultTTL = 15 * time.Minute
)

// Session represents one live opaque-token session.
//
// The token is the primary lookup key and the only piece of state the client
// holds. At most one live session exists per token.
type Session struct {
	// Token is the opaque, unique, cryptographically random identifier.
	Token string `json:"token"`

	// UserID is the non-owning back-reference to the principal.
	UserID string `json:"user_id"`

	// Content holds arbitrary session-local state (flash messages,
	// CSRF seeds, preferences). Never trusted for authorization.
	Content map[string]any `json:"content"`

	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Expired reports whether the session is past its expiry at the given time.
func (s *Session) Expired(now time.Time) bool {
	return !s.ExpiresAt.After(now)
}

// Touch slides the expiry window forward from now.
func (s *Session) Touch(now time.Time) {
	s.ExpiresAt = now.Add(DefaultTTL)
}

// newSession builds a fresh session bound to userID with a random token.
func newSession(userID string) (*Session, error) {
	token, err := sec.GenerateSecureToken(TokenLength)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	return &Session{
		Token:     token,
		UserID:    userID,
		Content:   map[string]any{},
		CreatedAt: now,
		ExpiresAt: now.Add(DefaultTTL),
	}, nil
}
