// Copyright (c) 2026 Gatehouse. All rights reserved.
// Author: huy.lehoang.vn@gmail.com

package session

import "context"

// Store defines the persistence contract for opaque-token sessions.
//
// # Failure Semantics
//
// Read returns apperr.NotFound when the token is absent or expired — the two
// are indistinguishable to callers. Store-layer failures (connection loss,
// I/O) surface as distinct errors and are never folded into "not found".
type Store interface {

	/*
		Create generates a cryptographically random unique token and persists
		a new session bound to userID.

		Parameters:
		  - context: context.Context
		  - userID: string

		Returns:
		  - *Session: The persisted session, token included
		  - error: Persistence failures
	*/
	Create(context context.Context, userID string) (*Session, error)

	/*
		Read returns the live session for the given token. The expiry check
		and the fetch are atomic with respect to a concurrent Destroy.

		Parameters:
		  - context: context.Context
		  - token: string

		Returns:
		  - *Session: Hydrated session state
		  - error: apperr.NotFound when absent or expired; store failures otherwise
	*/
	Read(context context.Context, token string) (*Session, error)

	/*
		Update persists mutated content and the (possibly slid) expiry.

		Parameters:
		  - context: context.Context
		  - session: *Session

		Returns:
		  - error: Persistence failures
	*/
	Update(context context.Context, session *Session) error

	/*
		Destroy removes the session. Destroying an absent token is not an
		error (idempotent).

		Parameters:
		  - context: context.Context
		  - token: string

		Returns:
		  - error: Persistence failures only
	*/
	Destroy(context context.Context, token string) error
}
