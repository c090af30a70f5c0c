// Copyright (c) 2026 Gatehouse. All rights reserved.
// Author: huy.lehoang.vn@gmail.com

package session

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/lehoanghuy/gatehouse/internal/platform/apperr"
	"github.com/lehoanghuy/gatehouse/internal/platform/dberr"
)

// PostgresStore implements [Store] on the iam.session table.
//
// Content is stored as jsonb. Expiry is enforced in the query itself
// (expiresat > NOW()), so a fetch racing a Destroy or an expiry boundary can
// never observe a half-dead session.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a PostgreSQL-backed session store.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

/*
Create persists a new session row bound to userID.

Parameters:
  - context: context.Context
  - userID: string

Returns:
  - *Session: The persisted session
  - error: Persistence failures
*/
func (store *PostgresStore) Create(context context.Context, userID string) (*Session, error) {
	const query = `
		INSERT INTO iam.session (token, accountid, content, createdat, expiresat)
		VALUES ($1, $2, $3, $4, $5)`

	session, err := newSession(userID)
	if err != nil {
		return nil, err
	}

	_, err = store.pool.Exec(context, query,
		session.Token,
		session.UserID,
		session.Content,
		session.CreatedAt,
		session.ExpiresAt,
	)

	if err != nil {
		return nil, fmt.Errorf("postgres_session_create_failed: %w", dberr.Wrap(err, "Session"))
	}

	return session, nil
}

/*
Read fetches a live session by token. Absent and expired rows are both
apperr.NotFound.

Parameters:
  - context: context.Context
  - token: string

Returns:
  - *Session: Hydrated session
  - error: apperr.NotFound or store failures
*/
func (store *PostgresStore) Read(context context.Context, token string) (*Session, error) {
	const query = `
		SELECT token, accountid, content, createdat, expiresat
		FROM iam.session
		WHERE token = $1 AND expiresat > NOW()`

	session := &Session{}
	err := store.pool.QueryRow(context, query, token).Scan(
		&session.Token,
		&session.UserID,
		&session.Content,
		&session.CreatedAt,
		&session.ExpiresAt,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("Session")
		}
		return nil, fmt.Errorf("postgres_session_read_failed: %w", dberr.Wrap(err, "Session"))
	}

	return session, nil
}

/*
Update persists mutated content and expiry.

Parameters:
  - context: context.Context
  - session: *Session

Returns:
  - error: Persistence failures
*/
func (store *PostgresStore) Update(context context.Context, session *Session) error {
	const query = `
		UPDATE iam.session
		SET content = $2, expiresat = $3
		WHERE token = $1`

	_, err := store.pool.Exec(context, query, session.Token, session.Content, session.ExpiresAt)
	if err != nil {
		return fmt.Errorf("postgres_session_update_failed: %w", dberr.Wrap(err, "Session"))
	}

	return nil
}

/*
Destroy deletes the session row. Deleting an absent token is a no-op.

Parameters:
  - context: context.Context
  - token: string

Returns:
  - error: Persistence failures only
*/
func (store *PostgresStore) Destroy(context context.Context, token string) error {
	const query = "DELETE FROM iam.session WHERE token = $1"

	_, err := store.pool.Exec(context, query, token)
	if err != nil {
		return fmt.Errorf("postgres_session_destroy_failed: %w", dberr.Wrap(err, "Session"))
	}

	return nil
}

/*
DeleteExpired physically removes sessions whose expiry is in the past.
Run periodically by an external janitor; correctness never depends on it
because Read filters on expiry.

Parameters:
  - context: context.Context

Returns:
  - error: Cleanup failures
*/
func (store *PostgresStore) DeleteExpired(context context.Context) error {
	const query = "DELETE FROM iam.session WHERE expiresat <= NOW()"

	_, err := store.pool.Exec(context, query)
	if err != nil {
		return fmt.Errorf("postgres_session_delete_expired_failed: %w", dberr.Wrap(err, "Session"))
	}

	return nil
}
