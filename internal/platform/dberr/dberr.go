// Copyright (c) 2026 Gatehouse. All rights reserved.
// Author: huy.lehoang.vn@gmail.com

// Package dberr provides a bridge between low-level database errors and
// higher-level application errors.
package dberr

import (
	"errors"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/lehoanghuy/gatehouse/internal/platform/apperr"
)

// Wrap inspects a database error and wraps it into a meaningful [apperr.AppError].
// It hides internal database details from the client while classifying the error type.
//
// # Classification
//
//   - pgx.ErrNoRows           → 404 NOT_FOUND (named after resource)
//   - SQLSTATE 23505 (unique) → 409 CONFLICT
//   - SQLSTATE 23503 (fkey)   → 404 NOT_FOUND (referenced row is absent)
//   - connection-class errors → 503 STORE_UNAVAILABLE (retryable)
//   - anything else           → 500 INTERNAL_ERROR
func Wrap(err error, resource string) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, pgx.ErrNoRows) {
		return apperr.NotFound(resource)
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch {
		case pgErr.Code == pgerrcode.UniqueViolation:
			return apperr.Conflict(resource + " already exists")
		case pgErr.Code == pgerrcode.ForeignKeyViolation:
			return apperr.NotFound(resource)
		case pgerrcode.IsConnectionException(pgErr.Code):
			return apperr.StoreUnavailable(err)
		}
	}

	// Dead connections surface as plain network errors, not PgErrors.
	if pgconn.SafeToRetry(err) {
		return apperr.StoreUnavailable(err)
	}

	return apperr.Internal(err)
}
