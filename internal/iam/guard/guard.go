// Copyright (c) 2026 Gatehouse. All rights reserved.
// Author: huy.lehoang.vn@gmail.com

/*
Package guard implements the authentication and authorization middlewares.

A guard either rejects the request with a precise HTTP error or resolves a
fresh principal and injects it into the request context. Handlers behind a
guard can rely on [auth.PrincipalFrom] returning a non-nil user.

# Wire Contract

The credential-carrying guards speak the OAuth2 bearer-token error dialect:
400/401 bodies are a fixed {"code", "description"} object and carry a
WWW-Authenticate header. These bodies are deliberately NOT the standard API
error envelope — external bearer-token clients parse this exact shape.

Authorization failures ([PermissionRequired]) return bare status codes with
empty bodies: the requester is known, there is nothing safe to explain.
*/
package guard

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/lehoanghuy/gatehouse/internal/iam/auth"
	"github.com/lehoanghuy/gatehouse/internal/iam/session"
	"github.com/lehoanghuy/gatehouse/internal/platform/apperr"
	"github.com/lehoanghuy/gatehouse/internal/platform/constants"
	"github.com/lehoanghuy/gatehouse/internal/platform/ctxutil"
	"github.com/lehoanghuy/gatehouse/internal/platform/respond"
	"github.com/lehoanghuy/gatehouse/internal/platform/sec"
)

// Middleware is the common shape of every guard.
type Middleware = auth.Middleware

// # Contracts

// TokenVerifier defines the interface needed to verify bearer tokens.
//
// # Why an interface?
//
// Defining TokenVerifier here decouples the guard from the [sec.Codec]
// implementation, allowing us to easily inject mocks during unit testing.
type TokenVerifier interface {
	Verify(tokenString string) (*sec.IdentityClaims, error)
}

// RevocationChecker answers whether a token has been revoked.
type RevocationChecker interface {
	IsRevoked(ctx context.Context, token string) (bool, error)
}

// PrincipalLoader resolves an account ID into a fully hydrated principal.
type PrincipalLoader interface {
	FindByIDWithPermissions(ctx context.Context, id string) (*auth.User, error)
}

// SessionReader resolves and refreshes opaque-token sessions.
type SessionReader interface {
	Read(ctx context.Context, token string) (*session.Session, error)
	Update(ctx context.Context, record *session.Session) error
}

// # Fixed Wire Reasons

// Rejection descriptions returned verbatim to bearer-token clients. The set
// is fixed: a new reason is a wire-contract change.
const (
	reasonHeaderNotFound  = "Authorization header not found."
	reasonExpectedBearer  = "Expected a bearer token. Scheme is Authorization: Bearer <token>."
	reasonTokenRevoked    = "jwt revoked"
	reasonSessionNotFound = "session not found or expired"
	reasonUserNotFound    = "user not found"
)

const (
	codeInvalidRequest = "invalid_request"
	codeInvalidToken   = "invalid_token"
)

// # Authentication Guards

// TokenRequired authenticates requests carrying a signed bearer token.
//
// # Flow
//  1. Extract the credential from 'Authorization: Bearer <token>'.
//  2. Verify signature, structure, and expiry via [TokenVerifier].
//  3. Reject tokens present in the revocation registry.
//  4. Resolve the subject into a fresh principal with permissions.
//  5. Inject the principal into the request context.
//
// A missing account behind a structurally valid token is a 401 — the token
// outlived its subject. A store outage is never reported as a 401: clients
// must be able to distinguish "re-authenticate" from "retry later".
func TokenRequired(verifier TokenVerifier, revocations RevocationChecker, principals PrincipalLoader) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			token, ok := extractBearer(writer, request)
			if !ok {
				return
			}

			claims, err := verifier.Verify(token)
			if err != nil {
				writeInvalidToken(writer, err.Error())
				return
			}

			revoked, err := revocations.IsRevoked(request.Context(), token)
			if err != nil {
				respond.Error(writer, request, fmt.Errorf("guard_revocation_check_failed: %w", err))
				return
			}
			if revoked {
				writeInvalidToken(writer, reasonTokenRevoked)
				return
			}

			principal, ok := loadPrincipal(writer, request, principals, claims.Subject)
			if !ok {
				return
			}

			next.ServeHTTP(writer, request.WithContext(
				auth.ContextWithPrincipal(request.Context(), principal),
			))
		})
	}
}

// SessionRequired authenticates requests carrying an opaque session token.
//
// # Flow
//  1. Extract the credential from 'Authorization: Bearer <token>'.
//  2. Resolve the token to a live session; absent and expired are the same 401.
//  3. Resolve the session's user into a fresh principal with permissions.
//  4. Slide the session expiry window forward.
//  5. Inject the principal into the request context.
//
// The expiry slide is best-effort: if persisting it fails, the request still
// proceeds and the failure is logged. Authentication already succeeded; the
// session merely keeps its old deadline.
func SessionRequired(sessions SessionReader, principals PrincipalLoader) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			token, ok := extractBearer(writer, request)
			if !ok {
				return
			}

			record, err := sessions.Read(request.Context(), token)
			if err != nil {
				if apperr.IsNotFound(err) {
					writeInvalidToken(writer, reasonSessionNotFound)
					return
				}
				respond.Error(writer, request, fmt.Errorf("guard_session_read_failed: %w", err))
				return
			}

			principal, ok := loadPrincipal(writer, request, principals, record.UserID)
			if !ok {
				return
			}

			record.Touch(time.Now())
			if err := sessions.Update(request.Context(), record); err != nil {
				ctxutil.GetLogger(request.Context()).WarnContext(request.Context(),
					"guard_session_touch_failed",
					slog.String("error", err.Error()),
				)
			}

			next.ServeHTTP(writer, request.WithContext(
				auth.ContextWithPrincipal(request.Context(), principal),
			))
		})
	}
}

// # Authorization Guard

// PermissionRequired blocks requests whose principal lacks any of the given
// permission code names (AND semantics).
//
// # Usage
//
// Must be registered in the router AFTER an authentication guard. An
// anonymous request is a bare 401; an authenticated request missing a
// permission is a bare 403. Both carry empty bodies.
func PermissionRequired(codeNames ...string) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			principal := auth.PrincipalFrom(request.Context())
			if principal == nil {
				writer.WriteHeader(http.StatusUnauthorized)
				return
			}

			effective := principal.Access.Effective()
			for _, codeName := range codeNames {
				if _, granted := effective[codeName]; !granted {
					writer.WriteHeader(http.StatusForbidden)
					return
				}
			}

			next.ServeHTTP(writer, request)
		})
	}
}

// # Internals

// extractBearer pulls the raw credential out of the Authorization header,
// writing the 400 wire errors itself. The second return is false when the
// request has already been answered.
func extractBearer(writer http.ResponseWriter, request *http.Request) (string, bool) {
	header := request.Header.Get(constants.HeaderAuthorization)
	if header == "" {
		writeWireError(writer, http.StatusBadRequest, codeInvalidRequest, reasonHeaderNotFound)
		return "", false
	}

	if !strings.HasPrefix(header, constants.BearerScheme) {
		writeWireError(writer, http.StatusBadRequest, codeInvalidRequest, reasonExpectedBearer)
		return "", false
	}

	token := strings.TrimPrefix(header, constants.BearerScheme)
	if token == "" || strings.Contains(token, " ") {
		writeWireError(writer, http.StatusBadRequest, codeInvalidRequest, reasonExpectedBearer)
		return "", false
	}

	return token, true
}

// loadPrincipal resolves an account ID into a hydrated principal, writing the
// 401/5xx outcomes itself. The second return is false when the request has
// already been answered.
func loadPrincipal(writer http.ResponseWriter, request *http.Request, principals PrincipalLoader, userID string) (*auth.User, bool) {
	principal, err := principals.FindByIDWithPermissions(request.Context(), userID)
	if err != nil {
		if apperr.IsNotFound(err) {
			writeInvalidToken(writer, reasonUserNotFound)
			return nil, false
		}
		respond.Error(writer, request, fmt.Errorf("guard_principal_load_failed: %w", err))
		return nil, false
	}

	return principal, true
}

// writeInvalidToken writes the fixed 401 rejection for a dead credential.
func writeInvalidToken(writer http.ResponseWriter, description string) {
	writeWireError(writer, http.StatusUnauthorized, codeInvalidToken, description)
}

// wireError is the fixed rejection body for bearer-token clients. It must
// never grow envelope fields.
type wireError struct {
	Code        string `json:"code"`
	Description string `json:"description"`
}

// writeWireError emits the bearer-token error dialect: a WWW-Authenticate
// challenge plus the fixed {"code", "description"} JSON body.
func writeWireError(writer http.ResponseWriter, status int, code, description string) {
	writer.Header().Set("WWW-Authenticate",
		fmt.Sprintf("Bearer error=%q, error_description=%q", code, description))
	writer.Header().Set("Content-Type", "application/json; charset=utf-8")
	writer.WriteHeader(status)
	_ = json.NewEncoder(writer).Encode(wireError{Code: code, Description: description})
}
