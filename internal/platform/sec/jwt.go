// Copyright (c) 2026 Gatehouse. All rights reserved.
// Author: huy.lehoang.vn@gmail.com

// Package sec provides cryptographic primitives and token management.
//
// # Architecture
//
// This package isolates security-sensitive code (Hashing, JWT Signing) from
// the domain logic. It acts as an Infrastructure service injected into the
// Application layer and the authentication guards.
package sec

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// # Verification Failures

// Codec verification errors. Their messages are part of the wire contract:
// guards return them verbatim as the 401 invalid_token description. Callers
// must not distinguish them beyond logging.
var (
	// ErrTokenMalformed indicates the token is not a structurally valid JWT.
	ErrTokenMalformed = errors.New("jwt malformed")

	// ErrTokenSignature indicates the signature does not match the secret.
	ErrTokenSignature = errors.New("invalid signature")

	// ErrTokenExpired indicates the token is past its exp claim.
	ErrTokenExpired = errors.New("jwt expired")

	// ErrTokenInvalid covers any other verification failure.
	ErrTokenInvalid = errors.New("invalid token")
)

// IdentityClaims is the payload embedded inside a signed bearer token.
//
// # Why these claims?
//
// Subject (the account ID) and Email are together enough to resolve a unique
// principal without trusting anything else inside the token. Everything
// authorization-related (permissions, groups) is loaded fresh from the
// database on every request, so a stale token can never grant stale rights.
type IdentityClaims struct {
	jwt.RegisteredClaims

	Email string `json:"email"`
}

// Codec signs and verifies identity tokens using HS256 with a shared secret.
//
// The secret is sourced from process configuration at startup; rotating it
// invalidates all previously issued tokens.
type Codec struct {
	secret []byte
	issuer string
}

// NewCodec creates a [Codec] bound to the given signing secret.
func NewCodec(secret []byte, issuer string) (*Codec, error) {
	if len(secret) == 0 {
		return nil, errors.New("sec: signing secret must not be empty")
	}
	return &Codec{secret: secret, issuer: issuer}, nil
}

// Issue creates a signed token for the given account.
//
// # Parameters
//   - userID: The account ID, stored as the 'sub' claim.
//   - email: The account email, stored as a custom claim.
//   - timeToLive: The duration before the token expires.
func (codec *Codec) Issue(userID, email string, timeToLive time.Duration) (string, error) {
	currentTime := time.Now()
	claims := IdentityClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			Issuer:    codec.issuer,
			IssuedAt:  jwt.NewNumericDate(currentTime),
			ExpiresAt: jwt.NewNumericDate(currentTime.Add(timeToLive)),
		},
		Email: email,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signedToken, err := token.SignedString(codec.secret)
	if err != nil {
		return "", errors.Join(errors.New("sec: failed to sign token"), err)
	}

	return signedToken, nil
}

// Verify checks the signature and validity of a token string.
//
// # Returns
//   - *IdentityClaims on success.
//   - One of [ErrTokenMalformed], [ErrTokenSignature], [ErrTokenExpired] or
//     [ErrTokenInvalid] on any structural, cryptographic, or temporal failure.
func (codec *Codec) Verify(tokenString string) (*IdentityClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &IdentityClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrTokenSignature
		}
		return codec.secret, nil
	})

	if err != nil {
		return nil, classifyParseError(err)
	}

	claims, ok := token.Claims.(*IdentityClaims)
	if !ok || !token.Valid {
		return nil, ErrTokenInvalid
	}

	return claims, nil
}

// RemainingLifetime returns the duration until the token's exp claim.
// It returns zero for tokens without an expiry or already past it.
//
// The revocation registry uses this to bound how long a revoked entry
// must be retained.
func (claims *IdentityClaims) RemainingLifetime() time.Duration {
	if claims.ExpiresAt == nil {
		return 0
	}
	remaining := time.Until(claims.ExpiresAt.Time)
	if remaining < 0 {
		return 0
	}
	return remaining
}

// classifyParseError folds the jwt library's error chain into the fixed
// reason set exposed on the wire.
func classifyParseError(err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenMalformed):
		return ErrTokenMalformed
	case errors.Is(err, jwt.ErrTokenSignatureInvalid):
		return ErrTokenSignature
	case errors.Is(err, jwt.ErrTokenExpired):
		return ErrTokenExpired
	default:
		return ErrTokenInvalid
	}
}
