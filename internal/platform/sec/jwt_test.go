// Copyright (c) 2026 Gatehouse. All rights reserved.
// Author: huy.lehoang.vn@gmail.com

package sec_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lehoanghuy/gatehouse/internal/platform/sec"
)

func newTestCodec(t *testing.T, secret string) *sec.Codec {
	t.Helper()
	codec, err := sec.NewCodec([]byte(secret), "gatehouse.test")
	require.NoError(t, err)
	return codec
}

/*
TestCodec_RoundTrip verifies that Issue/Verify preserves the identity payload.
*/
func TestCodec_RoundTrip(t *testing.T) {
	codec := newTestCodec(t, "round-trip-secret")

	token, err := codec.Issue("user-1", "john@example.com", time.Hour)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := codec.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.Subject)
	assert.Equal(t, "john@example.com", claims.Email)
	assert.Equal(t, "gatehouse.test", claims.Issuer)
}

/*
TestCodec_Verify_Failures maps every failure mode onto its fixed reason error.
*/
func TestCodec_Verify_Failures(t *testing.T) {
	codec := newTestCodec(t, "primary-secret")
	otherCodec := newTestCodec(t, "rotated-secret")

	foreignToken, err := otherCodec.Issue("user-1", "john@example.com", time.Hour)
	require.NoError(t, err)

	expiredToken, err := codec.Issue("user-1", "john@example.com", -time.Minute)
	require.NoError(t, err)

	tests := []struct {
		name    string
		token   string
		wantErr error
	}{
		{"not_a_jwt", "definitely-not-a-jwt", sec.ErrTokenMalformed},
		{"empty_string", "", sec.ErrTokenMalformed},
		{"wrong_secret", foreignToken, sec.ErrTokenSignature},
		{"expired", expiredToken, sec.ErrTokenExpired},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			claims, err := codec.Verify(tt.token)
			assert.Nil(t, claims)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

/*
TestCodec_SecretRotation confirms that rotating the secret invalidates
every previously issued token.
*/
func TestCodec_SecretRotation(t *testing.T) {
	oldCodec := newTestCodec(t, "before-rotation")
	newCodec := newTestCodec(t, "after-rotation")

	token, err := oldCodec.Issue("user-1", "john@example.com", time.Hour)
	require.NoError(t, err)

	_, err = newCodec.Verify(token)
	assert.ErrorIs(t, err, sec.ErrTokenSignature)
}

/*
TestIdentityClaims_RemainingLifetime checks the TTL helper used by the
revocation registry.
*/
func TestIdentityClaims_RemainingLifetime(t *testing.T) {
	codec := newTestCodec(t, "ttl-secret")

	token, err := codec.Issue("user-1", "john@example.com", time.Hour)
	require.NoError(t, err)

	claims, err := codec.Verify(token)
	require.NoError(t, err)

	remaining := claims.RemainingLifetime()
	assert.Greater(t, remaining, 55*time.Minute)
	assert.LessOrEqual(t, remaining, time.Hour)
}

/*
TestHashPassword_VerifyCounterpart checks the one-way password primitive.
*/
func TestHashPassword_VerifyCounterpart(t *testing.T) {
	hash, err := sec.HashPassword("s3cret-password")
	require.NoError(t, err)
	require.NotEqual(t, "s3cret-password", hash)

	assert.True(t, sec.CheckPasswordHash("s3cret-password", hash))
	assert.False(t, sec.CheckPasswordHash("wrong-password", hash))
}

/*
TestGenerateSecureToken checks uniqueness and URL safety of opaque tokens.
*/
func TestGenerateSecureToken(t *testing.T) {
	first, err := sec.GenerateSecureToken(32)
	require.NoError(t, err)

	second, err := sec.GenerateSecureToken(32)
	require.NoError(t, err)

	assert.NotEqual(t, first, second)
	assert.NotContains(t, first, "+")
	assert.NotContains(t, first, "/")
	assert.NotContains(t, first, "=")
}
