// Copyright (c) 2026 Gatehouse. All rights reserved.
// Author: huy.lehoang.vn@gmail.com

package auth_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lehoanghuy/gatehouse/internal/iam/auth"
	"github.com/lehoanghuy/gatehouse/internal/iam/revocation"
	"github.com/lehoanghuy/gatehouse/internal/iam/session"
	"github.com/lehoanghuy/gatehouse/internal/platform/apperr"
	"github.com/lehoanghuy/gatehouse/internal/platform/sec"
)

// # Test Doubles

type fakeUserRepo struct {
	byEmail map[string]*auth.User
	findErr error

	created *auth.User
}

func (f *fakeUserRepo) FindByEmail(_ context.Context, email string) (*auth.User, error) {
	if f.findErr != nil {
		return nil, f.findErr
	}
	if user, ok := f.byEmail[email]; ok {
		return user, nil
	}
	return nil, apperr.NotFound("User")
}

func (f *fakeUserRepo) FindByID(_ context.Context, id string) (*auth.User, error) {
	for _, user := range f.byEmail {
		if user.ID == id {
			return user, nil
		}
	}
	return nil, apperr.NotFound("User")
}

func (f *fakeUserRepo) FindByIDWithPermissions(ctx context.Context, id string) (*auth.User, error) {
	return f.FindByID(ctx, id)
}

func (f *fakeUserRepo) Create(_ context.Context, user *auth.User) error {
	f.created = user
	return nil
}

type fakeSessionStore struct {
	created   *session.Session
	destroyed []string
}

func (f *fakeSessionStore) Create(_ context.Context, userID string) (*session.Session, error) {
	now := time.Now()
	f.created = &session.Session{
		Token:     "opaque-session-token",
		UserID:    userID,
		Content:   map[string]any{},
		CreatedAt: now,
		ExpiresAt: now.Add(session.DefaultTTL),
	}
	return f.created, nil
}

func (f *fakeSessionStore) Read(_ context.Context, token string) (*session.Session, error) {
	if f.created != nil && f.created.Token == token {
		return f.created, nil
	}
	return nil, apperr.NotFound("Session")
}

func (f *fakeSessionStore) Update(_ context.Context, _ *session.Session) error { return nil }

func (f *fakeSessionStore) Destroy(_ context.Context, token string) error {
	f.destroyed = append(f.destroyed, token)
	return nil
}

// # Helpers

func newService(t *testing.T, users *fakeUserRepo) (*auth.Service, *fakeSessionStore, *revocation.MemoryRegistry, *sec.Codec) {
	t.Helper()

	codec, err := sec.NewCodec([]byte("test-secret-at-least-32-bytes-long"), "gatehouse.app")
	require.NoError(t, err)

	sessions := &fakeSessionStore{}
	registry := revocation.NewMemoryRegistry()

	service := auth.NewService(users, nil, sessions, registry, codec)
	return service, sessions, registry, codec
}

func registeredUser(t *testing.T, email, password string) *auth.User {
	t.Helper()

	hash, err := sec.HashPassword(password)
	require.NoError(t, err)

	return &auth.User{
		ID:           "0191d8a0-0000-7000-8000-000000000001",
		Email:        email,
		PasswordHash: hash,
		Nickname:     "member",
	}
}

/*
TestService_Register covers enrollment: the password is hashed before it
reaches storage, and a duplicate email is a client-safe conflict.
*/
func TestService_Register(t *testing.T) {
	ctx := context.Background()

	t.Run("success_hashes_password", func(t *testing.T) {
		users := &fakeUserRepo{byEmail: map[string]*auth.User{}}
		service, _, _, _ := newService(t, users)

		user, err := service.Register(ctx, auth.RegisterInput{
			Email:    "new@example.com",
			Password: "correct horse battery",
			Nickname: "newbie",
		})

		require.NoError(t, err)
		require.NotNil(t, users.created)
		assert.NotEmpty(t, user.ID)
		assert.NotEqual(t, "correct horse battery", user.PasswordHash)
		assert.True(t, sec.CheckPasswordHash("correct horse battery", user.PasswordHash))
	})

	t.Run("duplicate_email_is_conflict", func(t *testing.T) {
		existing := registeredUser(t, "taken@example.com", "whatever-pass")
		users := &fakeUserRepo{byEmail: map[string]*auth.User{existing.Email: existing}}
		service, _, _, _ := newService(t, users)

		_, err := service.Register(ctx, auth.RegisterInput{
			Email:    "taken@example.com",
			Password: "another-password",
		})

		appError := apperr.As(err)
		require.NotNil(t, appError)
		assert.Equal(t, "CONFLICT", appError.Code)
	})
}

/*
TestService_LoginToken covers the credential trio: unknown account and wrong
password collapse into the same generic 401, while a store outage keeps its
5xx identity so clients know to retry.
*/
func TestService_LoginToken(t *testing.T) {
	ctx := context.Background()

	t.Run("success_issues_verifiable_token", func(t *testing.T) {
		user := registeredUser(t, "member@example.com", "correct horse battery")
		users := &fakeUserRepo{byEmail: map[string]*auth.User{user.Email: user}}
		service, _, _, codec := newService(t, users)

		grant, err := service.LoginToken(ctx, auth.LoginInput{
			Email:    "member@example.com",
			Password: "correct horse battery",
		})

		require.NoError(t, err)
		assert.Equal(t, auth.AccessTokenTTL, grant.ExpiresIn)

		claims, err := codec.Verify(grant.AccessToken)
		require.NoError(t, err)
		assert.Equal(t, user.ID, claims.Subject)
		assert.Equal(t, user.Email, claims.Email)
	})

	t.Run("unknown_email_is_unauthorized", func(t *testing.T) {
		users := &fakeUserRepo{byEmail: map[string]*auth.User{}}
		service, _, _, _ := newService(t, users)

		_, err := service.LoginToken(ctx, auth.LoginInput{
			Email:    "ghost@example.com",
			Password: "anything",
		})

		appError := apperr.As(err)
		require.NotNil(t, appError)
		assert.Equal(t, "UNAUTHORIZED", appError.Code)
	})

	t.Run("wrong_password_is_unauthorized", func(t *testing.T) {
		user := registeredUser(t, "member@example.com", "correct horse battery")
		users := &fakeUserRepo{byEmail: map[string]*auth.User{user.Email: user}}
		service, _, _, _ := newService(t, users)

		_, err := service.LoginToken(ctx, auth.LoginInput{
			Email:    "member@example.com",
			Password: "wrong password",
		})

		appError := apperr.As(err)
		require.NotNil(t, appError)
		assert.Equal(t, "UNAUTHORIZED", appError.Code)
	})

	t.Run("store_outage_is_not_unauthorized", func(t *testing.T) {
		users := &fakeUserRepo{findErr: apperr.StoreUnavailable(assert.AnError)}
		service, _, _, _ := newService(t, users)

		_, err := service.LoginToken(ctx, auth.LoginInput{
			Email:    "member@example.com",
			Password: "correct horse battery",
		})

		appError := apperr.As(err)
		require.NotNil(t, appError)
		assert.Equal(t, "STORE_UNAVAILABLE", appError.Code)
	})
}

/*
TestService_LogoutToken covers token revocation: a live token lands in the
registry for its remaining lifetime, and a dead token is a silent no-op.
*/
func TestService_LogoutToken(t *testing.T) {
	ctx := context.Background()

	t.Run("live_token_is_revoked", func(t *testing.T) {
		users := &fakeUserRepo{byEmail: map[string]*auth.User{}}
		service, _, registry, codec := newService(t, users)

		token, err := codec.Issue("user-1", "member@example.com", time.Hour)
		require.NoError(t, err)

		require.NoError(t, service.LogoutToken(ctx, token))

		revoked, err := registry.IsRevoked(ctx, token)
		require.NoError(t, err)
		assert.True(t, revoked)
	})

	t.Run("dead_token_is_noop", func(t *testing.T) {
		users := &fakeUserRepo{byEmail: map[string]*auth.User{}}
		service, _, registry, _ := newService(t, users)

		require.NoError(t, service.LogoutToken(ctx, "not-a-jwt-at-all"))

		revoked, err := registry.IsRevoked(ctx, "not-a-jwt-at-all")
		require.NoError(t, err)
		assert.False(t, revoked)
	})
}

/*
TestService_SessionLifecycle covers the opaque-credential path: login creates
a session bound to the account, logout destroys it, and logging out twice is
not an error.
*/
func TestService_SessionLifecycle(t *testing.T) {
	ctx := context.Background()

	user := registeredUser(t, "member@example.com", "correct horse battery")
	users := &fakeUserRepo{byEmail: map[string]*auth.User{user.Email: user}}
	service, sessions, _, _ := newService(t, users)

	grant, err := service.LoginSession(ctx, auth.LoginInput{
		Email:    "member@example.com",
		Password: "correct horse battery",
	})
	require.NoError(t, err)
	assert.Equal(t, user.ID, sessions.created.UserID)
	assert.NotEmpty(t, grant.Token)

	require.NoError(t, service.LogoutSession(ctx, grant.Token))
	require.NoError(t, service.LogoutSession(ctx, grant.Token))
	assert.Equal(t, []string{grant.Token, grant.Token}, sessions.destroyed)
}
