// Copyright (c) 2026 Gatehouse. All rights reserved.
// Author: huy.lehoang.vn@gmail.com

package guard_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lehoanghuy/gatehouse/internal/iam/auth"
	"github.com/lehoanghuy/gatehouse/internal/iam/guard"
	"github.com/lehoanghuy/gatehouse/internal/iam/revocation"
	"github.com/lehoanghuy/gatehouse/internal/iam/session"
	"github.com/lehoanghuy/gatehouse/internal/platform/apperr"
	"github.com/lehoanghuy/gatehouse/internal/platform/sec"
)

// # Test Doubles

type fakePrincipals struct {
	user *auth.User
	err  error
}

func (f *fakePrincipals) FindByIDWithPermissions(_ context.Context, _ string) (*auth.User, error) {
	return f.user, f.err
}

type fakeSessions struct {
	record    *session.Session
	readErr   error
	updateErr error

	updatedWith *session.Session
}

func (f *fakeSessions) Read(_ context.Context, _ string) (*session.Session, error) {
	return f.record, f.readErr
}

func (f *fakeSessions) Update(_ context.Context, record *session.Session) error {
	f.updatedWith = record
	return f.updateErr
}

// # Helpers

func newCodec(t *testing.T) *sec.Codec {
	t.Helper()
	codec, err := sec.NewCodec([]byte("test-secret-at-least-32-bytes-long"), "gatehouse.app")
	require.NoError(t, err)
	return codec
}

func okHandler(t *testing.T) http.Handler {
	t.Helper()
	return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		require.NotNil(t, auth.PrincipalFrom(request.Context()), "guard must inject the principal")
		writer.WriteHeader(http.StatusOK)
	})
}

func bearerRequest(token string) *http.Request {
	request := httptest.NewRequest(http.MethodGet, "/protected", nil)
	request.Header.Set("Authorization", "Bearer "+token)
	return request
}

func testUser(permissions ...auth.Permission) *auth.User {
	return &auth.User{
		ID:    "0191d8a0-0000-7000-8000-000000000001",
		Email: "member@example.com",
		Access: auth.PermissionSet{
			Direct: permissions,
			Groups: []auth.Group{},
		},
	}
}

/*
TestTokenRequired_HeaderErrors covers the fixed 400 responses for requests
that never presented a usable credential.
*/
func TestTokenRequired_HeaderErrors(t *testing.T) {
	codec := newCodec(t)
	middleware := guard.TokenRequired(codec, revocation.NewMemoryRegistry(), &fakePrincipals{user: testUser()})
	handler := middleware(okHandler(t))

	testCases := []struct {
		name            string
		header          string
		wantDescription string
	}{
		{
			name:            "missing_header",
			header:          "",
			wantDescription: "Authorization header not found.",
		},
		{
			name:            "wrong_scheme",
			header:          "Basic dXNlcjpwYXNz",
			wantDescription: "Expected a bearer token. Scheme is Authorization: Bearer <token>.",
		},
		{
			name:            "empty_token",
			header:          "Bearer ",
			wantDescription: "Expected a bearer token. Scheme is Authorization: Bearer <token>.",
		},
		{
			name:            "extra_parts",
			header:          "Bearer one two",
			wantDescription: "Expected a bearer token. Scheme is Authorization: Bearer <token>.",
		},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			request := httptest.NewRequest(http.MethodGet, "/protected", nil)
			if testCase.header != "" {
				request.Header.Set("Authorization", testCase.header)
			}

			recorder := httptest.NewRecorder()
			handler.ServeHTTP(recorder, request)

			assert.Equal(t, http.StatusBadRequest, recorder.Code)
			assert.JSONEq(t,
				`{"code":"invalid_request","description":"`+testCase.wantDescription+`"}`,
				recorder.Body.String(),
			)
		})
	}
}

/*
TestTokenRequired_InvalidTokens exercises every fixed 401 description for a
dead bearer token, end to end through a real codec.
*/
func TestTokenRequired_InvalidTokens(t *testing.T) {
	codec := newCodec(t)
	otherCodec, err := sec.NewCodec([]byte("a-completely-different-secret-key"), "gatehouse.app")
	require.NoError(t, err)

	foreignToken, err := otherCodec.Issue("user-1", "member@example.com", time.Hour)
	require.NoError(t, err)

	expiredToken, err := codec.Issue("user-1", "member@example.com", -time.Minute)
	require.NoError(t, err)

	testCases := []struct {
		name            string
		token           string
		wantDescription string
	}{
		{name: "not_a_jwt", token: "garbage", wantDescription: "jwt malformed"},
		{name: "foreign_signature", token: foreignToken, wantDescription: "invalid signature"},
		{name: "expired", token: expiredToken, wantDescription: "jwt expired"},
	}

	middleware := guard.TokenRequired(codec, revocation.NewMemoryRegistry(), &fakePrincipals{user: testUser()})
	handler := middleware(okHandler(t))

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			recorder := httptest.NewRecorder()
			handler.ServeHTTP(recorder, bearerRequest(testCase.token))

			assert.Equal(t, http.StatusUnauthorized, recorder.Code)
			assert.JSONEq(t,
				`{"code":"invalid_token","description":"`+testCase.wantDescription+`"}`,
				recorder.Body.String(),
			)
			assert.Contains(t, recorder.Header().Get("WWW-Authenticate"), "invalid_token")
		})
	}
}

/*
TestTokenRequired_Revoked checks that a structurally valid token is rejected
once it appears in the revocation registry.
*/
func TestTokenRequired_Revoked(t *testing.T) {
	codec := newCodec(t)
	registry := revocation.NewMemoryRegistry()

	token, err := codec.Issue("user-1", "member@example.com", time.Hour)
	require.NoError(t, err)
	require.NoError(t, registry.Revoke(context.Background(), token, time.Hour))

	middleware := guard.TokenRequired(codec, registry, &fakePrincipals{user: testUser()})
	handler := middleware(okHandler(t))

	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, bearerRequest(token))

	assert.Equal(t, http.StatusUnauthorized, recorder.Code)
	assert.JSONEq(t, `{"code":"invalid_token","description":"jwt revoked"}`, recorder.Body.String())
}

/*
TestTokenRequired_UserNotFound covers a valid token whose subject no longer
exists: the token outlived the account.
*/
func TestTokenRequired_UserNotFound(t *testing.T) {
	codec := newCodec(t)

	token, err := codec.Issue("user-gone", "gone@example.com", time.Hour)
	require.NoError(t, err)

	middleware := guard.TokenRequired(codec, revocation.NewMemoryRegistry(), &fakePrincipals{err: apperr.NotFound("User")})
	handler := middleware(okHandler(t))

	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, bearerRequest(token))

	assert.Equal(t, http.StatusUnauthorized, recorder.Code)
	assert.JSONEq(t, `{"code":"invalid_token","description":"user not found"}`, recorder.Body.String())
}

/*
TestTokenRequired_StoreOutage ensures a principal-store outage surfaces as a
5xx, never as a 401 that would force clients to drop valid credentials.
*/
func TestTokenRequired_StoreOutage(t *testing.T) {
	codec := newCodec(t)

	token, err := codec.Issue("user-1", "member@example.com", time.Hour)
	require.NoError(t, err)

	middleware := guard.TokenRequired(codec, revocation.NewMemoryRegistry(), &fakePrincipals{
		err: apperr.StoreUnavailable(assert.AnError),
	})

	handler := middleware(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		t.Fatal("handler must not run on store outage")
	}))

	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, bearerRequest(token))

	assert.Equal(t, http.StatusServiceUnavailable, recorder.Code)
}

/*
TestTokenRequired_Success authenticates a live token and asserts the handler
sees the injected principal.
*/
func TestTokenRequired_Success(t *testing.T) {
	codec := newCodec(t)

	token, err := codec.Issue("user-1", "member@example.com", time.Hour)
	require.NoError(t, err)

	middleware := guard.TokenRequired(codec, revocation.NewMemoryRegistry(), &fakePrincipals{user: testUser()})
	handler := middleware(okHandler(t))

	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, bearerRequest(token))

	assert.Equal(t, http.StatusOK, recorder.Code)
}

/*
TestSessionRequired_NotFound maps absent and expired sessions to the fixed
401 description.
*/
func TestSessionRequired_NotFound(t *testing.T) {
	sessions := &fakeSessions{readErr: apperr.NotFound("Session")}
	middleware := guard.SessionRequired(sessions, &fakePrincipals{user: testUser()})
	handler := middleware(okHandler(t))

	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, bearerRequest("some-opaque-token"))

	assert.Equal(t, http.StatusUnauthorized, recorder.Code)
	assert.JSONEq(t, `{"code":"invalid_token","description":"session not found or expired"}`, recorder.Body.String())
}

/*
TestSessionRequired_SlidesExpiry checks that a successful authentication
pushes the session window forward and persists it.
*/
func TestSessionRequired_SlidesExpiry(t *testing.T) {
	oldExpiry := time.Now().Add(2 * time.Minute)
	sessions := &fakeSessions{
		record: &session.Session{
			Token:     "some-opaque-token",
			UserID:    "user-1",
			Content:   map[string]any{},
			ExpiresAt: oldExpiry,
		},
	}

	middleware := guard.SessionRequired(sessions, &fakePrincipals{user: testUser()})
	handler := middleware(okHandler(t))

	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, bearerRequest("some-opaque-token"))

	assert.Equal(t, http.StatusOK, recorder.Code)
	require.NotNil(t, sessions.updatedWith)
	assert.True(t, sessions.updatedWith.ExpiresAt.After(oldExpiry))
}

/*
TestSessionRequired_TouchFailureStillAuthenticates: a failed expiry slide must
not reject a request that already authenticated.
*/
func TestSessionRequired_TouchFailureStillAuthenticates(t *testing.T) {
	sessions := &fakeSessions{
		record: &session.Session{
			Token:     "some-opaque-token",
			UserID:    "user-1",
			Content:   map[string]any{},
			ExpiresAt: time.Now().Add(time.Minute),
		},
		updateErr: assert.AnError,
	}

	middleware := guard.SessionRequired(sessions, &fakePrincipals{user: testUser()})
	handler := middleware(okHandler(t))

	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, bearerRequest("some-opaque-token"))

	assert.Equal(t, http.StatusOK, recorder.Code)
}

/*
TestPermissionRequired covers the authorization decision matrix: anonymous,
directly granted, group granted, missing, and multi-permission AND semantics.
All rejections carry empty bodies.
*/
func TestPermissionRequired(t *testing.T) {
	manage := auth.Permission{ID: "p1", CodeName: "manage-access", Name: "Manage Access"}
	publish := auth.Permission{ID: "p2", CodeName: "publish", Name: "Publish"}

	groupGranted := testUser()
	groupGranted.Access.Groups = []auth.Group{
		{ID: "g1", CodeName: "admins", Name: "Admins", Permissions: []auth.Permission{manage}},
	}

	testCases := []struct {
		name       string
		principal  *auth.User
		required   []string
		wantStatus int
	}{
		{
			name:       "anonymous_is_401",
			principal:  nil,
			required:   []string{"manage-access"},
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "direct_grant_passes",
			principal:  testUser(manage),
			required:   []string{"manage-access"},
			wantStatus: http.StatusOK,
		},
		{
			name:       "group_grant_passes",
			principal:  groupGranted,
			required:   []string{"manage-access"},
			wantStatus: http.StatusOK,
		},
		{
			name:       "missing_permission_is_403",
			principal:  testUser(publish),
			required:   []string{"manage-access"},
			wantStatus: http.StatusForbidden,
		},
		{
			name:       "all_permissions_required",
			principal:  testUser(manage),
			required:   []string{"manage-access", "publish"},
			wantStatus: http.StatusForbidden,
		},
		{
			name:       "all_permissions_granted",
			principal:  testUser(manage, publish),
			required:   []string{"manage-access", "publish"},
			wantStatus: http.StatusOK,
		},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			middleware := guard.PermissionRequired(testCase.required...)
			handler := middleware(http.HandlerFunc(func(writer http.ResponseWriter, _ *http.Request) {
				writer.WriteHeader(http.StatusOK)
			}))

			request := httptest.NewRequest(http.MethodGet, "/admin", nil)
			if testCase.principal != nil {
				request = request.WithContext(auth.ContextWithPrincipal(request.Context(), testCase.principal))
			}

			recorder := httptest.NewRecorder()
			handler.ServeHTTP(recorder, request)

			assert.Equal(t, testCase.wantStatus, recorder.Code)
			if testCase.wantStatus == http.StatusUnauthorized || testCase.wantStatus == http.StatusForbidden {
				assert.Empty(t, recorder.Body.String())
			}
		})
	}
}
