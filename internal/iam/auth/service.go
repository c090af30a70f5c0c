// Copyright (c) 2026 Gatehouse. All rights reserved.
// Author: huy.lehoang.vn@gmail.com

package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/lehoanghuy/gatehouse/internal/iam/revocation"
	"github.com/lehoanghuy/gatehouse/internal/iam/session"
	"github.com/lehoanghuy/gatehouse/internal/platform/apperr"
	"github.com/lehoanghuy/gatehouse/internal/platform/sec"
	"github.com/lehoanghuy/gatehouse/pkg/uuidv7"
)

// # Contracts & Types

// TokenCodec defines the contract for issuing and verifying bearer tokens.
type TokenCodec interface {
	// Issue creates a signed token for the given account.
	//
	// # Parameters
	//   - userID: The ID of the account, stored as the 'sub' claim.
	//   - email: The account email claim.
	//   - timeToLive: The duration before the token expires.
	//
	// # Returns
	//   - A signed token string, or an error if signing fails.
	Issue(userID, email string, timeToLive time.Duration) (string, error)

	// Verify checks the signature and validity of a token string and returns
	// its claims on success.
	Verify(tokenString string) (*sec.IdentityClaims, error)
}

// Service implements identity and access use cases.
//
// # Review Process
//
// This service is critical for security. Any changes to hashing, login, or
// revocation logic must be reviewed by the security team.
type Service struct {
	userRepository   UserRepository
	accessRepository AccessRepository
	sessionStore     session.Store
	revocations      revocation.Registry
	codec            TokenCodec
}

// NewService constructs a new [Service] with necessary dependencies.
func NewService(
	userRepo UserRepository,
	accessRepo AccessRepository,
	sessionStore session.Store,
	revocations revocation.Registry,
	codec TokenCodec,
) *Service {
	return &Service{
		userRepository:   userRepo,
		accessRepository: accessRepo,
		sessionStore:     sessionStore,
		revocations:      revocations,
		codec:            codec,
	}
}

// # Registration Flow

// RegisterInput holds the data required to enroll a new account.
type RegisterInput struct {
	Email    string
	Password string
	Nickname string
}

/*
Register validates, hashes, and persists a brand new user account.

Parameters:
  - context: context.Context
  - input: RegisterInput

Returns:
  - *User: Created entity
  - error: Conflict (if the email exists) or storage errors
*/
func (service *Service) Register(context context.Context, input RegisterInput) (*User, error) {

	// Verify email uniqueness. Return a client-safe Conflict error.
	_, err := service.userRepository.FindByEmail(context, input.Email)
	if err == nil {
		return nil, apperr.Conflict("Email is already registered")
	}
	if !apperr.IsNotFound(err) {
		return nil, fmt.Errorf("auth_service_register_lookup_failed: %w", err)
	}

	// Prevent storing plain-text passwords. Default cost is used for balance
	// between security and CPU utilization during registration spikes.
	hashedPassword, err := sec.HashPassword(input.Password)
	if err != nil {
		return nil, fmt.Errorf("auth_service_hash_failed: %w", err)
	}

	// Time-sortable ID to prevent PG index fragmentation.
	user := &User{
		ID:           uuidv7.New(),
		Email:        input.Email,
		PasswordHash: hashedPassword,
		Nickname:     input.Nickname,
	}

	if err := service.userRepository.Create(context, user); err != nil {
		return nil, fmt.Errorf("auth_service_register_failed: %w", err)
	}

	return user, nil
}

// # Authentication Flow

// LoginInput defines credentials for an authentication attempt.
type LoginInput struct {
	Email    string
	Password string
}

// TokenGrant represents a successfully issued bearer-token credential.
type TokenGrant struct {
	AccessToken string
	ExpiresIn   time.Duration
	User        *User
}

// SessionGrant represents a successfully established server-side session.
type SessionGrant struct {
	Token     string
	ExpiresAt time.Time
	User      *User
}

/*
LoginToken validates user credentials and issues a signed bearer token.

Description: Verifies identity with a constant-time password comparison and
signs a short-lived stateless credential.

Parameters:
  - context: context.Context
  - input: LoginInput

Returns:
  - *TokenGrant: Transport-ready credential
  - error: Unauthorized, store outages, or internal failures
*/
func (service *Service) LoginToken(context context.Context, input LoginInput) (*TokenGrant, error) {
	user, err := service.verifyCredentials(context, input)
	if err != nil {
		return nil, err
	}

	accessToken, err := service.codec.Issue(user.ID, user.Email, AccessTokenTTL)
	if err != nil {
		return nil, fmt.Errorf("auth_service_token_issue_failed: %w", err)
	}

	return &TokenGrant{
		AccessToken: accessToken,
		ExpiresIn:   AccessTokenTTL,
		User:        user,
	}, nil
}

/*
LoginSession validates user credentials and creates a server-side session.

Description: Verifies identity and persists a new opaque-token session in the
configured session store.

Parameters:
  - context: context.Context
  - input: LoginInput

Returns:
  - *SessionGrant: Opaque session credential
  - error: Unauthorized, store outages, or internal failures
*/
func (service *Service) LoginSession(context context.Context, input LoginInput) (*SessionGrant, error) {
	user, err := service.verifyCredentials(context, input)
	if err != nil {
		return nil, err
	}

	record, err := service.sessionStore.Create(context, user.ID)
	if err != nil {
		return nil, fmt.Errorf("auth_service_session_creation_failed: %w", err)
	}

	return &SessionGrant{
		Token:     record.Token,
		ExpiresAt: record.ExpiresAt,
		User:      user,
	}, nil
}

// verifyCredentials resolves the account and checks the password.
//
// An absent account and a wrong password produce the same generic 401 to
// prevent user enumeration. A store outage is NOT folded into that 401: the
// caller must see the 5xx so clients know to retry.
func (service *Service) verifyCredentials(context context.Context, input LoginInput) (*User, error) {
	user, err := service.userRepository.FindByEmail(context, input.Email)
	if err != nil {
		if apperr.IsNotFound(err) {
			return nil, apperr.Unauthorized("Invalid login credentials")
		}
		return nil, fmt.Errorf("auth_service_login_lookup_failed: %w", err)
	}

	if !sec.CheckPasswordHash(input.Password, user.PasswordHash) {
		return nil, apperr.Unauthorized("Invalid login credentials")
	}

	return user, nil
}

/*
LogoutToken revokes a bearer token for the remainder of its lifetime.

Description: Verifies the token to learn how long the revocation entry must be
retained, then records it in the revocation registry. An invalid or expired
token needs no registry entry — it can never authenticate again — so logout is
considered successful (idempotent operation).

Parameters:
  - context: context.Context
  - rawToken: string

Returns:
  - error: Revocation failures
*/
func (service *Service) LogoutToken(context context.Context, rawToken string) error {
	claims, err := service.codec.Verify(rawToken)
	if err != nil {
		return nil
	}

	if err := service.revocations.Revoke(context, rawToken, claims.RemainingLifetime()); err != nil {
		return fmt.Errorf("auth_service_token_logout_failed: %w", err)
	}

	return nil
}

/*
LogoutSession destroys the server-side session for the given token.

Description: Destroying an absent or already-destroyed session is a no-op
(idempotent operation).

Parameters:
  - context: context.Context
  - token: string

Returns:
  - error: Store failures only
*/
func (service *Service) LogoutSession(context context.Context, token string) error {
	if err := service.sessionStore.Destroy(context, token); err != nil {
		return fmt.Errorf("auth_service_session_logout_failed: %w", err)
	}

	return nil
}

// # Access Administration

// CreatePermissionInput holds the data for a new permission definition.
type CreatePermissionInput struct {
	CodeName string
	Name     string
}

// CreateGroupInput holds the data for a new group definition.
type CreateGroupInput struct {
	CodeName string
	Name     string
}

/*
CreatePermission persists a new permission definition.

Parameters:
  - context: context.Context
  - input: CreatePermissionInput

Returns:
  - *Permission: Created entity
  - error: Conflict on duplicate code name, or storage errors
*/
func (service *Service) CreatePermission(context context.Context, input CreatePermissionInput) (*Permission, error) {
	permission := &Permission{
		ID:       uuidv7.New(),
		CodeName: input.CodeName,
		Name:     input.Name,
	}

	if err := service.accessRepository.CreatePermission(context, permission); err != nil {
		return nil, fmt.Errorf("auth_service_create_permission_failed: %w", err)
	}

	return permission, nil
}

/*
CreateGroup persists a new group definition.

Parameters:
  - context: context.Context
  - input: CreateGroupInput

Returns:
  - *Group: Created entity
  - error: Conflict on duplicate code name, or storage errors
*/
func (service *Service) CreateGroup(context context.Context, input CreateGroupInput) (*Group, error) {
	group := &Group{
		ID:          uuidv7.New(),
		CodeName:    input.CodeName,
		Name:        input.Name,
		Permissions: []Permission{},
	}

	if err := service.accessRepository.CreateGroup(context, group); err != nil {
		return nil, fmt.Errorf("auth_service_create_group_failed: %w", err)
	}

	return group, nil
}

/*
ListPermissions returns every permission definition.

Parameters:
  - context: context.Context

Returns:
  - []Permission: All definitions ordered by code name
  - error: Storage errors
*/
func (service *Service) ListPermissions(context context.Context) ([]Permission, error) {
	permissions, err := service.accessRepository.ListPermissions(context)
	if err != nil {
		return nil, fmt.Errorf("auth_service_list_permissions_failed: %w", err)
	}
	return permissions, nil
}

/*
ListGroups returns every group with its permissions hydrated.

Parameters:
  - context: context.Context

Returns:
  - []Group: All definitions ordered by code name
  - error: Storage errors
*/
func (service *Service) ListGroups(context context.Context) ([]Group, error) {
	groups, err := service.accessRepository.ListGroups(context)
	if err != nil {
		return nil, fmt.Errorf("auth_service_list_groups_failed: %w", err)
	}
	return groups, nil
}

/*
GrantPermissionToUser links a permission directly to a user account.

Description: Takes effect on the user's next request — permission data is
loaded fresh per request and never cached.

Parameters:
  - context: context.Context
  - userID: string
  - permissionID: string

Returns:
  - error: NotFound, Conflict, or storage errors
*/
func (service *Service) GrantPermissionToUser(context context.Context, userID, permissionID string) error {
	if err := service.accessRepository.GrantToUser(context, userID, permissionID); err != nil {
		return fmt.Errorf("auth_service_grant_to_user_failed: %w", err)
	}
	return nil
}

/*
GrantPermissionToGroup links a permission to a group. Every member gains the
permission on their next request.

Parameters:
  - context: context.Context
  - groupID: string
  - permissionID: string

Returns:
  - error: NotFound, Conflict, or storage errors
*/
func (service *Service) GrantPermissionToGroup(context context.Context, groupID, permissionID string) error {
	if err := service.accessRepository.GrantToGroup(context, groupID, permissionID); err != nil {
		return fmt.Errorf("auth_service_grant_to_group_failed: %w", err)
	}
	return nil
}

/*
AddUserToGroup links a user account to a group.

Parameters:
  - context: context.Context
  - groupID: string
  - userID: string

Returns:
  - error: NotFound, Conflict, or storage errors
*/
func (service *Service) AddUserToGroup(context context.Context, groupID, userID string) error {
	if err := service.accessRepository.AddMember(context, groupID, userID); err != nil {
		return fmt.Errorf("auth_service_add_member_failed: %w", err)
	}
	return nil
}
