// Copyright (c) 2026 Gatehouse. All rights reserved.
// Author: huy.lehoang.vn@gmail.com

// HTTP delivery layer for identity and access management.
//
// # Architecture
//
// The handler acts as a thin mediation layer between the web and the domain
// service:
//   - Protocol: Standard RESTful JSON interface.
//   - Security: Guard middlewares are injected by the server, not imported
//     here, so the handler stays free of authentication concerns.
//   - Verification: Enforces strict input validation before passing to [Service].
//
// This layer is strictly responsible for transport concerns (status codes,
// headers, JSON).

package auth

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/lehoanghuy/gatehouse/internal/platform/apperr"
	"github.com/lehoanghuy/gatehouse/internal/platform/constants"
	requestutil "github.com/lehoanghuy/gatehouse/internal/platform/request"
	"github.com/lehoanghuy/gatehouse/internal/platform/respond"
	"github.com/lehoanghuy/gatehouse/internal/platform/validate"
)

// # Definitions & Constructors

// Middleware is the shape of a guard injected into [Handler.ProtectedRoutes].
type Middleware func(http.Handler) http.Handler

// Handler implements identity and access HTTP endpoints.
type Handler struct {
	authService *Service
}

// NewHandler constructs a new [Handler] with its service dependency.
func NewHandler(service *Service) *Handler {
	return &Handler{authService: service}
}

// Routes returns a [chi.Router] with the public credential endpoints.
//
// # Endpoints
//   - POST /register        : Creates a new account.
//   - POST /login           : Authenticates and returns a bearer token.
//   - POST /logout          : Revokes the presented bearer token.
//   - POST /session/login   : Authenticates and opens a server-side session.
//   - POST /session/logout  : Destroys the presented session.
//
// The logout endpoints are deliberately public and idempotent: a client
// holding a dead credential must still be able to "log out" cleanly.
func (handler *Handler) Routes() chi.Router {
	router := chi.NewRouter()

	router.Post("/register", handler.register)
	router.Post("/login", handler.loginToken)
	router.Post("/logout", handler.logoutToken)
	router.Post("/session/login", handler.loginSession)
	router.Post("/session/logout", handler.logoutSession)

	return router
}

// ProtectedRoutes returns a [chi.Router] with the endpoints that require an
// authenticated principal.
//
// # Guard Composition
//
// The server composes the guards and passes them in as plain middleware
// values; the /access subtree additionally demands the manage-access
// permission.
//
// # Endpoints
//   - GET  /me                    : Returns the authenticated principal.
//   - POST /access/permissions    : Defines a new permission.
//   - GET  /access/permissions    : Lists permission definitions.
//   - POST /access/groups         : Defines a new group.
//   - GET  /access/groups         : Lists groups with their permissions.
//   - POST /access/grants/user    : Grants a permission to a user.
//   - POST /access/grants/group   : Grants a permission to a group.
//   - POST /access/memberships    : Adds a user to a group.
func (handler *Handler) ProtectedRoutes(authenticated Middleware, permissionRequired func(...string) Middleware) chi.Router {
	router := chi.NewRouter()
	router.Use(authenticated)

	router.Get("/me", handler.me)

	router.Route("/access", func(r chi.Router) {
		r.Use(permissionRequired(PermManageAccess))

		r.Post("/permissions", handler.createPermission)
		r.Get("/permissions", handler.listPermissions)
		r.Post("/groups", handler.createGroup)
		r.Get("/groups", handler.listGroups)
		r.Post("/grants/user", handler.grantToUser)
		r.Post("/grants/group", handler.grantToGroup)
		r.Post("/memberships", handler.addMember)
	})

	return router
}

// # Request Payloads

type registerRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Nickname string `json:"nickname"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type createPermissionRequest struct {
	CodeName string `json:"code_name"`
	Name     string `json:"name"`
}

type createGroupRequest struct {
	CodeName string `json:"code_name"`
	Name     string `json:"name"`
}

type grantUserRequest struct {
	UserID       string `json:"user_id"`
	PermissionID string `json:"permission_id"`
}

type grantGroupRequest struct {
	GroupID      string `json:"group_id"`
	PermissionID string `json:"permission_id"`
}

type membershipRequest struct {
	GroupID string `json:"group_id"`
	UserID  string `json:"user_id"`
}

// # Credential Endpoints

/*
Register handles the creation of a new user account.

POST /api/v1/auth/register

Request:
  - Body: registerRequest (Email, Password, Nickname)

Response:
  - 201: User: Created user profile
  - 400: ErrInvalidJSON: Bad input or validation failure
  - 409: ErrConflict: Email already registered
*/
func (handler *Handler) register(writer http.ResponseWriter, request *http.Request) {
	var input registerRequest

	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, validate.ErrInvalidJSON)
		return
	}

	validator := &validate.Validator{}
	validator.Required(FieldEmail, input.Email).
		Email(FieldEmail, input.Email).
		Required(FieldPassword, input.Password).
		MinLen(FieldPassword, input.Password, PasswordMinLength).
		MaxLen(FieldNickname, input.Nickname, NicknameMaxLength)

	if err := validator.Err(); err != nil {
		respond.Error(writer, request, err)
		return
	}

	user, err := handler.authService.Register(request.Context(), RegisterInput{
		Email:    input.Email,
		Password: input.Password,
		Nickname: input.Nickname,
	})

	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.Created(writer, user)
}

/*
LoginToken authenticates a user and issues a signed bearer token.

POST /api/v1/auth/login

Request:
  - Body: loginRequest (Email, Password)

Response:
  - 200: TokenGrant: Access token and user profile
  - 401: ErrUnauthorized: Invalid credentials
  - 503: StoreUnavailable: Account store outage (retryable)
*/
func (handler *Handler) loginToken(writer http.ResponseWriter, request *http.Request) {
	input, ok := handler.decodeLogin(writer, request)
	if !ok {
		return
	}

	grant, err := handler.authService.LoginToken(request.Context(), input)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, map[string]any{
		"access_token": grant.AccessToken,
		"token_type":   "Bearer",
		"expires_in":   int64(grant.ExpiresIn / time.Second),
		"user":         grant.User,
	})
}

/*
LogoutToken revokes the presented bearer token.

POST /api/v1/auth/logout

Description: Reads the Authorization header directly. A missing, malformed,
expired, or already-revoked token still yields 204 — logging out twice is not
an error.

Response:
  - 204: No Content: Token revoked (or was never usable)
  - 503: StoreUnavailable: Revocation registry outage
*/
func (handler *Handler) logoutToken(writer http.ResponseWriter, request *http.Request) {
	token := bearerToken(request)
	if token == "" {
		respond.NoContent(writer)
		return
	}

	if err := handler.authService.LogoutToken(request.Context(), token); err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.NoContent(writer)
}

/*
LoginSession authenticates a user and opens a server-side session.

POST /api/v1/auth/session/login

Request:
  - Body: loginRequest (Email, Password)

Response:
  - 200: SessionGrant: Opaque session token and user profile
  - 401: ErrUnauthorized: Invalid credentials
  - 503: StoreUnavailable: Store outage (retryable)
*/
func (handler *Handler) loginSession(writer http.ResponseWriter, request *http.Request) {
	input, ok := handler.decodeLogin(writer, request)
	if !ok {
		return
	}

	grant, err := handler.authService.LoginSession(request.Context(), input)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, map[string]any{
		"token":      grant.Token,
		"token_type": "Bearer",
		"expires_at": grant.ExpiresAt,
		"user":       grant.User,
	})
}

/*
LogoutSession destroys the presented session.

POST /api/v1/auth/session/logout

Description: Reads the Authorization header directly. Destroying an absent or
expired session still yields 204 (idempotent operation).

Response:
  - 204: No Content: Session destroyed (or was never alive)
  - 503: StoreUnavailable: Session store outage
*/
func (handler *Handler) logoutSession(writer http.ResponseWriter, request *http.Request) {
	token := bearerToken(request)
	if token == "" {
		respond.NoContent(writer)
		return
	}

	if err := handler.authService.LogoutSession(request.Context(), token); err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.NoContent(writer)
}

// decodeLogin decodes and validates the shared login payload.
func (handler *Handler) decodeLogin(writer http.ResponseWriter, request *http.Request) (LoginInput, bool) {
	var input loginRequest

	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, validate.ErrInvalidJSON)
		return LoginInput{}, false
	}

	validator := &validate.Validator{}
	validator.Required(FieldEmail, input.Email)
	validator.Required(FieldPassword, input.Password)

	if err := validator.Err(); err != nil {
		respond.Error(writer, request, err)
		return LoginInput{}, false
	}

	return LoginInput{Email: input.Email, Password: input.Password}, true
}

// # Principal Endpoints

/*
Me returns the authenticated principal with its permission capability.

GET /api/v1/me

Response:
  - 200: User: Principal with direct and group permissions
  - 401: Missing or invalid credential (handled by the guard)
*/
func (handler *Handler) me(writer http.ResponseWriter, request *http.Request) {
	principal := PrincipalFrom(request.Context())
	if principal == nil {
		respond.Error(writer, request, apperr.Unauthorized("Authentication required"))
		return
	}

	respond.OK(writer, principal)
}

// # Access Administration Endpoints

/*
CreatePermission defines a new permission.

POST /api/v1/access/permissions

Request:
  - Body: createPermissionRequest (CodeName, Name)

Response:
  - 201: Permission: Created definition
  - 400: ErrInvalidJSON: Bad code name or validation failure
  - 409: ErrConflict: Code name already defined
*/
func (handler *Handler) createPermission(writer http.ResponseWriter, request *http.Request) {
	var input createPermissionRequest

	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, validate.ErrInvalidJSON)
		return
	}

	validator := &validate.Validator{}
	validator.Required(FieldCodeName, input.CodeName).
		CodeName(FieldCodeName, input.CodeName).
		MaxLen(FieldCodeName, input.CodeName, CodeNameMaxLength).
		Required(FieldName, input.Name)

	if err := validator.Err(); err != nil {
		respond.Error(writer, request, err)
		return
	}

	permission, err := handler.authService.CreatePermission(request.Context(), CreatePermissionInput{
		CodeName: input.CodeName,
		Name:     input.Name,
	})

	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.Created(writer, permission)
}

/*
ListPermissions lists every permission definition.

GET /api/v1/access/permissions

Response:
  - 200: []Permission: Definitions ordered by code name
*/
func (handler *Handler) listPermissions(writer http.ResponseWriter, request *http.Request) {
	permissions, err := handler.authService.ListPermissions(request.Context())
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, permissions)
}

/*
CreateGroup defines a new group.

POST /api/v1/access/groups

Request:
  - Body: createGroupRequest (CodeName, Name)

Response:
  - 201: Group: Created definition
  - 400: ErrInvalidJSON: Bad code name or validation failure
  - 409: ErrConflict: Code name already defined
*/
func (handler *Handler) createGroup(writer http.ResponseWriter, request *http.Request) {
	var input createGroupRequest

	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, validate.ErrInvalidJSON)
		return
	}

	validator := &validate.Validator{}
	validator.Required(FieldCodeName, input.CodeName).
		CodeName(FieldCodeName, input.CodeName).
		MaxLen(FieldCodeName, input.CodeName, CodeNameMaxLength).
		Required(FieldName, input.Name)

	if err := validator.Err(); err != nil {
		respond.Error(writer, request, err)
		return
	}

	group, err := handler.authService.CreateGroup(request.Context(), CreateGroupInput{
		CodeName: input.CodeName,
		Name:     input.Name,
	})

	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.Created(writer, group)
}

/*
ListGroups lists every group with its permissions hydrated.

GET /api/v1/access/groups

Response:
  - 200: []Group: Definitions ordered by code name
*/
func (handler *Handler) listGroups(writer http.ResponseWriter, request *http.Request) {
	groups, err := handler.authService.ListGroups(request.Context())
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, groups)
}

/*
GrantToUser grants a permission directly to a user account.

POST /api/v1/access/grants/user

Request:
  - Body: grantUserRequest (UserID, PermissionID)

Response:
  - 204: No Content: Grant recorded
  - 404: ErrNotFound: User or permission does not exist
  - 409: ErrConflict: Grant already exists
*/
func (handler *Handler) grantToUser(writer http.ResponseWriter, request *http.Request) {
	var input grantUserRequest

	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, validate.ErrInvalidJSON)
		return
	}

	validator := &validate.Validator{}
	validator.Required(FieldUserID, input.UserID).
		UUID(FieldUserID, input.UserID).
		Required("permission_id", input.PermissionID).
		UUID("permission_id", input.PermissionID)

	if err := validator.Err(); err != nil {
		respond.Error(writer, request, err)
		return
	}

	if err := handler.authService.GrantPermissionToUser(request.Context(), input.UserID, input.PermissionID); err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.NoContent(writer)
}

/*
GrantToGroup grants a permission to a group.

POST /api/v1/access/grants/group

Request:
  - Body: grantGroupRequest (GroupID, PermissionID)

Response:
  - 204: No Content: Grant recorded
  - 404: ErrNotFound: Group or permission does not exist
  - 409: ErrConflict: Grant already exists
*/
func (handler *Handler) grantToGroup(writer http.ResponseWriter, request *http.Request) {
	var input grantGroupRequest

	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, validate.ErrInvalidJSON)
		return
	}

	validator := &validate.Validator{}
	validator.Required(FieldGroupID, input.GroupID).
		UUID(FieldGroupID, input.GroupID).
		Required("permission_id", input.PermissionID).
		UUID("permission_id", input.PermissionID)

	if err := validator.Err(); err != nil {
		respond.Error(writer, request, err)
		return
	}

	if err := handler.authService.GrantPermissionToGroup(request.Context(), input.GroupID, input.PermissionID); err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.NoContent(writer)
}

/*
AddMember adds a user account to a group.

POST /api/v1/access/memberships

Request:
  - Body: membershipRequest (GroupID, UserID)

Response:
  - 204: No Content: Membership recorded
  - 404: ErrNotFound: Group or user does not exist
  - 409: ErrConflict: Membership already exists
*/
func (handler *Handler) addMember(writer http.ResponseWriter, request *http.Request) {
	var input membershipRequest

	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, validate.ErrInvalidJSON)
		return
	}

	validator := &validate.Validator{}
	validator.Required(FieldGroupID, input.GroupID).
		UUID(FieldGroupID, input.GroupID).
		Required(FieldUserID, input.UserID).
		UUID(FieldUserID, input.UserID)

	if err := validator.Err(); err != nil {
		respond.Error(writer, request, err)
		return
	}

	if err := handler.authService.AddUserToGroup(request.Context(), input.GroupID, input.UserID); err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.NoContent(writer)
}

// bearerToken extracts the raw credential from the Authorization header.
// It returns "" when the header is absent or does not use the Bearer scheme.
func bearerToken(request *http.Request) string {
	header := request.Header.Get(constants.HeaderAuthorization)
	if header == "" || !strings.HasPrefix(header, constants.BearerScheme) {
		return ""
	}
	return strings.TrimPrefix(header, constants.BearerScheme)
}
