// Copyright (c) 2026 Gatehouse. All rights reserved.
// Author: huy.lehoang.vn@gmail.com

/*
Package auth implements the identity and access-control core.

It defines the domain entities (User, Permission, Group), credential
verification workflows (login, logout, registration), and the permission
resolution rules enforced by the authorization guard.

# Architecture

This layer is the "Truth" of the system. Entities defined here have no
transport or storage dependencies and encapsulate all business rules related
to identity and access.
*/
package auth

import (
	"time"
)

// # Domain Entities

// Permission is an atomic, named capability.
//
// CodeName is the stable identifier used in checks ("access-foo"); Name is
// the human-readable display label. Once a code name is referenced by a
// check it must never change meaning.
type Permission struct {
	ID       string `json:"id"`
	CodeName string `json:"code_name"`
	Name     string `json:"name"`
}

// Group is a named bundle of permissions assignable to users.
//
// Groups do not nest: the model is strictly two-level (user → group →
// permission).
type Group struct {
	ID          string       `json:"id"`
	CodeName    string       `json:"code_name"`
	Name        string       `json:"name"`
	Permissions []Permission `json:"permissions,omitempty"`
}

// PermissionSet is the access capability attached to a user.
//
// It is populated only by the permission-aware resolver
// (FindByIDWithPermissions); a plain lookup leaves it empty. All resolution
// is pure in-memory set arithmetic — no I/O happens after loading.
type PermissionSet struct {
	// Direct holds permissions granted to the user individually.
	Direct []Permission `json:"direct"`

	// Groups holds the user's group memberships with each group's
	// permissions hydrated.
	Groups []Group `json:"groups"`
}

// Effective computes the union of direct permissions and every group's
// permissions. A permission present both directly and via a group counts
// once (set semantics). The union is recomputed on every call — permission
// data is never cached across requests.
func (set PermissionSet) Effective() map[string]struct{} {
	effective := make(map[string]struct{}, len(set.Direct))

	for _, permission := range set.Direct {
		effective[permission.CodeName] = struct{}{}
	}
	for _, group := range set.Groups {
		for _, permission := range group.Permissions {
			effective[permission.CodeName] = struct{}{}
		}
	}

	return effective
}

// Has reports whether the set grants the given permission code name.
func (set PermissionSet) Has(codeName string) bool {
	_, granted := set.Effective()[codeName]
	return granted
}

// User represents a registered principal.
type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"` // Explicitly omitted from JSON for security.
	Nickname     string    `json:"nickname"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`

	// Access is the user's permission capability. Composition, not
	// inheritance: any entity wanting permission semantics embeds a
	// [PermissionSet] rather than subclassing a "user with permissions".
	Access PermissionSet `json:"access"`
}

// HasPermission reports whether the user's effective permission set grants
// the given code name.
func (user *User) HasPermission(codeName string) bool {
	return user.Access.Has(codeName)
}

// # Field Identifiers

// Field names shared between validation and JSON payloads.
const (
	FieldEmail    = "email"
	FieldPassword = "password"
	FieldNickname = "nickname"
	FieldToken    = "token"
	FieldCodeName = "code_name"
	FieldName     = "name"
	FieldUserID   = "user_id"
	FieldGroupID  = "group_id"
)

// # Well-Known Permissions

const (
	// PermManageAccess guards the access-administration endpoints
	// (creating permissions/groups, granting, membership changes).
	PermManageAccess = "manage-access"
)
