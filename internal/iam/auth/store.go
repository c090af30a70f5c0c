// Copyright (c) 2026 Gatehouse. All rights reserved.
// Author: huy.lehoang.vn@gmail.com

package auth

import (
	"context"
)

// # User Data Access

// UserRepository defines the data access contract for user accounts.
type UserRepository interface {

	/*
		FindByID returns the account with the given ID, without permission data.

		Parameters:
		  - context: context.Context
		  - id: string

		Returns:
		  - *User: Hydrated entity (Access left empty)
		  - error: apperr.NotFound or database retrieval failures
	*/
	FindByID(context context.Context, id string) (*User, error)

	/*
		FindByEmail returns the account with the given email, without
		permission data.

		Parameters:
		  - context: context.Context
		  - email: string

		Returns:
		  - *User: Hydrated entity (Access left empty)
		  - error: apperr.NotFound or database retrieval failures
	*/
	FindByEmail(context context.Context, email string) (*User, error)

	/*
		FindByIDWithPermissions returns the account with its full permission
		capability hydrated: direct grants plus group memberships with each
		group's permissions.

		This is the principal resolver used by the guards on every
		authenticated request. It must never serve stale permission data.

		Parameters:
		  - context: context.Context
		  - id: string

		Returns:
		  - *User: Entity with Access populated
		  - error: apperr.NotFound or database retrieval failures
	*/
	FindByIDWithPermissions(context context.Context, id string) (*User, error)

	/*
		Create persists a brand-new user account.

		Parameters:
		  - context: context.Context
		  - user: *User

		Returns:
		  - error: apperr.Conflict on duplicate email, or persistence failures
	*/
	Create(context context.Context, user *User) error
}

// # Access Administration Data Access

// AccessRepository defines the data access contract for permissions, groups,
// and the grant/membership link tables.
type AccessRepository interface {

	/*
		CreatePermission persists a new permission definition.

		Parameters:
		  - context: context.Context
		  - permission: *Permission

		Returns:
		  - error: apperr.Conflict on duplicate code name, or persistence failures
	*/
	CreatePermission(context context.Context, permission *Permission) error

	/*
		CreateGroup persists a new group definition.

		Parameters:
		  - context: context.Context
		  - group: *Group

		Returns:
		  - error: apperr.Conflict on duplicate code name, or persistence failures
	*/
	CreateGroup(context context.Context, group *Group) error

	/*
		ListPermissions returns every permission definition ordered by code name.

		Parameters:
		  - context: context.Context

		Returns:
		  - []Permission: All permission definitions
		  - error: Database retrieval failures
	*/
	ListPermissions(context context.Context) ([]Permission, error)

	/*
		ListGroups returns every group with its permissions hydrated, ordered
		by code name.

		Parameters:
		  - context: context.Context

		Returns:
		  - []Group: All group definitions
		  - error: Database retrieval failures
	*/
	ListGroups(context context.Context) ([]Group, error)

	/*
		GrantToUser links a permission directly to a user account.

		Parameters:
		  - context: context.Context
		  - userID: string
		  - permissionID: string

		Returns:
		  - error: apperr.NotFound when either side is absent,
		    apperr.Conflict when the grant already exists, or persistence failures
	*/
	GrantToUser(context context.Context, userID, permissionID string) error

	/*
		GrantToGroup links a permission to a group.

		Parameters:
		  - context: context.Context
		  - groupID: string
		  - permissionID: string

		Returns:
		  - error: apperr.NotFound when either side is absent,
		    apperr.Conflict when the grant already exists, or persistence failures
	*/
	GrantToGroup(context context.Context, groupID, permissionID string) error

	/*
		AddMember links a user account to a group.

		Parameters:
		  - context: context.Context
		  - groupID: string
		  - userID: string

		Returns:
		  - error: apperr.NotFound when either side is absent,
		    apperr.Conflict when the membership already exists, or persistence failures
	*/
	AddMember(context context.Context, groupID, userID string) error
}
