// Copyright (c) 2026 Gatehouse. All rights reserved.
// Author: huy.lehoang.vn@gmail.com

// PostgreSQL implementations of the auth repositories.
//
// # Error Mapping
//
// Storage-specific errors (like pgx.ErrNoRows) are mapped to domain-friendly
// [apperr.AppError] types via dberr so no storage detail leaks to callers.
// The distinction between NOT_FOUND and STORE_UNAVAILABLE is preserved all
// the way up: the guards turn the former into a 401 and the latter into a 5xx.

package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/lehoanghuy/gatehouse/internal/platform/dberr"
)

// # User Repository

// PostgresUserRepository implements [UserRepository] using pgx.
type PostgresUserRepository struct {
	pool *pgxpool.Pool
}

// NewUserRepository creates a new PostgreSQL implementation of [UserRepository].
func NewUserRepository(pool *pgxpool.Pool) *PostgresUserRepository {
	return &PostgresUserRepository{pool: pool}
}

/*
Create persists a new user record into the iam.account table.

Parameters:
  - context: context.Context
  - user: *User

Returns:
  - error: apperr.Conflict on duplicate email, or persistence failures
*/
func (repository *PostgresUserRepository) Create(context context.Context, user *User) error {
	const query = `
		INSERT INTO iam.account (id, email, passwordhash, nickname, createdat, updatedat)
		VALUES ($1, $2, $3, $4, $5, $6)`

	now := time.Now()
	if user.CreatedAt.IsZero() {
		user.CreatedAt = now
	}
	user.UpdatedAt = now

	_, err := repository.pool.Exec(context, query,
		user.ID,
		user.Email,
		user.PasswordHash,
		user.Nickname,
		user.CreatedAt,
		user.UpdatedAt,
	)

	if err != nil {
		return fmt.Errorf("postgres_user_repo_create_failed: %w", dberr.Wrap(err, "User"))
	}

	return nil
}

/*
FindByEmail retrieves a user record by their unique email address.

Parameters:
  - context: context.Context
  - email: string

Returns:
  - *User: Hydrated account entity (Access left empty)
  - error: apperr.NotFound or database errors
*/
func (repository *PostgresUserRepository) FindByEmail(context context.Context, email string) (*User, error) {
	const query = `
		SELECT id, email, passwordhash, nickname, createdat, updatedat
		FROM iam.account
		WHERE email = $1`

	user := &User{}
	err := repository.pool.QueryRow(context, query, email).Scan(
		&user.ID,
		&user.Email,
		&user.PasswordHash,
		&user.Nickname,
		&user.CreatedAt,
		&user.UpdatedAt,
	)

	if err != nil {
		return nil, fmt.Errorf("postgres_user_repo_find_by_email_failed: %w", dberr.Wrap(err, "User"))
	}

	return user, nil
}

/*
FindByID retrieves a user record by their unique ID.

Parameters:
  - context: context.Context
  - id: string (UUIDv7)

Returns:
  - *User: Hydrated account entity (Access left empty)
  - error: apperr.NotFound or database errors
*/
func (repository *PostgresUserRepository) FindByID(context context.Context, id string) (*User, error) {
	const query = `
		SELECT id, email, passwordhash, nickname, createdat, updatedat
		FROM iam.account
		WHERE id = $1`

	user := &User{}
	err := repository.pool.QueryRow(context, query, id).Scan(
		&user.ID,
		&user.Email,
		&user.PasswordHash,
		&user.Nickname,
		&user.CreatedAt,
		&user.UpdatedAt,
	)

	if err != nil {
		return nil, fmt.Errorf("postgres_user_repo_find_by_id_failed: %w", dberr.Wrap(err, "User"))
	}

	return user, nil
}

/*
FindByIDWithPermissions retrieves a user with the full permission capability
hydrated: direct grants plus group memberships with each group's permissions.

Description: Runs three reads inside one read-only transaction so the account
row, the direct grants, and the group grants come from a single consistent
snapshot. The permission union itself is computed in memory by the entity.

Parameters:
  - context: context.Context
  - id: string

Returns:
  - *User: Entity with Access populated
  - error: apperr.NotFound or database errors
*/
func (repository *PostgresUserRepository) FindByIDWithPermissions(context context.Context, id string) (*User, error) {
	transaction, err := repository.pool.BeginTx(context, pgx.TxOptions{AccessMode: pgx.ReadOnly})
	if err != nil {
		return nil, fmt.Errorf("postgres_user_repo_begin_tx_failed: %w", dberr.Wrap(err, "User"))
	}
	defer func() { _ = transaction.Rollback(context) }()

	const accountQuery = `
		SELECT id, email, passwordhash, nickname, createdat, updatedat
		FROM iam.account
		WHERE id = $1`

	user := &User{}
	err = transaction.QueryRow(context, accountQuery, id).Scan(
		&user.ID,
		&user.Email,
		&user.PasswordHash,
		&user.Nickname,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("postgres_user_repo_find_by_id_failed: %w", dberr.Wrap(err, "User"))
	}

	user.Access.Direct, err = repository.directPermissions(context, transaction, id)
	if err != nil {
		return nil, err
	}

	user.Access.Groups, err = repository.memberGroups(context, transaction, id)
	if err != nil {
		return nil, err
	}

	if err := transaction.Commit(context); err != nil {
		return nil, fmt.Errorf("postgres_user_repo_commit_tx_failed: %w", dberr.Wrap(err, "User"))
	}

	return user, nil
}

// directPermissions loads the permissions granted to the account individually.
func (repository *PostgresUserRepository) directPermissions(context context.Context, transaction pgx.Tx, accountID string) ([]Permission, error) {
	const query = `
		SELECT p.id, p.codename, p.name
		FROM iam.permission p
		JOIN iam.account_permission ap ON ap.permissionid = p.id
		WHERE ap.accountid = $1
		ORDER BY p.codename`

	rows, err := transaction.Query(context, query, accountID)
	if err != nil {
		return nil, fmt.Errorf("postgres_user_repo_direct_permissions_failed: %w", dberr.Wrap(err, "Permission"))
	}
	defer rows.Close()

	permissions := []Permission{}
	for rows.Next() {
		var permission Permission
		if err := rows.Scan(&permission.ID, &permission.CodeName, &permission.Name); err != nil {
			return nil, fmt.Errorf("postgres_user_repo_direct_permissions_scan_failed: %w", err)
		}
		permissions = append(permissions, permission)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres_user_repo_direct_permissions_rows_failed: %w", dberr.Wrap(err, "Permission"))
	}

	return permissions, nil
}

// memberGroups loads the account's groups with each group's permissions.
// The LEFT JOIN keeps groups that carry no permissions yet.
func (repository *PostgresUserRepository) memberGroups(context context.Context, transaction pgx.Tx, accountID string) ([]Group, error) {
	const query = `
		SELECT g.id, g.codename, g.name, p.id, p.codename, p.name
		FROM iam.usergroup g
		JOIN iam.account_usergroup ag ON ag.groupid = g.id
		LEFT JOIN iam.usergroup_permission gp ON gp.groupid = g.id
		LEFT JOIN iam.permission p ON p.id = gp.permissionid
		WHERE ag.accountid = $1
		ORDER BY g.codename, p.codename`

	rows, err := transaction.Query(context, query, accountID)
	if err != nil {
		return nil, fmt.Errorf("postgres_user_repo_member_groups_failed: %w", dberr.Wrap(err, "Group"))
	}
	defer rows.Close()

	return collectGroups(rows)
}

// collectGroups folds the flat (group, permission) join rows into Group
// entities. Rows arrive ordered by group code name so each group's rows are
// contiguous.
func collectGroups(rows pgx.Rows) ([]Group, error) {
	groups := []Group{}

	for rows.Next() {
		var (
			group          Group
			permissionID   *string
			permissionCode *string
			permissionName *string
		)

		err := rows.Scan(&group.ID, &group.CodeName, &group.Name, &permissionID, &permissionCode, &permissionName)
		if err != nil {
			return nil, fmt.Errorf("postgres_access_repo_group_scan_failed: %w", err)
		}

		if len(groups) == 0 || groups[len(groups)-1].ID != group.ID {
			group.Permissions = []Permission{}
			groups = append(groups, group)
		}

		if permissionID != nil {
			current := &groups[len(groups)-1]
			current.Permissions = append(current.Permissions, Permission{
				ID:       *permissionID,
				CodeName: *permissionCode,
				Name:     *permissionName,
			})
		}
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres_access_repo_group_rows_failed: %w", dberr.Wrap(err, "Group"))
	}

	return groups, nil
}

// # Access Repository

// PostgresAccessRepository implements [AccessRepository] using pgx.
type PostgresAccessRepository struct {
	pool *pgxpool.Pool
}

// NewAccessRepository creates a new PostgreSQL implementation of [AccessRepository].
func NewAccessRepository(pool *pgxpool.Pool) *PostgresAccessRepository {
	return &PostgresAccessRepository{pool: pool}
}

/*
CreatePermission persists a new permission definition.

Parameters:
  - context: context.Context
  - permission: *Permission

Returns:
  - error: apperr.Conflict on duplicate code name, or persistence failures
*/
func (repository *PostgresAccessRepository) CreatePermission(context context.Context, permission *Permission) error {
	const query = `
		INSERT INTO iam.permission (id, codename, name)
		VALUES ($1, $2, $3)`

	_, err := repository.pool.Exec(context, query, permission.ID, permission.CodeName, permission.Name)
	if err != nil {
		return fmt.Errorf("postgres_access_repo_create_permission_failed: %w", dberr.Wrap(err, "Permission"))
	}

	return nil
}

/*
CreateGroup persists a new group definition.

Parameters:
  - context: context.Context
  - group: *Group

Returns:
  - error: apperr.Conflict on duplicate code name, or persistence failures
*/
func (repository *PostgresAccessRepository) CreateGroup(context context.Context, group *Group) error {
	const query = `
		INSERT INTO iam.usergroup (id, codename, name)
		VALUES ($1, $2, $3)`

	_, err := repository.pool.Exec(context, query, group.ID, group.CodeName, group.Name)
	if err != nil {
		return fmt.Errorf("postgres_access_repo_create_group_failed: %w", dberr.Wrap(err, "Group"))
	}

	return nil
}

/*
ListPermissions returns every permission definition ordered by code name.

Parameters:
  - context: context.Context

Returns:
  - []Permission: All permission definitions
  - error: Database retrieval failures
*/
func (repository *PostgresAccessRepository) ListPermissions(context context.Context) ([]Permission, error) {
	const query = `
		SELECT id, codename, name
		FROM iam.permission
		ORDER BY codename`

	rows, err := repository.pool.Query(context, query)
	if err != nil {
		return nil, fmt.Errorf("postgres_access_repo_list_permissions_failed: %w", dberr.Wrap(err, "Permission"))
	}
	defer rows.Close()

	permissions := []Permission{}
	for rows.Next() {
		var permission Permission
		if err := rows.Scan(&permission.ID, &permission.CodeName, &permission.Name); err != nil {
			return nil, fmt.Errorf("postgres_access_repo_list_permissions_scan_failed: %w", err)
		}
		permissions = append(permissions, permission)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres_access_repo_list_permissions_rows_failed: %w", dberr.Wrap(err, "Permission"))
	}

	return permissions, nil
}

/*
ListGroups returns every group with its permissions hydrated.

Parameters:
  - context: context.Context

Returns:
  - []Group: All group definitions ordered by code name
  - error: Database retrieval failures
*/
func (repository *PostgresAccessRepository) ListGroups(context context.Context) ([]Group, error) {
	const query = `
		SELECT g.id, g.codename, g.name, p.id, p.codename, p.name
		FROM iam.usergroup g
		LEFT JOIN iam.usergroup_permission gp ON gp.groupid = g.id
		LEFT JOIN iam.permission p ON p.id = gp.permissionid
		ORDER BY g.codename, p.codename`

	rows, err := repository.pool.Query(context, query)
	if err != nil {
		return nil, fmt.Errorf("postgres_access_repo_list_groups_failed: %w", dberr.Wrap(err, "Group"))
	}
	defer rows.Close()

	return collectGroups(rows)
}

/*
GrantToUser links a permission directly to a user account.

Parameters:
  - context: context.Context
  - userID: string
  - permissionID: string

Returns:
  - error: apperr.NotFound when either side is absent, apperr.Conflict on a
    duplicate grant, or persistence failures
*/
func (repository *PostgresAccessRepository) GrantToUser(context context.Context, userID, permissionID string) error {
	const query = `
		INSERT INTO iam.account_permission (accountid, permissionid)
		VALUES ($1, $2)`

	_, err := repository.pool.Exec(context, query, userID, permissionID)
	if err != nil {
		return fmt.Errorf("postgres_access_repo_grant_to_user_failed: %w", dberr.Wrap(err, "Grant"))
	}

	return nil
}

/*
GrantToGroup links a permission to a group.

Parameters:
  - context: context.Context
  - groupID: string
  - permissionID: string

Returns:
  - error: apperr.NotFound when either side is absent, apperr.Conflict on a
    duplicate grant, or persistence failures
*/
func (repository *PostgresAccessRepository) GrantToGroup(context context.Context, groupID, permissionID string) error {
	const query = `
		INSERT INTO iam.usergroup_permission (groupid, permissionid)
		VALUES ($1, $2)`

	_, err := repository.pool.Exec(context, query, groupID, permissionID)
	if err != nil {
		return fmt.Errorf("postgres_access_repo_grant_to_group_failed: %w", dberr.Wrap(err, "Grant"))
	}

	return nil
}

/*
AddMember links a user account to a group.

Parameters:
  - context: context.Context
  - groupID: string
  - userID: string

Returns:
  - error: apperr.NotFound when either side is absent, apperr.Conflict on a
    duplicate membership, or persistence failures
*/
func (repository *PostgresAccessRepository) AddMember(context context.Context, groupID, userID string) error {
	const query = `
		INSERT INTO iam.account_usergroup (accountid, groupid)
		VALUES ($1, $2)`

	_, err := repository.pool.Exec(context, query, userID, groupID)
	if err != nil {
		return fmt.Errorf("postgres_access_repo_add_member_failed: %w", dberr.Wrap(err, "Membership"))
	}

	return nil
}

var _ UserRepository = (*PostgresUserRepository)(nil)
var _ AccessRepository = (*PostgresAccessRepository)(nil)
