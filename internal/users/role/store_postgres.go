// Copyright (c) 2026 Plumeria. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package role

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/taibuivan/plumeria/internal/platform/apperr"
)

// # Repository Implementation

// PostgresRepository implements [Repository] using pgx.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository creates a new Postgres implementation of the role catalog store.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

/*
Upsert reconciles a catalog entry in the users.role table by name.

Description: Inserting a new name creates the role; re-seeding an existing
name overwrites its capability mask and default flag, keeping startup
seeding idempotent.

Parameters:
  - context: context.Context
  - r: *Role (ID is populated on return)

Returns:
  - error: Execution failures
*/
func (repository *PostgresRepository) Upsert(context context.Context, r *Role) error {
	query := `
		INSERT INTO users.role (name, permissions, isdefault)
		VALUES ($1, $2, $3)
		ON CONFLICT (name) DO UPDATE
		SET permissions = EXCLUDED.permissions, isdefault = EXCLUDED.isdefault
		RETURNING id`

	err := repository.pool.QueryRow(context, query, r.Name, r.Permissions, r.IsDefault).Scan(&r.ID)
	if err != nil {
		return fmt.Errorf("postgres_role_repo_upsert_failed: %w", err)
	}

	return nil
}

/*
FindByName retrieves a role by its unique name.

Parameters:
  - context: context.Context
  - name: string

Returns:
  - *Role: Hydrated catalog entry
  - error: apperr.NotFound or database execution failure
*/
func (repository *PostgresRepository) FindByName(context context.Context, name string) (*Role, error) {
	query := `
		SELECT id, name, permissions, isdefault
		FROM users.role
		WHERE name = $1`

	r := &Role{}
	err := repository.pool.QueryRow(context, query, name).Scan(&r.ID, &r.Name, &r.Permissions, &r.IsDefault)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("Role")
		}
		return nil, fmt.Errorf("postgres_role_repo_find_by_name_failed: %w", err)
	}

	return r, nil
}

/*
FindDefault retrieves the role assigned to newly registered accounts.

Parameters:
  - context: context.Context

Returns:
  - *Role: The catalog entry flagged as default
  - error: apperr.NotFound when the catalog was never seeded
*/
func (repository *PostgresRepository) FindDefault(context context.Context) (*Role, error) {
	query := `
		SELECT id, name, permissions, isdefault
		FROM users.role
		WHERE isdefault = TRUE
		LIMIT 1`

	r := &Role{}
	err := repository.pool.QueryRow(context, query).Scan(&r.ID, &r.Name, &r.Permissions, &r.IsDefault)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("Default role")
		}
		return nil, fmt.Errorf("postgres_role_repo_find_default_failed: %w", err)
	}

	return r, nil
}

/*
List returns the full catalog ordered by name.

Parameters:
  - context: context.Context

Returns:
  - []Role: Every seeded catalog entry
  - error: Execution failures
*/
func (repository *PostgresRepository) List(context context.Context) ([]Role, error) {
	query := `
		SELECT id, name, permissions, isdefault
		FROM users.role
		ORDER BY name`

	rows, err := repository.pool.Query(context, query)
	if err != nil {
		return nil, fmt.Errorf("postgres_role_repo_list_failed: %w", err)
	}
	defer rows.Close()

	var roles []Role
	for rows.Next() {
		var r Role
		if err := rows.Scan(&r.ID, &r.Name, &r.Permissions, &r.IsDefault); err != nil {
			return nil, fmt.Errorf("postgres_role_repo_list_scan_failed: %w", err)
		}
		roles = append(roles, r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres_role_repo_list_rows_failed: %w", err)
	}

	return roles, nil
}
