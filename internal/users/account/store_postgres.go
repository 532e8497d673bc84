// Copyright (c) 2026 Plumeria. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package account (Postgres) implements the storage layer for member identity.

# Schema Table Mapping
  - users.account: Master identity, credentials, and profile data.
  - users.role: Joined on every read to hydrate the capability mask.

# Constraint Contract

The unique constraints account_email_key and account_username_key are part
of the repository contract: the service layer attributes conflicts by
constraint name, so violations are returned unwrapped.
*/
package account

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/taibuivan/plumeria/internal/platform/apperr"
	"github.com/taibuivan/plumeria/internal/platform/dberr"
)

// accountColumns is the SELECT list shared by every lookup, joining the
// role catalog for the name and capability mask.
const accountColumns = `
	a.id, a.email, a.username, a.password, a.confirmed,
	a.roleid, r.name, r.permissions,
	a.displayname, a.location, a.bio, a.membersince, a.lastseen`

// # Repository Implementation

// PostgresRepository implements [Repository] using pgx.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository creates a new Postgres implementation of the account store.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

/*
FindByID retrieves an account by UUID, hydrated with its role.

Parameters:
  - context: context.Context
  - id: string (UUID)

Returns:
  - *Account: Hydrated identity entity
  - error: apperr.NotFound or database execution failure
*/
func (repository *PostgresRepository) FindByID(context context.Context, id string) (*Account, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM users.account a
		JOIN users.role r ON r.id = a.roleid
		WHERE a.id = $1`, accountColumns)

	return repository.scanOne(repository.pool.QueryRow(context, query, id))
}

/*
FindByEmail retrieves an account by canonical email.

Parameters:
  - context: context.Context
  - email: string (already normalized by the service layer)

Returns:
  - *Account: Hydrated identity entity
  - error: apperr.NotFound or database execution failure
*/
func (repository *PostgresRepository) FindByEmail(context context.Context, email string) (*Account, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM users.account a
		JOIN users.role r ON r.id = a.roleid
		WHERE a.email = $1`, accountColumns)

	return repository.scanOne(repository.pool.QueryRow(context, query, email))
}

/*
FindByUsername retrieves an account by its unique username.

Parameters:
  - context: context.Context
  - username: string

Returns:
  - *Account: Hydrated identity entity
  - error: apperr.NotFound or database execution failure
*/
func (repository *PostgresRepository) FindByUsername(context context.Context, username string) (*Account, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM users.account a
		JOIN users.role r ON r.id = a.roleid
		WHERE a.username = $1`, accountColumns)

	return repository.scanOne(repository.pool.QueryRow(context, query, username))
}

/*
Create persists a new account in a single INSERT.

Description: Unique violations are returned unwrapped so the service can
attribute the conflict to email or username by constraint name.

Parameters:
  - context: context.Context
  - account: *Account (fully populated by the service)

Returns:
  - error: Raw unique violations or wrapped execution failures
*/
func (repository *PostgresRepository) Create(context context.Context, account *Account) error {
	query := `
		INSERT INTO users.account
			(id, email, username, password, confirmed, roleid,
			 displayname, location, bio, membersince, lastseen)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

	_, err := repository.pool.Exec(context, query,
		account.ID,
		account.Email,
		account.Username,
		account.PasswordHash,
		account.Confirmed,
		account.RoleID,
		account.DisplayName,
		account.Location,
		account.Bio,
		account.MemberSince,
		account.LastSeen,
	)

	if err != nil {
		if dberr.IsUniqueViolation(err) {
			return err
		}
		return fmt.Errorf("postgres_account_repo_create_failed: %w", err)
	}

	return nil
}

/*
Update persists the mutable identity and profile fields in a single UPDATE.

Parameters:
  - context: context.Context
  - account: *Account (hydrated entity with changes)

Returns:
  - error: Raw unique violations or wrapped execution failures
*/
func (repository *PostgresRepository) Update(context context.Context, account *Account) error {
	query := `
		UPDATE users.account
		SET email = $2, username = $3, confirmed = $4, roleid = $5,
		    displayname = $6, location = $7, bio = $8
		WHERE id = $1`

	_, err := repository.pool.Exec(context, query,
		account.ID,
		account.Email,
		account.Username,
		account.Confirmed,
		account.RoleID,
		account.DisplayName,
		account.Location,
		account.Bio,
	)

	if err != nil {
		if dberr.IsUniqueViolation(err) {
			return err
		}
		return fmt.Errorf("postgres_account_repo_update_failed: %w", err)
	}

	return nil
}

/*
UpdatePassword replaces the stored bcrypt hash.

Parameters:
  - context: context.Context
  - id: string
  - passwordHash: string

Returns:
  - error: Execution failures
*/
func (repository *PostgresRepository) UpdatePassword(context context.Context, id, passwordHash string) error {
	query := `UPDATE users.account SET password = $2 WHERE id = $1`

	_, err := repository.pool.Exec(context, query, id, passwordHash)
	if err != nil {
		return fmt.Errorf("postgres_account_repo_update_password_failed: %w", err)
	}

	return nil
}

/*
MarkConfirmed flips the confirmed flag. Re-confirming is a no-op UPDATE.

Parameters:
  - context: context.Context
  - id: string

Returns:
  - error: Execution failures
*/
func (repository *PostgresRepository) MarkConfirmed(context context.Context, id string) error {
	query := `UPDATE users.account SET confirmed = TRUE WHERE id = $1`

	_, err := repository.pool.Exec(context, query, id)
	if err != nil {
		return fmt.Errorf("postgres_account_repo_mark_confirmed_failed: %w", err)
	}

	return nil
}

/*
UpdateLastSeen bumps the activity timestamp.

Description: GREATEST keeps the column monotonic even if requests land
out of order across pool connections.

Parameters:
  - context: context.Context
  - id: string
  - at: time.Time

Returns:
  - error: Execution failures
*/
func (repository *PostgresRepository) UpdateLastSeen(context context.Context, id string, at time.Time) error {
	query := `UPDATE users.account SET lastseen = GREATEST(lastseen, $2) WHERE id = $1`

	_, err := repository.pool.Exec(context, query, id, at)
	if err != nil {
		return fmt.Errorf("postgres_account_repo_update_last_seen_failed: %w", err)
	}

	return nil
}

// scanOne hydrates a single account row.
func (repository *PostgresRepository) scanOne(row pgx.Row) (*Account, error) {
	account := &Account{}
	err := row.Scan(
		&account.ID,
		&account.Email,
		&account.Username,
		&account.PasswordHash,
		&account.Confirmed,
		&account.RoleID,
		&account.RoleName,
		&account.Permissions,
		&account.DisplayName,
		&account.Location,
		&account.Bio,
		&account.MemberSince,
		&account.LastSeen,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("Account")
		}
		return nil, fmt.Errorf("postgres_account_repo_scan_failed: %w", err)
	}

	return account, nil
}
