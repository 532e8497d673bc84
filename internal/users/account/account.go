// Copyright (c) 2026 Plumeria. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package account implements the member identity domain for Plumeria.

It owns the full account lifecycle: registration, email confirmation,
password management, recovery, profile editing, and activity tracking.

# Architecture

  - Account: the persisted identity entity, hydrated with its role.
  - Service: business orchestration (registration rules, token flows).
  - Repository: the persistence contract, implemented on PostgreSQL.

# Security

Passwords are stored as bcrypt hashes only. Confirmation and reset tokens
are stateless signed tokens issued by the platform sec.Codec; this package
never persists them.
*/
package account

import (
	"context"
	"crypto/md5"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/taibuivan/plumeria/internal/platform/sec"
	"github.com/taibuivan/plumeria/internal/users/role"
)

// # Domain Entity

// Account represents a registered member, including the role it was
// hydrated with at load time.
type Account struct {
	ID           string          `json:"id"`
	Email        string          `json:"email"`
	Username     string          `json:"username"`
	PasswordHash string          `json:"-"`
	Confirmed    bool            `json:"confirmed"`
	RoleID       int             `json:"-"`
	RoleName     string          `json:"role"`
	Permissions  role.Permission `json:"-"`
	DisplayName  string          `json:"display_name"`
	Location     string          `json:"location"`
	Bio          string          `json:"bio"`
	MemberSince  time.Time       `json:"member_since"`
	LastSeen     time.Time       `json:"last_seen"`
}

// Anonymous returns the account representing an unauthenticated visitor.
// It holds no capabilities and never matches a stored row.
func Anonymous() *Account {
	return &Account{RoleName: "Anonymous"}
}

// VerifyPassword checks a plaintext candidate against the stored hash.
func (a *Account) VerifyPassword(plaintext string) bool {
	return sec.CheckPasswordHash(plaintext, a.PasswordHash)
}

// Can reports whether the account's role grants the given capability.
// A nil or anonymous account holds no capabilities.
func (a *Account) Can(perm role.Permission) bool {
	if a == nil {
		return false
	}
	return a.Permissions&perm == perm
}

// IsAdministrator reports whether the account holds the Administer capability.
func (a *Account) IsAdministrator() bool {
	return a.Can(role.PermAdminister)
}

/*
Gravatar builds the avatar URL for the account's email.

Description: The hash is the hex MD5 of the canonical (lower-cased, trimmed)
email address, served over the secure Gravatar endpoint with explicit size,
default-image style, and content rating.

Parameters:
  - size: int (pixel edge, e.g. 256)
  - defaultStyle: string (fallback generator, e.g. "retro", "identicon")
  - rating: string (maximum content rating, e.g. "g", "pg")

Returns:
  - string: Fully qualified avatar URL
*/
func (a *Account) Gravatar(size int, defaultStyle, rating string) string {
	hash := md5.Sum([]byte(NormalizeEmail(a.Email)))

	params := url.Values{}
	params.Set("s", fmt.Sprintf("%d", size))
	params.Set("d", defaultStyle)
	params.Set("r", rating)

	return fmt.Sprintf("https://secure.gravatar.com/avatar/%x?%s", hash, params.Encode())
}

// NormalizeEmail canonicalizes an email address for storage and comparison.
// Every email entering the domain passes through here exactly once per hop.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// # Repository Contract

/*
Repository defines the persistence operations for member accounts.

Lookups return the entity hydrated with its role name and capability mask.
Not-found conditions surface as apperr.NotFound.
*/
type Repository interface {
	// FindByID retrieves an account by its UUID.
	FindByID(ctx context.Context, id string) (*Account, error)

	// FindByEmail retrieves an account by canonical email.
	FindByEmail(ctx context.Context, email string) (*Account, error)

	// FindByUsername retrieves an account by its unique username.
	FindByUsername(ctx context.Context, username string) (*Account, error)

	// Create persists a new account in a single statement. Unique-constraint
	// violations surface unwrapped so the service can attribute the field.
	Create(ctx context.Context, a *Account) error

	// Update persists the mutable identity fields (email, username,
	// confirmed flag, role, profile). Unique violations surface unwrapped.
	Update(ctx context.Context, a *Account) error

	// UpdatePassword replaces the stored password hash.
	UpdatePassword(ctx context.Context, id, passwordHash string) error

	// MarkConfirmed sets the confirmed flag. Idempotent.
	MarkConfirmed(ctx context.Context, id string) error

	// UpdateLastSeen bumps the activity timestamp.
	UpdateLastSeen(ctx context.Context, id string, at time.Time) error
}
