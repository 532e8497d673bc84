// Copyright (c) 2026 Plumeria. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package auth implements the session gateway for Plumeria.

It sits in front of the account domain and owns everything session-shaped:
credential verification, access-token issuance, and refresh-token rotation
backed by Redis.

# Architecture

  - Service: Orchestrates login, logout, and session rotation.
  - SessionRepository: Volatile session store contract (Redis).
  - Account lifecycle operations (registration, confirmation, recovery)
    live in the account package; this package only fronts them over HTTP.

# Security

Refresh tokens are high-entropy random strings. Only their SHA-256 hash is
stored, with a TTL, so neither a database dump nor a Redis dump yields a
usable credential. Rotation revokes the presented token before a new one
is issued.
*/
package auth

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/taibuivan/plumeria/internal/platform/apperr"
	"github.com/taibuivan/plumeria/internal/platform/sec"
	"github.com/taibuivan/plumeria/internal/users/account"
)

// # Contracts

// SessionRepository defines the volatile store for refresh sessions.
//
// Keys are token hashes, values the owning account ID. Expiry is enforced
// by the store's TTL, not by application code.
type SessionRepository interface {
	// Save stores a session under the token hash with the given lifetime.
	Save(ctx context.Context, tokenHash, accountID string, ttl time.Duration) error

	// Find resolves a token hash to the owning account ID.
	// Returns apperr.NotFound for unknown or expired sessions.
	Find(ctx context.Context, tokenHash string) (string, error)

	// Delete removes a session. Deleting an absent session is not an error.
	Delete(ctx context.Context, tokenHash string) error
}

// # Service Layer

// Service implements the session gateway use cases.
//
// # Review Process
//
// This service is critical for security. Any changes to credential checks
// or rotation logic must be reviewed carefully.
type Service struct {
	accounts *account.Service
	sessions SessionRepository
	codec    *sec.Codec
	logger   *slog.Logger
}

// NewService constructs a new session gateway [Service].
func NewService(accounts *account.Service, sessions SessionRepository, codec *sec.Codec, logger *slog.Logger) *Service {
	return &Service{
		accounts: accounts,
		sessions: sessions,
		codec:    codec,
		logger:   logger,
	}
}

// # Authentication Flow

// LoginInput defines credentials for an authentication attempt.
type LoginInput struct {
	Email    string
	Password string
}

// LoginSession represents a successfully established session.
type LoginSession struct {
	AccessToken           string
	RefreshToken          string
	RefreshTokenExpiresAt time.Time
	Account               *account.Account
}

/*
Login validates credentials and issues a token pair.

Description: Looks the account up by email, verifies the password with a
constant-time bcrypt comparison, and establishes a refresh session. Unknown
email and wrong password produce the same generic error to prevent account
enumeration.

Parameters:
  - ctx: context.Context
  - input: LoginInput

Returns:
  - *LoginSession: Transport-ready session credentials
  - error: apperr.Unauthorized or internal failures
*/
func (service *Service) Login(ctx context.Context, input LoginInput) (*LoginSession, error) {
	acct, err := service.accounts.GetByEmail(ctx, input.Email)
	if err != nil {
		return nil, apperr.Unauthorized("Invalid login credentials")
	}

	if !acct.VerifyPassword(input.Password) {
		return nil, apperr.Unauthorized("Invalid login credentials")
	}

	session, err := service.establishSession(ctx, acct)
	if err != nil {
		return nil, err
	}

	service.logger.Info("session_established", slog.String("account_id", acct.ID))
	return session, nil
}

/*
Logout revokes the refresh session for the presented token.

Description: Idempotent — an unknown or already-expired token is treated as
a successful logout.

Parameters:
  - ctx: context.Context
  - refreshToken: string

Returns:
  - error: Store failures only
*/
func (service *Service) Logout(ctx context.Context, refreshToken string) error {
	if err := service.sessions.Delete(ctx, sec.HashToken(refreshToken)); err != nil {
		return fmt.Errorf("auth_service_logout_failed: %w", err)
	}
	return nil
}

// # Session Rotation

/*
Refresh implements the refresh-token rotation mechanism.

Description: Resolves the presented token's hash to its account, revokes it
so it can never be replayed, and issues a fresh token pair.

Parameters:
  - ctx: context.Context
  - refreshToken: string

Returns:
  - *LoginSession: New session credentials
  - error: apperr.Unauthorized or storage failures
*/
func (service *Service) Refresh(ctx context.Context, refreshToken string) (*LoginSession, error) {
	tokenHash := sec.HashToken(refreshToken)

	accountID, err := service.sessions.Find(ctx, tokenHash)
	if err != nil {
		return nil, apperr.Unauthorized("Invalid or expired refresh token")
	}

	// Rotation: revoke before reissuing to prevent replay.
	if err := service.sessions.Delete(ctx, tokenHash); err != nil {
		return nil, fmt.Errorf("auth_service_refresh_revoke_failed: %w", err)
	}

	acct, err := service.accounts.GetByID(ctx, accountID)
	if err != nil {
		return nil, apperr.Unauthorized("Account not found")
	}

	return service.establishSession(ctx, acct)
}

// establishSession issues an access/refresh pair and persists the session.
func (service *Service) establishSession(ctx context.Context, acct *account.Account) (*LoginSession, error) {
	accessToken, err := service.codec.GenerateAccessToken(acct.ID, acct.Username, acct.RoleName, AccessTokenTTL)
	if err != nil {
		return nil, fmt.Errorf("auth_service_access_token_failed: %w", err)
	}

	refreshToken, err := sec.GenerateSecureToken(RefreshTokenLength)
	if err != nil {
		return nil, fmt.Errorf("auth_service_refresh_token_failed: %w", err)
	}

	expiresAt := time.Now().Add(RefreshTokenTTL)
	if err := service.sessions.Save(ctx, sec.HashToken(refreshToken), acct.ID, RefreshTokenTTL); err != nil {
		return nil, fmt.Errorf("auth_service_session_save_failed: %w", err)
	}

	return &LoginSession{
		AccessToken:           accessToken,
		RefreshToken:          refreshToken,
		RefreshTokenExpiresAt: expiresAt,
		Account:               acct,
	}, nil
}
