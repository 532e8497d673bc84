// Copyright (c) 2026 Plumeria. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package account

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/taibuivan/plumeria/internal/platform/apperr"
	"github.com/taibuivan/plumeria/internal/platform/dberr"
	"github.com/taibuivan/plumeria/internal/platform/mail"
	"github.com/taibuivan/plumeria/internal/platform/sec"
	"github.com/taibuivan/plumeria/internal/users/role"
	"github.com/taibuivan/plumeria/pkg/uuid"
)

// # Domain Errors

// Duplicate-identity errors carry field attribution so clients can highlight
// the offending input. They are singletons: services return these exact
// values, and callers may compare with errors.Is.
var (
	// ErrDuplicateEmail signals the email is already registered.
	ErrDuplicateEmail = apperr.ConflictField("email", "Email is already registered")

	// ErrDuplicateUsername signals the username is already taken.
	ErrDuplicateUsername = apperr.ConflictField("username", "Username is already taken")

	// ErrInvalidPassword signals the supplied current password did not match.
	ErrInvalidPassword = apperr.Unauthorized("Current password is incorrect")
)

// Named constraints from the account migration. The service attributes a
// unique violation to a field through these, never by parsing error text.
const (
	constraintEmail    = "account_email_key"
	constraintUsername = "account_username_key"
)

// # Service Layer

/*
Service orchestrates business logic for member accounts.

It enforces:
  - Canonical email normalization before every compare and store.
  - Role assignment rules at registration (bootstrap administrator).
  - The confirmation and recovery token flows, collapsing all token
    failures to a boolean outcome so handlers cannot leak the reason.
*/
type Service struct {
	repo    Repository
	catalog *role.Catalog
	codec   *sec.Codec
	mailer  mail.Mailer
	logger  *slog.Logger

	adminEmail string
	confirmTTL time.Duration
	resetTTL   time.Duration
}

// NewService constructs a new account [Service].
//
// adminEmail may be empty, in which case no registration receives the
// Administrator role automatically.
func NewService(
	repo Repository,
	catalog *role.Catalog,
	codec *sec.Codec,
	mailer mail.Mailer,
	logger *slog.Logger,
	adminEmail string,
	confirmTTL, resetTTL time.Duration,
) *Service {
	return &Service{
		repo:       repo,
		catalog:    catalog,
		codec:      codec,
		mailer:     mailer,
		logger:     logger,
		adminEmail: NormalizeEmail(adminEmail),
		confirmTTL: confirmTTL,
		resetTTL:   resetTTL,
	}
}

// # Registration

// RegisterInput carries the fields required to create an account.
type RegisterInput struct {
	Email    string
	Username string
	Password string
}

/*
Register creates a new member account.

Description: The email is normalized, the password hashed immediately, and
the role resolved: the configured bootstrap administrator address receives
Administrator, everyone else the catalog default. Duplicate identities are
pre-checked by lookup as an optimization, but the database unique
constraints remain authoritative under concurrent registration — a
constraint violation maps to the same field-attributed error.

A confirmation token is issued and emailed after the row is committed;
mail delivery failures are logged and never fail the registration.

Parameters:
  - ctx: context.Context
  - input: RegisterInput

Returns:
  - *Account: The created account
  - error: ErrDuplicateEmail, ErrDuplicateUsername, or storage failures
*/
func (service *Service) Register(ctx context.Context, input RegisterInput) (*Account, error) {
	email := NormalizeEmail(input.Email)

	// ── 1. Duplicate Pre-Check (optimization only) ────────────────────────
	if _, err := service.repo.FindByEmail(ctx, email); err == nil {
		return nil, ErrDuplicateEmail
	}
	if _, err := service.repo.FindByUsername(ctx, input.Username); err == nil {
		return nil, ErrDuplicateUsername
	}

	// ── 2. Credential Hashing ─────────────────────────────────────────────
	passwordHash, err := sec.HashPassword(input.Password)
	if err != nil {
		return nil, fmt.Errorf("account_service_register_hash_failed: %w", err)
	}

	// ── 3. Role Resolution ────────────────────────────────────────────────
	assignedRole, err := service.resolveRegistrationRole(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("account_service_register_role_failed: %w", err)
	}

	// ── 4. Persistence (single INSERT, constraints authoritative) ─────────
	now := time.Now()
	account := &Account{
		ID:           uuid.New(),
		Email:        email,
		Username:     input.Username,
		PasswordHash: passwordHash,
		Confirmed:    false,
		RoleID:       assignedRole.ID,
		RoleName:     assignedRole.Name,
		Permissions:  assignedRole.Permissions,
		MemberSince:  now,
		LastSeen:     now,
	}

	if err := service.repo.Create(ctx, account); err != nil {
		return nil, service.mapIdentityConflict(err)
	}

	service.logger.Info("account_registered",
		slog.String("account_id", account.ID),
		slog.String("role", account.RoleName),
	)

	// ── 5. Confirmation Email (fire-and-forget) ───────────────────────────
	service.sendConfirmation(ctx, account)

	return account, nil
}

// resolveRegistrationRole picks the role for a fresh registration.
func (service *Service) resolveRegistrationRole(ctx context.Context, email string) (*role.Role, error) {
	if service.adminEmail != "" && email == service.adminEmail {
		return service.catalog.ByName(ctx, role.NameAdministrator)
	}
	return service.catalog.DefaultRole(ctx)
}

// mapIdentityConflict attributes a unique violation to the email or username
// field; anything else is wrapped generically.
func (service *Service) mapIdentityConflict(err error) error {
	switch dberr.UniqueConstraint(err) {
	case constraintEmail:
		return ErrDuplicateEmail
	case constraintUsername:
		return ErrDuplicateUsername
	default:
		return dberr.Wrap(err)
	}
}

// # Lookups

// GetByID retrieves an account by its UUID.
func (service *Service) GetByID(ctx context.Context, id string) (*Account, error) {
	return service.repo.FindByID(ctx, id)
}

// GetByEmail retrieves an account by email, normalized first.
func (service *Service) GetByEmail(ctx context.Context, email string) (*Account, error) {
	return service.repo.FindByEmail(ctx, NormalizeEmail(email))
}

// GetByUsername retrieves an account by username for the public member page.
func (service *Service) GetByUsername(ctx context.Context, username string) (*Account, error) {
	return service.repo.FindByUsername(ctx, username)
}

// # Password Management

/*
ChangePassword replaces an account's password after verifying the current one.

Parameters:
  - ctx: context.Context
  - accountID: string
  - oldPassword: string
  - newPassword: string

Returns:
  - error: ErrInvalidPassword when oldPassword does not match, or storage failures
*/
func (service *Service) ChangePassword(ctx context.Context, accountID, oldPassword, newPassword string) error {
	account, err := service.repo.FindByID(ctx, accountID)
	if err != nil {
		return fmt.Errorf("account_service_change_password_lookup_failed: %w", err)
	}

	if !account.VerifyPassword(oldPassword) {
		return ErrInvalidPassword
	}

	passwordHash, err := sec.HashPassword(newPassword)
	if err != nil {
		return fmt.Errorf("account_service_change_password_hash_failed: %w", err)
	}

	if err := service.repo.UpdatePassword(ctx, accountID, passwordHash); err != nil {
		return fmt.Errorf("account_service_change_password_failed: %w", err)
	}

	service.logger.Info("account_password_changed", slog.String("account_id", accountID))
	return nil
}

// # Email Confirmation

// GenerateConfirmationToken issues a fresh confirmation token for the account.
func (service *Service) GenerateConfirmationToken(account *Account, ttl time.Duration) (string, error) {
	return service.codec.Issue(account.ID, sec.PurposeConfirm, ttl)
}

/*
Confirm marks the account as confirmed if the token is valid for it.

Description: The token must carry the confirm purpose and be bound to this
exact account — a token issued for another member fails. Every failure
(tampered, expired, wrong purpose, wrong account, storage) collapses to
false: the caller learns the outcome, the log records the reason. Confirming
an already-confirmed account is a harmless no-op returning true.

Parameters:
  - ctx: context.Context
  - account: *Account (the member attempting confirmation)
  - token: string

Returns:
  - bool: true when the account is confirmed after the call
*/
func (service *Service) Confirm(ctx context.Context, account *Account, token string) bool {
	if account.Confirmed {
		return true
	}

	if _, err := service.codec.Consume(token, sec.PurposeConfirm, account.ID); err != nil {
		service.logger.Warn("account_confirmation_rejected",
			slog.String("account_id", account.ID),
			slog.String("reason", err.Error()),
		)
		return false
	}

	if err := service.repo.MarkConfirmed(ctx, account.ID); err != nil {
		service.logger.Error("account_confirmation_persist_failed",
			slog.String("account_id", account.ID),
			slog.String("error", err.Error()),
		)
		return false
	}

	account.Confirmed = true
	service.logger.Info("account_confirmed", slog.String("account_id", account.ID))
	return true
}

// ResendConfirmation issues and emails a fresh confirmation token.
// Already-confirmed accounts are a no-op.
func (service *Service) ResendConfirmation(ctx context.Context, accountID string) error {
	account, err := service.repo.FindByID(ctx, accountID)
	if err != nil {
		return fmt.Errorf("account_service_resend_confirmation_failed: %w", err)
	}

	if account.Confirmed {
		return nil
	}

	service.sendConfirmation(ctx, account)
	return nil
}

// sendConfirmation issues a confirm token and hands it to the mailer.
// Failures are logged, never surfaced: account state is already committed.
func (service *Service) sendConfirmation(ctx context.Context, account *Account) {
	token, err := service.GenerateConfirmationToken(account, service.confirmTTL)
	if err != nil {
		service.logger.Error("confirmation_token_issue_failed",
			slog.String("account_id", account.ID),
			slog.String("error", err.Error()),
		)
		return
	}

	if err := service.mailer.SendConfirmation(ctx, account.Email, token); err != nil {
		service.logger.Error("confirmation_mail_failed",
			slog.String("account_id", account.ID),
			slog.String("error", err.Error()),
		)
	}
}

// # Password Recovery

// GenerateResetToken issues a fresh password-reset token for the account.
func (service *Service) GenerateResetToken(account *Account, ttl time.Duration) (string, error) {
	return service.codec.Issue(account.ID, sec.PurposeReset, ttl)
}

/*
RequestPasswordReset issues and emails a reset token for the given email.

Description: Unknown addresses are silently ignored so the endpoint cannot
be used to enumerate registered emails. The outcome is identical either way.

Parameters:
  - ctx: context.Context
  - email: string (normalized internally)

Returns:
  - error: Token signing failures only; unknown email is not an error
*/
func (service *Service) RequestPasswordReset(ctx context.Context, email string) error {
	account, err := service.repo.FindByEmail(ctx, NormalizeEmail(email))
	if err != nil {
		service.logger.Info("password_reset_requested_for_unknown_email")
		return nil
	}

	token, err := service.GenerateResetToken(account, service.resetTTL)
	if err != nil {
		return fmt.Errorf("account_service_reset_token_issue_failed: %w", err)
	}

	if err := service.mailer.SendPasswordReset(ctx, account.Email, token); err != nil {
		service.logger.Error("reset_mail_failed",
			slog.String("account_id", account.ID),
			slog.String("error", err.Error()),
		)
	}

	return nil
}

/*
ResetPassword sets a new password for the account a reset token identifies.

Description: The token alone selects the account; no prior authentication is
required. Any failure — tampered or expired token, wrong purpose, unknown
account, storage error — collapses to false and leaves the stored password
hash untouched, so the old credential keeps working.

Parameters:
  - ctx: context.Context
  - token: string
  - newPassword: string

Returns:
  - bool: true when the password was replaced
*/
func (service *Service) ResetPassword(ctx context.Context, token, newPassword string) bool {
	accountID, err := service.codec.Consume(token, sec.PurposeReset, "")
	if err != nil {
		service.logger.Warn("password_reset_rejected", slog.String("reason", err.Error()))
		return false
	}

	account, err := service.repo.FindByID(ctx, accountID)
	if err != nil {
		service.logger.Warn("password_reset_for_unknown_account",
			slog.String("account_id", accountID),
		)
		return false
	}

	passwordHash, err := sec.HashPassword(newPassword)
	if err != nil {
		service.logger.Error("password_reset_hash_failed", slog.String("error", err.Error()))
		return false
	}

	if err := service.repo.UpdatePassword(ctx, account.ID, passwordHash); err != nil {
		service.logger.Error("password_reset_persist_failed",
			slog.String("account_id", account.ID),
			slog.String("error", err.Error()),
		)
		return false
	}

	service.logger.Info("account_password_reset", slog.String("account_id", account.ID))
	return true
}

// # Email Change

/*
ChangeEmail moves the account to a new address after re-authentication.

Description: Requires the current password. The new address is normalized
and must be unique. A successful change resets the confirmed flag and
triggers a fresh confirmation email to the new address.

Parameters:
  - ctx: context.Context
  - accountID: string
  - password: string (current password)
  - newEmail: string

Returns:
  - *Account: The updated account
  - error: ErrInvalidPassword, ErrDuplicateEmail, or storage failures
*/
func (service *Service) ChangeEmail(ctx context.Context, accountID, password, newEmail string) (*Account, error) {
	account, err := service.repo.FindByID(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("account_service_change_email_lookup_failed: %w", err)
	}

	if !account.VerifyPassword(password) {
		return nil, ErrInvalidPassword
	}

	email := NormalizeEmail(newEmail)
	if email == account.Email {
		return account, nil
	}

	account.Email = email
	account.Confirmed = false

	if err := service.repo.Update(ctx, account); err != nil {
		return nil, service.mapIdentityConflict(err)
	}

	service.logger.Info("account_email_changed", slog.String("account_id", account.ID))
	service.sendConfirmation(ctx, account)

	return account, nil
}

// # Profile Management

// UpdateProfileInput defines the self-editable profile fields.
// Nil pointers leave the current value untouched.
type UpdateProfileInput struct {
	DisplayName *string
	Location    *string
	Bio         *string
}

/*
UpdateProfile applies a partial profile edit to the member's own account.

Parameters:
  - ctx: context.Context
  - accountID: string
  - input: UpdateProfileInput

Returns:
  - *Account: The updated account
  - error: Lookup or storage failures
*/
func (service *Service) UpdateProfile(ctx context.Context, accountID string, input UpdateProfileInput) (*Account, error) {
	account, err := service.repo.FindByID(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("account_service_update_profile_lookup_failed: %w", err)
	}

	if input.DisplayName != nil {
		account.DisplayName = *input.DisplayName
	}
	if input.Location != nil {
		account.Location = *input.Location
	}
	if input.Bio != nil {
		account.Bio = *input.Bio
	}

	if err := service.repo.Update(ctx, account); err != nil {
		return nil, fmt.Errorf("account_service_update_profile_failed: %w", err)
	}

	service.logger.Info("account_profile_updated", slog.String("account_id", accountID))
	return account, nil
}

// AdminUpdateInput defines the fields an administrator may edit on any
// account. It is a superset of [UpdateProfileInput].
type AdminUpdateInput struct {
	Email       *string
	Username    *string
	Confirmed   *bool
	RoleName    *string
	DisplayName *string
	Location    *string
	Bio         *string
}

/*
AdminUpdateProfile applies an administrative edit to any account.

Description: In addition to the profile fields, an administrator may change
the email (normalized, uniqueness enforced), username, confirmed flag, and
role. The role name must exist in the catalog.

Parameters:
  - ctx: context.Context
  - accountID: string (the account being edited)
  - input: AdminUpdateInput

Returns:
  - *Account: The updated account
  - error: ErrDuplicateEmail/ErrDuplicateUsername, apperr.NotFound for an
    unknown role, or storage failures
*/
func (service *Service) AdminUpdateProfile(ctx context.Context, accountID string, input AdminUpdateInput) (*Account, error) {
	account, err := service.repo.FindByID(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("account_service_admin_update_lookup_failed: %w", err)
	}

	if input.Email != nil {
		account.Email = NormalizeEmail(*input.Email)
	}
	if input.Username != nil {
		account.Username = *input.Username
	}
	if input.Confirmed != nil {
		account.Confirmed = *input.Confirmed
	}
	if input.RoleName != nil {
		newRole, err := service.catalog.ByName(ctx, *input.RoleName)
		if err != nil {
			return nil, err
		}
		account.RoleID = newRole.ID
		account.RoleName = newRole.Name
		account.Permissions = newRole.Permissions
	}
	if input.DisplayName != nil {
		account.DisplayName = *input.DisplayName
	}
	if input.Location != nil {
		account.Location = *input.Location
	}
	if input.Bio != nil {
		account.Bio = *input.Bio
	}

	if err := service.repo.Update(ctx, account); err != nil {
		return nil, service.mapIdentityConflict(err)
	}

	service.logger.Info("account_admin_updated", slog.String("account_id", accountID))
	return account, nil
}

// # Activity Tracking

// Ping bumps the account's last-seen timestamp to now.
//
// Called on every authenticated request; failures are logged and swallowed
// so activity tracking can never fail a request.
func (service *Service) Ping(ctx context.Context, accountID string) {
	if err := service.repo.UpdateLastSeen(ctx, accountID, time.Now()); err != nil {
		service.logger.Warn("account_ping_failed",
			slog.String("account_id", accountID),
			slog.String("error", err.Error()),
		)
	}
}
