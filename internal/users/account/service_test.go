// Copyright (c) 2026 Plumeria. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package account

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/plumeria/internal/platform/apperr"
	"github.com/taibuivan/plumeria/internal/platform/sec"
	"github.com/taibuivan/plumeria/internal/users/role"
	"github.com/taibuivan/plumeria/pkg/pointer"
)

// # Test Fakes

// memoryAccountRepository is an in-memory [Repository].
type memoryAccountRepository struct {
	mu       sync.Mutex
	accounts map[string]*Account
}

func newMemoryAccountRepository() *memoryAccountRepository {
	return &memoryAccountRepository{accounts: make(map[string]*Account)}
}

func (m *memoryAccountRepository) FindByID(_ context.Context, id string) (*Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if a, ok := m.accounts[id]; ok {
		found := *a
		return &found, nil
	}
	return nil, apperr.NotFound("Account")
}

func (m *memoryAccountRepository) FindByEmail(_ context.Context, email string) (*Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range m.accounts {
		if a.Email == email {
			found := *a
			return &found, nil
		}
	}
	return nil, apperr.NotFound("Account")
}

func (m *memoryAccountRepository) FindByUsername(_ context.Context, username string) (*Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range m.accounts {
		if a.Username == username {
			found := *a
			return &found, nil
		}
	}
	return nil, apperr.NotFound("Account")
}

func (m *memoryAccountRepository) Create(_ context.Context, a *Account) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.uniqueViolation(a); err != nil {
		return err
	}
	stored := *a
	m.accounts[a.ID] = &stored
	return nil
}

func (m *memoryAccountRepository) Update(_ context.Context, a *Account) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.uniqueViolation(a); err != nil {
		return err
	}
	stored := *a
	m.accounts[a.ID] = &stored
	return nil
}

// uniqueViolation mimics the named constraints of the account migration so
// the service's conflict attribution path is exercised without Postgres.
func (m *memoryAccountRepository) uniqueViolation(a *Account) error {
	for id, other := range m.accounts {
		if id == a.ID {
			continue
		}
		if other.Email == a.Email {
			return &pgconn.PgError{Code: pgerrcode.UniqueViolation, ConstraintName: "account_email_key"}
		}
		if other.Username == a.Username {
			return &pgconn.PgError{Code: pgerrcode.UniqueViolation, ConstraintName: "account_username_key"}
		}
	}
	return nil
}

func (m *memoryAccountRepository) UpdatePassword(_ context.Context, id, passwordHash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if a, ok := m.accounts[id]; ok {
		a.PasswordHash = passwordHash
	}
	return nil
}

func (m *memoryAccountRepository) MarkConfirmed(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if a, ok := m.accounts[id]; ok {
		a.Confirmed = true
	}
	return nil
}

func (m *memoryAccountRepository) UpdateLastSeen(_ context.Context, id string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if a, ok := m.accounts[id]; ok && at.After(a.LastSeen) {
		a.LastSeen = at
	}
	return nil
}

// memoryRoleRepository backs a real [role.Catalog] in tests.
type memoryRoleRepository struct {
	nextID int
	byName map[string]*role.Role
}

func newMemoryRoleRepository() *memoryRoleRepository {
	return &memoryRoleRepository{byName: make(map[string]*role.Role)}
}

func (m *memoryRoleRepository) Upsert(_ context.Context, r *role.Role) error {
	if existing, ok := m.byName[r.Name]; ok {
		existing.Permissions = r.Permissions
		existing.IsDefault = r.IsDefault
		r.ID = existing.ID
		return nil
	}
	m.nextID++
	r.ID = m.nextID
	stored := *r
	m.byName[r.Name] = &stored
	return nil
}

func (m *memoryRoleRepository) FindByName(_ context.Context, name string) (*role.Role, error) {
	if r, ok := m.byName[name]; ok {
		found := *r
		return &found, nil
	}
	return nil, apperr.NotFound("Role")
}

func (m *memoryRoleRepository) FindDefault(_ context.Context) (*role.Role, error) {
	for _, r := range m.byName {
		if r.IsDefault {
			found := *r
			return &found, nil
		}
	}
	return nil, apperr.NotFound("Default role")
}

func (m *memoryRoleRepository) List(_ context.Context) ([]role.Role, error) {
	roles := make([]role.Role, 0, len(m.byName))
	for _, r := range m.byName {
		roles = append(roles, *r)
	}
	return roles, nil
}

// recordingMailer captures outbound tokens instead of sending mail.
type recordingMailer struct {
	confirmations []string
	resets        []string
}

func (m *recordingMailer) SendConfirmation(_ context.Context, _, token string) error {
	m.confirmations = append(m.confirmations, token)
	return nil
}

func (m *recordingMailer) SendPasswordReset(_ context.Context, _, token string) error {
	m.resets = append(m.resets, token)
	return nil
}

// # Harness

const testAdminEmail = "admin@plumeria.app"

func newTestCodec(t *testing.T) *sec.Codec {
	t.Helper()
	codec, err := sec.NewCodec("unit-test-signing-secret", "plumeria.app")
	require.NoError(t, err)
	return codec
}

func newTestService(t *testing.T) (*Service, *memoryAccountRepository, *recordingMailer) {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	catalog := role.NewCatalog(newMemoryRoleRepository(), logger)
	require.NoError(t, catalog.Seed(context.Background()))

	codec := newTestCodec(t)
	repo := newMemoryAccountRepository()
	mailer := &recordingMailer{}

	service := NewService(repo, catalog, codec, mailer, logger, testAdminEmail, time.Hour, time.Hour)
	return service, repo, mailer
}

func mustRegister(t *testing.T, service *Service, email, username string) *Account {
	t.Helper()
	account, err := service.Register(context.Background(), RegisterInput{
		Email:    email,
		Username: username,
		Password: "cat",
	})
	require.NoError(t, err)
	return account
}

// # Registration Tests

func TestService_Register(t *testing.T) {
	service, _, mailer := newTestService(t)

	before := time.Now()
	account := mustRegister(t, service, "John@Example.COM", "john")

	assert.Equal(t, "john@example.com", account.Email, "email must be normalized on store")
	assert.Equal(t, role.NameUser, account.RoleName)
	assert.False(t, account.Confirmed)
	assert.NotEqual(t, "cat", account.PasswordHash)
	assert.True(t, account.VerifyPassword("cat"))

	// Timestamps land at creation time.
	assert.WithinRange(t, account.MemberSince, before, time.Now())
	assert.WithinRange(t, account.LastSeen, before, time.Now())

	// A confirmation token went out.
	assert.Len(t, mailer.confirmations, 1)
}

func TestService_Register_DuplicateEmail(t *testing.T) {
	service, _, _ := newTestService(t)
	mustRegister(t, service, "john@example.com", "john")

	_, err := service.Register(context.Background(), RegisterInput{
		Email:    "JOHN@example.com",
		Username: "johnny",
		Password: "cat",
	})

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrDuplicateEmail)
	assert.NotErrorIs(t, err, ErrDuplicateUsername)
}

func TestService_Register_DuplicateUsername(t *testing.T) {
	service, _, _ := newTestService(t)
	mustRegister(t, service, "john@example.com", "john")

	_, err := service.Register(context.Background(), RegisterInput{
		Email:    "susan@example.com",
		Username: "john",
		Password: "cat",
	})

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrDuplicateUsername)
	assert.NotErrorIs(t, err, ErrDuplicateEmail)
}

func TestService_Register_AdminEmailGetsAdministrator(t *testing.T) {
	service, _, _ := newTestService(t)

	admin := mustRegister(t, service, testAdminEmail, "boss")

	assert.Equal(t, role.NameAdministrator, admin.RoleName)
	assert.True(t, admin.Can(role.PermAdminister))
}

// # Password Tests

func TestService_ChangePassword(t *testing.T) {
	service, repo, _ := newTestService(t)
	account := mustRegister(t, service, "john@example.com", "john")

	err := service.ChangePassword(context.Background(), account.ID, "cat", "dog")
	require.NoError(t, err)

	updated, err := repo.FindByID(context.Background(), account.ID)
	require.NoError(t, err)
	assert.True(t, updated.VerifyPassword("dog"))
	assert.False(t, updated.VerifyPassword("cat"))
}

func TestService_ChangePassword_WrongCurrent(t *testing.T) {
	service, repo, _ := newTestService(t)
	account := mustRegister(t, service, "john@example.com", "john")

	err := service.ChangePassword(context.Background(), account.ID, "dog", "horse")

	assert.ErrorIs(t, err, ErrInvalidPassword)

	unchanged, findErr := repo.FindByID(context.Background(), account.ID)
	require.NoError(t, findErr)
	assert.True(t, unchanged.VerifyPassword("cat"))
}

// # Confirmation Tests

func TestService_Confirm(t *testing.T) {
	service, repo, _ := newTestService(t)
	account := mustRegister(t, service, "john@example.com", "john")

	token, err := service.GenerateConfirmationToken(account, time.Hour)
	require.NoError(t, err)

	assert.True(t, service.Confirm(context.Background(), account, token))
	assert.True(t, account.Confirmed)

	stored, err := repo.FindByID(context.Background(), account.ID)
	require.NoError(t, err)
	assert.True(t, stored.Confirmed)
}

func TestService_Confirm_TokenForAnotherAccountFails(t *testing.T) {
	service, _, _ := newTestService(t)
	john := mustRegister(t, service, "john@example.com", "john")
	susan := mustRegister(t, service, "susan@example.org", "susan")

	token, err := service.GenerateConfirmationToken(john, time.Hour)
	require.NoError(t, err)

	assert.False(t, service.Confirm(context.Background(), susan, token))
	assert.False(t, susan.Confirmed)
}

func TestService_Confirm_TamperedTokenFails(t *testing.T) {
	service, _, _ := newTestService(t)
	account := mustRegister(t, service, "john@example.com", "john")

	token, err := service.GenerateConfirmationToken(account, time.Hour)
	require.NoError(t, err)

	assert.False(t, service.Confirm(context.Background(), account, token+"b"))
	assert.False(t, account.Confirmed)
}

func TestService_Confirm_AlreadyConfirmedIsNoOp(t *testing.T) {
	service, _, _ := newTestService(t)
	account := mustRegister(t, service, "john@example.com", "john")

	token, err := service.GenerateConfirmationToken(account, time.Hour)
	require.NoError(t, err)
	require.True(t, service.Confirm(context.Background(), account, token))

	// Any token, even garbage, is accepted once confirmed.
	assert.True(t, service.Confirm(context.Background(), account, "garbage"))
}

// # Recovery Tests

func TestService_ResetPassword(t *testing.T) {
	service, repo, _ := newTestService(t)
	account := mustRegister(t, service, "john@example.com", "john")

	token, err := service.GenerateResetToken(account, time.Hour)
	require.NoError(t, err)

	assert.True(t, service.ResetPassword(context.Background(), token, "dog"))

	updated, err := repo.FindByID(context.Background(), account.ID)
	require.NoError(t, err)
	assert.True(t, updated.VerifyPassword("dog"))
}

func TestService_ResetPassword_TamperedTokenLeavesPasswordValid(t *testing.T) {
	service, repo, _ := newTestService(t)
	account := mustRegister(t, service, "john@example.com", "john")

	token, err := service.GenerateResetToken(account, time.Hour)
	require.NoError(t, err)

	assert.False(t, service.ResetPassword(context.Background(), token+"b", "horse"))

	unchanged, err := repo.FindByID(context.Background(), account.ID)
	require.NoError(t, err)
	assert.True(t, unchanged.VerifyPassword("cat"))
	assert.False(t, unchanged.VerifyPassword("horse"))
}

func TestService_RequestPasswordReset(t *testing.T) {
	service, _, mailer := newTestService(t)
	account := mustRegister(t, service, "john@example.com", "john")

	require.NoError(t, service.RequestPasswordReset(context.Background(), "JOHN@example.com"))
	require.Len(t, mailer.resets, 1)

	// The emailed token is consumable.
	assert.True(t, service.ResetPassword(context.Background(), mailer.resets[0], "dog"))

	updated, err := service.GetByID(context.Background(), account.ID)
	require.NoError(t, err)
	assert.True(t, updated.VerifyPassword("dog"))
}

func TestService_RequestPasswordReset_UnknownEmailIsSilent(t *testing.T) {
	service, _, mailer := newTestService(t)

	assert.NoError(t, service.RequestPasswordReset(context.Background(), "ghost@example.com"))
	assert.Empty(t, mailer.resets)
}

// # Email Change Tests

func TestService_ChangeEmail(t *testing.T) {
	service, _, mailer := newTestService(t)
	account := mustRegister(t, service, "john@example.com", "john")

	token, err := service.GenerateConfirmationToken(account, time.Hour)
	require.NoError(t, err)
	require.True(t, service.Confirm(context.Background(), account, token))

	updated, err := service.ChangeEmail(context.Background(), account.ID, "cat", " NEW@Example.com ")
	require.NoError(t, err)

	assert.Equal(t, "new@example.com", updated.Email)
	assert.False(t, updated.Confirmed, "email change must reset the confirmed flag")
	assert.Len(t, mailer.confirmations, 2, "a fresh confirmation token must be sent")
}

func TestService_ChangeEmail_WrongPassword(t *testing.T) {
	service, _, _ := newTestService(t)
	account := mustRegister(t, service, "john@example.com", "john")

	_, err := service.ChangeEmail(context.Background(), account.ID, "dog", "new@example.com")

	assert.ErrorIs(t, err, ErrInvalidPassword)
}

func TestService_ChangeEmail_DuplicateEmail(t *testing.T) {
	service, _, _ := newTestService(t)
	mustRegister(t, service, "susan@example.org", "susan")
	account := mustRegister(t, service, "john@example.com", "john")

	_, err := service.ChangeEmail(context.Background(), account.ID, "cat", "susan@example.org")

	assert.ErrorIs(t, err, ErrDuplicateEmail)
}

// # Profile Tests

func TestService_UpdateProfile(t *testing.T) {
	service, _, _ := newTestService(t)
	account := mustRegister(t, service, "john@example.com", "john")

	updated, err := service.UpdateProfile(context.Background(), account.ID, UpdateProfileInput{
		DisplayName: pointer.To("John Doe"),
		Location:    pointer.To("Osaka"),
	})
	require.NoError(t, err)

	assert.Equal(t, "John Doe", updated.DisplayName)
	assert.Equal(t, "Osaka", updated.Location)
	assert.Empty(t, updated.Bio, "unspecified fields stay untouched")
}

func TestService_AdminUpdateProfile(t *testing.T) {
	service, _, _ := newTestService(t)
	account := mustRegister(t, service, "john@example.com", "john")

	updated, err := service.AdminUpdateProfile(context.Background(), account.ID, AdminUpdateInput{
		Confirmed: pointer.To(true),
		RoleName:  pointer.To(role.NameModerator),
		Bio:       pointer.To("Keeper of the peace"),
	})
	require.NoError(t, err)

	assert.True(t, updated.Confirmed)
	assert.Equal(t, role.NameModerator, updated.RoleName)
	assert.True(t, updated.Can(role.PermModerate))
	assert.False(t, updated.Can(role.PermAdminister))
}

func TestService_AdminUpdateProfile_UnknownRole(t *testing.T) {
	service, _, _ := newTestService(t)
	account := mustRegister(t, service, "john@example.com", "john")

	_, err := service.AdminUpdateProfile(context.Background(), account.ID, AdminUpdateInput{
		RoleName: pointer.To("Overlord"),
	})

	assert.True(t, apperr.IsNotFound(err))
}

// # Activity Tests

func TestService_Ping_IncreasesLastSeen(t *testing.T) {
	service, repo, _ := newTestService(t)
	account := mustRegister(t, service, "john@example.com", "john")

	before, err := repo.FindByID(context.Background(), account.ID)
	require.NoError(t, err)

	time.Sleep(10 * time.Millisecond)
	service.Ping(context.Background(), account.ID)

	after, err := repo.FindByID(context.Background(), account.ID)
	require.NoError(t, err)
	assert.True(t, after.LastSeen.After(before.LastSeen), "ping must advance last_seen")
}
