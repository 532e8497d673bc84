// Copyright (c) 2026 Plumeria. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/plumeria/internal/platform/apperr"
	"github.com/taibuivan/plumeria/internal/platform/sec"
	"github.com/taibuivan/plumeria/internal/users/account"
	"github.com/taibuivan/plumeria/internal/users/role"
)

// # Test Fakes

// memorySessionRepository is an in-memory [SessionRepository]. TTLs are
// tracked but only checked on Find.
type memorySessionRepository struct {
	sessions map[string]sessionEntry
}

type sessionEntry struct {
	accountID string
	expiresAt time.Time
}

func newMemorySessionRepository() *memorySessionRepository {
	return &memorySessionRepository{sessions: make(map[string]sessionEntry)}
}

func (m *memorySessionRepository) Save(_ context.Context, tokenHash, accountID string, ttl time.Duration) error {
	m.sessions[tokenHash] = sessionEntry{accountID: accountID, expiresAt: time.Now().Add(ttl)}
	return nil
}

func (m *memorySessionRepository) Find(_ context.Context, tokenHash string) (string, error) {
	entry, ok := m.sessions[tokenHash]
	if !ok || time.Now().After(entry.expiresAt) {
		return "", apperr.NotFound("Session")
	}
	return entry.accountID, nil
}

func (m *memorySessionRepository) Delete(_ context.Context, tokenHash string) error {
	delete(m.sessions, tokenHash)
	return nil
}

// memoryAccountRepository implements account.Repository for gateway tests.
type memoryAccountRepository struct {
	accounts map[string]*account.Account
}

func (m *memoryAccountRepository) FindByID(_ context.Context, id string) (*account.Account, error) {
	if a, ok := m.accounts[id]; ok {
		found := *a
		return &found, nil
	}
	return nil, apperr.NotFound("Account")
}

func (m *memoryAccountRepository) FindByEmail(_ context.Context, email string) (*account.Account, error) {
	for _, a := range m.accounts {
		if a.Email == email {
			found := *a
			return &found, nil
		}
	}
	return nil, apperr.NotFound("Account")
}

func (m *memoryAccountRepository) FindByUsername(_ context.Context, username string) (*account.Account, error) {
	for _, a := range m.accounts {
		if a.Username == username {
			found := *a
			return &found, nil
		}
	}
	return nil, apperr.NotFound("Account")
}

func (m *memoryAccountRepository) Create(_ context.Context, a *account.Account) error {
	stored := *a
	m.accounts[a.ID] = &stored
	return nil
}

func (m *memoryAccountRepository) Update(_ context.Context, a *account.Account) error {
	stored := *a
	m.accounts[a.ID] = &stored
	return nil
}

func (m *memoryAccountRepository) UpdatePassword(_ context.Context, id, passwordHash string) error {
	if a, ok := m.accounts[id]; ok {
		a.PasswordHash = passwordHash
	}
	return nil
}

func (m *memoryAccountRepository) MarkConfirmed(_ context.Context, id string) error {
	if a, ok := m.accounts[id]; ok {
		a.Confirmed = true
	}
	return nil
}

func (m *memoryAccountRepository) UpdateLastSeen(_ context.Context, id string, at time.Time) error {
	if a, ok := m.accounts[id]; ok && at.After(a.LastSeen) {
		a.LastSeen = at
	}
	return nil
}

// memoryRoleRepository backs the role catalog.
type memoryRoleRepository struct {
	nextID int
	byName map[string]*role.Role
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
	return nil, nil
}

// silentMailer swallows all outbound mail.
type silentMailer struct{}

func (silentMailer) SendConfirmation(context.Context, string, string) error  { return nil }
func (silentMailer) SendPasswordReset(context.Context, string, string) error { return nil }

// # Harness

func newTestGateway(t *testing.T) (*Service, *memorySessionRepository, *account.Service) {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	codec, err := sec.NewCodec("unit-test-signing-secret", "plumeria.app")
	require.NoError(t, err)

	catalog := role.NewCatalog(&memoryRoleRepository{byName: map[string]*role.Role{}}, logger)
	require.NoError(t, catalog.Seed(context.Background()))

	accountRepo := &memoryAccountRepository{accounts: map[string]*account.Account{}}
	accounts := account.NewService(accountRepo, catalog, codec, silentMailer{}, logger, "", time.Hour, time.Hour)

	sessions := newMemorySessionRepository()
	gateway := NewService(accounts, sessions, codec, logger)
	return gateway, sessions, accounts
}

func registerMember(t *testing.T, accounts *account.Service) *account.Account {
	t.Helper()
	acct, err := accounts.Register(context.Background(), account.RegisterInput{
		Email:    "john@example.com",
		Username: "john",
		Password: "correct horse",
	})
	require.NoError(t, err)
	return acct
}

// # Tests

func TestService_Login(t *testing.T) {
	gateway, sessions, accounts := newTestGateway(t)
	acct := registerMember(t, accounts)

	session, err := gateway.Login(context.Background(), LoginInput{
		Email:    "JOHN@example.com",
		Password: "correct horse",
	})
	require.NoError(t, err)

	assert.NotEmpty(t, session.AccessToken)
	assert.NotEmpty(t, session.RefreshToken)
	assert.Equal(t, acct.ID, session.Account.ID)

	// Only the hash is stored; the raw token must not appear as a key.
	_, rawStored := sessions.sessions[session.RefreshToken]
	assert.False(t, rawStored)
	_, hashStored := sessions.sessions[sec.HashToken(session.RefreshToken)]
	assert.True(t, hashStored)
}

func TestService_Login_WrongPassword(t *testing.T) {
	gateway, _, accounts := newTestGateway(t)
	registerMember(t, accounts)

	_, err := gateway.Login(context.Background(), LoginInput{
		Email:    "john@example.com",
		Password: "wrong",
	})

	require.Error(t, err)
	assert.Equal(t, "Invalid login credentials", err.Error())
}

func TestService_Login_UnknownEmailSameError(t *testing.T) {
	gateway, _, accounts := newTestGateway(t)
	registerMember(t, accounts)

	_, errUnknown := gateway.Login(context.Background(), LoginInput{Email: "ghost@example.com", Password: "x"})
	_, errWrongPassword := gateway.Login(context.Background(), LoginInput{Email: "john@example.com", Password: "x"})

	// Indistinguishable failures prevent account enumeration.
	require.Error(t, errUnknown)
	require.Error(t, errWrongPassword)
	assert.Equal(t, errWrongPassword.Error(), errUnknown.Error())
}

func TestService_Refresh_RotatesToken(t *testing.T) {
	gateway, _, accounts := newTestGateway(t)
	registerMember(t, accounts)

	first, err := gateway.Login(context.Background(), LoginInput{
		Email:    "john@example.com",
		Password: "correct horse",
	})
	require.NoError(t, err)

	second, err := gateway.Refresh(context.Background(), first.RefreshToken)
	require.NoError(t, err)
	assert.NotEqual(t, first.RefreshToken, second.RefreshToken)

	// The consumed token must be dead.
	_, err = gateway.Refresh(context.Background(), first.RefreshToken)
	require.Error(t, err)

	// The rotated token stays alive.
	_, err = gateway.Refresh(context.Background(), second.RefreshToken)
	assert.NoError(t, err)
}

func TestService_Refresh_GarbageToken(t *testing.T) {
	gateway, _, _ := newTestGateway(t)

	_, err := gateway.Refresh(context.Background(), "not-a-token")
	require.Error(t, err)
	assert.True(t, apperr.As(err) != nil)
}

func TestService_Logout(t *testing.T) {
	gateway, _, accounts := newTestGateway(t)
	registerMember(t, accounts)

	session, err := gateway.Login(context.Background(), LoginInput{
		Email:    "john@example.com",
		Password: "correct horse",
	})
	require.NoError(t, err)

	require.NoError(t, gateway.Logout(context.Background(), session.RefreshToken))

	_, err = gateway.Refresh(context.Background(), session.RefreshToken)
	assert.Error(t, err)

	// Logging out twice is harmless.
	assert.NoError(t, gateway.Logout(context.Background(), session.RefreshToken))
}
