// Copyright (c) 2026 Plumeria. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package account

import (
	"crypto/md5"
	"fmt"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/plumeria/internal/platform/sec"
	"github.com/taibuivan/plumeria/internal/users/role"
)

func TestAccount_VerifyPassword(t *testing.T) {
	hash, err := sec.HashPassword("cat")
	require.NoError(t, err)

	account := &Account{PasswordHash: hash}

	assert.True(t, account.VerifyPassword("cat"))
	assert.False(t, account.VerifyPassword("dog"))
}

func TestAccount_Can(t *testing.T) {
	member := &Account{
		RoleName:    role.NameUser,
		Permissions: role.PermFollow | role.PermComment | role.PermWrite,
	}

	assert.True(t, member.Can(role.PermFollow))
	assert.True(t, member.Can(role.PermWrite))
	assert.False(t, member.Can(role.PermModerate))
	assert.False(t, member.Can(role.PermAdminister))
	assert.False(t, member.IsAdministrator())
}

func TestAccount_Anonymous_HasNoCapabilities(t *testing.T) {
	anon := Anonymous()

	for _, perm := range []role.Permission{
		role.PermFollow, role.PermComment, role.PermWrite,
		role.PermModerate, role.PermAdminister,
	} {
		assert.False(t, anon.Can(perm), "anonymous must not hold permission %d", perm)
	}

	var nilAccount *Account
	assert.False(t, nilAccount.Can(role.PermFollow))
}

func TestAccount_Gravatar(t *testing.T) {
	account := &Account{Email: "john@example.com"}

	avatarURL := account.Gravatar(256, "retro", "pg")

	parsed, err := url.Parse(avatarURL)
	require.NoError(t, err)

	expectedHash := fmt.Sprintf("%x", md5.Sum([]byte("john@example.com")))
	assert.Equal(t, "secure.gravatar.com", parsed.Host)
	assert.True(t, strings.HasSuffix(parsed.Path, expectedHash))

	params := parsed.Query()
	assert.Equal(t, "256", params.Get("s"))
	assert.Equal(t, "retro", params.Get("d"))
	assert.Equal(t, "pg", params.Get("r"))
}

func TestAccount_Gravatar_NormalizesEmail(t *testing.T) {
	lower := &Account{Email: "john@example.com"}
	shouty := &Account{Email: "  JOHN@Example.COM "}

	assert.Equal(t, lower.Gravatar(100, "identicon", "g"), shouty.Gravatar(100, "identicon", "g"))
}

func TestNormalizeEmail(t *testing.T) {
	testCases := []struct {
		input    string
		expected string
	}{
		{"john@example.com", "john@example.com"},
		{"JOHN@EXAMPLE.COM", "john@example.com"},
		{"  john@example.com  ", "john@example.com"},
		{" MiXeD@Case.Org", "mixed@case.org"},
	}

	for _, tc := range testCases {
		assert.Equal(t, tc.expected, NormalizeEmail(tc.input))
	}
}
