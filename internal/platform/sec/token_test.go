// Copyright (c) 2026 Plumeria. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package sec_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/plumeria/internal/platform/sec"
)

func newCodec(t *testing.T) *sec.Codec {
	t.Helper()
	codec, err := sec.NewCodec("test-signing-secret", "plumeria.test")
	require.NoError(t, err)
	return codec
}

/*
TestCodec_IssueConsume verifies the happy path: a token issued for an account
resolves back to the same account ID.
*/
func TestCodec_IssueConsume(t *testing.T) {
	codec := newCodec(t)

	token, err := codec.Issue("account-1", sec.PurposeConfirm, time.Hour)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	accountID, err := codec.Consume(token, sec.PurposeConfirm, "account-1")
	require.NoError(t, err)
	assert.Equal(t, "account-1", accountID)

	// A failed attempt elsewhere does not burn the token; consuming again
	// while still valid succeeds.
	accountID, err = codec.Consume(token, sec.PurposeConfirm, "")
	require.NoError(t, err)
	assert.Equal(t, "account-1", accountID)
}

/*
TestCodec_Expiry verifies that a 1-second token fails with ErrExpiredToken
after sleeping past its window.
*/
func TestCodec_Expiry(t *testing.T) {
	codec := newCodec(t)

	token, err := codec.Issue("account-1", sec.PurposeConfirm, 1*time.Second)
	require.NoError(t, err)

	time.Sleep(2 * time.Second)

	_, err = codec.Consume(token, sec.PurposeConfirm, "account-1")
	assert.ErrorIs(t, err, sec.ErrExpiredToken)
}

/*
TestCodec_TamperedSignature verifies that mutating the token text fails with
ErrInvalidToken.
*/
func TestCodec_TamperedSignature(t *testing.T) {
	codec := newCodec(t)

	token, err := codec.Issue("account-1", sec.PurposeReset, time.Hour)
	require.NoError(t, err)

	_, err = codec.Consume(token+"b", sec.PurposeReset, "")
	assert.ErrorIs(t, err, sec.ErrInvalidToken)

	_, err = codec.Consume("garbage", sec.PurposeReset, "")
	assert.ErrorIs(t, err, sec.ErrInvalidToken)
}

/*
TestCodec_WrongSecret verifies that a token signed with a different secret is
rejected as invalid.
*/
func TestCodec_WrongSecret(t *testing.T) {
	codec := newCodec(t)

	other, err := sec.NewCodec("a-different-secret", "plumeria.test")
	require.NoError(t, err)

	token, err := other.Issue("account-1", sec.PurposeConfirm, time.Hour)
	require.NoError(t, err)

	_, err = codec.Consume(token, sec.PurposeConfirm, "")
	assert.ErrorIs(t, err, sec.ErrInvalidToken)
}

/*
TestCodec_PurposeMismatch verifies that a confirmation token cannot be
replayed as a reset token.
*/
func TestCodec_PurposeMismatch(t *testing.T) {
	codec := newCodec(t)

	token, err := codec.Issue("account-1", sec.PurposeConfirm, time.Hour)
	require.NoError(t, err)

	_, err = codec.Consume(token, sec.PurposeReset, "")
	assert.ErrorIs(t, err, sec.ErrPurposeMismatch)
}

/*
TestCodec_AccountMismatch verifies that a token issued for one account fails
when pinned to a different account.
*/
func TestCodec_AccountMismatch(t *testing.T) {
	codec := newCodec(t)

	token, err := codec.Issue("account-1", sec.PurposeConfirm, time.Hour)
	require.NoError(t, err)

	_, err = codec.Consume(token, sec.PurposeConfirm, "account-2")
	assert.ErrorIs(t, err, sec.ErrAccountMismatch)
}

/*
TestCodec_AccessToken verifies the access-token roundtrip used by the session
gateway.
*/
func TestCodec_AccessToken(t *testing.T) {
	codec := newCodec(t)

	token, err := codec.GenerateAccessToken("user-1", "writer", "User", 15*time.Minute)
	require.NoError(t, err)

	claims, err := codec.VerifyToken(token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.UserID)
	assert.Equal(t, "writer", claims.Username)
	assert.Equal(t, "User", claims.Role)

	// Lifecycle tokens are not valid access tokens: the purpose-tagged
	// claims lack the uid field but more importantly VerifyToken must not
	// accept arbitrary mutations.
	_, err = codec.VerifyToken(token + "x")
	assert.Error(t, err)
}
