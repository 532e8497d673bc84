// Copyright (c) 2026 Plumeria. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Package sec provides cryptographic primitives and token management.
//
// # Architecture
//
// This package isolates security-sensitive code (Hashing, JWT Signing) from
// the domain logic. It acts as an Infrastructure service injected into the
// Application layer.
package sec

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Purpose tags a lifecycle token so a confirmation token can never be
// replayed as a password-reset token or vice versa.
type Purpose string

const (
	// PurposeConfirm marks email-confirmation tokens.
	PurposeConfirm Purpose = "confirm"

	// PurposeReset marks password-reset tokens.
	PurposeReset Purpose = "reset"
)

// Token consumption failure taxonomy. Callers that need to collapse these to
// a boolean (the account confirm/reset flows do) log the distinction and
// return false.
var (
	// ErrInvalidToken means the signature or token shape is invalid.
	ErrInvalidToken = errors.New("sec: invalid token")

	// ErrExpiredToken means the embedded expiry has passed.
	ErrExpiredToken = errors.New("sec: token expired")

	// ErrPurposeMismatch means the token was issued for a different operation.
	ErrPurposeMismatch = errors.New("sec: token purpose mismatch")

	// ErrAccountMismatch means the token belongs to a different account than
	// the one attempting to consume it.
	ErrAccountMismatch = errors.New("sec: token account mismatch")
)

// lifecycleClaims is the payload of a confirmation or reset token.
//
// Tokens are stateless: validity is entirely a function of the HMAC signature
// and the embedded expiry, so they cannot be revoked early.
type lifecycleClaims struct {
	jwt.RegisteredClaims

	// Purpose is abbreviated to keep the token compact in email links.
	Purpose string `json:"pur"`
}

// AuthClaims represents the payload embedded inside a session access token.
//
// # Why custom claims?
//
// By embedding the UserID, Username, and Role directly inside the JWT,
// the authentication middleware can reconstruct the active user context
// WITHOUT querying the database on every single API request.
type AuthClaims struct {
	jwt.RegisteredClaims

	// Custom application claims are abbreviated to keep the JWT payload small.
	UserID   string `json:"uid"`
	Username string `json:"unm"`
	Role     string `json:"rol"`
}

// Codec signs and verifies every token the process issues: account-lifecycle
// tokens (confirm, reset) and session access tokens. All tokens are HS256
// JWTs signed with a single process-wide secret.
type Codec struct {
	secret []byte
	issuer string
}

// NewCodec creates a [Codec] from the process-wide signing secret.
func NewCodec(secret, issuer string) (*Codec, error) {
	if secret == "" {
		return nil, errors.New("sec: signing secret must not be empty")
	}
	return &Codec{secret: []byte(secret), issuer: issuer}, nil
}

// # Lifecycle Tokens

// Issue creates a signed, expiring token bound to an account and a purpose.
//
// The token embeds the account ID as subject, the purpose tag, and an
// absolute expiry derived from ttl. It is never persisted anywhere.
func (codec *Codec) Issue(accountID string, purpose Purpose, ttl time.Duration) (string, error) {
	currentTime := time.Now()
	claims := lifecycleClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   accountID,
			Issuer:    codec.issuer,
			IssuedAt:  jwt.NewNumericDate(currentTime),
			ExpiresAt: jwt.NewNumericDate(currentTime.Add(ttl)),
		},
		Purpose: string(purpose),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signedToken, err := token.SignedString(codec.secret)
	if err != nil {
		return "", fmt.Errorf("sec: failed to sign token: %w", err)
	}

	return signedToken, nil
}

/*
Consume verifies a lifecycle token and returns the embedded account ID.

Checks, in order: HMAC signature, expiry (wall clock at consumption time),
purpose tag, and — when expectedAccountID is non-empty — that the embedded
account matches the account attempting the operation.

A failed attempt does not invalidate the token for a later, still-valid
attempt; only expiry is monotonic.

Returns:
  - string: The account ID the token was issued for
  - error: ErrInvalidToken, ErrExpiredToken, ErrPurposeMismatch, or ErrAccountMismatch
*/
func (codec *Codec) Consume(tokenString string, purpose Purpose, expectedAccountID string) (string, error) {
	claims := &lifecycleClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, codec.keyFunc)

	if err != nil {
		// jwt/v5 joins validation errors; expiry must stay distinguishable
		// from tampering for observability.
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", ErrExpiredToken
		}
		return "", ErrInvalidToken
	}

	if !token.Valid {
		return "", ErrInvalidToken
	}

	if claims.Purpose != string(purpose) {
		return "", ErrPurposeMismatch
	}

	if expectedAccountID != "" && claims.Subject != expectedAccountID {
		return "", ErrAccountMismatch
	}

	return claims.Subject, nil
}

// # Session Access Tokens

// GenerateAccessToken creates a new signed access token for a user session.
func (codec *Codec) GenerateAccessToken(userID, username, role string, timeToLive time.Duration) (string, error) {
	currentTime := time.Now()
	claims := AuthClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			Issuer:    codec.issuer,
			IssuedAt:  jwt.NewNumericDate(currentTime),
			ExpiresAt: jwt.NewNumericDate(currentTime.Add(timeToLive)),
		},
		UserID:   userID,
		Username: username,
		Role:     role,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signedToken, err := token.SignedString(codec.secret)
	if err != nil {
		return "", fmt.Errorf("sec: failed to sign access token: %w", err)
	}

	return signedToken, nil
}

// VerifyToken checks the signature and validity of an access token string.
func (codec *Codec) VerifyToken(tokenString string) (*AuthClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &AuthClaims{}, codec.keyFunc)
	if err != nil {
		return nil, fmt.Errorf("sec: invalid access token: %w", err)
	}

	claims, ok := token.Claims.(*AuthClaims)
	if !ok || !token.Valid {
		return nil, errors.New("sec: invalid access token claims")
	}

	return claims, nil
}

// keyFunc pins the accepted signing method to HMAC before handing out the secret.
func (codec *Codec) keyFunc(token *jwt.Token) (interface{}, error) {
	if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
		return nil, fmt.Errorf("sec: unexpected signing method: %v", token.Header["alg"])
	}
	return codec.secret, nil
}
