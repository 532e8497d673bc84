// Copyright (c) 2026 Plumeria. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth

import "time"

// # Session Lifetimes

const (
	// AccessTokenTTL is the lifetime of a signed access token. Kept short;
	// the refresh flow rotates sessions transparently.
	AccessTokenTTL = 15 * time.Minute

	// RefreshTokenTTL is the lifetime of a refresh session in Redis.
	RefreshTokenTTL = 30 * 24 * time.Hour

	// RefreshTokenLength is the entropy, in bytes, of a refresh token.
	RefreshTokenLength = 32
)

// # Validated Field Names

const (
	FieldEmail           = "email"
	FieldUsername        = "username"
	FieldPassword        = "password"
	FieldToken           = "token"
	FieldNewPassword     = "new_password"
	FieldCurrentPassword = "current_password"
)
