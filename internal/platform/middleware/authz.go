// Copyright (c) 2026 Plumeria. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/taibuivan/plumeria/internal/platform/apperr"
	"github.com/taibuivan/plumeria/internal/platform/ctxkey"
	"github.com/taibuivan/plumeria/internal/platform/ctxutil"
	"github.com/taibuivan/plumeria/internal/platform/respond"
	"github.com/taibuivan/plumeria/internal/platform/sec"
	"github.com/taibuivan/plumeria/internal/users/role"
)

// TokenVerifier defines the interface needed to verify access tokens in middleware.
//
// # Why an interface?
//
// Defining TokenVerifier here decouples the middleware from the [sec.Codec]
// implementation, allowing us to easily inject mocks during unit testing.
type TokenVerifier interface {
	VerifyToken(tokenStr string) (*sec.AuthClaims, error)
}

// PermissionChecker resolves a role name to its granted capabilities.
// Implemented by [role.Catalog].
type PermissionChecker interface {
	RoleCan(ctx context.Context, roleName string, perm role.Permission) bool
}

// Pinger records account activity. Implemented by the account service; the
// middleware treats it as fire-and-forget.
type Pinger interface {
	Ping(ctx context.Context, accountID string)
}

// Authenticate extracts and verifies the JWT from the Authorization header.
//
// # Flow
//  1. Check for 'Authorization: Bearer <token>' header.
//  2. If absent, request proceeds as anonymous.
//  3. If present, parse and verify the JWT via [TokenVerifier].
//  4. Inject [*sec.AuthClaims] into the request context for downstream use.
func Authenticate(verifier TokenVerifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			authHeader := request.Header.Get("Authorization")

			// ── 1. Anonymous Access ───────────────────────────────────────────
			if authHeader == "" {
				next.ServeHTTP(writer, request)
				return
			}

			// ── 2. Format Validation ──────────────────────────────────────────
			parts := strings.Split(authHeader, " ")
			if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
				respond.Error(writer, request, apperr.Unauthorized("Invalid authorization format"))
				return
			}

			// ── 3. Token Verification ─────────────────────────────────────────
			tokenStr := parts[1]
			claims, err := verifier.VerifyToken(tokenStr)
			if err != nil {
				respond.Error(writer, request, apperr.Unauthorized("Invalid or expired token"))
				return
			}

			// ── 4. Context Injection ──────────────────────────────────────────
			ctx := context.WithValue(request.Context(), ctxkey.KeyUser, claims)
			next.ServeHTTP(writer, request.WithContext(ctx))
		})
	}
}

// TouchLastSeen bumps the authenticated account's last-activity timestamp.
//
// # Usage
//
// Must be registered AFTER [Authenticate]. Anonymous requests pass through
// untouched. Failures inside the pinger never fail the request.
func TouchLastSeen(pinger Pinger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			if claims := ctxutil.GetAuthUser(request.Context()); claims != nil {
				pinger.Ping(request.Context(), claims.UserID)
			}
			next.ServeHTTP(writer, request)
		})
	}
}

// RequireAuth blocks requests that are not authenticated.
//
// # Usage
//
// Must be registered in the router AFTER [Authenticate].
func RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		claims := ctxutil.GetAuthUser(request.Context())
		if claims == nil {
			respond.Error(writer, request, apperr.Unauthorized("Authentication required"))
			return
		}
		next.ServeHTTP(writer, request)
	})
}

// RequirePermission blocks requests whose authenticated role lacks a capability.
//
// # Usage
//
// Must be registered AFTER [Authenticate]. It implies [RequireAuth], so an
// anonymous request is rejected with 401 before the capability check — an
// anonymous visitor holds no capabilities at all.
//
// # Flow
//  1. Check if [*sec.AuthClaims] exists in context (implies AuthN).
//  2. Resolve the claims' role name against the catalog rule table.
//  3. If the capability is missing, abort with HTTP 403 Forbidden.
func RequirePermission(checker PermissionChecker, perm role.Permission) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			claims := ctxutil.GetAuthUser(request.Context())

			// ── 1. Authentication Check ───────────────────────────────────────
			if claims == nil {
				respond.Error(writer, request, apperr.Unauthorized("Authentication required"))
				return
			}

			// ── 2. Authorization Check ────────────────────────────────────────
			if !checker.RoleCan(request.Context(), claims.Role, perm) {
				respond.Error(writer, request, apperr.Forbidden("Insufficient permissions"))
				return
			}

			next.ServeHTTP(writer, request)
		})
	}
}
