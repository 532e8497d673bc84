// Copyright (c) 2026 Plumeria. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/taibuivan/plumeria/internal/platform/apperr"
	"github.com/taibuivan/plumeria/internal/platform/constants"
	"github.com/taibuivan/plumeria/internal/platform/middleware"
	requestutil "github.com/taibuivan/plumeria/internal/platform/request"
	"github.com/taibuivan/plumeria/internal/platform/respond"
	"github.com/taibuivan/plumeria/internal/platform/validate"
	"github.com/taibuivan/plumeria/internal/users/account"
)

// # Definitions & Constructors

// Handler implements the HTTP entry points of the identity lifecycle:
// registration, sessions, confirmation, and recovery.
//
// This layer is strictly responsible for transport concerns (status codes,
// cookies, JSON); the account and session services own the rules.
type Handler struct {
	authService    *Service
	accountService *account.Service
}

// NewHandler constructs a new auth [Handler].
func NewHandler(authService *Service, accountService *account.Service) *Handler {
	return &Handler{
		authService:    authService,
		accountService: accountService,
	}
}

// Routes returns a [chi.Router] configured with authentication routes.
func (handler *Handler) Routes() chi.Router {
	router := chi.NewRouter()

	// Public endpoints
	router.Post("/register", handler.register)
	router.Post("/login", handler.login)
	router.Post("/refresh", handler.refresh)
	router.Post("/forgot-password", handler.forgotPassword)
	router.Post("/reset-password", handler.resetPassword)

	// Protected endpoints
	router.Group(func(r chi.Router) {
		r.Use(middleware.RequireAuth)
		r.Post("/logout", handler.logout)
		r.Post("/confirm", handler.confirm)
		r.Post("/resend-confirmation", handler.resendConfirmation)
		r.Post("/change-password", handler.changePassword)
	})

	return router
}

// # Request Payloads

type registerRequest struct {
	Email    string `json:"email"`
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type confirmRequest struct {
	Token string `json:"token"`
}

type forgotPasswordRequest struct {
	Email string `json:"email"`
}

type resetPasswordRequest struct {
	Token    string `json:"token"`
	Password string `json:"password"`
}

type changePasswordRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

// # Registration

/*
POST /api/v1/auth/register.

Description: Validates input and creates a new member account. A
confirmation token is emailed as a side effect.

Request:
  - body: registerRequest

Response:
  - 201: Account: Created profile
  - 400: ErrInvalidJSON/Validation: Bad input
  - 409: ErrConflict: Email or username already exists
*/
func (handler *Handler) register(writer http.ResponseWriter, request *http.Request) {
	var input registerRequest

	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}

	validator := &validate.Validator{}
	validator.Required(FieldEmail, input.Email).
		Email(FieldEmail, input.Email).
		Required(FieldUsername, input.Username).
		MinLen(FieldUsername, input.Username, 3).
		MaxLen(FieldUsername, input.Username, 32).
		Username(FieldUsername, input.Username).
		Required(FieldPassword, input.Password).
		MinLen(FieldPassword, input.Password, 8)

	if err := validator.Err(); err != nil {
		respond.Error(writer, request, err)
		return
	}

	acct, err := handler.accountService.Register(request.Context(), account.RegisterInput{
		Email:    input.Email,
		Username: input.Username,
		Password: input.Password,
	})
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.Created(writer, acct)
}

// # Sessions

/*
POST /api/v1/auth/login.

Description: Verifies credentials, returns a signed access token, and sets
the refresh token as a scoped HTTP-only cookie.

Request:
  - body: loginRequest

Response:
  - 200: Session payload (access_token, account)
  - 401: ErrUnauthorized: Invalid credentials
*/
func (handler *Handler) login(writer http.ResponseWriter, request *http.Request) {
	var input loginRequest

	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}

	validator := &validate.Validator{}
	validator.Required(FieldEmail, input.Email)
	validator.Required(FieldPassword, input.Password)

	if err := validator.Err(); err != nil {
		respond.Error(writer, request, err)
		return
	}

	session, err := handler.authService.Login(request.Context(), LoginInput{
		Email:    input.Email,
		Password: input.Password,
	})
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	handler.setRefreshCookie(writer, session)

	respond.OK(writer, map[string]any{
		"access_token": session.AccessToken,
		"account":      session.Account,
	})
}

/*
POST /api/v1/auth/refresh.

Description: Rotates the session: the refresh cookie is validated, revoked,
and replaced, and a fresh access token is returned.

Response:
  - 200: Session payload (access_token, account)
  - 401: ErrUnauthorized: Missing, invalid, or expired refresh token
*/
func (handler *Handler) refresh(writer http.ResponseWriter, request *http.Request) {
	cookie, err := request.Cookie(constants.RefreshTokenCookieName)
	if err != nil || cookie.Value == "" {
		respond.Error(writer, request, apperr.Unauthorized("Missing refresh token"))
		return
	}

	session, err := handler.authService.Refresh(request.Context(), cookie.Value)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	handler.setRefreshCookie(writer, session)

	respond.OK(writer, map[string]any{
		"access_token": session.AccessToken,
		"account":      session.Account,
	})
}

/*
POST /api/v1/auth/logout.

Description: Revokes the refresh session (if any) and clears the cookie.

Response:
  - 204: No Content: Session terminated
*/
func (handler *Handler) logout(writer http.ResponseWriter, request *http.Request) {
	cookie, err := request.Cookie(constants.RefreshTokenCookieName)

	if err == nil && cookie.Value != "" {
		_ = handler.authService.Logout(request.Context(), cookie.Value)
	}

	handler.clearRefreshCookie(writer)
	respond.NoContent(writer)
}

// # Confirmation

/*
POST /api/v1/auth/confirm.

Description: Confirms the authenticated member's email with the token from
the confirmation link. The token must belong to the caller.

Request:
  - body: confirmRequest

Response:
  - 200: {"confirmed": true}
  - 401: ErrUnauthorized: Authentication required
  - 422: ErrUnprocessable: Invalid, expired, or foreign token
*/
func (handler *Handler) confirm(writer http.ResponseWriter, request *http.Request) {
	accountID, err := requestutil.RequiredUserID(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	var input confirmRequest
	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}

	validator := &validate.Validator{}
	validator.Required(FieldToken, input.Token)
	if err := validator.Err(); err != nil {
		respond.Error(writer, request, err)
		return
	}

	acct, err := handler.accountService.GetByID(request.Context(), accountID)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	if !handler.accountService.Confirm(request.Context(), acct, input.Token) {
		respond.Error(writer, request, apperr.Unprocessable("Invalid or expired confirmation token"))
		return
	}

	respond.OK(writer, map[string]any{"confirmed": true})
}

/*
POST /api/v1/auth/resend-confirmation.

Description: Emails a fresh confirmation token to the authenticated member.
A no-op when the account is already confirmed.

Response:
  - 202: Accepted
  - 401: ErrUnauthorized: Authentication required
*/
func (handler *Handler) resendConfirmation(writer http.ResponseWriter, request *http.Request) {
	accountID, err := requestutil.RequiredUserID(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	if err := handler.accountService.ResendConfirmation(request.Context(), accountID); err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.JSON(writer, http.StatusAccepted, map[string]any{"sent": true})
}

// # Recovery

/*
POST /api/v1/auth/forgot-password.

Description: Emails a reset token if the address is registered. The response
is identical for unknown addresses so the endpoint cannot enumerate emails.

Request:
  - body: forgotPasswordRequest

Response:
  - 202: Accepted (always, for known and unknown addresses alike)
*/
func (handler *Handler) forgotPassword(writer http.ResponseWriter, request *http.Request) {
	var input forgotPasswordRequest

	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}

	validator := &validate.Validator{}
	validator.Required(FieldEmail, input.Email).Email(FieldEmail, input.Email)
	if err := validator.Err(); err != nil {
		respond.Error(writer, request, err)
		return
	}

	if err := handler.accountService.RequestPasswordReset(request.Context(), input.Email); err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.JSON(writer, http.StatusAccepted, map[string]any{"sent": true})
}

/*
POST /api/v1/auth/reset-password.

Description: Sets a new password for the account identified by a valid reset
token. No prior authentication is required.

Request:
  - body: resetPasswordRequest

Response:
  - 200: {"reset": true}
  - 422: ErrUnprocessable: Invalid or expired reset token
*/
func (handler *Handler) resetPassword(writer http.ResponseWriter, request *http.Request) {
	var input resetPasswordRequest

	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}

	validator := &validate.Validator{}
	validator.Required(FieldToken, input.Token).
		Required(FieldPassword, input.Password).
		MinLen(FieldPassword, input.Password, 8)

	if err := validator.Err(); err != nil {
		respond.Error(writer, request, err)
		return
	}

	if !handler.accountService.ResetPassword(request.Context(), input.Token, input.Password) {
		respond.Error(writer, request, apperr.Unprocessable("Invalid or expired reset token"))
		return
	}

	respond.OK(writer, map[string]any{"reset": true})
}

/*
POST /api/v1/auth/change-password.

Description: Replaces the authenticated member's password after verifying
the current one.

Request:
  - body: changePasswordRequest

Response:
  - 204: No Content
  - 401: ErrUnauthorized: Wrong current password
*/
func (handler *Handler) changePassword(writer http.ResponseWriter, request *http.Request) {
	accountID, err := requestutil.RequiredUserID(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	var input changePasswordRequest
	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}

	validator := &validate.Validator{}
	validator.Required(FieldCurrentPassword, input.CurrentPassword).
		Required(FieldNewPassword, input.NewPassword).
		MinLen(FieldNewPassword, input.NewPassword, 8)

	if err := validator.Err(); err != nil {
		respond.Error(writer, request, err)
		return
	}

	if err := handler.accountService.ChangePassword(request.Context(), accountID, input.CurrentPassword, input.NewPassword); err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.NoContent(writer)
}

// # Cookie Helpers

func (handler *Handler) setRefreshCookie(writer http.ResponseWriter, session *LoginSession) {
	http.SetCookie(writer, &http.Cookie{
		Name:     constants.RefreshTokenCookieName,
		Value:    session.RefreshToken,
		Path:     constants.RefreshTokenCookiePath,
		Expires:  session.RefreshTokenExpiresAt,
		Secure:   true,
		HttpOnly: true,
		SameSite: http.SameSiteStrictMode,
	})
}

func (handler *Handler) clearRefreshCookie(writer http.ResponseWriter) {
	http.SetCookie(writer, &http.Cookie{
		Name:     constants.RefreshTokenCookieName,
		Value:    "",
		Path:     constants.RefreshTokenCookiePath,
		MaxAge:   -1,
		Secure:   true,
		HttpOnly: true,
		SameSite: http.SameSiteStrictMode,
	})
}
