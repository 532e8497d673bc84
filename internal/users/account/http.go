// Copyright (c) 2026 Plumeria. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package account

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/taibuivan/plumeria/internal/platform/middleware"
	requestutil "github.com/taibuivan/plumeria/internal/platform/request"
	"github.com/taibuivan/plumeria/internal/platform/respond"
	"github.com/taibuivan/plumeria/internal/platform/validate"
	"github.com/taibuivan/plumeria/internal/users/role"
	"github.com/taibuivan/plumeria/pkg/slice"
)

// Validated field names for this handler's payloads.
const (
	fieldEmail       = "email"
	fieldUsername    = "username"
	fieldPassword    = "password"
	fieldDisplayName = "display_name"
	fieldLocation    = "location"
	fieldBio         = "bio"
	fieldRole        = "role"
)

// Avatar rendering defaults for API responses.
const (
	avatarSize   = 256
	avatarStyle  = "retro"
	avatarRating = "pg"
)

// Handler implements the HTTP layer for member accounts.
type Handler struct {
	accountService *Service
	catalog        *role.Catalog
}

// NewHandler constructs a new account [Handler].
func NewHandler(service *Service, catalog *role.Catalog) *Handler {
	return &Handler{accountService: service, catalog: catalog}
}

// Routes returns a [chi.Router] configured with the account domain's endpoints.
func (handler *Handler) Routes() chi.Router {
	router := chi.NewRouter()

	// Public member page
	router.Get("/{username}", handler.getByUsername)

	// Self-service endpoints
	router.Group(func(r chi.Router) {
		r.Use(middleware.RequireAuth)
		r.Get("/me", handler.getMe)
		r.Patch("/me", handler.updateMe)
		r.Put("/me/email", handler.changeEmail)
	})

	// Administration
	router.Group(func(r chi.Router) {
		r.Use(middleware.RequirePermission(handler.catalog, role.PermAdminister))
		r.Get("/roles", handler.listRoles)
		r.Patch("/{id}", handler.adminUpdate)
	})

	return router
}

// # Response Mapping

// accountResponse is the transport view of an [Account], extended with the
// rendered avatar URL.
type accountResponse struct {
	*Account
	AvatarURL string `json:"avatar_url"`
}

func toResponse(account *Account) accountResponse {
	return accountResponse{
		Account:   account,
		AvatarURL: account.Gravatar(avatarSize, avatarStyle, avatarRating),
	}
}

// # Public Endpoints

/*
GET /api/v1/users/{username}.

Description: Public member page lookup by username.

Response:
  - 200: accountResponse: Public profile
  - 404: ErrNotFound: Unknown username
*/
func (handler *Handler) getByUsername(writer http.ResponseWriter, request *http.Request) {
	username := requestutil.Param(request, "username")

	account, err := handler.accountService.GetByUsername(request.Context(), username)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, toResponse(account))
}

// # Self-Service Endpoints

/*
GET /api/v1/users/me.

Description: Retrieves the full private profile of the authenticated member.

Response:
  - 200: accountResponse: Fully hydrated profile
  - 401: ErrUnauthorized: Authentication required
*/
func (handler *Handler) getMe(writer http.ResponseWriter, request *http.Request) {
	accountID, err := requestutil.RequiredUserID(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	account, err := handler.accountService.GetByID(request.Context(), accountID)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, toResponse(account))
}

// updateMeRequest defines the expected JSON payload for self profile edits.
type updateMeRequest struct {
	DisplayName *string `json:"display_name"`
	Location    *string `json:"location"`
	Bio         *string `json:"bio"`
}

/*
PATCH /api/v1/users/me.

Description: Applies partial updates to the authenticated member's profile.

Request:
  - body: updateMeRequest (Partial JSON)

Response:
  - 200: accountResponse: The updated profile
  - 400: ErrInvalidJSON/Validation: Invalid input data
  - 401: ErrUnauthorized: Authentication required
*/
func (handler *Handler) updateMe(writer http.ResponseWriter, request *http.Request) {
	accountID, err := requestutil.RequiredUserID(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	var input updateMeRequest
	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}

	validator := &validate.Validator{}
	if input.DisplayName != nil {
		validator.MaxLen(fieldDisplayName, *input.DisplayName, 64)
	}
	if input.Location != nil {
		validator.MaxLen(fieldLocation, *input.Location, 64)
	}
	if input.Bio != nil {
		validator.MaxLen(fieldBio, *input.Bio, 500)
	}

	if err := validator.Err(); err != nil {
		respond.Error(writer, request, err)
		return
	}

	account, err := handler.accountService.UpdateProfile(request.Context(), accountID, UpdateProfileInput{
		DisplayName: input.DisplayName,
		Location:    input.Location,
		Bio:         input.Bio,
	})
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, toResponse(account))
}

// changeEmailRequest defines the payload for moving to a new address.
type changeEmailRequest struct {
	Password string `json:"password"`
	NewEmail string `json:"new_email"`
}

/*
PUT /api/v1/users/me/email.

Description: Moves the authenticated member to a new email address. Requires
the current password; the account becomes unconfirmed until the new address
is verified.

Request:
  - body: changeEmailRequest

Response:
  - 200: accountResponse: The updated profile
  - 401: ErrUnauthorized: Wrong current password
  - 409: ErrConflict: Email already registered
*/
func (handler *Handler) changeEmail(writer http.ResponseWriter, request *http.Request) {
	accountID, err := requestutil.RequiredUserID(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	var input changeEmailRequest
	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}

	validator := &validate.Validator{}
	validator.Required(fieldPassword, input.Password).
		Required(fieldEmail, input.NewEmail).
		Email(fieldEmail, input.NewEmail)

	if err := validator.Err(); err != nil {
		respond.Error(writer, request, err)
		return
	}

	account, err := handler.accountService.ChangeEmail(request.Context(), accountID, input.Password, input.NewEmail)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, toResponse(account))
}

// # Administration Endpoints

// roleResponse is the transport view of a catalog entry.
type roleResponse struct {
	Name        string `json:"name"`
	Permissions int    `json:"permissions"`
	IsDefault   bool   `json:"is_default"`
}

/*
GET /api/v1/users/roles.

Description: Lists the seeded role catalog for the admin edit screen.

Response:
  - 200: []roleResponse
  - 403: ErrForbidden: Missing Administer capability
*/
func (handler *Handler) listRoles(writer http.ResponseWriter, request *http.Request) {
	roles, err := handler.catalog.List(request.Context())
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, slice.Map(roles, func(r role.Role) roleResponse {
		return roleResponse{
			Name:        r.Name,
			Permissions: int(r.Permissions),
			IsDefault:   r.IsDefault,
		}
	}))
}

// adminUpdateRequest defines the payload for administrative profile edits.
type adminUpdateRequest struct {
	Email       *string `json:"email"`
	Username    *string `json:"username"`
	Confirmed   *bool   `json:"confirmed"`
	Role        *string `json:"role"`
	DisplayName *string `json:"display_name"`
	Location    *string `json:"location"`
	Bio         *string `json:"bio"`
}

/*
PATCH /api/v1/users/{id}.

Description: Administrative edit of any account. Requires the Administer
capability. May change identity fields (email, username), the confirmed
flag, and the assigned role in addition to the profile fields.

Request:
  - body: adminUpdateRequest (Partial JSON)

Response:
  - 200: accountResponse: The updated profile
  - 403: ErrForbidden: Missing Administer capability
  - 404: ErrNotFound: Unknown account or role
  - 409: ErrConflict: Email or username already taken
*/
func (handler *Handler) adminUpdate(writer http.ResponseWriter, request *http.Request) {
	accountID := requestutil.Param(request, "id")

	var input adminUpdateRequest
	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}

	validator := &validate.Validator{}
	validator.UUID("id", accountID)
	if input.Email != nil {
		validator.Email(fieldEmail, *input.Email)
	}
	if input.Username != nil {
		validator.Username(fieldUsername, *input.Username)
	}
	if input.Role != nil {
		validator.Required(fieldRole, *input.Role)
	}
	if input.DisplayName != nil {
		validator.MaxLen(fieldDisplayName, *input.DisplayName, 64)
	}
	if input.Location != nil {
		validator.MaxLen(fieldLocation, *input.Location, 64)
	}
	if input.Bio != nil {
		validator.MaxLen(fieldBio, *input.Bio, 500)
	}

	if err := validator.Err(); err != nil {
		respond.Error(writer, request, err)
		return
	}

	account, err := handler.accountService.AdminUpdateProfile(request.Context(), accountID, AdminUpdateInput{
		Email:       input.Email,
		Username:    input.Username,
		Confirmed:   input.Confirmed,
		RoleName:    input.Role,
		DisplayName: input.DisplayName,
		Location:    input.Location,
		Bio:         input.Bio,
	})
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, toResponse(account))
}
