// Copyright (c) 2026 Plumeria. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package post

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/taibuivan/plumeria/internal/platform/middleware"
	requestutil "github.com/taibuivan/plumeria/internal/platform/request"
	"github.com/taibuivan/plumeria/internal/platform/respond"
	"github.com/taibuivan/plumeria/internal/platform/validate"
	"github.com/taibuivan/plumeria/internal/users/account"
	"github.com/taibuivan/plumeria/pkg/pagination"
)

const fieldBody = "body"

// Handler implements the HTTP layer for the member feed.
type Handler struct {
	postService    *Service
	accountService *account.Service
	feedPerPage    int
}

// NewHandler constructs a new post [Handler].
//
// feedPerPage is the configured default page size for feed listings.
func NewHandler(postService *Service, accountService *account.Service, feedPerPage int) *Handler {
	return &Handler{
		postService:    postService,
		accountService: accountService,
		feedPerPage:    feedPerPage,
	}
}

// Routes returns a [chi.Router] configured with the feed endpoints.
func (handler *Handler) Routes() chi.Router {
	router := chi.NewRouter()

	router.Get("/", handler.feed)
	router.Get("/author/{username}", handler.authorFeed)
	router.Get("/{id}", handler.getByID)

	router.Group(func(r chi.Router) {
		r.Use(middleware.RequireAuth)
		r.Post("/", handler.create)
	})

	return router
}

// createRequest defines the payload for publishing a post.
type createRequest struct {
	Body string `json:"body"`
}

/*
POST /api/v1/posts.

Description: Publishes a new post as the authenticated member. The member's
role must grant the Write capability; the check runs against the freshly
loaded account, not the token claims, so a role downgrade applies instantly.

Request:
  - body: createRequest

Response:
  - 201: Post: The published entry
  - 401: ErrUnauthorized: Authentication required
  - 403: ErrForbidden: Role lacks the Write capability
*/
func (handler *Handler) create(writer http.ResponseWriter, request *http.Request) {
	accountID, err := requestutil.RequiredUserID(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	var input createRequest
	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}

	validator := &validate.Validator{}
	validator.Required(fieldBody, input.Body).MaxLen(fieldBody, input.Body, 10000)
	if err := validator.Err(); err != nil {
		respond.Error(writer, request, err)
		return
	}

	actor, err := handler.accountService.GetByID(request.Context(), accountID)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	published, err := handler.postService.Create(request.Context(), actor, input.Body)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.Created(writer, published)
}

/*
GET /api/v1/posts.

Description: The global feed, newest first, paginated.

Response:
  - 200: []Post with pagination metadata
*/
func (handler *Handler) feed(writer http.ResponseWriter, request *http.Request) {
	params := pagination.FromRequest(request, handler.feedPerPage)

	posts, meta, err := handler.postService.Feed(request.Context(), params)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.Paginated(writer, posts, meta)
}

/*
GET /api/v1/posts/author/{username}.

Description: One member's posts for the public user page, newest first.

Response:
  - 200: []Post with pagination metadata
  - 404: ErrNotFound: Unknown username
*/
func (handler *Handler) authorFeed(writer http.ResponseWriter, request *http.Request) {
	username := requestutil.Param(request, "username")

	author, err := handler.accountService.GetByUsername(request.Context(), username)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	params := pagination.FromRequest(request, handler.feedPerPage)

	posts, meta, err := handler.postService.AuthorFeed(request.Context(), author.ID, params)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.Paginated(writer, posts, meta)
}

/*
GET /api/v1/posts/{id}.

Response:
  - 200: Post
  - 404: ErrNotFound: Unknown post
*/
func (handler *Handler) getByID(writer http.ResponseWriter, request *http.Request) {
	id := requestutil.Param(request, "id")

	validator := &validate.Validator{}
	validator.UUID("id", id)
	if err := validator.Err(); err != nil {
		respond.Error(writer, request, err)
		return
	}

	found, err := handler.postService.GetByID(request.Context(), id)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, found)
}
