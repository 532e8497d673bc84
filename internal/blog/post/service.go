// Copyright (c) 2026 Plumeria. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package post implements the member feed: short published entries listed
newest-first, globally and per author.

Publishing requires the Write capability. The acting account is always
passed explicitly — the service never reaches into ambient state to decide
who is writing.
*/
package post

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/taibuivan/plumeria/internal/platform/apperr"
	"github.com/taibuivan/plumeria/internal/users/account"
	"github.com/taibuivan/plumeria/internal/users/role"
	"github.com/taibuivan/plumeria/pkg/pagination"
	"github.com/taibuivan/plumeria/pkg/uuid"
)

// Service orchestrates feed business logic.
type Service struct {
	repo   Repository
	logger *slog.Logger
}

// NewService constructs a new post [Service].
func NewService(repo Repository, logger *slog.Logger) *Service {
	return &Service{repo: repo, logger: logger}
}

/*
Create publishes a new post on behalf of the acting account.

Parameters:
  - ctx: context.Context
  - actor: *account.Account (must hold the Write capability)
  - body: string

Returns:
  - *Post: The published entry
  - error: apperr.Forbidden without Write, or storage failures
*/
func (service *Service) Create(ctx context.Context, actor *account.Account, body string) (*Post, error) {
	if !actor.Can(role.PermWrite) {
		return nil, apperr.Forbidden("Publishing requires the Write capability")
	}

	p := &Post{
		ID:             uuid.New(),
		AuthorID:       actor.ID,
		AuthorUsername: actor.Username,
		Body:           body,
		CreatedAt:      time.Now(),
	}

	if err := service.repo.Create(ctx, p); err != nil {
		return nil, fmt.Errorf("post_service_create_failed: %w", err)
	}

	service.logger.Info("post_published",
		slog.String("post_id", p.ID),
		slog.String("author_id", actor.ID),
	)

	return p, nil
}

// GetByID retrieves a single post.
func (service *Service) GetByID(ctx context.Context, id string) (*Post, error) {
	return service.repo.FindByID(ctx, id)
}

// Feed returns a page of the global feed with pagination metadata.
func (service *Service) Feed(ctx context.Context, params pagination.Params) ([]Post, pagination.Meta, error) {
	posts, total, err := service.repo.List(ctx, params)
	if err != nil {
		return nil, pagination.Meta{}, fmt.Errorf("post_service_feed_failed: %w", err)
	}
	return posts, pagination.NewMeta(params.Page, params.Limit, total), nil
}

// AuthorFeed returns a page of one member's posts for the public user page.
func (service *Service) AuthorFeed(ctx context.Context, authorID string, params pagination.Params) ([]Post, pagination.Meta, error) {
	posts, total, err := service.repo.ListByAuthor(ctx, authorID, params)
	if err != nil {
		return nil, pagination.Meta{}, fmt.Errorf("post_service_author_feed_failed: %w", err)
	}
	return posts, pagination.NewMeta(params.Page, params.Limit, total), nil
}
