package post

import (
	"context"
	"time"

	"github.com/taibuivan/plumeria/pkg/pagination"
)

// Post is a single published entry in the member feed.
type Post struct {
	ID             string    `json:"id"`
	AuthorID       string    `json:"author_id"`
	AuthorUsername string    `json:"author_username"`
	Body           string    `json:"body"`
	CreatedAt      time.Time `json:"created_at"`
}

// Repository defines the persistence contract for posts.
type Repository interface {
	// Create persists a new post.
	Create(ctx context.Context, p *Post) error

	// FindByID retrieves a single post. Returns apperr.NotFound on miss.
	FindByID(ctx context.Context, id string) (*Post, error)

	// List returns a page of the global feed, newest first, plus the total count.
	List(ctx context.Context, params pagination.Params) ([]Post, int, error)

	// ListByAuthor returns a page of one member's posts, newest first.
	ListByAuthor(ctx context.Context, authorID string, params pagination.Params) ([]Post, int, error)
}
