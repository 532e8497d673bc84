// Copyright (c) 2026 Plumeria. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package post

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/plumeria/internal/platform/apperr"
	"github.com/taibuivan/plumeria/internal/users/account"
	"github.com/taibuivan/plumeria/internal/users/role"
	"github.com/taibuivan/plumeria/pkg/pagination"
)

// memoryRepository is an in-memory [Repository].
type memoryRepository struct {
	posts []Post
}

func (m *memoryRepository) Create(_ context.Context, p *Post) error {
	m.posts = append(m.posts, *p)
	return nil
}

func (m *memoryRepository) FindByID(_ context.Context, id string) (*Post, error) {
	for _, p := range m.posts {
		if p.ID == id {
			found := p
			return &found, nil
		}
	}
	return nil, apperr.NotFound("Post")
}

func (m *memoryRepository) List(_ context.Context, params pagination.Params) ([]Post, int, error) {
	return paginate(m.newestFirst(), params)
}

func (m *memoryRepository) ListByAuthor(_ context.Context, authorID string, params pagination.Params) ([]Post, int, error) {
	var byAuthor []Post
	for _, p := range m.newestFirst() {
		if p.AuthorID == authorID {
			byAuthor = append(byAuthor, p)
		}
	}
	return paginate(byAuthor, params)
}

func (m *memoryRepository) newestFirst() []Post {
	sorted := append([]Post(nil), m.posts...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].CreatedAt.After(sorted[j].CreatedAt) })
	return sorted
}

func paginate(posts []Post, params pagination.Params) ([]Post, int, error) {
	total := len(posts)
	start := params.Offset()
	if start > total {
		return nil, total, nil
	}
	end := start + params.Limit
	if end > total {
		end = total
	}
	return posts[start:end], total, nil
}

func newTestService() (*Service, *memoryRepository) {
	repo := &memoryRepository{}
	return NewService(repo, slog.New(slog.NewTextHandler(io.Discard, nil))), repo
}

func writer() *account.Account {
	return &account.Account{
		ID:          "author-1",
		Username:    "john",
		RoleName:    role.NameUser,
		Permissions: role.PermFollow | role.PermComment | role.PermWrite,
	}
}

func TestService_Create(t *testing.T) {
	service, repo := newTestService()

	published, err := service.Create(context.Background(), writer(), "body of the post")
	require.NoError(t, err)

	assert.NotEmpty(t, published.ID)
	assert.Equal(t, "author-1", published.AuthorID)
	assert.Equal(t, "john", published.AuthorUsername)
	assert.Len(t, repo.posts, 1)
}

func TestService_Create_RequiresWriteCapability(t *testing.T) {
	service, repo := newTestService()

	reader := &account.Account{
		ID:          "reader-1",
		RoleName:    role.NameUser,
		Permissions: role.PermFollow | role.PermComment,
	}

	_, err := service.Create(context.Background(), reader, "should not publish")

	require.Error(t, err)
	appErr := apperr.As(err)
	require.NotNil(t, appErr)
	assert.Equal(t, "FORBIDDEN", appErr.Code)
	assert.Empty(t, repo.posts)
}

func TestService_Create_AnonymousForbidden(t *testing.T) {
	service, _ := newTestService()

	_, err := service.Create(context.Background(), account.Anonymous(), "nope")
	assert.Error(t, err)
}

func TestService_Feed_PaginationMeta(t *testing.T) {
	service, _ := newTestService()
	author := writer()

	for i := 0; i < 10; i++ {
		_, err := service.Create(context.Background(), author, fmt.Sprintf("post %d", i))
		require.NoError(t, err)
	}

	posts, meta, err := service.Feed(context.Background(), pagination.Params{Page: 2, Limit: 7})
	require.NoError(t, err)

	assert.Len(t, posts, 3, "second page of 10 items at 7 per page holds 3")
	assert.Equal(t, 10, meta.Total)
	assert.Equal(t, 2, meta.TotalPages)
	assert.Equal(t, 7, meta.Limit)
}

func TestService_Feed_NewestFirst(t *testing.T) {
	service, repo := newTestService()
	author := writer()

	base := time.Now()
	for i := 0; i < 3; i++ {
		_, err := service.Create(context.Background(), author, fmt.Sprintf("post %d", i))
		require.NoError(t, err)
		repo.posts[i].CreatedAt = base.Add(time.Duration(i) * time.Second)
	}

	posts, _, err := service.Feed(context.Background(), pagination.Params{Page: 1, Limit: 10})
	require.NoError(t, err)

	require.Len(t, posts, 3)
	assert.Equal(t, "post 2", posts[0].Body)
	assert.Equal(t, "post 0", posts[2].Body)
}

func TestService_AuthorFeed_FiltersByAuthor(t *testing.T) {
	service, _ := newTestService()

	john := writer()
	susan := &account.Account{
		ID:          "author-2",
		Username:    "susan",
		RoleName:    role.NameUser,
		Permissions: role.PermWrite,
	}

	for i := 0; i < 4; i++ {
		_, err := service.Create(context.Background(), john, "by john")
		require.NoError(t, err)
	}
	_, err := service.Create(context.Background(), susan, "by susan")
	require.NoError(t, err)

	posts, meta, err := service.AuthorFeed(context.Background(), john.ID, pagination.Params{Page: 1, Limit: 10})
	require.NoError(t, err)

	assert.Len(t, posts, 4)
	assert.Equal(t, 4, meta.Total)
	for _, p := range posts {
		assert.Equal(t, john.ID, p.AuthorID)
	}
}
