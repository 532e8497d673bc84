// Copyright (c) 2026 Plumeria. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package post

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/taibuivan/plumeria/internal/platform/apperr"
	"github.com/taibuivan/plumeria/pkg/pagination"
)

// PostgresRepository implements [Repository] using pgx.
//
// Reads join users.account so every row carries the author's username.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository creates a new Postgres implementation of the post store.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

func (repository *PostgresRepository) Create(ctx context.Context, p *Post) error {
	query := `
		INSERT INTO blog.post (id, authorid, body, createdat)
		VALUES ($1, $2, $3, $4)`

	_, err := repository.pool.Exec(ctx, query, p.ID, p.AuthorID, p.Body, p.CreatedAt)
	if err != nil {
		return fmt.Errorf("postgres_post_repo_create_failed: %w", err)
	}

	return nil
}

func (repository *PostgresRepository) FindByID(ctx context.Context, id string) (*Post, error) {
	query := `
		SELECT p.id, p.authorid, a.username, p.body, p.createdat
		FROM blog.post p
		JOIN users.account a ON a.id = p.authorid
		WHERE p.id = $1`

	p := &Post{}
	err := repository.pool.QueryRow(ctx, query, id).Scan(
		&p.ID, &p.AuthorID, &p.AuthorUsername, &p.Body, &p.CreatedAt,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("Post")
		}
		return nil, fmt.Errorf("postgres_post_repo_find_failed: %w", err)
	}

	return p, nil
}

func (repository *PostgresRepository) List(ctx context.Context, params pagination.Params) ([]Post, int, error) {
	query := `
		SELECT p.id, p.authorid, a.username, p.body, p.createdat, COUNT(*) OVER() AS total
		FROM blog.post p
		JOIN users.account a ON a.id = p.authorid
		ORDER BY p.createdat DESC
		LIMIT $1 OFFSET $2`

	return repository.listPage(ctx, query, params.Limit, params.Offset())
}

func (repository *PostgresRepository) ListByAuthor(ctx context.Context, authorID string, params pagination.Params) ([]Post, int, error) {
	query := `
		SELECT p.id, p.authorid, a.username, p.body, p.createdat, COUNT(*) OVER() AS total
		FROM blog.post p
		JOIN users.account a ON a.id = p.authorid
		WHERE p.authorid = $3
		ORDER BY p.createdat DESC
		LIMIT $1 OFFSET $2`

	return repository.listPage(ctx, query, params.Limit, params.Offset(), authorID)
}

// listPage runs a feed query carrying a windowed total column.
func (repository *PostgresRepository) listPage(ctx context.Context, query string, args ...any) ([]Post, int, error) {
	rows, err := repository.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("postgres_post_repo_list_failed: %w", err)
	}
	defer rows.Close()

	var posts []Post
	total := 0
	for rows.Next() {
		var p Post
		if err := rows.Scan(&p.ID, &p.AuthorID, &p.AuthorUsername, &p.Body, &p.CreatedAt, &total); err != nil {
			return nil, 0, fmt.Errorf("postgres_post_repo_list_scan_failed: %w", err)
		}
		posts = append(posts, p)
	}

	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("postgres_post_repo_list_rows_failed: %w", err)
	}

	return posts, total, nil
}
