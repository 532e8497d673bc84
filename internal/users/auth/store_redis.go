// Copyright (c) 2026 Plumeria. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/taibuivan/plumeria/internal/platform/apperr"
	"github.com/taibuivan/plumeria/internal/platform/constants"
)

// # Session Repository

// RedisSessionRepository implements [SessionRepository] using Redis.
//
// Expiry is delegated entirely to Redis TTLs: an expired session simply
// disappears, so no sweeper process is needed.
type RedisSessionRepository struct {
	client *redis.Client
}

// NewSessionRepository creates a new Redis-backed [SessionRepository].
func NewSessionRepository(client *redis.Client) *RedisSessionRepository {
	return &RedisSessionRepository{client: client}
}

/*
Save stores a refresh session under its token hash.

Parameters:
  - context: context.Context
  - tokenHash: string (SHA-256 hex of the refresh token)
  - accountID: string
  - ttl: time.Duration

Returns:
  - error: Execution errors
*/
func (repository *RedisSessionRepository) Save(context context.Context, tokenHash, accountID string, ttl time.Duration) error {
	key := constants.RedisPrefixSession + tokenHash

	if err := repository.client.Set(context, key, accountID, ttl).Err(); err != nil {
		return fmt.Errorf("redis_session_save_failed: %w", err)
	}

	return nil
}

/*
Find resolves a token hash to the owning account ID.

Description: Returns apperr.NotFound when the session is absent — which
covers both never-issued and TTL-expired tokens.

Parameters:
  - context: context.Context
  - tokenHash: string

Returns:
  - string: Owning account ID
  - error: apperr.NotFound or connectivity errors
*/
func (repository *RedisSessionRepository) Find(context context.Context, tokenHash string) (string, error) {
	key := constants.RedisPrefixSession + tokenHash

	accountID, err := repository.client.Get(context, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", apperr.NotFound("Session")
		}
		return "", fmt.Errorf("redis_session_find_failed: %w", err)
	}

	return accountID, nil
}

/*
Delete removes a refresh session. Absent keys are not an error.

Parameters:
  - context: context.Context
  - tokenHash: string

Returns:
  - error: Execution errors
*/
func (repository *RedisSessionRepository) Delete(context context.Context, tokenHash string) error {
	key := constants.RedisPrefixSession + tokenHash

	if err := repository.client.Del(context, key).Err(); err != nil {
		return fmt.Errorf("redis_session_delete_failed: %w", err)
	}

	return nil
}
