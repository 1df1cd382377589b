package store

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ignite/newsletter/internal/domain"
	"github.com/ignite/newsletter/internal/pkg/logger"
)

const postsCacheKey = "newsletter:posts"

// CachedPosts is a read-through cache in front of PostStore.FindAll. The
// Redis client may be nil, in which case every read hits Postgres. Cache
// failures degrade to database reads and are never surfaced to callers.
type CachedPosts struct {
	store *PostStore
	rdb   *redis.Client
	ttl   time.Duration
}

// NewCachedPosts wraps a post store with an optional Redis cache.
func NewCachedPosts(store *PostStore, rdb *redis.Client, ttl time.Duration) *CachedPosts {
	return &CachedPosts{store: store, rdb: rdb, ttl: ttl}
}

// List returns all published posts, newest first, serving from Redis when a
// fresh entry exists.
func (c *CachedPosts) List(ctx context.Context) ([]*domain.Post, error) {
	if c.rdb != nil {
		data, err := c.rdb.Get(ctx, postsCacheKey).Bytes()
		if err == nil {
			var posts []*domain.Post
			if json.Unmarshal(data, &posts) == nil {
				return posts, nil
			}
		} else if err != redis.Nil {
			logger.Debug("posts cache read failed", "error", err)
		}
	}

	posts, err := c.store.FindAll(ctx)
	if err != nil {
		return nil, err
	}

	if c.rdb != nil {
		if data, err := json.Marshal(posts); err == nil {
			if err := c.rdb.Set(ctx, postsCacheKey, data, c.ttl).Err(); err != nil {
				logger.Debug("posts cache write failed", "error", err)
			}
		}
	}
	return posts, nil
}

// Invalidate drops the cached listing. Called after every successful publish
// so the new post shows up immediately.
func (c *CachedPosts) Invalidate(ctx context.Context) {
	if c.rdb == nil {
		return
	}
	if err := c.rdb.Del(ctx, postsCacheKey).Err(); err != nil {
		logger.Warn("posts cache invalidation failed", "error", err)
	}
}
