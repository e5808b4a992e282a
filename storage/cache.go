package storage

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"kanban-api/board"
	"kanban-api/domain"
)

type backend interface {
	FetchWorkspace(ctx context.Context, workspaceID string) (domain.Workspace, error)
	FetchColumns(ctx context.Context, workspaceID string) ([]domain.Column, error)
	FetchCards(ctx context.Context, workspaceID string) ([]domain.Card, error)
	FetchUsers(ctx context.Context, ids []string) (map[string]domain.User, error)
	ApplyPlan(ctx context.Context, workspaceID string, plan board.Plan) error
	DeleteCard(ctx context.Context, workspaceID, cardID string) error
}

// Cache wraps a Storage instance with Redis-backed caching of each
// workspace's column and card sets. Any board mutation evicts the workspace.
// Workspace and user records are small point reads and stay uncached.
type Cache struct {
	base  backend
	redis *redis.Client
	ttl   time.Duration
}

// NewCache creates a caching wrapper using the provided Redis client and TTL.
func NewCache(base backend, client *redis.Client, ttl time.Duration) *Cache {
	if base == nil {
		panic("storage.NewCache: base storage is nil")
	}
	if ttl < 0 {
		ttl = 0
	}
	return &Cache{base: base, redis: client, ttl: ttl}
}

func (c *Cache) FetchWorkspace(ctx context.Context, workspaceID string) (domain.Workspace, error) {
	return c.base.FetchWorkspace(ctx, workspaceID)
}

func (c *Cache) FetchUsers(ctx context.Context, ids []string) (map[string]domain.User, error) {
	return c.base.FetchUsers(ctx, ids)
}

func (c *Cache) FetchColumns(ctx context.Context, workspaceID string) ([]domain.Column, error) {
	key := columnsCacheKey(workspaceID)
	var cached []domain.Column
	if c.load(ctx, key, &cached) {
		return cached, nil
	}
	columns, err := c.base.FetchColumns(ctx, workspaceID)
	if err != nil {
		return nil, err
	}
	c.store(ctx, key, columns)
	return columns, nil
}

func (c *Cache) FetchCards(ctx context.Context, workspaceID string) ([]domain.Card, error) {
	key := cardsCacheKey(workspaceID)
	var cached []domain.Card
	if c.load(ctx, key, &cached) {
		return cached, nil
	}
	cards, err := c.base.FetchCards(ctx, workspaceID)
	if err != nil {
		return nil, err
	}
	c.store(ctx, key, cards)
	return cards, nil
}

func (c *Cache) ApplyPlan(ctx context.Context, workspaceID string, plan board.Plan) error {
	err := c.base.ApplyPlan(ctx, workspaceID, plan)
	if err == nil || isPartialApply(err) {
		// Evict even on partial application: some mutations landed.
		c.evict(ctx, workspaceID)
	}
	return err
}

func (c *Cache) DeleteCard(ctx context.Context, workspaceID, cardID string) error {
	if err := c.base.DeleteCard(ctx, workspaceID, cardID); err != nil {
		return err
	}
	c.evict(ctx, workspaceID)
	return nil
}

func (c *Cache) load(ctx context.Context, key string, dst any) bool {
	if c.redis == nil {
		return false
	}
	data, err := c.redis.Get(ctx, key).Bytes()
	if err != nil {
		if err != redis.Nil {
			// On redis errors fall back to the backing storage without failing.
			_ = c.redis.Del(ctx, key).Err()
		}
		return false
	}
	if err := json.Unmarshal(data, dst); err != nil {
		_ = c.redis.Del(ctx, key).Err()
		return false
	}
	return true
}

func (c *Cache) store(ctx context.Context, key string, value any) {
	if c.redis == nil || c.ttl == 0 {
		return
	}
	data, err := json.Marshal(value)
	if err != nil {
		return
	}
	_ = c.redis.Set(ctx, key, data, c.ttl).Err()
}

func (c *Cache) evict(ctx context.Context, workspaceID string) {
	if c.redis == nil {
		return
	}
	_, _ = c.redis.Del(ctx, columnsCacheKey(workspaceID), cardsCacheKey(workspaceID)).Result()
}

func isPartialApply(err error) bool {
	var pae board.PartialApplyError
	return errors.As(err, &pae)
}

func columnsCacheKey(workspaceID string) string {
	return "columns:" + workspaceID
}

func cardsCacheKey(workspaceID string) string {
	return "cards:" + workspaceID
}
