package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"essay-coach-be/internal/entity"
	"essay-coach-be/internal/pkg/logger"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// RedisListCache shares listings between instances. Redis failures degrade to
// cache misses.
type RedisListCache struct {
	client *redis.Client
	ttl    time.Duration
	logger logger.ILogger
}

func NewRedisListCache(client *redis.Client, ttl time.Duration, log logger.ILogger) *RedisListCache {
	return &RedisListCache{client: client, ttl: ttl, logger: log}
}

func versionKey(userID uuid.UUID) string {
	return fmt.Sprintf("conversations:%s:version", userID)
}

func (c *RedisListCache) Version(ctx context.Context, userID uuid.UUID) uint64 {
	v, err := c.client.Get(ctx, versionKey(userID)).Uint64()
	if err != nil && !errors.Is(err, redis.Nil) {
		c.logger.Warn("CACHE", "Failed to read listing version", map[string]interface{}{"user_id": userID.String(), "error": err.Error()})
	}
	return v
}

func (c *RedisListCache) Get(ctx context.Context, userID uuid.UUID, version uint64, page, size int) (*entity.ConversationPage, bool) {
	raw, err := c.client.Get(ctx, entryKey(userID, version, page, size)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.logger.Warn("CACHE", "Failed to read listing", map[string]interface{}{"user_id": userID.String(), "error": err.Error()})
		}
		return nil, false
	}
	var value entity.ConversationPage
	if err := json.Unmarshal(raw, &value); err != nil {
		return nil, false
	}
	return &value, true
}

func (c *RedisListCache) Set(ctx context.Context, userID uuid.UUID, version uint64, page, size int, value *entity.ConversationPage) {
	if value == nil {
		return
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, entryKey(userID, version, page, size), raw, c.ttl).Err(); err != nil {
		c.logger.Warn("CACHE", "Failed to store listing", map[string]interface{}{"user_id": userID.String(), "error": err.Error()})
	}
}

// Invalidate bumps the version; entries of older versions expire by TTL.
func (c *RedisListCache) Invalidate(ctx context.Context, userID uuid.UUID) {
	if err := c.client.Incr(ctx, versionKey(userID)).Err(); err != nil {
		c.logger.Error("CACHE", "Failed to invalidate listings", map[string]interface{}{"user_id": userID.String(), "error": err.Error()})
	}
}
