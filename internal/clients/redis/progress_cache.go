package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"

	"github.com/craftparty/craftparty-backend/internal/logger"
	"github.com/craftparty/craftparty-backend/internal/utils"
)

// ProgressCache is a small read-through cache for project progress
// rollups. It is strictly an optimization: every method is safe to call on
// a nil ProgressCache and reads fall back to the database.
type ProgressCache struct {
	log *logger.Logger
	rdb *goredis.Client
	ttl time.Duration
}

// NewProgressCache connects using REDIS_ADDR; an empty address returns
// (nil, nil) so the caller can run uncached.
func NewProgressCache(log *logger.Logger) (*ProgressCache, error) {
	addr := utils.GetEnv("REDIS_ADDR", "", log)
	if addr == "" {
		return nil, nil
	}
	ttlSeconds := utils.GetEnvAsInt("PROGRESS_CACHE_TTL", 30, log)

	rdb := goredis.NewClient(&goredis.Options{
		Addr:        addr,
		DialTimeout: 5 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	return &ProgressCache{
		log: log.With("service", "ProgressCache"),
		rdb: rdb,
		ttl: time.Duration(ttlSeconds) * time.Second,
	}, nil
}

func progressKey(projectID uuid.UUID) string {
	return "craftparty:progress:" + projectID.String()
}

// Get unmarshals the cached rollup into dest. Returns false on miss or any
// cache error; cache failures never fail a read path.
func (c *ProgressCache) Get(ctx context.Context, projectID uuid.UUID, dest interface{}) bool {
	if c == nil || c.rdb == nil {
		return false
	}
	raw, err := c.rdb.Get(ctx, progressKey(projectID)).Bytes()
	if err != nil {
		if err != goredis.Nil {
			c.log.Warn("Progress cache read failed", "error", err)
		}
		return false
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		c.log.Warn("Progress cache payload corrupt, dropping", "error", err)
		_ = c.rdb.Del(ctx, progressKey(projectID)).Err()
		return false
	}
	return true
}

func (c *ProgressCache) Set(ctx context.Context, projectID uuid.UUID, value interface{}) {
	if c == nil || c.rdb == nil {
		return
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return
	}
	if err := c.rdb.Set(ctx, progressKey(projectID), raw, c.ttl).Err(); err != nil {
		c.log.Warn("Progress cache write failed", "error", err)
	}
}

// Invalidate drops the cached rollup after an accepted contribution.
func (c *ProgressCache) Invalidate(ctx context.Context, projectID uuid.UUID) {
	if c == nil || c.rdb == nil {
		return
	}
	if err := c.rdb.Del(ctx, progressKey(projectID)).Err(); err != nil {
		c.log.Warn("Progress cache invalidation failed", "error", err)
	}
}

func (c *ProgressCache) Close() error {
	if c == nil || c.rdb == nil {
		return nil
	}
	return c.rdb.Close()
}
