package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/ayush/nimi-blog/backend/internal/models"
)

// NewRedisClient creates and pings a Redis client with optional password auth.
func NewRedisClient(ctx context.Context, addr, password string) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, err
	}
	return rdb, nil
}

// StatsCache keeps engagement tallies in Redis for a short TTL.
type StatsCache struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewStatsCache(rdb *redis.Client, ttl time.Duration) *StatsCache {
	return &StatsCache{rdb: rdb, ttl: ttl}
}

func statsKey(user primitive.ObjectID) string {
	return "stats:" + user.Hex()
}

// Get returns the cached tally, or nil on a miss.
func (c *StatsCache) Get(ctx context.Context, user primitive.ObjectID) (*models.EngagementTally, error) {
	raw, err := c.rdb.Get(ctx, statsKey(user)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("redis get stats: %w", err)
	}
	var t models.EngagementTally
	if err := json.Unmarshal(raw, &t); err != nil {
		return nil, fmt.Errorf("decode cached stats: %w", err)
	}
	return &t, nil
}

func (c *StatsCache) Set(ctx context.Context, user primitive.ObjectID, t *models.EngagementTally) error {
	raw, err := json.Marshal(t)
	if err != nil {
		return err
	}
	return c.rdb.Set(ctx, statsKey(user), raw, c.ttl).Err()
}

// Invalidate drops the cached tallies of users.
func (c *StatsCache) Invalidate(ctx context.Context, users ...primitive.ObjectID) error {
	if len(users) == 0 {
		return nil
	}
	keys := make([]string, len(users))
	for i, u := range users {
		keys[i] = statsKey(u)
	}
	return c.rdb.Del(ctx, keys...).Err()
}
