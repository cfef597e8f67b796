package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/kseleznyov/spacebooking/config"
	"github.com/kseleznyov/spacebooking/internal/domain"
)

type RedisCache struct {
	client    *redis.Client
	searchTTL time.Duration
}

func NewRedisCache(cfg config.RedisConfig, searchTTL time.Duration) *RedisCache {
	return &RedisCache{
		client:    redis.NewClient(&redis.Options{Addr: cfg.Addr, Password: cfg.Password, DB: cfg.DB}),
		searchTTL: searchTTL,
	}
}

// AcquireSlotLock serializes check-then-write sequences for one (space, date)
// pair. Best effort: the database exclusion constraint is the hard guarantee;
// the lock just keeps concurrent creators from both doing the work.
func (c *RedisCache) AcquireSlotLock(ctx context.Context, spaceID string, date time.Time, ttl time.Duration) (bool, error) {
	return c.client.SetNX(ctx, slotLockKey(spaceID, date), "locked", ttl).Result()
}

func (c *RedisCache) ReleaseSlotLock(ctx context.Context, spaceID string, date time.Time) error {
	return c.client.Del(ctx, slotLockKey(spaceID, date)).Err()
}

func (c *RedisCache) GetSearchResults(ctx context.Context, key string) ([]domain.SpaceSearchRow, error) {
	data, err := c.client.Get(ctx, searchKey(key)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, err
	}

	var rows []domain.SpaceSearchRow
	if err := json.Unmarshal(data, &rows); err != nil {
		return nil, err
	}
	return rows, nil
}

func (c *RedisCache) SetSearchResults(ctx context.Context, key string, rows []domain.SpaceSearchRow) error {
	payload, err := json.Marshal(rows)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, searchKey(key), payload, c.searchTTL).Err()
}

func slotLockKey(spaceID string, date time.Time) string {
	return fmt.Sprintf("lock:space:%s:%s", spaceID, date.Format(domain.DateFormat))
}

func searchKey(key string) string {
	return "cache:search:" + key
}
