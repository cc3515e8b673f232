package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/hotelbridge/liteapi-booking/internal/models"
	"github.com/redis/go-redis/v9"
)

const (
	keyPrefix = "search_cache:"
	// scanDepth bounds how many of the newest entries are inspected per read
	scanDepth = 20
)

// RedisSearchStore keeps cache entries in one sorted set per cache key,
// scored by creation time in milliseconds. Whole keys expire after the stale
// retention window.
type RedisSearchStore struct {
	rdb       *redis.Client
	retention time.Duration
}

// NewRedisSearchStore creates a Redis backed search cache store
func NewRedisSearchStore(rdb *redis.Client, retention time.Duration) *RedisSearchStore {
	if retention <= 0 {
		retention = 24 * time.Hour
	}
	return &RedisSearchStore{rdb: rdb, retention: retention}
}

type storedEntry struct {
	ID        uuid.UUID       `json:"id"`
	Result    json.RawMessage `json:"result"`
	CreatedAt time.Time       `json:"created_at"`
	ExpiresAt time.Time       `json:"expires_at"`
}

func redisKey(cacheKey string) string {
	return keyPrefix + cacheKey
}

// Insert appends an entry and trims entries older than the retention window
func (s *RedisSearchStore) Insert(ctx context.Context, entry *models.CacheEntry) error {
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}

	member, err := json.Marshal(storedEntry{
		ID:        entry.ID,
		Result:    entry.Result,
		CreatedAt: entry.CreatedAt,
		ExpiresAt: entry.ExpiresAt,
	})
	if err != nil {
		return fmt.Errorf("failed to encode cache entry: %w", err)
	}

	key := redisKey(entry.CacheKey)
	cutoff := entry.CreatedAt.Add(-s.retention).UnixMilli()

	pipe := s.rdb.TxPipeline()
	pipe.ZAdd(ctx, key, redis.Z{Score: float64(entry.CreatedAt.UnixMilli()), Member: member})
	pipe.ZRemRangeByScore(ctx, key, "-inf", fmt.Sprintf("(%d", cutoff))
	pipe.Expire(ctx, key, s.retention)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to write cache entry: %w", err)
	}
	return nil
}

// LatestFresh returns the newest entry that has not expired at now
func (s *RedisSearchStore) LatestFresh(ctx context.Context, key string, now time.Time) (*models.CacheEntry, error) {
	entries, err := s.newest(ctx, key, scanDepth)
	if err != nil {
		return nil, err
	}
	for _, e := range entries {
		if e.IsFresh(now) {
			return e, nil
		}
	}
	return nil, nil
}

// Latest returns the newest entry regardless of expiry
func (s *RedisSearchStore) Latest(ctx context.Context, key string) (*models.CacheEntry, error) {
	entries, err := s.newest(ctx, key, 1)
	if err != nil || len(entries) == 0 {
		return nil, err
	}
	return entries[0], nil
}

// DeleteExpired removes entries that expired before the cutoff from every key
func (s *RedisSearchStore) DeleteExpired(ctx context.Context, before time.Time) (int64, error) {
	var removed int64

	iter := s.rdb.Scan(ctx, 0, keyPrefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		key := iter.Val()
		members, err := s.rdb.ZRange(ctx, key, 0, -1).Result()
		if err != nil {
			return removed, fmt.Errorf("failed to read %s: %w", key, err)
		}

		var stale []interface{}
		for _, m := range members {
			var e storedEntry
			if err := json.Unmarshal([]byte(m), &e); err != nil || e.ExpiresAt.Before(before) {
				stale = append(stale, m)
			}
		}
		if len(stale) == 0 {
			continue
		}

		n, err := s.rdb.ZRem(ctx, key, stale...).Result()
		if err != nil {
			return removed, fmt.Errorf("failed to purge %s: %w", key, err)
		}
		removed += n
	}
	if err := iter.Err(); err != nil {
		return removed, fmt.Errorf("failed to scan cache keys: %w", err)
	}
	return removed, nil
}

// Ping checks the Redis connection
func (s *RedisSearchStore) Ping(ctx context.Context) error {
	return s.rdb.Ping(ctx).Err()
}

func (s *RedisSearchStore) newest(ctx context.Context, cacheKey string, n int64) ([]*models.CacheEntry, error) {
	members, err := s.rdb.ZRevRange(ctx, redisKey(cacheKey), 0, n-1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read search cache: %w", err)
	}

	entries := make([]*models.CacheEntry, 0, len(members))
	for _, m := range members {
		var e storedEntry
		if err := json.Unmarshal([]byte(m), &e); err != nil {
			// Undecodable members count as absent
			continue
		}
		entries = append(entries, &models.CacheEntry{
			ID:        e.ID,
			CacheKey:  cacheKey,
			Result:    []byte(e.Result),
			CreatedAt: e.CreatedAt,
			ExpiresAt: e.ExpiresAt,
		})
	}
	return entries, nil
}
