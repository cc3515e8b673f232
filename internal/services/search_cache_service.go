package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hotelbridge/liteapi-booking/internal/clock"
	"github.com/hotelbridge/liteapi-booking/internal/models"
	"github.com/sirupsen/logrus"
)

// SearchCacheStore persists cache entries. Implemented by
// database.SearchCacheRepository and cache.RedisSearchStore.
type SearchCacheStore interface {
	Insert(ctx context.Context, entry *models.CacheEntry) error
	LatestFresh(ctx context.Context, key string, now time.Time) (*models.CacheEntry, error)
	Latest(ctx context.Context, key string) (*models.CacheEntry, error)
	DeleteExpired(ctx context.Context, before time.Time) (int64, error)
}

// SearchCacheService memoizes search results per fingerprint with a fixed TTL.
// Writes always insert; reads take the newest entry.
type SearchCacheService struct {
	store  SearchCacheStore
	clock  clock.Clock
	ttl    time.Duration
	logger *logrus.Logger
}

// NewSearchCacheService creates a new search cache service
func NewSearchCacheService(store SearchCacheStore, clk clock.Clock, ttl time.Duration, logger *logrus.Logger) *SearchCacheService {
	if ttl <= 0 {
		ttl = 90 * time.Second
	}
	return &SearchCacheService{
		store:  store,
		clock:  clk,
		ttl:    ttl,
		logger: logger,
	}
}

// TTL returns the default entry lifetime
func (s *SearchCacheService) TTL() time.Duration {
	return s.ttl
}

// ReadFresh returns the newest unexpired result for the fingerprint
func (s *SearchCacheService) ReadFresh(ctx context.Context, fp models.SearchFingerprint) (*models.SearchResult, bool) {
	entry, err := s.store.LatestFresh(ctx, fp.Key(), s.clock.Now())
	return s.decode(fp, entry, err)
}

// ReadAllowStale returns the newest result for the fingerprint, ignoring expiry
func (s *SearchCacheService) ReadAllowStale(ctx context.Context, fp models.SearchFingerprint) (*models.SearchResult, bool) {
	entry, err := s.store.Latest(ctx, fp.Key())
	return s.decode(fp, entry, err)
}

// Write stores result under the fingerprint. A non-positive ttl uses the default.
func (s *SearchCacheService) Write(ctx context.Context, fp models.SearchFingerprint, result *models.SearchResult, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = s.ttl
	}

	payload, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("failed to encode search result: %w", err)
	}

	now := s.clock.Now()
	return s.store.Insert(ctx, &models.CacheEntry{
		CacheKey:  fp.Key(),
		Result:    payload,
		CreatedAt: now,
		ExpiresAt: now.Add(ttl),
	})
}

// PurgeExpired deletes entries that expired before the cutoff
func (s *SearchCacheService) PurgeExpired(ctx context.Context, before time.Time) (int64, error) {
	return s.store.DeleteExpired(ctx, before)
}

func (s *SearchCacheService) decode(fp models.SearchFingerprint, entry *models.CacheEntry, err error) (*models.SearchResult, bool) {
	if err != nil {
		s.logger.WithFields(logrus.Fields{
			"cache_key": fp.Key(),
			"error":     err.Error(),
		}).Warn("Search cache read failed")
		return nil, false
	}
	if entry == nil {
		return nil, false
	}

	var result models.SearchResult
	if err := json.Unmarshal(entry.Result, &result); err != nil {
		s.logger.WithFields(logrus.Fields{
			"cache_key": fp.Key(),
			"entry_id":  entry.ID.String(),
		}).Warn("Discarding undecodable search cache entry")
		return nil, false
	}
	if result.Hotels == nil {
		result.Hotels = []models.HotelSummary{}
	}
	return &result, true
}
