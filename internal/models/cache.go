package models

import (
	"time"

	"github.com/google/uuid"
)

// CacheEntry is one memoized search result. Entries are only ever inserted;
// ExpiresAt is always CreatedAt plus the TTL used at write time.
type CacheEntry struct {
	ID        uuid.UUID `json:"id" db:"id"`
	CacheKey  string    `json:"cache_key" db:"cache_key"`
	Result    []byte    `json:"result" db:"result"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	ExpiresAt time.Time `json:"expires_at" db:"expires_at"`
}

// IsFresh reports whether the entry has not yet expired at now
func (e CacheEntry) IsFresh(now time.Time) bool {
	return e.ExpiresAt.After(now)
}
