package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// SearchMode is the normalized search kind used in cache keys
type SearchMode string

const (
	SearchModeByCity   SearchMode = "by_city"
	SearchModeFreeText SearchMode = "free_text"
)

// NormalizeSearchMode maps request search types onto a SearchMode.
// "vibe" and "place" are free-text searches; anything else is a city search.
func NormalizeSearchMode(searchType string) SearchMode {
	switch strings.ToLower(strings.TrimSpace(searchType)) {
	case "vibe", "place", "free_text", "text":
		return SearchModeFreeText
	default:
		return SearchModeByCity
	}
}

// SearchRequest represents a hotel search from the web layer
type SearchRequest struct {
	SearchType string `json:"search_type" validate:"omitempty,oneof=city by_city vibe place free_text"`
	Value      string `json:"search_value" validate:"required,max=200"`
	Checkin    string `json:"checkin" validate:"required,stay_date"`
	Checkout   string `json:"checkout" validate:"required,stay_date"`
	Guests     int    `json:"guests" validate:"omitempty,min=1,max=10"`
	Language   string `json:"language" validate:"omitempty,len=2"`
}

// SearchFingerprint identifies a cacheable search. It is a value type; build it
// with NewSearchFingerprint.
type SearchFingerprint struct {
	Mode     SearchMode
	Value    string
	Checkin  string
	Checkout string
	Guests   int
	Language string
}

// NewSearchFingerprint normalizes a request into a fingerprint
func NewSearchFingerprint(req SearchRequest, defaultLanguage string) SearchFingerprint {
	lang := strings.ToLower(strings.TrimSpace(req.Language))
	if lang == "" {
		lang = defaultLanguage
	}
	if len(lang) > 2 {
		lang = lang[:2]
	}
	guests := req.Guests
	if guests <= 0 {
		guests = 2
	}
	return SearchFingerprint{
		Mode:     NormalizeSearchMode(req.SearchType),
		Value:    strings.TrimSpace(req.Value),
		Checkin:  strings.TrimSpace(req.Checkin),
		Checkout: strings.TrimSpace(req.Checkout),
		Guests:   guests,
		Language: lang,
	}
}

// Key returns the cache key: mode|value|checkin|checkout|guests|lang
func (f SearchFingerprint) Key() string {
	return fmt.Sprintf("%s|%s|%s|%s|%d|%s", f.Mode, f.Value, f.Checkin, f.Checkout, f.Guests, f.Language)
}

// HotelSummary is one hotel in a search result
type HotelSummary struct {
	ID            int64   `json:"id"`
	LiteAPIID     string  `json:"liteapi_id"`
	Name          string  `json:"name"`
	Price         float64 `json:"price"`
	Currency      string  `json:"currency"`
	StarRating    int     `json:"star_rating"`
	ImageURL      string  `json:"image_url"`
	Address       string  `json:"address"`
	ReviewScore   float64 `json:"review_score"`
	TaxesIncluded bool    `json:"taxes_included"`
	Refundable    bool    `json:"refundable"`
}

// Search result sources
const (
	SearchSourceLive  = "live"
	SearchSourceCache = "cache"
	SearchSourceStale = "stale"
	SearchSourceEmpty = "empty"
)

// SearchResult is what the search orchestrator returns and caches
type SearchResult struct {
	Hotels   []HotelSummary `json:"hotels"`
	SearchID string         `json:"search_id"`
	Source   string         `json:"source,omitempty"`
}

// EmptySearchResult returns a result with no hotels and a fresh search id
func EmptySearchResult() *SearchResult {
	return &SearchResult{
		Hotels:   []HotelSummary{},
		SearchID: uuid.New().String(),
		Source:   SearchSourceEmpty,
	}
}

// Cache lookup outcomes recorded in search_logs
const (
	CacheResultHit   = "hit"
	CacheResultMiss  = "miss"
	CacheResultStale = "stale"
	CacheResultEmpty = "empty"
)

// SearchLog represents a search analytics record
type SearchLog struct {
	ID             uuid.UUID `json:"id" db:"id"`
	Mode           string    `json:"mode" db:"mode"`
	SearchValue    string    `json:"search_value" db:"search_value"`
	CacheResult    string    `json:"cache_result" db:"cache_result"`
	ResultsCount   int       `json:"results_count" db:"results_count"`
	ResponseTimeMs int64     `json:"response_time_ms" db:"response_time_ms"`
	Actor          string    `json:"actor" db:"actor"`
	IPAddress      *string   `json:"ip_address,omitempty" db:"ip_address"`
	CreatedAt      time.Time `json:"created_at" db:"created_at"`
}
