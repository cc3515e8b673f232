package services

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/hotelbridge/liteapi-booking/internal/clock"
	"github.com/hotelbridge/liteapi-booking/internal/config"
	"github.com/hotelbridge/liteapi-booking/internal/models"
	"github.com/hotelbridge/liteapi-booking/pkg/liteapi"
	"github.com/sirupsen/logrus"
)

// RatesClient is the part of the LiteAPI client used for search and details
type RatesClient interface {
	SearchRates(ctx context.Context, req liteapi.RatesRequest) (*liteapi.RatesResponse, error)
	MinRates(ctx context.Context, req liteapi.RatesRequest) (*liteapi.MinRatesResponse, error)
	HotelDetails(ctx context.Context, hotelID, language string) (*liteapi.HotelDetails, error)
}

// HotelStore reads and backfills local hotel metadata
type HotelStore interface {
	GetByLiteAPIIDs(ctx context.Context, ids []string) ([]models.Hotel, error)
	GetByLiteAPIID(ctx context.Context, liteID string) (*models.Hotel, error)
	ListLiteAPIIDsByCity(ctx context.Context, cityID int64, limit int) ([]string, error)
	BackfillMetadata(ctx context.Context, liteID string, patch models.HotelMetadataPatch) (bool, error)
}

// CityStore reads reference cities
type CityStore interface {
	GetByID(ctx context.Context, id int64) (*models.City, error)
	GetByLiteAPICityID(ctx context.Context, code string) (*models.City, error)
	ListActive(ctx context.Context) ([]models.City, error)
}

// SearchLogStore records searches for analytics
type SearchLogStore interface {
	LogSearch(ctx context.Context, log *models.SearchLog) error
}

// CacheMetrics counts cache lookups by outcome
type CacheMetrics interface {
	IncCacheLookup(result string)
}

// RateQuery is an uncached live rate lookup
type RateQuery struct {
	HotelIDs []string
	Checkin  string
	Checkout string
	Guests   int
	Language string
}

// SearchService orchestrates hotel searches: cache first, then upstream, then
// stale cache, then an empty result. Upstream failures never reach the caller.
type SearchService struct {
	client     RatesClient
	cache      *SearchCacheService
	hotels     HotelStore
	cities     CityStore
	searchLogs SearchLogStore
	metrics    CacheMetrics
	config     config.SearchConfig
	clock      clock.Clock
	logger     *logrus.Logger
}

// NewSearchService creates a new search service. metrics may be nil.
func NewSearchService(
	client RatesClient,
	cache *SearchCacheService,
	hotels HotelStore,
	cities CityStore,
	searchLogs SearchLogStore,
	metrics CacheMetrics,
	cfg config.SearchConfig,
	clk clock.Clock,
	logger *logrus.Logger,
) *SearchService {
	return &SearchService{
		client:     client,
		cache:      cache,
		hotels:     hotels,
		cities:     cities,
		searchLogs: searchLogs,
		metrics:    metrics,
		config:     cfg,
		clock:      clk,
		logger:     logger,
	}
}

// ============================================================================
// SEARCH
// ============================================================================

// SearchHotels returns hotel summaries for the request
func (s *SearchService) SearchHotels(ctx context.Context, req models.SearchRequest) *models.SearchResult {
	start := s.clock.Now()
	fp := models.NewSearchFingerprint(req, s.config.DefaultLanguage)

	if cached, ok := s.cache.ReadFresh(ctx, fp); ok {
		cached.Source = models.SearchSourceCache
		s.recordSearch(ctx, fp, models.CacheResultHit, len(cached.Hotels), start)
		return cached
	}

	payload, proceed, err := s.buildRatesRequest(ctx, fp)
	if err != nil {
		return s.degrade(ctx, fp, err, start)
	}
	if !proceed {
		s.recordSearch(ctx, fp, models.CacheResultEmpty, 0, start)
		return models.EmptySearchResult()
	}

	resp, err := s.client.SearchRates(ctx, payload)
	if err != nil {
		return s.degrade(ctx, fp, err, start)
	}
	if resp == nil || len(resp.Data) == 0 {
		s.recordSearch(ctx, fp, models.CacheResultEmpty, 0, start)
		return models.EmptySearchResult()
	}

	result := &models.SearchResult{
		Hotels:   s.summarize(ctx, resp.Data),
		SearchID: uuid.New().String(),
		Source:   models.SearchSourceLive,
	}

	if len(result.Hotels) > 0 {
		if err := s.cache.Write(ctx, fp, result, 0); err != nil {
			s.logger.WithFields(logrus.Fields{
				"cache_key": fp.Key(),
				"error":     err.Error(),
			}).Warn("Failed to cache search result")
		}
	}

	s.recordSearch(ctx, fp, models.CacheResultMiss, len(result.Hotels), start)
	return result
}

// degrade serves the newest cached result regardless of age, else an empty result
func (s *SearchService) degrade(ctx context.Context, fp models.SearchFingerprint, cause error, start time.Time) *models.SearchResult {
	entry := s.logger.WithFields(logrus.Fields{
		"cache_key": fp.Key(),
		"error":     cause.Error(),
	})
	if isUpstreamConfigError(cause) {
		entry.Error("LiteAPI is not configured")
	} else {
		entry.Warn("Hotel search failed, falling back to cache")
	}

	if stale, ok := s.cache.ReadAllowStale(ctx, fp); ok {
		stale.Source = models.SearchSourceStale
		s.recordSearch(ctx, fp, models.CacheResultStale, len(stale.Hotels), start)
		return stale
	}

	s.recordSearch(ctx, fp, models.CacheResultEmpty, 0, start)
	return models.EmptySearchResult()
}

// buildRatesRequest prepares the upstream payload. proceed is false when a
// known city has no hotels, in which case nothing should be called.
func (s *SearchService) buildRatesRequest(ctx context.Context, fp models.SearchFingerprint) (liteapi.RatesRequest, bool, error) {
	req := liteapi.RatesRequest{
		Occupancies:      []liteapi.Occupancy{{Adults: fp.Guests}},
		Checkin:          fp.Checkin,
		Checkout:         fp.Checkout,
		Currency:         s.config.Currency,
		GuestNationality: s.config.GuestNationality,
		RoomMapping:      true,
		Language:         fp.Language,
	}

	if fp.Mode == models.SearchModeFreeText {
		req.AISearch = fp.Value
		return req, true, nil
	}

	city, err := s.resolveCity(ctx, fp.Value)
	if err != nil {
		return req, false, err
	}
	if city == nil {
		if isNumericID(fp.Value) {
			return req, false, nil
		}
		// Unknown cities are searched by name
		req.AISearch = fp.Value
		return req, true, nil
	}

	ids, err := s.hotels.ListLiteAPIIDsByCity(ctx, city.ID, s.maxHotelIDs())
	if err != nil {
		return req, false, err
	}
	if len(ids) == 0 {
		return req, false, nil
	}
	req.HotelIDs = ids
	return req, true, nil
}

// resolveCity looks a city up by local numeric id, then by LiteAPI city code
func (s *SearchService) resolveCity(ctx context.Context, value string) (*models.City, error) {
	if id, err := strconv.ParseInt(value, 10, 64); err == nil && id > 0 {
		city, err := s.cities.GetByID(ctx, id)
		if err != nil || city != nil {
			return city, err
		}
	}
	return s.cities.GetByLiteAPICityID(ctx, value)
}

func isNumericID(value string) bool {
	if value == "" {
		return false
	}
	for _, r := range value {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func (s *SearchService) maxHotelIDs() int {
	if s.config.MaxHotelIDs <= 0 {
		return 100
	}
	return s.config.MaxHotelIDs
}

// summarize turns upstream hotels into summaries. Hotels without a positive
// price are dropped. Known hotels get their empty metadata backfilled.
func (s *SearchService) summarize(ctx context.Context, data []liteapi.HotelRates) []models.HotelSummary {
	locals := s.localHotels(ctx, data)

	hotels := make([]models.HotelSummary, 0, len(data))
	for _, item := range data {
		if item.HotelID == "" {
			continue
		}
		price, ok := liteapi.LowestPrice(item)
		if !ok {
			continue
		}

		local := locals[item.HotelID]
		summary := models.HotelSummary{
			LiteAPIID:     item.HotelID,
			Name:          item.Name,
			Price:         price,
			Currency:      s.config.Currency,
			Address:       item.Address,
			ImageURL:      item.FirstImageURL(),
			TaxesIncluded: true,
		}
		if item.StarRating != nil {
			summary.StarRating = int(*item.StarRating)
		}
		switch {
		case item.ReviewScore != nil:
			summary.ReviewScore = *item.ReviewScore
		case item.Rating != nil:
			summary.ReviewScore = *item.Rating
		}
		for _, rate := range item.AllRates() {
			if rate.Refundable() {
				summary.Refundable = true
				break
			}
		}

		if local != nil {
			summary.ID = local.ID
			if local.ImageURL != nil && *local.ImageURL != "" {
				summary.ImageURL = *local.ImageURL
			}
			if summary.Name == "" {
				summary.Name = local.Name
			}
			if summary.Address == "" && local.Address != nil {
				summary.Address = *local.Address
			}
			if summary.StarRating == 0 && local.StarRating != nil {
				summary.StarRating = *local.StarRating
			}
			s.backfill(ctx, local, item.FirstImageURL(), summary.StarRating, item.HotelDescription)
		}

		if summary.Name == "" {
			summary.Name = "Unknown Hotel"
		}
		if summary.ImageURL == "" {
			summary.ImageURL = s.config.PlaceholderImageURL
		}

		hotels = append(hotels, summary)
	}
	return hotels
}

func (s *SearchService) localHotels(ctx context.Context, data []liteapi.HotelRates) map[string]*models.Hotel {
	ids := make([]string, 0, len(data))
	for _, item := range data {
		if item.HotelID != "" {
			ids = append(ids, item.HotelID)
		}
	}

	byID := make(map[string]*models.Hotel, len(ids))
	hotels, err := s.hotels.GetByLiteAPIIDs(ctx, ids)
	if err != nil {
		s.logger.WithError(err).Warn("Failed to load local hotels for search result")
		return byID
	}
	for i := range hotels {
		byID[hotels[i].LiteAPIHotelID] = &hotels[i]
	}
	return byID
}

// backfill writes upstream metadata into the local hotel where the local value
// is empty. Failures are logged only.
func (s *SearchService) backfill(ctx context.Context, local *models.Hotel, imageURL string, stars int, description string) {
	var patch models.HotelMetadataPatch
	if (local.ImageURL == nil || *local.ImageURL == "") && imageURL != "" {
		patch.ImageURL = imageURL
	}
	if (local.StarRating == nil || *local.StarRating == 0) && stars > 0 {
		patch.StarRating = stars
	}
	if (local.Description == nil || *local.Description == "") && strings.TrimSpace(description) != "" {
		patch.Description = description
	}
	if patch.IsEmpty() {
		return
	}

	if _, err := s.hotels.BackfillMetadata(ctx, local.LiteAPIHotelID, patch); err != nil {
		s.logger.WithFields(logrus.Fields{
			"liteapi_hotel_id": local.LiteAPIHotelID,
			"error":            err.Error(),
		}).Warn("Hotel metadata backfill failed")
	}
}

func (s *SearchService) recordSearch(ctx context.Context, fp models.SearchFingerprint, cacheResult string, count int, start time.Time) {
	if s.metrics != nil {
		s.metrics.IncCacheLookup(cacheResult)
	}

	actor := liteapi.ActorFromContext(ctx)
	log := &models.SearchLog{
		Mode:           string(fp.Mode),
		SearchValue:    fp.Value,
		CacheResult:    cacheResult,
		ResultsCount:   count,
		ResponseTimeMs: s.clock.Now().Sub(start).Milliseconds(),
		Actor:          actor.Name,
	}
	if actor.IPAddress != "" {
		log.IPAddress = &actor.IPAddress
	}

	if err := s.searchLogs.LogSearch(ctx, log); err != nil {
		s.logger.WithError(err).Warn("Failed to log search")
	}
}

// ============================================================================
// LIVE RATES
// ============================================================================

// FetchRates asks upstream for current rates of the given hotels, bypassing the cache
func (s *SearchService) FetchRates(ctx context.Context, q RateQuery) (*liteapi.RatesResponse, error) {
	guests := q.Guests
	if guests <= 0 {
		guests = 2
	}
	req := liteapi.RatesRequest{
		Occupancies:      []liteapi.Occupancy{{Adults: guests}},
		Checkin:          q.Checkin,
		Checkout:         q.Checkout,
		Currency:         s.config.Currency,
		GuestNationality: s.config.GuestNationality,
		RoomMapping:      true,
		HotelIDs:         q.HotelIDs,
		Language:         q.Language,
	}
	return s.client.SearchRates(ctx, req)
}

// ============================================================================
// HOTEL DETAILS
// ============================================================================

// HotelDetails merges local metadata with upstream static data. Local values
// win. When stay is given, live rooms and rates are attached.
func (s *SearchService) HotelDetails(ctx context.Context, liteID, language string, stay *models.StayQuery) (*models.HotelDetails, error) {
	if language == "" {
		language = s.config.DefaultLanguage
	}

	local, err := s.hotels.GetByLiteAPIID(ctx, liteID)
	if err != nil {
		s.logger.WithError(err).Warn("Failed to load local hotel")
		local = nil
	}

	details := s.localDetails(liteID, local)

	upstream, err := s.client.HotelDetails(ctx, liteID, language)
	switch {
	case err != nil && local == nil:
		return nil, fmt.Errorf("failed to load hotel %s: %w", liteID, err)
	case err != nil:
		s.logger.WithFields(logrus.Fields{
			"liteapi_hotel_id": liteID,
			"error":            err.Error(),
		}).Warn("Hotel static data unavailable, serving local data")
	case upstream == nil && local == nil:
		return nil, ErrHotelNotFound
	case upstream != nil:
		s.mergeUpstream(details, local, upstream)
		if local != nil {
			images := upstream.ImageURLs()
			image := ""
			if len(images) > 0 {
				image = images[0]
			}
			s.backfill(ctx, local, image, upstream.StarValue(), upstream.DescriptionText())
		}
	}

	if stay != nil {
		s.attachRooms(ctx, details, liteID, language, *stay)
	}
	return details, nil
}

func (s *SearchService) localDetails(liteID string, local *models.Hotel) *models.HotelDetails {
	details := &models.HotelDetails{
		LiteAPIID:  liteID,
		Name:       "Hotel Details",
		Images:     []string{s.config.PlaceholderImageURL},
		Facilities: []string{},
		Rooms:      []models.RoomOption{},
	}
	if local == nil {
		return details
	}

	details.Name = local.Name
	if local.Address != nil {
		details.Address = *local.Address
	}
	if local.StarRating != nil {
		details.Stars = *local.StarRating
	}
	if local.ImageURL != nil && *local.ImageURL != "" {
		details.Images = []string{*local.ImageURL}
	}
	if local.Description != nil {
		details.Description = *local.Description
	}
	if local.Latitude != nil && local.Longitude != nil {
		details.GoogleMapsLink = mapsLink(*local.Latitude, *local.Longitude)
	}
	if len(local.Amenities) > 0 {
		details.Facilities = local.Amenities
	}
	return details
}

// mergeUpstream fills the fields the local row leaves empty
func (s *SearchService) mergeUpstream(details *models.HotelDetails, local *models.Hotel, upstream *liteapi.HotelDetails) {
	if upstream.Rating != nil {
		details.Rating = *upstream.Rating
	}
	if local == nil {
		local = &models.Hotel{}
	}

	if local.Name == "" && upstream.Name != "" {
		details.Name = upstream.Name
	}
	if (local.Address == nil || *local.Address == "") && upstream.Address != "" {
		details.Address = upstream.Address
	}
	if (local.StarRating == nil || *local.StarRating == 0) && upstream.StarValue() > 0 {
		details.Stars = upstream.StarValue()
	}
	if len(local.Amenities) == 0 && len(upstream.HotelFacilities) > 0 {
		details.Facilities = upstream.HotelFacilities
	}
	if local.Description == nil || *local.Description == "" {
		details.Description = upstream.DescriptionText()
	}
	if local.ImageURL == nil || *local.ImageURL == "" {
		if images := upstream.ImageURLs(); len(images) > 0 {
			details.Images = images
		}
	}
	if (local.Latitude == nil || local.Longitude == nil) && upstream.Latitude != nil && upstream.Longitude != nil {
		details.GoogleMapsLink = mapsLink(*upstream.Latitude, *upstream.Longitude)
	}
}

// attachRooms groups live rates by mapped room. Rate failures are reported on
// the details instead of failing the page.
func (s *SearchService) attachRooms(ctx context.Context, details *models.HotelDetails, liteID, language string, stay models.StayQuery) {
	resp, err := s.FetchRates(ctx, RateQuery{
		HotelIDs: []string{liteID},
		Checkin:  stay.Checkin,
		Checkout: stay.Checkout,
		Guests:   stay.Guests,
		Language: language,
	})
	if err != nil {
		s.logger.WithFields(logrus.Fields{
			"liteapi_hotel_id": liteID,
			"error":            err.Error(),
		}).Warn("Failed to load rates for hotel details")
		details.RatesError = "Could not load rates."
		return
	}
	if resp == nil || len(resp.Data) == 0 {
		details.RatesError = "No rates available."
		return
	}

	index := make(map[string]int)
	for _, rt := range resp.Data[0].RoomTypes {
		key := rt.GroupKey()
		pos, seen := index[key]
		if !seen {
			image := details.Images[0]
			if len(rt.Photos) > 0 && rt.Photos[0].URL != "" {
				image = rt.Photos[0].URL
			}
			details.Rooms = append(details.Rooms, models.RoomOption{
				Key:   key,
				Name:  rt.Name,
				Image: image,
				Rates: []models.RateOption{},
			})
			pos = len(details.Rooms) - 1
			index[key] = pos
		}
		room := &details.Rooms[pos]

		for _, rate := range rt.Rates {
			price, ok := liteapi.ResolvePrice(rate)
			if !ok {
				continue
			}
			if room.Name == "" {
				room.Name = rate.Name
			}

			offerID := rate.OfferToken()
			if offerID == "" {
				offerID = rt.OfferID
			}
			currency := rate.Currency()
			if currency == "" {
				currency = s.config.Currency
			}
			board := rate.BoardName
			if board == "" {
				board = "Room Only"
			}

			room.Rates = append(room.Rates, models.RateOption{
				OfferID:              offerID,
				Name:                 rate.Name,
				Price:                price,
				Currency:             currency,
				BoardName:            board,
				Refundable:           rate.Refundable(),
				CancellationDeadline: rate.CancellationDeadline(),
				Description:          rt.Description,
			})
		}
		if room.Name == "" {
			room.Name = "Standard Room"
		}
	}
}

func mapsLink(lat, lon float64) string {
	return fmt.Sprintf("https://maps.google.com/?q=%s,%s",
		strconv.FormatFloat(lat, 'f', -1, 64), strconv.FormatFloat(lon, 'f', -1, 64))
}

// ============================================================================
// CITIES
// ============================================================================

// ListCities returns the active cities
func (s *SearchService) ListCities(ctx context.Context) ([]models.City, error) {
	return s.cities.ListActive(ctx)
}

// CityMinRates returns the cheapest offer of each local hotel in the city,
// cheapest first
func (s *SearchService) CityMinRates(ctx context.Context, cityID int64, stay models.StayQuery) ([]models.CityMinRate, error) {
	city, err := s.cities.GetByID(ctx, cityID)
	if err != nil {
		return nil, err
	}
	if city == nil {
		return nil, ErrCityNotFound
	}

	ids, err := s.hotels.ListLiteAPIIDsByCity(ctx, city.ID, s.maxHotelIDs())
	if err != nil {
		return nil, err
	}
	rates := []models.CityMinRate{}
	if len(ids) == 0 {
		return rates, nil
	}

	guests := stay.Guests
	if guests <= 0 {
		guests = 2
	}
	resp, err := s.client.MinRates(ctx, liteapi.RatesRequest{
		Occupancies:      []liteapi.Occupancy{{Adults: guests}},
		Checkin:          stay.Checkin,
		Checkout:         stay.Checkout,
		Currency:         s.config.Currency,
		GuestNationality: s.config.GuestNationality,
		HotelIDs:         ids,
	})
	if err != nil {
		return nil, err
	}

	names := make(map[string]string, len(ids))
	if hotels, err := s.hotels.GetByLiteAPIIDs(ctx, ids); err == nil {
		for _, h := range hotels {
			names[h.LiteAPIHotelID] = h.Name
		}
	}

	for _, mr := range resp.Data {
		if mr.Price <= 0 {
			continue
		}
		rates = append(rates, models.CityMinRate{
			LiteAPIID: mr.HotelID,
			Name:      names[mr.HotelID],
			OfferID:   mr.OfferID,
			Price:     mr.Price,
			Currency:  s.config.Currency,
		})
	}
	sort.SliceStable(rates, func(i, j int) bool { return rates[i].Price < rates[j].Price })
	return rates, nil
}
