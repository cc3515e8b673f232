package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/hotelbridge/liteapi-booking/internal/clock"
	"github.com/hotelbridge/liteapi-booking/internal/config"
	"github.com/hotelbridge/liteapi-booking/internal/models"
	"github.com/hotelbridge/liteapi-booking/pkg/liteapi"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type searchFixture struct {
	svc     *SearchService
	client  *fakeRatesClient
	store   *memCacheStore
	hotels  *fakeHotelStore
	logs    *fakeSearchLogs
	metrics *countingMetrics
	clock   *clock.ManualClock
}

func newSearchFixture() *searchFixture {
	clk := clock.NewManualClock(time.Date(2026, 10, 16, 9, 0, 0, 0, time.UTC))
	f := &searchFixture{
		client:  &fakeRatesClient{},
		store:   &memCacheStore{},
		hotels:  newFakeHotelStore(),
		logs:    &fakeSearchLogs{},
		metrics: newCountingMetrics(),
		clock:   clk,
	}

	cityID := int64(42)
	code := "RUH"
	cities := &fakeCityStore{cities: []models.City{
		{ID: cityID, Name: "Riyadh", LiteAPICityID: &code, CountryCode: "SA", IsActive: true},
		{ID: 7, Name: "Empty Town", CountryCode: "SA", IsActive: true},
	}}

	image := "https://img.example.com/lp1.jpg"
	f.hotels.add(models.Hotel{ID: 1, Name: "Local Harbour", LiteAPIHotelID: "lp1", CityID: &cityID, ImageURL: &image})

	cfg := config.SearchConfig{
		Currency:            "SAR",
		GuestNationality:    "SA",
		DefaultLanguage:     "en",
		MaxHotelIDs:         100,
		PlaceholderImageURL: "https://img.example.com/placeholder.jpg",
	}
	cache := NewSearchCacheService(f.store, clk, 90*time.Second, testLogger())
	f.svc = NewSearchService(f.client, cache, f.hotels, cities, f.logs, f.metrics, cfg, clk, testLogger())
	return f
}

func rateAt(offerID string, price float64) liteapi.Rate {
	return liteapi.Rate{
		OfferID:    offerID,
		Name:       "Deluxe King",
		BoardName:  "Breakfast Included",
		RetailRate: &liteapi.RetailRate{Total: []liteapi.Money{{Amount: price, Currency: "SAR"}}},
		CancellationPolicies: &liteapi.CancellationPolicies{
			RefundableTag: "REF",
		},
	}
}

func ratesFor(hotelID string, price float64) *liteapi.RatesResponse {
	stars := 4.0
	return &liteapi.RatesResponse{Data: []liteapi.HotelRates{{
		HotelID:          hotelID,
		Name:             "Harbour View",
		StarRating:       &stars,
		HotelDescription: "Sea-facing rooms",
		HotelImages:      []liteapi.HotelImage{{URL: "https://cdn.example.com/upstream.jpg"}},
		RoomTypes: []liteapi.RoomType{{
			RoomTypeID: "rt1",
			OfferID:    "offer-room",
			Rates:      []liteapi.Rate{rateAt("offer-1", price)},
		}},
	}}}
}

func cityRequest(value string) models.SearchRequest {
	return models.SearchRequest{
		SearchType: "city",
		Value:      value,
		Checkin:    "2026-11-01",
		Checkout:   "2026-11-03",
		Guests:     2,
	}
}

func TestSearchHotels_CitySearchLeavesOneFreshEntry(t *testing.T) {
	f := newSearchFixture()
	f.client.searchResp = ratesFor("lp1", 450)
	ctx := context.Background()
	req := cityRequest("42")

	result := f.svc.SearchHotels(ctx, req)

	require.Len(t, result.Hotels, 1)
	hotel := result.Hotels[0]
	assert.Equal(t, "lp1", hotel.LiteAPIID)
	assert.Equal(t, 450.0, hotel.Price)
	assert.Equal(t, "SAR", hotel.Currency)
	assert.Equal(t, "Harbour View", hotel.Name)
	assert.Equal(t, "https://img.example.com/lp1.jpg", hotel.ImageURL, "local image wins")
	assert.Equal(t, 4, hotel.StarRating)
	assert.True(t, hotel.Refundable)
	assert.True(t, hotel.TaxesIncluded)
	assert.Equal(t, models.SearchSourceLive, result.Source)
	assert.NotEmpty(t, result.SearchID)

	require.Len(t, f.client.searchCalls, 1)
	call := f.client.searchCalls[0]
	assert.Equal(t, []string{"lp1"}, call.HotelIDs)
	assert.Empty(t, call.AISearch)
	assert.Equal(t, "SAR", call.Currency)
	assert.Equal(t, 2, call.Occupancies[0].Adults)

	fp := models.NewSearchFingerprint(req, "en")
	assert.Equal(t, 1, f.store.freshCount(fp.Key(), f.clock.Now()))

	// The second identical search is served from the cache
	again := f.svc.SearchHotels(ctx, req)
	assert.Len(t, f.client.searchCalls, 1)
	assert.Equal(t, models.SearchSourceCache, again.Source)
	assert.Equal(t, result.SearchID, again.SearchID)
	assert.Equal(t, 1, f.store.freshCount(fp.Key(), f.clock.Now()))

	assert.Equal(t, []string{models.CacheResultMiss, models.CacheResultHit}, f.logs.results())
	assert.Equal(t, 1, f.metrics.cache[models.CacheResultHit])
}

func TestSearchHotels_BackfillOnlySendsEmptyFields(t *testing.T) {
	f := newSearchFixture()
	f.client.searchResp = ratesFor("lp1", 450)

	f.svc.SearchHotels(context.Background(), cityRequest("42"))

	patch, ok := f.hotels.backfills["lp1"]
	require.True(t, ok)
	assert.Empty(t, patch.ImageURL, "image is already set locally")
	assert.Equal(t, 4, patch.StarRating)
	assert.Equal(t, "Sea-facing rooms", patch.Description)
}

func TestSearchHotels_UpstreamFailureServesStale(t *testing.T) {
	f := newSearchFixture()
	ctx := context.Background()
	req := cityRequest("42")

	f.client.searchResp = ratesFor("lp1", 450)
	first := f.svc.SearchHotels(ctx, req)

	f.clock.Advance(10 * time.Minute)
	f.client.searchResp = nil
	f.client.searchErr = &liteapi.TransportError{URL: "https://api.example.com/v3.0/hotels/rates", Err: errors.New("timeout")}

	result := f.svc.SearchHotels(ctx, req)
	assert.Equal(t, models.SearchSourceStale, result.Source)
	assert.Equal(t, first.SearchID, result.SearchID)
	require.Len(t, result.Hotels, 1)
	assert.Equal(t, 450.0, result.Hotels[0].Price)
}

func TestSearchHotels_UpstreamFailureWithoutCacheIsEmpty(t *testing.T) {
	f := newSearchFixture()
	f.client.searchErr = &liteapi.ConfigurationError{Missing: "API key"}

	result := f.svc.SearchHotels(context.Background(), cityRequest("42"))

	assert.Empty(t, result.Hotels)
	assert.NotNil(t, result.Hotels)
	assert.NotEmpty(t, result.SearchID)
	assert.Equal(t, models.SearchSourceEmpty, result.Source)
	assert.Equal(t, []string{models.CacheResultEmpty}, f.logs.results())
}

func TestSearchHotels_NoDataIsNotCached(t *testing.T) {
	f := newSearchFixture()
	f.client.searchResp = &liteapi.RatesResponse{}

	result := f.svc.SearchHotels(context.Background(), cityRequest("42"))

	assert.Empty(t, result.Hotels)
	assert.Empty(t, f.store.entries)
}

func TestSearchHotels_UnpricedHotelsAreDropped(t *testing.T) {
	f := newSearchFixture()
	resp := ratesFor("lp1", 450)
	resp.Data = append(resp.Data, liteapi.HotelRates{
		HotelID: "lp2",
		Rates:   []liteapi.Rate{{OfferID: "x", RetailPrice: &liteapi.Money{Amount: 0}}},
	})
	f.client.searchResp = resp

	result := f.svc.SearchHotels(context.Background(), cityRequest("42"))
	require.Len(t, result.Hotels, 1)
	assert.Equal(t, "lp1", result.Hotels[0].LiteAPIID)
}

func TestSearchHotels_CityResolution(t *testing.T) {
	tests := []struct {
		name         string
		request      models.SearchRequest
		wantCalls    int
		wantHotelIDs []string
		wantAISearch string
	}{
		{
			name:         "local city id",
			request:      cityRequest("42"),
			wantCalls:    1,
			wantHotelIDs: []string{"lp1"},
		},
		{
			name:         "liteapi city code",
			request:      cityRequest("RUH"),
			wantCalls:    1,
			wantHotelIDs: []string{"lp1"},
		},
		{
			name:         "unknown city falls back to ai search",
			request:      cityRequest("Atlantis"),
			wantCalls:    1,
			wantAISearch: "Atlantis",
		},
		{
			name:      "unknown numeric city id skips upstream",
			request:   cityRequest("999"),
			wantCalls: 0,
		},
		{
			name:      "known city without hotels skips upstream",
			request:   cityRequest("7"),
			wantCalls: 0,
		},
		{
			name: "free text",
			request: models.SearchRequest{
				SearchType: "vibe",
				Value:      "quiet beach resort",
				Checkin:    "2026-11-01",
				Checkout:   "2026-11-03",
			},
			wantCalls:    1,
			wantAISearch: "quiet beach resort",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newSearchFixture()
			f.client.searchResp = &liteapi.RatesResponse{}

			result := f.svc.SearchHotels(context.Background(), tt.request)
			assert.NotNil(t, result)

			require.Len(t, f.client.searchCalls, tt.wantCalls)
			if tt.wantCalls == 0 {
				return
			}
			call := f.client.searchCalls[0]
			assert.Equal(t, tt.wantHotelIDs, call.HotelIDs)
			assert.Equal(t, tt.wantAISearch, call.AISearch)
		})
	}
}

func TestSearchHotels_CityLookupFailureDegrades(t *testing.T) {
	f := newSearchFixture()
	f.hotels.err = errors.New("db down")

	result := f.svc.SearchHotels(context.Background(), cityRequest("42"))

	assert.Empty(t, result.Hotels)
	assert.Empty(t, f.client.searchCalls)
}

func TestSearchHotels_RecordsActor(t *testing.T) {
	f := newSearchFixture()
	f.client.searchResp = &liteapi.RatesResponse{}
	ctx := liteapi.WithActor(context.Background(), liteapi.Actor{Name: "203.0.113.9", IPAddress: "203.0.113.9"})

	f.svc.SearchHotels(ctx, cityRequest("42"))

	require.Len(t, f.logs.logs, 1)
	assert.Equal(t, "203.0.113.9", f.logs.logs[0].Actor)
	require.NotNil(t, f.logs.logs[0].IPAddress)
	assert.Equal(t, string(models.SearchModeByCity), f.logs.logs[0].Mode)
}

func TestHotelDetails_MergesLocalFirstAndGroupsRooms(t *testing.T) {
	f := newSearchFixture()
	lat, lon := 24.7136, 46.6753
	stars := 5.0
	f.client.details = &liteapi.HotelDetails{
		ID:              "lp1",
		Name:            "Harbour View Upstream",
		Description:     "Upstream description",
		StarRating:      &stars,
		Latitude:        &lat,
		Longitude:       &lon,
		HotelFacilities: []string{"Pool", "Spa"},
		HotelImages:     []liteapi.HotelImage{{URL: "https://cdn.example.com/a.jpg"}},
	}
	resp := ratesFor("lp1", 450)
	resp.Data[0].RoomTypes = append(resp.Data[0].RoomTypes,
		liteapi.RoomType{RoomTypeID: "rt2", MappedRoomID: "m-9", Rates: []liteapi.Rate{rateAt("offer-2", 500)}},
		liteapi.RoomType{RoomTypeID: "rt3", MappedRoomID: "m-9", Name: "Family Suite", Rates: []liteapi.Rate{rateAt("offer-3", 520)}},
	)
	f.client.searchResp = resp

	details, err := f.svc.HotelDetails(context.Background(), "lp1", "", &models.StayQuery{
		Checkin:  "2026-11-01",
		Checkout: "2026-11-03",
		Guests:   2,
	})
	require.NoError(t, err)

	assert.Equal(t, "Local Harbour", details.Name, "local name wins")
	assert.Equal(t, []string{"https://img.example.com/lp1.jpg"}, details.Images, "local image wins")
	assert.Equal(t, "Upstream description", details.Description)
	assert.Equal(t, 5, details.Stars)
	assert.Equal(t, []string{"Pool", "Spa"}, details.Facilities)
	assert.Equal(t, "https://maps.google.com/?q=24.7136,46.6753", details.GoogleMapsLink)

	require.Len(t, details.Rooms, 2)
	assert.Equal(t, "rt1", details.Rooms[0].Key)
	assert.Equal(t, "Deluxe King", details.Rooms[0].Name)
	assert.Equal(t, "m-9", details.Rooms[1].Key)
	assert.Len(t, details.Rooms[1].Rates, 2)
	assert.Equal(t, "offer-2", details.Rooms[1].Rates[0].OfferID)
	assert.True(t, details.Rooms[1].Rates[0].Refundable)
	assert.Empty(t, details.RatesError)
}

func TestHotelDetails_Errors(t *testing.T) {
	t.Run("unknown everywhere", func(t *testing.T) {
		f := newSearchFixture()
		_, err := f.svc.HotelDetails(context.Background(), "nope", "en", nil)
		assert.ErrorIs(t, err, ErrHotelNotFound)
	})

	t.Run("upstream down without local row", func(t *testing.T) {
		f := newSearchFixture()
		f.client.detailsErr = errors.New("boom")
		_, err := f.svc.HotelDetails(context.Background(), "nope", "en", nil)
		assert.Error(t, err)
	})

	t.Run("upstream down with local row", func(t *testing.T) {
		f := newSearchFixture()
		f.client.detailsErr = errors.New("boom")
		details, err := f.svc.HotelDetails(context.Background(), "lp1", "en", nil)
		require.NoError(t, err)
		assert.Equal(t, "Local Harbour", details.Name)
	})

	t.Run("rates unavailable", func(t *testing.T) {
		f := newSearchFixture()
		f.client.searchErr = errors.New("rates down")
		details, err := f.svc.HotelDetails(context.Background(), "lp1", "en", &models.StayQuery{Checkin: "2026-11-01", Checkout: "2026-11-02"})
		require.NoError(t, err)
		assert.Equal(t, "Could not load rates.", details.RatesError)
		assert.Empty(t, details.Rooms)
	})
}

func TestCityMinRates(t *testing.T) {
	f := newSearchFixture()
	cityID := int64(42)
	f.hotels.add(models.Hotel{ID: 2, Name: "Budget Inn", LiteAPIHotelID: "lp2", CityID: &cityID})
	f.client.minResp = &liteapi.MinRatesResponse{Data: []liteapi.MinRate{
		{HotelID: "lp1", OfferID: "o1", Price: 700},
		{HotelID: "lp2", OfferID: "o2", Price: 310},
		{HotelID: "lp3", OfferID: "o3", Price: 0},
	}}

	rates, err := f.svc.CityMinRates(context.Background(), 42, models.StayQuery{Checkin: "2026-11-01", Checkout: "2026-11-02"})
	require.NoError(t, err)
	require.Len(t, rates, 2)
	assert.Equal(t, "Budget Inn", rates[0].Name)
	assert.Equal(t, 310.0, rates[0].Price)
	assert.Equal(t, "lp1", rates[1].LiteAPIID)

	_, err = f.svc.CityMinRates(context.Background(), 999, models.StayQuery{})
	assert.ErrorIs(t, err, ErrCityNotFound)
}
