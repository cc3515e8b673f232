package services

import (
	"context"
	"io"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/hotelbridge/liteapi-booking/internal/database"
	"github.com/hotelbridge/liteapi-booking/internal/events"
	"github.com/hotelbridge/liteapi-booking/internal/models"
	"github.com/hotelbridge/liteapi-booking/pkg/liteapi"
	"github.com/sirupsen/logrus"
)

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

// ============================================================================
// CACHE
// ============================================================================

type memCacheStore struct {
	mu      sync.Mutex
	entries []models.CacheEntry
	readErr error
}

func (m *memCacheStore) Insert(ctx context.Context, entry *models.CacheEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	m.entries = append(m.entries, *entry)
	return nil
}

func (m *memCacheStore) sorted(key string) []models.CacheEntry {
	var out []models.CacheEntry
	for _, e := range m.entries {
		if e.CacheKey == key {
			out = append(out, e)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

func (m *memCacheStore) LatestFresh(ctx context.Context, key string, now time.Time) (*models.CacheEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.readErr != nil {
		return nil, m.readErr
	}
	for _, e := range m.sorted(key) {
		if e.IsFresh(now) {
			return &e, nil
		}
	}
	return nil, nil
}

func (m *memCacheStore) Latest(ctx context.Context, key string) (*models.CacheEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.readErr != nil {
		return nil, m.readErr
	}
	entries := m.sorted(key)
	if len(entries) == 0 {
		return nil, nil
	}
	return &entries[0], nil
}

func (m *memCacheStore) DeleteExpired(ctx context.Context, before time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	kept := m.entries[:0]
	var removed int64
	for _, e := range m.entries {
		if e.ExpiresAt.Before(before) {
			removed++
			continue
		}
		kept = append(kept, e)
	}
	m.entries = kept
	return removed, nil
}

func (m *memCacheStore) freshCount(key string, now time.Time) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, e := range m.entries {
		if e.CacheKey == key && e.IsFresh(now) {
			n++
		}
	}
	return n
}

// ============================================================================
// UPSTREAM
// ============================================================================

type fakeRatesClient struct {
	searchResp  *liteapi.RatesResponse
	searchErr   error
	searchCalls []liteapi.RatesRequest

	minResp  *liteapi.MinRatesResponse
	minErr   error
	minCalls []liteapi.RatesRequest

	details    *liteapi.HotelDetails
	detailsErr error
}

func (f *fakeRatesClient) SearchRates(ctx context.Context, req liteapi.RatesRequest) (*liteapi.RatesResponse, error) {
	f.searchCalls = append(f.searchCalls, req)
	return f.searchResp, f.searchErr
}

func (f *fakeRatesClient) MinRates(ctx context.Context, req liteapi.RatesRequest) (*liteapi.MinRatesResponse, error) {
	f.minCalls = append(f.minCalls, req)
	return f.minResp, f.minErr
}

func (f *fakeRatesClient) HotelDetails(ctx context.Context, hotelID, language string) (*liteapi.HotelDetails, error) {
	return f.details, f.detailsErr
}

type prebookOutcome struct {
	resp *liteapi.PrebookResponse
	err  error
}

type fakePrebookClient struct {
	outcomes map[string]prebookOutcome
	calls    []liteapi.PrebookRequest
}

func (f *fakePrebookClient) Prebook(ctx context.Context, req liteapi.PrebookRequest, bookingBaseURL string, timeoutSeconds int) (*liteapi.PrebookResponse, error) {
	f.calls = append(f.calls, req)
	outcome, ok := f.outcomes[req.OfferID]
	if !ok {
		return nil, &liteapi.UpstreamError{StatusCode: 400, Reason: "unknown offer"}
	}
	return outcome.resp, outcome.err
}

type fakeRateFetcher struct {
	resp    *liteapi.RatesResponse
	err     error
	queries []RateQuery
}

func (f *fakeRateFetcher) FetchRates(ctx context.Context, q RateQuery) (*liteapi.RatesResponse, error) {
	f.queries = append(f.queries, q)
	return f.resp, f.err
}

type fakeBookClient struct {
	resp  *liteapi.BookResponse
	err   error
	calls []liteapi.BookRequest
}

func (f *fakeBookClient) Book(ctx context.Context, req liteapi.BookRequest, bookingBaseURL string) (*liteapi.BookResponse, error) {
	f.calls = append(f.calls, req)
	if f.err != nil {
		return nil, f.err
	}
	resp := *f.resp
	return &resp, nil
}

// ============================================================================
// LOCAL DATA
// ============================================================================

type fakeHotelStore struct {
	hotels    map[string]*models.Hotel
	byCity    map[int64][]string
	backfills map[string]models.HotelMetadataPatch
	err       error
}

func newFakeHotelStore() *fakeHotelStore {
	return &fakeHotelStore{
		hotels:    map[string]*models.Hotel{},
		byCity:    map[int64][]string{},
		backfills: map[string]models.HotelMetadataPatch{},
	}
}

func (f *fakeHotelStore) add(h models.Hotel) {
	f.hotels[h.LiteAPIHotelID] = &h
	if h.CityID != nil {
		f.byCity[*h.CityID] = append(f.byCity[*h.CityID], h.LiteAPIHotelID)
	}
}

func (f *fakeHotelStore) GetByLiteAPIIDs(ctx context.Context, ids []string) ([]models.Hotel, error) {
	var out []models.Hotel
	for _, id := range ids {
		if h, ok := f.hotels[id]; ok {
			out = append(out, *h)
		}
	}
	return out, nil
}

func (f *fakeHotelStore) GetByLiteAPIID(ctx context.Context, liteID string) (*models.Hotel, error) {
	h, ok := f.hotels[liteID]
	if !ok {
		return nil, nil
	}
	hotel := *h
	return &hotel, nil
}

func (f *fakeHotelStore) ListLiteAPIIDsByCity(ctx context.Context, cityID int64, limit int) ([]string, error) {
	if f.err != nil {
		return nil, f.err
	}
	ids := f.byCity[cityID]
	if len(ids) > limit {
		ids = ids[:limit]
	}
	return ids, nil
}

func (f *fakeHotelStore) BackfillMetadata(ctx context.Context, liteID string, patch models.HotelMetadataPatch) (bool, error) {
	f.backfills[liteID] = patch
	return true, nil
}

type fakeCityStore struct {
	cities []models.City
}

func (f *fakeCityStore) GetByID(ctx context.Context, id int64) (*models.City, error) {
	for i := range f.cities {
		if f.cities[i].ID == id {
			return &f.cities[i], nil
		}
	}
	return nil, nil
}

func (f *fakeCityStore) GetByLiteAPICityID(ctx context.Context, code string) (*models.City, error) {
	for i := range f.cities {
		if c := f.cities[i].LiteAPICityID; c != nil && strings.EqualFold(*c, code) {
			return &f.cities[i], nil
		}
	}
	return nil, nil
}

func (f *fakeCityStore) ListActive(ctx context.Context) ([]models.City, error) {
	return f.cities, nil
}

type fakeSearchLogs struct {
	logs []models.SearchLog
}

func (f *fakeSearchLogs) LogSearch(ctx context.Context, log *models.SearchLog) error {
	f.logs = append(f.logs, *log)
	return nil
}

func (f *fakeSearchLogs) results() []string {
	out := make([]string, 0, len(f.logs))
	for _, l := range f.logs {
		out = append(out, l.CacheResult)
	}
	return out
}

// ============================================================================
// BOOKINGS
// ============================================================================

type fakeBookingStore struct {
	customers map[string]models.Customer
	bookings  []models.Booking
	failWith  error
}

func newFakeBookingStore() *fakeBookingStore {
	return &fakeBookingStore{customers: map[string]models.Customer{}}
}

func (f *fakeBookingStore) CreateConfirmed(ctx context.Context, customer *models.Customer, booking *models.Booking) error {
	if f.failWith != nil {
		return f.failWith
	}
	for _, b := range f.bookings {
		if b.BookingReference == booking.BookingReference {
			return database.ErrDuplicateBooking
		}
	}

	email := strings.ToLower(customer.Email)
	existing, ok := f.customers[email]
	if !ok {
		existing = models.Customer{ID: uuid.New(), Name: customer.Name, Email: email}
		f.customers[email] = existing
	}
	*customer = existing

	booking.ID = uuid.New()
	booking.CustomerID = existing.ID
	booking.CreatedAt = time.Now()
	f.bookings = append(f.bookings, *booking)
	return nil
}

func (f *fakeBookingStore) GetByID(ctx context.Context, id uuid.UUID) (*models.Booking, error) {
	for i := range f.bookings {
		if f.bookings[i].ID == id {
			return &f.bookings[i], nil
		}
	}
	return nil, ErrBookingNotFound
}

func (f *fakeBookingStore) GetByReference(ctx context.Context, reference string) (*models.Booking, error) {
	for i := range f.bookings {
		if f.bookings[i].BookingReference == reference {
			return &f.bookings[i], nil
		}
	}
	return nil, ErrBookingNotFound
}

func (f *fakeBookingStore) ListByCustomer(ctx context.Context, customerID uuid.UUID) ([]models.Booking, error) {
	var out []models.Booking
	for _, b := range f.bookings {
		if b.CustomerID == customerID {
			out = append(out, b)
		}
	}
	return out, nil
}

type fakePublisher struct {
	events []events.BookingConfirmed
	err    error
}

func (f *fakePublisher) PublishBookingConfirmed(ctx context.Context, evt events.BookingConfirmed) error {
	f.events = append(f.events, evt)
	return f.err
}

type countingMetrics struct {
	cache    map[string]int
	refresh  map[string]int
	bookings map[string]int
}

func newCountingMetrics() *countingMetrics {
	return &countingMetrics{
		cache:    map[string]int{},
		refresh:  map[string]int{},
		bookings: map[string]int{},
	}
}

func (m *countingMetrics) IncCacheLookup(result string)     { m.cache[result]++ }
func (m *countingMetrics) IncPrebookRefresh(outcome string) { m.refresh[outcome]++ }
func (m *countingMetrics) IncBookings(status string)        { m.bookings[status]++ }
