package services

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/hotelbridge/liteapi-booking/internal/clock"
	"github.com/hotelbridge/liteapi-booking/internal/database"
	"github.com/hotelbridge/liteapi-booking/internal/models"
	"github.com/hotelbridge/liteapi-booking/pkg/liteapi"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ============================================================================
// WALLET
// ============================================================================

type memWalletStore struct {
	wallets map[uuid.UUID]*models.Wallet
	txns    map[uuid.UUID][]models.WalletTransaction
}

func newMemWalletStore() *memWalletStore {
	return &memWalletStore{
		wallets: make(map[uuid.UUID]*models.Wallet),
		txns:    make(map[uuid.UUID][]models.WalletTransaction),
	}
}

func (m *memWalletStore) GetOrCreate(ctx context.Context, customerID uuid.UUID, currency string) (*models.Wallet, error) {
	w, ok := m.wallets[customerID]
	if !ok {
		w = &models.Wallet{ID: uuid.New(), CustomerID: customerID, Currency: currency}
		m.wallets[customerID] = w
	}
	balance := 0.0
	for _, t := range m.txns[w.ID] {
		balance += t.Amount
	}
	out := *w
	out.Balance = balance
	return &out, nil
}

func (m *memWalletStore) AddTransaction(ctx context.Context, customerID uuid.UUID, currency string, txn *models.WalletTransaction) error {
	w, _ := m.GetOrCreate(ctx, customerID, currency)
	if txn.Amount < 0 && w.Balance+txn.Amount < 0 {
		return database.ErrInsufficientBalance
	}
	txn.ID = uuid.New()
	txn.WalletID = w.ID
	m.txns[w.ID] = append(m.txns[w.ID], *txn)
	return nil
}

func (m *memWalletStore) Transactions(ctx context.Context, walletID uuid.UUID, limit int) ([]models.WalletTransaction, error) {
	return m.txns[walletID], nil
}

type memCustomers map[uuid.UUID]*models.Customer

func (m memCustomers) GetByID(ctx context.Context, id uuid.UUID) (*models.Customer, error) {
	return m[id], nil
}

type fakeRefundStore struct {
	err    error
	audits []models.RefundAudit
}

func (f *fakeRefundStore) RefundToWallet(ctx context.Context, audit *models.RefundAudit) error {
	if f.err != nil {
		return f.err
	}
	f.audits = append(f.audits, *audit)
	return nil
}

func newWalletFixture() (*WalletService, *memWalletStore, *fakeRefundStore, uuid.UUID) {
	customerID := uuid.New()
	store := newMemWalletStore()
	refunds := &fakeRefundStore{}
	customers := memCustomers{customerID: {ID: customerID, Name: "Sara", Email: "sara@example.com"}}
	return NewWalletService(store, customers, refunds, "SAR", testLogger()), store, refunds, customerID
}

func TestWalletService_TopUpAndDeduct(t *testing.T) {
	svc, _, _, customerID := newWalletFixture()
	ctx := context.Background()

	wallet, err := svc.TopUp(ctx, customerID, 500, "  bank transfer  ")
	require.NoError(t, err)
	assert.Equal(t, 500.0, wallet.Balance)
	assert.Equal(t, "SAR", wallet.Currency)

	bookingID := uuid.New()
	wallet, err = svc.Deduct(ctx, customerID, 320, "BK-1", &bookingID)
	require.NoError(t, err)
	assert.Equal(t, 180.0, wallet.Balance)

	txns, err := svc.Transactions(ctx, customerID, 10)
	require.NoError(t, err)
	require.Len(t, txns, 2)
	assert.Equal(t, "bank transfer", txns[0].Reference)
	assert.Equal(t, models.WalletTransactionBooking, txns[1].Type)
	assert.Equal(t, -320.0, txns[1].Amount)
	assert.Equal(t, &bookingID, txns[1].BookingID)

	_, err = svc.Deduct(ctx, customerID, 181, "BK-2", nil)
	assert.ErrorIs(t, err, database.ErrInsufficientBalance)

	balance, err := svc.Balance(ctx, customerID)
	require.NoError(t, err)
	assert.Equal(t, 180.0, balance)
}

func TestWalletService_Rejections(t *testing.T) {
	svc, _, _, customerID := newWalletFixture()
	ctx := context.Background()

	_, err := svc.TopUp(ctx, customerID, 0, "x")
	assert.Error(t, err)

	_, err = svc.Deduct(ctx, customerID, -5, "x", nil)
	assert.Error(t, err)

	_, err = svc.GetOrCreate(ctx, uuid.New())
	assert.ErrorIs(t, err, ErrCustomerNotFound)

	_, err = svc.TopUp(ctx, uuid.New(), 10, "x")
	assert.ErrorIs(t, err, ErrCustomerNotFound)
}

func TestWalletService_Refund(t *testing.T) {
	t.Run("records audit", func(t *testing.T) {
		svc, _, refunds, _ := newWalletFixture()
		bookingID := uuid.New()

		audit, err := svc.Refund(context.Background(), bookingID, 200, " overbooked ", "ops@hotelbridge.io")
		require.NoError(t, err)
		assert.Equal(t, "overbooked", audit.Reason)
		require.Len(t, refunds.audits, 1)
		assert.Equal(t, bookingID, refunds.audits[0].BookingID)
		assert.Equal(t, "ops@hotelbridge.io", refunds.audits[0].ApprovedBy)
	})

	t.Run("store error passes through", func(t *testing.T) {
		svc, _, refunds, _ := newWalletFixture()
		refunds.err = database.ErrBookingNotRefundable

		_, err := svc.Refund(context.Background(), uuid.New(), 200, "x", "ops")
		assert.ErrorIs(t, err, database.ErrBookingNotRefundable)
	})

	t.Run("non-positive amount", func(t *testing.T) {
		svc, _, refunds, _ := newWalletFixture()
		_, err := svc.Refund(context.Background(), uuid.New(), 0, "x", "ops")
		assert.Error(t, err)
		assert.Empty(t, refunds.audits)
	})
}

// ============================================================================
// SETTINGS
// ============================================================================

type memSettings struct {
	values  map[string]string
	readErr error
}

func (m *memSettings) GetValues(ctx context.Context, keys ...string) (map[string]string, error) {
	if m.readErr != nil {
		return nil, m.readErr
	}
	out := make(map[string]string)
	for _, k := range keys {
		if v, ok := m.values[k]; ok {
			out[k] = v
		}
	}
	return out, nil
}

func (m *memSettings) Upsert(ctx context.Context, key, value string) error {
	m.values[key] = value
	return nil
}

func TestSettingsService_Credentials(t *testing.T) {
	tests := []struct {
		name    string
		store   *memSettings
		wantURL string
		wantKey string
	}{
		{
			name:    "environment fallback",
			store:   &memSettings{values: map[string]string{}},
			wantURL: "https://env.example/v3.0",
			wantKey: "env-key",
		},
		{
			name: "stored values win",
			store: &memSettings{values: map[string]string{
				models.SettingLiteAPIBaseURL: "https://db.example/v3.0",
				models.SettingLiteAPIAPIKey:  "db-key",
			}},
			wantURL: "https://db.example/v3.0",
			wantKey: "db-key",
		},
		{
			name:    "blank stored value ignored",
			store:   &memSettings{values: map[string]string{models.SettingLiteAPIAPIKey: "   "}},
			wantURL: "https://env.example/v3.0",
			wantKey: "env-key",
		},
		{
			name:    "store failure falls back",
			store:   &memSettings{readErr: errors.New("connection refused")},
			wantURL: "https://env.example/v3.0",
			wantKey: "env-key",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := NewSettingsService(tt.store, "https://env.example/v3.0", "env-key", testLogger())

			baseURL, apiKey, err := svc.Credentials(context.Background())
			require.NoError(t, err)
			assert.Equal(t, tt.wantURL, baseURL)
			assert.Equal(t, tt.wantKey, apiKey)
		})
	}
}

func TestSettingsService_Update(t *testing.T) {
	store := &memSettings{values: map[string]string{}}
	svc := NewSettingsService(store, "https://env.example/v3.0", "env-key", testLogger())

	settings, err := svc.UpdateLiteAPISettings(context.Background(), models.UpdateLiteAPISettingsRequest{
		BaseURL: "https://api.liteapi.travel/v3.0/",
		APIKey:  "sand_0123456789abcd",
	}, "ops@hotelbridge.io")
	require.NoError(t, err)

	assert.Equal(t, "https://api.liteapi.travel/v3.0", store.values[models.SettingLiteAPIBaseURL])
	assert.Equal(t, "https://api.liteapi.travel/v3.0", settings.BaseURL)
	assert.Equal(t, "****abcd", settings.APIKeyMasked)
	assert.True(t, settings.IsSandbox)
	assert.NotContains(t, settings.APIKeyMasked, "0123")

	// empty fields leave stored values alone
	_, err = svc.UpdateLiteAPISettings(context.Background(), models.UpdateLiteAPISettingsRequest{}, "ops")
	require.NoError(t, err)
	assert.Equal(t, "sand_0123456789abcd", store.values[models.SettingLiteAPIAPIKey])
}

// ============================================================================
// AUDIT + MAINTENANCE
// ============================================================================

type memAuditStore struct {
	logs   []models.AuditLog
	cutoff time.Time
}

func (m *memAuditStore) Insert(ctx context.Context, entry *models.AuditLog) error {
	m.logs = append(m.logs, *entry)
	return nil
}

func (m *memAuditStore) ListRecent(ctx context.Context, result string, limit int) ([]models.AuditLog, error) {
	return m.logs, nil
}

func (m *memAuditStore) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	m.cutoff = cutoff
	return 4, nil
}

func TestAuditService_RecordCall(t *testing.T) {
	const desktopUA = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

	t.Run("blocked call", func(t *testing.T) {
		store := &memAuditStore{}
		svc := NewAuditService(store)

		err := svc.RecordCall(context.Background(), liteapi.AuditEntry{
			Endpoint: "/data/hotelsX",
			Method:   "GET",
			Result:   liteapi.ResultBlocked,
			Actor:    liteapi.Actor{Name: "public", IPAddress: "203.0.113.9", UserAgent: desktopUA},
		})
		require.NoError(t, err)
		require.Len(t, store.logs, 1)

		log := store.logs[0]
		assert.Equal(t, models.AuditResult(liteapi.ResultBlocked), log.Result)
		assert.Contains(t, log.Details, "not allow-listed")
		assert.Nil(t, log.StatusCode)
		assert.Nil(t, log.URL)
		require.NotNil(t, log.DeviceType)
		assert.True(t, strings.HasPrefix(*log.DeviceType, "desktop/"))
		require.NotNil(t, log.IPAddress)
		assert.Equal(t, "203.0.113.9", *log.IPAddress)
	})

	t.Run("error details are bounded", func(t *testing.T) {
		store := &memAuditStore{}
		svc := NewAuditService(store)

		err := svc.RecordCall(context.Background(), liteapi.AuditEntry{
			Endpoint:   "/rates/prebook",
			Method:     "POST",
			URL:        "https://book.liteapi.travel/v3.0/rates/prebook",
			Result:     liteapi.ResultError,
			StatusCode: 500,
			Error:      strings.Repeat("x", 3000),
			Duration:   1500 * time.Millisecond,
		})
		require.NoError(t, err)

		log := store.logs[0]
		assert.Len(t, log.Details, models.MaxAuditDetailsLength)
		assert.True(t, strings.HasPrefix(log.Details, "POST /rates/prebook failed with status 500"))
		assert.Equal(t, "system", log.Actor)
		assert.Equal(t, int64(1500), log.DurationMs)
		require.NotNil(t, log.StatusCode)
		assert.Equal(t, 500, *log.StatusCode)
	})

	t.Run("multi-byte details are cut on a rune boundary", func(t *testing.T) {
		store := &memAuditStore{}
		svc := NewAuditService(store)

		err := svc.RecordCall(context.Background(), liteapi.AuditEntry{
			Endpoint: "/rates/book",
			Method:   "POST",
			Result:   liteapi.ResultError,
			Error:    "x" + strings.Repeat("ع", 600),
		})
		require.NoError(t, err)
		require.Len(t, store.logs, 1)

		details := store.logs[0].Details
		assert.True(t, utf8.ValidString(details))
		assert.LessOrEqual(t, len(details), models.MaxAuditDetailsLength)
		assert.Greater(t, len(details), models.MaxAuditDetailsLength-utf8.UTFMax)
	})
}

func TestMaintenanceService_Purge(t *testing.T) {
	start := time.Date(2026, 10, 16, 12, 0, 0, 0, time.UTC)
	clk := clock.NewManualClock(start)
	cacheStore := &memCacheStore{}
	cache := NewSearchCacheService(cacheStore, clk, time.Minute, testLogger())
	auditStore := &memAuditStore{}

	fp := models.NewSearchFingerprint(models.SearchRequest{
		SearchType: "city", Value: "42", Checkin: "2026-11-01", Checkout: "2026-11-03", Guests: 2,
	}, "en")
	require.NoError(t, cache.Write(context.Background(), fp, &models.SearchResult{SearchID: "s1"}, 0))
	clk.Advance(2 * time.Minute)
	require.NoError(t, cache.Write(context.Background(), fp, &models.SearchResult{SearchID: "s2"}, 0))

	svc := NewMaintenanceService(cache, NewAuditService(auditStore), 30, clk, testLogger())
	report, err := svc.Purge(context.Background())
	require.NoError(t, err)

	assert.Equal(t, int64(1), report.CacheEntries)
	assert.Equal(t, int64(4), report.AuditLogs)
	assert.WithinDuration(t, time.Now().Add(-30*24*time.Hour), auditStore.cutoff, time.Minute)
	assert.Equal(t, 1, cacheStore.freshCount(fp.Key(), clk.Now()))
}

// ============================================================================
// REPORTS
// ============================================================================

type fakeReportStore struct {
	since time.Time
	rows  []models.AbuseReportRow
}

func (f *fakeReportStore) Dashboard(ctx context.Context, since time.Time) (*models.DashboardKPIs, error) {
	f.since = since
	return &models.DashboardKPIs{}, nil
}

func (f *fakeReportStore) AbuseReport(ctx context.Context, since time.Time, limit int) ([]models.AbuseReportRow, error) {
	f.since = since
	return f.rows, nil
}

func TestRiskLevel(t *testing.T) {
	tests := []struct {
		searches, bookings int
		want               string
	}{
		{21, 0, models.RiskHigh},
		{20, 0, models.RiskLow},
		{500, 1, models.RiskLow},
		{0, 0, models.RiskLow},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, RiskLevel(tt.searches, tt.bookings), "searches=%d bookings=%d", tt.searches, tt.bookings)
	}
}

func TestReportService(t *testing.T) {
	now := time.Date(2026, 10, 16, 14, 5, 0, 0, time.UTC)
	store := &fakeReportStore{rows: []models.AbuseReportRow{
		{Actor: "203.0.113.9", SearchCount: 40},
		{Actor: "ops", SearchCount: 40, BookingCount: 3},
	}}
	svc := NewReportService(store, clock.NewManualClock(now))

	_, err := svc.Dashboard(context.Background())
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 10, 16, 0, 0, 0, 0, time.UTC), store.since)

	rows, err := svc.AbuseReport(context.Background(), 0, 50)
	require.NoError(t, err)
	assert.Equal(t, now.Add(-24*time.Hour), store.since)
	assert.Equal(t, models.RiskHigh, rows[0].RiskLevel)
	assert.Equal(t, models.RiskLow, rows[1].RiskLevel)
}

// ============================================================================
// CATALOG
// ============================================================================

type fakeCatalogClient struct {
	countries []liteapi.Country
	cities    []liteapi.City
	hotels    []liteapi.CatalogHotel
	queries   []liteapi.HotelListQuery
}

func (f *fakeCatalogClient) Countries(ctx context.Context) ([]liteapi.Country, error) {
	return f.countries, nil
}

func (f *fakeCatalogClient) Cities(ctx context.Context, countryCode string) ([]liteapi.City, error) {
	return f.cities, nil
}

func (f *fakeCatalogClient) Hotels(ctx context.Context, q liteapi.HotelListQuery) ([]liteapi.CatalogHotel, error) {
	f.queries = append(f.queries, q)
	end := q.Offset + q.Limit
	if q.Offset >= len(f.hotels) {
		return nil, nil
	}
	if end > len(f.hotels) {
		end = len(f.hotels)
	}
	return f.hotels[q.Offset:end], nil
}

type memCatalogStore struct {
	countries []models.Country
	cities    []models.City
	hotels    []models.Hotel
	failOn    string
}

func (m *memCatalogStore) UpsertCountry(ctx context.Context, country models.Country) error {
	m.countries = append(m.countries, country)
	return nil
}

func (m *memCatalogStore) Upsert(ctx context.Context, city *models.City) error {
	if city.Name == m.failOn {
		return errors.New("constraint violation")
	}
	city.ID = int64(len(m.cities) + 1)
	m.cities = append(m.cities, *city)
	return nil
}

func (m *memCatalogStore) UpsertFromCatalog(ctx context.Context, hotel *models.Hotel) error {
	m.hotels = append(m.hotels, *hotel)
	return nil
}

func TestCatalogService_CountriesAndCities(t *testing.T) {
	client := &fakeCatalogClient{
		countries: []liteapi.Country{{Code: "sa", Name: "Saudi Arabia"}, {Code: "", Name: "Nowhere"}},
		cities:    []liteapi.City{{City: " Riyadh "}, {City: ""}, {City: "Jeddah"}},
	}
	store := &memCatalogStore{failOn: "Jeddah"}
	svc := NewCatalogService(client, store, store, testLogger())

	report, err := svc.SyncCountries(context.Background())
	require.NoError(t, err)
	assert.Equal(t, SyncReport{Imported: 1}, report)
	assert.Equal(t, "SA", store.countries[0].Code)

	report, err = svc.SyncCities(context.Background(), " sa ")
	require.NoError(t, err)
	assert.Equal(t, SyncReport{Imported: 1, Failed: 1}, report)
	assert.Equal(t, "Riyadh", store.cities[0].Name)
	assert.Equal(t, "SA", store.cities[0].CountryCode)
	assert.False(t, store.cities[0].IsActive)
}

func TestCatalogService_SyncHotelsPages(t *testing.T) {
	stars := 4.0
	client := &fakeCatalogClient{}
	for i := 0; i < 5; i++ {
		client.hotels = append(client.hotels, liteapi.CatalogHotel{ID: uuid.NewString(), Name: "Hotel", Stars: &stars})
	}
	client.hotels[0].MainPhoto = "https://img.example/1.jpg"

	store := &memCatalogStore{}
	svc := NewCatalogService(client, store, store, testLogger())
	city := &models.City{ID: 42, Name: "Riyadh", CountryCode: "SA"}

	report, err := svc.SyncHotels(context.Background(), "sa", city, 2)
	require.NoError(t, err)

	assert.Equal(t, 5, report.Imported)
	assert.Len(t, client.queries, 3)
	assert.Equal(t, "SA", client.queries[0].CountryCode)
	assert.Equal(t, 4, client.queries[2].Offset)

	require.Len(t, store.hotels, 5)
	assert.Equal(t, int64(42), *store.hotels[0].CityID)
	assert.Equal(t, 4, *store.hotels[0].StarRating)
	require.NotNil(t, store.hotels[0].ImageURL)
	assert.Nil(t, store.hotels[1].ImageURL)
}
