package liteapi

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

// Audit results
const (
	ResultSuccess = "success"
	ResultBlocked = "blocked"
	ResultError   = "error"
)

// CredentialsProvider resolves the base URL and API key at call time.
type CredentialsProvider interface {
	Credentials(ctx context.Context) (baseURL, apiKey string, err error)
}

// StaticCredentials is a CredentialsProvider with fixed values
type StaticCredentials struct {
	BaseURL string
	APIKey  string
}

// Credentials implements CredentialsProvider
func (s StaticCredentials) Credentials(ctx context.Context) (string, string, error) {
	return s.BaseURL, s.APIKey, nil
}

// AuditEntry describes one client invocation, successful or not
type AuditEntry struct {
	Endpoint     string
	Method       string
	URL          string
	Result       string
	StatusCode   int
	RequestBody  string
	ResponseBody string
	Error        string
	Actor        Actor
	Duration     time.Duration
}

// AuditSink persists audit entries. Errors are logged by the client and never
// change the outcome of the call.
type AuditSink interface {
	RecordCall(ctx context.Context, entry AuditEntry) error
}

// Observer receives per-call timing, typically for metrics.
type Observer interface {
	ObserveCall(endpoint, result string, duration time.Duration)
}

// Config holds client settings
type Config struct {
	Timeout            time.Duration
	InsecureSkipVerify bool
	UserAgent          string
	AllowedEndpoints   []string
}

// Request is one upstream call
type Request struct {
	Endpoint string
	Method   string
	Payload  interface{}
	Query    url.Values
	BaseURL  string // overrides the configured base URL for this call
}

// Client executes allow-listed calls against LiteAPI and audits every one of them.
type Client struct {
	httpClient  *http.Client
	credentials CredentialsProvider
	audit       AuditSink
	observer    Observer
	allowed     []string
	userAgent   string
	logger      *logrus.Logger
}

// Option customizes a Client
type Option func(*Client)

// WithHTTPClient replaces the underlying http.Client
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithObserver registers a call observer
func WithObserver(o Observer) Option {
	return func(c *Client) {
		c.observer = o
	}
}

// NewClient creates a new LiteAPI client
func NewClient(config Config, credentials CredentialsProvider, audit AuditSink, logger *logrus.Logger, opts ...Option) *Client {
	if config.Timeout <= 0 {
		config.Timeout = 45 * time.Second
	}
	if config.UserAgent == "" {
		config.UserAgent = "liteapi-booking/1.0"
	}
	allowed := config.AllowedEndpoints
	if len(allowed) == 0 {
		allowed = DefaultAllowedEndpoints
	}
	if logger == nil {
		logger = logrus.New()
	}

	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.TLSClientConfig = &tls.Config{
		MinVersion:         tls.VersionTLS12,
		InsecureSkipVerify: config.InsecureSkipVerify,
	}

	c := &Client{
		httpClient: &http.Client{
			Timeout:   config.Timeout,
			Transport: transport,
		},
		credentials: credentials,
		audit:       audit,
		allowed:     allowed,
		userAgent:   config.UserAgent,
		logger:      logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Execute performs one call and returns the raw JSON body. Exactly one audit entry
// is recorded per invocation, including blocked and failed calls.
func (c *Client) Execute(ctx context.Context, req Request) (body json.RawMessage, err error) {
	start := time.Now()
	method := strings.ToUpper(req.Method)
	if method == "" {
		method = http.MethodGet
	}

	entry := AuditEntry{
		Endpoint: req.Endpoint,
		Method:   method,
		Actor:    ActorFromContext(ctx),
	}

	defer func() {
		switch {
		case err == nil:
			entry.Result = ResultSuccess
		case entry.Result == "":
			entry.Result = ResultError
		}
		if err != nil {
			entry.Error = err.Error()
		}
		entry.Duration = time.Since(start)
		c.record(ctx, entry)
	}()

	if !IsAllowed(req.Endpoint, c.allowed) {
		entry.Result = ResultBlocked
		c.logger.WithFields(logrus.Fields{
			"endpoint": req.Endpoint,
			"actor":    entry.Actor.Name,
		}).Warn("Blocked call to endpoint outside allow-list")
		return nil, &BlockedEndpointError{Endpoint: req.Endpoint}
	}

	return c.do(ctx, req, method, &entry)
}

func (c *Client) do(ctx context.Context, req Request, method string, entry *AuditEntry) (json.RawMessage, error) {
	baseURL, apiKey, err := c.resolveCredentials(ctx, req.BaseURL)
	if err != nil {
		return nil, err
	}

	fullURL := baseURL + req.Endpoint
	if len(req.Query) > 0 {
		separator := "?"
		if strings.Contains(req.Endpoint, "?") {
			separator = "&"
		}
		fullURL += separator + req.Query.Encode()
	}
	entry.URL = fullURL

	var reader io.Reader
	if req.Payload != nil && method != http.MethodGet {
		payload, err := json.Marshal(req.Payload)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request payload: %w", err)
		}
		entry.RequestBody = string(payload)
		reader = bytes.NewReader(payload)
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, fullURL, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	httpReq.Header.Set("X-API-Key", apiKey)
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("User-Agent", c.userAgent)
	httpReq.Close = true

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, &TransportError{URL: fullURL, Err: err}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &TransportError{URL: fullURL, Err: fmt.Errorf("read body: %w", err)}
	}
	entry.StatusCode = resp.StatusCode
	entry.ResponseBody = string(respBody)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &UpstreamError{StatusCode: resp.StatusCode, URL: fullURL, Body: string(respBody)}
	}

	trimmed := bytes.TrimSpace(respBody)
	if len(trimmed) == 0 {
		return nil, &UpstreamError{StatusCode: resp.StatusCode, URL: fullURL, Reason: "empty response body"}
	}
	if !json.Valid(trimmed) {
		return nil, &UpstreamError{StatusCode: resp.StatusCode, URL: fullURL, Body: string(respBody), Reason: "invalid JSON in response"}
	}

	return json.RawMessage(trimmed), nil
}

func (c *Client) resolveCredentials(ctx context.Context, override string) (string, string, error) {
	if c.credentials == nil {
		return "", "", &ConfigurationError{Missing: "credentials provider"}
	}
	baseURL, apiKey, err := c.credentials.Credentials(ctx)
	if err != nil {
		return "", "", fmt.Errorf("failed to load liteapi credentials: %w", err)
	}
	if override != "" {
		baseURL = override
	}

	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	apiKey = strings.TrimSpace(apiKey)
	if baseURL == "" {
		return "", "", &ConfigurationError{Missing: "base URL"}
	}
	if apiKey == "" {
		return "", "", &ConfigurationError{Missing: "API key"}
	}
	return baseURL, apiKey, nil
}

func (c *Client) record(ctx context.Context, entry AuditEntry) {
	if c.observer != nil {
		c.observer.ObserveCall(entry.Endpoint, entry.Result, entry.Duration)
	}
	if c.audit == nil {
		return
	}
	// The audit write must not be cancelled together with the caller's request.
	if err := c.audit.RecordCall(context.WithoutCancel(ctx), entry); err != nil {
		c.logger.WithError(err).WithFields(logrus.Fields{
			"endpoint": entry.Endpoint,
			"result":   entry.Result,
		}).Warn("Failed to write liteapi audit record")
	}
}

// ============================================================================
// TYPED CALLS
// ============================================================================

// SearchRates calls POST /hotels/rates
func (c *Client) SearchRates(ctx context.Context, req RatesRequest) (*RatesResponse, error) {
	raw, err := c.Execute(ctx, Request{Endpoint: "/hotels/rates", Method: http.MethodPost, Payload: req})
	if err != nil {
		return nil, err
	}
	var resp RatesResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, fmt.Errorf("failed to decode rates response: %w", err)
	}
	return &resp, nil
}

// MinRates calls POST /hotels/min-rates
func (c *Client) MinRates(ctx context.Context, req RatesRequest) (*MinRatesResponse, error) {
	raw, err := c.Execute(ctx, Request{Endpoint: "/hotels/min-rates", Method: http.MethodPost, Payload: req})
	if err != nil {
		return nil, err
	}
	var resp MinRatesResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, fmt.Errorf("failed to decode min-rates response: %w", err)
	}
	return &resp, nil
}

// HotelDetails calls GET /data/hotel. A response without data returns nil, nil.
func (c *Client) HotelDetails(ctx context.Context, hotelID, language string) (*HotelDetails, error) {
	query := url.Values{}
	query.Set("hotelId", hotelID)
	if language != "" {
		query.Set("language", language)
	}
	raw, err := c.Execute(ctx, Request{Endpoint: "/data/hotel", Method: http.MethodGet, Query: query})
	if err != nil {
		return nil, err
	}
	var envelope struct {
		Data *HotelDetails `json:"data"`
	}
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return nil, fmt.Errorf("failed to decode hotel details: %w", err)
	}
	return envelope.Data, nil
}

// Countries calls GET /data/countries
func (c *Client) Countries(ctx context.Context) ([]Country, error) {
	raw, err := c.Execute(ctx, Request{Endpoint: "/data/countries", Method: http.MethodGet})
	if err != nil {
		return nil, err
	}
	var envelope struct {
		Data []Country `json:"data"`
	}
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return nil, fmt.Errorf("failed to decode countries: %w", err)
	}
	return envelope.Data, nil
}

// Cities calls GET /data/cities for one country
func (c *Client) Cities(ctx context.Context, countryCode string) ([]City, error) {
	query := url.Values{}
	query.Set("countryCode", countryCode)
	raw, err := c.Execute(ctx, Request{Endpoint: "/data/cities", Method: http.MethodGet, Query: query})
	if err != nil {
		return nil, err
	}
	var envelope struct {
		Data []City `json:"data"`
	}
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return nil, fmt.Errorf("failed to decode cities: %w", err)
	}
	return envelope.Data, nil
}

// Hotels calls GET /data/hotels
func (c *Client) Hotels(ctx context.Context, q HotelListQuery) ([]CatalogHotel, error) {
	query := url.Values{}
	query.Set("countryCode", q.CountryCode)
	if q.CityName != "" {
		query.Set("cityName", q.CityName)
	}
	if q.Limit > 0 {
		query.Set("limit", strconv.Itoa(q.Limit))
	}
	if q.Offset > 0 {
		query.Set("offset", strconv.Itoa(q.Offset))
	}
	raw, err := c.Execute(ctx, Request{Endpoint: "/data/hotels", Method: http.MethodGet, Query: query})
	if err != nil {
		return nil, err
	}
	var envelope struct {
		Data []CatalogHotel `json:"data"`
	}
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return nil, fmt.Errorf("failed to decode hotels: %w", err)
	}
	return envelope.Data, nil
}

// Prebook calls POST /rates/prebook on the booking host. The response may wrap the
// session in "data" or return it at the top level.
func (c *Client) Prebook(ctx context.Context, req PrebookRequest, bookingBaseURL string, timeoutSeconds int) (*PrebookResponse, error) {
	query := url.Values{}
	query.Set("timeout", strconv.Itoa(timeoutSeconds))
	query.Set("includeCreditBalance", strconv.FormatBool(req.IncludeCreditBalance))

	raw, err := c.Execute(ctx, Request{
		Endpoint: "/rates/prebook",
		Method:   http.MethodPost,
		Payload:  req,
		Query:    query,
		BaseURL:  bookingBaseURL,
	})
	if err != nil {
		return nil, err
	}

	var resp PrebookResponse
	if _, err := decodeData(raw, &resp); err != nil {
		return nil, fmt.Errorf("failed to decode prebook response: %w", err)
	}
	if resp.PrebookID == "" {
		return nil, &UpstreamError{StatusCode: http.StatusOK, URL: "/rates/prebook", Body: string(raw), Reason: "prebook response has no prebookId: " + Truncate(string(raw), 200)}
	}
	return &resp, nil
}

// Book calls POST /rates/book on the booking host. It does not interpret the
// result; callers check BookingID and Status.
func (c *Client) Book(ctx context.Context, req BookRequest, bookingBaseURL string) (*BookResponse, error) {
	raw, err := c.Execute(ctx, Request{
		Endpoint: "/rates/book",
		Method:   http.MethodPost,
		Payload:  req,
		BaseURL:  bookingBaseURL,
	})
	if err != nil {
		return nil, err
	}

	var resp BookResponse
	data, err := decodeData(raw, &resp)
	if err != nil {
		return nil, fmt.Errorf("failed to decode book response: %w", err)
	}
	resp.Raw = data
	if len(resp.Error) == 0 {
		// failure objects sometimes sit next to an empty data object
		var top struct {
			Error json.RawMessage `json:"error"`
		}
		if err := json.Unmarshal(raw, &top); err == nil && len(top.Error) > 0 && string(top.Error) != "null" {
			resp.Error = top.Error
		}
	}
	return &resp, nil
}

// decodeData unmarshals raw["data"] into out when present, otherwise raw itself.
// It returns the bytes that were decoded.
func decodeData(raw json.RawMessage, out interface{}) (json.RawMessage, error) {
	var envelope struct {
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(raw, &envelope); err == nil {
		data := bytes.TrimSpace(envelope.Data)
		if len(data) > 0 && data[0] == '{' {
			return data, json.Unmarshal(data, out)
		}
	}
	return raw, json.Unmarshal(raw, out)
}
