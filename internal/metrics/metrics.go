package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the Prometheus collectors of the booking service
type Metrics struct {
	UpstreamCalls       *prometheus.CounterVec
	UpstreamLatency     *prometheus.HistogramVec
	CacheLookups        *prometheus.CounterVec
	PrebookRefreshes    *prometheus.CounterVec
	BookingsTotal       *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
	HTTPRequestsTotal   *prometheus.CounterVec
	Registry            *prometheus.Registry
}

// NewMetrics creates the collectors and registers them on r
func NewMetrics(r *prometheus.Registry) *Metrics {
	m := &Metrics{
		UpstreamCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "liteapi_calls_total",
			Help: "Upstream calls by endpoint and audit result",
		}, []string{"endpoint", "result"}),
		UpstreamLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "liteapi_call_duration_seconds",
			Help:    "Upstream call latency",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 45},
		}, []string{"endpoint"}),
		CacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "hotel_search_cache_lookups_total",
			Help: "Search cache lookups by outcome (hit, miss, stale, empty)",
		}, []string{"result"}),
		PrebookRefreshes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "prebook_offer_refreshes_total",
			Help: "Offer refresh attempts by outcome",
		}, []string{"outcome"}),
		BookingsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "hotel_bookings_total",
			Help: "Finalized bookings by status",
		}, []string{"status"}),
		HTTPRequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latencies",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "path", "status"}),
		HTTPRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total HTTP requests",
		}, []string{"method", "path", "status"}),
		Registry: r,
	}

	r.MustRegister(
		m.UpstreamCalls,
		m.UpstreamLatency,
		m.CacheLookups,
		m.PrebookRefreshes,
		m.BookingsTotal,
		m.HTTPRequestDuration,
		m.HTTPRequestsTotal,
	)

	return m
}

// ObserveCall records one upstream call
func (m *Metrics) ObserveCall(endpoint, result string, d time.Duration) {
	m.UpstreamCalls.WithLabelValues(endpoint, result).Inc()
	m.UpstreamLatency.WithLabelValues(endpoint).Observe(d.Seconds())
}

func (m *Metrics) IncCacheLookup(result string) { m.CacheLookups.WithLabelValues(result).Inc() }

func (m *Metrics) IncPrebookRefresh(outcome string) { m.PrebookRefreshes.WithLabelValues(outcome).Inc() }

func (m *Metrics) IncBookings(status string) { m.BookingsTotal.WithLabelValues(status).Inc() }

// Middleware records request count and latency per route template
func (m *Metrics) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		status := strconv.Itoa(c.Writer.Status())
		m.HTTPRequestDuration.WithLabelValues(c.Request.Method, path, status).Observe(time.Since(start).Seconds())
		m.HTTPRequestsTotal.WithLabelValues(c.Request.Method, path, status).Inc()
	}
}

// Handler exposes the registry in the Prometheus text format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{})
}
