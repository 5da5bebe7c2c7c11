// Package metrics holds the Prometheus collectors of the service: seating
// sync runs, spreadsheet API calls and HTTP requests.
package metrics

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// SyncCounter counts sync operations by outcome
	SyncCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "seating_sync_total",
			Help: "Total number of seating sync operations",
		},
		[]string{"operation", "outcome"},
	)

	// SyncDuration records how long each sync operation took
	SyncDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "seating_sync_duration_seconds",
			Help:    "Duration of seating sync operations in seconds",
			Buckets: []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30},
		},
		[]string{"operation"},
	)

	// LockedGauge is 1 once seating has been finalized
	LockedGauge = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "seating_locked",
			Help: "1 when seating is locked, 0 otherwise",
		},
	)

	// SheetCalls counts spreadsheet API calls
	SheetCalls = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sheets_calls_total",
			Help: "Total number of spreadsheet API calls",
		},
		[]string{"operation", "outcome"},
	)

	SheetCallDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "sheets_call_duration_seconds",
			Help:    "Duration of spreadsheet API calls in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation"},
	)

	RequestCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	RequestDurationHistogram = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)
)

var registerOnce sync.Once

// Register adds all collectors to the default registry. Safe to call more
// than once.
func Register() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			SyncCounter, SyncDuration, LockedGauge,
			SheetCalls, SheetCallDuration,
			RequestCounter, RequestDurationHistogram,
		)
	})
}

// ObserveSync records one finished sync operation.
func ObserveSync(operation, outcome string, took time.Duration) {
	SyncCounter.WithLabelValues(operation, outcome).Inc()
	SyncDuration.WithLabelValues(operation).Observe(took.Seconds())
}

// SetLocked mirrors the lock state into the gauge.
func SetLocked(locked bool) {
	if locked {
		LockedGauge.Set(1)
		return
	}
	LockedGauge.Set(0)
}

// ObserveSheetCall matches sheets.Observer and records one API call.
func ObserveSheetCall(op string, took time.Duration, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	SheetCalls.WithLabelValues(op, outcome).Inc()
	SheetCallDuration.WithLabelValues(op).Observe(took.Seconds())
}

// Middleware records request count and latency per route.
func Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)

			status := c.Response().Status
			if he, ok := err.(*echo.HTTPError); ok {
				status = he.Code
			}
			method := c.Request().Method
			path := c.Path()
			RequestCounter.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
			RequestDurationHistogram.WithLabelValues(method, path).Observe(time.Since(start).Seconds())
			return err
		}
	}
}

// Handler exposes the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
