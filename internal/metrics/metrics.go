// Package metrics exposes Prometheus collectors for HTTP requests and store calls.
package metrics

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"taskapi/internal/store"
)

// Metrics holds the collectors registered on one registry.
type Metrics struct {
	registry *prometheus.Registry

	HTTPRequestDuration *prometheus.HistogramVec
	StoreOperations     *prometheus.CounterVec
	StoreDuration       *prometheus.HistogramVec
}

// New creates the collectors on a fresh registry, together with the
// Go runtime and process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "taskapi_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.ExponentialBuckets(0.001, 2, 12), // 1ms to ~4s
			},
			[]string{"method", "route", "status"},
		),
		StoreOperations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "taskapi_store_operations_total",
				Help: "Document store operations by result",
			},
			[]string{"operation", "result"}, // result: ok, not_found, error
		),
		StoreDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "taskapi_store_operation_duration_seconds",
				Help:    "Document store call duration in seconds",
				Buckets: prometheus.ExponentialBuckets(0.001, 2, 12),
			},
			[]string{"operation"},
		),
	}
	reg.MustRegister(
		m.HTTPRequestDuration,
		m.StoreOperations,
		m.StoreDuration,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() gin.HandlerFunc {
	h := promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
	return gin.WrapH(h)
}

// Middleware records request duration by method, route template and status.
// Unmatched routes are recorded as "unmatched".
func (m *Metrics) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		m.HTTPRequestDuration.
			WithLabelValues(c.Request.Method, route, strconv.Itoa(c.Writer.Status())).
			Observe(time.Since(start).Seconds())
	}
}

func (m *Metrics) observe(op string, start time.Time, err error) {
	result := "ok"
	switch {
	case errors.Is(err, store.ErrNotFound):
		result = "not_found"
	case err != nil:
		result = "error"
	}
	m.StoreOperations.WithLabelValues(op, result).Inc()
	m.StoreDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
}

// InstrumentStore wraps s so every call is counted and timed.
func (m *Metrics) InstrumentStore(s store.Store) store.Store {
	return &instrumentedStore{next: s, m: m}
}

type instrumentedStore struct {
	next store.Store
	m    *Metrics
}

func (s *instrumentedStore) Get(ctx context.Context, collection, id string) (doc store.Document, err error) {
	defer func(start time.Time) { s.m.observe("get", start, err) }(time.Now())
	return s.next.Get(ctx, collection, id)
}

func (s *instrumentedStore) Set(ctx context.Context, collection, id string, data map[string]any) (err error) {
	defer func(start time.Time) { s.m.observe("set", start, err) }(time.Now())
	return s.next.Set(ctx, collection, id, data)
}

func (s *instrumentedStore) Update(ctx context.Context, collection, id string, data map[string]any) (err error) {
	defer func(start time.Time) { s.m.observe("update", start, err) }(time.Now())
	return s.next.Update(ctx, collection, id, data)
}

func (s *instrumentedStore) Delete(ctx context.Context, collection, id string) (err error) {
	defer func(start time.Time) { s.m.observe("delete", start, err) }(time.Now())
	return s.next.Delete(ctx, collection, id)
}

func (s *instrumentedStore) Where(ctx context.Context, collection, field string, value any) (docs []store.Document, err error) {
	defer func(start time.Time) { s.m.observe("where", start, err) }(time.Now())
	return s.next.Where(ctx, collection, field, value)
}

func (s *instrumentedStore) Commit(ctx context.Context, b *store.Batch) (err error) {
	defer func(start time.Time) { s.m.observe("commit", start, err) }(time.Now())
	return s.next.Commit(ctx, b)
}

func (s *instrumentedStore) Close() error {
	return s.next.Close()
}
