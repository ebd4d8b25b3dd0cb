package metrics

import (
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/valyala/fasthttp/fasthttpadaptor"
)

var (
	// HTTP metrics
	httpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "cambiomap",
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "Total HTTP requests processed",
	}, []string{"method", "path", "status"})

	httpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "cambiomap",
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "HTTP request latency in seconds",
		Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
	}, []string{"method", "path"})

	// Search-core metrics
	SearchesIssued = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "cambiomap",
		Subsystem: "search",
		Name:      "issued_total",
		Help:      "Nearby searches issued, by trigger class",
	}, []string{"trigger"})

	SearchesSkipped = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "cambiomap",
		Subsystem: "search",
		Name:      "skipped_total",
		Help:      "Nearby searches short-circuited without a network call",
	}, []string{"reason"})

	StaleResponsesDropped = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "cambiomap",
		Subsystem: "search",
		Name:      "stale_responses_dropped_total",
		Help:      "Responses discarded because a newer request superseded them",
	})

	SearchFailures = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "cambiomap",
		Subsystem: "search",
		Name:      "failures_total",
		Help:      "Upstream nearby-search failures",
	})

	UpstreamLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "cambiomap",
		Subsystem: "search",
		Name:      "upstream_duration_seconds",
		Help:      "Latency of upstream nearby-search requests",
		Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
	})

	MovesEvaluated = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "cambiomap",
		Subsystem: "viewport",
		Name:      "moves_evaluated_total",
		Help:      "Settled camera moves, by classification verdict",
	}, []string{"verdict"})

	MarkerOps = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "cambiomap",
		Subsystem: "markers",
		Name:      "ops_total",
		Help:      "Marker table operations applied per page replacement",
	}, []string{"op"})

	ActiveSessions = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "cambiomap",
		Subsystem: "ws",
		Name:      "active_sessions",
		Help:      "Current number of active map sessions",
	})

	GeocodeFailures = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "cambiomap",
		Subsystem: "geocode",
		Name:      "failures_total",
		Help:      "Geocoding lookups that fell back to the default center",
	})

	CacheHits = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "cambiomap",
		Subsystem: "cache",
		Name:      "hits_total",
		Help:      "Total cache hits",
	}, []string{"operation"})

	CacheMisses = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "cambiomap",
		Subsystem: "cache",
		Name:      "misses_total",
		Help:      "Total cache misses",
	}, []string{"operation"})
)

// Middleware records request metrics.
func Middleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()

		err := c.Next()

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(c.Response().StatusCode())
		path := c.Route().Path
		if path == "" {
			path = c.Path()
		}
		method := c.Method()

		httpRequestsTotal.WithLabelValues(method, path, status).Inc()
		httpRequestDuration.WithLabelValues(method, path).Observe(duration)

		return err
	}
}

// Handler returns a Fiber handler serving the Prometheus /metrics endpoint.
func Handler() fiber.Handler {
	handler := promhttp.Handler()
	return func(c *fiber.Ctx) error {
		fasthttpadaptor.NewFastHTTPHandler(handler)(c.Context())
		return nil
	}
}
