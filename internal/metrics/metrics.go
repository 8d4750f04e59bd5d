// Package metrics holds the Prometheus instruments shared by the cache
// controllers, upstream clients and HTTP layer.  Collectors are registered
// with the default registry; Handler exposes them on /metrics.
package metrics

import (
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// WeatherCacheLookups counts GetCurrentWeather outcomes by result (hit, miss).
	WeatherCacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "weather_cache_lookups_total",
			Help: "Weather cache lookups by result.",
		},
		[]string{"result"},
	)

	// GeocodeSearches counts SearchLocations calls by whether the term was
	// already known (cached) or sent upstream.
	GeocodeSearches = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "geocode_searches_total",
			Help: "Location searches by cache result.",
		},
		[]string{"result"},
	)

	GeocodeResultsSkipped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "geocode_results_skipped_total",
			Help: "Geocoding results not persisted, by reason.",
		},
		[]string{"reason"},
	)

	UpstreamRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "upstream_requests_total",
			Help: "Requests sent to upstream providers by outcome.",
		},
		[]string{"provider", "outcome"},
	)

	UpstreamDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "upstream_request_duration_seconds",
			Help:    "Upstream provider request latency in seconds.",
			Buckets: []float64{.05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"provider"},
	)

	WeatherRowsPruned = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "weather_rows_pruned_total",
			Help: "Weather history rows removed by the retention job.",
		},
	)

	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"method", "path", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency in seconds.",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"method", "path"},
	)
)

// ObserveUpstream records one upstream call.
func ObserveUpstream(provider string, started time.Time, err error) {
	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	UpstreamRequests.WithLabelValues(provider, outcome).Inc()
	UpstreamDuration.WithLabelValues(provider).Observe(time.Since(started).Seconds())
}

// Middleware records request counts and latency per route.
func Middleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		path := c.Path()
		if strings.HasPrefix(path, "/metrics") {
			return c.Next()
		}

		start := time.Now()
		err := c.Next()

		// render the error now so the recorded status is the one sent
		if err != nil {
			if herr := c.App().ErrorHandler(c, err); herr != nil {
				_ = c.SendStatus(fiber.StatusInternalServerError)
			}
		}

		routePath := c.Route().Path
		if routePath == "" {
			routePath = path
		}
		status := c.Response().StatusCode()

		httpRequestsTotal.WithLabelValues(c.Method(), routePath, strconv.Itoa(status)).Inc()
		httpRequestDuration.WithLabelValues(c.Method(), routePath).Observe(time.Since(start).Seconds())
		return nil
	}
}

// Handler serves the default registry.
func Handler() fiber.Handler {
	return adaptor.HTTPHandler(promhttp.Handler())
}
