// Package metrics holds the Prometheus collectors shared across the service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// TierFetches counts nearby searches per radius tier.
	// Labels:
	//   - radius: search radius in meters
	//   - outcome: "success", "failure"
	TierFetches = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cafe_tier_fetches_total",
			Help: "Nearby cafe searches per radius tier",
		},
		[]string{"radius", "outcome"},
	)

	// GeocodeLookups counts reverse geocoding calls.
	// Labels:
	//   - outcome: "success", "fallback"
	GeocodeLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cafe_geocode_lookups_total",
			Help: "Reverse geocoding lookups by outcome",
		},
		[]string{"outcome"},
	)

	// FeedSize observes the number of cafes in each aggregated feed.
	FeedSize = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "cafe_feed_size",
			Help:    "Number of cafes in an aggregated feed",
			Buckets: []float64{0, 5, 10, 20, 30, 40, 50, 60},
		},
	)

	// FavoriteSaves counts save attempts.
	// Labels:
	//   - outcome: "saved", "duplicate", "error"
	FavoriteSaves = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cafe_favorite_saves_total",
			Help: "Favorite save attempts by outcome",
		},
		[]string{"outcome"},
	)

	// CircuitBreakerState is the current state per breaker: 0 closed, 1 half-open, 2 open.
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "cafe_circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)
)
