package cafe

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	"golang.org/x/sync/errgroup"

	"github.com/neexbeast/cafe-swipe/internal/metrics"
)

const (
	// FallbackCityLabel is shown when coordinates cannot be resolved to a city.
	FallbackCityLabel = "your area"

	defaultMaxPerTier = 20
)

// DefaultLocation is used when the client cannot or will not share its position.
var DefaultLocation = LatLng{Latitude: 28.6139, Longitude: 77.2090}

// DefaultLocationLabel names DefaultLocation.
const DefaultLocationLabel = "Delhi"

// DefaultRadii are the search tiers in meters, nearest first.
var DefaultRadii = []int{5000, 10000, 15000}

// placesSearcher is the interface satisfied by PlacesClient.
type placesSearcher interface {
	SearchNearby(ctx context.Context, center LatLng, radius, maxResults int) ([]Place, error)
}

// reverseGeocoder is the interface satisfied by GeocodeClient.
type reverseGeocoder interface {
	ReverseGeocode(ctx context.Context, at LatLng) (string, error)
}

// Options tune the search. Zero values fall back to the defaults.
type Options struct {
	Radii         []int
	MaxPerTier    int
	DefaultCenter *LatLng
	DefaultLabel  string
}

func (o Options) withDefaults() Options {
	if len(o.Radii) == 0 {
		o.Radii = DefaultRadii
	}
	if o.MaxPerTier <= 0 {
		o.MaxPerTier = defaultMaxPerTier
	}
	if o.DefaultCenter == nil {
		c := DefaultLocation
		o.DefaultCenter = &c
	}
	if o.DefaultLabel == "" {
		o.DefaultLabel = DefaultLocationLabel
	}
	return o
}

// Fetcher locates the user and runs the tiered nearby search.
type Fetcher struct {
	places   placesSearcher
	geocoder reverseGeocoder
	opts     Options
	log      *slog.Logger
}

// NewFetcher constructs a Fetcher with the Google clients using production URLs.
func NewFetcher(apiKey string, opts Options, log *slog.Logger) *Fetcher {
	return NewFetcherWithClients(NewPlacesClient(apiKey, log), NewGeocodeClient(apiKey, log), opts, log)
}

// NewFetcherWithClients constructs a Fetcher with injectable clients (used in tests).
func NewFetcherWithClients(p placesSearcher, g reverseGeocoder, opts Options, log *slog.Logger) *Fetcher {
	return &Fetcher{places: p, geocoder: g, opts: opts.withDefaults(), log: log}
}

// Locate resolves where to search. A nil position means geolocation is
// unavailable: the default location is used and a warning returned.
// Geocoding failures fall back to FallbackCityLabel. Locate never fails.
func (f *Fetcher) Locate(ctx context.Context, pos *LatLng) (LatLng, string, []string) {
	if pos == nil {
		warning := "location unavailable, showing cafes near " + f.opts.DefaultLabel
		return *f.opts.DefaultCenter, f.opts.DefaultLabel, []string{warning}
	}

	city, err := f.geocoder.ReverseGeocode(ctx, *pos)
	if err != nil {
		f.log.Warn("reverse geocode failed", "lat", pos.Latitude, "lng", pos.Longitude, "err", err)
		metrics.GeocodeLookups.WithLabelValues("fallback").Inc()
		return *pos, FallbackCityLabel, nil
	}

	metrics.GeocodeLookups.WithLabelValues("success").Inc()
	return *pos, city, nil
}

// FetchTiers runs one nearby search per radius in parallel. The result has
// one slot per radius in configured order; a failed tier is left empty.
func (f *Fetcher) FetchTiers(ctx context.Context, center LatLng) ([][]Place, error) {
	g, gCtx := errgroup.WithContext(ctx)
	tiers := make([][]Place, len(f.opts.Radii))

	for i, radius := range f.opts.Radii {
		label := strconv.Itoa(radius)
		g.Go(func() error {
			defer func() {
				if r := recover(); r != nil {
					f.log.Error("tier fetch panicked", "radius", radius, "recover", r)
					metrics.TierFetches.WithLabelValues(label, "failure").Inc()
					tiers[i] = nil
				}
			}()
			places, fetchErr := f.places.SearchNearby(gCtx, center, radius, f.opts.MaxPerTier)
			if fetchErr != nil {
				f.log.Warn("tier fetch failed", "radius", radius, "err", fetchErr)
				metrics.TierFetches.WithLabelValues(label, "failure").Inc()
				return nil
			}
			metrics.TierFetches.WithLabelValues(label, "success").Inc()
			tiers[i] = places
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("fetching cafe tiers: %w", err)
	}

	return tiers, nil
}

// Search locates the user, fetches every tier and aggregates the feed.
func (f *Fetcher) Search(ctx context.Context, pos *LatLng) (*SearchResult, error) {
	center, city, warnings := f.Locate(ctx, pos)

	tiers, err := f.FetchTiers(ctx, center)
	if err != nil {
		return nil, fmt.Errorf("searching cafes near %s: %w", city, err)
	}

	agg := Aggregate(tiers...)
	metrics.FeedSize.Observe(float64(len(agg.Cafes)))
	f.log.Info("cafe search complete",
		"city", city,
		"cafes", len(agg.Cafes),
		"popular", agg.PopularCount,
		"hidden_gems", agg.HiddenGemCount,
	)

	return &SearchResult{
		Location:       center,
		City:           city,
		Cafes:          agg.Cafes,
		PopularCount:   agg.PopularCount,
		HiddenGemCount: agg.HiddenGemCount,
		Warnings:       warnings,
	}, nil
}
