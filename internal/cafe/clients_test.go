package cafe_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	gobreaker "github.com/sony/gobreaker/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/neexbeast/cafe-swipe/internal/cafe"
)

// ---- breaker accounting ----

func TestPlacesClient_CallerCancellationDoesNotTripBreaker(t *testing.T) {
	srv := httptest.NewServer(placesHandler(t, nil))
	defer srv.Close()

	c := cafe.NewPlacesClientWithURL(srv.URL, "test-key", discardLogger())

	cancelled, cancel := context.WithCancel(context.Background())
	cancel()
	for i := 0; i < 5; i++ {
		_, err := c.SearchNearby(cancelled, cafe.LatLng{}, 5000, 20)
		require.Error(t, err)
		assert.ErrorIs(t, err, context.Canceled)
	}

	places, err := c.SearchNearby(context.Background(), cafe.LatLng{}, 5000, 20)
	require.NoError(t, err, "breaker must stay closed after caller-side cancellations")
	assert.Len(t, places, 2)
}

func TestPlacesClient_ClientRejectionsDoNotTripBreaker(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) <= 5 {
			http.Error(w, "bad request", http.StatusBadRequest)
			return
		}
		placesHandler(t, nil)(w, r)
	}))
	defer srv.Close()

	c := cafe.NewPlacesClientWithURL(srv.URL, "test-key", discardLogger())
	for i := 0; i < 5; i++ {
		_, err := c.SearchNearby(context.Background(), cafe.LatLng{}, 5000, 20)
		require.Error(t, err)
	}

	places, err := c.SearchNearby(context.Background(), cafe.LatLng{}, 5000, 20)
	require.NoError(t, err)
	assert.Len(t, places, 2)
}

func TestPlacesClient_RateLimitTripsBreaker(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		http.Error(w, "slow down", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	c := cafe.NewPlacesClientWithURL(srv.URL, "test-key", discardLogger())
	for i := 0; i < 5; i++ {
		_, _ = c.SearchNearby(context.Background(), cafe.LatLng{}, 5000, 20)
	}

	_, err := c.SearchNearby(context.Background(), cafe.LatLng{}, 5000, 20)
	assert.ErrorIs(t, err, gobreaker.ErrOpenState)
	assert.Equal(t, int32(5), hits.Load())
}

func TestGeocodeClient_MissesDoNotTripBreaker(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch n := hits.Add(1); {
		case n <= 3:
			_, _ = w.Write([]byte(`{"status":"OK","results":[{"address_components":[
				{"long_name":"Maharashtra","types":["administrative_area_level_1"]}
			]}]}`))
		case n <= 5:
			_, _ = w.Write([]byte(`{"status":"ZERO_RESULTS","results":[]}`))
		default:
			_, _ = w.Write([]byte(`{"status":"OK","results":[{"address_components":[
				{"long_name":"Pune","types":["locality","political"]}
			]}]}`))
		}
	}))
	defer srv.Close()

	c := cafe.NewGeocodeClientWithURL(srv.URL, "test-key", discardLogger())
	at := cafe.LatLng{Latitude: 18.5, Longitude: 73.8}
	for i := 0; i < 5; i++ {
		_, err := c.ReverseGeocode(context.Background(), at)
		require.Error(t, err)
	}

	city, err := c.ReverseGeocode(context.Background(), at)
	require.NoError(t, err, "places without a locality are answers, not outages")
	assert.Equal(t, "Pune", city)
}

// ---- PhotoClient ----

func TestPhotoClient_ResolvePhoto(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/places/p1/photos/abc/media", r.URL.Path)
		assert.Equal(t, "true", r.URL.Query().Get("skipHttpRedirect"))
		assert.Equal(t, "400", r.URL.Query().Get("maxWidthPx"))
		assert.Empty(t, r.URL.Query().Get("key"), "key must travel in the header")
		assert.Equal(t, "test-key", r.Header.Get("X-Goog-Api-Key"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"name":"places/p1/photos/abc/media","photoUri":"https://lh3.googleusercontent.test/abc=w400"}`))
	}))
	defer srv.Close()

	c := cafe.NewPhotoClientWithURL(srv.URL, "test-key", discardLogger())
	uri, err := c.ResolvePhoto(context.Background(), "places/p1/photos/abc")
	require.NoError(t, err)
	assert.Equal(t, "https://lh3.googleusercontent.test/abc=w400", uri)
	assert.NotContains(t, uri, "test-key")
}

func TestPhotoClient_InvalidName(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("invalid names must not reach the provider")
	}))
	defer srv.Close()

	c := cafe.NewPhotoClientWithURL(srv.URL, "test-key", discardLogger())
	_, err := c.ResolvePhoto(context.Background(), "places/p1/photos/../../secrets")
	assert.ErrorIs(t, err, cafe.ErrInvalidPhotoName)
}

func TestPhotoClient_NotFoundDoesNotTripBreaker(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		http.Error(w, "gone", http.StatusNotFound)
	}))
	defer srv.Close()

	c := cafe.NewPhotoClientWithURL(srv.URL, "test-key", discardLogger())
	for i := 0; i < 6; i++ {
		_, err := c.ResolvePhoto(context.Background(), "places/p1/photos/abc")
		assert.ErrorIs(t, err, cafe.ErrPhotoNotFound)
	}
	assert.Equal(t, int32(6), hits.Load(), "every lookup reaches the provider")
}
