package cafe_test

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/neexbeast/cafe-swipe/internal/cafe"
)

func TestPhotoResolver_URL(t *testing.T) {
	r := cafe.NewPhotoResolver("/api/v1/photos/")

	p := place("a", 4.5, 10)
	p.Photos = []cafe.Photo{{Name: "places/a/photos/p1"}, {Name: "places/a/photos/p2"}}
	got := r.URL(p)
	assert.Equal(t, "/api/v1/photos/places/a/photos/p1", got)
	assert.NotContains(t, got, "key")

	assert.Equal(t, cafe.PlaceholderPhotoURL, r.URL(place("b", 4.5, 10)))

	odd := place("c", 4.5, 10)
	odd.Photos = []cafe.Photo{{Name: "places/c/photos/../../x"}}
	assert.Equal(t, cafe.PlaceholderPhotoURL, r.URL(odd), "malformed references are not passed through")
}

func TestValidPhotoName(t *testing.T) {
	assert.True(t, cafe.ValidPhotoName("places/ChIJ_a-1/photos/AUc7tX-q_9"))
	for _, name := range []string{
		"",
		"places/a/photos",
		"places/a/photos/b/media",
		"places/a/photos/../b",
		"https://evil.test/places/a/photos/b",
		"places/a/reviews/b",
	} {
		assert.False(t, cafe.ValidPhotoName(name), name)
	}
}

func TestDisplayRating(t *testing.T) {
	assert.Equal(t, "4.5", cafe.DisplayRating(place("a", 4.5, 1)))
	assert.Equal(t, "5", cafe.DisplayRating(place("a", 5, 1)))
	assert.Equal(t, "N/A", cafe.DisplayRating(place("a", -1, 1)))
}

func TestDisplayName_DecodesStringOrObject(t *testing.T) {
	var structured cafe.Place
	require.NoError(t, json.Unmarshal([]byte(`{"id":"1","displayName":{"text":"Blue Tokai","languageCode":"en"}}`), &structured))
	assert.Equal(t, "Blue Tokai", structured.Name())
	assert.Equal(t, "en", structured.DisplayName.LanguageCode)

	var plain cafe.Place
	require.NoError(t, json.Unmarshal([]byte(`{"id":"2","displayName":"Third Wave"}`), &plain))
	assert.Equal(t, "Third Wave", plain.Name())

	var missing cafe.Place
	require.NoError(t, json.Unmarshal([]byte(`{"id":"3"}`), &missing))
	assert.Equal(t, "Unknown Cafe", missing.Name())
}

func TestRenderCards(t *testing.T) {
	r := cafe.NewPhotoResolver("/api/v1/photos/")
	pop := place("pop", 4.4, 300)
	pop.Location = &cafe.LatLng{Latitude: 1, Longitude: 2}
	pop.Photos = []cafe.Photo{{Name: "places/pop/photos/x"}}
	gem := place("gem", 4.7, -1)

	cards := cafe.RenderCards([]cafe.Place{pop, gem}, r)

	require.Len(t, cards, 2)
	assert.Equal(t, "pop", cards[0].PlaceID)
	assert.Equal(t, "Cafe pop", cards[0].Name)
	assert.Equal(t, "4.4", cards[0].Rating)
	assert.Equal(t, 300, cards[0].ReviewCount)
	assert.Equal(t, cafe.TierPopular, cards[0].Tier)
	assert.Equal(t, &cafe.LatLng{Latitude: 1, Longitude: 2}, cards[0].Location)
	assert.Equal(t, "/api/v1/photos/places/pop/photos/x", cards[0].Photo)

	assert.Equal(t, cafe.TierHiddenGem, cards[1].Tier)
	assert.Equal(t, cafe.PlaceholderPhotoURL, cards[1].Photo)
	assert.Zero(t, cards[1].ReviewCount)
}

func TestToSaved(t *testing.T) {
	r := cafe.NewPhotoResolver("/api/v1/photos/")
	p := place("x", -1, 3)
	p.Photos = []cafe.Photo{{Name: "places/x/photos/y"}}
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	saved := cafe.ToSaved(p, r, now)

	assert.Equal(t, "x", saved.PlaceID)
	assert.Equal(t, "Cafe x", saved.Name)
	assert.Equal(t, "N/A", saved.Rating)
	assert.Equal(t, "/api/v1/photos/places/x/photos/y", saved.Photo)
	assert.NotContains(t, saved.Photo, "key=")
	assert.Equal(t, now, saved.SavedAt)
}

func TestBuildMapView_SkipsCafesWithoutLocation(t *testing.T) {
	located := place("here", 4.5, 200)
	located.Location = &cafe.LatLng{Latitude: 28.6, Longitude: 77.2}

	s := &cafe.Session{
		Location: cafe.LatLng{Latitude: 28.61, Longitude: 77.21},
		Cafes:    []cafe.Place{located, place("nowhere", 4.5, 5)},
	}

	view := cafe.BuildMapView(s)

	assert.Equal(t, s.Location, view.Center)
	require.Len(t, view.Markers, 1)
	assert.Equal(t, "here", view.Markers[0].PlaceID)
	assert.Equal(t, *located.Location, view.Markers[0].Position)
}

func TestSession_FindCafe(t *testing.T) {
	res := &cafe.SearchResult{City: "Pune", Cafes: []cafe.Place{place("a", 4.5, 5)}}
	s := cafe.NewSession("sid", res, time.Now())

	got, ok := s.FindCafe("a")
	require.True(t, ok)
	assert.Equal(t, "a", got.ID)

	_, ok = s.FindCafe("missing")
	assert.False(t, ok)
}
