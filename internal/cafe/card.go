package cafe

import (
	"regexp"
	"strconv"
	"time"
)

const (
	// PlaceholderPhotoURL is shown when a place has no photos.
	PlaceholderPhotoURL = "https://via.placeholder.com/250x150?text=No+Image"

	photoMaxWidthPx    = 400
	ratingNotAvailable = "N/A"
)

var photoNamePattern = regexp.MustCompile(`^places/[A-Za-z0-9_-]+/photos/[A-Za-z0-9_-]+$`)

// ValidPhotoName reports whether name is a provider photo reference of the
// form places/<place id>/photos/<photo id>.
func ValidPhotoName(name string) bool {
	return photoNamePattern.MatchString(name)
}

// PhotoResolver turns photo references into client-facing image URLs. The
// URLs point at this service's photo endpoint, which adds credentials
// server-side, so they stay valid across API key rotation.
type PhotoResolver struct {
	prefix string
}

// NewPhotoResolver constructs a PhotoResolver whose URLs start with prefix,
// e.g. "/api/v1/photos/".
func NewPhotoResolver(prefix string) *PhotoResolver {
	return &PhotoResolver{prefix: prefix}
}

// URL returns the image URL for the place's first photo, or the placeholder.
func (r *PhotoResolver) URL(p Place) string {
	if len(p.Photos) == 0 || !ValidPhotoName(p.Photos[0].Name) {
		return PlaceholderPhotoURL
	}
	return r.prefix + p.Photos[0].Name
}

// Card is one swipeable unit of the feed.
type Card struct {
	PlaceID     string  `json:"place_id"`
	Name        string  `json:"name"`
	Photo       string  `json:"photo"`
	Rating      string  `json:"rating"`
	ReviewCount int     `json:"review_count"`
	Location    *LatLng `json:"location,omitempty"`
	Tier        Tier    `json:"tier,omitempty"`
}

// DisplayRating formats the rating for display, "N/A" when absent.
func DisplayRating(p Place) string {
	if p.Rating == nil {
		return ratingNotAvailable
	}
	return strconv.FormatFloat(*p.Rating, 'f', -1, 64)
}

// RenderCards projects places into cards, preserving order.
func RenderCards(places []Place, photos *PhotoResolver) []Card {
	cards := make([]Card, 0, len(places))
	for _, p := range places {
		cards = append(cards, Card{
			PlaceID:     p.ID,
			Name:        p.Name(),
			Photo:       photos.URL(p),
			Rating:      DisplayRating(p),
			ReviewCount: p.ReviewCount(),
			Location:    p.Location,
			Tier:        Classify(p),
		})
	}
	return cards
}

// ToSaved is the minimized projection persisted when a cafe is saved.
func ToSaved(p Place, photos *PhotoResolver, now time.Time) SavedCafe {
	return SavedCafe{
		Name:     p.Name(),
		PlaceID:  p.ID,
		Photo:    photos.URL(p),
		Rating:   DisplayRating(p),
		Location: p.Location,
		SavedAt:  now,
	}
}

// Marker is a single pin for the map view.
type Marker struct {
	PlaceID  string `json:"place_id"`
	Name     string `json:"name"`
	Rating   string `json:"rating"`
	Position LatLng `json:"position"`
}

// MapView is the data a map renderer needs: where the user is and where the cafes are.
type MapView struct {
	Center  LatLng   `json:"center"`
	Markers []Marker `json:"markers"`
}

// BuildMapView returns markers for every session cafe that has a location.
func BuildMapView(s *Session) MapView {
	markers := make([]Marker, 0, len(s.Cafes))
	for _, p := range s.Cafes {
		if p.Location == nil {
			continue
		}
		markers = append(markers, Marker{
			PlaceID:  p.ID,
			Name:     p.Name(),
			Rating:   DisplayRating(p),
			Position: *p.Location,
		})
	}
	return MapView{Center: s.Location, Markers: markers}
}
