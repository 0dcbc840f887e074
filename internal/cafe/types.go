package cafe

import (
	"encoding/json"
	"fmt"
	"time"
)

// LatLng is a WGS84 coordinate pair.
type LatLng struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// DisplayName is the provider's localized name. The provider sends an object
// with a text field, older payloads and saved records carry a plain string.
type DisplayName struct {
	Text         string `json:"text"`
	LanguageCode string `json:"languageCode,omitempty"`
}

// UnmarshalJSON accepts either a plain string or {"text": ..., "languageCode": ...}.
func (d *DisplayName) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		d.Text = s
		d.LanguageCode = ""
		return nil
	}

	type plain DisplayName
	var p plain
	if err := json.Unmarshal(b, &p); err != nil {
		return fmt.Errorf("decoding display name: %w", err)
	}
	*d = DisplayName(p)
	return nil
}

// Photo is a provider photo reference. Name is the resource path used to
// build the media URL.
type Photo struct {
	Name     string `json:"name"`
	WidthPx  int    `json:"widthPx,omitempty"`
	HeightPx int    `json:"heightPx,omitempty"`
}

// Place is a single cafe as returned by the places provider.
// Optional fields are pointers; absence is meaningful for display.
type Place struct {
	ID              string      `json:"id"`
	DisplayName     DisplayName `json:"displayName"`
	Rating          *float64    `json:"rating,omitempty"`
	UserRatingCount *int        `json:"userRatingCount,omitempty"`
	Location        *LatLng     `json:"location,omitempty"`
	Photos          []Photo     `json:"photos,omitempty"`
}

const unknownName = "Unknown Cafe"

// Name returns the human-readable name, or "Unknown Cafe".
func (p Place) Name() string {
	if p.DisplayName.Text == "" {
		return unknownName
	}
	return p.DisplayName.Text
}

// RatingValue returns the rating, treating an absent rating as 0.
func (p Place) RatingValue() float64 {
	if p.Rating == nil {
		return 0
	}
	return *p.Rating
}

// ReviewCount returns the user rating count, treating an absent count as 0.
func (p Place) ReviewCount() int {
	if p.UserRatingCount == nil {
		return 0
	}
	return *p.UserRatingCount
}

// sanitize normalizes a raw provider record. It reports false when the
// record has no identity and must be dropped.
func sanitize(p Place) (Place, bool) {
	if p.ID == "" {
		return Place{}, false
	}
	if p.Rating != nil && (*p.Rating < 1 || *p.Rating > 5) {
		p.Rating = nil
	}
	if p.UserRatingCount != nil && *p.UserRatingCount < 0 {
		p.UserRatingCount = nil
	}
	return p, true
}

// SearchResult is the outcome of one location search.
type SearchResult struct {
	Location       LatLng   `json:"location"`
	City           string   `json:"city"`
	Cafes          []Place  `json:"cafes"`
	PopularCount   int      `json:"popular_count"`
	HiddenGemCount int      `json:"hidden_gem_count"`
	Warnings       []string `json:"warnings,omitempty"`
}

// Session is the per-search state: where the user is and what was found.
// A new search replaces the whole session.
type Session struct {
	ID        string    `json:"id"`
	Location  LatLng    `json:"location"`
	City      string    `json:"city"`
	Cafes     []Place   `json:"cafes"`
	CreatedAt time.Time `json:"created_at"`
}

// NewSession builds a session from a search result.
func NewSession(id string, res *SearchResult, now time.Time) *Session {
	return &Session{
		ID:        id,
		Location:  res.Location,
		City:      res.City,
		Cafes:     res.Cafes,
		CreatedAt: now,
	}
}

// FindCafe returns the cafe with the given place id, if the session holds it.
func (s *Session) FindCafe(placeID string) (Place, bool) {
	for _, c := range s.Cafes {
		if c.ID == placeID {
			return c, true
		}
	}
	return Place{}, false
}

// SavedCafe is the persisted projection of a Place. Unique by PlaceID.
type SavedCafe struct {
	Name     string    `json:"name" validate:"required"`
	PlaceID  string    `json:"place_id" validate:"required"`
	Photo    string    `json:"photo"`
	Rating   string    `json:"rating"`
	Location *LatLng   `json:"location,omitempty"`
	SavedAt  time.Time `json:"saved_at"`
}
