package cafe

import (
	"fmt"
	"sort"
	"strconv"

	"github.com/go-playground/validator/v10"
)

// TypeFilter selects which popularity tier to show.
type TypeFilter string

const (
	TypeAll     TypeFilter = "all"
	TypePopular TypeFilter = "popular"
	TypeHidden  TypeFilter = "hidden"
)

// SortOrder selects the display order.
type SortOrder string

const (
	// SortMixed keeps the aggregated interleaved order.
	SortMixed   SortOrder = "mixed"
	SortRating  SortOrder = "rating"
	SortReviews SortOrder = "reviews"
)

// Criteria are the user-chosen filters applied on top of the aggregated feed.
type Criteria struct {
	MinRating float64    `json:"min_rating" validate:"gte=0,lte=5"`
	Type      TypeFilter `json:"type" validate:"oneof=all popular hidden"`
	SortBy    SortOrder  `json:"sort" validate:"oneof=mixed rating reviews"`
}

// DefaultCriteria shows everything in feed order.
func DefaultCriteria() Criteria {
	return Criteria{MinRating: 0, Type: TypeAll, SortBy: SortMixed}
}

var validate = validator.New()

// Validate checks that every criterion holds a known value.
func (c Criteria) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid criteria: %w", err)
	}
	return nil
}

// ParseCriteria builds Criteria from raw query values. Empty values keep
// their defaults.
func ParseCriteria(minRating, typ, sortBy string) (Criteria, error) {
	c := DefaultCriteria()
	if minRating != "" {
		v, err := strconv.ParseFloat(minRating, 64)
		if err != nil {
			return Criteria{}, fmt.Errorf("parsing min_rating %q: %w", minRating, err)
		}
		c.MinRating = v
	}
	if typ != "" {
		c.Type = TypeFilter(typ)
	}
	if sortBy != "" {
		c.SortBy = SortOrder(sortBy)
	}
	if err := c.Validate(); err != nil {
		return Criteria{}, err
	}
	return c, nil
}

// ApplyView filters and sorts a copy of cafes. The input slice is never
// modified, so SortMixed always gives back the aggregated order.
func ApplyView(cafes []Place, c Criteria) []Place {
	out := make([]Place, 0, len(cafes))
	for _, p := range cafes {
		if p.RatingValue() < c.MinRating {
			continue
		}
		switch c.Type {
		case TypePopular:
			if p.ReviewCount() <= popularMinReviews {
				continue
			}
		case TypeHidden:
			if p.ReviewCount() > popularMinReviews {
				continue
			}
		}
		out = append(out, p)
	}

	switch c.SortBy {
	case SortRating:
		sort.SliceStable(out, func(i, j int) bool {
			return out[i].RatingValue() > out[j].RatingValue()
		})
	case SortReviews:
		sort.SliceStable(out, func(i, j int) bool {
			return out[i].ReviewCount() > out[j].ReviewCount()
		})
	}

	return out
}
