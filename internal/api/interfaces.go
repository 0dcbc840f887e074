package api

import (
	"context"

	"github.com/neexbeast/cafe-swipe/internal/cafe"
)

// CafeSearcher runs the locate, fetch and aggregate pipeline for one position.
// A nil position means geolocation was unavailable.
type CafeSearcher interface {
	Search(ctx context.Context, pos *cafe.LatLng) (*cafe.SearchResult, error)
}

// SessionStore defines the session operations needed by handlers.
type SessionStore interface {
	Get(ctx context.Context, id string) (*cafe.Session, error)
	Save(ctx context.Context, sess *cafe.Session) error
	Delete(ctx context.Context, id string) error
	MarkSwiped(ctx context.Context, id, placeID string) (bool, error)
	UnmarkSwiped(ctx context.Context, id, placeID string) error
}

// FavoritesRepo defines the favorites storage operations needed by handlers.
type FavoritesRepo interface {
	Save(ctx context.Context, c cafe.SavedCafe) (bool, error)
	Get(ctx context.Context, placeID string) (*cafe.SavedCafe, error)
	List(ctx context.Context) ([]cafe.SavedCafe, error)
	Delete(ctx context.Context, placeID string) (bool, error)
	Clear(ctx context.Context) (int64, error)
}

// PhotoSource resolves a provider photo reference to a fetchable image URI.
type PhotoSource interface {
	ResolvePhoto(ctx context.Context, name string) (string, error)
}
