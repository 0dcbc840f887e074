package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/neexbeast/cafe-swipe/internal/cafe"
)

// Querier abstracts the subset of pgxpool.Pool used by FavoritesRepository.
// This allows injection of a mock in tests.
type Querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// FavoritesRepository persists saved cafes, unique by place id.
type FavoritesRepository struct {
	q Querier
}

// NewFavoritesRepository constructs a FavoritesRepository backed by the given pool.
func NewFavoritesRepository(pool *pgxpool.Pool) *FavoritesRepository {
	return &FavoritesRepository{q: pool}
}

// NewFavoritesRepositoryWithQuerier constructs a FavoritesRepository with a custom Querier (for tests).
func NewFavoritesRepositoryWithQuerier(q Querier) *FavoritesRepository {
	return &FavoritesRepository{q: q}
}

const selectSaved = `SELECT place_id, name, photo, rating, location, saved_at FROM saved_cafes`

// Save inserts the cafe unless its place id is already saved.
// It reports false, nil for a duplicate; the stored record is left unchanged.
func (r *FavoritesRepository) Save(ctx context.Context, c cafe.SavedCafe) (bool, error) {
	var location []byte
	if c.Location != nil {
		b, err := json.Marshal(c.Location)
		if err != nil {
			return false, fmt.Errorf("marshaling location for %s: %w", c.PlaceID, err)
		}
		location = b
	}

	savedAt := c.SavedAt
	if savedAt.IsZero() {
		savedAt = time.Now().UTC()
	}

	const q = `
		INSERT INTO saved_cafes (place_id, name, photo, rating, location, saved_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (place_id) DO NOTHING
	`

	tag, err := r.q.Exec(ctx, q, c.PlaceID, c.Name, c.Photo, c.Rating, location, savedAt)
	if err != nil {
		return false, fmt.Errorf("saving cafe %s: %w", c.PlaceID, err)
	}

	return tag.RowsAffected() == 1, nil
}

// Get returns the saved cafe with the given place id.
// Returns nil, nil when it is not saved.
func (r *FavoritesRepository) Get(ctx context.Context, placeID string) (*cafe.SavedCafe, error) {
	c, err := scanSaved(r.q.QueryRow(ctx, selectSaved+` WHERE place_id = $1`, placeID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("querying saved cafe %s: %w", placeID, err)
	}
	return c, nil
}

// List returns every saved cafe, oldest first.
func (r *FavoritesRepository) List(ctx context.Context) ([]cafe.SavedCafe, error) {
	rows, err := r.q.Query(ctx, selectSaved+` ORDER BY saved_at, place_id`)
	if err != nil {
		return nil, fmt.Errorf("querying saved cafes: %w", err)
	}
	defer rows.Close()

	saved := []cafe.SavedCafe{}
	for rows.Next() {
		c, err := scanSaved(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning saved cafe row: %w", err)
		}
		saved = append(saved, *c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating saved cafe rows: %w", err)
	}

	return saved, nil
}

// Delete removes one saved cafe. It reports whether anything was removed.
func (r *FavoritesRepository) Delete(ctx context.Context, placeID string) (bool, error) {
	tag, err := r.q.Exec(ctx, `DELETE FROM saved_cafes WHERE place_id = $1`, placeID)
	if err != nil {
		return false, fmt.Errorf("deleting saved cafe %s: %w", placeID, err)
	}
	return tag.RowsAffected() > 0, nil
}

// Clear removes every saved cafe and returns how many were removed.
func (r *FavoritesRepository) Clear(ctx context.Context) (int64, error) {
	tag, err := r.q.Exec(ctx, `DELETE FROM saved_cafes`)
	if err != nil {
		return 0, fmt.Errorf("clearing saved cafes: %w", err)
	}
	return tag.RowsAffected(), nil
}

func scanSaved(row pgx.Row) (*cafe.SavedCafe, error) {
	var c cafe.SavedCafe
	var location []byte

	if err := row.Scan(&c.PlaceID, &c.Name, &c.Photo, &c.Rating, &location, &c.SavedAt); err != nil {
		return nil, err
	}

	if len(location) > 0 {
		var ll cafe.LatLng
		if err := json.Unmarshal(location, &ll); err != nil {
			return nil, fmt.Errorf("unmarshaling location for %s: %w", c.PlaceID, err)
		}
		c.Location = &ll
	}

	return &c, nil
}
