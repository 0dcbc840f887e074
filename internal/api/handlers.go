package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/neexbeast/cafe-swipe/internal/cafe"
	"github.com/neexbeast/cafe-swipe/internal/metrics"
)

const maxBodyBytes = 1 << 20

var validate = validator.New()

// Handlers holds the dependencies for all HTTP handlers.
type Handlers struct {
	searcher  CafeSearcher
	sessions  SessionStore
	favorites FavoritesRepo
	photos    *cafe.PhotoResolver
	media     PhotoSource
	log       *slog.Logger
	now       func() time.Time
	newID     func() string
}

// NewHandlers constructs Handlers with all required dependencies.
func NewHandlers(searcher CafeSearcher, sessions SessionStore, favorites FavoritesRepo, media PhotoSource, log *slog.Logger) *Handlers {
	return &Handlers{
		searcher:  searcher,
		sessions:  sessions,
		favorites: favorites,
		photos:    cafe.NewPhotoResolver(PhotoPath),
		media:     media,
		log:       log,
		now:       func() time.Time { return time.Now().UTC() },
		newID:     uuid.NewString,
	}
}

// writeJSON encodes v as JSON and writes it with the given status code.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// decodeBody reads a JSON request body into dst. An empty body leaves dst untouched.
func decodeBody(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("decoding request body: %w", err)
	}
	return nil
}

type createSessionRequest struct {
	Latitude  *float64 `json:"latitude" validate:"omitempty,gte=-90,lte=90"`
	Longitude *float64 `json:"longitude" validate:"omitempty,gte=-180,lte=180"`
}

type sessionResponse struct {
	SessionID      string      `json:"session_id"`
	City           string      `json:"city"`
	Location       cafe.LatLng `json:"location"`
	Warnings       []string    `json:"warnings,omitempty"`
	PopularCount   int         `json:"popular_count"`
	HiddenGemCount int         `json:"hidden_gem_count"`
	Total          int         `json:"total"`
	Cards          []cafe.Card `json:"cards"`
	Message        string      `json:"message,omitempty"`
}

// CreateSession handles POST /api/v1/sessions.
// Searches around the given coordinates (or the default location when they
// are missing) and stores the result as a new session.
func (h *Handlers) CreateSession(w http.ResponseWriter, r *http.Request) {
	var req createSessionRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if (req.Latitude == nil) != (req.Longitude == nil) {
		writeError(w, http.StatusBadRequest, "latitude and longitude must be given together")
		return
	}
	if err := validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid coordinates")
		return
	}

	var pos *cafe.LatLng
	if req.Latitude != nil {
		pos = &cafe.LatLng{Latitude: *req.Latitude, Longitude: *req.Longitude}
	}

	res, err := h.searcher.Search(r.Context(), pos)
	if err != nil {
		h.log.Error("cafe search failed", "err", err)
		writeError(w, http.StatusInternalServerError, "failed to search cafes")
		return
	}

	sess := cafe.NewSession(h.newID(), res, h.now())
	if err := h.sessions.Save(r.Context(), sess); err != nil {
		h.log.Error("session save failed", "session", sess.ID, "err", err)
		writeError(w, http.StatusInternalServerError, "failed to store session")
		return
	}

	resp := sessionResponse{
		SessionID:      sess.ID,
		City:           res.City,
		Location:       res.Location,
		Warnings:       res.Warnings,
		PopularCount:   res.PopularCount,
		HiddenGemCount: res.HiddenGemCount,
		Total:          len(res.Cafes),
		Cards:          cafe.RenderCards(res.Cafes, h.photos),
	}
	if resp.Total == 0 {
		resp.Message = "No cafes found in " + res.City
	}

	writeJSON(w, http.StatusCreated, resp)
}

// loadSession fetches the session named in the URL, writing 404 or 500 when
// it cannot be used.
func (h *Handlers) loadSession(w http.ResponseWriter, r *http.Request) (*cafe.Session, bool) {
	id := chi.URLParam(r, "id")

	sess, err := h.sessions.Get(r.Context(), id)
	if err != nil {
		h.log.Error("session get failed", "session", id, "err", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return nil, false
	}
	if sess == nil {
		writeError(w, http.StatusNotFound, "session not found")
		return nil, false
	}
	return sess, true
}

type cardsResponse struct {
	SessionID string        `json:"session_id"`
	Criteria  cafe.Criteria `json:"criteria"`
	Total     int           `json:"total"`
	Cards     []cafe.Card   `json:"cards"`
	Message   string        `json:"message,omitempty"`
}

// ListCards handles GET /api/v1/sessions/{id}/cards.
// The view is derived from the stored feed on every call and never changes it.
func (h *Handlers) ListCards(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	criteria, err := cafe.ParseCriteria(q.Get("min_rating"), q.Get("type"), q.Get("sort"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	sess, ok := h.loadSession(w, r)
	if !ok {
		return
	}

	view := cafe.ApplyView(sess.Cafes, criteria)
	resp := cardsResponse{
		SessionID: sess.ID,
		Criteria:  criteria,
		Total:     len(view),
		Cards:     cafe.RenderCards(view, h.photos),
	}
	switch {
	case len(sess.Cafes) == 0:
		resp.Message = "No cafes found in " + sess.City
	case len(view) == 0:
		resp.Message = "No cafes match your filters"
	}

	writeJSON(w, http.StatusOK, resp)
}

// MapView handles GET /api/v1/sessions/{id}/map.
func (h *Handlers) MapView(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.loadSession(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, cafe.BuildMapView(sess))
}

// DeleteSession handles DELETE /api/v1/sessions/{id}.
// Deleting an unknown or expired session is not an error.
func (h *Handlers) DeleteSession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.sessions.Delete(r.Context(), id); err != nil {
		h.log.Error("session delete failed", "session", id, "err", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type swipeRequest struct {
	Direction string `json:"direction" validate:"required,oneof=left right"`
}

type saveResponse struct {
	Saved   bool            `json:"saved"`
	Message string          `json:"message"`
	Cafe    *cafe.SavedCafe `json:"cafe,omitempty"`
}

type swipeResponse struct {
	PlaceID   string `json:"place_id"`
	Direction string `json:"direction"`
	saveResponse
}

// Swipe handles POST /api/v1/sessions/{id}/cards/{placeID}/swipe.
// Only the first gesture on a card counts. A right swipe saves the cafe.
func (h *Handlers) Swipe(w http.ResponseWriter, r *http.Request) {
	var req swipeRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, `direction must be "left" or "right"`)
		return
	}

	sess, ok := h.loadSession(w, r)
	if !ok {
		return
	}

	placeID := chi.URLParam(r, "placeID")
	p, found := sess.FindCafe(placeID)
	if !found {
		writeError(w, http.StatusNotFound, "card not found")
		return
	}

	first, err := h.sessions.MarkSwiped(r.Context(), sess.ID, placeID)
	if err != nil {
		h.log.Error("mark swiped failed", "session", sess.ID, "place_id", placeID, "err", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	if !first {
		writeError(w, http.StatusConflict, "card already swiped")
		return
	}

	resp := swipeResponse{PlaceID: placeID, Direction: req.Direction}
	if req.Direction == "left" {
		resp.Message = p.Name() + " dismissed"
		writeJSON(w, http.StatusOK, resp)
		return
	}

	saved := cafe.ToSaved(p, h.photos, h.now())
	result, err := h.save(r.Context(), saved)
	if err != nil {
		// Release the card so the same swipe can be retried.
		if uerr := h.sessions.UnmarkSwiped(context.WithoutCancel(r.Context()), sess.ID, placeID); uerr != nil {
			h.log.Error("unmark swiped failed", "session", sess.ID, "place_id", placeID, "err", uerr)
		}
		writeError(w, http.StatusInternalServerError, "failed to save cafe")
		return
	}
	resp.saveResponse = result
	writeJSON(w, http.StatusOK, resp)
}

// save inserts c into favorites and records the outcome.
func (h *Handlers) save(ctx context.Context, c cafe.SavedCafe) (saveResponse, error) {
	inserted, err := h.favorites.Save(ctx, c)
	if err != nil {
		metrics.FavoriteSaves.WithLabelValues("error").Inc()
		h.log.Error("favorite save failed", "place_id", c.PlaceID, "err", err)
		return saveResponse{}, err
	}
	if !inserted {
		metrics.FavoriteSaves.WithLabelValues("duplicate").Inc()
		return saveResponse{Saved: false, Message: c.Name + " is already saved"}, nil
	}

	metrics.FavoriteSaves.WithLabelValues("saved").Inc()
	h.log.Info("cafe saved", "place_id", c.PlaceID, "name", c.Name)
	return saveResponse{Saved: true, Message: c.Name + " saved!", Cafe: &c}, nil
}

type favoritesResponse struct {
	Total     int              `json:"total"`
	Favorites []cafe.SavedCafe `json:"favorites"`
	Message   string           `json:"message,omitempty"`
}

// ListFavorites handles GET /api/v1/favorites.
func (h *Handlers) ListFavorites(w http.ResponseWriter, r *http.Request) {
	saved, err := h.favorites.List(r.Context())
	if err != nil {
		h.log.Error("favorites list failed", "err", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	resp := favoritesResponse{Total: len(saved), Favorites: saved}
	if len(saved) == 0 {
		resp.Message = "No saved cafes yet"
	}
	writeJSON(w, http.StatusOK, resp)
}

// GetFavorite handles GET /api/v1/favorites/{placeID}.
func (h *Handlers) GetFavorite(w http.ResponseWriter, r *http.Request) {
	placeID := chi.URLParam(r, "placeID")

	saved, err := h.favorites.Get(r.Context(), placeID)
	if err != nil {
		h.log.Error("favorite get failed", "place_id", placeID, "err", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	if saved == nil {
		writeError(w, http.StatusNotFound, "cafe not saved")
		return
	}
	writeJSON(w, http.StatusOK, saved)
}

// SaveFavorite handles POST /api/v1/favorites.
// 201 when the cafe was inserted, 200 with saved=false when it already existed.
func (h *Handlers) SaveFavorite(w http.ResponseWriter, r *http.Request) {
	var c cafe.SavedCafe
	if err := decodeBody(w, r, &c); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := validate.Struct(c); err != nil {
		writeError(w, http.StatusBadRequest, "name and place_id are required")
		return
	}
	if c.Rating == "" {
		c.Rating = "N/A"
	}
	if c.Photo == "" {
		c.Photo = cafe.PlaceholderPhotoURL
	}
	if c.SavedAt.IsZero() {
		c.SavedAt = h.now()
	}

	resp, err := h.save(r.Context(), c)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to save cafe")
		return
	}

	status := http.StatusOK
	if resp.Saved {
		status = http.StatusCreated
	}
	writeJSON(w, status, resp)
}

// DeleteFavorite handles DELETE /api/v1/favorites/{placeID}.
func (h *Handlers) DeleteFavorite(w http.ResponseWriter, r *http.Request) {
	placeID := chi.URLParam(r, "placeID")

	removed, err := h.favorites.Delete(r.Context(), placeID)
	if err != nil {
		h.log.Error("favorite delete failed", "place_id", placeID, "err", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	if !removed {
		writeError(w, http.StatusNotFound, "cafe not saved")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ClearFavorites handles DELETE /api/v1/favorites.
func (h *Handlers) ClearFavorites(w http.ResponseWriter, r *http.Request) {
	n, err := h.favorites.Clear(r.Context())
	if err != nil {
		h.log.Error("favorites clear failed", "err", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]int64{"removed": n})
}

// Photo handles GET /api/v1/photos/{name}.
// Redirects to a key-free image URI resolved with the server's credentials.
func (h *Handlers) Photo(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "*")
	if !cafe.ValidPhotoName(name) {
		writeError(w, http.StatusNotFound, "photo not found")
		return
	}

	uri, err := h.media.ResolvePhoto(r.Context(), name)
	switch {
	case errors.Is(err, cafe.ErrPhotoNotFound):
		writeError(w, http.StatusNotFound, "photo not found")
		return
	case err != nil:
		h.log.Warn("photo resolve failed", "photo", name, "err", err)
		writeError(w, http.StatusBadGateway, "photo unavailable")
		return
	}

	w.Header().Set("Cache-Control", "private, max-age=300")
	http.Redirect(w, r, uri, http.StatusFound)
}

type dbPinger interface {
	Ping(ctx context.Context) error
}

type redisPinger interface {
	Ping(ctx context.Context) error
}

// HealthHandlerFunc handles GET /api/v1/health.
// Pings DB and Redis; returns 200 if both ok, 503 otherwise.
func HealthHandlerFunc(db dbPinger, redis redisPinger, log *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
		defer cancel()

		status := http.StatusOK
		overall := "ok"
		dbStatus := "ok"
		redisStatus := "ok"

		if err := db.Ping(ctx); err != nil {
			log.Error("health check: db ping failed", "err", err)
			dbStatus = "error"
			status = http.StatusServiceUnavailable
		}

		if err := redis.Ping(ctx); err != nil {
			log.Error("health check: redis ping failed", "err", err)
			redisStatus = "error"
			status = http.StatusServiceUnavailable
		}

		if status != http.StatusOK {
			overall = "degraded"
		}

		writeJSON(w, status, map[string]string{
			"status": overall,
			"db":     dbStatus,
			"redis":  redisStatus,
		})
	}
}
