package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// PhotoPath is the prefix of the photo endpoint; card photo URLs start with it.
const PhotoPath = "/api/v1/photos/"

// RouterOptions carries the transport settings for NewRouter.
type RouterOptions struct {
	Token              string
	RateLimitPerMinute int
	AllowedOrigins     []string
}

// NewRouter builds and returns the Chi router with all routes configured.
// Health and metrics are unauthenticated; session and favorites routes require bearer auth.
// Rate limiting is applied globally per IP.
func NewRouter(handlers *Handlers, opts RouterOptions, db dbPinger, redisClient redisPinger, log *slog.Logger) *chi.Mux {
	limit := opts.RateLimitPerMinute
	if limit <= 0 {
		limit = 60
	}

	r := chi.NewRouter()

	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(RequestLogger(log))
	r.Use(CORS(opts.AllowedOrigins))
	r.Use(httprate.LimitByIP(limit, time.Minute))

	r.Get("/api/v1/health", HealthHandlerFunc(db, redisClient, log))
	r.Handle("/metrics", promhttp.Handler())

	r.Group(func(r chi.Router) {
		r.Use(BearerAuth(opts.Token))

		r.Post("/api/v1/sessions", handlers.CreateSession)
		r.Delete("/api/v1/sessions/{id}", handlers.DeleteSession)
		r.Get("/api/v1/sessions/{id}/cards", handlers.ListCards)
		r.Get("/api/v1/sessions/{id}/map", handlers.MapView)
		r.Post("/api/v1/sessions/{id}/cards/{placeID}/swipe", handlers.Swipe)

		r.Get("/api/v1/favorites", handlers.ListFavorites)
		r.Get("/api/v1/favorites/{placeID}", handlers.GetFavorite)
		r.Post("/api/v1/favorites", handlers.SaveFavorite)
		r.Delete("/api/v1/favorites", handlers.ClearFavorites)
		r.Delete("/api/v1/favorites/{placeID}", handlers.DeleteFavorite)

		r.Get(PhotoPath+"*", handlers.Photo)
	})

	return r
}

// Ensure chi.Mux implements http.Handler.
var _ http.Handler = (*chi.Mux)(nil)
