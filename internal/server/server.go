package server

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"

	"example.com/notes-api/internal/notes"
)

// Pinger reports whether the backing database is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

type Options struct {
	Version     string
	Env         string
	CORSOrigins []string
	Logger      zerolog.Logger

	DB    Pinger
	Store notes.Store
}

// NewRouter assembles the HTTP surface: middleware, service routes and the
// notes API under /api/notes.
func NewRouter(opts Options) http.Handler {
	started := time.Now()
	r := chi.NewRouter()

	r.Use(middleware.RealIP)
	r.Use(RequestLogger(opts.Logger))
	r.Use(Recover)
	r.Use(Security(opts.Env == "production"))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   opts.CORSOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Set before Mount so the notes subrouter inherits them.
	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, map[string]any{
			"success": false,
			"error":   "endpoint not found",
			"path":    r.URL.Path,
		})
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]any{
			"success": false,
			"error":   "method not allowed",
			"path":    r.URL.Path,
		})
	})

	r.Get("/", info(opts))
	r.Get("/health", health(opts.DB, started))
	r.Mount("/api/notes", notes.NewHandlers(opts.Store).Routes())

	return r
}

func info(opts Options) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"message":     "Notes API",
			"version":     opts.Version,
			"environment": opts.Env,
			"endpoints": map[string]string{
				"health": "/health",
				"notes":  "/api/notes",
				"search": "/api/notes/search?q={query}",
			},
		})
	}
}

func health(db Pinger, started time.Time) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status, dbStatus, code := "ok", "ok", http.StatusOK
		if db != nil {
			if err := db.Ping(r.Context()); err != nil {
				zerolog.Ctx(r.Context()).Warn().Err(err).Msg("database ping failed")
				status, dbStatus, code = "degraded", "unavailable", http.StatusServiceUnavailable
			}
		}

		writeJSON(w, code, map[string]any{
			"status":    status,
			"timestamp": time.Now().UTC().Format(time.RFC3339),
			"uptime":    time.Since(started).Seconds(),
			"database":  dbStatus,
		})
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]any{
		"success": false,
		"error":   msg,
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
