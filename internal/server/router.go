package server

import (
	"context"
	"io/fs"
	"net/http"
	"sort"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/GyroZepelix/mithril-studio/internal/metrics"
)

// ContentTypesHandler serves normalized content types. The router is
// decoupled from the concrete implementation through this interface.
type ContentTypesHandler interface {
	List(w http.ResponseWriter, r *http.Request)
	Get(w http.ResponseWriter, r *http.Request)
	Project(w http.ResponseWriter, r *http.Request)
	InvalidateCache(w http.ResponseWriter, r *http.Request)
}

// SnapshotsHandler serves stored catalog snapshots.
type SnapshotsHandler interface {
	Create(w http.ResponseWriter, r *http.Request)
	List(w http.ResponseWriter, r *http.Request)
	Latest(w http.ResponseWriter, r *http.Request)
	Diff(w http.ResponseWriter, r *http.Request)
}

// AuditLogHandler serves the recorded admin actions of a site.
type AuditLogHandler interface {
	List(w http.ResponseWriter, r *http.Request)
}

// HealthChecker is a dependency probed by GET /health.
type HealthChecker interface {
	Health(ctx context.Context) error
}

// HealthFunc adapts a function to HealthChecker.
type HealthFunc func(ctx context.Context) error

// Health calls f.
func (f HealthFunc) Health(ctx context.Context) error { return f(ctx) }

// Dependencies holds all injectable dependencies used by route handlers.
// Only ContentTypes is required. Snapshots and AuditLog need a database and
// answer 501 when nil.
type Dependencies struct {
	ContentTypes   ContentTypesHandler
	Snapshots      SnapshotsHandler
	AuditLog       AuditLogHandler
	AuthMiddleware func(http.Handler) http.Handler

	// Checks are probed by name on every health request.
	Checks map[string]HealthChecker

	// Metrics is mounted at /metrics when set.
	Metrics http.Handler

	DevMode     bool
	CORSOrigins []string
	AdminFS     fs.FS
}

// NewRouter builds the chi router with the full route tree and middleware
// stack.
func NewRouter(deps Dependencies) chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(metrics.TrackHTTP)
	r.Use(middleware.Recoverer)
	r.Use(corsMiddleware(deps.DevMode, deps.CORSOrigins))

	r.Get("/health", healthHandler(deps.Checks))
	if deps.Metrics != nil {
		r.Handle("/metrics", deps.Metrics)
	}

	r.Route("/admin/api/sites/{site}", func(r chi.Router) {
		r.Use(requireJSON)
		if deps.AuthMiddleware != nil {
			r.Use(deps.AuthMiddleware)
		}

		r.Get("/content-types", deps.ContentTypes.List)
		r.Get("/content-types/*", deps.ContentTypes.Get)
		r.Post("/projections/*", deps.ContentTypes.Project)
		r.Post("/cache/invalidate", deps.ContentTypes.InvalidateCache)

		if deps.Snapshots != nil {
			r.Post("/snapshots", deps.Snapshots.Create)
			r.Get("/snapshots", deps.Snapshots.List)
			r.Get("/snapshots/latest", deps.Snapshots.Latest)
			r.Get("/snapshots/latest/diff", deps.Snapshots.Diff)
		} else {
			r.Post("/snapshots", storageDisabled)
			r.Get("/snapshots", storageDisabled)
			r.Get("/snapshots/latest", storageDisabled)
			r.Get("/snapshots/latest/diff", storageDisabled)
		}

		if deps.AuditLog != nil {
			r.Get("/audit-log", deps.AuditLog.List)
		} else {
			r.Get("/audit-log", storageDisabled)
		}
	})

	// SPA catch-all (must be last).
	r.NotFound(newSPAHandler(deps.DevMode, deps.AdminFS))

	return r
}

// corsMiddleware allows the Vite dev origins in dev mode plus any configured
// origins.
func corsMiddleware(devMode bool, origins []string) func(http.Handler) http.Handler {
	allowedOrigins := append([]string{}, origins...)
	if devMode {
		allowedOrigins = append(allowedOrigins, "http://localhost:5173", "http://localhost:8080")
	}

	return cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	})
}

// healthHandler probes every check and reports the failing ones.
func healthHandler(checks map[string]HealthChecker) http.HandlerFunc {
	names := make([]string, 0, len(checks))
	for name := range checks {
		names = append(names, name)
	}
	sort.Strings(names)

	return func(w http.ResponseWriter, r *http.Request) {
		var failed []FieldError
		for _, name := range names {
			if err := checks[name].Health(r.Context()); err != nil {
				failed = append(failed, FieldError{Field: name, Message: err.Error()})
			}
		}
		if len(failed) > 0 {
			Error(w, http.StatusServiceUnavailable, "UNHEALTHY", "dependency health check failed", failed)
			return
		}
		JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}

func storageDisabled(w http.ResponseWriter, r *http.Request) {
	Error(w, http.StatusNotImplemented, "STORAGE_DISABLED", "no database is configured", nil)
}
