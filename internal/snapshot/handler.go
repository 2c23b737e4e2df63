package snapshot

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/GyroZepelix/mithril-studio/internal/auth"
	"github.com/GyroZepelix/mithril-studio/internal/legacy"
	"github.com/GyroZepelix/mithril-studio/internal/schema"
	"github.com/GyroZepelix/mithril-studio/internal/server"
)

// Snapshotter is the part of Service used by the handler.
type Snapshotter interface {
	Create(ctx context.Context, site, actor string) (*Snapshot, error)
	Latest(ctx context.Context, site string) (*Snapshot, error)
	List(ctx context.Context, site string, page, perPage int) ([]*Snapshot, int, error)
	Diff(ctx context.Context, site string) (*Diff, error)
}

// Handler provides HTTP handlers for content type snapshots.
type Handler struct {
	service Snapshotter
}

// NewHandler creates a new snapshot Handler.
func NewHandler(service Snapshotter) *Handler {
	return &Handler{service: service}
}

// Create handles POST /admin/api/sites/{site}/snapshots.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	site := chi.URLParam(r, "site")
	actor := auth.SubjectFromContext(r.Context())

	snap, err := h.service.Create(r.Context(), site, actor)
	if err != nil {
		var (
			valErr    *schema.ValidationError
			structErr *schema.StructureError
		)
		switch {
		case errors.As(err, &valErr):
			server.Error(w, http.StatusUnprocessableEntity, "INVALID_CATALOG",
				"catalog failed validation", toFieldErrors(valErr))
		case errors.As(err, &structErr):
			server.Error(w, http.StatusUnprocessableEntity, "MALFORMED_DEFINITION", err.Error(), nil)
		case errors.Is(err, legacy.ErrNotFound):
			server.Error(w, http.StatusNotFound, "NOT_FOUND", "site '"+site+"' not found", nil)
		default:
			slog.Error("snapshot create failed", "site", site, "error", err)
			server.Error(w, http.StatusBadGateway, "SNAPSHOT_FAILED", "failed to snapshot content types", nil)
		}
		return
	}

	server.JSON(w, http.StatusCreated, snap)
}

// Latest handles GET /admin/api/sites/{site}/snapshots/latest.
func (h *Handler) Latest(w http.ResponseWriter, r *http.Request) {
	site := chi.URLParam(r, "site")

	snap, err := h.service.Latest(r.Context(), site)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			server.Error(w, http.StatusNotFound, "NOT_FOUND", "no snapshot for site '"+site+"'", nil)
			return
		}
		slog.Error("snapshot lookup failed", "site", site, "error", err)
		server.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "an internal error occurred", nil)
		return
	}

	server.JSON(w, http.StatusOK, snap)
}

// Diff handles GET /admin/api/sites/{site}/snapshots/latest/diff.
func (h *Handler) Diff(w http.ResponseWriter, r *http.Request) {
	site := chi.URLParam(r, "site")

	diff, err := h.service.Diff(r.Context(), site)
	if err != nil {
		var structErr *schema.StructureError
		switch {
		case errors.Is(err, ErrNotFound):
			server.Error(w, http.StatusNotFound, "NOT_FOUND", "no snapshot for site '"+site+"'", nil)
		case errors.As(err, &structErr):
			server.Error(w, http.StatusUnprocessableEntity, "MALFORMED_DEFINITION", err.Error(), nil)
		case errors.Is(err, legacy.ErrNotFound):
			server.Error(w, http.StatusNotFound, "NOT_FOUND", "site '"+site+"' not found", nil)
		default:
			slog.Error("snapshot diff failed", "site", site, "error", err)
			server.Error(w, http.StatusBadGateway, "DIFF_FAILED", "failed to compare content types", nil)
		}
		return
	}

	server.JSON(w, http.StatusOK, diff)
}

// List handles GET /admin/api/sites/{site}/snapshots.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	site := chi.URLParam(r, "site")
	page, perPage := parsePagination(r)

	snaps, total, err := h.service.List(r.Context(), site, page, perPage)
	if err != nil {
		slog.Error("snapshot list failed", "site", site, "error", err)
		server.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "an internal error occurred", nil)
		return
	}

	server.Paginated(w, snaps, server.Page(page, perPage, total))
}

func toFieldErrors(ve *schema.ValidationError) []server.FieldError {
	details := make([]server.FieldError, 0, len(ve.Problems))
	for _, p := range ve.Problems {
		details = append(details, server.FieldError{Field: "content_types", Message: p})
	}
	return details
}

// parsePagination extracts page and per_page query parameters with defaults.
func parsePagination(r *http.Request) (page, perPage int) {
	page = 1
	perPage = 20

	if v := r.URL.Query().Get("page"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			page = n
		}
	}
	if v := r.URL.Query().Get("per_page"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			perPage = min(n, 100)
		}
	}
	return page, perPage
}
