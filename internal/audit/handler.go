package audit

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/GyroZepelix/mithril-studio/internal/server"
)

// Lister is the read side of Service.
type Lister interface {
	List(ctx context.Context, filters Filters, page, perPage int) ([]*Entry, int, error)
}

// Handler serves the audit log of a site.
type Handler struct {
	service Lister
}

// NewHandler creates a new audit Handler.
func NewHandler(service Lister) *Handler {
	return &Handler{service: service}
}

// List handles GET /admin/api/sites/{site}/audit-log with an optional action
// filter.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	filters := Filters{
		Site:   chi.URLParam(r, "site"),
		Action: r.URL.Query().Get("action"),
	}
	page, perPage := parsePagination(r)

	entries, total, err := h.service.List(r.Context(), filters, page, perPage)
	if err != nil {
		slog.Error("audit log list failed", "site", filters.Site, "error", err)
		server.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "an internal error occurred", nil)
		return
	}

	server.Paginated(w, entries, server.Page(page, perPage, total))
}

func parsePagination(r *http.Request) (page, perPage int) {
	page, perPage = 1, 20
	if n, err := strconv.Atoi(r.URL.Query().Get("page")); err == nil && n > 0 {
		page = n
	}
	if n, err := strconv.Atoi(r.URL.Query().Get("per_page")); err == nil && n > 0 {
		perPage = min(n, 100)
	}
	return page, perPage
}
