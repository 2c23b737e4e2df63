// Package contenttypes normalizes a site's legacy content types and serves
// them to the admin UI.
package contenttypes

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/GyroZepelix/mithril-studio/internal/audit"
	"github.com/GyroZepelix/mithril-studio/internal/auth"
	"github.com/GyroZepelix/mithril-studio/internal/instance"
	"github.com/GyroZepelix/mithril-studio/internal/legacy"
	"github.com/GyroZepelix/mithril-studio/internal/schema"
	"github.com/GyroZepelix/mithril-studio/internal/server"
)

// maxInstanceBytes caps the body of a projection request.
const maxInstanceBytes = 4 << 20

// Fetcher is the read side of Service used by the handler.
type Fetcher interface {
	FetchContentType(ctx context.Context, site, contentTypeID string) (schema.ContentType, error)
	FetchContentTypes(ctx context.Context, site string, q Query) ([]schema.ContentType, error)
}

// Invalidator drops cached legacy documents for a site.
type Invalidator interface {
	Invalidate(ctx context.Context, site string) error
}

// Auditor records admin actions. *audit.Service implements it.
type Auditor interface {
	Log(ctx context.Context, event audit.Event)
}

// Handler provides HTTP handlers for content type introspection.
type Handler struct {
	svc     Fetcher
	cache   Invalidator
	auditor Auditor
}

// NewHandler creates a new content types Handler. The cache is optional; when
// nil, invalidation requests succeed without doing anything. auditor may be
// nil.
func NewHandler(svc Fetcher, cache Invalidator, auditor Auditor) *Handler {
	return &Handler{svc: svc, cache: cache, auditor: auditor}
}

// List handles GET /admin/api/sites/{site}/content-types.
// Optional query parameters: type (exact match) and path (catalog path).
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	site := chi.URLParam(r, "site")
	q := Query{
		Type: r.URL.Query().Get("type"),
		Path: r.URL.Query().Get("path"),
	}

	types, err := h.svc.FetchContentTypes(r.Context(), site, q)
	if err != nil {
		writeFetchError(w, err, site, "")
		return
	}

	server.JSON(w, http.StatusOK, types)
}

// Get handles GET /admin/api/sites/{site}/content-types/*. The wildcard is the
// content type id without its leading slash, e.g. component/banner.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	site := chi.URLParam(r, "site")
	id, ok := contentTypeIDParam(r)
	if !ok {
		server.Error(w, http.StatusBadRequest, "INVALID_CONTENT_TYPE", "content type id is required", nil)
		return
	}

	ct, err := h.svc.FetchContentType(r.Context(), site, id)
	if err != nil {
		writeFetchError(w, err, site, id)
		return
	}

	server.JSON(w, http.StatusOK, ct)
}

// Project handles POST /admin/api/sites/{site}/projections/*. The body is a
// content instance; the response maps every field of the content type to its
// value on that instance.
func (h *Handler) Project(w http.ResponseWriter, r *http.Request) {
	site := chi.URLParam(r, "site")
	id, ok := contentTypeIDParam(r)
	if !ok {
		server.Error(w, http.StatusBadRequest, "INVALID_CONTENT_TYPE", "content type id is required", nil)
		return
	}

	var model map[string]any
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxInstanceBytes))
	if err := dec.Decode(&model); err != nil {
		server.Error(w, http.StatusBadRequest, "INVALID_JSON", "request body must be a JSON object", nil)
		return
	}

	if instanceType := instance.ContentTypeID(model); instanceType != "" && instanceType != id {
		server.Error(w, http.StatusUnprocessableEntity, "CONTENT_TYPE_MISMATCH",
			fmt.Sprintf("instance is a '%s', not a '%s'", instanceType, id), nil)
		return
	}

	ct, err := h.svc.FetchContentType(r.Context(), site, id)
	if err != nil {
		writeFetchError(w, err, site, id)
		return
	}

	server.JSON(w, http.StatusOK, map[string]any{
		"contentType": ct.ID,
		"embedded":    instance.IsEmbedded(model),
		"values":      instance.Project(ct, model),
	})
}

// InvalidateCache handles POST /admin/api/sites/{site}/cache/invalidate.
func (h *Handler) InvalidateCache(w http.ResponseWriter, r *http.Request) {
	site := chi.URLParam(r, "site")
	if h.cache != nil {
		if err := h.cache.Invalidate(r.Context(), site); err != nil {
			slog.Error("failed to invalidate legacy cache", "site", site, "error", err)
			server.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "failed to invalidate cache", nil)
			return
		}
		if h.auditor != nil {
			h.auditor.Log(r.Context(), audit.Event{
				Site:   site,
				Action: audit.ActionCacheInvalidate,
				Actor:  auth.SubjectFromContext(r.Context()),
			})
		}
	}
	w.WriteHeader(http.StatusNoContent)
}

// contentTypeIDParam reads the wildcard content type id and restores its
// leading slash.
func contentTypeIDParam(r *http.Request) (string, bool) {
	raw := strings.Trim(chi.URLParam(r, "*"), "/")
	if raw == "" {
		return "", false
	}
	return "/" + raw, true
}

// writeFetchError maps pipeline failures onto API error responses.
func writeFetchError(w http.ResponseWriter, err error, site, contentTypeID string) {
	var (
		apiErr    *legacy.APIError
		structErr *schema.StructureError
	)

	switch {
	case errors.Is(err, legacy.ErrNotFound):
		msg := fmt.Sprintf("site '%s' not found", site)
		if contentTypeID != "" {
			msg = fmt.Sprintf("content type '%s' not found", contentTypeID)
		}
		server.Error(w, http.StatusNotFound, "NOT_FOUND", msg, nil)
	case errors.As(err, &structErr):
		server.Error(w, http.StatusUnprocessableEntity, "MALFORMED_DEFINITION", err.Error(),
			[]server.FieldError{{Field: structErr.FieldID, Message: "missing " + structErr.Block}})
	case errors.As(err, &apiErr):
		slog.Error("legacy api error", "site", site, "content_type", contentTypeID, "error", err)
		server.Error(w, http.StatusBadGateway, "LEGACY_API_ERROR", apiErr.Message, nil)
	case errors.Is(err, context.DeadlineExceeded):
		server.Error(w, http.StatusGatewayTimeout, "LEGACY_TIMEOUT", "legacy service did not respond in time", nil)
	default:
		slog.Error("failed to fetch content types", "site", site, "content_type", contentTypeID, "error", err)
		server.Error(w, http.StatusBadGateway, "LEGACY_UNAVAILABLE", "failed to fetch content types", nil)
	}
}
