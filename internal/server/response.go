// Package server hosts the studio admin API: router, middleware, the
// embedded admin UI, and the JSON envelope every handler responds with.
package server

import (
	"encoding/json"
	"log/slog"
	"net/http"
)

// FieldError points an error response at one field, dependency or content
// type.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// PaginationMeta is the "meta" member of list responses.
type PaginationMeta struct {
	Page       int `json:"page"`
	PerPage    int `json:"per_page"`
	Total      int `json:"total"`
	TotalPages int `json:"total_pages"`
}

// Page builds the metadata of one page of a listing of total items.
func Page(page, perPage, total int) PaginationMeta {
	meta := PaginationMeta{Page: page, PerPage: perPage, Total: total}
	if perPage > 0 {
		meta.TotalPages = (total + perPage - 1) / perPage
	}
	return meta
}

type errorBody struct {
	Code    string       `json:"code"`
	Message string       `json:"message"`
	Details []FieldError `json:"details,omitempty"`
}

// JSON writes data as {"data": ...}.
func JSON(w http.ResponseWriter, status int, data any) {
	writeJSON(w, status, struct {
		Data any `json:"data"`
	}{data})
}

// Error writes {"error": {"code", "message", "details"}}. details may be nil.
func Error(w http.ResponseWriter, status int, code string, message string, details []FieldError) {
	writeJSON(w, status, struct {
		Error errorBody `json:"error"`
	}{errorBody{Code: code, Message: message, Details: details}})
}

// Paginated writes a 200 list response with its pagination metadata.
func Paginated(w http.ResponseWriter, data any, meta PaginationMeta) {
	writeJSON(w, http.StatusOK, struct {
		Data any            `json:"data"`
		Meta PaginationMeta `json:"meta"`
	}{data, meta})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(v); err != nil {
		// Headers are already sent.
		slog.Error("failed to encode JSON response", "error", err)
	}
}
