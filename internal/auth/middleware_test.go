package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestMiddleware_Rejects(t *testing.T) {
	tests := []struct {
		name   string
		header string
	}{
		{"missing header", ""},
		{"basic scheme", "Basic dXNlcjpwYXNz"},
		{"bearer without token", "Bearer "},
		{"invalid token", "Bearer not-a-valid-jwt"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := Middleware(testSecret)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				t.Error("handler should not be called")
			}))

			req := httptest.NewRequest(http.MethodGet, "/test", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rr := httptest.NewRecorder()
			handler.ServeHTTP(rr, req)

			if rr.Code != http.StatusUnauthorized {
				t.Errorf("status = %d, want %d", rr.Code, http.StatusUnauthorized)
			}
		})
	}
}

func TestMiddleware_ValidToken(t *testing.T) {
	token, err := CreateAccessToken("ops-bot", "ops@example.com", testSecret, time.Minute)
	if err != nil {
		t.Fatalf("CreateAccessToken: %v", err)
	}

	var gotSubject, gotEmail string
	handler := Middleware(testSecret)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotSubject = SubjectFromContext(r.Context())
		gotEmail = EmailFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	req.Header.Set("Authorization", "bearer "+token)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", rr.Code, http.StatusOK)
	}
	if gotSubject != "ops-bot" {
		t.Errorf("SubjectFromContext = %q, want %q", gotSubject, "ops-bot")
	}
	if gotEmail != "ops@example.com" {
		t.Errorf("EmailFromContext = %q, want %q", gotEmail, "ops@example.com")
	}
}

func TestFromContext_Empty(t *testing.T) {
	ctx := context.Background()
	if got := SubjectFromContext(ctx); got != "" {
		t.Errorf("SubjectFromContext on empty context = %q, want empty", got)
	}
	if got := EmailFromContext(ctx); got != "" {
		t.Errorf("EmailFromContext on empty context = %q, want empty", got)
	}
}
