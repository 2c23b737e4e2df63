package auth

import (
	"context"
	"net/http"
	"strings"

	"github.com/GyroZepelix/mithril-studio/internal/server"
)

type contextKey string

const (
	contextKeySubject contextKey = "subject"
	contextKeyEmail   contextKey = "email"
)

// Middleware rejects requests without a valid "Bearer" token with a 401 and
// stores the token's subject and email in the request context.
func Middleware(jwtSecret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				server.Error(w, http.StatusUnauthorized, "UNAUTHORIZED", "missing authorization header", nil)
				return
			}

			scheme, tokenString, ok := strings.Cut(authHeader, " ")
			if !ok || !strings.EqualFold(scheme, "Bearer") || tokenString == "" {
				server.Error(w, http.StatusUnauthorized, "UNAUTHORIZED", "invalid authorization header format", nil)
				return
			}

			claims, err := ValidateAccessToken(tokenString, jwtSecret)
			if err != nil {
				server.Error(w, http.StatusUnauthorized, "UNAUTHORIZED", "invalid or expired token", nil)
				return
			}

			ctx := WithSubject(r.Context(), claims.Subject, claims.Email)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// WithSubject returns a copy of ctx carrying an authenticated subject.
func WithSubject(ctx context.Context, subject, email string) context.Context {
	ctx = context.WithValue(ctx, contextKeySubject, subject)
	return context.WithValue(ctx, contextKeyEmail, email)
}

// SubjectFromContext returns the authenticated subject, or "" if none.
func SubjectFromContext(ctx context.Context) string {
	v, _ := ctx.Value(contextKeySubject).(string)
	return v
}

// EmailFromContext returns the authenticated email, or "" if none.
func EmailFromContext(ctx context.Context) string {
	v, _ := ctx.Value(contextKeyEmail).(string)
	return v
}
