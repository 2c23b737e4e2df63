package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
)

// Server is the studio HTTP listener.
type Server struct {
	httpServer *http.Server
}

// New creates a Server listening on addr. writeTimeout must cover a full
// catalog fetch from the legacy service; 60s is used when it is zero.
func New(addr string, router chi.Router, writeTimeout time.Duration) *Server {
	if writeTimeout <= 0 {
		writeTimeout = 60 * time.Second
	}
	return &Server{
		httpServer: &http.Server{
			Addr:              addr,
			Handler:           router,
			ReadHeaderTimeout: 10 * time.Second,
			ReadTimeout:       30 * time.Second,
			WriteTimeout:      writeTimeout,
			IdleTimeout:       120 * time.Second,
		},
	}
}

// Start serves until Shutdown is called, after which it returns nil.
func (s *Server) Start() error {
	err := s.httpServer.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Shutdown stops accepting connections and waits for in-flight requests
// until ctx expires.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
