package audit

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/GyroZepelix/mithril-studio/internal/metrics"
)

// queueSize bounds the events waiting to be written. Events beyond it are
// dropped.
const queueSize = 256

// writeTimeout bounds a single insert.
const writeTimeout = 5 * time.Second

// Actions recorded by the studio.
const (
	ActionSnapshotCreate  = "snapshot.create"
	ActionCacheInvalidate = "cache.invalidate"
)

// Event is an admin action to record.
type Event struct {
	Site     string
	Action   string
	Actor    string
	Resource string
	Payload  map[string]any
}

// Store persists events and lists them back. *Repository implements it.
type Store interface {
	Insert(ctx context.Context, event Event) error
	List(ctx context.Context, filters Filters, page, perPage int) ([]*Entry, int, error)
}

// Service queues events and writes them from a single background goroutine.
type Service struct {
	store   Store
	eventCh chan Event
	done    chan struct{}

	// mu guards closed. Log holds it shared while sending so Shutdown cannot
	// close eventCh under it.
	mu     sync.RWMutex
	closed bool
}

// NewService creates a Service. Call Start before logging and Shutdown to
// drain the queue.
func NewService(store Store) *Service {
	return &Service{
		store:   store,
		eventCh: make(chan Event, queueSize),
		done:    make(chan struct{}),
	}
}

// Log queues event without blocking. Events logged while the queue is full
// or after Shutdown are dropped.
func (s *Service) Log(ctx context.Context, event Event) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	reason := "audit writer stopped, dropping event"
	if !s.closed {
		select {
		case s.eventCh <- event:
			return
		default:
			reason = "audit queue full, dropping event"
		}
	}

	metrics.AuditEventsDropped.Inc()
	slog.WarnContext(ctx, reason,
		"site", event.Site,
		"action", event.Action,
		"actor", event.Actor,
	)
}

// Start runs the writer goroutine.
func (s *Service) Start() {
	go s.run()
}

// Shutdown closes the queue and waits until every queued event is written.
// It keeps waiting after ctx expires so no write races with process exit.
// Calling it more than once is safe.
func (s *Service) Shutdown(ctx context.Context) {
	s.mu.Lock()
	if !s.closed {
		s.closed = true
		close(s.eventCh)
	}
	s.mu.Unlock()

	select {
	case <-s.done:
		slog.Info("audit writer stopped")
	case <-ctx.Done():
		slog.Warn("audit writer still draining after shutdown timeout")
		<-s.done
	}
}

// List returns a page of recorded events.
func (s *Service) List(ctx context.Context, filters Filters, page, perPage int) ([]*Entry, int, error) {
	return s.store.List(ctx, filters, page, perPage)
}

func (s *Service) run() {
	defer close(s.done)
	for event := range s.eventCh {
		s.write(event)
	}
}

// write inserts one event. The originating request may be gone, so it uses
// its own context.
func (s *Service) write(event Event) {
	ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
	defer cancel()

	if err := s.store.Insert(ctx, event); err != nil {
		slog.Error("failed to write audit event",
			"site", event.Site,
			"action", event.Action,
			"actor", event.Actor,
			"error", err,
		)
	}
}
