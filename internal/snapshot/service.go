package snapshot

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/GyroZepelix/mithril-studio/internal/audit"
	"github.com/GyroZepelix/mithril-studio/internal/contenttypes"
	"github.com/GyroZepelix/mithril-studio/internal/schema"
)

// Store is the persistence used by Service. *Repository implements it.
type Store interface {
	Insert(ctx context.Context, s *Snapshot) error
	Latest(ctx context.Context, site string) (*Snapshot, error)
	List(ctx context.Context, site string, page, perPage int) ([]*Snapshot, int, error)
}

// Fetcher provides the normalized catalog of a site.
type Fetcher interface {
	FetchContentTypes(ctx context.Context, site string, q contenttypes.Query) ([]schema.ContentType, error)
}

// Auditor records admin actions. *audit.Service implements it.
type Auditor interface {
	Log(ctx context.Context, event audit.Event)
}

// Service takes and reads snapshots.
type Service struct {
	store   Store
	fetcher Fetcher
	auditor Auditor
}

// NewService creates a new snapshot Service. auditor may be nil.
func NewService(store Store, fetcher Fetcher, auditor Auditor) *Service {
	return &Service{store: store, fetcher: fetcher, auditor: auditor}
}

// Create fetches the full normalized catalog of site, validates it, and
// stores it. actor is the subject that requested the snapshot and may be
// empty.
func (s *Service) Create(ctx context.Context, site, actor string) (*Snapshot, error) {
	types, err := s.fetcher.FetchContentTypes(ctx, site, contenttypes.Query{})
	if err != nil {
		return nil, fmt.Errorf("fetching catalog: %w", err)
	}
	if err := schema.ValidateContentTypes(types); err != nil {
		return nil, err
	}

	snap := &Snapshot{
		ID:           uuid.NewString(),
		Site:         site,
		TypeCount:    len(types),
		ContentTypes: types,
	}
	if actor != "" {
		snap.TakenBy = &actor
	}

	if err := s.store.Insert(ctx, snap); err != nil {
		return nil, err
	}

	slog.Info("content type snapshot created",
		"site", site,
		"snapshot_id", snap.ID,
		"types", snap.TypeCount,
		"actor", actor,
	)
	if s.auditor != nil {
		s.auditor.Log(ctx, audit.Event{
			Site:     site,
			Action:   audit.ActionSnapshotCreate,
			Actor:    actor,
			Resource: snap.ID,
			Payload:  map[string]any{"type_count": snap.TypeCount},
		})
	}
	return snap, nil
}

// Diff compares the latest snapshot of a site with its live catalog.
type Diff struct {
	SnapshotID string          `json:"snapshot_id"`
	TakenAt    time.Time       `json:"taken_at"`
	Breaking   bool            `json:"breaking"`
	Changes    []schema.Change `json:"changes"`
}

// Diff fetches the live catalog of site and compares it with the latest
// snapshot. ErrNotFound is returned when the site has no snapshot.
func (s *Service) Diff(ctx context.Context, site string) (*Diff, error) {
	latest, err := s.store.Latest(ctx, site)
	if err != nil {
		return nil, err
	}
	live, err := s.fetcher.FetchContentTypes(ctx, site, contenttypes.Query{})
	if err != nil {
		return nil, fmt.Errorf("fetching catalog: %w", err)
	}

	changes := schema.DiffCatalogs(latest.ContentTypes, live)
	if changes == nil {
		changes = []schema.Change{}
	}
	return &Diff{
		SnapshotID: latest.ID,
		TakenAt:    latest.CreatedAt,
		Breaking:   schema.HasBreaking(changes),
		Changes:    changes,
	}, nil
}

// Latest returns the most recent snapshot of site.
func (s *Service) Latest(ctx context.Context, site string) (*Snapshot, error) {
	return s.store.Latest(ctx, site)
}

// List returns a page of snapshots of site.
func (s *Service) List(ctx context.Context, site string, page, perPage int) ([]*Snapshot, int, error) {
	return s.store.List(ctx, site, page, perPage)
}
