// Package snapshot stores point-in-time copies of a site's normalized content
// types so that changes to the legacy configuration can be reviewed later.
package snapshot

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/GyroZepelix/mithril-studio/internal/database"
	"github.com/GyroZepelix/mithril-studio/internal/schema"
)

// ErrNotFound is returned when a site has no snapshot.
var ErrNotFound = errors.New("snapshot not found")

// Snapshot is one row of the content_type_snapshots table. ContentTypes is
// omitted from list results.
type Snapshot struct {
	ID           string               `json:"id"`
	Site         string               `json:"site"`
	TakenBy      *string              `json:"taken_by,omitempty"`
	TypeCount    int                  `json:"type_count"`
	ContentTypes []schema.ContentType `json:"content_types,omitempty"`
	CreatedAt    time.Time            `json:"created_at"`
}

// Repository provides database operations for the content_type_snapshots
// table.
type Repository struct {
	db *database.DB
}

// NewRepository creates a new snapshot Repository.
func NewRepository(db *database.DB) *Repository {
	return &Repository{db: db}
}

// Insert writes s and fills in its creation time.
func (r *Repository) Insert(ctx context.Context, s *Snapshot) error {
	payload, err := json.Marshal(s.ContentTypes)
	if err != nil {
		return fmt.Errorf("marshaling snapshot content types: %w", err)
	}

	err = r.db.Pool().QueryRow(ctx,
		`INSERT INTO content_type_snapshots (id, site, taken_by, type_count, content_types)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING created_at`,
		s.ID, s.Site, s.TakenBy, s.TypeCount, payload,
	).Scan(&s.CreatedAt)
	if err != nil {
		return fmt.Errorf("inserting snapshot: %w", err)
	}
	return nil
}

// Latest returns the most recent snapshot of site including its content
// types.
func (r *Repository) Latest(ctx context.Context, site string) (*Snapshot, error) {
	var (
		s       Snapshot
		payload []byte
	)
	err := r.db.Pool().QueryRow(ctx,
		`SELECT id, site, taken_by, type_count, content_types, created_at
		 FROM content_type_snapshots
		 WHERE site = $1
		 ORDER BY created_at DESC
		 LIMIT 1`,
		site,
	).Scan(&s.ID, &s.Site, &s.TakenBy, &s.TypeCount, &payload, &s.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("querying latest snapshot: %w", err)
	}

	if err := json.Unmarshal(payload, &s.ContentTypes); err != nil {
		return nil, fmt.Errorf("unmarshaling snapshot content types: %w", err)
	}
	return &s, nil
}

// List returns a page of site's snapshots, newest first, without their
// content types, plus the total number of snapshots.
func (r *Repository) List(ctx context.Context, site string, page, perPage int) ([]*Snapshot, int, error) {
	var total int
	if err := r.db.Pool().QueryRow(ctx,
		`SELECT COUNT(*) FROM content_type_snapshots WHERE site = $1`, site,
	).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("counting snapshots: %w", err)
	}

	offset := (page - 1) * perPage
	rows, err := r.db.Pool().Query(ctx,
		`SELECT id, site, taken_by, type_count, created_at
		 FROM content_type_snapshots
		 WHERE site = $1
		 ORDER BY created_at DESC
		 LIMIT $2 OFFSET $3`,
		site, perPage, offset,
	)
	if err != nil {
		return nil, 0, fmt.Errorf("querying snapshots: %w", err)
	}
	defer rows.Close()

	snapshots, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (*Snapshot, error) {
		var s Snapshot
		if err := row.Scan(&s.ID, &s.Site, &s.TakenBy, &s.TypeCount, &s.CreatedAt); err != nil {
			return nil, err
		}
		return &s, nil
	})
	if err != nil {
		return nil, 0, fmt.Errorf("scanning snapshots: %w", err)
	}

	return snapshots, total, nil
}
