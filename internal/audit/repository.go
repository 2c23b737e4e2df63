// Package audit records admin actions taken through the studio API, such as
// snapshots and cache invalidations. Events are written asynchronously so a
// slow or failing database never fails the request that caused them.
package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/GyroZepelix/mithril-studio/internal/database"
)

// Entry is one row of the audit_log table.
type Entry struct {
	ID        string         `json:"id"`
	Site      string         `json:"site"`
	Action    string         `json:"action"`
	Actor     *string        `json:"actor,omitempty"`
	Resource  *string        `json:"resource,omitempty"`
	Payload   map[string]any `json:"payload,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
}

// Filters narrows a listing. Site is always applied.
type Filters struct {
	Site   string
	Action string
}

// Repository provides database operations for the audit_log table.
type Repository struct {
	db *database.DB
}

// NewRepository creates a new audit Repository.
func NewRepository(db *database.DB) *Repository {
	return &Repository{db: db}
}

// Insert writes one event. Empty actor and resource are stored as NULL.
func (r *Repository) Insert(ctx context.Context, event Event) error {
	var payload []byte
	if len(event.Payload) > 0 {
		var err error
		payload, err = json.Marshal(event.Payload)
		if err != nil {
			return fmt.Errorf("marshaling audit payload: %w", err)
		}
	}

	_, err := r.db.Pool().Exec(ctx,
		`INSERT INTO audit_log (site, action, actor, resource, payload)
		 VALUES ($1, $2, $3, $4, $5)`,
		event.Site,
		event.Action,
		nullIfEmpty(event.Actor),
		nullIfEmpty(event.Resource),
		nullableJSON(payload),
	)
	if err != nil {
		return fmt.Errorf("inserting audit event: %w", err)
	}
	return nil
}

// List returns a page of entries, newest first, and the number of entries
// matching filters.
func (r *Repository) List(ctx context.Context, filters Filters, page, perPage int) ([]*Entry, int, error) {
	// Column names are constants; only values are parameterized.
	conditions := []string{"site = $1"}
	args := []any{filters.Site}
	if filters.Action != "" {
		args = append(args, filters.Action)
		conditions = append(conditions, fmt.Sprintf("action = $%d", len(args)))
	}
	where := "WHERE " + strings.Join(conditions, " AND ")

	var total int
	if err := r.db.Pool().QueryRow(ctx, "SELECT COUNT(*) FROM audit_log "+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("counting audit entries: %w", err)
	}

	query := fmt.Sprintf(
		`SELECT id, site, action, actor, resource, payload, created_at
		 FROM audit_log %s
		 ORDER BY created_at DESC
		 LIMIT $%d OFFSET $%d`,
		where, len(args)+1, len(args)+2,
	)
	args = append(args, perPage, (page-1)*perPage)

	rows, err := r.db.Pool().Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("querying audit entries: %w", err)
	}
	defer rows.Close()

	entries, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (*Entry, error) {
		var (
			e       Entry
			payload []byte
		)
		if err := row.Scan(&e.ID, &e.Site, &e.Action, &e.Actor, &e.Resource, &payload, &e.CreatedAt); err != nil {
			return nil, err
		}
		if payload != nil {
			if err := json.Unmarshal(payload, &e.Payload); err != nil {
				return nil, fmt.Errorf("unmarshaling audit payload: %w", err)
			}
		}
		return &e, nil
	})
	if err != nil {
		return nil, 0, fmt.Errorf("scanning audit entries: %w", err)
	}

	return entries, total, nil
}

func nullIfEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func nullableJSON(b []byte) any {
	if len(b) == 0 {
		return nil
	}
	return b
}
