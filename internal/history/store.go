// Package history keeps the record of generation runs. It subscribes to the
// event bus and stores one row per generation event.
package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/matthewbaird/dashgen/internal/event"
)

// Run is one recorded generation.
type Run struct {
	ID           string    `json:"id"`
	UID          string    `json:"uid,omitempty"`
	TemplateName string    `json:"templateName,omitempty"`
	Module       string    `json:"module,omitempty"`
	Status       string    `json:"status"`
	Artifacts    int       `json:"artifacts"`
	Paths        []string  `json:"paths,omitempty"`
	DurationMS   int64     `json:"durationMs"`
	Error        string    `json:"error,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
}

// timeLayout is fixed-width so text ordering matches time ordering.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

// Store persists generation runs in SQLite.
type Store struct {
	db *sql.DB
}

// NewStore creates a Store over db. Call CreateTable before use.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// CreateTable creates the generation_runs table.
func (s *Store) CreateTable(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS generation_runs (
			id            TEXT PRIMARY KEY,
			uid           TEXT NOT NULL DEFAULT '',
			template_name TEXT NOT NULL DEFAULT '',
			module        TEXT NOT NULL DEFAULT '',
			status        TEXT NOT NULL,
			artifacts     INTEGER NOT NULL DEFAULT 0,
			paths         TEXT NOT NULL DEFAULT '[]',
			duration_ms   INTEGER NOT NULL DEFAULT 0,
			error         TEXT NOT NULL DEFAULT '',
			created_at    TEXT NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_generation_runs_created
			ON generation_runs (created_at DESC);
	`)
	if err != nil {
		return fmt.Errorf("creating generation_runs: %w", err)
	}
	return nil
}

// HandleEvent records evt. It satisfies eventbus.Handler.
func (s *Store) HandleEvent(ctx context.Context, evt event.GenerationEvent) error {
	paths, _ := json.Marshal(evt.Paths)
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO generation_runs (id, uid, template_name, module, status, artifacts, paths, duration_ms, error, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO NOTHING`,
		evt.ID, evt.UID, evt.TemplateName, evt.Module, evt.Status, evt.Artifacts,
		string(paths), evt.Duration.Milliseconds(), evt.Error, evt.OccurredAt.UTC().Format(timeLayout),
	)
	if err != nil {
		return fmt.Errorf("recording generation run: %w", err)
	}
	return nil
}

// List returns the most recent runs, newest first. module filters by route
// segment when not empty.
func (s *Store) List(ctx context.Context, module string, limit int) ([]Run, error) {
	if limit <= 0 || limit > 500 {
		limit = 50
	}
	query := `SELECT id, uid, template_name, module, status, artifacts, paths, duration_ms, error, created_at
		FROM generation_runs`
	args := []any{}
	if module != "" {
		query += " WHERE module = ?"
		args = append(args, module)
	}
	query += " ORDER BY created_at DESC LIMIT ?"
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying generation runs: %w", err)
	}
	defer rows.Close()

	runs := []Run{}
	for rows.Next() {
		var r Run
		var paths, created string
		if err := rows.Scan(&r.ID, &r.UID, &r.TemplateName, &r.Module, &r.Status, &r.Artifacts,
			&paths, &r.DurationMS, &r.Error, &created); err != nil {
			return nil, fmt.Errorf("scanning generation run: %w", err)
		}
		_ = json.Unmarshal([]byte(paths), &r.Paths)
		r.CreatedAt, _ = time.Parse(timeLayout, created)
		runs = append(runs, r)
	}
	return runs, rows.Err()
}
