// Package draft stores template inputs that have not been generated yet.
// A draft is keyed by the input's uid, so saving the same input twice
// updates it in place.
package draft

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/matthewbaird/dashgen/internal/naming"
	"github.com/matthewbaird/dashgen/internal/schema"
)

// ErrNotFound is returned when no draft has the requested id.
var ErrNotFound = errors.New("draft not found")

const timeLayout = "2006-01-02T15:04:05.000000000Z"

// Draft is a saved template input. Data holds the formatted input.
type Draft struct {
	ID           string    `json:"id"`
	TemplateName string    `json:"templateName,omitempty"`
	Module       string    `json:"module,omitempty"`
	Data         string    `json:"data"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// Input decodes the stored template input.
func (d Draft) Input() (*schema.TemplateInput, error) {
	return schema.Load([]byte(d.Data), schema.FormatJSON)
}

// Store persists drafts in SQLite.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

func NewStore(db *sql.DB) *Store {
	return &Store{db: db, now: time.Now}
}

// CreateTable creates the drafts table.
func (s *Store) CreateTable(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS drafts (
			id            TEXT PRIMARY KEY,
			template_name TEXT NOT NULL DEFAULT '',
			module        TEXT NOT NULL DEFAULT '',
			data          TEXT NOT NULL,
			created_at    TEXT NOT NULL,
			updated_at    TEXT NOT NULL
		)`)
	if err != nil {
		return fmt.Errorf("creating drafts: %w", err)
	}
	return nil
}

// Save inserts or replaces the draft for in. A uid is assigned when the
// input has none.
func (s *Store) Save(ctx context.Context, in *schema.TemplateInput) (Draft, error) {
	in.EnsureUID()
	data, err := schema.FormatInput(in)
	if err != nil {
		return Draft{}, fmt.Errorf("formatting draft: %w", err)
	}
	module := ""
	if in.NamingConvention.PluralLower != "" {
		module = naming.RouteSegment(in.NamingConvention.PluralLower)
	}
	now := s.now().UTC().Format(timeLayout)
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO drafts (id, template_name, module, data, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			template_name = excluded.template_name,
			module        = excluded.module,
			data          = excluded.data,
			updated_at    = excluded.updated_at`,
		in.UID, in.TemplateName, module, string(data), now, now)
	if err != nil {
		return Draft{}, fmt.Errorf("saving draft: %w", err)
	}
	return s.Get(ctx, in.UID)
}

// Get returns the draft with the given id.
func (s *Store) Get(ctx context.Context, id string) (Draft, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, template_name, module, data, created_at, updated_at
		FROM drafts WHERE id = ?`, id)
	d, err := scan(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Draft{}, ErrNotFound
	}
	return d, err
}

// List returns every draft, most recently updated first.
func (s *Store) List(ctx context.Context) ([]Draft, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, template_name, module, data, created_at, updated_at
		FROM drafts ORDER BY updated_at DESC, id`)
	if err != nil {
		return nil, fmt.Errorf("querying drafts: %w", err)
	}
	defer rows.Close()

	drafts := []Draft{}
	for rows.Next() {
		d, err := scan(rows)
		if err != nil {
			return nil, err
		}
		drafts = append(drafts, d)
	}
	return drafts, rows.Err()
}

// Delete removes the draft with the given id.
func (s *Store) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM drafts WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting draft: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scan(sc scanner) (Draft, error) {
	var d Draft
	var created, updated string
	if err := sc.Scan(&d.ID, &d.TemplateName, &d.Module, &d.Data, &created, &updated); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Draft{}, err
		}
		return Draft{}, fmt.Errorf("scanning draft: %w", err)
	}
	d.CreatedAt, _ = time.Parse(timeLayout, created)
	d.UpdatedAt, _ = time.Parse(timeLayout, updated)
	return d, nil
}
