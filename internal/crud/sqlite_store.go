package crud

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// SQLiteStore keeps documents as JSON in a shared table. Unique fields are
// mirrored into unique_keys so conflicts are detected inside the write
// transaction.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a store over db. Call CreateTables before use.
func NewSQLiteStore(db *sql.DB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

// CreateTables creates the documents and unique_keys tables.
func (s *SQLiteStore) CreateTables(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS documents (
			collection TEXT NOT NULL,
			id         TEXT NOT NULL,
			data       TEXT NOT NULL,
			created_at TEXT NOT NULL,
			updated_at TEXT NOT NULL,
			PRIMARY KEY (collection, id)
		);

		CREATE INDEX IF NOT EXISTS idx_documents_updated
			ON documents (collection, updated_at DESC, created_at DESC);

		CREATE TABLE IF NOT EXISTS unique_keys (
			collection TEXT NOT NULL,
			field      TEXT NOT NULL,
			value      TEXT NOT NULL,
			id         TEXT NOT NULL,
			PRIMARY KEY (collection, field, value),
			FOREIGN KEY (collection, id) REFERENCES documents (collection, id) ON DELETE CASCADE
		);
	`)
	if err != nil {
		return fmt.Errorf("creating document tables: %w", err)
	}
	return nil
}

// Setup is a no-op: every collection shares the same tables.
func (s *SQLiteStore) Setup(ctx context.Context, _ *Collection) error {
	return s.CreateTables(ctx)
}

func (s *SQLiteStore) Insert(ctx context.Context, c *Collection, doc Document, now time.Time) (Document, error) {
	id := uuid.NewString()
	ts := now.UTC().Format(TimeLayout)
	doc = copyDoc(doc)
	doc[KeyID] = id
	doc[KeyCreatedAt] = ts
	doc[KeyUpdatedAt] = ts

	err := s.inTx(ctx, func(tx *sql.Tx) error {
		if err := s.claimKeys(ctx, tx, c, id, doc); err != nil {
			return err
		}
		data, err := json.Marshal(doc)
		if err != nil {
			return fmt.Errorf("encoding document: %w", err)
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO documents (collection, id, data, created_at, updated_at) VALUES (?, ?, ?, ?, ?)`,
			c.Name, id, string(data), ts, ts)
		if err != nil {
			return fmt.Errorf("inserting document: %w", err)
		}
		return s.writeKeys(ctx, tx, c, id, doc)
	})
	if err != nil {
		return nil, err
	}
	return doc, nil
}

func (s *SQLiteStore) Find(ctx context.Context, c *Collection, id string) (Document, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, ErrInvalidID
	}
	return s.find(ctx, s.db, c, id)
}

type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *SQLiteStore) find(ctx context.Context, q queryer, c *Collection, id string) (Document, error) {
	var data string
	err := q.QueryRowContext(ctx, `SELECT data FROM documents WHERE collection = ? AND id = ?`, c.Name, id).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying document: %w", err)
	}
	var doc Document
	if err := json.Unmarshal([]byte(data), &doc); err != nil {
		return nil, fmt.Errorf("decoding document: %w", err)
	}
	return doc, nil
}

func (s *SQLiteStore) List(ctx context.Context, c *Collection, q Query) ([]Document, int64, error) {
	conditions := []string{"collection = ?"}
	args := []any{c.Name}
	if q.Search != "" && len(c.Searchable) > 0 {
		pattern := "%" + escapeLike(q.Search) + "%"
		ors := make([]string, len(c.Searchable))
		for i, key := range c.Searchable {
			ors[i] = `json_extract(data, ?) LIKE ? ESCAPE '\'`
			args = append(args, "$."+key, pattern)
		}
		conditions = append(conditions, "("+strings.Join(ors, " OR ")+")")
	}
	where := strings.Join(conditions, " AND ")

	var total int64
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM documents WHERE "+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("counting documents: %w", err)
	}

	query := "SELECT data FROM documents WHERE " + where +
		" ORDER BY updated_at DESC, created_at DESC, rowid DESC LIMIT ? OFFSET ?"
	rows, err := s.db.QueryContext(ctx, query, append(args, q.Limit, (q.Page-1)*q.Limit)...)
	if err != nil {
		return nil, 0, fmt.Errorf("querying documents: %w", err)
	}
	defer rows.Close()

	docs := []Document{}
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, 0, fmt.Errorf("scanning document: %w", err)
		}
		var doc Document
		if err := json.Unmarshal([]byte(data), &doc); err != nil {
			return nil, 0, fmt.Errorf("decoding document: %w", err)
		}
		docs = append(docs, doc)
	}
	return docs, total, rows.Err()
}

func (s *SQLiteStore) Update(ctx context.Context, c *Collection, id string, fields Document, now time.Time) (Document, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, ErrInvalidID
	}
	var doc Document
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		cur, err := s.find(ctx, tx, c, id)
		if err != nil {
			return err
		}
		for k, v := range fields {
			cur[k] = v
		}
		ts := now.UTC().Format(TimeLayout)
		cur[KeyUpdatedAt] = ts

		if err := s.claimKeys(ctx, tx, c, id, cur); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM unique_keys WHERE collection = ? AND id = ?`, c.Name, id); err != nil {
			return fmt.Errorf("clearing unique keys: %w", err)
		}
		data, err := json.Marshal(cur)
		if err != nil {
			return fmt.Errorf("encoding document: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `
			UPDATE documents SET data = ?, updated_at = ? WHERE collection = ? AND id = ?`,
			string(data), ts, c.Name, id); err != nil {
			return fmt.Errorf("updating document: %w", err)
		}
		doc = cur
		return s.writeKeys(ctx, tx, c, id, cur)
	})
	if err != nil {
		return nil, err
	}
	return doc, nil
}

func (s *SQLiteStore) Delete(ctx context.Context, c *Collection, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return ErrInvalidID
	}
	res, err := s.db.ExecContext(ctx, `DELETE FROM documents WHERE collection = ? AND id = ?`, c.Name, id)
	if err != nil {
		return fmt.Errorf("deleting document: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *SQLiteStore) Count(ctx context.Context, c *Collection) (int64, error) {
	var n int64
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM documents WHERE collection = ?`, c.Name).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting documents: %w", err)
	}
	return n, nil
}

func (s *SQLiteStore) CountByMonth(ctx context.Context, c *Collection, since time.Time) ([]MonthCount, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT substr(created_at, 1, 7) AS month, COUNT(*)
		FROM documents
		WHERE collection = ? AND created_at >= ?
		GROUP BY month
		ORDER BY month`,
		c.Name, since.UTC().Format(TimeLayout))
	if err != nil {
		return nil, fmt.Errorf("grouping documents: %w", err)
	}
	defer rows.Close()

	out := []MonthCount{}
	for rows.Next() {
		var m MonthCount
		if err := rows.Scan(&m.Month, &m.Count); err != nil {
			return nil, fmt.Errorf("scanning month: %w", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

// claimKeys fails with *DuplicateKeyError when another document holds one of
// doc's unique values. Empty values are not indexed.
func (s *SQLiteStore) claimKeys(ctx context.Context, tx *sql.Tx, c *Collection, id string, doc Document) error {
	for _, key := range c.Unique {
		v, ok := uniqueValue(doc, key)
		if !ok {
			continue
		}
		var owner string
		err := tx.QueryRowContext(ctx, `
			SELECT id FROM unique_keys WHERE collection = ? AND field = ? AND value = ?`,
			c.Name, key, v).Scan(&owner)
		switch {
		case errors.Is(err, sql.ErrNoRows):
		case err != nil:
			return fmt.Errorf("checking unique key %s: %w", key, err)
		case owner != id:
			return &DuplicateKeyError{Field: key, Value: v}
		}
	}
	return nil
}

func (s *SQLiteStore) writeKeys(ctx context.Context, tx *sql.Tx, c *Collection, id string, doc Document) error {
	for _, key := range c.Unique {
		v, ok := uniqueValue(doc, key)
		if !ok {
			continue
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO unique_keys (collection, field, value, id) VALUES (?, ?, ?, ?)`,
			c.Name, key, v, id); err != nil {
			return fmt.Errorf("writing unique key %s: %w", key, err)
		}
	}
	return nil
}

func uniqueValue(doc Document, key string) (string, bool) {
	v, ok := Lookup(doc, key)
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	if !ok || s == "" {
		return "", false
	}
	return s, true
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}

func copyDoc(doc Document) Document {
	out := make(Document, len(doc)+3)
	for k, v := range doc {
		out[k] = v
	}
	return out
}
