package crud

import (
	"context"
	"time"
)

// Query selects one page of a list.
type Query struct {
	Page   int // 1-based
	Limit  int
	Search string
}

// MonthCount is the number of documents created in one calendar month.
type MonthCount struct {
	Month string `json:"month"` // YYYY-MM
	Count int64  `json:"count"`
}

// Store persists the documents of every collection. Implementations enforce
// the collection's unique keys and return *DuplicateKeyError on conflict.
type Store interface {
	// Setup prepares storage for c (tables, indexes). It is idempotent.
	Setup(ctx context.Context, c *Collection) error

	// Insert stores doc and returns it with _id, createdAt and updatedAt set.
	Insert(ctx context.Context, c *Collection, doc Document, now time.Time) (Document, error)

	// Find returns the document with the given id.
	Find(ctx context.Context, c *Collection, id string) (Document, error)

	// List returns one page, most recently updated first, and the total
	// number of matching documents.
	List(ctx context.Context, c *Collection, q Query) ([]Document, int64, error)

	// Update sets the top-level fields of fields on the document and returns
	// the updated document.
	Update(ctx context.Context, c *Collection, id string, fields Document, now time.Time) (Document, error)

	// Delete removes the document with the given id.
	Delete(ctx context.Context, c *Collection, id string) error

	// Count returns the number of documents in c.
	Count(ctx context.Context, c *Collection) (int64, error)

	// CountByMonth groups documents created at or after since by month,
	// oldest month first.
	CountByMonth(ctx context.Context, c *Collection, since time.Time) ([]MonthCount, error)
}
