package crud

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Pagination bounds of List.
const (
	DefaultLimit = 10
	MaxLimit     = 100
)

// Summary months bounds.
const (
	DefaultMonths = 12
	MaxMonths     = 120
)

// ListResult is one page of a collection.
type ListResult struct {
	Items []Document
	Total int64
	Page  int
	Limit int
}

// BulkUpdateResult reports a bulk update. Ids that are malformed or missing
// are listed in InvalidIDs.
type BulkUpdateResult struct {
	Updated    int      `json:"updated"`
	UpdatedIDs []string `json:"updatedIds"`
	InvalidIDs []string `json:"invalidIds"`
}

// BulkDeleteResult reports a bulk delete in input order.
type BulkDeleteResult struct {
	Deleted    int      `json:"deleted"`
	DeletedIDs []string `json:"deletedIds"`
	InvalidIDs []string `json:"invalidIds"`
}

// Summary is the module dashboard aggregate.
type Summary struct {
	Total   int64        `json:"total"`
	Monthly []MonthCount `json:"monthly"`
}

// Service implements the generated controller semantics over a Store.
type Service struct {
	store Store
	now   func() time.Time
}

func NewService(store Store) *Service {
	return &Service{store: store, now: time.Now}
}

// List returns page (1-based) of c. page below 1 becomes 1. limit 0 means
// DefaultLimit; otherwise it is clamped to 1..MaxLimit.
func (s *Service) List(ctx context.Context, c *Collection, page, limit int, q string) (ListResult, error) {
	if page < 1 {
		page = 1
	}
	switch {
	case limit == 0:
		limit = DefaultLimit
	case limit < 1:
		limit = 1
	case limit > MaxLimit:
		limit = MaxLimit
	}
	items, total, err := s.store.List(ctx, c, Query{Page: page, Limit: limit, Search: q})
	if err != nil {
		return ListResult{}, err
	}
	return ListResult{Items: items, Total: total, Page: page, Limit: limit}, nil
}

func (s *Service) Get(ctx context.Context, c *Collection, id string) (Document, error) {
	return s.store.Find(ctx, c, id)
}

// Create stores body as a new document. Reserved keys in body are ignored.
func (s *Service) Create(ctx context.Context, c *Collection, body Document) (Document, error) {
	now := s.now()
	doc, err := c.Normalize(stripReserved(body), false, now)
	if err != nil {
		return nil, err
	}
	return s.store.Insert(ctx, c, doc, now)
}

// Update sets the fields present in body on document id.
func (s *Service) Update(ctx context.Context, c *Collection, id string, body Document) (Document, error) {
	now := s.now()
	fields, err := c.Normalize(stripReserved(body), true, now)
	if err != nil {
		return nil, err
	}
	return s.store.Update(ctx, c, id, fields, now)
}

// BulkUpdate applies each item to the document named by its _id. Every item
// is validated before any write.
func (s *Service) BulkUpdate(ctx context.Context, c *Collection, items []Document) (BulkUpdateResult, error) {
	now := s.now()
	res := BulkUpdateResult{UpdatedIDs: []string{}, InvalidIDs: []string{}}

	type pending struct {
		id     string
		fields Document
	}
	var work []pending
	for _, item := range items {
		id, _ := item[KeyID].(string)
		fields, err := c.Normalize(stripReserved(item), true, now)
		if err != nil {
			return BulkUpdateResult{}, err
		}
		work = append(work, pending{id: id, fields: fields})
	}

	for _, p := range work {
		_, err := s.store.Update(ctx, c, p.id, p.fields, now)
		switch {
		case err == nil:
			res.UpdatedIDs = append(res.UpdatedIDs, p.id)
		case errors.Is(err, ErrNotFound), errors.Is(err, ErrInvalidID):
			res.InvalidIDs = append(res.InvalidIDs, p.id)
		default:
			return res, fmt.Errorf("updating %s: %w", p.id, err)
		}
	}
	res.Updated = len(res.UpdatedIDs)
	return res, nil
}

func (s *Service) Delete(ctx context.Context, c *Collection, id string) error {
	return s.store.Delete(ctx, c, id)
}

// BulkDelete removes every id it can. Missing and malformed ids are reported
// as invalid; the order of ids is kept in both lists.
func (s *Service) BulkDelete(ctx context.Context, c *Collection, ids []string) (BulkDeleteResult, error) {
	res := BulkDeleteResult{DeletedIDs: []string{}, InvalidIDs: []string{}}
	for _, id := range ids {
		err := s.store.Delete(ctx, c, id)
		switch {
		case err == nil:
			res.DeletedIDs = append(res.DeletedIDs, id)
		case errors.Is(err, ErrNotFound), errors.Is(err, ErrInvalidID):
			res.InvalidIDs = append(res.InvalidIDs, id)
		default:
			return res, fmt.Errorf("deleting %s: %w", id, err)
		}
	}
	res.Deleted = len(res.DeletedIDs)
	return res, nil
}

// Summary counts documents overall and per month for the last months
// calendar months, the current one included.
func (s *Service) Summary(ctx context.Context, c *Collection, months int) (Summary, error) {
	switch {
	case months < 1:
		months = DefaultMonths
	case months > MaxMonths:
		months = MaxMonths
	}
	now := s.now().UTC()
	since := time.Date(now.Year(), now.Month()-time.Month(months-1), 1, 0, 0, 0, 0, time.UTC)

	total, err := s.store.Count(ctx, c)
	if err != nil {
		return Summary{}, err
	}
	monthly, err := s.store.CountByMonth(ctx, c, since)
	if err != nil {
		return Summary{}, err
	}
	return Summary{Total: total, Monthly: monthly}, nil
}
