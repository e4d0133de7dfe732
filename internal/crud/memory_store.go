package crud

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore implements Store in process memory. Intended for previews and
// tests; nothing survives a restart.
type MemoryStore struct {
	mu   sync.RWMutex
	docs map[string]map[string]Document // collection -> id -> document

	// NewID assigns document ids. Defaults to random UUIDs. Ids that are not
	// UUIDs are rejected with ErrInvalidID, as in the SQLite store.
	NewID func() string
}

func validID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{docs: make(map[string]map[string]Document), NewID: uuid.NewString}
}

func (s *MemoryStore) Setup(context.Context, *Collection) error { return nil }

func (s *MemoryStore) table(c *Collection) map[string]Document {
	t, ok := s.docs[c.Name]
	if !ok {
		t = make(map[string]Document)
		s.docs[c.Name] = t
	}
	return t
}

func (s *MemoryStore) Insert(_ context.Context, c *Collection, doc Document, now time.Time) (Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.NewID()
	ts := now.UTC().Format(TimeLayout)
	doc = copyDoc(doc)
	doc[KeyID] = id
	doc[KeyCreatedAt] = ts
	doc[KeyUpdatedAt] = ts
	if err := s.checkUnique(c, id, doc); err != nil {
		return nil, err
	}
	s.table(c)[id] = doc
	return copyDoc(doc), nil
}

func (s *MemoryStore) Find(_ context.Context, c *Collection, id string) (Document, error) {
	if !validID(id) {
		return nil, ErrInvalidID
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	doc, ok := s.docs[c.Name][id]
	if !ok {
		return nil, ErrNotFound
	}
	return copyDoc(doc), nil
}

func (s *MemoryStore) List(_ context.Context, c *Collection, q Query) ([]Document, int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	needle := strings.ToLower(q.Search)
	var matched []Document
	for _, doc := range s.docs[c.Name] {
		if needle != "" && !matches(c, doc, needle) {
			continue
		}
		matched = append(matched, doc)
	}
	sort.Slice(matched, func(i, j int) bool {
		a, b := matched[i], matched[j]
		if a[KeyUpdatedAt] != b[KeyUpdatedAt] {
			return a[KeyUpdatedAt].(string) > b[KeyUpdatedAt].(string)
		}
		if a[KeyCreatedAt] != b[KeyCreatedAt] {
			return a[KeyCreatedAt].(string) > b[KeyCreatedAt].(string)
		}
		return a[KeyID].(string) > b[KeyID].(string)
	})

	total := int64(len(matched))
	start := (q.Page - 1) * q.Limit
	if start > len(matched) {
		start = len(matched)
	}
	end := min(start+q.Limit, len(matched))
	out := make([]Document, 0, end-start)
	for _, doc := range matched[start:end] {
		out = append(out, copyDoc(doc))
	}
	return out, total, nil
}

func matches(c *Collection, doc Document, needle string) bool {
	for _, key := range c.Searchable {
		v, ok := Lookup(doc, key)
		if !ok {
			continue
		}
		if s, ok := v.(string); ok && strings.Contains(strings.ToLower(s), needle) {
			return true
		}
	}
	return false
}

func (s *MemoryStore) Update(_ context.Context, c *Collection, id string, fields Document, now time.Time) (Document, error) {
	if !validID(id) {
		return nil, ErrInvalidID
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	cur, ok := s.docs[c.Name][id]
	if !ok {
		return nil, ErrNotFound
	}
	next := copyDoc(cur)
	for k, v := range fields {
		next[k] = v
	}
	next[KeyUpdatedAt] = now.UTC().Format(TimeLayout)
	if err := s.checkUnique(c, id, next); err != nil {
		return nil, err
	}
	s.table(c)[id] = next
	return copyDoc(next), nil
}

func (s *MemoryStore) Delete(_ context.Context, c *Collection, id string) error {
	if !validID(id) {
		return ErrInvalidID
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.docs[c.Name][id]; !ok {
		return ErrNotFound
	}
	delete(s.docs[c.Name], id)
	return nil
}

func (s *MemoryStore) Count(_ context.Context, c *Collection) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return int64(len(s.docs[c.Name])), nil
}

func (s *MemoryStore) CountByMonth(_ context.Context, c *Collection, since time.Time) ([]MonthCount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	floor := since.UTC().Format(TimeLayout)
	counts := make(map[string]int64)
	for _, doc := range s.docs[c.Name] {
		created, _ := doc[KeyCreatedAt].(string)
		if created < floor || len(created) < 7 {
			continue
		}
		counts[created[:7]]++
	}
	out := make([]MonthCount, 0, len(counts))
	for m, n := range counts {
		out = append(out, MonthCount{Month: m, Count: n})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Month < out[j].Month })
	return out, nil
}

func (s *MemoryStore) checkUnique(c *Collection, id string, doc Document) error {
	for _, key := range c.Unique {
		v, ok := uniqueValue(doc, key)
		if !ok {
			continue
		}
		for otherID, other := range s.docs[c.Name] {
			if otherID == id {
				continue
			}
			if ov, ok := uniqueValue(other, key); ok && ov == v {
				return &DuplicateKeyError{Field: key, Value: v}
			}
		}
	}
	return nil
}
