package crud

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/matthewbaird/dashgen/internal/schema"
)

// Registry maps route segments to the collections served at runtime.
type Registry struct {
	mu     sync.RWMutex
	store  Store
	byName map[string]*Collection
}

func NewRegistry(store Store) *Registry {
	return &Registry{store: store, byName: make(map[string]*Collection)}
}

// Register prepares storage for in and serves it under its route segment,
// replacing any collection registered under the same name.
func (r *Registry) Register(ctx context.Context, in *schema.TemplateInput) (*Collection, error) {
	c := NewCollection(in)
	if c.Name == "" {
		return nil, fmt.Errorf("register: template input has no route name")
	}
	if err := r.store.Setup(ctx, c); err != nil {
		return nil, err
	}
	r.mu.Lock()
	r.byName[c.Name] = c
	r.mu.Unlock()
	return c, nil
}

// Get returns the collection served under name.
func (r *Registry) Get(name string) (*Collection, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.byName[name]
	return c, ok
}

// Names lists the registered route segments in order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.byName))
	for n := range r.byName {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// LoadDir registers every template input (.json, .yaml, .yml, .cue) in dir.
// Files that fail to load or validate are logged and skipped.
func (r *Registry) LoadDir(ctx context.Context, dir string, opts schema.Options, log logrus.FieldLogger) (int, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0, fmt.Errorf("reading modules dir: %w", err)
	}
	n := 0
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		switch filepath.Ext(e.Name()) {
		case ".json", ".yaml", ".yml", ".cue":
		default:
			continue
		}
		path := filepath.Join(dir, e.Name())
		flog := log.WithField("file", path)
		raw, err := os.ReadFile(path)
		if err != nil {
			flog.WithError(err).Warn("skipping module")
			continue
		}
		in, err := schema.Load(raw, schema.FormatFromPath(path))
		if err == nil {
			err = schema.Validate(in, opts)
		}
		if err != nil {
			flog.WithError(err).Warn("skipping module")
			continue
		}
		c, err := r.Register(ctx, in)
		if err != nil {
			return n, fmt.Errorf("registering %s: %w", path, err)
		}
		flog.WithField("module", c.Name).Info("module registered")
		n++
	}
	return n, nil
}
