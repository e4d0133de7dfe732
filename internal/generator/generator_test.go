package generator

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matthewbaird/dashgen/internal/crud"
	"github.com/matthewbaird/dashgen/internal/event"
	"github.com/matthewbaird/dashgen/internal/schema"
	"github.com/matthewbaird/dashgen/internal/writer"
)

type captured struct {
	mu     sync.Mutex
	events []event.GenerationEvent
}

func (c *captured) Publish(_ context.Context, evt event.GenerationEvent) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, evt)
}

func newTestService(t *testing.T) (*Service, string, *captured, *crud.Registry) {
	t.Helper()
	root := t.TempDir()
	log, _ := test.NewNullLogger()
	events := &captured{}
	reg := crud.NewRegistry(crud.NewMemoryStore())
	svc := New(Config{
		Writer:  writer.New(root, log),
		Schema:  schema.DefaultOptions(),
		Events:  events,
		Modules: reg,
		Log:     log,
	})
	return svc, root, events, reg
}

func readExample(t *testing.T, name string) []byte {
	t.Helper()
	raw, err := os.ReadFile(filepath.Join("..", "..", "examples", "templates", name))
	require.NoError(t, err)
	return raw
}

func TestGenerate_WritesEveryArtifact(t *testing.T) {
	svc, root, events, reg := newTestService(t)

	res, err := svc.Generate(context.Background(), readExample(t, "finance.json"), schema.FormatJSON)
	require.NoError(t, err)
	require.Len(t, res.Paths, 16)
	assert.NotEmpty(t, res.Input.UID)

	for _, a := range res.Artifacts {
		got, err := os.ReadFile(filepath.Join(root, filepath.FromSlash(a.Path)))
		require.NoError(t, err, a.Path)
		assert.Equal(t, a.Content, string(got))
	}
	assert.NoDirExists(t, filepath.Join(root, writer.WorkDir))

	require.Len(t, events.events, 1)
	evt := events.events[0]
	assert.Equal(t, event.StatusSucceeded, evt.Status)
	assert.Equal(t, "finances", evt.Module)
	assert.Equal(t, 16, evt.Artifacts)

	_, ok := reg.Get("finances")
	assert.True(t, ok)
}

func TestGenerate_RejectsBeforeWriting(t *testing.T) {
	svc, root, events, _ := newTestService(t)

	raw := []byte(`{"schema": {"a": "NOPE"}, "namingConvention": {"pluralPascal": "Items", "singularPascal": "Item", "pluralLower": "items", "singularLower": "item"}}`)
	_, err := svc.Generate(context.Background(), raw, schema.FormatJSON)
	require.Error(t, err)
	assert.True(t, IsInputError(err))

	entries, err := os.ReadDir(root)
	require.NoError(t, err)
	assert.Empty(t, entries)

	require.Len(t, events.events, 1)
	assert.Equal(t, event.StatusRejected, events.events[0].Status)
	assert.Equal(t, "items", events.events[0].Module)
}

func TestGenerate_MalformedInput(t *testing.T) {
	svc, _, events, _ := newTestService(t)

	_, err := svc.Generate(context.Background(), []byte(`{"schema":`), schema.FormatJSON)
	require.Error(t, err)
	assert.True(t, IsInputError(err))
	require.Len(t, events.events, 1)
	assert.Empty(t, events.events[0].Module)
}

func TestGenerate_CommitFailureIsServerError(t *testing.T) {
	svc, root, events, _ := newTestService(t)

	// A regular file where the API directory must go makes mkdir fail.
	require.NoError(t, os.MkdirAll(filepath.Join(root, "src", "app"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "src", "app", "api"), []byte("x"), 0o644))

	_, err := svc.Generate(context.Background(), readExample(t, "finance.json"), schema.FormatJSON)
	var cerr *writer.CommitError
	require.ErrorAs(t, err, &cerr)
	assert.False(t, IsInputError(err))
	require.Len(t, events.events, 1)
	assert.Equal(t, event.StatusFailed, events.events[0].Status)
	assert.NoDirExists(t, filepath.Join(root, "src", "redux"))
}

func TestPreview_DoesNotWrite(t *testing.T) {
	svc, root, events, reg := newTestService(t)

	res, err := svc.Preview(context.Background(), readExample(t, "page-builder.json"), schema.FormatJSON)
	require.NoError(t, err)
	assert.Contains(t, res.Paths, "src/app/generate/sections/page.tsx")

	entries, err := os.ReadDir(root)
	require.NoError(t, err)
	assert.Empty(t, entries)
	assert.Empty(t, events.events)
	assert.Empty(t, reg.Names())
}

func TestDecode_LenientMode(t *testing.T) {
	log, _ := test.NewNullLogger()
	svc := New(Config{Writer: writer.New(t.TempDir(), log), Schema: schema.Options{Strict: false}, Log: log})

	raw := []byte(`{"schema": {"chart": "SPARKLINE"}, "namingConvention": {"pluralPascal": "Items", "singularPascal": "Item", "pluralLower": "items", "singularLower": "item"}}`)
	res, err := svc.Preview(context.Background(), raw, schema.FormatJSON)
	require.NoError(t, err)
	assert.NotEmpty(t, res.Artifacts)
}
