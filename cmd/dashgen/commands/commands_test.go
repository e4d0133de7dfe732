package commands

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matthewbaird/dashgen/internal/database"
	"github.com/matthewbaird/dashgen/internal/event"
	"github.com/matthewbaird/dashgen/internal/history"
)

const financeUID = "6b1f0c2e-3d4a-4a51-9f7e-2c8d9b0e1a11"

const itemsNaming = `"namingConvention": {"pluralPascal": "Items", "singularPascal": "Item", "pluralLower": "items", "singularLower": "item"}`

type env struct {
	dir     string
	dsn     string
	finance string
}

// newEnv moves into an empty directory and points the database at it.
func newEnv(t *testing.T) env {
	t.Helper()
	finance, err := filepath.Abs(filepath.Join("..", "..", "..", "examples", "templates", "finance.json"))
	require.NoError(t, err)

	dir := t.TempDir()
	t.Chdir(dir)
	dsn := "file:" + filepath.Join(dir, "dashgen.db")
	t.Setenv("DASHGEN_DATABASE_DSN", dsn)
	t.Setenv("DASHGEN_LOGGER_LEVEL", "error")
	return env{dir: dir, dsn: dsn, finance: finance}
}

func run(t *testing.T, stdin string, args ...string) (string, string, error) {
	t.Helper()
	cmd, a := newRootCommand()
	t.Cleanup(a.close)
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return stdout.String(), stderr.String(), err
}

func TestGenerate(t *testing.T) {
	e := newEnv(t)
	root := filepath.Join(e.dir, "admin")

	out, _, err := run(t, "", "generate", e.finance, "--root", root)
	require.NoError(t, err)
	assert.Contains(t, out, "src/app/api/finances/v1/model.ts\n")
	assert.Contains(t, out, "generated 16 files for finances (uid "+financeUID+")")
	assert.FileExists(t, filepath.Join(root, "src", "app", "dashboard", "finances", "page.tsx"))

	db, err := database.Open(context.Background(), e.dsn)
	require.NoError(t, err)
	defer db.Close()
	runs, err := history.NewStore(db).List(context.Background(), "finances", 10)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, event.StatusSucceeded, runs[0].Status)
	assert.Equal(t, financeUID, runs[0].UID)
}

func TestGenerate_Rejected(t *testing.T) {
	e := newEnv(t)
	root := filepath.Join(e.dir, "admin")

	_, _, err := run(t, `{"schema": {"a": "NOPE"}}`, "generate", "-", "--root", root, "--no-history")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid template input")
	assert.NoDirExists(t, root)
	assert.NoFileExists(t, filepath.Join(e.dir, "dashgen.db"))
}

func TestValidate(t *testing.T) {
	e := newEnv(t)

	out, _, err := run(t, "", "validate", e.finance)
	require.NoError(t, err)
	assert.Equal(t, e.finance+": ok, module finances with 15 fields\n", out)

	input := `{"schema": {"a": "SPARKLINE", "b": {}}, ` + itemsNaming + `}`
	_, stderr, err := run(t, input, "validate", "-")
	require.Error(t, err)
	assert.Equal(t, "-: 2 problem(s)", err.Error())
	assert.Contains(t, stderr, "  b: nested object has no fields\n")
	assert.Contains(t, stderr, "rerun with --lenient")

	// Lenient mode only accepts unknown tags.
	_, stderr, err = run(t, input, "validate", "-", "--lenient")
	require.Error(t, err)
	assert.Equal(t, "-: 1 problem(s)", err.Error())
	assert.NotContains(t, stderr, "SPARKLINE")
	assert.NotContains(t, stderr, "--lenient")

	_, _, err = run(t, input, "validate", "-", "--format", "toml")
	assert.EqualError(t, err, `unknown format "toml" (want json, yaml or cue)`)
}

func TestFmt(t *testing.T) {
	newEnv(t)

	yaml := "schema:\n  zeta: STRING\n  alpha: INTNUMBER\n"
	out, _, err := run(t, yaml, "fmt", "-", "-f", "yaml")
	require.NoError(t, err)
	assert.Less(t, strings.Index(out, `"zeta"`), strings.Index(out, `"alpha"`))
	assert.True(t, strings.HasSuffix(out, "}\n"))

	require.NoError(t, os.WriteFile("in.json", []byte(`{"schema":{"b":"STRING","a":"EMAIL"},`+itemsNaming+`}`), 0o600))
	_, _, err = run(t, "", "fmt", "in.json", "--write")
	require.NoError(t, err)
	got, err := os.ReadFile("in.json")
	require.NoError(t, err)
	assert.Contains(t, string(got), "  \"schema\": {\n    \"b\": \"STRING\",\n    \"a\": \"EMAIL\"\n  },\n")
	assert.Contains(t, string(got), "\"pluralLower\": \"items\"")

	require.NoError(t, os.WriteFile("in.yaml", []byte(yaml), 0o600))
	_, _, err = run(t, "", "fmt", "in.yaml", "--write")
	assert.EqualError(t, err, "--write needs a JSON input file")
}

func TestPreview(t *testing.T) {
	e := newEnv(t)

	out, _, err := run(t, "", "preview", e.finance)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 16)
	assert.Equal(t, "model                src/app/api/finances/v1/model.ts", lines[0])

	out, _, err = run(t, "", "preview", e.finance, "--kind", "model")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "// src/app/api/finances/v1/model.ts\n"))
	assert.NotContains(t, out, "page.tsx")

	_, _, err = run(t, "", "preview", e.finance, "--kind", "widget")
	assert.Error(t, err)
	assert.NoDirExists(t, filepath.Join(e.dir, "src"))
}

func TestDrafts(t *testing.T) {
	e := newEnv(t)

	out, _, err := run(t, "", "drafts", "save", e.finance)
	require.NoError(t, err)
	assert.Equal(t, financeUID+"\n", out)

	out, _, err = run(t, "", "drafts", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "ID")
	assert.Contains(t, out, financeUID)
	assert.Contains(t, out, "finances")

	out, _, err = run(t, "", "drafts", "show", financeUID)
	require.NoError(t, err)
	assert.Contains(t, out, `"templateName": "Finance"`)

	_, _, err = run(t, "", "drafts", "delete", financeUID)
	require.NoError(t, err)
	_, _, err = run(t, "", "drafts", "show", financeUID)
	assert.EqualError(t, err, "draft "+financeUID+" not found")
	_, _, err = run(t, "", "drafts", "delete", financeUID)
	assert.Error(t, err)
}

func TestGenerate_RemovesDraft(t *testing.T) {
	e := newEnv(t)

	_, _, err := run(t, "", "drafts", "save", e.finance)
	require.NoError(t, err)
	_, _, err = run(t, "", "generate", e.finance, "--root", filepath.Join(e.dir, "admin"))
	require.NoError(t, err)

	out, _, err := run(t, "", "drafts", "list")
	require.NoError(t, err)
	assert.NotContains(t, out, financeUID)
}
