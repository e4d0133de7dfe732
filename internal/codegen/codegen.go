// Package codegen renders the source files of one CRUD admin module from a
// validated template input. Rendering is pure: it returns artifacts in memory
// and never touches the filesystem.
package codegen

import (
	"embed"
	"fmt"
	"path"
	"strings"
	"text/template"

	"github.com/evanw/esbuild/pkg/api"

	"github.com/matthewbaird/dashgen/internal/schema"
	"github.com/matthewbaird/dashgen/internal/typetag"
)

//go:embed templates/*
var templateFS embed.FS

// Kind names one generated artifact.
type Kind string

const (
	KindModel             Kind = "model"
	KindController        Kind = "controller"
	KindRoute             Kind = "route"
	KindSummaryController Kind = "summary-controller"
	KindSummaryRoute      Kind = "summary-route"
	KindAPISlice          Kind = "api-slice"
	KindStore             Kind = "store"
	KindConstants         Kind = "constants"
	KindPage              Kind = "page"
	KindAdd               Kind = "add"
	KindEdit              Kind = "edit"
	KindDelete            Kind = "delete"
	KindBulkEdit          Kind = "bulk-edit"
	KindBulkDelete        Kind = "bulk-delete"
	KindView              Kind = "view"
	KindTableView         Kind = "table-view"
)

type artifactDef struct {
	kind     Kind
	template string
	path     func(m *ModuleView) string
}

func apiFile(name string) func(*ModuleView) string {
	return func(m *ModuleView) string { return path.Join(m.Layout.APIDir, name) }
}

func uiFile(name string) func(*ModuleView) string {
	return func(m *ModuleView) string { return path.Join(m.Layout.UIDir, name) }
}

// artifacts lists every output in emission order.
var artifacts = []artifactDef{
	{KindModel, "model.ts.tmpl", apiFile("model.ts")},
	{KindController, "controller.ts.tmpl", apiFile("controller.ts")},
	{KindRoute, "route.ts.tmpl", apiFile("route.ts")},
	{KindSummaryController, "summary_controller.ts.tmpl", apiFile("summary/controller.ts")},
	{KindSummaryRoute, "summary_route.ts.tmpl", apiFile("summary/route.ts")},
	{KindAPISlice, "api_slice.ts.tmpl", func(m *ModuleView) string { return m.Layout.SliceFile }},
	{KindStore, "store.ts.tmpl", uiFile("store/store.ts")},
	{KindConstants, "constants.ts.tmpl", uiFile("utils/constants.ts")},
	{KindPage, "page.tsx.tmpl", uiFile("page.tsx")},
	{KindAdd, "add.tsx.tmpl", uiFile("components/Add.tsx")},
	{KindEdit, "edit.tsx.tmpl", uiFile("components/Edit.tsx")},
	{KindDelete, "delete.tsx.tmpl", uiFile("components/Delete.tsx")},
	{KindBulkEdit, "bulk_edit.tsx.tmpl", uiFile("components/BulkEdit.tsx")},
	{KindBulkDelete, "bulk_delete.tsx.tmpl", uiFile("components/BulkDelete.tsx")},
	{KindView, "view.tsx.tmpl", uiFile("components/View.tsx")},
	{KindTableView, "table_view.tsx.tmpl", uiFile("components/TableView.tsx")},
}

// Kinds returns every artifact kind in emission order.
func Kinds() []Kind {
	out := make([]Kind, len(artifacts))
	for i, a := range artifacts {
		out[i] = a.kind
	}
	return out
}

// ParseKind resolves an artifact kind by name.
func ParseKind(name string) (Kind, error) {
	for _, a := range artifacts {
		if string(a.kind) == name {
			return a.kind, nil
		}
	}
	return "", fmt.Errorf("unknown artifact kind %q", name)
}

// Artifact is one rendered file. Path is relative to the project root and
// always uses forward slashes.
type Artifact struct {
	Kind    Kind   `json:"kind"`
	Path    string `json:"path"`
	Content string `json:"content"`
}

var templates = template.Must(template.New("codegen").
	Delims("[[", "]]").
	Funcs(template.FuncMap{
		"dict":    dict,
		"jsStr":   typetag.JSString,
		"jsArray": typetag.JSArray,
	}).
	ParseFS(templateFS, "templates/*.tmpl"))

func dict(pairs ...any) (map[string]any, error) {
	if len(pairs)%2 != 0 {
		return nil, fmt.Errorf("dict: odd number of arguments")
	}
	m := make(map[string]any, len(pairs)/2)
	for i := 0; i < len(pairs); i += 2 {
		key, ok := pairs[i].(string)
		if !ok {
			return nil, fmt.Errorf("dict: key %v is not a string", pairs[i])
		}
		m[key] = pairs[i+1]
	}
	return m, nil
}

// Render produces every artifact of the module described by in. The input
// must already have passed schema.Validate.
func Render(in *schema.TemplateInput) ([]Artifact, error) {
	if in == nil || in.Schema == nil {
		return nil, fmt.Errorf("render: template input has no schema")
	}
	m := NewModuleView(in)
	out := make([]Artifact, 0, len(artifacts))
	for _, def := range artifacts {
		a, err := renderOne(m, def)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, nil
}

// RenderKind produces a single artifact.
func RenderKind(in *schema.TemplateInput, kind Kind) (Artifact, error) {
	if in == nil || in.Schema == nil {
		return Artifact{}, fmt.Errorf("render: template input has no schema")
	}
	for _, def := range artifacts {
		if def.kind == kind {
			return renderOne(NewModuleView(in), def)
		}
	}
	return Artifact{}, fmt.Errorf("unknown artifact kind %q", kind)
}

func renderOne(m *ModuleView, def artifactDef) (Artifact, error) {
	var buf strings.Builder
	if err := templates.ExecuteTemplate(&buf, def.template, m); err != nil {
		return Artifact{}, fmt.Errorf("rendering %s: %w", def.kind, err)
	}
	return Artifact{Kind: def.kind, Path: def.path(m), Content: buf.String()}, nil
}

// SyntaxError is a parse failure in one generated file.
type SyntaxError struct {
	Path    string
	Line    int
	Column  int
	Message string
}

func (e SyntaxError) Error() string {
	return fmt.Sprintf("%s:%d:%d: %s", e.Path, e.Line, e.Column, e.Message)
}

// CheckError collects the syntax errors found by Check.
type CheckError struct {
	Errors []SyntaxError
}

func (e *CheckError) Error() string {
	msgs := make([]string, len(e.Errors))
	for i, se := range e.Errors {
		msgs[i] = se.Error()
	}
	return "generated code does not parse: " + strings.Join(msgs, "; ")
}

// Check parses every artifact as TypeScript (or TSX) and reports syntax
// errors. It does not type-check.
func Check(artifacts []Artifact) error {
	var errs []SyntaxError
	for _, a := range artifacts {
		loader := api.LoaderTS
		if strings.HasSuffix(a.Path, ".tsx") {
			loader = api.LoaderTSX
		}
		result := api.Transform(a.Content, api.TransformOptions{
			Loader:     loader,
			Sourcefile: a.Path,
			LogLevel:   api.LogLevelSilent,
		})
		for _, msg := range result.Errors {
			se := SyntaxError{Path: a.Path, Message: msg.Text}
			if msg.Location != nil {
				se.Line = msg.Location.Line
				se.Column = msg.Location.Column
			}
			errs = append(errs, se)
		}
	}
	if len(errs) > 0 {
		return &CheckError{Errors: errs}
	}
	return nil
}
