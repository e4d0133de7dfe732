package naming

import (
	"path"
	"strings"
	"unicode"

	"github.com/gosimple/slug"
)

// Identifiers is every name a generated module exports or imports. It is
// derived once per generation so the file that exports a name and the file
// that imports it read the same field.
type Identifiers struct {
	PluralPascal   string
	SingularPascal string
	PluralLower    string
	SingularLower  string

	Model       string // Mongoose model name
	SchemaVar   string
	ListFn      string
	CreateFn    string
	UpdateFn    string
	DeleteFn    string
	SummaryFn   string
	ListKey     string // key of the list in paginated responses
	Interface   string
	DefaultData string
	StoreHook   string
	StoreType   string
	NewVar      string
	NewSetter   string
	SelectedVar string
	SelectedSet string

	APISlice        string
	TagType         string
	GetEndpoint     string
	AddEndpoint     string
	UpdateEndpoint  string
	DeleteEndpoint  string
	BulkUpdateEP    string
	BulkDeleteEP    string
	SummaryEndpoint string
	GetHook         string
	AddHook         string
	UpdateHook      string
	DeleteHook      string
	BulkUpdateHook  string
	BulkDeleteHook  string
	SummaryHook     string

	Page           string
	AddComponent   string
	EditComponent  string
	DeleteComp     string
	BulkEditComp   string
	BulkDeleteComp string
	ViewComponent  string
	TableComponent string

	Route string // URL segment of the module
}

// Identifiers derives the module identifiers from the convention.
func (c Convention) Identifiers() Identifiers {
	pp, sp := c.PluralPascal, c.SingularPascal
	pl, sl := c.PluralLower, c.SingularLower
	id := Identifiers{
		PluralPascal:   pp,
		SingularPascal: sp,
		PluralLower:    pl,
		SingularLower:  sl,

		Model:       sp,
		SchemaVar:   sl + "Schema",
		ListFn:      "get" + pp,
		CreateFn:    "create" + sp,
		UpdateFn:    "update" + sp,
		DeleteFn:    "delete" + sp,
		SummaryFn:   "get" + pp + "Summary",
		ListKey:     pl,
		Interface:   "I" + pp,
		DefaultData: "default" + pp + "Data",
		StoreHook:   "use" + pp + "Store",
		StoreType:   pp + "Store",
		NewVar:      "new" + sp,
		NewSetter:   "setNew" + sp,
		SelectedVar: "selected" + pp,
		SelectedSet: "setSelected" + pp,

		APISlice:        pl + "Api",
		TagType:         "tagType" + pp,
		GetEndpoint:     "get" + pp,
		AddEndpoint:     "add" + pp,
		UpdateEndpoint:  "update" + pp,
		DeleteEndpoint:  "delete" + pp,
		BulkUpdateEP:    "bulkUpdate" + pp,
		BulkDeleteEP:    "bulkDelete" + pp,
		SummaryEndpoint: "get" + pp + "Summary",

		Page:           pp + "Page",
		AddComponent:   "Add" + sp,
		EditComponent:  "Edit" + sp,
		DeleteComp:     "Delete" + sp,
		BulkEditComp:   "BulkEdit" + pp,
		BulkDeleteComp: "BulkDelete" + pp,
		ViewComponent:  "View" + sp,
		TableComponent: pp + "Table",

		Route: RouteSegment(pl),
	}
	id.GetHook = hookName(id.GetEndpoint, "Query")
	id.AddHook = hookName(id.AddEndpoint, "Mutation")
	id.UpdateHook = hookName(id.UpdateEndpoint, "Mutation")
	id.DeleteHook = hookName(id.DeleteEndpoint, "Mutation")
	id.BulkUpdateHook = hookName(id.BulkUpdateEP, "Mutation")
	id.BulkDeleteHook = hookName(id.BulkDeleteEP, "Mutation")
	id.SummaryHook = hookName(id.SummaryEndpoint, "Query")
	return id
}

// hookName follows the RTK Query convention: use + Endpoint + Query|Mutation.
func hookName(endpoint, suffix string) string {
	return "use" + ToPascal(endpoint) + suffix
}

// RouteSegment turns a plural name into a URL path segment.
func RouteSegment(pluralLower string) string {
	if s := slug.Make(ToKebab(pluralLower)); s != "" {
		return s
	}
	return strings.ToLower(pluralLower)
}

// Layout holds the output locations of a module.
type Layout struct {
	APIDir    string // directory of model, controller and route
	UIDir     string // directory of the dashboard page
	SliceFile string
	APIBase   string // URL prefix served by route.ts
}

// Layout resolves output paths. UseGenerateFolder switches between the
// dashboard convention and the generate convention.
func (c Convention) Layout() Layout {
	route := RouteSegment(c.PluralLower)
	l := Layout{
		APIDir:    path.Join("src/app/api", route, "v1"),
		UIDir:     path.Join("src/app/dashboard", route),
		SliceFile: path.Join("src/redux/features", c.SingularLower, c.SingularLower+"Slice.ts"),
		APIBase:   "/api/" + route + "/v1",
	}
	if c.UseGenerateFolder {
		l.APIDir = path.Join("src/app/api/generate", route, "v1")
		l.UIDir = path.Join("src/app/generate", route)
		l.APIBase = "/api/generate/" + route + "/v1"
	}
	return l
}

// ToPascal upper-cases the first rune of every word. Words are split on
// separators and lower-to-upper case changes.
func ToPascal(s string) string {
	var b strings.Builder
	for _, w := range splitWords(s) {
		r := []rune(w)
		b.WriteRune(unicode.ToUpper(r[0]))
		b.WriteString(string(r[1:]))
	}
	return b.String()
}

// ToCamel is ToPascal with a lower-case first rune.
func ToCamel(s string) string {
	p := []rune(ToPascal(s))
	if len(p) == 0 {
		return ""
	}
	p[0] = unicode.ToLower(p[0])
	return string(p)
}

// ToKebab joins lower-cased words with '-'.
func ToKebab(s string) string {
	words := splitWords(s)
	for i, w := range words {
		words[i] = strings.ToLower(w)
	}
	return strings.Join(words, "-")
}

// ToLabel renders a field key as a human label: "firstName" -> "First Name".
func ToLabel(s string) string {
	words := splitWords(s)
	for i, w := range words {
		r := []rune(w)
		r[0] = unicode.ToUpper(r[0])
		words[i] = string(r)
	}
	return strings.Join(words, " ")
}

func splitWords(s string) []string {
	var words []string
	var cur []rune
	flush := func() {
		if len(cur) > 0 {
			words = append(words, string(cur))
			cur = cur[:0]
		}
	}
	rs := []rune(s)
	for i, r := range rs {
		switch {
		case r == '_' || r == '-' || r == ' ' || r == '.' || r == '$':
			flush()
		case unicode.IsUpper(r) && i > 0 && (unicode.IsLower(rs[i-1]) || unicode.IsDigit(rs[i-1])):
			flush()
			cur = append(cur, r)
		case unicode.IsUpper(r) && i > 0 && i+1 < len(rs) && unicode.IsUpper(rs[i-1]) && unicode.IsLower(rs[i+1]):
			flush()
			cur = append(cur, r)
		default:
			cur = append(cur, r)
		}
	}
	flush()
	return words
}
