// Package crud serves the REST contract of a generated module: paginated
// search, single and bulk updates and deletes, unique-key conflicts and the
// monthly summary. It lets a module be exercised before the Next.js side of
// it exists.
package crud

import (
	"fmt"
	"strings"
	"time"

	"github.com/matthewbaird/dashgen/internal/naming"
	"github.com/matthewbaird/dashgen/internal/schema"
	"github.com/matthewbaird/dashgen/internal/typetag"
)

// Document is one stored record: the schema fields plus _id, createdAt and
// updatedAt.
type Document = map[string]any

// Reserved document keys managed by the store.
const (
	KeyID        = "_id"
	KeyCreatedAt = "createdAt"
	KeyUpdatedAt = "updatedAt"
)

// TimeLayout is the JSON form of createdAt and updatedAt.
const TimeLayout = "2006-01-02T15:04:05.000Z"

// Collection is the runtime view of one generated module.
type Collection struct {
	Name       string // route segment, also the collection/table name
	ID         naming.Identifiers
	Schema     *schema.Schema
	Unique     []string // dotted keys of EMAIL leaves
	Searchable []string // dotted keys of string-like leaves
}

// NewCollection derives the collection of a validated template input.
func NewCollection(in *schema.TemplateInput) *Collection {
	id := in.NamingConvention.Identifiers()
	c := &Collection{Name: id.Route, ID: id, Schema: in.Schema}
	for _, l := range schema.Flatten(in.Schema) {
		if l.Tag.Kind == typetag.Email {
			c.Unique = append(c.Unique, l.Key)
		}
		if l.Tag.Kind.Textual() {
			c.Searchable = append(c.Searchable, l.Key)
		}
	}
	return c
}

// Defaults returns a document holding the zero value of every field.
func (c *Collection) Defaults(now time.Time) Document {
	return defaults(c.Schema, now)
}

func defaults(s *schema.Schema, now time.Time) Document {
	doc := make(Document, len(s.Fields))
	for _, f := range s.Fields {
		if f.IsObject() {
			doc[f.Name] = defaults(f.Object, now)
			continue
		}
		if v := f.Tag.Zero(now); v != nil {
			doc[f.Name] = v
		}
	}
	return doc
}

// Normalize checks body against the schema and returns the stored form.
// Keys outside the schema are dropped. When partial is false missing fields
// are filled from defaults.
func (c *Collection) Normalize(body Document, partial bool, now time.Time) (Document, error) {
	var problems []string
	out := normalize(c.Schema, body, "", &problems)
	if len(problems) > 0 {
		return nil, &ValidationError{Model: c.ID.Model, Problems: problems}
	}
	if !partial {
		mergeDefaults(out, c.Defaults(now))
	}
	return out, nil
}

func normalize(s *schema.Schema, body Document, prefix string, problems *[]string) Document {
	out := make(Document)
	for _, f := range s.Fields {
		v, ok := body[f.Name]
		if !ok {
			continue
		}
		key := f.Name
		if prefix != "" {
			key = prefix + "." + f.Name
		}
		if f.IsObject() {
			if v == nil {
				continue
			}
			m, ok := v.(map[string]any)
			if !ok {
				*problems = append(*problems, key+": expected an object")
				continue
			}
			out[f.Name] = normalize(f.Object, m, key, problems)
			continue
		}
		nv, err := coerce(f.Tag, v)
		if err != nil {
			*problems = append(*problems, key+": "+err.Error())
			continue
		}
		out[f.Name] = nv
	}
	return out
}

// coerce extends Tag.Coerce to the structured kinds.
func coerce(t *typetag.Tag, v any) (any, error) {
	if v == nil {
		return nil, nil
	}
	switch t.Kind {
	case typetag.StringArray:
		rows, ok := v.([]any)
		if !ok {
			return nil, fmt.Errorf("%v is not a list", v)
		}
		out := make([]any, 0, len(rows))
		for i, r := range rows {
			row, ok := r.(map[string]any)
			if !ok {
				return nil, fmt.Errorf("row %d is not an object", i)
			}
			clean := make(map[string]any, len(t.SubFields))
			for _, sf := range t.SubFields {
				sv, present := row[sf.Name]
				if !present {
					continue
				}
				cv, err := coerce(sf.Effective(), sv)
				if err != nil {
					return nil, fmt.Errorf("row %d %s: %w", i, sf.Name, err)
				}
				clean[sf.Name] = cv
			}
			out = append(out, clean)
		}
		return out, nil
	case typetag.DateRange, typetag.TimeRange:
		m, ok := v.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("%v is not a {start, end} pair", v)
		}
		return map[string]any{"start": m["start"], "end": m["end"]}, nil
	case typetag.Images:
		items, ok := v.([]any)
		if !ok {
			return nil, fmt.Errorf("%v is not a list", v)
		}
		for _, item := range items {
			if _, ok := item.(string); !ok {
				return nil, fmt.Errorf("%v is not a string", item)
			}
		}
		return items, nil
	case typetag.PureJSON:
		return v, nil
	}
	return t.Coerce(v)
}

func mergeDefaults(doc, defs Document) {
	for k, dv := range defs {
		cur, ok := doc[k]
		if !ok || cur == nil {
			doc[k] = dv
			continue
		}
		if sub, ok := cur.(map[string]any); ok {
			if dsub, ok := dv.(Document); ok {
				mergeDefaults(sub, dsub)
			}
		}
	}
}

// Lookup returns the value at a dotted key.
func Lookup(doc Document, key string) (any, bool) {
	var cur any = doc
	for _, part := range strings.Split(key, ".") {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil, false
		}
		cur, ok = m[part]
		if !ok {
			return nil, false
		}
	}
	return cur, true
}

// stripReserved removes the store-managed keys from a request body.
func stripReserved(body Document) Document {
	out := make(Document, len(body))
	for k, v := range body {
		switch k {
		case KeyID, KeyCreatedAt, KeyUpdatedAt:
			continue
		}
		out[k] = v
	}
	return out
}
