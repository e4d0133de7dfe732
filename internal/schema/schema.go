// Package schema models the generator input: an ordered tree of field names
// mapped to type tags or nested objects, plus the naming convention of the
// generated module.
package schema

import (
	"bytes"
	"encoding/json"

	"github.com/google/uuid"

	"github.com/matthewbaird/dashgen/internal/naming"
	"github.com/matthewbaird/dashgen/internal/typetag"
)

// TemplateInput is the single unit of input to every artifact renderer.
type TemplateInput struct {
	UID              string            `json:"uid,omitempty"`
	TemplateName     string            `json:"templateName,omitempty"`
	Schema           *Schema           `json:"schema"`
	NamingConvention naming.Convention `json:"namingConvention"`
}

// UnmarshalJSON decodes through Load so direct json.Unmarshal calls get the
// same ordering and shape checks.
func (in *TemplateInput) UnmarshalJSON(data []byte) error {
	out, err := Load(data, FormatJSON)
	if err != nil {
		return err
	}
	*in = *out
	return nil
}

// EnsureUID assigns a fresh uid when the input has none.
func (in *TemplateInput) EnsureUID() {
	if in.UID == "" {
		in.UID = uuid.NewString()
	}
}

// Schema is an ordered mapping of field name to leaf tag or nested object.
type Schema struct {
	Fields []Field
}

// Field is one schema entry. Exactly one of Tag and Object is set.
type Field struct {
	Name   string
	Tag    *typetag.Tag
	Object *Schema
}

// IsObject reports whether the field is a nested mapping.
func (f Field) IsObject() bool { return f.Object != nil }

// Lookup returns the field with the given name.
func (s *Schema) Lookup(name string) (Field, bool) {
	for _, f := range s.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}

// MarshalJSON writes fields in declaration order.
func (s Schema) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, f := range s.Fields {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(f.Name)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		var val []byte
		if f.IsObject() {
			val, err = f.Object.MarshalJSON()
		} else {
			val, err = json.Marshal(f.Tag.Raw)
		}
		if err != nil {
			return nil, err
		}
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON decodes a bare schema mapping, keeping key order.
func (s *Schema) UnmarshalJSON(data []byte) error {
	out, err := decodeSchemaBytes(data)
	if err != nil {
		return err
	}
	*s = *out
	return nil
}

// FormatInput pretty-prints the input with two-space indentation.
func FormatInput(in *TemplateInput) ([]byte, error) {
	return json.MarshalIndent(in, "", "  ")
}

// VisitFunc is called for every field in a Walk. key is the dotted path from
// the root and depth is 0 for top-level fields.
type VisitFunc func(key string, depth int, f Field) error

// Walk visits fields in declaration order, parents before children. A non-nil
// error from visit stops the walk.
func Walk(s *Schema, visit VisitFunc) error {
	return walk(s, "", 0, visit)
}

func walk(s *Schema, prefix string, depth int, visit VisitFunc) error {
	if s == nil {
		return nil
	}
	for _, f := range s.Fields {
		key := f.Name
		if prefix != "" {
			key = prefix + "." + f.Name
		}
		if err := visit(key, depth, f); err != nil {
			return err
		}
		if f.IsObject() {
			if err := walk(f.Object, key, depth+1, visit); err != nil {
				return err
			}
		}
	}
	return nil
}

// Leaf is a flattened leaf field.
type Leaf struct {
	Key   string
	Depth int
	Name  string
	Tag   *typetag.Tag
}

// Flatten returns the leaves of s in declaration order.
func Flatten(s *Schema) []Leaf {
	var leaves []Leaf
	_ = Walk(s, func(key string, depth int, f Field) error {
		if !f.IsObject() {
			leaves = append(leaves, Leaf{Key: key, Depth: depth, Name: f.Name, Tag: f.Tag})
		}
		return nil
	})
	return leaves
}

// Fragment is one rendered entry of the schema walk.
type Fragment struct {
	Key      string
	Depth    int
	Text     string
	Children []Fragment
}

// Fragments renders every leaf with render and wraps nested objects in a
// fragment holding their children, preserving declaration order.
func Fragments(s *Schema, render func(*typetag.Tag) string) []Fragment {
	return fragments(s, "", 0, render)
}

func fragments(s *Schema, prefix string, depth int, render func(*typetag.Tag) string) []Fragment {
	if s == nil {
		return nil
	}
	out := make([]Fragment, 0, len(s.Fields))
	for _, f := range s.Fields {
		key := f.Name
		if prefix != "" {
			key = prefix + "." + f.Name
		}
		frag := Fragment{Key: key, Depth: depth}
		if f.IsObject() {
			frag.Children = fragments(f.Object, key, depth+1, render)
		} else {
			frag.Text = render(f.Tag)
		}
		out = append(out, frag)
	}
	return out
}
