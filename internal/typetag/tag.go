package typetag

import (
	"fmt"
	"regexp"
	"strings"
)

// DefaultChoices seeds choice-bearing kinds declared without options so the
// generated select controls always have something to render.
var DefaultChoices = []string{"Option 1", "Option 2", "Option 3"}

// defaultSubFields is used when a STRINGARRAY carries no options.
const defaultSubFields = "Name"

var identRe = regexp.MustCompile(`^[A-Za-z_$][A-Za-z0-9_$]*$`)

// IsIdentifier reports whether s can be used as a bare JS property name.
func IsIdentifier(s string) bool { return identRe.MatchString(s) }

// Tag is a parsed TypeTag.
type Tag struct {
	Raw       string
	Base      string // upper-cased base name as written
	Kind      Kind
	Options   string // raw options segment, empty when absent
	Choices   []string
	SubFields []SubField
}

// SubField is one name[:type] entry of a STRINGARRAY tag.
type SubField struct {
	Name string
	Tag  *Tag
}

// Effective returns the tag used when rendering the sub-field. Nested arrays
// and unknown types render as STRING.
func (s SubField) Effective() *Tag {
	if s.Tag.Kind == Unknown || s.Tag.Kind == StringArray {
		return Parse("STRING")
	}
	return s.Tag
}

// Parse splits raw on the first '#' and decodes the options segment according
// to the base kind. It never fails: unknown bases yield Kind Unknown.
func Parse(raw string) *Tag {
	base, opts, _ := strings.Cut(raw, "#")
	t := &Tag{
		Raw:     raw,
		Base:    strings.ToUpper(strings.TrimSpace(base)),
		Options: strings.TrimSpace(opts),
	}
	t.Kind = ParseKind(t.Base)

	switch {
	case t.Kind.HasChoices():
		t.Choices = splitList(t.Options)
		if len(t.Choices) == 0 {
			t.Choices = append([]string(nil), DefaultChoices...)
		}
	case t.Kind == StringArray:
		decl := t.Options
		if len(splitList(decl)) == 0 {
			decl = defaultSubFields
		}
		for _, entry := range splitList(decl) {
			name, typ, ok := strings.Cut(entry, ":")
			name = strings.TrimSpace(name)
			typ = strings.TrimSpace(typ)
			if !ok || typ == "" {
				typ = "STRING"
			}
			t.SubFields = append(t.SubFields, SubField{Name: name, Tag: Parse(typ)})
		}
	}
	return t
}

// String returns the canonical form of the tag: the upper-cased base followed
// by the options segment, if any.
func (t *Tag) String() string {
	if t.Options == "" {
		return t.Base
	}
	return t.Base + "#" + t.Options
}

// Known reports whether the base type is in the enumeration.
func (t *Tag) Known() bool { return t.Kind != Unknown }

// Problems lists everything strict validation rejects about the tag.
func (t *Tag) Problems() []string {
	var out []string
	if t.Kind == Unknown {
		if t.Base == "" {
			out = append(out, "empty type tag")
		} else {
			out = append(out, fmt.Sprintf("unknown type %q", t.Base))
		}
		return out
	}
	seen := make(map[string]bool, len(t.SubFields))
	for _, sf := range t.SubFields {
		switch {
		case !IsIdentifier(sf.Name):
			out = append(out, fmt.Sprintf("invalid sub-field name %q", sf.Name))
		case seen[sf.Name]:
			out = append(out, fmt.Sprintf("duplicate sub-field %q", sf.Name))
		}
		seen[sf.Name] = true
		switch sf.Tag.Kind {
		case Unknown:
			out = append(out, fmt.Sprintf("sub-field %q: unknown type %q", sf.Name, sf.Tag.Base))
		case StringArray:
			out = append(out, fmt.Sprintf("sub-field %q: STRINGARRAY cannot nest", sf.Name))
		}
	}
	return out
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
