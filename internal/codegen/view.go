package codegen

import (
	"fmt"
	"strings"

	"github.com/matthewbaird/dashgen/internal/naming"
	"github.com/matthewbaird/dashgen/internal/schema"
	"github.com/matthewbaird/dashgen/internal/typetag"
)

// maxColumns caps the scalar fields shown in the generated table.
const maxColumns = 5

// ModuleView is the typed view model every artifact template renders from.
type ModuleView struct {
	UID          string
	TemplateName string
	ID           naming.Identifiers
	Layout       naming.Layout

	Fields     []*FieldView // top-level fields, objects included
	Leaves     []*FieldView
	Searchable []*FieldView
	Unique     []*FieldView
	Choices    []*FieldView // leaves backed by an options constant
	BulkFields []*FieldView
	Columns    []*FieldView
	Title      *FieldView // leaf used to name a record in dialogs

	OptionVars []string
}

// ColSpan is the column count of the generated table.
func (m *ModuleView) ColSpan() int { return len(m.Columns) + 2 }

// SliceImport is the "@/" import specifier of the API slice module.
func (m *ModuleView) SliceImport() string {
	return "@/" + strings.TrimSuffix(strings.TrimPrefix(m.Layout.SliceFile, "src/"), ".ts")
}

// FieldView is one schema entry prepared for the templates.
type FieldView struct {
	Name   string
	Key    string // dotted path from the root
	Label  string
	Depth  int
	Indent string
	Tag    *typetag.Tag
	Object []*FieldView

	Control    typetag.Control
	Mongoose   string
	TSType     string
	Default    string
	OptionsVar string
	PathArray  string // JS array literal of the path segments
	Access     string // property access relative to the record variable
	DomID      string
	SubFields  []SubFieldView
	NewRow     string
}

// IsObject reports whether the field is a nested mapping.
func (f *FieldView) IsObject() bool { return f.Tag == nil }

// SubFieldView is one column of a STRINGARRAY row.
type SubFieldView struct {
	Name      string
	Label     string
	Access    string // access on the row variable "item"
	InputType string
	Numeric   bool
	Checkbox  bool
}

// NewModuleView builds the view model for in. The input is expected to have
// passed schema loading; unknown tags are carried through to the fallback
// renderings.
func NewModuleView(in *schema.TemplateInput) *ModuleView {
	nc := in.NamingConvention
	m := &ModuleView{
		UID:          in.UID,
		TemplateName: in.TemplateName,
		ID:           nc.Identifiers(),
		Layout:       nc.Layout(),
	}
	m.Fields = buildFields(in.Schema, nil, 0)

	seenVars := make(map[string]int)
	var collect func([]*FieldView)
	collect = func(fields []*FieldView) {
		for _, f := range fields {
			if f.IsObject() {
				collect(f.Object)
				continue
			}
			m.Leaves = append(m.Leaves, f)
			if f.Tag.Kind.Textual() {
				m.Searchable = append(m.Searchable, f)
			}
			if f.Tag.Kind == typetag.Email {
				m.Unique = append(m.Unique, f)
			}
			if f.OptionsVar != "" {
				if n := seenVars[f.OptionsVar]; n > 0 {
					seenVars[f.OptionsVar] = n + 1
					f.OptionsVar = fmt.Sprintf("%s%d", f.OptionsVar, n+1)
				} else {
					seenVars[f.OptionsVar] = 1
				}
				m.Choices = append(m.Choices, f)
				m.OptionVars = append(m.OptionVars, f.OptionsVar)
			}
		}
	}
	collect(m.Fields)

	for _, f := range m.Fields {
		if f.IsObject() {
			continue
		}
		switch f.Tag.Kind {
		case typetag.Select, typetag.RadioButton, typetag.Boolean, typetag.Checkbox, typetag.DynamicSelect:
			m.BulkFields = append(m.BulkFields, f)
		}
		if len(m.Columns) < maxColumns && columnKind(f.Tag.Kind) {
			m.Columns = append(m.Columns, f)
		}
	}
	for _, f := range m.Leaves {
		if f.Tag.Kind.Textual() && f.Tag.Kind != typetag.Description && f.Tag.Kind != typetag.RichText {
			m.Title = f
			break
		}
	}
	return m
}

func columnKind(k typetag.Kind) bool {
	switch k {
	case typetag.PureJSON, typetag.StringArray, typetag.RichText, typetag.Description,
		typetag.Password, typetag.Images, typetag.DateRange, typetag.TimeRange:
		return false
	}
	return true
}

func buildFields(s *schema.Schema, parent []string, depth int) []*FieldView {
	if s == nil {
		return nil
	}
	out := make([]*FieldView, 0, len(s.Fields))
	for _, f := range s.Fields {
		path := append(append([]string(nil), parent...), f.Name)
		fv := &FieldView{
			Name:      f.Name,
			Key:       strings.Join(path, "."),
			Label:     naming.ToLabel(f.Name),
			Depth:     depth,
			Indent:    strings.Repeat("  ", depth),
			PathArray: typetag.JSArray(path),
			Access:    strings.Join(path, "?."),
			DomID:     strings.Join(path, "-"),
		}
		if fv.Label == "" {
			fv.Label = f.Name
		}
		if f.IsObject() {
			fv.Object = buildFields(f.Object, path, depth+1)
			out = append(out, fv)
			continue
		}
		t := f.Tag
		fv.Tag = t
		fv.Control = t.Control()
		fv.Mongoose = t.Mongoose()
		fv.TSType = t.TSType()
		fv.Default = t.Default()
		if t.Kind.HasChoices() {
			fv.OptionsVar = naming.ToCamel(strings.Join(path, "_")) + "Options"
		}
		if t.Kind == typetag.StringArray {
			fv.NewRow = t.SubFieldDefaults()
			for _, sf := range t.SubFields {
				eff := sf.Effective()
				ctl := eff.Control()
				sv := SubFieldView{
					Name:      sf.Name,
					Label:     naming.ToLabel(sf.Name),
					Access:    "item[" + typetag.JSString(sf.Name) + "]",
					InputType: ctl.InputType,
					Numeric:   ctl.Numeric,
					Checkbox:  ctl.Kind == typetag.ControlCheckbox,
				}
				if sv.InputType == "" {
					sv.InputType = "text"
				}
				if sv.Label == "" {
					sv.Label = sf.Name
				}
				fv.SubFields = append(fv.SubFields, sv)
			}
		}
		out = append(out, fv)
	}
	return out
}
