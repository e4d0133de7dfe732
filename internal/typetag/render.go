package typetag

import (
	"fmt"
	"strings"
)

// ControlKind selects the form control a component template emits.
type ControlKind string

const (
	ControlInput         ControlKind = "input"
	ControlTextarea      ControlKind = "textarea"
	ControlSelect        ControlKind = "select"
	ControlAutocomplete  ControlKind = "autocomplete"
	ControlRadio         ControlKind = "radio"
	ControlCheckbox      ControlKind = "checkbox"
	ControlMultiCheckbox ControlKind = "multi-checkbox"
	ControlDate          ControlKind = "date"
	ControlDateRange     ControlKind = "date-range"
	ControlTimeRange     ControlKind = "time-range"
	ControlImages        ControlKind = "images"
	ControlJSON          ControlKind = "json"
	ControlStringArray   ControlKind = "string-array"
	ControlDisabled      ControlKind = "disabled"
)

// Control describes the UI binding of a field.
type Control struct {
	Kind        ControlKind
	InputType   string // HTML input type for ControlInput
	Numeric     bool
	Step        string
	Placeholder string
}

// Control returns the form-control descriptor for the tag.
func (t *Tag) Control() Control {
	switch t.Kind {
	case String:
		return Control{Kind: ControlInput, InputType: "text"}
	case Email:
		return Control{Kind: ControlInput, InputType: "email"}
	case Password:
		return Control{Kind: ControlInput, InputType: "password"}
	case Phone:
		return Control{Kind: ControlInput, InputType: "tel"}
	case URL, Image:
		return Control{Kind: ControlInput, InputType: "url", Placeholder: "https://"}
	case Time:
		return Control{Kind: ControlInput, InputType: "time"}
	case ColorPicker:
		return Control{Kind: ControlInput, InputType: "color"}
	case IntNumber:
		return Control{Kind: ControlInput, InputType: "number", Numeric: true, Step: "1"}
	case FloatNumber:
		return Control{Kind: ControlInput, InputType: "number", Numeric: true, Step: "any"}
	case Description, RichText:
		return Control{Kind: ControlTextarea}
	case Select, DynamicSelect:
		return Control{Kind: ControlSelect}
	case Autocomplete:
		return Control{Kind: ControlAutocomplete}
	case RadioButton:
		return Control{Kind: ControlRadio}
	case Boolean, Checkbox:
		return Control{Kind: ControlCheckbox}
	case MultiCheckbox, MultiOptions:
		return Control{Kind: ControlMultiCheckbox}
	case Date:
		return Control{Kind: ControlDate}
	case DateRange:
		return Control{Kind: ControlDateRange}
	case TimeRange:
		return Control{Kind: ControlTimeRange}
	case Images:
		return Control{Kind: ControlImages, Placeholder: "One URL per line"}
	case PureJSON:
		return Control{Kind: ControlJSON}
	case StringArray:
		return Control{Kind: ControlStringArray}
	}
	return Control{Kind: ControlDisabled, Placeholder: "Unsupported type: " + t.Base}
}

// Mongoose returns the Mongoose schema fragment for the tag.
func (t *Tag) Mongoose() string {
	switch t.Kind {
	case String, Phone, URL, Image, Time, Description, RichText, Autocomplete, DynamicSelect:
		return "{ type: String, trim: true }"
	case Password:
		return "{ type: String }"
	case ColorPicker:
		return "{ type: String, default: '#000000' }"
	case Email:
		return "{ type: String, trim: true, lowercase: true, unique: true, sparse: true }"
	case Select, RadioButton:
		return fmt.Sprintf("{ type: String, enum: %s, default: %s }", JSArray(t.Choices), JSString(t.Choices[0]))
	case MultiCheckbox, MultiOptions:
		return fmt.Sprintf("{ type: [{ type: String, enum: %s }], default: [] }", JSArray(t.Choices))
	case Images:
		return "{ type: [String], default: [] }"
	case IntNumber:
		return "{ type: Number, validate: { validator: Number.isInteger, message: '{VALUE} is not an integer value' } }"
	case FloatNumber:
		return "{ type: Number }"
	case Boolean, Checkbox:
		return "{ type: Boolean, default: false }"
	case Date:
		return "{ type: Date, default: Date.now }"
	case DateRange:
		return "{ start: { type: Date }, end: { type: Date } }"
	case TimeRange:
		return "{ start: { type: String }, end: { type: String } }"
	case PureJSON:
		return "{ type: Schema.Types.Mixed, default: {} }"
	case StringArray:
		parts := make([]string, 0, len(t.SubFields))
		for _, sf := range t.SubFields {
			parts = append(parts, PropKey(sf.Name)+": "+sf.Effective().Mongoose())
		}
		return "[{ " + strings.Join(parts, ", ") + " }]"
	}
	return "{ type: String }"
}

// TSType returns the TypeScript type of values of the tag.
func (t *Tag) TSType() string {
	switch t.Kind {
	case IntNumber, FloatNumber:
		return "number"
	case Boolean, Checkbox:
		return "boolean"
	case Date:
		return "Date"
	case DateRange:
		return "{ start: Date; end: Date }"
	case TimeRange:
		return "{ start: string; end: string }"
	case MultiCheckbox, MultiOptions, Images:
		return "string[]"
	case PureJSON:
		return "Record<string, unknown>"
	case StringArray:
		parts := make([]string, 0, len(t.SubFields))
		for _, sf := range t.SubFields {
			parts = append(parts, PropKey(sf.Name)+": "+sf.Effective().TSType())
		}
		return "{ " + strings.Join(parts, "; ") + " }[]"
	}
	return "string"
}

// Default returns the TypeScript default-value literal of the tag.
func (t *Tag) Default() string {
	switch t.Kind {
	case Select, RadioButton:
		return JSString(t.Choices[0])
	case ColorPicker:
		return "'#000000'"
	case IntNumber, FloatNumber:
		return "0"
	case Boolean, Checkbox:
		return "false"
	case Date:
		return "new Date()"
	case DateRange:
		return "{ start: new Date(), end: new Date() }"
	case TimeRange:
		return "{ start: '', end: '' }"
	case MultiCheckbox, MultiOptions, Images, StringArray:
		return "[]"
	case PureJSON:
		return "{}"
	}
	return "''"
}

// SubFieldDefaults returns the object literal appended when a new row is added
// to a STRINGARRAY field.
func (t *Tag) SubFieldDefaults() string {
	parts := make([]string, 0, len(t.SubFields))
	for _, sf := range t.SubFields {
		parts = append(parts, PropKey(sf.Name)+": "+sf.Effective().Default())
	}
	return "{ " + strings.Join(parts, ", ") + " }"
}

// JSString quotes s as a single-quoted JavaScript string literal.
func JSString(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `'`, `\'`, "\n", `\n`, "\r", `\r`, "\u2028", `\u2028`, "\u2029", `\u2029`)
	return "'" + r.Replace(s) + "'"
}

// JSArray renders ss as a JavaScript array of string literals.
func JSArray(ss []string) string {
	quoted := make([]string, len(ss))
	for i, s := range ss {
		quoted[i] = JSString(s)
	}
	return "[" + strings.Join(quoted, ", ") + "]"
}

// PropKey renders name as an object-literal key, quoting it when it is not a
// bare identifier.
func PropKey(name string) string {
	if IsIdentifier(name) {
		return name
	}
	return JSString(name)
}
