// Package typetag parses the BASE[#options] field type mini-language and maps
// each base type onto its persistence, interface, default-value and form-control
// renderings.
package typetag

import "strings"

// Kind is the closed set of base field types.
type Kind int

const (
	Unknown Kind = iota
	String
	Email
	Password
	Select
	DynamicSelect
	Image
	Images
	Description
	IntNumber
	FloatNumber
	Boolean
	Date
	Time
	DateRange
	TimeRange
	ColorPicker
	Phone
	URL
	RichText
	RadioButton
	Checkbox
	MultiCheckbox
	MultiOptions
	StringArray
	Autocomplete
	PureJSON
)

var kindNames = [...]string{
	Unknown:       "UNKNOWN",
	String:        "STRING",
	Email:         "EMAIL",
	Password:      "PASSWORD",
	Select:        "SELECT",
	DynamicSelect: "DYNAMICSELECT",
	Image:         "IMAGE",
	Images:        "IMAGES",
	Description:   "DESCRIPTION",
	IntNumber:     "INTNUMBER",
	FloatNumber:   "FLOATNUMBER",
	Boolean:       "BOOLEAN",
	Date:          "DATE",
	Time:          "TIME",
	DateRange:     "DATERANGE",
	TimeRange:     "TIMERANGE",
	ColorPicker:   "COLORPICKER",
	Phone:         "PHONE",
	URL:           "URL",
	RichText:      "RICHTEXT",
	RadioButton:   "RADIOBUTTON",
	Checkbox:      "CHECKBOX",
	MultiCheckbox: "MULTICHECKBOX",
	MultiOptions:  "MULTIOPTIONS",
	StringArray:   "STRINGARRAY",
	Autocomplete:  "AUTOCOMPLETE",
	PureJSON:      "PUREJSON",
}

var kindByName = func() map[string]Kind {
	m := make(map[string]Kind, len(kindNames))
	for k, name := range kindNames {
		if Kind(k) != Unknown {
			m[name] = Kind(k)
		}
	}
	return m
}()

func (k Kind) String() string {
	if k < 0 || int(k) >= len(kindNames) {
		return kindNames[Unknown]
	}
	return kindNames[k]
}

// ParseKind resolves a base type name case-insensitively. Names outside the
// enumeration yield Unknown.
func ParseKind(name string) Kind {
	return kindByName[strings.ToUpper(strings.TrimSpace(name))]
}

// Kinds returns every known kind in declaration order.
func Kinds() []Kind {
	out := make([]Kind, 0, len(kindNames)-1)
	for k := String; k <= PureJSON; k++ {
		out = append(out, k)
	}
	return out
}

// HasChoices reports whether the options segment is an enumerated choice list.
func (k Kind) HasChoices() bool {
	switch k {
	case Select, DynamicSelect, RadioButton, MultiCheckbox, MultiOptions, Autocomplete:
		return true
	}
	return false
}

// Multi reports whether the kind holds a list of choices.
func (k Kind) Multi() bool {
	return k == MultiCheckbox || k == MultiOptions
}

// Textual reports whether values of this kind are plain strings suitable for
// free-text search.
func (k Kind) Textual() bool {
	switch k {
	case String, Email, Description, Phone, URL, RichText, Select, DynamicSelect, RadioButton, Autocomplete:
		return true
	}
	return false
}
