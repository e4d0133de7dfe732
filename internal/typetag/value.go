package typetag

import (
	"fmt"
	"math"
	"slices"
	"strings"
	"time"
)

// Zero returns the Go value stored for a field that is absent on create. It
// mirrors Default so documents written by the runtime look like documents
// written by the generated model.
func (t *Tag) Zero(now time.Time) any {
	switch t.Kind {
	case Select, RadioButton:
		return t.Choices[0]
	case ColorPicker:
		return "#000000"
	case IntNumber, FloatNumber:
		return float64(0)
	case Boolean, Checkbox:
		return false
	case Date:
		return now.UTC().Format(time.RFC3339)
	case MultiCheckbox, MultiOptions, Images, StringArray:
		return []any{}
	case PureJSON:
		return map[string]any{}
	case DateRange, TimeRange:
		return nil
	}
	return ""
}

// Coerce checks a decoded JSON value against the tag and returns its stored
// form. Strings are trimmed and emails lower-cased.
func (t *Tag) Coerce(v any) (any, error) {
	if v == nil {
		return nil, nil
	}
	switch t.Kind {
	case IntNumber:
		n, ok := v.(float64)
		if !ok || n != math.Trunc(n) {
			return nil, fmt.Errorf("%v is not an integer value", v)
		}
		return n, nil
	case FloatNumber:
		if _, ok := v.(float64); !ok {
			return nil, fmt.Errorf("%v is not a number", v)
		}
		return v, nil
	case Boolean, Checkbox:
		if _, ok := v.(bool); !ok {
			return nil, fmt.Errorf("%v is not a boolean", v)
		}
		return v, nil
	case Select, RadioButton:
		s, ok := v.(string)
		if !ok || !slices.Contains(t.Choices, s) {
			return nil, fmt.Errorf("%v is not a valid enum value", v)
		}
		return s, nil
	case MultiCheckbox, MultiOptions:
		items, ok := v.([]any)
		if !ok {
			return nil, fmt.Errorf("%v is not a list", v)
		}
		for _, item := range items {
			s, ok := item.(string)
			if !ok || !slices.Contains(t.Choices, s) {
				return nil, fmt.Errorf("%v is not a valid enum value", item)
			}
		}
		return items, nil
	case Email:
		s, ok := v.(string)
		if !ok {
			return nil, fmt.Errorf("%v is not a string", v)
		}
		return strings.ToLower(strings.TrimSpace(s)), nil
	case String, Phone, URL, Image, Time, Description, RichText, Autocomplete, DynamicSelect:
		s, ok := v.(string)
		if !ok {
			return nil, fmt.Errorf("%v is not a string", v)
		}
		return strings.TrimSpace(s), nil
	}
	return v, nil
}
