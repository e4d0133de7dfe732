package schema

import (
	"fmt"
	"strings"
)

// DefaultMaxDepth is the deepest nesting level accepted by Validate. Top-level
// fields are depth 0.
const DefaultMaxDepth = 16

// Problem is one validation failure located by qualified key.
type Problem struct {
	Path    string `json:"path"`
	Message string `json:"message"`
}

func (p Problem) String() string {
	if p.Path == "" {
		return p.Message
	}
	return p.Path + ": " + p.Message
}

// ValidationError reports every problem found in a template input. It is the
// only error kind surfaced to callers as a client error.
type ValidationError struct {
	Problems []Problem
}

func (e *ValidationError) Error() string {
	msgs := make([]string, len(e.Problems))
	for i, p := range e.Problems {
		msgs[i] = p.String()
	}
	return "invalid template input: " + strings.Join(msgs, "; ")
}

// UnknownTypes reports whether any problem is an unrecognized type tag, the
// only kind lenient validation lets through.
func (e *ValidationError) UnknownTypes() bool {
	for _, p := range e.Problems {
		if strings.Contains(p.Message, "unknown type ") {
			return true
		}
	}
	return false
}

func invalid(path, msg string) *ValidationError {
	return &ValidationError{Problems: []Problem{{Path: path, Message: msg}}}
}

// Options tunes Validate.
type Options struct {
	// Strict rejects tags outside the enumeration. When false such fields are
	// accepted and render through the fallback.
	Strict   bool
	MaxDepth int
}

// DefaultOptions is strict with the default depth cap.
func DefaultOptions() Options {
	return Options{Strict: true, MaxDepth: DefaultMaxDepth}
}

// Validate checks the naming convention and every field of the schema. It
// returns nil or a *ValidationError.
func Validate(in *TemplateInput, opts Options) error {
	if opts.MaxDepth <= 0 {
		opts.MaxDepth = DefaultMaxDepth
	}
	var problems []Problem
	for _, msg := range in.NamingConvention.Problems() {
		problems = append(problems, Problem{Message: msg})
	}

	switch {
	case in.Schema == nil:
		problems = append(problems, Problem{Path: "schema", Message: "is required"})
	case len(in.Schema.Fields) == 0:
		problems = append(problems, Problem{Path: "schema", Message: "must declare at least one field"})
	default:
		_ = Walk(in.Schema, func(key string, depth int, f Field) error {
			if depth > opts.MaxDepth {
				// Only the first level past the cap is reported.
				if depth == opts.MaxDepth+1 {
					problems = append(problems, Problem{Path: key, Message: fmt.Sprintf("nesting deeper than %d levels", opts.MaxDepth)})
				}
				return nil
			}
			switch {
			case f.IsObject() && len(f.Object.Fields) == 0:
				problems = append(problems, Problem{Path: key, Message: "nested object has no fields"})
			case !f.IsObject() && opts.Strict:
				for _, msg := range f.Tag.Problems() {
					problems = append(problems, Problem{Path: key, Message: msg})
				}
			}
			return nil
		})
	}

	if len(problems) > 0 {
		return &ValidationError{Problems: problems}
	}
	return nil
}
