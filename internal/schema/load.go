package schema

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	cueyaml "cuelang.org/go/encoding/yaml"

	"github.com/matthewbaird/dashgen/internal/typetag"
)

// Format names the source encoding of a template input.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
	FormatCUE  Format = "cue"
)

// FormatFromPath picks the format from a file extension, defaulting to JSON.
func FormatFromPath(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML
	case ".cue":
		return FormatCUE
	}
	return FormatJSON
}

// nestingLimit bounds decoding recursion regardless of the configured depth.
const nestingLimit = 64

// templateInputDef is the structural contract every input must satisfy.
const templateInputDef = `
#TemplateInput: {
	uid?:              string
	templateName?:     string
	schema:            {...}
	namingConvention?: {...}
	...
}
`

// Load compiles raw in the given format, checks it against the input shape,
// and builds the ordered schema tree. Every structural problem is reported in
// one *ValidationError.
func Load(raw []byte, format Format) (*TemplateInput, error) {
	ctx := cuecontext.New()

	data, err := compile(ctx, raw, format)
	if err != nil {
		return nil, invalid("", err.Error())
	}
	if data.IncompleteKind() != cue.StructKind {
		return nil, invalid("", "template input must be an object")
	}

	def := ctx.CompileString(templateInputDef).LookupPath(cue.ParsePath("#TemplateInput"))
	if err := def.Unify(data).Validate(cue.Concrete(true)); err != nil {
		return nil, invalid("", cueMessage(err))
	}

	in := &TemplateInput{}
	if v := data.LookupPath(cue.ParsePath("uid")); v.Exists() {
		in.UID, _ = v.String()
	}
	if v := data.LookupPath(cue.ParsePath("templateName")); v.Exists() {
		in.TemplateName, _ = v.String()
	}
	if v := data.LookupPath(cue.ParsePath("namingConvention")); v.Exists() {
		b, err := v.MarshalJSON()
		if err != nil {
			return nil, invalid("namingConvention", cueMessage(err))
		}
		if err := json.Unmarshal(b, &in.NamingConvention); err != nil {
			return nil, invalid("namingConvention", err.Error())
		}
	}

	sv := data.LookupPath(cue.ParsePath("schema"))
	if !sv.Exists() {
		return nil, invalid("schema", "is required")
	}
	var problems []Problem
	in.Schema = decodeSchema(sv, "", 0, &problems)
	if len(problems) > 0 {
		return nil, &ValidationError{Problems: problems}
	}
	return in, nil
}

func compile(ctx *cue.Context, raw []byte, format Format) (cue.Value, error) {
	switch format {
	case FormatYAML:
		f, err := cueyaml.Extract("input.yaml", raw)
		if err != nil {
			return cue.Value{}, err
		}
		v := ctx.BuildFile(f)
		return v, v.Err()
	case FormatCUE:
		v := ctx.CompileBytes(raw, cue.Filename("input.cue"))
		return v, v.Err()
	}
	if !json.Valid(raw) {
		return cue.Value{}, fmt.Errorf("malformed JSON")
	}
	v := ctx.CompileBytes(raw, cue.Filename("input.json"))
	return v, v.Err()
}

func decodeSchemaBytes(raw []byte) (*Schema, error) {
	if !json.Valid(raw) {
		return nil, invalid("", "malformed JSON")
	}
	v := cuecontext.New().CompileBytes(raw, cue.Filename("schema.json"))
	if v.Err() != nil {
		return nil, invalid("", cueMessage(v.Err()))
	}
	var problems []Problem
	s := decodeSchema(v, "", 0, &problems)
	if len(problems) > 0 {
		return nil, &ValidationError{Problems: problems}
	}
	return s, nil
}

// reservedTopLevel are the document keys the generated model and the runtime
// manage themselves.
var reservedTopLevel = map[string]bool{"_id": true, "__v": true, "createdAt": true, "updatedAt": true}

// reservedField reports whether name cannot be declared at the given depth.
func reservedField(name string, depth int) bool {
	return name == "__proto__" || (depth == 0 && reservedTopLevel[name])
}

// decodeSchema walks v in declaration order. Field values must be strings
// (type tags) or objects (nested schemas).
func decodeSchema(v cue.Value, prefix string, depth int, problems *[]Problem) *Schema {
	path := prefix
	if path == "" {
		path = "schema"
	}
	if v.IncompleteKind() != cue.StructKind {
		*problems = append(*problems, Problem{Path: path, Message: "must be an object"})
		return nil
	}
	if depth >= nestingLimit {
		*problems = append(*problems, Problem{Path: path, Message: fmt.Sprintf("nesting exceeds %d levels", nestingLimit)})
		return nil
	}
	iter, err := v.Fields()
	if err != nil {
		*problems = append(*problems, Problem{Path: path, Message: cueMessage(err)})
		return nil
	}
	s := &Schema{}
	for iter.Next() {
		name := iter.Selector().Unquoted()
		key := name
		if prefix != "" {
			key = prefix + "." + name
		}
		if !typetag.IsIdentifier(name) {
			*problems = append(*problems, Problem{Path: key, Message: "field name is not a valid identifier"})
			continue
		}
		if reservedField(name, depth) {
			*problems = append(*problems, Problem{Path: key, Message: "field name is reserved"})
			continue
		}
		fv := iter.Value()
		switch fv.IncompleteKind() {
		case cue.StringKind:
			raw, err := fv.String()
			if err != nil {
				*problems = append(*problems, Problem{Path: key, Message: cueMessage(err)})
				continue
			}
			s.Fields = append(s.Fields, Field{Name: name, Tag: typetag.Parse(raw)})
		case cue.StructKind:
			child := decodeSchema(fv, key, depth+1, problems)
			if child != nil {
				s.Fields = append(s.Fields, Field{Name: name, Object: child})
			}
		case cue.ListKind:
			*problems = append(*problems, Problem{Path: key, Message: "arrays are not supported; use STRINGARRAY"})
		default:
			*problems = append(*problems, Problem{Path: key, Message: fmt.Sprintf("expected a type tag string or an object, got %s", fv.IncompleteKind())})
		}
	}
	return s
}

func cueMessage(err error) string {
	errs := cueerrors.Errors(err)
	if len(errs) == 0 {
		return err.Error()
	}
	msgs := make([]string, 0, len(errs))
	for _, e := range errs {
		format, args := e.Msg()
		msg := fmt.Sprintf(format, args...)
		if p := e.Path(); len(p) > 0 {
			msg = strings.Join(p, ".") + ": " + msg
		}
		msgs = append(msgs, msg)
	}
	return strings.Join(msgs, "; ")
}
