package schema

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matthewbaird/dashgen/internal/typetag"
)

const postsInput = `{
	"schema": {"title": "STRING", "age": "INTNUMBER"},
	"namingConvention": {"Users_1_000___": "Posts", "users_2_000___": "posts", "User_3_000___": "Post", "user_4_000___": "post"}
}`

func loadExample(t *testing.T, name string) *TemplateInput {
	t.Helper()
	raw, err := os.ReadFile(filepath.Join("..", "..", "examples", "templates", name))
	require.NoError(t, err)
	in, err := Load(raw, FormatJSON)
	require.NoError(t, err)
	return in
}

func fieldNames(s *Schema) []string {
	var names []string
	for _, f := range s.Fields {
		names = append(names, f.Name)
	}
	return names
}

func TestLoad_PostsScenario(t *testing.T) {
	in, err := Load([]byte(postsInput), FormatJSON)
	require.NoError(t, err)
	require.NoError(t, Validate(in, DefaultOptions()))

	assert.Equal(t, []string{"title", "age"}, fieldNames(in.Schema))
	assert.Equal(t, typetag.IntNumber, in.Schema.Fields[1].Tag.Kind)
	assert.Equal(t, "Posts", in.NamingConvention.PluralPascal)
	assert.Equal(t, "post", in.NamingConvention.SingularLower)
}

func TestLoad_PreservesInsertionOrder(t *testing.T) {
	raw := `{"schema": {"zeta": "STRING", "alpha": {"omega": "DATE", "beta": "BOOLEAN", "mu": {"z": "URL", "a": "PHONE"}}, "middle": "EMAIL"}}`
	in, err := Load([]byte(raw), FormatJSON)
	require.NoError(t, err)

	var keys []string
	require.NoError(t, Walk(in.Schema, func(key string, _ int, _ Field) error {
		keys = append(keys, key)
		return nil
	}))
	assert.Equal(t, []string{"zeta", "alpha", "alpha.omega", "alpha.beta", "alpha.mu", "alpha.mu.z", "alpha.mu.a", "middle"}, keys)

	var leaves []string
	for _, l := range Flatten(in.Schema) {
		leaves = append(leaves, l.Key)
	}
	assert.Equal(t, []string{"zeta", "alpha.omega", "alpha.beta", "alpha.mu.z", "alpha.mu.a", "middle"}, leaves)
}

func TestLoad_YAMLAndCUE(t *testing.T) {
	yamlSrc := `
templateName: Notes
schema:
  body: RICHTEXT
  meta:
    pinned: BOOLEAN
    color: COLORPICKER
namingConvention:
  pluralPascal: Notes
  singularPascal: Note
  pluralLower: notes
  singularLower: note
`
	in, err := Load([]byte(yamlSrc), FormatYAML)
	require.NoError(t, err)
	assert.Equal(t, "Notes", in.TemplateName)
	assert.Equal(t, []string{"body", "meta"}, fieldNames(in.Schema))
	assert.Equal(t, []string{"pinned", "color"}, fieldNames(in.Schema.Fields[1].Object))

	cueSrc := `
schema: {
	name:  "STRING"
	price: "FLOATNUMBER"
}
namingConvention: {
	pluralPascal:   "Products"
	singularPascal: "Product"
	pluralLower:    "products"
	singularLower:  "product"
}
`
	in, err = Load([]byte(cueSrc), FormatCUE)
	require.NoError(t, err)
	assert.Equal(t, []string{"name", "price"}, fieldNames(in.Schema))
	require.NoError(t, Validate(in, DefaultOptions()))
}

func TestLoad_Rejections(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{"malformed", `{"schema": `, "malformed JSON"},
		{"not an object", `[1,2]`, "must be an object"},
		{"missing schema", `{"namingConvention": {}}`, "schema: is required"},
		{"schema is string", `{"schema": "STRING"}`, "invalid template input"},
		{"array value", `{"schema": {"tags": ["a"]}}`, "tags: arrays are not supported"},
		{"number value", `{"schema": {"n": 5}}`, "n: expected a type tag string or an object"},
		{"bad name", `{"schema": {"first name": "STRING"}}`, "first name: field name is not a valid identifier"},
		{"reserved id", `{"schema": {"_id": "STRING", "title": "STRING"}}`, "_id: field name is reserved"},
		{"reserved timestamp", `{"schema": {"title": "STRING", "createdAt": "DATE"}}`, "createdAt: field name is reserved"},
		{"reserved version", `{"schema": {"__v": "INTNUMBER"}}`, "__v: field name is reserved"},
		{"nested proto", `{"schema": {"meta": {"__proto__": "STRING"}}}`, "meta.__proto__: field name is reserved"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load([]byte(tt.raw), FormatJSON)
			var verr *ValidationError
			require.True(t, errors.As(err, &verr), "got %v", err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLoad_TimestampNamesAllowedWhenNested(t *testing.T) {
	in, err := Load([]byte(`{"schema": {"audit": {"createdAt": "DATE", "_id": "STRING"}}}`), FormatJSON)
	require.NoError(t, err)
	assert.Equal(t, []string{"audit"}, fieldNames(in.Schema))
}

func TestValidate_StrictRejectsUnknownTags(t *testing.T) {
	raw := `{"schema": {"a": "STRING", "b": "WIDGET", "c": {"d": "STRINGARRAY#x:STRINGARRAY"}},
		"namingConvention": {"pluralPascal": "Items", "singularPascal": "Item", "pluralLower": "items", "singularLower": "item"}}`
	in, err := Load([]byte(raw), FormatJSON)
	require.NoError(t, err)

	err = Validate(in, DefaultOptions())
	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	require.Len(t, verr.Problems, 2)
	assert.Equal(t, "b", verr.Problems[0].Path)
	assert.Equal(t, "c.d", verr.Problems[1].Path)
	assert.True(t, verr.UnknownTypes())
	assert.False(t, invalid("schema", "is required").UnknownTypes())

	lenient := DefaultOptions()
	lenient.Strict = false
	assert.NoError(t, Validate(in, lenient))
}

func TestValidate_NamingConvention(t *testing.T) {
	in, err := Load([]byte(`{"schema": {"a": "STRING"}, "namingConvention": {"pluralPascal": "Items"}}`), FormatJSON)
	require.NoError(t, err)
	err = Validate(in, DefaultOptions())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "singularPascal is required")
}

func TestValidate_DepthCap(t *testing.T) {
	var b strings.Builder
	depth := 5
	for i := 0; i < depth; i++ {
		b.WriteString(`{"n":`)
	}
	b.WriteString(`"STRING"`)
	for i := 0; i < depth; i++ {
		b.WriteString(`}`)
	}
	raw := `{"schema": ` + b.String() + `, "namingConvention": {"pluralPascal": "Items", "singularPascal": "Item", "pluralLower": "items", "singularLower": "item"}}`
	in, err := Load([]byte(raw), FormatJSON)
	require.NoError(t, err)

	require.NoError(t, Validate(in, Options{Strict: true, MaxDepth: 4}))

	err = Validate(in, Options{Strict: true, MaxDepth: 3})
	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	require.Len(t, verr.Problems, 1)
	assert.Equal(t, "n.n.n.n.n", verr.Problems[0].Path)
}

func TestValidate_EmptySchema(t *testing.T) {
	in, err := Load([]byte(`{"schema": {}, "namingConvention": {"pluralPascal": "Items", "singularPascal": "Item", "pluralLower": "items", "singularLower": "item"}}`), FormatJSON)
	require.NoError(t, err)
	assert.ErrorContains(t, Validate(in, DefaultOptions()), "at least one field")
}

func TestFormat_RoundTrip(t *testing.T) {
	for _, name := range []string{"finance.json", "page-builder.json"} {
		t.Run(name, func(t *testing.T) {
			in := loadExample(t, name)
			out, err := FormatInput(in)
			require.NoError(t, err)

			back, err := Load(out, FormatJSON)
			require.NoError(t, err)
			assert.Equal(t, in, back)

			again, err := FormatInput(back)
			require.NoError(t, err)
			assert.Equal(t, string(out), string(again))
		})
	}
}

func TestTemplateInput_JSONUnmarshal(t *testing.T) {
	var in TemplateInput
	require.NoError(t, json.Unmarshal([]byte(postsInput), &in))
	assert.Equal(t, []string{"title", "age"}, fieldNames(in.Schema))

	var s Schema
	require.NoError(t, json.Unmarshal([]byte(`{"b": "STRING", "a": "DATE"}`), &s))
	assert.Equal(t, []string{"b", "a"}, fieldNames(&s))
}

func TestExamples_Validate(t *testing.T) {
	finance := loadExample(t, "finance.json")
	require.NoError(t, Validate(finance, DefaultOptions()))
	assert.False(t, finance.NamingConvention.UseGenerateFolder)

	sections := loadExample(t, "page-builder.json")
	require.NoError(t, Validate(sections, DefaultOptions()))
	assert.True(t, sections.NamingConvention.UseGenerateFolder)
	assert.Equal(t, "Sections", sections.NamingConvention.PluralPascal)
}

func TestEnsureUID(t *testing.T) {
	in := &TemplateInput{}
	in.EnsureUID()
	assert.Len(t, in.UID, 36)
	uid := in.UID
	in.EnsureUID()
	assert.Equal(t, uid, in.UID)
}

func TestFragments(t *testing.T) {
	in, err := Load([]byte(`{"schema": {"a": "BOOLEAN", "o": {"b": "INTNUMBER"}}}`), FormatJSON)
	require.NoError(t, err)
	frags := Fragments(in.Schema, (*typetag.Tag).TSType)
	require.Len(t, frags, 2)
	assert.Equal(t, "boolean", frags[0].Text)
	require.Len(t, frags[1].Children, 1)
	assert.Equal(t, "o.b", frags[1].Children[0].Key)
	assert.Equal(t, "number", frags[1].Children[0].Text)
}
