// Package naming derives every identifier and output path of a generated
// module from the four entity name variants.
package naming

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"unicode"

	"github.com/go-playground/validator/v10"

	"github.com/matthewbaird/dashgen/internal/typetag"
)

// Legacy keys written by older editor payloads.
const (
	legacyPluralPascal   = "Users_1_000___"
	legacyPluralLower    = "users_2_000___"
	legacySingularPascal = "User_3_000___"
	legacySingularLower  = "user_4_000___"
	legacyGenerateFolder = "use_generate_folder"
)

// Convention holds the name variants of the generated entity.
type Convention struct {
	PluralPascal      string `json:"pluralPascal" validate:"required,jsident,pascal"`
	SingularPascal    string `json:"singularPascal" validate:"required,jsident,pascal"`
	PluralLower       string `json:"pluralLower" validate:"required,jsident,lowerfirst"`
	SingularLower     string `json:"singularLower" validate:"required,jsident,lowerfirst"`
	UseGenerateFolder bool   `json:"useGenerateFolder"`
}

// UnmarshalJSON accepts both the named keys and the legacy suffixed keys.
// Named keys win when both are present.
func (c *Convention) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("naming convention: %w", err)
	}
	pick := func(dst any, keys ...string) error {
		for _, k := range keys {
			if v, ok := raw[k]; ok {
				if err := json.Unmarshal(v, dst); err != nil {
					return fmt.Errorf("naming convention %s: %w", k, err)
				}
				return nil
			}
		}
		return nil
	}
	var out Convention
	for _, f := range []struct {
		dst  any
		keys []string
	}{
		{&out.PluralPascal, []string{"pluralPascal", legacyPluralPascal}},
		{&out.SingularPascal, []string{"singularPascal", legacySingularPascal}},
		{&out.PluralLower, []string{"pluralLower", legacyPluralLower}},
		{&out.SingularLower, []string{"singularLower", legacySingularLower}},
		{&out.UseGenerateFolder, []string{"useGenerateFolder", legacyGenerateFolder}},
	} {
		if err := pick(f.dst, f.keys...); err != nil {
			return err
		}
	}
	*c = out
	return nil
}

var validate = func() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string { return jsonName(f.Tag.Get("json")) })
	_ = v.RegisterValidation("jsident", func(fl validator.FieldLevel) bool {
		return typetag.IsIdentifier(fl.Field().String())
	})
	_ = v.RegisterValidation("pascal", func(fl validator.FieldLevel) bool {
		s := fl.Field().String()
		return s != "" && unicode.IsUpper(rune(s[0]))
	})
	_ = v.RegisterValidation("lowerfirst", func(fl validator.FieldLevel) bool {
		s := fl.Field().String()
		return s != "" && !unicode.IsUpper(rune(s[0]))
	})
	return v
}()

// Validate checks that all four names are usable identifiers.
func (c Convention) Validate() error {
	if problems := c.Problems(); len(problems) > 0 {
		return errors.New(strings.Join(problems, "; "))
	}
	return nil
}

// Problems lists every naming problem in field order.
func (c Convention) Problems() []string {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return []string{err.Error()}
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		switch fe.Tag() {
		case "required":
			msgs = append(msgs, fmt.Sprintf("namingConvention.%s is required", fe.Field()))
		case "jsident":
			msgs = append(msgs, fmt.Sprintf("namingConvention.%s %q is not a valid identifier", fe.Field(), fe.Value()))
		case "pascal":
			msgs = append(msgs, fmt.Sprintf("namingConvention.%s %q must start with an upper-case letter", fe.Field(), fe.Value()))
		case "lowerfirst":
			msgs = append(msgs, fmt.Sprintf("namingConvention.%s %q must start with a lower-case letter", fe.Field(), fe.Value()))
		default:
			msgs = append(msgs, fe.Error())
		}
	}
	return msgs
}

func jsonName(tag string) string {
	name, _, _ := strings.Cut(tag, ",")
	return name
}
