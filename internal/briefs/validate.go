package briefs

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	mustRegister(v, "entity_stage", func(fl validator.FieldLevel) bool {
		return Stage(fl.Field().String()).validEntity()
	})
	mustRegister(v, "tag_stage", func(fl validator.FieldLevel) bool {
		return Stage(fl.Field().String()).validTag()
	})
	mustRegister(v, "category", func(fl validator.FieldLevel) bool {
		return Category(fl.Field().String()).valid()
	})
	return v
}

func mustRegister(v *validator.Validate, tag string, fn validator.Func) {
	if err := v.RegisterValidation(tag, fn); err != nil {
		panic(fmt.Sprintf("briefs: register %s: %v", tag, err))
	}
}

// Parse decodes payload and validates it against BriefSchema. Any failure,
// including a payload that is not JSON at all, is returned as *SchemaError.
func Parse(payload []byte) (Brief, error) {
	trimmed := bytes.TrimSpace(payload)
	if len(trimmed) == 0 {
		return Brief{}, &SchemaError{Violations: []string{"payload: empty output"}}
	}

	dec := json.NewDecoder(bytes.NewReader(trimmed))
	dec.UseNumber()
	var generic any
	if err := dec.Decode(&generic); err != nil {
		return Brief{}, &SchemaError{Violations: []string{"payload: invalid JSON: " + err.Error()}}
	}
	if err := dec.Decode(new(any)); !errors.Is(err, io.EOF) {
		return Brief{}, &SchemaError{Violations: []string{"payload: unexpected data after JSON value"}}
	}

	var violations []string
	checkObject("", generic, briefShape, &violations)
	if len(violations) > 0 {
		return Brief{}, &SchemaError{Violations: violations}
	}

	var brief Brief
	if err := json.Unmarshal(trimmed, &brief); err != nil {
		return Brief{}, &SchemaError{Violations: []string{"payload: " + err.Error()}}
	}
	if err := brief.Validate(); err != nil {
		return Brief{}, err
	}
	return brief, nil
}

// Validate checks cardinality and enumeration constraints.
func (b *Brief) Validate() error {
	if b == nil {
		return &SchemaError{Violations: []string{"payload: brief is nil"}}
	}
	err := validate.Struct(b)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return &SchemaError{Violations: []string{err.Error()}}
	}
	violations := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		violations = append(violations, describe(fe))
	}
	return &SchemaError{Violations: violations}
}

func describe(fe validator.FieldError) string {
	path := fe.Namespace()
	if idx := strings.Index(path, "."); idx >= 0 {
		path = path[idx+1:]
	}
	switch fe.Tag() {
	case "len":
		n := 0
		if v := reflect.ValueOf(fe.Value()); v.Kind() == reflect.Slice {
			n = v.Len()
		}
		return fmt.Sprintf("%s: must contain exactly %s items, got %d", path, fe.Param(), n)
	case "entity_stage":
		return fmt.Sprintf("%s: must be one of %s, got %q", path, joinStages(EntityStages), fe.Value())
	case "tag_stage":
		return fmt.Sprintf("%s: must be one of %s, got %q", path, joinStages(TagStages), fe.Value())
	case "category":
		return fmt.Sprintf("%s: must be one of %s, got %q", path, joinCategories(Categories), fe.Value())
	default:
		return fmt.Sprintf("%s: failed %s", path, fe.Tag())
	}
}

func joinStages(stages []Stage) string {
	parts := make([]string, len(stages))
	for i, s := range stages {
		parts[i] = string(s)
	}
	return strings.Join(parts, ", ")
}

func joinCategories(categories []Category) string {
	parts := make([]string, len(categories))
	for i, c := range categories {
		parts[i] = string(c)
	}
	return strings.Join(parts, ", ")
}
