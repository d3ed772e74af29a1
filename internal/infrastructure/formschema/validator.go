// Package formschema validates submitted form values by compiling each field
// definition into an OpenAPI schema.
package formschema

import (
	"errors"
	"fmt"
	"time"

	"github.com/getkin/kin-openapi/openapi3"

	"github.com/kirillkom/sanitary-filing/internal/core/domain"
	"github.com/kirillkom/sanitary-filing/internal/core/ports"
)

const (
	datePattern  = `^\d{4}-\d{2}-\d{2}$`
	emailPattern = `^[^@\s]+@[^@\s]+\.[^@\s]+$`
)

type Validator struct{}

var _ ports.FieldValidator = Validator{}

func New() Validator { return Validator{} }

func (Validator) ValidateField(field domain.FieldDefinition, value any) error {
	schema, err := Compile(field)
	if err != nil {
		return err
	}
	value = normalize(value)
	if err := schema.VisitJSON(value); err != nil {
		var schemaErr *openapi3.SchemaError
		if errors.As(err, &schemaErr) && schemaErr.Reason != "" {
			return errors.New(schemaErr.Reason)
		}
		return err
	}
	if field.Kind == domain.FieldDate {
		if _, err := time.Parse(time.DateOnly, value.(string)); err != nil {
			return fmt.Errorf("invalid date %q", value)
		}
	}
	return nil
}

// Compile translates the typed rule set into an openapi3.Schema.
func Compile(field domain.FieldDefinition) (*openapi3.Schema, error) {
	var schema *openapi3.Schema
	switch field.Kind {
	case domain.FieldText, domain.FieldTextArea:
		schema = openapi3.NewStringSchema()
	case domain.FieldNumber:
		schema = openapi3.NewFloat64Schema()
	case domain.FieldInteger:
		schema = openapi3.NewIntegerSchema()
	case domain.FieldBoolean:
		schema = openapi3.NewBoolSchema()
	case domain.FieldDate:
		schema = openapi3.NewStringSchema().WithPattern(datePattern)
	case domain.FieldEmail:
		schema = openapi3.NewStringSchema().WithPattern(emailPattern)
	case domain.FieldSelect:
		options := make([]any, 0, len(field.Rule.Options))
		for _, opt := range field.Rule.Options {
			options = append(options, opt)
		}
		schema = openapi3.NewStringSchema().WithEnum(options...)
	default:
		return nil, fmt.Errorf("unsupported field kind %q", field.Kind)
	}

	rule := field.Rule
	if rule.Min != nil {
		schema = schema.WithMin(*rule.Min)
	}
	if rule.Max != nil {
		schema = schema.WithMax(*rule.Max)
	}
	if rule.MinLength != nil {
		schema = schema.WithMinLength(int64(*rule.MinLength))
	}
	if rule.MaxLength != nil {
		schema = schema.WithMaxLength(int64(*rule.MaxLength))
	}
	if rule.Pattern != "" && field.Kind != domain.FieldDate && field.Kind != domain.FieldEmail {
		schema = schema.WithPattern(rule.Pattern)
	}
	return schema, nil
}

// normalize widens Go numeric types to float64, the type JSON decoding produces.
func normalize(v any) any {
	switch n := v.(type) {
	case int:
		return float64(n)
	case int32:
		return float64(n)
	case int64:
		return float64(n)
	case float32:
		return float64(n)
	}
	return v
}
