// Package validation validates configuration structs with validator/v10 and
// converts failures into coded validation errors.
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"slices"
	"strings"

	"github.com/go-playground/validator/v10"

	domainerrors "github.com/koloyyee/java-sorter/internal/errors"
)

// Validator wraps go-playground/validator with domain error conversion.
type Validator struct {
	v *validator.Validate
}

// New creates a validator that reports fields by their command-line flag
// name, taken from the `flag` struct tag.
func New() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())

	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := fld.Tag.Get("flag")
		if name == "" || name == "-" {
			return fld.Name
		}
		return name
	})

	return &Validator{v: v}
}

// Validate validates a struct and returns a domain validation error listing
// every offending field.
func (v *Validator) Validate(s any) error {
	if err := v.v.Struct(s); err != nil {
		return v.formatError(err)
	}
	return nil
}

// formatError converts validator errors to domain errors.
func (v *Validator) formatError(err error) error {
	var validationErrs validator.ValidationErrors
	if !errors.As(err, &validationErrs) {
		return domainerrors.Wrap(err, domainerrors.CodeValidation, "validation failed")
	}

	fieldErrors := make(map[string]string, len(validationErrs))
	for _, e := range validationErrs {
		fieldErrors[e.Field()] = v.friendlyMessage(e)
	}

	fields := make([]string, 0, len(fieldErrors))
	for field := range fieldErrors {
		fields = append(fields, field)
	}
	slices.Sort(fields)

	parts := make([]string, 0, len(fields))
	for _, field := range fields {
		parts = append(parts, field+" "+fieldErrors[field])
	}

	return domainerrors.ValidationWithDetails("invalid configuration: "+strings.Join(parts, "; "), fieldErrors)
}

func (v *Validator) friendlyMessage(e validator.FieldError) string {
	switch e.Tag() {
	case "required":
		return "is required"
	case "required_with":
		return "is required when " + strings.ToLower(e.Param()) + " is set"
	case "oneof":
		return "must be one of: " + e.Param()
	case "excludes":
		return fmt.Sprintf("must not contain %q", e.Param())
	case "ne":
		return fmt.Sprintf("must not be %q", e.Param())
	default:
		return "is invalid"
	}
}
