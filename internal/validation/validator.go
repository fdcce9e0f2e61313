// Package validation checks API request bodies with go-playground/validator
// and converts failures into domain validation errors.
//
// Book text limits live here, at the API boundary. Repositories accept
// whatever they are given.
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"

	"github.com/storyloom/storyloom-server/internal/domain"
	domainerrors "github.com/storyloom/storyloom-server/internal/errors"
)

// Book field limits, in characters.
const (
	MaxTitleLength  = 20
	MaxAuthorLength = 15
	MaxGenreLength  = 12
)

// Validator wraps go-playground/validator with domain error conversion.
type Validator struct {
	v *validator.Validate
}

// New creates a validator with the Storyloom tags registered:
//
//	tagcategory    one of the fixed book tag categories
//	slidecategory  a name usable as a slide category key
//	runes          maximum length counted in characters, e.g. runes=20
func New() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())

	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		switch name {
		case "":
			return fld.Name
		case "-":
			return ""
		}
		return name
	})

	// Registration only fails on an empty tag or nil func.
	_ = v.RegisterValidation("tagcategory", func(fl validator.FieldLevel) bool {
		_, ok := domain.ParseTagCategory(fl.Field().String())
		return ok
	})
	_ = v.RegisterValidation("slidecategory", func(fl validator.FieldLevel) bool {
		_, err := domain.NormalizeSlideCategory(fl.Field().String())
		return err == nil
	})
	_ = v.RegisterValidation("runes", func(fl validator.FieldLevel) bool {
		var limit int
		if _, err := fmt.Sscanf(fl.Param(), "%d", &limit); err != nil {
			return false
		}
		return utf8.RuneCountInString(fl.Field().String()) <= limit
	})

	return &Validator{v: v}
}

// Validate validates a struct and returns a domain error.
func (v *Validator) Validate(s any) error {
	if err := v.v.Struct(s); err != nil {
		return formatError(err)
	}
	return nil
}

// Var validates a single value against tag, reporting failures under field.
func (v *Validator) Var(field string, value any, tag string) error {
	err := v.v.Var(value, tag)
	if err == nil {
		return nil
	}
	var validationErrs validator.ValidationErrors
	if !errors.As(err, &validationErrs) {
		return err
	}
	return domainerrors.ValidationWithDetails("validation failed", map[string]string{
		field: friendlyMessage(validationErrs[0]),
	})
}

func formatError(err error) error {
	var validationErrs validator.ValidationErrors
	if !errors.As(err, &validationErrs) {
		return err
	}

	fieldErrors := make(map[string]string, len(validationErrs))
	for _, e := range validationErrs {
		fieldErrors[e.Field()] = friendlyMessage(e)
	}
	return domainerrors.ValidationWithDetails("validation failed", fieldErrors)
}

func friendlyMessage(e validator.FieldError) string {
	switch e.Tag() {
	case "required":
		return "is required"
	case "max", "runes":
		return fmt.Sprintf("must not exceed %s characters", e.Param())
	case "min":
		return fmt.Sprintf("must be at least %s characters", e.Param())
	case "oneof":
		return "must be one of: " + e.Param()
	case "gte":
		return "must be greater than or equal to " + e.Param()
	case "lte":
		return "must be less than or equal to " + e.Param()
	case "tagcategory":
		return "must be a known tag category"
	case "slidecategory":
		return "must be a letter or digit followed by letters, digits, '-' or '_'"
	default:
		return "is invalid"
	}
}
