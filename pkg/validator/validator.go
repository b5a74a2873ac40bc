package validator

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"

	"github.com/croffers/journey-backend/internal/models"
	"github.com/go-playground/validator/v10"
)

// currencyRegex matches a three-letter ISO 4217 code in either case
var currencyRegex = regexp.MustCompile(`^[A-Za-z]{3}$`)

// Validator validates request DTOs by their `validate` tags. Field names in
// errors follow the JSON tags.
type Validator struct {
	validate *validator.Validate
}

// New creates a Validator with the journey-specific tags registered
func New() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())

	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return field.Name
		}
		return name
	})

	// registration only fails on an empty tag or nil func
	_ = v.RegisterValidation("currency", func(fl validator.FieldLevel) bool {
		return currencyRegex.MatchString(fl.Field().String())
	})
	_ = v.RegisterValidation("segment_type", func(fl validator.FieldLevel) bool {
		return models.SegmentType(fl.Field().String()).IsValid()
	})

	return &Validator{validate: v}
}

// Struct validates s and returns a *FieldErrors describing every failed field
func (v *Validator) Struct(s interface{}) error {
	err := v.validate.Struct(s)
	if err == nil {
		return nil
	}

	var validationErrs validator.ValidationErrors
	if !errors.As(err, &validationErrs) {
		return err
	}

	fields := make(map[string]string, len(validationErrs))
	for _, fe := range validationErrs {
		fields[fe.Field()] = message(fe)
	}
	return &FieldErrors{Fields: fields}
}

// FieldErrors maps JSON field names to a readable message
type FieldErrors struct {
	Fields map[string]string
}

func (e *FieldErrors) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for field, msg := range e.Fields {
		parts = append(parts, field+": "+msg)
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "uuid":
		return "must be a UUID"
	case "datetime":
		return fmt.Sprintf("must be a date in %s format", fe.Param())
	case "min":
		return "must be at least " + fe.Param()
	case "max":
		return "must be at most " + fe.Param()
	case "email":
		return "must be a valid email address"
	case "numeric":
		return "must be a number"
	case "currency":
		return "must be a 3-letter ISO currency code"
	case "segment_type":
		return "must be one of " + segmentTypeList()
	case "oneof":
		return "must be one of " + fe.Param()
	}
	return "failed " + fe.Tag() + " validation"
}

func segmentTypeList() string {
	names := make([]string, len(models.SegmentTypes))
	for i, t := range models.SegmentTypes {
		names[i] = string(t)
	}
	return strings.Join(names, ", ")
}
