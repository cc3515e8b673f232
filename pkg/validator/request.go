package validator

import (
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

// DateLayout is the stay date format used by LiteAPI
const DateLayout = "2006-01-02"

var (
	// ErrInvalidDate indicates a stay date is not YYYY-MM-DD
	ErrInvalidDate = errors.New("date must be in YYYY-MM-DD format")

	// ErrInvalidStay indicates checkout is not after checkin
	ErrInvalidStay = errors.New("checkout must be after checkin")
)

// ValidationError lists the failing fields of a request
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	names := make([]string, 0, len(e.Fields))
	for name := range e.Fields {
		names = append(names, name)
	}
	sort.Strings(names)

	parts := make([]string, 0, len(names))
	for _, name := range names {
		parts = append(parts, fmt.Sprintf("%s: %s", name, e.Fields[name]))
	}
	return "invalid request: " + strings.Join(parts, "; ")
}

// RequestValidator validates request structs tagged with `validate`
type RequestValidator struct {
	validate *validator.Validate
}

// NewRequestValidator creates a validator with the stay_date rule registered
func NewRequestValidator() *RequestValidator {
	v := validator.New(validator.WithRequiredStructEnabled())
	_ = v.RegisterValidation("stay_date", func(fl validator.FieldLevel) bool {
		_, err := time.Parse(DateLayout, fl.Field().String())
		return err == nil
	})
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "" || name == "-" {
			return field.Name
		}
		return name
	})
	return &RequestValidator{validate: v}
}

// Struct validates s and returns a *ValidationError describing every failing field
func (v *RequestValidator) Struct(s interface{}) error {
	err := v.validate.Struct(s)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return err
	}

	result := &ValidationError{Fields: make(map[string]string, len(fieldErrs))}
	for _, fe := range fieldErrs {
		result.Fields[fe.Namespace()] = describe(fe)
	}
	return result
}

// ValidateStay checks both dates parse and checkout is after checkin
func ValidateStay(checkin, checkout string) error {
	in, err := time.Parse(DateLayout, checkin)
	if err != nil {
		return ErrInvalidDate
	}
	out, err := time.Parse(DateLayout, checkout)
	if err != nil {
		return ErrInvalidDate
	}
	if !out.After(in) {
		return ErrInvalidStay
	}
	return nil
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email"
	case "stay_date":
		return ErrInvalidDate.Error()
	case "oneof":
		return "must be one of: " + fe.Param()
	case "url":
		return "must be a valid URL"
	default:
		if fe.Param() != "" {
			return fmt.Sprintf("failed %s=%s", fe.Tag(), fe.Param())
		}
		return "failed " + fe.Tag()
	}
}
