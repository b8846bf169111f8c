package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// Validate checks cfg against the struct validation tags and returns a
// ValidationError listing every failing field.
func Validate(cfg *Config) error {
	err := validate.Struct(cfg)
	if err == nil {
		return nil
	}

	var validationErrors validator.ValidationErrors
	if errors.As(err, &validationErrors) {
		return newValidationError(validationErrors)
	}
	return err
}

// ValidationError wraps validation failures with structured field errors.
type ValidationError struct {
	Errors []FieldError
}

// FieldError represents a validation error for a specific configuration key.
type FieldError struct {
	Field   string
	Message string
	Value   string
}

func newValidationError(errs validator.ValidationErrors) *ValidationError {
	fieldErrors := make([]FieldError, 0, len(errs))

	for _, err := range errs {
		field := keyPath(err.Namespace())
		fieldErrors = append(fieldErrors, FieldError{
			Field:   field,
			Message: errorMessage(field, err),
			Value:   fmt.Sprintf("%v", err.Value()),
		})
	}

	return &ValidationError{Errors: fieldErrors}
}

func (ve *ValidationError) Error() string {
	switch len(ve.Errors) {
	case 0:
		return "validation failed"
	case 1:
		return fmt.Sprintf("validation failed: %s", ve.Errors[0].Message)
	default:
		msgs := make([]string, len(ve.Errors))
		for i, fe := range ve.Errors {
			msgs[i] = fe.Message
		}
		return fmt.Sprintf("validation failed: %s", strings.Join(msgs, "; "))
	}
}

// keyPath converts a validator namespace like "Config.Connectivity.Probe.URL"
// into the configuration key "connectivity.probe.url".
func keyPath(namespace string) string {
	path := strings.TrimPrefix(namespace, "Config.")
	return strings.ToLower(path)
}

func errorMessage(field string, fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "gt":
		return fmt.Sprintf("%s must be greater than %s", field, fe.Param())
	case "url":
		return fmt.Sprintf("%s must be a valid URL", field)
	case "oneof":
		return fmt.Sprintf("%s must be one of [%s]", field, fe.Param())
	default:
		return fmt.Sprintf("%s failed validation", field)
	}
}
