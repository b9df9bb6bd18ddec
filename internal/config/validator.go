package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Validate validates the EngineConfig using struct tags and cross-field
// rules, returning actionable error messages.
func (c *EngineConfig) Validate() error {
	v := validator.New(validator.WithRequiredStructEnabled())

	if err := v.Struct(c); err != nil {
		return formatValidationErrors(err)
	}

	if err := c.validateCondLimits(); err != nil {
		return err
	}

	return nil
}

// validateCondLimits cross-checks the two conditional-evaluation limits:
// a max depth larger than the max distinct booleans can never be
// exercised, since a well-formed expression pushes at most one operand
// per referenced boolean.
func (c *EngineConfig) validateCondLimits() error {
	if c.Cond.MaxDepth > 0 && c.Cond.MaxBools > 0 && c.Cond.MaxDepth > c.Cond.MaxBools {
		return fmt.Errorf("cond.max_depth (%d) must not exceed cond.max_bools (%d)", c.Cond.MaxDepth, c.Cond.MaxBools)
	}
	return nil
}

// formatValidationErrors converts validator.ValidationErrors to
// user-friendly messages.
func formatValidationErrors(err error) error {
	var validationErrors validator.ValidationErrors
	if errors.As(err, &validationErrors) {
		var messages []string
		for _, e := range validationErrors {
			messages = append(messages, formatSingleValidationError(e))
		}
		return errors.New(strings.Join(messages, "; "))
	}
	return err
}

func formatSingleValidationError(e validator.FieldError) string {
	field := e.Namespace()
	tag := e.Tag()

	switch tag {
	case "min":
		return fmt.Sprintf("%s must be at least %s", field, e.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s", field, e.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, e.Param())
	case "hostname_port":
		return fmt.Sprintf("%s must be a valid host:port", field)
	default:
		return fmt.Sprintf("%s failed validation: %s", field, tag)
	}
}
