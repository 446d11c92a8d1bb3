package validator

import (
	"fmt"

	"github.com/go-playground/validator/v10"
)

const (
	ErrDefaultInvalid = "is invalid"
	ErrRequired       = "is required"
	ErrMin            = "must be at least %s"
	ErrMax            = "must be at most %s"
)

func NewValidator() *validator.Validate {
	return validator.New(validator.WithRequiredStructEnabled())
}

// ValidationMessage converts validator errors into readable messages.
func ValidationMessage(err validator.FieldError) string {
	switch err.Tag() {
	case "required":
		return ErrRequired
	case "min", "gte":
		return fmt.Sprintf(ErrMin, err.Param())
	case "max", "lte":
		return fmt.Sprintf(ErrMax, err.Param())
	default:
		return ErrDefaultInvalid
	}
}
