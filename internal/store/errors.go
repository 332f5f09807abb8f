package store

import (
	"errors"
	"fmt"
)

// ErrValidation marks caller-contract violations on insert. These are never
// retried and always surface to the caller.
var ErrValidation = errors.New("validation failed")

func validationError(field string) error {
	return fmt.Errorf("%w: %s is required", ErrValidation, field)
}

// IsValidation reports whether err is a caller-contract violation.
func IsValidation(err error) bool {
	return errors.Is(err, ErrValidation)
}
