package diary

import (
	"errors"
	"fmt"
)

var (
	// ErrNameExists is returned when a section name is already taken.
	ErrNameExists = errors.New("section name already exists")
	// ErrSectionNotFound is returned when a named section is not in the list.
	ErrSectionNotFound = errors.New("section not found")
	// ErrIndexOutOfRange is returned when an item index is outside the list bounds.
	ErrIndexOutOfRange = errors.New("item index out of range")
)

// ValidationError represents a validation error with a field name.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error on field %s: %s", e.Field, e.Message)
}

// WrapError wraps an error with additional context.
func WrapError(err error, msg string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", msg, err)
}
