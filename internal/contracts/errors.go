package contracts

import (
	"errors"
	"fmt"
)

// ErrNoSnapshot is returned when nothing has been collected yet
var ErrNoSnapshot = errors.New("no snapshot collected")

// ValidationError reports malformed input rejected before solving
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// NewValidationError builds a ValidationError with a formatted message
func NewValidationError(field, format string, args ...interface{}) *ValidationError {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}
