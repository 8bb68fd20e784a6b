package transit

import (
	"errors"
	"fmt"
)

// Matches every IntegrityError under errors.Is.
var ErrDataIntegrity = errors.New("data integrity")

// Raised when the transit datasets disagree with each other, or a
// record lacks a required field.
type IntegrityError struct {
	// "line", "stop" or "route"
	Kind   string
	ID     string
	Reason string
}

func (e *IntegrityError) Error() string {
	return fmt.Sprintf("data integrity: %s '%s': %s", e.Kind, e.ID, e.Reason)
}

func (e *IntegrityError) Is(target error) bool {
	return target == ErrDataIntegrity
}

func integrityf(kind, id, format string, args ...interface{}) error {
	return &IntegrityError{
		Kind:   kind,
		ID:     id,
		Reason: fmt.Sprintf(format, args...),
	}
}
