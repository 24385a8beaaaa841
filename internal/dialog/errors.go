package dialog

import (
	"errors"
	"fmt"

	"taskbot/internal/repositories"
)

var (
	// ErrInvalidEvent is returned for events that carry no user.
	ErrInvalidEvent = errors.New("event has no user id")

	// errDropped marks an event that matched a route but no longer applies,
	// e.g. a priority button for a task other than the one being edited.
	errDropped = errors.New("stale event")
)

// ValidationError is malformed user input. The user is told why, the state
// does not advance and collected fields are kept.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

func invalid(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}

// asValidation also maps the store's own input checks onto ValidationError.
func asValidation(err error) (*ValidationError, bool) {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve, true
	}
	switch {
	case errors.Is(err, repositories.ErrInvalidBody):
		return &ValidationError{Field: "text", Message: err.Error()}, true
	case errors.Is(err, repositories.ErrInvalidPriority):
		return &ValidationError{Field: "priority", Message: err.Error()}, true
	}
	return nil, false
}
