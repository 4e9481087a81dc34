package inventory

import (
	"errors"
	"fmt"
)

var (
	// ErrBusy rejects an operation started while another one is still running.
	ErrBusy = errors.New("inventory: another operation is in progress")
	// ErrNotConfirmed is returned when a delete was not confirmed by the operator.
	ErrNotConfirmed = errors.New("inventory: delete not confirmed")
	// ErrClosed is returned by operations on a closed console.
	ErrClosed = errors.New("inventory: console closed")
	// ErrUnknownEntry is returned when a working-set lookup misses.
	ErrUnknownEntry = errors.New("inventory: entry not in working set")
)

// ValidationError reports input rejected before the store was contacted.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "inventory: " + e.Message
	}
	return fmt.Sprintf("inventory: invalid %s: %s", e.Field, e.Message)
}

// IsValidation reports whether err is a ValidationError.
func IsValidation(err error) bool {
	var vErr *ValidationError
	return errors.As(err, &vErr)
}

func invalid(field, format string, args ...any) error {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}
