package errors

import (
	"errors"
	"fmt"
)

// Common application errors
var (
	// ErrNotFound is used when a record or resource does not exist.
	ErrNotFound = errors.New("record not found")

	// ErrUnauthorized is used for authentication failures (bad token, bad credentials).
	ErrUnauthorized = errors.New("unauthorized")

	// ErrForbidden is used when the caller lacks the rights for the action.
	ErrForbidden = errors.New("forbidden")

	// ErrValidation is used for malformed or inconsistent input.
	ErrValidation = errors.New("validation failed")

	// ErrConflict is used for concurrent write collisions that survived internal retries.
	ErrConflict = errors.New("resource state conflict")

	// ErrIneligible is used when a business precondition is not met yet.
	ErrIneligible = errors.New("not eligible")
)

// IneligibleError reports how many training modules still block certification.
type IneligibleError struct {
	Remaining int
	Total     int
}

func (e *IneligibleError) Error() string {
	return fmt.Sprintf("%d of %d training modules remaining", e.Remaining, e.Total)
}

// Unwrap lets errors.Is(err, ErrIneligible) match.
func (e *IneligibleError) Unwrap() error {
	return ErrIneligible
}

// NewIneligibleError builds an IneligibleError.
func NewIneligibleError(remaining, total int) error {
	return &IneligibleError{Remaining: remaining, Total: total}
}
