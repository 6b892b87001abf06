package service

import "errors"

var (
	// ErrValidation marks bad caller input.  Concrete failures are
	// *ValidationError values that match it with errors.Is.
	ErrValidation = errors.New("validation failed")
	// ErrServiceNotFound is returned when a booking names an unknown service.
	ErrServiceNotFound = errors.New("service not found")
	// ErrTransitionRejected means the guarded update matched no row: the
	// booking is missing, belongs to someone else or is in another state.
	ErrTransitionRejected = errors.New("booking not found or invalid transition")
	// ErrReviewNotAllowed is returned when the booking is not a completed
	// booking of the caller.
	ErrReviewNotAllowed = errors.New("booking not found or not completed")
	// ErrReviewExists is returned for a second review of the same booking.
	ErrReviewExists = errors.New("review already submitted for this booking")
)

// ValidationError carries a message that is safe to show to the caller.
type ValidationError struct{ Msg string }

func (e *ValidationError) Error() string { return e.Msg }

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

func invalid(msg string) error { return &ValidationError{Msg: msg} }
