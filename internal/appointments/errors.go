package appointments

import (
	"errors"
	"fmt"
)

// UnavailableReason identifies why a slot was rejected by the
// availability check or by the storage-level uniqueness constraint.
type UnavailableReason string

const (
	ReasonInPast              UnavailableReason = "in_past"
	ReasonOutsideWorkingHours UnavailableReason = "outside_working_hours"
	ReasonSlotTaken           UnavailableReason = "slot_taken"
)

// ValidationError reports malformed or missing booking input. No state
// is mutated when it is returned.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

// SlotUnavailableError reports that a requested slot may not be booked,
// carrying the specific reason.
type SlotUnavailableError struct {
	Reason UnavailableReason
}

func (e *SlotUnavailableError) Error() string {
	return "slot unavailable: " + string(e.Reason)
}

var (
	// ErrNotFound is returned when no appointment exists for the given id.
	ErrNotFound = errors.New("appointment not found")

	// ErrNotAuthorized is returned when the caller is not permitted to
	// perform the operation. It deliberately carries no appointment detail.
	ErrNotAuthorized = errors.New("not authorized")

	// ErrNotCancellable is returned when an appointment is no longer
	// SCHEDULED or its slot has already passed.
	ErrNotCancellable = errors.New("appointment cannot be cancelled")

	// ErrInvalidTransition is returned for status transitions out of a
	// terminal state.
	ErrInvalidTransition = errors.New("invalid status transition")
)
