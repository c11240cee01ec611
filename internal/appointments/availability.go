package appointments

import (
	"context"
	"fmt"
	"time"

	"mediconnect-server/internal/models"
)

// Working hours window during which slots may be booked, in the clinic
// time zone. The upper bound is exclusive.
const (
	workdayOpenHour  = 9
	workdayCloseHour = 17
)

// SlotCounter counts SCHEDULED appointments occupying a slot.
type SlotCounter interface {
	CountScheduled(ctx context.Context, providerID, date, timeOfDay string) (int64, error)
}

// Decision is the outcome of an availability check.
type Decision struct {
	Available bool
	Reason    UnavailableReason
}

// AvailabilityChecker decides whether a candidate (provider, date, time)
// slot may be booked. It has no side effects; it only reads the current
// schedule through the injected SlotCounter. The decision is a fast path
// only: the storage layer's unique index remains the authority on
// double-booking.
type AvailabilityChecker struct {
	slots SlotCounter
	loc   *time.Location
	now   func() time.Time
}

func NewAvailabilityChecker(slots SlotCounter, loc *time.Location) *AvailabilityChecker {
	return &AvailabilityChecker{slots: slots, loc: loc, now: time.Now}
}

// Check evaluates the slot in order: past, working hours, occupancy.
func (c *AvailabilityChecker) Check(ctx context.Context, providerID, date, timeOfDay string) (Decision, error) {
	if _, err := time.ParseInLocation(models.DateLayout, date, c.loc); err != nil {
		return Decision{}, &ValidationError{Field: "date", Message: "must be formatted as " + models.DateLayout}
	}
	scheduledAt, err := time.ParseInLocation(models.DateLayout+" "+models.TimeLayout, date+" "+timeOfDay, c.loc)
	if err != nil {
		return Decision{}, &ValidationError{Field: "time", Message: "must be formatted as " + models.TimeLayout}
	}

	if !scheduledAt.After(c.now()) {
		return Decision{Reason: ReasonInPast}, nil
	}

	hour := scheduledAt.Hour()
	if hour < workdayOpenHour || hour >= workdayCloseHour {
		return Decision{Reason: ReasonOutsideWorkingHours}, nil
	}

	taken, err := c.slots.CountScheduled(ctx, providerID, date, timeOfDay)
	if err != nil {
		return Decision{}, fmt.Errorf("count scheduled appointments: %w", err)
	}
	if taken > 0 {
		return Decision{Reason: ReasonSlotTaken}, nil
	}

	return Decision{Available: true}, nil
}
