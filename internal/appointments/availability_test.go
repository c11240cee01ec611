package appointments

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubSlotCounter struct {
	count int64
	err   error
}

func (s *stubSlotCounter) CountScheduled(ctx context.Context, providerID, date, timeOfDay string) (int64, error) {
	return s.count, s.err
}

func TestAvailabilityCheck(t *testing.T) {
	now := time.Date(2030, 5, 31, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name      string
		date      string
		timeOfDay string
		taken     int64
		want      Decision
	}{
		{
			name: "free future slot", date: "2030-06-01", timeOfDay: "10:00",
			want: Decision{Available: true},
		},
		{
			name: "opening hour is bookable", date: "2030-06-01", timeOfDay: "09:00",
			want: Decision{Available: true},
		},
		{
			name: "last slot before close", date: "2030-06-01", timeOfDay: "16:30",
			want: Decision{Available: true},
		},
		{
			name: "past date", date: "2030-05-30", timeOfDay: "10:00",
			want: Decision{Reason: ReasonInPast},
		},
		{
			name: "same instant counts as past", date: "2030-05-31", timeOfDay: "12:00",
			want: Decision{Reason: ReasonInPast},
		},
		{
			name: "before opening", date: "2030-06-01", timeOfDay: "08:00",
			want: Decision{Reason: ReasonOutsideWorkingHours},
		},
		{
			name: "at closing hour", date: "2030-06-01", timeOfDay: "17:00",
			want: Decision{Reason: ReasonOutsideWorkingHours},
		},
		{
			name: "late evening", date: "2030-06-01", timeOfDay: "22:15",
			want: Decision{Reason: ReasonOutsideWorkingHours},
		},
		{
			name: "slot already booked", date: "2030-06-01", timeOfDay: "10:00", taken: 1,
			want: Decision{Reason: ReasonSlotTaken},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			checker := NewAvailabilityChecker(&stubSlotCounter{count: tt.taken}, time.UTC)
			checker.now = func() time.Time { return now }

			got, err := checker.Check(context.Background(), "provider-1", tt.date, tt.timeOfDay)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestAvailabilityCheckPastBeatsWorkingHours(t *testing.T) {
	// A past slot outside working hours reports in_past: the checks run
	// in order.
	checker := NewAvailabilityChecker(&stubSlotCounter{}, time.UTC)
	checker.now = func() time.Time { return time.Date(2030, 5, 31, 12, 0, 0, 0, time.UTC) }

	got, err := checker.Check(context.Background(), "provider-1", "2030-05-01", "06:00")
	require.NoError(t, err)
	assert.Equal(t, Decision{Reason: ReasonInPast}, got)
}

func TestAvailabilityCheckMalformedInput(t *testing.T) {
	checker := NewAvailabilityChecker(&stubSlotCounter{}, time.UTC)

	// The rejected field names the input that actually failed to parse.
	_, err := checker.Check(context.Background(), "provider-1", "june 1st", "10:00")
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "date", verr.Field)

	_, err = checker.Check(context.Background(), "provider-1", "2030-06-01", "10am")
	verr = nil
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "time", verr.Field)
}

func TestAvailabilityCheckCounterError(t *testing.T) {
	checker := NewAvailabilityChecker(&stubSlotCounter{err: errors.New("db down")}, time.UTC)
	checker.now = func() time.Time { return time.Date(2030, 5, 31, 12, 0, 0, 0, time.UTC) }

	_, err := checker.Check(context.Background(), "provider-1", "2030-06-01", "10:00")
	require.Error(t, err)
}
