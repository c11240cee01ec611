package appointments

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mediconnect-server/internal/models"
)

func TestICalEvent(t *testing.T) {
	// Clinic two hours east of UTC; the exported stamps must be UTC.
	loc := time.FixedZone("CLINIC", 2*60*60)

	appt := &models.Appointment{
		Date:            "2030-06-01",
		Time:            "10:00",
		AppointmentType: models.TypeRoutine,
		Reason:          "Annual checkup",
	}
	provider := &models.User{FirstName: "Grace", LastName: "Hopper"}
	profile := &models.ProviderProfile{OfficeAddress: "12 Harbor St, Suite 3"}

	ical, err := ICalEvent(appt, provider, profile, loc)
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(ical, "BEGIN:VCALENDAR\r\n"))
	assert.Contains(t, ical, "DTSTART:20300601T080000Z")
	// End is exactly the fixed 30-minute duration later.
	assert.Contains(t, ical, "DTEND:20300601T083000Z")
	assert.Contains(t, ical, "SUMMARY:Medical Appointment - ROUTINE")
	assert.Contains(t, ical, "Reason: Annual checkup")
	assert.Contains(t, ical, "Provider: Grace Hopper")
	// Commas in text values are escaped per RFC 5545.
	assert.Contains(t, ical, "LOCATION:12 Harbor St\\, Suite 3")
	assert.Contains(t, ical, "STATUS:CONFIRMED")
	assert.Contains(t, ical, "END:VCALENDAR")
}

func TestICalEventFallbacks(t *testing.T) {
	appt := &models.Appointment{
		Date:            "2030-06-01",
		Time:            "10:00",
		AppointmentType: models.TypeConsultation,
		Reason:          "follow-up",
	}

	ical, err := ICalEvent(appt, nil, nil, time.UTC)
	require.NoError(t, err)
	assert.Contains(t, ical, "LOCATION:TBD")
	assert.Contains(t, ical, "DTSTART:20300601T100000Z")
}

func TestICalEventBadDate(t *testing.T) {
	appt := &models.Appointment{Date: "not-a-date", Time: "10:00"}
	_, err := ICalEvent(appt, nil, nil, time.UTC)
	require.Error(t, err)
}
