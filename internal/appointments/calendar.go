package appointments

import (
	"fmt"
	"strings"
	"time"

	"mediconnect-server/internal/models"
)

const icalStampLayout = "20060102T150405Z"

// ICalEvent renders a booked appointment as an iCalendar document for
// client download. Instants are converted from the clinic time zone to
// UTC; the event spans the fixed appointment duration.
func ICalEvent(appt *models.Appointment, provider *models.User, profile *models.ProviderProfile, loc *time.Location) (string, error) {
	start, err := appt.ScheduledAt(loc)
	if err != nil {
		return "", fmt.Errorf("combine appointment date and time: %w", err)
	}
	startUTC := start.UTC()
	endUTC := startUTC.Add(models.AppointmentDuration)

	providerName := ""
	if provider != nil {
		providerName = provider.FullName()
	}
	location := "TBD"
	if profile != nil && profile.OfficeAddress != "" {
		location = profile.OfficeAddress
	}

	description := fmt.Sprintf("Appointment Type: %s\\nReason: %s\\nProvider: %s",
		appt.AppointmentType, escapeICalText(appt.Reason), escapeICalText(providerName))

	lines := []string{
		"BEGIN:VCALENDAR",
		"VERSION:2.0",
		"BEGIN:VEVENT",
		"DTSTART:" + startUTC.Format(icalStampLayout),
		"DTEND:" + endUTC.Format(icalStampLayout),
		"SUMMARY:Medical Appointment - " + string(appt.AppointmentType),
		"DESCRIPTION:" + description,
		"LOCATION:" + escapeICalText(location),
		"STATUS:CONFIRMED",
		"END:VEVENT",
		"END:VCALENDAR",
	}
	return strings.Join(lines, "\r\n") + "\r\n", nil
}

// escapeICalText escapes the characters RFC 5545 reserves in text values.
func escapeICalText(s string) string {
	r := strings.NewReplacer(
		"\\", "\\\\",
		";", "\\;",
		",", "\\,",
		"\n", "\\n",
	)
	return r.Replace(s)
}
