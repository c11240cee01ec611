package models

import (
	"time"
)

// AppointmentStatus represents the status of an appointment
type AppointmentStatus string

const (
	StatusScheduled AppointmentStatus = "SCHEDULED"
	StatusCompleted AppointmentStatus = "COMPLETED"
	StatusCancelled AppointmentStatus = "CANCELLED"
	StatusNoShow    AppointmentStatus = "NO_SHOW"
)

// Terminal reports whether no further status transition is allowed.
func (s AppointmentStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusCancelled || s == StatusNoShow
}

// AppointmentType represents the kind of visit being booked
type AppointmentType string

const (
	TypeRoutine      AppointmentType = "ROUTINE"
	TypeFollowUp     AppointmentType = "FOLLOW_UP"
	TypeConsultation AppointmentType = "CONSULTATION"
	TypeEmergency    AppointmentType = "EMERGENCY"
)

// Valid reports whether t is one of the defined appointment types.
func (t AppointmentType) Valid() bool {
	switch t {
	case TypeRoutine, TypeFollowUp, TypeConsultation, TypeEmergency:
		return true
	}
	return false
}

// Layouts for the calendar date and time-of-day columns. Both are
// interpreted in the single configured clinic time zone.
const (
	DateLayout = "2006-01-02"
	TimeLayout = "15:04"
)

// AppointmentDuration is the fixed length of every visit.
const AppointmentDuration = 30 * time.Minute

// Appointment represents a scheduled medical appointment between a
// patient and a provider. Patient, provider and slot are immutable after
// creation; the lifecycle is soft, rows are never deleted.
type Appointment struct {
	BaseModel
	PatientID       string            `gorm:"size:36;index" json:"patientId"`
	ProviderID      string            `gorm:"size:36;index;uniqueIndex:uniq_provider_slot" json:"providerId"`
	Date            string            `gorm:"size:10;index;uniqueIndex:uniq_provider_slot" json:"date"`
	Time            string            `gorm:"size:5;uniqueIndex:uniq_provider_slot" json:"time"`
	Status          AppointmentStatus `gorm:"size:20;default:'SCHEDULED'" json:"status"`
	AppointmentType AppointmentType   `gorm:"size:20;default:'CONSULTATION'" json:"appointmentType"`
	Reason          string            `gorm:"size:500" json:"reason"`
	Notes           string            `gorm:"type:text" json:"notes"`

	// Active is non-NULL only while the appointment is SCHEDULED, so the
	// unique index admits at most one live booking per
	// (provider, date, time) slot while still allowing a cancelled slot
	// to be rebooked. The storage layer, not the availability check, is
	// the authority on double-booking.
	Active *bool `gorm:"uniqueIndex:uniq_provider_slot" json:"-"`

	// Relations
	Patient  User `gorm:"foreignKey:PatientID" json:"-"`
	Provider User `gorm:"foreignKey:ProviderID" json:"-"`
}

// ScheduledAt combines the date and time-of-day columns into a single
// instant in the given clinic time zone.
func (a *Appointment) ScheduledAt(loc *time.Location) (time.Time, error) {
	return time.ParseInLocation(DateLayout+" "+TimeLayout, a.Date+" "+a.Time, loc)
}

// IsUpcoming reports whether the appointment lies strictly in the future.
func (a *Appointment) IsUpcoming(now time.Time, loc *time.Location) bool {
	at, err := a.ScheduledAt(loc)
	if err != nil {
		return false
	}
	return at.After(now)
}

// CanBeCancelled reports whether the appointment may still be cancelled:
// it must be SCHEDULED and its slot must not have passed.
func (a *Appointment) CanBeCancelled(now time.Time, loc *time.Location) bool {
	return a.Status == StatusScheduled && a.IsUpcoming(now, loc)
}

// IsParty reports whether userID is the patient or the assigned provider.
func (a *Appointment) IsParty(userID string) bool {
	return userID != "" && (userID == a.PatientID || userID == a.ProviderID)
}
