package notify

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"mediconnect-server/internal/appointments"
	"mediconnect-server/internal/models"
)

// UserStore resolves contact details for notification recipients.
type UserStore interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
}

// GormUserStore implements UserStore on the application database.
type GormUserStore struct {
	db *gorm.DB
}

func NewGormUserStore(db *gorm.DB) *GormUserStore {
	return &GormUserStore{db: db}
}

func (s *GormUserStore) FindByID(ctx context.Context, id string) (*models.User, error) {
	var user models.User
	err := s.db.WithContext(ctx).First(&user, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// Service delivers appointment lifecycle emails to the patient and the
// provider. Delivery is best effort: each failure is logged; an error is
// returned only when no recipient could be reached, and callers treat
// that as an observation, never as a reason to fail a state transition.
type Service struct {
	email  EmailSender
	users  UserStore
	loc    *time.Location
	logger *zap.Logger
}

func NewService(email EmailSender, users UserStore, loc *time.Location, logger *zap.Logger) *Service {
	return &Service{email: email, users: users, loc: loc, logger: logger}
}

// Notify implements appointments.Notifier.
func (s *Service) Notify(ctx context.Context, appt *models.Appointment, kind appointments.NotificationKind) error {
	patient, err := s.users.FindByID(ctx, appt.PatientID)
	if err != nil {
		return fmt.Errorf("look up patient: %w", err)
	}
	provider, err := s.users.FindByID(ctx, appt.ProviderID)
	if err != nil {
		return fmt.Errorf("look up provider: %w", err)
	}

	subject := s.subjectFor(kind, appt)
	body := s.bodyFor(kind, appt, patient, provider)

	attempted, delivered := 0, 0
	if patient != nil && patient.Email != "" {
		attempted++
		if s.send(ctx, patient.Email, patient.FullName(), subject, body, appt.ID) {
			delivered++
		}
	}
	if provider != nil && provider.Email != "" {
		attempted++
		if s.send(ctx, provider.Email, provider.FullName(), "Provider: "+subject, body, appt.ID) {
			delivered++
		}
	}

	if attempted == 0 {
		return fmt.Errorf("no recipients for appointment %s", appt.ID)
	}
	if delivered == 0 {
		return fmt.Errorf("all deliveries failed for appointment %s", appt.ID)
	}
	return nil
}

func (s *Service) send(ctx context.Context, to, name, subject, body, apptID string) bool {
	err := s.email.Send(ctx, EmailMessage{To: to, ToName: name, Subject: subject, Body: body})
	if err != nil {
		s.logger.Error("notification email failed",
			zap.String("to", to),
			zap.String("appointment_id", apptID),
			zap.Error(err))
		return false
	}
	return true
}

func (s *Service) subjectFor(kind appointments.NotificationKind, appt *models.Appointment) string {
	switch kind {
	case appointments.NotifyConfirmation:
		return "Appointment Confirmation"
	case appointments.NotifyReminder:
		return "Appointment Reminder"
	case appointments.NotifyCancellation:
		return "Appointment Cancellation"
	default:
		return "Appointment Status Update: " + string(appt.Status)
	}
}

func (s *Service) bodyFor(kind appointments.NotificationKind, appt *models.Appointment, patient, provider *models.User) string {
	patientName := "A patient"
	if patient != nil {
		patientName = patient.FullName()
	}
	providerName := "your provider"
	if provider != nil {
		providerName = provider.FullName()
	}

	when := appt.Date + " " + appt.Time
	if at, err := appt.ScheduledAt(s.loc); err == nil {
		when = at.Format("Monday, January 2, 2006 at 3:04 PM")
	}

	var lead string
	switch kind {
	case appointments.NotifyConfirmation:
		lead = "Your appointment has been booked."
	case appointments.NotifyReminder:
		lead = "This is a reminder for your upcoming appointment."
	case appointments.NotifyCancellation:
		lead = "The following appointment has been cancelled."
	default:
		lead = fmt.Sprintf("The status of the following appointment is now %s.", appt.Status)
	}

	return fmt.Sprintf(`%s

Patient: %s
Provider: %s
When: %s
Type: %s
Reason: %s

MediConnect
`, lead, patientName, providerName, when, appt.AppointmentType, appt.Reason)
}

// VerificationEmail builds the email-address verification message sent
// at registration.
func VerificationEmail(to, name, link string) EmailMessage {
	return EmailMessage{
		To:      to,
		ToName:  name,
		Subject: "Verify your MediConnect email address",
		Body: fmt.Sprintf(`Hello %s,

Please confirm your email address by opening the link below:

%s

If you did not create a MediConnect account, you can ignore this message.
`, name, link),
	}
}
