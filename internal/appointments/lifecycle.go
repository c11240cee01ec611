package appointments

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"mediconnect-server/internal/models"
)

// Identity is the authenticated caller as seen by the lifecycle core.
type Identity struct {
	UserID        string
	Role          models.Role
	EmailVerified bool
}

// NotificationKind classifies a lifecycle notification.
type NotificationKind string

const (
	NotifyConfirmation NotificationKind = "confirmation"
	NotifyReminder     NotificationKind = "reminder"
	NotifyCancellation NotificationKind = "cancellation"
	NotifyStatusUpdate NotificationKind = "status_update"
)

// Notifier delivers lifecycle notifications to the appointment's patient
// and provider. Delivery is best effort: implementations log individual
// failures and return an error only when nothing could be delivered, and
// callers must never let that error affect a committed state transition.
type Notifier interface {
	Notify(ctx context.Context, appt *models.Appointment, kind NotificationKind) error
}

// BookingInput carries a booking intent from a web handler.
type BookingInput struct {
	ProviderID      string
	Date            string
	Time            string
	Reason          string
	AppointmentType models.AppointmentType
}

const maxReasonLength = 500

// Service is the single authority governing appointment creation and
// status transitions. Every successful mutation emits exactly one
// notification.
type Service struct {
	repo         Repository
	availability *AvailabilityChecker
	notifier     Notifier
	loc          *time.Location
	logger       *zap.Logger
	now          func() time.Time
}

func NewService(repo Repository, availability *AvailabilityChecker, notifier Notifier, loc *time.Location, logger *zap.Logger) *Service {
	return &Service{
		repo:         repo,
		availability: availability,
		notifier:     notifier,
		loc:          loc,
		logger:       logger,
		now:          time.Now,
	}
}

// Book validates a booking intent against the availability rules and
// persists a new SCHEDULED appointment for the calling patient.
func (s *Service) Book(ctx context.Context, caller Identity, in BookingInput) (*models.Appointment, error) {
	if caller.Role != models.RolePatient || !caller.EmailVerified {
		return nil, ErrNotAuthorized
	}

	if strings.TrimSpace(in.Reason) == "" {
		return nil, &ValidationError{Field: "reason", Message: "is required"}
	}
	if len(in.Reason) > maxReasonLength {
		return nil, &ValidationError{Field: "reason", Message: fmt.Sprintf("must be at most %d characters", maxReasonLength)}
	}
	if in.AppointmentType == "" {
		in.AppointmentType = models.TypeConsultation
	} else if !in.AppointmentType.Valid() {
		return nil, &ValidationError{Field: "appointmentType", Message: "is not a valid appointment type"}
	}
	if _, err := time.ParseInLocation(models.DateLayout, in.Date, s.loc); err != nil {
		return nil, &ValidationError{Field: "date", Message: "must be formatted as " + models.DateLayout}
	}
	if _, err := time.ParseInLocation(models.TimeLayout, in.Time, s.loc); err != nil {
		return nil, &ValidationError{Field: "time", Message: "must be formatted as " + models.TimeLayout}
	}

	provider, err := s.repo.FindProvider(ctx, in.ProviderID)
	if err != nil {
		return nil, fmt.Errorf("look up provider: %w", err)
	}
	if provider == nil {
		return nil, &ValidationError{Field: "providerId", Message: "is not a known provider"}
	}

	decision, err := s.availability.Check(ctx, in.ProviderID, in.Date, in.Time)
	if err != nil {
		return nil, err
	}
	if !decision.Available {
		return nil, &SlotUnavailableError{Reason: decision.Reason}
	}

	active := true
	appt := &models.Appointment{
		PatientID:       caller.UserID,
		ProviderID:      provider.ID,
		Date:            in.Date,
		Time:            in.Time,
		Status:          models.StatusScheduled,
		AppointmentType: in.AppointmentType,
		Reason:          in.Reason,
		Active:          &active,
	}

	if err := s.repo.Create(ctx, appt); err != nil {
		// Includes the lost-race case where the slot filled between the
		// availability check and the insert.
		return nil, err
	}

	s.logger.Info("appointment booked",
		zap.String("appointment_id", appt.ID),
		zap.String("provider_id", appt.ProviderID),
		zap.String("date", appt.Date),
		zap.String("time", appt.Time))
	s.emit(ctx, appt, NotifyConfirmation)
	return appt, nil
}

// Cancel transitions a SCHEDULED, still-future appointment to CANCELLED.
// Only the appointment's patient or its assigned provider may cancel.
func (s *Service) Cancel(ctx context.Context, caller Identity, id string) (*models.Appointment, error) {
	appt, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !appt.IsParty(caller.UserID) {
		return nil, ErrNotAuthorized
	}
	if !appt.CanBeCancelled(s.now(), s.loc) {
		return nil, ErrNotCancellable
	}

	appt.Status = models.StatusCancelled
	appt.Active = nil
	if err := s.repo.Update(ctx, appt); err != nil {
		return nil, fmt.Errorf("cancel appointment: %w", err)
	}

	s.logger.Info("appointment cancelled",
		zap.String("appointment_id", appt.ID),
		zap.String("by", caller.UserID))
	s.emit(ctx, appt, NotifyCancellation)
	return appt, nil
}

// Complete marks a SCHEDULED appointment COMPLETED. Provider only.
func (s *Service) Complete(ctx context.Context, caller Identity, id string) (*models.Appointment, error) {
	return s.transition(ctx, caller, id, models.StatusCompleted)
}

// MarkNoShow marks a SCHEDULED appointment NO_SHOW. Provider only.
func (s *Service) MarkNoShow(ctx context.Context, caller Identity, id string) (*models.Appointment, error) {
	return s.transition(ctx, caller, id, models.StatusNoShow)
}

func (s *Service) transition(ctx context.Context, caller Identity, id string, target models.AppointmentStatus) (*models.Appointment, error) {
	appt, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if caller.UserID != appt.ProviderID {
		return nil, ErrNotAuthorized
	}
	if appt.Status != models.StatusScheduled {
		return nil, ErrInvalidTransition
	}

	appt.Status = target
	appt.Active = nil
	if err := s.repo.Update(ctx, appt); err != nil {
		return nil, fmt.Errorf("update appointment status: %w", err)
	}

	s.logger.Info("appointment status changed",
		zap.String("appointment_id", appt.ID),
		zap.String("status", string(target)))
	s.emit(ctx, appt, NotifyStatusUpdate)
	return appt, nil
}

// Get returns the appointment when the caller is one of its parties.
func (s *Service) Get(ctx context.Context, caller Identity, id string) (*models.Appointment, error) {
	appt, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !appt.IsParty(caller.UserID) {
		return nil, ErrNotAuthorized
	}
	return appt, nil
}

// ListForUser returns the caller's appointments: a patient sees their own
// bookings, a provider sees their schedule. Upcoming SCHEDULED
// appointments come first in chronological order, then past and
// concluded ones most recent first.
func (s *Service) ListForUser(ctx context.Context, caller Identity) ([]models.Appointment, error) {
	today := s.now().In(s.loc).Format(models.DateLayout)
	switch caller.Role {
	case models.RolePatient:
		return s.repo.FindByPatient(ctx, caller.UserID, today)
	case models.RoleProvider:
		return s.repo.FindByProvider(ctx, caller.UserID, today)
	default:
		return nil, ErrNotAuthorized
	}
}

// Calendar renders the appointment as an iCalendar document for the
// caller. Party-only, same as Get.
func (s *Service) Calendar(ctx context.Context, caller Identity, id string) (string, error) {
	appt, err := s.Get(ctx, caller, id)
	if err != nil {
		return "", err
	}

	provider, err := s.repo.FindProvider(ctx, appt.ProviderID)
	if err != nil {
		return "", fmt.Errorf("look up provider: %w", err)
	}
	profile, err := s.repo.FindProviderProfile(ctx, appt.ProviderID)
	if err != nil {
		return "", fmt.Errorf("look up provider profile: %w", err)
	}

	return ICalEvent(appt, provider, profile, s.loc)
}

func (s *Service) load(ctx context.Context, id string) (*models.Appointment, error) {
	appt, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load appointment: %w", err)
	}
	if appt == nil {
		return nil, ErrNotFound
	}
	return appt, nil
}

// emit delivers the lifecycle notification for a committed transition.
// Failures are logged and swallowed: they never roll back or fail the
// operation that triggered them.
func (s *Service) emit(ctx context.Context, appt *models.Appointment, kind NotificationKind) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.Notify(ctx, appt, kind); err != nil {
		s.logger.Warn("appointment notification failed",
			zap.String("appointment_id", appt.ID),
			zap.String("kind", string(kind)),
			zap.Error(err))
	}
}
