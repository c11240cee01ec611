package appointments

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"mediconnect-server/internal/models"
)

// Repository is the persistence contract of the appointment lifecycle.
type Repository interface {
	Create(ctx context.Context, appt *models.Appointment) error
	FindByID(ctx context.Context, id string) (*models.Appointment, error)
	Update(ctx context.Context, appt *models.Appointment) error
	CountScheduled(ctx context.Context, providerID, date, timeOfDay string) (int64, error)
	FindByPatient(ctx context.Context, patientID, today string) ([]models.Appointment, error)
	FindByProvider(ctx context.Context, providerID, today string) ([]models.Appointment, error)
	FindScheduledOn(ctx context.Context, date string) ([]models.Appointment, error)
	FindProvider(ctx context.Context, id string) (*models.User, error)
	FindProviderProfile(ctx context.Context, userID string) (*models.ProviderProfile, error)
}

// GormRepository implements Repository on a gorm database.
type GormRepository struct {
	db *gorm.DB
}

func NewGormRepository(db *gorm.DB) *GormRepository {
	return &GormRepository{db: db}
}

// Create inserts a new appointment. A violation of the scheduled-slot
// unique index is reported as SlotUnavailableError(slot_taken): two
// requests may both pass the availability check, only one insert wins.
func (r *GormRepository) Create(ctx context.Context, appt *models.Appointment) error {
	err := r.db.WithContext(ctx).Create(appt).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return &SlotUnavailableError{Reason: ReasonSlotTaken}
	}
	return err
}

func (r *GormRepository) FindByID(ctx context.Context, id string) (*models.Appointment, error) {
	var appt models.Appointment
	err := r.db.WithContext(ctx).First(&appt, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &appt, nil
}

func (r *GormRepository) Update(ctx context.Context, appt *models.Appointment) error {
	// Save writes all fields so a nil Active pointer clears the column
	// and frees the slot for rebooking.
	return r.db.WithContext(ctx).Save(appt).Error
}

func (r *GormRepository) CountScheduled(ctx context.Context, providerID, date, timeOfDay string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Appointment{}).
		Where("provider_id = ?", providerID).
		Where("date = ?", date).
		Where("time = ?", timeOfDay).
		Where("status = ?", models.StatusScheduled).
		Count(&count).Error
	return count, err
}

func (r *GormRepository) FindByPatient(ctx context.Context, patientID, today string) ([]models.Appointment, error) {
	return r.listForParty(ctx, "patient_id", patientID, today)
}

func (r *GormRepository) FindByProvider(ctx context.Context, providerID, today string) ([]models.Appointment, error) {
	return r.listForParty(ctx, "provider_id", providerID, today)
}

// listForParty returns the upcoming SCHEDULED appointments in
// chronological order, followed by past and concluded ones most recent
// first.
func (r *GormRepository) listForParty(ctx context.Context, column, id, today string) ([]models.Appointment, error) {
	var upcoming []models.Appointment
	err := r.db.WithContext(ctx).
		Where(column+" = ?", id).
		Where("status = ?", models.StatusScheduled).
		Where("date >= ?", today).
		Order("date asc, time asc").
		Find(&upcoming).Error
	if err != nil {
		return nil, err
	}

	var past []models.Appointment
	err = r.db.WithContext(ctx).
		Where(column+" = ?", id).
		Where("status <> ? OR date < ?", models.StatusScheduled, today).
		Order("date desc, time desc").
		Find(&past).Error
	if err != nil {
		return nil, err
	}

	return append(upcoming, past...), nil
}

// FindScheduledOn returns every SCHEDULED appointment on the given
// calendar date, used by the daily reminder job.
func (r *GormRepository) FindScheduledOn(ctx context.Context, date string) ([]models.Appointment, error) {
	var appts []models.Appointment
	err := r.db.WithContext(ctx).
		Where("date = ?", date).
		Where("status = ?", models.StatusScheduled).
		Order("time asc").
		Find(&appts).Error
	return appts, err
}

// FindProvider returns the user for id when that user is a provider,
// nil otherwise.
func (r *GormRepository) FindProvider(ctx context.Context, id string) (*models.User, error) {
	var user models.User
	err := r.db.WithContext(ctx).
		Where("id = ? AND role = ?", id, models.RoleProvider).
		First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *GormRepository) FindProviderProfile(ctx context.Context, userID string) (*models.ProviderProfile, error) {
	var profile models.ProviderProfile
	err := r.db.WithContext(ctx).First(&profile, "user_id = ?", userID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &profile, nil
}
