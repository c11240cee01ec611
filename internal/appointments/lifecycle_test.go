package appointments

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"mediconnect-server/internal/models"
)

// testNow is the fixed clock used across lifecycle tests.
var testNow = time.Date(2030, 5, 31, 12, 0, 0, 0, time.UTC)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{TranslateError: true})
	require.NoError(t, err)

	// A single connection keeps every query on the same in-memory database.
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(&models.User{}, &models.ProviderProfile{}, &models.Appointment{}))
	return db
}

type notifiedEvent struct {
	appointmentID string
	kind          NotificationKind
}

// recordingNotifier captures emitted notifications; failAll or failIDs
// simulate delivery failures.
type recordingNotifier struct {
	events  []notifiedEvent
	failAll bool
	failIDs map[string]bool
}

func (n *recordingNotifier) Notify(ctx context.Context, appt *models.Appointment, kind NotificationKind) error {
	if n.failAll || n.failIDs[appt.ID] {
		return fmt.Errorf("delivery failed for %s", appt.ID)
	}
	n.events = append(n.events, notifiedEvent{appointmentID: appt.ID, kind: kind})
	return nil
}

func newTestService(t *testing.T) (*Service, *GormRepository, *recordingNotifier, *gorm.DB) {
	t.Helper()

	db := newTestDB(t)
	repo := NewGormRepository(db)
	notifier := &recordingNotifier{}

	checker := NewAvailabilityChecker(repo, time.UTC)
	checker.now = func() time.Time { return testNow }

	svc := NewService(repo, checker, notifier, time.UTC, zap.NewNop())
	svc.now = func() time.Time { return testNow }

	return svc, repo, notifier, db
}

func createUser(t *testing.T, db *gorm.DB, role models.Role, email string) *models.User {
	t.Helper()

	user := &models.User{
		Email:         email,
		FirstName:     "Test",
		LastName:      "User",
		Role:          role,
		EmailVerified: true,
	}
	require.NoError(t, user.SetPassword("password123"))
	require.NoError(t, db.Create(user).Error)
	return user
}

func identityOf(u *models.User) Identity {
	return Identity{UserID: u.ID, Role: u.Role, EmailVerified: u.EmailVerified}
}

func validBooking(providerID string) BookingInput {
	return BookingInput{
		ProviderID:      providerID,
		Date:            "2030-06-01",
		Time:            "10:00",
		Reason:          "checkup",
		AppointmentType: models.TypeRoutine,
	}
}

func TestBookRoundTrip(t *testing.T) {
	svc, repo, notifier, db := newTestService(t)
	patient := createUser(t, db, models.RolePatient, "patient@example.com")
	provider := createUser(t, db, models.RoleProvider, "provider@example.com")

	appt, err := svc.Book(context.Background(), identityOf(patient), validBooking(provider.ID))
	require.NoError(t, err)
	require.NotEmpty(t, appt.ID)
	assert.Equal(t, models.StatusScheduled, appt.Status)
	assert.Equal(t, patient.ID, appt.PatientID)

	// Reading it back returns the same slot, reason and status.
	stored, err := repo.FindByID(context.Background(), appt.ID)
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, models.StatusScheduled, stored.Status)
	assert.Equal(t, provider.ID, stored.ProviderID)
	assert.Equal(t, "2030-06-01", stored.Date)
	assert.Equal(t, "10:00", stored.Time)
	assert.Equal(t, "checkup", stored.Reason)

	require.Len(t, notifier.events, 1)
	assert.Equal(t, notifiedEvent{appointmentID: appt.ID, kind: NotifyConfirmation}, notifier.events[0])
}

func TestBookDefaultsToConsultation(t *testing.T) {
	svc, _, _, db := newTestService(t)
	patient := createUser(t, db, models.RolePatient, "patient@example.com")
	provider := createUser(t, db, models.RoleProvider, "provider@example.com")

	in := validBooking(provider.ID)
	in.AppointmentType = ""
	appt, err := svc.Book(context.Background(), identityOf(patient), in)
	require.NoError(t, err)
	assert.Equal(t, models.TypeConsultation, appt.AppointmentType)
}

func TestBookValidation(t *testing.T) {
	svc, _, notifier, db := newTestService(t)
	patient := createUser(t, db, models.RolePatient, "patient@example.com")
	provider := createUser(t, db, models.RoleProvider, "provider@example.com")

	tests := []struct {
		name      string
		mutate    func(*BookingInput)
		wantField string
	}{
		{"empty reason", func(in *BookingInput) { in.Reason = "   " }, "reason"},
		{"overlong reason", func(in *BookingInput) { in.Reason = strings.Repeat("x", 501) }, "reason"},
		{"bad date", func(in *BookingInput) { in.Date = "june 1st" }, "date"},
		{"bad time", func(in *BookingInput) { in.Time = "10am" }, "time"},
		{"bad type", func(in *BookingInput) { in.AppointmentType = "WALK_IN" }, "appointmentType"},
		{"unknown provider", func(in *BookingInput) { in.ProviderID = "nope" }, "providerId"},
		{"patient as provider", func(in *BookingInput) { in.ProviderID = patient.ID }, "providerId"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := validBooking(provider.ID)
			tt.mutate(&in)

			_, err := svc.Book(context.Background(), identityOf(patient), in)
			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tt.wantField, verr.Field)
		})
	}

	// No mutation happened, so nothing was emitted.
	assert.Empty(t, notifier.events)
}

func TestBookAuthorization(t *testing.T) {
	svc, _, _, db := newTestService(t)
	provider := createUser(t, db, models.RoleProvider, "provider@example.com")
	patient := createUser(t, db, models.RolePatient, "patient@example.com")

	// Providers do not book appointments for themselves.
	_, err := svc.Book(context.Background(), identityOf(provider), validBooking(provider.ID))
	assert.ErrorIs(t, err, ErrNotAuthorized)

	// An unverified patient may not book.
	unverified := identityOf(patient)
	unverified.EmailVerified = false
	_, err = svc.Book(context.Background(), unverified, validBooking(provider.ID))
	assert.ErrorIs(t, err, ErrNotAuthorized)
}

func TestBookSlotRules(t *testing.T) {
	svc, _, _, db := newTestService(t)
	patient := createUser(t, db, models.RolePatient, "patient@example.com")
	provider := createUser(t, db, models.RoleProvider, "provider@example.com")
	other := createUser(t, db, models.RoleProvider, "other@example.com")

	book := func(in BookingInput) error {
		_, err := svc.Book(context.Background(), identityOf(patient), in)
		return err
	}
	reasonOf := func(err error) UnavailableReason {
		var serr *SlotUnavailableError
		require.ErrorAs(t, err, &serr)
		return serr.Reason
	}

	// First booking wins the slot.
	require.NoError(t, book(validBooking(provider.ID)))

	// Same provider, date and time is taken.
	assert.Equal(t, ReasonSlotTaken, reasonOf(book(validBooking(provider.ID))))

	// A different provider's identical slot is free.
	require.NoError(t, book(validBooking(other.ID)))

	in := validBooking(provider.ID)
	in.Time = "08:00"
	assert.Equal(t, ReasonOutsideWorkingHours, reasonOf(book(in)))

	in = validBooking(provider.ID)
	in.Date = "2030-05-30"
	assert.Equal(t, ReasonInPast, reasonOf(book(in)))
}

func TestSlotConstraintIndependentOfCheck(t *testing.T) {
	// Two requests may both pass the availability check; the unique index
	// must still reject the second insert.
	_, repo, _, db := newTestService(t)
	patient := createUser(t, db, models.RolePatient, "patient@example.com")
	provider := createUser(t, db, models.RoleProvider, "provider@example.com")

	mk := func() *models.Appointment {
		a := true
		return &models.Appointment{
			PatientID:       patient.ID,
			ProviderID:      provider.ID,
			Date:            "2030-06-01",
			Time:            "10:00",
			Status:          models.StatusScheduled,
			AppointmentType: models.TypeRoutine,
			Reason:          "checkup",
			Active:          &a,
		}
	}

	require.NoError(t, repo.Create(context.Background(), mk()))

	err := repo.Create(context.Background(), mk())
	var serr *SlotUnavailableError
	require.ErrorAs(t, err, &serr)
	assert.Equal(t, ReasonSlotTaken, serr.Reason)
}

func TestCancel(t *testing.T) {
	svc, repo, notifier, db := newTestService(t)
	patient := createUser(t, db, models.RolePatient, "patient@example.com")
	provider := createUser(t, db, models.RoleProvider, "provider@example.com")
	stranger := createUser(t, db, models.RolePatient, "stranger@example.com")

	appt, err := svc.Book(context.Background(), identityOf(patient), validBooking(provider.ID))
	require.NoError(t, err)

	// A third party may not cancel.
	_, err = svc.Cancel(context.Background(), identityOf(stranger), appt.ID)
	assert.ErrorIs(t, err, ErrNotAuthorized)

	// The patient may.
	cancelled, err := svc.Cancel(context.Background(), identityOf(patient), appt.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCancelled, cancelled.Status)

	stored, err := repo.FindByID(context.Background(), appt.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCancelled, stored.Status)
	assert.Nil(t, stored.Active)

	// Cancelling twice fails: the state is terminal.
	_, err = svc.Cancel(context.Background(), identityOf(patient), appt.ID)
	assert.ErrorIs(t, err, ErrNotCancellable)

	require.Len(t, notifier.events, 2)
	assert.Equal(t, NotifyCancellation, notifier.events[1].kind)
}

func TestCancelByAssignedProvider(t *testing.T) {
	svc, _, _, db := newTestService(t)
	patient := createUser(t, db, models.RolePatient, "patient@example.com")
	provider := createUser(t, db, models.RoleProvider, "provider@example.com")

	appt, err := svc.Book(context.Background(), identityOf(patient), validBooking(provider.ID))
	require.NoError(t, err)

	cancelled, err := svc.Cancel(context.Background(), identityOf(provider), appt.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCancelled, cancelled.Status)
}

func TestCancelPastAppointment(t *testing.T) {
	svc, repo, _, db := newTestService(t)
	patient := createUser(t, db, models.RolePatient, "patient@example.com")
	provider := createUser(t, db, models.RoleProvider, "provider@example.com")

	active := true
	appt := &models.Appointment{
		PatientID:       patient.ID,
		ProviderID:      provider.ID,
		Date:            "2030-05-30", // before the test clock
		Time:            "10:00",
		Status:          models.StatusScheduled,
		AppointmentType: models.TypeRoutine,
		Reason:          "checkup",
		Active:          &active,
	}
	require.NoError(t, repo.Create(context.Background(), appt))

	_, err := svc.Cancel(context.Background(), identityOf(patient), appt.ID)
	assert.ErrorIs(t, err, ErrNotCancellable)
}

func TestRebookAfterCancelFreesSlot(t *testing.T) {
	svc, _, _, db := newTestService(t)
	patient := createUser(t, db, models.RolePatient, "patient@example.com")
	provider := createUser(t, db, models.RoleProvider, "provider@example.com")

	appt, err := svc.Book(context.Background(), identityOf(patient), validBooking(provider.ID))
	require.NoError(t, err)
	_, err = svc.Cancel(context.Background(), identityOf(patient), appt.ID)
	require.NoError(t, err)

	rebooked, err := svc.Book(context.Background(), identityOf(patient), validBooking(provider.ID))
	require.NoError(t, err)
	assert.NotEqual(t, appt.ID, rebooked.ID)
	assert.Equal(t, models.StatusScheduled, rebooked.Status)
}

func TestCompleteAndNoShow(t *testing.T) {
	svc, _, notifier, db := newTestService(t)
	patient := createUser(t, db, models.RolePatient, "patient@example.com")
	provider := createUser(t, db, models.RoleProvider, "provider@example.com")

	appt, err := svc.Book(context.Background(), identityOf(patient), validBooking(provider.ID))
	require.NoError(t, err)

	// Patients cannot mark completion.
	_, err = svc.Complete(context.Background(), identityOf(patient), appt.ID)
	assert.ErrorIs(t, err, ErrNotAuthorized)

	done, err := svc.Complete(context.Background(), identityOf(provider), appt.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCompleted, done.Status)
	assert.Equal(t, NotifyStatusUpdate, notifier.events[len(notifier.events)-1].kind)

	// Terminal states admit no further transitions.
	_, err = svc.MarkNoShow(context.Background(), identityOf(provider), appt.ID)
	assert.ErrorIs(t, err, ErrInvalidTransition)
	_, err = svc.Cancel(context.Background(), identityOf(patient), appt.ID)
	assert.ErrorIs(t, err, ErrNotCancellable)

	// No-show on a fresh appointment.
	in := validBooking(provider.ID)
	in.Time = "11:00"
	second, err := svc.Book(context.Background(), identityOf(patient), in)
	require.NoError(t, err)
	noShow, err := svc.MarkNoShow(context.Background(), identityOf(provider), second.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusNoShow, noShow.Status)
}

func TestGetVisibility(t *testing.T) {
	svc, _, _, db := newTestService(t)
	patient := createUser(t, db, models.RolePatient, "patient@example.com")
	provider := createUser(t, db, models.RoleProvider, "provider@example.com")
	stranger := createUser(t, db, models.RolePatient, "stranger@example.com")

	appt, err := svc.Book(context.Background(), identityOf(patient), validBooking(provider.ID))
	require.NoError(t, err)

	_, err = svc.Get(context.Background(), identityOf(patient), appt.ID)
	assert.NoError(t, err)
	_, err = svc.Get(context.Background(), identityOf(provider), appt.ID)
	assert.NoError(t, err)
	_, err = svc.Get(context.Background(), identityOf(stranger), appt.ID)
	assert.ErrorIs(t, err, ErrNotAuthorized)

	_, err = svc.Get(context.Background(), identityOf(patient), "missing-id")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestListForUser(t *testing.T) {
	svc, _, _, db := newTestService(t)
	patient := createUser(t, db, models.RolePatient, "patient@example.com")
	otherPatient := createUser(t, db, models.RolePatient, "other@example.com")
	provider := createUser(t, db, models.RoleProvider, "provider@example.com")
	admin := createUser(t, db, models.RoleAdmin, "admin@example.com")

	first, err := svc.Book(context.Background(), identityOf(patient), validBooking(provider.ID))
	require.NoError(t, err)
	in := validBooking(provider.ID)
	in.Time = "11:00"
	_, err = svc.Book(context.Background(), identityOf(otherPatient), in)
	require.NoError(t, err)

	mine, err := svc.ListForUser(context.Background(), identityOf(patient))
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, first.ID, mine[0].ID)

	schedule, err := svc.ListForUser(context.Background(), identityOf(provider))
	require.NoError(t, err)
	assert.Len(t, schedule, 2)

	// Admins are not a party to any appointment.
	_, err = svc.ListForUser(context.Background(), identityOf(admin))
	assert.ErrorIs(t, err, ErrNotAuthorized)
}

func TestListForUserOrdersUpcomingFirst(t *testing.T) {
	svc, repo, _, db := newTestService(t)
	patient := createUser(t, db, models.RolePatient, "patient@example.com")
	provider := createUser(t, db, models.RoleProvider, "provider@example.com")

	seed := func(date, timeOfDay string, status models.AppointmentStatus) *models.Appointment {
		appt := &models.Appointment{
			PatientID:       patient.ID,
			ProviderID:      provider.ID,
			Date:            date,
			Time:            timeOfDay,
			Status:          status,
			AppointmentType: models.TypeRoutine,
			Reason:          "checkup",
		}
		if status == models.StatusScheduled {
			active := true
			appt.Active = &active
		}
		require.NoError(t, repo.Create(context.Background(), appt))
		return appt
	}

	// Test clock is 2030-05-31.
	concluded := seed("2030-05-01", "10:00", models.StatusCompleted)
	older := seed("2030-05-20", "10:00", models.StatusCancelled)
	later := seed("2030-06-02", "10:00", models.StatusScheduled)
	sooner := seed("2030-06-01", "10:00", models.StatusScheduled)
	// SCHEDULED today still counts as upcoming.
	today := seed("2030-05-31", "16:00", models.StatusScheduled)

	got, err := svc.ListForUser(context.Background(), identityOf(provider))
	require.NoError(t, err)
	require.Len(t, got, 5)

	// Upcoming SCHEDULED chronologically, then the rest most recent first.
	want := []string{today.ID, sooner.ID, later.ID, older.ID, concluded.ID}
	for i, id := range want {
		assert.Equal(t, id, got[i].ID, "position %d", i)
	}

	mine, err := svc.ListForUser(context.Background(), identityOf(patient))
	require.NoError(t, err)
	require.Len(t, mine, 5)
	assert.Equal(t, today.ID, mine[0].ID)
}

func TestNotificationFailureDoesNotAffectTransition(t *testing.T) {
	svc, repo, notifier, db := newTestService(t)
	notifier.failAll = true
	patient := createUser(t, db, models.RolePatient, "patient@example.com")
	provider := createUser(t, db, models.RoleProvider, "provider@example.com")

	appt, err := svc.Book(context.Background(), identityOf(patient), validBooking(provider.ID))
	require.NoError(t, err)

	stored, err := repo.FindByID(context.Background(), appt.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusScheduled, stored.Status)

	cancelled, err := svc.Cancel(context.Background(), identityOf(patient), appt.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCancelled, cancelled.Status)
}
