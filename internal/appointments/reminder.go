package appointments

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"mediconnect-server/internal/models"
)

// ReminderJob sends a reminder for every appointment scheduled for
// tomorrow, once per day. A delivery failure for one appointment never
// aborts the batch.
type ReminderJob struct {
	repo     Repository
	notifier Notifier
	loc      *time.Location
	logger   *zap.Logger
	interval time.Duration
	stopChan chan struct{}
	now      func() time.Time
}

func NewReminderJob(repo Repository, notifier Notifier, loc *time.Location, logger *zap.Logger) *ReminderJob {
	return &ReminderJob{
		repo:     repo,
		notifier: notifier,
		loc:      loc,
		logger:   logger,
		interval: 24 * time.Hour,
		stopChan: make(chan struct{}),
		now:      time.Now,
	}
}

// Start launches the job in the background. The first run fires
// immediately, then once per interval until Stop or ctx cancellation.
func (j *ReminderJob) Start(ctx context.Context) {
	j.logger.Info("starting appointment reminder job")
	go j.run(ctx)
}

// Stop stops the background job.
func (j *ReminderJob) Stop() {
	j.logger.Info("stopping appointment reminder job")
	close(j.stopChan)
}

func (j *ReminderJob) run(ctx context.Context) {
	if _, err := j.SendReminders(ctx); err != nil {
		j.logger.Error("reminder run failed", zap.Error(err))
	}

	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if _, err := j.SendReminders(ctx); err != nil {
				j.logger.Error("reminder run failed", zap.Error(err))
			}
		case <-j.stopChan:
			j.logger.Info("reminder job stopped")
			return
		case <-ctx.Done():
			j.logger.Info("reminder job cancelled")
			return
		}
	}
}

// SendReminders delivers a reminder for each of tomorrow's SCHEDULED
// appointments and returns how many were sent. Per-appointment outcomes
// are logged independently.
func (j *ReminderJob) SendReminders(ctx context.Context) (int, error) {
	tomorrow := j.now().In(j.loc).AddDate(0, 0, 1).Format(models.DateLayout)

	appts, err := j.repo.FindScheduledOn(ctx, tomorrow)
	if err != nil {
		return 0, fmt.Errorf("find appointments for %s: %w", tomorrow, err)
	}

	sent := 0
	for i := range appts {
		appt := &appts[i]
		if err := j.notifier.Notify(ctx, appt, NotifyReminder); err != nil {
			j.logger.Error("failed to send reminder",
				zap.String("appointment_id", appt.ID),
				zap.Error(err))
			continue
		}
		sent++
		j.logger.Info("reminder sent", zap.String("appointment_id", appt.ID))
	}

	j.logger.Info("reminder run complete",
		zap.String("date", tomorrow),
		zap.Int("sent", sent),
		zap.Int("total", len(appts)))
	return sent, nil
}
