// Package scheduler runs the background jobs: event reminders, daily
// digests and the weekly roundup.
package scheduler

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/unipulse/unipulse-bot/internal/app/models"
	"github.com/unipulse/unipulse-bot/internal/app/services"
	"github.com/unipulse/unipulse-bot/internal/pkg/logger"
)

// reminderBatch bounds how many due reminders one tick processes.
const reminderBatch = 100

// weeklySpec fires the roundup every Sunday evening, in the configured
// timezone.
const weeklySpec = "0 18 * * 0"

// Notifier delivers scheduler-initiated Telegram messages.
type Notifier interface {
	SendReminder(telegramID int64, eventText string, eventDate time.Time) error
	SendDigest(telegramID int64, d services.Digest) error
	SendRoundup(telegramID int64, ranked []models.RankedEvent) error
}

// Scheduler owns the cron runner and its jobs.
type Scheduler struct {
	cron      *cron.Cron
	reminders services.ReminderStore
	digests   *services.DigestService
	notifier  Notifier
}

// New creates a Scheduler. Jobs are registered but not started.
func New(reminders services.ReminderStore, digests *services.DigestService, notifier Notifier, location *time.Location) (*Scheduler, error) {
	s := &Scheduler{
		cron:      cron.New(cron.WithLocation(location)),
		reminders: reminders,
		digests:   digests,
		notifier:  notifier,
	}

	if _, err := s.cron.AddFunc("@every 1m", s.runReminders); err != nil {
		return nil, err
	}
	if _, err := s.cron.AddFunc("@every 1m", s.runDigests); err != nil {
		return nil, err
	}
	if _, err := s.cron.AddFunc(weeklySpec, s.runWeeklyRoundup); err != nil {
		return nil, err
	}
	return s, nil
}

// Start launches the cron runner in its own goroutine.
func (s *Scheduler) Start() {
	s.cron.Start()
	logger.Info().Msg("Scheduler started")
}

// Stop halts job scheduling and waits for running jobs to finish, or for
// the context to expire.
func (s *Scheduler) Stop(ctx context.Context) {
	done := s.cron.Stop().Done()
	select {
	case <-done:
	case <-ctx.Done():
		logger.Warn().Msg("Scheduler shutdown timed out")
	}
}

func (s *Scheduler) runReminders() {
	ctx := context.Background()
	due, err := s.reminders.DueUnsent(ctx, time.Now(), reminderBatch)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to load due reminders")
		return
	}
	for _, r := range due {
		if r.EventDate == nil {
			// Reminders are only created for dated events; a cleared date
			// leaves a stale row. Retire it without sending.
			if err := s.reminders.MarkSent(ctx, r.ID); err != nil {
				logger.Error().Err(err).Int64("reminder_id", r.ID).Msg("Failed to retire stale reminder")
			}
			continue
		}
		if err := s.notifier.SendReminder(r.TelegramID, r.EventText, *r.EventDate); err != nil {
			logger.Error().Err(err).Int64("reminder_id", r.ID).Msg("Reminder delivery failed")
			continue
		}
		if err := s.reminders.MarkSent(ctx, r.ID); err != nil {
			logger.Error().Err(err).Int64("reminder_id", r.ID).Msg("Failed to mark reminder sent")
		}
	}
	if len(due) > 0 {
		logger.Info().Int("count", len(due)).Msg("Processed due reminders")
	}
}

func (s *Scheduler) runDigests() {
	ctx := context.Background()
	digests, err := s.digests.DueDigests(ctx)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to compose digests")
		return
	}
	for _, d := range digests {
		if err := s.notifier.SendDigest(d.Account.TelegramID, d); err != nil {
			logger.Error().Err(err).Int64("account_id", d.Account.ID).Msg("Digest delivery failed")
			continue
		}
		if err := s.digests.MarkSent(ctx, d.Account.ID); err != nil {
			logger.Error().Err(err).Int64("account_id", d.Account.ID).Msg("Failed to record digest send")
		}
	}
}

func (s *Scheduler) runWeeklyRoundup() {
	ctx := context.Background()
	ranked, recipients, err := s.digests.WeeklyRoundup(ctx)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to build weekly roundup")
		return
	}
	if len(ranked) == 0 {
		return
	}
	sent := 0
	for _, account := range recipients {
		if err := s.notifier.SendRoundup(account.TelegramID, ranked); err != nil {
			logger.Error().Err(err).Int64("account_id", account.ID).Msg("Roundup delivery failed")
			continue
		}
		sent++
	}
	logger.Info().Int("recipients", sent).Msg("Weekly roundup sent")
}
