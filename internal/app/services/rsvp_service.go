package services

import (
	"context"
	"time"

	"github.com/unipulse/unipulse-bot/internal/app/models"
	"github.com/unipulse/unipulse-bot/internal/pkg/apperrors"
)

// reminderOffsets are how long before an event's start each reminder fires.
var reminderOffsets = []time.Duration{24 * time.Hour, time.Hour}

// RSVPService records attendance and schedules event reminders.
type RSVPService struct {
	accounts  AccountStore
	events    EventStore
	rsvps     RSVPStore
	reminders ReminderStore
	now       func() time.Time
}

// NewRSVPService creates a new RSVPService.
func NewRSVPService(accounts AccountStore, events EventStore, rsvps RSVPStore, reminders ReminderStore) *RSVPService {
	return &RSVPService{
		accounts:  accounts,
		events:    events,
		rsvps:     rsvps,
		reminders: reminders,
		now:       time.Now,
	}
}

// RSVP records or updates the caller's attendance and returns fresh counts.
func (s *RSVPService) RSVP(ctx context.Context, telegramID, eventID int64, status models.RSVPStatus) (models.RSVPCounts, error) {
	if !status.Valid() {
		return models.RSVPCounts{}, apperrors.NewBadRequestError("unknown RSVP status")
	}
	account, err := s.accounts.GetByTelegramID(ctx, telegramID)
	if err != nil {
		return models.RSVPCounts{}, err
	}
	if account == nil {
		return models.RSVPCounts{}, apperrors.ErrNotVerified
	}
	ev, err := s.events.GetByID(ctx, eventID)
	if err != nil {
		return models.RSVPCounts{}, err
	}
	if ev == nil || ev.IsDeleted {
		return models.RSVPCounts{}, apperrors.ErrEventNotFound
	}
	return s.rsvps.Upsert(ctx, eventID, account.ID, status)
}

// Counts returns the current RSVP tallies for an event.
func (s *RSVPService) Counts(ctx context.Context, eventID int64) (models.RSVPCounts, error) {
	return s.rsvps.Counts(ctx, eventID)
}

// EnsureReminders schedules the caller's reminders for an event, skipping
// offsets already in the past. Returns how many new reminders were created.
func (s *RSVPService) EnsureReminders(ctx context.Context, telegramID, eventID int64) (int, error) {
	account, err := s.accounts.GetByTelegramID(ctx, telegramID)
	if err != nil {
		return 0, err
	}
	if account == nil {
		return 0, apperrors.ErrNotVerified
	}
	ev, err := s.events.GetByID(ctx, eventID)
	if err != nil {
		return 0, err
	}
	if ev == nil || ev.IsDeleted {
		return 0, apperrors.ErrEventNotFound
	}
	if ev.Date == nil {
		return 0, apperrors.ErrNoEventDate
	}

	now := s.now()
	created := 0
	for _, offset := range reminderOffsets {
		remindAt := ev.Date.Add(-offset)
		if !remindAt.After(now) {
			continue
		}
		fresh, cerr := s.reminders.CreateIfAbsent(ctx, account.ID, eventID, remindAt)
		if cerr != nil {
			return created, cerr
		}
		if fresh {
			created++
		}
	}
	return created, nil
}
