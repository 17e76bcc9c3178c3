package services

import (
	"context"
	"strings"
	"time"

	"github.com/unipulse/unipulse-bot/internal/app/models"
	"github.com/unipulse/unipulse-bot/internal/pkg/apperrors"
	"github.com/unipulse/unipulse-bot/internal/pkg/filestorage"
	"github.com/unipulse/unipulse-bot/internal/pkg/logger"
)

const browseLimit = 10

// EventService covers browsing, searching and owner edits of events.
type EventService struct {
	events   EventStore
	accounts AccountStore
	storage  filestorage.PosterStorage
	now      func() time.Time
}

// NewEventService creates a new EventService. storage may be nil when
// poster files aren't managed locally.
func NewEventService(events EventStore, accounts AccountStore, storage filestorage.PosterStorage) *EventService {
	return &EventService{events: events, accounts: accounts, storage: storage, now: time.Now}
}

// Upcoming returns the next dated events, soonest first.
func (s *EventService) Upcoming(ctx context.Context) ([]*models.Event, error) {
	return s.events.ListUpcoming(ctx, s.now(), browseLimit)
}

// Trending returns upcoming events ordered by RSVP count.
func (s *EventService) Trending(ctx context.Context) ([]*models.Event, error) {
	return s.events.Trending(ctx, s.now(), browseLimit)
}

// Get returns a live event by id. Soft-deleted rows stay addressable in the
// database for audit but are gone as far as readers are concerned.
func (s *EventService) Get(ctx context.Context, id int64) (*models.Event, error) {
	ev, err := s.events.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if ev == nil || ev.IsDeleted {
		return nil, apperrors.ErrEventNotFound
	}
	return ev, nil
}

// Owned returns the event when the caller is its verified owner. Edit and
// delete flows run this check on entry, before any prompt is shown.
func (s *EventService) Owned(ctx context.Context, telegramID, eventID int64) (*models.Event, error) {
	return s.ownedEvent(ctx, telegramID, eventID)
}

// Find searches events. A query starting with '#' is treated as an exact
// category lookup, anything else as a free-text search over the event fields.
func (s *EventService) Find(ctx context.Context, query string) ([]*models.Event, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, apperrors.NewBadRequestError("search query is empty")
	}
	if strings.HasPrefix(query, "#") {
		cat := strings.TrimPrefix(query, "#")
		return s.events.Search(ctx, nil, &cat, browseLimit)
	}
	return s.events.Search(ctx, &query, nil, browseLimit)
}

// MyEvents lists the caller's own events, newest first.
func (s *EventService) MyEvents(ctx context.Context, telegramID int64) ([]*models.Event, error) {
	account, err := s.accounts.GetByTelegramID(ctx, telegramID)
	if err != nil {
		return nil, err
	}
	if account == nil {
		return nil, apperrors.ErrNotVerified
	}
	return s.events.ListByAccount(ctx, account.ID, browseLimit)
}

// EditField updates a single field of an event owned by the caller. Date
// fields must be RFC 3339.
func (s *EventService) EditField(ctx context.Context, telegramID, eventID int64, field models.EventField, value string) (*models.Event, error) {
	if !field.Valid() {
		return nil, apperrors.NewBadRequestError("unknown event field")
	}
	ev, err := s.ownedEvent(ctx, telegramID, eventID)
	if err != nil {
		return nil, err
	}

	var stored any = value
	if field == models.EventFieldDate {
		t, perr := time.Parse(time.RFC3339, value)
		if perr != nil {
			return nil, apperrors.NewBadRequestError("date must be RFC 3339, e.g. 2026-09-12T18:00:00+08:00")
		}
		stored = t
	}
	if err := s.events.UpdateField(ctx, ev.ID, field, stored); err != nil {
		return nil, err
	}
	return s.events.GetByID(ctx, ev.ID)
}

// Delete soft-deletes an event owned by the caller. The database row stays
// for audit, the poster file does not.
func (s *EventService) Delete(ctx context.Context, telegramID, eventID int64) error {
	ev, err := s.ownedEvent(ctx, telegramID, eventID)
	if err != nil {
		return err
	}
	if err := s.events.SoftDelete(ctx, ev.ID, s.now()); err != nil {
		return err
	}
	if s.storage != nil && ev.ImageURL != nil {
		if err := s.storage.DeletePoster(*ev.ImageURL); err != nil {
			logger.Warn().Err(err).Int64("event_id", ev.ID).Msg("Failed to remove poster file")
		}
	}
	return nil
}

func (s *EventService) ownedEvent(ctx context.Context, telegramID, eventID int64) (*models.Event, error) {
	account, err := s.accounts.GetByTelegramID(ctx, telegramID)
	if err != nil {
		return nil, err
	}
	if account == nil {
		return nil, apperrors.ErrNotVerified
	}
	ev, err := s.events.GetByID(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if ev == nil {
		return nil, apperrors.ErrEventNotFound
	}
	if ev.IsDeleted {
		return nil, apperrors.ErrEventDeleted
	}
	if ev.AccountID == nil || *ev.AccountID != account.ID {
		return nil, apperrors.ErrNotOwner
	}
	return ev, nil
}
