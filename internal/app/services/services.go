// Package services holds the application logic between the Telegram
// handlers and the repositories. Each service consumes narrow store
// interfaces, satisfied by the repositories package in production and by
// fakes in tests.
package services

import (
	"context"
	"time"

	"github.com/unipulse/unipulse-bot/internal/app/models"
)

// AccountStore is the account persistence surface services depend on.
type AccountStore interface {
	GetByTelegramID(ctx context.Context, telegramID int64) (*models.Account, error)
	Upsert(ctx context.Context, email string, telegramID int64, handle string) (*models.Account, error)
	UpdateNewsletterTime(ctx context.Context, accountID int64, hhmm string) error
	UpdateLastNewsletterSent(ctx context.Context, accountID int64, sentAt time.Time) error
	ListByNewsletterTime(ctx context.Context, hhmm string) ([]*models.Account, error)
	ListSubscribed(ctx context.Context) ([]*models.Account, error)
}

// EventStore is the event persistence surface services depend on.
type EventStore interface {
	Create(ctx context.Context, ev *models.Event) error
	GetByID(ctx context.Context, id int64) (*models.Event, error)
	ExistsByHash(ctx context.Context, hash string) (bool, error)
	UpdateField(ctx context.Context, id int64, field models.EventField, value any) error
	AddImage(ctx context.Context, eventID int64, url string) (*models.EventImage, error)
	SoftDelete(ctx context.Context, id int64, at time.Time) error
	ListUpcoming(ctx context.Context, now time.Time, limit int) ([]*models.Event, error)
	ListByAccount(ctx context.Context, accountID int64, limit int) ([]*models.Event, error)
	Trending(ctx context.Context, now time.Time, limit int) ([]*models.Event, error)
	TopByRSVP(ctx context.Context, limit int) ([]models.RankedEvent, error)
	Search(ctx context.Context, query, category *string, limit int) ([]*models.Event, error)
	UpcomingInCategories(ctx context.Context, categoryIDs []int64, from, to time.Time, limit int) ([]*models.Event, error)
}

// CategoryStore is the category persistence surface services depend on.
type CategoryStore interface {
	GetOrCreate(ctx context.Context, name string) (*models.Category, error)
	GetByName(ctx context.Context, name string) (*models.Category, error)
	List(ctx context.Context) ([]*models.Category, error)
	SubscriberCounts(ctx context.Context) (map[int64]int, error)
}

// SubscriptionStore is the subscription persistence surface services depend on.
type SubscriptionStore interface {
	ListCategoryIDs(ctx context.Context, accountID int64) ([]int64, error)
	Toggle(ctx context.Context, accountID, categoryID int64) (bool, error)
}

// RSVPStore is the RSVP persistence surface services depend on.
type RSVPStore interface {
	Upsert(ctx context.Context, eventID, accountID int64, status models.RSVPStatus) (models.RSVPCounts, error)
	Counts(ctx context.Context, eventID int64) (models.RSVPCounts, error)
}

// ReminderStore is the reminder persistence surface services depend on.
type ReminderStore interface {
	CreateIfAbsent(ctx context.Context, accountID, eventID int64, remindAt time.Time) (bool, error)
	DueUnsent(ctx context.Context, now time.Time, limit int) ([]*models.DueReminder, error)
	MarkSent(ctx context.Context, id int64) error
}
