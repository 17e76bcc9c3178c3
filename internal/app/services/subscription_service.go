package services

import (
	"context"

	"github.com/unipulse/unipulse-bot/internal/app/models"
	"github.com/unipulse/unipulse-bot/internal/pkg/apperrors"
)

// CategoryOption is a category together with its subscription state for a
// particular account, used to render the subscribe keyboard.
type CategoryOption struct {
	Category    *models.Category
	Subscribed  bool
	Subscribers int
}

// SubscriptionService manages per-account category subscriptions.
type SubscriptionService struct {
	accounts      AccountStore
	categories    CategoryStore
	subscriptions SubscriptionStore
}

// NewSubscriptionService creates a new SubscriptionService.
func NewSubscriptionService(accounts AccountStore, categories CategoryStore, subscriptions SubscriptionStore) *SubscriptionService {
	return &SubscriptionService{accounts: accounts, categories: categories, subscriptions: subscriptions}
}

// Options lists all categories with the caller's subscription state.
func (s *SubscriptionService) Options(ctx context.Context, telegramID int64) ([]CategoryOption, error) {
	account, err := s.accounts.GetByTelegramID(ctx, telegramID)
	if err != nil {
		return nil, err
	}
	if account == nil {
		return nil, apperrors.ErrNotVerified
	}
	return s.optionsFor(ctx, account.ID)
}

// Toggle flips the caller's subscription to a category and returns the
// refreshed option list.
func (s *SubscriptionService) Toggle(ctx context.Context, telegramID, categoryID int64) ([]CategoryOption, error) {
	account, err := s.accounts.GetByTelegramID(ctx, telegramID)
	if err != nil {
		return nil, err
	}
	if account == nil {
		return nil, apperrors.ErrNotVerified
	}
	if _, err := s.subscriptions.Toggle(ctx, account.ID, categoryID); err != nil {
		return nil, err
	}
	return s.optionsFor(ctx, account.ID)
}

func (s *SubscriptionService) optionsFor(ctx context.Context, accountID int64) ([]CategoryOption, error) {
	cats, err := s.categories.List(ctx)
	if err != nil {
		return nil, err
	}
	subscribed, err := s.subscriptions.ListCategoryIDs(ctx, accountID)
	if err != nil {
		return nil, err
	}
	counts, err := s.categories.SubscriberCounts(ctx)
	if err != nil {
		return nil, err
	}
	mine := make(map[int64]bool, len(subscribed))
	for _, id := range subscribed {
		mine[id] = true
	}
	options := make([]CategoryOption, 0, len(cats))
	for _, c := range cats {
		options = append(options, CategoryOption{
			Category:    c,
			Subscribed:  mine[c.ID],
			Subscribers: counts[c.ID],
		})
	}
	return options, nil
}
