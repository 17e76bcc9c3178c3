package services

import (
	"context"
	"time"

	"github.com/unipulse/unipulse-bot/internal/app/models"
	"github.com/unipulse/unipulse-bot/internal/pkg/logger"
)

const (
	digestWindow = 7 * 24 * time.Hour
	digestCap    = 10
	// digestGuard stops a second send within the same day when the
	// minute-match job overlaps a previous run.
	digestGuard = 23 * time.Hour
)

// Digest is a composed daily digest for one account.
type Digest struct {
	Account *models.Account
	Events  []*models.Event
}

// DigestService assembles the daily category digest and the weekly roundup.
type DigestService struct {
	accounts      AccountStore
	events        EventStore
	subscriptions SubscriptionStore
	location      *time.Location
	now           func() time.Time
}

// NewDigestService creates a new DigestService.
func NewDigestService(accounts AccountStore, events EventStore, subscriptions SubscriptionStore, location *time.Location) *DigestService {
	return &DigestService{
		accounts:      accounts,
		events:        events,
		subscriptions: subscriptions,
		location:      location,
		now:           time.Now,
	}
}

// DueDigests returns composed digests for every account whose newsletter
// time matches the current minute and who has not been sent one in the last
// 23 hours. Accounts with no subscribed categories or no matching events are
// skipped.
func (s *DigestService) DueDigests(ctx context.Context) ([]Digest, error) {
	now := s.now().In(s.location)
	due, err := s.accounts.ListByNewsletterTime(ctx, now.Format("15:04"))
	if err != nil {
		return nil, err
	}

	var digests []Digest
	for _, account := range due {
		if account.LastNewsletterSent != nil && now.Sub(*account.LastNewsletterSent) < digestGuard {
			continue
		}
		events, cerr := s.compose(ctx, account.ID, now)
		if cerr != nil {
			// One broken account must not hold up everyone else's
			// digest; the next matching minute retries it.
			logger.Error().Err(cerr).Int64("account_id", account.ID).Msg("Digest compose failed")
			continue
		}
		if len(events) == 0 {
			continue
		}
		digests = append(digests, Digest{Account: account, Events: events})
	}
	return digests, nil
}

// MarkSent records that an account's digest went out.
func (s *DigestService) MarkSent(ctx context.Context, accountID int64) error {
	return s.accounts.UpdateLastNewsletterSent(ctx, accountID, s.now())
}

// WeeklyRoundup returns the events ranked by RSVP count together with every
// account that should receive the roundup.
func (s *DigestService) WeeklyRoundup(ctx context.Context) ([]models.RankedEvent, []*models.Account, error) {
	ranked, err := s.events.TopByRSVP(ctx, digestCap)
	if err != nil {
		return nil, nil, err
	}
	if len(ranked) == 0 {
		return nil, nil, nil
	}
	recipients, err := s.accounts.ListSubscribed(ctx)
	if err != nil {
		return nil, nil, err
	}
	return ranked, recipients, nil
}

func (s *DigestService) compose(ctx context.Context, accountID int64, now time.Time) ([]*models.Event, error) {
	categoryIDs, err := s.subscriptions.ListCategoryIDs(ctx, accountID)
	if err != nil {
		return nil, err
	}
	if len(categoryIDs) == 0 {
		return nil, nil
	}
	return s.events.UpcomingInCategories(ctx, categoryIDs, now, now.Add(digestWindow), digestCap)
}
