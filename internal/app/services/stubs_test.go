package services

import (
	"context"
	"fmt"
	"time"

	"github.com/unipulse/unipulse-bot/internal/app/models"
	"github.com/unipulse/unipulse-bot/internal/extractor"
)

// stubAccounts is an in-memory AccountStore.
type stubAccounts struct {
	byTelegramID map[int64]*models.Account
	byTime       map[string][]*models.Account
	subscribed   []*models.Account
	lastSent     map[int64]time.Time
	timeUpdates  map[int64]string
}

func newStubAccounts(accounts ...*models.Account) *stubAccounts {
	s := &stubAccounts{
		byTelegramID: map[int64]*models.Account{},
		byTime:       map[string][]*models.Account{},
		lastSent:     map[int64]time.Time{},
		timeUpdates:  map[int64]string{},
	}
	for _, a := range accounts {
		s.byTelegramID[a.TelegramID] = a
	}
	return s
}

func (s *stubAccounts) GetByTelegramID(_ context.Context, telegramID int64) (*models.Account, error) {
	return s.byTelegramID[telegramID], nil
}

func (s *stubAccounts) Upsert(_ context.Context, email string, telegramID int64, handle string) (*models.Account, error) {
	a := &models.Account{ID: telegramID, Email: email, TelegramID: telegramID, Handle: handle}
	s.byTelegramID[telegramID] = a
	return a, nil
}

func (s *stubAccounts) UpdateNewsletterTime(_ context.Context, accountID int64, hhmm string) error {
	s.timeUpdates[accountID] = hhmm
	return nil
}

func (s *stubAccounts) UpdateLastNewsletterSent(_ context.Context, accountID int64, sentAt time.Time) error {
	s.lastSent[accountID] = sentAt
	return nil
}

func (s *stubAccounts) ListByNewsletterTime(_ context.Context, hhmm string) ([]*models.Account, error) {
	return s.byTime[hhmm], nil
}

func (s *stubAccounts) ListSubscribed(_ context.Context) ([]*models.Account, error) {
	return s.subscribed, nil
}

// stubEvents is an in-memory EventStore.
type stubEvents struct {
	byID     map[int64]*models.Event
	hashes   map[string]bool
	nextID   int64
	updates  []fieldUpdate
	deleted  []int64
	ranked   []models.RankedEvent
	inCats   []*models.Event
	searched func(query, category *string) []*models.Event
}

type fieldUpdate struct {
	id    int64
	field models.EventField
	value any
}

func newStubEvents(events ...*models.Event) *stubEvents {
	s := &stubEvents{byID: map[int64]*models.Event{}, hashes: map[string]bool{}, nextID: 1}
	for _, ev := range events {
		s.byID[ev.ID] = ev
		if ev.ID >= s.nextID {
			s.nextID = ev.ID + 1
		}
	}
	return s
}

func (s *stubEvents) Create(_ context.Context, ev *models.Event) error {
	ev.ID = s.nextID
	s.nextID++
	ev.CreatedAt = time.Now()
	s.byID[ev.ID] = ev
	s.hashes[ev.TextHash] = true
	return nil
}

func (s *stubEvents) GetByID(_ context.Context, id int64) (*models.Event, error) {
	return s.byID[id], nil
}

func (s *stubEvents) ExistsByHash(_ context.Context, hash string) (bool, error) {
	return s.hashes[hash], nil
}

func (s *stubEvents) UpdateField(_ context.Context, id int64, field models.EventField, value any) error {
	s.updates = append(s.updates, fieldUpdate{id: id, field: field, value: value})
	return nil
}

func (s *stubEvents) AddImage(_ context.Context, eventID int64, url string) (*models.EventImage, error) {
	return &models.EventImage{EventID: eventID, URL: url}, nil
}

func (s *stubEvents) SoftDelete(_ context.Context, id int64, at time.Time) error {
	s.deleted = append(s.deleted, id)
	if ev := s.byID[id]; ev != nil {
		ev.IsDeleted = true
		ev.DeletedAt = &at
	}
	return nil
}

func (s *stubEvents) ListUpcoming(_ context.Context, _ time.Time, _ int) ([]*models.Event, error) {
	return nil, nil
}

func (s *stubEvents) ListByAccount(_ context.Context, _ int64, _ int) ([]*models.Event, error) {
	return nil, nil
}

func (s *stubEvents) Trending(_ context.Context, _ time.Time, _ int) ([]*models.Event, error) {
	return nil, nil
}

func (s *stubEvents) TopByRSVP(_ context.Context, _ int) ([]models.RankedEvent, error) {
	return s.ranked, nil
}

func (s *stubEvents) Search(_ context.Context, query, category *string, _ int) ([]*models.Event, error) {
	if s.searched != nil {
		return s.searched(query, category), nil
	}
	return nil, nil
}

func (s *stubEvents) UpcomingInCategories(_ context.Context, _ []int64, _, _ time.Time, _ int) ([]*models.Event, error) {
	return s.inCats, nil
}

// stubCategories is an in-memory CategoryStore.
type stubCategories struct {
	byName map[string]*models.Category
	nextID int64
	counts map[int64]int
}

func newStubCategories() *stubCategories {
	return &stubCategories{byName: map[string]*models.Category{}, nextID: 1, counts: map[int64]int{}}
}

func (s *stubCategories) GetOrCreate(_ context.Context, name string) (*models.Category, error) {
	if c, ok := s.byName[name]; ok {
		return c, nil
	}
	c := &models.Category{ID: s.nextID, Name: name}
	s.nextID++
	s.byName[name] = c
	return c, nil
}

func (s *stubCategories) GetByName(_ context.Context, name string) (*models.Category, error) {
	return s.byName[name], nil
}

func (s *stubCategories) List(_ context.Context) ([]*models.Category, error) {
	var cats []*models.Category
	for _, c := range s.byName {
		cats = append(cats, c)
	}
	return cats, nil
}

func (s *stubCategories) SubscriberCounts(_ context.Context) (map[int64]int, error) {
	return s.counts, nil
}

// stubSubscriptions is an in-memory SubscriptionStore.
type stubSubscriptions struct {
	byAccount map[int64][]int64
	failFor   map[int64]error
}

func newStubSubscriptions() *stubSubscriptions {
	return &stubSubscriptions{byAccount: map[int64][]int64{}, failFor: map[int64]error{}}
}

func (s *stubSubscriptions) ListCategoryIDs(_ context.Context, accountID int64) ([]int64, error) {
	if err := s.failFor[accountID]; err != nil {
		return nil, err
	}
	return s.byAccount[accountID], nil
}

func (s *stubSubscriptions) Toggle(_ context.Context, accountID, categoryID int64) (bool, error) {
	ids := s.byAccount[accountID]
	for i, id := range ids {
		if id == categoryID {
			s.byAccount[accountID] = append(ids[:i], ids[i+1:]...)
			return false, nil
		}
	}
	s.byAccount[accountID] = append(ids, categoryID)
	return true, nil
}

// stubReminders is an in-memory ReminderStore keyed by (account, event, time).
type stubReminders struct {
	created map[string]bool
}

func newStubReminders() *stubReminders {
	return &stubReminders{created: map[string]bool{}}
}

func (s *stubReminders) CreateIfAbsent(_ context.Context, accountID, eventID int64, remindAt time.Time) (bool, error) {
	key := fmt.Sprintf("%d/%d/%s", accountID, eventID, remindAt.UTC().Format(time.RFC3339))
	if s.created[key] {
		return false, nil
	}
	s.created[key] = true
	return true, nil
}

func (s *stubReminders) DueUnsent(_ context.Context, _ time.Time, _ int) ([]*models.DueReminder, error) {
	return nil, nil
}

func (s *stubReminders) MarkSent(_ context.Context, _ int64) error {
	return nil
}

// stubParser returns a fixed extraction result.
type stubParser struct {
	parsed extractor.ParsedEvent
	calls  int
}

func (p *stubParser) Parse(_ context.Context, _ string, _ []byte) extractor.ParsedEvent {
	p.calls++
	return p.parsed
}

// allowAll is a rate limiter that never rejects.
type allowAll struct{}

func (allowAll) Allow(_ context.Context, _ int64) (bool, error) { return true, nil }

// denyAll is a rate limiter that always rejects.
type denyAll struct{}

func (denyAll) Allow(_ context.Context, _ int64) (bool, error) { return false, nil }

func strPtr(s string) *string { return &s }
