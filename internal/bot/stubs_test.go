package bot

import (
	"context"
	"fmt"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/unipulse/unipulse-bot/internal/app/models"
	"github.com/unipulse/unipulse-bot/internal/extractor"
)

// fakeAPI records everything the handlers try to send.
type fakeAPI struct {
	mu       sync.Mutex
	sent     []tgbotapi.Chattable
	requests []tgbotapi.Chattable
	fileURL  string
}

func (f *fakeAPI) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, c)
	return tgbotapi.Message{}, nil
}

func (f *fakeAPI) Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, c)
	return &tgbotapi.APIResponse{Ok: true}, nil
}

func (f *fakeAPI) GetFileDirectURL(string) (string, error) {
	return f.fileURL, nil
}

// lastMessage returns the text of the most recent MessageConfig sent.
func (f *fakeAPI) lastMessage() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := len(f.sent) - 1; i >= 0; i-- {
		if msg, ok := f.sent[i].(tgbotapi.MessageConfig); ok {
			return msg.Text
		}
	}
	return ""
}

// memAccounts is an in-memory account store.
type memAccounts struct {
	byTelegramID map[int64]*models.Account
}

func newMemAccounts(accounts ...*models.Account) *memAccounts {
	m := &memAccounts{byTelegramID: map[int64]*models.Account{}}
	for _, a := range accounts {
		m.byTelegramID[a.TelegramID] = a
	}
	return m
}

func (m *memAccounts) GetByTelegramID(_ context.Context, telegramID int64) (*models.Account, error) {
	return m.byTelegramID[telegramID], nil
}

func (m *memAccounts) Upsert(_ context.Context, email string, telegramID int64, handle string) (*models.Account, error) {
	a := &models.Account{ID: telegramID, Email: email, TelegramID: telegramID, Handle: handle}
	m.byTelegramID[telegramID] = a
	return a, nil
}

func (m *memAccounts) UpdateNewsletterTime(_ context.Context, accountID int64, hhmm string) error {
	for _, a := range m.byTelegramID {
		if a.ID == accountID {
			a.NewsletterTime = hhmm
		}
	}
	return nil
}

func (m *memAccounts) UpdateLastNewsletterSent(_ context.Context, _ int64, _ time.Time) error {
	return nil
}

func (m *memAccounts) ListByNewsletterTime(_ context.Context, _ string) ([]*models.Account, error) {
	return nil, nil
}

func (m *memAccounts) ListSubscribed(_ context.Context) ([]*models.Account, error) {
	return nil, nil
}

// memEvents is an in-memory event store.
type memEvents struct {
	byID    map[int64]*models.Event
	hashes  map[string]bool
	nextID  int64
	updates int
}

func newMemEvents(events ...*models.Event) *memEvents {
	m := &memEvents{byID: map[int64]*models.Event{}, hashes: map[string]bool{}, nextID: 1}
	for _, ev := range events {
		m.byID[ev.ID] = ev
		if ev.ID >= m.nextID {
			m.nextID = ev.ID + 1
		}
	}
	return m
}

func (m *memEvents) Create(_ context.Context, ev *models.Event) error {
	ev.ID = m.nextID
	m.nextID++
	m.byID[ev.ID] = ev
	m.hashes[ev.TextHash] = true
	return nil
}

func (m *memEvents) GetByID(_ context.Context, id int64) (*models.Event, error) {
	return m.byID[id], nil
}

func (m *memEvents) ExistsByHash(_ context.Context, hash string) (bool, error) {
	return m.hashes[hash], nil
}

func (m *memEvents) UpdateField(_ context.Context, id int64, field models.EventField, value any) error {
	m.updates++
	ev := m.byID[id]
	switch field {
	case models.EventFieldTitle:
		s := value.(string)
		ev.Title = &s
	case models.EventFieldDate:
		t := value.(time.Time)
		ev.Date = &t
	case models.EventFieldLocation:
		s := value.(string)
		ev.Location = &s
	case models.EventFieldDescription:
		s := value.(string)
		ev.Description = &s
	}
	return nil
}

func (m *memEvents) AddImage(_ context.Context, eventID int64, url string) (*models.EventImage, error) {
	return &models.EventImage{EventID: eventID, URL: url}, nil
}

func (m *memEvents) SoftDelete(_ context.Context, id int64, at time.Time) error {
	if ev := m.byID[id]; ev != nil {
		ev.IsDeleted = true
		ev.DeletedAt = &at
	}
	return nil
}

func (m *memEvents) ListUpcoming(_ context.Context, _ time.Time, _ int) ([]*models.Event, error) {
	var out []*models.Event
	for _, ev := range m.byID {
		if !ev.IsDeleted && ev.Date != nil {
			out = append(out, ev)
		}
	}
	return out, nil
}

func (m *memEvents) ListByAccount(_ context.Context, accountID int64, _ int) ([]*models.Event, error) {
	var out []*models.Event
	for _, ev := range m.byID {
		if !ev.IsDeleted && ev.AccountID != nil && *ev.AccountID == accountID {
			out = append(out, ev)
		}
	}
	return out, nil
}

func (m *memEvents) Trending(_ context.Context, _ time.Time, _ int) ([]*models.Event, error) {
	return nil, nil
}

func (m *memEvents) TopByRSVP(_ context.Context, _ int) ([]models.RankedEvent, error) {
	return nil, nil
}

func (m *memEvents) Search(_ context.Context, _, _ *string, _ int) ([]*models.Event, error) {
	return nil, nil
}

func (m *memEvents) UpcomingInCategories(_ context.Context, _ []int64, _, _ time.Time, _ int) ([]*models.Event, error) {
	return nil, nil
}

// memCategories is an in-memory category store.
type memCategories struct {
	byName map[string]*models.Category
	nextID int64
}

func newMemCategories() *memCategories {
	return &memCategories{byName: map[string]*models.Category{}, nextID: 1}
}

func (m *memCategories) GetOrCreate(_ context.Context, name string) (*models.Category, error) {
	if c, ok := m.byName[name]; ok {
		return c, nil
	}
	c := &models.Category{ID: m.nextID, Name: name}
	m.nextID++
	m.byName[name] = c
	return c, nil
}

func (m *memCategories) GetByName(_ context.Context, name string) (*models.Category, error) {
	return m.byName[name], nil
}

func (m *memCategories) List(_ context.Context) ([]*models.Category, error) {
	var cats []*models.Category
	for _, c := range m.byName {
		cats = append(cats, c)
	}
	return cats, nil
}

func (m *memCategories) SubscriberCounts(_ context.Context) (map[int64]int, error) {
	return map[int64]int{}, nil
}

// memSubscriptions is an in-memory subscription store.
type memSubscriptions struct {
	byAccount map[int64]map[int64]bool
}

func newMemSubscriptions() *memSubscriptions {
	return &memSubscriptions{byAccount: map[int64]map[int64]bool{}}
}

func (m *memSubscriptions) ListCategoryIDs(_ context.Context, accountID int64) ([]int64, error) {
	var ids []int64
	for id := range m.byAccount[accountID] {
		ids = append(ids, id)
	}
	return ids, nil
}

func (m *memSubscriptions) Toggle(_ context.Context, accountID, categoryID int64) (bool, error) {
	if m.byAccount[accountID] == nil {
		m.byAccount[accountID] = map[int64]bool{}
	}
	if m.byAccount[accountID][categoryID] {
		delete(m.byAccount[accountID], categoryID)
		return false, nil
	}
	m.byAccount[accountID][categoryID] = true
	return true, nil
}

// memRSVPs is an in-memory RSVP store keyed by account.
type memRSVPs struct {
	statuses map[int64]models.RSVPStatus
}

func newMemRSVPs() *memRSVPs {
	return &memRSVPs{statuses: map[int64]models.RSVPStatus{}}
}

func (m *memRSVPs) Upsert(_ context.Context, _, accountID int64, status models.RSVPStatus) (models.RSVPCounts, error) {
	m.statuses[accountID] = status
	return m.Counts(context.Background(), 0)
}

func (m *memRSVPs) Counts(_ context.Context, _ int64) (models.RSVPCounts, error) {
	var c models.RSVPCounts
	for _, st := range m.statuses {
		switch st {
		case models.RSVPGoing:
			c.Going++
		case models.RSVPInterested:
			c.Interested++
		}
	}
	return c, nil
}

// memReminders is an in-memory reminder store.
type memReminders struct {
	created map[string]bool
}

func newMemReminders() *memReminders {
	return &memReminders{created: map[string]bool{}}
}

func (m *memReminders) CreateIfAbsent(_ context.Context, accountID, eventID int64, remindAt time.Time) (bool, error) {
	key := fmt.Sprintf("%d/%d/%s", accountID, eventID, remindAt.UTC())
	if m.created[key] {
		return false, nil
	}
	m.created[key] = true
	return true, nil
}

func (m *memReminders) DueUnsent(_ context.Context, _ time.Time, _ int) ([]*models.DueReminder, error) {
	return nil, nil
}

func (m *memReminders) MarkSent(_ context.Context, _ int64) error {
	return nil
}

// fakeParser returns fixed extraction output.
type fakeParser struct {
	parsed extractor.ParsedEvent
}

func (p *fakeParser) Parse(_ context.Context, _ string, _ []byte) extractor.ParsedEvent {
	return p.parsed
}

// allowAll never rate-limits.
type allowAll struct{}

func (allowAll) Allow(_ context.Context, _ int64) (bool, error) { return true, nil }

// recordingMailer captures the verification email.
type recordingMailer struct {
	to  string
	url string
}

func (m *recordingMailer) SendVerificationEmail(toEmail, verifyURL string) error {
	m.to = toEmail
	m.url = verifyURL
	return nil
}

func strPtr(s string) *string { return &s }

func int64Ptr(v int64) *int64 { return &v }
