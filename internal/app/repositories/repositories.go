package repositories

import (
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repositories contains all repository instances
type Repositories struct {
	AccountRepository      *AccountRepository
	EventRepository        *EventRepository
	CategoryRepository     *CategoryRepository
	SubscriptionRepository *SubscriptionRepository
	RSVPRepository         *RSVPRepository
	ReminderRepository     *ReminderRepository
}

// NewRepositories creates a new Repositories instance with all repositories
func NewRepositories(db *pgxpool.Pool) *Repositories {
	return &Repositories{
		AccountRepository:      NewAccountRepository(db),
		EventRepository:        NewEventRepository(db),
		CategoryRepository:     NewCategoryRepository(db),
		SubscriptionRepository: NewSubscriptionRepository(db),
		RSVPRepository:         NewRSVPRepository(db),
		ReminderRepository:     NewReminderRepository(db),
	}
}
