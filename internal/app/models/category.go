package models

import "time"

// Category represents an event category based on the 'categories' table.
// Categories are created on first use when an event carries a new tag.
type Category struct {
	ID        int64     `json:"id" db:"id"`
	Name      string    `json:"name" db:"name"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
}

// Subscription represents an account following a category, based on the
// 'account_categories' join table.
type Subscription struct {
	ID         int64     `json:"id" db:"id"`
	AccountID  int64     `json:"accountId" db:"account_id"`
	CategoryID int64     `json:"categoryId" db:"category_id"`
	CreatedAt  time.Time `json:"createdAt" db:"created_at"`
}
