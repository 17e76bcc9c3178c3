package models

import "time"

// Event defines an announced campus event based on the 'events' table.
// Events are never hard-deleted; IsDeleted marks them inactive while
// keeping the row addressable for audit.
type Event struct {
	ID          int64      `json:"id" db:"id"`
	Text        string     `json:"text" db:"text"`
	Title       *string    `json:"title,omitempty" db:"title"`
	Date        *time.Time `json:"date,omitempty" db:"date"`
	EndDate     *time.Time `json:"endDate,omitempty" db:"end_date"`
	Location    *string    `json:"location,omitempty" db:"location"`
	Description *string    `json:"description,omitempty" db:"description"`
	AccountID   *int64     `json:"accountId,omitempty" db:"account_id"`
	CategoryID  *int64     `json:"categoryId,omitempty" db:"category_id"`
	TextHash    string     `json:"textHash" db:"text_hash"`
	IsDeleted   bool       `json:"isDeleted" db:"is_deleted"`
	DeletedAt   *time.Time `json:"deletedAt,omitempty" db:"deleted_at"`
	CreatedAt   time.Time  `json:"createdAt" db:"created_at"`

	// Related entities
	ImageURL *string   `json:"imageUrl,omitempty"`
	Category *Category `json:"category,omitempty"`
}

// EventImage represents an uploaded poster image attached to an event
type EventImage struct {
	ID      int64  `json:"id" db:"id"`
	EventID int64  `json:"eventId" db:"event_id"`
	URL     string `json:"url" db:"url"`
}

// EventField identifies an editable event column. The edit flow only
// accepts values from this fixed set.
type EventField string

const (
	EventFieldTitle       EventField = "title"
	EventFieldDate        EventField = "date"
	EventFieldLocation    EventField = "location"
	EventFieldDescription EventField = "description"
)

// Valid reports whether the field is one of the editable columns.
func (f EventField) Valid() bool {
	switch f {
	case EventFieldTitle, EventFieldDate, EventFieldLocation, EventFieldDescription:
		return true
	}
	return false
}
