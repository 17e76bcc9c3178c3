package models

import "time"

// Reminder represents a scheduled reminder based on the 'reminders' table.
// At most two exist per (account, event) pair: 24h and 1h before start.
// The (account_id, event_id, remind_at) triple is unique.
type Reminder struct {
	ID        int64     `json:"id" db:"id"`
	AccountID int64     `json:"accountId" db:"account_id"`
	EventID   int64     `json:"eventId" db:"event_id"`
	RemindAt  time.Time `json:"remindAt" db:"remind_at"`
	Sent      bool      `json:"sent" db:"sent"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
}

// DueReminder is a reminder joined with the delivery data the reminders
// job needs: the recipient's telegram id and the event summary.
type DueReminder struct {
	Reminder
	TelegramID int64      `json:"telegramId"`
	EventText  string     `json:"eventText"`
	EventDate  *time.Time `json:"eventDate,omitempty"`
}
