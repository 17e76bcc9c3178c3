package models

import "time"

// Account defines a verified user based on the 'accounts' table.
// A row only exists once institutional email verification completed,
// so row existence implies the user is verified.
type Account struct {
	ID                 int64      `json:"id" db:"id"`
	Email              string     `json:"email" db:"email"`
	TelegramID         int64      `json:"telegramId" db:"telegram_id"`
	Handle             string     `json:"handle" db:"handle"`
	NewsletterTime     string     `json:"newsletterTime" db:"newsletter_time"`
	LastNewsletterSent *time.Time `json:"lastNewsletterSent,omitempty" db:"last_newsletter_sent"`
	CreatedAt          time.Time  `json:"createdAt" db:"created_at"`
}
