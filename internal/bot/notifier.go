package bot

import (
	"time"

	"github.com/unipulse/unipulse-bot/internal/app/models"
	"github.com/unipulse/unipulse-bot/internal/app/services"
)

// Notifier sends scheduler-initiated messages: reminders, daily digests and
// the weekly roundup.
type Notifier struct {
	api      API
	location *time.Location
}

// NewNotifier creates a new Notifier.
func NewNotifier(api API, location *time.Location) *Notifier {
	return &Notifier{api: api, location: location}
}

// SendReminder delivers an event reminder to a Telegram chat.
func (n *Notifier) SendReminder(telegramID int64, eventText string, eventDate time.Time) error {
	_, err := n.api.Send(newHTMLMessage(telegramID, FormatReminder(eventText, eventDate, n.location)))
	return err
}

// SendDigest delivers a daily digest to its account's Telegram chat.
func (n *Notifier) SendDigest(telegramID int64, d services.Digest) error {
	_, err := n.api.Send(newHTMLMessage(telegramID, FormatDigest(d, n.location)))
	return err
}

// SendRoundup delivers the weekly roundup to one recipient.
func (n *Notifier) SendRoundup(telegramID int64, ranked []models.RankedEvent) error {
	_, err := n.api.Send(newHTMLMessage(telegramID, FormatRoundup(ranked, n.location)))
	return err
}
