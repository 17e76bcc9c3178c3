package bot

import (
	"fmt"
	"html"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/unipulse/unipulse-bot/internal/app/models"
	"github.com/unipulse/unipulse-bot/internal/app/services"
	"github.com/unipulse/unipulse-bot/internal/pkg/calendar"
)

const cardDateLayout = "Mon, 2 Jan 15:04"

// renderEventCard builds the HTML body shown for a single event.
func renderEventCard(ev *models.Event, counts models.RSVPCounts, loc *time.Location) string {
	var b strings.Builder

	title := ev.Text
	if ev.Title != nil && *ev.Title != "" {
		title = *ev.Title
	}
	fmt.Fprintf(&b, "<b>%s</b>\n", html.EscapeString(title))

	if ev.Date != nil {
		fmt.Fprintf(&b, "📅 %s\n", ev.Date.In(loc).Format(cardDateLayout))
	}
	if ev.Location != nil && *ev.Location != "" {
		fmt.Fprintf(&b, "📍 %s\n", html.EscapeString(*ev.Location))
	}
	if ev.Description != nil && *ev.Description != "" {
		fmt.Fprintf(&b, "\n%s\n", html.EscapeString(*ev.Description))
	}
	if ev.Category != nil {
		fmt.Fprintf(&b, "\n#%s", html.EscapeString(ev.Category.Name))
	}
	if counts.Total() > 0 {
		fmt.Fprintf(&b, "\n\n✅ %d going · ⭐ %d interested", counts.Going, counts.Interested)
	}
	return b.String()
}

// eventCardKeyboard builds the RSVP buttons plus reminder and calendar
// actions for one event.
func eventCardKeyboard(ev *models.Event, counts models.RSVPCounts) tgbotapi.InlineKeyboardMarkup {
	rsvpRow := tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData(fmt.Sprintf("✅ Going (%d)", counts.Going), fmt.Sprintf("rsvp:going:%d", ev.ID)),
		tgbotapi.NewInlineKeyboardButtonData(fmt.Sprintf("⭐ Interested (%d)", counts.Interested), fmt.Sprintf("rsvp:interested:%d", ev.ID)),
	)

	var actionRow []tgbotapi.InlineKeyboardButton
	if ev.Date != nil {
		actionRow = append(actionRow, tgbotapi.NewInlineKeyboardButtonData("🔔 Remind me", fmt.Sprintf("remind:%d", ev.ID)))
		if url := calendar.GoogleCalendarURL(ev); url != "" {
			actionRow = append(actionRow, tgbotapi.NewInlineKeyboardButtonURL("📅 Calendar", url))
		}
	}

	if len(actionRow) == 0 {
		return tgbotapi.NewInlineKeyboardMarkup(rsvpRow)
	}
	return tgbotapi.NewInlineKeyboardMarkup(rsvpRow, actionRow)
}

// renderEditSummary shows an event's editable fields with their current
// values, above the field chooser buttons.
func renderEditSummary(ev *models.Event, loc *time.Location) string {
	var b strings.Builder
	b.WriteString("<b>✏️ Editing event</b>\n\n")
	fmt.Fprintf(&b, "Title: %s\n", valueOrUnset(ev.Title))
	if ev.Date != nil {
		fmt.Fprintf(&b, "Date: %s\n", ev.Date.In(loc).Format(cardDateLayout))
	} else {
		b.WriteString("Date: not set\n")
	}
	fmt.Fprintf(&b, "Location: %s\n", valueOrUnset(ev.Location))
	fmt.Fprintf(&b, "Description: %s\n", valueOrUnset(ev.Description))
	b.WriteString("\nWhat do you want to change?")
	return b.String()
}

func valueOrUnset(s *string) string {
	if s == nil || *s == "" {
		return "not set"
	}
	return html.EscapeString(*s)
}

// renderEventList builds a numbered summary of events for /events, /trending
// and /find results.
func renderEventList(header string, events []*models.Event, loc *time.Location) string {
	var b strings.Builder
	fmt.Fprintf(&b, "<b>%s</b>\n", html.EscapeString(header))
	for i, ev := range events {
		title := ev.Text
		if ev.Title != nil && *ev.Title != "" {
			title = *ev.Title
		}
		if len(title) > 60 {
			title = title[:57] + "..."
		}
		fmt.Fprintf(&b, "\n%d. %s", i+1, html.EscapeString(title))
		if ev.Date != nil {
			fmt.Fprintf(&b, " — %s", ev.Date.In(loc).Format(cardDateLayout))
		}
		if ev.Category != nil {
			fmt.Fprintf(&b, " #%s", html.EscapeString(ev.Category.Name))
		}
	}
	return b.String()
}

// eventListKeyboard gives each listed event a details button.
func eventListKeyboard(events []*models.Event) tgbotapi.InlineKeyboardMarkup {
	var rows [][]tgbotapi.InlineKeyboardButton
	var row []tgbotapi.InlineKeyboardButton
	for i, ev := range events {
		row = append(row, tgbotapi.NewInlineKeyboardButtonData(fmt.Sprintf("%d", i+1), fmt.Sprintf("show:%d", ev.ID)))
		if len(row) == 5 {
			rows = append(rows, tgbotapi.NewInlineKeyboardRow(row...))
			row = nil
		}
	}
	if len(row) > 0 {
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(row...))
	}
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

// FormatReminder builds the reminder message sent before an event starts.
func FormatReminder(eventText string, eventDate time.Time, loc *time.Location) string {
	title := eventText
	if len(title) > 120 {
		title = title[:117] + "..."
	}
	return fmt.Sprintf("🔔 <b>Reminder</b>\n\n%s\n\n📅 Starts %s",
		html.EscapeString(title), eventDate.In(loc).Format(cardDateLayout))
}

// FormatDigest builds the daily digest body from an account's composed
// event list.
func FormatDigest(d services.Digest, loc *time.Location) string {
	return renderEventList("Your daily campus digest", d.Events, loc)
}

// FormatRoundup builds the weekly roundup body from the RSVP ranking.
func FormatRoundup(ranked []models.RankedEvent, loc *time.Location) string {
	var b strings.Builder
	b.WriteString("<b>🏆 This week's most popular events</b>\n")
	for i, r := range ranked {
		title := r.Event.Text
		if r.Event.Title != nil && *r.Event.Title != "" {
			title = *r.Event.Title
		}
		if len(title) > 60 {
			title = title[:57] + "..."
		}
		fmt.Fprintf(&b, "\n%d. %s — %d RSVPs", i+1, html.EscapeString(title), r.Count)
		if r.Event.Date != nil {
			fmt.Fprintf(&b, " (%s)", r.Event.Date.In(loc).Format(cardDateLayout))
		}
	}
	return b.String()
}
