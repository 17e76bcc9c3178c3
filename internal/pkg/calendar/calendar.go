package calendar

import (
	"net/url"
	"time"

	"github.com/unipulse/unipulse-bot/internal/app/models"
)

const gcalTimeLayout = "20060102T150405"

// GoogleCalendarURL builds a Google Calendar deep link for an event, or ""
// when the event has no start date. Events without an end date get a
// two-hour default duration.
func GoogleCalendarURL(ev *models.Event) string {
	if ev == nil || ev.Date == nil {
		return ""
	}

	title := ""
	if ev.Title != nil {
		title = *ev.Title
	}
	if title == "" {
		title = truncate(ev.Text, 50)
	}

	description := ""
	if ev.Description != nil {
		description = *ev.Description
	}
	if description == "" {
		description = truncate(ev.Text, 200)
	}

	location := ""
	if ev.Location != nil {
		location = *ev.Location
	}

	start := *ev.Date
	end := start.Add(2 * time.Hour)
	if ev.EndDate != nil {
		end = *ev.EndDate
	}

	q := url.Values{}
	q.Set("action", "TEMPLATE")
	q.Set("text", title)
	q.Set("dates", start.Format(gcalTimeLayout)+"/"+end.Format(gcalTimeLayout))
	q.Set("details", description)
	q.Set("location", location)

	return "https://calendar.google.com/calendar/render?" + q.Encode()
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
