package models

import "time"

// RSVPStatus is the tri-state attendance status for an RSVP
type RSVPStatus string

const (
	RSVPGoing      RSVPStatus = "going"
	RSVPInterested RSVPStatus = "interested"
)

// Valid reports whether the status is a known RSVP state.
func (s RSVPStatus) Valid() bool {
	return s == RSVPGoing || s == RSVPInterested
}

// RSVP represents an (event, account) attendance row based on the 'rsvps'
// table. There is at most one row per pair; status changes overwrite it
// through an atomic upsert.
type RSVP struct {
	ID        int64      `json:"id" db:"id"`
	EventID   int64      `json:"eventId" db:"event_id"`
	AccountID int64      `json:"accountId" db:"account_id"`
	Status    RSVPStatus `json:"status" db:"status"`
	CreatedAt time.Time  `json:"createdAt" db:"created_at"`
	UpdatedAt time.Time  `json:"updatedAt" db:"updated_at"`
}

// RSVPCounts carries per-event attendance totals
type RSVPCounts struct {
	Going      int `json:"going"`
	Interested int `json:"interested"`
}

// Total returns the combined RSVP count used for trending and the
// weekly roundup ranking.
func (c RSVPCounts) Total() int {
	return c.Going + c.Interested
}

// RankedEvent pairs an event with its total RSVP count for roundup ranking
type RankedEvent struct {
	Event *Event
	Count int
}
