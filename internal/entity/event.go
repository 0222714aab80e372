package entity

import (
	"time"
)

type Event struct {
	ID          string    `json:"id" db:"id"`
	Title       string    `json:"title" db:"title"`
	Date        time.Time `json:"date" db:"date"`
	Time        string    `json:"time" db:"time"`
	Location    string    `json:"location" db:"location"`
	Description string    `json:"description" db:"description"`
	DressCode   string    `json:"dressCode" db:"dress_code"`
	Hashtag     string    `json:"hashtag" db:"hashtag"`
	GuestLimit  *int      `json:"guestLimit" db:"guest_limit"`
	UserID      string    `json:"userId" db:"user_id"`
	CreatedAt   time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt   time.Time `json:"updatedAt" db:"updated_at"`
}

// HasPassed reports whether the event date is not strictly after now.
func (e *Event) HasPassed(now time.Time) bool {
	return !e.Date.After(now)
}

// EventStats summarises guest responses for an event.
type EventStats struct {
	EventID        string     `json:"eventId"`
	TotalInvites   int        `json:"totalInvites"`
	Sent           int        `json:"sent"`
	Viewed         int        `json:"viewed"`
	Pending        int        `json:"pending"`
	Attending      int        `json:"attending"`
	NotAttending   int        `json:"notAttending"`
	Companions     int        `json:"companions"`
	ExpectedGuests int        `json:"expectedGuests"`
	ResponseRate   float64    `json:"responseRate"`
	LastResponseAt *time.Time `json:"lastResponseAt,omitempty"`
}

// CalculateStats folds invites into EventStats.
func CalculateStats(eventID string, invites []*Invite) *EventStats {
	stats := &EventStats{EventID: eventID, TotalInvites: len(invites)}

	for _, inv := range invites {
		if inv.SentAt != nil {
			stats.Sent++
		}
		if inv.ViewedAt != nil {
			stats.Viewed++
		}

		switch inv.RSVPStatus {
		case RSVPAttending:
			stats.Attending++
			stats.Companions += inv.GuestCount
		case RSVPNotAttending:
			stats.NotAttending++
		default:
			stats.Pending++
		}

		if inv.RSVPAt != nil && (stats.LastResponseAt == nil || inv.RSVPAt.After(*stats.LastResponseAt)) {
			t := *inv.RSVPAt
			stats.LastResponseAt = &t
		}
	}

	stats.ExpectedGuests = stats.Attending + stats.Companions
	if stats.TotalInvites > 0 {
		stats.ResponseRate = float64(stats.Attending+stats.NotAttending) / float64(stats.TotalInvites)
	}

	return stats
}
