package entity

import "time"

// RSVPUpdate is a validated RSVP ready to be written. CompanionEmails are
// in submission order and already checked for shape and duplicates.
type RSVPUpdate struct {
	InviteID        string
	Status          RSVPStatus
	GuestCount      int
	Message         string
	RespondedAt     time.Time
	CompanionEmails []string
	NewToken        func() (string, error)
}

// ResetsCompanions reports whether every companion row must go.
func (u *RSVPUpdate) ResetsCompanions() bool {
	return u.Status != RSVPAttending || u.GuestCount == 0
}
