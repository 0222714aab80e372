package entity

import (
	"regexp"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

type RSVPStatus string

const (
	RSVPPending      RSVPStatus = "pending"
	RSVPAttending    RSVPStatus = "attending"
	RSVPNotAttending RSVPStatus = "not-attending"
)

// legacy aliases still found in older rows and clients
const (
	rsvpLegacyAccepted = "accepted"
	rsvpLegacyDeclined = "declined"
)

// ParseRSVPStatus maps a stored or submitted value onto the canonical set.
func ParseRSVPStatus(s string) (RSVPStatus, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case string(RSVPPending), "":
		return RSVPPending, true
	case string(RSVPAttending), rsvpLegacyAccepted:
		return RSVPAttending, true
	case string(RSVPNotAttending), rsvpLegacyDeclined, "not_attending":
		return RSVPNotAttending, true
	}
	return "", false
}

// NormalizeRSVPStatus is ParseRSVPStatus for values read from storage.
func NormalizeRSVPStatus(s string) RSVPStatus {
	if st, ok := ParseRSVPStatus(s); ok {
		return st
	}
	return RSVPPending
}

type Invite struct {
	ID         string     `json:"id" db:"id"`
	EventID    string     `json:"eventId" db:"event_id"`
	GuestName  string     `json:"guestName" db:"guest_name"`
	Email      string     `json:"email,omitempty" db:"email"`
	Phone      string     `json:"phone,omitempty" db:"phone"`
	QRCode     string     `json:"qrCode" db:"qr_code"`
	GuestLimit *int       `json:"guestLimit" db:"guest_limit"`
	GuestCount int        `json:"guestCount" db:"guest_count"`
	RSVPStatus RSVPStatus `json:"rsvpStatus" db:"rsvp_status"`
	Message    string     `json:"message,omitempty" db:"message"`
	SentAt     *time.Time `json:"sentAt" db:"sent_at"`
	ViewedAt   *time.Time `json:"viewedAt" db:"viewed_at"`
	RSVPAt     *time.Time `json:"rsvpAt" db:"rsvp_at"`
	CreatedAt  time.Time  `json:"createdAt" db:"created_at"`
	UpdatedAt  time.Time  `json:"updatedAt" db:"updated_at"`
}

// InviteDetails is an invite loaded with its event and companions.
type InviteDetails struct {
	Invite     *Invite            `json:"guest"`
	Event      *Event             `json:"event"`
	Companions []*CompanionInvite `json:"companions"`
}

// ExceedsGuestLimit reports whether an attending invite has confirmed more
// companions than its effective limit now allows.
func ExceedsGuestLimit(invite *Invite, event *Event) bool {
	return invite.RSVPStatus == RSVPAttending && invite.GuestCount > EffectiveGuestLimit(invite, event)
}

// EffectiveGuestLimit is the invite override, else the event default, else 0.
func EffectiveGuestLimit(invite *Invite, event *Event) int {
	if invite != nil && invite.GuestLimit != nil {
		return *invite.GuestLimit
	}
	if event != nil && event.GuestLimit != nil {
		return *event.GuestLimit
	}
	return 0
}

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// IsValidEmail checks the basic local@domain.tld shape.
func IsValidEmail(s string) bool {
	return emailPattern.MatchString(s)
}

// NormalizeEmail trims and lowercases an address. A Caser is stateful,
// so one is built per call.
func NormalizeEmail(s string) string {
	return cases.Lower(language.Und).String(strings.TrimSpace(s))
}
