package entity

import "time"

type ReminderType string

const (
	ReminderGeneral  ReminderType = "general"
	ReminderRSVP     ReminderType = "rsvp"
	ReminderDeadline ReminderType = "deadline"
	ReminderFinal    ReminderType = "final"
	ReminderUrgent   ReminderType = "urgent"
)

func (t ReminderType) IsValid() bool {
	switch t {
	case ReminderGeneral, ReminderRSVP, ReminderDeadline, ReminderFinal, ReminderUrgent:
		return true
	}
	return false
}

type ReminderStatus string

const (
	ReminderSent   ReminderStatus = "sent"
	ReminderFailed ReminderStatus = "failed"
)

// Reminder is an append-only log entry for one dispatched reminder.
type Reminder struct {
	ID       string         `json:"id" db:"id"`
	InviteID string         `json:"inviteId" db:"invite_id"`
	EventID  string         `json:"eventId" db:"event_id"`
	Type     ReminderType   `json:"type" db:"type"`
	Message  string         `json:"message" db:"message"`
	Status   ReminderStatus `json:"status" db:"status"`
	SentAt   time.Time      `json:"sentAt" db:"sent_at"`
}
