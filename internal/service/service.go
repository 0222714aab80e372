package service

import (
	"context"
	"io"

	"github.com/Emmanuelayeni3000/ELIVRA-sub000/internal/entity"
)

type EventService interface {
	CreateEvent(ctx context.Context, userID string, req *CreateEventRequest) (*entity.Event, error)
	GetEvent(ctx context.Context, userID, id string) (*entity.Event, error)
	GetUserEvents(ctx context.Context, userID string) ([]*entity.Event, error)
	UpdateEvent(ctx context.Context, userID, id string, req *UpdateEventRequest) (*entity.Event, error)
	DeleteEvent(ctx context.Context, userID, id string) error
	GetEventStats(ctx context.Context, userID, id string) (*entity.EventStats, error)
}

type InviteService interface {
	// Guest list
	CreateInvite(ctx context.Context, userID, eventID string, req *CreateInviteRequest) (*entity.Invite, error)
	GetEventInvites(ctx context.Context, userID, eventID string) ([]*entity.Invite, error)
	UpdateInvite(ctx context.Context, userID, id string, req *UpdateInviteRequest) (*entity.Invite, error)
	DeleteInvite(ctx context.Context, userID, id string) error
	GetInviteQR(ctx context.Context, userID, id string) (*InviteQR, error)

	// CSV
	ImportInvites(ctx context.Context, userID, eventID string, r io.Reader) (*ImportResult, error)
	ExportInvites(ctx context.Context, userID, eventID string, w io.Writer) error

	// Bulk sends
	SendEventInvitations(ctx context.Context, userID, eventID string) (*BulkResult, error)
	SendBulkInvitations(ctx context.Context, userID string, inviteIDs []string) (*BulkResult, error)
}

// RSVPService is the guest-facing side, authorized by invite token only.
type RSVPService interface {
	Resolve(ctx context.Context, token string) (*entity.InviteDetails, error)
	GetRSVP(ctx context.Context, token string) (*entity.InviteDetails, error)
	SubmitRSVP(ctx context.Context, token string, req *SubmitRSVPRequest) (*RSVPResult, error)
	GetCompanionInvite(ctx context.Context, token string) (*CompanionInviteView, error)
}

type ReminderService interface {
	SendReminders(ctx context.Context, userID string, req *SendRemindersRequest) (*BulkResult, error)
	GetEventReminders(ctx context.Context, userID, eventID string) ([]*entity.Reminder, error)
}

type AuthService interface {
	Register(ctx context.Context, req *RegisterRequest) (*AuthResponse, error)
	Login(ctx context.Context, req *LoginRequest) (*AuthResponse, error)
	ParseToken(token string) (string, error)
}

// NotificationService hands messages to the mailer. Send reports the
// delivery result; Deliver is best effort and queues failures for retry.
type NotificationService interface {
	Send(ctx context.Context, n *Notification) error
	Deliver(ctx context.Context, n *Notification)
	NotifyRSVP(ctx context.Context, notice *RSVPNotice)
}

// BulkResult aggregates a loop of independent sends.
type BulkResult struct {
	Sent    int          `json:"sent"`
	Failed  int          `json:"failed"`
	Details []BulkDetail `json:"details"`
}

type BulkDetail struct {
	InviteID  string `json:"inviteId"`
	GuestName string `json:"guestName,omitempty"`
	Email     string `json:"email,omitempty"`
	Status    string `json:"status"`
	Error     string `json:"error,omitempty"`
}

const (
	bulkStatusSent   = "sent"
	bulkStatusFailed = "failed"
)

func newBulkResult() *BulkResult {
	return &BulkResult{Details: make([]BulkDetail, 0)}
}

func (r *BulkResult) succeed(invite *entity.Invite) {
	r.Sent++
	r.Details = append(r.Details, BulkDetail{
		InviteID:  invite.ID,
		GuestName: invite.GuestName,
		Email:     invite.Email,
		Status:    bulkStatusSent,
	})
}

func (r *BulkResult) fail(inviteID string, invite *entity.Invite, err error) {
	r.Failed++
	detail := BulkDetail{InviteID: inviteID, Status: bulkStatusFailed, Error: err.Error()}
	if invite != nil {
		detail.GuestName = invite.GuestName
		detail.Email = invite.Email
	}
	r.Details = append(r.Details, detail)
}
