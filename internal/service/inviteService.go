package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Emmanuelayeni3000/ELIVRA-sub000/config"
	repository "github.com/Emmanuelayeni3000/ELIVRA-sub000/internal/database/postgres"
	"github.com/Emmanuelayeni3000/ELIVRA-sub000/internal/entity"
	"github.com/Emmanuelayeni3000/ELIVRA-sub000/pkg/qrcode"
	"github.com/Emmanuelayeni3000/ELIVRA-sub000/pkg/token"
	"github.com/sirupsen/logrus"
)

type CreateInviteRequest struct {
	GuestName  string `json:"guestName" binding:"required,min=1,max=255"`
	Email      string `json:"email" binding:"max=255"`
	Phone      string `json:"phone" binding:"max=50"`
	GuestLimit *int   `json:"guestLimit" binding:"omitempty,min=0,max=100"`
}

type UpdateInviteRequest struct {
	GuestName  *string `json:"guestName,omitempty" binding:"omitempty,min=1,max=255"`
	Email      *string `json:"email,omitempty" binding:"omitempty,max=255"`
	Phone      *string `json:"phone,omitempty" binding:"omitempty,max=50"`
	GuestLimit *int    `json:"guestLimit,omitempty" binding:"omitempty,min=0,max=100"`
}

// InviteQR is the scannable form of an invite's RSVP link.
type InviteQR struct {
	QRCode string `json:"qrCode"`
	Link   string `json:"link"`
}

type inviteService struct {
	eventRepo     repository.EventRepository
	inviteRepo    repository.InviteRepository
	notifications NotificationService
	app           *config.AppConfig
	now           func() time.Time
}

func NewInviteService(
	eventRepo repository.EventRepository,
	inviteRepo repository.InviteRepository,
	notifications NotificationService,
	app *config.AppConfig,
) InviteService {
	return &inviteService{
		eventRepo:     eventRepo,
		inviteRepo:    inviteRepo,
		notifications: notifications,
		app:           app,
		now:           time.Now,
	}
}

func cleanEmail(email string) (string, error) {
	email = entity.NormalizeEmail(email)
	if email != "" && !entity.IsValidEmail(email) {
		return "", entity.NewValidationError(entity.CodeInvalidInput, "invalid email address: %s", email)
	}
	return email, nil
}

// newInvite builds an invite with a fresh canonical token.
func newInvite(eventID, name, email, phone string, guestLimit *int) (*entity.Invite, error) {
	qr, err := token.Generate()
	if err != nil {
		return nil, fmt.Errorf("failed to generate invite token: %w", err)
	}
	return &entity.Invite{
		EventID:    eventID,
		GuestName:  strings.TrimSpace(name),
		Email:      email,
		Phone:      strings.TrimSpace(phone),
		QRCode:     qr,
		GuestLimit: guestLimit,
		RSVPStatus: entity.RSVPPending,
	}, nil
}

func (s *inviteService) CreateInvite(ctx context.Context, userID, eventID string, req *CreateInviteRequest) (*entity.Invite, error) {
	if _, err := ownedEvent(ctx, s.eventRepo, userID, eventID); err != nil {
		return nil, err
	}

	email, err := cleanEmail(req.Email)
	if err != nil {
		return nil, err
	}

	invite, err := newInvite(eventID, req.GuestName, email, req.Phone, req.GuestLimit)
	if err != nil {
		return nil, err
	}
	if err := s.inviteRepo.Create(ctx, invite); err != nil {
		return nil, fmt.Errorf("failed to create invite: %w", err)
	}

	logrus.WithFields(logrus.Fields{
		"event_id":  eventID,
		"invite_id": invite.ID,
	}).Info("Invite created")

	return invite, nil
}

func (s *inviteService) GetEventInvites(ctx context.Context, userID, eventID string) ([]*entity.Invite, error) {
	if _, err := ownedEvent(ctx, s.eventRepo, userID, eventID); err != nil {
		return nil, err
	}

	invites, err := s.inviteRepo.GetByEvent(ctx, eventID)
	if err != nil {
		return nil, fmt.Errorf("failed to get invites: %w", err)
	}
	return invites, nil
}

func (s *inviteService) UpdateInvite(ctx context.Context, userID, id string, req *UpdateInviteRequest) (*entity.Invite, error) {
	invite, event, err := ownedInvite(ctx, s.eventRepo, s.inviteRepo, userID, id)
	if err != nil {
		return nil, err
	}

	if req.GuestName != nil {
		invite.GuestName = strings.TrimSpace(*req.GuestName)
	}
	if req.Email != nil {
		email, err := cleanEmail(*req.Email)
		if err != nil {
			return nil, err
		}
		invite.Email = email
	}
	if req.Phone != nil {
		invite.Phone = strings.TrimSpace(*req.Phone)
	}
	if req.GuestLimit != nil {
		invite.GuestLimit = req.GuestLimit
		if entity.ExceedsGuestLimit(invite, event) {
			return nil, entity.NewValidationError(entity.CodeGuestLimitExceeded,
				"%s already confirmed %d additional guest(s); the limit cannot go below that", invite.GuestName, invite.GuestCount)
		}
	}

	if err := s.inviteRepo.Update(ctx, invite); err != nil {
		return nil, fmt.Errorf("failed to update invite: %w", err)
	}
	return invite, nil
}

func (s *inviteService) DeleteInvite(ctx context.Context, userID, id string) error {
	if _, _, err := ownedInvite(ctx, s.eventRepo, s.inviteRepo, userID, id); err != nil {
		return err
	}
	if err := s.inviteRepo.Delete(ctx, id); err != nil {
		return fmt.Errorf("failed to delete invite: %w", err)
	}
	return nil
}

func (s *inviteService) GetInviteQR(ctx context.Context, userID, id string) (*InviteQR, error) {
	invite, _, err := ownedInvite(ctx, s.eventRepo, s.inviteRepo, userID, id)
	if err != nil {
		return nil, err
	}
	return s.qrFor(invite)
}

func (s *inviteService) qrFor(invite *entity.Invite) (*InviteQR, error) {
	link := s.app.RSVPLink(InviteToken(invite))
	img, err := qrcode.DataURL(link, s.app.QRSize)
	if err != nil {
		return nil, fmt.Errorf("failed to render qr code: %w", err)
	}
	return &InviteQR{QRCode: img, Link: link}, nil
}

func (s *inviteService) SendEventInvitations(ctx context.Context, userID, eventID string) (*BulkResult, error) {
	event, err := ownedEvent(ctx, s.eventRepo, userID, eventID)
	if err != nil {
		return nil, err
	}

	invites, err := s.inviteRepo.GetByEvent(ctx, eventID)
	if err != nil {
		return nil, fmt.Errorf("failed to get invites: %w", err)
	}

	result := newBulkResult()
	for _, invite := range invites {
		s.sendInvitation(ctx, event, invite, result)
	}

	logrus.WithFields(logrus.Fields{
		"event_id": eventID,
		"sent":     result.Sent,
		"failed":   result.Failed,
	}).Info("Invitations sent")

	return result, nil
}

// SendBulkInvitations sends to an arbitrary selection. Invites the caller
// does not own are reported as failed, not as an error.
func (s *inviteService) SendBulkInvitations(ctx context.Context, userID string, inviteIDs []string) (*BulkResult, error) {
	if len(inviteIDs) == 0 {
		return nil, entity.NewValidationError(entity.CodeInvalidInput, "inviteIds must not be empty")
	}

	invites, err := s.inviteRepo.GetByIDs(ctx, inviteIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to get invites: %w", err)
	}
	byID := make(map[string]*entity.Invite, len(invites))
	for _, invite := range invites {
		byID[invite.ID] = invite
	}

	events := make(map[string]*entity.Event)
	result := newBulkResult()
	for _, id := range inviteIDs {
		invite, ok := byID[id]
		if !ok {
			result.fail(id, nil, entity.ErrInviteNotFound)
			continue
		}

		event, ok := events[invite.EventID]
		if !ok {
			event, err = ownedEvent(ctx, s.eventRepo, userID, invite.EventID)
			if err != nil && !errors.Is(err, entity.ErrNotFound) {
				return nil, err
			}
			events[invite.EventID] = event
		}
		if event == nil {
			result.fail(id, nil, entity.ErrInviteNotFound)
			continue
		}

		s.sendInvitation(ctx, event, invite, result)
	}

	return result, nil
}

func (s *inviteService) sendInvitation(ctx context.Context, event *entity.Event, invite *entity.Invite, result *BulkResult) {
	if invite.Email == "" {
		result.fail(invite.ID, invite, errors.New("no email on file"))
		return
	}

	qr, err := s.qrFor(invite)
	if err != nil {
		result.fail(invite.ID, invite, err)
		return
	}

	if err := s.notifications.Send(ctx, invitationNotification(s.app, invite, event, qr.QRCode)); err != nil {
		logrus.WithFields(logrus.Fields{
			"invite_id": invite.ID,
			"event_id":  event.ID,
		}).WithError(err).Warn("Invitation not sent")
		result.fail(invite.ID, invite, err)
		return
	}

	if err := s.inviteRepo.MarkSent(ctx, invite.ID, s.now()); err != nil {
		logrus.WithField("invite_id", invite.ID).WithError(err).Error("Failed to mark invite sent")
	}
	result.succeed(invite)
}
