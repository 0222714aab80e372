package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Emmanuelayeni3000/ELIVRA-sub000/config"
	repository "github.com/Emmanuelayeni3000/ELIVRA-sub000/internal/database/postgres"
	"github.com/Emmanuelayeni3000/ELIVRA-sub000/internal/entity"
	"github.com/sirupsen/logrus"
)

// SendRemindersRequest targets the listed invites, or every invite of the
// event that has not answered yet when InviteIDs is empty.
type SendRemindersRequest struct {
	EventID   string              `json:"eventId" binding:"required"`
	InviteIDs []string            `json:"inviteIds"`
	Type      entity.ReminderType `json:"type"`
	Message   string              `json:"message" binding:"max=2000"`
}

type reminderService struct {
	eventRepo     repository.EventRepository
	inviteRepo    repository.InviteRepository
	reminderRepo  repository.ReminderRepository
	notifications NotificationService
	app           *config.AppConfig
	now           func() time.Time
}

func NewReminderService(
	eventRepo repository.EventRepository,
	inviteRepo repository.InviteRepository,
	reminderRepo repository.ReminderRepository,
	notifications NotificationService,
	app *config.AppConfig,
) ReminderService {
	return &reminderService{
		eventRepo:     eventRepo,
		inviteRepo:    inviteRepo,
		reminderRepo:  reminderRepo,
		notifications: notifications,
		app:           app,
		now:           time.Now,
	}
}

func (s *reminderService) targets(ctx context.Context, req *SendRemindersRequest) ([]*entity.Invite, []string, error) {
	if len(req.InviteIDs) == 0 {
		all, err := s.inviteRepo.GetByEvent(ctx, req.EventID)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to get invites: %w", err)
		}
		pending := make([]*entity.Invite, 0, len(all))
		for _, invite := range all {
			if invite.RSVPStatus == entity.RSVPPending {
				pending = append(pending, invite)
			}
		}
		return pending, nil, nil
	}

	found, err := s.inviteRepo.GetByIDs(ctx, req.InviteIDs)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get invites: %w", err)
	}
	byID := make(map[string]*entity.Invite, len(found))
	for _, invite := range found {
		if invite.EventID == req.EventID {
			byID[invite.ID] = invite
		}
	}

	invites := make([]*entity.Invite, 0, len(req.InviteIDs))
	var missing []string
	for _, id := range req.InviteIDs {
		if invite, ok := byID[id]; ok {
			invites = append(invites, invite)
		} else {
			missing = append(missing, id)
		}
	}
	return invites, missing, nil
}

func (s *reminderService) SendReminders(ctx context.Context, userID string, req *SendRemindersRequest) (*BulkResult, error) {
	if req.Type == "" {
		req.Type = entity.ReminderGeneral
	}
	if !req.Type.IsValid() {
		return nil, entity.NewValidationError(entity.CodeInvalidInput, "unknown reminder type %q", req.Type)
	}

	event, err := ownedEvent(ctx, s.eventRepo, userID, req.EventID)
	if err != nil {
		return nil, err
	}

	invites, missing, err := s.targets(ctx, req)
	if err != nil {
		return nil, err
	}

	result := newBulkResult()
	for _, id := range missing {
		result.fail(id, nil, entity.ErrInviteNotFound)
	}

	for _, invite := range invites {
		reminder := &entity.Reminder{
			InviteID: invite.ID,
			EventID:  event.ID,
			Type:     req.Type,
			Message:  req.Message,
			Status:   entity.ReminderSent,
			SentAt:   s.now(),
		}

		var sendErr error
		if invite.Email == "" {
			sendErr = errors.New("no email on file")
		} else {
			sendErr = s.notifications.Send(ctx, reminderNotification(s.app, invite, event, req.Type, req.Message))
		}
		if sendErr != nil {
			reminder.Status = entity.ReminderFailed
		}

		if err := s.reminderRepo.Create(ctx, reminder); err != nil {
			logrus.WithField("invite_id", invite.ID).WithError(err).Error("Failed to log reminder")
		}

		if sendErr != nil {
			result.fail(invite.ID, invite, sendErr)
			continue
		}
		result.succeed(invite)
	}

	logrus.WithFields(logrus.Fields{
		"event_id": event.ID,
		"type":     req.Type,
		"sent":     result.Sent,
		"failed":   result.Failed,
	}).Info("Reminders sent")

	return result, nil
}

func (s *reminderService) GetEventReminders(ctx context.Context, userID, eventID string) ([]*entity.Reminder, error) {
	if _, err := ownedEvent(ctx, s.eventRepo, userID, eventID); err != nil {
		return nil, err
	}

	reminders, err := s.reminderRepo.GetByEvent(ctx, eventID)
	if err != nil {
		return nil, fmt.Errorf("failed to get reminders: %w", err)
	}
	return reminders, nil
}
