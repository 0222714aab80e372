package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	repository "github.com/Emmanuelayeni3000/ELIVRA-sub000/internal/database/postgres"
	"github.com/Emmanuelayeni3000/ELIVRA-sub000/internal/entity"
	"github.com/sirupsen/logrus"
)

type CreateEventRequest struct {
	Title       string            `json:"title" binding:"required,min=1,max=255"`
	Date        entity.CustomTime `json:"date"`
	Time        string            `json:"time" binding:"max=50"`
	Location    string            `json:"location" binding:"max=255"`
	Description string            `json:"description" binding:"max=2000"`
	DressCode   string            `json:"dressCode" binding:"max=100"`
	Hashtag     string            `json:"hashtag" binding:"max=100"`
	GuestLimit  *int              `json:"guestLimit" binding:"omitempty,min=0,max=100"`
}

type UpdateEventRequest struct {
	Title       *string            `json:"title,omitempty" binding:"omitempty,min=1,max=255"`
	Date        *entity.CustomTime `json:"date,omitempty"`
	Time        *string            `json:"time,omitempty"`
	Location    *string            `json:"location,omitempty"`
	Description *string            `json:"description,omitempty"`
	DressCode   *string            `json:"dressCode,omitempty"`
	Hashtag     *string            `json:"hashtag,omitempty"`
	GuestLimit  *int               `json:"guestLimit,omitempty" binding:"omitempty,min=0,max=100"`
}

type eventService struct {
	eventRepo  repository.EventRepository
	inviteRepo repository.InviteRepository
}

func NewEventService(eventRepo repository.EventRepository, inviteRepo repository.InviteRepository) EventService {
	return &eventService{
		eventRepo:  eventRepo,
		inviteRepo: inviteRepo,
	}
}

// ownedEvent loads an event and hides it from everyone but its owner.
func ownedEvent(ctx context.Context, events repository.EventRepository, userID, eventID string) (*entity.Event, error) {
	event, err := events.GetByID(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if event.UserID != userID {
		return nil, entity.ErrEventNotFound
	}
	return event, nil
}

// ownedInvite loads an invite whose event belongs to userID.
func ownedInvite(ctx context.Context, events repository.EventRepository, invites repository.InviteRepository, userID, inviteID string) (*entity.Invite, *entity.Event, error) {
	invite, err := invites.GetByID(ctx, inviteID)
	if err != nil {
		return nil, nil, err
	}
	event, err := ownedEvent(ctx, events, userID, invite.EventID)
	if err != nil {
		if errors.Is(err, entity.ErrNotFound) {
			return nil, nil, entity.ErrInviteNotFound
		}
		return nil, nil, err
	}
	return invite, event, nil
}

func validateEventDate(date time.Time) error {
	if date.IsZero() {
		return entity.NewValidationError(entity.CodeInvalidInput, "event date is required")
	}
	if !date.After(time.Now()) {
		return entity.NewValidationError(entity.CodeInvalidInput, "event date must be in the future")
	}
	return nil
}

func (s *eventService) CreateEvent(ctx context.Context, userID string, req *CreateEventRequest) (*entity.Event, error) {
	if err := validateEventDate(req.Date.Time); err != nil {
		return nil, err
	}

	event := &entity.Event{
		UserID:      userID,
		Title:       strings.TrimSpace(req.Title),
		Date:        req.Date.Time,
		Time:        req.Time,
		Location:    req.Location,
		Description: req.Description,
		DressCode:   req.DressCode,
		Hashtag:     req.Hashtag,
		GuestLimit:  req.GuestLimit,
	}

	if err := s.eventRepo.Create(ctx, event); err != nil {
		return nil, fmt.Errorf("failed to create event: %w", err)
	}

	logrus.WithFields(logrus.Fields{
		"event_id": event.ID,
		"user_id":  userID,
	}).Info("Event created")

	return event, nil
}

func (s *eventService) GetEvent(ctx context.Context, userID, id string) (*entity.Event, error) {
	return ownedEvent(ctx, s.eventRepo, userID, id)
}

func (s *eventService) GetUserEvents(ctx context.Context, userID string) ([]*entity.Event, error) {
	events, err := s.eventRepo.GetByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get events: %w", err)
	}
	return events, nil
}

func (s *eventService) UpdateEvent(ctx context.Context, userID, id string, req *UpdateEventRequest) (*entity.Event, error) {
	event, err := ownedEvent(ctx, s.eventRepo, userID, id)
	if err != nil {
		return nil, err
	}

	if req.Title != nil {
		event.Title = strings.TrimSpace(*req.Title)
	}
	if req.Date != nil {
		if err := validateEventDate(req.Date.Time); err != nil {
			return nil, err
		}
		event.Date = req.Date.Time
	}
	if req.Time != nil {
		event.Time = *req.Time
	}
	if req.Location != nil {
		event.Location = *req.Location
	}
	if req.Description != nil {
		event.Description = *req.Description
	}
	if req.DressCode != nil {
		event.DressCode = *req.DressCode
	}
	if req.Hashtag != nil {
		event.Hashtag = *req.Hashtag
	}
	if req.GuestLimit != nil {
		event.GuestLimit = req.GuestLimit
		if err := s.checkConfirmedGuests(ctx, event); err != nil {
			return nil, err
		}
	}

	if err := s.eventRepo.Update(ctx, event); err != nil {
		return nil, fmt.Errorf("failed to update event: %w", err)
	}

	return event, nil
}

// checkConfirmedGuests rejects an event limit that attending guests without
// their own override have already gone past.
func (s *eventService) checkConfirmedGuests(ctx context.Context, event *entity.Event) error {
	invites, err := s.inviteRepo.GetByEvent(ctx, event.ID)
	if err != nil {
		return fmt.Errorf("failed to get invites: %w", err)
	}

	var over []string
	for _, invite := range invites {
		if entity.ExceedsGuestLimit(invite, event) {
			over = append(over, invite.GuestName)
		}
	}
	if len(over) > 0 {
		return entity.NewValidationError(entity.CodeGuestLimitExceeded,
			"guest limit is below what these guests already confirmed: %s", strings.Join(over, ", "))
	}
	return nil
}

func (s *eventService) DeleteEvent(ctx context.Context, userID, id string) error {
	if _, err := ownedEvent(ctx, s.eventRepo, userID, id); err != nil {
		return err
	}

	if err := s.eventRepo.Delete(ctx, id); err != nil {
		return fmt.Errorf("failed to delete event: %w", err)
	}

	logrus.WithField("event_id", id).Info("Event deleted")
	return nil
}

func (s *eventService) GetEventStats(ctx context.Context, userID, id string) (*entity.EventStats, error) {
	if _, err := ownedEvent(ctx, s.eventRepo, userID, id); err != nil {
		return nil, err
	}

	invites, err := s.inviteRepo.GetByEvent(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get invites: %w", err)
	}

	return entity.CalculateStats(id, invites), nil
}
