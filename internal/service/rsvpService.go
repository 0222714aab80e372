package service

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	repository "github.com/Emmanuelayeni3000/ELIVRA-sub000/internal/database/postgres"
	"github.com/Emmanuelayeni3000/ELIVRA-sub000/internal/entity"
	"github.com/Emmanuelayeni3000/ELIVRA-sub000/pkg/broker"
	"github.com/Emmanuelayeni3000/ELIVRA-sub000/pkg/token"
	"github.com/sirupsen/logrus"
)

// SubmitRSVPRequest is the guest's form. Fields are checked by SubmitRSVP
// in a fixed order, so none are required at the binding level.
type SubmitRSVPRequest struct {
	Response       string   `json:"response"`
	BringingGuests string   `json:"bringingGuests"`
	GuestCount     int      `json:"guestCount" binding:"min=0"`
	GuestEmails    []string `json:"guestEmails"`
	Message        string   `json:"message" binding:"max=2000"`
}

type RSVPResult struct {
	Message string         `json:"message"`
	Guest   *entity.Invite `json:"guest"`
}

// CompanionInviteView is what a companion sees when following their link.
type CompanionInviteView struct {
	Email     string        `json:"email"`
	GuestName string        `json:"guestName"`
	Event     *entity.Event `json:"event"`
}

const EventRSVPSubmitted = "rsvp.submitted"

type rsvpService struct {
	eventRepo     repository.EventRepository
	inviteRepo    repository.InviteRepository
	companionRepo repository.CompanionRepository
	userRepo      repository.UserRepository
	notifications NotificationService
	publisher     broker.Publisher
	now           func() time.Time
	newToken      func() (string, error)
}

func NewRSVPService(
	eventRepo repository.EventRepository,
	inviteRepo repository.InviteRepository,
	companionRepo repository.CompanionRepository,
	userRepo repository.UserRepository,
	notifications NotificationService,
	publisher broker.Publisher,
) RSVPService {
	if publisher == nil {
		publisher = broker.NoopPublisher{}
	}
	return &rsvpService{
		eventRepo:     eventRepo,
		inviteRepo:    inviteRepo,
		companionRepo: companionRepo,
		userRepo:      userRepo,
		notifications: notifications,
		publisher:     publisher,
		now:           time.Now,
		newToken:      token.Generate,
	}
}

// findInvite tries, in order: exact qr_code, qr_code containing the token
// (legacy rows holding a full URL), then the invite id itself.
func (s *rsvpService) findInvite(ctx context.Context, token string) (*entity.Invite, error) {
	lookups := []func(context.Context, string) (*entity.Invite, error){
		s.inviteRepo.FindByQRCode,
		s.inviteRepo.FindByQRCodeContaining,
		s.inviteRepo.GetByID,
	}

	for _, lookup := range lookups {
		invite, err := lookup(ctx, token)
		if err == nil {
			return invite, nil
		}
		if !errors.Is(err, entity.ErrNotFound) {
			return nil, err
		}
	}
	return nil, entity.ErrInviteNotFound
}

func (s *rsvpService) Resolve(ctx context.Context, token string) (*entity.InviteDetails, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, entity.ErrInviteNotFound
	}

	invite, err := s.findInvite(ctx, token)
	if err != nil {
		return nil, err
	}

	event, err := s.eventRepo.GetByID(ctx, invite.EventID)
	if err != nil {
		return nil, fmt.Errorf("failed to load event for invite: %w", err)
	}

	companions, err := s.companionRepo.GetByInvite(ctx, invite.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load companions: %w", err)
	}

	return &entity.InviteDetails{Invite: invite, Event: event, Companions: companions}, nil
}

func (s *rsvpService) GetRSVP(ctx context.Context, token string) (*entity.InviteDetails, error) {
	details, err := s.Resolve(ctx, token)
	if err != nil {
		return nil, err
	}

	now := s.now()
	if details.Event.HasPassed(now) {
		return nil, entity.ErrEventExpired
	}

	if details.Invite.ViewedAt == nil {
		if err := s.inviteRepo.MarkViewed(ctx, details.Invite.ID, now); err != nil {
			logrus.WithField("invite_id", details.Invite.ID).WithError(err).Warn("Failed to record invite view")
		} else {
			viewed := now.UTC()
			details.Invite.ViewedAt = &viewed
		}
	}

	return details, nil
}

// validateRSVP turns a submission into an update, failing on the first
// rule broken. Nothing is written here.
func validateRSVP(invite *entity.Invite, event *entity.Event, req *SubmitRSVPRequest) (*entity.RSVPUpdate, error) {
	limit := entity.EffectiveGuestLimit(invite, event)

	status, ok := entity.ParseRSVPStatus(req.Response)
	if !ok || status == entity.RSVPPending {
		return nil, entity.NewValidationError(entity.CodeInvalidResponse,
			"response must be %q or %q", entity.RSVPAttending, entity.RSVPNotAttending)
	}

	bringing := status == entity.RSVPAttending && strings.EqualFold(strings.TrimSpace(req.BringingGuests), "yes")
	if bringing {
		if limit <= 0 {
			return nil, entity.NewValidationError(entity.CodeNoGuestsAllowed, "this invitation does not allow additional guests")
		}
		if req.GuestCount <= 0 {
			return nil, entity.NewValidationError(entity.CodeGuestCountRequired, "please tell us how many guests you are bringing")
		}
		if req.GuestCount > limit {
			return nil, entity.NewValidationError(entity.CodeGuestLimitExceeded,
				"you can bring a maximum of %d additional guest(s)", limit)
		}
	}

	additional := 0
	if bringing {
		additional = req.GuestCount
	}

	var emails []string
	if additional > 0 {
		for _, e := range req.GuestEmails {
			if e = strings.TrimSpace(e); e != "" {
				emails = append(emails, e)
			}
		}
		if len(emails) != additional {
			return nil, entity.NewValidationError(entity.CodeGuestEmailCountMismatch,
				"please provide exactly %d guest email(s), got %d", additional, len(emails))
		}

		var invalid []string
		for _, e := range emails {
			if !entity.IsValidEmail(e) {
				invalid = append(invalid, e)
			}
		}
		if len(invalid) > 0 {
			return nil, entity.NewValidationError(entity.CodeInvalidGuestEmail,
				"invalid guest email(s): %s", strings.Join(invalid, ", "))
		}

		seen := make(map[string]string, len(emails))
		var duplicates []string
		for _, e := range emails {
			key := entity.NormalizeEmail(e)
			if first, dup := seen[key]; dup {
				if !slices.Contains(duplicates, first) {
					duplicates = append(duplicates, first)
				}
				duplicates = append(duplicates, e)
				continue
			}
			seen[key] = e
		}
		if len(duplicates) > 0 {
			return nil, entity.NewValidationError(entity.CodeDuplicateGuestEmail,
				"duplicate guest email(s): %s", strings.Join(duplicates, ", "))
		}
	}

	return &entity.RSVPUpdate{
		InviteID:        invite.ID,
		Status:          status,
		GuestCount:      additional,
		Message:         strings.TrimSpace(req.Message),
		CompanionEmails: emails,
	}, nil
}

func (s *rsvpService) SubmitRSVP(ctx context.Context, token string, req *SubmitRSVPRequest) (*RSVPResult, error) {
	details, err := s.Resolve(ctx, token)
	if err != nil {
		return nil, err
	}
	invite, event := details.Invite, details.Event

	now := s.now()
	if event.HasPassed(now) {
		return nil, entity.ErrEventExpired
	}

	update, err := validateRSVP(invite, event, req)
	if err != nil {
		return nil, err
	}
	update.RespondedAt = now
	update.NewToken = s.newToken

	links, err := s.inviteRepo.ApplyRSVP(ctx, update)
	if err != nil {
		return nil, fmt.Errorf("failed to save rsvp: %w", err)
	}

	saved, err := s.inviteRepo.GetByID(ctx, invite.ID)
	if err != nil {
		logrus.WithField("invite_id", invite.ID).WithError(err).Warn("Failed to reload invite after rsvp")
		saved = appliedInvite(invite, update)
	}

	logrus.WithFields(logrus.Fields{
		"invite_id":   saved.ID,
		"event_id":    event.ID,
		"status":      saved.RSVPStatus,
		"guest_count": saved.GuestCount,
		"companions":  len(links),
	}).Info("RSVP recorded")

	// the rsvp is committed; a client hanging up must not cancel the emails
	s.afterCommit(context.WithoutCancel(ctx), saved, event, links)

	return &RSVPResult{Message: rsvpThanks(saved.RSVPStatus), Guest: saved}, nil
}

// appliedInvite is the invite as ApplyRSVP wrote it.
func appliedInvite(invite *entity.Invite, update *entity.RSVPUpdate) *entity.Invite {
	applied := *invite
	respondedAt := update.RespondedAt.UTC()
	applied.RSVPStatus = update.Status
	applied.GuestCount = update.GuestCount
	applied.Message = update.Message
	applied.RSVPAt = &respondedAt
	applied.UpdatedAt = respondedAt
	return &applied
}

// afterCommit runs the notifications and the domain event. Nothing here
// can undo the RSVP.
func (s *rsvpService) afterCommit(ctx context.Context, invite *entity.Invite, event *entity.Event, links []entity.CompanionLink) {
	var owner *entity.User
	if u, err := s.userRepo.GetByID(ctx, event.UserID); err != nil {
		logrus.WithField("event_id", event.ID).WithError(err).Warn("Event owner not found, skipping owner notification")
	} else {
		owner = u
	}

	s.notifications.NotifyRSVP(ctx, &RSVPNotice{
		Invite:     invite,
		Event:      event,
		Owner:      owner,
		Companions: links,
	})

	err := s.publisher.Publish(ctx, &broker.Event{
		Type:       EventRSVPSubmitted,
		Key:        invite.ID,
		OccurredAt: s.now().UTC(),
		Payload: map[string]interface{}{
			"inviteId":   invite.ID,
			"eventId":    event.ID,
			"status":     string(invite.RSVPStatus),
			"guestCount": invite.GuestCount,
			"companions": len(links),
		},
	})
	if err != nil {
		logrus.WithField("invite_id", invite.ID).WithError(err).Warn("Failed to publish rsvp event")
	}
}

func rsvpThanks(status entity.RSVPStatus) string {
	if status == entity.RSVPAttending {
		return "Thank you! We look forward to celebrating with you."
	}
	return "Thank you for letting us know. You will be missed."
}

func (s *rsvpService) GetCompanionInvite(ctx context.Context, token string) (*CompanionInviteView, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, entity.ErrNotFound
	}

	companion, err := s.companionRepo.GetByToken(ctx, token)
	if err != nil {
		return nil, err
	}

	invite, err := s.inviteRepo.GetByID(ctx, companion.InviteID)
	if err != nil {
		return nil, fmt.Errorf("failed to load invite for companion: %w", err)
	}

	event, err := s.eventRepo.GetByID(ctx, invite.EventID)
	if err != nil {
		return nil, fmt.Errorf("failed to load event for companion: %w", err)
	}

	return &CompanionInviteView{
		Email:     companion.Email,
		GuestName: invite.GuestName,
		Event:     event,
	}, nil
}
