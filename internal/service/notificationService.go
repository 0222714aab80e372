package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/Emmanuelayeni3000/ELIVRA-sub000/config"
	"github.com/Emmanuelayeni3000/ELIVRA-sub000/internal/entity"
	"github.com/Emmanuelayeni3000/ELIVRA-sub000/pkg/mailer"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

type NotificationType string

const (
	NotifyConfirmation      NotificationType = "confirmation"
	NotifyCompanionInvite   NotificationType = "companion-invite"
	NotifyOwnerNotification NotificationType = "owner-notification"
	NotifyInvitation        NotificationType = "invitation"
	NotifyReminder          NotificationType = "reminder"
)

// maximum companion emails in flight at once
const companionSendLimit = 4

const eventDateLayout = "Monday, January 2, 2006"

type Notification struct {
	Type          NotificationType
	Recipient     string
	RecipientName string
	Subject       string
	Text          string
	TemplateData  map[string]string
}

func (n *Notification) message() *mailer.Message {
	return &mailer.Message{
		Type:    string(n.Type),
		To:      n.Recipient,
		ToName:  n.RecipientName,
		Subject: n.Subject,
		Text:    n.Text,
		Data:    n.TemplateData,
	}
}

// RSVPNotice is what the post-commit fan-out needs about one submission.
type RSVPNotice struct {
	Invite     *entity.Invite
	Event      *entity.Event
	Owner      *entity.User
	Companions []entity.CompanionLink
}

type notificationService struct {
	mailer     mailer.Mailer
	queue      TaskPublisher
	app        *config.AppConfig
	maxRetries int
}

// NewNotificationService builds the dispatcher. queue may be nil, in which
// case failed deliveries are only logged.
func NewNotificationService(m mailer.Mailer, queue TaskPublisher, app *config.AppConfig, maxRetries int) NotificationService {
	return &notificationService{
		mailer:     m,
		queue:      queue,
		app:        app,
		maxRetries: maxRetries,
	}
}

func (s *notificationService) Send(ctx context.Context, n *Notification) error {
	if strings.TrimSpace(n.Recipient) == "" {
		return fmt.Errorf("%w: no email on file", mailer.ErrRejected)
	}
	if err := s.mailer.Send(ctx, n.message()); err != nil {
		return fmt.Errorf("failed to send %s email: %w", n.Type, err)
	}
	return nil
}

func (s *notificationService) Deliver(ctx context.Context, n *Notification) {
	err := s.Send(ctx, n)
	if err == nil {
		return
	}

	log := logrus.WithFields(logrus.Fields{
		"type":      n.Type,
		"recipient": mailer.MaskEmail(n.Recipient),
	})
	log.WithError(err).Warn("Notification delivery failed")

	if s.queue == nil || errors.Is(err, mailer.ErrRejected) {
		return
	}

	task := &Task{
		Type:       TaskTypeSendEmail,
		Data:       EmailTaskData(n.message()),
		MaxRetries: s.maxRetries,
	}
	if err := s.queue.Publish(ctx, task); err != nil {
		log.WithError(err).Error("Failed to queue notification for retry")
		return
	}
	log.Info("Notification queued for retry")
}

// NotifyRSVP sends the guest confirmation, the companion invitations and
// the owner notification. Failures are handled by Deliver.
func (s *notificationService) NotifyRSVP(ctx context.Context, notice *RSVPNotice) {
	invite, event := notice.Invite, notice.Event

	if invite.Email != "" {
		s.Deliver(ctx, s.confirmation(invite, event))
	}

	if len(notice.Companions) > 0 {
		var g errgroup.Group
		g.SetLimit(companionSendLimit)
		for _, link := range notice.Companions {
			n := s.companionInvite(invite, event, link)
			g.Go(func() error {
				s.Deliver(ctx, n)
				return nil
			})
		}
		_ = g.Wait()
	}

	if notice.Owner != nil && notice.Owner.Email != "" {
		s.Deliver(ctx, s.ownerNotification(invite, event, notice.Owner))
	}
}

func eventData(event *entity.Event) map[string]string {
	return map[string]string{
		"eventTitle":    event.Title,
		"eventDate":     event.Date.Format(eventDateLayout),
		"eventTime":     event.Time,
		"eventLocation": event.Location,
		"dressCode":     event.DressCode,
		"hashtag":       event.Hashtag,
	}
}

func responseLabel(status entity.RSVPStatus) string {
	if status == entity.RSVPAttending {
		return "attending"
	}
	return "not attending"
}

func (s *notificationService) confirmation(invite *entity.Invite, event *entity.Event) *Notification {
	data := eventData(event)
	data["guestName"] = invite.GuestName
	data["response"] = responseLabel(invite.RSVPStatus)
	data["guestCount"] = strconv.Itoa(invite.GuestCount)
	data["rsvpLink"] = s.app.RSVPLink(InviteToken(invite))

	text := fmt.Sprintf("Hi %s,\n\nThank you for your RSVP to %s on %s. We have you down as %s",
		invite.GuestName, event.Title, data["eventDate"], data["response"])
	if invite.GuestCount > 0 {
		text += fmt.Sprintf(" with %d additional guest(s)", invite.GuestCount)
	}
	text += fmt.Sprintf(".\n\nYou can change your response at %s\n", data["rsvpLink"])

	return &Notification{
		Type:          NotifyConfirmation,
		Recipient:     invite.Email,
		RecipientName: invite.GuestName,
		Subject:       fmt.Sprintf("RSVP confirmed: %s", event.Title),
		Text:          text,
		TemplateData:  data,
	}
}

func (s *notificationService) companionInvite(invite *entity.Invite, event *entity.Event, link entity.CompanionLink) *Notification {
	data := eventData(event)
	data["guestName"] = invite.GuestName
	data["companionEmail"] = link.Email
	data["companionLink"] = s.app.CompanionLink(link.Token)

	return &Notification{
		Type:      NotifyCompanionInvite,
		Recipient: link.Email,
		Subject:   fmt.Sprintf("%s invited you to %s", invite.GuestName, event.Title),
		Text: fmt.Sprintf("Hello,\n\n%s is bringing you as a guest to %s on %s at %s.\n\nYour invitation: %s\n",
			invite.GuestName, event.Title, data["eventDate"], event.Location, data["companionLink"]),
		TemplateData: data,
	}
}

func (s *notificationService) ownerNotification(invite *entity.Invite, event *entity.Event, owner *entity.User) *Notification {
	data := eventData(event)
	data["ownerName"] = owner.Name
	data["guestName"] = invite.GuestName
	data["response"] = responseLabel(invite.RSVPStatus)
	data["guestCount"] = strconv.Itoa(invite.GuestCount)
	data["message"] = invite.Message

	text := fmt.Sprintf("%s responded %s to %s", invite.GuestName, data["response"], event.Title)
	if invite.GuestCount > 0 {
		text += fmt.Sprintf(" with %d additional guest(s)", invite.GuestCount)
	}
	text += ".\n"
	if invite.Message != "" {
		text += fmt.Sprintf("\nMessage: %s\n", invite.Message)
	}

	return &Notification{
		Type:          NotifyOwnerNotification,
		Recipient:     owner.Email,
		RecipientName: owner.Name,
		Subject:       fmt.Sprintf("New RSVP from %s", invite.GuestName),
		Text:          text,
		TemplateData:  data,
	}
}

func invitationNotification(app *config.AppConfig, invite *entity.Invite, event *entity.Event, qrDataURL string) *Notification {
	data := eventData(event)
	data["guestName"] = invite.GuestName
	data["rsvpLink"] = app.RSVPLink(InviteToken(invite))
	data["qrCode"] = qrDataURL

	return &Notification{
		Type:          NotifyInvitation,
		Recipient:     invite.Email,
		RecipientName: invite.GuestName,
		Subject:       fmt.Sprintf("You're invited: %s", event.Title),
		Text: fmt.Sprintf("Dear %s,\n\nYou are invited to %s on %s at %s, %s.\n\nPlease RSVP at %s\n",
			invite.GuestName, event.Title, data["eventDate"], event.Time, event.Location, data["rsvpLink"]),
		TemplateData: data,
	}
}

func reminderNotification(app *config.AppConfig, invite *entity.Invite, event *entity.Event, kind entity.ReminderType, message string) *Notification {
	data := eventData(event)
	data["guestName"] = invite.GuestName
	data["rsvpLink"] = app.RSVPLink(InviteToken(invite))
	data["reminderType"] = string(kind)
	data["message"] = message

	subject := fmt.Sprintf("Reminder: %s", event.Title)
	switch kind {
	case entity.ReminderRSVP, entity.ReminderDeadline:
		subject = fmt.Sprintf("Please RSVP for %s", event.Title)
	case entity.ReminderFinal, entity.ReminderUrgent:
		subject = fmt.Sprintf("Last chance to RSVP for %s", event.Title)
	}

	return &Notification{
		Type:          NotifyReminder,
		Recipient:     invite.Email,
		RecipientName: invite.GuestName,
		Subject:       subject,
		Text: fmt.Sprintf("Dear %s,\n\n%s\n\n%s on %s at %s.\nRSVP: %s\n",
			invite.GuestName, message, event.Title, data["eventDate"], event.Location, data["rsvpLink"]),
		TemplateData: data,
	}
}

// EmailTaskData flattens a message into queue task data.
func EmailTaskData(msg *mailer.Message) map[string]interface{} {
	data := make(map[string]interface{}, len(msg.Data))
	for k, v := range msg.Data {
		data[k] = v
	}
	return map[string]interface{}{
		"type":    msg.Type,
		"to":      msg.To,
		"to_name": msg.ToName,
		"subject": msg.Subject,
		"text":    msg.Text,
		"data":    data,
	}
}

// InviteToken is the link parameter for an invite. Legacy rows that stored
// a full URL yield its last path segment, which the resolver matches by
// substring; rows with no token fall back to the invite id.
func InviteToken(invite *entity.Invite) string {
	token := strings.TrimSpace(invite.QRCode)
	if token == "" {
		return invite.ID
	}
	if i := strings.LastIndexByte(strings.TrimRight(token, "/"), '/'); i >= 0 {
		return strings.TrimRight(token, "/")[i+1:]
	}
	return token
}
