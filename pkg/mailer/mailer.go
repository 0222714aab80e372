package mailer

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
	"github.com/sirupsen/logrus"
)

// ErrRejected is returned when the provider refuses a message outright;
// resending the same message will not help.
var ErrRejected = errors.New("message rejected by provider")

const defaultHost = "https://api.sendgrid.com"

// Message is one outbound email. Data feeds the provider template; Text is
// the plain-text body used when no template is configured for Type.
type Message struct {
	Type    string            `json:"type"`
	To      string            `json:"to"`
	ToName  string            `json:"to_name"`
	Subject string            `json:"subject"`
	Text    string            `json:"text"`
	Data    map[string]string `json:"data"`
}

type Mailer interface {
	Send(ctx context.Context, msg *Message) error
}

type SendGridConfig struct {
	APIKey    string
	From      string
	FromName  string
	Host      string
	Templates map[string]string // message type -> dynamic template id
}

type SendGridMailer struct {
	cfg SendGridConfig
}

func NewSendGridMailer(cfg SendGridConfig) *SendGridMailer {
	if cfg.Host == "" {
		cfg.Host = defaultHost
	}
	return &SendGridMailer{cfg: cfg}
}

func (m *SendGridMailer) Send(ctx context.Context, msg *Message) error {
	if strings.TrimSpace(msg.To) == "" {
		return fmt.Errorf("%w: empty recipient", ErrRejected)
	}

	request := sendgrid.GetRequest(m.cfg.APIKey, "/v3/mail/send", m.cfg.Host)
	request.Method = http.MethodPost
	request.Body = mail.GetRequestBody(m.build(msg))

	response, err := sendgrid.MakeRequestWithContext(ctx, request)
	if err != nil {
		return fmt.Errorf("sendgrid request failed: %w", err)
	}

	switch {
	case response.StatusCode >= 200 && response.StatusCode < 300:
		logrus.WithFields(logrus.Fields{
			"type":   msg.Type,
			"status": response.StatusCode,
		}).Debug("Email sent")
		return nil
	case response.StatusCode >= 400 && response.StatusCode < 500 && response.StatusCode != http.StatusTooManyRequests:
		return fmt.Errorf("%w: status %d: %s", ErrRejected, response.StatusCode, response.Body)
	default:
		return fmt.Errorf("sendgrid returned status %d: %s", response.StatusCode, response.Body)
	}
}

func (m *SendGridMailer) build(msg *Message) *mail.SGMailV3 {
	v3 := mail.NewV3Mail()
	v3.SetFrom(mail.NewEmail(m.cfg.FromName, m.cfg.From))

	p := mail.NewPersonalization()
	p.AddTos(mail.NewEmail(msg.ToName, msg.To))
	p.Subject = msg.Subject

	if templateID := m.cfg.Templates[msg.Type]; templateID != "" {
		v3.SetTemplateID(templateID)
		for k, v := range msg.Data {
			p.SetDynamicTemplateData(k, v)
		}
		p.SetDynamicTemplateData("subject", msg.Subject)
	} else {
		v3.Subject = msg.Subject
		v3.AddContent(mail.NewContent("text/plain", msg.Text))
	}

	v3.AddPersonalizations(p)
	return v3
}

// LogMailer only logs; used when email delivery is disabled.
type LogMailer struct{}

func (LogMailer) Send(ctx context.Context, msg *Message) error {
	logrus.WithFields(logrus.Fields{
		"type":    msg.Type,
		"to":      MaskEmail(msg.To),
		"subject": msg.Subject,
	}).Info("Email delivery disabled, message logged")
	return nil
}

// MaskEmail keeps the first character of the local part for logs.
func MaskEmail(email string) string {
	at := strings.IndexByte(email, '@')
	if at <= 0 {
		return "***"
	}
	return email[:1] + "***" + email[at:]
}
