package mail

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"expense-tracker/internal/config"

	"github.com/sendgrid/rest"
	"github.com/sendgrid/sendgrid-go"
	sgmail "github.com/sendgrid/sendgrid-go/helpers/mail"
)

var (
	// ErrDeliveryRejected means the provider refused this message; sending it again fails the same way
	ErrDeliveryRejected = errors.New("mail provider rejected the message")
	// ErrProviderUnavailable covers throttling and provider-side failures, which may clear up
	ErrProviderUnavailable = errors.New("mail provider unavailable")
)

type sendClient interface {
	SendWithContext(ctx context.Context, email *sgmail.SGMailV3) (*rest.Response, error)
}

// SendGridMailer delivers messages through the SendGrid v3 API
type SendGridMailer struct {
	client sendClient
	from   *sgmail.Email
	logger *slog.Logger
}

func NewSendGridMailer(cfg *config.MailConfig, logger *slog.Logger) MailerInterface {
	return &SendGridMailer{
		client: sendgrid.NewSendClient(cfg.SendGridAPIKey),
		from:   sgmail.NewEmail(cfg.FromName, cfg.FromEmail),
		logger: logger,
	}
}

// NewMailer picks SendGrid when an API key is configured and the log mailer otherwise
func NewMailer(cfg *config.MailConfig, logger *slog.Logger) MailerInterface {
	if cfg.SendGridAPIKey == "" {
		logger.Warn("SENDGRID_API_KEY not set, emails will only be logged")
		return NewLogMailer(logger)
	}
	return NewSendGridMailer(cfg, logger)
}

func (m *SendGridMailer) Send(ctx context.Context, msg *Message) error {
	if err := msg.Validate(); err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}

	response, err := m.client.SendWithContext(ctx, m.build(msg))
	if err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}

	if response.StatusCode >= 300 {
		m.logger.ErrorContext(ctx, "sendgrid rejected email",
			"status", response.StatusCode,
			"body", response.Body,
			"to", msg.To,
		)
		return fmt.Errorf("%w: status %d", classifyStatus(response.StatusCode), response.StatusCode)
	}

	m.logger.InfoContext(ctx, "email sent",
		"to", msg.To,
		"subject", msg.Subject,
		"template_id", msg.TemplateID,
		"status", response.StatusCode,
	)

	return nil
}

func classifyStatus(status int) error {
	if status >= 400 && status < 500 && status != http.StatusTooManyRequests {
		return ErrDeliveryRejected
	}
	return ErrProviderUnavailable
}

func (m *SendGridMailer) build(msg *Message) *sgmail.SGMailV3 {
	to := sgmail.NewEmail(msg.ToName, msg.To)

	if msg.TemplateID == "" {
		return sgmail.NewV3MailInit(m.from, msg.Subject, to, sgmail.NewContent("text/plain", msg.PlainText))
	}

	email := sgmail.NewV3Mail()
	email.SetFrom(m.from)
	email.SetTemplateID(msg.TemplateID)

	personalization := sgmail.NewPersonalization()
	personalization.AddTos(to)
	for key, value := range msg.TemplateData {
		personalization.SetDynamicTemplateData(key, value)
	}
	email.AddPersonalizations(personalization)

	return email
}
