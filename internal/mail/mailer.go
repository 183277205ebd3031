package mail

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
)

var (
	ErrNoRecipient = errors.New("message has no recipient")
	ErrNoContent   = errors.New("message has neither plain text nor a template")
)

// Message is a single transactional email. TemplateID selects a dynamic
// template and takes precedence over Subject and PlainText.
type Message struct {
	To           string                 `json:"to"`
	ToName       string                 `json:"to_name,omitempty"`
	Subject      string                 `json:"subject,omitempty"`
	PlainText    string                 `json:"plain_text,omitempty"`
	TemplateID   string                 `json:"template_id,omitempty"`
	TemplateData map[string]interface{} `json:"template_data,omitempty"`
}

func (m *Message) Validate() error {
	if strings.TrimSpace(m.To) == "" {
		return ErrNoRecipient
	}

	if m.TemplateID == "" && m.PlainText == "" {
		return ErrNoContent
	}

	return nil
}

// LogMailer writes messages to the log instead of delivering them.
// It stands in for SendGrid when no API key is configured.
type LogMailer struct {
	logger *slog.Logger
}

func NewLogMailer(logger *slog.Logger) MailerInterface {
	return &LogMailer{logger: logger}
}

func (m *LogMailer) Send(ctx context.Context, msg *Message) error {
	if err := msg.Validate(); err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}

	m.logger.InfoContext(ctx, "email not delivered, no mail provider configured",
		"to", msg.To,
		"subject", msg.Subject,
		"template_id", msg.TemplateID,
	)

	return nil
}
