package mail

import "context"

// MailerInterface delivers transactional email
type MailerInterface interface {
	Send(ctx context.Context, msg *Message) error
}
