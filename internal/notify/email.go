package notify

import (
	"context"
	"fmt"

	"github.com/wneessen/go-mail"
)

// MailConfig carries the SMTP settings for outbound mail.
type MailConfig struct {
	Host        string
	Port        uint
	Username    string
	Password    string
	FromName    string
	FromAddress string
}

// MailClient sends plain-text mail over SMTP.
type MailClient struct {
	config MailConfig
	client *mail.Client
}

func NewMailClient(config MailConfig) (*MailClient, error) {
	client, err := mail.NewClient(config.Host,
		mail.WithPort(int(config.Port)),
		mail.WithSMTPAuth(mail.SMTPAuthPlain),
		mail.WithUsername(config.Username),
		mail.WithPassword(config.Password),
		mail.WithTLSPortPolicy(mail.TLSOpportunistic),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create mail client: %w", err)
	}

	return &MailClient{config: config, client: client}, nil
}

func (c *MailClient) Send(ctx context.Context, to, subject, body string) error {
	msg := mail.NewMsg()

	if err := msg.FromFormat(c.config.FromName, c.config.FromAddress); err != nil {
		return fmt.Errorf("invalid from address: %w", err)
	}
	if err := msg.To(to); err != nil {
		return fmt.Errorf("invalid recipient address: %w", err)
	}

	msg.Subject(subject)
	msg.SetBodyString(mail.TypeTextPlain, body)

	if err := c.client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}

	return nil
}
