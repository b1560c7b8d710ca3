package notify

import "context"

// Client is the production Gateway backed by the SMS provider and SMTP.
type Client struct {
	sms  *SMSClient
	mail *MailClient
}

func NewClient(sms *SMSClient, mail *MailClient) *Client {
	return &Client{sms: sms, mail: mail}
}

func (c *Client) SendSMS(ctx context.Context, phone, message string) error {
	return c.sms.Send(ctx, phone, message)
}

func (c *Client) SendEmail(ctx context.Context, to, subject, body string) error {
	return c.mail.Send(ctx, to, subject, body)
}
