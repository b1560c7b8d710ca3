package notify

import "context"

// Gateway delivers one-time codes and reminders through external transports.
// Implementations are pure side effects and hold no state about recipients.
type Gateway interface {
	SendSMS(ctx context.Context, phone, message string) error
	SendEmail(ctx context.Context, to, subject, body string) error
}
