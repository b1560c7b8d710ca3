package types

type Config struct {
	Environment     string `envconfig:"ENVIRONMENT" default:"development"`
	ServerPort      uint   `envconfig:"SERVER_PORT" default:"8080"`
	DatabaseURL     string `envconfig:"DATABASE_URL"`
	ReadTimeoutSec  uint   `envconfig:"READ_TIMEOUT_SEC" default:"10"`
	WriteTimeoutSec uint   `envconfig:"WRITE_TIMEOUT_SEC" default:"15"`

	// Token signing
	JWTSecret          string `envconfig:"JWT_SECRET"`
	UserTokenTTLHours  uint   `envconfig:"USER_TOKEN_TTL_HOURS" default:"8760"` // 365 days
	AdminTokenTTLHours uint   `envconfig:"ADMIN_TOKEN_TTL_HOURS" default:"168"` // 7 days

	// Image storage. "local" writes under UploadDir and serves the files
	// back at /uploads, "s3" puts objects in S3Bucket and returns public URLs.
	StorageBackend string `envconfig:"STORAGE_BACKEND" default:"local"`
	UploadDir      string `envconfig:"UPLOAD_DIR" default:"uploads"`
	S3Bucket       string `envconfig:"S3_BUCKET"`
	S3Region       string `envconfig:"S3_REGION" default:"us-east-1"`
	MaxPhotoWidth  int    `envconfig:"MAX_PHOTO_WIDTH" default:"1200"`
	MaxSketchWidth int    `envconfig:"MAX_SKETCH_WIDTH" default:"1000"`
	JPEGQuality    int    `envconfig:"JPEG_QUALITY" default:"80"`

	// SMS provider (HTTP JSON API)
	SMSAPIKey    string `envconfig:"SMS_API_KEY"`
	SMSPartnerID string `envconfig:"SMS_PARTNER_ID"`
	SMSShortcode string `envconfig:"SMS_SHORTCODE"`
	SMSURL       string `envconfig:"SMS_URL"`

	// Outbound email (SMTP)
	MailHost        string `envconfig:"MAIL_HOST"`
	MailPort        uint   `envconfig:"MAIL_PORT" default:"587"`
	MailUsername    string `envconfig:"MAIL_USERNAME"`
	MailPassword    string `envconfig:"MAIL_PASSWORD"`
	MailFromName    string `envconfig:"MAIL_FROM_NAME" default:"Field Report"`
	MailFromAddress string `envconfig:"MAIL_FROM_ADDRESS"`

	// Reminder job. The cron expression is evaluated in ReminderTimezone,
	// never in the host's local zone.
	ReminderSchedule string `envconfig:"REMINDER_SCHEDULE" default:"0 17 * * 1-5"`
	ReminderTimezone string `envconfig:"REMINDER_TIMEZONE" default:"Africa/Nairobi"`
}
