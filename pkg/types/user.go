package types

import "time"

// User is a technician account. The password hash and any pending reset code
// never leave the API surface.
type User struct {
	ID               string     `db:"id" json:"id"`
	Name             string     `db:"name" json:"name"`
	Email            string     `db:"email" json:"email"`
	Phone            string     `db:"phone" json:"phone"`
	Password         string     `db:"password" json:"-"`
	OTP              *string    `db:"otp" json:"-"`
	OTPExpiry        *time.Time `db:"otp_expiry" json:"-"`
	RemindersEnabled bool       `db:"reminders_enabled" json:"remindersEnabled"`
	CreatedAt        time.Time  `db:"created_at" json:"createdAt"`
	UpdatedAt        time.Time  `db:"updated_at" json:"updatedAt"`
}

// Admin accounts are created only by the seed command, never through the API.
type Admin struct {
	ID        string    `db:"id" json:"id"`
	Email     string    `db:"email" json:"email"`
	Password  string    `db:"password" json:"-"`
	Name      string    `db:"name" json:"name"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt time.Time `db:"updated_at" json:"updatedAt"`
}
