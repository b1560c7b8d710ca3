package auth

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"time"

	"fieldreport/pkg/types"
)

// OTPValidity is how long a one-time code stays usable after issuance.
const OTPValidity = 10 * time.Minute

// GenerateOTP returns a 6-digit numeric one-time code.
func GenerateOTP() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(900000))
	if err != nil {
		return "", fmt.Errorf("failed to generate code: %w", err)
	}

	return fmt.Sprintf("%d", n.Int64()+100000), nil
}

// OTPMatches reports whether the submitted code matches the account's stored
// code and the expiry has not passed. Expiry is checked lazily here; no
// background sweep clears stale codes.
func OTPMatches(user *types.User, code string) bool {
	if user.OTP == nil || user.OTPExpiry == nil {
		return false
	}
	if *user.OTP != code {
		return false
	}
	return time.Now().Before(*user.OTPExpiry)
}
