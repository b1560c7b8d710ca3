package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/lestrrat-go/jwx/v3/jwa"
	"github.com/lestrrat-go/jwx/v3/jwt"
)

const issuer = "fieldreport"

// RoleAdmin is the role claim embedded in administrator tokens. User tokens
// carry no role claim.
const RoleAdmin = "admin"

// Identity is the verified content of a bearer token.
type Identity struct {
	AccountID string
	Email     string
	Role      string
}

func (i Identity) IsAdmin() bool {
	return i.Role == RoleAdmin
}

// TokenManager issues and verifies signed, time-limited bearer tokens.
type TokenManager struct {
	secret   []byte
	userTTL  time.Duration
	adminTTL time.Duration
}

func NewTokenManager(secret string, userTTL, adminTTL time.Duration) (*TokenManager, error) {
	if secret == "" {
		return nil, errors.New("token secret must not be empty")
	}

	return &TokenManager{
		secret:   []byte(secret),
		userTTL:  userTTL,
		adminTTL: adminTTL,
	}, nil
}

// IssueUserToken signs a long-lived token carrying only the account id.
func (m *TokenManager) IssueUserToken(userID string) (string, error) {
	return m.issue(userID, "", "", m.userTTL)
}

// IssueAdminToken signs a token carrying the admin's id, email and role.
func (m *TokenManager) IssueAdminToken(adminID, email string) (string, error) {
	return m.issue(adminID, email, RoleAdmin, m.adminTTL)
}

func (m *TokenManager) issue(subject, email, role string, ttl time.Duration) (string, error) {
	now := time.Now()

	builder := jwt.NewBuilder().
		Issuer(issuer).
		Subject(subject).
		IssuedAt(now).
		Expiration(now.Add(ttl))

	if email != "" {
		builder = builder.Claim("email", email)
	}
	if role != "" {
		builder = builder.Claim("role", role)
	}

	token, err := builder.Build()
	if err != nil {
		return "", fmt.Errorf("failed to build token: %w", err)
	}

	signed, err := jwt.Sign(token, jwt.WithKey(jwa.HS256(), m.secret))
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}

	return string(signed), nil
}

// Verify parses and validates a signed token and extracts its identity.
func (m *TokenManager) Verify(signed string) (*Identity, error) {
	token, err := jwt.Parse(
		[]byte(signed),
		jwt.WithKey(jwa.HS256(), m.secret),
		jwt.WithValidate(true),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to parse token: %w", err)
	}

	subject, ok := token.Subject()
	if !ok || subject == "" {
		return nil, errors.New("token has no subject")
	}

	identity := &Identity{AccountID: subject}

	var email string
	if err := token.Get("email", &email); err == nil {
		identity.Email = email
	}

	var role string
	if err := token.Get("role", &role); err == nil {
		identity.Role = role
	}

	return identity, nil
}
