// Package auth issues and verifies session and password reset tokens.
package auth

import (
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"time"

	"yatube/internal/models"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	Issuer        = "yatube"
	SessionAud    = "yatube-web"
	ResetAud      = "yatube-reset"
	ResetTokenTTL = time.Hour
)

// ErrInvalidToken covers every malformed, expired or mismatched token.
var ErrInvalidToken = errors.New("invalid or expired token")

// SessionClaims are carried by the session cookie.
type SessionClaims struct {
	Username string `json:"username"`
	jwt.RegisteredClaims
}

// UserID parses the subject back into a user id.
func (c *SessionClaims) UserID() (uint, error) {
	id, err := strconv.ParseUint(c.Subject, 10, 64)
	if err != nil || id == 0 {
		return 0, ErrInvalidToken
	}
	return uint(id), nil
}

// ResetClaims bind a reset link to the password hash it was issued against.
type ResetClaims struct {
	PasswordFingerprint string `json:"pwd"`
	jwt.RegisteredClaims
}

// Manager signs tokens with HS256.
type Manager struct {
	secret     []byte
	sessionTTL time.Duration
	now        func() time.Time
}

func NewManager(secret string, sessionTTL time.Duration) *Manager {
	return &Manager{secret: []byte(secret), sessionTTL: sessionTTL, now: time.Now}
}

// SessionTTL is how long an issued session stays valid.
func (m *Manager) SessionTTL() time.Duration {
	return m.sessionTTL
}

// IssueSession returns a signed session token for user.
func (m *Manager) IssueSession(user *models.User) (string, *SessionClaims, error) {
	now := m.now()
	claims := &SessionClaims{
		Username: user.Username,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatUint(uint64(user.ID), 10),
			Issuer:    Issuer,
			Audience:  jwt.ClaimStrings{SessionAud},
			ExpiresAt: jwt.NewNumericDate(now.Add(m.sessionTTL)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ID:        uuid.NewString(),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return "", nil, fmt.Errorf("sign session: %w", err)
	}
	return signed, claims, nil
}

// ParseSession verifies signature, issuer, audience and expiry.
func (m *Manager) ParseSession(token string) (*SessionClaims, error) {
	claims := &SessionClaims{}
	if err := m.parse(token, claims, SessionAud); err != nil {
		return nil, err
	}
	return claims, nil
}

// IssueReset returns a one-hour reset token that stops working once the password changes.
func (m *Manager) IssueReset(user *models.User) (string, error) {
	now := m.now()
	claims := &ResetClaims{
		PasswordFingerprint: fingerprint(user.Password),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatUint(uint64(user.ID), 10),
			Issuer:    Issuer,
			Audience:  jwt.ClaimStrings{ResetAud},
			ExpiresAt: jwt.NewNumericDate(now.Add(ResetTokenTTL)),
			IssuedAt:  jwt.NewNumericDate(now),
			ID:        uuid.NewString(),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return "", fmt.Errorf("sign reset token: %w", err)
	}
	return signed, nil
}

// CheckReset verifies token was issued for user and their current password.
func (m *Manager) CheckReset(token string, user *models.User) error {
	claims := &ResetClaims{}
	if err := m.parse(token, claims, ResetAud); err != nil {
		return err
	}
	if claims.Subject != strconv.FormatUint(uint64(user.ID), 10) {
		return ErrInvalidToken
	}
	if claims.PasswordFingerprint != fingerprint(user.Password) {
		return ErrInvalidToken
	}
	return nil
}

func (m *Manager) parse(token string, claims jwt.Claims, audience string) error {
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		return m.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(Issuer),
		jwt.WithAudience(audience),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(m.now),
	)
	if err != nil || !parsed.Valid {
		return ErrInvalidToken
	}
	return nil
}

func fingerprint(passwordHash string) string {
	sum := sha256.Sum256([]byte(passwordHash))
	return hex.EncodeToString(sum[:8])
}

// EncodeUID renders a user id for reset links.
func EncodeUID(id uint) string {
	return base64.RawURLEncoding.EncodeToString([]byte(strconv.FormatUint(uint64(id), 10)))
}

// DecodeUID reverses EncodeUID.
func DecodeUID(uid string) (uint, error) {
	raw, err := base64.RawURLEncoding.DecodeString(uid)
	if err != nil {
		return 0, ErrInvalidToken
	}
	id, err := strconv.ParseUint(string(raw), 10, 64)
	if err != nil || id == 0 {
		return 0, ErrInvalidToken
	}
	return uint(id), nil
}
