package auth

import (
	"testing"
	"time"

	"yatube/internal/models"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret-at-least-32-characters!!"

func TestSessionRoundTrip(t *testing.T) {
	m := NewManager(testSecret, time.Hour)
	user := &models.User{ID: 42, Username: "leo"}

	token, issued, err := m.IssueSession(user)
	require.NoError(t, err)
	assert.NotEmpty(t, issued.ID)

	claims, err := m.ParseSession(token)
	require.NoError(t, err)
	assert.Equal(t, "leo", claims.Username)
	assert.Equal(t, issued.ID, claims.ID)

	id, err := claims.UserID()
	require.NoError(t, err)
	assert.Equal(t, uint(42), id)
}

func TestParseSession_Rejects(t *testing.T) {
	m := NewManager(testSecret, time.Hour)
	user := &models.User{ID: 1, Username: "leo"}

	t.Run("wrong secret", func(t *testing.T) {
		token, _, err := NewManager("another-secret-at-least-32-characters", time.Hour).IssueSession(user)
		require.NoError(t, err)
		_, err = m.ParseSession(token)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("expired", func(t *testing.T) {
		past := NewManager(testSecret, time.Hour)
		past.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
		token, _, err := past.IssueSession(user)
		require.NoError(t, err)
		_, err = m.ParseSession(token)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("reset token used as session", func(t *testing.T) {
		token, err := m.IssueReset(&models.User{ID: 1, Password: "hash"})
		require.NoError(t, err)
		_, err = m.ParseSession(token)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("none algorithm", func(t *testing.T) {
		claims := jwt.RegisteredClaims{
			Subject:   "1",
			Issuer:    Issuer,
			Audience:  jwt.ClaimStrings{SessionAud},
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		}
		token, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
		require.NoError(t, err)
		_, err = m.ParseSession(token)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("garbage", func(t *testing.T) {
		_, err := m.ParseSession("not.a.token")
		assert.ErrorIs(t, err, ErrInvalidToken)
	})
}

func TestResetToken(t *testing.T) {
	m := NewManager(testSecret, time.Hour)
	user := &models.User{ID: 5, Password: "$2a$10$original"}

	token, err := m.IssueReset(user)
	require.NoError(t, err)
	assert.NoError(t, m.CheckReset(token, user))

	other := &models.User{ID: 6, Password: user.Password}
	assert.ErrorIs(t, m.CheckReset(token, other), ErrInvalidToken)

	changed := &models.User{ID: 5, Password: "$2a$10$changed"}
	assert.ErrorIs(t, m.CheckReset(token, changed), ErrInvalidToken)

	late := NewManager(testSecret, time.Hour)
	late.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	assert.ErrorIs(t, late.CheckReset(token, user), ErrInvalidToken)
}

func TestUIDEncoding(t *testing.T) {
	uid := EncodeUID(123)
	id, err := DecodeUID(uid)
	require.NoError(t, err)
	assert.Equal(t, uint(123), id)

	_, err = DecodeUID("***")
	assert.ErrorIs(t, err, ErrInvalidToken)
	_, err = DecodeUID(EncodeUID(0))
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestPasswordHashing(t *testing.T) {
	hash, err := HashPassword("War-And-Peace-1869")
	require.NoError(t, err)
	assert.True(t, CheckPassword(hash, "War-And-Peace-1869"))
	assert.False(t, CheckPassword(hash, "wrong"))
}
