package service

import (
	"testing"
	"time"

	"github.com/examforge/examforge-backend/internal/config"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuthService_RoundTrip(t *testing.T) {
	auth := NewAuthService(&config.Config{JWTSecret: "secret", SessionTTL: time.Hour})

	token, expires, err := auth.IssueSessionToken("s1", "c1")
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Hour), expires, 5*time.Second)

	claims, err := auth.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "s1", claims.SessionID)
	assert.Equal(t, "c1", claims.ClassID)
	assert.Equal(t, "s1", claims.Subject)
}

func TestAuthService_RejectsForeignSecret(t *testing.T) {
	a := NewAuthService(&config.Config{JWTSecret: "one", SessionTTL: time.Hour})
	b := NewAuthService(&config.Config{JWTSecret: "two", SessionTTL: time.Hour})

	token, _, err := a.IssueSessionToken("s1", "c1")
	require.NoError(t, err)

	_, err = b.ValidateToken(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestAuthService_RejectsExpired(t *testing.T) {
	auth := NewAuthService(&config.Config{JWTSecret: "secret", SessionTTL: time.Minute})
	auth.now = func() time.Time { return time.Now().Add(-time.Hour) }

	token, _, err := auth.IssueSessionToken("s1", "c1")
	require.NoError(t, err)

	auth.now = time.Now
	_, err = auth.ValidateToken(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestAuthService_RejectsOtherAlgorithms(t *testing.T) {
	auth := NewAuthService(&config.Config{JWTSecret: "secret", SessionTTL: time.Hour})

	unsigned := jwt.NewWithClaims(jwt.SigningMethodNone, SessionClaims{SessionID: "s1", ClassID: "c1"})
	token, err := unsigned.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = auth.ValidateToken(token)
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = auth.ValidateToken("not-a-token")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestAuthService_RequiresSessionClaims(t *testing.T) {
	auth := NewAuthService(&config.Config{JWTSecret: "secret", SessionTTL: time.Hour})

	token, _, err := auth.IssueSessionToken("", "c1")
	require.NoError(t, err)

	_, err = auth.ValidateToken(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}
