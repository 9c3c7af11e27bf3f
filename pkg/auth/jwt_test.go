package auth

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestService(expiry time.Duration) JWTService {
	return NewJWTService(Config{
		Secret:        "access-secret",
		RefreshSecret: "refresh-secret",
		Expiry:        expiry,
		RefreshExpiry: expiry,
	})
}

func TestAccessTokenRoundTrip(t *testing.T) {
	svc := newTestService(time.Hour)
	userID := uuid.New()

	token, err := svc.GenerateAccessToken(userID, "doc@medflow.example", "doctor", []string{"patient:read"})
	require.NoError(t, err)

	claims, err := svc.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, userID, claims.UserID)
	assert.Equal(t, "doc@medflow.example", claims.Email)
	assert.Equal(t, "doctor", claims.Role)
	assert.Equal(t, []string{"patient:read"}, claims.Permissions)
	assert.Equal(t, tokenIssuer, claims.Issuer)
}

func TestExpiredTokenRejected(t *testing.T) {
	svc := newTestService(-time.Minute)

	token, err := svc.GenerateAccessToken(uuid.New(), "doc@medflow.example", "doctor", nil)
	require.NoError(t, err)

	_, err = svc.ValidateToken(token)
	assert.ErrorIs(t, err, ErrExpiredToken)
}

func TestRefreshTokenNotValidAsAccessToken(t *testing.T) {
	svc := newTestService(time.Hour)

	refresh, err := svc.GenerateRefreshToken(uuid.New(), "doc@medflow.example")
	require.NoError(t, err)

	// Signed with the refresh secret; the access validator must reject it.
	_, err = svc.ValidateToken(refresh)
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = svc.ValidateRefreshToken(refresh)
	assert.NoError(t, err)
}

func TestTamperedTokenRejected(t *testing.T) {
	svc := newTestService(time.Hour)

	token, err := svc.GenerateAccessToken(uuid.New(), "doc@medflow.example", "nurse", nil)
	require.NoError(t, err)

	_, err = svc.ValidateToken(token + "x")
	assert.ErrorIs(t, err, ErrInvalidToken)

	other := NewJWTService(Config{Secret: "different-secret", RefreshSecret: "other"})
	_, err = other.ValidateToken(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestGarbageTokenRejected(t *testing.T) {
	svc := newTestService(time.Hour)

	for _, tok := range []string{"", "abc", "a.b.c"} {
		_, err := svc.ValidateToken(tok)
		assert.ErrorIs(t, err, ErrInvalidToken)
	}
}
