package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestTokenService(t *testing.T, accessTTL, refreshTTL time.Duration) TokenService {
	t.Helper()
	svc, err := NewTokenService(accessTTL, refreshTTL, "leadflow-test", "leadflow-api", false, "", "", "test-secret-key-at-least-32-chars!!")
	require.NoError(t, err)
	return svc
}

func TestNewTokenService(t *testing.T) {
	t.Run("requires a secret without RSA", func(t *testing.T) {
		_, err := NewTokenService(time.Minute, time.Hour, "iss", "aud", false, "", "", "")
		assert.Error(t, err)
	})

	t.Run("requires key material with RSA", func(t *testing.T) {
		_, err := NewTokenService(time.Minute, time.Hour, "iss", "aud", true, "", "", "")
		assert.Error(t, err)
	})
}

func TestGenerateAndValidateTokens(t *testing.T) {
	svc := newTestTokenService(t, 15*time.Minute, 24*time.Hour)

	access, refresh, err := svc.GenerateTokens(42)
	require.NoError(t, err)
	require.NotEmpty(t, access)
	require.NotEmpty(t, refresh)
	assert.NotEqual(t, access, refresh)

	accessClaims, err := svc.ValidateToken(access)
	require.NoError(t, err)
	assert.Equal(t, uint(42), accessClaims.UserID)
	assert.Equal(t, "access", accessClaims.TokenType)
	assert.NotEmpty(t, accessClaims.TokenID)
	assert.True(t, accessClaims.ExpiresAt.After(accessClaims.IssuedAt))

	refreshClaims, err := svc.ValidateToken(refresh)
	require.NoError(t, err)
	assert.Equal(t, "refresh", refreshClaims.TokenType)
	assert.NotEqual(t, accessClaims.TokenID, refreshClaims.TokenID)
}

func TestValidateTokenRejectsGarbage(t *testing.T) {
	svc := newTestTokenService(t, 15*time.Minute, 24*time.Hour)

	_, err := svc.ValidateToken("not.a.token")
	assert.ErrorIs(t, err, ErrTokenInvalid)

	// A token signed with a different secret must not validate.
	other := newTestTokenService(t, 15*time.Minute, 24*time.Hour)
	otherImpl := other.(*TokenServiceImpl)
	otherImpl.secretKey = []byte("a-completely-different-secret-key")
	foreign, _, err := other.GenerateTokens(7)
	require.NoError(t, err)

	_, err = svc.ValidateToken(foreign)
	assert.ErrorIs(t, err, ErrTokenInvalid)
}

func TestValidateTokenExpiry(t *testing.T) {
	svc := newTestTokenService(t, -time.Minute, 24*time.Hour)

	access, _, err := svc.GenerateTokens(42)
	require.NoError(t, err)

	_, err = svc.ValidateToken(access)
	assert.ErrorIs(t, err, ErrTokenExpired)
}

func TestRefreshToken(t *testing.T) {
	svc := newTestTokenService(t, 15*time.Minute, 24*time.Hour)

	_, refresh, err := svc.GenerateTokens(42)
	require.NoError(t, err)

	newAccess, newRefresh, err := svc.RefreshToken(refresh)
	require.NoError(t, err)

	claims, err := svc.ValidateToken(newAccess)
	require.NoError(t, err)
	assert.Equal(t, uint(42), claims.UserID)
	assert.Equal(t, "access", claims.TokenType)
	assert.NotEqual(t, refresh, newRefresh)
}

func TestRefreshTokenRejectsAccessToken(t *testing.T) {
	svc := newTestTokenService(t, 15*time.Minute, 24*time.Hour)

	access, _, err := svc.GenerateTokens(42)
	require.NoError(t, err)

	_, _, err = svc.RefreshToken(access)
	assert.Error(t, err)
}
