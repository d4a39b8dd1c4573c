package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fixtrack/internal/config"
	"fixtrack/internal/models"
)

func testManager(secret string, now time.Time) *JWTManager {
	cfg := &config.Config{}
	cfg.JWT.Secret = secret
	cfg.JWT.ExpirationHours = 24
	cfg.JWT.Issuer = "fixtrack"
	m := NewJWTManager(cfg)
	m.now = func() time.Time { return now }
	return m
}

func TestTokenRoundTrip(t *testing.T) {
	now := time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC)
	m := testManager("s3cret", now)

	tok, err := m.GenerateToken(&models.User{ID: 42, Name: "Asha", Username: "asha", Role: models.RoleStaff})
	require.NoError(t, err)

	claims, err := m.ValidateToken(tok)
	require.NoError(t, err)
	assert.Equal(t, "42", claims.PrincipalID)
	assert.Equal(t, 42, claims.UserID())
	assert.Equal(t, "Asha", claims.DisplayName)
	assert.Equal(t, models.RoleStaff, claims.Role)
	assert.Equal(t, now.Add(24*time.Hour).Unix(), claims.ExpiresAt.Unix())
}

func TestValidateRejects(t *testing.T) {
	now := time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC)
	user := &models.User{ID: 1, Name: "Owner", Role: models.RoleAdmin}

	good, err := testManager("s3cret", now).GenerateToken(user)
	require.NoError(t, err)

	t.Run("wrong secret", func(t *testing.T) {
		_, err := testManager("other", now).ValidateToken(good)
		assert.Error(t, err)
	})

	t.Run("expired", func(t *testing.T) {
		_, err := testManager("s3cret", now.Add(25*time.Hour)).ValidateToken(good)
		assert.ErrorIs(t, err, jwt.ErrTokenExpired)
	})

	t.Run("no expiry", func(t *testing.T) {
		tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, &Claims{
			PrincipalID:      "1",
			RegisteredClaims: jwt.RegisteredClaims{Issuer: "fixtrack"},
		}).SignedString([]byte("s3cret"))
		require.NoError(t, err)
		_, err = testManager("s3cret", now).ValidateToken(tok)
		assert.Error(t, err)
	})

	t.Run("none algorithm", func(t *testing.T) {
		tok, err := jwt.NewWithClaims(jwt.SigningMethodNone, &Claims{PrincipalID: "1"}).
			SignedString(jwt.UnsafeAllowNoneSignatureType)
		require.NoError(t, err)
		_, err = testManager("s3cret", now).ValidateToken(tok)
		assert.Error(t, err)
	})
}

func TestPasswordHash(t *testing.T) {
	hash, err := HashPassword("hunter22")
	require.NoError(t, err)
	assert.NotEqual(t, "hunter22", hash)
	assert.True(t, VerifyPassword(hash, "hunter22"))
	assert.False(t, VerifyPassword(hash, "hunter23"))
}
