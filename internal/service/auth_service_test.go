package service

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Tilji-Thomas9137/hostelhaven-outpass-api/internal/models"
	appErrors "github.com/Tilji-Thomas9137/hostelhaven-outpass-api/pkg/errors"
)

func signToken(t *testing.T, secret string, claims *models.JWTClaims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	require.NoError(t, err)
	return signed
}

func studentClaims(expiry time.Time) *models.JWTClaims {
	return &models.JWTClaims{
		UserID:   "stu-1",
		Role:     models.RoleStudent,
		Email:    "student@example.com",
		FullName: "Test Student",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(expiry),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}
}

func TestValidateToken(t *testing.T) {
	svc := NewAuthService("test-secret")
	tokenString := signToken(t, "test-secret", studentClaims(time.Now().Add(time.Hour)))

	claims, err := svc.ValidateToken(tokenString)
	require.NoError(t, err)
	assert.Equal(t, "stu-1", claims.UserID)
	assert.Equal(t, models.RoleStudent, claims.Role)
}

func TestValidateTokenExpired(t *testing.T) {
	svc := NewAuthService("test-secret")
	tokenString := signToken(t, "test-secret", studentClaims(time.Now().Add(-time.Hour)))

	_, err := svc.ValidateToken(tokenString)
	require.Error(t, err)
	assert.True(t, appErrors.HasCode(err, appErrors.ErrNotAuthenticated))
}

func TestValidateTokenWrongSecret(t *testing.T) {
	svc := NewAuthService("test-secret")
	tokenString := signToken(t, "other-secret", studentClaims(time.Now().Add(time.Hour)))

	_, err := svc.ValidateToken(tokenString)
	require.Error(t, err)
	assert.True(t, appErrors.HasCode(err, appErrors.ErrNotAuthenticated))
}

func TestValidateTokenGarbage(t *testing.T) {
	svc := NewAuthService("test-secret")

	_, err := svc.ValidateToken("not.a.token")
	require.Error(t, err)
	assert.True(t, appErrors.HasCode(err, appErrors.ErrNotAuthenticated))
}
