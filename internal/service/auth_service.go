package service

import (
	"fmt"

	"github.com/golang-jwt/jwt/v5"

	"github.com/Tilji-Thomas9137/hostelhaven-outpass-api/internal/models"
	appErrors "github.com/Tilji-Thomas9137/hostelhaven-outpass-api/pkg/errors"
)

// AuthService validates bearer credentials issued by the hostel identity
// service. Token issuance lives there, not here.
type AuthService struct {
	secret []byte
}

// NewAuthService constructs an AuthService with the shared signing secret.
func NewAuthService(secret string) *AuthService {
	return &AuthService{secret: []byte(secret)}
}

// ValidateToken parses and validates an access token returning the claims.
func (s *AuthService) ValidateToken(tokenString string) (*models.JWTClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &models.JWTClaims{}, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrNotAuthenticated.Code, appErrors.ErrNotAuthenticated.Status, "invalid token")
	}

	claims, ok := token.Claims.(*models.JWTClaims)
	if !ok || !token.Valid {
		return nil, appErrors.Clone(appErrors.ErrNotAuthenticated, "invalid token claims")
	}

	return claims, nil
}
