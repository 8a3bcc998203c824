package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/Tilji-Thomas9137/hostelhaven-outpass-api/internal/models"
	"github.com/Tilji-Thomas9137/hostelhaven-outpass-api/internal/service"
	appErrors "github.com/Tilji-Thomas9137/hostelhaven-outpass-api/pkg/errors"
	"github.com/Tilji-Thomas9137/hostelhaven-outpass-api/pkg/response"
)

// ContextSessionKey is the gin context key storing the validated session.
const ContextSessionKey = "currentSession"

// JWT protects routes by requiring a valid bearer token. The raw token is
// kept on the session so downstream calls can forward the caller's
// credential to hostel-core. Absence or expiry fails here, before any
// network call is attempted.
func JWT(authService *service.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			response.Error(c, appErrors.ErrNotAuthenticated)
			c.Abort()
			return
		}

		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			response.Error(c, appErrors.Clone(appErrors.ErrNotAuthenticated, "invalid authorization header"))
			c.Abort()
			return
		}

		claims, err := authService.ValidateToken(parts[1])
		if err != nil {
			response.Error(c, err)
			c.Abort()
			return
		}

		c.Set(ContextSessionKey, &models.Session{Claims: claims, Token: parts[1]})
		c.Next()
	}
}
