package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/Tilji-Thomas9137/hostelhaven-outpass-api/internal/middleware"
	"github.com/Tilji-Thomas9137/hostelhaven-outpass-api/internal/models"
)

func sessionFromContext(c *gin.Context) *models.Session {
	value, exists := c.Get(middleware.ContextSessionKey)
	if !exists {
		return nil
	}
	session, ok := value.(*models.Session)
	if !ok {
		return nil
	}
	return session
}
