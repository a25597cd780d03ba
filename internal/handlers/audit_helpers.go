package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"topics-service/internal/middleware"
)

const requestIDContextKey = "request_id"

func requestIDFromContext(c *gin.Context) string {
	if val, ok := c.Get(requestIDContextKey); ok {
		if id, ok := val.(string); ok && id != "" {
			return id
		}
	}

	requestID := c.GetHeader("X-Request-ID")
	if requestID == "" {
		requestID = uuid.NewString()
	}
	c.Set(requestIDContextKey, requestID)
	return requestID
}

func userIDFromContext(c *gin.Context) *string {
	if identity, ok := middleware.IdentityFromContext(c); ok && identity.ID != "" {
		id := identity.ID
		return &id
	}
	return nil
}
