package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// ActorID returns the authenticated user's ID set by the auth
// middleware.
func ActorID(c *gin.Context) (uuid.UUID, error) {
	return uuid.Parse(c.GetString("user_id"))
}
