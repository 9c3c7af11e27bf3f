package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/medflow/medflow-api/internal/model"
	"github.com/medflow/medflow-api/internal/service/audit"
	"github.com/medflow/medflow-api/internal/service/rbac"
	pkgauth "github.com/medflow/medflow-api/pkg/auth"
)

const (
	ContextUserID    = "user_id"
	ContextUserEmail = "user_email"
	ContextUserRole  = "user_role"
)

type AuthMiddleware struct {
	jwt   pkgauth.JWTService
	rbac  rbac.Service
	audit audit.Service
}

func NewAuthMiddleware(jwt pkgauth.JWTService, rbacSvc rbac.Service, auditSvc audit.Service) *AuthMiddleware {
	return &AuthMiddleware{
		jwt:   jwt,
		rbac:  rbacSvc,
		audit: auditSvc,
	}
}

// Authenticate verifies the JWT bearer token and sets user info in context
func (m *AuthMiddleware) Authenticate() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"status": "error", "message": "missing authorization header"})
			c.Abort()
			return
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			c.JSON(http.StatusUnauthorized, gin.H{"status": "error", "message": "invalid authorization format"})
			c.Abort()
			return
		}

		claims, err := m.jwt.ValidateToken(parts[1])
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"status": "error", "message": "invalid token"})
			c.Abort()
			return
		}

		c.Set(ContextUserID, claims.UserID.String())
		c.Set(ContextUserEmail, claims.Email)
		c.Set(ContextUserRole, claims.Role)
		c.Next()
	}
}

// RequirePermission denies unless the caller holds the permission,
// either through their primary role or a role assigned to them.
// Missing or unknown identities deny.
func (m *AuthMiddleware) RequirePermission(permission string) gin.HandlerFunc {
	return func(c *gin.Context) {
		role := c.GetString(ContextUserRole)
		userID, perr := uuid.Parse(c.GetString(ContextUserID))

		allowed := false
		if perr == nil {
			var err error
			allowed, err = m.rbac.HasPermission(c.Request.Context(), userID, role, permission)
			if err != nil {
				allowed = false
			}
		}

		if !allowed {
			if perr == nil {
				m.audit.Log(c.Request.Context(), &audit.LogOptions{
					UserID:     userID,
					Action:     model.AuditActionDenied,
					EntityType: model.AuditEntityUser,
					EntityID:   userID,
					IPAddress:  c.ClientIP(),
					UserAgent:  c.Request.UserAgent(),
					Metadata: map[string]interface{}{
						"permission": permission,
						"path":       c.Request.URL.Path,
					},
				})
			}
			c.JSON(http.StatusForbidden, gin.H{"status": "error", "message": "permission denied"})
			c.Abort()
			return
		}

		c.Next()
	}
}
