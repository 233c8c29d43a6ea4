package middleware

import (
	"strings"
	"wedding-registry/utils"

	"github.com/gin-gonic/gin"
)

// AuthRequired rejects requests without a valid session token.
func AuthRequired(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearerToken(c)
		if token == "" {
			utils.Unauthorized(c, "Authorization header required")
			c.Abort()
			return
		}

		session, err := utils.ParseToken(secret, token)
		if err != nil {
			utils.Unauthorized(c, "Invalid or expired token")
			c.Abort()
			return
		}

		utils.SetSession(c, session)
		c.Next()
	}
}

// OptionalAuth attaches the session when a valid token is present and lets
// anonymous requests through.
func OptionalAuth(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if token := bearerToken(c); token != "" {
			if session, err := utils.ParseToken(secret, token); err == nil {
				utils.SetSession(c, session)
			}
		}
		c.Next()
	}
}

func AdminOnly() gin.HandlerFunc {
	return requireRole(utils.RoleAdmin, "Admin access required")
}

func GuestOnly() gin.HandlerFunc {
	return requireRole(utils.RoleGuest, "Guest session required")
}

func requireRole(role utils.Role, message string) gin.HandlerFunc {
	return func(c *gin.Context) {
		session, ok := utils.GetSession(c)
		if !ok || session.Role != role {
			utils.Forbidden(c, message)
			c.Abort()
			return
		}
		c.Next()
	}
}

func bearerToken(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
