package middlewares

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/pooria159/grosha-backend/config"
	"github.com/pooria159/grosha-backend/utils"
)

// AuthMiddleware validates the bearer token and stores the caller identity
// on the context for handlers.
func AuthMiddleware(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Missing or malformed authorization header"})
			return
		}

		claims, err := utils.ParseToken(cfg.JWTSecret, strings.TrimPrefix(header, "Bearer "))
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired token"})
			return
		}

		c.Set("userID", claims.UserID)
		c.Set("isStaff", claims.IsStaff)
		c.Next()
	}
}

// CallerID returns the authenticated user id set by AuthMiddleware.
func CallerID(c *gin.Context) (int64, bool) {
	v, ok := c.Get("userID")
	if !ok {
		return 0, false
	}
	id, ok := v.(int64)
	return id, ok
}

// CallerIsStaff reports whether the authenticated user has the staff flag.
func CallerIsStaff(c *gin.Context) bool {
	v, ok := c.Get("isStaff")
	if !ok {
		return false
	}
	staff, _ := v.(bool)
	return staff
}
