package middleware

import (
	"net/http"
	"strings"

	"corewatch/internal/services"

	"github.com/gin-gonic/gin"
)

// ClaimsKey is the gin context key holding validated token claims
const ClaimsKey = "claims"

// ExtractToken reads a bearer token from the Authorization header, falling
// back to the token query parameter for browser WebSockets.
func ExtractToken(c *gin.Context) string {
	if header := c.GetHeader("Authorization"); strings.HasPrefix(header, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
	}
	return c.Query("token")
}

// AuthMiddleware rejects requests without a valid dashboard token
func AuthMiddleware() gin.HandlerFunc {
	validator := NewInputValidator()
	return func(c *gin.Context) {
		token := ExtractToken(c)
		if token == "" {
			if GlobalSecurityLogger != nil {
				GlobalSecurityLogger.LogFailedAuth(c.ClientIP(), "missing token")
			}
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing token"})
			return
		}
		if !validator.ValidateToken(token) {
			if GlobalSecurityLogger != nil {
				GlobalSecurityLogger.LogFailedAuth(c.ClientIP(), "malformed token")
			}
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}

		claims, err := services.ValidateToken(token)
		if err != nil {
			if GlobalSecurityLogger != nil {
				GlobalSecurityLogger.LogFailedAuth(c.ClientIP(), "invalid token: "+err.Error())
			}
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}

		c.Set(ClaimsKey, claims)
		c.Next()
	}
}
