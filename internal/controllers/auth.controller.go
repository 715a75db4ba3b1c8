package controllers

import (
	"log"
	"net/http"

	"corewatch/internal/middleware"
	"corewatch/internal/services"

	"github.com/gin-gonic/gin"
)

// HandleTokenStatus checks a dashboard token. Tokens are issued by the CLI
// only, never over HTTP.
func HandleTokenStatus(c *gin.Context) {
	token := middleware.ExtractToken(c)
	if token == "" {
		if middleware.GlobalSecurityLogger != nil {
			middleware.GlobalSecurityLogger.LogFailedAuth(c.ClientIP(), "missing token in header or query")
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": "token required in Authorization header or query parameter"})
		return
	}

	claims, err := services.ValidateToken(token)
	if err != nil {
		if middleware.GlobalSecurityLogger != nil {
			middleware.GlobalSecurityLogger.LogFailedAuth(c.ClientIP(), "invalid token: "+err.Error())
		}
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
		return
	}

	log.Printf("[AUTH] Token valid for endpoint %s from %s", claims.Endpoint, c.ClientIP())
	c.JSON(http.StatusOK, gin.H{
		"valid":      true,
		"endpoint":   claims.Endpoint,
		"expires_at": claims.ExpiresAt.Time,
		"issued_at":  claims.IssuedAt.Time,
	})
}
