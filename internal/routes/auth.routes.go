package routes

import (
	"corewatch/internal/controllers"
	"corewatch/internal/middleware"

	"github.com/gin-gonic/gin"
)

// RegisterAuthRoutes registers token status and the live view socket.
// Token generation must be done via CLI (no HTTP endpoints).
func RegisterAuthRoutes(r *gin.Engine, h *controllers.Handler, connectLimiter *middleware.RateLimiter) {
	r.GET("/auth/status", controllers.HandleTokenStatus)

	// WebSocket endpoint for live views
	r.GET("/ws",
		middleware.RateLimitMiddleware(connectLimiter),
		middleware.AuthMiddleware(),
		h.HandleWebSocket,
	)
}
