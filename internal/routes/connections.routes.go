package routes

import (
	"corewatch/internal/controllers"

	"github.com/gin-gonic/gin"
)

func RegisterConnectionRoutes(r gin.IRouter, h *controllers.Handler) {
	connections := r.Group("/connections")
	{
		connections.GET("", h.GetConnections)
		connections.DELETE("", h.CloseAllConnections)
		connections.DELETE("/:id", h.CloseConnection)
		connections.POST("/purge", h.PurgeConnections)
	}

	r.POST("/refresh", h.Refresh)
}
