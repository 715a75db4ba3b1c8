package routes

import (
	"corewatch/internal/controllers"

	"github.com/gin-gonic/gin"
)

func RegisterStreamRoutes(r gin.IRouter, h *controllers.Handler) {
	streams := r.Group("/streams")
	{
		streams.GET("", h.GetStreams)
		streams.POST("/:channel/:action", h.StreamCommand)
	}
}
