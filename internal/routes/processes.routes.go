package routes

import (
	"corewatch/internal/controllers"

	"github.com/gin-gonic/gin"
)

func RegisterProcessRoutes(r gin.IRouter, h *controllers.Handler) {
	r.GET("/processes", h.GetTopProcesses)
}
