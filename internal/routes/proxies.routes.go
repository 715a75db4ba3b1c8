package routes

import (
	"corewatch/internal/controllers"

	"github.com/gin-gonic/gin"
)

func RegisterProxyRoutes(r gin.IRouter, h *controllers.Handler) {
	r.GET("/proxies", h.GetProxies)
	r.PUT("/proxies/:group", h.SelectProxy)
	r.GET("/rules", h.GetRules)
}
