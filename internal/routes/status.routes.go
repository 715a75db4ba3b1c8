package routes

import (
	"corewatch/internal/controllers"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func RegisterStatusRoutes(r gin.IRouter, h *controllers.Handler) {
	status := r.Group("/status")
	{
		status.GET("", h.GetStatus)
		status.GET("/self", h.GetSelf)
	}

	series := r.Group("/series")
	{
		series.GET("/traffic", h.GetTrafficSeries)
		series.GET("/memory", h.GetMemorySeries)
	}

	r.GET("/logs", h.GetLogs)
}

// RegisterMetricsRoute exposes the Prometheus collectors of g
func RegisterMetricsRoute(r gin.IRouter, g prometheus.Gatherer) {
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(g, promhttp.HandlerOpts{})))
}
