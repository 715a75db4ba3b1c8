package routes

import (
	"time"

	"corewatch/internal/controllers"
	"corewatch/internal/middleware"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/time/rate"
)

// RouterOptions holds the middleware settings of the dashboard API
type RouterOptions struct {
	AllowedOrigins []string
	AllowedIPs     []string
	RateLimit      float64
	RateBurst      int
	Gatherer       prometheus.Gatherer
}

// NewRouter builds the dashboard engine. Everything except /metrics and
// /auth/status requires a dashboard token.
func NewRouter(h *controllers.Handler, opts RouterOptions) *gin.Engine {
	r := gin.New()
	r.Use(gin.Logger(), gin.Recovery())
	r.Use(middleware.SecurityHeadersMiddleware())
	r.Use(middleware.CORSMiddleware(opts.AllowedOrigins))
	r.Use(middleware.IPWhitelistMiddleware(middleware.NewIPWhitelist(opts.AllowedIPs)))
	r.Use(middleware.RateLimitMiddleware(middleware.NewRateLimiter(rate.Limit(opts.RateLimit), opts.RateBurst)))

	if opts.Gatherer != nil {
		RegisterMetricsRoute(r, opts.Gatherer)
	}

	// 5 socket upgrades per minute per IP, burst of 10
	RegisterAuthRoutes(r, h, middleware.NewRateLimiter(rate.Every(12*time.Second), 10))

	api := r.Group("/", middleware.AuthMiddleware())
	RegisterStatusRoutes(api, h)
	RegisterConnectionRoutes(api, h)
	RegisterStreamRoutes(api, h)
	RegisterProxyRoutes(api, h)
	RegisterProcessRoutes(api, h)

	return r
}
