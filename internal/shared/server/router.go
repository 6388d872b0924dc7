package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"dealbrief-backend/internal/deals"
	"dealbrief-backend/internal/services/health"
	"dealbrief-backend/internal/shared/config"
	"dealbrief-backend/internal/shared/metrics"
	"dealbrief-backend/internal/shared/server/middleware"
	"dealbrief-backend/internal/shared/server/respond"
)

// RouterDeps carries the services mounted by NewRouter.
type RouterDeps struct {
	Config  config.Config
	Deals   *deals.Service
	Health  *health.Service
	Limiter *middleware.RateLimiter
}

// NewRouter constructs the Gin engine with middleware and routes registered.
func NewRouter(deps RouterDeps) *gin.Engine {
	cfg := deps.Config
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()

	r.Use(
		middleware.RequestID(),
		middleware.Logging(),
		middleware.Recovery(),
		middleware.CORS(cfg.CORSAllowOrigins),
	)

	api := r.Group("/api/v1")
	api.GET("/health", func(c *gin.Context) {
		body, ok := deps.Health.Status(c.Request.Context())
		if !ok {
			respond.JSON(c, http.StatusServiceUnavailable, body)
			return
		}
		respond.OK(c, body)
	})
	api.GET("/metrics", metrics.Handler())

	if deps.Deals != nil {
		var createMiddleware []gin.HandlerFunc
		if cfg.RateLimitRPS > 0 {
			createMiddleware = append(createMiddleware, middleware.RateLimit(middleware.RateLimitConfig{
				Rules: map[string]middleware.RateLimitRule{
					"DEFAULT": {Rate: cfg.RateLimitRPS, Burst: cfg.RateLimitBurst},
				},
				Limiter: deps.Limiter,
			}))
		}
		deals.NewHandler(deps.Deals, createMiddleware...).RegisterRoutes(api)
	}

	return r
}

// Addr normalizes the listen address.
func Addr(port string) string {
	if port == "" {
		return ":8080"
	}
	if port[0] == ':' {
		return port
	}
	return ":" + port
}
