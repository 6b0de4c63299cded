package bootstrap

import (
	"log"
	"net/http"

	"github.com/SankaiAI/ZeroTask/internal/config"
	"github.com/SankaiAI/ZeroTask/internal/metrics"
	"github.com/SankaiAI/ZeroTask/internal/middleware"
	"github.com/SankaiAI/ZeroTask/internal/store"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// setupRouter configures the Gin router with all routes and middleware
func setupRouter(
	cfg *config.Config,
	db *store.Store,
	h handlerSet,
	recorder metrics.Recorder,
) (*gin.Engine, error) {
	r := gin.New()

	r.Use(middleware.HTTPMetrics(recorder))
	r.Use(gin.Logger(), gin.Recovery())

	// Health check endpoint
	r.GET("/health", createHealthCheckHandler(db))

	// Metrics endpoint
	setupMetricsEndpoint(r, cfg)

	// Rate limiting on the authorization endpoint
	authorizeMiddleware, err := setupRateLimiting(cfg)
	if err != nil {
		return nil, err
	}

	// OAuth callbacks, registered with the providers as redirect URIs
	r.GET("/oauth2/:provider/callback", h.credential.Callback)

	// Credential API, consumed by the frontend
	api := r.Group("/api/auth")
	{
		api.POST("/:provider/authorize", authorizeMiddleware, h.credential.Authorize)
		api.GET("/status", h.credential.StatusAll)
		api.GET("/shared/status", h.shared.Status)
		api.GET("/:provider/status", h.credential.Status)
		api.DELETE("/:provider", h.credential.Revoke)
	}

	logServerStartup(cfg)

	return r, nil
}

// setupMetricsEndpoint configures the Prometheus metrics endpoint
func setupMetricsEndpoint(r *gin.Engine, cfg *config.Config) {
	if !cfg.MetricsEnabled {
		log.Printf("Prometheus metrics disabled")
		return
	}
	log.Printf("Prometheus metrics enabled at /metrics")
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
}

// setupRateLimiting builds the middleware guarding authorization starts. A
// passthrough is returned when rate limiting is disabled.
func setupRateLimiting(cfg *config.Config) (gin.HandlerFunc, error) {
	if !cfg.RateLimitEnabled {
		return func(c *gin.Context) { c.Next() }, nil
	}
	return middleware.NewRateLimiter(cfg.RateLimitRate)
}

// createHealthCheckHandler creates health check endpoint handler
func createHealthCheckHandler(db *store.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		switch err := db.Health(); err {
		case nil:
			c.JSON(http.StatusOK, gin.H{
				"status":   "healthy",
				"database": "connected",
			})
		default:
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":   "unhealthy",
				"database": "disconnected",
			})
		}
	}
}

// logServerStartup logs server startup information
func logServerStartup(cfg *config.Config) {
	log.Printf("Credential manager starting on %s", cfg.ServerAddr)
	log.Printf("Frontend redirect target: %s", cfg.FrontendURL)
}
