package handlers

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/grigta/covid-tracker/pkg/config"
	"github.com/grigta/covid-tracker/pkg/logger"
	"github.com/grigta/covid-tracker/pkg/middleware"
	"github.com/grigta/covid-tracker/services/dashboard-service/internal/render"
	"github.com/grigta/covid-tracker/services/dashboard-service/internal/service"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// SetupRouter builds the gin engine with middleware and every dashboard route.
// The returned stop func releases background middleware resources.
func SetupRouter(h *DashboardHandler, cfg *config.Config, log logger.Logger) (*gin.Engine, func(), error) {
	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	tmpl, err := render.Templates()
	if err != nil {
		return nil, nil, err
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestLogger(log))
	router.Use(middleware.CORS(middleware.DefaultCORSConfig(cfg.CORS.AllowOrigins...)))
	router.Use(recordMetrics())
	router.SetHTMLTemplate(tmpl)

	stop := func() {}
	if cfg.RateLimit.Enabled {
		limiter := middleware.NewRateLimiter(cfg.RateLimit.Requests, cfg.RateLimit.Window)
		stop = limiter.Stop
		router.Use(limiter.Middleware())
	}

	router.GET("/health", h.HealthCheck)
	if cfg.Monitoring.MetricsEnabled {
		router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	}

	router.GET("/", h.Index)
	router.POST("/region", h.SelectRegionForm)
	router.POST("/category", h.SelectCategoryForm)
	router.GET("/charts/history", h.HistoryChart)

	api := router.Group("/api/v1")
	{
		api.GET("/state", h.GetState)
		api.POST("/state/region", h.SelectRegion)
		api.POST("/state/category", h.SelectCategory)
		api.GET("/state/stream", h.StreamState)
		api.GET("/countries", h.GetCountries)
		api.GET("/map", h.GetMap)
		api.GET("/history", h.GetHistory)
	}

	return router, stop, nil
}

func recordMetrics() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		endpoint := c.FullPath()
		if endpoint == "" {
			endpoint = "unmatched"
		}
		service.RecordHTTPRequest(c.Request.Method, endpoint, time.Since(start).Seconds(), c.Writer.Status())
	}
}
