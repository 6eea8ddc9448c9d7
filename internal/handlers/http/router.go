package http

import (
	"net/http"

	"framewire/internal/core/domain"
	"framewire/internal/core/services"
	"framewire/internal/infrastructure/middleware"
	"framewire/pkg/config"
	"framewire/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// RouterDeps collects everything the control API serves.
type RouterDeps struct {
	Config      *config.Config
	Control     *ControlHandler
	Auth        *AuthHandler
	Feed        *MetricsFeed
	AuthService services.AuthService
	// Gatherer backs /metrics; nil disables the endpoint.
	Gatherer prometheus.Gatherer
	Logger   *zap.Logger
}

func NewRouter(deps RouterDeps) *gin.Engine {
	cfg := deps.Config
	log := deps.Logger
	if log == nil {
		log = zap.NewNop()
	}
	sugar := log.Sugar()

	if cfg.Logging.Level != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(
		middleware.RecoveryMiddleware(sugar),
		middleware.RequestLogMiddleware(logger.NewContextLogger(log)),
	)
	if cfg.Tracing.Enabled {
		router.Use(middleware.TracingMiddleware())
	}
	router.Use(middleware.ErrorHandlerMiddleware(sugar))

	router.GET("/health", deps.Control.Health)
	router.GET("/ready", deps.Control.Ready)

	if deps.Gatherer != nil && cfg.Monitoring.PrometheusEnabled {
		router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{})))
	}

	if cfg.Auth.Enabled && deps.Auth != nil {
		router.POST("/auth/refresh", deps.Auth.RefreshToken)
	}

	viewer := middleware.RequireRole(deps.AuthService, domain.RoleViewer)
	operator := middleware.RequireRole(deps.AuthService, domain.RoleOperator)

	api := router.Group("/api/v1")
	api.Use(middleware.NewHTTPRateLimitMiddleware(cfg))
	api.Use(middleware.AuthMiddleware(deps.AuthService, cfg.Auth.Enabled))
	{
		api.GET("/session", viewer, deps.Control.GetSession)
		api.POST("/session/start", operator, deps.Control.StartSession)
		api.POST("/session/stop", operator, deps.Control.StopSession)
		api.GET("/session/frame", viewer, deps.Control.LatestFrame)

		api.GET("/reports", viewer, deps.Control.ListReports)
		api.GET("/reports/:id", viewer, deps.Control.GetReport)
	}

	if deps.Feed != nil {
		router.GET("/ws/metrics", middleware.AuthMiddleware(deps.AuthService, cfg.Auth.Enabled), viewer, deps.Feed.Handle)
	}

	router.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "NOT_FOUND", "message": "route not found"})
	})

	return router
}
