package handlers

import (
	"taskbot/internal/middleware"
	"taskbot/internal/monitoring"

	"github.com/gin-gonic/gin"
)

type RouterConfig struct {
	Engine      Dispatcher
	Tasks       TaskLister
	Users       UserFinder
	Monitor     *monitoring.Monitor
	Gateway     middleware.GatewayAuthConfig
	RateLimiter *middleware.RateLimiter
	CORSOrigins []string
}

// NewRouter wires the gateway API and the monitoring endpoints.
func NewRouter(cfg RouterConfig) *gin.Engine {
	router := gin.New()
	router.Use(middleware.RecoveryWithLog(), middleware.RequestID(), middleware.RequestLogger())
	router.Use(middleware.CORS(cfg.CORSOrigins))

	if cfg.Monitor != nil {
		router.Use(cfg.Monitor.Middleware())
		cfg.Monitor.Register(router)
	}

	v1 := router.Group("/v1")
	if cfg.RateLimiter != nil {
		v1.Use(cfg.RateLimiter.Middleware())
	}
	v1.Use(middleware.GatewayAuth(cfg.Gateway))

	events := NewEventHandler(cfg.Engine)
	v1.POST("/events", events.HandleEvent)

	exports := NewExportHandler(cfg.Tasks, cfg.Users)
	v1.GET("/users/:external_id/export", exports.ExportTasks)

	return router
}
