// Package server assembles the gin engine of the dashboard gateway.
package server

import (
	"strings"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"github.com/noah-isme/student-dashboard/internal/handler"
	"github.com/noah-isme/student-dashboard/internal/middleware"
	"github.com/noah-isme/student-dashboard/internal/service"
	"github.com/noah-isme/student-dashboard/pkg/config"
	"github.com/noah-isme/student-dashboard/pkg/logger"
	corsmiddleware "github.com/noah-isme/student-dashboard/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/student-dashboard/pkg/middleware/requestid"
)

// Handlers bundles every HTTP handler mounted by the router.
type Handlers struct {
	Students  *handler.StudentHandler
	Chapters  *handler.ChapterHandler
	State     *handler.StateHandler
	Dashboard *handler.DashboardHandler
	Reports   *handler.ReportHandler
	Exports   *handler.ExportHandler
	Health    *handler.HealthHandler
}

// NewRouter builds the engine with the common middleware chain.
func NewRouter(cfg *config.Config, logr *zap.Logger, metrics *service.MetricsService, h Handlers) *gin.Engine {
	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metrics))

	r.GET("/health", h.Health.Health)
	r.GET("/ready", h.Health.Ready)
	r.GET("/metrics", h.Health.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	prefix := "/" + strings.Trim(cfg.APIPrefix, "/")
	api := r.Group(prefix)
	api.Use(middleware.WithResponseMeta())
	{
		api.GET("/students", h.Students.List)
		api.POST("/students", h.Students.Create)
		api.PUT("/students/:id", h.Students.Update)
		api.DELETE("/students/:id", h.Students.Delete)

		api.GET("/courses", h.Students.Courses)
		api.GET("/courses/:id/chapters", h.Chapters.List)

		api.GET("/state", h.State.Get)
		api.DELETE("/state/error", h.State.ClearError)

		api.GET("/dashboard", h.Dashboard.Summary)
		api.GET("/reports", h.Reports.Get)

		api.POST("/exports", h.Exports.Create)
		api.GET("/exports/download", h.Exports.Download)

		api.GET("/metrics/summary", h.Health.Snapshot)
	}

	return r
}
