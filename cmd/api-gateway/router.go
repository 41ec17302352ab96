package main

import (
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"github.com/noah-isme/perf-review-api/internal/middleware"
	"github.com/noah-isme/perf-review-api/internal/models"
	"github.com/noah-isme/perf-review-api/pkg/config"
	"github.com/noah-isme/perf-review-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/perf-review-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/perf-review-api/pkg/middleware/requestid"
)

func newRouter(cfg *config.Config, app *application, logr *zap.Logger) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(app.metrics))

	r.GET("/health", app.ops.Health)
	r.GET("/ready", app.ops.Ready)
	r.GET("/metrics", app.ops.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)

	// Signed download links carry their own credential.
	api.GET("/exports/download/:token", app.exports.Download)

	authn := middleware.Passthrough()
	adminOnly := middleware.Passthrough()
	if app.tokens != nil {
		authn = middleware.JWT(app.tokens)
		adminOnly = middleware.RequireRoles(models.RoleAdmin)
	}

	secured := api.Group("")
	secured.Use(authn)

	secured.GET("/dashboard", app.dashboard.Summary)

	secured.GET("/staff", app.staff.List)
	secured.POST("/staff", adminOnly, app.staff.Create)
	secured.GET("/staff/:id", app.staff.Get)
	secured.PUT("/staff/:id/manager", adminOnly, app.staff.ReassignManager)
	secured.GET("/org-chart", app.staff.OrgChart)

	secured.GET("/templates", app.templates.List)
	secured.POST("/templates", adminOnly, app.templates.Create)
	secured.GET("/templates/:id", app.templates.Get)

	secured.GET("/reviews", app.reviews.List)
	secured.POST("/reviews", adminOnly, app.reviews.Create)
	secured.GET("/reviews/:id", app.reviews.Detail)
	secured.GET("/reviews/:id/answers/:role", app.reviews.RoleForm)
	secured.POST("/reviews/:id/answers/:role", app.reviews.Submit)
	secured.POST("/reviews/:id/exports", app.exports.Create)

	secured.GET("/exports/:id", app.exports.Status)

	return r
}
