package main

import (
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"github.com/noah-isme/biblioteca-api/internal/handler"
	"github.com/noah-isme/biblioteca-api/internal/middleware"
	"github.com/noah-isme/biblioteca-api/internal/service"
	"github.com/noah-isme/biblioteca-api/pkg/config"
	"github.com/noah-isme/biblioteca-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/biblioteca-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/biblioteca-api/pkg/middleware/requestid"
)

type routerDeps struct {
	cfg     *config.Config
	logger  *zap.Logger
	auth    *handler.AuthHandler
	loans   *handler.LoanRequestHandler
	health  *handler.MetricsHandler
	jwt     gin.HandlerFunc
	admin   gin.HandlerFunc
	limit   gin.HandlerFunc
	metrics *service.MetricsService
}

func newRouter(d routerDeps) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(d.logger))
	r.Use(corsmiddleware.New(d.cfg.CORS.AllowedOrigins))
	if d.metrics != nil {
		r.Use(middleware.Metrics(d.metrics))
		r.GET("/metrics", d.health.Prometheus)
	}

	r.GET("/health", d.health.Health)
	r.GET("/ready", d.health.Ready)

	if d.cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(d.cfg.APIPrefix)

	api.POST("/auth/login", d.limit, d.auth.Login)
	api.POST("/admin/auth/login", d.limit, d.auth.AdminLogin)
	api.GET("/auth/me", d.jwt, d.auth.Me)

	api.POST("/requests", d.limit, d.loans.Create)

	admin := api.Group("/requests", d.jwt, d.admin)
	admin.GET("", d.loans.List)
	admin.GET("/overdue", d.loans.Overdue)
	admin.GET("/overdue.csv", d.loans.OverdueCSV)
	admin.GET("/overdue.pdf", d.loans.OverduePDF)
	admin.GET("/:id", d.loans.Get)
	admin.PUT("/:id", d.loans.Update)

	return r
}
