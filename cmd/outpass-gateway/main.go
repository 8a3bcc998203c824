package main

import (
	"context"
	"fmt"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/Tilji-Thomas9137/hostelhaven-outpass-api/api/swagger"
	"github.com/Tilji-Thomas9137/hostelhaven-outpass-api/internal/client/hostelcore"
	"github.com/Tilji-Thomas9137/hostelhaven-outpass-api/internal/dto"
	"github.com/Tilji-Thomas9137/hostelhaven-outpass-api/internal/handler"
	"github.com/Tilji-Thomas9137/hostelhaven-outpass-api/internal/middleware"
	"github.com/Tilji-Thomas9137/hostelhaven-outpass-api/internal/repository"
	"github.com/Tilji-Thomas9137/hostelhaven-outpass-api/internal/service"
	"github.com/Tilji-Thomas9137/hostelhaven-outpass-api/pkg/cache"
	"github.com/Tilji-Thomas9137/hostelhaven-outpass-api/pkg/config"
	"github.com/Tilji-Thomas9137/hostelhaven-outpass-api/pkg/database"
	"github.com/Tilji-Thomas9137/hostelhaven-outpass-api/pkg/logger"
	corsmiddleware "github.com/Tilji-Thomas9137/hostelhaven-outpass-api/pkg/middleware/cors"
	reqidmiddleware "github.com/Tilji-Thomas9137/hostelhaven-outpass-api/pkg/middleware/requestid"
)

// @title HostelHaven Outpass API
// @version 1.0.0
// @description Outpass request lifecycle gateway for the HostelHaven hostel management system
// @BasePath /
// @schemes http

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close()

	if err := database.EnsureSchema(db); err != nil {
		logr.Sugar().Fatalw("failed to ensure schema", "error", err)
	}

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		// The memo layer degrades gracefully without Redis.
		logr.Sugar().Warnw("redis unavailable, snapshot memoization disabled", "error", err)
		redisClient = nil
	}

	metricsSvc := service.NewMetricsService()
	coreClient := hostelcore.New(cfg.Upstream, logr)

	outpassRepo := repository.NewOutpassRepository(db)
	cacheRepo := repository.NewCacheRepository(redisClient, logr)

	validate := dto.NewValidator()

	authSvc := service.NewAuthService(cfg.JWT.Secret)
	quotaSvc := service.NewQuotaService(coreClient, cacheRepo, cfg.Quota.WeeklyLimit, metricsSvc, logr)
	eligibilitySvc := service.NewEligibilityService(coreClient, cacheRepo, metricsSvc, logr)

	var reconcileSvc *service.ReconcileService
	var reconciler interface{ EnqueueRecord(string) }
	if cfg.Reconcile.Enabled {
		reconcileSvc = service.NewReconcileService(outpassRepo, coreClient, cfg.Reconcile, cfg.Upstream.ServiceToken, logr)
		reconcileSvc.Start(context.Background())
		defer reconcileSvc.Stop()
		reconciler = reconcileSvc
	}

	submissionSvc := service.NewSubmissionService(coreClient, outpassRepo, quotaSvc, eligibilitySvc, reconciler, validate, metricsSvc, logr)
	historySvc := service.NewHistoryService(coreClient, outpassRepo, quotaSvc, metricsSvc, logr)
	exportSvc := service.NewExportService(historySvc, logr)

	outpassHandler := handler.NewOutpassHandler(submissionSvc, historySvc, quotaSvc, eligibilitySvc)
	exportHandler := handler.NewExportHandler(exportSvc)
	healthHandler := handler.NewHealthHandler(coreClient)
	metricsHandler := handler.NewMetricsHandler(metricsSvc)

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(middleware.Metrics(metricsSvc))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))

	r.GET("/health", healthHandler.Health)
	r.GET("/ready", healthHandler.Ready)
	r.GET("/health/upstream", healthHandler.Upstream)
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	api.Use(middleware.JWT(authSvc))
	{
		api.POST("/outpasses", outpassHandler.Create)
		api.GET("/outpasses", outpassHandler.List)
		api.GET("/outpasses/quota", outpassHandler.Quota)
		api.GET("/outpasses/eligibility", outpassHandler.Eligibility)
		api.PUT("/outpasses/:id", outpassHandler.Edit)
		api.POST("/outpasses/:id/extend", outpassHandler.Extend)
		api.PUT("/outpasses/:id/cancel", outpassHandler.Cancel)
		if cfg.Export.Enabled {
			api.GET("/outpasses/export", exportHandler.Download)
		}
	}

	addr := fmt.Sprintf(":%d", cfg.Port)
	logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env, "upstream", cfg.Upstream.BaseURL)
	if err := r.Run(addr); err != nil && err != http.ErrServerClosed {
		logr.Sugar().Fatalw("server failed", "error", err)
	}
}
