package main

import (
	"fmt"
	"log"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/nk-tutoring/ledger-api/api/swagger"
	"github.com/nk-tutoring/ledger-api/internal/billing"
	"github.com/nk-tutoring/ledger-api/internal/handler"
	"github.com/nk-tutoring/ledger-api/internal/middleware"
	"github.com/nk-tutoring/ledger-api/internal/repository"
	"github.com/nk-tutoring/ledger-api/internal/service"
	"github.com/nk-tutoring/ledger-api/pkg/cache"
	"github.com/nk-tutoring/ledger-api/pkg/config"
	"github.com/nk-tutoring/ledger-api/pkg/database"
	"github.com/nk-tutoring/ledger-api/pkg/export"
	"github.com/nk-tutoring/ledger-api/pkg/logger"
	corsmiddleware "github.com/nk-tutoring/ledger-api/pkg/middleware/cors"
	reqidmiddleware "github.com/nk-tutoring/ledger-api/pkg/middleware/requestid"
)

// @title Tutoring Ledger API
// @version 1.0.0
// @description Billing ledger for a private tutoring business: session pricing, payments, weekly payroll and monthly summaries.
// @BasePath /api/v1
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
		logr.Sugar().Fatalw("failed to connect database", "error", err)
	}
	defer db.Close()

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Warnw("redis unavailable, caching disabled", "error", err)
		redisClient = nil
	}

	metrics := service.NewMetricsService()

	var cacheRepo service.CacheRepository
	if redisClient != nil {
		cacheRepo = repository.NewCacheRepository(redisClient, logr)
	}
	cacheSvc := service.NewCacheService(cacheRepo, metrics, cfg.Summary.CacheTTL, logr, redisClient != nil)

	settings := service.BillingSettings{
		Owner:  cfg.Billing.OwnerTutor,
		Legacy: billing.NewLegacySet(cfg.Billing.LegacyClients),
		Rates:  billing.DefaultRateTable(),
	}

	sessionRepo := repository.NewSessionRepository(db)
	summaryRepo := repository.NewSummaryRepository(db)
	payoutRepo := repository.NewPayoutRepository(db)
	userRepo := repository.NewUserRepository(db)

	sessionSvc := service.NewSessionService(sessionRepo, cacheSvc, metrics, nil, logr, settings)
	payrollSvc := service.NewPayrollService(sessionRepo, payoutRepo, cacheSvc, metrics, logr, settings, cfg.Payroll.CacheTTL)
	summarySvc := service.NewSummaryService(sessionRepo, summaryRepo, cacheSvc, export.NewCSVExporter(), export.NewPDFExporter(), logr, settings)
	authSvc := service.NewAuthService(userRepo, nil, logr, service.AuthConfig{
		AccessTokenSecret:  cfg.JWT.Secret,
		AccessTokenExpiry:  cfg.JWT.Expiration,
		RefreshTokenExpiry: cfg.JWT.RefreshExpiration,
		Issuer:             "ledger-api",
	})

	sessionHandler := handler.NewSessionHandler(sessionSvc)
	payrollHandler := handler.NewPayrollHandler(payrollSvc)
	summaryHandler := handler.NewSummaryHandler(summarySvc)
	authHandler := handler.NewAuthHandler(authSvc)
	metricsHandler := handler.NewMetricsHandler(metrics, db)

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metrics))

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", metricsHandler.Ready)
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)

	auth := api.Group("/auth")
	auth.POST("/login", authHandler.Login)
	auth.POST("/refresh", authHandler.Refresh)
	auth.POST("/logout", authHandler.Logout)
	auth.GET("/me", middleware.JWT(authSvc), authHandler.Me)

	protected := api.Group("", middleware.JWT(authSvc))

	sessions := protected.Group("/sessions")
	sessions.POST("", sessionHandler.Create)
	sessions.GET("", sessionHandler.List)
	sessions.GET("/unpaid", sessionHandler.Unpaid)
	sessions.GET("/recent", sessionHandler.Recent)
	sessions.GET("/search", sessionHandler.Search)
	sessions.POST("/:id/mark-paid", sessionHandler.MarkPaid)
	sessions.POST("/mark-client-paid", sessionHandler.MarkClientPaid)

	payroll := protected.Group("/payroll")
	payroll.GET("/weekly", payrollHandler.Weekly)
	payroll.POST("/settle", payrollHandler.Settle)
	payroll.GET("/runs", payrollHandler.Runs)

	summary := protected.Group("/summary")
	summary.POST("/rebuild", summaryHandler.Rebuild)
	summary.GET("", summaryHandler.Get)
	if cfg.Summary.ExportEnabled {
		summary.GET("/export", summaryHandler.Export)
	}

	addr := fmt.Sprintf(":%d", cfg.Port)
	logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
	if err := r.Run(addr); err != nil {
		logr.Sugar().Fatalw("server failed", "error", err)
	}
}
