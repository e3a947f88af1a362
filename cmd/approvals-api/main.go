package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/noah-isme/campground-approvals-api/api/swagger"
	"github.com/noah-isme/campground-approvals-api/internal/handler"
	"github.com/noah-isme/campground-approvals-api/internal/middleware"
	"github.com/noah-isme/campground-approvals-api/internal/models"
	"github.com/noah-isme/campground-approvals-api/internal/repository"
	"github.com/noah-isme/campground-approvals-api/internal/service"
	"github.com/noah-isme/campground-approvals-api/pkg/cache"
	"github.com/noah-isme/campground-approvals-api/pkg/config"
	"github.com/noah-isme/campground-approvals-api/pkg/database"
	"github.com/noah-isme/campground-approvals-api/pkg/jobs"
	"github.com/noah-isme/campground-approvals-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/campground-approvals-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/campground-approvals-api/pkg/middleware/requestid"
)

// @title Campground Approvals API
// @version 1.0.0
// @description Dual-control approval engine for refunds, payouts and configuration changes
// @BasePath /api/v1
// @schemes http https
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

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

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	checks := map[string]handler.ReadinessCheck{}

	var stores repository.Stores
	switch cfg.Approvals.Store {
	case config.StoreMemory:
		logr.Warn("using in-memory approval store; data is lost on restart")
		stores = repository.NewMemoryStores()
	default:
		db, err := database.NewPostgres(ctx, cfg.Database)
		if err != nil {
			logr.Fatal("failed to connect to postgres", zap.Error(err))
		}
		defer db.Close()
		if err := database.Migrate(ctx, db); err != nil {
			logr.Fatal("failed to migrate schema", zap.Error(err))
		}
		stores = repository.NewPostgresStores(db)
		checks["postgres"] = pingPostgres(db)
	}

	metrics := service.NewMetricsService()

	redisClient, err := cache.NewRedis(ctx, cfg.Redis)
	if err != nil {
		logr.Fatal("failed to connect to redis", zap.Error(err))
	}
	var cacheRepo service.CacheRepository
	if redisClient != nil {
		defer redisClient.Close()
		checks["redis"] = pingRedis(redisClient)
		if cfg.Approvals.PolicyCacheEnabled {
			cacheRepo = repository.NewCacheRepository(redisClient, logr)
		}
	}
	cacheSvc := service.NewCacheService(cacheRepo,
		service.WithCacheMetrics(metrics),
		service.WithCacheTTL(cfg.Approvals.PolicyCacheTTL),
		service.WithCacheLogger(logr),
		service.WithKeyPrefix("campground:"+cfg.Env),
	)

	var audit repository.AuditStore = stores.Audit
	if cfg.Approvals.AuditAsync {
		async := service.NewAsyncAuditLogger(stores.Audit, jobs.QueueConfig{
			Workers:    cfg.Approvals.AuditWorkers,
			MaxRetries: cfg.Approvals.AuditRetries,
			Logger:     logr,
		})
		async.Start(context.Background())
		defer async.Stop()
		audit = async
	}

	validate := validator.New()
	policyOpts := []service.ApprovalPolicyServiceOption{service.WithBaselineRoles(cfg.Approvals.BaselineRoles)}
	if cacheSvc.Enabled() {
		policyOpts = append(policyOpts, service.WithPolicyCache(cacheSvc, cfg.Approvals.PolicyCacheTTL))
	}
	policySvc := service.NewApprovalPolicyService(stores.Policies, audit, validate, logr, policyOpts...)
	approvalSvc := service.NewApprovalService(
		stores.Requests,
		policySvc,
		service.NewApprovalAuthorizer(cfg.Approvals.AllowSelfApproval),
		audit,
		validate,
		logr,
		service.WithApprovalMetrics(metrics),
		service.WithConflictRetries(cfg.Approvals.ConflictRetries),
	)
	queueSvc := service.NewApprovalQueueService(stores.Requests, policySvc, cfg.Approvals.DefaultPageSize, logr)
	exportSvc := service.NewApprovalExportService(queueSvc, logr)
	authSvc := service.NewAuthService(logr, service.AuthConfig{
		AccessTokenSecret: cfg.JWT.Secret,
		Issuer:            cfg.JWT.Issuer,
		Audience:          cfg.JWT.Audience,
	})

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metrics))

	metricsHandler := handler.NewMetricsHandler(metrics, checks)
	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", metricsHandler.Ready)
	r.GET("/metrics", metricsHandler.Prometheus)
	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	registerRoutes(r.Group(cfg.APIPrefix, middleware.JWT(authSvc)),
		handler.NewApprovalHandler(approvalSvc, queueSvc, exportSvc),
		handler.NewApprovalPolicyHandler(policySvc),
	)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env, "store", cfg.Approvals.Store)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Error("graceful shutdown failed", zap.Error(err))
	}
}

func registerRoutes(api *gin.RouterGroup, approvals *handler.ApprovalHandler, policies *handler.ApprovalPolicyHandler) {
	approvalRoutes := api.Group("/approvals")
	approvalRoutes.POST("", approvals.Submit)
	approvalRoutes.GET("", approvals.List)
	approvalRoutes.GET("/export", approvals.Export)
	approvalRoutes.GET("/:id", approvals.Get)
	approvalRoutes.POST("/:id/approve", approvals.Approve)
	approvalRoutes.POST("/:id/reject", approvals.Reject)

	policyRoutes := api.Group("/approval-policies")
	policyRoutes.GET("", policies.List)
	policyRoutes.GET("/match", policies.Match)
	admin := policyRoutes.Group("", middleware.RequireRoles(models.RoleOwner, models.RolePlatformAdmin))
	admin.POST("", policies.Create)
	admin.PATCH("/:id", policies.Update)
	admin.DELETE("/:id", policies.Delete)
}

func pingPostgres(db *sqlx.DB) handler.ReadinessCheck {
	return func(ctx context.Context) error {
		return db.PingContext(ctx)
	}
}

func pingRedis(client *redis.Client) handler.ReadinessCheck {
	return func(ctx context.Context) error {
		return client.Ping(ctx).Err()
	}
}
