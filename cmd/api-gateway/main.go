package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
	_ "time/tzdata"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/noah-isme/library-fee-api/api/swagger"
	"github.com/noah-isme/library-fee-api/internal/handler"
	internalmiddleware "github.com/noah-isme/library-fee-api/internal/middleware"
	"github.com/noah-isme/library-fee-api/internal/migrations"
	"github.com/noah-isme/library-fee-api/internal/repository"
	"github.com/noah-isme/library-fee-api/internal/service"
	"github.com/noah-isme/library-fee-api/pkg/cache"
	"github.com/noah-isme/library-fee-api/pkg/config"
	"github.com/noah-isme/library-fee-api/pkg/database"
	"github.com/noah-isme/library-fee-api/pkg/jobs"
	"github.com/noah-isme/library-fee-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/library-fee-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/library-fee-api/pkg/middleware/requestid"
	"github.com/noah-isme/library-fee-api/pkg/storage"
)

const (
	jobExportCleanup = "export.cleanup"
	jobDashboardWarm = "dashboard.warm"
	shutdownTimeout  = 15 * time.Second
)

// @title Library Fee API
// @version 1.0.0
// @description Fee reconciliation, roster and store API for a subscription library
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

	if err := run(cfg, logr); err != nil {
		logr.Fatal("server failed", zap.Error(err))
	}
}

func run(cfg *config.Config, logr *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.NewPostgres(ctx, cfg.Database)
	if err != nil {
		return err
	}
	defer db.Close()

	if cfg.Database.AutoMigrate {
		if err := migrations.Up(db, logr); err != nil {
			return err
		}
	}

	redisClient, err := cache.NewRedis(ctx, cfg.Redis)
	if err != nil {
		return err
	}

	metricsSvc := service.NewMetricsService()
	var cacheRepo service.CacheRepository
	checks := map[string]handler.Pinger{"postgres": db}
	if redisClient != nil {
		repo := repository.NewCacheRepository(redisClient, logr)
		defer repo.Close() //nolint:errcheck
		cacheRepo = repo
		checks["redis"] = handler.PingFunc(repo.Ping)
	}
	cacheSvc := service.NewCacheService(cacheRepo, metricsSvc, cfg.Dashboard.CacheTTL, logr, redisClient != nil)

	validate := validator.New()
	studentRepo := repository.NewStudentRepository(db)
	paymentRepo := repository.NewPaymentRepository(db)
	storeRepo := repository.NewStoreItemRepository(db)

	feeSvc := service.NewFeeService(studentRepo, paymentRepo, metricsSvc, cfg.Fees.Location, logr)
	studentSvc := service.NewStudentService(studentRepo, cacheSvc, feeSvc, service.StudentConfig{
		DefaultFee:   decimal.NewFromInt(cfg.Fees.DefaultFee),
		PhotoURLBase: cfg.Fees.PhotoURLBase,
	}, validate, logr)
	paymentSvc := service.NewPaymentService(studentRepo, paymentRepo, feeSvc, cacheSvc, metricsSvc, validate, logr)
	dashboardSvc := service.NewDashboardService(service.DashboardServiceParams{
		Students: studentRepo,
		Payments: paymentRepo,
		Fees:     feeSvc,
		Cache:    cacheSvc,
		Logger:   logr,
		Config:   service.DashboardServiceConfig{CacheTTL: cfg.Dashboard.CacheTTL},
	})
	reminderSvc := service.NewReminderService(dashboardSvc, service.ReminderConfig{
		OrgName:        cfg.Fees.OrgName,
		CurrencySymbol: cfg.Fees.CurrencySymbol,
	})
	storeSvc := service.NewStoreService(storeRepo, validate, logr)
	authSvc := service.NewAuthService(studentRepo, validate, logr, service.AuthConfig{
		AccessTokenSecret: cfg.JWT.Secret,
		AccessTokenExpiry: cfg.JWT.Expiration,
		Issuer:            cfg.JWT.Issuer,
		AdminID:           cfg.Admin.ID,
		AdminName:         cfg.Admin.Name,
		AdminPasswordHash: cfg.Admin.PasswordHash,
	})
	if cfg.Admin.PasswordHash == "" {
		logr.Warn("ADMIN_PASSWORD_HASH is empty, admin login is disabled")
	}

	fileStore, err := storage.NewReportStore(cfg.Exports.StorageDir)
	if err != nil {
		return fmt.Errorf("init export storage: %w", err)
	}
	signer := storage.NewSignedURLSigner(cfg.Exports.SignedURLSecret, cfg.Exports.SignedURLTTL)
	exportSvc := service.NewExportService(dashboardSvc, fileStore, signer, metricsSvc, service.ExportConfig{
		APIPrefix: cfg.APIPrefix,
		OrgName:   cfg.Fees.OrgName,
		ResultTTL: cfg.Exports.SignedURLTTL,
	}, logr)

	housekeeping := jobs.NewQueue("housekeeping", jobs.QueueConfig{Workers: 1, MaxRetries: 2, RetryDelay: 30 * time.Second, Logger: logr})
	housekeeping.Handle(jobExportCleanup, func(context.Context, jobs.Job) error {
		removed, err := exportSvc.Cleanup(0)
		if err != nil {
			return err
		}
		if len(removed) > 0 {
			logr.Info("expired exports removed", zap.Int("count", len(removed)))
		}
		return nil
	})
	housekeeping.Handle(jobDashboardWarm, func(ctx context.Context, _ jobs.Job) error {
		_, _, err := dashboardSvc.Admin(ctx)
		return err
	})
	housekeeping.Start(ctx)
	defer housekeeping.Stop()
	if err := housekeeping.Every(jobExportCleanup, cfg.Exports.CleanupInterval); err != nil {
		return err
	}
	if cacheSvc.Enabled() {
		if err := housekeeping.Every(jobDashboardWarm, cfg.Dashboard.CacheTTL); err != nil {
			return err
		}
	}

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(internalmiddleware.Metrics(metricsSvc))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))

	handler.Register(r, handler.Handlers{
		Auth:      handler.NewAuthHandler(authSvc),
		Me:        handler.NewMeHandler(studentSvc, feeSvc, paymentSvc),
		Students:  handler.NewStudentHandler(studentSvc),
		Payments:  handler.NewPaymentHandler(paymentSvc, feeSvc),
		Dashboard: handler.NewDashboardHandler(dashboardSvc),
		Reminders: handler.NewReminderHandler(reminderSvc),
		Store:     handler.NewStoreHandler(storeSvc),
		Exports:   handler.NewExportHandler(exportSvc),
		System:    handler.NewSystemHandler(metricsSvc, checks),
	}, handler.RouterConfig{APIPrefix: cfg.APIPrefix, Tokens: authSvc, Logger: logr})

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErrors := make(chan error, 1)
	go func() {
		logr.Info("server starting", zap.String("addr", server.Addr), zap.String("env", cfg.Env))
		serverErrors <- server.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		logr.Info("shutdown signal received, draining requests")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logr.Error("could not stop server gracefully", zap.Error(err))
		return server.Close()
	}
	return nil
}
