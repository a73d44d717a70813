package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"
	_ "time/tzdata"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/noah-isme/library-fee-api/internal/migrations"
	"github.com/noah-isme/library-fee-api/internal/repository"
	"github.com/noah-isme/library-fee-api/internal/service"
	"github.com/noah-isme/library-fee-api/pkg/cache"
	"github.com/noah-isme/library-fee-api/pkg/config"
	"github.com/noah-isme/library-fee-api/pkg/database"
	"github.com/noah-isme/library-fee-api/pkg/logger"
)

func main() {
	var (
		dryRun      bool
		parallelism int
		collection  string
		timeout     time.Duration
	)

	flag.BoolVar(&dryRun, "dry-run", false, "Read and normalise legacy records without writing")
	flag.IntVar(&parallelism, "parallelism", 4, "Students imported concurrently")
	flag.StringVar(&collection, "collection", "", "Firestore collection (defaults to FIRESTORE_STUDENTS_COLLECTION)")
	flag.DurationVar(&timeout, "timeout", 10*time.Minute, "Overall import deadline")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	if collection == "" {
		collection = cfg.Firestore.StudentsCollection
	}
	if cfg.Firestore.ProjectID == "" {
		log.Fatal("FIRESTORE_PROJECT_ID is required")
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	db, err := database.NewPostgres(ctx, cfg.Database)
	if err != nil {
		logr.Fatal("connect postgres", zap.Error(err))
	}
	defer db.Close()
	if cfg.Database.AutoMigrate && !dryRun {
		if err := migrations.Up(db, logr); err != nil {
			logr.Fatal("migrate", zap.Error(err))
		}
	}

	client, err := repository.NewFirestoreClient(ctx, cfg.Firestore.ProjectID, cfg.Firestore.CredentialsFile)
	if err != nil {
		logr.Fatal("connect firestore", zap.Error(err))
	}
	defer client.Close()

	// Imported history changes every dashboard, so a shared Redis must be told.
	var cacheRepo service.CacheRepository
	redisClient, err := cache.NewRedis(ctx, cfg.Redis)
	if err != nil {
		logr.Warn("redis unavailable, dashboard cache will expire on its own", zap.Error(err))
	} else if redisClient != nil {
		repo := repository.NewCacheRepository(redisClient, logr)
		defer repo.Close() //nolint:errcheck
		cacheRepo = repo
	}
	metricsSvc := service.NewMetricsService()
	cacheSvc := service.NewCacheService(cacheRepo, metricsSvc, cfg.Dashboard.CacheTTL, logr, cacheRepo != nil)

	importer := service.NewImportService(
		repository.NewFirestoreStudentSource(client, collection),
		repository.NewStudentRepository(db),
		repository.NewPaymentRepository(db),
		cacheSvc,
		metricsSvc,
		service.ImportConfig{
			DefaultFee:   decimal.NewFromInt(cfg.Fees.DefaultFee),
			PhotoURLBase: cfg.Fees.PhotoURLBase,
			Parallelism:  parallelism,
			DryRun:       dryRun,
		},
		logr,
	)

	report, err := importer.Run(ctx)
	if report != nil {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if encErr := enc.Encode(report); encErr != nil {
			fmt.Fprintf(os.Stderr, "failed to print report: %v\n", encErr)
		}
	}
	if err != nil {
		logr.Fatal("import failed", zap.Error(err))
	}
}
