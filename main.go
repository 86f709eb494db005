package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	apperrors "catalog-service/common/errors"
	"catalog-service/common/logger"
	"catalog-service/common/middleware"
	"catalog-service/controllers"
	"catalog-service/database"
	"catalog-service/importer"
	aws_pkg "catalog-service/pkg/aws"
	"catalog-service/repository"
	"catalog-service/routes"
	"catalog-service/services"

	sdkaws "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

const serviceName = "catalog-service"

func main() {
	// Load .env file (optional, falls back to system env)
	_ = godotenv.Load()

	env := getEnv("APP_ENV", "development")
	initLogger(env)
	defer logger.Log.Sync()

	cfg, err := LoadConfig()
	if err != nil {
		zap.L().Fatal("Failed to load configuration", zap.Error(err))
	}

	// --- 1. Initialization ---
	awsCfg, awsErr := aws_pkg.LoadAWSConfig(context.Background())
	if awsErr != nil {
		zap.L().Warn("AWS configuration unavailable", zap.Error(awsErr))
	}

	products, categories, closeStore, err := buildStores(cfg, awsCfg, awsErr)
	if err != nil {
		zap.L().Fatal("Failed to initialize catalog store", zap.String("backend", cfg.Backend), zap.Error(err))
	}

	rdb := newRedisClient(cfg.RedisURL)

	cwMetrics, err := aws_pkg.NewMetricsClient(context.Background())
	if err != nil {
		zap.L().Warn("CloudWatch metrics disabled", zap.Error(err))
	}

	// --- 2. Dependency Injection (Wiring the layers together) ---
	metrics := importer.NewMetrics()
	deps := importer.Deps{
		Products:   products,
		Categories: categories,
		Fetcher:    importer.NewFetcher(cfg.ImageFetchTimeout, metrics),
		Metrics:    metrics,
		Logger:     zap.L(),
	}
	if cfg.ImageBucket != "" && awsErr == nil {
		store, err := aws_pkg.NewObjectStore(awsCfg)
		if err != nil {
			zap.L().Warn("Image storage disabled", zap.Error(err))
		} else {
			deps.Images = store
		}
	}
	imp := importer.New(deps)

	queue := services.NewRedisJobQueue(rdb)
	svcDeps := services.ImportServiceDeps{
		Runner:     imp,
		Queue:      queue,
		Cache:      services.NewCacheManager(rdb),
		Metrics:    cwMetrics,
		StorageDir: cfg.StorageDir,
	}
	if cfg.SNSImportTopicArn != "" && awsErr == nil {
		svcDeps.Events = aws_pkg.NewSNSClient(awsCfg)
		svcDeps.TopicArn = cfg.SNSImportTopicArn
	}
	importService := services.NewImportService(svcDeps)

	workerCtx, stopWorker := context.WithCancel(context.Background())
	services.NewWorker(queue, importService).Start(workerCtx)

	cleanup := services.NewCleanupScheduler(cfg.StorageDir, services.DefaultUploadMaxAge)
	if err := cleanup.Start(); err != nil {
		zap.L().Warn("Upload cleanup not scheduled", zap.Error(err))
	}

	importHandler := controllers.NewImportHandler(importService, controllers.NewRequestValidator())

	// --- 3. HTTP Server & Middleware ---
	if env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(
		gin.Recovery(),
		logger.RequestID(),
		middleware.RequestLogger(logger.Log, "/health", "/metrics"),
		middleware.SecurityHeaders(),
		middleware.CORSMiddleware(),
		middleware.MetricsMiddleware(cwMetrics, serviceName),
		apperrors.ErrorMiddleware(),
	)

	// --- 4. Route Registration ---
	routes.RegisterRoutes(r, importHandler, routes.Options{
		Registry:         metrics.Registry,
		UploadsPerMinute: cfg.UploadsPerMinute,
		UploadBurst:      cfg.UploadBurst,
	})

	// --- 5. Graceful Shutdown ---
	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: r,
	}

	go func() {
		zap.L().Info("Catalog Service starting", zap.String("port", cfg.Port), zap.String("backend", cfg.Backend))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zap.L().Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Wait for an interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	zap.L().Info("Shutting down Catalog Service...")

	if importService.Cancel() {
		zap.L().Info("Running import cancelled for shutdown")
	}
	stopWorker()
	cleanup.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		zap.L().Error("Server forced to shutdown", zap.Error(err))
	}

	if err := rdb.Close(); err != nil {
		zap.L().Error("Failed to close Redis", zap.Error(err))
	}
	closeStore()

	zap.L().Info("Catalog Service stopped gracefully")
}

// initLogger installs the zap logger, shipping a copy to CloudWatch Logs when enabled.
func initLogger(env string) {
	cw, err := aws_pkg.NewCloudWatchLogsClient(context.Background(), serviceName)
	if err != nil || !cw.IsEnabled() {
		logger.Initialize(env)
		if err != nil {
			zap.L().Warn("CloudWatch Logs disabled", zap.Error(err))
		}
		return
	}
	logger.InitializeWithWriter(env, cw)
}

// buildStores opens the configured catalog backend.
func buildStores(cfg *Config, awsCfg sdkaws.Config, awsErr error) (repository.ProductRepo, repository.CategoryRepo, func(), error) {
	switch cfg.Backend {
	case BackendDynamoDB:
		if awsErr != nil {
			return nil, nil, nil, fmt.Errorf("dynamodb backend needs AWS config: %w", awsErr)
		}
		client := dynamodb.NewFromConfig(awsCfg)
		return repository.NewDynamoAdapter(client, cfg.DDBProductsTable),
			repository.NewDynamoCategoryAdapter(client, cfg.DDBCategoriesTable),
			func() {}, nil
	default:
		db, err := database.ConnectPostgres(cfg.Postgres)
		if err != nil {
			return nil, nil, nil, err
		}
		closeFn := func() {
			if err := database.Close(db); err != nil {
				zap.L().Error("Failed to close database", zap.Error(err))
			}
		}
		return repository.NewGormProductRepository(db), repository.NewGormCategoryRepository(db), closeFn, nil
	}
}

func newRedisClient(url string) *redis.Client {
	opts, err := redis.ParseURL(url)
	if err != nil {
		zap.L().Warn("Failed to parse REDIS_URL, falling back to default", zap.Error(err))
		opts = &redis.Options{Addr: "redis:6379", DB: 0}
	}
	rdb := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		zap.L().Warn("Redis not reachable; async imports and cache invalidation will fail until it is", zap.Error(err))
	}
	return rdb
}
