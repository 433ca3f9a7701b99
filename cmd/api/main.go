package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"github.com/jaspervborcena/tovrika-sub001/pkg/logging"
	"github.com/jaspervborcena/tovrika-sub001/pkg/metrics"
	"github.com/jaspervborcena/tovrika-sub001/pkg/middleware"
	"github.com/jaspervborcena/tovrika-sub001/pkg/mongodb"
	"github.com/jaspervborcena/tovrika-sub001/pkg/tracing"

	api "github.com/jaspervborcena/tovrika-sub001/internal/api/http"
	"github.com/jaspervborcena/tovrika-sub001/internal/application"
	mongoRepo "github.com/jaspervborcena/tovrika-sub001/internal/infrastructure/mongodb"
	"github.com/jaspervborcena/tovrika-sub001/internal/infrastructure/redisqueue"
)

const serviceName = "tovrika-backoffice"

func main() {
	logConfig := logging.DefaultConfig(serviceName)
	logConfig.Level = logging.LogLevel(getEnv("LOG_LEVEL", "info"))
	logger := logging.New(logConfig)
	logger.SetDefault()

	logger.Info("Starting tovrika back-office API")

	config := loadConfig()
	ctx := context.Background()

	// OpenTelemetry tracing
	tracingConfig := tracing.DefaultConfig(serviceName)
	tracingConfig.OTLPEndpoint = getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317")
	tracingConfig.Environment = getEnv("ENVIRONMENT", "development")
	tracingConfig.Enabled = getEnv("TRACING_ENABLED", "true") == "true"

	tracerProvider, err := tracing.Initialize(ctx, tracingConfig)
	if err != nil {
		logger.WithError(err).Error("Failed to initialize tracing")
		// Continue without tracing
	} else if tracerProvider != nil {
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := tracerProvider.Shutdown(shutdownCtx); err != nil {
				logger.WithError(err).Error("Failed to shutdown tracer")
			}
		}()
		logger.Info("Tracing initialized", "endpoint", tracingConfig.OTLPEndpoint)
	}

	// Prometheus metrics
	m := metrics.New(metrics.DefaultConfig(serviceName))
	logger.Info("Metrics initialized")

	// Authoritative store
	mongoClient, err := mongodb.NewClient(ctx, config.MongoDB)
	if err != nil {
		logger.WithError(err).Error("Failed to connect to MongoDB")
		os.Exit(1)
	}
	defer mongoClient.Close(ctx)
	logger.Info("Connected to MongoDB", "database", config.MongoDB.Database)

	// Local durable queue
	redisClient := redis.NewClient(&redis.Options{
		Addr:     config.RedisAddr,
		Password: config.RedisPassword,
		DB:       config.RedisDB,
	})
	defer redisClient.Close()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		logger.WithError(err).Error("Failed to connect to Redis")
		os.Exit(1)
	}
	logger.Info("Connected to Redis", "addr", config.RedisAddr)

	// Repositories
	batchRepo := mongoRepo.NewBatchRepository(mongoClient, logger)
	productRepo := mongoRepo.NewProductRepository(mongoClient, logger)
	ledgerRepo := mongoRepo.NewLedgerRepository(mongoClient, logger)
	orderRepo := mongoRepo.NewOrderRepository(mongoClient, logger)
	documentStore := mongoRepo.NewDocumentStore(mongoClient, logger)
	queueRepo := redisqueue.NewQueueRepository(redisClient, logger)

	// Connectivity monitor probing the authoritative store
	monitor := application.NewConnectivityMonitor(documentStore, application.DefaultConnectivityConfig(), logger, m)
	monitor.Start(ctx)
	defer monitor.Stop()

	// Application services
	reconciler := application.NewSummaryReconciler(batchRepo, productRepo, logger, m)
	trigger := application.NewAsyncRecomputeTrigger(reconciler, logger, 30*time.Second)
	inventoryService := application.NewInventoryService(batchRepo, trigger, monitor, logger, m)

	loc, err := time.LoadLocation(config.StoreTimezone)
	if err != nil {
		logger.WithError(err).Warn("Unknown store timezone, using local time", "timezone", config.StoreTimezone)
		loc = time.Local
	}
	ledgerService := application.NewLedgerService(ledgerRepo, orderRepo, loc, logger, m)

	gateway := application.NewDocumentGateway(documentStore, queueRepo, monitor, logger, m)
	syncService := application.NewSyncService(queueRepo, documentStore, logger, m)

	// Drain the queue whenever connectivity returns
	monitor.Subscribe(func(syncCtx context.Context) {
		drainCtx, cancel := context.WithTimeout(syncCtx, 2*time.Minute)
		defer cancel()
		if _, err := syncService.Sync(drainCtx); err != nil {
			logger.WithError(err).Warn("Queue drain after reconnect failed")
		}
	})

	// HTTP surface
	router := gin.New()
	middleware.Setup(router, middleware.DefaultConfig(serviceName, logger.Logger))
	router.Use(middleware.TracingMiddleware(serviceName))
	router.Use(middleware.MetricsMiddleware(m))
	router.NoRoute(middleware.NoRoute())
	router.NoMethod(middleware.NoMethod())

	router.GET("/health", middleware.HealthCheck(serviceName))
	router.GET("/ready", middleware.ReadinessCheck(serviceName, func() error {
		return mongoClient.HealthCheck(ctx)
	}))
	router.GET("/metrics", middleware.MetricsEndpoint(m))

	handlers := api.NewHandlers(inventoryService, reconciler, ledgerService, gateway, syncService, logger)
	api.RegisterRoutes(router, handlers)

	srv := &http.Server{
		Addr:         config.ServerAddr,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.WithError(err).Error("Server error")
		}
	}()
	logger.Info("Server started", "addr", config.ServerAddr)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Error("Server forced to shutdown")
	}

	// Let in-flight recomputes finish before the process exits
	trigger.Wait()

	logger.Info("Server stopped")
}

// Config holds application configuration
type Config struct {
	ServerAddr    string
	StoreTimezone string
	MongoDB       *mongodb.Config
	RedisAddr     string
	RedisPassword string
	RedisDB       int
}

func loadConfig() *Config {
	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		redisDB = 0
	}

	return &Config{
		ServerAddr:    getEnv("SERVER_ADDR", ":8080"),
		StoreTimezone: getEnv("STORE_TIMEZONE", "Asia/Manila"),
		MongoDB: &mongodb.Config{
			URI:            getEnv("MONGODB_URI", "mongodb://localhost:27017"),
			Database:       getEnv("MONGODB_DATABASE", "tovrika"),
			ConnectTimeout: 10 * time.Second,
			MaxPoolSize:    100,
			MinPoolSize:    10,
		},
		RedisAddr:     getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       redisDB,
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
