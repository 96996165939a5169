package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"gymflow/gym-backend/internal/api"
	"gymflow/gym-backend/internal/config"
	"gymflow/gym-backend/internal/realtime"
	"gymflow/gym-backend/internal/repository/mongo"
	"gymflow/gym-backend/internal/service"
	"gymflow/gym-backend/internal/storage"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

func main() {
	// --- Configuration ---
	cfg, err := config.LoadConfig(".")
	if err != nil {
		panic("could not load config: " + err.Error())
	}

	// --- Logger ---
	var logger *zap.Logger
	if cfg.Log.Development {
		logger, err = zap.NewDevelopment()
	} else {
		logger, err = zap.NewProduction()
	}
	if err != nil {
		panic("could not initialize logger: " + err.Error())
	}
	defer logger.Sync()

	logger.Info("starting gymflow server")

	// --- Database Connection ---
	dbClient, err := mongo.ConnectDB(cfg.Database.URI)
	if err != nil {
		logger.Fatal("could not connect to MongoDB", zap.Error(err))
	}
	defer func() {
		logger.Info("disconnecting MongoDB")
		if err := mongo.DisconnectDB(dbClient); err != nil {
			logger.Error("failed to disconnect MongoDB", zap.Error(err))
		}
	}()
	appDB := dbClient.Database(cfg.Database.Name)
	logger.Info("database connection established", zap.String("database", cfg.Database.Name))

	// --- Ensure Indexes ---
	go func() { // Run index creation concurrently/in background
		ctx, cancel := context.WithTimeout(context.Background(), 1*time.Minute)
		defer cancel()
		mongo.EnsureUserIndexes(ctx, appDB.Collection("users"))
		mongo.EnsureAssignmentRequestIndexes(ctx, appDB.Collection("assignment_requests"))
		mongo.EnsureProgramIndexes(ctx, appDB.Collection("programs"))
		mongo.EnsureComplianceIndexes(ctx, appDB.Collection("compliance_records"))
		mongo.EnsureNotificationIndexes(ctx, appDB.Collection("notifications"))
		logger.Info("index creation process completed")
	}()

	// --- Redis (real-time push channel) ---
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	{
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := rdb.Ping(ctx).Err(); err != nil {
			// Push is best-effort; a missing Redis degrades to persisted-only notifications.
			logger.Warn("redis ping failed, real-time push degraded", zap.Error(err))
		}
		cancel()
	}
	defer rdb.Close()
	pusher := realtime.NewRedisPusher(rdb)

	// --- Initialize Storage ---
	fileStorage, err := storage.NewS3Storage(cfg.S3, logger)
	if err != nil {
		logger.Fatal("failed to initialize S3 storage", zap.Error(err))
	}

	// --- Initialize Repositories ---
	userRepo := mongo.NewMongoUserRepository(appDB)
	requestRepo := mongo.NewMongoAssignmentRequestRepository(appDB)
	programRepo := mongo.NewMongoProgramRepository(appDB)
	complianceRepo := mongo.NewMongoComplianceRepository(appDB)
	notificationRepo := mongo.NewMongoNotificationRepository(appDB)
	txRunner := mongo.NewMongoTxRunner(dbClient)

	// --- Initialize Services ---
	authService := service.NewAuthService(userRepo, cfg.JWT.Secret, cfg.JWT.Expiration)
	notificationService := service.NewNotificationService(notificationRepo, userRepo, pusher, logger)
	relationshipService := service.NewRelationshipService(userRepo, requestRepo, txRunner, notificationService, logger)
	programService := service.NewProgramService(programRepo, userRepo)
	progressService := service.NewProgressService(programRepo)
	complianceService := service.NewComplianceService(complianceRepo, programRepo, progressService, notificationService, txRunner, fileStorage, logger)

	// --- Initialize Gin Engine ---
	if !cfg.Log.Development {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.Default() // Includes Logger and Recovery middleware

	// --- Setup Routes ---
	api.SetupRoutes(router, cfg.JWT.Secret,
		authService,
		relationshipService,
		programService,
		progressService,
		complianceService,
		notificationService,
	)

	// --- Start HTTP Server ---
	server := &http.Server{
		Addr:         cfg.Server.Address,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	logger.Info("server starting", zap.String("address", cfg.Server.Address))

	// --- Graceful Shutdown ---
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("listen and serve error", zap.Error(err))
		}
	}()

	// Wait for interrupt signal to gracefully shut down the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down server")

	ctxShutdown, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelShutdown()

	if err := server.Shutdown(ctxShutdown); err != nil {
		logger.Fatal("server forced to shutdown", zap.Error(err))
	}

	logger.Info("server exiting")
}
