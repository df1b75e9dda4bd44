package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nezubytes/review_service/internal/client/sentiment"
	"github.com/nezubytes/review_service/internal/config"
	"github.com/nezubytes/review_service/internal/delivery/events"
	httpDelivery "github.com/nezubytes/review_service/internal/delivery/http"
	"github.com/nezubytes/review_service/internal/delivery/http/handler"
	"github.com/nezubytes/review_service/internal/pkg/cache"
	"github.com/nezubytes/review_service/internal/pkg/database"
	"github.com/nezubytes/review_service/internal/pkg/logger"
	cacheRepo "github.com/nezubytes/review_service/internal/repository/cache"
	"github.com/nezubytes/review_service/internal/repository/postgres"
	"github.com/nezubytes/review_service/internal/usecase/comment"
	"github.com/nezubytes/review_service/internal/usecase/review"
)

// @title Food Reviews API
// @version 1.0
// @description A food reviews system with reactions, comment linkage, sentiment annotation, caching, and event notifications.
// @termsOfService http://swagger.io/terms/

// @contact.name API Support
// @contact.url http://github.com/nezubytes/review_service
// @contact.email support@example.com

// @license.name MIT
// @license.url https://opensource.org/licenses/MIT

// @host localhost:8080
// @BasePath /api/v1
// @schemes http https

// @tag.name Reviews
// @tag.description Review management and reaction endpoints

// @tag.name Comments
// @tag.description Comment management endpoints

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	appLogger := logger.New(cfg.Env)
	appLogger.Info("Starting Food Reviews API...")

	appLogger.Info("Connecting to PostgreSQL...")
	db, err := database.WaitForDB(cfg, 10, 2*time.Second)
	if err != nil {
		appLogger.Fatal("Failed to connect to database", err)
	}
	defer db.Close()
	appLogger.Info("Connected to PostgreSQL successfully")

	appLogger.Info("Running migrations...")
	if err := database.RunMigrations(db); err != nil {
		appLogger.Fatal("Failed to run migrations", err)
	}

	appLogger.Info("Connecting to Redis...")
	redisClient, err := cache.WaitForRedis(cfg, 10, 2*time.Second)
	if err != nil {
		appLogger.Fatal("Failed to connect to Redis", err)
	}
	defer redisClient.Close()
	appLogger.Info("Connected to Redis successfully")

	appLogger.Info("Connecting to NATS...")
	publisher, err := events.NewPublisher(cfg, appLogger)
	if err != nil {
		appLogger.Fatal("Failed to create NATS publisher", err)
	}
	defer publisher.Close()

	reviewRepo := postgres.NewReviewRepository(db)
	commentRepo := postgres.NewCommentRepository(db)
	redisCache := cacheRepo.NewRedisCache(
		redisClient,
		cfg.Cache.ReviewTTL,
		cfg.Cache.ReviewListTTL,
	)
	annotator := sentiment.NewClient(cfg.Sentiment.URL, cfg.Sentiment.Timeout)

	reviewService := review.NewService(reviewRepo, redisCache, publisher, annotator, appLogger)
	commentService := comment.NewService(commentRepo, reviewRepo, redisCache, publisher, appLogger)

	reviewHandler := handler.NewReviewHandler(reviewService, appLogger)
	commentHandler := handler.NewCommentHandler(commentService, appLogger)

	router := httpDelivery.NewRouter(reviewHandler, commentHandler, cfg, appLogger)
	httpHandler := router.Setup()

	server := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Server.Port),
		Handler:      httpHandler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		appLogger.Infof("HTTP server listening on port %s", cfg.Server.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			appLogger.Fatal("HTTP server failed", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	appLogger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		appLogger.Fatal("Server forced to shutdown", err)
	}

	appLogger.Info("Server stopped gracefully")
}
