package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/painradar/backend/internal/api"
	"github.com/painradar/backend/internal/api/handlers"
	"github.com/painradar/backend/internal/config"
	"github.com/painradar/backend/internal/connectors"
	"github.com/painradar/backend/internal/database"
	"github.com/painradar/backend/internal/extraction"
	"github.com/painradar/backend/internal/health"
	"github.com/painradar/backend/internal/pipeline"
	"github.com/painradar/backend/internal/repository"
	"github.com/painradar/backend/internal/sentiment"
	"github.com/painradar/backend/pkg/utils"
)

const (
	requestsPerMinute = 60

	// Sessions left in_progress longer than this are presumed dead
	staleSessionThreshold = time.Hour
)

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Printf("No .env file found: %v", err)
	}

	logger := utils.GetLogger()
	logger.Info("Starting pain point discovery server...")

	cfg, err := config.Load()
	if err != nil {
		logger.WithError(err).Fatal("Failed to load configuration")
	}

	dbConfig := &database.Config{
		DatabaseURL: cfg.Database.URL,
		RedisURL:    cfg.Redis.URL,
		LogLevel:    os.Getenv("LOG_LEVEL"),
	}

	dbManager, err := database.NewManager(dbConfig, logger)
	if err != nil {
		logger.WithError(err).Fatal("Failed to initialize database manager")
	}
	defer dbManager.Close()

	if err := dbManager.Migrate(); err != nil {
		logger.WithError(err).Fatal("Database migration failed")
	}

	repoManager := repository.NewRepositoryManager(dbManager.DB)
	cache := database.NewCache(dbManager.Redis, logger)

	// Sweep sessions orphaned by a previous crash before accepting traffic
	swept, err := repoManager.Sessions.MarkStale(time.Now().Add(-staleSessionThreshold))
	if err != nil {
		logger.WithError(err).Error("Stale session sweep failed")
	} else if swept > 0 {
		logger.WithField("sessions", swept).Warn("Marked stale in_progress sessions as failed")
	}

	ingestor := pipeline.NewIngestor(repoManager.RawItems, logger)

	var filter *pipeline.SentimentFilter
	if err := cfg.ValidateCloudflare(); err != nil {
		logger.WithError(err).Warn("Sentiment classifier disabled")
	} else {
		classifier := sentiment.NewClient(cfg.SentimentBaseURL(), cfg.Cloudflare.APIToken, logger)
		filter = pipeline.NewSentimentFilter(repoManager.RawItems, classifier, logger)
	}

	// The extractor is built per session so a bad credential surfaces as a
	// failed session record instead of a startup crash
	factory := func(ctx context.Context) (*pipeline.Extractor, error) {
		client, err := extraction.NewClient(ctx, cfg.Gemini.APIKey, cfg.Gemini.Model, logger)
		if err != nil {
			return nil, err
		}
		return pipeline.NewExtractor(client, logger), nil
	}

	tracker := pipeline.NewSessionTracker(
		repoManager.RawItems,
		repoManager.PainPoints,
		repoManager.Sessions,
		factory,
		logger,
	)

	reddit := connectors.NewRedditConnector(logger)

	pipelineHandler := handlers.NewPipelineHandler(ingestor, filter, tracker, reddit, cache, logger)
	queryHandler := handlers.NewQueryHandler(repoManager, cache, logger)
	healthHandler := handlers.NewHealthHandler(health.NewHealthChecker(dbManager, cfg, logger), logger)

	router := api.SetupRouter(pipelineHandler, queryHandler, healthHandler, requestsPerMinute)

	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 5 * time.Minute,
		IdleTimeout:  2 * time.Minute,
	}

	go func() {
		logger.WithField("port", cfg.Server.Port).Info("HTTP server listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.WithError(err).Fatal("HTTP server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.WithError(err).Error("Server forced to shutdown")
	}

	logger.Info("Server stopped")
}
