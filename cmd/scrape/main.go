package main

import (
	"context"
	"flag"
	"log"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/painradar/backend/internal/config"
	"github.com/painradar/backend/internal/connectors"
	"github.com/painradar/backend/internal/database"
	"github.com/painradar/backend/internal/models"
	"github.com/painradar/backend/internal/pipeline"
	"github.com/painradar/backend/internal/repository"
	"github.com/painradar/backend/pkg/utils"
	"github.com/sirupsen/logrus"
)

var (
	subreddit = flag.String("subreddit", "", "Subreddit to search for complaints")
	keywords  = flag.String("keywords", "frustrated,hate,wish there was", "Comma-separated complaint keywords")
	limit     = flag.Int("limit", 100, "Max posts per keyword search")
	reviewURL = flag.String("review-url", "", "Review page URL to scrape for low ratings")
	product   = flag.String("product", "", "Product name attached to scraped reviews")
	dryRun    = flag.Bool("dry-run", false, "Print candidates without persisting them")
	verbose   = flag.Bool("verbose", false, "Enable verbose logging")
)

func main() {
	flag.Parse()

	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Printf("No .env file found: %v", err)
	}

	logger := utils.GetLogger()
	if *verbose {
		logger.SetLevel(logrus.DebugLevel)
	}

	if *subreddit == "" && *reviewURL == "" {
		logger.Fatal("Nothing to scrape: pass -subreddit and/or -review-url")
	}

	var candidates []models.CandidateItem

	if *subreddit != "" {
		connector := connectors.NewRedditConnector(logger)

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
		found, err := connector.SearchComplaints(ctx, *subreddit, splitKeywords(*keywords), *limit)
		cancel()
		if err != nil {
			logger.WithError(err).Fatal("Reddit scrape failed")
		}

		logger.WithFields(logrus.Fields{
			"subreddit": *subreddit,
			"found":     len(found),
		}).Info("Reddit scrape finished")
		candidates = append(candidates, found...)
	}

	if *reviewURL != "" {
		scraper := connectors.NewReviewScraper(logger)
		found, err := scraper.Scrape(*product, *reviewURL)
		if err != nil {
			logger.WithError(err).Fatal("Review scrape failed")
		}

		logger.WithFields(logrus.Fields{
			"url":   *reviewURL,
			"found": len(found),
		}).Info("Review scrape finished")
		candidates = append(candidates, found...)
	}

	if *dryRun {
		for _, candidate := range candidates {
			logger.WithFields(logrus.Fields{
				"source":      candidate.Source,
				"external_id": candidate.ExternalID,
				"length":      len(candidate.Content),
			}).Info("DRY RUN: would ingest candidate")
		}
		logger.WithField("total", len(candidates)).Info("Dry run complete, nothing persisted")
		return
	}

	cfg, err := config.Load()
	if err != nil {
		logger.WithError(err).Fatal("Failed to load configuration")
	}

	dbManager, err := database.NewManager(&database.Config{
		DatabaseURL: cfg.Database.URL,
		RedisURL:    cfg.Redis.URL,
		LogLevel:    os.Getenv("LOG_LEVEL"),
	}, logger)
	if err != nil {
		logger.WithError(err).Fatal("Failed to initialize database manager")
	}
	defer dbManager.Close()

	if err := dbManager.Migrate(); err != nil {
		logger.WithError(err).Fatal("Database migration failed")
	}

	repoManager := repository.NewRepositoryManager(dbManager.DB)
	ingestor := pipeline.NewIngestor(repoManager.RawItems, logger)

	result, err := ingestor.Ingest(candidates)
	if err != nil {
		logger.WithError(err).Fatal("Ingestion failed")
	}

	logger.WithFields(logrus.Fields{
		"accepted": result.Accepted,
		"skipped":  result.Skipped,
	}).Info("Scrape run completed")
}

func splitKeywords(raw string) []string {
	var out []string
	for _, keyword := range strings.Split(raw, ",") {
		if trimmed := strings.TrimSpace(keyword); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
