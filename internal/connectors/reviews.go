package connectors

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/gocolly/colly/v2"
	"github.com/painradar/backend/internal/models"
	"github.com/sirupsen/logrus"
)

// maxReviewRating keeps only dissatisfied reviews. Ratings above this are
// unlikely to contain pain points worth extraction tokens.
const maxReviewRating = 3

// ReviewScraper pulls low-rated reviews from product review pages that mark
// up reviews with schema.org microdata.
type ReviewScraper struct {
	userAgent string
	delay     time.Duration
	logger    *logrus.Logger
}

func NewReviewScraper(logger *logrus.Logger) *ReviewScraper {
	return &ReviewScraper{
		userAgent: "painradar-bot/1.0",
		delay:     2 * time.Second,
		logger:    logger,
	}
}

// Scrape visits the review page and emits one candidate per review rated at
// or below the cutoff. The external id is derived from the review text so
// re-scraping the same page stays idempotent through the ingest gate.
func (s *ReviewScraper) Scrape(productName, pageURL string) ([]models.CandidateItem, error) {
	collector := colly.NewCollector(
		colly.UserAgent(s.userAgent),
	)
	collector.SetRequestTimeout(30 * time.Second)
	collector.Limit(&colly.LimitRule{
		DomainGlob:  "*",
		Parallelism: 1,
		Delay:       s.delay,
	})

	var candidates []models.CandidateItem
	var scrapeErr error

	collector.OnHTML("[itemprop=review], .review", func(e *colly.HTMLElement) {
		rating := parseRating(e)
		if rating == 0 || rating > maxReviewRating {
			return
		}

		body := strings.TrimSpace(e.ChildText("[itemprop=reviewBody]"))
		if body == "" {
			body = strings.TrimSpace(e.ChildText(".review-text"))
		}
		if len(body) < 20 {
			return
		}

		author := strings.TrimSpace(e.ChildText("[itemprop=author]"))

		candidates = append(candidates, models.CandidateItem{
			ExternalID:  reviewID(pageURL, body),
			Source:      "reviews",
			Content:     body,
			Author:      author,
			URL:         pageURL,
			ProductName: productName,
			Metadata: map[string]interface{}{
				"rating": rating,
			},
		})
	})

	collector.OnError(func(r *colly.Response, err error) {
		scrapeErr = err
	})

	if err := collector.Visit(pageURL); err != nil {
		return nil, fmt.Errorf("failed to visit review page: %w", err)
	}
	collector.Wait()

	if scrapeErr != nil {
		return nil, fmt.Errorf("review page fetch failed: %w", scrapeErr)
	}

	s.logger.WithFields(logrus.Fields{
		"product": productName,
		"url":     pageURL,
		"reviews": len(candidates),
	}).Info("Review scrape completed")

	return candidates, nil
}

func parseRating(e *colly.HTMLElement) int {
	raw := e.ChildAttr("[itemprop=ratingValue]", "content")
	if raw == "" {
		raw = strings.TrimSpace(e.ChildText("[itemprop=ratingValue]"))
	}
	if raw == "" {
		return 0
	}

	value, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0
	}
	return int(value)
}

func reviewID(pageURL, body string) string {
	hash := md5.Sum([]byte(pageURL + body))
	return "rv_" + hex.EncodeToString(hash[:])[:16]
}
