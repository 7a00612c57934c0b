package handlers

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/painradar/backend/internal/connectors"
	"github.com/painradar/backend/internal/database"
	"github.com/painradar/backend/internal/models"
	"github.com/painradar/backend/internal/pipeline"
	"github.com/painradar/backend/pkg/utils"
	"github.com/sirupsen/logrus"
)

const (
	defaultBatchLimit = 50
	maxBatchLimit     = 200

	// extractionLockTTL bounds how long a crashed run can block the next one
	extractionLockTTL = 10 * time.Minute
)

// PipelineHandler exposes the pipeline stages over HTTP. Each stage endpoint
// runs one bounded pass; scheduling repeated passes is the caller's problem.
type PipelineHandler struct {
	ingestor *pipeline.Ingestor
	filter   *pipeline.SentimentFilter
	tracker  *pipeline.SessionTracker
	reddit   *connectors.RedditConnector
	cache    *database.Cache
	logger   *logrus.Logger
}

func NewPipelineHandler(
	ingestor *pipeline.Ingestor,
	filter *pipeline.SentimentFilter,
	tracker *pipeline.SessionTracker,
	reddit *connectors.RedditConnector,
	cache *database.Cache,
	logger *logrus.Logger,
) *PipelineHandler {
	return &PipelineHandler{
		ingestor: ingestor,
		filter:   filter,
		tracker:  tracker,
		reddit:   reddit,
		cache:    cache,
		logger:   logger,
	}
}

// HandleIngest accepts a batch of candidate items from any connector
func (h *PipelineHandler) HandleIngest(c *gin.Context) {
	var req models.IngestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "Invalid request format", err)
		return
	}

	if len(req.Items) == 0 {
		utils.ErrorResponse(c, http.StatusBadRequest, "No items to ingest", nil)
		return
	}

	result, err := h.ingestor.Ingest(req.Items)
	if err != nil {
		h.logger.WithError(err).Error("Ingestion failed")
		utils.ErrorResponse(c, http.StatusInternalServerError, "Ingestion failed", err)
		return
	}

	h.invalidateStats(c.Request.Context())
	utils.SuccessResponse(c, http.StatusOK, "Items ingested", result)
}

// HandleScrapeReddit runs the Reddit connector and feeds the results through
// the ingest gate in one call
func (h *PipelineHandler) HandleScrapeReddit(c *gin.Context) {
	var req models.ScrapeRedditRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "Invalid request format", err)
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Minute)
	defer cancel()

	candidates, err := h.reddit.SearchComplaints(ctx, req.Subreddit, req.Keywords, req.Limit)
	if err != nil {
		h.logger.WithError(err).Error("Reddit scrape failed")
		utils.ErrorResponse(c, http.StatusBadGateway, "Reddit scrape failed", err)
		return
	}

	result, err := h.ingestor.Ingest(candidates)
	if err != nil {
		h.logger.WithError(err).Error("Ingestion failed after scrape")
		utils.ErrorResponse(c, http.StatusInternalServerError, "Ingestion failed", err)
		return
	}

	h.invalidateStats(c.Request.Context())
	utils.SuccessResponse(c, http.StatusOK, "Scrape completed", gin.H{
		"found":    len(candidates),
		"accepted": result.Accepted,
		"skipped":  result.Skipped,
	})
}

// HandleProcessSentiment runs one sentiment pass over unprocessed items
func (h *PipelineHandler) HandleProcessSentiment(c *gin.Context) {
	if h.filter == nil {
		utils.ErrorResponse(c, http.StatusServiceUnavailable, "Sentiment classifier not configured", nil)
		return
	}

	limit := parseLimit(c, defaultBatchLimit)

	result, err := h.filter.Run(c.Request.Context(), limit)
	if err != nil {
		h.logger.WithError(err).Error("Sentiment pass failed")
		utils.ErrorResponse(c, http.StatusInternalServerError, "Sentiment pass failed", err)
		return
	}

	h.invalidateStats(c.Request.Context())
	utils.SuccessResponse(c, http.StatusOK, "Sentiment pass completed", result)
}

// HandleExtract runs one extraction session under the single-writer lock.
// Candidate selection is read-then-write, so overlapping sessions could
// extract the same item; a second concurrent request gets a 409.
func (h *PipelineHandler) HandleExtract(c *gin.Context) {
	limit := parseLimit(c, defaultBatchLimit)

	ctx := c.Request.Context()
	acquired, err := h.cache.AcquireExtractionLock(ctx, extractionLockTTL)
	if err != nil {
		h.logger.WithError(err).Error("Failed to acquire extraction lock")
		utils.ErrorResponse(c, http.StatusInternalServerError, "Failed to acquire extraction lock", err)
		return
	}
	if !acquired {
		utils.ErrorResponse(c, http.StatusConflict, "An extraction session is already running", nil)
		return
	}
	defer h.cache.ReleaseExtractionLock(context.Background())

	result, err := h.tracker.Run(ctx, limit)
	if err != nil {
		h.logger.WithError(err).Error("Extraction session failed")
		utils.ErrorResponse(c, http.StatusInternalServerError, "Extraction session failed", err)
		return
	}

	h.invalidateStats(ctx)
	utils.SuccessResponse(c, http.StatusOK, "Extraction session completed", result)
}

func (h *PipelineHandler) invalidateStats(ctx context.Context) {
	if err := h.cache.InvalidateStats(ctx); err != nil {
		h.logger.WithError(err).Warn("Failed to invalidate stats cache")
	}
}

func parseLimit(c *gin.Context, fallback int) int {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(fallback)))
	if err != nil || limit <= 0 {
		return fallback
	}
	if limit > maxBatchLimit {
		return maxBatchLimit
	}
	return limit
}
