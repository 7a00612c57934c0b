package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/painradar/backend/internal/database"
	"github.com/painradar/backend/internal/models"
	"github.com/painradar/backend/internal/repository"
	"github.com/painradar/backend/pkg/utils"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

const (
	statsCacheTTL     = time.Minute
	scorecardCacheTTL = time.Hour
	topOpportunities  = 5
)

// QueryHandler serves the read side: pain points, raw items, sessions,
// scorecards and aggregate stats.
type QueryHandler struct {
	repoManager *repository.RepositoryManager
	cache       *database.Cache
	logger      *logrus.Logger
}

func NewQueryHandler(repoManager *repository.RepositoryManager, cache *database.Cache, logger *logrus.Logger) *QueryHandler {
	return &QueryHandler{
		repoManager: repoManager,
		cache:       cache,
		logger:      logger,
	}
}

// HandleListPainPoints lists pain points with optional filters, ranked by
// opportunity score
func (h *QueryHandler) HandleListPainPoints(c *gin.Context) {
	filter := models.PainPointFilter{
		Category: c.Query("category"),
		Severity: c.Query("severity"),
		Limit:    parseLimit(c, 50),
	}

	if filter.Category != "" && !models.ValidCategory(filter.Category) {
		utils.ErrorResponse(c, http.StatusBadRequest, "Unknown category", nil)
		return
	}
	if filter.Severity != "" && !models.ValidSeverity(filter.Severity) {
		utils.ErrorResponse(c, http.StatusBadRequest, "Unknown severity", nil)
		return
	}
	if raw := c.Query("min_score"); raw != "" {
		minScore, err := strconv.Atoi(raw)
		if err != nil || minScore < 1 || minScore > 100 {
			utils.ErrorResponse(c, http.StatusBadRequest, "min_score must be between 1 and 100", nil)
			return
		}
		filter.MinScore = minScore
	}

	points, err := h.repoManager.PainPoints.List(filter)
	if err != nil {
		h.logger.WithError(err).Error("Failed to list pain points")
		utils.ErrorResponse(c, http.StatusInternalServerError, "Failed to list pain points", err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "Pain points retrieved", gin.H{
		"pain_points": points,
		"total":       len(points),
	})
}

// HandleListRawItems lists recently ingested raw items
func (h *QueryHandler) HandleListRawItems(c *gin.Context) {
	source := c.Query("source")
	limit := parseLimit(c, 50)

	items, err := h.repoManager.RawItems.GetRecent(source, limit)
	if err != nil {
		h.logger.WithError(err).Error("Failed to list raw items")
		utils.ErrorResponse(c, http.StatusInternalServerError, "Failed to list raw items", err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "Raw items retrieved", gin.H{
		"items": items,
		"total": len(items),
	})
}

// HandleListSessions lists extraction sessions, newest first
func (h *QueryHandler) HandleListSessions(c *gin.Context) {
	status := c.Query("status")
	if status != "" &&
		status != models.SessionInProgress &&
		status != models.SessionCompleted &&
		status != models.SessionFailed {
		utils.ErrorResponse(c, http.StatusBadRequest, "Unknown session status", nil)
		return
	}

	sessions, err := h.repoManager.Sessions.List(status, parseLimit(c, 50))
	if err != nil {
		h.logger.WithError(err).Error("Failed to list sessions")
		utils.ErrorResponse(c, http.StatusInternalServerError, "Failed to list sessions", err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "Sessions retrieved", gin.H{
		"sessions": sessions,
		"total":    len(sessions),
	})
}

// HandleGetSession returns one session together with its pain points
func (h *QueryHandler) HandleGetSession(c *gin.Context) {
	session, ok := h.sessionFromParam(c)
	if !ok {
		return
	}

	points, err := h.repoManager.PainPoints.GetBySession(session.ID, 0)
	if err != nil {
		h.logger.WithError(err).Error("Failed to load session pain points")
		utils.ErrorResponse(c, http.StatusInternalServerError, "Failed to load session pain points", err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "Session retrieved", gin.H{
		"session":     session,
		"pain_points": points,
	})
}

// HandleScorecard returns the session's summary scorecard. Completed sessions
// are frozen, so their scorecards cache aggressively.
func (h *QueryHandler) HandleScorecard(c *gin.Context) {
	session, ok := h.sessionFromParam(c)
	if !ok {
		return
	}

	ctx := c.Request.Context()
	if cached, err := h.cache.GetCachedScorecard(ctx, session.ID); err == nil {
		utils.SuccessResponse(c, http.StatusOK, "Scorecard retrieved", cached)
		return
	}

	top, err := h.repoManager.PainPoints.GetBySession(session.ID, topOpportunities)
	if err != nil {
		h.logger.WithError(err).Error("Failed to load top opportunities")
		utils.ErrorResponse(c, http.StatusInternalServerError, "Failed to build scorecard", err)
		return
	}

	card := buildScorecard(session, top)

	if session.Status == models.SessionCompleted {
		if err := h.cache.CacheScorecard(ctx, session.ID, card, scorecardCacheTTL); err != nil {
			h.logger.WithError(err).Warn("Failed to cache scorecard")
		}
	}

	utils.SuccessResponse(c, http.StatusOK, "Scorecard retrieved", card)
}

// HandleStats returns pipeline totals with a category breakdown
func (h *QueryHandler) HandleStats(c *gin.Context) {
	ctx := c.Request.Context()
	if cached, err := h.cache.GetCachedStats(ctx); err == nil {
		utils.SuccessResponse(c, http.StatusOK, "Stats retrieved", cached)
		return
	}

	totalItems, err := h.repoManager.RawItems.Count()
	if err != nil {
		h.logger.WithError(err).Error("Failed to count raw items")
		utils.ErrorResponse(c, http.StatusInternalServerError, "Failed to compute stats", err)
		return
	}

	totalNegative, err := h.repoManager.RawItems.CountNegative()
	if err != nil {
		h.logger.WithError(err).Error("Failed to count negative items")
		utils.ErrorResponse(c, http.StatusInternalServerError, "Failed to compute stats", err)
		return
	}

	totalPainPoints, err := h.repoManager.PainPoints.Count()
	if err != nil {
		h.logger.WithError(err).Error("Failed to count pain points")
		utils.ErrorResponse(c, http.StatusInternalServerError, "Failed to compute stats", err)
		return
	}

	categories, err := h.repoManager.PainPoints.CategoryCounts()
	if err != nil {
		h.logger.WithError(err).Error("Failed to compute category breakdown")
		utils.ErrorResponse(c, http.StatusInternalServerError, "Failed to compute stats", err)
		return
	}

	stats := &models.StatsResponse{
		TotalItemsScraped: totalItems,
		TotalNegative:     totalNegative,
		TotalPainPoints:   totalPainPoints,
		Categories:        categories,
	}

	if err := h.cache.CacheStats(ctx, stats, statsCacheTTL); err != nil {
		h.logger.WithError(err).Warn("Failed to cache stats")
	}

	utils.SuccessResponse(c, http.StatusOK, "Stats retrieved", stats)
}

func (h *QueryHandler) sessionFromParam(c *gin.Context) (*models.ExtractionSession, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "Invalid session id", nil)
		return nil, false
	}

	session, err := h.repoManager.Sessions.GetByID(uint(id))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.ErrorResponse(c, http.StatusNotFound, "Session not found", nil)
			return nil, false
		}
		h.logger.WithError(err).Error("Failed to load session")
		utils.ErrorResponse(c, http.StatusInternalServerError, "Failed to load session", err)
		return nil, false
	}

	return session, true
}

func buildScorecard(session *models.ExtractionSession, top []models.PainPoint) *models.Scorecard {
	card := &models.Scorecard{
		SessionName:         session.Name,
		Date:                session.StartedAt.Format("2006-01-02"),
		Duration:            (time.Duration(session.DurationSeconds) * time.Second).String(),
		TotalPainPoints:     session.PainPointsExtracted,
		ItemsAnalyzed:       session.ItemsProcessed,
		AvgOpportunityScore: session.AvgOpportunityScore,
		CriticalCount:       session.CriticalSeverityCount,
		HighCount:           session.HighSeverityCount,
		SeverityBreakdown:   session.SeverityBreakdown,
		CategoryBreakdown:   session.CategoryBreakdown,
		Status:              session.Status,
	}

	best := 0
	for category, count := range session.CategoryBreakdown {
		if count > best {
			best = count
			card.TopCategory = category
		}
	}

	card.TopOpportunities = make([]models.TopOpportunity, 0, len(top))
	for _, pp := range top {
		card.TopOpportunities = append(card.TopOpportunities, models.TopOpportunity{
			Problem:  pp.ProblemStatement,
			Category: pp.Category,
			Severity: pp.Severity,
			Score:    pp.OpportunityScore,
		})
	}

	return card
}
