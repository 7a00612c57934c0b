package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/painradar/backend/internal/database"
	"github.com/painradar/backend/internal/models"
	"github.com/painradar/backend/internal/pipeline"
	"github.com/painradar/backend/internal/repository"
	"github.com/painradar/backend/pkg/utils"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// testCache points at a dead address; cache misses and failed writes are the
// handlers' cold path and must not break responses.
func testCache() *database.Cache {
	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1"})
	return database.NewCache(client, logrus.New())
}

type stubRawItemRepo struct {
	models.RawItemRepository
	items    []models.RawItem
	inserted map[string]bool
	total    int64
	negative int64
}

func (r *stubRawItemRepo) InsertOrSkip(item *models.RawItem) (bool, error) {
	if r.inserted == nil {
		r.inserted = make(map[string]bool)
	}
	if r.inserted[item.ExternalID] {
		return false, nil
	}
	r.inserted[item.ExternalID] = true
	return true, nil
}

func (r *stubRawItemRepo) GetRecent(source string, limit int) ([]models.RawItem, error) {
	return r.items, nil
}

func (r *stubRawItemRepo) Count() (int64, error)         { return r.total, nil }
func (r *stubRawItemRepo) CountNegative() (int64, error) { return r.negative, nil }

type stubPainPointRepo struct {
	models.PainPointRepository
	points []models.PainPoint
	counts map[string]int64
}

func (r *stubPainPointRepo) List(filter models.PainPointFilter) ([]models.PainPoint, error) {
	return r.points, nil
}

func (r *stubPainPointRepo) GetBySession(sessionID uint, limit int) ([]models.PainPoint, error) {
	if limit > 0 && limit < len(r.points) {
		return r.points[:limit], nil
	}
	return r.points, nil
}

func (r *stubPainPointRepo) Count() (int64, error) { return int64(len(r.points)), nil }

func (r *stubPainPointRepo) CategoryCounts() (map[string]int64, error) { return r.counts, nil }

type stubSessionRepo struct {
	models.ExtractionSessionRepository
	session *models.ExtractionSession
}

func (r *stubSessionRepo) GetByID(id uint) (*models.ExtractionSession, error) {
	if r.session == nil || r.session.ID != id {
		return nil, gorm.ErrRecordNotFound
	}
	return r.session, nil
}

func newQueryHandler(raw *stubRawItemRepo, points *stubPainPointRepo, sessions *stubSessionRepo) *QueryHandler {
	repoManager := &repository.RepositoryManager{
		RawItems:   raw,
		PainPoints: points,
		Sessions:   sessions,
	}
	return NewQueryHandler(repoManager, testCache(), logrus.New())
}

func performRequest(router *gin.Engine, method, path string, body interface{}) *httptest.ResponseRecorder {
	var reader *bytes.Buffer
	if body != nil {
		data, _ := json.Marshal(body)
		reader = bytes.NewBuffer(data)
	} else {
		reader = bytes.NewBuffer(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decodeResponse(t *testing.T, w *httptest.ResponseRecorder) utils.APIResponse {
	t.Helper()
	var resp utils.APIResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func TestHandleIngest_AcceptsBatch(t *testing.T) {
	raw := &stubRawItemRepo{}
	ingestor := pipeline.NewIngestor(raw, logrus.New())
	handler := NewPipelineHandler(ingestor, nil, nil, nil, testCache(), logrus.New())

	router := gin.New()
	router.POST("/ingest", handler.HandleIngest)

	w := performRequest(router, http.MethodPost, "/ingest", models.IngestRequest{
		Items: []models.CandidateItem{
			{ExternalID: "t3_a", Source: "reddit", Content: "this keeps breaking"},
			{ExternalID: "t3_b", Source: "reddit", Content: "support is unreachable"},
			{ExternalID: "t3_a", Source: "reddit", Content: "duplicate"},
		},
	})

	require.Equal(t, http.StatusOK, w.Code)
	resp := decodeResponse(t, w)
	assert.True(t, resp.Success)

	data := resp.Data.(map[string]interface{})
	assert.Equal(t, float64(2), data["accepted"])
	assert.Equal(t, float64(1), data["skipped"])
}

func TestHandleIngest_EmptyBatchRejected(t *testing.T) {
	handler := NewPipelineHandler(pipeline.NewIngestor(&stubRawItemRepo{}, logrus.New()), nil, nil, nil, testCache(), logrus.New())

	router := gin.New()
	router.POST("/ingest", handler.HandleIngest)

	w := performRequest(router, http.MethodPost, "/ingest", models.IngestRequest{})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandleProcessSentiment_Unconfigured(t *testing.T) {
	handler := NewPipelineHandler(nil, nil, nil, nil, testCache(), logrus.New())

	router := gin.New()
	router.POST("/process/sentiment", handler.HandleProcessSentiment)

	w := performRequest(router, http.MethodPost, "/process/sentiment", nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestHandleListPainPoints_RejectsUnknownFilters(t *testing.T) {
	handler := newQueryHandler(&stubRawItemRepo{}, &stubPainPointRepo{}, &stubSessionRepo{})

	router := gin.New()
	router.GET("/pain-points", handler.HandleListPainPoints)

	assert.Equal(t, http.StatusBadRequest,
		performRequest(router, http.MethodGet, "/pain-points?category=bogus", nil).Code)
	assert.Equal(t, http.StatusBadRequest,
		performRequest(router, http.MethodGet, "/pain-points?severity=bogus", nil).Code)
	assert.Equal(t, http.StatusBadRequest,
		performRequest(router, http.MethodGet, "/pain-points?min_score=500", nil).Code)
}

func TestHandleListPainPoints_ReturnsPoints(t *testing.T) {
	points := &stubPainPointRepo{points: []models.PainPoint{
		{ProblemStatement: "exports time out", Category: "performance", Severity: "high", OpportunityScore: 85},
	}}
	handler := newQueryHandler(&stubRawItemRepo{}, points, &stubSessionRepo{})

	router := gin.New()
	router.GET("/pain-points", handler.HandleListPainPoints)

	w := performRequest(router, http.MethodGet, "/pain-points?category=performance&min_score=50", nil)
	require.Equal(t, http.StatusOK, w.Code)

	resp := decodeResponse(t, w)
	data := resp.Data.(map[string]interface{})
	assert.Equal(t, float64(1), data["total"])
}

func TestHandleGetSession_NotFound(t *testing.T) {
	handler := newQueryHandler(&stubRawItemRepo{}, &stubPainPointRepo{}, &stubSessionRepo{})

	router := gin.New()
	router.GET("/extraction-sessions/:id", handler.HandleGetSession)

	assert.Equal(t, http.StatusNotFound,
		performRequest(router, http.MethodGet, "/extraction-sessions/99", nil).Code)
	assert.Equal(t, http.StatusBadRequest,
		performRequest(router, http.MethodGet, "/extraction-sessions/abc", nil).Code)
}

func TestHandleScorecard_BuildsSummary(t *testing.T) {
	now := time.Now()
	session := &models.ExtractionSession{
		Name:                  "Analysis 2026-08-20 14:00",
		StartedAt:             now.Add(-90 * time.Second),
		CompletedAt:           &now,
		DurationSeconds:       90,
		ItemsProcessed:        10,
		PainPointsExtracted:   8,
		AvgOpportunityScore:   72.5,
		HighSeverityCount:     3,
		CriticalSeverityCount: 1,
		CategoryBreakdown:     models.CountMap{"performance": 5, "pricing": 3},
		SeverityBreakdown:     models.CountMap{"high": 3, "critical": 1, "medium": 4},
		Status:                models.SessionCompleted,
	}
	session.ID = 7

	points := &stubPainPointRepo{points: []models.PainPoint{
		{ProblemStatement: "exports time out", Category: "performance", Severity: "critical", OpportunityScore: 98},
		{ProblemStatement: "pricing tiers confuse buyers", Category: "pricing", Severity: "high", OpportunityScore: 80},
	}}
	handler := newQueryHandler(&stubRawItemRepo{}, points, &stubSessionRepo{session: session})

	router := gin.New()
	router.GET("/extraction-sessions/:id/scorecard", handler.HandleScorecard)

	w := performRequest(router, http.MethodGet, "/extraction-sessions/7/scorecard", nil)
	require.Equal(t, http.StatusOK, w.Code)

	resp := decodeResponse(t, w)
	data := resp.Data.(map[string]interface{})
	assert.Equal(t, "performance", data["top_category"])
	assert.Equal(t, float64(8), data["total_pain_points"])
	assert.Equal(t, "completed", data["status"])

	top := data["top_opportunities"].([]interface{})
	require.Len(t, top, 2)
	first := top[0].(map[string]interface{})
	assert.Equal(t, float64(98), first["score"])
}

func TestHandleStats_ComputesTotals(t *testing.T) {
	raw := &stubRawItemRepo{total: 120, negative: 45}
	points := &stubPainPointRepo{
		points: make([]models.PainPoint, 30),
		counts: map[string]int64{"performance": 18, "pricing": 12},
	}
	handler := newQueryHandler(raw, points, &stubSessionRepo{})

	router := gin.New()
	router.GET("/stats", handler.HandleStats)

	w := performRequest(router, http.MethodGet, "/stats", nil)
	require.Equal(t, http.StatusOK, w.Code)

	resp := decodeResponse(t, w)
	data := resp.Data.(map[string]interface{})
	assert.Equal(t, float64(120), data["total_items_scraped"])
	assert.Equal(t, float64(45), data["total_negative_items"])
	assert.Equal(t, float64(30), data["total_pain_points"])
}
