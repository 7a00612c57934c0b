package api

import (
	"github.com/gin-gonic/gin"
	"github.com/painradar/backend/internal/api/handlers"
	"github.com/painradar/backend/internal/middleware"
)

// SetupRouter wires the HTTP surface. The pipeline and query endpoints share
// one rate-limited v1 group; health stays outside it so probes never get
// throttled.
func SetupRouter(
	pipelineHandler *handlers.PipelineHandler,
	queryHandler *handlers.QueryHandler,
	healthHandler *handlers.HealthHandler,
	requestsPerMinute int,
) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestID())
	router.Use(middleware.SecurityHeaders())

	router.GET("/health", healthHandler.HandleHealth)

	rateLimiter := middleware.NewRateLimiter(requestsPerMinute)

	v1 := router.Group("/api/v1")
	v1.Use(rateLimiter.RateLimit())
	{
		v1.POST("/ingest", pipelineHandler.HandleIngest)
		v1.POST("/scrape/reddit", pipelineHandler.HandleScrapeReddit)
		v1.POST("/process/sentiment", pipelineHandler.HandleProcessSentiment)
		v1.POST("/extract/pain-points", pipelineHandler.HandleExtract)

		v1.GET("/pain-points", queryHandler.HandleListPainPoints)
		v1.GET("/raw-items", queryHandler.HandleListRawItems)
		v1.GET("/extraction-sessions", queryHandler.HandleListSessions)
		v1.GET("/extraction-sessions/:id", queryHandler.HandleGetSession)
		v1.GET("/extraction-sessions/:id/scorecard", queryHandler.HandleScorecard)
		v1.GET("/stats", queryHandler.HandleStats)
	}

	return router
}
