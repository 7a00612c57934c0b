package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/painradar/backend/internal/health"
	"github.com/painradar/backend/pkg/utils"
	"github.com/sirupsen/logrus"
)

// HealthHandler exposes dependency health
type HealthHandler struct {
	checker *health.HealthChecker
	logger  *logrus.Logger
}

func NewHealthHandler(checker *health.HealthChecker, logger *logrus.Logger) *HealthHandler {
	return &HealthHandler{
		checker: checker,
		logger:  logger,
	}
}

// HandleHealth runs all dependency checks. Degraded still returns 200 since
// the read side keeps working without the adapters.
func (h *HealthHandler) HandleHealth(c *gin.Context) {
	overall := h.checker.CheckAll()

	status := http.StatusOK
	if overall.Status == "unhealthy" {
		status = http.StatusServiceUnavailable
	}

	utils.SuccessResponse(c, status, "Health check completed", overall)
}
