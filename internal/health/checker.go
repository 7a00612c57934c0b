package health

import (
	"time"

	"github.com/painradar/backend/internal/config"
	"github.com/painradar/backend/internal/database"
	"github.com/sirupsen/logrus"
)

// HealthChecker manages health checks for the pipeline's dependencies
type HealthChecker struct {
	dbManager *database.Manager
	cfg       *config.Config
	logger    *logrus.Logger
}

func NewHealthChecker(dbManager *database.Manager, cfg *config.Config, logger *logrus.Logger) *HealthChecker {
	return &HealthChecker{
		dbManager: dbManager,
		cfg:       cfg,
		logger:    logger,
	}
}

// ServiceHealth represents the health status of a service
type ServiceHealth struct {
	Name         string `json:"name"`
	Status       string `json:"status"`
	ResponseTime int    `json:"response_time_ms"`
	Error        string `json:"error,omitempty"`
	LastChecked  string `json:"last_checked"`
}

// OverallHealth represents the overall system health
type OverallHealth struct {
	Status   string          `json:"status"`
	Services []ServiceHealth `json:"services"`
	Uptime   string          `json:"uptime"`
}

// CheckPostgreSQL checks PostgreSQL database health
func (h *HealthChecker) CheckPostgreSQL() ServiceHealth {
	start := time.Now()
	err := h.dbManager.PingDatabase()
	responseTime := int(time.Since(start).Milliseconds())

	status := "healthy"
	errorMsg := ""
	if err != nil {
		status = "unhealthy"
		errorMsg = err.Error()
		h.logger.WithError(err).Error("PostgreSQL health check failed")
	}

	return ServiceHealth{
		Name:         "postgresql",
		Status:       status,
		ResponseTime: responseTime,
		Error:        errorMsg,
		LastChecked:  time.Now().Format(time.RFC3339),
	}
}

// CheckRedis checks Redis cache health
func (h *HealthChecker) CheckRedis() ServiceHealth {
	start := time.Now()
	err := h.dbManager.PingRedis()
	responseTime := int(time.Since(start).Milliseconds())

	status := "healthy"
	errorMsg := ""
	if err != nil {
		status = "unhealthy"
		errorMsg = err.Error()
		h.logger.WithError(err).Error("Redis health check failed")
	}

	return ServiceHealth{
		Name:         "redis",
		Status:       status,
		ResponseTime: responseTime,
		Error:        errorMsg,
		LastChecked:  time.Now().Format(time.RFC3339),
	}
}

// CheckSentimentAdapter reports whether the Workers AI classifier is usable.
// A missing credential degrades the system rather than failing it: the
// sentiment pass fails open to neutral anyway.
func (h *HealthChecker) CheckSentimentAdapter() ServiceHealth {
	status := "healthy"
	errorMsg := ""
	if err := h.cfg.ValidateCloudflare(); err != nil {
		status = "degraded"
		errorMsg = err.Error()
	}

	return ServiceHealth{
		Name:        "sentiment_adapter",
		Status:      status,
		Error:       errorMsg,
		LastChecked: time.Now().Format(time.RFC3339),
	}
}

// CheckExtractionAdapter reports whether the Gemini extractor is usable
func (h *HealthChecker) CheckExtractionAdapter() ServiceHealth {
	status := "healthy"
	errorMsg := ""
	if err := h.cfg.ValidateGemini(); err != nil {
		status = "degraded"
		errorMsg = err.Error()
	}

	return ServiceHealth{
		Name:        "extraction_adapter",
		Status:      status,
		Error:       errorMsg,
		LastChecked: time.Now().Format(time.RFC3339),
	}
}

// CheckAll performs health checks on all services
func (h *HealthChecker) CheckAll() OverallHealth {
	services := []ServiceHealth{
		h.CheckPostgreSQL(),
		h.CheckRedis(),
		h.CheckSentimentAdapter(),
		h.CheckExtractionAdapter(),
	}

	overallStatus := "healthy"
	for _, service := range services {
		if service.Status == "unhealthy" {
			overallStatus = "unhealthy"
			break
		}
		if service.Status == "degraded" && overallStatus == "healthy" {
			overallStatus = "degraded"
		}
	}

	return OverallHealth{
		Status:   overallStatus,
		Services: services,
		Uptime:   h.getUptime(),
	}
}

var startTime = time.Now()

func (h *HealthChecker) getUptime() string {
	uptime := time.Since(startTime)
	return uptime.String()
}
