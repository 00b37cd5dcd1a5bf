package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

const serviceName = "lotomax-canada"

// Pinger is a backing store the health checks can probe.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler handles health check endpoints
type HealthHandler struct {
	statistics StatisticsService
	store      Pinger
	cache      Pinger
	logger     *logrus.Logger
}

// NewHealthHandler creates a new health handler. store and cache may be nil
// when they are not configured.
func NewHealthHandler(statistics StatisticsService, store, cache Pinger, logger *logrus.Logger) *HealthHandler {
	return &HealthHandler{
		statistics: statistics,
		store:      store,
		cache:      cache,
		logger:     logger,
	}
}

func (h *HealthHandler) checkBackends(ctx context.Context, checks map[string]string) bool {
	healthy := true
	for name, pinger := range map[string]Pinger{"database": h.store, "redis": h.cache} {
		if pinger == nil {
			checks[name] = "not_configured"
			continue
		}
		if err := pinger.Ping(ctx); err != nil {
			checks[name] = "failed: " + err.Error()
			healthy = false
		} else {
			checks[name] = "ok"
		}
	}
	return healthy
}

// GetHealth returns the basic health status
func (h *HealthHandler) GetHealth(c *gin.Context) {
	response := HealthStatus{
		Status:    "ok",
		Service:   serviceName,
		Timestamp: time.Now(),
		Checks:    make(map[string]string),
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	// Backends only speed up and back up statistics loading.
	if !h.checkBackends(ctx, response.Checks) {
		response.Status = "degraded"
	}

	status := h.statistics.Status()
	if status.LastError != "" {
		response.Checks["statistics"] = "last refresh failed: " + status.LastError
	} else {
		response.Checks["statistics"] = "ok"
	}

	c.JSON(http.StatusOK, response)
}

// GetReady reports ready once statistics are loaded; tickets cannot be
// generated before that.
func (h *HealthHandler) GetReady(c *gin.Context) {
	response := HealthStatus{
		Status:    "ready",
		Service:   serviceName,
		Timestamp: time.Now(),
		Checks:    make(map[string]string),
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()
	h.checkBackends(ctx, response.Checks)

	if _, err := h.statistics.Current(); err != nil {
		response.Status = "not_ready"
		response.Checks["statistics"] = err.Error()
	} else {
		response.Checks["statistics"] = "loaded"
	}

	statusCode := http.StatusOK
	if response.Status != "ready" {
		statusCode = http.StatusServiceUnavailable
		h.logger.WithField("checks", response.Checks).Warn("Service not ready")
	}

	c.JSON(statusCode, response)
}
