package handlers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/alan-saberi/lotomax-canada/internal/lotto"
	"github.com/alan-saberi/lotomax-canada/internal/stats"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

const defaultSummaryTop = 10

// StatisticsService is implemented by *stats.Refresher.
type StatisticsService interface {
	Current() (*lotto.Statistics, error)
	Refresh(ctx context.Context) error
	Status() stats.Status
}

type StatisticsHandler struct {
	statistics StatisticsService
	logger     *logrus.Logger
}

func NewStatisticsHandler(statistics StatisticsService, logger *logrus.Logger) *StatisticsHandler {
	return &StatisticsHandler{
		statistics: statistics,
		logger:     logger,
	}
}

type StatisticsResponse struct {
	Summary    lotto.Summary     `json:"summary"`
	Status     stats.Status      `json:"status"`
	Statistics *lotto.Statistics `json:"statistics,omitempty"`
}

// GetStatistics handles GET /api/v1/statistics?top=10&full=true
func (h *StatisticsHandler) GetStatistics(c *gin.Context) {
	current, err := h.statistics.Current()
	if err != nil {
		respondError(c, h.logger, &lotto.ConfigurationError{Reason: err.Error(), Err: lotto.ErrInsufficientData})
		return
	}

	top := defaultSummaryTop
	if raw := c.Query("top"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > lotto.MaxNumber {
			respondError(c, h.logger, &lotto.InputValidationError{Field: "top", Reason: "must be between 1 and 50"})
			return
		}
		top = n
	}

	resp := StatisticsResponse{
		Summary: current.Summarize(top),
		Status:  h.statistics.Status(),
	}
	if c.Query("full") == "true" {
		resp.Statistics = current
	}
	c.JSON(http.StatusOK, resp)
}

// RefreshStatistics handles POST /api/v1/statistics/refresh
func (h *StatisticsHandler) RefreshStatistics(c *gin.Context) {
	if err := h.statistics.Refresh(c.Request.Context()); err != nil {
		h.logger.WithError(err).Error("Manual statistics refresh failed")
		c.JSON(http.StatusBadGateway, ErrorResponse{
			Error: "failed to refresh statistics",
			Code:  CodeRefreshFailed,
			Details: map[string]string{
				"reason": err.Error(),
			},
		})
		return
	}

	current, err := h.statistics.Current()
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, SuccessResponse{
		Message: "statistics refreshed",
		Data:    current.Summarize(defaultSummaryTop),
	})
}
