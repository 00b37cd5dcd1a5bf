package handlers

import (
	"net/http"

	"github.com/alan-saberi/lotomax-canada/internal/lotto"
	"github.com/alan-saberi/lotomax-canada/internal/tickets"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// TicketHandler serves ticket generation.
type TicketHandler struct {
	service *tickets.Service
	logger  *logrus.Logger
}

func NewTicketHandler(service *tickets.Service, logger *logrus.Logger) *TicketHandler {
	return &TicketHandler{
		service: service,
		logger:  logger,
	}
}

// GenerateTickets handles POST /api/v1/tickets
func (h *TicketHandler) GenerateTickets(c *gin.Context) {
	var req tickets.BatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	batch, err := h.service.GenerateBatch(c.Request.Context(), req)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, batch)
}

// GetLimits handles GET /api/v1/tickets/limits
func (h *TicketHandler) GetLimits(c *gin.Context) {
	cfg := h.service.Config()
	c.JSON(http.StatusOK, gin.H{
		"max_tickets":            cfg.MaxTickets,
		"max_extra_sets":         cfg.MaxExtraSets,
		"default_damping_factor": cfg.DefaultDampingFactor,
		"max_lucky_numbers":      lotto.MaxLuckyNumbers,
	})
}
