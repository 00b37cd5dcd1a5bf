package handlers

import (
	"context"
	"fmt"
	"math/rand/v2"
	"net/http"
	"time"

	"github.com/alan-saberi/lotomax-canada/internal/lotto"
	"github.com/alan-saberi/lotomax-canada/internal/simulator"
	"github.com/alan-saberi/lotomax-canada/pkg/config"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

const (
	wsWriteTimeout = 10 * time.Second
	wsReadTimeout  = 30 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// SimulationHandler runs Monte Carlo simulations over the current statistics.
type SimulationHandler struct {
	statistics StatisticsService
	config     *config.Config
	logger     *logrus.Logger
}

func NewSimulationHandler(statistics StatisticsService, cfg *config.Config, logger *logrus.Logger) *SimulationHandler {
	return &SimulationHandler{
		statistics: statistics,
		config:     cfg,
		logger:     logger,
	}
}

// SimulationRequest represents a request to run a Monte Carlo simulation
type SimulationRequest struct {
	NumDraws      int      `json:"num_draws" binding:"required,min=1"`
	DampingFactor *float64 `json:"damping_factor,omitempty" binding:"omitempty,gt=0,lte=1"`
	LuckyNumbers  []int    `json:"lucky_numbers,omitempty" binding:"omitempty,max=7,unique,dive,min=1,max=50"`
	Seed          *uint64  `json:"seed,omitempty"`
}

// WSMessage frames every message sent on the simulation socket.
type WSMessage struct {
	Type string      `json:"type"` // "progress", "result" or "error"
	Data interface{} `json:"data"`
}

// newSimulator validates req and binds it to the current statistics.
func (h *SimulationHandler) newSimulator(req SimulationRequest) (*simulator.Simulator, error) {
	if req.NumDraws < 1 || req.NumDraws > h.config.MaxSimulations {
		return nil, &lotto.InputValidationError{
			Field:  "num_draws",
			Reason: fmt.Sprintf("must be between 1 and %d, got %d", h.config.MaxSimulations, req.NumDraws),
		}
	}

	damping := h.config.DefaultDampingFactor
	if req.DampingFactor != nil {
		if err := lotto.ValidateDampingInput(*req.DampingFactor); err != nil {
			return nil, err
		}
		damping = *req.DampingFactor
	}
	if err := lotto.ValidateLuckyNumbers(req.LuckyNumbers); err != nil {
		return nil, err
	}

	current, err := h.statistics.Current()
	if err != nil {
		return nil, &lotto.ConfigurationError{Reason: err.Error(), Err: lotto.ErrInsufficientData}
	}

	seed := rand.Uint64()
	if req.Seed != nil {
		seed = *req.Seed
	}

	return simulator.NewSimulator(current, simulator.SimulationConfig{
		NumDraws:          req.NumDraws,
		SimulationWorkers: h.config.SimulationWorkers,
		DampingFactor:     damping,
		LuckyNumbers:      req.LuckyNumbers,
		Seed:              seed,
	}, h.logger), nil
}

// RunSimulation handles POST /api/v1/simulate
func (h *SimulationHandler) RunSimulation(c *gin.Context) {
	var req SimulationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	sim, err := h.newSimulator(req)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	result, err := sim.Run(c.Request.Context(), nil)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// StreamSimulation handles GET /ws/simulate. The client sends one
// SimulationRequest; the server answers with progress messages followed by
// a single result or error message, then closes the socket.
func (h *SimulationHandler) StreamSimulation(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.WithError(err).Error("Failed to upgrade websocket connection")
		return
	}
	defer conn.Close()

	conn.SetReadDeadline(time.Now().Add(wsReadTimeout))
	var req SimulationRequest
	if err := conn.ReadJSON(&req); err != nil {
		h.writeMessage(conn, WSMessage{Type: "error", Data: ErrorResponse{
			Error:   "invalid simulation request",
			Code:    CodeInvalidRequest,
			Details: map[string]string{"body": err.Error()},
		}})
		return
	}
	if err := binding.Validator.ValidateStruct(&req); err != nil {
		h.writeMessage(conn, WSMessage{Type: "error", Data: bindErrorResponse(err)})
		return
	}

	sim, err := h.newSimulator(req)
	if err != nil {
		_, resp := errorResponse(err)
		h.writeMessage(conn, WSMessage{Type: "error", Data: resp})
		return
	}

	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()

	// A client that disconnects cancels the run.
	go func() {
		conn.SetReadDeadline(time.Time{})
		for {
			if _, _, err := conn.NextReader(); err != nil {
				cancel()
				return
			}
		}
	}()

	type outcome struct {
		result *simulator.SimulationResult
		err    error
	}
	progress := make(chan simulator.SimulationProgress, 16)
	done := make(chan outcome, 1)
	go func() {
		result, err := sim.Run(ctx, progress)
		close(progress)
		done <- outcome{result: result, err: err}
	}()

	for update := range progress {
		if err := h.writeMessage(conn, WSMessage{Type: "progress", Data: update}); err != nil {
			cancel()
		}
	}

	out := <-done
	if out.err != nil {
		_, resp := errorResponse(out.err)
		h.writeMessage(conn, WSMessage{Type: "error", Data: resp})
		return
	}
	h.writeMessage(conn, WSMessage{Type: "result", Data: out.result})
	conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, "simulation complete"),
		time.Now().Add(wsWriteTimeout))
}

func (h *SimulationHandler) writeMessage(conn *websocket.Conn, msg WSMessage) error {
	conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
	if err := conn.WriteJSON(msg); err != nil {
		h.logger.WithError(err).WithField("type", msg.Type).Debug("Failed to write websocket message")
		return err
	}
	return nil
}
