package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alan-saberi/lotomax-canada/internal/api"
	"github.com/alan-saberi/lotomax-canada/internal/api/handlers"
	"github.com/alan-saberi/lotomax-canada/internal/lotto"
	"github.com/alan-saberi/lotomax-canada/internal/simulator"
	"github.com/alan-saberi/lotomax-canada/internal/stats"
	"github.com/alan-saberi/lotomax-canada/internal/tickets"
	"github.com/alan-saberi/lotomax-canada/pkg/config"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/suite"
)

type fakeStatistics struct {
	mu         sync.Mutex
	stats      *lotto.Statistics
	err        error
	refreshErr error
	refreshed  int
}

func (f *fakeStatistics) Current() (*lotto.Statistics, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.stats, f.err
}

func (f *fakeStatistics) Refresh(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.refreshed++
	return f.refreshErr
}

func (f *fakeStatistics) Status() stats.Status {
	f.mu.Lock()
	defer f.mu.Unlock()
	return stats.Status{Provider: "fake", Loaded: f.stats != nil, RefreshCount: f.refreshed}
}

type failingPinger struct{}

func (failingPinger) Ping(context.Context) error { return errors.New("connection refused") }

func testStatistics() *lotto.Statistics {
	freq := lotto.UniformFrequencyTable(50)
	freq[7] = 90
	freq[50] = 5
	return &lotto.Statistics{
		Frequency: freq,
		Pools: map[lotto.PoolKind]lotto.GroupPool{
			lotto.PoolPairs:    {{Numbers: []int{3, 19}, Frequency: 41}},
			lotto.PoolQuads:    {{Numbers: []int{6, 13, 27, 44}, Frequency: 2}},
			lotto.PoolTriplets: {{Numbers: []int{2, 14, 33}, Frequency: 9}},
		},
		Source:    "fixture",
		FetchedAt: time.Date(2024, 9, 1, 0, 0, 0, 0, time.UTC),
	}
}

type RouterTestSuite struct {
	suite.Suite
	statistics *fakeStatistics
	router     *gin.Engine
	cfg        *config.Config
}

func (s *RouterTestSuite) SetupTest() {
	gin.SetMode(gin.TestMode)

	logger := logrus.New()
	logger.SetOutput(io.Discard)

	s.cfg = &config.Config{
		CorsOrigins:          []string{"http://localhost:5173"},
		DefaultDampingFactor: 0.8,
		MaxTickets:           10,
		MaxExtraSets:         10,
		MaxSimulations:       5000,
		SimulationWorkers:    2,
	}
	s.statistics = &fakeStatistics{stats: testStatistics()}

	s.router = api.NewRouter(api.Dependencies{
		Config:     s.cfg,
		Logger:     logger,
		Statistics: s.statistics,
		Tickets: tickets.NewService(s.statistics, tickets.Config{
			MaxTickets:           s.cfg.MaxTickets,
			MaxExtraSets:         s.cfg.MaxExtraSets,
			DefaultDampingFactor: s.cfg.DefaultDampingFactor,
		}, logger),
	})
}

func (s *RouterTestSuite) do(method, path, body string) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func (s *RouterTestSuite) decodeError(w *httptest.ResponseRecorder) handlers.ErrorResponse {
	var resp handlers.ErrorResponse
	s.Require().NoError(json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func (s *RouterTestSuite) TestGenerateTickets() {
	w := s.do(http.MethodPost, "/api/v1/tickets", `{"count": 3, "lucky_numbers": [7, 21], "extra_sets": 2, "seed": 42}`)
	s.Require().Equal(http.StatusOK, w.Code, w.Body.String())

	var batch tickets.Batch
	s.Require().NoError(json.Unmarshal(w.Body.Bytes(), &batch))
	s.Equal(uint64(42), batch.Seed)
	s.Equal("fixture", batch.Source)
	s.Len(batch.Tickets, 3)
	s.Len(batch.Extras, 2)
	for _, ticket := range batch.Tickets {
		s.Len(ticket.Numbers, lotto.TicketSize)
		s.Contains(ticket.Numbers, 7)
		s.Contains(ticket.Numbers, 21)
	}
	s.NotEmpty(w.Header().Get("X-Request-ID"))
}

func (s *RouterTestSuite) TestGenerateTickets_InvalidInput() {
	tests := []struct {
		body  string
		field string
	}{
		{`{"count": 0}`, "count"},
		{`{"count": 11}`, "count"},
		{`{"count": 1, "damping_factor": 1.2}`, "damping_factor"},
		{`{"count": 1, "lucky_numbers": [0]}`, "lucky_numbers"},
		{`{"count": 1, "extra_sets": 11}`, "extra_sets"},
		{`{"count": 1, "extra_sets": -1}`, "extra_sets"},
		{`{"count": 1, "lucky_numbers": [7, 7]}`, "lucky_numbers"},
		{`{"count": 1, "lucky_numbers": [1, 2, 3, 4, 5, 6, 7, 8]}`, "lucky_numbers"},
		{`{"count": 1, "ticket_lucky_numbers": [[51]]}`, "ticket_lucky_numbers"},
		{`{"count": 2, "ticket_lucky_numbers": [[5]]}`, "ticket_lucky_numbers"},
	}
	for _, tt := range tests {
		w := s.do(http.MethodPost, "/api/v1/tickets", tt.body)
		s.Equal(http.StatusBadRequest, w.Code, tt.body)
		resp := s.decodeError(w)
		s.Equal(handlers.CodeInvalidRequest, resp.Code)
		s.Equal(tt.field, resp.Details["field"])
	}

	w := s.do(http.MethodPost, "/api/v1/tickets", `{"count": "three"}`)
	s.Equal(http.StatusBadRequest, w.Code)
	s.Equal(handlers.CodeInvalidRequest, s.decodeError(w).Code)
}

func (s *RouterTestSuite) TestGenerateTickets_InsufficientData() {
	empty := testStatistics()
	empty.Frequency = lotto.UniformFrequencyTable(0)
	s.statistics.stats = empty

	w := s.do(http.MethodPost, "/api/v1/tickets", `{"count": 1}`)
	s.Equal(http.StatusUnprocessableEntity, w.Code)
	s.Equal(handlers.CodeInsufficientData, s.decodeError(w).Code)
}

func (s *RouterTestSuite) TestGetLimits() {
	w := s.do(http.MethodGet, "/api/v1/tickets/limits", "")
	s.Require().Equal(http.StatusOK, w.Code)

	var limits map[string]float64
	s.Require().NoError(json.Unmarshal(w.Body.Bytes(), &limits))
	s.Equal(10.0, limits["max_tickets"])
	s.Equal(0.8, limits["default_damping_factor"])
	s.Equal(7.0, limits["max_lucky_numbers"])
}

func (s *RouterTestSuite) TestGetStatistics() {
	w := s.do(http.MethodGet, "/api/v1/statistics?top=3", "")
	s.Require().Equal(http.StatusOK, w.Code)

	var resp handlers.StatisticsResponse
	s.Require().NoError(json.Unmarshal(w.Body.Bytes(), &resp))
	s.Equal([]int{7, 1, 2}, resp.Summary.Hottest)
	s.Equal(50, resp.Summary.Coldest[0])
	s.Equal(1, resp.Summary.PoolSizes[lotto.PoolQuads])
	s.Equal(0, resp.Summary.PoolSizes[lotto.PoolConsecutivePairs])
	s.True(resp.Status.Loaded)
	s.Nil(resp.Statistics)

	w = s.do(http.MethodGet, "/api/v1/statistics?full=true", "")
	s.Require().NoError(json.Unmarshal(w.Body.Bytes(), &resp))
	s.Require().NotNil(resp.Statistics)
	s.Equal(90, resp.Statistics.Frequency[7])

	w = s.do(http.MethodGet, "/api/v1/statistics?top=99", "")
	s.Equal(http.StatusBadRequest, w.Code)
}

func (s *RouterTestSuite) TestGetStatistics_NotLoaded() {
	s.statistics.stats = nil
	s.statistics.err = stats.ErrNotLoaded

	w := s.do(http.MethodGet, "/api/v1/statistics", "")
	s.Equal(http.StatusUnprocessableEntity, w.Code)
}

func (s *RouterTestSuite) TestRefreshStatistics() {
	w := s.do(http.MethodPost, "/api/v1/statistics/refresh", "")
	s.Require().Equal(http.StatusOK, w.Code)
	s.Equal(1, s.statistics.refreshed)

	s.statistics.refreshErr = errors.New("site down")
	w = s.do(http.MethodPost, "/api/v1/statistics/refresh", "")
	s.Equal(http.StatusBadGateway, w.Code)
	resp := s.decodeError(w)
	s.Equal(handlers.CodeRefreshFailed, resp.Code)
	s.Equal("site down", resp.Details["reason"])
}

func (s *RouterTestSuite) TestRunSimulation() {
	w := s.do(http.MethodPost, "/api/v1/simulate", `{"num_draws": 800, "seed": 3, "lucky_numbers": [9]}`)
	s.Require().Equal(http.StatusOK, w.Code, w.Body.String())

	var result simulator.SimulationResult
	s.Require().NoError(json.Unmarshal(w.Body.Bytes(), &result))
	s.Equal(800, result.NumDraws)
	s.Equal(2, result.Workers)
	s.Equal(1.0, result.HitRates[9])
	s.Equal(48, result.DegreesOfFreedom)

	w = s.do(http.MethodPost, "/api/v1/simulate", `{"num_draws": 5001}`)
	s.Equal(http.StatusBadRequest, w.Code)
	s.Equal("num_draws", s.decodeError(w).Details["field"])

	w = s.do(http.MethodPost, "/api/v1/simulate", `{"lucky_numbers": [9]}`)
	s.Equal(http.StatusBadRequest, w.Code)
	s.Equal("num_draws", s.decodeError(w).Details["field"])

	w = s.do(http.MethodPost, "/api/v1/simulate", `{"num_draws": 10, "lucky_numbers": [9, 9]}`)
	s.Equal(http.StatusBadRequest, w.Code)
	s.Equal("lucky_numbers", s.decodeError(w).Details["field"])
}

func (s *RouterTestSuite) TestStreamSimulation() {
	server := httptest.NewServer(s.router)
	defer server.Close()

	url := "ws" + strings.TrimPrefix(server.URL, "http") + "/ws/simulate"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	s.Require().NoError(err)
	defer conn.Close()

	s.Require().NoError(conn.WriteJSON(handlers.SimulationRequest{NumDraws: 1500}))

	var sawProgress bool
	for {
		var msg struct {
			Type string          `json:"type"`
			Data json.RawMessage `json:"data"`
		}
		conn.SetReadDeadline(time.Now().Add(10 * time.Second))
		s.Require().NoError(conn.ReadJSON(&msg))

		if msg.Type == "progress" {
			var p simulator.SimulationProgress
			s.Require().NoError(json.Unmarshal(msg.Data, &p))
			s.Equal(1500, p.TotalDraws)
			sawProgress = true
			continue
		}

		s.Require().Equal("result", msg.Type, string(msg.Data))
		var result simulator.SimulationResult
		s.Require().NoError(json.Unmarshal(msg.Data, &result))
		s.Equal(1500, result.NumDraws)
		break
	}
	s.True(sawProgress)
}

func (s *RouterTestSuite) TestStreamSimulation_InvalidRequest() {
	server := httptest.NewServer(s.router)
	defer server.Close()

	url := "ws" + strings.TrimPrefix(server.URL, "http") + "/ws/simulate"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	s.Require().NoError(err)
	defer conn.Close()

	s.Require().NoError(conn.WriteJSON(map[string]interface{}{"num_draws": 10, "damping_factor": 0}))

	var msg struct {
		Type string                 `json:"type"`
		Data handlers.ErrorResponse `json:"data"`
	}
	s.Require().NoError(conn.ReadJSON(&msg))
	s.Equal("error", msg.Type)
	s.Equal(handlers.CodeInvalidRequest, msg.Data.Code)
	s.Equal("damping_factor", msg.Data.Details["field"])
}

func (s *RouterTestSuite) TestHealthAndReady() {
	w := s.do(http.MethodGet, "/health", "")
	s.Require().Equal(http.StatusOK, w.Code)
	var health handlers.HealthStatus
	s.Require().NoError(json.Unmarshal(w.Body.Bytes(), &health))
	s.Equal("ok", health.Status)
	s.Equal("not_configured", health.Checks["database"])

	w = s.do(http.MethodGet, "/ready", "")
	s.Equal(http.StatusOK, w.Code)

	s.statistics.stats = nil
	s.statistics.err = stats.ErrNotLoaded
	w = s.do(http.MethodGet, "/ready", "")
	s.Equal(http.StatusServiceUnavailable, w.Code)
}

func (s *RouterTestSuite) TestHealth_DegradedBackend() {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	router := api.NewRouter(api.Dependencies{
		Config:     s.cfg,
		Logger:     logger,
		Statistics: s.statistics,
		Tickets:    tickets.NewService(s.statistics, tickets.Config{}, logger),
		Cache:      failingPinger{},
	})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

	var health handlers.HealthStatus
	s.Require().NoError(json.Unmarshal(w.Body.Bytes(), &health))
	s.Equal("degraded", health.Status)
	s.Contains(health.Checks["redis"], "connection refused")
}

func (s *RouterTestSuite) TestCORS() {
	req := httptest.NewRequest(http.MethodOptions, "/api/v1/tickets", bytes.NewReader(nil))
	req.Header.Set("Origin", "http://localhost:5173")
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)

	s.Equal(http.StatusNoContent, w.Code)
	s.Equal("http://localhost:5173", w.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("Origin", "http://evil.example")
	w = httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	s.Empty(w.Header().Get("Access-Control-Allow-Origin"))
}

func TestRouterTestSuite(t *testing.T) {
	suite.Run(t, new(RouterTestSuite))
}
