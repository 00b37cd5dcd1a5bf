package api

import (
	"github.com/alan-saberi/lotomax-canada/internal/api/handlers"
	"github.com/alan-saberi/lotomax-canada/internal/api/middleware"
	"github.com/alan-saberi/lotomax-canada/internal/tickets"
	"github.com/alan-saberi/lotomax-canada/pkg/config"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// Dependencies are the services the HTTP layer needs. Store and Cache are
// optional.
type Dependencies struct {
	Config     *config.Config
	Logger     *logrus.Logger
	Statistics handlers.StatisticsService
	Tickets    *tickets.Service
	Store      handlers.Pinger
	Cache      handlers.Pinger
}

// NewRouter builds the gin engine with every route registered.
func NewRouter(deps Dependencies) *gin.Engine {
	handlers.UseJSONFieldNames()

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestID())
	router.Use(middleware.RequestLogger(deps.Logger))
	router.Use(middleware.CORS(deps.Config.CorsOrigins))

	ticketHandler := handlers.NewTicketHandler(deps.Tickets, deps.Logger)
	statisticsHandler := handlers.NewStatisticsHandler(deps.Statistics, deps.Logger)
	simulationHandler := handlers.NewSimulationHandler(deps.Statistics, deps.Config, deps.Logger)
	healthHandler := handlers.NewHealthHandler(deps.Statistics, deps.Store, deps.Cache, deps.Logger)

	apiV1 := router.Group("/api/v1")
	{
		apiV1.POST("/tickets", ticketHandler.GenerateTickets)
		apiV1.GET("/tickets/limits", ticketHandler.GetLimits)

		apiV1.GET("/statistics", statisticsHandler.GetStatistics)
		apiV1.POST("/statistics/refresh", statisticsHandler.RefreshStatistics)

		apiV1.POST("/simulate", simulationHandler.RunSimulation)
	}

	router.GET("/ws/simulate", simulationHandler.StreamSimulation)

	router.GET("/health", healthHandler.GetHealth)
	router.GET("/ready", healthHandler.GetReady)

	return router
}
