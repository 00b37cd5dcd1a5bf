package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/alan-saberi/lotomax-canada/internal/api"
	"github.com/alan-saberi/lotomax-canada/internal/api/handlers"
	"github.com/alan-saberi/lotomax-canada/internal/stats"
	"github.com/alan-saberi/lotomax-canada/internal/tickets"
	"github.com/alan-saberi/lotomax-canada/pkg/config"
	"github.com/alan-saberi/lotomax-canada/pkg/database"
	"github.com/alan-saberi/lotomax-canada/pkg/logger"
)

const snapshotPruneSchedule = "0 3 * * *" // 3 AM daily

func main() {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		logrus.Fatalf("Failed to load config: %v", err)
	}

	structuredLogger := logger.InitLogger(cfg.LogLevel, cfg.IsDevelopment())
	log := logger.WithService("lotomax-canada")
	log.WithFields(logrus.Fields{
		"environment":  cfg.Env,
		"port":         cfg.Port,
		"stats_source": cfg.StatsSource,
	}).Info("Starting ticket service")

	if cfg.IsDevelopment() {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	// Upstream statistics provider
	var provider stats.Provider
	switch cfg.StatsSource {
	case "file":
		provider = stats.NewFileProvider(cfg.StatsFile, structuredLogger)
	default:
		provider = stats.NewScraper(stats.ScraperConfig{
			BaseURL:          cfg.StatsBaseURL,
			Timeout:          cfg.ExternalAPITimeout,
			RateLimit:        cfg.ScraperRateLimit,
			BreakerThreshold: cfg.CircuitBreakerThreshold,
		}, structuredLogger)
	}

	// Snapshot store (optional)
	var store *stats.Store
	var storePinger handlers.Pinger
	if cfg.DatabaseURL != "" {
		db, err := database.NewConnection(database.ConnectionConfig{
			DatabaseURL:     cfg.DatabaseURL,
			IsDevelopment:   cfg.IsDevelopment(),
			MaxIdleConns:    cfg.DBMaxIdleConns,
			MaxOpenConns:    cfg.DBMaxOpenConns,
			ConnMaxLifetime: cfg.DBConnMaxLifetime,
		})
		if err != nil {
			log.Fatalf("Failed to connect to database: %v", err)
		}
		defer db.Close()

		store = stats.NewStore(db.DB, structuredLogger)
		if err := store.Migrate(); err != nil {
			log.Fatalf("Failed to migrate database: %v", err)
		}
		provider = stats.NewSnapshotProvider(provider, store, structuredLogger)
		storePinger = store
	}

	// Redis cache (optional)
	var cachePinger handlers.Pinger
	if cfg.RedisURL != "" {
		redisClient, err := stats.NewRedisClient(context.Background(), cfg.RedisURL)
		if err != nil {
			log.Fatalf("Failed to connect to Redis: %v", err)
		}
		defer redisClient.Close()

		cache := stats.NewCache(redisClient, cfg.StatsCacheTTL, structuredLogger)
		provider = stats.NewCachedProvider(provider, cache)
		cachePinger = cache
	}

	refresher := stats.NewRefresher(provider, structuredLogger)

	loadCtx, cancelLoad := context.WithTimeout(context.Background(), time.Minute)
	if err := refresher.Load(loadCtx); err != nil {
		// The service still starts; /ready reports not_ready until a
		// scheduled or manual refresh succeeds.
		log.WithError(err).Error("Initial statistics load failed")
	}
	cancelLoad()

	if store != nil {
		retention := cfg.SnapshotRetention
		if err := refresher.Schedule("snapshot_prune", snapshotPruneSchedule, func(ctx context.Context) error {
			_, err := store.Prune(ctx, retention)
			return err
		}); err != nil {
			log.Errorf("Failed to schedule snapshot pruning: %v", err)
		}
	}
	if err := refresher.Start(cfg.StatsRefreshSchedule); err != nil {
		log.Errorf("Failed to start statistics refresher: %v", err)
	}
	defer refresher.Stop()

	ticketService := tickets.NewService(refresher, tickets.Config{
		MaxTickets:           cfg.MaxTickets,
		MaxExtraSets:         cfg.MaxExtraSets,
		DefaultDampingFactor: cfg.DefaultDampingFactor,
	}, structuredLogger)

	router := api.NewRouter(api.Dependencies{
		Config:     cfg,
		Logger:     structuredLogger,
		Statistics: refresher,
		Tickets:    ticketService,
		Store:      storePinger,
		Cache:      cachePinger,
	})

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.Port),
		Handler: router,
	}

	go func() {
		log.WithField("port", cfg.Port).Info("Ticket service started")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down ticket service...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Errorf("Ticket service forced to shutdown: %v", err)
	}

	log.Info("Ticket service exited")
}
