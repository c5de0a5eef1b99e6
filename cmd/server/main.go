package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/cors"
	"github.com/sirupsen/logrus"

	"github.com/bullsai/watchlist/internal/api"
	"github.com/bullsai/watchlist/internal/config"
	"github.com/bullsai/watchlist/internal/db"
	"github.com/bullsai/watchlist/internal/logging"
	"github.com/bullsai/watchlist/internal/metrics"
	"github.com/bullsai/watchlist/internal/middleware"
	"github.com/bullsai/watchlist/internal/tasks"
	"github.com/bullsai/watchlist/internal/websocket"
)

const limiterIdle = 10 * time.Minute

func main() {
	// Load environment variables
	envErr := godotenv.Load()

	// Initialize configuration
	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("Failed to load configuration")
	}

	log := logging.New(cfg.Log)
	if envErr != nil {
		log.Debug("No .env file found, using environment variables")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Initialize database connection
	store, err := db.Open(ctx, cfg.Database, log)
	if err != nil {
		log.WithError(err).WithField("driver", cfg.Database.Driver).Fatal("Failed to connect to database")
	}
	defer store.Close(context.Background())

	if err := db.SeedUser(ctx, store, cfg.Seed, log); err != nil {
		log.WithError(err).Warn("Failed to create seed user")
	}

	// Initialize Redis client
	redisClient, err := db.ConnectRedis(cfg.Redis)
	if err != nil {
		log.WithError(err).Warn("Failed to connect to Redis, ticker cache disabled")
		redisClient = nil
	} else {
		defer redisClient.Close()
	}

	m := metrics.New()

	// Initialize WebSocket hub
	wsHub := websocket.NewHub(log, m.SetConnections)
	go wsHub.Run(ctx)

	limiter := middleware.NewRateLimiter(cfg.Server.RateLimitRPS, cfg.Server.RateLimitBurst, log)

	// Initialize scheduled tasks
	taskManager := tasks.NewManager(log)
	taskManager.RegisterTask(tasks.NewIntervalTask("rate-limiter-cleanup", time.Minute, func(context.Context) {
		if n := limiter.Cleanup(limiterIdle); n > 0 {
			log.WithField("removed", n).Debug("Dropped idle rate limiters")
		}
	}))
	taskManager.RegisterTask(tasks.NewIntervalTask("store-health", 30*time.Second, func(ctx context.Context) {
		pingCtx, cancel := context.WithTimeout(ctx, cfg.Database.Timeout)
		defer cancel()
		if err := store.Ping(pingCtx); err != nil {
			log.WithError(err).Warn("Store health probe failed")
		}
	}))
	taskManager.StartScheduledTasks()
	defer taskManager.StopAllTasks()

	// Initialize router
	router := api.SetupRouter(api.Deps{
		Store:   store,
		Redis:   redisClient,
		Hub:     wsHub,
		Metrics: m,
		Limiter: limiter,
		Config:  cfg,
		Log:     log,
	})
	if cfg.Server.PrintRoutes {
		api.WriteRoutes(os.Stdout, router)
	}

	// Set up CORS
	corsMiddleware := cors.New(cors.Options{
		AllowedOrigins:   cfg.Server.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: true,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           corsMiddleware.Handler(router),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.WithField("port", cfg.Server.Port).Info("Server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Fatal("Server failed")
		}
	}()

	<-ctx.Done()
	log.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("Graceful shutdown failed")
	}
}
