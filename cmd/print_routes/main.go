package main

import (
	"os"

	"github.com/sirupsen/logrus"

	"github.com/bullsai/watchlist/internal/api"
	"github.com/bullsai/watchlist/internal/config"
	"github.com/bullsai/watchlist/internal/metrics"
	"github.com/bullsai/watchlist/internal/middleware"
	"github.com/bullsai/watchlist/internal/websocket"
)

// Prints the route table of the server without connecting to any backend.
func main() {
	log := logrus.New()
	cfg := config.Default()
	cfg.JWT.SecretKey = []byte(cfg.JWT.Secret)

	router := api.SetupRouter(api.Deps{
		Hub:     websocket.NewHub(log, nil),
		Metrics: metrics.New(),
		Limiter: middleware.NewRateLimiter(cfg.Server.RateLimitRPS, cfg.Server.RateLimitBurst, log),
		Config:  cfg,
		Log:     log,
	})
	if err := api.WriteRoutes(os.Stdout, router); err != nil {
		log.WithError(err).Fatal("Failed to walk routes")
	}
}
