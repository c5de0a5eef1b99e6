package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
)

const healthTimeout = 2 * time.Second

// Version is reported by the health endpoint.
var Version = "1.0.0"

type pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler responds to health check requests
type HealthHandler struct {
	store pinger
	redis *redis.Client
	log   logrus.FieldLogger
}

func NewHealthHandler(store pinger, redisClient *redis.Client, log logrus.FieldLogger) *HealthHandler {
	return &HealthHandler{store: store, redis: redisClient, log: log}
}

func (h *HealthHandler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/health", h.Health).Methods("GET")
	router.HandleFunc("/db-test", h.Health).Methods("GET")
}

// Health reports 503 while the store is unreachable. The cache is optional
// and only reported.
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), healthTimeout)
	defer cancel()

	status := http.StatusOK
	resp := map[string]string{
		"status":  "ok",
		"version": Version,
		"store":   "up",
	}
	if err := h.store.Ping(ctx); err != nil {
		h.log.WithError(err).Warn("Health check: store unreachable")
		status = http.StatusServiceUnavailable
		resp["status"] = "degraded"
		resp["store"] = "down"
	}
	if h.redis != nil {
		resp["cache"] = "up"
		if err := h.redis.Ping(ctx).Err(); err != nil {
			resp["cache"] = "down"
		}
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(resp)
}
