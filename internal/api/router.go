package api

import (
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-redis/redis/v8"
	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"github.com/bullsai/watchlist/internal/config"
	"github.com/bullsai/watchlist/internal/db"
	"github.com/bullsai/watchlist/internal/handlers"
	"github.com/bullsai/watchlist/internal/metrics"
	"github.com/bullsai/watchlist/internal/middleware"
	"github.com/bullsai/watchlist/internal/services"
	"github.com/bullsai/watchlist/internal/websocket"
)

// Deps are the long-lived components the HTTP layer is built from.
type Deps struct {
	Store   db.Store
	Redis   *redis.Client
	Hub     *websocket.Hub
	Metrics *metrics.Metrics
	Limiter *middleware.RateLimiter
	Config  *config.Config
	Log     logrus.FieldLogger
}

// SetupRouter configures all routes and returns the router
func SetupRouter(d Deps) *mux.Router {
	cfg := d.Config
	router := mux.NewRouter()
	router.Use(middleware.RequestLogger(d.Log), d.Metrics.Middleware)

	router.Handle("/metrics", d.Metrics.Handler()).Methods("GET")

	// Browsers pass the token as ?token= on websocket upgrades.
	router.Handle("/ws", middleware.AuthMiddleware(cfg.JWT.SecretKey)(http.HandlerFunc(d.Hub.HandleWebSocket)))

	// Create services
	tickers := db.NewCachedTickerStore(d.Store, d.Redis, cfg.Redis.CacheTTL, d.Log)
	authService := services.NewAuthService(d.Store, cfg.JWT.SecretKey, cfg.JWT.TokenTTL)
	favoritesService := services.NewFavoritesService(d.Store, d.Hub, d.Metrics, d.Log)
	accountService := services.NewAccountService(d.Store, d.Hub, d.Metrics, d.Log)
	catalogService := services.NewCatalogService(tickers)
	glossaryService := services.NewGlossaryService(d.Store)

	// Create handlers using services
	health := NewHealthHandler(d.Store, d.Redis, d.Log)
	authHandler := handlers.NewAuthHandler(authService, d.Log)
	tickerHandler := handlers.NewTickerHandler(catalogService, d.Log)
	glossaryHandler := handlers.NewGlossaryHandler(glossaryService, d.Log)
	userHandler := handlers.NewUserHandler(accountService, d.Log)
	favoritesHandler := handlers.NewFavoritesHandler(favoritesService, accountService, d.Log)

	apiRouter := router.PathPrefix("/api").Subrouter()

	// Per-user endpoints: the token must belong to {userId}
	userRouter := apiRouter.PathPrefix("/users/{userId}").Subrouter()
	userRouter.Use(middleware.AuthMiddleware(cfg.JWT.SecretKey), middleware.RequireSameUser, d.Limiter.Handler)
	userHandler.RegisterRoutes(userRouter)
	favoritesHandler.RegisterRoutes(userRouter)

	// Public endpoints, limited per client address
	publicRouter := apiRouter.NewRoute().Subrouter()
	publicRouter.Use(d.Limiter.Handler)
	health.RegisterRoutes(publicRouter)
	authHandler.RegisterRoutes(publicRouter)
	tickerHandler.RegisterRoutes(publicRouter)
	glossaryHandler.RegisterRoutes(publicRouter)

	// Catch-all handler for serving the SPA
	router.PathPrefix("/").Handler(spaHandler(cfg.Server.StaticDir))

	return router
}

// spaHandler serves files from dir and falls back to index.html so client
// side routes resolve. Unknown /api paths stay 404.
func spaHandler(dir string) http.HandlerFunc {
	files := http.FileServer(http.Dir(dir))
	return func(w http.ResponseWriter, r *http.Request) {
		if dir == "" || strings.HasPrefix(r.URL.Path, "/api/") {
			http.NotFound(w, r)
			return
		}

		name := filepath.Join(dir, filepath.FromSlash(filepath.Clean("/"+r.URL.Path)))
		if info, err := os.Stat(name); err == nil && !info.IsDir() {
			files.ServeHTTP(w, r)
			return
		}
		http.ServeFile(w, r, filepath.Join(dir, "index.html"))
	}
}
