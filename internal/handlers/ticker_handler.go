package handlers

import (
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"github.com/bullsai/watchlist/internal/services"
)

type TickerHandler struct {
	catalog *services.CatalogService
	log     logrus.FieldLogger
}

func NewTickerHandler(catalog *services.CatalogService, log logrus.FieldLogger) *TickerHandler {
	return &TickerHandler{catalog: catalog, log: log}
}

func (h *TickerHandler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/tickers", h.SearchTickers).Methods("GET")
	router.HandleFunc("/tickers/{id}", h.GetTicker).Methods("GET")
}

// SearchTickers matches ?search= against symbols and trading names
func (h *TickerHandler) SearchTickers(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit := 0
	if raw := q.Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			writeMessage(w, http.StatusBadRequest, "Invalid limit")
			return
		}
		limit = n
	}

	tickers, err := h.catalog.Search(r.Context(), q.Get("search"), limit)
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"tickers": tickers})
}

// GetTicker returns one ticker with its transaction series
func (h *TickerHandler) GetTicker(w http.ResponseWriter, r *http.Request) {
	ticker, err := h.catalog.FindByID(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}

	resp := map[string]interface{}{"ticker": ticker}
	if latest, ok := ticker.Latest(); ok {
		resp["latest"] = latest
	}
	writeJSON(w, http.StatusOK, resp)
}
