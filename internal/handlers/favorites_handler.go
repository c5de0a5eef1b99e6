package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"github.com/bullsai/watchlist/internal/models"
	"github.com/bullsai/watchlist/internal/services"
)

type FavoritesHandler struct {
	favorites *services.FavoritesService
	accounts  *services.AccountService
	log       logrus.FieldLogger
}

func NewFavoritesHandler(favorites *services.FavoritesService, accounts *services.AccountService, log logrus.FieldLogger) *FavoritesHandler {
	return &FavoritesHandler{favorites: favorites, accounts: accounts, log: log}
}

// RegisterRoutes expects a router already scoped to /users/{userId}.
func (h *FavoritesHandler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/lists", h.GetLists).Methods("GET")
	router.HandleFunc("/lists", h.CreateList).Methods("POST")
	router.HandleFunc("/lists/default", h.GetDefaultList).Methods("GET")
	router.HandleFunc("/lists/{listName}", h.DeleteList).Methods("DELETE")
	router.HandleFunc("/lists/{listName}/tickers", h.AddTicker).Methods("PUT")
	router.HandleFunc("/lists/{listName}/tickers/{tickerId}", h.RemoveTicker).Methods("DELETE")
}

// GetLists returns the lists the user's tier exposes
func (h *FavoritesHandler) GetLists(w http.ResponseWriter, r *http.Request) {
	lists, err := h.accounts.VisibleListsFor(r.Context(), mux.Vars(r)["userId"])
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"favoriteLists": lists})
}

// CreateList adds an empty list
func (h *FavoritesHandler) CreateList(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ListName string `json:"listName"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	list, err := h.favorites.CreateList(r.Context(), mux.Vars(r)["userId"], req.ListName)
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusCreated, list)
}

// DeleteList removes a list and its tickers
func (h *FavoritesHandler) DeleteList(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	if err := h.favorites.DeleteList(r.Context(), vars["userId"], vars["listName"]); err != nil {
		writeError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "List deleted"})
}

// GetDefaultList suggests the list an add action should target
func (h *FavoritesHandler) GetDefaultList(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	sel, err := h.favorites.DefaultList(r.Context(), mux.Vars(r)["userId"], q.Get("tickerId"), q.Get("previous"))
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, sel)
}

// AddTicker puts a ticker into one of the user's lists
func (h *FavoritesHandler) AddTicker(w http.ResponseWriter, r *http.Request) {
	var req struct {
		TickerID string `json:"tickerId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	vars := mux.Vars(r)
	res, err := h.favorites.AddTickerToList(r.Context(), vars["userId"], vars["listName"], req.TickerID)
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// RemoveTicker takes a ticker out of a list
func (h *FavoritesHandler) RemoveTicker(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	if err := h.favorites.RemoveTicker(r.Context(), vars["userId"], vars["listName"], vars["tickerId"]); err != nil {
		writeError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Ticker removed from list"})
}

// userResponse is the public view of a user under their tier.
type userResponse struct {
	ID            string                `json:"id"`
	Email         string                `json:"email"`
	FirstName     string                `json:"firstName"`
	AccountType   models.AccountType    `json:"accountType"`
	FavoriteLists []models.FavoriteList `json:"favoriteLists"`
}

func newUserResponse(u *models.User) userResponse {
	return userResponse{
		ID:            u.ID,
		Email:         u.Email,
		FirstName:     u.FirstName,
		AccountType:   u.AccountType,
		FavoriteLists: services.VisibleLists(u),
	}
}
