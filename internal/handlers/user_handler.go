package handlers

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"github.com/bullsai/watchlist/internal/services"
)

// UserHandler serves account information and tier changes
type UserHandler struct {
	accounts *services.AccountService
	log      logrus.FieldLogger
}

func NewUserHandler(accounts *services.AccountService, log logrus.FieldLogger) *UserHandler {
	return &UserHandler{accounts: accounts, log: log}
}

// RegisterRoutes expects a router already scoped to /users/{userId}.
func (h *UserHandler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("", h.GetUser).Methods("GET")
	router.HandleFunc("/upgrade", h.Upgrade).Methods("POST")
}

// GetUser returns the user with the lists their tier exposes
func (h *UserHandler) GetUser(w http.ResponseWriter, r *http.Request) {
	user, err := h.accounts.GetUser(r.Context(), mux.Vars(r)["userId"])
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, newUserResponse(user))
}

// Upgrade moves the user to the Professional tier
func (h *UserHandler) Upgrade(w http.ResponseWriter, r *http.Request) {
	user, err := h.accounts.Upgrade(r.Context(), mux.Vars(r)["userId"])
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, newUserResponse(user))
}
