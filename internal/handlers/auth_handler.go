package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"github.com/bullsai/watchlist/internal/models"
	"github.com/bullsai/watchlist/internal/services"
)

// AuthHandler handles authentication requests
type AuthHandler struct {
	authService services.AuthService
	log         logrus.FieldLogger
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(authService services.AuthService, log logrus.FieldLogger) *AuthHandler {
	return &AuthHandler{authService: authService, log: log}
}

func (h *AuthHandler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/login", h.Login).Methods("POST")
}

// Login handles user login and returns a JWT token
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var loginReq models.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&loginReq); err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid request")
		return
	}

	user, err := h.authService.Authenticate(r.Context(), loginReq.Email, loginReq.Password)
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}

	tokenString, err := h.authService.GenerateToken(user)
	if err != nil {
		h.log.WithError(err).Error("Could not generate token")
		writeMessage(w, http.StatusInternalServerError, "Could not generate token")
		return
	}

	writeJSON(w, http.StatusOK, models.TokenResponse{
		AccessToken: tokenString,
		TokenType:   "bearer",
		UserID:      user.ID,
	})
}
