package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/bullsai/watchlist/internal/services"
)

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeMessage(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// statusFor maps service errors onto HTTP statuses.
func statusFor(err error) int {
	switch {
	case errors.Is(err, services.ErrInvalidIdentifier),
		errors.Is(err, services.ErrInvalidListName):
		return http.StatusBadRequest
	case errors.Is(err, services.ErrInvalidLogin):
		return http.StatusUnauthorized
	case errors.Is(err, services.ErrUserNotFound),
		errors.Is(err, services.ErrListNotFound),
		errors.Is(err, services.ErrTickerNotInList),
		errors.Is(err, services.ErrTickerNotFound),
		errors.Is(err, services.ErrTermNotFound):
		return http.StatusNotFound
	case errors.Is(err, services.ErrDuplicateMember),
		errors.Is(err, services.ErrDuplicateList):
		return http.StatusConflict
	case errors.Is(err, services.ErrStoreUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// writeError sends err as {"error": "..."}. Store failures are logged and
// reported without driver details.
func writeError(w http.ResponseWriter, r *http.Request, log logrus.FieldLogger, err error) {
	status := statusFor(err)
	msg := err.Error()
	switch status {
	case http.StatusServiceUnavailable:
		w.Header().Set("Retry-After", "1")
		log.WithError(err).WithField("path", r.URL.Path).Warn("Store unavailable")
		msg = services.ErrStoreUnavailable.Error()
	case http.StatusInternalServerError:
		log.WithError(err).WithField("path", r.URL.Path).Error("Unexpected error")
		msg = "internal error"
	}
	writeMessage(w, status, msg)
}
