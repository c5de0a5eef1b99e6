package handlers

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"github.com/bullsai/watchlist/internal/services"
)

type GlossaryHandler struct {
	glossary *services.GlossaryService
	log      logrus.FieldLogger
}

func NewGlossaryHandler(glossary *services.GlossaryService, log logrus.FieldLogger) *GlossaryHandler {
	return &GlossaryHandler{glossary: glossary, log: log}
}

func (h *GlossaryHandler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/glossary", h.ListTerms).Methods("GET")
	router.HandleFunc("/glossary/{id}", h.GetTerm).Methods("GET")
}

func (h *GlossaryHandler) ListTerms(w http.ResponseWriter, r *http.Request) {
	terms, err := h.glossary.List(r.Context())
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, terms)
}

func (h *GlossaryHandler) GetTerm(w http.ResponseWriter, r *http.Request) {
	term, err := h.glossary.Get(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, term)
}
