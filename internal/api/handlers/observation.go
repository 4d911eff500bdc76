package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/Harshitk-cp/feps/internal/feps"
	"github.com/Harshitk-cp/feps/internal/service"
)

type ObservationHandler struct {
	svc *service.ModelService
}

func NewObservationHandler(svc *service.ModelService) *ObservationHandler {
	return &ObservationHandler{svc: svc}
}

type observeRequest struct {
	Observation string `json:"observation"`
	// Action is the move that led here. Empty means a passive look at the
	// world, which never writes transition evidence.
	Action string `json:"action"`
}

func (h *ObservationHandler) Observe(w http.ResponseWriter, r *http.Request) {
	agentID, ok := resolveAgent(w, r, h.svc)
	if !ok {
		return
	}

	var req observeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	snapshot, err := h.svc.Observe(r.Context(), agentID, req.Observation, req.Action)
	if err != nil {
		if errors.Is(err, service.ErrAgentNotFound) {
			writeError(w, http.StatusNotFound, err.Error())
			return
		}
		if errors.Is(err, feps.ErrInvalidObservation) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to process observation")
		return
	}

	writeJSON(w, http.StatusOK, snapshot)
}

type registerVocabularyRequest struct {
	Observations []string `json:"observations"`
}

func (h *ObservationHandler) RegisterVocabulary(w http.ResponseWriter, r *http.Request) {
	agentID, ok := resolveAgent(w, r, h.svc)
	if !ok {
		return
	}

	var req registerVocabularyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if len(req.Observations) == 0 {
		writeError(w, http.StatusBadRequest, "observations is required")
		return
	}

	if err := h.svc.RegisterObservations(r.Context(), agentID, req.Observations...); err != nil {
		if errors.Is(err, service.ErrAgentNotFound) {
			writeError(w, http.StatusNotFound, err.Error())
			return
		}
		if errors.Is(err, feps.ErrInvalidObservation) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to register observations")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
