package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/Harshitk-cp/feps/internal/feps"
	"github.com/Harshitk-cp/feps/internal/service"
)

type OutcomeHandler struct {
	svc *service.ModelService
}

func NewOutcomeHandler(svc *service.ModelService) *OutcomeHandler {
	return &OutcomeHandler{svc: svc}
}

type resolveOutcomeRequest struct {
	Predicted string `json:"predicted"`
	Actual    string `json:"actual"`
}

type resolveOutcomeResponse struct {
	Reward float64 `json:"reward"`
}

// Resolve scores a prediction against what actually happened and feeds the
// reward back along the recorded trajectory.
func (h *OutcomeHandler) Resolve(w http.ResponseWriter, r *http.Request) {
	agentID, ok := resolveAgent(w, r, h.svc)
	if !ok {
		return
	}

	var req resolveOutcomeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	reward, err := h.svc.ResolveOutcome(r.Context(), agentID, req.Predicted, req.Actual)
	if err != nil {
		if errors.Is(err, service.ErrAgentNotFound) {
			writeError(w, http.StatusNotFound, err.Error())
			return
		}
		if errors.Is(err, feps.ErrInvalidObservation) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to resolve outcome")
		return
	}

	writeJSON(w, http.StatusOK, resolveOutcomeResponse{Reward: reward})
}

// ResetEpisode clears the trajectory and history so the next observation
// starts a fresh episode. Learned transitions survive.
func (h *OutcomeHandler) ResetEpisode(w http.ResponseWriter, r *http.Request) {
	agentID, ok := resolveAgent(w, r, h.svc)
	if !ok {
		return
	}

	if err := h.svc.ResetEpisode(r.Context(), agentID); err != nil {
		if errors.Is(err, service.ErrAgentNotFound) {
			writeError(w, http.StatusNotFound, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to reset episode")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
