package handlers

import (
	"errors"
	"net/http"

	"github.com/Harshitk-cp/feps/internal/feps"
	"github.com/Harshitk-cp/feps/internal/service"
)

type PredictionHandler struct {
	svc *service.ModelService
}

func NewPredictionHandler(svc *service.ModelService) *PredictionHandler {
	return &PredictionHandler{svc: svc}
}

// Predict returns the most likely next observation for ?action=. With
// ?sample=true the answer is drawn from the successor distribution instead
// of taking the argmax.
func (h *PredictionHandler) Predict(w http.ResponseWriter, r *http.Request) {
	agentID, ok := resolveAgent(w, r, h.svc)
	if !ok {
		return
	}

	action := r.URL.Query().Get("action")
	sample := r.URL.Query().Get("sample") == "true"

	predict := h.svc.Predict
	if sample {
		predict = h.svc.SamplePredict
	}

	prediction, err := predict(r.Context(), agentID, action)
	if err != nil {
		if errors.Is(err, service.ErrAgentNotFound) {
			writeError(w, http.StatusNotFound, err.Error())
			return
		}
		if errors.Is(err, feps.ErrNoBeliefState) {
			writeError(w, http.StatusConflict, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to predict")
		return
	}

	writeJSON(w, http.StatusOK, prediction)
}

func (h *PredictionHandler) Uncertainty(w http.ResponseWriter, r *http.Request) {
	agentID, ok := resolveAgent(w, r, h.svc)
	if !ok {
		return
	}

	value, err := h.svc.Uncertainty(r.Context(), agentID, r.URL.Query().Get("action"))
	if err != nil {
		if errors.Is(err, service.ErrAgentNotFound) {
			writeError(w, http.StatusNotFound, err.Error())
			return
		}
		if errors.Is(err, feps.ErrNoBeliefState) {
			writeError(w, http.StatusConflict, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to compute uncertainty")
		return
	}

	writeJSON(w, http.StatusOK, map[string]float64{"uncertainty": value})
}

func (h *PredictionHandler) Beliefs(w http.ResponseWriter, r *http.Request) {
	agentID, ok := resolveAgent(w, r, h.svc)
	if !ok {
		return
	}

	state, err := h.svc.Beliefs(r.Context(), agentID)
	if err != nil {
		if errors.Is(err, service.ErrAgentNotFound) {
			writeError(w, http.StatusNotFound, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to read beliefs")
		return
	}

	writeJSON(w, http.StatusOK, state)
}
