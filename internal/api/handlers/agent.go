package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/Harshitk-cp/feps/internal/feps"
	"github.com/Harshitk-cp/feps/internal/service"
	"github.com/go-chi/chi/v5"
)

type AgentHandler struct {
	svc *service.ModelService
}

func NewAgentHandler(svc *service.ModelService) *AgentHandler {
	return &AgentHandler{svc: svc}
}

type createAgentRequest struct {
	ExternalID string   `json:"external_id"`
	Name       string   `json:"name"`
	Clones     *int     `json:"clones"`
	Gamma      *float64 `json:"gamma"`
	BaseReward *float64 `json:"base_reward"`
	Vocabulary []string `json:"vocabulary"`
}

func (h *AgentHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createAgentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.ExternalID == "" {
		writeError(w, http.StatusBadRequest, "external_id is required")
		return
	}

	agent, err := h.svc.CreateAgent(r.Context(), service.CreateAgentInput{
		ExternalID: req.ExternalID,
		Name:       req.Name,
		Clones:     req.Clones,
		Gamma:      req.Gamma,
		BaseReward: req.BaseReward,
		Vocabulary: req.Vocabulary,
	})
	if err != nil {
		if errors.Is(err, service.ErrAgentConflict) {
			writeError(w, http.StatusConflict, err.Error())
			return
		}
		if errors.Is(err, feps.ErrConfiguration) || errors.Is(err, feps.ErrInvalidObservation) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to create agent")
		return
	}

	writeJSON(w, http.StatusCreated, agent)
}

func (h *AgentHandler) Get(w http.ResponseWriter, r *http.Request) {
	agent, err := h.svc.LookupAgent(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		if errors.Is(err, service.ErrAgentNotFound) {
			writeError(w, http.StatusNotFound, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to get agent")
		return
	}

	writeJSON(w, http.StatusOK, agent)
}
