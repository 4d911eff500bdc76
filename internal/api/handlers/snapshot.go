package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/Harshitk-cp/feps/internal/domain"
	"github.com/Harshitk-cp/feps/internal/feps"
	"github.com/Harshitk-cp/feps/internal/service"
)

type SnapshotHandler struct {
	svc *service.ModelService
}

func NewSnapshotHandler(svc *service.ModelService) *SnapshotHandler {
	return &SnapshotHandler{svc: svc}
}

// Export returns the agent's full learned state as a portable snapshot.
func (h *SnapshotHandler) Export(w http.ResponseWriter, r *http.Request) {
	agentID, ok := resolveAgent(w, r, h.svc)
	if !ok {
		return
	}

	snapshot, err := h.svc.Export(r.Context(), agentID)
	if err != nil {
		if errors.Is(err, service.ErrAgentNotFound) {
			writeError(w, http.StatusNotFound, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to export model")
		return
	}

	writeJSON(w, http.StatusOK, snapshot)
}

// Import replaces the agent's model with the posted snapshot. The snapshot
// is validated before anything is swapped, so a bad payload leaves the
// current model untouched.
func (h *SnapshotHandler) Import(w http.ResponseWriter, r *http.Request) {
	agentID, ok := resolveAgent(w, r, h.svc)
	if !ok {
		return
	}

	var snapshot domain.ModelSnapshot
	if err := json.NewDecoder(r.Body).Decode(&snapshot); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := h.svc.Import(r.Context(), agentID, &snapshot); err != nil {
		if errors.Is(err, service.ErrAgentNotFound) {
			writeError(w, http.StatusNotFound, err.Error())
			return
		}
		if errors.Is(err, feps.ErrSnapshot) ||
			errors.Is(err, feps.ErrSnapshotVersion) ||
			errors.Is(err, feps.ErrConfiguration) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to import model")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "imported"})
}

// Checkpoint persists the agent's current model immediately instead of
// waiting for the background flush.
func (h *SnapshotHandler) Checkpoint(w http.ResponseWriter, r *http.Request) {
	agentID, ok := resolveAgent(w, r, h.svc)
	if !ok {
		return
	}

	if err := h.svc.Checkpoint(r.Context(), agentID); err != nil {
		if errors.Is(err, service.ErrAgentNotFound) {
			writeError(w, http.StatusNotFound, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to checkpoint model")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "saved"})
}
