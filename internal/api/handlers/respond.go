package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/Harshitk-cp/feps/internal/service"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// resolveAgent maps the {id} URL parameter, which may be an agent UUID or an
// external ID, writing the error response itself when resolution fails.
func resolveAgent(w http.ResponseWriter, r *http.Request, svc *service.ModelService) (uuid.UUID, bool) {
	agentID, err := svc.ResolveAgentID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		if errors.Is(err, service.ErrAgentNotFound) {
			writeError(w, http.StatusNotFound, err.Error())
			return uuid.Nil, false
		}
		writeError(w, http.StatusInternalServerError, "failed to resolve agent")
		return uuid.Nil, false
	}
	return agentID, true
}
