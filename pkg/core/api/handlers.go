package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/serverpulse/serverpulse/pkg/db"
)

func (s *APIServer) handleListAgents(w http.ResponseWriter, r *http.Request) {
	agents, err := s.store.ListAgents(r.Context())
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to list agents")
		writeError(w, "failed to list agents", http.StatusInternalServerError)

		return
	}

	writeJSON(w, agents)
}

func (s *APIServer) handleLatestMetrics(w http.ResponseWriter, r *http.Request) {
	agentID := mux.Vars(r)["id"]

	snapshot, err := s.ingest.GetLatestMetrics(r.Context(), agentID)
	if err != nil {
		if errors.Is(err, db.ErrAgentNotFound) {
			writeError(w, "no metrics for agent", http.StatusNotFound)

			return
		}

		s.logger.Error().Err(err).Str("agent_id", agentID).Msg("failed to read latest metrics")
		writeError(w, "failed to read latest metrics", http.StatusInternalServerError)

		return
	}

	writeJSON(w, snapshot)
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")

	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, "encoding failed", http.StatusInternalServerError)
	}
}

func writeError(w http.ResponseWriter, msg string, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)

	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
