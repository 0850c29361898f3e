package control

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/phenomenon0/kalshi-paper-trader/pkg/aggregator"
)

// handleGamesList returns every game currently loaded in the Aggregator,
// the same in-memory view as the Aggregator list endpoint; persisted game
// records that are not loaded are not listed.
func (s *Server) handleGamesList(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.cfg.Aggregator.GetAllGameStates())
}

// handleGameGet returns one game's persisted record.
func (s *Server) handleGameGet(w http.ResponseWriter, r *http.Request) {
	gameID := mux.Vars(r)["gameID"]
	record, err := s.cfg.Games.GetGameRecord(r.Context(), gameID)
	if err != nil {
		writeError(w, notFound(err.Error()))
		return
	}
	writeJSON(w, http.StatusOK, record)
}

// handleGameCreate persists a new game record (and its markets).
func (s *Server) handleGameCreate(w http.ResponseWriter, r *http.Request) {
	var record aggregator.GameRecord
	if err := decodeJSON(r, &record); err != nil {
		writeError(w, err)
		return
	}
	if record.GameID == "" {
		writeError(w, badInput("game_id is required"))
		return
	}
	if err := s.cfg.Games.SaveGameRecord(r.Context(), &record); err != nil {
		writeError(w, internal(err.Error()))
		return
	}
	writeJSON(w, http.StatusCreated, record)
}

// handleGameDelete removes a persisted game record.
func (s *Server) handleGameDelete(w http.ResponseWriter, r *http.Request) {
	gameID := mux.Vars(r)["gameID"]
	if err := s.cfg.Games.DeleteGameRecord(r.Context(), gameID); err != nil {
		writeError(w, internal(err.Error()))
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}
