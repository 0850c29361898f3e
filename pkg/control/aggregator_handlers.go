package control

import (
	"net/http"

	"github.com/gorilla/mux"
)

// handleAggregatorList returns every game currently tracked by the
// Aggregator.
func (s *Server) handleAggregatorList(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.cfg.Aggregator.GetAllGameStates())
}

// handleAggregatorLoad loads a game's exchange/sports/odds state.
func (s *Server) handleAggregatorLoad(w http.ResponseWriter, r *http.Request) {
	gameID := mux.Vars(r)["gameID"]
	state, err := s.cfg.Aggregator.LoadGame(r.Context(), gameID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, state)
}

// handleAggregatorUnload stops tracking a game.
func (s *Server) handleAggregatorUnload(w http.ResponseWriter, r *http.Request) {
	gameID := mux.Vars(r)["gameID"]
	s.cfg.Aggregator.UnloadGame(gameID)
	writeJSON(w, http.StatusOK, map[string]string{"status": "unloaded"})
}

// handleAggregatorRefresh returns a game's current snapshot via LoadGame;
// the background scheduler owns actual upstream polling. For a game that is
// already loaded nothing is refetched (LoadGame returns the existing state);
// a game that is not loaded is loaded, with its initial refresh.
func (s *Server) handleAggregatorRefresh(w http.ResponseWriter, r *http.Request) {
	gameID := mux.Vars(r)["gameID"]
	state, err := s.cfg.Aggregator.LoadGame(r.Context(), gameID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, state)
}
