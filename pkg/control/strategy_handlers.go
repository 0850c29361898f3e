package control

import (
	"net/http"

	"github.com/gorilla/mux"
)

var strategyTypes = []string{"sharp_line", "momentum", "ev_multibook", "mean_reversion", "correlation"}

// handleStrategyTypes lists the strategy types the Engine can construct.
func (s *Server) handleStrategyTypes(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, strategyTypes)
}

// handleStrategyList returns every loaded strategy instance.
func (s *Server) handleStrategyList(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.cfg.Strategies.GetAllStrategies())
}

type createStrategyRequest struct {
	Type   string `json:"type"`
	ID     string `json:"id"`
	Config any    `json:"config"`
	Enable bool   `json:"enable"`
}

// handleStrategyCreate loads a strategy instance; a previously loaded
// instance of the same type is replaced by the newly built one.
func (s *Server) handleStrategyCreate(w http.ResponseWriter, r *http.Request) {
	var req createStrategyRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	strat, err := s.cfg.Strategies.LoadStrategy(req.Type, req.ID, req.Config, req.Enable)
	if err != nil {
		writeError(w, badInput(err.Error()))
		return
	}
	writeJSON(w, http.StatusCreated, strat)
}

// handleStrategyGet returns one loaded strategy instance.
func (s *Server) handleStrategyGet(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	strat := s.cfg.Strategies.GetStrategy(id)
	if strat == nil {
		writeError(w, notFound("strategy not found: "+id))
		return
	}
	writeJSON(w, http.StatusOK, strat)
}

// handleStrategyDelete unloads a strategy instance.
func (s *Server) handleStrategyDelete(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	s.cfg.Strategies.UnloadStrategy(id)
	writeJSON(w, http.StatusOK, map[string]string{"status": "unloaded"})
}

// handleStrategyEnable enables a strategy instance.
func (s *Server) handleStrategyEnable(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if err := s.cfg.Strategies.EnableStrategy(id); err != nil {
		writeError(w, notFound(err.Error()))
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "enabled"})
}

// handleStrategyDisable disables a strategy instance.
func (s *Server) handleStrategyDisable(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if err := s.cfg.Strategies.DisableStrategy(id); err != nil {
		writeError(w, notFound(err.Error()))
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "disabled"})
}

// handleStrategyConfig updates a strategy instance's config.
func (s *Server) handleStrategyConfig(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	var cfg any
	if err := decodeJSON(r, &cfg); err != nil {
		writeError(w, err)
		return
	}
	if err := s.cfg.Strategies.UpdateStrategyConfig(id, cfg); err != nil {
		writeError(w, badInput(err.Error()))
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "updated"})
}

// handleStrategyEvaluate evaluates every enabled loaded strategy against
// one game's current snapshot.
func (s *Server) handleStrategyEvaluate(w http.ResponseWriter, r *http.Request) {
	gameID := r.URL.Query().Get("game_id")
	snapshot := s.cfg.Aggregator.GetGameState(gameID)
	if snapshot == nil {
		writeError(w, notFound("game not loaded: "+gameID))
		return
	}
	signals := s.cfg.Strategies.EvaluateGame(r.Context(), gameID, snapshot)
	writeJSON(w, http.StatusOK, signals)
}

// handleStrategyEvaluateAll triggers one evaluation pass across every
// tracked game, mirroring the background evaluation loop.
func (s *Server) handleStrategyEvaluateAll(w http.ResponseWriter, r *http.Request) {
	ran := s.cfg.Strategies.EvaluateAllGames(r.Context())
	writeJSON(w, http.StatusOK, map[string]bool{"ran": ran})
}
