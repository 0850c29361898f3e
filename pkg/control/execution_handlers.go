package control

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"

	"github.com/phenomenon0/kalshi-paper-trader/pkg/model"
)

// handleExecutionStats returns aggregate fill/rejection counts.
func (s *Server) handleExecutionStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.cfg.Execution.GetStats())
}

// handleExecutionPositions lists open positions, or every position when
// ?all=1 is set.
func (s *Server) handleExecutionPositions(w http.ResponseWriter, r *http.Request) {
	if r.URL.Query().Get("all") == "1" {
		writeJSON(w, http.StatusOK, s.cfg.Execution.GetAllPositions())
		return
	}
	writeJSON(w, http.StatusOK, s.cfg.Execution.GetOpenPositions())
}

type executeSignalRequest struct {
	GameID string            `json:"game_id"`
	Signal model.TradeSignal `json:"signal"`
}

// handleExecuteSignal submits a single trade signal for execution.
func (s *Server) handleExecuteSignal(w http.ResponseWriter, r *http.Request) {
	var req executeSignalRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	result := s.cfg.Execution.ExecuteSignal(r.Context(), req.Signal, req.GameID)
	if result.Success {
		writeJSON(w, http.StatusOK, result)
		return
	}
	writeJSON(w, statusFor(model.CodeRiskRejected), result)
}

// handleExecuteStrategy evaluates one strategy against a game and
// executes every signal it emits.
func (s *Server) handleExecuteStrategy(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	gameID := r.URL.Query().Get("game_id")

	strat := s.cfg.Strategies.GetStrategy(id)
	if strat == nil {
		writeError(w, notFound("strategy not found: "+id))
		return
	}
	snapshot := s.cfg.Aggregator.GetGameState(gameID)
	if snapshot == nil {
		writeError(w, notFound("game not loaded: "+gameID))
		return
	}

	signals := s.cfg.Strategies.EvaluateGame(r.Context(), gameID, snapshot)
	results := s.cfg.Execution.ExecuteSignals(r.Context(), signals, gameID)
	writeJSON(w, http.StatusOK, results)
}

type closePositionRequest struct {
	MarketTicker string           `json:"market_ticker"`
	Side         model.Side       `json:"side"`
	ExitPrice    *decimal.Decimal `json:"exit_price,omitempty"`
}

// handleClosePosition closes an open position at a given or
// market-derived exit price.
func (s *Server) handleClosePosition(w http.ResponseWriter, r *http.Request) {
	var req closePositionRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	pos, err := s.cfg.Execution.ClosePosition(r.Context(), req.MarketTicker, req.Side, req.ExitPrice)
	if err != nil {
		writeError(w, conflict(err.Error()))
		return
	}
	writeJSON(w, http.StatusOK, pos)
}

// handleRefreshPnL marks every open position to the current mid-price.
func (s *Server) handleRefreshPnL(w http.ResponseWriter, r *http.Request) {
	s.cfg.Execution.UpdateUnrealizedPnL(r.Context())
	writeJSON(w, http.StatusOK, s.cfg.Execution.GetPortfolioSummary())
}

// handleExecutionPerformance returns the portfolio-level summary.
func (s *Server) handleExecutionPerformance(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.cfg.Execution.GetPortfolioSummary())
}
