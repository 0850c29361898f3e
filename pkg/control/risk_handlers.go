package control

import (
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/phenomenon0/kalshi-paper-trader/pkg/model"
	"github.com/phenomenon0/kalshi-paper-trader/pkg/risk"
)

// handleRiskStatus reports daily/weekly loss, cooldown state, and
// exposure, per risk.Status.
func (s *Server) handleRiskStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.cfg.Risk.GetStatus())
}

// handleRiskLimitsGet returns the current configured limits.
func (s *Server) handleRiskLimitsGet(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.cfg.Risk.Limits())
}

type setLimitRequest struct {
	LimitType risk.LimitType  `json:"limit_type"`
	Value     decimal.Decimal `json:"value"`
}

// handleRiskLimitsSet updates one limit's value.
func (s *Server) handleRiskLimitsSet(w http.ResponseWriter, r *http.Request) {
	var req setLimitRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	s.cfg.Risk.SetLimit(req.LimitType, req.Value)
	writeJSON(w, http.StatusOK, s.cfg.Risk.Limits())
}

// handleRiskEnable turns on risk enforcement.
func (s *Server) handleRiskEnable(w http.ResponseWriter, r *http.Request) {
	s.cfg.Risk.Enable()
	writeJSON(w, http.StatusOK, map[string]bool{"enabled": true})
}

// handleRiskDisable turns off risk enforcement (orders still persist and
// post, but every check auto-approves).
func (s *Server) handleRiskDisable(w http.ResponseWriter, r *http.Request) {
	s.cfg.Risk.Disable()
	writeJSON(w, http.StatusOK, map[string]bool{"enabled": false})
}

// handleRiskReset clears daily/weekly counters and the cooldown breaker.
func (s *Server) handleRiskReset(w http.ResponseWriter, r *http.Request) {
	s.cfg.Risk.ResetAll()
	writeJSON(w, http.StatusOK, map[string]string{"status": "reset"})
}

type hypotheticalOrder struct {
	MarketTicker string      `json:"market_ticker"`
	GameID       string      `json:"game_id"`
	Side         model.Side  `json:"side"`
	Quantity     int         `json:"quantity"`
	LimitPrice   *decimal.Decimal `json:"limit_price,omitempty"`
}

// handleRiskCheck runs a hypothetical order through CheckOrder without
// executing it.
func (s *Server) handleRiskCheck(w http.ResponseWriter, r *http.Request) {
	var req hypotheticalOrder
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	order := &model.Order{
		MarketTicker: req.MarketTicker,
		GameID:       req.GameID,
		Side:         req.Side,
		Quantity:     req.Quantity,
		OrderType:    model.OrderTypeMarket,
	}
	result := s.cfg.Risk.CheckOrder(order)
	writeJSON(w, http.StatusOK, result)
}
