package control

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/phenomenon0/kalshi-paper-trader/pkg/aggregator"
	"github.com/phenomenon0/kalshi-paper-trader/pkg/execution"
	"github.com/phenomenon0/kalshi-paper-trader/pkg/metrics"
	"github.com/phenomenon0/kalshi-paper-trader/pkg/model"
	"github.com/phenomenon0/kalshi-paper-trader/pkg/risk"
	"github.com/phenomenon0/kalshi-paper-trader/pkg/strategy"
)

// AggregatorAPI is the subset of *aggregator.Aggregator the Aggregator
// admin handlers call.
type AggregatorAPI interface {
	LoadGame(ctx context.Context, gameID string) (*model.GameState, error)
	UnloadGame(gameID string)
	GetGameState(gameID string) *model.GameState
	GetAllGameStates() map[string]*model.GameState
}

// StrategyAPI is the subset of *strategy.Engine the Strategy admin
// handlers call.
type StrategyAPI interface {
	LoadStrategy(strategyType, id string, cfg any, enable bool) (strategy.Strategy, error)
	UnloadStrategy(id string)
	GetStrategy(id string) strategy.Strategy
	GetAllStrategies() []strategy.Strategy
	EnableStrategy(id string) error
	DisableStrategy(id string) error
	UpdateStrategyConfig(id string, cfg any) error
	EvaluateGame(ctx context.Context, gameID string, snapshot *model.GameState) []model.TradeSignal
	EvaluateAllGames(ctx context.Context) bool
}

// RiskAPI is the subset of *risk.Manager the Risk admin handlers call.
type RiskAPI interface {
	CheckOrder(order *model.Order) risk.CheckResult
	SetLimit(limitType risk.LimitType, value decimal.Decimal)
	Limits() risk.Limits
	Enable()
	Disable()
	IsEnabled() bool
	GetStatus() risk.Status
	ResetAll()
}

// ExecutionAPI is the subset of *execution.Engine the Execution handlers
// call.
type ExecutionAPI interface {
	ExecuteSignal(ctx context.Context, signal model.TradeSignal, gameID string) execution.Result
	ExecuteSignals(ctx context.Context, signals []model.TradeSignal, gameID string) []execution.Result
	GetAllPositions() []*model.Position
	GetOpenPositions() []*model.Position
	UpdateUnrealizedPnL(ctx context.Context)
	ClosePosition(ctx context.Context, ticker string, side model.Side, exitPrice *decimal.Decimal) (*model.Position, error)
	GetPortfolioSummary() execution.PortfolioSummary
	GetStats() execution.Stats
}

// GamesStore is the subset of *store.Store the Games admin handlers call.
type GamesStore interface {
	GetGameRecord(ctx context.Context, gameID string) (*aggregator.GameRecord, error)
	SaveGameRecord(ctx context.Context, record *aggregator.GameRecord) error
	DeleteGameRecord(ctx context.Context, gameID string) error
}

// Pinger reports whether the backing store is reachable, for the health
// surface's readiness check.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Config wires every dependency the control surface delegates to.
type Config struct {
	Aggregator AggregatorAPI
	Strategies StrategyAPI
	Risk       RiskAPI
	Execution  ExecutionAPI
	Games      GamesStore
	DB         Pinger
	Metrics    *metrics.TradingMetrics
	Hub        *Hub
	Log        zerolog.Logger
}

// Server is the control surface's HTTP handler set.
type Server struct {
	cfg Config
	log zerolog.Logger
}

// NewServer builds the router-backed Server described in spec.md §6.
func NewServer(cfg Config) *Server {
	return &Server{cfg: cfg, log: cfg.Log}
}

// Router builds the gorilla/mux router exposing every control-surface
// endpoint.
func (s *Server) Router() *mux.Router {
	r := mux.NewRouter()
	r.Use(s.loggingMiddleware)

	r.HandleFunc("/health/alive", s.handleAlive).Methods(http.MethodGet)
	r.HandleFunc("/health/ready", s.handleReady).Methods(http.MethodGet)

	agg := r.PathPrefix("/aggregator").Subrouter()
	agg.HandleFunc("/games", s.handleAggregatorList).Methods(http.MethodGet)
	agg.HandleFunc("/games/{gameID}/load", s.handleAggregatorLoad).Methods(http.MethodPost)
	agg.HandleFunc("/games/{gameID}/unload", s.handleAggregatorUnload).Methods(http.MethodPost)
	agg.HandleFunc("/games/{gameID}/refresh", s.handleAggregatorRefresh).Methods(http.MethodPost)

	strat := r.PathPrefix("/strategies").Subrouter()
	strat.HandleFunc("/types", s.handleStrategyTypes).Methods(http.MethodGet)
	strat.HandleFunc("", s.handleStrategyList).Methods(http.MethodGet)
	strat.HandleFunc("", s.handleStrategyCreate).Methods(http.MethodPost)
	strat.HandleFunc("/{id}", s.handleStrategyGet).Methods(http.MethodGet)
	strat.HandleFunc("/{id}", s.handleStrategyDelete).Methods(http.MethodDelete)
	strat.HandleFunc("/{id}/enable", s.handleStrategyEnable).Methods(http.MethodPost)
	strat.HandleFunc("/{id}/disable", s.handleStrategyDisable).Methods(http.MethodPost)
	strat.HandleFunc("/{id}/config", s.handleStrategyConfig).Methods(http.MethodPut)
	strat.HandleFunc("/{id}/evaluate", s.handleStrategyEvaluate).Methods(http.MethodPost)
	strat.HandleFunc("/evaluate-all", s.handleStrategyEvaluateAll).Methods(http.MethodPost)

	rk := r.PathPrefix("/risk").Subrouter()
	rk.HandleFunc("/status", s.handleRiskStatus).Methods(http.MethodGet)
	rk.HandleFunc("/limits", s.handleRiskLimitsGet).Methods(http.MethodGet)
	rk.HandleFunc("/limits", s.handleRiskLimitsSet).Methods(http.MethodPut)
	rk.HandleFunc("/enable", s.handleRiskEnable).Methods(http.MethodPost)
	rk.HandleFunc("/disable", s.handleRiskDisable).Methods(http.MethodPost)
	rk.HandleFunc("/reset", s.handleRiskReset).Methods(http.MethodPost)
	rk.HandleFunc("/check", s.handleRiskCheck).Methods(http.MethodPost)

	exec := r.PathPrefix("/execution").Subrouter()
	exec.HandleFunc("/stats", s.handleExecutionStats).Methods(http.MethodGet)
	exec.HandleFunc("/positions", s.handleExecutionPositions).Methods(http.MethodGet)
	exec.HandleFunc("/signal", s.handleExecuteSignal).Methods(http.MethodPost)
	exec.HandleFunc("/strategy/{id}", s.handleExecuteStrategy).Methods(http.MethodPost)
	exec.HandleFunc("/positions/close", s.handleClosePosition).Methods(http.MethodPost)
	exec.HandleFunc("/pnl/refresh", s.handleRefreshPnL).Methods(http.MethodPost)
	exec.HandleFunc("/performance", s.handleExecutionPerformance).Methods(http.MethodGet)

	games := r.PathPrefix("/games").Subrouter()
	games.HandleFunc("", s.handleGamesList).Methods(http.MethodGet)
	games.HandleFunc("/{gameID}", s.handleGameGet).Methods(http.MethodGet)
	games.HandleFunc("", s.handleGameCreate).Methods(http.MethodPost)
	games.HandleFunc("/{gameID}", s.handleGameDelete).Methods(http.MethodDelete)

	if s.cfg.Metrics != nil {
		r.Handle("/metrics", promhttp.HandlerFor(s.cfg.Metrics.Registry(), promhttp.HandlerOpts{}))
	}
	if s.cfg.Hub != nil {
		r.HandleFunc("/ws", s.cfg.Hub.ServeWS)
	}

	return r
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.log.Debug().Str("method", r.Method).Str("path", r.URL.Path).Dur("elapsed", time.Since(start)).Msg("control: request")
	})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, err error) {
	code := model.CodeOf(err)
	if code == "" {
		code = model.CodeInternal
	}
	writeJSON(w, statusFor(code), map[string]string{"error": err.Error(), "code": string(code)})
}

func decodeJSON(r *http.Request, v interface{}) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return badInput("invalid request body: " + err.Error())
	}
	return nil
}
