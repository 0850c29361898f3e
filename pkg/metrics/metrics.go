// Package metrics provides Prometheus metrics for the paper trading system.
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
)

// TradingMetrics collects and exposes trading-related Prometheus metrics.
type TradingMetrics struct {
	registry *prometheus.Registry

	// Order/execution metrics
	OrdersTotal     *prometheus.CounterVec
	OrderFillAmount *prometheus.HistogramVec
	OpenPositions   *prometheus.GaugeVec

	// Position/PnL metrics
	PositionSize  *prometheus.GaugeVec
	UnrealizedPnL *prometheus.GaugeVec
	RealizedPnL   *prometheus.GaugeVec

	// Risk metrics
	RiskRejectionsTotal *prometheus.CounterVec
	DailyOrdersUsed     prometheus.Gauge
	TotalExposure       prometheus.Gauge
	DailyPnL            prometheus.Gauge
	CooldownActive      prometheus.Gauge

	// Aggregator metrics
	RefreshDuration *prometheus.HistogramVec
	RefreshErrors   *prometheus.CounterVec
	GameStaleness   *prometheus.GaugeVec
	ActiveGames     prometheus.Gauge

	// Strategy/signal metrics
	SignalsTotal      *prometheus.CounterVec
	StrategyEvalError *prometheus.CounterVec

	// Upstream client metrics
	UpstreamRequestsTotal  *prometheus.CounterVec
	UpstreamRequestLatency *prometheus.HistogramVec
}

// New creates a fresh TradingMetrics collector bound to its own registry,
// so multiple instances (e.g. in tests) never collide on global
// registration.
func New() *TradingMetrics {
	registry := prometheus.NewRegistry()

	tm := &TradingMetrics{
		registry: registry,

		OrdersTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "traderd_orders_total",
				Help: "Total number of simulated orders, by side and status",
			},
			[]string{"side", "status"},
		),
		OrderFillAmount: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "traderd_order_fill_amount_usd",
				Help:    "Filled order notional in dollars",
				Buckets: []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000},
			},
			[]string{"side"},
		),
		OpenPositions: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "traderd_open_positions",
				Help: "Current number of open positions, by game",
			},
			[]string{"game_id"},
		),

		PositionSize: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "traderd_position_size_contracts",
				Help: "Current position size in contracts",
			},
			[]string{"market_ticker", "side"},
		),
		UnrealizedPnL: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "traderd_unrealized_pnl_usd",
				Help: "Unrealized P&L in dollars, by position",
			},
			[]string{"market_ticker", "side"},
		),
		RealizedPnL: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "traderd_realized_pnl_usd",
				Help: "Realized P&L in dollars, by game (can be negative; uses Add, not Inc)",
			},
			[]string{"game_id"},
		),

		RiskRejectionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "traderd_risk_rejections_total",
				Help: "Total number of orders rejected by the risk manager, by limit type",
			},
			[]string{"limit_type"},
		),
		DailyOrdersUsed: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "traderd_daily_orders_used",
			Help: "Number of orders placed in the current trading day",
		}),
		TotalExposure: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "traderd_total_exposure_usd",
			Help: "Total notional exposure across open positions",
		}),
		DailyPnL: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "traderd_daily_pnl_usd",
			Help: "Today's realized P&L in dollars",
		}),
		CooldownActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "traderd_cooldown_active",
			Help: "Whether the loss-streak cooldown breaker is open (1) or closed (0)",
		}),

		RefreshDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "traderd_aggregator_refresh_duration_seconds",
				Help:    "Time spent refreshing one game's aggregated state",
				Buckets: prometheus.ExponentialBuckets(0.01, 2, 12),
			},
			[]string{"source"},
		),
		RefreshErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "traderd_aggregator_refresh_errors_total",
				Help: "Total number of failed refresh calls against an upstream source",
			},
			[]string{"source"},
		),
		GameStaleness: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "traderd_game_staleness_seconds",
				Help: "Seconds since a game's aggregated state was last refreshed",
			},
			[]string{"game_id"},
		),
		ActiveGames: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "traderd_active_games",
			Help: "Number of games currently tracked by the aggregator",
		}),

		SignalsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "traderd_signals_total",
				Help: "Total number of trade signals emitted, by strategy and side",
			},
			[]string{"strategy", "side"},
		),
		StrategyEvalError: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "traderd_strategy_eval_errors_total",
				Help: "Total number of strategy evaluation errors or panics, by strategy",
			},
			[]string{"strategy"},
		),

		UpstreamRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "traderd_upstream_requests_total",
				Help: "Total number of requests to upstream clients, by client and status",
			},
			[]string{"client", "status"},
		),
		UpstreamRequestLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "traderd_upstream_request_latency_seconds",
				Help:    "Upstream client request latency",
				Buckets: prometheus.ExponentialBuckets(0.005, 2, 12),
			},
			[]string{"client"},
		),
	}

	tm.registerAll()
	return tm
}

func (tm *TradingMetrics) registerAll() {
	tm.registry.MustRegister(
		tm.OrdersTotal,
		tm.OrderFillAmount,
		tm.OpenPositions,
		tm.PositionSize,
		tm.UnrealizedPnL,
		tm.RealizedPnL,
		tm.RiskRejectionsTotal,
		tm.DailyOrdersUsed,
		tm.TotalExposure,
		tm.DailyPnL,
		tm.CooldownActive,
		tm.RefreshDuration,
		tm.RefreshErrors,
		tm.GameStaleness,
		tm.ActiveGames,
		tm.SignalsTotal,
		tm.StrategyEvalError,
		tm.UpstreamRequestsTotal,
		tm.UpstreamRequestLatency,
	)
}

// Registry returns the Prometheus registry backing these metrics, for
// mounting on the control surface's /metrics endpoint.
func (tm *TradingMetrics) Registry() *prometheus.Registry {
	return tm.registry
}

// --- Helper methods for recording metrics ---

// RecordOrder records an order outcome (filled, rejected, cancelled).
func (tm *TradingMetrics) RecordOrder(side, status string, fillAmountUSD float64) {
	tm.OrdersTotal.WithLabelValues(side, status).Inc()
	if fillAmountUSD > 0 {
		tm.OrderFillAmount.WithLabelValues(side).Observe(fillAmountUSD)
	}
}

// RecordRiskRejection records an order rejected by the risk manager.
func (tm *TradingMetrics) RecordRiskRejection(limitType string) {
	tm.RiskRejectionsTotal.WithLabelValues(limitType).Inc()
}

// UpdatePosition updates per-position gauges.
func (tm *TradingMetrics) UpdatePosition(ticker, side string, size, unrealizedPnL float64) {
	tm.PositionSize.WithLabelValues(ticker, side).Set(size)
	tm.UnrealizedPnL.WithLabelValues(ticker, side).Set(unrealizedPnL)
}

// RecordRealizedPnL records realized P&L for a closed or settled position.
func (tm *TradingMetrics) RecordRealizedPnL(gameID string, pnlUSD float64) {
	tm.RealizedPnL.WithLabelValues(gameID).Add(pnlUSD)
}

// UpdateRiskStatus mirrors pkg/risk.Status onto gauges.
func (tm *TradingMetrics) UpdateRiskStatus(dailyOrders int, exposure, dailyPnL float64, cooldownActive bool) {
	tm.DailyOrdersUsed.Set(float64(dailyOrders))
	tm.TotalExposure.Set(exposure)
	tm.DailyPnL.Set(dailyPnL)
	if cooldownActive {
		tm.CooldownActive.Set(1)
	} else {
		tm.CooldownActive.Set(0)
	}
}

// RecordRefresh records one aggregator refresh cycle against a source.
func (tm *TradingMetrics) RecordRefresh(source string, durationSec float64, err error) {
	tm.RefreshDuration.WithLabelValues(source).Observe(durationSec)
	if err != nil {
		tm.RefreshErrors.WithLabelValues(source).Inc()
	}
}

// UpdateGameStaleness records how long ago a game's state last refreshed.
func (tm *TradingMetrics) UpdateGameStaleness(gameID string, secondsSinceRefresh float64) {
	tm.GameStaleness.WithLabelValues(gameID).Set(secondsSinceRefresh)
}

// UpdateActiveGames sets the count of tracked games.
func (tm *TradingMetrics) UpdateActiveGames(count int) {
	tm.ActiveGames.Set(float64(count))
}

// RecordSignal records a strategy emitting a trade signal.
func (tm *TradingMetrics) RecordSignal(strategy, side string) {
	tm.SignalsTotal.WithLabelValues(strategy, side).Inc()
}

// RecordStrategyError records a strategy evaluation error or recovered panic.
func (tm *TradingMetrics) RecordStrategyError(strategy string) {
	tm.StrategyEvalError.WithLabelValues(strategy).Inc()
}

// RecordUpstreamRequest records a request/response against an upstream client.
func (tm *TradingMetrics) RecordUpstreamRequest(client, status string, latencySec float64) {
	tm.UpstreamRequestsTotal.WithLabelValues(client, status).Inc()
	tm.UpstreamRequestLatency.WithLabelValues(client).Observe(latencySec)
}

// --- Decimal helpers ---

// DecimalToFloat64 safely converts decimal.Decimal to float64 for metrics.
func DecimalToFloat64(d decimal.Decimal) float64 {
	f, _ := d.Float64()
	return f
}

var (
	defaultMetrics *TradingMetrics
	once           sync.Once
)

// Default returns the process-wide default metrics instance.
func Default() *TradingMetrics {
	once.Do(func() {
		defaultMetrics = New()
	})
	return defaultMetrics
}
