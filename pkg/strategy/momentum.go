package strategy

import (
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/phenomenon0/kalshi-paper-trader/pkg/model"
)

// MomentumConfig configures Momentum. Defaults mirror
// original_source/backend/strategies/momentum.py's get_default_config.
type MomentumConfig struct {
	LookbackSeconds     int
	MinPriceChangeCents decimal.Decimal
	PositionSize        int
	CooldownMinutes     int
	MaxSpreadCents      decimal.Decimal
	MarketTypes         []model.MarketType
}

// DefaultMomentumConfig returns the Python source's default tuning.
func DefaultMomentumConfig() MomentumConfig {
	return MomentumConfig{
		LookbackSeconds:     120,
		MinPriceChangeCents: decimal.NewFromInt(5),
		PositionSize:        10,
		CooldownMinutes:     3,
		MaxSpreadCents:      decimal.NewFromInt(3),
		MarketTypes:         []model.MarketType{model.MarketMoneyline, model.MarketSpread, model.MarketTotal},
	}
}

type pricePoint struct {
	price decimal.Decimal
	at    time.Time
}

const maxPriceHistory = 100

// Momentum tracks a rolling per-ticker price history and trades in the
// direction of a recent price move that clears a minimum-cents threshold.
type Momentum struct {
	Base
	cfg MomentumConfig

	mu      sync.Mutex
	history map[string][]pricePoint
}

// NewMomentum constructs a Momentum strategy instance.
func NewMomentum(id string, cfg MomentumConfig) *Momentum {
	return &Momentum{Base: newBase(id), cfg: cfg, history: make(map[string][]pricePoint)}
}

func (m *Momentum) Name() string        { return "Momentum Scalping" }
func (m *Momentum) Type() string        { return "momentum" }
func (m *Momentum) Description() string { return "Trade in the direction of rapid price movements" }
func (m *Momentum) DefaultConfig() any   { return DefaultMomentumConfig() }

func (m *Momentum) UpdateConfig(cfg any) error {
	c, ok := cfg.(MomentumConfig)
	if !ok {
		return fmt.Errorf("momentum: expected MomentumConfig, got %T", cfg)
	}
	m.cfg = c
	return nil
}

// Evaluate implements Strategy.
func (m *Momentum) Evaluate(game *model.GameState) []model.TradeSignal {
	if !m.IsEnabled() || game == nil {
		return nil
	}

	var signals []model.TradeSignal
	for _, market := range game.Markets {
		m.updateHistory(market)
		if sig := m.evaluateMarket(market); sig != nil {
			signals = append(signals, *sig)
			m.recordSignal(*sig)
		}
	}
	return signals
}

func (m *Momentum) updateHistory(market *model.MarketState) {
	if market.Orderbook == nil {
		return
	}
	mid := market.Orderbook.MidPrice()
	if mid.LessThanOrEqual(decimal.Zero) {
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	points := append(m.history[market.Ticker], pricePoint{price: mid, at: time.Now()})
	if len(points) > maxPriceHistory {
		points = points[len(points)-maxPriceHistory:]
	}
	m.history[market.Ticker] = points
}

// historicalPrice returns the price closest to now-lookback, or nil if no
// point falls within 50% of the lookback window (matches the Python
// source's tolerance).
func (m *Momentum) historicalPrice(ticker string, lookback time.Duration) *decimal.Decimal {
	m.mu.Lock()
	points := append([]pricePoint(nil), m.history[ticker]...)
	m.mu.Unlock()

	if len(points) < 2 {
		return nil
	}
	target := time.Now().Add(-lookback)

	var closest *pricePoint
	var closestDiff time.Duration
	for i := range points {
		diff := points[i].at.Sub(target)
		if diff < 0 {
			diff = -diff
		}
		if closest == nil || diff < closestDiff {
			p := points[i]
			closest = &p
			closestDiff = diff
		}
	}
	if closest != nil && closestDiff <= lookback/2 {
		return &closest.price
	}
	return nil
}

func (m *Momentum) evaluateMarket(market *model.MarketState) *model.TradeSignal {
	if !containsMarketType(m.cfg.MarketTypes, market.MarketType) {
		return nil
	}
	cooldown := time.Duration(m.cfg.CooldownMinutes) * time.Minute
	if !m.checkCooldown(market.Ticker, cooldown) {
		return nil
	}
	if market.Orderbook == nil {
		return nil
	}

	current := market.Orderbook.MidPrice()
	if current.LessThanOrEqual(decimal.Zero) {
		return nil
	}

	lookback := time.Duration(m.cfg.LookbackSeconds) * time.Second
	historical := m.historicalPrice(market.Ticker, lookback)
	if historical == nil {
		return nil
	}

	priceChange := current.Sub(*historical)
	if priceChange.Abs().LessThan(m.cfg.MinPriceChangeCents) {
		return nil
	}

	spread := market.Orderbook.Spread()
	if spread.GreaterThan(m.cfg.MaxSpreadCents) {
		return nil
	}

	var side model.Side
	var entryPrice decimal.Decimal
	if priceChange.GreaterThan(decimal.Zero) {
		side = model.SideYes
		entryPrice = market.Orderbook.YesAsk
	} else {
		side = model.SideNo
		entryPrice = market.Orderbook.NoAsk
	}
	if entryPrice.LessThanOrEqual(decimal.Zero) {
		return nil
	}

	m.recordTrade(market.Ticker)
	confidence := clampConfidence(priceChange.Abs().Div(decimal.NewFromInt(10)))
	direction := "down"
	if priceChange.GreaterThan(decimal.Zero) {
		direction = "up"
	}

	sig := model.TradeSignal{
		StrategyID:   m.ID(),
		StrategyName: m.Name(),
		MarketTicker: market.Ticker,
		Side:         side,
		Quantity:     m.cfg.PositionSize,
		Confidence:   confidence,
		Reason: fmt.Sprintf("Price moved %s %s¢ in %ds. Following momentum.",
			direction, priceChange.Abs().StringFixed(1), m.cfg.LookbackSeconds),
		Metadata: map[string]any{
			"current_price_cents":    current,
			"historical_price_cents": *historical,
			"price_change_cents":     priceChange,
			"lookback_seconds":       m.cfg.LookbackSeconds,
			"spread_cents":           spread,
			"entry_price":            entryPrice,
		},
		Timestamp: time.Now(),
	}
	return &sig
}
