package strategy

import (
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/phenomenon0/kalshi-paper-trader/pkg/model"
)

// MeanReversionConfig configures MeanReversion. Defaults mirror
// original_source/backend/strategies/mean_reversion.py's
// get_default_config.
type MeanReversionConfig struct {
	MinReversionPercent decimal.Decimal
	MaxReversionPercent decimal.Decimal
	MinTimeRemainingPct decimal.Decimal
	PositionSize        int
	CooldownMinutes     int
	OnlyFirstHalf       bool
	MarketTypes         []model.MarketType
	MaxScoreDeficit     int
}

// DefaultMeanReversionConfig returns the Python source's default tuning.
func DefaultMeanReversionConfig() MeanReversionConfig {
	return MeanReversionConfig{
		MinReversionPercent: decimal.NewFromInt(15),
		MaxReversionPercent: decimal.NewFromInt(40),
		MinTimeRemainingPct: decimal.NewFromInt(25),
		PositionSize:        10,
		CooldownMinutes:     10,
		OnlyFirstHalf:       true,
		MarketTypes:         []model.MarketType{model.MarketMoneyline},
		MaxScoreDeficit:     20,
	}
}

// MeanReversion stores each game's first-live-tick mid prices as a
// pre-game baseline, then trades live swings back toward it.
type MeanReversion struct {
	Base
	cfg MeanReversionConfig

	mu            sync.Mutex
	pregamePrices map[string]map[string]decimal.Decimal // gameID -> ticker -> mid
	seenLive      map[string]bool
}

// NewMeanReversion constructs a MeanReversion strategy instance.
func NewMeanReversion(id string, cfg MeanReversionConfig) *MeanReversion {
	return &MeanReversion{
		Base:          newBase(id),
		cfg:           cfg,
		pregamePrices: make(map[string]map[string]decimal.Decimal),
		seenLive:      make(map[string]bool),
	}
}

func (r *MeanReversion) Name() string { return "Live Mean Reversion" }
func (r *MeanReversion) Type() string { return "mean_reversion" }
func (r *MeanReversion) Description() string {
	return "Trade on overreactions during live games, expecting mean reversion"
}
func (r *MeanReversion) DefaultConfig() any { return DefaultMeanReversionConfig() }

func (r *MeanReversion) UpdateConfig(cfg any) error {
	c, ok := cfg.(MeanReversionConfig)
	if !ok {
		return fmt.Errorf("mean_reversion: expected MeanReversionConfig, got %T", cfg)
	}
	r.cfg = c
	return nil
}

// Evaluate implements Strategy.
func (r *MeanReversion) Evaluate(game *model.GameState) []model.TradeSignal {
	if !r.IsEnabled() || game == nil {
		return nil
	}

	isLive := game.Phase == model.PhaseLive ||
		(game.LiveSports != nil && game.LiveSports.Period > 0)

	r.mu.Lock()
	alreadySeen := r.seenLive[game.GameID]
	if isLive && !alreadySeen {
		r.storePregamePrices(game)
		r.seenLive[game.GameID] = true
		r.mu.Unlock()
		return nil
	}
	r.mu.Unlock()

	if !isLive {
		return nil
	}

	r.mu.Lock()
	pregame, ok := r.pregamePrices[game.GameID]
	r.mu.Unlock()
	if !ok {
		return nil
	}

	if !r.timeRemainingOK(game) {
		return nil
	}
	if r.cfg.OnlyFirstHalf && !r.isFirstHalf(game) {
		return nil
	}

	var signals []model.TradeSignal
	for _, market := range game.Markets {
		if sig := r.evaluateMarket(game, market, pregame); sig != nil {
			signals = append(signals, *sig)
			r.recordSignal(*sig)
		}
	}
	return signals
}

func (r *MeanReversion) storePregamePrices(game *model.GameState) {
	prices := make(map[string]decimal.Decimal, len(game.Markets))
	for ticker, market := range game.Markets {
		if market.Orderbook == nil {
			continue
		}
		mid := market.Orderbook.MidPrice()
		if mid.GreaterThan(decimal.Zero) {
			prices[ticker] = mid
		}
	}
	r.pregamePrices[game.GameID] = prices
}

func (r *MeanReversion) isFirstHalf(game *model.GameState) bool {
	if game.LiveSports == nil || game.LiveSports.Period == 0 {
		return true
	}
	return game.LiveSports.Period <= 2
}

func (r *MeanReversion) timeRemainingOK(game *model.GameState) bool {
	if game.LiveSports == nil || game.LiveSports.Period == 0 {
		return true
	}
	period := game.LiveSports.Period
	periodsRemaining := 4 - period + 1
	pctRemaining := decimal.NewFromInt(int64(periodsRemaining)).Div(decimal.NewFromInt(4)).Mul(decimal.NewFromInt(100))
	return pctRemaining.GreaterThanOrEqual(r.cfg.MinTimeRemainingPct)
}

func (r *MeanReversion) scoreDeficitOK(game *model.GameState) bool {
	if game.LiveSports == nil {
		return true
	}
	deficit := game.LiveSports.ScoreDifferential()
	if deficit < 0 {
		deficit = -deficit
	}
	return deficit <= r.cfg.MaxScoreDeficit
}

func (r *MeanReversion) evaluateMarket(game *model.GameState, market *model.MarketState, pregame map[string]decimal.Decimal) *model.TradeSignal {
	if !containsMarketType(r.cfg.MarketTypes, market.MarketType) {
		return nil
	}
	cooldown := time.Duration(r.cfg.CooldownMinutes) * time.Minute
	if !r.checkCooldown(market.Ticker, cooldown) {
		return nil
	}
	if market.Orderbook == nil {
		return nil
	}

	current := market.Orderbook.MidPrice()
	pregamePrice, ok := pregame[market.Ticker]
	if !ok || current.LessThanOrEqual(decimal.Zero) {
		return nil
	}

	swing := current.Sub(pregamePrice)
	swingPct := swing.Abs()
	if swingPct.LessThan(r.cfg.MinReversionPercent) || swingPct.GreaterThan(r.cfg.MaxReversionPercent) {
		return nil
	}
	if !r.scoreDeficitOK(game) {
		return nil
	}

	var side model.Side
	var entryPrice decimal.Decimal
	if swing.LessThan(decimal.Zero) {
		side = model.SideYes
		entryPrice = market.Orderbook.YesAsk
	} else {
		side = model.SideNo
		entryPrice = market.Orderbook.NoAsk
	}
	if entryPrice.LessThanOrEqual(decimal.Zero) {
		return nil
	}

	r.recordTrade(market.Ticker)
	confidence := clampConfidence(swingPct.Div(r.cfg.MaxReversionPercent))
	direction := "increased"
	if swing.LessThan(decimal.Zero) {
		direction = "dropped"
	}

	sig := model.TradeSignal{
		StrategyID:   r.ID(),
		StrategyName: r.Name(),
		MarketTicker: market.Ticker,
		Side:         side,
		Quantity:     r.cfg.PositionSize,
		Confidence:   confidence,
		Reason: fmt.Sprintf("Price %s %spp from pre-game (%sc -> %sc). Expecting mean reversion.",
			direction, swingPct.StringFixed(1), pregamePrice.StringFixed(1), current.StringFixed(1)),
		Metadata: map[string]any{
			"pregame_price":  pregamePrice,
			"current_price":  current,
			"swing_percent":  swingPct,
			"entry_price":    entryPrice,
		},
		Timestamp: time.Now(),
	}
	return &sig
}
