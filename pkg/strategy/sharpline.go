package strategy

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/phenomenon0/kalshi-paper-trader/pkg/model"
	"github.com/phenomenon0/kalshi-paper-trader/pkg/oddsmath"
)

// SharpLineConfig configures SharpLine. Defaults mirror
// original_source/backend/strategies/sharp_line.py's get_default_config.
type SharpLineConfig struct {
	ThresholdPercent     decimal.Decimal
	MinSampleSportsbooks int
	PositionSize         int
	CooldownMinutes      int
	MinEVPercent         decimal.Decimal
	MarketTypes          []model.MarketType
	UseKellySizing       bool
	KellyFraction        decimal.Decimal
}

// DefaultSharpLineConfig returns the Python source's default tuning.
func DefaultSharpLineConfig() SharpLineConfig {
	return SharpLineConfig{
		ThresholdPercent:     decimal.NewFromInt(5),
		MinSampleSportsbooks: 3,
		PositionSize:         10,
		CooldownMinutes:      5,
		MinEVPercent:         decimal.NewFromInt(2),
		MarketTypes:          []model.MarketType{model.MarketMoneyline},
		UseKellySizing:       false,
		KellyFraction:        decimal.NewFromFloat(0.25),
	}
}

// SharpLine compares Kalshi mid prices to sportsbook consensus and trades
// on divergences that clear both a percentage threshold and a minimum EV.
type SharpLine struct {
	Base
	cfg SharpLineConfig
}

// NewSharpLine constructs a SharpLine strategy instance with cfg, used as
// given.
func NewSharpLine(id string, cfg SharpLineConfig) *SharpLine {
	return &SharpLine{Base: newBase(id), cfg: cfg}
}

func (s *SharpLine) Name() string        { return "Sharp Line Detection" }
func (s *SharpLine) Type() string        { return "sharp_line" }
func (s *SharpLine) Description() string {
	return "Compare Kalshi prices to sportsbook consensus and trade on divergences"
}
func (s *SharpLine) DefaultConfig() any { return DefaultSharpLineConfig() }

func (s *SharpLine) UpdateConfig(cfg any) error {
	c, ok := cfg.(SharpLineConfig)
	if !ok {
		return fmt.Errorf("sharp_line: expected SharpLineConfig, got %T", cfg)
	}
	s.cfg = c
	return nil
}

// Evaluate implements Strategy.
func (s *SharpLine) Evaluate(game *model.GameState) []model.TradeSignal {
	if !s.IsEnabled() || game == nil {
		return nil
	}
	if game.Consensus == nil || game.Consensus.NumSportsbooks < s.cfg.MinSampleSportsbooks {
		return nil
	}

	var signals []model.TradeSignal
	for _, market := range game.Markets {
		if sig := s.evaluateMarket(game, market); sig != nil {
			signals = append(signals, *sig)
			s.recordSignal(*sig)
		}
	}
	return signals
}

func (s *SharpLine) evaluateMarket(game *model.GameState, market *model.MarketState) *model.TradeSignal {
	if !containsMarketType(s.cfg.MarketTypes, market.MarketType) {
		return nil
	}
	cooldown := time.Duration(s.cfg.CooldownMinutes) * time.Minute
	if !s.checkCooldown(market.Ticker, cooldown) {
		return nil
	}
	if market.Orderbook == nil {
		return nil
	}

	mid := market.Orderbook.MidPrice()
	if mid.LessThanOrEqual(decimal.Zero) {
		return nil
	}
	kalshiProb := oddsmath.CentsToProb(mid)

	consensusProb := s.consensusFor(game, market)
	if consensusProb == nil {
		return nil
	}

	divergence := consensusProb.Sub(kalshiProb)
	divergencePercent := divergence.Abs().Mul(decimal.NewFromInt(100))
	if divergencePercent.LessThan(s.cfg.ThresholdPercent) {
		return nil
	}

	var side model.Side
	var entryPrice decimal.Decimal
	if divergence.GreaterThan(decimal.Zero) {
		side = model.SideYes
		entryPrice = market.Orderbook.YesAsk
	} else {
		side = model.SideNo
		entryPrice = market.Orderbook.NoAsk
	}
	if entryPrice.LessThanOrEqual(decimal.Zero) {
		return nil
	}

	ev, err := oddsmath.EV(entryPrice, *consensusProb, side)
	if err != nil {
		return nil
	}
	minEV := s.cfg.MinEVPercent.Div(decimal.NewFromInt(100))
	if ev.LessThan(minEV) {
		return nil
	}

	quantity := s.cfg.PositionSize
	if s.cfg.UseKellySizing {
		kelly, err := oddsmath.Kelly(entryPrice, *consensusProb, side, s.cfg.KellyFraction)
		if err == nil {
			scaled := decimal.NewFromInt(int64(s.cfg.PositionSize)).Mul(kelly).Mul(decimal.NewFromInt(4))
			quantity = int(scaled.IntPart())
			if quantity < 1 {
				quantity = 1
			}
		}
	}

	confidence := clampConfidence(divergencePercent.Div(decimal.NewFromInt(10)))
	direction := "overvalued"
	if side == model.SideYes {
		direction = "undervalued"
	}

	sig := model.TradeSignal{
		StrategyID:   s.ID(),
		StrategyName: s.Name(),
		MarketTicker: market.Ticker,
		Side:         side,
		Quantity:     quantity,
		Confidence:   confidence,
		Reason: fmt.Sprintf("Kalshi %s by %s%%. Kalshi: %s%%, Consensus: %s%%. EV: +%s%%",
			direction, divergencePercent.StringFixed(1),
			kalshiProb.Mul(decimal.NewFromInt(100)).StringFixed(1),
			consensusProb.Mul(decimal.NewFromInt(100)).StringFixed(1),
			ev.Mul(decimal.NewFromInt(100)).StringFixed(1)),
		Metadata: map[string]any{
			"kalshi_prob":         kalshiProb,
			"consensus_prob":      *consensusProb,
			"divergence_percent":  divergencePercent,
			"expected_value":      ev,
			"entry_price_cents":   entryPrice,
			"market_type":         market.MarketType,
			"sources_count":       game.Consensus.NumSportsbooks,
		},
		Timestamp: time.Now(),
	}

	s.recordTrade(market.Ticker)
	return &sig
}

// consensusFor maps a market to its consensus probability: moneyline
// compares TeamSide to the game's home team, spread/total read the
// dedicated consensus fields.
func (s *SharpLine) consensusFor(game *model.GameState, market *model.MarketState) *decimal.Decimal {
	c := game.Consensus
	switch market.MarketType {
	case model.MarketMoneyline:
		if strings.EqualFold(market.TeamSide, game.HomeTeam) {
			return &c.HomeWinProbability
		}
		return &c.AwayWinProbability
	case model.MarketSpread:
		return c.SpreadHomeProbability
	case model.MarketTotal:
		return c.OverProbability
	}
	return nil
}
