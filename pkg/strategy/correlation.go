package strategy

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/phenomenon0/kalshi-paper-trader/pkg/model"
)

// CorrelationConfig configures Correlation. Defaults mirror
// original_source/backend/strategies/correlation.py's get_default_config.
type CorrelationConfig struct {
	MinDiscrepancyPercent decimal.Decimal
	ComplementaryMaxSum   decimal.Decimal
	ComplementaryMinSum   decimal.Decimal
	PositionSize          int
	CooldownMinutes       int
	CheckComplementary    bool
	CheckMoneylineSpread  bool
	PreferNoOnOvervalued  bool
}

// DefaultCorrelationConfig returns the Python source's default tuning.
func DefaultCorrelationConfig() CorrelationConfig {
	return CorrelationConfig{
		MinDiscrepancyPercent: decimal.NewFromInt(5),
		ComplementaryMaxSum:   decimal.NewFromInt(105),
		ComplementaryMinSum:   decimal.NewFromInt(95),
		PositionSize:          10,
		CooldownMinutes:       5,
		CheckComplementary:    true,
		CheckMoneylineSpread:  true,
		PreferNoOnOvervalued:  true,
	}
}

// Correlation finds pricing inconsistencies between markets that should be
// mathematically related: complementary home/away moneylines, and
// moneyline-implied vs spread-implied win probability.
type Correlation struct {
	Base
	cfg CorrelationConfig
}

// NewCorrelation constructs a Correlation strategy instance.
func NewCorrelation(id string, cfg CorrelationConfig) *Correlation {
	return &Correlation{Base: newBase(id), cfg: cfg}
}

func (c *Correlation) Name() string { return "Cross-Market Correlation" }
func (c *Correlation) Type() string { return "correlation" }
func (c *Correlation) Description() string {
	return "Exploit pricing inefficiencies between correlated markets"
}
func (c *Correlation) DefaultConfig() any { return DefaultCorrelationConfig() }

func (c *Correlation) UpdateConfig(cfg any) error {
	cc, ok := cfg.(CorrelationConfig)
	if !ok {
		return fmt.Errorf("correlation: expected CorrelationConfig, got %T", cfg)
	}
	c.cfg = cc
	return nil
}

// Evaluate implements Strategy.
func (c *Correlation) Evaluate(game *model.GameState) []model.TradeSignal {
	if !c.IsEnabled() || game == nil {
		return nil
	}

	moneyline := make(map[string]*model.MarketState)
	spread := make(map[string]*model.MarketState)
	for _, market := range game.Markets {
		switch market.MarketType {
		case model.MarketMoneyline:
			moneyline[strings.ToUpper(market.TeamSide)] = market
		case model.MarketSpread:
			spread[market.Ticker] = market
		}
	}

	var signals []model.TradeSignal
	if c.cfg.CheckComplementary && len(moneyline) >= 2 {
		signals = append(signals, c.checkComplementary(game, moneyline)...)
	}
	if c.cfg.CheckMoneylineSpread && len(moneyline) > 0 && len(spread) > 0 {
		signals = append(signals, c.checkMoneylineSpread(game, moneyline, spread)...)
	}
	for _, sig := range signals {
		c.recordSignal(sig)
	}
	return signals
}

func (c *Correlation) checkComplementary(game *model.GameState, moneyline map[string]*model.MarketState) []model.TradeSignal {
	homeTeam := strings.ToUpper(game.HomeTeam)
	awayTeam := strings.ToUpper(game.AwayTeam)

	homeMarket, ok1 := moneyline[homeTeam]
	awayMarket, ok2 := moneyline[awayTeam]
	if !ok1 || !ok2 || homeMarket.Orderbook == nil || awayMarket.Orderbook == nil {
		return nil
	}

	homeYes := homeMarket.Orderbook.MidPrice()
	awayYes := awayMarket.Orderbook.MidPrice()
	if homeYes.LessThanOrEqual(decimal.Zero) || awayYes.LessThanOrEqual(decimal.Zero) {
		return nil
	}
	totalSum := homeYes.Add(awayYes)

	if totalSum.LessThanOrEqual(c.cfg.ComplementaryMaxSum) {
		return nil // sum within or below the overvalued threshold; undervalued sums are skipped as unreliable
	}
	if !c.cfg.PreferNoOnOvervalued {
		return nil
	}

	excess := totalSum.Sub(decimal.NewFromInt(100))
	target, targetTeam := homeMarket, homeTeam
	if awayYes.GreaterThan(homeYes) {
		target, targetTeam = awayMarket, awayTeam
	}

	cooldown := time.Duration(c.cfg.CooldownMinutes) * time.Minute
	if !c.checkCooldown(target.Ticker, cooldown) {
		return nil
	}
	c.recordTrade(target.Ticker)

	sig := model.TradeSignal{
		StrategyID:   c.ID(),
		StrategyName: c.Name(),
		MarketTicker: target.Ticker,
		Side:         model.SideNo,
		Quantity:     c.cfg.PositionSize,
		Confidence:   clampConfidence(excess.Div(decimal.NewFromInt(10))),
		Reason: fmt.Sprintf("Complementary markets overvalued: %s YES %s%% + %s YES %s%% = %s%% (should be ~100%%)",
			homeTeam, homeYes.StringFixed(1), awayTeam, awayYes.StringFixed(1), totalSum.StringFixed(1)),
		Metadata: map[string]any{
			"home_team":      homeTeam,
			"away_team":      awayTeam,
			"home_yes_price": homeYes,
			"away_yes_price": awayYes,
			"total_sum":      totalSum,
			"excess_percent": excess,
			"signal_type":    "complementary_overvalued",
			"target_team":    targetTeam,
		},
		Timestamp: time.Now(),
	}
	return []model.TradeSignal{sig}
}

func (c *Correlation) checkMoneylineSpread(game *model.GameState, moneyline map[string]*model.MarketState, spread map[string]*model.MarketState) []model.TradeSignal {
	homeTeam := strings.ToUpper(game.HomeTeam)
	awayTeam := strings.ToUpper(game.AwayTeam)

	homeMkt, ok1 := moneyline[homeTeam]
	awayMkt, ok2 := moneyline[awayTeam]
	if !ok1 || !ok2 || homeMkt.Orderbook == nil || awayMkt.Orderbook == nil {
		return nil
	}

	homeProb := homeMkt.Orderbook.MidPrice()
	awayProb := awayMkt.Orderbook.MidPrice()

	favoriteTeam, favoriteProb := homeTeam, homeProb
	if awayProb.GreaterThan(homeProb) {
		favoriteTeam, favoriteProb = awayTeam, awayProb
	}

	var signals []model.TradeSignal
	for ticker, market := range spread {
		if market.Orderbook == nil {
			continue
		}
		team, _, ok := parseTeamSpread(ticker)
		if !ok || team != favoriteTeam {
			continue
		}

		spreadProb := market.Orderbook.MidPrice()
		fifty := decimal.NewFromInt(50)
		expected := fifty.Add(favoriteProb.Sub(fifty).Mul(decimal.NewFromFloat(0.5)))
		discrepancy := spreadProb.Sub(expected)

		if discrepancy.Abs().LessThan(c.cfg.MinDiscrepancyPercent) {
			continue
		}
		cooldown := time.Duration(c.cfg.CooldownMinutes) * time.Minute
		if !c.checkCooldown(ticker, cooldown) {
			continue
		}

		var side model.Side
		var entryPrice decimal.Decimal
		if discrepancy.GreaterThan(decimal.Zero) {
			side = model.SideNo
			entryPrice = market.Orderbook.NoAsk
		} else {
			side = model.SideYes
			entryPrice = market.Orderbook.YesAsk
		}
		if entryPrice.LessThanOrEqual(decimal.Zero) {
			continue
		}
		c.recordTrade(ticker)

		direction := "overvalued"
		if discrepancy.LessThan(decimal.Zero) {
			direction = "undervalued"
		}

		sig := model.TradeSignal{
			StrategyID:   c.ID(),
			StrategyName: c.Name(),
			MarketTicker: ticker,
			Side:         side,
			Quantity:     c.cfg.PositionSize,
			Confidence:   clampConfidence(discrepancy.Abs().Div(decimal.NewFromInt(10))),
			Reason: fmt.Sprintf("Spread %s: priced at %s%% but moneyline (%s %s%%) implies %s%%",
				direction, spreadProb.StringFixed(1), favoriteTeam, favoriteProb.StringFixed(1), expected.StringFixed(1)),
			Metadata: map[string]any{
				"spread_ticker":        ticker,
				"spread_prob":          spreadProb,
				"expected_spread_prob": expected,
				"moneyline_prob":       favoriteProb,
				"favorite_team":        favoriteTeam,
				"discrepancy":          discrepancy,
				"signal_type":          "ml_spread_correlation",
			},
			Timestamp: time.Now(),
		}
		signals = append(signals, sig)
	}
	return signals
}

// parseTeamSpread parses a spread ticker's trailing "<TEAM><spread>" suffix
// (e.g. "KXNBASPREAD-26JAN08DALUTA-DAL7" -> team "DAL", spread 7), matching
// the Python source's character-scan approach.
func parseTeamSpread(ticker string) (team string, spreadValue int, ok bool) {
	parts := strings.Split(ticker, "-")
	if len(parts) < 3 {
		return "", 0, false
	}
	suffix := parts[len(parts)-1]
	for i, r := range suffix {
		if r >= '0' && r <= '9' {
			team = strings.ToUpper(suffix[:i])
			if team == "" {
				return "", 0, false
			}
			v, err := strconv.Atoi(suffix[i:])
			if err != nil {
				return "", 0, false
			}
			return team, v, true
		}
	}
	return "", 0, false
}
