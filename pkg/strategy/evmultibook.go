package strategy

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/phenomenon0/kalshi-paper-trader/pkg/model"
	"github.com/phenomenon0/kalshi-paper-trader/pkg/oddsmath"
)

// EVMultiBookConfig configures EVMultiBook. Defaults mirror
// original_source/backend/strategies/ev_multibook.py's get_default_config.
type EVMultiBookConfig struct {
	MinEVPercent           decimal.Decimal
	MinSportsbooksAgreeing int
	PositionSize           int
	CooldownMinutes        int
	PreferredBooks         []string
	MarketTypes            []model.MarketType
	ExcludeBooks           []string
}

// DefaultEVMultiBookConfig returns the Python source's default tuning.
func DefaultEVMultiBookConfig() EVMultiBookConfig {
	return EVMultiBookConfig{
		MinEVPercent:           decimal.NewFromInt(3),
		MinSportsbooksAgreeing: 2,
		PositionSize:           10,
		CooldownMinutes:        5,
		MarketTypes:            []model.MarketType{model.MarketMoneyline},
	}
}

type bookEV struct {
	vendor string
	ev     decimal.Decimal
	prob   decimal.Decimal
}

// EVMultiBook compares Kalshi prices against each sportsbook individually
// and trades the side a quorum of books independently rate +EV.
type EVMultiBook struct {
	Base
	cfg EVMultiBookConfig
}

// NewEVMultiBook constructs an EVMultiBook strategy instance.
func NewEVMultiBook(id string, cfg EVMultiBookConfig) *EVMultiBook {
	return &EVMultiBook{Base: newBase(id), cfg: cfg}
}

func (e *EVMultiBook) Name() string { return "EV Multi-Book Arbitrage" }
func (e *EVMultiBook) Type() string { return "ev_multibook" }
func (e *EVMultiBook) Description() string {
	return "Find +EV opportunities by comparing Kalshi to individual sportsbooks"
}
func (e *EVMultiBook) DefaultConfig() any { return DefaultEVMultiBookConfig() }

func (e *EVMultiBook) UpdateConfig(cfg any) error {
	c, ok := cfg.(EVMultiBookConfig)
	if !ok {
		return fmt.Errorf("ev_multibook: expected EVMultiBookConfig, got %T", cfg)
	}
	e.cfg = c
	return nil
}

// Evaluate implements Strategy.
func (e *EVMultiBook) Evaluate(game *model.GameState) []model.TradeSignal {
	if !e.IsEnabled() || game == nil || len(game.Odds) == 0 {
		return nil
	}

	var signals []model.TradeSignal
	for _, market := range game.Markets {
		if sig := e.evaluateMarket(game, market); sig != nil {
			signals = append(signals, *sig)
			e.recordSignal(*sig)
		}
	}
	return signals
}

func (e *EVMultiBook) excluded(vendor string) bool {
	for _, v := range e.cfg.ExcludeBooks {
		if v == vendor {
			return true
		}
	}
	if len(e.cfg.PreferredBooks) == 0 {
		return false
	}
	for _, v := range e.cfg.PreferredBooks {
		if v == vendor {
			return false
		}
	}
	return true
}

func (e *EVMultiBook) evaluateMarket(game *model.GameState, market *model.MarketState) *model.TradeSignal {
	if !containsMarketType(e.cfg.MarketTypes, market.MarketType) {
		return nil
	}
	cooldown := time.Duration(e.cfg.CooldownMinutes) * time.Minute
	if !e.checkCooldown(market.Ticker, cooldown) {
		return nil
	}
	if market.Orderbook == nil {
		return nil
	}

	yesAsk := market.Orderbook.YesAsk
	noAsk := market.Orderbook.NoAsk
	if yesAsk.LessThanOrEqual(decimal.Zero) || noAsk.LessThanOrEqual(decimal.Zero) {
		return nil
	}

	isHome := strings.EqualFold(market.TeamSide, game.HomeTeam)
	minEV := e.cfg.MinEVPercent.Div(decimal.NewFromInt(100))

	var yesBooks, noBooks []bookEV
	for vendor, quote := range game.Odds {
		if e.excluded(vendor) {
			continue
		}
		bookProb := bookProbability(quote, market.MarketType, isHome)
		if bookProb == nil {
			continue
		}

		evYes, err := oddsmath.EV(yesAsk, *bookProb, model.SideYes)
		if err == nil && evYes.GreaterThanOrEqual(minEV) {
			yesBooks = append(yesBooks, bookEV{vendor: vendor, ev: evYes, prob: *bookProb})
		}

		oppositeProb := decimal.NewFromInt(1).Sub(*bookProb)
		evNo, err := oddsmath.EV(noAsk, oppositeProb, model.SideYes)
		if err == nil && evNo.GreaterThanOrEqual(minEV) {
			noBooks = append(noBooks, bookEV{vendor: vendor, ev: evNo, prob: oppositeProb})
		}
	}

	var side model.Side
	var books []bookEV
	var entryPrice decimal.Decimal
	switch {
	case len(yesBooks) >= e.cfg.MinSportsbooksAgreeing && len(yesBooks) >= len(noBooks):
		side, books, entryPrice = model.SideYes, yesBooks, yesAsk
	case len(noBooks) >= e.cfg.MinSportsbooksAgreeing:
		side, books, entryPrice = model.SideNo, noBooks, noAsk
	default:
		return nil
	}

	sort.Slice(books, func(i, j int) bool { return books[i].ev.GreaterThan(books[j].ev) })
	best := books[0]

	e.recordTrade(market.Ticker)
	confidence := clampConfidence(decimal.NewFromInt(int64(len(books))).Div(decimal.NewFromInt(5)))

	sig := model.TradeSignal{
		StrategyID:   e.ID(),
		StrategyName: e.Name(),
		MarketTicker: market.Ticker,
		Side:         side,
		Quantity:     e.cfg.PositionSize,
		Confidence:   confidence,
		Reason: fmt.Sprintf("%d sportsbooks show +EV for %s. Best: %s at +%s%% EV.",
			len(books), strings.ToUpper(string(side)), best.vendor, best.ev.Mul(decimal.NewFromInt(100)).StringFixed(1)),
		Metadata: map[string]any{
			"best_book":          best.vendor,
			"best_ev_percent":    best.ev.Mul(decimal.NewFromInt(100)),
			"best_implied_prob":  best.prob,
			"agreeing_books":     len(books),
			"entry_price":        entryPrice,
			"is_home_market":     isHome,
		},
		Timestamp: time.Now(),
	}
	return &sig
}

// bookProbability maps one vendor's quote to an implied probability for
// market, per market type. Totals always read the over side (YES=over).
func bookProbability(quote *model.OddsQuote, marketType model.MarketType, isHome bool) *decimal.Decimal {
	var odds *int
	switch marketType {
	case model.MarketMoneyline:
		if isHome {
			odds = quote.HomeMoneyline
		} else {
			odds = quote.AwayMoneyline
		}
	case model.MarketSpread:
		if isHome {
			odds = quote.SpreadHomeOdds
		} else {
			odds = quote.SpreadAwayOdds
		}
	case model.MarketTotal:
		odds = quote.OverOdds
	default:
		return nil
	}
	if odds == nil {
		return nil
	}
	prob := oddsmath.AmericanToImplied(*odds)
	return &prob
}
