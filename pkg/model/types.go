// Package model defines the shared data model for the paper-trading engine:
// per-game aggregate state, market/orderbook state, consensus odds, trade
// signals, simulated orders and positions. Types here are plain data –
// ownership and mutation rules live with the owning component (Aggregator
// owns GameState, Execution owns Position, Risk owns the process-wide
// counters).
package model

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Phase is a game's lifecycle stage.
type Phase string

const (
	PhaseScheduled Phase = "scheduled"
	PhasePregame   Phase = "pregame"
	PhaseLive      Phase = "live"
	PhaseHalftime  Phase = "halftime"
	PhaseFinished  Phase = "finished"
	PhaseCancelled Phase = "cancelled"
)

// MarketType is the kind of binary contract a MarketState represents.
type MarketType string

const (
	MarketMoneyline MarketType = "moneyline"
	MarketSpread    MarketType = "spread"
	MarketTotal     MarketType = "total"
)

// Side is a binary contract side.
type Side string

const (
	SideYes Side = "yes"
	SideNo  Side = "no"
)

// Opposite returns the other side of a binary contract.
func (s Side) Opposite() Side {
	if s == SideYes {
		return SideNo
	}
	return SideYes
}

// OrderbookState is the top-of-book snapshot for one market. Prices are integer cents in [0,100].
type OrderbookState struct {
	YesBid      decimal.Decimal
	YesAsk      decimal.Decimal
	NoBid       decimal.Decimal
	NoAsk       decimal.Decimal
	YesBidSize  decimal.Decimal
	YesAskSize  decimal.Decimal
	NoBidSize   decimal.Decimal
	NoAskSize   decimal.Decimal
	LastUpdated time.Time
}

// MidPrice is the midpoint of the yes side, in cents.
func (o *OrderbookState) MidPrice() decimal.Decimal {
	if o == nil {
		return decimal.Zero
	}
	return o.YesBid.Add(o.YesAsk).Div(decimal.NewFromInt(2))
}

// Spread is the yes-side bid/ask spread in cents.
func (o *OrderbookState) Spread() decimal.Decimal {
	if o == nil {
		return decimal.Zero
	}
	return o.YesAsk.Sub(o.YesBid)
}

// MarketState is one binary contract on the exchange.
type MarketState struct {
	Ticker       string
	MarketType   MarketType
	StrikeValue  *decimal.Decimal
	TeamSide     string // team/side tag parsed from the ticker, when applicable
	Orderbook    *OrderbookState
}

// LiveSportsState is a scoreboard snapshot for one game.
type LiveSportsState struct {
	Status        string
	Period        int
	TimeRemaining string // "MM:SS"
	HomeScore     int
	AwayScore     int
	LastUpdated   time.Time
}

// TotalScore is the combined score of both teams.
func (l *LiveSportsState) TotalScore() int {
	if l == nil {
		return 0
	}
	return l.HomeScore + l.AwayScore
}

// ScoreDifferential is home score minus away score.
func (l *LiveSportsState) ScoreDifferential() int {
	if l == nil {
		return 0
	}
	return l.HomeScore - l.AwayScore
}

// MinutesElapsed estimates elapsed game minutes assuming 12-minute periods
// (basketball convention, matching the NBA source this system was
// distilled from) — completed periods plus the remainder of the current one.
func (l *LiveSportsState) MinutesElapsed() decimal.Decimal {
	if l == nil {
		return decimal.Zero
	}
	completed := decimal.NewFromInt(int64(l.Period - 1)).Mul(decimal.NewFromInt(12))
	remaining := parseClockMinutes(l.TimeRemaining)
	return completed.Add(decimal.NewFromInt(12).Sub(remaining))
}

func parseClockMinutes(clock string) decimal.Decimal {
	var mm, ss int
	if _, err := fmt.Sscanf(clock, "%d:%d", &mm, &ss); err != nil {
		return decimal.Zero
	}
	return decimal.NewFromInt(int64(mm)).Add(decimal.NewFromInt(int64(ss)).Div(decimal.NewFromInt(60)))
}

// OddsQuote is one sportsbook's three-way line for a game. All fields are
// optional because vendors don't always quote every market.
type OddsQuote struct {
	Vendor          string
	HomeMoneyline   *int
	AwayMoneyline   *int
	SpreadValue     *decimal.Decimal
	SpreadHomeOdds  *int
	SpreadAwayOdds  *int
	TotalValue      *decimal.Decimal
	OverOdds        *int
	UnderOdds       *int
	LastUpdated     time.Time
}

// ConsensusOdds is the cross-vendor aggregate for a game.
type ConsensusOdds struct {
	NumSportsbooks        int
	HomeWinProbability    decimal.Decimal
	AwayWinProbability    decimal.Decimal
	SpreadLine            *decimal.Decimal
	SpreadHomeProbability *decimal.Decimal
	TotalLine             *decimal.Decimal
	OverProbability       *decimal.Decimal
	LastUpdated           time.Time
}

// GameState is the authoritative per-game aggregate, owned exclusively by
// the Aggregator. Callers outside the Aggregator must only ever hold a
// Snapshot, never this struct itself.
type GameState struct {
	GameID         string
	EventTicker    string
	HomeTeam       string
	AwayTeam       string
	ScheduledStart time.Time
	Phase          Phase
	IsActive       bool
	LastUpdated    time.Time

	Markets              map[string]*MarketState
	LiveSports           *LiveSportsState
	Odds                 map[string]*OddsQuote // vendor -> quote
	Consensus            *ConsensusOdds
	ImpliedProbabilities map[string]decimal.Decimal // ticker -> mid/100
}

// NewGameState constructs an empty GameState ready for the Aggregator's load
// protocol to populate.
func NewGameState(gameID, eventTicker, homeTeam, awayTeam string, scheduledStart time.Time) *GameState {
	return &GameState{
		GameID:               gameID,
		EventTicker:          eventTicker,
		HomeTeam:             homeTeam,
		AwayTeam:             awayTeam,
		ScheduledStart:       scheduledStart,
		Phase:                PhaseScheduled,
		Markets:              make(map[string]*MarketState),
		Odds:                 make(map[string]*OddsQuote),
		ImpliedProbabilities: make(map[string]decimal.Decimal),
	}
}

// Snapshot returns a deep copy safe to hand to a strategy or an HTTP
// handler without holding the Aggregator's lock. Strategies read this and
// must never mutate it.
func (g *GameState) Snapshot() *GameState {
	if g == nil {
		return nil
	}
	out := &GameState{
		GameID:         g.GameID,
		EventTicker:    g.EventTicker,
		HomeTeam:       g.HomeTeam,
		AwayTeam:       g.AwayTeam,
		ScheduledStart: g.ScheduledStart,
		Phase:          g.Phase,
		IsActive:       g.IsActive,
		LastUpdated:    g.LastUpdated,
		Markets:              make(map[string]*MarketState, len(g.Markets)),
		Odds:                 make(map[string]*OddsQuote, len(g.Odds)),
		ImpliedProbabilities: make(map[string]decimal.Decimal, len(g.ImpliedProbabilities)),
	}
	for k, v := range g.Markets {
		mv := *v
		if v.Orderbook != nil {
			ob := *v.Orderbook
			mv.Orderbook = &ob
		}
		if v.StrikeValue != nil {
			sv := *v.StrikeValue
			mv.StrikeValue = &sv
		}
		out.Markets[k] = &mv
	}
	for k, v := range g.Odds {
		qv := *v
		out.Odds[k] = &qv
	}
	for k, v := range g.ImpliedProbabilities {
		out.ImpliedProbabilities[k] = v
	}
	if g.LiveSports != nil {
		ls := *g.LiveSports
		out.LiveSports = &ls
	}
	if g.Consensus != nil {
		c := *g.Consensus
		out.Consensus = &c
	}
	return out
}

// TradeSignal is a strategy's output: an intent to trade a market, gated by
// the Risk Manager and carried out by the Execution Engine.
type TradeSignal struct {
	StrategyID   string
	StrategyName string
	MarketTicker string
	Side         Side
	Quantity     int
	Confidence   decimal.Decimal
	Reason       string
	Metadata     map[string]any
	Timestamp    time.Time
}

// OrderStatus is the lifecycle state of a simulated order.
type OrderStatus string

const (
	OrderPending   OrderStatus = "pending"
	OrderFilled    OrderStatus = "filled"
	OrderCancelled OrderStatus = "cancelled"
)

// OrderType is the order style. Market is the only type this design fills.
type OrderType string

const (
	OrderTypeMarket OrderType = "market"
)

// Order is a simulated order against the exchange.
type Order struct {
	ID           string
	StrategyID   string
	GameID       string
	MarketTicker string
	OrderType    OrderType
	Side         Side
	Quantity     int
	LimitPrice   *decimal.Decimal // unused in this design; Market only
	FilledPrice  *decimal.Decimal
	Status       OrderStatus
	PlacedAt     time.Time
	FilledAt     *time.Time
	RejectReason string
	SignalMeta   map[string]any
}

// Position is a per-(market_ticker, side) aggregate.
type Position struct {
	ID              string
	GameID          string
	MarketTicker    string
	Side            Side
	Quantity        int
	AvgEntryPrice   decimal.Decimal
	TotalCost       decimal.Decimal
	UnrealizedPnL   decimal.Decimal
	RealizedPnL     decimal.Decimal
	OpenedAt        time.Time
	UpdatedAt       time.Time
	ClosedAt        *time.Time
	IsOpen          bool
}

// PositionKey identifies a Position's natural key.
type PositionKey struct {
	MarketTicker string
	Side         Side
}
