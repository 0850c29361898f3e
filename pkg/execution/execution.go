// Package execution turns strategy signals into simulated fills, owns the
// in-memory position book, and tracks realized/unrealized P&L. Grounded on
// pkg/trader/paper/engine.go's Engine (order lifecycle, position
// update-with-PnL, account stats) and original_source/backend/engine/
// execution.py's execute_signal pipeline.
package execution

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/phenomenon0/kalshi-paper-trader/pkg/model"
)

// GameSource is the subset of pkg/aggregator.Aggregator the Engine reads
// loaded games and orderbooks from.
type GameSource interface {
	GetGameState(gameID string) *model.GameState
}

// RiskChecker is the subset of pkg/risk.Manager the Engine gates orders
// through and reports fills/PnL/closes back to.
type RiskChecker interface {
	CheckOrder(order *model.Order) CheckResult
	RecordOrder(order *model.Order, fillPrice decimal.Decimal)
	RecordPnL(pnl decimal.Decimal)
	RecordPositionClose(marketTicker, gameID string, quantity int)
}

// CheckResult mirrors pkg/risk.CheckResult's shape, decoupled so this
// package doesn't import pkg/risk directly.
type CheckResult struct {
	Approved bool
	Reason   string
}

// Store is the durable-record dependency orders and positions are
// persisted to. Persistence failures are logged, never fatal: the
// in-memory state is authoritative at runtime (spec.md §4.5).
type Store interface {
	SaveOrder(ctx context.Context, order *model.Order) error
	UpsertPosition(ctx context.Context, position *model.Position) error
}

// Callback is invoked after every execute_signal attempt, success or
// failure.
type Callback func(order *model.Order, result Result)

// Result is execute_signal's outcome.
type Result struct {
	Success bool
	Order   *model.Order
	Reason  string
}

// Config tunes local (non-Risk-Manager) validation limits.
type Config struct {
	MaxDailyOrders  int
	MaxPositionSize int
}

// DefaultConfig matches original_source's defaults.
func DefaultConfig() Config {
	return Config{MaxDailyOrders: 200, MaxPositionSize: 100}
}

// PortfolioSummary aggregates open-position exposure and PnL.
type PortfolioSummary struct {
	OpenPositions     int
	TotalExposure     decimal.Decimal
	TotalUnrealizedPnL decimal.Decimal
	TotalRealizedPnL  decimal.Decimal
}

// Stats summarizes historical order/fill performance.
type Stats struct {
	TotalOrders     int
	FilledOrders    int
	RejectedOrders  int
	TotalRealizedPnL decimal.Decimal
	WinningTrades   int
	LosingTrades    int
}

// Engine owns pending orders and the in-memory position book.
type Engine struct {
	cfg    Config
	log    zerolog.Logger
	source GameSource
	risk   RiskChecker
	store  Store

	mu               sync.RWMutex
	positions        map[model.PositionKey]*model.Position
	orders           []*model.Order
	dailyOrderCount  int
	lastOrderReset   time.Time

	callbacksMu sync.Mutex
	callbacks   []Callback
}

// New builds an Engine.
func New(cfg Config, source GameSource, risk RiskChecker, store Store, log zerolog.Logger) *Engine {
	return &Engine{
		cfg:            cfg,
		log:            log.With().Str("component", "execution").Logger(),
		source:         source,
		risk:           risk,
		store:          store,
		positions:      make(map[model.PositionKey]*model.Position),
		lastOrderReset: time.Now(),
	}
}

// AddExecutionCallback registers a callback invoked after every
// ExecuteSignal attempt.
func (e *Engine) AddExecutionCallback(cb Callback) {
	e.callbacksMu.Lock()
	defer e.callbacksMu.Unlock()
	e.callbacks = append(e.callbacks, cb)
}

func (e *Engine) notify(order *model.Order, result Result) {
	e.callbacksMu.Lock()
	callbacks := append([]Callback(nil), e.callbacks...)
	e.callbacksMu.Unlock()

	for _, cb := range callbacks {
		func() {
			defer func() {
				if r := recover(); r != nil {
					e.log.Error().Interface("panic", r).Msg("execution callback panicked")
				}
			}()
			cb(order, result)
		}()
	}
}

// ExecuteSignal runs the full execute_signal pipeline: risk check, local
// validation, price discovery, fill, position update, persist, notify.
func (e *Engine) ExecuteSignal(ctx context.Context, signal model.TradeSignal, gameID string) Result {
	e.mu.Lock()
	e.resetDailyCountLocked()
	e.mu.Unlock()

	order := &model.Order{
		ID:           uuid.New().String(),
		StrategyID:   signal.StrategyID,
		GameID:       gameID,
		MarketTicker: signal.MarketTicker,
		OrderType:    model.OrderTypeMarket,
		Side:         signal.Side,
		Quantity:     signal.Quantity,
		Status:       model.OrderPending,
		PlacedAt:     time.Now(),
		SignalMeta:   signal.Metadata,
	}

	if result := e.risk.CheckOrder(order); !result.Approved {
		return e.reject(ctx, order, result.Reason)
	}

	if reason, ok := e.validateLocal(order); !ok {
		return e.reject(ctx, order, reason)
	}

	game := e.source.GetGameState(gameID)
	if game == nil {
		return e.reject(ctx, order, "game not loaded in aggregator")
	}
	market, ok := game.Markets[order.MarketTicker]
	if !ok {
		return e.reject(ctx, order, "market not found in game")
	}

	fillPrice, ok := e.priceDiscovery(market, order.Side)
	if !ok {
		return e.reject(ctx, order, "no price available for market")
	}

	now := time.Now()
	order.Status = model.OrderFilled
	order.FilledPrice = &fillPrice
	order.FilledAt = &now
	e.risk.RecordOrder(order, fillPrice)

	e.mu.Lock()
	e.updatePositionLocked(order, fillPrice)
	e.orders = append(e.orders, order)
	e.dailyOrderCount++
	e.mu.Unlock()

	if err := e.store.SaveOrder(ctx, order); err != nil {
		e.log.Error().Err(err).Str("order_id", order.ID).Msg("failed to persist filled order")
	}
	if pos := e.GetPosition(order.MarketTicker, order.Side); pos != nil {
		if err := e.store.UpsertPosition(ctx, pos); err != nil {
			e.log.Error().Err(err).Str("market_ticker", order.MarketTicker).Msg("failed to persist position")
		}
	}

	result := Result{Success: true, Order: order}
	e.notify(order, result)
	return result
}

// ExecuteSignals runs ExecuteSignal for each signal in order, continuing
// past individual failures.
func (e *Engine) ExecuteSignals(ctx context.Context, signals []model.TradeSignal, gameID string) []Result {
	results := make([]Result, 0, len(signals))
	for _, sig := range signals {
		results = append(results, e.ExecuteSignal(ctx, sig, gameID))
	}
	return results
}

func (e *Engine) reject(ctx context.Context, order *model.Order, reason string) Result {
	order.Status = model.OrderCancelled
	order.RejectReason = reason
	e.mu.Lock()
	e.orders = append(e.orders, order)
	e.mu.Unlock()
	if err := e.store.SaveOrder(ctx, order); err != nil {
		e.log.Error().Err(err).Str("order_id", order.ID).Msg("failed to persist rejected order")
	}
	result := Result{Success: false, Order: order, Reason: reason}
	e.notify(order, result)
	return result
}

func (e *Engine) resetDailyCountLocked() {
	now := time.Now()
	if now.YearDay() != e.lastOrderReset.YearDay() || now.Year() != e.lastOrderReset.Year() {
		e.dailyOrderCount = 0
		e.lastOrderReset = now
	}
}

func (e *Engine) validateLocal(order *model.Order) (string, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	if e.dailyOrderCount >= e.cfg.MaxDailyOrders {
		return "daily order cap reached", false
	}

	existing := e.positions[model.PositionKey{MarketTicker: order.MarketTicker, Side: order.Side}]
	projected := order.Quantity
	if existing != nil {
		projected += existing.Quantity
	}
	if projected > e.cfg.MaxPositionSize {
		return "per-market position cap reached", false
	}
	return "", true
}

func (e *Engine) priceDiscovery(market *model.MarketState, side model.Side) (decimal.Decimal, bool) {
	if market.Orderbook == nil {
		return decimal.Zero, false
	}
	var price decimal.Decimal
	if side == model.SideYes {
		price = market.Orderbook.YesAsk
	} else {
		price = market.Orderbook.NoAsk
	}
	if price.LessThanOrEqual(decimal.Zero) {
		return decimal.Zero, false
	}
	return price, true
}

// updatePositionLocked applies spec.md §4.5 step 6: same-side orders
// average into the existing position; an opposite-side order opens or
// updates its own position keyed by (ticker, side). Positions on the two
// sides of one market are never netted against each other.
func (e *Engine) updatePositionLocked(order *model.Order, fillPrice decimal.Decimal) {
	key := model.PositionKey{MarketTicker: order.MarketTicker, Side: order.Side}
	pos, exists := e.positions[key]
	if !exists {
		e.positions[key] = &model.Position{
			ID:            uuid.New().String(),
			GameID:        order.GameID,
			MarketTicker:  order.MarketTicker,
			Side:          order.Side,
			Quantity:      order.Quantity,
			AvgEntryPrice: fillPrice,
			TotalCost:     fillPrice.Mul(decimal.NewFromInt(int64(order.Quantity))),
			OpenedAt:      time.Now(),
			UpdatedAt:     time.Now(),
			IsOpen:        true,
		}
		return
	}

	pos.TotalCost = pos.TotalCost.Add(fillPrice.Mul(decimal.NewFromInt(int64(order.Quantity))))
	pos.Quantity += order.Quantity
	pos.AvgEntryPrice = pos.TotalCost.Div(decimal.NewFromInt(int64(pos.Quantity)))
	pos.UpdatedAt = time.Now()
}

// GetPosition returns the position for (ticker, side), or nil.
func (e *Engine) GetPosition(ticker string, side model.Side) *model.Position {
	e.mu.RLock()
	defer e.mu.RUnlock()
	pos, ok := e.positions[model.PositionKey{MarketTicker: ticker, Side: side}]
	if !ok {
		return nil
	}
	cp := *pos
	return &cp
}

// GetAllPositions returns every tracked position, open or closed.
func (e *Engine) GetAllPositions() []*model.Position {
	e.mu.RLock()
	defer e.mu.RUnlock()
	out := make([]*model.Position, 0, len(e.positions))
	for _, p := range e.positions {
		cp := *p
		out = append(out, &cp)
	}
	return out
}

// GetOpenPositions returns only positions with IsOpen = true.
func (e *Engine) GetOpenPositions() []*model.Position {
	all := e.GetAllPositions()
	out := make([]*model.Position, 0, len(all))
	for _, p := range all {
		if p.IsOpen {
			out = append(out, p)
		}
	}
	return out
}

// UpdateUnrealizedPnL refreshes every open position's mark against its
// owning game's current orderbook mid price.
func (e *Engine) UpdateUnrealizedPnL(ctx context.Context) {
	e.mu.Lock()
	defer e.mu.Unlock()

	for _, pos := range e.positions {
		if !pos.IsOpen {
			continue
		}
		game := e.source.GetGameState(pos.GameID)
		if game == nil {
			continue
		}
		market, ok := game.Markets[pos.MarketTicker]
		if !ok || market.Orderbook == nil {
			continue
		}
		mid := market.Orderbook.MidPrice()
		qty := decimal.NewFromInt(int64(pos.Quantity))
		pos.UnrealizedPnL = mid.Mul(qty).Sub(pos.TotalCost)
		pos.UpdatedAt = time.Now()

		if err := e.store.UpsertPosition(ctx, pos); err != nil {
			e.log.Error().Err(err).Str("market_ticker", pos.MarketTicker).Msg("failed to persist mark-to-market")
		}
	}
}

// ClosePosition closes a position at exitPrice, or at the owning game's
// current bid if exitPrice is nil.
func (e *Engine) ClosePosition(ctx context.Context, ticker string, side model.Side, exitPrice *decimal.Decimal) (*model.Position, error) {
	e.mu.Lock()
	pos, ok := e.positions[model.PositionKey{MarketTicker: ticker, Side: side}]
	if !ok || !pos.IsOpen {
		e.mu.Unlock()
		return nil, fmt.Errorf("no open position for %s/%s", ticker, side)
	}

	exit := decimal.Zero
	if exitPrice != nil {
		exit = *exitPrice
	} else {
		game := e.source.GetGameState(pos.GameID)
		if game == nil {
			e.mu.Unlock()
			return nil, fmt.Errorf("game %s not loaded, cannot discover exit price", pos.GameID)
		}
		market, ok := game.Markets[ticker]
		if !ok || market.Orderbook == nil {
			e.mu.Unlock()
			return nil, fmt.Errorf("no orderbook for %s, cannot discover exit price", ticker)
		}
		if side == model.SideYes {
			exit = market.Orderbook.YesBid
		} else {
			exit = market.Orderbook.NoBid
		}
	}

	qty := decimal.NewFromInt(int64(pos.Quantity))
	var pnl decimal.Decimal
	if side == model.SideYes {
		pnl = exit.Sub(pos.AvgEntryPrice).Mul(qty)
	} else {
		pnl = pos.AvgEntryPrice.Sub(exit).Mul(qty)
	}
	pos.RealizedPnL = pos.RealizedPnL.Add(pnl)

	closedQty := pos.Quantity
	now := time.Now()
	pos.Quantity = 0
	pos.IsOpen = false
	pos.ClosedAt = &now
	pos.UpdatedAt = now
	closed := *pos
	e.mu.Unlock()

	e.risk.RecordPnL(pnl)
	e.risk.RecordPositionClose(ticker, pos.GameID, closedQty)

	if err := e.store.UpsertPosition(ctx, &closed); err != nil {
		e.log.Error().Err(err).Str("market_ticker", ticker).Msg("failed to persist closed position")
	}
	return &closed, nil
}

// SettlePosition settles a position at expiry. outcome is true if the
// market resolved Yes.
func (e *Engine) SettlePosition(ctx context.Context, ticker string, side model.Side, outcome bool) (*model.Position, error) {
	e.mu.Lock()
	pos, ok := e.positions[model.PositionKey{MarketTicker: ticker, Side: side}]
	if !ok || !pos.IsOpen {
		e.mu.Unlock()
		return nil, fmt.Errorf("no open position for %s/%s", ticker, side)
	}

	settlement := decimal.NewFromInt(100)
	if !outcome {
		settlement = decimal.Zero
	}

	qty := decimal.NewFromInt(int64(pos.Quantity))
	var finalValue decimal.Decimal
	if side == model.SideYes {
		finalValue = settlement.Mul(qty)
	} else {
		finalValue = decimal.NewFromInt(100).Sub(settlement).Mul(qty)
	}
	pnl := finalValue.Sub(pos.TotalCost)
	pos.RealizedPnL = pos.RealizedPnL.Add(pnl)

	closedQty := pos.Quantity
	now := time.Now()
	pos.Quantity = 0
	pos.IsOpen = false
	pos.ClosedAt = &now
	pos.UpdatedAt = now
	closed := *pos
	e.mu.Unlock()

	e.risk.RecordPnL(pnl)
	e.risk.RecordPositionClose(ticker, pos.GameID, closedQty)

	if err := e.store.UpsertPosition(ctx, &closed); err != nil {
		e.log.Error().Err(err).Str("market_ticker", ticker).Msg("failed to persist settled position")
	}
	return &closed, nil
}

// GetPortfolioSummary aggregates open-position exposure and PnL.
func (e *Engine) GetPortfolioSummary() PortfolioSummary {
	e.mu.RLock()
	defer e.mu.RUnlock()

	var summary PortfolioSummary
	for _, pos := range e.positions {
		summary.TotalRealizedPnL = summary.TotalRealizedPnL.Add(pos.RealizedPnL)
		if !pos.IsOpen {
			continue
		}
		summary.OpenPositions++
		summary.TotalExposure = summary.TotalExposure.Add(pos.TotalCost)
		summary.TotalUnrealizedPnL = summary.TotalUnrealizedPnL.Add(pos.UnrealizedPnL)
	}
	return summary
}

// GetStats computes historical order/fill performance.
func (e *Engine) GetStats() Stats {
	e.mu.RLock()
	defer e.mu.RUnlock()

	var stats Stats
	for _, o := range e.orders {
		stats.TotalOrders++
		if o.Status == model.OrderFilled {
			stats.FilledOrders++
		}
	}
	for _, r := range e.orders {
		if r.Status == model.OrderCancelled {
			stats.RejectedOrders++
		}
	}
	for _, pos := range e.positions {
		stats.TotalRealizedPnL = stats.TotalRealizedPnL.Add(pos.RealizedPnL)
		if pos.RealizedPnL.GreaterThan(decimal.Zero) {
			stats.WinningTrades++
		} else if pos.RealizedPnL.LessThan(decimal.Zero) {
			stats.LosingTrades++
		}
	}
	return stats
}
