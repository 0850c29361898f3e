// Package strategy implements the Strategy Engine: pluggable algorithms
// that read a read-only GameState snapshot and emit TradeSignals, gated by
// a shared cooldown/history helper and run on a background evaluation loop.
// Grounded on pkg/trader/orchestrator/orchestrator.go's background-loop
// shape and pkg/polymarket/sportsbridge/signaler.go's iterate-score-collect
// pattern; the five algorithms are ported from
// original_source/backend/strategies/{sharp_line,momentum,ev_multibook,
// mean_reversion,correlation}.py.
package strategy

import (
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/phenomenon0/kalshi-paper-trader/pkg/model"
)

// Strategy is the capability every trading algorithm exposes to the
// Engine. Implementations must be pure over the snapshot passed to
// Evaluate plus their own private history — they must never mutate the
// GameState.
type Strategy interface {
	ID() string
	Name() string
	Type() string
	Description() string
	DefaultConfig() any
	IsEnabled() bool
	Enable()
	Disable()
	UpdateConfig(cfg any) error
	Evaluate(game *model.GameState) []model.TradeSignal
}

// Base is the cooldown-tracking and bounded-history helper every concrete
// strategy embeds. check_cooldown/record_trade mirror
// original_source/backend/strategies/base.py's usage across all five
// strategies; maxHistory matches spec.md's "bounded (last 100)".
type Base struct {
	id      string
	enabled bool

	mu        sync.RWMutex
	lastTrade map[string]time.Time
	history   []model.TradeSignal
}

const maxSignalHistory = 100

func newBase(id string) Base {
	return Base{
		id:        id,
		lastTrade: make(map[string]time.Time),
	}
}

// ID returns this strategy instance's id.
func (b *Base) ID() string { return b.id }

// IsEnabled reports whether the strategy currently evaluates.
func (b *Base) IsEnabled() bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.enabled
}

// Enable turns the strategy on.
func (b *Base) Enable() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.enabled = true
}

// Disable turns the strategy off; Evaluate should short-circuit when
// !IsEnabled().
func (b *Base) Disable() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.enabled = false
}

// checkCooldown reports whether ticker is clear to trade again, given
// cooldown. A ticker never traded is always clear.
func (b *Base) checkCooldown(ticker string, cooldown time.Duration) bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	last, ok := b.lastTrade[ticker]
	if !ok {
		return true
	}
	return time.Since(last) >= cooldown
}

// recordTrade stamps ticker's last-trade time to now, for future
// checkCooldown calls.
func (b *Base) recordTrade(ticker string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.lastTrade[ticker] = time.Now()
}

// recordSignal appends to the bounded signal history, dropping the oldest
// entry once it exceeds maxSignalHistory.
func (b *Base) recordSignal(sig model.TradeSignal) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.history = append(b.history, sig)
	if len(b.history) > maxSignalHistory {
		b.history = b.history[len(b.history)-maxSignalHistory:]
	}
}

// History returns a copy of the recorded signal history, oldest first.
func (b *Base) History() []model.TradeSignal {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]model.TradeSignal, len(b.history))
	copy(out, b.history)
	return out
}

// clampConfidence bounds a confidence score to [0,1], matching every
// strategy's min(x, 1.0) pattern in the Python source.
func clampConfidence(v decimal.Decimal) decimal.Decimal {
	if v.GreaterThan(decimal.NewFromInt(1)) {
		return decimal.NewFromInt(1)
	}
	if v.LessThan(decimal.Zero) {
		return decimal.Zero
	}
	return v
}

func containsMarketType(types []model.MarketType, t model.MarketType) bool {
	for _, mt := range types {
		if mt == t {
			return true
		}
	}
	return false
}
