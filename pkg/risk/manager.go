package risk

import (
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/sony/gobreaker"

	"github.com/phenomenon0/kalshi-paper-trader/pkg/model"
)

// errLossTrade is the sentinel gobreaker counts as a "failure" when
// RecordPnL reports a losing trade.
var errLossTrade = errors.New("losing trade")

// CheckResult is the outcome of CheckOrder: why an order was approved or
// rejected, and which limit (if any) it tripped.
type CheckResult struct {
	Approved     bool
	Reason       string
	LimitType    LimitType
	CurrentValue decimal.Decimal
	LimitValue   decimal.Decimal
}

func approved(reason string) CheckResult { return CheckResult{Approved: true, Reason: reason} }

func rejected(limitType LimitType, reason string, current, limit decimal.Decimal) CheckResult {
	return CheckResult{Approved: false, Reason: reason, LimitType: limitType, CurrentValue: current, LimitValue: limit}
}

// Status summarizes the Manager's current counters, for the control
// surface's risk-status endpoint.
type Status struct {
	Enabled           bool
	DailyLoss         decimal.Decimal
	WeeklyLoss        decimal.Decimal
	ConsecutiveLosses int
	CooldownActive    bool
	CooldownUntil     *time.Time
	OrdersToday       int
	OrdersThisHour    int
	TotalExposure     decimal.Decimal
	TotalContracts    int
	Limits            Limits
}

// Manager validates orders against Limits and tracks the running state
// (daily/weekly loss, per-market/game/strategy exposure and contract
// counts, order-rate counters, loss-streak cooldown) those checks read.
// Grounded on backend/engine/risk_manager.py's RiskManager, restructured
// into the fixed-order CheckOrder pipeline spec.md §4.1 names.
type Manager struct {
	mu      sync.Mutex
	log     zerolog.Logger
	limits  Limits
	enabled bool

	dailyLoss  decimal.Decimal
	weeklyLoss decimal.Decimal

	hourlyOrders []time.Time
	dailyOrders  []time.Time

	lossStreak         *gobreaker.CircuitBreaker
	lossStreakSettings gobreaker.Settings
	cooldownUntil      *time.Time

	exposureByGame     map[string]decimal.Decimal
	exposureByStrategy map[string]decimal.Decimal
	contractsByMarket  map[string]int
	contractsByGame    map[string]int

	lastDailyReset  time.Time
	lastWeeklyReset time.Time
}

// NewManager builds a Manager with the given limits (DefaultLimits() if the
// caller has no customization) and risk management enabled.
func NewManager(limits Limits, log zerolog.Logger) *Manager {
	now := time.Now()
	m := &Manager{
		log:                log.With().Str("component", "risk").Logger(),
		limits:             limits,
		enabled:            true,
		dailyLoss:          decimal.Zero,
		weeklyLoss:         decimal.Zero,
		exposureByGame:     make(map[string]decimal.Decimal),
		exposureByStrategy: make(map[string]decimal.Decimal),
		contractsByMarket:  make(map[string]int),
		contractsByGame:    make(map[string]int),
		lastDailyReset:     now,
		lastWeeklyReset:    weekStart(now),
	}
	m.lossStreakSettings = gobreaker.Settings{
		Name:        "loss_streak",
		MaxRequests: 1,
		Timeout:     5 * time.Minute,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= uint32(m.limits.LossStreakCooldown)
		},
		OnStateChange: func(_ string, _, to gobreaker.State) {
			if to == gobreaker.StateOpen {
				until := time.Now().Add(5 * time.Minute)
				m.cooldownUntil = &until
				m.log.Warn().Time("cooldown_until", until).Msg("loss streak cooldown triggered")
			} else if to == gobreaker.StateClosed {
				m.cooldownUntil = nil
			}
		},
	}
	m.lossStreak = gobreaker.NewCircuitBreaker(m.lossStreakSettings)
	return m
}

// CheckOrder runs every risk check in the fixed order spec.md §4.1
// specifies (position limits, loss limits, exposure limits, trading-rate
// limits, per-trade risk) and returns the first failure, or an approval.
func (m *Manager) CheckOrder(order *model.Order) CheckResult {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.enabled {
		return approved("risk management disabled")
	}

	m.checkResetsLocked()

	if m.lossStreak.State() == gobreaker.StateOpen {
		counts := m.lossStreak.Counts()
		remaining := "unknown"
		if m.cooldownUntil != nil {
			remaining = time.Until(*m.cooldownUntil).Round(time.Second).String()
		}
		return rejected(LimitLossStreakCooldown,
			"in cooldown after consecutive losses, "+remaining+" remaining",
			decimal.NewFromInt(int64(counts.ConsecutiveFailures)), decimal.NewFromInt(int64(m.limits.LossStreakCooldown)))
	}

	checks := []func(*model.Order) CheckResult{
		m.checkPositionLimitsLocked,
		m.checkLossLimitsLocked,
		m.checkExposureLimitsLocked,
		m.checkTradingLimitsLocked,
		m.checkPerTradeRiskLocked,
	}
	for _, check := range checks {
		result := check(order)
		if !result.Approved {
			m.log.Warn().Str("reason", result.Reason).Str("limit_type", string(result.LimitType)).Msg("risk check failed")
			return result
		}
	}
	return approved("all risk checks passed")
}

func (m *Manager) checkPositionLimitsLocked(order *model.Order) CheckResult {
	newMarketTotal := m.contractsByMarket[order.MarketTicker] + order.Quantity
	if newMarketTotal > m.limits.MaxContractsPerMarket {
		return rejected(LimitMaxContractsPerMarket, "would exceed max contracts per market",
			decimal.NewFromInt(int64(m.contractsByMarket[order.MarketTicker])), decimal.NewFromInt(int64(m.limits.MaxContractsPerMarket)))
	}

	newGameTotal := m.contractsByGame[order.GameID] + order.Quantity
	if newGameTotal > m.limits.MaxContractsPerGame {
		return rejected(LimitMaxContractsPerGame, "would exceed max contracts per game",
			decimal.NewFromInt(int64(m.contractsByGame[order.GameID])), decimal.NewFromInt(int64(m.limits.MaxContractsPerGame)))
	}

	totalContracts := order.Quantity
	for _, n := range m.contractsByMarket {
		totalContracts += n
	}
	if totalContracts > m.limits.MaxTotalContracts {
		return rejected(LimitMaxTotalContracts, "would exceed max total contracts",
			decimal.NewFromInt(int64(totalContracts-order.Quantity)), decimal.NewFromInt(int64(m.limits.MaxTotalContracts)))
	}
	return approved("")
}

func (m *Manager) checkLossLimitsLocked(_ *model.Order) CheckResult {
	if m.dailyLoss.GreaterThanOrEqual(m.limits.MaxDailyLoss) {
		return rejected(LimitMaxDailyLoss, "daily loss limit reached", m.dailyLoss, m.limits.MaxDailyLoss)
	}
	if m.weeklyLoss.GreaterThanOrEqual(m.limits.MaxWeeklyLoss) {
		return rejected(LimitMaxWeeklyLoss, "weekly loss limit reached", m.weeklyLoss, m.limits.MaxWeeklyLoss)
	}
	return approved("")
}

func (m *Manager) checkExposureLimitsLocked(order *model.Order) CheckResult {
	estimatedCost := decimal.NewFromInt(int64(order.Quantity)).Mul(decimal.NewFromInt(100))

	totalExposure := decimal.Zero
	for _, v := range m.exposureByGame {
		totalExposure = totalExposure.Add(v)
	}
	newTotal := totalExposure.Add(estimatedCost)
	if newTotal.GreaterThan(m.limits.MaxTotalExposure) {
		return rejected(LimitMaxTotalExposure, "would exceed max total exposure", totalExposure, m.limits.MaxTotalExposure)
	}

	gameExposure := m.exposureByGame[order.GameID]
	newGameExposure := gameExposure.Add(estimatedCost)
	if newGameExposure.GreaterThan(m.limits.MaxExposurePerGame) {
		return rejected(LimitMaxExposurePerGame, "would exceed max exposure per game", gameExposure, m.limits.MaxExposurePerGame)
	}

	if order.StrategyID != "" {
		stratExposure := m.exposureByStrategy[order.StrategyID]
		newStratExposure := stratExposure.Add(estimatedCost)
		if newStratExposure.GreaterThan(m.limits.MaxExposurePerStrat) {
			return rejected(LimitMaxExposurePerStrat, "would exceed max exposure per strategy", stratExposure, m.limits.MaxExposurePerStrat)
		}
	}
	return approved("")
}

func (m *Manager) checkTradingLimitsLocked(_ *model.Order) CheckResult {
	now := time.Now()
	hourAgo := now.Add(-time.Hour)
	recentHourly := m.hourlyOrders[:0:0]
	for _, t := range m.hourlyOrders {
		if t.After(hourAgo) {
			recentHourly = append(recentHourly, t)
		}
	}
	m.hourlyOrders = recentHourly

	if len(m.hourlyOrders) >= m.limits.MaxOrdersPerHour {
		return rejected(LimitMaxOrdersPerHour, "hourly order limit reached",
			decimal.NewFromInt(int64(len(m.hourlyOrders))), decimal.NewFromInt(int64(m.limits.MaxOrdersPerHour)))
	}
	if len(m.dailyOrders) >= m.limits.MaxOrdersPerDay {
		return rejected(LimitMaxOrdersPerDay, "daily order limit reached",
			decimal.NewFromInt(int64(len(m.dailyOrders))), decimal.NewFromInt(int64(m.limits.MaxOrdersPerDay)))
	}
	return approved("")
}

func (m *Manager) checkPerTradeRiskLocked(order *model.Order) CheckResult {
	maxTradeRisk := decimal.NewFromInt(int64(order.Quantity)).Mul(decimal.NewFromInt(100))
	if maxTradeRisk.GreaterThan(m.limits.MaxPerTradeRisk) {
		return rejected(LimitMaxPerTradeRisk, "per-trade risk too high", maxTradeRisk, m.limits.MaxPerTradeRisk)
	}
	return approved("")
}

// RecordOrder updates order-rate counters and position/exposure tracking
// after an order is accepted and filled.
func (m *Manager) RecordOrder(order *model.Order, fillPrice decimal.Decimal) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now()
	m.hourlyOrders = append(m.hourlyOrders, now)
	m.dailyOrders = append(m.dailyOrders, now)

	m.contractsByMarket[order.MarketTicker] += order.Quantity
	m.contractsByGame[order.GameID] += order.Quantity

	orderCost := fillPrice.Mul(decimal.NewFromInt(int64(order.Quantity)))
	m.exposureByGame[order.GameID] = m.exposureByGame[order.GameID].Add(orderCost)
	if order.StrategyID != "" {
		m.exposureByStrategy[order.StrategyID] = m.exposureByStrategy[order.StrategyID].Add(orderCost)
	}
}

// RecordPnL updates the daily/weekly loss counters and the loss-streak
// cooldown from a closed position's realized P&L. A loss extends the
// streak and, once it reaches LossStreakCooldown, opens a 5-minute
// cooldown window; a win (or flat) resets the streak.
func (m *Manager) RecordPnL(pnl decimal.Decimal) {
	m.mu.Lock()
	defer m.mu.Unlock()

	isLoss := pnl.LessThan(decimal.Zero)
	if isLoss {
		loss := pnl.Abs()
		m.dailyLoss = m.dailyLoss.Add(loss)
		m.weeklyLoss = m.weeklyLoss.Add(loss)
	}

	_, _ = m.lossStreak.Execute(func() (any, error) {
		if isLoss {
			return nil, errLossTrade
		}
		return nil, nil
	})
}

// RecordPositionClose reduces the contract counts held against a market and
// game when a position is closed.
func (m *Manager) RecordPositionClose(marketTicker, gameID string, quantity int) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if n, ok := m.contractsByMarket[marketTicker]; ok {
		m.contractsByMarket[marketTicker] = max0(n - quantity)
	}
	if n, ok := m.contractsByGame[gameID]; ok {
		m.contractsByGame[gameID] = max0(n - quantity)
	}
}

// SetLimit updates a single limit value; value is interpreted per
// LimitType (contract counts are truncated to int).
func (m *Manager) SetLimit(limitType LimitType, value decimal.Decimal) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.setLimitLocked(limitType, value)
}

func (m *Manager) setLimitLocked(limitType LimitType, value decimal.Decimal) {
	intVal := int(value.IntPart())
	switch limitType {
	case LimitMaxContractsPerMarket:
		m.limits.MaxContractsPerMarket = intVal
	case LimitMaxContractsPerGame:
		m.limits.MaxContractsPerGame = intVal
	case LimitMaxTotalContracts:
		m.limits.MaxTotalContracts = intVal
	case LimitMaxDailyLoss:
		m.limits.MaxDailyLoss = value
	case LimitMaxWeeklyLoss:
		m.limits.MaxWeeklyLoss = value
	case LimitMaxPerTradeRisk:
		m.limits.MaxPerTradeRisk = value
	case LimitMaxTotalExposure:
		m.limits.MaxTotalExposure = value
	case LimitMaxExposurePerGame:
		m.limits.MaxExposurePerGame = value
	case LimitMaxExposurePerStrat:
		m.limits.MaxExposurePerStrat = value
	case LimitMaxOrdersPerDay:
		m.limits.MaxOrdersPerDay = intVal
	case LimitMaxOrdersPerHour:
		m.limits.MaxOrdersPerHour = intVal
	case LimitLossStreakCooldown:
		m.limits.LossStreakCooldown = intVal
	}
}

// Limits returns a copy of the current limit set.
func (m *Manager) Limits() Limits {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.limits
}

// Enable turns risk management back on.
func (m *Manager) Enable() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.enabled = true
}

// Disable turns off all risk checks; CheckOrder then always approves. Use
// with caution — only the control surface's explicit admin endpoint should
// call this.
func (m *Manager) Disable() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.enabled = false
	m.log.Warn().Msg("risk management disabled")
}

// IsEnabled reports whether risk checks currently run.
func (m *Manager) IsEnabled() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.enabled
}

// GetStatus returns a snapshot of the Manager's counters and limits.
func (m *Manager) GetStatus() Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.checkResetsLocked()

	totalExposure := decimal.Zero
	for _, v := range m.exposureByGame {
		totalExposure = totalExposure.Add(v)
	}
	totalContracts := 0
	for _, n := range m.contractsByMarket {
		totalContracts += n
	}

	hourAgo := time.Now().Add(-time.Hour)
	ordersThisHour := 0
	for _, t := range m.hourlyOrders {
		if t.After(hourAgo) {
			ordersThisHour++
		}
	}

	return Status{
		Enabled:           m.enabled,
		DailyLoss:         m.dailyLoss,
		WeeklyLoss:        m.weeklyLoss,
		ConsecutiveLosses: int(m.lossStreak.Counts().ConsecutiveFailures),
		CooldownActive:    m.lossStreak.State() == gobreaker.StateOpen,
		CooldownUntil:     m.cooldownUntil,
		OrdersToday:       len(m.dailyOrders),
		OrdersThisHour:    ordersThisHour,
		TotalExposure:     totalExposure,
		TotalContracts:    totalContracts,
		Limits:            m.limits,
	}
}

// ResetAll clears every tracked counter (for test setup, or an explicit
// admin reset).
func (m *Manager) ResetAll() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.dailyLoss = decimal.Zero
	m.weeklyLoss = decimal.Zero
	m.hourlyOrders = nil
	m.dailyOrders = nil
	m.cooldownUntil = nil
	m.lossStreak = gobreaker.NewCircuitBreaker(m.lossStreakSettings)
	m.exposureByGame = make(map[string]decimal.Decimal)
	m.exposureByStrategy = make(map[string]decimal.Decimal)
	m.contractsByMarket = make(map[string]int)
	m.contractsByGame = make(map[string]int)
}

func (m *Manager) checkResetsLocked() {
	now := time.Now()
	today := truncateDay(now)

	if today.After(truncateDay(m.lastDailyReset)) {
		m.dailyLoss = decimal.Zero
		m.dailyOrders = nil
		m.lastDailyReset = now
	}

	thisWeekStart := weekStart(now)
	if thisWeekStart.After(m.lastWeeklyReset) {
		m.weeklyLoss = decimal.Zero
		m.lastWeeklyReset = thisWeekStart
	}
}

func truncateDay(t time.Time) time.Time {
	y, mo, d := t.Date()
	return time.Date(y, mo, d, 0, 0, 0, 0, t.Location())
}

// weekStart returns the Monday 00:00 that starts t's ISO week.
func weekStart(t time.Time) time.Time {
	day := truncateDay(t)
	weekday := int(day.Weekday())
	if weekday == 0 {
		weekday = 7 // Sunday as end of week, not start
	}
	daysSinceMonday := weekday - 1
	return day.AddDate(0, 0, -daysSinceMonday)
}

func max0(n int) int {
	if n < 0 {
		return 0
	}
	return n
}
