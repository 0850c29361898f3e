package risk

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phenomenon0/kalshi-paper-trader/pkg/model"
)

func order(quantity int) *model.Order {
	return &model.Order{
		GameID:       "g1",
		MarketTicker: "T1",
		StrategyID:   "sharp_line",
		Quantity:     quantity,
	}
}

func TestCheckOrderApprovesWithinLimits(t *testing.T) {
	m := NewManager(DefaultLimits(), zerolog.Nop())
	result := m.CheckOrder(order(10))
	assert.True(t, result.Approved)
}

func TestCheckOrderRejectsMaxContractsPerMarket(t *testing.T) {
	limits := DefaultLimits()
	limits.MaxContractsPerMarket = 5
	m := NewManager(limits, zerolog.Nop())

	result := m.CheckOrder(order(10))
	require.False(t, result.Approved)
	assert.Equal(t, LimitMaxContractsPerMarket, result.LimitType)
}

func TestCheckOrderRejectsPerTradeRiskWhenOtherChecksPass(t *testing.T) {
	limits := DefaultLimits()
	limits.MaxPerTradeRisk = decimal.NewFromInt(1)
	m := NewManager(limits, zerolog.Nop())

	result := m.CheckOrder(order(10))
	require.False(t, result.Approved)
	assert.Equal(t, LimitMaxPerTradeRisk, result.LimitType)
}

func TestRecordOrderUpdatesExposureAndContracts(t *testing.T) {
	m := NewManager(DefaultLimits(), zerolog.Nop())
	o := order(10)
	m.RecordOrder(o, decimal.NewFromInt(50))

	status := m.GetStatus()
	assert.Equal(t, 10, status.TotalContracts)
	assert.True(t, status.TotalExposure.Equal(decimal.NewFromInt(500)))
}

func TestCheckOrderRejectsDailyLossLimit(t *testing.T) {
	limits := DefaultLimits()
	limits.MaxDailyLoss = decimal.NewFromInt(100)
	m := NewManager(limits, zerolog.Nop())

	m.RecordPnL(decimal.NewFromInt(-150))

	result := m.CheckOrder(order(1))
	require.False(t, result.Approved)
	assert.Equal(t, LimitMaxDailyLoss, result.LimitType)
}

func TestLossStreakTriggersCooldown(t *testing.T) {
	limits := DefaultLimits()
	limits.LossStreakCooldown = 2
	m := NewManager(limits, zerolog.Nop())

	m.RecordPnL(decimal.NewFromInt(-10))
	m.RecordPnL(decimal.NewFromInt(-10))

	result := m.CheckOrder(order(1))
	require.False(t, result.Approved)
	assert.Equal(t, LimitLossStreakCooldown, result.LimitType)
}

func TestWinResetsConsecutiveLossStreak(t *testing.T) {
	limits := DefaultLimits()
	limits.LossStreakCooldown = 2
	m := NewManager(limits, zerolog.Nop())

	m.RecordPnL(decimal.NewFromInt(-10))
	m.RecordPnL(decimal.NewFromInt(20))

	status := m.GetStatus()
	assert.Equal(t, 0, status.ConsecutiveLosses)
	assert.False(t, status.CooldownActive)

	result := m.CheckOrder(order(1))
	assert.True(t, result.Approved)
}

func TestRecordPositionCloseReducesContracts(t *testing.T) {
	m := NewManager(DefaultLimits(), zerolog.Nop())
	o := order(10)
	m.RecordOrder(o, decimal.NewFromInt(50))
	m.RecordPositionClose("T1", "g1", 4)

	status := m.GetStatus()
	assert.Equal(t, 6, status.TotalContracts)
}

func TestRecordPositionCloseNeverGoesNegative(t *testing.T) {
	m := NewManager(DefaultLimits(), zerolog.Nop())
	m.RecordPositionClose("T1", "g1", 4)
	status := m.GetStatus()
	assert.Equal(t, 0, status.TotalContracts)
}

func TestDisableBypassesAllChecks(t *testing.T) {
	limits := DefaultLimits()
	limits.MaxContractsPerMarket = 1
	m := NewManager(limits, zerolog.Nop())
	m.Disable()

	result := m.CheckOrder(order(1000))
	assert.True(t, result.Approved)
	assert.False(t, m.IsEnabled())
}

func TestSetLimitUpdatesDecimalLimit(t *testing.T) {
	m := NewManager(DefaultLimits(), zerolog.Nop())
	m.SetLimit(LimitMaxDailyLoss, decimal.NewFromInt(42))
	assert.True(t, m.Limits().MaxDailyLoss.Equal(decimal.NewFromInt(42)))
}
