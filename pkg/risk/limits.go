// Package risk enforces trading limits and risk controls before an order
// reaches the exchange, and tracks the daily/weekly loss and loss-streak
// state those limits depend on. Grounded on pkg/trader/policy/limits.go's
// RiskLimits/PolicyEngine shape, generalized from a single flat limit set to
// the full RiskLimitType taxonomy this system's CheckOrder pipeline needs.
package risk

import "github.com/shopspring/decimal"

// LimitType names one configurable risk limit.
type LimitType string

const (
	LimitMaxContractsPerMarket LimitType = "max_contracts_per_market"
	LimitMaxContractsPerGame   LimitType = "max_contracts_per_game"
	LimitMaxTotalContracts     LimitType = "max_total_contracts"

	LimitMaxDailyLoss    LimitType = "max_daily_loss"
	LimitMaxWeeklyLoss   LimitType = "max_weekly_loss"
	LimitMaxPerTradeRisk LimitType = "max_per_trade_risk"

	LimitMaxTotalExposure    LimitType = "max_total_exposure"
	LimitMaxExposurePerGame  LimitType = "max_exposure_per_game"
	LimitMaxExposurePerStrat LimitType = "max_exposure_per_strategy"

	LimitMaxOrdersPerDay    LimitType = "max_orders_per_day"
	LimitMaxOrdersPerHour   LimitType = "max_orders_per_hour"
	LimitLossStreakCooldown LimitType = "loss_streak_cooldown"
)

// Limits holds the configurable value for every LimitType. Loss/exposure
// limits are cents (matching the exchange's integer-cent contract price);
// LossStreakCooldown is a count of consecutive losing trades.
type Limits struct {
	MaxContractsPerMarket int
	MaxContractsPerGame   int
	MaxTotalContracts     int

	MaxDailyLoss    decimal.Decimal
	MaxWeeklyLoss   decimal.Decimal
	MaxPerTradeRisk decimal.Decimal

	MaxTotalExposure     decimal.Decimal
	MaxExposurePerGame   decimal.Decimal
	MaxExposurePerStrat  decimal.Decimal

	MaxOrdersPerDay    int
	MaxOrdersPerHour   int
	LossStreakCooldown int
}

// DefaultLimits mirrors backend/engine/risk_manager.py's DEFAULT_LIMITS.
func DefaultLimits() Limits {
	return Limits{
		MaxContractsPerMarket: 100,
		MaxContractsPerGame:   200,
		MaxTotalContracts:     500,

		MaxDailyLoss:    decimal.NewFromInt(1000),
		MaxWeeklyLoss:   decimal.NewFromInt(5000),
		MaxPerTradeRisk: decimal.NewFromInt(500),

		MaxTotalExposure:    decimal.NewFromInt(10000),
		MaxExposurePerGame:  decimal.NewFromInt(2000),
		MaxExposurePerStrat: decimal.NewFromInt(3000),

		MaxOrdersPerDay:    50,
		MaxOrdersPerHour:   20,
		LossStreakCooldown: 3,
	}
}
