package runtime

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phenomenon0/kalshi-paper-trader/pkg/exchange"
	"github.com/phenomenon0/kalshi-paper-trader/pkg/model"
	"github.com/phenomenon0/kalshi-paper-trader/pkg/risk"
)

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func TestBestLevelReturnsHighestPrice(t *testing.T) {
	levels := []exchange.OrderbookLevel{
		{Price: dec("42"), Size: dec("10")},
		{Price: dec("45"), Size: dec("5")},
		{Price: dec("40"), Size: dec("20")},
	}
	price, size := bestLevel(levels)
	assert.Equal(t, dec("45"), price)
	assert.Equal(t, dec("5"), size)
}

func TestBestLevelEmptyReturnsZero(t *testing.T) {
	price, size := bestLevel(nil)
	assert.True(t, price.IsZero())
	assert.True(t, size.IsZero())
}

func TestFloat64PtrToDecimalPtrRoundTrips(t *testing.T) {
	v := 3.5
	got := float64PtrToDecimalPtr(&v)
	require.NotNil(t, got)
	assert.True(t, got.Equal(decimal.NewFromFloat(3.5)))

	assert.Nil(t, float64PtrToDecimalPtr(nil))
}

func TestRiskAdapterConvertsCheckResult(t *testing.T) {
	mgr := risk.NewManager(risk.DefaultLimits(), zerolog.Nop())
	adapter := newRiskAdapter(mgr)

	order := &model.Order{
		MarketTicker: "T1",
		Side:         model.SideYes,
		Quantity:     1,
		GameID:       "g1",
	}
	result := adapter.CheckOrder(order)
	assert.True(t, result.Approved)
}

func TestRiskAdapterDelegatesRecording(t *testing.T) {
	mgr := risk.NewManager(risk.DefaultLimits(), zerolog.Nop())
	adapter := newRiskAdapter(mgr)

	order := &model.Order{MarketTicker: "T1", Side: model.SideYes, Quantity: 1, GameID: "g1"}
	adapter.RecordOrder(order, dec("50"))
	adapter.RecordPnL(dec("10"))
	adapter.RecordPositionClose("T1", "g1", 1)

	status := mgr.GetStatus()
	assert.Equal(t, 1, status.OrdersToday)
}
