package strategy

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/phenomenon0/kalshi-paper-trader/pkg/model"
)

func TestBaseCheckCooldownAllowsFirstTrade(t *testing.T) {
	b := newBase("test")
	assert.True(t, b.checkCooldown("TICKER", time.Minute))
}

func TestBaseCheckCooldownBlocksWithinWindow(t *testing.T) {
	b := newBase("test")
	b.recordTrade("TICKER")
	assert.False(t, b.checkCooldown("TICKER", time.Hour))
}

func TestBaseCheckCooldownAllowsAfterWindow(t *testing.T) {
	b := newBase("test")
	b.recordTrade("TICKER")
	assert.True(t, b.checkCooldown("TICKER", -time.Second))
}

func TestBaseHistoryBounded(t *testing.T) {
	b := newBase("test")
	for i := 0; i < maxSignalHistory+10; i++ {
		b.recordSignal(model.TradeSignal{MarketTicker: "T"})
	}
	assert.Len(t, b.History(), maxSignalHistory)
}

func TestBaseEnableDisable(t *testing.T) {
	b := newBase("test")
	assert.False(t, b.IsEnabled())
	b.Enable()
	assert.True(t, b.IsEnabled())
	b.Disable()
	assert.False(t, b.IsEnabled())
}

func TestClampConfidence(t *testing.T) {
	assert.True(t, clampConfidence(decimal.NewFromInt(2)).Equal(decimal.NewFromInt(1)))
	assert.True(t, clampConfidence(decimal.NewFromInt(-1)).Equal(decimal.Zero))
	half := decimal.NewFromFloat(0.5)
	assert.True(t, clampConfidence(half).Equal(half))
}
