package oddsmath

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phenomenon0/kalshi-paper-trader/pkg/model"
)

func TestAmericanToImplied(t *testing.T) {
	assert.True(t, AmericanToImplied(-110).Equal(decimal.NewFromInt(110).Div(decimal.NewFromInt(210))))
	assert.True(t, AmericanToImplied(150).Equal(decimal.NewFromInt(100).Div(decimal.NewFromInt(250))))
	assert.True(t, AmericanToImplied(0).Equal(half))
}

func TestImpliedToAmericanRoundTrip(t *testing.T) {
	for _, odds := range []int{-250, -110, 100, 120, 300} {
		p := AmericanToImplied(odds)
		back, err := ImpliedToAmerican(p)
		require.NoError(t, err)
		assert.InDelta(t, odds, back, 1)
	}
}

func TestImpliedToAmericanBadInput(t *testing.T) {
	_, err := ImpliedToAmerican(decimal.NewFromFloat(1.5))
	require.Error(t, err)
	assert.Equal(t, model.CodeBadInput, model.CodeOf(err))

	_, err = ImpliedToAmerican(decimal.Zero)
	require.Error(t, err)
}

func TestCentsToProbClamps(t *testing.T) {
	assert.True(t, CentsToProb(decimal.NewFromInt(150)).Equal(one))
	assert.True(t, CentsToProb(decimal.NewFromInt(-10)).Equal(zero))
	assert.True(t, CentsToProb(decimal.NewFromInt(55)).Equal(decimal.NewFromFloat(0.55)))
}

func TestConsensusMethods(t *testing.T) {
	odds := []int{-150, -140, -160}

	mean, err := Consensus(odds, ConsensusMean)
	require.NoError(t, err)
	assert.True(t, mean.GreaterThan(half))

	median, err := Consensus(odds, ConsensusMedian)
	require.NoError(t, err)
	assert.True(t, median.Equal(AmericanToImplied(-150)))

	weighted, err := Consensus(odds, ConsensusWeighted)
	require.NoError(t, err)
	assert.True(t, weighted.GreaterThan(half))
}

func TestConsensusEmptyIsBadInput(t *testing.T) {
	_, err := Consensus(nil, ConsensusMean)
	require.Error(t, err)
	assert.Equal(t, model.CodeBadInput, model.CodeOf(err))
}

func TestRemoveVigSumsToOne(t *testing.T) {
	home, away := RemoveVigAmerican(-150, 130)
	assert.True(t, home.Add(away).Sub(one).Abs().LessThan(decimal.NewFromFloat(0.0001)))
}

func TestRemoveVigZeroDenominatorClamp(t *testing.T) {
	home, away := RemoveVig(decimal.Zero, decimal.Zero)
	assert.True(t, home.Equal(half))
	assert.True(t, away.Equal(half))
}

func TestEVYesSide(t *testing.T) {
	// Sharp-line scenario: true probability well above market price.
	ev, err := EV(decimal.NewFromInt(35), decimal.NewFromFloat(0.48), model.SideYes)
	require.NoError(t, err)
	assert.True(t, ev.GreaterThan(decimal.NewFromFloat(0.3)))
}

func TestEVNoSideMirrorsYes(t *testing.T) {
	evYes, err := EV(decimal.NewFromInt(40), decimal.NewFromFloat(0.7), model.SideYes)
	require.NoError(t, err)
	evNo, err := EV(decimal.NewFromInt(60), decimal.NewFromFloat(0.3), model.SideNo)
	require.NoError(t, err)
	assert.True(t, evYes.Sub(evNo).Abs().LessThan(decimal.NewFromFloat(0.0001)))
}

func TestEVBadInput(t *testing.T) {
	_, err := EV(decimal.NewFromInt(150), decimal.NewFromFloat(0.5), model.SideYes)
	require.Error(t, err)
	assert.Equal(t, model.CodeBadInput, model.CodeOf(err))
}

func TestKellyPositiveEdge(t *testing.T) {
	f, err := Kelly(decimal.NewFromInt(40), decimal.NewFromFloat(0.6), model.SideYes, decimal.NewFromFloat(0.25))
	require.NoError(t, err)
	assert.True(t, f.GreaterThan(decimal.Zero))
	assert.True(t, f.LessThanOrEqual(one))
}

func TestKellyNoEdgeIsZero(t *testing.T) {
	f, err := Kelly(decimal.NewFromInt(50), decimal.NewFromFloat(0.5), model.SideYes, decimal.NewFromFloat(0.25))
	require.NoError(t, err)
	assert.True(t, f.Equal(zero))

	f, err = Kelly(decimal.NewFromInt(60), decimal.NewFromFloat(0.4), model.SideYes, decimal.NewFromFloat(0.25))
	require.NoError(t, err)
	assert.True(t, f.Equal(zero))
}

func TestKellyCapsAtOne(t *testing.T) {
	f, err := Kelly(decimal.NewFromInt(5), decimal.NewFromFloat(0.95), model.SideYes, decimal.NewFromInt(10))
	require.NoError(t, err)
	assert.True(t, f.Equal(one))
}
