package strategy

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phenomenon0/kalshi-paper-trader/pkg/model"
)

func TestCorrelationComplementaryOvervaluedEmitsNo(t *testing.T) {
	c := NewCorrelation("c1", DefaultCorrelationConfig())
	c.Enable()

	game := newGame("g1", "DAL", "UTA")
	addMarket(game, "KXNBA-G1-DAL", model.MarketMoneyline, "DAL", book(54, 56, 44, 46))
	addMarket(game, "KXNBA-G1-UTA", model.MarketMoneyline, "UTA", book(54, 56, 44, 46))

	signals := c.Evaluate(game)
	require.Len(t, signals, 1)
	assert.Equal(t, model.SideNo, signals[0].Side)
	assert.Equal(t, "KXNBA-G1-DAL", signals[0].MarketTicker)
}

func TestCorrelationComplementaryWithinRangeNoSignal(t *testing.T) {
	c := NewCorrelation("c1", DefaultCorrelationConfig())
	c.Enable()

	game := newGame("g1", "DAL", "UTA")
	addMarket(game, "KXNBA-G1-DAL", model.MarketMoneyline, "DAL", book(49, 51, 49, 51))
	addMarket(game, "KXNBA-G1-UTA", model.MarketMoneyline, "UTA", book(49, 51, 49, 51))

	assert.Empty(t, c.Evaluate(game))
}

func TestCorrelationComplementaryUndervaluedNoSignal(t *testing.T) {
	c := NewCorrelation("c1", DefaultCorrelationConfig())
	c.Enable()

	game := newGame("g1", "DAL", "UTA")
	addMarket(game, "KXNBA-G1-DAL", model.MarketMoneyline, "DAL", book(30, 32, 68, 70))
	addMarket(game, "KXNBA-G1-UTA", model.MarketMoneyline, "UTA", book(30, 32, 68, 70))

	assert.Empty(t, c.Evaluate(game))
}

func TestCorrelationMoneylineSpreadDiscrepancyEmitsSignal(t *testing.T) {
	c := NewCorrelation("c1", DefaultCorrelationConfig())
	c.Enable()

	game := newGame("g1", "DAL", "UTA")
	// DAL favorite at 70% moneyline -> expected spread prob = 50 + (70-50)*0.5 = 60
	addMarket(game, "KXNBA-G1-DAL", model.MarketMoneyline, "DAL", book(69, 71, 29, 31))
	addMarket(game, "KXNBA-G1-UTA", model.MarketMoneyline, "UTA", book(29, 31, 69, 71))
	addMarket(game, "KXNBASPREAD-G1-DAL7", model.MarketSpread, "DAL", book(79, 81, 19, 21)) // priced at 80, expected 60

	signals := c.Evaluate(game)
	require.NotEmpty(t, signals)

	found := false
	for _, s := range signals {
		if s.MarketTicker == "KXNBASPREAD-G1-DAL7" {
			found = true
			assert.Equal(t, model.SideNo, s.Side)
		}
	}
	assert.True(t, found)
}

func TestParseTeamSpread(t *testing.T) {
	team, value, ok := parseTeamSpread("KXNBASPREAD-26JAN08DALUTA-DAL7")
	require.True(t, ok)
	assert.Equal(t, "DAL", team)
	assert.Equal(t, 7, value)
}

func TestParseTeamSpreadInvalidTicker(t *testing.T) {
	_, _, ok := parseTeamSpread("not-a-valid-ticker")
	assert.False(t, ok)
}

func TestCorrelationDisabledReturnsNoSignals(t *testing.T) {
	c := NewCorrelation("c1", DefaultCorrelationConfig())

	game := newGame("g1", "DAL", "UTA")
	addMarket(game, "KXNBA-G1-DAL", model.MarketMoneyline, "DAL", book(54, 56, 44, 46))
	addMarket(game, "KXNBA-G1-UTA", model.MarketMoneyline, "UTA", book(54, 56, 44, 46))

	assert.Empty(t, c.Evaluate(game))
}
