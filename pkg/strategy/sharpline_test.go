package strategy

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phenomenon0/kalshi-paper-trader/pkg/model"
)

func TestSharpLineEmitsYesWhenKalshiUndervalued(t *testing.T) {
	s := NewSharpLine("sl1", DefaultSharpLineConfig())
	s.Enable()

	game := newGame("g1", "DAL", "UTA")
	game.Consensus = &model.ConsensusOdds{
		NumSportsbooks:     5,
		HomeWinProbability: dec(0.65),
		AwayWinProbability: dec(0.35),
	}
	addMarket(game, "KXNBA-G1-DAL", model.MarketMoneyline, "DAL", book(49, 52, 48, 51))

	signals := s.Evaluate(game)
	require.Len(t, signals, 1)
	assert.Equal(t, model.SideYes, signals[0].Side)
	assert.Equal(t, 10, signals[0].Quantity)
}

func TestSharpLineSkipsInsufficientSportsbooks(t *testing.T) {
	s := NewSharpLine("sl1", DefaultSharpLineConfig())
	s.Enable()

	game := newGame("g1", "DAL", "UTA")
	game.Consensus = &model.ConsensusOdds{NumSportsbooks: 1, HomeWinProbability: dec(0.65), AwayWinProbability: dec(0.35)}
	addMarket(game, "KXNBA-G1-DAL", model.MarketMoneyline, "DAL", book(49, 52, 48, 51))

	assert.Empty(t, s.Evaluate(game))
}

func TestSharpLineSkipsBelowThreshold(t *testing.T) {
	s := NewSharpLine("sl1", DefaultSharpLineConfig())
	s.Enable()

	game := newGame("g1", "DAL", "UTA")
	game.Consensus = &model.ConsensusOdds{NumSportsbooks: 5, HomeWinProbability: dec(0.51), AwayWinProbability: dec(0.49)}
	addMarket(game, "KXNBA-G1-DAL", model.MarketMoneyline, "DAL", book(49, 50, 49, 50))

	assert.Empty(t, s.Evaluate(game))
}

func TestSharpLineRespectsCooldown(t *testing.T) {
	s := NewSharpLine("sl1", DefaultSharpLineConfig())
	s.Enable()

	game := newGame("g1", "DAL", "UTA")
	game.Consensus = &model.ConsensusOdds{NumSportsbooks: 5, HomeWinProbability: dec(0.65), AwayWinProbability: dec(0.35)}
	addMarket(game, "KXNBA-G1-DAL", model.MarketMoneyline, "DAL", book(49, 52, 48, 51))

	first := s.Evaluate(game)
	require.Len(t, first, 1)

	second := s.Evaluate(game)
	assert.Empty(t, second)
}

func TestSharpLineKellySizing(t *testing.T) {
	cfg := DefaultSharpLineConfig()
	cfg.UseKellySizing = true
	s := NewSharpLine("sl1", cfg)
	s.Enable()

	game := newGame("g1", "DAL", "UTA")
	game.Consensus = &model.ConsensusOdds{NumSportsbooks: 5, HomeWinProbability: dec(0.65), AwayWinProbability: dec(0.35)}
	addMarket(game, "KXNBA-G1-DAL", model.MarketMoneyline, "DAL", book(49, 52, 48, 51))

	signals := s.Evaluate(game)
	require.Len(t, signals, 1)
	assert.GreaterOrEqual(t, signals[0].Quantity, 1)
}

func TestSharpLineUpdateConfigRejectsWrongType(t *testing.T) {
	s := NewSharpLine("sl1", DefaultSharpLineConfig())
	err := s.UpdateConfig(DefaultMomentumConfig())
	assert.Error(t, err)
}

func TestSharpLineDisabledReturnsNoSignals(t *testing.T) {
	s := NewSharpLine("sl1", DefaultSharpLineConfig())
	game := newGame("g1", "DAL", "UTA")
	game.Consensus = &model.ConsensusOdds{NumSportsbooks: 5, HomeWinProbability: dec(0.65), AwayWinProbability: dec(0.35)}
	addMarket(game, "KXNBA-G1-DAL", model.MarketMoneyline, "DAL", book(49, 52, 48, 51))

	assert.Empty(t, s.Evaluate(game))
}
