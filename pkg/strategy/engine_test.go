package strategy

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phenomenon0/kalshi-paper-trader/pkg/model"
)

type fakeGameSource struct {
	games map[string]*model.GameState
}

func (f *fakeGameSource) GetAllGameStates() map[string]*model.GameState { return f.games }

func newTestEngine(source GameSource) *Engine {
	return New(DefaultConfig(), source, zerolog.Nop())
}

func TestLoadStrategyIsIdempotentPerType(t *testing.T) {
	e := newTestEngine(&fakeGameSource{})

	s1, err := e.LoadStrategy("momentum", "m-a", nil, true)
	require.NoError(t, err)
	require.NotNil(t, s1)

	s2, err := e.LoadStrategy("momentum", "m-b", nil, true)
	require.NoError(t, err)

	assert.Nil(t, e.GetStrategy("m-a"))
	assert.NotNil(t, e.GetStrategy("m-b"))
	assert.Len(t, e.GetAllStrategies(), 1)
	assert.Equal(t, s2.ID(), "m-b")
}

func TestLoadStrategyUnknownTypeErrors(t *testing.T) {
	e := newTestEngine(&fakeGameSource{})
	_, err := e.LoadStrategy("not_a_real_strategy", "", nil, true)
	assert.Error(t, err)
}

func TestEvaluateAllGamesGatedOnAnyEnabled(t *testing.T) {
	game := newGame("g1", "DAL", "UTA")
	game.Consensus = &model.ConsensusOdds{NumSportsbooks: 5, HomeWinProbability: dec(0.65), AwayWinProbability: dec(0.35)}
	addMarket(game, "KXNBA-G1-DAL", model.MarketMoneyline, "DAL", book(49, 52, 48, 51))

	source := &fakeGameSource{games: map[string]*model.GameState{"g1": game}}
	e := newTestEngine(source)

	_, err := e.LoadStrategy("sharp_line", "sl1", nil, false) // loaded but disabled
	require.NoError(t, err)

	assert.False(t, e.EvaluateAllGames(context.Background()))

	require.NoError(t, e.EnableStrategy("sl1"))
	assert.True(t, e.EvaluateAllGames(context.Background()))
}

func TestEvaluateGameDeliversToAllHandlersDespitePanicOrError(t *testing.T) {
	game := newGame("g1", "DAL", "UTA")
	game.Consensus = &model.ConsensusOdds{NumSportsbooks: 5, HomeWinProbability: dec(0.65), AwayWinProbability: dec(0.35)}
	addMarket(game, "KXNBA-G1-DAL", model.MarketMoneyline, "DAL", book(49, 52, 48, 51))

	source := &fakeGameSource{games: map[string]*model.GameState{"g1": game}}
	e := newTestEngine(source)

	_, err := e.LoadStrategy("sharp_line", "sl1", nil, true)
	require.NoError(t, err)

	var panicked, errored, succeeded bool
	e.AddSignalHandler(func(ctx context.Context, gameID string, sig model.TradeSignal) error {
		panicked = true
		panic("boom")
	})
	e.AddSignalHandler(func(ctx context.Context, gameID string, sig model.TradeSignal) error {
		errored = true
		return errors.New("handler failure")
	})
	e.AddSignalHandler(func(ctx context.Context, gameID string, sig model.TradeSignal) error {
		succeeded = true
		return nil
	})

	signals := e.EvaluateGame(context.Background(), "g1", game)
	require.Len(t, signals, 1)
	assert.True(t, panicked)
	assert.True(t, errored)
	assert.True(t, succeeded)
}

type panickyStrategy struct{ Base }

func (p *panickyStrategy) Name() string                 { return "panicky" }
func (p *panickyStrategy) Type() string                 { return "panicky" }
func (p *panickyStrategy) Description() string          { return "always panics" }
func (p *panickyStrategy) DefaultConfig() any            { return nil }
func (p *panickyStrategy) UpdateConfig(cfg any) error    { return nil }
func (p *panickyStrategy) Evaluate(*model.GameState) []model.TradeSignal {
	panic("strategy exploded")
}

func TestEvaluateGamePanickingStrategyDoesNotBlockOthers(t *testing.T) {
	game := newGame("g1", "DAL", "UTA")
	game.Consensus = &model.ConsensusOdds{NumSportsbooks: 5, HomeWinProbability: dec(0.65), AwayWinProbability: dec(0.35)}
	addMarket(game, "KXNBA-G1-DAL", model.MarketMoneyline, "DAL", book(49, 52, 48, 51))

	source := &fakeGameSource{games: map[string]*model.GameState{"g1": game}}
	e := newTestEngine(source)

	bad := &panickyStrategy{Base: newBase("bad")}
	bad.Enable()
	e.mu.Lock()
	e.strategies["bad"] = bad
	e.mu.Unlock()

	_, err := e.LoadStrategy("sharp_line", "sl1", nil, true)
	require.NoError(t, err)

	signals := e.EvaluateGame(context.Background(), "g1", game)
	assert.Len(t, signals, 1) // sharp_line's signal survives the other strategy's panic
}

func TestStartStopEvaluationLoop(t *testing.T) {
	source := &fakeGameSource{games: map[string]*model.GameState{}}
	e := newTestEngine(source)
	e.cfg.EvalInterval = 10 * time.Millisecond

	e.Start(context.Background())
	time.Sleep(30 * time.Millisecond)
	e.Stop()
}
