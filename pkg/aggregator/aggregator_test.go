package aggregator

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phenomenon0/kalshi-paper-trader/pkg/model"
)

type fakeStore struct {
	records map[string]*GameRecord
	saved   []*model.LiveSportsState
}

func (f *fakeStore) GetGameRecord(_ context.Context, gameID string) (*GameRecord, error) {
	rec, ok := f.records[gameID]
	if !ok {
		return nil, model.NewError(model.CodeNotFound, "no such game %s", gameID)
	}
	return rec, nil
}

func (f *fakeStore) SaveLiveSportsSnapshot(_ context.Context, _ string, snap *model.LiveSportsState) error {
	f.saved = append(f.saved, snap)
	return nil
}

type fakeExchange struct {
	books map[string]OrderbookTop
}

func (f *fakeExchange) GetMarketOrderbook(_ context.Context, ticker string, _ int) (OrderbookTop, error) {
	top, ok := f.books[ticker]
	if !ok {
		return OrderbookTop{}, model.NewError(model.CodeNotFound, "no book for %s", ticker)
	}
	return top, nil
}

type fakeSports struct {
	live   []BoxScore
	single map[string]*BoxScore
}

func (f *fakeSports) GetBoxScoresLive(_ context.Context) ([]BoxScore, error) { return f.live, nil }
func (f *fakeSports) GetBoxScore(_ context.Context, gameID string) (*BoxScore, error) {
	return f.single[gameID], nil
}

type fakeOdds struct {
	rows map[string][]VendorOdds
}

func (f *fakeOdds) GetOdds(_ context.Context, gameID string) ([]VendorOdds, error) {
	return f.rows[gameID], nil
}

func intp(v int) *int                     { return &v }
func decp(v string) *decimal.Decimal      { d := decimal.RequireFromString(v); return &d }

func TestLoadGameIdempotent(t *testing.T) {
	store := &fakeStore{records: map[string]*GameRecord{
		"g1": {
			GameID: "g1", EventTicker: "EVT-G1", HomeTeam: "SAC", AwayTeam: "DAL",
			ScheduledStart: time.Now(), Status: "scheduled",
			Markets: []MarketRecord{{Ticker: "MONEYLINE-26JAN06DALSAC-SAC", MarketType: model.MarketMoneyline}},
		},
	}}
	exchange := &fakeExchange{books: map[string]OrderbookTop{
		"MONEYLINE-26JAN06DALSAC-SAC": {YesBid: decimal.NewFromInt(40), YesAsk: decimal.NewFromInt(42)},
	}}

	agg := New(DefaultConfig(), store, exchange, &fakeSports{}, &fakeOdds{}, "", zerolog.Nop())

	state1, err := agg.LoadGame(context.Background(), "g1")
	require.NoError(t, err)
	assert.Equal(t, "g1", state1.GameID)
	assert.True(t, state1.ImpliedProbabilities["MONEYLINE-26JAN06DALSAC-SAC"].Equal(decimal.NewFromFloat(0.41)))

	state2, err := agg.LoadGame(context.Background(), "g1")
	require.NoError(t, err)
	assert.Equal(t, state1.GameID, state2.GameID)
}

func TestLoadGameNotFound(t *testing.T) {
	agg := New(DefaultConfig(), &fakeStore{records: map[string]*GameRecord{}}, &fakeExchange{}, &fakeSports{}, &fakeOdds{}, "", zerolog.Nop())
	_, err := agg.LoadGame(context.Background(), "missing")
	require.Error(t, err)
	assert.Equal(t, model.CodeNotFound, model.CodeOf(err))
}

func TestUnloadGameClearsTickerIndex(t *testing.T) {
	store := &fakeStore{records: map[string]*GameRecord{
		"g1": {GameID: "g1", Markets: []MarketRecord{{Ticker: "T1", MarketType: model.MarketMoneyline}}},
	}}
	agg := New(DefaultConfig(), store, &fakeExchange{}, &fakeSports{}, &fakeOdds{}, "", zerolog.Nop())

	_, err := agg.LoadGame(context.Background(), "g1")
	require.NoError(t, err)
	assert.Contains(t, agg.tickerToGame, "T1")

	agg.UnloadGame("g1")
	assert.NotContains(t, agg.tickerToGame, "T1")
	assert.Nil(t, agg.GetGameState("g1"))
}

func TestStatusToPhase(t *testing.T) {
	assert.Equal(t, model.PhaseScheduled, statusToPhase(""))
	assert.Equal(t, model.PhaseScheduled, statusToPhase("scheduled"))
	assert.Equal(t, model.PhaseLive, statusToPhase("in_progress"))
	assert.Equal(t, model.PhaseHalftime, statusToPhase("halftime"))
	assert.Equal(t, model.PhaseFinished, statusToPhase("final"))
	assert.Equal(t, model.PhaseCancelled, statusToPhase("postponed"))
	assert.Equal(t, model.PhaseScheduled, statusToPhase("unknown-garbage"))
	assert.Equal(t, model.PhaseFinished, statusToPhase("Final"))
	assert.Equal(t, model.PhaseLive, statusToPhase("LIVE"))
	assert.Equal(t, model.PhaseHalftime, statusToPhase("Halftime"))
}

func TestComputeConsensusMoneylineSumsToOne(t *testing.T) {
	rows := []VendorOdds{
		{Vendor: "a", HomeMoneyline: intp(-150), AwayMoneyline: intp(130)},
		{Vendor: "b", HomeMoneyline: intp(-140), AwayMoneyline: intp(120)},
	}
	consensus := computeConsensus(rows)
	require.Equal(t, 2, consensus.NumSportsbooks)
	sum := consensus.HomeWinProbability.Add(consensus.AwayWinProbability)
	assert.True(t, sum.Sub(decimal.NewFromInt(1)).Abs().LessThan(decimal.NewFromFloat(0.0001)))
}

func TestComputeConsensusSpreadAndTotalLines(t *testing.T) {
	rows := []VendorOdds{
		{Vendor: "a", SpreadValue: decp("-6.5"), SpreadHomeOdds: intp(-110), SpreadAwayOdds: intp(-110), TotalValue: decp("228.5"), OverOdds: intp(-105), UnderOdds: intp(-115)},
		{Vendor: "b", SpreadValue: decp("-6"), SpreadHomeOdds: intp(-105), SpreadAwayOdds: intp(-115), TotalValue: decp("229"), OverOdds: intp(-110), UnderOdds: intp(-110)},
	}
	consensus := computeConsensus(rows)
	require.NotNil(t, consensus.SpreadLine)
	require.NotNil(t, consensus.SpreadHomeProbability)
	require.NotNil(t, consensus.TotalLine)
	require.NotNil(t, consensus.OverProbability)
}

func TestSubscribePublishDeliversInOrder(t *testing.T) {
	store := &fakeStore{records: map[string]*GameRecord{
		"g1": {GameID: "g1", Markets: []MarketRecord{{Ticker: "T1", MarketType: model.MarketMoneyline}}},
	}}
	agg := New(DefaultConfig(), store, &fakeExchange{}, &fakeSports{}, &fakeOdds{}, "", zerolog.Nop())

	var kinds []EventKind
	agg.Subscribe(func(gameID string, snap *model.GameState, kind EventKind) {
		kinds = append(kinds, kind)
	})

	_, err := agg.LoadGame(context.Background(), "g1")
	require.NoError(t, err)
	agg.UnloadGame("g1")

	require.Len(t, kinds, 2)
	assert.Equal(t, EventGameLoaded, kinds[0])
	assert.Equal(t, EventGameUnloaded, kinds[1])
}

func TestSubscriberPanicDoesNotBlockOthers(t *testing.T) {
	store := &fakeStore{records: map[string]*GameRecord{"g1": {GameID: "g1"}}}
	agg := New(DefaultConfig(), store, &fakeExchange{}, &fakeSports{}, &fakeOdds{}, "", zerolog.Nop())

	called := false
	agg.Subscribe(func(string, *model.GameState, EventKind) { panic("boom") })
	agg.Subscribe(func(string, *model.GameState, EventKind) { called = true })

	_, err := agg.LoadGame(context.Background(), "g1")
	require.NoError(t, err)
	assert.True(t, called)
}
