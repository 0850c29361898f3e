package execution

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

func dec(v float64) decimal.Decimal { return decimal.NewFromFloat(v) }

type fakeSource struct {
	games map[string]*model.GameState
}

func (f *fakeSource) GetGameState(gameID string) *model.GameState { return f.games[gameID] }

type fakeRisk struct {
	approve        bool
	reason         string
	recordedOrders []*model.Order
	pnls           []decimal.Decimal
	closes         int
}

func (f *fakeRisk) CheckOrder(order *model.Order) CheckResult {
	if !f.approve {
		return CheckResult{Approved: false, Reason: f.reason}
	}
	return CheckResult{Approved: true}
}
func (f *fakeRisk) RecordOrder(order *model.Order, fillPrice decimal.Decimal) {
	f.recordedOrders = append(f.recordedOrders, order)
}
func (f *fakeRisk) RecordPnL(pnl decimal.Decimal) { f.pnls = append(f.pnls, pnl) }
func (f *fakeRisk) RecordPositionClose(marketTicker, gameID string, quantity int) { f.closes++ }

type fakeStore struct {
	savedOrders    []*model.Order
	upsertedPos    []*model.Position
	saveOrderErr   error
	upsertErr      error
}

func (f *fakeStore) SaveOrder(ctx context.Context, order *model.Order) error {
	f.savedOrders = append(f.savedOrders, order)
	return f.saveOrderErr
}
func (f *fakeStore) UpsertPosition(ctx context.Context, position *model.Position) error {
	f.upsertedPos = append(f.upsertedPos, position)
	return f.upsertErr
}

func book(yesBid, yesAsk, noBid, noAsk float64) *model.OrderbookState {
	return &model.OrderbookState{
		YesBid: dec(yesBid), YesAsk: dec(yesAsk),
		NoBid: dec(noBid), NoAsk: dec(noAsk),
		LastUpdated: time.Now(),
	}
}

func gameWithMarket(gameID, ticker string, ob *model.OrderbookState) *model.GameState {
	g := model.NewGameState(gameID, "EVT", "DAL", "UTA", time.Now())
	g.Markets[ticker] = &model.MarketState{Ticker: ticker, MarketType: model.MarketMoneyline, Orderbook: ob}
	return g
}

func newTestEngine(approve bool, games map[string]*model.GameState) (*Engine, *fakeRisk, *fakeStore) {
	risk := &fakeRisk{approve: approve, reason: "risk rejected"}
	store := &fakeStore{}
	source := &fakeSource{games: games}
	e := New(DefaultConfig(), source, risk, store, zerolog.Nop())
	return e, risk, store
}

func TestExecuteSignalFillsAtYesAskOnApproval(t *testing.T) {
	game := gameWithMarket("g1", "T1", book(49, 50, 49, 51))
	e, risk, store := newTestEngine(true, map[string]*model.GameState{"g1": game})

	sig := model.TradeSignal{StrategyID: "s1", MarketTicker: "T1", Side: model.SideYes, Quantity: 10}
	result := e.ExecuteSignal(context.Background(), sig, "g1")

	require.True(t, result.Success)
	assert.Equal(t, model.OrderFilled, result.Order.Status)
	require.NotNil(t, result.Order.FilledPrice)
	assert.True(t, result.Order.FilledPrice.Equal(dec(50)))
	assert.Len(t, risk.recordedOrders, 1)
	assert.Len(t, store.savedOrders, 1)
	assert.Len(t, store.upsertedPos, 1)

	pos := e.GetPosition("T1", model.SideYes)
	require.NotNil(t, pos)
	assert.Equal(t, 10, pos.Quantity)
	assert.True(t, pos.AvgEntryPrice.Equal(dec(50)))
}

func TestExecuteSignalRejectedByRiskIsCancelled(t *testing.T) {
	game := gameWithMarket("g1", "T1", book(49, 50, 49, 51))
	e, _, store := newTestEngine(false, map[string]*model.GameState{"g1": game})

	sig := model.TradeSignal{StrategyID: "s1", MarketTicker: "T1", Side: model.SideYes, Quantity: 10}
	result := e.ExecuteSignal(context.Background(), sig, "g1")

	assert.False(t, result.Success)
	assert.Equal(t, model.OrderCancelled, result.Order.Status)
	assert.Equal(t, "risk rejected", result.Order.RejectReason)
	require.Len(t, store.savedOrders, 1)
	assert.Nil(t, e.GetPosition("T1", model.SideYes))
}

func TestExecuteSignalRejectsUnknownGame(t *testing.T) {
	e, _, _ := newTestEngine(true, map[string]*model.GameState{})

	sig := model.TradeSignal{MarketTicker: "T1", Side: model.SideYes, Quantity: 5}
	result := e.ExecuteSignal(context.Background(), sig, "missing-game")

	assert.False(t, result.Success)
	assert.Equal(t, "game not loaded in aggregator", result.Reason)
}

func TestExecuteSignalRejectsMissingMarket(t *testing.T) {
	game := model.NewGameState("g1", "EVT", "DAL", "UTA", time.Now())
	e, _, _ := newTestEngine(true, map[string]*model.GameState{"g1": game})

	sig := model.TradeSignal{MarketTicker: "NOPE", Side: model.SideYes, Quantity: 5}
	result := e.ExecuteSignal(context.Background(), sig, "g1")

	assert.False(t, result.Success)
	assert.Equal(t, "market not found in game", result.Reason)
}

func TestExecuteSignalRejectsMissingOrderbook(t *testing.T) {
	game := model.NewGameState("g1", "EVT", "DAL", "UTA", time.Now())
	game.Markets["T1"] = &model.MarketState{Ticker: "T1", MarketType: model.MarketMoneyline}
	e, _, _ := newTestEngine(true, map[string]*model.GameState{"g1": game})

	sig := model.TradeSignal{MarketTicker: "T1", Side: model.SideYes, Quantity: 5}
	result := e.ExecuteSignal(context.Background(), sig, "g1")

	assert.False(t, result.Success)
	assert.Equal(t, "no price available for market", result.Reason)
}

func TestExecuteSignalAveragesIntoExistingPosition(t *testing.T) {
	game := gameWithMarket("g1", "T1", book(49, 50, 49, 51))
	e, _, _ := newTestEngine(true, map[string]*model.GameState{"g1": game})

	sig := model.TradeSignal{MarketTicker: "T1", Side: model.SideYes, Quantity: 10}
	require.True(t, e.ExecuteSignal(context.Background(), sig, "g1").Success)

	game.Markets["T1"].Orderbook = book(59, 60, 39, 41)
	require.True(t, e.ExecuteSignal(context.Background(), sig, "g1").Success)

	pos := e.GetPosition("T1", model.SideYes)
	require.NotNil(t, pos)
	assert.Equal(t, 20, pos.Quantity)
	// avg entry = (50*10 + 60*10) / 20 = 55
	assert.True(t, pos.AvgEntryPrice.Equal(dec(55)))
}

func TestExecuteSignalRejectsOverPerMarketCap(t *testing.T) {
	game := gameWithMarket("g1", "T1", book(49, 50, 49, 51))
	cfg := DefaultConfig()
	cfg.MaxPositionSize = 15
	risk := &fakeRisk{approve: true}
	store := &fakeStore{}
	source := &fakeSource{games: map[string]*model.GameState{"g1": game}}
	e := New(cfg, source, risk, store, zerolog.Nop())

	sig := model.TradeSignal{MarketTicker: "T1", Side: model.SideYes, Quantity: 10}
	require.True(t, e.ExecuteSignal(context.Background(), sig, "g1").Success)

	second := e.ExecuteSignal(context.Background(), sig, "g1") // would bring total to 20 > 15
	assert.False(t, second.Success)
	assert.Equal(t, "per-market position cap reached", second.Reason)
}

func TestClosePositionRealizesYesPnL(t *testing.T) {
	game := gameWithMarket("g1", "T1", book(49, 50, 49, 51))
	e, risk, _ := newTestEngine(true, map[string]*model.GameState{"g1": game})

	sig := model.TradeSignal{MarketTicker: "T1", Side: model.SideYes, Quantity: 10}
	require.True(t, e.ExecuteSignal(context.Background(), sig, "g1").Success)

	game.Markets["T1"].Orderbook = book(69, 71, 29, 31) // yes_bid=69 now
	pos, err := e.ClosePosition(context.Background(), "T1", model.SideYes, nil)
	require.NoError(t, err)
	assert.False(t, pos.IsOpen)
	// (69-50)*10 = 190
	assert.True(t, pos.RealizedPnL.Equal(dec(190)))
	assert.Len(t, risk.pnls, 1)
	assert.Equal(t, 1, risk.closes)
}

func TestSettlePositionYesOutcomePays100(t *testing.T) {
	game := gameWithMarket("g1", "T1", book(49, 50, 49, 51))
	e, _, _ := newTestEngine(true, map[string]*model.GameState{"g1": game})

	sig := model.TradeSignal{MarketTicker: "T1", Side: model.SideYes, Quantity: 10}
	require.True(t, e.ExecuteSignal(context.Background(), sig, "g1").Success)

	pos, err := e.SettlePosition(context.Background(), "T1", model.SideYes, true)
	require.NoError(t, err)
	// final_value = 100*10=1000, total_cost=500, pnl=500
	assert.True(t, pos.RealizedPnL.Equal(dec(500)))
	assert.False(t, pos.IsOpen)
}

func TestSettlePositionNoOutcomeZeroesYesPosition(t *testing.T) {
	game := gameWithMarket("g1", "T1", book(49, 50, 49, 51))
	e, _, _ := newTestEngine(true, map[string]*model.GameState{"g1": game})

	sig := model.TradeSignal{MarketTicker: "T1", Side: model.SideYes, Quantity: 10}
	require.True(t, e.ExecuteSignal(context.Background(), sig, "g1").Success)

	pos, err := e.SettlePosition(context.Background(), "T1", model.SideYes, false)
	require.NoError(t, err)
	// final_value = 0, total_cost=500, pnl=-500
	assert.True(t, pos.RealizedPnL.Equal(dec(-500)))
}

func TestUpdateUnrealizedPnLMarksOpenPositions(t *testing.T) {
	game := gameWithMarket("g1", "T1", book(49, 50, 49, 51))
	e, _, _ := newTestEngine(true, map[string]*model.GameState{"g1": game})

	sig := model.TradeSignal{MarketTicker: "T1", Side: model.SideYes, Quantity: 10}
	require.True(t, e.ExecuteSignal(context.Background(), sig, "g1").Success)

	game.Markets["T1"].Orderbook = book(59, 61, 39, 41) // mid=60
	e.UpdateUnrealizedPnL(context.Background())

	pos := e.GetPosition("T1", model.SideYes)
	// mid(60)*10 - total_cost(500) = 100
	assert.True(t, pos.UnrealizedPnL.Equal(dec(100)))
}

func TestGetPortfolioSummaryAggregatesOpenPositions(t *testing.T) {
	game := gameWithMarket("g1", "T1", book(49, 50, 49, 51))
	e, _, _ := newTestEngine(true, map[string]*model.GameState{"g1": game})

	sig := model.TradeSignal{MarketTicker: "T1", Side: model.SideYes, Quantity: 10}
	require.True(t, e.ExecuteSignal(context.Background(), sig, "g1").Success)

	summary := e.GetPortfolioSummary()
	assert.Equal(t, 1, summary.OpenPositions)
	assert.True(t, summary.TotalExposure.Equal(dec(500)))
}

func TestGetStatsCountsFilledAndRejected(t *testing.T) {
	game := gameWithMarket("g1", "T1", book(49, 50, 49, 51))
	e, _, _ := newTestEngine(true, map[string]*model.GameState{"g1": game})

	require.True(t, e.ExecuteSignal(context.Background(), model.TradeSignal{MarketTicker: "T1", Side: model.SideYes, Quantity: 10}, "g1").Success)
	require.False(t, e.ExecuteSignal(context.Background(), model.TradeSignal{MarketTicker: "NOPE", Side: model.SideYes, Quantity: 10}, "g1").Success)

	stats := e.GetStats()
	assert.Equal(t, 2, stats.TotalOrders)
	assert.Equal(t, 1, stats.FilledOrders)
	assert.Equal(t, 1, stats.RejectedOrders)
}

func TestExecuteSignalsRunsEachIndependently(t *testing.T) {
	game := gameWithMarket("g1", "T1", book(49, 50, 49, 51))
	e, _, _ := newTestEngine(true, map[string]*model.GameState{"g1": game})

	signals := []model.TradeSignal{
		{MarketTicker: "T1", Side: model.SideYes, Quantity: 5},
		{MarketTicker: "NOPE", Side: model.SideYes, Quantity: 5},
	}
	results := e.ExecuteSignals(context.Background(), signals, "g1")
	require.Len(t, results, 2)
	assert.True(t, results[0].Success)
	assert.False(t, results[1].Success)
}

func TestExecutionCallbackPanicDoesNotPreventResult(t *testing.T) {
	game := gameWithMarket("g1", "T1", book(49, 50, 49, 51))
	e, _, _ := newTestEngine(true, map[string]*model.GameState{"g1": game})

	called := false
	e.AddExecutionCallback(func(order *model.Order, result Result) {
		called = true
		panic("callback exploded")
	})

	result := e.ExecuteSignal(context.Background(), model.TradeSignal{MarketTicker: "T1", Side: model.SideYes, Quantity: 5}, "g1")
	assert.True(t, result.Success)
	assert.True(t, called)
}
