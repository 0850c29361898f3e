package store

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phenomenon0/kalshi-paper-trader/pkg/aggregator"
	"github.com/phenomenon0/kalshi-paper-trader/pkg/model"
)

func newMockStore(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return &Store{db: sqlx.NewDb(db, "postgres"), log: zerolog.Nop()}, mock
}

func TestGetGameRecordReturnsNotFound(t *testing.T) {
	s, mock := newMockStore(t)
	mock.ExpectQuery("SELECT game_id, event_ticker").
		WithArgs("g1").
		WillReturnRows(sqlmock.NewRows(nil))

	_, err := s.GetGameRecord(context.Background(), "g1")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestGetGameRecordReturnsRecordWithMarkets(t *testing.T) {
	s, mock := newMockStore(t)
	now := time.Now()

	gameRows := sqlmock.NewRows([]string{"game_id", "event_ticker", "home_team", "away_team", "scheduled_start", "status", "live_sports_id"}).
		AddRow("g1", "EVT", "DAL", "UTA", now, "scheduled", "ls1")
	mock.ExpectQuery("SELECT game_id, event_ticker").WithArgs("g1").WillReturnRows(gameRows)

	marketRows := sqlmock.NewRows([]string{"ticker", "market_type", "strike_value", "team_side"}).
		AddRow("T1", "moneyline", nil, "DAL")
	mock.ExpectQuery("SELECT ticker, market_type").WithArgs("g1").WillReturnRows(marketRows)

	record, err := s.GetGameRecord(context.Background(), "g1")
	require.NoError(t, err)
	assert.Equal(t, "g1", record.GameID)
	require.Len(t, record.Markets, 1)
	assert.Equal(t, model.MarketMoneyline, record.Markets[0].MarketType)
}

func TestSaveGameRecordUpsertsAndReplacesMarkets(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO games").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("DELETE FROM kalshi_markets").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO kalshi_markets").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	record := &aggregator.GameRecord{
		GameID: "g1", EventTicker: "EVT", HomeTeam: "DAL", AwayTeam: "UTA",
		ScheduledStart: time.Now(), Status: "scheduled",
		Markets: []aggregator.MarketRecord{{Ticker: "T1", MarketType: model.MarketMoneyline, TeamSide: "DAL"}},
	}
	require.NoError(t, s.SaveGameRecord(context.Background(), record))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSaveLiveSportsSnapshotInsertsRow(t *testing.T) {
	s, mock := newMockStore(t)
	mock.ExpectExec("INSERT INTO nba_live_data").WillReturnResult(sqlmock.NewResult(1, 1))

	snap := &model.LiveSportsState{Status: "in_progress", Period: 2, HomeScore: 50, AwayScore: 48, LastUpdated: time.Now()}
	require.NoError(t, s.SaveLiveSportsSnapshot(context.Background(), "g1", snap))
}

func TestSaveOddsSnapshotInsertsRow(t *testing.T) {
	s, mock := newMockStore(t)
	mock.ExpectExec("INSERT INTO betting_odds").WillReturnResult(sqlmock.NewResult(1, 1))

	home := -150
	quote := &model.OddsQuote{Vendor: "book1", HomeMoneyline: &home, LastUpdated: time.Now()}
	require.NoError(t, s.SaveOddsSnapshot(context.Background(), "g1", quote))
}

func TestSaveOrderbookSnapshotInsertsRow(t *testing.T) {
	s, mock := newMockStore(t)
	mock.ExpectExec("INSERT INTO orderbook_snapshots").WillReturnResult(sqlmock.NewResult(1, 1))

	ob := &model.OrderbookState{
		YesBid: decimal.NewFromInt(49), YesAsk: decimal.NewFromInt(51),
		NoBid: decimal.NewFromInt(49), NoAsk: decimal.NewFromInt(51),
		LastUpdated: time.Now(),
	}
	require.NoError(t, s.SaveOrderbookSnapshot(context.Background(), "T1", ob))
}

func TestSaveOrderUpsertsRow(t *testing.T) {
	s, mock := newMockStore(t)
	mock.ExpectExec("INSERT INTO simulated_orders").WillReturnResult(sqlmock.NewResult(0, 1))

	price := decimal.NewFromInt(50)
	order := &model.Order{
		ID: "o1", GameID: "g1", MarketTicker: "T1", OrderType: model.OrderTypeMarket,
		Side: model.SideYes, Quantity: 10, FilledPrice: &price, Status: model.OrderFilled,
		PlacedAt: time.Now(),
	}
	require.NoError(t, s.SaveOrder(context.Background(), order))
}

func TestUpsertPositionUpsertsRow(t *testing.T) {
	s, mock := newMockStore(t)
	mock.ExpectExec("INSERT INTO positions").WillReturnResult(sqlmock.NewResult(0, 1))

	pos := &model.Position{
		ID: "p1", GameID: "g1", MarketTicker: "T1", Side: model.SideYes, Quantity: 10,
		AvgEntryPrice: decimal.NewFromInt(50), TotalCost: decimal.NewFromInt(500),
		IsOpen: true, OpenedAt: time.Now(), UpdatedAt: time.Now(),
	}
	require.NoError(t, s.UpsertPosition(context.Background(), pos))
}

func TestStrategyStateRoundTrip(t *testing.T) {
	s, mock := newMockStore(t)
	mock.ExpectExec("INSERT INTO strategies").WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, s.SaveStrategyState(context.Background(), StrategyState{ID: "sl1", Type: "sharp_line", Enabled: true}))

	rows := sqlmock.NewRows([]string{"id", "type", "enabled", "config", "updated_at"}).
		AddRow("sl1", "sharp_line", true, []byte(`{}`), time.Now())
	mock.ExpectQuery("SELECT id, type, enabled, config, updated_at FROM strategies WHERE").WithArgs("sl1").WillReturnRows(rows)

	state, err := s.GetStrategyState(context.Background(), "sl1")
	require.NoError(t, err)
	assert.Equal(t, "sharp_line", state.Type)
	assert.True(t, state.Enabled)
}

func TestListStrategyStatesReturnsAll(t *testing.T) {
	s, mock := newMockStore(t)
	rows := sqlmock.NewRows([]string{"id", "type", "enabled", "config", "updated_at"}).
		AddRow("sl1", "sharp_line", true, []byte(`{}`), time.Now()).
		AddRow("m1", "momentum", false, []byte(`{}`), time.Now())
	mock.ExpectQuery("SELECT id, type, enabled, config, updated_at FROM strategies$").WillReturnRows(rows)

	states, err := s.ListStrategyStates(context.Background())
	require.NoError(t, err)
	assert.Len(t, states, 2)
}
