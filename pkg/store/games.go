package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/phenomenon0/kalshi-paper-trader/pkg/aggregator"
	"github.com/phenomenon0/kalshi-paper-trader/pkg/model"
)

// ErrNotFound is returned when a lookup by id finds no row.
var ErrNotFound = errors.New("store: not found")

type gameRow struct {
	GameID         string    `db:"game_id"`
	EventTicker    string    `db:"event_ticker"`
	HomeTeam       string    `db:"home_team"`
	AwayTeam       string    `db:"away_team"`
	ScheduledStart time.Time `db:"scheduled_start"`
	Status         string    `db:"status"`
	LiveSportsID   string    `db:"live_sports_id"`
}

type marketRow struct {
	Ticker      string           `db:"ticker"`
	MarketType  string           `db:"market_type"`
	StrikeValue *decimal.Decimal `db:"strike_value"`
	TeamSide    string           `db:"team_side"`
}

// GetGameRecord implements pkg/aggregator.Store.
func (s *Store) GetGameRecord(ctx context.Context, gameID string) (*aggregator.GameRecord, error) {
	var g gameRow
	err := s.db.GetContext(ctx, &g, `SELECT game_id, event_ticker, home_team, away_team, scheduled_start, status, live_sports_id FROM games WHERE game_id = $1`, gameID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("store: get game record: %w", err)
	}

	var markets []marketRow
	if err := s.db.SelectContext(ctx, &markets, `SELECT ticker, market_type, strike_value, team_side FROM kalshi_markets WHERE game_id = $1`, gameID); err != nil {
		return nil, fmt.Errorf("store: get markets for game: %w", err)
	}

	record := &aggregator.GameRecord{
		GameID:         g.GameID,
		EventTicker:    g.EventTicker,
		HomeTeam:       g.HomeTeam,
		AwayTeam:       g.AwayTeam,
		ScheduledStart: g.ScheduledStart,
		Status:         g.Status,
		LiveSportsID:   g.LiveSportsID,
		Markets:        make([]aggregator.MarketRecord, 0, len(markets)),
	}
	for _, m := range markets {
		record.Markets = append(record.Markets, aggregator.MarketRecord{
			Ticker:      m.Ticker,
			MarketType:  model.MarketType(m.MarketType),
			StrikeValue: m.StrikeValue,
			TeamSide:    m.TeamSide,
		})
	}
	return record, nil
}

// SaveGameRecord upserts a game and fully replaces its market set, for the
// control surface's Games admin (load/refresh).
func (s *Store) SaveGameRecord(ctx context.Context, record *aggregator.GameRecord) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("store: save game record: begin: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO games (game_id, event_ticker, home_team, away_team, scheduled_start, status, live_sports_id, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, now())
		ON CONFLICT (game_id) DO UPDATE SET
			event_ticker = EXCLUDED.event_ticker,
			home_team = EXCLUDED.home_team,
			away_team = EXCLUDED.away_team,
			scheduled_start = EXCLUDED.scheduled_start,
			status = EXCLUDED.status,
			live_sports_id = EXCLUDED.live_sports_id,
			updated_at = now()`,
		record.GameID, record.EventTicker, record.HomeTeam, record.AwayTeam,
		record.ScheduledStart, record.Status, record.LiveSportsID)
	if err != nil {
		return fmt.Errorf("store: upsert game: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM kalshi_markets WHERE game_id = $1`, record.GameID); err != nil {
		return fmt.Errorf("store: clear markets: %w", err)
	}
	for _, m := range record.Markets {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO kalshi_markets (ticker, game_id, market_type, strike_value, team_side)
			VALUES ($1, $2, $3, $4, $5)`,
			m.Ticker, record.GameID, string(m.MarketType), m.StrikeValue, m.TeamSide)
		if err != nil {
			return fmt.Errorf("store: insert market %s: %w", m.Ticker, err)
		}
	}

	return tx.Commit()
}

// DeleteGameRecord removes a game and its markets, for the control
// surface's Games admin delete endpoint.
func (s *Store) DeleteGameRecord(ctx context.Context, gameID string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM games WHERE game_id = $1`, gameID)
	if err != nil {
		return fmt.Errorf("store: delete game: %w", err)
	}
	return nil
}
