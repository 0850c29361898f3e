package store

import (
	"context"
	"fmt"

	"github.com/phenomenon0/kalshi-paper-trader/pkg/model"
)

// SaveOddsSnapshot appends one vendor's odds quote to the betting_odds
// history table. Nothing in this module calls it: pkg/aggregator.Store does
// not include it, and pkg/runtime's Aggregator subscriber does not persist
// odds history.
func (s *Store) SaveOddsSnapshot(ctx context.Context, gameID string, quote *model.OddsQuote) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO betting_odds (game_id, vendor, home_moneyline, away_moneyline, spread_value,
			spread_home_odds, spread_away_odds, total_value, over_odds, under_odds, recorded_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		gameID, quote.Vendor, quote.HomeMoneyline, quote.AwayMoneyline, quote.SpreadValue,
		quote.SpreadHomeOdds, quote.SpreadAwayOdds, quote.TotalValue, quote.OverOdds, quote.UnderOdds,
		quote.LastUpdated)
	if err != nil {
		return fmt.Errorf("store: save odds snapshot: %w", err)
	}
	return nil
}
