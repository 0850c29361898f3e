package store

import (
	"context"
	"fmt"

	"github.com/phenomenon0/kalshi-paper-trader/pkg/model"
)

// SaveOrderbookSnapshot appends one market's top-of-book to the
// orderbook_snapshots history table. Nothing in this module calls it:
// pkg/runtime's Aggregator subscriber does not persist orderbook history.
func (s *Store) SaveOrderbookSnapshot(ctx context.Context, ticker string, ob *model.OrderbookState) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO orderbook_snapshots (ticker, yes_bid, yes_ask, no_bid, no_ask, recorded_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		ticker, ob.YesBid, ob.YesAsk, ob.NoBid, ob.NoAsk, ob.LastUpdated)
	if err != nil {
		return fmt.Errorf("store: save orderbook snapshot: %w", err)
	}
	return nil
}
