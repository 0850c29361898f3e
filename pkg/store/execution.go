package store

import (
	"context"
	"fmt"

	"github.com/phenomenon0/kalshi-paper-trader/pkg/model"
)

// SaveOrder implements pkg/execution.Store: every Filled or Cancelled
// order is persisted (spec.md §4.5's persistence semantics).
func (s *Store) SaveOrder(ctx context.Context, order *model.Order) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO simulated_orders (id, strategy_id, game_id, market_ticker, order_type, side,
			quantity, filled_price, status, placed_at, filled_at, reject_reason)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (id) DO UPDATE SET
			filled_price = EXCLUDED.filled_price,
			status = EXCLUDED.status,
			filled_at = EXCLUDED.filled_at,
			reject_reason = EXCLUDED.reject_reason`,
		order.ID, order.StrategyID, order.GameID, order.MarketTicker, string(order.OrderType), string(order.Side),
		order.Quantity, order.FilledPrice, string(order.Status), order.PlacedAt, order.FilledAt, order.RejectReason)
	if err != nil {
		return fmt.Errorf("store: save order: %w", err)
	}
	return nil
}

// UpsertPosition implements pkg/execution.Store: position rows are keyed
// by position id, with a unique constraint on (market_ticker, side)
// matching pkg/execution's in-memory keying.
func (s *Store) UpsertPosition(ctx context.Context, position *model.Position) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO positions (id, game_id, market_ticker, side, quantity, avg_entry_price,
			total_cost, unrealized_pnl, realized_pnl, is_open, opened_at, updated_at, closed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		ON CONFLICT (market_ticker, side) DO UPDATE SET
			quantity = EXCLUDED.quantity,
			avg_entry_price = EXCLUDED.avg_entry_price,
			total_cost = EXCLUDED.total_cost,
			unrealized_pnl = EXCLUDED.unrealized_pnl,
			realized_pnl = EXCLUDED.realized_pnl,
			is_open = EXCLUDED.is_open,
			updated_at = EXCLUDED.updated_at,
			closed_at = EXCLUDED.closed_at`,
		position.ID, position.GameID, position.MarketTicker, string(position.Side), position.Quantity,
		position.AvgEntryPrice, position.TotalCost, position.UnrealizedPnL, position.RealizedPnL,
		position.IsOpen, position.OpenedAt, position.UpdatedAt, position.ClosedAt)
	if err != nil {
		return fmt.Errorf("store: upsert position: %w", err)
	}
	return nil
}
