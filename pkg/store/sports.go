package store

import (
	"context"
	"fmt"

	"github.com/phenomenon0/kalshi-paper-trader/pkg/model"
)

// SaveLiveSportsSnapshot implements pkg/aggregator.Store: append-only
// history of scoreboard snapshots for a game.
func (s *Store) SaveLiveSportsSnapshot(ctx context.Context, gameID string, snapshot *model.LiveSportsState) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO nba_live_data (game_id, status, period, time_remaining, home_score, away_score, recorded_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		gameID, snapshot.Status, snapshot.Period, snapshot.TimeRemaining,
		snapshot.HomeScore, snapshot.AwayScore, snapshot.LastUpdated)
	if err != nil {
		return fmt.Errorf("store: save live sports snapshot: %w", err)
	}
	return nil
}
