package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// StrategyState is the persisted row backing the control surface's
// strategy CRUD: which instances are loaded, their type, whether they're
// enabled, and their last-applied config (opaque JSON, since each
// strategy type's config shape differs).
type StrategyState struct {
	ID        string
	Type      string
	Enabled   bool
	Config    json.RawMessage
	UpdatedAt time.Time
}

type strategyRow struct {
	ID        string          `db:"id"`
	Type      string          `db:"type"`
	Enabled   bool            `db:"enabled"`
	Config    json.RawMessage `db:"config"`
	UpdatedAt time.Time       `db:"updated_at"`
}

// SaveStrategyState upserts a strategy instance's admin-visible state.
func (s *Store) SaveStrategyState(ctx context.Context, state StrategyState) error {
	cfg := state.Config
	if cfg == nil {
		cfg = json.RawMessage("{}")
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO strategies (id, type, enabled, config, updated_at)
		VALUES ($1, $2, $3, $4, now())
		ON CONFLICT (id) DO UPDATE SET
			type = EXCLUDED.type,
			enabled = EXCLUDED.enabled,
			config = EXCLUDED.config,
			updated_at = now()`,
		state.ID, state.Type, state.Enabled, []byte(cfg))
	if err != nil {
		return fmt.Errorf("store: save strategy state: %w", err)
	}
	return nil
}

// GetStrategyState returns one persisted strategy instance's state.
func (s *Store) GetStrategyState(ctx context.Context, id string) (*StrategyState, error) {
	var row strategyRow
	err := s.db.GetContext(ctx, &row, `SELECT id, type, enabled, config, updated_at FROM strategies WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("store: get strategy state: %w", err)
	}
	return &StrategyState{ID: row.ID, Type: row.Type, Enabled: row.Enabled, Config: row.Config, UpdatedAt: row.UpdatedAt}, nil
}

// ListStrategyStates returns every persisted strategy instance.
func (s *Store) ListStrategyStates(ctx context.Context) ([]StrategyState, error) {
	var rows []strategyRow
	if err := s.db.SelectContext(ctx, &rows, `SELECT id, type, enabled, config, updated_at FROM strategies`); err != nil {
		return nil, fmt.Errorf("store: list strategy states: %w", err)
	}
	out := make([]StrategyState, 0, len(rows))
	for _, r := range rows {
		out = append(out, StrategyState{ID: r.ID, Type: r.Type, Enabled: r.Enabled, Config: r.Config, UpdatedAt: r.UpdatedAt})
	}
	return out, nil
}

// DeleteStrategyState removes a persisted strategy instance.
func (s *Store) DeleteStrategyState(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM strategies WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("store: delete strategy state: %w", err)
	}
	return nil
}
