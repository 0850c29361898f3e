// Package store is the Postgres-backed persistence layer: the durable
// record load_game reads from, and the append/upsert targets for every
// table spec.md §6 names (games, kalshi_markets, nba_live_data,
// betting_odds, orderbook_snapshots, simulated_orders, positions,
// strategies). No teacher persistence layer exists to ground this on (the
// teacher keeps everything in-memory); the jmoiron/sqlx + lib/pq stack is
// adopted from other_examples/manifests/sawpanic-cryptorun/go.mod, the
// closest pack example to a server persisting relational trading state.
package store

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/rs/zerolog"
)

// Config holds the Postgres connection string and pool tuning.
type Config struct {
	DSN             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// DefaultConfig returns conservative pool defaults for a single-process
// paper-trading engine.
func DefaultConfig() Config {
	return Config{MaxOpenConns: 10, MaxIdleConns: 5, ConnMaxLifetime: 30 * time.Minute}
}

// Store wraps a *sqlx.DB with the queries every other component's narrow
// Store interface needs (pkg/aggregator.Store, pkg/execution.Store, and
// the control surface's strategy/game admin reads).
type Store struct {
	db  *sqlx.DB
	log zerolog.Logger
}

// Open connects to Postgres and applies the schema.
func Open(ctx context.Context, cfg Config, log zerolog.Logger) (*Store, error) {
	db, err := sqlx.ConnectContext(ctx, "postgres", cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("store: connect: %w", err)
	}
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	s := &Store{db: db, log: log.With().Str("component", "store").Logger()}
	if err := s.migrate(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: migrate: %w", err)
	}
	return s, nil
}

// Close releases the underlying connection pool.
func (s *Store) Close() error { return s.db.Close() }

// Ping is the health check's database liveness probe.
func (s *Store) Ping(ctx context.Context) error { return s.db.PingContext(ctx) }

const schema = `
CREATE TABLE IF NOT EXISTS games (
	game_id         TEXT PRIMARY KEY,
	event_ticker    TEXT NOT NULL,
	home_team       TEXT NOT NULL,
	away_team       TEXT NOT NULL,
	scheduled_start TIMESTAMPTZ NOT NULL,
	status          TEXT NOT NULL,
	live_sports_id  TEXT NOT NULL DEFAULT '',
	updated_at      TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS kalshi_markets (
	ticker       TEXT PRIMARY KEY,
	game_id      TEXT NOT NULL REFERENCES games(game_id) ON DELETE CASCADE,
	market_type  TEXT NOT NULL,
	strike_value NUMERIC,
	team_side    TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS idx_kalshi_markets_game ON kalshi_markets(game_id);

CREATE TABLE IF NOT EXISTS nba_live_data (
	id             BIGSERIAL PRIMARY KEY,
	game_id        TEXT NOT NULL,
	status         TEXT NOT NULL,
	period         INT NOT NULL,
	time_remaining TEXT NOT NULL DEFAULT '',
	home_score     INT NOT NULL,
	away_score     INT NOT NULL,
	recorded_at    TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS idx_nba_live_data_game ON nba_live_data(game_id, recorded_at DESC);

CREATE TABLE IF NOT EXISTS betting_odds (
	id                BIGSERIAL PRIMARY KEY,
	game_id           TEXT NOT NULL,
	vendor            TEXT NOT NULL,
	home_moneyline    INT,
	away_moneyline    INT,
	spread_value      NUMERIC,
	spread_home_odds  INT,
	spread_away_odds  INT,
	total_value       NUMERIC,
	over_odds         INT,
	under_odds        INT,
	recorded_at       TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS idx_betting_odds_game ON betting_odds(game_id, recorded_at DESC);

CREATE TABLE IF NOT EXISTS orderbook_snapshots (
	id           BIGSERIAL PRIMARY KEY,
	ticker       TEXT NOT NULL,
	yes_bid      NUMERIC NOT NULL,
	yes_ask      NUMERIC NOT NULL,
	no_bid       NUMERIC NOT NULL,
	no_ask       NUMERIC NOT NULL,
	recorded_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS idx_orderbook_snapshots_ticker ON orderbook_snapshots(ticker, recorded_at DESC);

CREATE TABLE IF NOT EXISTS simulated_orders (
	id             TEXT PRIMARY KEY,
	strategy_id    TEXT NOT NULL DEFAULT '',
	game_id        TEXT NOT NULL,
	market_ticker  TEXT NOT NULL,
	order_type     TEXT NOT NULL,
	side           TEXT NOT NULL,
	quantity       INT NOT NULL,
	filled_price   NUMERIC,
	status         TEXT NOT NULL,
	placed_at      TIMESTAMPTZ NOT NULL,
	filled_at      TIMESTAMPTZ,
	reject_reason  TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS idx_simulated_orders_game ON simulated_orders(game_id);

CREATE TABLE IF NOT EXISTS positions (
	id              TEXT PRIMARY KEY,
	game_id         TEXT NOT NULL,
	market_ticker   TEXT NOT NULL,
	side            TEXT NOT NULL,
	quantity        INT NOT NULL,
	avg_entry_price NUMERIC NOT NULL,
	total_cost      NUMERIC NOT NULL,
	unrealized_pnl  NUMERIC NOT NULL DEFAULT 0,
	realized_pnl    NUMERIC NOT NULL DEFAULT 0,
	is_open         BOOLEAN NOT NULL,
	opened_at       TIMESTAMPTZ NOT NULL,
	updated_at      TIMESTAMPTZ NOT NULL,
	closed_at       TIMESTAMPTZ,
	UNIQUE (market_ticker, side)
);
CREATE INDEX IF NOT EXISTS idx_positions_game ON positions(game_id);

CREATE TABLE IF NOT EXISTS strategies (
	id          TEXT PRIMARY KEY,
	type        TEXT NOT NULL,
	enabled     BOOLEAN NOT NULL DEFAULT false,
	config      JSONB NOT NULL DEFAULT '{}',
	updated_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);
`

func (s *Store) migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, schema)
	return err
}
