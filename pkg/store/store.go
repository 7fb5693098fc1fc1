// Package store persists events, market snapshots, the prediction-market
// cache, watch states, and the bet log in Postgres. Every write is an
// independent per-row upsert so a partially failed sync leaves prior
// rows intact.
package store

import (
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"
)

// Store wraps the Postgres connection.
type Store struct {
	db *sql.DB
}

// Open connects to Postgres and verifies the connection.
func Open(dsn string) (*Store, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return &Store{db: db}, nil
}

// NewWithDB wraps an existing connection, mainly for tests.
func NewWithDB(db *sql.DB) *Store {
	return &Store{db: db}
}

// Close closes the underlying connection.
func (s *Store) Close() error {
	return s.db.Close()
}

const schema = `
CREATE TABLE IF NOT EXISTS events (
	id            TEXT PRIMARY KEY,
	sport         TEXT NOT NULL,
	league        TEXT NOT NULL DEFAULT '',
	home_team     TEXT NOT NULL,
	away_team     TEXT NOT NULL,
	commence_time TIMESTAMPTZ NOT NULL,
	status        TEXT NOT NULL DEFAULT 'upcoming',
	updated_at    TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS market_snapshots (
	id          BIGSERIAL PRIMARY KEY,
	event_id    TEXT NOT NULL,
	bookmaker   TEXT NOT NULL,
	market      TEXT NOT NULL,
	selection   TEXT NOT NULL,
	price       DOUBLE PRECISION NOT NULL,
	captured_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_snapshots_event ON market_snapshots (event_id, captured_at);

CREATE TABLE IF NOT EXISTS poly_markets (
	condition_id TEXT PRIMARY KEY,
	slug         TEXT NOT NULL DEFAULT '',
	question     TEXT NOT NULL DEFAULT '',
	raw_home     TEXT NOT NULL DEFAULT '',
	raw_away     TEXT NOT NULL DEFAULT '',
	norm_home    TEXT NOT NULL DEFAULT '',
	norm_away    TEXT NOT NULL DEFAULT '',
	sport        TEXT NOT NULL DEFAULT '',
	league       TEXT NOT NULL DEFAULT '',
	kind         TEXT NOT NULL DEFAULT '',
	yes_token_id TEXT NOT NULL DEFAULT '',
	no_token_id  TEXT NOT NULL DEFAULT '',
	yes_price    DOUBLE PRECISION NOT NULL DEFAULT 0,
	volume       DOUBLE PRECISION NOT NULL DEFAULT 0,
	liquidity    DOUBLE PRECISION NOT NULL DEFAULT 0,
	event_date   TIMESTAMPTZ,
	date_source  TEXT NOT NULL DEFAULT 'none',
	updated_at   TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS watch_states (
	condition_id   TEXT PRIMARY KEY,
	state          TEXT NOT NULL,
	baseline_price DOUBLE PRECISION NOT NULL,
	last_price     DOUBLE PRECISION NOT NULL,
	move_count     INT NOT NULL DEFAULT 0,
	entered_at     TIMESTAMPTZ NOT NULL,
	updated_at     TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS team_mappings (
	norm_name TEXT PRIMARY KEY,
	canonical TEXT NOT NULL,
	sport     TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS match_failures (
	id       BIGSERIAL PRIMARY KEY,
	slug     TEXT NOT NULL DEFAULT '',
	question TEXT NOT NULL DEFAULT '',
	reason   TEXT NOT NULL,
	seen_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS signals (
	id             UUID PRIMARY KEY,
	condition_id   TEXT NOT NULL,
	sport          TEXT NOT NULL DEFAULT '',
	selection      TEXT NOT NULL DEFAULT '',
	bookmaker      TEXT NOT NULL DEFAULT '',
	matched_books  INT NOT NULL DEFAULT 0,
	book_odds      DOUBLE PRECISION NOT NULL,
	fair_prob      DOUBLE PRECISION NOT NULL,
	poly_price     DOUBLE PRECISION NOT NULL,
	gross_edge_pct DOUBLE PRECISION NOT NULL,
	net_edge_pct   DOUBLE PRECISION NOT NULL,
	ev_per_100     DOUBLE PRECISION NOT NULL,
	kelly_stake    NUMERIC(14,2) NOT NULL DEFAULT 0,
	confidence     INT NOT NULL DEFAULT 0,
	urgency        TEXT NOT NULL DEFAULT 'LOW',
	decision       TEXT NOT NULL DEFAULT 'NO_BET',
	event_time     TIMESTAMPTZ,
	created_at     TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_signals_created ON signals (created_at DESC);

CREATE TABLE IF NOT EXISTS bets (
	id          UUID PRIMARY KEY,
	placed_at   TIMESTAMPTZ NOT NULL DEFAULT now(),
	event_ref   TEXT NOT NULL,
	selection   TEXT NOT NULL,
	stake       NUMERIC(14,2) NOT NULL,
	price       DOUBLE PRECISION NOT NULL,
	outcome     TEXT NOT NULL DEFAULT 'pending',
	profit_loss NUMERIC(14,2) NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS scan_configs (
	name         TEXT PRIMARY KEY,
	sports       TEXT NOT NULL DEFAULT '',
	window_hours INT NOT NULL DEFAULT 48,
	max_events   INT NOT NULL DEFAULT 500,
	min_edge_pct DOUBLE PRECISION NOT NULL DEFAULT 1.5,
	updated_at   TIMESTAMPTZ NOT NULL DEFAULT now()
);
`

// Migrate creates all tables if they do not exist.
func (s *Store) Migrate() error {
	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}
