package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// PolyMarket is one cached prediction-market row.
type PolyMarket struct {
	ConditionID string    `json:"conditionId"`
	Slug        string    `json:"slug"`
	Question    string    `json:"question"`
	RawHome     string    `json:"rawHome"`
	RawAway     string    `json:"rawAway"`
	NormHome    string    `json:"normHome"`
	NormAway    string    `json:"normAway"`
	Sport       string    `json:"sport"`
	League      string    `json:"league"`
	Kind        string    `json:"kind"`
	YesTokenID  string    `json:"yesTokenId"`
	NoTokenID   string    `json:"noTokenId"`
	YesPrice    float64   `json:"yesPrice"`
	Volume      float64   `json:"volume"`
	Liquidity   float64   `json:"liquidity"`
	EventDate   time.Time `json:"eventDate"`
	DateSource  string    `json:"dateSource"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// UpsertPolyMarket inserts or refreshes one cached market row.
func (s *Store) UpsertPolyMarket(ctx context.Context, m PolyMarket) error {
	const q = `
		INSERT INTO poly_markets
		  (condition_id, slug, question, raw_home, raw_away, norm_home, norm_away,
		   sport, league, kind, yes_token_id, no_token_id, yes_price, volume,
		   liquidity, event_date, date_source, updated_at)
		VALUES
		  ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,now())
		ON CONFLICT (condition_id) DO UPDATE SET
		  slug         = EXCLUDED.slug,
		  question     = EXCLUDED.question,
		  raw_home     = EXCLUDED.raw_home,
		  raw_away     = EXCLUDED.raw_away,
		  norm_home    = EXCLUDED.norm_home,
		  norm_away    = EXCLUDED.norm_away,
		  sport        = EXCLUDED.sport,
		  league       = EXCLUDED.league,
		  kind         = EXCLUDED.kind,
		  yes_token_id = EXCLUDED.yes_token_id,
		  no_token_id  = EXCLUDED.no_token_id,
		  yes_price    = EXCLUDED.yes_price,
		  volume       = EXCLUDED.volume,
		  liquidity    = EXCLUDED.liquidity,
		  event_date   = EXCLUDED.event_date,
		  date_source  = EXCLUDED.date_source,
		  updated_at   = now()
	`
	var eventDate interface{}
	if !m.EventDate.IsZero() {
		eventDate = m.EventDate
	}
	if _, err := s.db.ExecContext(ctx, q,
		m.ConditionID, m.Slug, m.Question, m.RawHome, m.RawAway, m.NormHome, m.NormAway,
		m.Sport, m.League, m.Kind, m.YesTokenID, m.NoTokenID, m.YesPrice, m.Volume,
		m.Liquidity, eventDate, m.DateSource,
	); err != nil {
		return fmt.Errorf("upsert poly market %s: %w", m.ConditionID, err)
	}
	return nil
}

// UpdatePolyPrice overwrites the cached YES price for one token.
func (s *Store) UpdatePolyPrice(ctx context.Context, yesTokenID string, price float64) error {
	const q = `
		UPDATE poly_markets
		SET yes_price = $2, updated_at = now()
		WHERE yes_token_id = $1
	`
	if _, err := s.db.ExecContext(ctx, q, yesTokenID, price); err != nil {
		return fmt.Errorf("update poly price: %w", err)
	}
	return nil
}

// ListStaleTokens returns the YES token ids of markets whose price is
// older than maxAge, oldest first.
func (s *Store) ListStaleTokens(ctx context.Context, maxAge time.Duration, limit int) ([]string, error) {
	const q = `
		SELECT yes_token_id
		FROM poly_markets
		WHERE yes_token_id <> '' AND updated_at < $1
		ORDER BY updated_at
		LIMIT $2
	`
	rows, err := s.db.QueryContext(ctx, q, time.Now().Add(-maxAge), limit)
	if err != nil {
		return nil, fmt.Errorf("list stale tokens: %w", err)
	}
	defer rows.Close()

	var tokens []string
	for rows.Next() {
		var t string
		if err := rows.Scan(&t); err != nil {
			return nil, fmt.Errorf("scan token: %w", err)
		}
		tokens = append(tokens, t)
	}
	return tokens, rows.Err()
}

// ListFreshMarkets returns tradeable cached markets refreshed within
// maxAge and dated inside the window.
func (s *Store) ListFreshMarkets(ctx context.Context, now time.Time, maxAge time.Duration, windowHours int) ([]PolyMarket, error) {
	const q = `
		SELECT condition_id, slug, question, raw_home, raw_away, norm_home, norm_away,
		       sport, league, kind, yes_token_id, no_token_id, yes_price, volume,
		       liquidity, COALESCE(event_date, 'epoch'::timestamptz), date_source, updated_at
		FROM poly_markets
		WHERE updated_at >= $1
		  AND event_date IS NOT NULL
		  AND event_date >= $2 AND event_date <= $3
		ORDER BY event_date
	`
	rows, err := s.db.QueryContext(ctx, q,
		now.Add(-maxAge), now, now.Add(time.Duration(windowHours)*time.Hour))
	if err != nil {
		return nil, fmt.Errorf("list fresh markets: %w", err)
	}
	defer rows.Close()

	var markets []PolyMarket
	for rows.Next() {
		var m PolyMarket
		if err := rows.Scan(
			&m.ConditionID, &m.Slug, &m.Question, &m.RawHome, &m.RawAway, &m.NormHome, &m.NormAway,
			&m.Sport, &m.League, &m.Kind, &m.YesTokenID, &m.NoTokenID, &m.YesPrice, &m.Volume,
			&m.Liquidity, &m.EventDate, &m.DateSource, &m.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan poly market: %w", err)
		}
		markets = append(markets, m)
	}
	return markets, rows.Err()
}

// RecordMatchFailure logs a market that could not be classified or
// matched, for later inspection.
func (s *Store) RecordMatchFailure(ctx context.Context, slug, question, reason string) error {
	const q = `
		INSERT INTO match_failures (slug, question, reason, seen_at)
		VALUES ($1,$2,$3,now())
	`
	if _, err := s.db.ExecContext(ctx, q, slug, question, reason); err != nil {
		return fmt.Errorf("record match failure: %w", err)
	}
	return nil
}

// GetPolyMarket fetches one cached market, or nil when absent.
func (s *Store) GetPolyMarket(ctx context.Context, conditionID string) (*PolyMarket, error) {
	const q = `
		SELECT condition_id, slug, question, raw_home, raw_away, norm_home, norm_away,
		       sport, league, kind, yes_token_id, no_token_id, yes_price, volume,
		       liquidity, COALESCE(event_date, 'epoch'::timestamptz), date_source, updated_at
		FROM poly_markets
		WHERE condition_id = $1
	`
	var m PolyMarket
	err := s.db.QueryRowContext(ctx, q, conditionID).Scan(
		&m.ConditionID, &m.Slug, &m.Question, &m.RawHome, &m.RawAway, &m.NormHome, &m.NormAway,
		&m.Sport, &m.League, &m.Kind, &m.YesTokenID, &m.NoTokenID, &m.YesPrice, &m.Volume,
		&m.Liquidity, &m.EventDate, &m.DateSource, &m.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get poly market %s: %w", conditionID, err)
	}
	return &m, nil
}
