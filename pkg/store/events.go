package store

import (
	"context"
	"fmt"
	"time"
)

// Event is one bookmaker-side game row.
type Event struct {
	ID           string    `json:"id"`
	Sport        string    `json:"sport"`
	League       string    `json:"league"`
	HomeTeam     string    `json:"homeTeam"`
	AwayTeam     string    `json:"awayTeam"`
	CommenceTime time.Time `json:"commenceTime"`
	Status       string    `json:"status"`
}

// Snapshot is one append-only odds capture.
type Snapshot struct {
	EventID    string    `json:"eventId"`
	Bookmaker  string    `json:"bookmaker"`
	Market     string    `json:"market"`
	Selection  string    `json:"selection"`
	Price      float64   `json:"price"`
	CapturedAt time.Time `json:"capturedAt"`
}

// UpsertEvent inserts or refreshes an event keyed by provider id.
func (s *Store) UpsertEvent(ctx context.Context, e Event) error {
	const q = `
		INSERT INTO events
		  (id, sport, league, home_team, away_team, commence_time, status, updated_at)
		VALUES
		  ($1,$2,$3,$4,$5,$6,$7,now())
		ON CONFLICT (id) DO UPDATE SET
		  sport         = EXCLUDED.sport,
		  league        = EXCLUDED.league,
		  home_team     = EXCLUDED.home_team,
		  away_team     = EXCLUDED.away_team,
		  commence_time = EXCLUDED.commence_time,
		  status        = EXCLUDED.status,
		  updated_at    = now()
	`
	if _, err := s.db.ExecContext(ctx, q,
		e.ID, e.Sport, e.League, e.HomeTeam, e.AwayTeam, e.CommenceTime, e.Status,
	); err != nil {
		return fmt.Errorf("upsert event %s: %w", e.ID, err)
	}
	return nil
}

// InsertSnapshot appends one odds capture. Snapshots are never updated.
func (s *Store) InsertSnapshot(ctx context.Context, snap Snapshot) error {
	const q = `
		INSERT INTO market_snapshots
		  (event_id, bookmaker, market, selection, price, captured_at)
		VALUES
		  ($1,$2,$3,$4,$5,$6)
	`
	if _, err := s.db.ExecContext(ctx, q,
		snap.EventID, snap.Bookmaker, snap.Market, snap.Selection, snap.Price, snap.CapturedAt,
	); err != nil {
		return fmt.Errorf("insert snapshot: %w", err)
	}
	return nil
}

// ListUpcomingEvents returns events commencing inside the window.
func (s *Store) ListUpcomingEvents(ctx context.Context, now time.Time, windowHours int) ([]Event, error) {
	const q = `
		SELECT id, sport, league, home_team, away_team, commence_time, status
		FROM events
		WHERE commence_time >= $1 AND commence_time <= $2
		ORDER BY commence_time
	`
	rows, err := s.db.QueryContext(ctx, q, now, now.Add(time.Duration(windowHours)*time.Hour))
	if err != nil {
		return nil, fmt.Errorf("list upcoming events: %w", err)
	}
	defer rows.Close()

	var events []Event
	for rows.Next() {
		var e Event
		if err := rows.Scan(&e.ID, &e.Sport, &e.League, &e.HomeTeam, &e.AwayTeam, &e.CommenceTime, &e.Status); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		events = append(events, e)
	}
	return events, rows.Err()
}
