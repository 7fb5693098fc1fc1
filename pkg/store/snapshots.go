package store

import (
	"context"
	"fmt"
)

// LatestH2HPrices returns the newest h2h price per bookmaker and
// selection for one event: bookmaker -> selection -> decimal odds.
func (s *Store) LatestH2HPrices(ctx context.Context, eventID string) (map[string]map[string]float64, error) {
	const q = `
		SELECT DISTINCT ON (bookmaker, selection) bookmaker, selection, price
		FROM market_snapshots
		WHERE event_id = $1 AND market = 'h2h'
		ORDER BY bookmaker, selection, captured_at DESC
	`
	rows, err := s.db.QueryContext(ctx, q, eventID)
	if err != nil {
		return nil, fmt.Errorf("latest h2h prices %s: %w", eventID, err)
	}
	defer rows.Close()

	prices := make(map[string]map[string]float64)
	for rows.Next() {
		var book, selection string
		var price float64
		if err := rows.Scan(&book, &selection, &price); err != nil {
			return nil, fmt.Errorf("scan h2h price: %w", err)
		}
		if prices[book] == nil {
			prices[book] = make(map[string]float64)
		}
		prices[book][selection] = price
	}
	return prices, rows.Err()
}
