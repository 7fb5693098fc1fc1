package store

import (
	"context"
	"fmt"

	"github.com/phenomenon0/edgeboard/pkg/edge"
)

// InsertSignal persists one scored signal.
func (s *Store) InsertSignal(ctx context.Context, sig *edge.Signal) error {
	const q = `
		INSERT INTO signals
		  (id, condition_id, sport, selection, bookmaker, matched_books, book_odds,
		   fair_prob, poly_price, gross_edge_pct, net_edge_pct, ev_per_100,
		   kelly_stake, confidence, urgency, decision, event_time, created_at)
		VALUES
		  ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18)
	`
	if _, err := s.db.ExecContext(ctx, q,
		sig.ID, sig.ConditionID, sig.Sport, sig.Selection, sig.Bookmaker,
		sig.MatchedBooks, sig.BookOdds, sig.FairProb, sig.PolyPrice,
		sig.GrossEdgePct, sig.NetEdgePct, sig.EVPer100, sig.KellyStake,
		sig.Confidence, string(sig.Urgency), string(sig.Decision),
		sig.EventTime, sig.CreatedAt,
	); err != nil {
		return fmt.Errorf("insert signal %s: %w", sig.ID, err)
	}
	return nil
}

// ListRecentSignals returns the newest signals first.
func (s *Store) ListRecentSignals(ctx context.Context, limit int) ([]*edge.Signal, error) {
	if limit <= 0 {
		limit = 50
	}
	const q = `
		SELECT id, condition_id, sport, selection, bookmaker, matched_books, book_odds,
		       fair_prob, poly_price, gross_edge_pct, net_edge_pct, ev_per_100,
		       kelly_stake, confidence, urgency, decision, event_time, created_at
		FROM signals
		ORDER BY created_at DESC
		LIMIT $1
	`
	rows, err := s.db.QueryContext(ctx, q, limit)
	if err != nil {
		return nil, fmt.Errorf("list recent signals: %w", err)
	}
	defer rows.Close()

	var signals []*edge.Signal
	for rows.Next() {
		var sig edge.Signal
		var urgency, decision string
		if err := rows.Scan(
			&sig.ID, &sig.ConditionID, &sig.Sport, &sig.Selection, &sig.Bookmaker,
			&sig.MatchedBooks, &sig.BookOdds, &sig.FairProb, &sig.PolyPrice,
			&sig.GrossEdgePct, &sig.NetEdgePct, &sig.EVPer100, &sig.KellyStake,
			&sig.Confidence, &urgency, &decision, &sig.EventTime, &sig.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan signal: %w", err)
		}
		sig.Urgency = edge.Urgency(urgency)
		sig.Decision = edge.Decision(decision)
		signals = append(signals, &sig)
	}
	return signals, rows.Err()
}
