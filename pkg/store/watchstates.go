package store

import (
	"context"
	"fmt"

	"github.com/phenomenon0/edgeboard/pkg/watch"
)

// UpsertWatchEntry persists one watch-machine entry.
func (s *Store) UpsertWatchEntry(ctx context.Context, e *watch.Entry) error {
	const q = `
		INSERT INTO watch_states
		  (condition_id, state, baseline_price, last_price, move_count, entered_at, updated_at)
		VALUES
		  ($1,$2,$3,$4,$5,$6,$7)
		ON CONFLICT (condition_id) DO UPDATE SET
		  state          = EXCLUDED.state,
		  baseline_price = EXCLUDED.baseline_price,
		  last_price     = EXCLUDED.last_price,
		  move_count     = EXCLUDED.move_count,
		  entered_at     = EXCLUDED.entered_at,
		  updated_at     = EXCLUDED.updated_at
	`
	if _, err := s.db.ExecContext(ctx, q,
		e.ConditionID, string(e.State), e.Baseline, e.LastPrice, e.MoveCount, e.EnteredAt, e.UpdatedAt,
	); err != nil {
		return fmt.Errorf("upsert watch entry %s: %w", e.ConditionID, err)
	}
	return nil
}

// InsertWatchEntryIfAbsent starts tracking a market unless any entry,
// open or terminal, already exists for it.
func (s *Store) InsertWatchEntryIfAbsent(ctx context.Context, e *watch.Entry) error {
	const q = `
		INSERT INTO watch_states
		  (condition_id, state, baseline_price, last_price, move_count, entered_at, updated_at)
		VALUES
		  ($1,$2,$3,$4,$5,$6,$7)
		ON CONFLICT (condition_id) DO NOTHING
	`
	if _, err := s.db.ExecContext(ctx, q,
		e.ConditionID, string(e.State), e.Baseline, e.LastPrice, e.MoveCount, e.EnteredAt, e.UpdatedAt,
	); err != nil {
		return fmt.Errorf("insert watch entry %s: %w", e.ConditionID, err)
	}
	return nil
}

// ListOpenWatchEntries returns entries still in a non-terminal state.
func (s *Store) ListOpenWatchEntries(ctx context.Context) ([]*watch.Entry, error) {
	const q = `
		SELECT condition_id, state, baseline_price, last_price, move_count, entered_at, updated_at
		FROM watch_states
		WHERE state IN ('watching', 'active')
	`
	rows, err := s.db.QueryContext(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("list open watch entries: %w", err)
	}
	defer rows.Close()

	var entries []*watch.Entry
	for rows.Next() {
		var e watch.Entry
		var state string
		if err := rows.Scan(&e.ConditionID, &state, &e.Baseline, &e.LastPrice, &e.MoveCount, &e.EnteredAt, &e.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan watch entry: %w", err)
		}
		e.State = watch.State(state)
		entries = append(entries, &e)
	}
	return entries, rows.Err()
}
