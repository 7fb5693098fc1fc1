package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"
)

// ScanConfig is a named, persisted scan preset.
type ScanConfig struct {
	Name        string    `json:"name"`
	Sports      []string  `json:"sports"`
	WindowHours int       `json:"windowHours"`
	MaxEvents   int       `json:"maxEvents"`
	MinEdgePct  float64   `json:"minEdgePct"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// UpsertScanConfig saves a named scan preset.
func (s *Store) UpsertScanConfig(ctx context.Context, c ScanConfig) error {
	const q = `
		INSERT INTO scan_configs (name, sports, window_hours, max_events, min_edge_pct, updated_at)
		VALUES ($1,$2,$3,$4,$5,now())
		ON CONFLICT (name) DO UPDATE SET
		  sports       = EXCLUDED.sports,
		  window_hours = EXCLUDED.window_hours,
		  max_events   = EXCLUDED.max_events,
		  min_edge_pct = EXCLUDED.min_edge_pct,
		  updated_at   = now()
	`
	if _, err := s.db.ExecContext(ctx, q,
		c.Name, strings.Join(c.Sports, ","), c.WindowHours, c.MaxEvents, c.MinEdgePct,
	); err != nil {
		return fmt.Errorf("upsert scan config %s: %w", c.Name, err)
	}
	return nil
}

// GetScanConfig loads a named preset, or nil when absent.
func (s *Store) GetScanConfig(ctx context.Context, name string) (*ScanConfig, error) {
	const q = `
		SELECT name, sports, window_hours, max_events, min_edge_pct, updated_at
		FROM scan_configs
		WHERE name = $1
	`
	var c ScanConfig
	var sports string
	err := s.db.QueryRowContext(ctx, q, name).Scan(
		&c.Name, &sports, &c.WindowHours, &c.MaxEvents, &c.MinEdgePct, &c.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get scan config %s: %w", name, err)
	}
	if sports != "" {
		c.Sports = strings.Split(sports, ",")
	}
	return &c, nil
}
