package store

import (
	"context"
	"database/sql"
	"fmt"
)

// UpsertTeamMapping records a normalized name to canonical name mapping.
func (s *Store) UpsertTeamMapping(ctx context.Context, normName, canonical, sport string) error {
	const q = `
		INSERT INTO team_mappings (norm_name, canonical, sport)
		VALUES ($1,$2,$3)
		ON CONFLICT (norm_name) DO UPDATE SET
		  canonical = EXCLUDED.canonical,
		  sport     = EXCLUDED.sport
	`
	if _, err := s.db.ExecContext(ctx, q, normName, canonical, sport); err != nil {
		return fmt.Errorf("upsert team mapping %s: %w", normName, err)
	}
	return nil
}

// ListTeamMappings returns every manual alias override, keyed by
// normalized name.
func (s *Store) ListTeamMappings(ctx context.Context) (map[string]string, error) {
	const q = `SELECT norm_name, canonical FROM team_mappings`

	rows, err := s.db.QueryContext(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("list team mappings: %w", err)
	}
	defer rows.Close()

	mappings := make(map[string]string)
	for rows.Next() {
		var norm, canonical string
		if err := rows.Scan(&norm, &canonical); err != nil {
			return nil, fmt.Errorf("scan team mapping: %w", err)
		}
		mappings[norm] = canonical
	}
	return mappings, rows.Err()
}

// LookupTeamMapping returns the canonical name for a normalized name,
// or "" when unmapped.
func (s *Store) LookupTeamMapping(ctx context.Context, normName string) (string, error) {
	const q = `SELECT canonical FROM team_mappings WHERE norm_name = $1`

	var canonical string
	err := s.db.QueryRowContext(ctx, q, normName).Scan(&canonical)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("lookup team mapping %s: %w", normName, err)
	}
	return canonical, nil
}
