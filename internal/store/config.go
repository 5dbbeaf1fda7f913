package store

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
)

// GetConfigValue reads a single operator-tunable setting from the config
// table (e.g. a guardrail_override proposal's applied threshold). Returns
// ("", false, nil) if unset.
func (s *Store) GetConfigValue(ctx context.Context, key string) (string, bool, error) {
	var val string
	err := s.pool.QueryRow(ctx, `SELECT value FROM config WHERE key = $1`, key).Scan(&val)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", false, nil
		}
		return "", false, err
	}
	return val, true, nil
}

// SetConfigValue upserts an operator-tunable setting, used by approved
// threshold_adjustment and guardrail_override proposals.
func (s *Store) SetConfigValue(ctx context.Context, key, value string) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO config (key, value, updated_at) VALUES ($1, $2, now())
		ON CONFLICT (key) DO UPDATE SET value = $2, updated_at = now()`, key, value)
	return err
}

// AllConfigValues returns the full operator-tunable config table, used by
// the /admin/status endpoint to show effective overrides.
func (s *Store) AllConfigValues(ctx context.Context) (map[string]string, error) {
	rows, err := s.pool.Query(ctx, `SELECT key, value FROM config`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := map[string]string{}
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return nil, err
		}
		out[k] = v
	}
	return out, rows.Err()
}
