package store

import (
	"context"
	"database/sql"
	"fmt"
)

// FreshnessToken returns the stored conditional-fetch token for a resource,
// or "" when none is recorded yet.
func (s *Store) FreshnessToken(ctx context.Context, resourceID string) (string, error) {
	var token string
	err := s.DB.QueryRowContext(ctx,
		`SELECT freshness_token FROM api_sync WHERE resource_id = ?`, resourceID).Scan(&token)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("freshness token %s: %w", resourceID, err)
	}
	return token, nil
}

// SetFreshnessToken records the token returned by a fresh fetch. An empty
// token is a no-op: overwriting a good baseline with nothing would force a
// full refetch next cycle. Callers invoke this only after the corresponding
// data write has committed.
func (s *Store) SetFreshnessToken(ctx context.Context, resourceID, token string) error {
	if token == "" {
		return nil
	}
	_, err := s.DB.ExecContext(ctx,
		`INSERT OR REPLACE INTO api_sync (resource_id, freshness_token) VALUES (?, ?)`,
		resourceID, token)
	if err != nil {
		return fmt.Errorf("set freshness token %s: %w", resourceID, err)
	}
	return nil
}

// Setting returns a durable process setting, or def when unset.
func (s *Store) Setting(ctx context.Context, key, def string) (string, error) {
	var value string
	err := s.DB.QueryRowContext(ctx,
		`SELECT value FROM settings WHERE key = ?`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return def, nil
	}
	if err != nil {
		return "", fmt.Errorf("setting %s: %w", key, err)
	}
	return value, nil
}

// SetSetting updates or creates a durable process setting.
func (s *Store) SetSetting(ctx context.Context, key, value string) error {
	_, err := s.DB.ExecContext(ctx,
		`INSERT OR REPLACE INTO settings (key, value) VALUES (?, ?)`, key, value)
	if err != nil {
		return fmt.Errorf("set setting %s: %w", key, err)
	}
	return nil
}
