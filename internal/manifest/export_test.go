package manifest

import (
	"context"
	"fmt"
	"time"
)

// BackdateClaim ages an in-progress claim so tests can exercise the stale
// timeout without waiting. Versions are left untouched; only the wall-clock
// claim time moves.
func (s *Store) BackdateClaim(ctx context.Context, uid string, when time.Time) error {
	_, err := s.db.ExecContext(
		ctx,
		`UPDATE manifest_entries SET claimed_at = ? WHERE uid = ?`,
		formatStoredTime(when),
		uid,
	)
	if err != nil {
		return fmt.Errorf("backdate claim for %q: %w", uid, err)
	}
	return nil
}

// RawClaimedAt returns the claimed_at column text exactly as stored.
func (s *Store) RawClaimedAt(ctx context.Context, uid string) (string, error) {
	var raw string
	err := s.db.QueryRowContext(ctx,
		`SELECT claimed_at FROM manifest_entries WHERE uid = ?`, uid).Scan(&raw)
	if err != nil {
		return "", fmt.Errorf("read claimed_at for %q: %w", uid, err)
	}
	return raw, nil
}
