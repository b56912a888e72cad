package manifest

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"thawmark/internal/config"
	"thawmark/internal/services"
)

// claimBatch bounds how many eligible candidates one claim attempt fetches
// before retrying; under contention losing a CAS on every candidate in the
// batch means another labeler claimed them first.
const (
	claimBatch    = 16
	claimAttempts = 4
)

// storedTimeFormat is fixed width, unlike RFC3339Nano which trims trailing
// fractional zeros. Stale-claim eligibility compares claimed_at strings in
// SQL, so the stored text must order the same as the instants it encodes.
const storedTimeFormat = "2006-01-02T15:04:05.000000000Z07:00"

func formatStoredTime(t time.Time) string {
	return t.UTC().Format(storedTimeFormat)
}

// Store manages manifest persistence backed by SQLite.
type Store struct {
	db           *sql.DB
	path         string
	staleTimeout time.Duration
}

// Open initializes or connects to the manifest database and applies the schema.
func Open(cfg *config.Config) (*Store, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}

	dbPath := cfg.ManifestDBPath()
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{
		db:           db,
		path:         dbPath,
		staleTimeout: time.Duration(cfg.Manifest.StaleClaimTimeout) * time.Minute,
	}
	if err := store.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}

	return store, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Path returns the manifest database location.
func (s *Store) Path() string {
	return s.path
}

// StaleTimeout returns the configured stale-claim cutoff duration.
func (s *Store) StaleTimeout() time.Duration {
	return s.staleTimeout
}

// Seed registers UIDs from the feature inventory, leaving existing entries
// untouched. Returns the number of newly added entries.
func (s *Store) Seed(ctx context.Context, uids []string) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin seed tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	now := formatStoredTime(time.Now())
	var added int64
	for _, uid := range uids {
		uid = strings.TrimSpace(uid)
		if uid == "" {
			continue
		}
		res, err := tx.ExecContext(
			ctx,
			`INSERT OR IGNORE INTO manifest_entries (uid, status, version, created_at, updated_at)
             VALUES (?, ?, 0, ?, ?)`,
			uid,
			StatusUnassigned,
			now,
			now,
		)
		if err != nil {
			return 0, fmt.Errorf("seed uid %q: %w", uid, err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return 0, fmt.Errorf("rows affected: %w", err)
		}
		added += n
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit seed: %w", err)
	}
	return added, nil
}

// Get fetches a manifest entry by UID. Returns nil when the UID is unknown.
func (s *Store) Get(ctx context.Context, uid string) (*Entry, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+entryColumns+` FROM manifest_entries WHERE uid = ?`, uid)
	entry, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get entry: %w", err)
	}
	return entry, nil
}

// Claim atomically assigns one eligible UID to the labeler. Eligible entries
// are unassigned, or in progress with a claim older than the stale timeout
// (labeler disconnect recovery). Returns nil when no eligible UID exists.
//
// The claim is a compare-and-swap on the entry version: of any number of
// concurrent callers racing for the same UID, exactly one update matches the
// stored version and wins; the rest move on to the next candidate.
func (s *Store) Claim(ctx context.Context, labelerID string) (*Entry, error) {
	labelerID = strings.TrimSpace(labelerID)
	if labelerID == "" {
		return nil, services.Wrap(services.ErrValidation, "manifest", "claim", "labeler id required", nil)
	}

	for attempt := 0; attempt < claimAttempts; attempt++ {
		cutoff := formatStoredTime(time.Now().Add(-s.staleTimeout))
		rows, err := s.db.QueryContext(
			ctx,
			`SELECT uid, version FROM manifest_entries
             WHERE status = ? OR (status = ? AND claimed_at IS NOT NULL AND claimed_at < ?)
             ORDER BY uid LIMIT ?`,
			StatusUnassigned,
			StatusInProgress,
			cutoff,
			claimBatch,
		)
		if err != nil {
			return nil, fmt.Errorf("query claim candidates: %w", err)
		}

		type candidate struct {
			uid     string
			version int64
		}
		var candidates []candidate
		for rows.Next() {
			var c candidate
			if err := rows.Scan(&c.uid, &c.version); err != nil {
				rows.Close()
				return nil, fmt.Errorf("scan claim candidate: %w", err)
			}
			candidates = append(candidates, c)
		}
		if err := rows.Err(); err != nil {
			rows.Close()
			return nil, fmt.Errorf("iterate claim candidates: %w", err)
		}
		rows.Close()

		if len(candidates) == 0 {
			return nil, nil
		}

		now := formatStoredTime(time.Now())
		for _, c := range candidates {
			res, err := s.db.ExecContext(
				ctx,
				`UPDATE manifest_entries
                 SET status = ?, assignee = ?, claimed_at = ?, completed_at = NULL,
                     version = version + 1, updated_at = ?
                 WHERE uid = ? AND version = ?`,
				StatusInProgress,
				labelerID,
				now,
				now,
				c.uid,
				c.version,
			)
			if err != nil {
				return nil, fmt.Errorf("claim uid %q: %w", c.uid, err)
			}
			affected, err := res.RowsAffected()
			if err != nil {
				return nil, fmt.Errorf("rows affected: %w", err)
			}
			if affected == 1 {
				return s.Get(ctx, c.uid)
			}
			// CAS lost; another labeler took this candidate.
		}
	}

	return nil, nil
}

// Release reverts an in-progress claim held by the labeler back to unassigned.
// Idempotent: releasing an entry the labeler no longer holds is a no-op.
func (s *Store) Release(ctx context.Context, uid, labelerID string) error {
	now := formatStoredTime(time.Now())
	_, err := s.db.ExecContext(
		ctx,
		`UPDATE manifest_entries
         SET status = ?, assignee = NULL, claimed_at = NULL,
             version = version + 1, updated_at = ?
         WHERE uid = ? AND status = ? AND assignee = ?`,
		StatusUnassigned,
		now,
		uid,
		StatusInProgress,
		labelerID,
	)
	if err != nil {
		return fmt.Errorf("release uid %q: %w", uid, err)
	}
	return nil
}

// Commit transitions a claimed entry to a terminal status. The entry must be
// the record the caller received from Claim: commit verifies both the assignee
// and the version, and fails with the conflict sentinel when another labeler
// has taken over (stale-claim reclaim) since the claim was read. A missing row
// is an invariant violation, not a conflict.
func (s *Store) Commit(ctx context.Context, entry *Entry, status Status, outputFile string) error {
	if entry == nil {
		return services.Wrap(services.ErrValidation, "manifest", "commit", "entry required", nil)
	}
	if !status.IsTerminal() {
		return services.Wrap(services.ErrValidation, "manifest", "commit",
			fmt.Sprintf("status %q is not terminal", status), nil)
	}

	now := formatStoredTime(time.Now())
	res, err := s.db.ExecContext(
		ctx,
		`UPDATE manifest_entries
         SET status = ?, completed_at = ?, output_file = ?,
             version = version + 1, updated_at = ?
         WHERE uid = ? AND version = ? AND status = ? AND assignee = ?`,
		status,
		now,
		nullableString(outputFile),
		now,
		entry.UID,
		entry.Version,
		StatusInProgress,
		entry.Assignee,
	)
	if err != nil {
		return fmt.Errorf("commit uid %q: %w", entry.UID, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 1 {
		return nil
	}

	current, err := s.Get(ctx, entry.UID)
	if err != nil {
		return err
	}
	if current == nil {
		return services.Wrap(services.ErrNotFound, "manifest", "commit",
			fmt.Sprintf("entry %q missing", entry.UID), nil)
	}
	return services.Wrap(services.ErrConflict, "manifest", "commit",
		fmt.Sprintf("entry %q now held by %q", entry.UID, current.Assignee), nil)
}

// ReclaimStale reverts in-progress entries whose claims expired back to
// unassigned. The daemon sweep calls this so abandoned claims become claimable
// even before another labeler's Claim considers them directly.
func (s *Store) ReclaimStale(ctx context.Context) (int64, error) {
	now := time.Now().UTC()
	cutoff := formatStoredTime(now.Add(-s.staleTimeout))
	res, err := s.db.ExecContext(
		ctx,
		`UPDATE manifest_entries
         SET status = ?, assignee = NULL, claimed_at = NULL,
             version = version + 1, updated_at = ?
         WHERE status = ? AND claimed_at IS NOT NULL AND claimed_at < ?`,
		StatusUnassigned,
		formatStoredTime(now),
		StatusInProgress,
		cutoff,
	)
	if err != nil {
		return 0, fmt.Errorf("reclaim stale entries: %w", err)
	}
	return res.RowsAffected()
}

// Snapshot returns a read-only view of all entries ordered by UID.
func (s *Store) Snapshot(ctx context.Context) ([]*Entry, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+entryColumns+` FROM manifest_entries ORDER BY uid`)
	if err != nil {
		return nil, fmt.Errorf("snapshot manifest: %w", err)
	}
	defer rows.Close()

	var entries []*Entry
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

// Stats returns a count of entries grouped by status.
func (s *Store) Stats(ctx context.Context) (map[Status]int, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT status, COUNT(1) FROM manifest_entries GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("manifest stats: %w", err)
	}
	defer rows.Close()

	stats := make(map[Status]int)
	for rows.Next() {
		var status Status
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		stats[status] = count
	}
	return stats, rows.Err()
}

// Health aggregates manifest state for diagnostic output.
func (s *Store) Health(ctx context.Context) (HealthSummary, error) {
	stats, err := s.Stats(ctx)
	if err != nil {
		return HealthSummary{}, err
	}
	health := HealthSummary{}
	for status, count := range stats {
		health.Total += count
		switch status {
		case StatusUnassigned:
			health.Unassigned += count
		case StatusInProgress:
			health.InProgress += count
		case StatusCompleted:
			health.Completed += count
		case StatusSkipped:
			health.Skipped += count
		}
	}
	return health, nil
}

const entryColumns = "uid, status, assignee, claimed_at, completed_at, output_file, notes, version, created_at, updated_at"

func scanEntry(scanner interface{ Scan(dest ...any) error }) (*Entry, error) {
	var (
		uid          string
		statusStr    string
		assignee     sql.NullString
		claimedRaw   sql.NullString
		completedRaw sql.NullString
		outputFile   sql.NullString
		notes        sql.NullString
		version      int64
		createdRaw   sql.NullString
		updatedRaw   sql.NullString
	)

	if err := scanner.Scan(
		&uid,
		&statusStr,
		&assignee,
		&claimedRaw,
		&completedRaw,
		&outputFile,
		&notes,
		&version,
		&createdRaw,
		&updatedRaw,
	); err != nil {
		return nil, err
	}

	entry := &Entry{
		UID:        uid,
		Status:     Status(statusStr),
		Assignee:   assignee.String,
		OutputFile: outputFile.String,
		Notes:      notes.String,
		Version:    version,
	}
	if claimedRaw.Valid {
		if claimed, err := parseTimeString(claimedRaw.String); err == nil {
			entry.ClaimedAt = &claimed
		}
	}
	if completedRaw.Valid {
		if completed, err := parseTimeString(completedRaw.String); err == nil {
			entry.CompletedAt = &completed
		}
	}
	if created, err := parseTimeString(createdRaw.String); err == nil {
		entry.CreatedAt = created
	}
	if updated, err := parseTimeString(updatedRaw.String); err == nil {
		entry.UpdatedAt = updated
	}
	return entry, nil
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func parseTimeString(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, errors.New("empty")
	}
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02 15:04:05", value)
}
