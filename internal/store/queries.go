package store

import (
	"fmt"
	"time"
)

// InsertReloadEvents journals a batch of reload events in one transaction.
func (s *Store) InsertReloadEvents(records []ReloadRecord) error {
	if len(records) == 0 {
		return nil
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	query := `
		INSERT INTO reload_events (watcher, kind, path, recorded_at)
		VALUES (?, ?, ?, ?)
	`

	stmt, err := tx.Prepare(query)
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, r := range records {
		_, err := stmt.Exec(
			r.Watcher,
			r.Kind,
			r.Path,
			r.RecordedAt.UTC().Format(time.RFC3339Nano),
		)
		if err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to insert reload event: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit reload events: %w", err)
	}

	return nil
}

// RecentReloadEvents returns the newest journal entries, most recent first.
func (s *Store) RecentReloadEvents(limit int) ([]ReloadRecord, error) {
	query := `
		SELECT id, watcher, kind, path, recorded_at
		FROM reload_events
		ORDER BY recorded_at DESC, id DESC
		LIMIT ?
	`

	rows, err := s.db.Query(query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list reload events: %w", err)
	}
	defer rows.Close()

	var records []ReloadRecord
	for rows.Next() {
		var r ReloadRecord
		var recordedAt string

		if err := rows.Scan(&r.ID, &r.Watcher, &r.Kind, &r.Path, &recordedAt); err != nil {
			return nil, fmt.Errorf("failed to scan reload event: %w", err)
		}

		r.RecordedAt, err = time.Parse(time.RFC3339Nano, recordedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to parse recorded_at: %w", err)
		}

		records = append(records, r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate reload events: %w", err)
	}

	return records, nil
}

// CountsByKind aggregates journal entries per kind since the given time.
func (s *Store) CountsByKind(since time.Time) ([]KindCount, error) {
	query := `
		SELECT kind, COUNT(*)
		FROM reload_events
		WHERE recorded_at >= ?
		GROUP BY kind
		ORDER BY COUNT(*) DESC
	`

	rows, err := s.db.Query(query, since.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return nil, fmt.Errorf("failed to count reload events: %w", err)
	}
	defer rows.Close()

	var counts []KindCount
	for rows.Next() {
		var c KindCount
		if err := rows.Scan(&c.Kind, &c.Count); err != nil {
			return nil, fmt.Errorf("failed to scan kind count: %w", err)
		}
		counts = append(counts, c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate kind counts: %w", err)
	}

	return counts, nil
}

// LastReloadAt returns the timestamp of the newest journal entry, or the
// zero time when the journal is empty.
func (s *Store) LastReloadAt() (time.Time, error) {
	query := `SELECT MAX(recorded_at) FROM reload_events`

	var recordedAt *string
	if err := s.db.QueryRow(query).Scan(&recordedAt); err != nil {
		return time.Time{}, fmt.Errorf("failed to query last reload: %w", err)
	}
	if recordedAt == nil {
		return time.Time{}, nil
	}

	t, err := time.Parse(time.RFC3339Nano, *recordedAt)
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to parse recorded_at: %w", err)
	}
	return t, nil
}

// PruneBefore deletes journal entries older than cutoff and reports how
// many rows were removed.
func (s *Store) PruneBefore(cutoff time.Time) (int64, error) {
	query := `DELETE FROM reload_events WHERE recorded_at < ?`

	res, err := s.db.Exec(query, cutoff.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return 0, fmt.Errorf("failed to prune reload events: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to count pruned rows: %w", err)
	}
	return n, nil
}
