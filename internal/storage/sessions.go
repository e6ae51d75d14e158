// ABOUTME: Import session audit rows and table row counts.
// ABOUTME: One UUID-keyed row per parse run, finalized with counters.
package storage

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ImportSession is the audit row for one parse run.
type ImportSession struct {
	ID         uuid.UUID
	SourcePath string
	StartedAt  time.Time
	FinishedAt *time.Time
	Imported   int64
	Duplicates int64
	Filtered   int64
	Errors     int64
}

// BeginSession records the start of an import run.
func (d *DB) BeginSession(sourcePath string) (*ImportSession, error) {
	s := &ImportSession{
		ID:         uuid.New(),
		SourcePath: sourcePath,
		StartedAt:  time.Now(),
	}
	_, err := d.db.Exec(
		`INSERT INTO import_sessions (id, source_path, started_at) VALUES (?, ?, ?)`,
		s.ID.String(), s.SourcePath, fmtTime(s.StartedAt),
	)
	if err != nil {
		return nil, fmt.Errorf("begin session: %w", err)
	}
	return s, nil
}

// FinishSession stamps the end time and final counters on a session.
func (d *DB) FinishSession(s *ImportSession) error {
	now := time.Now()
	s.FinishedAt = &now
	_, err := d.db.Exec(`
		UPDATE import_sessions
		SET finished_at = ?, imported = ?, duplicates = ?, filtered = ?, errors = ?
		WHERE id = ?`,
		fmtTime(now), s.Imported, s.Duplicates, s.Filtered, s.Errors, s.ID.String(),
	)
	if err != nil {
		return fmt.Errorf("finish session: %w", err)
	}
	return nil
}

// ListSessions returns the most recent import sessions, newest first.
func (d *DB) ListSessions(limit int) ([]*ImportSession, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := d.db.Query(`
		SELECT id, source_path, started_at, finished_at, imported, duplicates, filtered, errors
		FROM import_sessions
		ORDER BY started_at DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	var sessions []*ImportSession
	for rows.Next() {
		var s ImportSession
		var idStr, startedAt string
		var finishedAt *string
		err := rows.Scan(&idStr, &s.SourcePath, &startedAt, &finishedAt,
			&s.Imported, &s.Duplicates, &s.Filtered, &s.Errors)
		if err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		if s.ID, err = uuid.Parse(idStr); err != nil {
			return nil, fmt.Errorf("parse session id: %w", err)
		}
		if s.StartedAt, err = time.Parse(time.RFC3339Nano, startedAt); err != nil {
			return nil, fmt.Errorf("parse session start: %w", err)
		}
		if finishedAt != nil {
			t, err := time.Parse(time.RFC3339Nano, *finishedAt)
			if err != nil {
				return nil, fmt.Errorf("parse session finish: %w", err)
			}
			s.FinishedAt = &t
		}
		sessions = append(sessions, &s)
	}
	return sessions, rows.Err()
}

// EntityTables lists every entity table in display order.
var EntityTables = []string{
	"profiles",
	"records",
	"correlations",
	"correlation_records",
	"workouts",
	"workout_events",
	"workout_statistics",
	"workout_routes",
	"activity_summaries",
	"clinical_records",
	"audiograms",
	"sensitivity_points",
	"vision_prescriptions",
	"eye_prescriptions",
	"vision_attachments",
	"metadata_entries",
	"hrv_series",
	"beat_samples",
}

// EntityCounts returns the row count of every entity table.
func (d *DB) EntityCounts() (map[string]int64, error) {
	counts := make(map[string]int64, len(EntityTables))
	for _, table := range EntityTables {
		var n int64
		if err := d.db.QueryRow("SELECT COUNT(*) FROM " + table).Scan(&n); err != nil {
			return nil, fmt.Errorf("count %s: %w", table, err)
		}
		counts[table] = n
	}
	return counts, nil
}
