// ABOUTME: Natural-key duplicate lookups for idempotent re-imports.
// ABOUTME: Queries run on the writer's transaction to see uncommitted parents.
package storage

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/harperreed/hkimport/internal/models"
)

// findID runs a single-id lookup, mapping no-rows to (0, nil).
func (w *Writer) findID(query string, args ...any) (int64, error) {
	tx, err := w.begin()
	if err != nil {
		return 0, err
	}
	var id int64
	err = tx.QueryRow(query, args...).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("dedup lookup: %w", err)
	}
	return id, nil
}

// FindRecord returns the id of an existing record with the same
// natural key, or 0. Value matches only absent-vs-absent or
// equal-vs-equal, never absent-vs-present.
func (w *Writer) FindRecord(r *models.Record) (int64, error) {
	if r.Value != nil {
		return w.findID(`
			SELECT id FROM records
			WHERE type = ? AND start_date = ? AND end_date = ? AND profile_id = ? AND value = ?`,
			r.Type, fmtTime(r.StartDate), fmtTime(r.EndDate), r.ProfileID, *r.Value,
		)
	}
	return w.findID(`
		SELECT id FROM records
		WHERE type = ? AND start_date = ? AND end_date = ? AND profile_id = ? AND value IS NULL`,
		r.Type, fmtTime(r.StartDate), fmtTime(r.EndDate), r.ProfileID,
	)
}

// FindCorrelation returns the id of an existing correlation, or 0.
func (w *Writer) FindCorrelation(c *models.Correlation) (int64, error) {
	return w.findID(`
		SELECT id FROM correlations
		WHERE type = ? AND start_date = ? AND end_date = ? AND profile_id = ?`,
		c.Type, fmtTime(c.StartDate), fmtTime(c.EndDate), c.ProfileID,
	)
}

// FindWorkout returns the id of an existing workout, or 0.
func (w *Writer) FindWorkout(wk *models.Workout) (int64, error) {
	return w.findID(`
		SELECT id FROM workouts
		WHERE activity_type = ? AND start_date = ? AND end_date = ? AND profile_id = ?`,
		wk.ActivityType, fmtTime(wk.StartDate), fmtTime(wk.EndDate), wk.ProfileID,
	)
}

// FindActivitySummary returns the id of an existing summary for the
// same day, or 0.
func (w *Writer) FindActivitySummary(s *models.ActivitySummary) (int64, error) {
	return w.findID(
		`SELECT id FROM activity_summaries WHERE date_components = ? AND profile_id = ?`,
		s.DateComponents, s.ProfileID,
	)
}

// FindClinicalRecord returns the id of an existing clinical record
// with the same identifier, or 0.
func (w *Writer) FindClinicalRecord(c *models.ClinicalRecord) (int64, error) {
	return w.findID(
		`SELECT id FROM clinical_records WHERE identifier = ? AND profile_id = ?`,
		c.Identifier, c.ProfileID,
	)
}

// FindAudiogram returns the id of an existing audiogram, or 0.
func (w *Writer) FindAudiogram(a *models.Audiogram) (int64, error) {
	return w.findID(`
		SELECT id FROM audiograms
		WHERE type = ? AND start_date = ? AND end_date = ? AND profile_id = ?`,
		a.Type, fmtTime(a.StartDate), fmtTime(a.EndDate), a.ProfileID,
	)
}

// FindVisionPrescription returns the id of an existing prescription,
// or 0.
func (w *Writer) FindVisionPrescription(v *models.VisionPrescription) (int64, error) {
	return w.findID(`
		SELECT id FROM vision_prescriptions
		WHERE type = ? AND date_issued = ? AND profile_id = ?`,
		v.Type, fmtTime(v.DateIssued), v.ProfileID,
	)
}

// FindCorrelationRecord returns the id of an existing membership link,
// or 0.
func (w *Writer) FindCorrelationRecord(correlationID, recordID int64) (int64, error) {
	return w.findID(
		`SELECT id FROM correlation_records WHERE correlation_id = ? AND record_id = ?`,
		correlationID, recordID,
	)
}

// FindWorkoutRoute returns the id of the route already attached to the
// workout, or 0. At most one route exists per workout.
func (w *Writer) FindWorkoutRoute(workoutID int64) (int64, error) {
	return w.findID(`SELECT id FROM workout_routes WHERE workout_id = ?`, workoutID)
}

// FindHRVSeries returns the id of the series already attached to the
// record, or 0.
func (w *Writer) FindHRVSeries(recordID int64) (int64, error) {
	return w.findID(`SELECT id FROM hrv_series WHERE record_id = ?`, recordID)
}
