// ABOUTME: Batched store writer for bulk imports.
// ABOUTME: Single open transaction, deferred commits, bounded leaf queue.
package storage

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/harperreed/hkimport/internal/models"
)

// Default tuning, sized for multi-gigabyte bulk imports.
const (
	DefaultBatchSize       = 5000
	DefaultTransactionSize = 100
)

// Writer buffers entity inserts against a single SQLite transaction.
//
// High-volume parent kinds (records, correlations, workouts) are
// executed immediately inside the open transaction so their rowid is
// available for children, but the durable commit is deferred until
// txSize inserts have accumulated. Leaf kinds are queued in memory and
// written in one shot when the queue reaches batchSize. Low-volume
// parent kinds commit immediately because children may follow at any
// distance.
//
// A child row always executes in the same or a later transaction than
// the insert that assigned its parent id, so a crash never leaves an
// orphaned child committed ahead of its parent.
type Writer struct {
	db        *DB
	tx        *sql.Tx
	batchSize int
	txSize    int
	deferred  int
	queue     []func(*sql.Tx) error
}

// NewWriter creates a Writer. Non-positive sizes fall back to the
// defaults.
func (d *DB) NewWriter(batchSize, txSize int) *Writer {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	if txSize <= 0 {
		txSize = DefaultTransactionSize
	}
	return &Writer{db: d, batchSize: batchSize, txSize: txSize}
}

// begin returns the open transaction, starting one if needed.
func (w *Writer) begin() (*sql.Tx, error) {
	if w.tx == nil {
		tx, err := w.db.db.Begin()
		if err != nil {
			return nil, fmt.Errorf("begin transaction: %w", err)
		}
		w.tx = tx
	}
	return w.tx, nil
}

// Commit durably commits the open transaction, if any.
func (w *Writer) Commit() error {
	if w.tx == nil {
		return nil
	}
	if err := w.tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	w.tx = nil
	w.deferred = 0
	return nil
}

// Flush writes any queued rows and commits the open transaction.
// Must be called at end of input before statistics are reported.
func (w *Writer) Flush() error {
	if err := w.flushQueue(); err != nil {
		return err
	}
	return w.Commit()
}

// Rollback discards queued rows and rolls back the open transaction.
// Previously committed batches remain durable.
func (w *Writer) Rollback() error {
	w.queue = nil
	if w.tx == nil {
		return nil
	}
	tx := w.tx
	w.tx = nil
	w.deferred = 0
	if err := tx.Rollback(); err != nil {
		return fmt.Errorf("rollback transaction: %w", err)
	}
	return nil
}

// enqueue adds a leaf insert to the batch, flushing at batchSize.
func (w *Writer) enqueue(fn func(*sql.Tx) error) error {
	w.queue = append(w.queue, fn)
	if len(w.queue) >= w.batchSize {
		if err := w.flushQueue(); err != nil {
			return err
		}
		return w.Commit()
	}
	return nil
}

// flushQueue executes queued inserts inside the open transaction.
func (w *Writer) flushQueue() error {
	if len(w.queue) == 0 {
		return nil
	}
	tx, err := w.begin()
	if err != nil {
		return err
	}
	for _, fn := range w.queue {
		if err := fn(tx); err != nil {
			return err
		}
	}
	w.queue = nil
	return nil
}

// deferCommit counts a parent insert and commits at the transaction
// threshold. Below the threshold the row stays uncommitted but its
// rowid is already assigned.
func (w *Writer) deferCommit() error {
	w.deferred++
	if w.deferred >= w.txSize {
		return w.Commit()
	}
	return nil
}

// exec runs a statement in the open transaction and returns the
// assigned rowid.
func (w *Writer) exec(query string, args ...any) (int64, error) {
	tx, err := w.begin()
	if err != nil {
		return 0, err
	}
	res, err := tx.Exec(query, args...)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// InsertRecord inserts a record inside the open transaction and
// assigns its id. The commit is deferred.
func (w *Writer) InsertRecord(r *models.Record) error {
	id, err := w.exec(`
		INSERT INTO records (profile_id, type, source_name, source_version, device, unit, value, creation_date, start_date, end_date)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ProfileID, r.Type, nullStr(r.SourceName), nullStr(r.SourceVersion),
		nullStr(r.Device), nullStr(r.Unit), nullStr(r.Value),
		nullTime(r.CreationDate), fmtTime(r.StartDate), fmtTime(r.EndDate),
	)
	if err != nil {
		return fmt.Errorf("insert record: %w", err)
	}
	r.ID = id
	return w.deferCommit()
}

// InsertCorrelation inserts a correlation with a deferred commit.
func (w *Writer) InsertCorrelation(c *models.Correlation) error {
	id, err := w.exec(`
		INSERT INTO correlations (profile_id, type, source_name, source_version, device, creation_date, start_date, end_date)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		c.ProfileID, c.Type, nullStr(c.SourceName), nullStr(c.SourceVersion),
		nullStr(c.Device), nullTime(c.CreationDate), fmtTime(c.StartDate), fmtTime(c.EndDate),
	)
	if err != nil {
		return fmt.Errorf("insert correlation: %w", err)
	}
	c.ID = id
	return w.deferCommit()
}

// InsertWorkout inserts a workout with a deferred commit.
func (w *Writer) InsertWorkout(wk *models.Workout) error {
	id, err := w.exec(`
		INSERT INTO workouts (profile_id, activity_type, duration, duration_unit, total_distance, total_distance_unit, total_energy_burned, total_energy_burned_unit, source_name, source_version, device, creation_date, start_date, end_date)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		wk.ProfileID, wk.ActivityType, nullFloat(wk.Duration), nullStr(wk.DurationUnit),
		nullFloat(wk.TotalDistance), nullStr(wk.TotalDistanceUnit),
		nullFloat(wk.TotalEnergyBurned), nullStr(wk.TotalEnergyBurnedUnit),
		nullStr(wk.SourceName), nullStr(wk.SourceVersion), nullStr(wk.Device),
		nullTime(wk.CreationDate), fmtTime(wk.StartDate), fmtTime(wk.EndDate),
	)
	if err != nil {
		return fmt.Errorf("insert workout: %w", err)
	}
	wk.ID = id
	return w.deferCommit()
}

// InsertAudiogram inserts an audiogram and commits immediately so
// sensitivity points can reference it at any later point.
func (w *Writer) InsertAudiogram(a *models.Audiogram) error {
	id, err := w.exec(`
		INSERT INTO audiograms (profile_id, type, source_name, source_version, device, creation_date, start_date, end_date)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		a.ProfileID, a.Type, nullStr(a.SourceName), nullStr(a.SourceVersion),
		nullStr(a.Device), nullTime(a.CreationDate), fmtTime(a.StartDate), fmtTime(a.EndDate),
	)
	if err != nil {
		return fmt.Errorf("insert audiogram: %w", err)
	}
	a.ID = id
	return w.Commit()
}

// InsertVisionPrescription inserts a prescription and commits
// immediately.
func (w *Writer) InsertVisionPrescription(v *models.VisionPrescription) error {
	id, err := w.exec(`
		INSERT INTO vision_prescriptions (profile_id, type, date_issued, expiration_date, brand)
		VALUES (?, ?, ?, ?, ?)`,
		v.ProfileID, v.Type, fmtTime(v.DateIssued), nullTime(v.ExpirationDate), nullStr(v.Brand),
	)
	if err != nil {
		return fmt.Errorf("insert vision prescription: %w", err)
	}
	v.ID = id
	return w.Commit()
}

// InsertHRVSeries inserts an HRV series and commits immediately so
// beat samples can reference it.
func (w *Writer) InsertHRVSeries(h *models.HRVSeries) error {
	id, err := w.exec(`INSERT INTO hrv_series (record_id) VALUES (?)`, h.RecordID)
	if err != nil {
		return fmt.Errorf("insert hrv series: %w", err)
	}
	h.ID = id
	return w.Commit()
}

// InsertWorkoutRoute inserts a route and commits immediately; the
// route is unique per workout.
func (w *Writer) InsertWorkoutRoute(r *models.WorkoutRoute) error {
	id, err := w.exec(`
		INSERT INTO workout_routes (workout_id, source_name, source_version, device, creation_date, start_date, end_date, file_path)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		r.WorkoutID, nullStr(r.SourceName), nullStr(r.SourceVersion), nullStr(r.Device),
		nullTime(r.CreationDate), fmtTime(r.StartDate), fmtTime(r.EndDate), nullStr(r.FilePath),
	)
	if err != nil {
		return fmt.Errorf("insert workout route: %w", err)
	}
	r.ID = id
	return w.Commit()
}

// QueueCorrelationRecord queues a correlation membership link.
func (w *Writer) QueueCorrelationRecord(link models.CorrelationRecord) error {
	return w.enqueue(func(tx *sql.Tx) error {
		_, err := tx.Exec(
			`INSERT INTO correlation_records (correlation_id, record_id) VALUES (?, ?)`,
			link.CorrelationID, link.RecordID,
		)
		if err != nil {
			return fmt.Errorf("insert correlation record: %w", err)
		}
		return nil
	})
}

// QueueWorkoutEvent queues a workout sub-event.
func (w *Writer) QueueWorkoutEvent(e models.WorkoutEvent) error {
	return w.enqueue(func(tx *sql.Tx) error {
		_, err := tx.Exec(`
			INSERT INTO workout_events (workout_id, type, date, duration, duration_unit)
			VALUES (?, ?, ?, ?, ?)`,
			e.WorkoutID, e.Type, fmtTime(e.Date), nullFloat(e.Duration), nullStr(e.DurationUnit),
		)
		if err != nil {
			return fmt.Errorf("insert workout event: %w", err)
		}
		return nil
	})
}

// QueueWorkoutStatistics queues per-metric workout aggregates.
func (w *Writer) QueueWorkoutStatistics(s models.WorkoutStatistics) error {
	return w.enqueue(func(tx *sql.Tx) error {
		_, err := tx.Exec(`
			INSERT INTO workout_statistics (workout_id, type, start_date, end_date, average, minimum, maximum, sum, unit)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			s.WorkoutID, s.Type, fmtTime(s.StartDate), fmtTime(s.EndDate),
			nullFloat(s.Average), nullFloat(s.Minimum), nullFloat(s.Maximum),
			nullFloat(s.Sum), nullStr(s.Unit),
		)
		if err != nil {
			return fmt.Errorf("insert workout statistics: %w", err)
		}
		return nil
	})
}

// QueueActivitySummary queues a daily activity summary.
func (w *Writer) QueueActivitySummary(s models.ActivitySummary) error {
	return w.enqueue(func(tx *sql.Tx) error {
		_, err := tx.Exec(`
			INSERT INTO activity_summaries (profile_id, date_components, active_energy_burned, active_energy_burned_goal, active_energy_burned_unit, apple_move_time, apple_move_time_goal, apple_exercise_time, apple_exercise_time_goal, apple_stand_hours, apple_stand_hours_goal)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			s.ProfileID, s.DateComponents,
			nullFloat(s.ActiveEnergyBurned), nullFloat(s.ActiveEnergyBurnedGoal), nullStr(s.ActiveEnergyBurnedUnit),
			nullFloat(s.AppleMoveTime), nullFloat(s.AppleMoveTimeGoal),
			nullFloat(s.AppleExerciseTime), nullFloat(s.AppleExerciseTimeGoal),
			nullInt(s.AppleStandHours), nullInt(s.AppleStandHoursGoal),
		)
		if err != nil {
			return fmt.Errorf("insert activity summary: %w", err)
		}
		return nil
	})
}

// QueueClinicalRecord queues a clinical document reference.
func (w *Writer) QueueClinicalRecord(c models.ClinicalRecord) error {
	return w.enqueue(func(tx *sql.Tx) error {
		_, err := tx.Exec(`
			INSERT INTO clinical_records (profile_id, type, identifier, source_name, source_url, fhir_version, received_date, resource_file_path)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			c.ProfileID, c.Type, c.Identifier, nullStr(c.SourceName), nullStr(c.SourceURL),
			nullStr(c.FHIRVersion), fmtTime(c.ReceivedDate), nullStr(c.ResourceFilePath),
		)
		if err != nil {
			return fmt.Errorf("insert clinical record: %w", err)
		}
		return nil
	})
}

// QueueSensitivityPoint queues an audiogram frequency measurement.
func (w *Writer) QueueSensitivityPoint(p models.SensitivityPoint) error {
	return w.enqueue(func(tx *sql.Tx) error {
		_, err := tx.Exec(`
			INSERT INTO sensitivity_points (audiogram_id, frequency_value, frequency_unit, left_ear_value, left_ear_unit, left_ear_masked, left_ear_clamp_lower, left_ear_clamp_upper, right_ear_value, right_ear_unit, right_ear_masked, right_ear_clamp_lower, right_ear_clamp_upper)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			p.AudiogramID, p.FrequencyValue, nullStr(p.FrequencyUnit),
			nullFloat(p.LeftEarValue), nullStr(p.LeftEarUnit), nullBool(p.LeftEarMasked),
			nullFloat(p.LeftEarClampLower), nullFloat(p.LeftEarClampUpper),
			nullFloat(p.RightEarValue), nullStr(p.RightEarUnit), nullBool(p.RightEarMasked),
			nullFloat(p.RightEarClampLower), nullFloat(p.RightEarClampUpper),
		)
		if err != nil {
			return fmt.Errorf("insert sensitivity point: %w", err)
		}
		return nil
	})
}

// QueueEyePrescription queues per-eye optical parameters.
func (w *Writer) QueueEyePrescription(e models.EyePrescription) error {
	return w.enqueue(func(tx *sql.Tx) error {
		_, err := tx.Exec(`
			INSERT INTO eye_prescriptions (prescription_id, eye, sphere, sphere_unit, cylinder, cylinder_unit, axis, axis_unit, add_power, add_power_unit, vertex, vertex_unit, prism_amount, prism_amount_unit, prism_angle, prism_angle_unit, far_pd, far_pd_unit, near_pd, near_pd_unit, base_curve, base_curve_unit, diameter, diameter_unit)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			e.PrescriptionID, string(e.Eye),
			nullFloat(e.Sphere), nullStr(e.SphereUnit),
			nullFloat(e.Cylinder), nullStr(e.CylinderUnit),
			nullFloat(e.Axis), nullStr(e.AxisUnit),
			nullFloat(e.Add), nullStr(e.AddUnit),
			nullFloat(e.Vertex), nullStr(e.VertexUnit),
			nullFloat(e.PrismAmount), nullStr(e.PrismAmountUnit),
			nullFloat(e.PrismAngle), nullStr(e.PrismAngleUnit),
			nullFloat(e.FarPD), nullStr(e.FarPDUnit),
			nullFloat(e.NearPD), nullStr(e.NearPDUnit),
			nullFloat(e.BaseCurve), nullStr(e.BaseCurveUnit),
			nullFloat(e.Diameter), nullStr(e.DiameterUnit),
		)
		if err != nil {
			return fmt.Errorf("insert eye prescription: %w", err)
		}
		return nil
	})
}

// QueueVisionAttachment queues a prescription file attachment.
func (w *Writer) QueueVisionAttachment(a models.VisionAttachment) error {
	return w.enqueue(func(tx *sql.Tx) error {
		_, err := tx.Exec(
			`INSERT INTO vision_attachments (prescription_id, identifier) VALUES (?, ?)`,
			a.PrescriptionID, nullStr(a.Identifier),
		)
		if err != nil {
			return fmt.Errorf("insert vision attachment: %w", err)
		}
		return nil
	})
}

// QueueMetadataEntry queues a key/value note tagged with its parent.
func (w *Writer) QueueMetadataEntry(m models.MetadataEntry) error {
	return w.enqueue(func(tx *sql.Tx) error {
		_, err := tx.Exec(`
			INSERT INTO metadata_entries (parent_kind, parent_id, key, value)
			VALUES (?, ?, ?, ?)`,
			string(m.ParentKind), m.ParentID, m.Key, nullStr(m.Value),
		)
		if err != nil {
			return fmt.Errorf("insert metadata entry: %w", err)
		}
		return nil
	})
}

// QueueBeatSample queues an instantaneous BPM sample.
func (w *Writer) QueueBeatSample(b models.BeatSample) error {
	return w.enqueue(func(tx *sql.Tx) error {
		_, err := tx.Exec(
			`INSERT INTO beat_samples (series_id, bpm, time) VALUES (?, ?, ?)`,
			b.SeriesID, b.BPM, fmtTime(b.Time),
		)
		if err != nil {
			return fmt.Errorf("insert beat sample: %w", err)
		}
		return nil
	})
}

// Time columns are stored as RFC3339Nano text. The formatting is
// deterministic for a fixed reference zone, which the dedup natural
// keys rely on for exact equality.
func fmtTime(t time.Time) string {
	return t.Format(time.RFC3339Nano)
}

func nullTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return fmtTime(*t)
}

func nullStr(s *string) any {
	if s == nil {
		return nil
	}
	return *s
}

func nullFloat(f *float64) any {
	if f == nil {
		return nil
	}
	return *f
}

func nullInt(i *int) any {
	if i == nil {
		return nil
	}
	return *i
}

func nullBool(b *bool) any {
	if b == nil {
		return nil
	}
	return *b
}
