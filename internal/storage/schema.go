// ABOUTME: SQLite schema definition and initialization.
// ABOUTME: One table per export entity plus dedup indexes and import sessions.
package storage

// initSchema creates or updates the database schema.
// Tables use rowid primary keys; children must be resolvable to a
// parent id before insert, so FKs are enforced.
func (d *DB) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS profiles (
		id INTEGER PRIMARY KEY,
		locale TEXT NOT NULL DEFAULT '',
		export_date DATETIME,
		date_of_birth TEXT NOT NULL DEFAULT '',
		biological_sex TEXT NOT NULL DEFAULT '',
		blood_type TEXT NOT NULL DEFAULT '',
		fitzpatrick_skin_type TEXT NOT NULL DEFAULT '',
		cardio_fitness_medications_use TEXT NOT NULL DEFAULT ''
	);

	CREATE TABLE IF NOT EXISTS records (
		id INTEGER PRIMARY KEY,
		profile_id INTEGER NOT NULL,
		type TEXT NOT NULL,
		source_name TEXT,
		source_version TEXT,
		device TEXT,
		unit TEXT,
		value TEXT,
		creation_date DATETIME,
		start_date DATETIME NOT NULL,
		end_date DATETIME NOT NULL,
		FOREIGN KEY (profile_id) REFERENCES profiles(id)
	);

	CREATE TABLE IF NOT EXISTS correlations (
		id INTEGER PRIMARY KEY,
		profile_id INTEGER NOT NULL,
		type TEXT NOT NULL,
		source_name TEXT,
		source_version TEXT,
		device TEXT,
		creation_date DATETIME,
		start_date DATETIME NOT NULL,
		end_date DATETIME NOT NULL,
		FOREIGN KEY (profile_id) REFERENCES profiles(id)
	);

	CREATE TABLE IF NOT EXISTS correlation_records (
		id INTEGER PRIMARY KEY,
		correlation_id INTEGER NOT NULL,
		record_id INTEGER NOT NULL,
		FOREIGN KEY (correlation_id) REFERENCES correlations(id),
		FOREIGN KEY (record_id) REFERENCES records(id)
	);

	CREATE TABLE IF NOT EXISTS workouts (
		id INTEGER PRIMARY KEY,
		profile_id INTEGER NOT NULL,
		activity_type TEXT NOT NULL,
		duration REAL,
		duration_unit TEXT,
		total_distance REAL,
		total_distance_unit TEXT,
		total_energy_burned REAL,
		total_energy_burned_unit TEXT,
		source_name TEXT,
		source_version TEXT,
		device TEXT,
		creation_date DATETIME,
		start_date DATETIME NOT NULL,
		end_date DATETIME NOT NULL,
		FOREIGN KEY (profile_id) REFERENCES profiles(id)
	);

	CREATE TABLE IF NOT EXISTS workout_events (
		id INTEGER PRIMARY KEY,
		workout_id INTEGER NOT NULL,
		type TEXT NOT NULL,
		date DATETIME NOT NULL,
		duration REAL,
		duration_unit TEXT,
		FOREIGN KEY (workout_id) REFERENCES workouts(id)
	);

	CREATE TABLE IF NOT EXISTS workout_statistics (
		id INTEGER PRIMARY KEY,
		workout_id INTEGER NOT NULL,
		type TEXT NOT NULL,
		start_date DATETIME NOT NULL,
		end_date DATETIME NOT NULL,
		average REAL,
		minimum REAL,
		maximum REAL,
		sum REAL,
		unit TEXT,
		FOREIGN KEY (workout_id) REFERENCES workouts(id)
	);

	CREATE TABLE IF NOT EXISTS workout_routes (
		id INTEGER PRIMARY KEY,
		workout_id INTEGER NOT NULL,
		source_name TEXT,
		source_version TEXT,
		device TEXT,
		creation_date DATETIME,
		start_date DATETIME NOT NULL,
		end_date DATETIME NOT NULL,
		file_path TEXT,
		FOREIGN KEY (workout_id) REFERENCES workouts(id)
	);

	CREATE TABLE IF NOT EXISTS activity_summaries (
		id INTEGER PRIMARY KEY,
		profile_id INTEGER NOT NULL,
		date_components TEXT NOT NULL,
		active_energy_burned REAL,
		active_energy_burned_goal REAL,
		active_energy_burned_unit TEXT,
		apple_move_time REAL,
		apple_move_time_goal REAL,
		apple_exercise_time REAL,
		apple_exercise_time_goal REAL,
		apple_stand_hours INTEGER,
		apple_stand_hours_goal INTEGER,
		FOREIGN KEY (profile_id) REFERENCES profiles(id)
	);

	CREATE TABLE IF NOT EXISTS clinical_records (
		id INTEGER PRIMARY KEY,
		profile_id INTEGER NOT NULL,
		type TEXT NOT NULL,
		identifier TEXT NOT NULL,
		source_name TEXT,
		source_url TEXT,
		fhir_version TEXT,
		received_date DATETIME NOT NULL,
		resource_file_path TEXT,
		FOREIGN KEY (profile_id) REFERENCES profiles(id)
	);

	CREATE TABLE IF NOT EXISTS audiograms (
		id INTEGER PRIMARY KEY,
		profile_id INTEGER NOT NULL,
		type TEXT NOT NULL,
		source_name TEXT,
		source_version TEXT,
		device TEXT,
		creation_date DATETIME,
		start_date DATETIME NOT NULL,
		end_date DATETIME NOT NULL,
		FOREIGN KEY (profile_id) REFERENCES profiles(id)
	);

	CREATE TABLE IF NOT EXISTS sensitivity_points (
		id INTEGER PRIMARY KEY,
		audiogram_id INTEGER NOT NULL,
		frequency_value REAL NOT NULL,
		frequency_unit TEXT,
		left_ear_value REAL,
		left_ear_unit TEXT,
		left_ear_masked INTEGER,
		left_ear_clamp_lower REAL,
		left_ear_clamp_upper REAL,
		right_ear_value REAL,
		right_ear_unit TEXT,
		right_ear_masked INTEGER,
		right_ear_clamp_lower REAL,
		right_ear_clamp_upper REAL,
		FOREIGN KEY (audiogram_id) REFERENCES audiograms(id)
	);

	CREATE TABLE IF NOT EXISTS vision_prescriptions (
		id INTEGER PRIMARY KEY,
		profile_id INTEGER NOT NULL,
		type TEXT NOT NULL,
		date_issued DATETIME NOT NULL,
		expiration_date DATETIME,
		brand TEXT,
		FOREIGN KEY (profile_id) REFERENCES profiles(id)
	);

	CREATE TABLE IF NOT EXISTS eye_prescriptions (
		id INTEGER PRIMARY KEY,
		prescription_id INTEGER NOT NULL,
		eye TEXT NOT NULL,
		sphere REAL, sphere_unit TEXT,
		cylinder REAL, cylinder_unit TEXT,
		axis REAL, axis_unit TEXT,
		add_power REAL, add_power_unit TEXT,
		vertex REAL, vertex_unit TEXT,
		prism_amount REAL, prism_amount_unit TEXT,
		prism_angle REAL, prism_angle_unit TEXT,
		far_pd REAL, far_pd_unit TEXT,
		near_pd REAL, near_pd_unit TEXT,
		base_curve REAL, base_curve_unit TEXT,
		diameter REAL, diameter_unit TEXT,
		FOREIGN KEY (prescription_id) REFERENCES vision_prescriptions(id)
	);

	CREATE TABLE IF NOT EXISTS vision_attachments (
		id INTEGER PRIMARY KEY,
		prescription_id INTEGER NOT NULL,
		identifier TEXT,
		FOREIGN KEY (prescription_id) REFERENCES vision_prescriptions(id)
	);

	CREATE TABLE IF NOT EXISTS metadata_entries (
		id INTEGER PRIMARY KEY,
		parent_kind TEXT NOT NULL,
		parent_id INTEGER NOT NULL,
		key TEXT NOT NULL,
		value TEXT
	);

	CREATE TABLE IF NOT EXISTS hrv_series (
		id INTEGER PRIMARY KEY,
		record_id INTEGER NOT NULL,
		FOREIGN KEY (record_id) REFERENCES records(id)
	);

	CREATE TABLE IF NOT EXISTS beat_samples (
		id INTEGER PRIMARY KEY,
		series_id INTEGER NOT NULL,
		bpm INTEGER NOT NULL,
		time DATETIME NOT NULL,
		FOREIGN KEY (series_id) REFERENCES hrv_series(id)
	);

	CREATE TABLE IF NOT EXISTS import_sessions (
		id TEXT PRIMARY KEY,
		source_path TEXT NOT NULL,
		started_at DATETIME NOT NULL,
		finished_at DATETIME,
		imported INTEGER NOT NULL DEFAULT 0,
		duplicates INTEGER NOT NULL DEFAULT 0,
		filtered INTEGER NOT NULL DEFAULT 0,
		errors INTEGER NOT NULL DEFAULT 0
	);

	CREATE INDEX IF NOT EXISTS idx_records_dedup
		ON records(type, start_date, end_date, profile_id, value);
	CREATE INDEX IF NOT EXISTS idx_workouts_dedup
		ON workouts(activity_type, start_date, end_date, profile_id);
	CREATE INDEX IF NOT EXISTS idx_correlations_dedup
		ON correlations(type, start_date, end_date, profile_id);
	CREATE INDEX IF NOT EXISTS idx_activity_summaries_dedup
		ON activity_summaries(date_components, profile_id);
	CREATE INDEX IF NOT EXISTS idx_clinical_records_dedup
		ON clinical_records(identifier, profile_id);
	CREATE INDEX IF NOT EXISTS idx_audiograms_dedup
		ON audiograms(type, start_date, end_date, profile_id);
	CREATE INDEX IF NOT EXISTS idx_vision_prescriptions_dedup
		ON vision_prescriptions(type, date_issued, profile_id);
	CREATE INDEX IF NOT EXISTS idx_correlation_records_dedup
		ON correlation_records(correlation_id, record_id);
	CREATE INDEX IF NOT EXISTS idx_workout_routes_dedup
		ON workout_routes(workout_id);
	CREATE INDEX IF NOT EXISTS idx_hrv_series_dedup
		ON hrv_series(record_id);
	CREATE INDEX IF NOT EXISTS idx_metadata_parent
		ON metadata_entries(parent_kind, parent_id);
	`

	_, err := d.db.Exec(schema)
	return err
}
