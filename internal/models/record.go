// ABOUTME: Record, Correlation, and heart-rate-variability models.
// ABOUTME: One Record per timestamped measurement in the export.
package models

import "time"

// Record is a single timestamped health measurement.
type Record struct {
	ID            int64
	ProfileID     int64
	Type          string
	SourceName    *string
	SourceVersion *string
	Device        *string
	Unit          *string
	Value         *string
	CreationDate  *time.Time
	StartDate     time.Time
	EndDate       time.Time
}

// Correlation groups records observed together, e.g. the systolic and
// diastolic halves of a blood pressure reading.
type Correlation struct {
	ID            int64
	ProfileID     int64
	Type          string
	SourceName    *string
	SourceVersion *string
	Device        *string
	CreationDate  *time.Time
	StartDate     time.Time
	EndDate       time.Time
}

// CorrelationRecord links a Correlation to one of its member Records.
// Exactly one row exists per (correlation, record) pair.
type CorrelationRecord struct {
	ID            int64
	CorrelationID int64
	RecordID      int64
}

// HRVSeries is a heart-rate-variability reading attached to a Record.
// It carries no attributes of its own; it exists to own BeatSamples.
// At most one series per record.
type HRVSeries struct {
	ID       int64
	RecordID int64
}

// BeatSample is one instantaneous beats-per-minute measurement inside
// an HRVSeries. Time is resolved against the owning record's start
// date when the export gives only a clock time.
type BeatSample struct {
	ID       int64
	SeriesID int64
	BPM      int
	Time     time.Time
}
