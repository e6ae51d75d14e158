// ABOUTME: ActivitySummary and ClinicalRecord models.
// ABOUTME: Neither kind is cutoff-filtered; both dedup per natural key.
package models

import "time"

// ActivitySummary is one calendar day's move/exercise/stand totals.
// DateComponents is the day key as it appears in the export
// (e.g. "2024-01-15").
type ActivitySummary struct {
	ID                     int64
	ProfileID              int64
	DateComponents         string
	ActiveEnergyBurned     *float64
	ActiveEnergyBurnedGoal *float64
	ActiveEnergyBurnedUnit *string
	AppleMoveTime          *float64
	AppleMoveTimeGoal      *float64
	AppleExerciseTime      *float64
	AppleExerciseTimeGoal  *float64
	AppleStandHours        *int
	AppleStandHoursGoal    *int
}

// ClinicalRecord references an external FHIR clinical document.
type ClinicalRecord struct {
	ID               int64
	ProfileID        int64
	Type             string
	Identifier       string
	SourceName       *string
	SourceURL        *string
	FHIRVersion      *string
	ReceivedDate     time.Time
	ResourceFilePath *string
}
