// ABOUTME: Workout models: sessions plus nested events, statistics, routes.
// ABOUTME: A workout owns its children; at most one route per workout.
package models

import "time"

// Workout is a timed exercise session.
type Workout struct {
	ID                    int64
	ProfileID             int64
	ActivityType          string
	Duration              *float64
	DurationUnit          *string
	TotalDistance         *float64
	TotalDistanceUnit     *string
	TotalEnergyBurned     *float64
	TotalEnergyBurnedUnit *string
	SourceName            *string
	SourceVersion         *string
	Device                *string
	CreationDate          *time.Time
	StartDate             time.Time
	EndDate               time.Time
}

// WorkoutEvent is a sub-event within a workout (pause, lap, segment).
type WorkoutEvent struct {
	ID           int64
	WorkoutID    int64
	Type         string
	Date         time.Time
	Duration     *float64
	DurationUnit *string
}

// WorkoutStatistics holds per-metric aggregates for a workout.
type WorkoutStatistics struct {
	ID        int64
	WorkoutID int64
	Type      string
	StartDate time.Time
	EndDate   time.Time
	Average   *float64
	Minimum   *float64
	Maximum   *float64
	Sum       *float64
	Unit      *string
}

// WorkoutRoute references the GPS track file recorded for a workout.
type WorkoutRoute struct {
	ID            int64
	WorkoutID     int64
	SourceName    *string
	SourceVersion *string
	Device        *string
	CreationDate  *time.Time
	StartDate     time.Time
	EndDate       time.Time
	FilePath      *string
}
