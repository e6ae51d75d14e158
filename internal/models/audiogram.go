// ABOUTME: Audiogram and SensitivityPoint models for hearing tests.
// ABOUTME: A point carries per-ear value, unit, masked flag, clamp bounds.
package models

import "time"

// Audiogram is one hearing test session.
type Audiogram struct {
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

// SensitivityPoint is one frequency measurement within an audiogram.
type SensitivityPoint struct {
	ID                 int64
	AudiogramID        int64
	FrequencyValue     float64
	FrequencyUnit      *string
	LeftEarValue       *float64
	LeftEarUnit        *string
	LeftEarMasked      *bool
	LeftEarClampLower  *float64
	LeftEarClampUpper  *float64
	RightEarValue      *float64
	RightEarUnit       *string
	RightEarMasked     *bool
	RightEarClampLower *float64
	RightEarClampUpper *float64
}
