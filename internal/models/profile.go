// ABOUTME: Profile model for the export header (HealthData root element).
// ABOUTME: Singleton row that owns every other entity in the store.
package models

import "time"

// Profile holds the person/session metadata from the HealthData root
// element and its Me/ExportDate children. A store holds at most one
// profile row; re-imports reuse it.
type Profile struct {
	ID                          int64
	Locale                      string
	ExportDate                  time.Time
	DateOfBirth                 string
	BiologicalSex               string
	BloodType                   string
	FitzpatrickSkinType         string
	CardioFitnessMedicationsUse string
}
