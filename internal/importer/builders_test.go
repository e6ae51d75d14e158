// ABOUTME: Tests for pure attribute-map to entity builders.
// ABOUTME: Absent attributes must yield nil values, never zeros.
package importer

import (
	"testing"
	"time"

	"github.com/harperreed/hkimport/internal/models"
)

func testTimeParser(t *testing.T) timeParser {
	t.Helper()
	return timeParser{loc: zurich(t)}
}

func TestBuildRecord(t *testing.T) {
	tp := testTimeParser(t)
	a := attrs{
		"type":       "HKQuantityTypeIdentifierHeartRate",
		"sourceName": "Watch",
		"unit":       "count/min",
		"value":      "60",
		"startDate":  "2024-01-01 08:00:00 +0000",
		"endDate":    "2024-01-01 08:00:00 +0000",
	}

	r, err := buildRecord(a, tp, 1)
	if err != nil {
		t.Fatalf("buildRecord failed: %v", err)
	}
	if r.Type != "HKQuantityTypeIdentifierHeartRate" {
		t.Errorf("Type mismatch: %s", r.Type)
	}
	if r.Value == nil || *r.Value != "60" {
		t.Errorf("Value mismatch: %v", r.Value)
	}
	if r.Device != nil {
		t.Errorf("absent device should be nil, got %v", *r.Device)
	}
	if r.CreationDate != nil {
		t.Errorf("absent creationDate should be nil")
	}
	if r.StartDate.Location().String() != "Europe/Zurich" {
		t.Errorf("start date not normalized: %v", r.StartDate)
	}
}

func TestBuildRecordMissingDates(t *testing.T) {
	tp := testTimeParser(t)

	if _, err := buildRecord(attrs{"type": "x"}, tp, 1); err == nil {
		t.Error("expected error for missing startDate")
	}
	a := attrs{"startDate": "not-a-date", "endDate": "2024-01-01 08:00:00 +0000"}
	if _, err := buildRecord(a, tp, 1); err == nil {
		t.Error("expected error for malformed startDate")
	}
}

func TestBuildWorkout(t *testing.T) {
	tp := testTimeParser(t)
	a := attrs{
		"workoutActivityType": "HKWorkoutActivityTypeRunning",
		"duration":            "30.5",
		"durationUnit":        "min",
		"startDate":           "2024-01-01 08:00:00 +0000",
		"endDate":             "2024-01-01 08:30:00 +0000",
	}

	w, err := buildWorkout(a, tp, 1)
	if err != nil {
		t.Fatalf("buildWorkout failed: %v", err)
	}
	if w.Duration == nil || *w.Duration != 30.5 {
		t.Errorf("Duration mismatch: %v", w.Duration)
	}
	if w.TotalDistance != nil {
		t.Error("absent totalDistance should be nil")
	}
}

func TestBuildWorkoutBadNumber(t *testing.T) {
	tp := testTimeParser(t)
	a := attrs{
		"workoutActivityType": "HKWorkoutActivityTypeRunning",
		"duration":            "thirty",
		"startDate":           "2024-01-01 08:00:00 +0000",
		"endDate":             "2024-01-01 08:30:00 +0000",
	}
	if _, err := buildWorkout(a, tp, 1); err == nil {
		t.Error("expected error for non-numeric duration")
	}
}

func TestBuildActivitySummary(t *testing.T) {
	a := attrs{
		"dateComponents":     "2024-01-15",
		"activeEnergyBurned": "450.2",
		"appleStandHours":    "10",
	}
	s, err := buildActivitySummary(a, 1)
	if err != nil {
		t.Fatalf("buildActivitySummary failed: %v", err)
	}
	if s.DateComponents != "2024-01-15" {
		t.Errorf("DateComponents mismatch: %s", s.DateComponents)
	}
	if s.AppleStandHours == nil || *s.AppleStandHours != 10 {
		t.Errorf("AppleStandHours mismatch: %v", s.AppleStandHours)
	}
	if s.AppleStandHoursGoal != nil {
		t.Error("absent goal should be nil")
	}
}

func TestBuildClinicalRecord(t *testing.T) {
	tp := testTimeParser(t)
	a := attrs{
		"type":         "ConditionRecord",
		"identifier":   "cond-abc-123",
		"sourceName":   "General Hospital",
		"fhirVersion":  "4.0.1",
		"receivedDate": "2024-01-01 08:00:00 +0000",
	}

	c, err := buildClinicalRecord(a, tp, 1)
	if err != nil {
		t.Fatalf("buildClinicalRecord failed: %v", err)
	}
	if c.Identifier != "cond-abc-123" {
		t.Errorf("Identifier mismatch: %s", c.Identifier)
	}
	if c.FHIRVersion == nil || *c.FHIRVersion != "4.0.1" {
		t.Errorf("FHIRVersion mismatch: %v", c.FHIRVersion)
	}
	if c.SourceURL != nil {
		t.Error("absent sourceURL should be nil")
	}

	if _, err := buildClinicalRecord(attrs{"identifier": "x"}, tp, 1); err == nil {
		t.Error("expected error for missing receivedDate")
	}
	a["receivedDate"] = "garbage"
	if _, err := buildClinicalRecord(a, tp, 1); err == nil {
		t.Error("expected error for malformed receivedDate")
	}
}

func TestBuildSensitivityPoint(t *testing.T) {
	a := attrs{
		"frequencyValue": "1000",
		"frequencyUnit":  "Hz",
		"leftEarValue":   "12.5",
		"leftEarMasked":  "true",
		"rightEarMasked": "false",
	}
	p, err := buildSensitivityPoint(a, 7)
	if err != nil {
		t.Fatalf("buildSensitivityPoint failed: %v", err)
	}
	if p.FrequencyValue != 1000 {
		t.Errorf("FrequencyValue mismatch: %v", p.FrequencyValue)
	}
	if p.LeftEarMasked == nil || !*p.LeftEarMasked {
		t.Error("leftEarMasked should be true")
	}
	if p.RightEarMasked == nil || *p.RightEarMasked {
		t.Error("rightEarMasked should be false")
	}
	if p.RightEarValue != nil {
		t.Error("absent rightEarValue should be nil")
	}

	if _, err := buildSensitivityPoint(attrs{}, 7); err == nil {
		t.Error("expected error for missing frequencyValue")
	}
}

func TestBuildEyePrescription(t *testing.T) {
	a := attrs{
		"eye":        "left",
		"sphere":     "-1.25",
		"sphereUnit": "diopter",
	}
	e, err := buildEyePrescription(a, 3)
	if err != nil {
		t.Fatalf("buildEyePrescription failed: %v", err)
	}
	if e.Eye != models.EyeLeft {
		t.Errorf("Eye mismatch: %v", e.Eye)
	}
	if e.Sphere == nil || *e.Sphere != -1.25 {
		t.Errorf("Sphere mismatch: %v", e.Sphere)
	}
	if e.Cylinder != nil {
		t.Error("absent cylinder should be nil")
	}

	// Anything other than "left" maps to the right eye.
	e, err = buildEyePrescription(attrs{"eye": "right"}, 3)
	if err != nil {
		t.Fatalf("buildEyePrescription failed: %v", err)
	}
	if e.Eye != models.EyeRight {
		t.Errorf("Eye mismatch: %v", e.Eye)
	}
}

func TestBuildBeatSample(t *testing.T) {
	tp := testTimeParser(t)
	base := time.Date(2023, 12, 31, 10, 0, 0, 0, tp.loc)

	b, err := buildBeatSample(attrs{"bpm": "62", "time": "7:47:41.86 PM"}, tp, 5, base)
	if err != nil {
		t.Fatalf("buildBeatSample failed: %v", err)
	}
	if b.BPM != 62 {
		t.Errorf("BPM mismatch: %d", b.BPM)
	}
	want := time.Date(2023, 12, 31, 19, 47, 41, 860000000, tp.loc)
	if !b.Time.Equal(want) {
		t.Errorf("Time mismatch: got %v, want %v", b.Time, want)
	}

	if _, err := buildBeatSample(attrs{"time": "7:47:41.86 PM"}, tp, 5, base); err == nil {
		t.Error("expected error for missing bpm")
	}
	if _, err := buildBeatSample(attrs{"bpm": "fast", "time": "7:47:41.86 PM"}, tp, 5, base); err == nil {
		t.Error("expected error for non-numeric bpm")
	}
}

func TestApplyTraits(t *testing.T) {
	p := &models.Profile{}
	applyTraits(p, attrs{
		"HKCharacteristicTypeIdentifierDateOfBirth":   "1990-01-01",
		"HKCharacteristicTypeIdentifierBiologicalSex": "HKBiologicalSexFemale",
		"HKCharacteristicTypeIdentifierBloodType":     "HKBloodTypeAPositive",
	})
	if p.DateOfBirth != "1990-01-01" {
		t.Errorf("DateOfBirth mismatch: %s", p.DateOfBirth)
	}
	if p.BiologicalSex != "HKBiologicalSexFemale" {
		t.Errorf("BiologicalSex mismatch: %s", p.BiologicalSex)
	}
	if p.FitzpatrickSkinType != "" {
		t.Errorf("absent trait should stay empty, got %s", p.FitzpatrickSkinType)
	}
}
