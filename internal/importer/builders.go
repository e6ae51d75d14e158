// ABOUTME: Pure builders mapping one element's attributes to one entity.
// ABOUTME: Absent attributes become unset (nil) values, never zero values.
package importer

import (
	"encoding/xml"
	"fmt"
	"strconv"
	"time"

	"github.com/harperreed/hkimport/internal/models"
)

// attrs is a string-keyed view of one element's attributes.
type attrs map[string]string

func attrMap(el xml.StartElement) attrs {
	a := make(attrs, len(el.Attr))
	for _, attr := range el.Attr {
		a[attr.Name.Local] = attr.Value
	}
	return a
}

func (a attrs) str(key string) string {
	return a[key]
}

// optStr returns nil for an absent attribute.
func (a attrs) optStr(key string) *string {
	v, ok := a[key]
	if !ok {
		return nil
	}
	return &v
}

func (a attrs) optFloat(key string) (*float64, error) {
	v, ok := a[key]
	if !ok || v == "" {
		return nil, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return nil, fmt.Errorf("attribute %s: %w", key, err)
	}
	return &f, nil
}

func (a attrs) optInt(key string) (*int, error) {
	v, ok := a[key]
	if !ok || v == "" {
		return nil, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return nil, fmt.Errorf("attribute %s: %w", key, err)
	}
	return &n, nil
}

func (a attrs) optBool(key string) *bool {
	v, ok := a[key]
	if !ok || v == "" {
		return nil
	}
	b := v == "true"
	return &b
}

// reqTime parses a required timestamp attribute.
func (a attrs) reqTime(key string, tp timeParser) (time.Time, error) {
	v, ok := a[key]
	if !ok || v == "" {
		return time.Time{}, fmt.Errorf("missing attribute %s", key)
	}
	return tp.parseTimestamp(v)
}

// optTime parses an optional timestamp attribute.
func (a attrs) optTime(key string, tp timeParser) (*time.Time, error) {
	v, ok := a[key]
	if !ok || v == "" {
		return nil, nil
	}
	t, err := tp.parseTimestamp(v)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func buildProfile(a attrs) *models.Profile {
	return &models.Profile{Locale: a.str("locale")}
}

// applyTraits copies the Me header attributes onto the profile.
func applyTraits(p *models.Profile, a attrs) {
	p.DateOfBirth = a.str("HKCharacteristicTypeIdentifierDateOfBirth")
	p.BiologicalSex = a.str("HKCharacteristicTypeIdentifierBiologicalSex")
	p.BloodType = a.str("HKCharacteristicTypeIdentifierBloodType")
	p.FitzpatrickSkinType = a.str("HKCharacteristicTypeIdentifierFitzpatrickSkinType")
	p.CardioFitnessMedicationsUse = a.str("HKCharacteristicTypeIdentifierCardioFitnessMedicationsUse")
}

func buildRecord(a attrs, tp timeParser, profileID int64) (*models.Record, error) {
	start, err := a.reqTime("startDate", tp)
	if err != nil {
		return nil, err
	}
	end, err := a.reqTime("endDate", tp)
	if err != nil {
		return nil, err
	}
	creation, err := a.optTime("creationDate", tp)
	if err != nil {
		return nil, err
	}
	return &models.Record{
		ProfileID:     profileID,
		Type:          a.str("type"),
		SourceName:    a.optStr("sourceName"),
		SourceVersion: a.optStr("sourceVersion"),
		Device:        a.optStr("device"),
		Unit:          a.optStr("unit"),
		Value:         a.optStr("value"),
		CreationDate:  creation,
		StartDate:     start,
		EndDate:       end,
	}, nil
}

func buildCorrelation(a attrs, tp timeParser, profileID int64) (*models.Correlation, error) {
	start, err := a.reqTime("startDate", tp)
	if err != nil {
		return nil, err
	}
	end, err := a.reqTime("endDate", tp)
	if err != nil {
		return nil, err
	}
	creation, err := a.optTime("creationDate", tp)
	if err != nil {
		return nil, err
	}
	return &models.Correlation{
		ProfileID:     profileID,
		Type:          a.str("type"),
		SourceName:    a.optStr("sourceName"),
		SourceVersion: a.optStr("sourceVersion"),
		Device:        a.optStr("device"),
		CreationDate:  creation,
		StartDate:     start,
		EndDate:       end,
	}, nil
}

func buildWorkout(a attrs, tp timeParser, profileID int64) (*models.Workout, error) {
	start, err := a.reqTime("startDate", tp)
	if err != nil {
		return nil, err
	}
	end, err := a.reqTime("endDate", tp)
	if err != nil {
		return nil, err
	}
	creation, err := a.optTime("creationDate", tp)
	if err != nil {
		return nil, err
	}
	duration, err := a.optFloat("duration")
	if err != nil {
		return nil, err
	}
	distance, err := a.optFloat("totalDistance")
	if err != nil {
		return nil, err
	}
	energy, err := a.optFloat("totalEnergyBurned")
	if err != nil {
		return nil, err
	}
	return &models.Workout{
		ProfileID:             profileID,
		ActivityType:          a.str("workoutActivityType"),
		Duration:              duration,
		DurationUnit:          a.optStr("durationUnit"),
		TotalDistance:         distance,
		TotalDistanceUnit:     a.optStr("totalDistanceUnit"),
		TotalEnergyBurned:     energy,
		TotalEnergyBurnedUnit: a.optStr("totalEnergyBurnedUnit"),
		SourceName:            a.optStr("sourceName"),
		SourceVersion:         a.optStr("sourceVersion"),
		Device:                a.optStr("device"),
		CreationDate:          creation,
		StartDate:             start,
		EndDate:               end,
	}, nil
}

func buildActivitySummary(a attrs, profileID int64) (*models.ActivitySummary, error) {
	energy, err := a.optFloat("activeEnergyBurned")
	if err != nil {
		return nil, err
	}
	energyGoal, err := a.optFloat("activeEnergyBurnedGoal")
	if err != nil {
		return nil, err
	}
	moveTime, err := a.optFloat("appleMoveTime")
	if err != nil {
		return nil, err
	}
	moveTimeGoal, err := a.optFloat("appleMoveTimeGoal")
	if err != nil {
		return nil, err
	}
	exercise, err := a.optFloat("appleExerciseTime")
	if err != nil {
		return nil, err
	}
	exerciseGoal, err := a.optFloat("appleExerciseTimeGoal")
	if err != nil {
		return nil, err
	}
	standHours, err := a.optInt("appleStandHours")
	if err != nil {
		return nil, err
	}
	standHoursGoal, err := a.optInt("appleStandHoursGoal")
	if err != nil {
		return nil, err
	}
	return &models.ActivitySummary{
		ProfileID:              profileID,
		DateComponents:         a.str("dateComponents"),
		ActiveEnergyBurned:     energy,
		ActiveEnergyBurnedGoal: energyGoal,
		ActiveEnergyBurnedUnit: a.optStr("activeEnergyBurnedUnit"),
		AppleMoveTime:          moveTime,
		AppleMoveTimeGoal:      moveTimeGoal,
		AppleExerciseTime:      exercise,
		AppleExerciseTimeGoal:  exerciseGoal,
		AppleStandHours:        standHours,
		AppleStandHoursGoal:    standHoursGoal,
	}, nil
}

func buildClinicalRecord(a attrs, tp timeParser, profileID int64) (*models.ClinicalRecord, error) {
	received, err := a.reqTime("receivedDate", tp)
	if err != nil {
		return nil, err
	}
	return &models.ClinicalRecord{
		ProfileID:        profileID,
		Type:             a.str("type"),
		Identifier:       a.str("identifier"),
		SourceName:       a.optStr("sourceName"),
		SourceURL:        a.optStr("sourceURL"),
		FHIRVersion:      a.optStr("fhirVersion"),
		ReceivedDate:     received,
		ResourceFilePath: a.optStr("resourceFilePath"),
	}, nil
}

func buildAudiogram(a attrs, tp timeParser, profileID int64) (*models.Audiogram, error) {
	start, err := a.reqTime("startDate", tp)
	if err != nil {
		return nil, err
	}
	end, err := a.reqTime("endDate", tp)
	if err != nil {
		return nil, err
	}
	creation, err := a.optTime("creationDate", tp)
	if err != nil {
		return nil, err
	}
	return &models.Audiogram{
		ProfileID:     profileID,
		Type:          a.str("type"),
		SourceName:    a.optStr("sourceName"),
		SourceVersion: a.optStr("sourceVersion"),
		Device:        a.optStr("device"),
		CreationDate:  creation,
		StartDate:     start,
		EndDate:       end,
	}, nil
}

func buildVisionPrescription(a attrs, tp timeParser, profileID int64) (*models.VisionPrescription, error) {
	issued, err := a.reqTime("dateIssued", tp)
	if err != nil {
		return nil, err
	}
	expiration, err := a.optTime("expirationDate", tp)
	if err != nil {
		return nil, err
	}
	return &models.VisionPrescription{
		ProfileID:      profileID,
		Type:           a.str("type"),
		DateIssued:     issued,
		ExpirationDate: expiration,
		Brand:          a.optStr("brand"),
	}, nil
}

func buildWorkoutEvent(a attrs, tp timeParser, workoutID int64) (*models.WorkoutEvent, error) {
	date, err := a.reqTime("date", tp)
	if err != nil {
		return nil, err
	}
	duration, err := a.optFloat("duration")
	if err != nil {
		return nil, err
	}
	return &models.WorkoutEvent{
		WorkoutID:    workoutID,
		Type:         a.str("type"),
		Date:         date,
		Duration:     duration,
		DurationUnit: a.optStr("durationUnit"),
	}, nil
}

func buildWorkoutStatistics(a attrs, tp timeParser, workoutID int64) (*models.WorkoutStatistics, error) {
	start, err := a.reqTime("startDate", tp)
	if err != nil {
		return nil, err
	}
	end, err := a.reqTime("endDate", tp)
	if err != nil {
		return nil, err
	}
	average, err := a.optFloat("average")
	if err != nil {
		return nil, err
	}
	minimum, err := a.optFloat("minimum")
	if err != nil {
		return nil, err
	}
	maximum, err := a.optFloat("maximum")
	if err != nil {
		return nil, err
	}
	sum, err := a.optFloat("sum")
	if err != nil {
		return nil, err
	}
	return &models.WorkoutStatistics{
		WorkoutID: workoutID,
		Type:      a.str("type"),
		StartDate: start,
		EndDate:   end,
		Average:   average,
		Minimum:   minimum,
		Maximum:   maximum,
		Sum:       sum,
		Unit:      a.optStr("unit"),
	}, nil
}

func buildWorkoutRoute(a attrs, tp timeParser, workoutID int64) (*models.WorkoutRoute, error) {
	start, err := a.reqTime("startDate", tp)
	if err != nil {
		return nil, err
	}
	end, err := a.reqTime("endDate", tp)
	if err != nil {
		return nil, err
	}
	creation, err := a.optTime("creationDate", tp)
	if err != nil {
		return nil, err
	}
	return &models.WorkoutRoute{
		WorkoutID:     workoutID,
		SourceName:    a.optStr("sourceName"),
		SourceVersion: a.optStr("sourceVersion"),
		Device:        a.optStr("device"),
		CreationDate:  creation,
		StartDate:     start,
		EndDate:       end,
		FilePath:      a.optStr("filePath"),
	}, nil
}

func buildSensitivityPoint(a attrs, audiogramID int64) (*models.SensitivityPoint, error) {
	freq, err := a.optFloat("frequencyValue")
	if err != nil {
		return nil, err
	}
	if freq == nil {
		return nil, fmt.Errorf("missing attribute frequencyValue")
	}
	leftValue, err := a.optFloat("leftEarValue")
	if err != nil {
		return nil, err
	}
	leftLower, err := a.optFloat("leftEarClampingRangeLowerBound")
	if err != nil {
		return nil, err
	}
	leftUpper, err := a.optFloat("leftEarClampingRangeUpperBound")
	if err != nil {
		return nil, err
	}
	rightValue, err := a.optFloat("rightEarValue")
	if err != nil {
		return nil, err
	}
	rightLower, err := a.optFloat("rightEarClampingRangeLowerBound")
	if err != nil {
		return nil, err
	}
	rightUpper, err := a.optFloat("rightEarClampingRangeUpperBound")
	if err != nil {
		return nil, err
	}
	return &models.SensitivityPoint{
		AudiogramID:        audiogramID,
		FrequencyValue:     *freq,
		FrequencyUnit:      a.optStr("frequencyUnit"),
		LeftEarValue:       leftValue,
		LeftEarUnit:        a.optStr("leftEarUnit"),
		LeftEarMasked:      a.optBool("leftEarMasked"),
		LeftEarClampLower:  leftLower,
		LeftEarClampUpper:  leftUpper,
		RightEarValue:      rightValue,
		RightEarUnit:       a.optStr("rightEarUnit"),
		RightEarMasked:     a.optBool("rightEarMasked"),
		RightEarClampLower: rightLower,
		RightEarClampUpper: rightUpper,
	}, nil
}

func buildEyePrescription(a attrs, prescriptionID int64) (*models.EyePrescription, error) {
	eye := models.EyeRight
	if a.str("eye") == "left" {
		eye = models.EyeLeft
	}
	e := &models.EyePrescription{PrescriptionID: prescriptionID, Eye: eye}

	var err error
	fields := []struct {
		key string
		dst **float64
	}{
		{"sphere", &e.Sphere},
		{"cylinder", &e.Cylinder},
		{"axis", &e.Axis},
		{"add", &e.Add},
		{"vertex", &e.Vertex},
		{"prismAmount", &e.PrismAmount},
		{"prismAngle", &e.PrismAngle},
		{"farPD", &e.FarPD},
		{"nearPD", &e.NearPD},
		{"baseCurve", &e.BaseCurve},
		{"diameter", &e.Diameter},
	}
	for _, f := range fields {
		if *f.dst, err = a.optFloat(f.key); err != nil {
			return nil, err
		}
	}
	e.SphereUnit = a.optStr("sphereUnit")
	e.CylinderUnit = a.optStr("cylinderUnit")
	e.AxisUnit = a.optStr("axisUnit")
	e.AddUnit = a.optStr("addUnit")
	e.VertexUnit = a.optStr("vertexUnit")
	e.PrismAmountUnit = a.optStr("prismAmountUnit")
	e.PrismAngleUnit = a.optStr("prismAngleUnit")
	e.FarPDUnit = a.optStr("farPDUnit")
	e.NearPDUnit = a.optStr("nearPDUnit")
	e.BaseCurveUnit = a.optStr("baseCurveUnit")
	e.DiameterUnit = a.optStr("diameterUnit")
	return e, nil
}

func buildVisionAttachment(a attrs, prescriptionID int64) *models.VisionAttachment {
	return &models.VisionAttachment{
		PrescriptionID: prescriptionID,
		Identifier:     a.optStr("identifier"),
	}
}

func buildMetadataEntry(a attrs, parent models.ParentRef) *models.MetadataEntry {
	return &models.MetadataEntry{
		ParentKind: parent.Kind,
		ParentID:   parent.ID,
		Key:        a.str("key"),
		Value:      a.optStr("value"),
	}
}

func buildBeatSample(a attrs, tp timeParser, seriesID int64, base time.Time) (*models.BeatSample, error) {
	bpmStr := a.str("bpm")
	if bpmStr == "" {
		return nil, fmt.Errorf("missing attribute bpm")
	}
	bpm, err := strconv.Atoi(bpmStr)
	if err != nil {
		return nil, fmt.Errorf("attribute bpm: %w", err)
	}
	timeStr := a.str("time")
	if timeStr == "" {
		return nil, fmt.Errorf("missing attribute time")
	}
	t, err := tp.parseSampleTime(timeStr, base)
	if err != nil {
		return nil, err
	}
	return &models.BeatSample{SeriesID: seriesID, BPM: bpm, Time: t}, nil
}
