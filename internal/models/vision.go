// ABOUTME: Vision prescription models: session, per-eye parameters, attachments.
// ABOUTME: EyeSide is a string enum matching the export's "left"/"right".
package models

import "time"

// EyeSide identifies which eye a Prescription element describes.
type EyeSide string

const (
	EyeLeft  EyeSide = "left"
	EyeRight EyeSide = "right"
)

// VisionPrescription is an optical prescription session.
type VisionPrescription struct {
	ID             int64
	ProfileID      int64
	Type           string
	DateIssued     time.Time
	ExpirationDate *time.Time
	Brand          *string
}

// EyePrescription holds the optical parameters for one eye.
type EyePrescription struct {
	ID              int64
	PrescriptionID  int64
	Eye             EyeSide
	Sphere          *float64
	SphereUnit      *string
	Cylinder        *float64
	CylinderUnit    *string
	Axis            *float64
	AxisUnit        *string
	Add             *float64
	AddUnit         *string
	Vertex          *float64
	VertexUnit      *string
	PrismAmount     *float64
	PrismAmountUnit *string
	PrismAngle      *float64
	PrismAngleUnit  *string
	FarPD           *float64
	FarPDUnit       *string
	NearPD          *float64
	NearPDUnit      *string
	BaseCurve       *float64
	BaseCurveUnit   *string
	Diameter        *float64
	DiameterUnit    *string
}

// VisionAttachment references a file attached to a prescription.
type VisionAttachment struct {
	ID             int64
	PrescriptionID int64
	Identifier     *string
}
