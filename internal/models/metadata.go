// ABOUTME: Polymorphic metadata model and the ParentRef tagged union.
// ABOUTME: MetadataEntry attaches to whichever parent context is open.
package models

// ParentKind tags which entity kind a metadata entry belongs to.
type ParentKind string

const (
	ParentRecord             ParentKind = "record"
	ParentWorkout            ParentKind = "workout"
	ParentCorrelation        ParentKind = "correlation"
	ParentAudiogram          ParentKind = "audiogram"
	ParentVisionPrescription ParentKind = "vision_prescription"
)

// ParentRef is a typed reference to the currently open parent entity.
// The zero value means no parent is open.
type ParentRef struct {
	Kind ParentKind
	ID   int64
}

// Valid reports whether the reference points at a persisted parent.
func (p ParentRef) Valid() bool {
	return p.Kind != "" && p.ID != 0
}

// MetadataEntry is a free-form key/value note attached to the parent
// entity that was open when the element was seen.
type MetadataEntry struct {
	ID         int64
	ParentKind ParentKind
	ParentID   int64
	Key        string
	Value      *string
}
