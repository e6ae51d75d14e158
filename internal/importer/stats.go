// ABOUTME: Counter accumulation and progress reporting for imports.
// ABOUTME: Purely observational; never affects parse control flow.
package importer

// Stats is the counter snapshot for one parse run. Imported counts are
// per entity kind; Duplicates, FilteredOld, and Errors are shared
// across kinds, matching the export's observed failure modes.
type Stats struct {
	Records             int64
	Correlations        int64
	CorrelationRecords  int64
	Workouts            int64
	ActivitySummaries   int64
	ClinicalRecords     int64
	Audiograms          int64
	VisionPrescriptions int64
	MetadataEntries     int64
	HRVSeries           int64

	Duplicates  int64
	FilteredOld int64
	Errors      int64

	// Elements is the raw count of start elements consumed.
	Elements int64
}

// Imported sums the per-kind imported counters.
func (s *Stats) Imported() int64 {
	return s.Records + s.Correlations + s.CorrelationRecords + s.Workouts +
		s.ActivitySummaries + s.ClinicalRecords + s.Audiograms +
		s.VisionPrescriptions + s.MetadataEntries + s.HRVSeries
}

// ProgressFunc receives periodic counter snapshots during a parse.
type ProgressFunc func(Stats)
