// ABOUTME: Streaming traversal engine for Apple Health export XML.
// ABOUTME: Forward-only token loop with per-kind current-parent tracking.
package importer

import (
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/harperreed/hkimport/internal/models"
	"github.com/harperreed/hkimport/internal/storage"
)

const (
	// DefaultCutoff keeps the most recent six months of dated entities.
	DefaultCutoff = 180 * 24 * time.Hour

	// DefaultTimezone is the reference zone all timestamps are
	// normalized into.
	DefaultTimezone = "Europe/Zurich"

	defaultProgressInterval = 5000
	errorLogLimit           = 10
)

var errNoParent = errors.New("no open parent with an assigned identity")

// Config tunes a parse run. The zero value selects the defaults.
type Config struct {
	// Cutoff drops dated entities whose start time is older than
	// now minus this duration.
	Cutoff time.Duration

	// BatchSize and TransactionSize tune the store writer.
	BatchSize       int
	TransactionSize int

	// Location is the reference time zone.
	Location *time.Location

	// Progress, when set, receives a counter snapshot every
	// ProgressInterval start elements and once at end of input.
	Progress         ProgressFunc
	ProgressInterval int64
}

// Parser streams an export file into the store. It keeps a bounded
// memory footprint regardless of input size: the XML decoder never
// materializes subtrees and the writer bounds its buffers.
type Parser struct {
	db  *storage.DB
	cfg Config
	log *zap.Logger
	tp  timeParser
	now func() time.Time
}

// New creates a Parser. A nil logger disables logging.
func New(db *storage.DB, cfg Config, log *zap.Logger) *Parser {
	if cfg.Cutoff <= 0 {
		cfg.Cutoff = DefaultCutoff
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = storage.DefaultBatchSize
	}
	if cfg.TransactionSize <= 0 {
		cfg.TransactionSize = storage.DefaultTransactionSize
	}
	if cfg.ProgressInterval <= 0 {
		cfg.ProgressInterval = defaultProgressInterval
	}
	if cfg.Location == nil {
		loc, err := time.LoadLocation(DefaultTimezone)
		if err != nil {
			loc = time.UTC
		}
		cfg.Location = loc
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Parser{db: db, cfg: cfg, log: log, tp: timeParser{loc: cfg.Location}, now: time.Now}
}

// cursor tracks the currently open ancestor entities in document
// order: one slot per nestable kind plus the generic metadata parent.
type cursor struct {
	profile     *models.Profile
	correlation int64
	workout     int64
	audiogram   int64
	vision      int64
	record      int64
	recordStart time.Time
	hrv         int64
	parent      models.ParentRef
}

// clearParent resets the metadata parent if it points at the given
// kind.
func (c *cursor) clearParent(kind models.ParentKind) {
	if c.parent.Kind == kind {
		c.parent = models.ParentRef{}
	}
}

// ParseFile streams one export file into the store and returns the
// final counter snapshot. Per-element failures are counted and
// skipped; only fatal conditions (missing file, stream I/O failure,
// store failure, cancellation) return an error. Cancellation is
// honored between top-level entities; committed batches stay durable
// and the trailing open transaction is rolled back.
func (p *Parser) ParseFile(ctx context.Context, xmlPath string) (*Stats, error) {
	f, err := os.Open(xmlPath)
	if err != nil {
		return nil, fmt.Errorf("open export file: %w", err)
	}
	defer f.Close()

	session, err := p.db.BeginSession(xmlPath)
	if err != nil {
		return nil, err
	}

	w := p.db.NewWriter(p.cfg.BatchSize, p.cfg.TransactionSize)
	cutoff := p.now().In(p.tp.loc).Add(-p.cfg.Cutoff)
	stats := &Stats{}
	cur := &cursor{}

	p.log.Info("starting import",
		zap.String("file", xmlPath),
		zap.Time("cutoff", cutoff))

	dec := xml.NewDecoder(f)
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			_ = w.Rollback()
			return nil, fmt.Errorf("read export stream: %w", err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			stats.Elements++
			if p.cfg.Progress != nil && stats.Elements%p.cfg.ProgressInterval == 0 {
				p.cfg.Progress(*stats)
			}
			if err := p.handleStart(ctx, w, cur, cutoff, stats, t); err != nil {
				_ = w.Rollback()
				return nil, err
			}
		case xml.EndElement:
			handleEnd(cur, t.Name.Local)
		}
	}

	if err := w.Flush(); err != nil {
		return nil, fmt.Errorf("flush batches: %w", err)
	}

	session.Imported = stats.Imported()
	session.Duplicates = stats.Duplicates
	session.Filtered = stats.FilteredOld
	session.Errors = stats.Errors
	if err := p.db.FinishSession(session); err != nil {
		return nil, err
	}

	if p.cfg.Progress != nil {
		p.cfg.Progress(*stats)
	}
	p.log.Info("import complete",
		zap.Int64("imported", stats.Imported()),
		zap.Int64("duplicates", stats.Duplicates),
		zap.Int64("filtered", stats.FilteredOld),
		zap.Int64("errors", stats.Errors))

	return stats, nil
}

// handleStart dispatches one open event. Returned errors are fatal;
// per-element failures are counted via elementError and skipped.
// Elements outside the fixed vocabulary are ignored.
func (p *Parser) handleStart(ctx context.Context, w *storage.Writer, cur *cursor, cutoff time.Time, stats *Stats, el xml.StartElement) error {
	switch el.Name.Local {
	case "HealthData":
		return p.openProfile(w, cur, attrMap(el))
	case "ExportDate":
		return p.handleExportDate(w, cur, stats, attrMap(el))
	case "Me":
		if cur.profile == nil {
			return nil
		}
		applyTraits(cur.profile, attrMap(el))
		return w.UpdateProfileTraits(cur.profile)
	case "Record":
		if err := ctx.Err(); err != nil {
			return err
		}
		return p.handleRecord(w, cur, cutoff, stats, attrMap(el))
	case "Correlation":
		if err := ctx.Err(); err != nil {
			return err
		}
		return p.handleCorrelation(w, cur, cutoff, stats, attrMap(el))
	case "Workout":
		if err := ctx.Err(); err != nil {
			return err
		}
		return p.handleWorkout(w, cur, cutoff, stats, attrMap(el))
	case "ActivitySummary":
		if err := ctx.Err(); err != nil {
			return err
		}
		return p.handleActivitySummary(w, cur, stats, attrMap(el))
	case "ClinicalRecord":
		if err := ctx.Err(); err != nil {
			return err
		}
		return p.handleClinicalRecord(w, cur, stats, attrMap(el))
	case "Audiogram":
		if err := ctx.Err(); err != nil {
			return err
		}
		return p.handleAudiogram(w, cur, cutoff, stats, attrMap(el))
	case "VisionPrescription":
		if err := ctx.Err(); err != nil {
			return err
		}
		return p.handleVisionPrescription(w, cur, stats, attrMap(el))
	case "MetadataEntry":
		return p.handleMetadata(w, cur, stats, attrMap(el))
	case "HeartRateVariabilityMetadataList":
		return p.handleHRVSeries(w, cur, stats)
	case "InstantaneousBeatsPerMinute":
		return p.handleBeatSample(w, cur, stats, attrMap(el))
	case "WorkoutEvent":
		return p.handleWorkoutEvent(w, cur, stats, attrMap(el))
	case "WorkoutStatistics":
		return p.handleWorkoutStatistics(w, cur, stats, attrMap(el))
	case "WorkoutRoute":
		return p.handleWorkoutRoute(w, cur, stats, attrMap(el))
	case "SensitivityPoint":
		return p.handleSensitivityPoint(w, cur, stats, attrMap(el))
	case "Prescription":
		return p.handleEyePrescription(w, cur, stats, attrMap(el))
	case "Attachment":
		return p.handleVisionAttachment(w, cur, stats, attrMap(el))
	}
	return nil
}

// openProfile creates the singleton profile row, or reuses the one an
// earlier import created.
func (p *Parser) openProfile(w *storage.Writer, cur *cursor, a attrs) error {
	if cur.profile != nil {
		return nil
	}
	existing, err := w.FindProfile()
	if err != nil {
		return err
	}
	if existing != nil {
		p.log.Info("reusing existing profile", zap.Int64("id", existing.ID))
		cur.profile = existing
		return nil
	}
	profile := buildProfile(a)
	// Placeholder until the ExportDate header element arrives.
	profile.ExportDate = time.Now().In(p.tp.loc)
	if err := w.InsertProfile(profile); err != nil {
		return err
	}
	p.log.Info("created profile", zap.Int64("id", profile.ID))
	cur.profile = profile
	return nil
}

func (p *Parser) handleExportDate(w *storage.Writer, cur *cursor, stats *Stats, a attrs) error {
	if cur.profile == nil {
		return nil
	}
	v := a.str("value")
	if v == "" {
		return nil
	}
	t, err := p.tp.parseTimestamp(v)
	if err != nil {
		p.elementError(stats, "ExportDate", err)
		return nil
	}
	cur.profile.ExportDate = t
	return w.UpdateProfileExportDate(cur.profile.ID, t)
}

func (p *Parser) handleRecord(w *storage.Writer, cur *cursor, cutoff time.Time, stats *Stats, a attrs) error {
	if cur.profile == nil {
		return nil
	}
	rec, err := buildRecord(a, p.tp, cur.profile.ID)
	if err != nil {
		p.elementError(stats, "Record", err)
		return nil
	}
	if rec.StartDate.Before(cutoff) {
		stats.FilteredOld++
		return nil
	}

	existingID, err := w.FindRecord(rec)
	if err != nil {
		return err
	}

	// A record inside an open correlation is a member, not a new
	// parent context; it is committed immediately and linked.
	if cur.correlation != 0 {
		if existingID != 0 {
			stats.Duplicates++
			rec.ID = existingID
		} else {
			if err := w.InsertRecord(rec); err != nil {
				return err
			}
			if err := w.Commit(); err != nil {
				return err
			}
			stats.Records++
		}
		linkID, err := w.FindCorrelationRecord(cur.correlation, rec.ID)
		if err != nil {
			return err
		}
		if linkID == 0 {
			link := models.CorrelationRecord{CorrelationID: cur.correlation, RecordID: rec.ID}
			if err := w.QueueCorrelationRecord(link); err != nil {
				return err
			}
			stats.CorrelationRecords++
		}
		return nil
	}

	if existingID != 0 {
		stats.Duplicates++
		rec.ID = existingID
	} else {
		if err := w.InsertRecord(rec); err != nil {
			return err
		}
		stats.Records++
	}
	cur.record = rec.ID
	cur.recordStart = rec.StartDate
	cur.parent = models.ParentRef{Kind: models.ParentRecord, ID: rec.ID}
	return nil
}

func (p *Parser) handleCorrelation(w *storage.Writer, cur *cursor, cutoff time.Time, stats *Stats, a attrs) error {
	if cur.profile == nil {
		return nil
	}
	c, err := buildCorrelation(a, p.tp, cur.profile.ID)
	if err != nil {
		p.elementError(stats, "Correlation", err)
		return nil
	}
	if c.StartDate.Before(cutoff) {
		stats.FilteredOld++
		return nil
	}
	existingID, err := w.FindCorrelation(c)
	if err != nil {
		return err
	}
	if existingID != 0 {
		stats.Duplicates++
		c.ID = existingID
	} else {
		if err := w.InsertCorrelation(c); err != nil {
			return err
		}
		stats.Correlations++
	}
	cur.correlation = c.ID
	cur.parent = models.ParentRef{Kind: models.ParentCorrelation, ID: c.ID}
	return nil
}

func (p *Parser) handleWorkout(w *storage.Writer, cur *cursor, cutoff time.Time, stats *Stats, a attrs) error {
	if cur.profile == nil {
		return nil
	}
	wk, err := buildWorkout(a, p.tp, cur.profile.ID)
	if err != nil {
		p.elementError(stats, "Workout", err)
		return nil
	}
	if wk.StartDate.Before(cutoff) {
		stats.FilteredOld++
		return nil
	}
	existingID, err := w.FindWorkout(wk)
	if err != nil {
		return err
	}
	if existingID != 0 {
		stats.Duplicates++
		wk.ID = existingID
	} else {
		if err := w.InsertWorkout(wk); err != nil {
			return err
		}
		stats.Workouts++
	}
	cur.workout = wk.ID
	cur.parent = models.ParentRef{Kind: models.ParentWorkout, ID: wk.ID}
	return nil
}

func (p *Parser) handleActivitySummary(w *storage.Writer, cur *cursor, stats *Stats, a attrs) error {
	if cur.profile == nil {
		return nil
	}
	s, err := buildActivitySummary(a, cur.profile.ID)
	if err != nil {
		p.elementError(stats, "ActivitySummary", err)
		return nil
	}
	existingID, err := w.FindActivitySummary(s)
	if err != nil {
		return err
	}
	if existingID != 0 {
		stats.Duplicates++
		return nil
	}
	if err := w.QueueActivitySummary(*s); err != nil {
		return err
	}
	stats.ActivitySummaries++
	return nil
}

func (p *Parser) handleClinicalRecord(w *storage.Writer, cur *cursor, stats *Stats, a attrs) error {
	if cur.profile == nil {
		return nil
	}
	c, err := buildClinicalRecord(a, p.tp, cur.profile.ID)
	if err != nil {
		p.elementError(stats, "ClinicalRecord", err)
		return nil
	}
	existingID, err := w.FindClinicalRecord(c)
	if err != nil {
		return err
	}
	if existingID != 0 {
		stats.Duplicates++
		return nil
	}
	if err := w.QueueClinicalRecord(*c); err != nil {
		return err
	}
	stats.ClinicalRecords++
	return nil
}

func (p *Parser) handleAudiogram(w *storage.Writer, cur *cursor, cutoff time.Time, stats *Stats, a attrs) error {
	if cur.profile == nil {
		return nil
	}
	ag, err := buildAudiogram(a, p.tp, cur.profile.ID)
	if err != nil {
		p.elementError(stats, "Audiogram", err)
		return nil
	}
	if ag.StartDate.Before(cutoff) {
		stats.FilteredOld++
		return nil
	}
	existingID, err := w.FindAudiogram(ag)
	if err != nil {
		return err
	}
	if existingID != 0 {
		stats.Duplicates++
		ag.ID = existingID
	} else {
		if err := w.InsertAudiogram(ag); err != nil {
			return err
		}
		stats.Audiograms++
	}
	cur.audiogram = ag.ID
	cur.parent = models.ParentRef{Kind: models.ParentAudiogram, ID: ag.ID}
	return nil
}

func (p *Parser) handleVisionPrescription(w *storage.Writer, cur *cursor, stats *Stats, a attrs) error {
	if cur.profile == nil {
		return nil
	}
	v, err := buildVisionPrescription(a, p.tp, cur.profile.ID)
	if err != nil {
		p.elementError(stats, "VisionPrescription", err)
		return nil
	}
	existingID, err := w.FindVisionPrescription(v)
	if err != nil {
		return err
	}
	if existingID != 0 {
		stats.Duplicates++
		v.ID = existingID
	} else {
		if err := w.InsertVisionPrescription(v); err != nil {
			return err
		}
		stats.VisionPrescriptions++
	}
	cur.vision = v.ID
	cur.parent = models.ParentRef{Kind: models.ParentVisionPrescription, ID: v.ID}
	return nil
}

func (p *Parser) handleMetadata(w *storage.Writer, cur *cursor, stats *Stats, a attrs) error {
	if !cur.parent.Valid() {
		p.elementError(stats, "MetadataEntry", errNoParent)
		return nil
	}
	if err := w.QueueMetadataEntry(*buildMetadataEntry(a, cur.parent)); err != nil {
		return err
	}
	stats.MetadataEntries++
	return nil
}

func (p *Parser) handleHRVSeries(w *storage.Writer, cur *cursor, stats *Stats) error {
	if cur.record == 0 {
		p.elementError(stats, "HeartRateVariabilityMetadataList", errNoParent)
		return nil
	}
	existingID, err := w.FindHRVSeries(cur.record)
	if err != nil {
		return err
	}
	if existingID != 0 {
		stats.Duplicates++
		cur.hrv = existingID
		return nil
	}
	h := &models.HRVSeries{RecordID: cur.record}
	if err := w.InsertHRVSeries(h); err != nil {
		return err
	}
	stats.HRVSeries++
	cur.hrv = h.ID
	return nil
}

func (p *Parser) handleBeatSample(w *storage.Writer, cur *cursor, stats *Stats, a attrs) error {
	if cur.hrv == 0 {
		p.elementError(stats, "InstantaneousBeatsPerMinute", errNoParent)
		return nil
	}
	b, err := buildBeatSample(a, p.tp, cur.hrv, cur.recordStart)
	if err != nil {
		p.elementError(stats, "InstantaneousBeatsPerMinute", err)
		return nil
	}
	return w.QueueBeatSample(*b)
}

func (p *Parser) handleWorkoutEvent(w *storage.Writer, cur *cursor, stats *Stats, a attrs) error {
	if cur.workout == 0 {
		p.elementError(stats, "WorkoutEvent", errNoParent)
		return nil
	}
	e, err := buildWorkoutEvent(a, p.tp, cur.workout)
	if err != nil {
		p.elementError(stats, "WorkoutEvent", err)
		return nil
	}
	return w.QueueWorkoutEvent(*e)
}

func (p *Parser) handleWorkoutStatistics(w *storage.Writer, cur *cursor, stats *Stats, a attrs) error {
	if cur.workout == 0 {
		p.elementError(stats, "WorkoutStatistics", errNoParent)
		return nil
	}
	s, err := buildWorkoutStatistics(a, p.tp, cur.workout)
	if err != nil {
		p.elementError(stats, "WorkoutStatistics", err)
		return nil
	}
	return w.QueueWorkoutStatistics(*s)
}

func (p *Parser) handleWorkoutRoute(w *storage.Writer, cur *cursor, stats *Stats, a attrs) error {
	if cur.workout == 0 {
		p.elementError(stats, "WorkoutRoute", errNoParent)
		return nil
	}
	r, err := buildWorkoutRoute(a, p.tp, cur.workout)
	if err != nil {
		p.elementError(stats, "WorkoutRoute", err)
		return nil
	}
	existingID, err := w.FindWorkoutRoute(cur.workout)
	if err != nil {
		return err
	}
	if existingID != 0 {
		stats.Duplicates++
		return nil
	}
	return w.InsertWorkoutRoute(r)
}

func (p *Parser) handleSensitivityPoint(w *storage.Writer, cur *cursor, stats *Stats, a attrs) error {
	if cur.audiogram == 0 {
		p.elementError(stats, "SensitivityPoint", errNoParent)
		return nil
	}
	pt, err := buildSensitivityPoint(a, cur.audiogram)
	if err != nil {
		p.elementError(stats, "SensitivityPoint", err)
		return nil
	}
	return w.QueueSensitivityPoint(*pt)
}

func (p *Parser) handleEyePrescription(w *storage.Writer, cur *cursor, stats *Stats, a attrs) error {
	if cur.vision == 0 {
		p.elementError(stats, "Prescription", errNoParent)
		return nil
	}
	e, err := buildEyePrescription(a, cur.vision)
	if err != nil {
		p.elementError(stats, "Prescription", err)
		return nil
	}
	return w.QueueEyePrescription(*e)
}

func (p *Parser) handleVisionAttachment(w *storage.Writer, cur *cursor, stats *Stats, a attrs) error {
	if cur.vision == 0 {
		p.elementError(stats, "Attachment", errNoParent)
		return nil
	}
	return w.QueueVisionAttachment(*buildVisionAttachment(a, cur.vision))
}

// handleEnd clears the current slot for the closing entity and, when
// the metadata parent points at it, the parent reference too.
func handleEnd(cur *cursor, name string) {
	switch name {
	case "Correlation":
		cur.correlation = 0
		cur.clearParent(models.ParentCorrelation)
	case "Workout":
		cur.workout = 0
		cur.clearParent(models.ParentWorkout)
	case "Audiogram":
		cur.audiogram = 0
		cur.clearParent(models.ParentAudiogram)
	case "VisionPrescription":
		cur.vision = 0
		cur.clearParent(models.ParentVisionPrescription)
	case "Record":
		// A record closing inside an open correlation keeps the
		// correlation as the active context.
		if cur.correlation == 0 {
			cur.record = 0
			cur.recordStart = time.Time{}
			cur.clearParent(models.ParentRecord)
		}
	case "HeartRateVariabilityMetadataList":
		cur.hrv = 0
	}
}

// elementError counts a per-element failure. Only the first few are
// surfaced; pathological inputs can produce millions.
func (p *Parser) elementError(stats *Stats, element string, err error) {
	stats.Errors++
	if stats.Errors <= errorLogLimit {
		p.log.Warn("skipping element",
			zap.String("element", element),
			zap.Error(err))
	}
}
