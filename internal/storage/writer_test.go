// ABOUTME: Tests for the batched writer's transaction and queue behavior.
// ABOUTME: Uses a second connection to observe only committed state.
package storage

import (
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/harperreed/hkimport/internal/models"
)

func setupTestDB(t *testing.T) (*DB, string) {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "health.db")
	db, err := Open(dbPath)
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db, dbPath
}

// committedCount counts rows over a separate connection, so rows still
// pending in the writer's open transaction are not visible.
func committedCount(t *testing.T, dbPath, table string) int64 {
	t.Helper()
	conn, err := sql.Open("sqlite", dbPath)
	if err != nil {
		t.Fatalf("failed to open raw connection: %v", err)
	}
	defer conn.Close()
	var n int64
	if err := conn.QueryRow("SELECT COUNT(*) FROM " + table).Scan(&n); err != nil {
		t.Fatalf("count %s failed: %v", table, err)
	}
	return n
}

func testProfile(t *testing.T, w *Writer) *models.Profile {
	t.Helper()
	p := &models.Profile{Locale: "en_US", ExportDate: time.Now()}
	if err := w.InsertProfile(p); err != nil {
		t.Fatalf("InsertProfile failed: %v", err)
	}
	return p
}

func sampleRecord(profileID int64, value string) *models.Record {
	return &models.Record{
		ProfileID: profileID,
		Type:      "HKQuantityTypeIdentifierHeartRate",
		Value:     &value,
		StartDate: time.Date(2024, 1, 1, 8, 0, 0, 0, time.UTC),
		EndDate:   time.Date(2024, 1, 1, 8, 0, 0, 0, time.UTC),
	}
}

func TestWriterDeferredCommit(t *testing.T) {
	db, dbPath := setupTestDB(t)
	w := db.NewWriter(0, 0)
	p := testProfile(t, w)

	rec := sampleRecord(p.ID, "60")
	if err := w.InsertRecord(rec); err != nil {
		t.Fatalf("InsertRecord failed: %v", err)
	}
	if rec.ID == 0 {
		t.Fatal("record should have an id before commit")
	}

	// The commit is deferred, so another connection sees nothing yet.
	if n := committedCount(t, dbPath, "records"); n != 0 {
		t.Errorf("uncommitted record visible to other connections: %d rows", n)
	}

	// Dedup lookups run on the writer's transaction and do see it.
	id, err := w.FindRecord(sampleRecord(p.ID, "60"))
	if err != nil {
		t.Fatalf("FindRecord failed: %v", err)
	}
	if id != rec.ID {
		t.Errorf("FindRecord = %d, want %d", id, rec.ID)
	}

	if err := w.Flush(); err != nil {
		t.Fatalf("Flush failed: %v", err)
	}
	if n := committedCount(t, dbPath, "records"); n != 1 {
		t.Errorf("after flush: %d rows, want 1", n)
	}
}

func TestWriterTransactionThreshold(t *testing.T) {
	db, dbPath := setupTestDB(t)
	w := db.NewWriter(0, 2)
	p := testProfile(t, w)

	if err := w.InsertRecord(sampleRecord(p.ID, "60")); err != nil {
		t.Fatalf("InsertRecord failed: %v", err)
	}
	if err := w.InsertRecord(sampleRecord(p.ID, "61")); err != nil {
		t.Fatalf("InsertRecord failed: %v", err)
	}

	// The second insert crossed the threshold and committed.
	if n := committedCount(t, dbPath, "records"); n != 2 {
		t.Errorf("after threshold: %d rows, want 2", n)
	}
}

func TestWriterBatchThreshold(t *testing.T) {
	db, dbPath := setupTestDB(t)
	w := db.NewWriter(2, 0)
	p := testProfile(t, w)

	rec := sampleRecord(p.ID, "60")
	if err := w.InsertRecord(rec); err != nil {
		t.Fatalf("InsertRecord failed: %v", err)
	}

	entry := models.MetadataEntry{ParentKind: models.ParentRecord, ParentID: rec.ID, Key: "a"}
	if err := w.QueueMetadataEntry(entry); err != nil {
		t.Fatalf("QueueMetadataEntry failed: %v", err)
	}
	if n := committedCount(t, dbPath, "metadata_entries"); n != 0 {
		t.Errorf("queued entry committed early: %d rows", n)
	}

	entry.Key = "b"
	if err := w.QueueMetadataEntry(entry); err != nil {
		t.Fatalf("QueueMetadataEntry failed: %v", err)
	}
	if n := committedCount(t, dbPath, "metadata_entries"); n != 2 {
		t.Errorf("after batch threshold: %d rows, want 2", n)
	}
}

func TestWriterRollback(t *testing.T) {
	db, dbPath := setupTestDB(t)
	w := db.NewWriter(0, 0)
	p := testProfile(t, w)

	rec := sampleRecord(p.ID, "60")
	if err := w.InsertRecord(rec); err != nil {
		t.Fatalf("InsertRecord failed: %v", err)
	}
	if err := w.QueueMetadataEntry(models.MetadataEntry{
		ParentKind: models.ParentRecord, ParentID: rec.ID, Key: "a",
	}); err != nil {
		t.Fatalf("QueueMetadataEntry failed: %v", err)
	}

	if err := w.Rollback(); err != nil {
		t.Fatalf("Rollback failed: %v", err)
	}
	if err := w.Flush(); err != nil {
		t.Fatalf("Flush after rollback failed: %v", err)
	}

	if n := committedCount(t, dbPath, "records"); n != 0 {
		t.Errorf("rolled-back record persisted: %d rows", n)
	}
	if n := committedCount(t, dbPath, "metadata_entries"); n != 0 {
		t.Errorf("discarded queue persisted: %d rows", n)
	}
	// The profile committed before the rollback and stays durable.
	if n := committedCount(t, dbPath, "profiles"); n != 1 {
		t.Errorf("profiles has %d rows, want 1", n)
	}
}

func TestFindRecordValueSemantics(t *testing.T) {
	db, _ := setupTestDB(t)
	w := db.NewWriter(0, 0)
	p := testProfile(t, w)

	rec := sampleRecord(p.ID, "60")
	if err := w.InsertRecord(rec); err != nil {
		t.Fatalf("InsertRecord failed: %v", err)
	}
	if err := w.Flush(); err != nil {
		t.Fatalf("Flush failed: %v", err)
	}

	// Different value is a different record.
	if id, err := w.FindRecord(sampleRecord(p.ID, "61")); err != nil || id != 0 {
		t.Errorf("FindRecord(value 61) = %d, %v; want 0, nil", id, err)
	}

	// Absent value never matches a present one.
	noValue := sampleRecord(p.ID, "")
	noValue.Value = nil
	if id, err := w.FindRecord(noValue); err != nil || id != 0 {
		t.Errorf("FindRecord(nil value) = %d, %v; want 0, nil", id, err)
	}

	// A second value-less record matches only other value-less rows.
	if err := w.InsertRecord(noValue); err != nil {
		t.Fatalf("InsertRecord failed: %v", err)
	}
	if err := w.Flush(); err != nil {
		t.Fatalf("Flush failed: %v", err)
	}
	probe := sampleRecord(p.ID, "")
	probe.Value = nil
	id, err := w.FindRecord(probe)
	if err != nil {
		t.Fatalf("FindRecord failed: %v", err)
	}
	if id != noValue.ID {
		t.Errorf("FindRecord(nil value) = %d, want %d", id, noValue.ID)
	}
}

func TestProfileLifecycle(t *testing.T) {
	db, _ := setupTestDB(t)
	w := db.NewWriter(0, 0)

	existing, err := w.FindProfile()
	if err != nil {
		t.Fatalf("FindProfile failed: %v", err)
	}
	if existing != nil {
		t.Fatal("empty store should have no profile")
	}

	p := testProfile(t, w)
	if p.ID == 0 {
		t.Fatal("profile should have an id")
	}

	p.DateOfBirth = "1990-01-01"
	p.BiologicalSex = "HKBiologicalSexMale"
	if err := w.UpdateProfileTraits(p); err != nil {
		t.Fatalf("UpdateProfileTraits failed: %v", err)
	}
	exportDate := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	if err := w.UpdateProfileExportDate(p.ID, exportDate); err != nil {
		t.Fatalf("UpdateProfileExportDate failed: %v", err)
	}

	got, err := w.FindProfile()
	if err != nil {
		t.Fatalf("FindProfile failed: %v", err)
	}
	if got == nil {
		t.Fatal("profile not found after insert")
	}
	if got.ID != p.ID {
		t.Errorf("ID = %d, want %d", got.ID, p.ID)
	}
	if got.DateOfBirth != "1990-01-01" {
		t.Errorf("DateOfBirth = %q, want %q", got.DateOfBirth, "1990-01-01")
	}
	if !got.ExportDate.Equal(exportDate) {
		t.Errorf("ExportDate = %v, want %v", got.ExportDate, exportDate)
	}
}

func TestFindProfileCorruptExportDate(t *testing.T) {
	db, _ := setupTestDB(t)
	if _, err := db.db.Exec(
		`INSERT INTO profiles (locale, export_date) VALUES ('en_US', 'not-a-timestamp')`,
	); err != nil {
		t.Fatalf("failed to plant corrupt row: %v", err)
	}

	w := db.NewWriter(0, 0)
	if _, err := w.FindProfile(); err == nil {
		t.Error("expected error for corrupt stored export date")
	}
}

func TestChildDedupLookups(t *testing.T) {
	db, _ := setupTestDB(t)
	w := db.NewWriter(0, 0)
	p := testProfile(t, w)

	rec := sampleRecord(p.ID, "60")
	if err := w.InsertRecord(rec); err != nil {
		t.Fatalf("InsertRecord failed: %v", err)
	}

	c := &models.Correlation{
		ProfileID: p.ID,
		Type:      "HKCorrelationTypeIdentifierBloodPressure",
		StartDate: rec.StartDate,
		EndDate:   rec.EndDate,
	}
	if err := w.InsertCorrelation(c); err != nil {
		t.Fatalf("InsertCorrelation failed: %v", err)
	}

	if id, err := w.FindCorrelationRecord(c.ID, rec.ID); err != nil || id != 0 {
		t.Errorf("FindCorrelationRecord = %d, %v; want 0, nil", id, err)
	}
	if err := w.QueueCorrelationRecord(models.CorrelationRecord{
		CorrelationID: c.ID, RecordID: rec.ID,
	}); err != nil {
		t.Fatalf("QueueCorrelationRecord failed: %v", err)
	}
	if err := w.Flush(); err != nil {
		t.Fatalf("Flush failed: %v", err)
	}
	id, err := w.FindCorrelationRecord(c.ID, rec.ID)
	if err != nil {
		t.Fatalf("FindCorrelationRecord failed: %v", err)
	}
	if id == 0 {
		t.Error("membership link not found after flush")
	}

	h := &models.HRVSeries{RecordID: rec.ID}
	if err := w.InsertHRVSeries(h); err != nil {
		t.Fatalf("InsertHRVSeries failed: %v", err)
	}
	got, err := w.FindHRVSeries(rec.ID)
	if err != nil {
		t.Fatalf("FindHRVSeries failed: %v", err)
	}
	if got != h.ID {
		t.Errorf("FindHRVSeries = %d, want %d", got, h.ID)
	}
	if err := w.Flush(); err != nil {
		t.Fatalf("Flush failed: %v", err)
	}
}
