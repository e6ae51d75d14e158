// ABOUTME: Tests for import session audit rows and table row counts.
package storage

import (
	"testing"
)

func TestSessionLifecycle(t *testing.T) {
	db, _ := setupTestDB(t)

	s, err := db.BeginSession("/tmp/export.xml")
	if err != nil {
		t.Fatalf("BeginSession failed: %v", err)
	}
	if s.ID.String() == "00000000-0000-0000-0000-000000000000" {
		t.Error("session should get a random id")
	}
	if s.FinishedAt != nil {
		t.Error("new session should not be finished")
	}

	s.Imported = 42
	s.Duplicates = 3
	s.Filtered = 7
	s.Errors = 1
	if err := db.FinishSession(s); err != nil {
		t.Fatalf("FinishSession failed: %v", err)
	}

	sessions, err := db.ListSessions(10)
	if err != nil {
		t.Fatalf("ListSessions failed: %v", err)
	}
	if len(sessions) != 1 {
		t.Fatalf("got %d sessions, want 1", len(sessions))
	}
	got := sessions[0]
	if got.ID != s.ID {
		t.Errorf("ID = %s, want %s", got.ID, s.ID)
	}
	if got.SourcePath != "/tmp/export.xml" {
		t.Errorf("SourcePath = %q", got.SourcePath)
	}
	if got.FinishedAt == nil {
		t.Error("finished session should have an end time")
	}
	if got.Imported != 42 || got.Duplicates != 3 || got.Filtered != 7 || got.Errors != 1 {
		t.Errorf("counters = %d/%d/%d/%d, want 42/3/7/1",
			got.Imported, got.Duplicates, got.Filtered, got.Errors)
	}
}

func TestListSessionsLimit(t *testing.T) {
	db, _ := setupTestDB(t)

	for i := 0; i < 3; i++ {
		if _, err := db.BeginSession("/tmp/export.xml"); err != nil {
			t.Fatalf("BeginSession failed: %v", err)
		}
	}

	sessions, err := db.ListSessions(2)
	if err != nil {
		t.Fatalf("ListSessions failed: %v", err)
	}
	if len(sessions) != 2 {
		t.Errorf("got %d sessions, want 2", len(sessions))
	}
}

func TestListSessionsCorruptRow(t *testing.T) {
	db, _ := setupTestDB(t)
	if _, err := db.db.Exec(
		`INSERT INTO import_sessions (id, source_path, started_at) VALUES ('not-a-uuid', '/tmp/export.xml', 'not-a-timestamp')`,
	); err != nil {
		t.Fatalf("failed to plant corrupt row: %v", err)
	}

	if _, err := db.ListSessions(10); err == nil {
		t.Error("expected error for corrupt session row")
	}
}

func TestEntityCounts(t *testing.T) {
	db, _ := setupTestDB(t)

	counts, err := db.EntityCounts()
	if err != nil {
		t.Fatalf("EntityCounts failed: %v", err)
	}
	if len(counts) != len(EntityTables) {
		t.Fatalf("got %d tables, want %d", len(counts), len(EntityTables))
	}
	for table, n := range counts {
		if n != 0 {
			t.Errorf("fresh store: %s has %d rows, want 0", table, n)
		}
	}

	w := db.NewWriter(0, 0)
	testProfile(t, w)

	counts, err = db.EntityCounts()
	if err != nil {
		t.Fatalf("EntityCounts failed: %v", err)
	}
	if counts["profiles"] != 1 {
		t.Errorf("profiles count = %d, want 1", counts["profiles"])
	}
}
