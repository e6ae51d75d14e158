// ABOUTME: Tests for export timestamp parsing and zone normalization.
// ABOUTME: Covers both the full date-time and clock-only shapes.
package importer

import (
	"testing"
	"time"
)

func zurich(t *testing.T) *time.Location {
	t.Helper()
	loc, err := time.LoadLocation("Europe/Zurich")
	if err != nil {
		t.Fatalf("LoadLocation failed: %v", err)
	}
	return loc
}

func TestParseTimestamp(t *testing.T) {
	tp := timeParser{loc: zurich(t)}

	got, err := tp.parseTimestamp("2023-12-31 23:59:59 +0000")
	if err != nil {
		t.Fatalf("parseTimestamp failed: %v", err)
	}

	// UTC midnight is 01:00 next day in Zurich (winter, CET).
	want := time.Date(2024, 1, 1, 0, 59, 59, 0, tp.loc)
	if !got.Equal(want) {
		t.Errorf("got %v, want %v", got, want)
	}
	if got.Location() != tp.loc {
		t.Errorf("expected reference zone, got %v", got.Location())
	}
}

func TestParseTimestampInvalid(t *testing.T) {
	tp := timeParser{loc: zurich(t)}

	for _, input := range []string{"", "not-a-date", "2023-12-31", "2023-12-31 23:59:59"} {
		if _, err := tp.parseTimestamp(input); err == nil {
			t.Errorf("expected error for %q", input)
		}
	}
}

func TestParseClock(t *testing.T) {
	tp := timeParser{loc: zurich(t)}
	base := time.Date(2023, 12, 31, 10, 0, 0, 0, tp.loc)

	got, err := tp.parseClock("7:47:41.86 PM", base)
	if err != nil {
		t.Fatalf("parseClock failed: %v", err)
	}
	want := time.Date(2023, 12, 31, 19, 47, 41, 860000000, tp.loc)
	if !got.Equal(want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestParseClockWithoutFraction(t *testing.T) {
	tp := timeParser{loc: zurich(t)}
	base := time.Date(2023, 12, 31, 0, 0, 0, 0, tp.loc)

	got, err := tp.parseClock("7:47:41 PM", base)
	if err != nil {
		t.Fatalf("parseClock failed: %v", err)
	}
	want := time.Date(2023, 12, 31, 19, 47, 41, 0, tp.loc)
	if !got.Equal(want) {
		t.Errorf("got %v, want %v", got, want)
	}

	// Morning times stay in the morning.
	got, err = tp.parseClock("7:47 AM", base)
	if err != nil {
		t.Fatalf("parseClock failed: %v", err)
	}
	want = time.Date(2023, 12, 31, 7, 47, 0, 0, tp.loc)
	if !got.Equal(want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestIsClockTime(t *testing.T) {
	cases := map[string]bool{
		"7:47:41.86 PM":             true,
		"7:47 AM":                   true,
		"2023-12-31 23:59:59 +0000": false,
		"":                          false,
		"noon":                      false,
	}
	for input, want := range cases {
		if got := isClockTime(input); got != want {
			t.Errorf("isClockTime(%q) = %v, want %v", input, got, want)
		}
	}
}

func TestParseSampleTime(t *testing.T) {
	tp := timeParser{loc: zurich(t)}
	base := time.Date(2023, 12, 31, 10, 0, 0, 0, tp.loc)

	// Clock shape combines with the base date.
	got, err := tp.parseSampleTime("7:47:41.86 PM", base)
	if err != nil {
		t.Fatalf("parseSampleTime failed: %v", err)
	}
	if got.Day() != 31 || got.Hour() != 19 {
		t.Errorf("unexpected resolution: %v", got)
	}

	// Full shape ignores the base date.
	got, err = tp.parseSampleTime("2024-06-01 12:00:00 +0000", base)
	if err != nil {
		t.Fatalf("parseSampleTime failed: %v", err)
	}
	if got.Year() != 2024 || got.Month() != time.June {
		t.Errorf("unexpected resolution: %v", got)
	}
}
