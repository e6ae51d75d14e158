// ABOUTME: Parses the two timestamp shapes found in Apple Health exports.
// ABOUTME: Normalizes everything into a single fixed reference time zone.
package importer

import (
	"fmt"
	"strings"
	"time"
)

// Full timestamps carry their own offset: "2023-12-31 23:59:59 +0000".
const fullLayout = "2006-01-02 15:04:05 -0700"

// Clock-only timestamps ("7:47:41.86 PM") appear on beat samples and
// must be combined with the enclosing record's start date.
var clockLayouts = []string{
	"3:04:05.999999 PM",
	"3:04 PM",
}

// timeParser normalizes export timestamps into the reference zone.
type timeParser struct {
	loc *time.Location
}

// parseTimestamp parses a full date-time token and converts it to the
// reference zone. An unparsable token is an error for the enclosing
// element; it never defaults to now or epoch.
func (tp timeParser) parseTimestamp(s string) (time.Time, error) {
	t, err := time.Parse(fullLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse timestamp %q: %w", s, err)
	}
	return t.In(tp.loc), nil
}

// isClockTime reports whether the token is the time-only AM/PM shape.
func isClockTime(s string) bool {
	if !strings.Contains(s, ":") || strings.Contains(s, "-") {
		return false
	}
	return strings.Contains(s, "AM") || strings.Contains(s, "PM")
}

// parseClock combines a time-only token with the base date in the
// reference zone.
func (tp timeParser) parseClock(s string, base time.Time) (time.Time, error) {
	var clock time.Time
	var err error
	for _, layout := range clockLayouts {
		clock, err = time.Parse(layout, s)
		if err == nil {
			break
		}
	}
	if err != nil {
		return time.Time{}, fmt.Errorf("parse clock time %q: %w", s, err)
	}
	b := base.In(tp.loc)
	return time.Date(b.Year(), b.Month(), b.Day(),
		clock.Hour(), clock.Minute(), clock.Second(), clock.Nanosecond(), tp.loc), nil
}

// parseSampleTime handles beat sample times, which come in either
// shape depending on the export version.
func (tp timeParser) parseSampleTime(s string, base time.Time) (time.Time, error) {
	if isClockTime(s) {
		return tp.parseClock(s, base)
	}
	return tp.parseTimestamp(s)
}
