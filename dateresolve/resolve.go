// Package dateresolve parses absolute and relative date expressions into
// timestamps, relative to a caller-supplied "now" so tests stay
// deterministic.
package dateresolve

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/heffrey78/claude-tools/engineerr"
)

// DayApprox is the fixed-length day used throughout this package. The
// timeline package's periods are written with the same 24-hour day (and
// 30-day month), so query filters and timeline windows stay consistent.
const DayApprox = 24 * time.Hour

// MonthApprox approximates a month as 30 days.
const MonthApprox = 30 * DayApprox

// Resolve parses expr relative to now. Supported forms:
//   - ISO-8601 date (YYYY-MM-DD) or datetime
//   - named anchors: "yesterday", "today", "last week", "last month"
//   - quantified relative offsets: "N {minute|hour|day|week|month}[s] ago"
func Resolve(expr string, now time.Time) (time.Time, error) {
	trimmed := strings.TrimSpace(expr)
	lower := strings.ToLower(trimmed)

	switch lower {
	case "today":
		return startOfDay(now), nil
	case "yesterday":
		return startOfDay(now.Add(-DayApprox)), nil
	case "last week":
		return now.Add(-7 * DayApprox), nil
	case "last month":
		return now.Add(-MonthApprox), nil
	}

	if t, ok := tryParseAbsolute(trimmed); ok {
		return t, nil
	}

	if t, ok := tryParseRelativeAgo(lower, now); ok {
		return t, nil
	}

	return time.Time{}, engineerr.New(engineerr.KindBadDate, fmt.Sprintf("unparseable date expression %q", expr))
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

var absoluteLayouts = []string{
	"2006-01-02T15:04:05Z07:00",
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

func tryParseAbsolute(s string) (time.Time, bool) {
	for _, layout := range absoluteLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

var relativeUnits = map[string]time.Duration{
	"minute": time.Minute,
	"hour":   time.Hour,
	"day":    DayApprox,
	"week":   7 * DayApprox,
	"month":  MonthApprox,
}

// tryParseRelativeAgo parses "N unit ago" / "N units ago".
func tryParseRelativeAgo(lower string, now time.Time) (time.Time, bool) {
	fields := strings.Fields(lower)
	if len(fields) != 3 || fields[2] != "ago" {
		return time.Time{}, false
	}
	n, err := strconv.Atoi(fields[0])
	if err != nil || n < 0 {
		return time.Time{}, false
	}
	unit := strings.TrimSuffix(fields[1], "s")
	dur, ok := relativeUnits[unit]
	if !ok {
		return time.Time{}, false
	}
	return now.Add(-time.Duration(n) * dur), true
}
