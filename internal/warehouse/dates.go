package warehouse

import (
	"strings"
	"time"

	"github.com/araddon/dateparse"
)

// Date-valued columns that are normalised on load.
var dateColumns = map[string]bool{
	"SERVICE_DATE": true,
	"DOB":          true,
	"UPDATED_AT":   true,
}

// IsDateColumn reports whether the loader normalises the named column.
func IsDateColumn(name string) bool {
	return dateColumns[strings.ToUpper(name)]
}

// Fallback layouts, tried in order when dateparse rejects a value. Day-first
// numeric forms come before month-first ones, so "12/25/2024" still parses
// after the day-first reading fails.
var dateLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
	"2006/01/02",
	"2006.01.02",
	"20060102",

	"02/01/2006 15:04:05",
	"02/01/2006 15:04",
	"2/1/2006 15:04",
	"02/01/2006",
	"2/1/2006",
	"02-01-2006 15:04:05",
	"02-01-2006",
	"2-1-2006",
	"02.01.2006",
	"2.1.2006",
	"02/01/06",

	"01/02/2006 15:04:05",
	"01/02/2006",
	"1/2/2006",
	"01-02-2006",

	"02-Jan-2006",
	"2-Jan-2006",
	"02 Jan 2006",
	"2 Jan 2006",
	"2 January 2006",
	"Jan 2, 2006",
	"January 2, 2006",
	"02-Jan-06",
}

// ParseDate parses a date string in any of the supported mixed formats.
// Ambiguous numeric dates are read day-first and zone-less values are UTC.
// The second result is false when nothing matched.
func ParseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	if t, err := dateparse.ParseIn(s, time.UTC, dateparse.PreferMonthFirst(false)); err == nil {
		return t, true
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// NormalizeDate converts a raw driver value into a time.Time. Values that
// cannot be interpreted come back as nil, the table's missing marker.
func NormalizeDate(v any) any {
	switch x := v.(type) {
	case nil:
		return nil
	case time.Time:
		if x.IsZero() {
			return nil
		}
		return x
	case string:
		if t, ok := ParseDate(x); ok {
			return t
		}
		return nil
	case []byte:
		if t, ok := ParseDate(string(x)); ok {
			return t
		}
		return nil
	default:
		return nil
	}
}

// DateOf truncates t to its calendar date in UTC.
func DateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
