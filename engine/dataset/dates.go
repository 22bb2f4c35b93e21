package dataset

import (
	"strings"
	"time"
)

const (
	DateLayout     = "2006-01-02"
	DateTimeLayout = "2006-01-02 15:04:05"
)

// dateLayouts are tried in order; the first one that parses wins.
var dateLayouts = []string{
	DateLayout,
	DateTimeLayout,
	"2006-01-02T15:04:05",
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999",
	"2006-01-02 15:04",
	"2006/01/02",
	"2006/01/02 15:04:05",
	"01/02/2006",
	"1/2/2006",
	"02 Jan 2006",
	"Jan 2, 2006",
	"January 2, 2006",
}

// DateStats summarizes a date normalization pass.
type DateStats struct {
	Parsed int
	Nulled int
}

// NormalizeDate rewrites column into a canonical date representation.
// Values that cannot be parsed, including purely numeric values, become the
// null marker. The operation never fails on cell contents.
//
// The canonical form is DateLayout when every parsed value falls on UTC
// midnight and DateTimeLayout otherwise, so a column keeps one format.
func NormalizeDate(t *Table, column string) (*Table, DateStats, error) {
	var stats DateStats
	idx, err := t.Index(column)
	if err != nil {
		return nil, stats, err
	}
	parsed := make([]*time.Time, len(t.Rows))
	dateOnly := true
	for i, row := range t.Rows {
		ts, ok := ParseDate(row[idx])
		if !ok {
			stats.Nulled++
			continue
		}
		stats.Parsed++
		parsed[i] = &ts
		if !isMidnight(ts) {
			dateOnly = false
		}
	}
	layout := DateLayout
	if !dateOnly {
		layout = DateTimeLayout
	}
	rows := make([][]string, len(t.Rows))
	for i, row := range t.Rows {
		out := make([]string, len(row))
		copy(out, row)
		if parsed[i] == nil {
			out[idx] = ""
		} else {
			out[idx] = parsed[i].Format(layout)
		}
		rows[i] = out
	}
	return t.withRows(rows), stats, nil
}

// ParseDate parses a textual date into UTC. Empty and purely numeric
// values are rejected.
func ParseDate(raw string) (time.Time, bool) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return time.Time{}, false
	}
	if _, ok := parseNumber(s); ok {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if ts, err := time.Parse(layout, s); err == nil {
			return ts.UTC(), true
		}
	}
	return time.Time{}, false
}

func isMidnight(ts time.Time) bool {
	h, m, s := ts.Clock()
	return h == 0 && m == 0 && s == 0 && ts.Nanosecond() == 0
}
