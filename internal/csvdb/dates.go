package csvdb

import (
	"fmt"
	"strings"
	"time"
)

// isoLayouts are unambiguous and tried first.
var isoLayouts = []string{
	time.DateOnly,
	time.DateTime,
	"2006-01-02 15:04",
	"2006-01-02T15:04:05",
	time.RFC3339,
	time.RFC3339Nano,
	"2006/01/02",
	"2006/01/02 15:04:05",
	"2 Jan 2006",
	"Jan 2, 2006",
	"January 2, 2006",
	"02-Jan-2006",
}

// Numeric layouts where day and month are ambiguous, written month-first. The
// day-first variants are derived by swapping the two leading elements.
var monthFirstLayouts = []string{
	"1/2/2006",
	"1/2/2006 15:04",
	"1/2/2006 15:04:05",
	"1-2-2006",
	"1.2.2006",
}

var dayFirstLayouts = func() []string {
	out := make([]string, len(monthFirstLayouts))
	for i, l := range monthFirstLayouts {
		sep := l[1:2]
		out[i] = "2" + sep + "1" + l[3:]
	}
	return out
}()

// ParseDate parses a calendar date or timestamp in UTC.
//
// dayFirst selects the preferred reading of ambiguous numeric dates:
// "01/02/2003" is 1 February with dayFirst and 2 January without. When the
// preferred reading is not a valid date, the other one is tried, so
// "2/24/2003" parses either way.
func ParseDate(s string, dayFirst bool) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, l := range isoLayouts {
		if t, err := time.ParseInLocation(l, s, time.UTC); err == nil {
			return t, true
		}
	}
	first, second := monthFirstLayouts, dayFirstLayouts
	if dayFirst {
		first, second = second, first
	}
	for _, layouts := range [2][]string{first, second} {
		for _, l := range layouts {
			if t, err := time.ParseInLocation(l, s, time.UTC); err == nil {
				return t, true
			}
		}
	}
	return time.Time{}, false
}

// DateValue interprets a cell as a date. Times pass through and strings are
// parsed with ParseDate. Numbers and Missing are not dates.
func DateValue(v Value, dayFirst bool) (time.Time, bool) {
	switch v.Kind() {
	case KindTime:
		return v.t, true
	case KindString:
		return ParseDate(v.s, dayFirst)
	default:
		return time.Time{}, false
	}
}

// Freq is a bucketing granularity for time series.
type Freq string

const (
	// FreqDay buckets by calendar day.
	FreqDay Freq = "day"
	// FreqWeek buckets by ISO week, starting Monday.
	FreqWeek Freq = "week"
	// FreqMonth buckets by calendar month.
	FreqMonth Freq = "month"
	// FreqYear buckets by calendar year.
	FreqYear Freq = "year"
)

// ParseFreq accepts the single letter codes D, W, M, Y and the full names.
func ParseFreq(s string) (Freq, error) {
	switch s {
	case "D", "day":
		return FreqDay, nil
	case "W", "week":
		return FreqWeek, nil
	case "M", "month":
		return FreqMonth, nil
	case "Y", "year":
		return FreqYear, nil
	default:
		return "", fmt.Errorf("invalid frequency %q: want one of D, W, M, Y", s)
	}
}

// Start returns the start of the period containing t.
func (f Freq) Start(t time.Time) time.Time {
	y, m, d := t.Date()
	switch f {
	case FreqWeek:
		offset := (int(t.Weekday()) + 6) % 7
		return time.Date(y, m, d-offset, 0, 0, 0, 0, time.UTC)
	case FreqMonth:
		return time.Date(y, m, 1, 0, 0, 0, 0, time.UTC)
	case FreqYear:
		return time.Date(y, time.January, 1, 0, 0, 0, 0, time.UTC)
	default:
		return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	}
}

// Next returns the start of the period following the one starting at start.
func (f Freq) Next(start time.Time) time.Time {
	switch f {
	case FreqWeek:
		return start.AddDate(0, 0, 7)
	case FreqMonth:
		return start.AddDate(0, 1, 0)
	case FreqYear:
		return start.AddDate(1, 0, 0)
	default:
		return start.AddDate(0, 0, 1)
	}
}
