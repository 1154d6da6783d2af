package csvdb

import (
	"testing"
	"time"
)

func TestParseDate(t *testing.T) {
	tests := []struct {
		in       string
		dayFirst bool
		want     time.Time
	}{
		{"2003-02-24", true, time.Date(2003, 2, 24, 0, 0, 0, 0, time.UTC)},
		{"01/02/2003", true, time.Date(2003, 2, 1, 0, 0, 0, 0, time.UTC)},
		{"01/02/2003", false, time.Date(2003, 1, 2, 0, 0, 0, 0, time.UTC)},
		{"2/24/2003 0:00", true, time.Date(2003, 2, 24, 0, 0, 0, 0, time.UTC)},
		{"24-2-2003", false, time.Date(2003, 2, 24, 0, 0, 0, 0, time.UTC)},
		{"2003-02-24 10:30:00", true, time.Date(2003, 2, 24, 10, 30, 0, 0, time.UTC)},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := ParseDate(tt.in, tt.dayFirst)
			if !ok {
				t.Fatalf("ParseDate(%q) failed", tt.in)
			}
			if !got.Equal(tt.want) {
				t.Errorf("ParseDate(%q, %t) = %v, want %v", tt.in, tt.dayFirst, got, tt.want)
			}
		})
	}
	for _, bad := range []string{"", "soon", "13/13/2003", "2003-02-30"} {
		if got, ok := ParseDate(bad, true); ok {
			t.Errorf("ParseDate(%q) = %v, want failure", bad, got)
		}
	}
}

func TestFreq(t *testing.T) {
	// Thursday.
	ts := time.Date(2004, 3, 18, 15, 4, 5, 0, time.UTC)
	tests := []struct {
		code  string
		start time.Time
		next  time.Time
	}{
		{"D", time.Date(2004, 3, 18, 0, 0, 0, 0, time.UTC), time.Date(2004, 3, 19, 0, 0, 0, 0, time.UTC)},
		{"W", time.Date(2004, 3, 15, 0, 0, 0, 0, time.UTC), time.Date(2004, 3, 22, 0, 0, 0, 0, time.UTC)},
		{"M", time.Date(2004, 3, 1, 0, 0, 0, 0, time.UTC), time.Date(2004, 4, 1, 0, 0, 0, 0, time.UTC)},
		{"Y", time.Date(2004, 1, 1, 0, 0, 0, 0, time.UTC), time.Date(2005, 1, 1, 0, 0, 0, 0, time.UTC)},
	}
	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			f, err := ParseFreq(tt.code)
			if err != nil {
				t.Fatalf("ParseFreq failed: %v", err)
			}
			start := f.Start(ts)
			if !start.Equal(tt.start) {
				t.Errorf("Start = %v, want %v", start, tt.start)
			}
			if next := f.Next(start); !next.Equal(tt.next) {
				t.Errorf("Next = %v, want %v", next, tt.next)
			}
		})
	}
	if _, err := ParseFreq("Q"); err == nil {
		t.Error("ParseFreq(Q) should fail")
	}
}

func TestFreq_WeekStartOnSunday(t *testing.T) {
	sunday := time.Date(2004, 3, 21, 0, 0, 0, 0, time.UTC)
	want := time.Date(2004, 3, 15, 0, 0, 0, 0, time.UTC)
	if got := FreqWeek.Start(sunday); !got.Equal(want) {
		t.Errorf("Start(Sunday) = %v, want %v", got, want)
	}
}
