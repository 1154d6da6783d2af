package storage

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/maruel/salesdb/internal/csvdb"
)

func TestAggregateByProductLine(t *testing.T) {
	s := newTestService(t, salesCSV+"4,,999\n")
	got, err := s.AggregateByProductLine(t.Context())
	if err != nil {
		t.Fatalf("AggregateByProductLine failed: %v", err)
	}
	want := Series{Labels: []string{"Cars", "Boats"}, Values: []float64{150, 30}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}

	s = newTestService(t, "id,SALES\n1,3\n")
	got, err = s.AggregateByProductLine(t.Context())
	if err != nil {
		t.Fatalf("AggregateByProductLine failed: %v", err)
	}
	if diff := cmp.Diff(Series{Labels: []string{}, Values: []float64{}}, got); diff != "" {
		t.Errorf("absent column mismatch (-want +got):\n%s", diff)
	}
}

func TestSalesOverTime(t *testing.T) {
	in := "id,ORDERDATE,SALES\n" +
		"1,2/24/2003 0:00,100\n" +
		"2,05/01/2003,50\n" +
		"3,2003-04-15,25.5\n" +
		"4,someday,7\n" +
		"5,2003-02-01,1\n"
	s := newTestService(t, in)
	tests := []struct {
		freq csvdb.Freq
		want Series
	}{
		{
			csvdb.FreqMonth,
			Series{
				Labels: []string{"2003-01-01", "2003-02-01", "2003-03-01", "2003-04-01"},
				Values: []float64{50, 101, 0, 25.5},
			},
		},
		{
			csvdb.FreqYear,
			Series{Labels: []string{"2003-01-01"}, Values: []float64{176.5}},
		},
	}
	for _, tt := range tests {
		t.Run(string(tt.freq), func(t *testing.T) {
			got, err := s.SalesOverTime(t.Context(), "", tt.freq)
			if err != nil {
				t.Fatalf("SalesOverTime failed: %v", err)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("mismatch (-want +got):\n%s", diff)
			}
		})
	}
	got, err := s.SalesOverTime(t.Context(), "SHIPDATE", csvdb.FreqDay)
	if err != nil {
		t.Fatalf("SalesOverTime failed: %v", err)
	}
	if len(got.Labels) != 0 || len(got.Values) != 0 {
		t.Errorf("absent column should give an empty series, got %+v", got)
	}
}

func TestAnalyze(t *testing.T) {
	s := newTestService(t, "id,PRODUCTLINE,SALES,EMPTY\n1,Cars,100.5\n2,,50\n")
	a, err := s.Analyze(t.Context())
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}
	if a.Rows != 2 {
		t.Errorf("rows = %d", a.Rows)
	}
	wantTypes := map[string]csvdb.ColumnType{
		"id":          csvdb.TypeInt,
		"PRODUCTLINE": csvdb.TypeText,
		"SALES":       csvdb.TypeFloat,
		"EMPTY":       csvdb.TypeEmpty,
	}
	if diff := cmp.Diff(wantTypes, a.Dtypes); diff != "" {
		t.Errorf("dtypes mismatch (-want +got):\n%s", diff)
	}
	wantMissing := map[string]int{"id": 0, "PRODUCTLINE": 1, "SALES": 0, "EMPTY": 2}
	if diff := cmp.Diff(wantMissing, a.Missing); diff != "" {
		t.Errorf("missing mismatch (-want +got):\n%s", diff)
	}
	if _, ok := a.NumericSummary["PRODUCTLINE"]; ok {
		t.Error("text column in numeric summary")
	}
	sum, ok := a.NumericSummary["SALES"]
	if !ok {
		t.Fatal("SALES missing from numeric summary")
	}
	if sum.Count != 2 || sum.Mean != 75.25 || sum.Max != 100.5 {
		t.Errorf("unexpected SALES summary %+v", sum)
	}
}
