package storage

import (
	"cmp"
	"context"
	"slices"
	"time"

	"github.com/maruel/salesdb/internal/csvdb"
)

// Series is a chart: labels[i] is paired with values[i].
type Series struct {
	Labels []string  `json:"labels" yaml:"labels"`
	Values []float64 `json:"values" yaml:"values"`
}

func emptySeries() Series {
	return Series{Labels: []string{}, Values: []float64{}}
}

// Analysis summarizes the table.
type Analysis struct {
	Rows           int                         `json:"rows" yaml:"rows"`
	Columns        []string                    `json:"columns" yaml:"columns"`
	Dtypes         map[string]csvdb.ColumnType `json:"dtypes" yaml:"dtypes"`
	Missing        map[string]int              `json:"missing" yaml:"missing"`
	NumericSummary map[string]csvdb.Summary    `json:"numeric_summary" yaml:"numeric_summary"`
}

// AggregateByProductLine sums SALES per PRODUCTLINE, largest first. Rows with
// a missing product line are skipped, and so are non-numeric sales. Returns
// an empty series when either column is absent.
func (s *RecordService) AggregateByProductLine(ctx context.Context) (Series, error) {
	t, err := s.load()
	if err != nil {
		return Series{}, err
	}
	if !t.HasColumn(ColumnProductLine) || !t.HasColumn(ColumnSales) {
		return emptySeries(), nil
	}
	type group struct {
		label string
		sum   float64
	}
	groups := map[string]*group{}
	for _, r := range t.Rows() {
		key := r[ColumnProductLine]
		if key.IsMissing() {
			continue
		}
		label := key.String()
		g, ok := groups[label]
		if !ok {
			g = &group{label: label}
			groups[label] = g
		}
		if f, ok := r[ColumnSales].Number(); ok {
			g.sum += f
		}
	}
	sorted := make([]*group, 0, len(groups))
	for _, g := range groups {
		sorted = append(sorted, g)
	}
	slices.SortFunc(sorted, func(a, b *group) int {
		if c := cmp.Compare(b.sum, a.sum); c != 0 {
			return c
		}
		return cmp.Compare(a.label, b.label)
	})
	out := emptySeries()
	for _, g := range sorted {
		out.Labels = append(out.Labels, g.label)
		out.Values = append(out.Values, g.sum)
	}
	return out, nil
}

// SalesOverTime sums SALES per period of dateColumn. Dates are parsed day
// first; rows whose date does not parse are dropped. Each label is the
// YYYY-MM-DD start of its period and empty periods between the first and last
// one are reported as 0. Returns an empty series when a column is absent.
func (s *RecordService) SalesOverTime(ctx context.Context, dateColumn string, freq csvdb.Freq) (Series, error) {
	t, err := s.load()
	if err != nil {
		return Series{}, err
	}
	if dateColumn == "" {
		dateColumn = ColumnOrderDate
	}
	if !t.HasColumn(dateColumn) || !t.HasColumn(ColumnSales) {
		return emptySeries(), nil
	}
	sums := map[time.Time]float64{}
	var first, last time.Time
	for _, r := range t.Rows() {
		d, ok := csvdb.DateValue(r[dateColumn], true)
		if !ok {
			continue
		}
		start := freq.Start(d)
		if first.IsZero() || start.Before(first) {
			first = start
		}
		if last.IsZero() || start.After(last) {
			last = start
		}
		f, _ := r[ColumnSales].Number()
		sums[start] += f
	}
	out := emptySeries()
	if first.IsZero() {
		return out, nil
	}
	for p := first; !p.After(last); p = freq.Next(p) {
		out.Labels = append(out.Labels, p.Format(time.DateOnly))
		out.Values = append(out.Values, sums[p])
	}
	return out, nil
}

// Analyze returns the row count, the columns with their declared type and
// missing count, and descriptive statistics of the numeric columns.
func (s *RecordService) Analyze(ctx context.Context) (*Analysis, error) {
	t, err := s.load()
	if err != nil {
		return nil, err
	}
	a := &Analysis{
		Rows:           t.Len(),
		Columns:        t.Columns(),
		Dtypes:         make(map[string]csvdb.ColumnType),
		Missing:        make(map[string]int),
		NumericSummary: make(map[string]csvdb.Summary),
	}
	for _, c := range a.Columns {
		typ := t.Type(c)
		a.Dtypes[c] = typ
		a.Missing[c] = t.MissingCount(c)
		if !typ.IsNumeric() {
			continue
		}
		if sum, ok := csvdb.Describe(t.Column(c)); ok {
			a.NumericSummary[c] = sum
		}
	}
	return a, nil
}
