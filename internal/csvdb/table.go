package csvdb

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"
)

// IDColumn is the name of the row identity column.
const IDColumn = "id"

// ErrUnknownColumn is returned when an operation names a column the table
// does not have.
var ErrUnknownColumn = errors.New("unknown column")

// ColumnType is the declared type of a column, derived from its cells.
type ColumnType string

const (
	// TypeEmpty is a column without any non-missing cell.
	TypeEmpty ColumnType = "empty"
	// TypeInt is a column of integers.
	TypeInt ColumnType = "int"
	// TypeFloat is a column of numbers with at least one float.
	TypeFloat ColumnType = "float"
	// TypeDatetime is a column of dates.
	TypeDatetime ColumnType = "datetime"
	// TypeText is any other column.
	TypeText ColumnType = "text"
)

// IsNumeric reports whether the column holds only numbers.
func (c ColumnType) IsNumeric() bool {
	return c == TypeInt || c == TypeFloat
}

// Row is one record keyed by column name. An absent key reads as Missing.
type Row map[string]Value

// Clone returns a shallow copy of the row.
func (r Row) Clone() Row {
	return maps.Clone(r)
}

// Field is a named cell in caller-supplied order.
type Field struct {
	Name  string
	Value Value
}

// Fields is an ordered list of named cells, typically decoded from a request.
type Fields []Field

// FieldsFromMap converts a map into Fields sorted by name.
func FieldsFromMap(m map[string]any) Fields {
	out := make(Fields, 0, len(m))
	for _, k := range slices.Sorted(maps.Keys(m)) {
		out = append(out, Field{Name: k, Value: FromAny(m[k])})
	}
	return out
}

// Get returns the value of the last field with the given name.
func (f Fields) Get(name string) (Value, bool) {
	for i := len(f) - 1; i >= 0; i-- {
		if f[i].Name == name {
			return f[i].Value, true
		}
	}
	return Missing, false
}

// Table is an ordered sequence of rows with a column registry that is the
// union of every key ever written.
type Table struct {
	columns []string
	index   map[string]int
	rows    []Row
}

// NewTable returns an empty table with the given columns.
func NewTable(columns ...string) *Table {
	t := &Table{index: make(map[string]int, len(columns))}
	for _, c := range columns {
		t.AddColumn(c)
	}
	return t
}

// Columns returns a copy of the column registry in order.
func (t *Table) Columns() []string {
	return slices.Clone(t.columns)
}

// HasColumn reports whether name is a registered column.
func (t *Table) HasColumn(name string) bool {
	_, ok := t.index[name]
	return ok
}

// AddColumn registers name at the end of the registry. Existing rows read it
// as Missing. Returns false if the column already existed.
func (t *Table) AddColumn(name string) bool {
	if _, ok := t.index[name]; ok {
		return false
	}
	t.index[name] = len(t.columns)
	t.columns = append(t.columns, name)
	return true
}

// insertColumnFirst registers name at the head of the registry.
func (t *Table) insertColumnFirst(name string) {
	if t.HasColumn(name) {
		return
	}
	t.columns = slices.Insert(t.columns, 0, name)
	for i, c := range t.columns {
		t.index[c] = i
	}
}

// Len returns the number of rows.
func (t *Table) Len() int {
	return len(t.rows)
}

// Rows returns the rows in order. The slice is owned by the table.
func (t *Table) Rows() []Row {
	return t.rows
}

// Append adds a row built from fields, registering unknown columns in field
// order.
func (t *Table) Append(fields Fields) Row {
	r := make(Row, len(fields))
	for _, f := range fields {
		t.AddColumn(f.Name)
		if f.Value.IsMissing() {
			delete(r, f.Name)
			continue
		}
		r[f.Name] = f.Value
	}
	t.rows = append(t.rows, r)
	return r
}

// Set writes a cell, registering the column if needed.
func (t *Table) Set(row int, name string, v Value) {
	t.AddColumn(name)
	if v.IsMissing() {
		delete(t.rows[row], name)
		return
	}
	t.rows[row][name] = v
}

// DeleteWhere removes every row for which match returns true and returns the
// number removed.
func (t *Table) DeleteWhere(match func(Row) bool) int {
	before := len(t.rows)
	t.rows = slices.DeleteFunc(t.rows, match)
	return before - len(t.rows)
}

// DeleteRows removes the rows whose mask entry is true and returns the number
// removed. mask must have one entry per row.
func (t *Table) DeleteRows(mask []bool) int {
	kept := t.rows[:0]
	for i, r := range t.rows {
		if i >= len(mask) || !mask[i] {
			kept = append(kept, r)
		}
	}
	removed := len(t.rows) - len(kept)
	clear(t.rows[len(kept):])
	t.rows = kept
	return removed
}

// Column returns the cells of a column in row order.
func (t *Table) Column(name string) []Value {
	out := make([]Value, len(t.rows))
	for i, r := range t.rows {
		out[i] = r[name]
	}
	return out
}

// SetColumn replaces every cell of a column. vals must have one entry per row.
func (t *Table) SetColumn(name string, vals []Value) error {
	if len(vals) != len(t.rows) {
		return fmt.Errorf("column %q: got %d values for %d rows", name, len(vals), len(t.rows))
	}
	t.AddColumn(name)
	for i, v := range vals {
		if v.IsMissing() {
			delete(t.rows[i], name)
		} else {
			t.rows[i][name] = v
		}
	}
	return nil
}

// Type derives the declared type of a column from its cells.
func (t *Table) Type(name string) ColumnType {
	var ints, floats, times, others int
	for _, r := range t.rows {
		switch r[name].Kind() {
		case KindInt:
			ints++
		case KindFloat:
			floats++
		case KindTime:
			times++
		case KindString:
			others++
		case KindMissing:
		}
	}
	switch {
	case others > 0 || (times > 0 && ints+floats > 0):
		return TypeText
	case times > 0:
		return TypeDatetime
	case floats > 0:
		return TypeFloat
	case ints > 0:
		return TypeInt
	default:
		return TypeEmpty
	}
}

// MissingCount returns the number of missing cells in a column.
func (t *Table) MissingCount(name string) int {
	n := 0
	for _, r := range t.rows {
		if r[name].IsMissing() {
			n++
		}
	}
	return n
}

// SortBy stably sorts rows by a column. Missing cells sort last in both
// directions.
func (t *Table) SortBy(name string, ascending bool) {
	slices.SortStableFunc(t.rows, func(a, b Row) int {
		va, vb := a[name], b[name]
		switch {
		case va.IsMissing() && vb.IsMissing():
			return 0
		case va.IsMissing():
			return 1
		case vb.IsMissing():
			return -1
		}
		c := Compare(va, vb)
		if !ascending {
			c = -c
		}
		return c
	})
}

// Duplicated marks rows that repeat an earlier row on the subset columns, or
// on every column when subset is empty. With keepFirst false, every member of
// a duplicate group is marked including the first occurrence.
func (t *Table) Duplicated(subset []string, keepFirst bool) ([]bool, error) {
	cols := subset
	if len(cols) == 0 {
		cols = t.columns
	}
	for _, c := range cols {
		if !t.HasColumn(c) {
			return nil, fmt.Errorf("%w: %q", ErrUnknownColumn, c)
		}
	}
	keys := make([]string, len(t.rows))
	counts := make(map[string]int, len(t.rows))
	var b strings.Builder
	for i, r := range t.rows {
		b.Reset()
		for _, c := range cols {
			r[c].key(&b)
		}
		keys[i] = b.String()
		counts[keys[i]]++
	}
	out := make([]bool, len(t.rows))
	seen := make(map[string]bool, len(counts))
	for i, k := range keys {
		if keepFirst {
			out[i] = seen[k]
			seen[k] = true
		} else {
			out[i] = counts[k] > 1
		}
	}
	return out, nil
}

// EnsureID guarantees an id column. A missing column is synthesized from the
// 0-based row position and placed first. A float column whose values are all
// whole numbers is narrowed to integers. Any other content is left as-is.
func (t *Table) EnsureID() {
	if !t.HasColumn(IDColumn) {
		t.insertColumnFirst(IDColumn)
		for i, r := range t.rows {
			r[IDColumn] = Int(int64(i))
		}
		return
	}
	if len(t.rows) == 0 || t.Type(IDColumn) != TypeFloat {
		return
	}
	ids := t.Column(IDColumn)
	for i, v := range ids {
		f, ok := v.Number()
		if !ok || f != float64(int64(f)) {
			return
		}
		ids[i] = Int(int64(f))
	}
	_ = t.SetColumn(IDColumn, ids)
}

// Clone returns a deep copy of the table.
func (t *Table) Clone() *Table {
	c := NewTable(t.columns...)
	c.rows = make([]Row, len(t.rows))
	for i, r := range t.rows {
		c.rows[i] = r.Clone()
	}
	return c
}

// Render returns the row with every registered column present, in column
// order. Missing cells render as "".
func (t *Table) Render(r Row) RenderedRow {
	out := RenderedRow{columns: t.columns[:len(t.columns):len(t.columns)], values: make(map[string]Value, len(r))}
	for _, c := range t.columns {
		if v := r[c]; !v.IsMissing() {
			out.values[c] = v
		}
	}
	return out
}

// RenderedRow is a row ready for JSON or template output. It marshals as a
// JSON object with keys in column order.
type RenderedRow struct {
	columns []string
	values  map[string]Value
}

// Get returns the rendered value of a column.
func (r RenderedRow) Get(name string) any {
	return r.values[name].Any()
}

// Value returns the raw cell of a column.
func (r RenderedRow) Value(name string) Value {
	return r.values[name]
}

// Columns returns the column order.
func (r RenderedRow) Columns() []string {
	return r.columns
}

// Map returns the rendered cells keyed by column.
func (r RenderedRow) Map() map[string]any {
	m := make(map[string]any, len(r.columns))
	for _, c := range r.columns {
		m[c] = r.values[c].Any()
	}
	return m
}

// MarshalJSON implements json.Marshaler, keeping the column order.
func (r RenderedRow) MarshalJSON() ([]byte, error) {
	var b bytes.Buffer
	b.WriteByte('{')
	for i, c := range r.columns {
		if i > 0 {
			b.WriteByte(',')
		}
		k, err := json.Marshal(c)
		if err != nil {
			return nil, err
		}
		v, err := r.values[c].MarshalJSON()
		if err != nil {
			return nil, fmt.Errorf("column %q: %w", c, err)
		}
		b.Write(k)
		b.WriteByte(':')
		b.Write(v)
	}
	b.WriteByte('}')
	return b.Bytes(), nil
}
