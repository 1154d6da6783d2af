// Package storage implements the sales record store on top of a CSV file.
//
// Every operation reads the whole file, transforms the table in memory and,
// for mutations, atomically replaces the file. Nothing is cached between calls.
package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"sync"

	"github.com/maruel/salesdb/internal/csvdb"
)

// Well known column names used by the charts.
const (
	ColumnProductLine = "PRODUCTLINE"
	ColumnSales       = "SALES"
	ColumnOrderDate   = "ORDERDATE"
)

// History records a snapshot of files after a persisted mutation.
type History interface {
	Commit(ctx context.Context, msg string, files ...string) error
}

// Option configures a RecordService.
type Option func(*RecordService)

// WithHistory commits the data file to h after every persisted mutation.
// Commit failures are logged and never fail the mutation.
func WithHistory(h History) Option {
	return func(s *RecordService) {
		s.history = h
	}
}

// RecordService owns one CSV data file.
//
// Mutations are serialized within the process. Separate processes writing the
// same file race: the last rename wins.
type RecordService struct {
	path    string
	history History
	mu      sync.Mutex
}

// NewRecordService returns a service for the CSV file at path, creating the
// parent directory and an empty file when absent.
func NewRecordService(path string, opts ...Option) (*RecordService, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve %s: %w", path, err)
	}
	if err := os.MkdirAll(filepath.Dir(abs), 0o755); err != nil { //nolint:gosec // G301: 0o755 is intentional for data directories
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}
	f, err := os.OpenFile(abs, os.O_CREATE|os.O_RDONLY, 0o644) //nolint:gosec // G302: the data file is meant to be shared
	if err != nil {
		return nil, fmt.Errorf("failed to create data file: %w", err)
	}
	if err := f.Close(); err != nil {
		return nil, fmt.Errorf("failed to close data file: %w", err)
	}
	s := &RecordService{path: abs}
	for _, o := range opts {
		o(s)
	}
	return s, nil
}

// Path returns the absolute path of the data file.
func (s *RecordService) Path() string {
	return s.path
}

// load reads the table and normalizes the id column.
func (s *RecordService) load() (*csvdb.Table, error) {
	t, err := csvdb.ReadFile(s.path)
	if err != nil {
		return nil, err
	}
	t.EnsureID()
	return t, nil
}

// save atomically replaces the data file and records the change.
func (s *RecordService) save(ctx context.Context, t *csvdb.Table, msg string) error {
	if err := csvdb.WriteFile(s.path, t); err != nil {
		return fmt.Errorf("failed to save table: %w", err)
	}
	s.commit(ctx, msg)
	return nil
}

func (s *RecordService) commit(ctx context.Context, msg string) {
	if s.history == nil {
		return
	}
	files := []string{s.path}
	if _, err := os.Stat(s.seqPath()); err == nil {
		files = append(files, s.seqPath())
	}
	if err := s.history.Commit(ctx, msg, files...); err != nil {
		slog.WarnContext(ctx, "Failed to commit data file", "err", err, "msg", msg)
	}
}

// Columns returns the column registry.
func (s *RecordService) Columns(ctx context.Context) ([]string, error) {
	t, err := s.load()
	if err != nil {
		return nil, err
	}
	return t.Columns(), nil
}

// ListRows returns at most limit rows sorted by sortBy, or by id when sortBy
// does not name a column. Missing cells sort last in both directions.
func (s *RecordService) ListRows(ctx context.Context, limit int, sortBy string, ascending bool) ([]csvdb.RenderedRow, error) {
	t, err := s.load()
	if err != nil {
		return nil, err
	}
	switch {
	case sortBy != "" && t.HasColumn(sortBy):
		t.SortBy(sortBy, ascending)
	case t.HasColumn(csvdb.IDColumn):
		t.SortBy(csvdb.IDColumn, ascending)
	}
	rows := t.Rows()
	if limit >= 0 && limit < len(rows) {
		rows = rows[:limit]
	}
	return render(t, rows), nil
}

// GetRow returns the first row whose id equals id.
func (s *RecordService) GetRow(ctx context.Context, id int64) (csvdb.RenderedRow, bool, error) {
	t, err := s.load()
	if err != nil {
		return csvdb.RenderedRow{}, false, err
	}
	if !t.HasColumn(csvdb.IDColumn) {
		return csvdb.RenderedRow{}, false, nil
	}
	for _, r := range t.Rows() {
		if matchID(r, id) {
			return t.Render(r), true, nil
		}
	}
	return csvdb.RenderedRow{}, false, nil
}

// AddRow appends a row built from fields and returns its assigned id. A
// caller supplied id is ignored. Unknown field names become new columns.
func (s *RecordService) AddRow(ctx context.Context, fields csvdb.Fields) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, err := s.load()
	if err != nil {
		return 0, err
	}
	seq, err := s.readSeq()
	if err != nil {
		slog.WarnContext(ctx, "Ignoring unreadable id sequence", "err", err, "path", s.seqPath())
	}
	id := max(nextID(t), seq)
	row := make(csvdb.Fields, 0, len(fields)+1)
	row = append(row, csvdb.Field{Name: csvdb.IDColumn, Value: csvdb.Int(id)})
	for _, f := range fields {
		if f.Name != csvdb.IDColumn {
			row = append(row, f)
		}
	}
	t.Append(row)
	if err := csvdb.WriteFile(s.path, t); err != nil {
		return 0, fmt.Errorf("failed to save table: %w", err)
	}
	if err := s.writeSeq(id + 1); err != nil {
		slog.WarnContext(ctx, "Failed to persist id sequence", "err", err, "path", s.seqPath())
	}
	s.commit(ctx, fmt.Sprintf("add: row %d", id))
	return id, nil
}

// UpdateRow overwrites the fields of every row whose id equals id. The id
// field is ignored. Returns false when no row matched.
func (s *RecordService) UpdateRow(ctx context.Context, id int64, fields csvdb.Fields) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, err := s.load()
	if err != nil {
		return false, err
	}
	if !t.HasColumn(csvdb.IDColumn) {
		return false, nil
	}
	matched := false
	for i, r := range t.Rows() {
		if !matchID(r, id) {
			continue
		}
		matched = true
		for _, f := range fields {
			if f.Name != csvdb.IDColumn {
				t.Set(i, f.Name, f.Value)
			}
		}
	}
	if !matched {
		return false, nil
	}
	return true, s.save(ctx, t, fmt.Sprintf("update: row %d", id))
}

// DeleteRow removes every row whose id equals id. Returns false, without
// touching the file, when none matched.
func (s *RecordService) DeleteRow(ctx context.Context, id int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, err := s.load()
	if err != nil {
		return false, err
	}
	if !t.HasColumn(csvdb.IDColumn) {
		return false, nil
	}
	if t.DeleteWhere(func(r csvdb.Row) bool { return matchID(r, id) }) == 0 {
		return false, nil
	}
	return true, s.save(ctx, t, fmt.Sprintf("delete: row %d", id))
}

// DropDuplicates removes rows repeating an earlier row on subset, or on every
// column when subset is empty, and returns the number removed. The file is
// only rewritten when rows were removed.
func (s *RecordService) DropDuplicates(ctx context.Context, subset []string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, err := s.load()
	if err != nil {
		return 0, err
	}
	dup, err := t.Duplicated(subset, true)
	if err != nil {
		return 0, err
	}
	n := t.DeleteRows(dup)
	if n == 0 {
		return 0, nil
	}
	return n, s.save(ctx, t, fmt.Sprintf("clean: drop %d duplicates", n))
}

// FindDuplicates returns every row of every duplicate group on subset,
// including the occurrence DropDuplicates would keep.
func (s *RecordService) FindDuplicates(ctx context.Context, subset []string) ([]csvdb.RenderedRow, error) {
	t, err := s.load()
	if err != nil {
		return nil, err
	}
	dup, err := t.Duplicated(subset, false)
	if err != nil {
		return nil, err
	}
	var rows []csvdb.Row
	for i, r := range t.Rows() {
		if dup[i] {
			rows = append(rows, r)
		}
	}
	return render(t, rows), nil
}

// FillMissing replaces the missing cells of column with v and returns how many
// were filled. Empty strings are not missing. Returns 0 when the column does
// not exist.
func (s *RecordService) FillMissing(ctx context.Context, column string, v csvdb.Value) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, err := s.load()
	if err != nil {
		return 0, err
	}
	if !t.HasColumn(column) || v.IsMissing() {
		return 0, nil
	}
	n := 0
	for i, r := range t.Rows() {
		if r[column].IsMissing() {
			t.Set(i, column, v)
			n++
		}
	}
	if n == 0 {
		return 0, nil
	}
	return n, s.save(ctx, t, fmt.Sprintf("clean: fill %d missing in %s", n, column))
}

// CoerceColumnType converts column to kind. See csvdb.CoerceValues for the
// supported kinds. Returns false, leaving the file untouched, when the column
// does not exist, the kind is unknown or a strict cast fails.
func (s *RecordService) CoerceColumnType(ctx context.Context, column, kind string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, err := s.load()
	if err != nil {
		return false, err
	}
	if err := t.Coerce(column, kind); err != nil {
		if errors.Is(err, csvdb.ErrUnknownColumn) || errors.Is(err, csvdb.ErrUnknownKind) || errors.Is(err, csvdb.ErrCast) {
			slog.InfoContext(ctx, "Coercion rejected", "column", column, "kind", kind, "err", err)
			return false, nil
		}
		return false, err
	}
	return true, s.save(ctx, t, fmt.Sprintf("clean: coerce %s to %s", column, kind))
}

func render(t *csvdb.Table, rows []csvdb.Row) []csvdb.RenderedRow {
	out := make([]csvdb.RenderedRow, len(rows))
	for i, r := range rows {
		out[i] = t.Render(r)
	}
	return out
}

// matchID compares a row id with id as integers. Whole floats match; strings
// never do.
func matchID(r csvdb.Row, id int64) bool {
	v := r[csvdb.IDColumn]
	if i, ok := v.Int(); ok {
		return i == id
	}
	if f, ok := v.Number(); ok {
		return f == float64(id)
	}
	return false
}

// nextID is max(id)+1, or 1 when the table is empty or an id is not numeric.
func nextID(t *csvdb.Table) int64 {
	if !t.HasColumn(csvdb.IDColumn) || t.Len() == 0 {
		return 1
	}
	var ids []int64
	for _, v := range t.Column(csvdb.IDColumn) {
		if v.IsMissing() {
			continue
		}
		f, ok := v.Number()
		if !ok {
			return 1
		}
		ids = append(ids, int64(f))
	}
	if len(ids) == 0 {
		return 1
	}
	return slices.Max(ids) + 1
}
