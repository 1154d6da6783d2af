// Handles CSV decoding with per-column type inference and atomic file writes.

package csvdb

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// ErrRaggedRow is returned when a data row has more fields than the header.
var ErrRaggedRow = errors.New("row has more fields than the header")

// naTokens are the cell spellings decoded as Missing.
var naTokens = map[string]struct{}{
	"": {}, "#N/A": {}, "#N/A N/A": {}, "#NA": {}, "-1.#IND": {}, "-1.#QNAN": {},
	"-NaN": {}, "-nan": {}, "1.#IND": {}, "1.#QNAN": {}, "<NA>": {}, "N/A": {},
	"NA": {}, "NULL": {}, "NaN": {}, "None": {}, "n/a": {}, "nan": {}, "null": {},
}

const utf8BOM = "\ufeff"

// Decode reads a CSV document. An empty document decodes to an empty table
// without columns.
func Decode(r io.Reader) (*Table, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return NewTable(), nil
		}
		return nil, fmt.Errorf("failed to read header: %w", err)
	}
	columns := normalizeHeader(header)

	var raw [][]string
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read row: %w", err)
		}
		if len(rec) > len(columns) {
			line, _ := cr.FieldPos(0)
			return nil, fmt.Errorf("line %d: %w (%d > %d)", line, ErrRaggedRow, len(rec), len(columns))
		}
		raw = append(raw, rec)
	}

	t := NewTable(columns...)
	t.rows = make([]Row, len(raw))
	for i := range raw {
		t.rows[i] = make(Row, len(columns))
	}
	for j, name := range columns {
		cells := make([]string, len(raw))
		for i, rec := range raw {
			if j < len(rec) {
				cells[i] = rec[j]
			}
		}
		for i, v := range inferColumn(cells) {
			if !v.IsMissing() {
				t.rows[i][name] = v
			}
		}
	}
	return t, nil
}

// inferColumn decodes the raw cells of one column. NA tokens become Missing;
// the rest become ints if they all parse as integers, floats if they all parse
// as numbers, and strings otherwise.
func inferColumn(cells []string) []Value {
	out := make([]Value, len(cells))
	allInt, allNum := true, true
	for _, c := range cells {
		if isNA(c) {
			continue
		}
		if allInt {
			if _, ok := parseInt(c); !ok {
				allInt = false
			}
		}
		if !allInt {
			if _, ok := parseNumber(c); !ok {
				allNum = false
				break
			}
		}
	}
	for i, c := range cells {
		if isNA(c) {
			continue
		}
		switch {
		case allInt:
			n, _ := parseInt(c)
			out[i] = Int(n)
		case allNum:
			f, _ := parseNumber(c)
			out[i] = Float(f)
		default:
			out[i] = String(c)
		}
	}
	return out
}

func isNA(s string) bool {
	_, ok := naTokens[s]
	return ok
}

// normalizeHeader strips a BOM, names blank columns "Unnamed: <i>" and
// suffixes repeated names with ".1", ".2", ...
func normalizeHeader(header []string) []string {
	out := make([]string, len(header))
	used := make(map[string]bool, len(header))
	for i, h := range header {
		if i == 0 {
			h = strings.TrimPrefix(h, utf8BOM)
		}
		if h == "" {
			h = "Unnamed: " + strconv.Itoa(i)
		}
		name := h
		for n := 1; used[name]; n++ {
			name = h + "." + strconv.Itoa(n)
		}
		used[name] = true
		out[i] = name
	}
	return out
}

// Encode writes the table as CSV with a header row.
func Encode(w io.Writer, t *Table) error {
	bw := bufio.NewWriter(w)
	cw := csv.NewWriter(bw)
	if len(t.columns) == 0 {
		return bw.Flush()
	}
	if err := cw.Write(t.columns); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	rec := make([]string, len(t.columns))
	for _, r := range t.rows {
		for j, c := range t.columns {
			rec[j] = r[c].String()
		}
		if len(rec) == 1 && rec[0] == "" {
			// A lone empty field would be a blank line, which readers skip.
			cw.Flush()
			if _, err := bw.WriteString("\"\"\n"); err != nil {
				return fmt.Errorf("failed to write row: %w", err)
			}
			continue
		}
		if err := cw.Write(rec); err != nil {
			return fmt.Errorf("failed to write row: %w", err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("failed to flush csv: %w", err)
	}
	return bw.Flush()
}

// ReadFile decodes the CSV file at path.
func ReadFile(path string) (*Table, error) {
	f, err := os.Open(path) //nolint:gosec // G304: path is the configured data file
	if err != nil {
		return nil, fmt.Errorf("failed to open table file %s: %w", path, err)
	}
	defer func() {
		_ = f.Close()
	}()
	t, err := Decode(f)
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", path, err)
	}
	return t, nil
}

// WriteFile atomically replaces path with the CSV encoding of t.
func WriteFile(path string, t *Table) error {
	return WriteFileAtomic(path, func(w io.Writer) error {
		return Encode(w, t)
	})
}

// WriteFileAtomic writes a sibling temporary file with write, syncs it and
// renames it over path. The temporary file is removed on every failure path so
// the original file is either fully replaced or untouched.
func WriteFileAtomic(path string, write func(io.Writer) error) error {
	dir, base := filepath.Split(path)
	if dir == "" {
		dir = "."
	}
	mode := fs.FileMode(0o644)
	if st, err := os.Stat(path); err == nil {
		mode = st.Mode().Perm()
	}
	tmp, err := os.CreateTemp(dir, "."+base+"-*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()
	fail := func(err error) error {
		_ = tmp.Close()
		return errors.Join(err, os.Remove(tmpName))
	}
	if err := write(tmp); err != nil {
		return fail(fmt.Errorf("failed to write %s: %w", tmpName, err))
	}
	if err := tmp.Chmod(mode); err != nil {
		return fail(fmt.Errorf("failed to chmod temp file: %w", err))
	}
	if err := tmp.Sync(); err != nil {
		return fail(fmt.Errorf("failed to sync temp file: %w", err))
	}
	if err := tmp.Close(); err != nil {
		return errors.Join(fmt.Errorf("failed to close temp file: %w", err), os.Remove(tmpName))
	}
	if err := os.Rename(tmpName, path); err != nil {
		return errors.Join(fmt.Errorf("failed to rename temp file: %w", err), os.Remove(tmpName))
	}
	return nil
}
