// Request types and their validation.

package dto

import (
	"strings"

	"github.com/maruel/salesdb/internal/csvdb"
)

// Row list bounds.
const (
	DefaultRowLimit = 10
	MaxRowLimit     = 100
)

// HealthRequest is a request to check server health.
type HealthRequest struct{}

// Validate is a no-op for health requests.
func (r *HealthRequest) Validate() error {
	return nil
}

// EmptyRequest is the request of parameterless read endpoints.
type EmptyRequest struct{}

// Validate is a no-op.
func (r *EmptyRequest) Validate() error {
	return nil
}

// ListRowsRequest is a request for the head or the tail of the table.
type ListRowsRequest struct {
	Position  string `query:"position"`
	Limit     *int   `query:"limit"`
	SortBy    string `query:"sort_by"`
	Ascending *bool  `query:"ascending"`
}

// Validate checks position and limit.
func (r *ListRowsRequest) Validate() error {
	switch r.Position {
	case "", "top", "bottom":
	default:
		return BadRequest("position must be top or bottom").WithDetail("field", "position")
	}
	if r.Limit != nil && (*r.Limit < 1 || *r.Limit > MaxRowLimit) {
		return BadRequest("limit must be between 1 and 100").WithDetail("field", "limit")
	}
	return nil
}

// Bottom reports whether the tail was requested.
func (r *ListRowsRequest) Bottom() bool {
	return r.Position == "bottom"
}

// RowLimit returns the requested limit or DefaultRowLimit.
func (r *ListRowsRequest) RowLimit() int {
	if r.Limit == nil {
		return DefaultRowLimit
	}
	return *r.Limit
}

// IsAscending returns the requested order, ascending by default.
func (r *ListRowsRequest) IsAscending() bool {
	return r.Ascending == nil || *r.Ascending
}

// RowRequest addresses one row by id.
type RowRequest struct {
	ID int64 `path:"id"`
}

// Validate is a no-op; any integer is a valid id.
func (r *RowRequest) Validate() error {
	return nil
}

// AddRowRequest is a free form record to append.
type AddRowRequest struct {
	Record
}

// Validate checks the body is an object whose well known columns have the
// right type.
func (r *AddRowRequest) Validate() error {
	if !r.IsSet() {
		return BadRequest("request body must be a JSON object")
	}
	_, err := r.Fields()
	return err
}

// AddValidatedRowRequest is AddRowRequest with business rules: PRICEEACH,
// SALES and MSRP must be non-negative and ORDERDATE must be a date.
type AddValidatedRowRequest struct {
	Record
}

// Validate applies the business rules.
func (r *AddValidatedRowRequest) Validate() error {
	_, err := r.ValidatedFields()
	return err
}

// ValidatedFields returns the cells with ORDERDATE normalized to YYYY-MM-DD.
func (r *AddValidatedRowRequest) ValidatedFields() (csvdb.Fields, error) {
	if !r.IsSet() {
		return nil, BadRequest("request body must be a JSON object")
	}
	for _, name := range []string{"PRICEEACH", "SALES", "MSRP"} {
		if x, ok := r.Get(name); ok && x == "" {
			delete(r.values, name)
		}
	}
	if x, ok := r.Get("ORDERDATE"); ok && x == "" {
		delete(r.values, "ORDERDATE")
	}
	fields, err := r.Fields()
	if err != nil {
		return nil, err
	}
	for i, f := range fields {
		switch f.Name {
		case "PRICEEACH", "SALES", "MSRP":
			if n, _ := f.Value.Number(); n < 0 {
				return nil, BadRequest(f.Name + " must be non-negative").WithDetail("field", f.Name)
			}
		case "ORDERDATE":
			d, err := normalizeOrderDate(f.Value.String())
			if err != nil {
				return nil, InvalidFormat(f.Name, "must be a valid date (d/m/Y or Y-m-d)").Wrap(err)
			}
			fields[i].Value = csvdb.String(d)
		}
	}
	return fields, nil
}

// UpdateRowRequest overwrites columns of the row with the given id.
type UpdateRowRequest struct {
	ID int64 `path:"id"`
	Record
}

// Validate checks the body like AddRowRequest.
func (r *UpdateRowRequest) Validate() error {
	if !r.IsSet() {
		return BadRequest("request body must be a JSON object")
	}
	_, err := r.Fields()
	return err
}

// DropDuplicatesRequest names the columns compared to detect duplicates.
type DropDuplicatesRequest struct {
	Columns string `json:"columns" form:"columns"`
}

// Validate is a no-op; unknown columns are reported by the store.
func (r *DropDuplicatesRequest) Validate() error {
	return nil
}

// Subset returns the comma separated column names, or nil for every column.
func (r *DropDuplicatesRequest) Subset() []string {
	return splitColumns(r.Columns)
}

// DuplicatesRequest lists duplicate rows.
type DuplicatesRequest struct {
	Columns string `query:"columns"`
}

// Validate is a no-op; unknown columns are reported by the store.
func (r *DuplicatesRequest) Validate() error {
	return nil
}

// Subset returns the comma separated column names, or nil for every column.
func (r *DuplicatesRequest) Subset() []string {
	return splitColumns(r.Columns)
}

// FillMissingRequest fills the missing cells of a column.
type FillMissingRequest struct {
	Column string `json:"column" form:"column"`
	Value  any    `json:"value" form:"value"`
}

// Validate checks both fields are present.
func (r *FillMissingRequest) Validate() error {
	if r.Column == "" {
		return MissingField("column")
	}
	if r.Value == nil {
		return MissingField("value")
	}
	switch r.Value.(type) {
	case map[string]any, []any:
		return InvalidFormat("value", "must be a scalar")
	}
	return nil
}

// FillValue returns the fill value as a cell.
func (r *FillMissingRequest) FillValue() csvdb.Value {
	return csvdb.FromAny(r.Value)
}

// CoerceRequest converts a column to another type.
type CoerceRequest struct {
	Column string `json:"column" form:"column"`
	Dtype  string `json:"dtype" form:"dtype"`
}

// Validate checks both fields are present.
func (r *CoerceRequest) Validate() error {
	if r.Column == "" {
		return MissingField("column")
	}
	if r.Dtype == "" {
		return MissingField("dtype")
	}
	return nil
}

// SalesOverTimeRequest selects the time series granularity.
type SalesOverTimeRequest struct {
	Freq string `query:"freq"`
	// Column is the date column, ORDERDATE when empty.
	Column string `query:"column"`
}

// Validate rejects unknown frequencies.
func (r *SalesOverTimeRequest) Validate() error {
	if r.Freq == "" {
		return nil
	}
	switch r.Freq {
	case "D", "W", "M", "Y":
		return nil
	}
	return BadRequest("freq must be one of D,W,M,Y").WithDetail("field", "freq")
}

// Frequency returns the parsed frequency, monthly by default.
func (r *SalesOverTimeRequest) Frequency() csvdb.Freq {
	f, err := csvdb.ParseFreq(r.Freq)
	if err != nil {
		return csvdb.FreqMonth
	}
	return f
}

func splitColumns(s string) []string {
	var out []string
	for c := range strings.SplitSeq(s, ",") {
		if c = strings.TrimSpace(c); c != "" {
			out = append(out, c)
		}
	}
	return out
}
