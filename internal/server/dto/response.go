// Response types.

package dto

import "github.com/maruel/salesdb/internal/csvdb"

// HealthResponse is the response to a health check.
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
}

// IDResponse carries the id assigned to a new row.
type IDResponse struct {
	ID int64 `json:"id"`
}

// OKResponse reports whether the operation applied.
type OKResponse struct {
	OK bool `json:"ok"`
}

// RemovedResponse is the number of rows dropped.
type RemovedResponse struct {
	Removed int `json:"removed"`
}

// FilledResponse is the number of cells filled.
type FilledResponse struct {
	Filled int `json:"filled"`
}

// DuplicatesResponse lists every row of every duplicate group.
type DuplicatesResponse struct {
	Duplicates []csvdb.RenderedRow `json:"duplicates"`
}

// RowsResponse is a list of rows.
type RowsResponse []csvdb.RenderedRow

// ColumnsResponse is the column registry.
type ColumnsResponse []string
