// Handles row CRUD endpoints.

package handlers

import (
	"context"
	"slices"

	"github.com/maruel/salesdb/internal/csvdb"
	"github.com/maruel/salesdb/internal/server/dto"
	"github.com/maruel/salesdb/internal/storage"
)

// RecordHandler serves the rows of the table.
type RecordHandler struct {
	svc *storage.RecordService
}

// NewRecordHandler creates a new record handler.
func NewRecordHandler(svc *storage.RecordService) *RecordHandler {
	return &RecordHandler{svc: svc}
}

// ListRows returns the head of the table, or its tail for position=bottom.
// The tail is the head in the opposite order, reversed, so both are
// presented in the requested order.
func (h *RecordHandler) ListRows(ctx context.Context, req *dto.ListRowsRequest) (*dto.RowsResponse, error) {
	asc := req.IsAscending()
	if req.Bottom() {
		asc = !asc
	}
	rows, err := h.svc.ListRows(ctx, req.RowLimit(), req.SortBy, asc)
	if err != nil {
		return nil, storeError(err)
	}
	if req.Bottom() {
		slices.Reverse(rows)
	}
	resp := dto.RowsResponse(rows)
	return &resp, nil
}

// Columns returns the column names.
func (h *RecordHandler) Columns(ctx context.Context, _ *dto.EmptyRequest) (*dto.ColumnsResponse, error) {
	cols, err := h.svc.Columns(ctx)
	if err != nil {
		return nil, storeError(err)
	}
	resp := dto.ColumnsResponse(cols)
	return &resp, nil
}

// GetRow returns one row.
func (h *RecordHandler) GetRow(ctx context.Context, req *dto.RowRequest) (*csvdb.RenderedRow, error) {
	row, ok, err := h.svc.GetRow(ctx, req.ID)
	if err != nil {
		return nil, storeError(err)
	}
	if !ok {
		return nil, dto.RowNotFound(req.ID)
	}
	return &row, nil
}

// AddRow appends a row.
func (h *RecordHandler) AddRow(ctx context.Context, req *dto.AddRowRequest) (*dto.IDResponse, error) {
	fields, err := req.Fields()
	if err != nil {
		return nil, err
	}
	return h.add(ctx, fields)
}

// AddValidatedRow appends a row after checking prices and the order date.
func (h *RecordHandler) AddValidatedRow(ctx context.Context, req *dto.AddValidatedRowRequest) (*dto.IDResponse, error) {
	fields, err := req.ValidatedFields()
	if err != nil {
		return nil, err
	}
	return h.add(ctx, fields)
}

func (h *RecordHandler) add(ctx context.Context, fields csvdb.Fields) (*dto.IDResponse, error) {
	id, err := h.svc.AddRow(ctx, fields)
	if err != nil {
		return nil, storeError(err)
	}
	return &dto.IDResponse{ID: id}, nil
}

// UpdateRow overwrites columns of a row.
func (h *RecordHandler) UpdateRow(ctx context.Context, req *dto.UpdateRowRequest) (*dto.OKResponse, error) {
	fields, err := req.Fields()
	if err != nil {
		return nil, err
	}
	ok, err := h.svc.UpdateRow(ctx, req.ID, fields)
	if err != nil {
		return nil, storeError(err)
	}
	if !ok {
		return nil, dto.RowNotFound(req.ID)
	}
	return &dto.OKResponse{OK: true}, nil
}

// DeleteRow removes a row.
func (h *RecordHandler) DeleteRow(ctx context.Context, req *dto.RowRequest) (*dto.OKResponse, error) {
	ok, err := h.svc.DeleteRow(ctx, req.ID)
	if err != nil {
		return nil, storeError(err)
	}
	if !ok {
		return nil, dto.RowNotFound(req.ID)
	}
	return &dto.OKResponse{OK: true}, nil
}
