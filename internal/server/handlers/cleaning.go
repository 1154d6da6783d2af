// Handles data cleaning endpoints.

package handlers

import (
	"context"

	"github.com/maruel/salesdb/internal/server/dto"
	"github.com/maruel/salesdb/internal/storage"
)

// CleaningHandler handles deduplication, gap filling and type coercion.
type CleaningHandler struct {
	svc *storage.RecordService
}

// NewCleaningHandler creates a new cleaning handler.
func NewCleaningHandler(svc *storage.RecordService) *CleaningHandler {
	return &CleaningHandler{svc: svc}
}

// DropDuplicates removes repeated rows.
func (h *CleaningHandler) DropDuplicates(ctx context.Context, req *dto.DropDuplicatesRequest) (*dto.RemovedResponse, error) {
	n, err := h.svc.DropDuplicates(ctx, req.Subset())
	if err != nil {
		return nil, storeError(err)
	}
	return &dto.RemovedResponse{Removed: n}, nil
}

// Duplicates lists every row of every duplicate group.
func (h *CleaningHandler) Duplicates(ctx context.Context, req *dto.DuplicatesRequest) (*dto.DuplicatesResponse, error) {
	rows, err := h.svc.FindDuplicates(ctx, req.Subset())
	if err != nil {
		return nil, storeError(err)
	}
	return &dto.DuplicatesResponse{Duplicates: rows}, nil
}

// FillMissing fills the missing cells of a column.
func (h *CleaningHandler) FillMissing(ctx context.Context, req *dto.FillMissingRequest) (*dto.FilledResponse, error) {
	n, err := h.svc.FillMissing(ctx, req.Column, req.FillValue())
	if err != nil {
		return nil, storeError(err)
	}
	return &dto.FilledResponse{Filled: n}, nil
}

// Coerce converts a column. ok is false when the column or the type is
// unknown, or when a value cannot be converted.
func (h *CleaningHandler) Coerce(ctx context.Context, req *dto.CoerceRequest) (*dto.OKResponse, error) {
	ok, err := h.svc.CoerceColumnType(ctx, req.Column, req.Dtype)
	if err != nil {
		return nil, storeError(err)
	}
	return &dto.OKResponse{OK: ok}, nil
}
