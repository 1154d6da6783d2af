// Handles read-only analysis endpoints: summary, charts and schema.

package handlers

import (
	"context"

	"github.com/invopop/jsonschema"
	"github.com/maruel/salesdb/internal/server/dto"
	"github.com/maruel/salesdb/internal/storage"
)

// AnalysisHandler serves the summary and the charts.
type AnalysisHandler struct {
	svc *storage.RecordService
}

// NewAnalysisHandler creates a new analysis handler.
func NewAnalysisHandler(svc *storage.RecordService) *AnalysisHandler {
	return &AnalysisHandler{svc: svc}
}

// Analyze returns row count, types, missing counts and numeric statistics.
func (h *AnalysisHandler) Analyze(ctx context.Context, _ *dto.EmptyRequest) (*storage.Analysis, error) {
	a, err := h.svc.Analyze(ctx)
	if err != nil {
		return nil, storeError(err)
	}
	return a, nil
}

// ProductLine returns total sales per product line, largest first.
func (h *AnalysisHandler) ProductLine(ctx context.Context, _ *dto.EmptyRequest) (*storage.Series, error) {
	s, err := h.svc.AggregateByProductLine(ctx)
	if err != nil {
		return nil, storeError(err)
	}
	return &s, nil
}

// SalesOverTime returns total sales per period.
func (h *AnalysisHandler) SalesOverTime(ctx context.Context, req *dto.SalesOverTimeRequest) (*storage.Series, error) {
	s, err := h.svc.SalesOverTime(ctx, req.Column, req.Frequency())
	if err != nil {
		return nil, storeError(err)
	}
	return &s, nil
}

// Schema returns the JSON schema of a sales record.
func (h *AnalysisHandler) Schema(ctx context.Context, _ *dto.EmptyRequest) (*jsonschema.Schema, error) {
	return dto.RecordSchema(), nil
}
