// Package server wires the HTTP surface of the record store: the JSON API,
// the HTML pages and the middlewares in front of both.
package server

import (
	"net/http"

	"github.com/maruel/salesdb/internal/server/handlers"
	"github.com/maruel/salesdb/internal/server/ipgeo"
	"github.com/maruel/salesdb/internal/server/ratelimit"
	"github.com/maruel/salesdb/internal/server/views"
	"github.com/maruel/salesdb/internal/storage"
)

// Config holds the server settings.
type Config struct {
	Version string
	// APISecret signs the tokens required by mutating requests. Empty
	// disables authentication.
	APISecret           []byte
	MaxRequestBodyBytes int64
	// Limiters is nil to disable rate limiting.
	Limiters *ratelimit.Config
	// IPGeo is nil to skip country lookups.
	IPGeo *ipgeo.Checker
}

// NewRouter creates and configures the HTTP router.
func NewRouter(svc *storage.RecordService, cfg *Config) http.Handler {
	if cfg == nil {
		cfg = &Config{}
	}
	mux := http.NewServeMux()

	// Initialize handlers
	recordHandler := handlers.NewRecordHandler(svc)
	cleaningHandler := handlers.NewCleaningHandler(svc)
	analysisHandler := handlers.NewAnalysisHandler(svc)
	healthHandler := handlers.NewHealthHandler(cfg.Version)
	pages := views.New(svc, cfg.MaxRequestBodyBytes)

	// Health check
	mux.Handle("GET /health", Wrap(healthHandler.Health, cfg))
	mux.Handle("GET /api/health", Wrap(healthHandler.Health, cfg))

	// Analysis endpoints
	mux.Handle("GET /api/analyze", Wrap(analysisHandler.Analyze, cfg))
	mux.Handle("GET /api/schema", Wrap(analysisHandler.Schema, cfg))
	mux.Handle("GET /api/chart/productline", Wrap(analysisHandler.ProductLine, cfg))
	mux.Handle("GET /api/chart/sales_over_time", Wrap(analysisHandler.SalesOverTime, cfg))

	// Record endpoints
	mux.Handle("GET /api/columns", Wrap(recordHandler.Columns, cfg))
	mux.Handle("GET /api/data", Wrap(recordHandler.ListRows, cfg))
	mux.Handle("POST /api/data", Wrap(recordHandler.AddRow, cfg))
	mux.Handle("POST /api/data/validated", Wrap(recordHandler.AddValidatedRow, cfg))
	mux.Handle("GET /api/data/{id}", Wrap(recordHandler.GetRow, cfg))
	mux.Handle("PUT /api/data/{id}", Wrap(recordHandler.UpdateRow, cfg))
	mux.Handle("DELETE /api/data/{id}", Wrap(recordHandler.DeleteRow, cfg))

	// Cleaning endpoints
	mux.Handle("POST /api/clean/drop_duplicates", Wrap(cleaningHandler.DropDuplicates, cfg))
	mux.Handle("GET /api/clean/duplicates", Wrap(cleaningHandler.Duplicates, cfg))
	mux.Handle("POST /api/clean/fill_missing", Wrap(cleaningHandler.FillMissing, cfg))
	mux.Handle("POST /api/clean/coerce", Wrap(cleaningHandler.Coerce, cfg))

	// HTML pages
	mux.HandleFunc("GET /{$}", pages.Index)
	mux.HandleFunc("GET /add", pages.AddForm)
	mux.HandleFunc("POST /add", pages.Add)
	mux.HandleFunc("GET /edit/{id}", pages.EditForm)
	mux.HandleFunc("POST /edit/{id}", pages.Edit)
	mux.HandleFunc("GET /data_cleaning", pages.Cleaning)
	mux.HandleFunc("GET /data_cleaning/duplicates", pages.Duplicates)
	mux.HandleFunc("POST /data_cleaning/drop_duplicates", pages.DropDuplicates)
	mux.HandleFunc("POST /data_cleaning/fill_missing", pages.FillMissing)
	mux.HandleFunc("POST /data_cleaning/coerce", pages.Coerce)

	return RequestMetadata(cfg.IPGeo)(RequireToken(cfg.APISecret)(RateLimit(cfg.Limiters)(mux)))
}
