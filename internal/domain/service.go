package domain

import "context"

// ExportService defines the export pipeline operations
type ExportService interface {
	// Export reads the requested worksheet and runs it through the pipeline.
	Export(ctx context.Context, req ExportRequest) (*ExportResult, error)

	// Run exports already fetched worksheet values. runID tags logs and the report.
	Run(ctx context.Context, runID string, values *SheetValues) (*ExportResult, error)
}
