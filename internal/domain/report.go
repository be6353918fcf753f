package domain

// DroppedCandidate records why a candidate did not pass validation.
type DroppedCandidate struct {
	Row    int    `json:"row"`
	Reason string `json:"reason"`
}

// RunReport summarizes one export run.
type RunReport struct {
	RunID            string             `json:"run_id"`
	RowsRead         int                `json:"rows_read"`
	RowsNormalized   int                `json:"rows_normalized"`
	Batches          int                `json:"batches"`
	FailedBatches    int                `json:"failed_batches"`
	SkippedRanges    []RowRange         `json:"skipped_ranges,omitempty"`
	UnextractedRows  []int              `json:"unextracted_rows,omitempty"`
	Candidates       int                `json:"candidates"`
	Dropped          []DroppedCandidate `json:"dropped,omitempty"`
	ItemsExported    int                `json:"items_exported"`
	ItemsPerLanguage map[string]int     `json:"items_per_language"`
	WorkbooksSkipped []string           `json:"workbooks_skipped,omitempty"`
}

// ExportRequest identifies the worksheet to export.
type ExportRequest struct {
	SheetIdentifier string
	Worksheet       string
}

// ExportResult is a successful run.
type ExportResult struct {
	Archive *ExportArchive
	Report  RunReport
}
