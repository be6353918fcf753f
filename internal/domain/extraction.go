package domain

import "context"

// ExtractionResult is the outcome of converting normalized rows to candidates.
// Candidates are ordered by source row. UnextractedRows lists every row that
// yielded no candidate, including the rows of skipped batches.
type ExtractionResult struct {
	Candidates      []Candidate
	Batches         int
	FailedBatches   int
	SkippedRanges   []RowRange
	UnextractedRows []int
}

// QuizExtractor turns normalized rows into quiz candidates using a generative
// model. Batch failures are absorbed into the result; only cancellation of ctx
// is returned as an error.
type QuizExtractor interface {
	Extract(ctx context.Context, header []string, rows []NormalizedRow) (*ExtractionResult, error)
}
