package service

import (
	"context"
	"errors"
	"fmt"

	"quiz-export/internal/config"
	"quiz-export/internal/domain"
	"quiz-export/internal/util"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// exportService implements the domain.ExportService interface.
type exportService struct {
	reader    domain.SheetReader
	extractor domain.QuizExtractor
	validator *QuizValidator
	cfg       config.PipelineConfig
	logger    *zap.Logger
}

// NewExportService creates a new instance of exportService.
func NewExportService(
	reader domain.SheetReader,
	extractor domain.QuizExtractor,
	validator *QuizValidator,
	cfg config.PipelineConfig,
	logger *zap.Logger,
) domain.ExportService {
	if validator == nil {
		validator = NewQuizValidator()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &exportService{
		reader:    reader,
		extractor: extractor,
		validator: validator,
		cfg:       cfg.WithDefaults(),
		logger:    logger,
	}
}

// Export implements domain.ExportService.
func (s *exportService) Export(ctx context.Context, req domain.ExportRequest) (*domain.ExportResult, error) {
	runID := util.NewRunID()
	logger := s.logger.With(zap.String("run_id", runID))

	ctx, cancel := s.withRunTimeout(ctx)
	defer cancel()

	logger.Info("Reading worksheet",
		zap.String("sheet", req.SheetIdentifier),
		zap.String("worksheet", req.Worksheet),
	)
	values, err := s.reader.ReadWorksheet(ctx, req.SheetIdentifier, req.Worksheet)
	if err != nil {
		if ctx.Err() != nil {
			return nil, s.fail(logger, canceledFailure(ctx, 0, 0))
		}
		logger.Error("Failed to read worksheet", zap.Error(err))
		return nil, err
	}
	return s.run(ctx, runID, logger, values)
}

// Run implements domain.ExportService.
func (s *exportService) Run(ctx context.Context, runID string, values *domain.SheetValues) (*domain.ExportResult, error) {
	if runID == "" {
		runID = util.NewRunID()
	}
	ctx, cancel := s.withRunTimeout(ctx)
	defer cancel()
	return s.run(ctx, runID, s.logger.With(zap.String("run_id", runID)), values)
}

func (s *exportService) withRunTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.cfg.RunTimeout > 0 {
		return context.WithTimeout(ctx, s.cfg.RunTimeout)
	}
	return context.WithCancel(ctx)
}

func (s *exportService) run(ctx context.Context, runID string, logger *zap.Logger, values *domain.SheetValues) (*domain.ExportResult, error) {
	report := domain.RunReport{RunID: runID}
	if values == nil {
		return nil, s.fail(logger, domain.NewStageFailure(domain.StageInput, "worksheet is empty", 0, 0))
	}
	report.RowsRead = len(values.Rows)

	header := NormalizeHeader(values.Header)
	if len(header) == 0 {
		return nil, s.fail(logger, domain.NewStageFailure(domain.StageInput, "worksheet has no header row", 0, report.RowsRead))
	}
	rows := NormalizeRows(values.Rows)
	report.RowsNormalized = len(rows)
	if len(rows) == 0 {
		return nil, s.fail(logger, domain.NewStageFailure(domain.StageInput, "worksheet has no data rows", 0, report.RowsRead))
	}
	logger.Info("Rows normalized",
		zap.Int("rows_read", report.RowsRead),
		zap.Int("rows_normalized", report.RowsNormalized),
	)

	extracted, err := s.extractor.Extract(ctx, header, rows)
	if err != nil {
		if ctx.Err() != nil {
			return nil, s.fail(logger, canceledFailure(ctx, 0, len(rows)))
		}
		failure := domain.NewStageFailure(domain.StageExtraction, "extraction aborted", 0, len(rows))
		failure.Cause = err
		return nil, s.fail(logger, failure)
	}
	report.Batches = extracted.Batches
	report.FailedBatches = extracted.FailedBatches
	report.SkippedRanges = extracted.SkippedRanges
	report.UnextractedRows = extracted.UnextractedRows
	report.Candidates = len(extracted.Candidates)
	if len(extracted.Candidates) == 0 {
		if extracted.FailedBatches == 0 {
			return nil, s.fail(logger, domain.NewStageFailure(domain.StageValidation, "no quiz content found in any row", 0, len(rows)))
		}
		reason := fmt.Sprintf("model unavailable or unparsable: all %d batches failed", extracted.Batches)
		if extracted.FailedBatches < extracted.Batches {
			reason = fmt.Sprintf("model unavailable or unparsable: %d of %d batches failed, the rest held no quiz content",
				extracted.FailedBatches, extracted.Batches)
		}
		return nil, s.fail(logger, domain.NewStageFailure(domain.StageExtraction, reason, 0, len(rows)))
	}
	extractedRows := distinctRows(extracted.Candidates, func(c domain.Candidate) int { return c.Row })
	logger.Info("Extraction finished",
		zap.Int("batches", extracted.Batches),
		zap.Int("failed_batches", extracted.FailedBatches),
		zap.Int("candidates", len(extracted.Candidates)),
		zap.Int("unextracted_rows", len(extracted.UnextractedRows)),
	)

	outcome := s.validator.Validate(extracted.Candidates)
	report.Dropped = outcome.Dropped
	for _, d := range outcome.Dropped {
		logger.Debug("Candidate dropped", zap.Int("row", d.Row), zap.String("reason", d.Reason))
	}
	if len(outcome.Items) == 0 {
		reason := fmt.Sprintf("none of %d candidates matched the quiz schema", len(extracted.Candidates))
		return nil, s.fail(logger, domain.NewStageFailure(domain.StageValidation, reason, extractedRows, len(rows)))
	}
	validRows := distinctRows(outcome.Items, func(q domain.QuizItem) int { return q.Row })
	if len(outcome.Dropped) > 0 {
		logger.Warn("Candidates dropped by validation",
			zap.Int("dropped", len(outcome.Dropped)),
			zap.Int("valid", len(outcome.Items)),
		)
	}

	if ctx.Err() != nil {
		return nil, s.fail(logger, canceledFailure(ctx, validRows, len(rows)))
	}

	groups := GroupByLanguage(outcome.Items)
	workbooks := s.buildWorkbooks(logger, groups)
	report.ItemsPerLanguage = make(map[string]int, len(groups))
	var built []domain.Workbook
	for i, wb := range workbooks {
		if wb == nil {
			report.WorkbooksSkipped = append(report.WorkbooksSkipped, groups[i].Language)
			continue
		}
		built = append(built, *wb)
		report.ItemsPerLanguage[groups[i].Language] = len(groups[i].Items)
		report.ItemsExported += len(groups[i].Items)
	}
	if len(built) == 0 {
		return nil, s.fail(logger, domain.NewStageFailure(domain.StageAssembly, "no workbook could be rendered", validRows, len(rows)))
	}

	if ctx.Err() != nil {
		return nil, s.fail(logger, canceledFailure(ctx, validRows, len(rows)))
	}
	archive, err := AssembleArchive(built)
	if err != nil {
		failure := domain.NewStageFailure(domain.StageAssembly, "failed to build archive", validRows, len(rows))
		failure.Cause = err
		return nil, s.fail(logger, failure)
	}

	logger.Info("Export run completed",
		zap.Strings("files", archive.Files),
		zap.Int("items_exported", report.ItemsExported),
		zap.Int("items_dropped", len(report.Dropped)),
		zap.Int("archive_bytes", len(archive.Content)),
	)
	return &domain.ExportResult{Archive: archive, Report: report}, nil
}

// buildWorkbooks renders every group concurrently. The result is parallel to
// groups; a nil entry is a group whose rendering failed.
func (s *exportService) buildWorkbooks(logger *zap.Logger, groups []domain.LanguageGroup) []*domain.Workbook {
	workbooks := make([]*domain.Workbook, len(groups))
	var g errgroup.Group
	g.SetLimit(s.cfg.MaxConcurrency)
	for i := range groups {
		g.Go(func() error {
			wb, err := BuildWorkbook(groups[i])
			if err != nil {
				logger.Error("Skipping workbook that failed to render",
					zap.String("language", groups[i].Language),
					zap.Error(err),
				)
				return nil
			}
			workbooks[i] = wb
			return nil
		})
	}
	_ = g.Wait()
	return workbooks
}

func (s *exportService) fail(logger *zap.Logger, failure *domain.StageFailure) error {
	logger.Error("Export run aborted",
		zap.String("stage", string(failure.Stage)),
		zap.String("reason", failure.Reason),
		zap.Int("rows_processed", failure.RowsProcessed),
		zap.Int("rows_attempted", failure.RowsAttempted),
		zap.Error(failure.Cause),
	)
	return failure
}

func canceledFailure(ctx context.Context, processed, attempted int) *domain.StageFailure {
	reason := "run canceled"
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		reason = "run timed out"
	}
	failure := domain.NewStageFailure(domain.StageCanceled, reason, processed, attempted)
	failure.Cause = ctx.Err()
	return failure
}

// distinctRows counts the source rows that contributed at least one entry.
func distinctRows[T any](entries []T, row func(T) int) int {
	seen := make(map[int]bool, len(entries))
	for _, e := range entries {
		seen[row(e)] = true
	}
	return len(seen)
}
