package quizgen

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"time"

	"quiz-export/internal/config"
	"quiz-export/internal/domain"

	"github.com/tmc/langchaingo/llms"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// ExtractorOptions tunes how rows are sent to the model.
type ExtractorOptions struct {
	Pipeline    config.PipelineConfig
	Temperature float64
	// CallTimeout bounds a single model call; zero leaves it to ctx.
	CallTimeout time.Duration
}

// LLMExtractor implements domain.QuizExtractor on top of a langchaingo model.
// Rows are sent in batches, batches run concurrently up to MaxConcurrency,
// and a batch whose call or reply fails is retried with doubling delays
// before it is given up on.
type LLMExtractor struct {
	llm    llms.Model
	opts   ExtractorOptions
	logger *zap.Logger
}

// NewLLMExtractor creates an extractor. A nil logger disables logging.
func NewLLMExtractor(llm llms.Model, opts ExtractorOptions, logger *zap.Logger) (*LLMExtractor, error) {
	if llm == nil {
		return nil, fmt.Errorf("language model cannot be nil")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	opts.Pipeline = opts.Pipeline.WithDefaults()
	return &LLMExtractor{llm: llm, opts: opts, logger: logger}, nil
}

type batchOutcome struct {
	candidates []domain.Candidate
	attempts   int
	err        error
}

// Extract implements domain.QuizExtractor.
func (e *LLMExtractor) Extract(ctx context.Context, header []string, rows []domain.NormalizedRow) (*domain.ExtractionResult, error) {
	batches := splitBatches(rows, e.opts.Pipeline.BatchSize)
	outcomes := make([]batchOutcome, len(batches))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.opts.Pipeline.MaxConcurrency)
	for i := range batches {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			outcomes[i] = e.extractWithRetry(gctx, header, batches[i])
			if errors.Is(outcomes[i].err, context.Canceled) || errors.Is(outcomes[i].err, context.DeadlineExceeded) {
				if gctx.Err() != nil {
					return outcomes[i].err
				}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	result := &domain.ExtractionResult{Batches: len(batches)}
	for i, batch := range batches {
		out := outcomes[i]
		if out.err != nil {
			first, last := batch[0].Index, batch[len(batch)-1].Index
			e.logger.Warn("Skipping extraction batch after exhausting retries",
				zap.Int("first_row", first),
				zap.Int("last_row", last),
				zap.Int("attempts", out.attempts),
				zap.Error(out.err),
			)
			result.FailedBatches++
			result.SkippedRanges = append(result.SkippedRanges, domain.RowRange{First: first, Last: last})
			for _, r := range batch {
				result.UnextractedRows = append(result.UnextractedRows, r.Index)
			}
			continue
		}

		cands := attachRows(out.candidates, batch)
		result.Candidates = append(result.Candidates, cands...)
		result.UnextractedRows = append(result.UnextractedRows, rowsWithout(batch, cands)...)
	}
	sort.Ints(result.UnextractedRows)
	return result, nil
}

func (e *LLMExtractor) extractWithRetry(ctx context.Context, header []string, batch []domain.NormalizedRow) batchOutcome {
	var lastErr error
	maxAttempts := e.opts.Pipeline.MaxAttempts
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		cands, err := e.extractBatch(ctx, header, batch)
		if err == nil {
			return batchOutcome{candidates: cands, attempts: attempt}
		}
		lastErr = err
		if ctxErr := ctx.Err(); ctxErr != nil {
			return batchOutcome{attempts: attempt, err: ctxErr}
		}
		e.logger.Debug("Extraction attempt failed",
			zap.Int("first_row", batch[0].Index),
			zap.Int("attempt", attempt),
			zap.Int("max_attempts", maxAttempts),
			zap.Error(err),
		)
		if attempt == maxAttempts {
			break
		}
		if err := sleepContext(ctx, e.backoff(attempt)); err != nil {
			return batchOutcome{attempts: attempt, err: err}
		}
	}
	return batchOutcome{attempts: maxAttempts, err: lastErr}
}

// maxBackoffShift caps the doubling so large attempt counts stay bounded.
const maxBackoffShift = 10

// backoff returns the delay after the given failed attempt: base, 2*base,
// 4*base... up to base<<maxBackoffShift.
func (e *LLMExtractor) backoff(attempt int) time.Duration {
	base := e.opts.Pipeline.RetryBaseDelay
	shift := min(max(attempt-1, 0), maxBackoffShift)
	if base > math.MaxInt64>>shift {
		return time.Duration(math.MaxInt64)
	}
	return base << shift
}

func (e *LLMExtractor) extractBatch(ctx context.Context, header []string, batch []domain.NormalizedRow) ([]domain.Candidate, error) {
	prompt, err := buildBatchPrompt(header, batch)
	if err != nil {
		return nil, err
	}

	if e.opts.CallTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.opts.CallTimeout)
		defer cancel()
	}

	messages := []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeSystem, systemPrompt),
		llms.TextParts(llms.ChatMessageTypeHuman, prompt),
	}
	resp, err := e.llm.GenerateContent(ctx, messages,
		llms.WithTemperature(e.opts.Temperature),
		llms.WithJSONMode(),
	)
	if err != nil {
		return nil, domain.NewLLMServiceError(err)
	}
	if resp == nil || len(resp.Choices) == 0 {
		return nil, domain.NewLLMServiceError(errors.New("model returned no choices"))
	}

	reply := resp.Choices[0].Content
	e.logger.Debug("Raw model reply received", zap.Int("first_row", batch[0].Index), zap.Int("length", len(reply)))

	cands, err := ParseReply(reply, languageHint(header, batch, e.opts.Pipeline.DefaultLanguage))
	if errors.Is(err, errEmptyReply) {
		e.logger.Debug("Model found no quiz content in batch",
			zap.Int("first_row", batch[0].Index),
			zap.Int("last_row", batch[len(batch)-1].Index),
		)
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("rows %d-%d: %w", batch[0].Index, batch[len(batch)-1].Index, err)
	}
	return cands, nil
}

// languageHint names the column holding all of a batch's text, the layout
// where every column is one language. Other batches get fallback.
func languageHint(header []string, batch []domain.NormalizedRow, fallback string) string {
	col := -1
	for _, r := range batch {
		for i, cell := range r.Cells {
			if cell == "" {
				continue
			}
			if col != -1 && col != i {
				return fallback
			}
			col = i
		}
	}
	if col >= 0 && col < len(header) && header[col] != "" {
		return header[col]
	}
	return fallback
}

func splitBatches(rows []domain.NormalizedRow, size int) [][]domain.NormalizedRow {
	var batches [][]domain.NormalizedRow
	for start := 0; start < len(rows); start += size {
		end := min(start+size, len(rows))
		batches = append(batches, rows[start:end])
	}
	return batches
}

// attachRows makes sure every candidate points at a row of its batch. A row
// number the model invented or omitted is replaced by the row at the same
// position, and candidates are then ordered by row.
func attachRows(cands []domain.Candidate, batch []domain.NormalizedRow) []domain.Candidate {
	inBatch := make(map[int]bool, len(batch))
	for _, r := range batch {
		inBatch[r.Index] = true
	}
	out := make([]domain.Candidate, len(cands))
	for i, c := range cands {
		if !inBatch[c.Row] {
			c.Row = batch[min(i, len(batch)-1)].Index
		}
		out[i] = c
	}
	sort.SliceStable(out, func(a, b int) bool { return out[a].Row < out[b].Row })
	return out
}

func rowsWithout(batch []domain.NormalizedRow, cands []domain.Candidate) []int {
	covered := make(map[int]bool, len(cands))
	for _, c := range cands {
		covered[c.Row] = true
	}
	var missing []int
	for _, r := range batch {
		if !covered[r.Index] {
			missing = append(missing, r.Index)
		}
	}
	return missing
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

var _ domain.QuizExtractor = (*LLMExtractor)(nil)
