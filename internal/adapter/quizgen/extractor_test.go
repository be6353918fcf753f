package quizgen

import (
	"context"
	"errors"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"testing"
	"time"

	"quiz-export/internal/config"
	"quiz-export/internal/domain"
	"quiz-export/internal/service"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var promptRowPattern = regexp.MustCompile(`"row": (\d+)`)

// rowsInPrompt returns the row numbers listed in a batch prompt.
func rowsInPrompt(prompt string) []int {
	var rows []int
	for _, m := range promptRowPattern.FindAllStringSubmatch(prompt, -1) {
		n, _ := strconv.Atoi(m[1])
		rows = append(rows, n)
	}
	return rows
}

// echoReply answers with one English item per prompted row.
func echoReply(prompt string, _ int) (string, error) {
	var items []string
	for _, row := range rowsInPrompt(prompt) {
		items = append(items, itemJSON(row, "en"))
	}
	return `{"items": [` + strings.Join(items, ",") + `]}`, nil
}

func makeRows(n int) []domain.NormalizedRow {
	rows := make([]domain.NormalizedRow, n)
	for i := range rows {
		rows[i] = domain.NormalizedRow{Index: i + 2, Cells: []string{fmt.Sprintf("Question %d? A) yes B) no", i+2)}}
	}
	return rows
}

func testOptions(batchSize int) ExtractorOptions {
	return ExtractorOptions{
		Pipeline: config.PipelineConfig{
			BatchSize:      batchSize,
			MaxConcurrency: 3,
			MaxAttempts:    3,
			RetryBaseDelay: time.Millisecond,
		},
	}
}

func TestNewLLMExtractor(t *testing.T) {
	_, err := NewLLMExtractor(nil, testOptions(2), zap.NewNop())
	assert.Error(t, err)

	ex, err := NewLLMExtractor(newScriptedModel(echoReply), ExtractorOptions{}, nil)
	require.NoError(t, err)
	assert.Equal(t, config.DefaultBatchSize, ex.opts.Pipeline.BatchSize)
	assert.Equal(t, config.DefaultMaxAttempts, ex.opts.Pipeline.MaxAttempts)
}

func TestLLMExtractor_Extract_BatchesInRowOrder(t *testing.T) {
	model := newScriptedModel(echoReply)
	ex, err := NewLLMExtractor(model, testOptions(2), zap.NewNop())
	require.NoError(t, err)

	res, err := ex.Extract(context.Background(), []string{"Quiz"}, makeRows(7))
	require.NoError(t, err)

	assert.Equal(t, 4, res.Batches)
	assert.Equal(t, 0, res.FailedBatches)
	assert.Equal(t, 4, model.totalCalls())
	require.Len(t, res.Candidates, 7)
	for i, c := range res.Candidates {
		assert.Equal(t, i+2, c.Row)
	}
	assert.Empty(t, res.UnextractedRows)
}

func TestLLMExtractor_Extract_RetriesThenSucceeds(t *testing.T) {
	model := newScriptedModel(func(prompt string, call int) (string, error) {
		if call == 1 {
			return "", errors.New("503 service unavailable")
		}
		if call == 2 {
			return "Sorry, here is a truncated {\"items\": [", nil
		}
		return echoReply(prompt, call)
	})
	ex, err := NewLLMExtractor(model, testOptions(5), zap.NewNop())
	require.NoError(t, err)

	res, err := ex.Extract(context.Background(), []string{"Quiz"}, makeRows(3))
	require.NoError(t, err)
	assert.Equal(t, 3, model.totalCalls())
	assert.Len(t, res.Candidates, 3)
	assert.Equal(t, 0, res.FailedBatches)
}

func TestLLMExtractor_Extract_SkipsBatchAfterMaxAttempts(t *testing.T) {
	rows := makeRows(4)
	model := newScriptedModel(func(prompt string, call int) (string, error) {
		if strings.Contains(prompt, "Rows 2 to 3") {
			return "not json at all", nil
		}
		return echoReply(prompt, call)
	})
	ex, err := NewLLMExtractor(model, testOptions(2), zap.NewNop())
	require.NoError(t, err)

	res, err := ex.Extract(context.Background(), []string{"Quiz"}, rows)
	require.NoError(t, err)

	assert.Equal(t, 2, res.Batches)
	assert.Equal(t, 1, res.FailedBatches)
	assert.Equal(t, []domain.RowRange{{First: 2, Last: 3}}, res.SkippedRanges)
	assert.Equal(t, []int{2, 3}, res.UnextractedRows)
	require.Len(t, res.Candidates, 2)
	assert.Equal(t, 4, res.Candidates[0].Row)
	// 3 attempts for the failing batch, 1 for the healthy one.
	assert.Equal(t, 4, model.totalCalls())
}

func TestLLMExtractor_Extract_AttachesMissingRows(t *testing.T) {
	model := newScriptedModel(func(prompt string, call int) (string, error) {
		// Row numbers omitted or invented; the last row yields nothing.
		return `[{"question": "first?", "choices": ["a", "b"], "correct_index": 1, "language": "en"},
			{"row": 99, "question": "third?", "choices": ["a", "b"], "correct_index": 0, "language": "en"}]`, nil
	})
	ex, err := NewLLMExtractor(model, testOptions(3), zap.NewNop())
	require.NoError(t, err)

	res, err := ex.Extract(context.Background(), []string{"Quiz"}, makeRows(3))
	require.NoError(t, err)
	require.Len(t, res.Candidates, 2)
	assert.Equal(t, 2, res.Candidates[0].Row)
	assert.Equal(t, 3, res.Candidates[1].Row)
	assert.Equal(t, []int{4}, res.UnextractedRows)
}

func TestLLMExtractor_Extract_Canceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	model := newScriptedModel(func(prompt string, call int) (string, error) {
		cancel()
		return "", context.Canceled
	})
	ex, err := NewLLMExtractor(model, testOptions(1), zap.NewNop())
	require.NoError(t, err)

	res, err := ex.Extract(ctx, []string{"Quiz"}, makeRows(5))
	assert.ErrorIs(t, err, context.Canceled)
	assert.Nil(t, res)
	assert.Less(t, model.totalCalls(), 5*3)
}

func TestLLMExtractor_Backoff(t *testing.T) {
	ex, err := NewLLMExtractor(newScriptedModel(echoReply), ExtractorOptions{
		Pipeline: config.PipelineConfig{RetryBaseDelay: 100 * time.Millisecond},
	}, nil)
	require.NoError(t, err)
	assert.Equal(t, 100*time.Millisecond, ex.backoff(1))
	assert.Equal(t, 200*time.Millisecond, ex.backoff(2))
	assert.Equal(t, 400*time.Millisecond, ex.backoff(3))
	assert.Equal(t, 100*time.Millisecond<<maxBackoffShift, ex.backoff(maxBackoffShift+1))
	assert.Equal(t, 100*time.Millisecond<<maxBackoffShift, ex.backoff(1000))
}

func TestLLMExtractor_Backoff_DoesNotOverflow(t *testing.T) {
	ex, err := NewLLMExtractor(newScriptedModel(echoReply), ExtractorOptions{
		Pipeline: config.PipelineConfig{RetryBaseDelay: time.Duration(math.MaxInt64 / 4)},
	}, nil)
	require.NoError(t, err)
	assert.Equal(t, time.Duration(math.MaxInt64/4), ex.backoff(1))
	for _, attempt := range []int{4, 11, 64, 200} {
		assert.Equal(t, time.Duration(math.MaxInt64), ex.backoff(attempt), "attempt %d", attempt)
	}
}

func TestLLMExtractor_Extract_EmptyReplyIsNotRetried(t *testing.T) {
	model := newScriptedModel(func(string, int) (string, error) {
		return `{"items": []}`, nil
	})
	ex, err := NewLLMExtractor(model, testOptions(2), zap.NewNop())
	require.NoError(t, err)

	res, err := ex.Extract(context.Background(), []string{"Quiz"}, makeRows(3))
	require.NoError(t, err)

	assert.Equal(t, 2, res.Batches)
	assert.Equal(t, 0, res.FailedBatches)
	assert.Empty(t, res.SkippedRanges)
	assert.Empty(t, res.Candidates)
	assert.Equal(t, []int{2, 3, 4}, res.UnextractedRows)
	assert.Equal(t, 2, model.totalCalls())
}

func TestLLMExtractor_Extract_EmptySheetIsNotAnOutage(t *testing.T) {
	model := newScriptedModel(func(string, int) (string, error) {
		return `{"items": []}`, nil
	})
	ex, err := NewLLMExtractor(model, testOptions(2), zap.NewNop())
	require.NoError(t, err)
	svc := service.NewExportService(nil, ex, service.NewQuizValidator(), testOptions(2).Pipeline, zap.NewNop())

	_, err = svc.Run(context.Background(), "run-empty", &domain.SheetValues{
		Header: []string{"Notes"},
		Rows:   []domain.RawRow{{"meeting at 10"}, {"bring laptops"}},
	})

	var failure *domain.StageFailure
	require.True(t, errors.As(err, &failure), "expected StageFailure, got %v", err)
	assert.Equal(t, domain.StageValidation, failure.Stage)
	assert.Equal(t, "no quiz content found in any row", failure.Reason)
	assert.Equal(t, 0, failure.RowsProcessed)
	assert.Equal(t, 2, failure.RowsAttempted)
	assert.Equal(t, 1, model.totalCalls())
}

func TestLLMExtractor_Extract_TableReplyTakesColumnLanguage(t *testing.T) {
	table := "| STT | Câu hỏi | Đáp án A | Đáp án B | Đáp án đúng | Ghi chú |\n" +
		"|---|---|---|---|---|---|\n" +
		"| 1 | Thủ đô của Pháp? | Paris | Rome | A |  |\n"
	model := newScriptedModel(func(string, int) (string, error) { return table, nil })
	ex, err := NewLLMExtractor(model, testOptions(5), zap.NewNop())
	require.NoError(t, err)

	rows := []domain.NormalizedRow{{Index: 2, Cells: []string{"", "Thủ đô của Pháp? A. Paris B. Rome"}}}
	res, err := ex.Extract(context.Background(), []string{"English", "Vietnamese"}, rows)
	require.NoError(t, err)
	require.Len(t, res.Candidates, 1)
	assert.Equal(t, "Vietnamese", res.Candidates[0].Language)
	assert.Equal(t, 2, res.Candidates[0].Row)
}

func TestLanguageHint(t *testing.T) {
	header := []string{"English", "Vietnamese", ""}
	tests := []struct {
		name  string
		batch []domain.NormalizedRow
		want  string
	}{
		{"single column", []domain.NormalizedRow{{Index: 2, Cells: []string{"", "a"}}, {Index: 3, Cells: []string{"", "b"}}}, "Vietnamese"},
		{"mixed columns", []domain.NormalizedRow{{Index: 2, Cells: []string{"a"}}, {Index: 3, Cells: []string{"", "b"}}}, "und"},
		{"row spans columns", []domain.NormalizedRow{{Index: 2, Cells: []string{"a", "b"}}}, "und"},
		{"unnamed column", []domain.NormalizedRow{{Index: 2, Cells: []string{"", "", "c"}}}, "und"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, languageHint(header, tt.batch, "und"))
		})
	}
}

func TestBuildBatchPrompt(t *testing.T) {
	rows := []domain.NormalizedRow{
		{Index: 2, Cells: []string{"Capital of France?", "Paris"}},
		{Index: 5, Cells: []string{"Thủ đô của Pháp?"}},
	}
	prompt, err := buildBatchPrompt([]string{"English", "Vietnamese"}, rows)
	require.NoError(t, err)
	assert.Contains(t, prompt, "Columns: English | Vietnamese")
	assert.Contains(t, prompt, "Rows 2 to 5")
	assert.Contains(t, prompt, "\"column\": \"English\",\n        \"value\": \"Capital of France?\"")
	assert.Contains(t, prompt, "\"column\": \"Vietnamese\",\n        \"value\": \"Paris\"")
	assert.Equal(t, []int{2, 5}, rowsInPrompt(prompt))
}

func TestBuildBatchPrompt_RepeatedHeadersKeepEveryCell(t *testing.T) {
	rows := []domain.NormalizedRow{{Index: 2, Cells: []string{"Pick one", "x", "y", "z"}}}
	prompt, err := buildBatchPrompt([]string{"Question", "Option", "Option", "Option"}, rows)
	require.NoError(t, err)

	x := strings.Index(prompt, `"value": "x"`)
	y := strings.Index(prompt, `"value": "y"`)
	z := strings.Index(prompt, `"value": "z"`)
	require.NotEqual(t, -1, x)
	assert.Less(t, x, y)
	assert.Less(t, y, z)
	assert.Equal(t, 3, strings.Count(prompt, `"column": "Option"`))
}
