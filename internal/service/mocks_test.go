package service

import (
	"context"
	"strconv"
	"strings"

	"quiz-export/internal/domain"

	"github.com/stretchr/testify/mock"
)

// --- MockSheetReader ---
type MockSheetReader struct {
	mock.Mock
}

func (m *MockSheetReader) ReadWorksheet(ctx context.Context, identifier, worksheet string) (*domain.SheetValues, error) {
	args := m.Called(ctx, identifier, worksheet)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.SheetValues), args.Error(1)
}

// --- MockQuizExtractor ---
type MockQuizExtractor struct {
	mock.Mock
}

func (m *MockQuizExtractor) Extract(ctx context.Context, header []string, rows []domain.NormalizedRow) (*domain.ExtractionResult, error) {
	args := m.Called(ctx, header, rows)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ExtractionResult), args.Error(1)
}

// echoExtractor answers every row with the candidate built by reply, which
// keeps the pipeline tests independent of any model.
type echoExtractor struct {
	reply func(row domain.NormalizedRow) []domain.Candidate
}

func (e echoExtractor) Extract(ctx context.Context, _ []string, rows []domain.NormalizedRow) (*domain.ExtractionResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	res := &domain.ExtractionResult{Batches: 1}
	for _, r := range rows {
		cands := e.reply(r)
		if len(cands) == 0 {
			res.UnextractedRows = append(res.UnextractedRows, r.Index)
		}
		res.Candidates = append(res.Candidates, cands...)
	}
	return res, nil
}

// candidateFromCells reads rows laid out as question, "choice;choice",
// correct index, language.
func candidateFromCells(r domain.NormalizedRow) []domain.Candidate {
	if len(r.Cells) < 4 {
		return nil
	}
	idx, err := strconv.Atoi(r.Cells[2])
	if err != nil {
		return nil
	}
	return []domain.Candidate{{
		Row:          r.Index,
		Question:     r.Cells[0],
		Choices:      strings.Split(r.Cells[1], ";"),
		CorrectIndex: &idx,
		Language:     r.Cells[3],
	}}
}

func intPtr(i int) *int { return &i }
