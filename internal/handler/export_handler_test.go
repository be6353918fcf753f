package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"quiz-export/internal/domain"
	"quiz-export/internal/handler"
	"quiz-export/internal/middleware"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSheetURL = "https://docs.google.com/spreadsheets/d/1BxiMVs0XRA5nFMdKvBdBZjgmUUqptlbs74OgvE2upms/edit#gid=0"

// --- Manual Mocks ---

// MockExportService
type MockExportService struct {
	ExportFunc func(ctx context.Context, req domain.ExportRequest) (*domain.ExportResult, error)
	RunFunc    func(ctx context.Context, runID string, values *domain.SheetValues) (*domain.ExportResult, error)
}

func (m *MockExportService) Export(ctx context.Context, req domain.ExportRequest) (*domain.ExportResult, error) {
	if m.ExportFunc != nil {
		return m.ExportFunc(ctx, req)
	}
	panic("MockExportService.ExportFunc not implemented")
}

func (m *MockExportService) Run(ctx context.Context, runID string, values *domain.SheetValues) (*domain.ExportResult, error) {
	if m.RunFunc != nil {
		return m.RunFunc(ctx, runID, values)
	}
	panic("MockExportService.RunFunc not implemented")
}

func setupApp(svc domain.ExportService) *fiber.App {
	app := fiber.New(fiber.Config{ErrorHandler: middleware.ErrorHandler()})
	h := handler.NewExportHandler(svc)
	app.Get("/", h.Health)
	app.Post("/api/exports", middleware.NewValidationMiddleware().ValidateExportRequest(), h.CreateExport)
	return app
}

func postExport(t *testing.T, app *fiber.App, body interface{}) (int, []byte, http.Header) {
	t.Helper()
	payload, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest("POST", "/api/exports", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	return resp.StatusCode, data, resp.Header
}

func TestExportHandler_Health(t *testing.T) {
	app := setupApp(&MockExportService{})

	resp, err := app.Test(httptest.NewRequest("GET", "/", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	var body map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, true, body["ok"])
	assert.Equal(t, "quiz-export", body["service"])
}

func TestExportHandler_CreateExport_Success(t *testing.T) {
	var got domain.ExportRequest
	svc := &MockExportService{
		ExportFunc: func(ctx context.Context, req domain.ExportRequest) (*domain.ExportResult, error) {
			got = req
			return &domain.ExportResult{
				Archive: &domain.ExportArchive{FileName: "quiz_exports.zip", Files: []string{"en.xlsx"}, Content: []byte("PK-zip-bytes")},
				Report: domain.RunReport{
					RunID:           "01J9Z3Q5W6X7Y8Z9A0B1C2D3E4",
					ItemsExported:   3,
					Dropped:         []domain.DroppedCandidate{{Row: 4, Reason: "correct_index out of range for 2 choices"}},
					UnextractedRows: []int{5, 6},
				},
			}, nil
		},
	}
	app := setupApp(svc)

	status, body, headers := postExport(t, app, map[string]string{"sheet_url": testSheetURL, "sheet_name": " Quiz 1 "})

	assert.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, []byte("PK-zip-bytes"), body)
	assert.Equal(t, "application/zip", headers.Get("Content-Type"))
	assert.Equal(t, `attachment; filename="quiz_exports.zip"`, headers.Get("Content-Disposition"))
	assert.Equal(t, "01J9Z3Q5W6X7Y8Z9A0B1C2D3E4", headers.Get(handler.HeaderRunID))
	assert.Equal(t, "3", headers.Get(handler.HeaderItemsExported))
	assert.Equal(t, "1", headers.Get(handler.HeaderItemsDropped))
	assert.Equal(t, "2", headers.Get(handler.HeaderRowsSkipped))
	assert.Equal(t, domain.ExportRequest{SheetIdentifier: testSheetURL, Worksheet: "Quiz 1"}, got)
}

func TestExportHandler_CreateExport_ValidationError(t *testing.T) {
	app := setupApp(&MockExportService{})

	status, body, _ := postExport(t, app, map[string]string{"sheet_url": "https://example.com/nope"})

	assert.Equal(t, fiber.StatusBadRequest, status)
	var resp middleware.ValidationErrorResponse
	require.NoError(t, json.Unmarshal(body, &resp))
	assert.Equal(t, string(domain.CodeValidation), resp.Code)
	require.Len(t, resp.Errors, 2)
	assert.Equal(t, "sheet_url", resp.Errors[0].Field)
	assert.Equal(t, "sheet_name", resp.Errors[1].Field)
}

func TestExportHandler_CreateExport_StageFailures(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantStage  string
	}{
		{"extraction", domain.NewStageFailure(domain.StageExtraction, "all 3 batches failed", 0, 12), fiber.StatusBadGateway, "extraction"},
		{"validation", domain.NewStageFailure(domain.StageValidation, "nothing matched", 4, 12), fiber.StatusUnprocessableEntity, "validation"},
		{"input", domain.NewStageFailure(domain.StageInput, "worksheet has no data rows", 0, 0), fiber.StatusUnprocessableEntity, "input"},
		{"canceled", domain.NewStageFailure(domain.StageCanceled, "run timed out", 2, 12), fiber.StatusGatewayTimeout, "canceled"},
		{"assembly", domain.NewStageFailure(domain.StageAssembly, "no workbook could be rendered", 5, 12), fiber.StatusInternalServerError, "assembly"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app := setupApp(&MockExportService{
				ExportFunc: func(ctx context.Context, req domain.ExportRequest) (*domain.ExportResult, error) {
					return nil, tt.err
				},
			})

			status, body, _ := postExport(t, app, map[string]string{"sheet_url": testSheetURL, "sheet_name": "Quiz"})

			assert.Equal(t, tt.wantStatus, status)
			var resp struct {
				Code    string `json:"code"`
				Status  int    `json:"status"`
				Details struct {
					Stage         string `json:"stage"`
					Reason        string `json:"reason"`
					RowsProcessed int    `json:"rows_processed"`
				} `json:"details"`
			}
			require.NoError(t, json.Unmarshal(body, &resp))
			assert.Equal(t, string(domain.CodeExportFailed), resp.Code)
			assert.Equal(t, tt.wantStatus, resp.Status)
			assert.Equal(t, tt.wantStage, resp.Details.Stage)
			assert.NotEmpty(t, resp.Details.Reason)
		})
	}
}

func TestExportHandler_CreateExport_SheetErrors(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
	}{
		{"not found", domain.NewSheetNotFoundError("Quiz", errors.New("status 400")), fiber.StatusNotFound},
		{"unavailable", domain.NewSheetUnavailableError(errors.New("connection reset")), fiber.StatusBadGateway},
		{"unknown", errors.New("boom"), fiber.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app := setupApp(&MockExportService{
				ExportFunc: func(ctx context.Context, req domain.ExportRequest) (*domain.ExportResult, error) {
					return nil, tt.err
				},
			})

			status, _, _ := postExport(t, app, map[string]string{"sheet_identifier": "1BxiMVs0XRA5nFMdKvBdBZjgmUUqptlbs74OgvE2upms", "worksheet_name": "Quiz"})
			assert.Equal(t, tt.wantStatus, status)
		})
	}
}
