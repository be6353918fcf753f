package handler

import (
	"fmt"
	"strconv"

	"quiz-export/internal/domain"
	"quiz-export/internal/dto"
	"quiz-export/internal/logger"
	"quiz-export/internal/middleware"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

const serviceName = "quiz-export"

// Response headers carrying the run report next to the archive body
const (
	HeaderRunID         = "X-Run-ID"
	HeaderItemsExported = "X-Items-Exported"
	HeaderItemsDropped  = "X-Items-Dropped"
	HeaderRowsSkipped   = "X-Rows-Skipped"
)

// ExportHandler handles export-related HTTP requests
type ExportHandler struct {
	service domain.ExportService
}

// NewExportHandler creates a new ExportHandler instance
func NewExportHandler(service domain.ExportService) *ExportHandler {
	return &ExportHandler{
		service: service,
	}
}

// Health godoc
// @Summary Health check
// @Description Reports that the service is up
// @Tags health
// @Produce json
// @Success 200 {object} dto.HealthResponse
// @Router / [get]
func (h *ExportHandler) Health(c *fiber.Ctx) error {
	return c.JSON(dto.HealthResponse{OK: true, Service: serviceName})
}

// CreateExport godoc
// @Summary Export a quiz worksheet
// @Description Reads the worksheet, extracts quiz items with the language model and returns one xlsx workbook per language in a zip archive
// @Tags export
// @Accept json
// @Produce application/zip
// @Param request body dto.ExportRequest true "Spreadsheet and worksheet"
// @Success 200 {file} binary
// @Header 200 {string} X-Run-ID "Run identifier"
// @Header 200 {integer} X-Items-Exported "Quiz items written"
// @Header 200 {integer} X-Items-Dropped "Candidates rejected by validation"
// @Header 200 {integer} X-Rows-Skipped "Rows that yielded no quiz item"
// @Failure 400 {object} middleware.ValidationErrorResponse
// @Failure 404 {object} middleware.ErrorResponse
// @Failure 422 {object} middleware.ErrorResponse
// @Failure 502 {object} middleware.ErrorResponse
// @Failure 504 {object} middleware.ErrorResponse
// @Router /exports [post]
func (h *ExportHandler) CreateExport(c *fiber.Ctx) error {
	req, ok := c.Locals(middleware.ValidatedExportRequestKey).(domain.ExportRequest)
	if !ok {
		return domain.NewInternalError("export request was not validated", nil)
	}

	result, err := h.service.Export(c.UserContext(), req)
	if err != nil {
		return err
	}

	report := result.Report
	logger.Get().Info("Export ready",
		zap.String("run_id", report.RunID),
		zap.Strings("files", result.Archive.Files),
		zap.Int("bytes", len(result.Archive.Content)),
	)

	c.Set(HeaderRunID, report.RunID)
	c.Set(HeaderItemsExported, strconv.Itoa(report.ItemsExported))
	c.Set(HeaderItemsDropped, strconv.Itoa(len(report.Dropped)))
	c.Set(HeaderRowsSkipped, strconv.Itoa(len(report.UnextractedRows)))
	c.Set(fiber.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", result.Archive.FileName))
	c.Set(fiber.HeaderContentType, "application/zip")
	return c.Status(fiber.StatusOK).Send(result.Archive.Content)
}
