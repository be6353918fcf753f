package validation

import (
	"strings"
	"testing"

	"quiz-export/internal/domain"
	"quiz-export/internal/dto"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sheetURL = "https://docs.google.com/spreadsheets/d/1BxiMVs0XRA5nFMdKvBdBZjgmUUqptlbs74OgvE2upms/edit"

func TestValidateExportRequest(t *testing.T) {
	v := NewValidator()

	tests := []struct {
		name      string
		req       dto.ExportRequest
		wantField []string
	}{
		{"url and sheet name", dto.ExportRequest{SheetURL: sheetURL, SheetName: "Quiz"}, nil},
		{"identifier and worksheet", dto.ExportRequest{SheetIdentifier: "1BxiMVs0XRA5nFMdKvBdBZjgmUUqptlbs74OgvE2upms", WorksheetName: "Sheet1"}, nil},
		{"missing everything", dto.ExportRequest{}, []string{"sheet_url", "sheet_name"}},
		{"unparsable sheet", dto.ExportRequest{SheetURL: "https://example.com/x", SheetName: "Quiz"}, []string{"sheet_url"}},
		{"blank worksheet", dto.ExportRequest{SheetURL: sheetURL, SheetName: "   "}, []string{"sheet_name"}},
		{"worksheet too long", dto.ExportRequest{SheetURL: sheetURL, SheetName: strings.Repeat("x", 101)}, []string{"sheet_name"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			errs := v.ValidateExportRequest(tt.req)
			var fields []string
			for _, e := range errs {
				fields = append(fields, e.Field)
			}
			assert.Equal(t, tt.wantField, fields)
		})
	}
}

func TestValidateExportRequest_Codes(t *testing.T) {
	errs := NewValidator().ValidateExportRequest(dto.ExportRequest{SheetURL: "nope", SheetName: strings.Repeat("y", 200)})

	require.Len(t, errs, 2)
	assert.Equal(t, string(domain.CodeOutOfRange), errs[0].Code)
	assert.Equal(t, string(domain.CodeInvalidFormat), errs[1].Code)
}
