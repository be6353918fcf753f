package dto

import "strings"

// ExportRequest is the body of POST /api/exports
// @Description Spreadsheet to export. Either sheet_url or sheet_identifier and either sheet_name or worksheet_name must be set.
type ExportRequest struct {
	SheetURL        string `json:"sheet_url" validate:"omitempty,max=2048"`
	SheetIdentifier string `json:"sheet_identifier" validate:"omitempty,max=2048"`
	SheetName       string `json:"sheet_name" validate:"omitempty,max=100"`
	WorksheetName   string `json:"worksheet_name" validate:"omitempty,max=100"`
}

// Identifier returns the spreadsheet URL or ID, preferring sheet_identifier.
func (r ExportRequest) Identifier() string {
	if id := strings.TrimSpace(r.SheetIdentifier); id != "" {
		return id
	}
	return strings.TrimSpace(r.SheetURL)
}

// Worksheet returns the worksheet name, preferring worksheet_name.
func (r ExportRequest) Worksheet() string {
	if name := strings.TrimSpace(r.WorksheetName); name != "" {
		return name
	}
	return strings.TrimSpace(r.SheetName)
}

// HealthResponse is returned by GET /
type HealthResponse struct {
	OK      bool   `json:"ok"`
	Service string `json:"service"`
}

// StageFailureDetails is the details object of a failed export
type StageFailureDetails struct {
	Stage         string `json:"stage"`
	Reason        string `json:"reason"`
	RowsProcessed int    `json:"rows_processed"`
}
