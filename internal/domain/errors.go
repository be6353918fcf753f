package domain

import (
	"encoding/json"
	"fmt"
	"strings"
)

// ErrorCode represents a specific type of error in the domain
type ErrorCode string

const (
	// Common errors
	CodeInternal      ErrorCode = "INTERNAL_ERROR"
	CodeInvalidInput  ErrorCode = "INVALID_INPUT"
	CodeValidation    ErrorCode = "VALIDATION_ERROR"
	CodeMissingField  ErrorCode = "MISSING_FIELD"
	CodeInvalidFormat ErrorCode = "INVALID_FORMAT"
	CodeOutOfRange    ErrorCode = "OUT_OF_RANGE"

	// Export specific errors
	CodeSheetNotFound    ErrorCode = "SHEET_NOT_FOUND"
	CodeSheetUnavailable ErrorCode = "SHEET_UNAVAILABLE"
	CodeLLMServiceError  ErrorCode = "LLM_SERVICE_ERROR"
	CodeExportFailed     ErrorCode = "EXPORT_FAILED"
)

// DomainError represents a domain-specific error
type DomainError struct {
	Code    ErrorCode              `json:"code"`
	Message string                 `json:"message"`
	Cause   error                  `json:"-"`
	Context map[string]interface{} `json:"-"`
}

func (e *DomainError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *DomainError) Unwrap() error {
	return e.Cause
}

// MarshalJSON implements the json.Marshaler interface
func (e *DomainError) MarshalJSON() ([]byte, error) {
	return json.Marshal(&struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	}{
		Code:    string(e.Code),
		Message: e.Message,
	})
}

// NewError creates a new DomainError
func NewError(code ErrorCode, message string, cause error) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// WithContext attaches a detail that is surfaced to API clients.
func (e *DomainError) WithContext(key string, value interface{}) *DomainError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

func NewInvalidInputError(message string) *DomainError {
	return NewError(CodeInvalidInput, message, nil)
}

func NewInternalError(message string, cause error) *DomainError {
	return NewError(CodeInternal, message, cause)
}

func NewSheetNotFoundError(worksheet string, cause error) *DomainError {
	return NewError(CodeSheetNotFound, fmt.Sprintf("Worksheet not found or not public: %s", worksheet), cause)
}

func NewSheetUnavailableError(cause error) *DomainError {
	return NewError(CodeSheetUnavailable, "Failed to read spreadsheet", cause)
}

func NewLLMServiceError(cause error) *DomainError {
	return NewError(CodeLLMServiceError, "Failed to process with LLM service", cause)
}

// ValidationError describes one invalid request field.
type ValidationError struct {
	Field   string `json:"field"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationErrors is returned by request validation; an empty slice means valid.
type ValidationErrors []ValidationError

func (v ValidationErrors) Error() string {
	msgs := make([]string, 0, len(v))
	for _, e := range v {
		msgs = append(msgs, e.Error())
	}
	return strings.Join(msgs, "; ")
}

func NewMissingFieldError(field string) ValidationError {
	return ValidationError{Field: field, Code: string(CodeMissingField), Message: "field is required"}
}

func NewInvalidFormatError(field, value string) ValidationError {
	return ValidationError{Field: field, Code: string(CodeInvalidFormat), Message: fmt.Sprintf("invalid format: %q", value)}
}

func NewOutOfRangeError(field, limit string) ValidationError {
	return ValidationError{Field: field, Code: string(CodeOutOfRange), Message: fmt.Sprintf("must be at most %s characters", limit)}
}

// Stage names the pipeline step that aborted a run.
type Stage string

const (
	StageInput      Stage = "input"
	StageExtraction Stage = "extraction"
	StageValidation Stage = "validation"
	StageAssembly   Stage = "assembly"
	StageCanceled   Stage = "canceled"
)

// StageFailure is the terminal outcome of a run that produced no archive.
// RowsProcessed counts rows that made it through the stages before Stage.
type StageFailure struct {
	Stage         Stage  `json:"stage"`
	Reason        string `json:"reason"`
	RowsProcessed int    `json:"rows_processed"`
	RowsAttempted int    `json:"rows_attempted"`
	Cause         error  `json:"-"`
}

func (f *StageFailure) Error() string {
	if f.Cause != nil {
		return fmt.Sprintf("export failed at %s stage: %s: %v", f.Stage, f.Reason, f.Cause)
	}
	return fmt.Sprintf("export failed at %s stage: %s", f.Stage, f.Reason)
}

func (f *StageFailure) Unwrap() error {
	return f.Cause
}

func NewStageFailure(stage Stage, reason string, rowsProcessed, rowsAttempted int) *StageFailure {
	return &StageFailure{
		Stage:         stage,
		Reason:        reason,
		RowsProcessed: rowsProcessed,
		RowsAttempted: rowsAttempted,
	}
}
