package validation

import (
	"reflect"
	"strings"

	"quiz-export/internal/adapter/sheets"
	"quiz-export/internal/domain"
	"quiz-export/internal/dto"

	"github.com/go-playground/validator/v10"
)

// Validator provides request validation functionality
type Validator struct {
	validate *validator.Validate
}

// NewValidator creates a new validator instance
func NewValidator() *Validator {
	v := validator.New()
	// Report fields by their JSON names
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return &Validator{validate: v}
}

// ValidateExportRequest validates the export request body
func (v *Validator) ValidateExportRequest(req dto.ExportRequest) domain.ValidationErrors {
	var errors domain.ValidationErrors

	if err := v.validate.Struct(req); err != nil {
		if fieldErrs, ok := err.(validator.ValidationErrors); ok {
			for _, fe := range fieldErrs {
				errors = append(errors, domain.NewOutOfRangeError(fe.Field(), fe.Param()))
			}
		}
	}

	identifier := req.Identifier()
	if identifier == "" {
		errors = append(errors, domain.NewMissingFieldError("sheet_url"))
	} else if _, err := sheets.SpreadsheetID(identifier); err != nil {
		errors = append(errors, domain.NewInvalidFormatError("sheet_url", identifier))
	}

	if req.Worksheet() == "" {
		errors = append(errors, domain.NewMissingFieldError("sheet_name"))
	}

	return errors
}
