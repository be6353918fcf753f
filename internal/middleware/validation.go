package middleware

import (
	"quiz-export/internal/domain"
	"quiz-export/internal/dto"
	"quiz-export/internal/validation"

	"github.com/gofiber/fiber/v2"
)

// ValidatedExportRequestKey is the fiber Locals key holding the parsed request
const ValidatedExportRequestKey = "validated_export_request"

// ValidationMiddleware provides request validation middleware
type ValidationMiddleware struct {
	validator *validation.Validator
}

// NewValidationMiddleware creates a new validation middleware instance
func NewValidationMiddleware() *ValidationMiddleware {
	return &ValidationMiddleware{
		validator: validation.NewValidator(),
	}
}

// ValidateExportRequest parses and validates the export request body
func (vm *ValidationMiddleware) ValidateExportRequest() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req dto.ExportRequest
		if err := c.BodyParser(&req); err != nil {
			return domain.ValidationErrors{
				domain.NewInvalidFormatError("body", "expected a JSON object"),
			}
		}

		if errors := vm.validator.ValidateExportRequest(req); len(errors) > 0 {
			return errors // This will be handled by ErrorHandler middleware
		}

		c.Locals(ValidatedExportRequestKey, domain.ExportRequest{
			SheetIdentifier: req.Identifier(),
			Worksheet:       req.Worksheet(),
		})
		return c.Next()
	}
}
