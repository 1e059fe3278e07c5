package utils

import (
	"github.com/gofiber/fiber/v2"
)

// The frontend consumes the same {success, data, error, validationErrors}
// envelope its server actions produced, so every response body carries the
// success discriminator.

// SuccessResponse sends a success envelope wrapping the payload
func SuccessResponse(c *fiber.Ctx, data interface{}, status int) error {
	return c.Status(status).JSON(fiber.Map{
		"success": true,
		"data":    data,
	})
}

// ErrorResponse sends a standard error response matching the frontend format
func ErrorResponse(c *fiber.Ctx, message string, status int, errorType string) error {
	return c.Status(status).JSON(ErrorResponseStruct{
		Success:   false,
		Error:     message,
		ErrorType: errorType,
	})
}

// ValidationErrorResponse sends a 422 carrying every rule violation at once
func ValidationErrorResponse(c *fiber.Ctx, errors []string) error {
	return c.Status(fiber.StatusUnprocessableEntity).JSON(ValidationErrorResponseStruct{
		Success:          false,
		ValidationErrors: errors,
	})
}

// ErrorResponseStruct defines the schema for error responses
type ErrorResponseStruct struct {
	Success   bool   `json:"success"`
	Error     string `json:"error"`
	ErrorType string `json:"errorType,omitempty"`
}

// ValidationErrorResponseStruct defines the schema for validation failures
type ValidationErrorResponseStruct struct {
	Success          bool     `json:"success"`
	Error            string   `json:"error,omitempty"`
	ValidationErrors []string `json:"validationErrors"`
}
