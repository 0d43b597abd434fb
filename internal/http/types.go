package http

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"atrium/internal/store"
)

// ErrorResponse is the error envelope shared by every endpoint.
type ErrorResponse struct {
	Success bool        `json:"success"`
	Code    string      `json:"code,omitempty"`
	Error   string      `json:"error"`
	Details interface{} `json:"details,omitempty"`
}

// FieldError describes one invalid input field in a 422 response.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func badRequestJSON(c *fiber.Ctx) error {
	return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
		Success: false,
		Code:    "BAD_REQUEST_INVALID_JSON",
		Error:   "Bad request, malformed JSON",
	})
}

// validationFailed returns a structured 422. Malformed input is
// recovered locally, never surfaced as a 500.
func validationFailed(c *fiber.Ctx, fields []FieldError) error {
	return c.Status(fiber.StatusUnprocessableEntity).JSON(ErrorResponse{
		Success: false,
		Code:    "VALIDATION_ERROR",
		Error:   "Input validation failed",
		Details: fields,
	})
}

func unauthenticatedJSON(c *fiber.Ctx) error {
	return c.Status(fiber.StatusUnauthorized).JSON(ErrorResponse{
		Success: false,
		Code:    "UNAUTHENTICATED",
		Error:   "Authentication required",
	})
}

func notFoundJSON(c *fiber.Ctx) error {
	return c.Status(fiber.StatusNotFound).JSON(ErrorResponse{
		Success: false,
		Code:    "NOT_FOUND",
		Error:   "Resource not found",
	})
}

// storeErrorJSON maps data-access failures onto the error taxonomy.
// Tenant mismatches answer as not-found so an unauthorized tenant
// cannot confirm that a resource exists.
func storeErrorJSON(c *fiber.Ctx, err error) error {
	if errors.Is(err, store.ErrTenantMismatch) || errors.Is(err, store.ErrNotFound) {
		return notFoundJSON(c)
	}
	return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{
		Success: false,
		Code:    "INTERNAL_ERROR",
		Error:   err.Error(),
	})
}
