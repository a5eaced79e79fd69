package handler

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"dailypages/internal/extract"
	"dailypages/internal/http/middleware"
	"dailypages/internal/repository"
	"dailypages/internal/service"
)

// errorPayload defines the standardized error response body.
type errorPayload struct {
	RequestID string        `json:"request_id"`
	Error     errorEnvelope `json:"error"`
}

type errorEnvelope struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// requestIDFromCtx extracts request_id previously stored by middleware.RequestID.
func requestIDFromCtx(c *fiber.Ctx) string {
	if s, ok := c.Locals(middleware.RequestIDLocalKey).(string); ok {
		return s
	}
	return ""
}

// writeError writes a standardized JSON error response. message must be safe to show to clients.
func writeError(c *fiber.Ctx, status int, code, message string) error {
	res := errorPayload{
		RequestID: requestIDFromCtx(c),
		Error: errorEnvelope{
			Code:    code,
			Message: message,
		},
	}
	return c.Status(status).JSON(res)
}

type errorMapping struct {
	target  error
	status  int
	code    string
	message string
}

var serviceErrors = []errorMapping{
	{service.ErrNotFound, fiber.StatusNotFound, "NOT_FOUND", "document not found"},
	{service.ErrSubscriptionNotFound, fiber.StatusNotFound, "NOT_FOUND", "subscription not found"},
	{service.ErrReaderNotFound, fiber.StatusNotFound, "NOT_FOUND", "reader not found"},
	{service.ErrIDRequired, fiber.StatusBadRequest, "INVALID_ID", "id is required"},
	{service.ErrInvalidID, fiber.StatusBadRequest, "INVALID_ID", "id must be a UUID"},
	{service.ErrInvalidEmail, fiber.StatusBadRequest, "INVALID_EMAIL", "invalid email address"},
	{service.ErrInvalidPageLength, fiber.StatusBadRequest, "INVALID_PAGE_LENGTH", "page length must be positive"},
	{service.ErrInvalidScope, fiber.StatusBadRequest, "INVALID_SCOPE", "a document can only be given for a single reader"},
	{service.ErrReaderNil, fiber.StatusBadRequest, "FILE_REQUIRED", "file is required"},
	{service.ErrFileTooLarge, fiber.StatusRequestEntityTooLarge, "FILE_TOO_LARGE", "file too large"},
	{extract.ErrUnsupported, fiber.StatusUnsupportedMediaType, "UNSUPPORTED_DOCUMENT", "unsupported document type"},
	{extract.ErrInvalidDocument, fiber.StatusUnprocessableEntity, "INVALID_DOCUMENT", "document could not be read"},
	{extract.ErrEmptyDocument, fiber.StatusUnprocessableEntity, "EMPTY_DOCUMENT", "document has no text"},
	{repository.ErrScopeUnavailable, fiber.StatusServiceUnavailable, "SERVICE_UNAVAILABLE", "dependency unavailable"},
}

// writeServiceError translates a service error to its response. Unknown errors become a
// generic 500 so internal details never leak.
func writeServiceError(c *fiber.Ctx, err error) error {
	for _, m := range serviceErrors {
		if errors.Is(err, m.target) {
			return writeError(c, m.status, m.code, m.message)
		}
	}
	return writeError(c, fiber.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
}

// ErrorHandler returns a Fiber global error handler that standardizes error responses.
func ErrorHandler() fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		status := fiber.StatusInternalServerError
		var fe *fiber.Error
		if errors.As(err, &fe) {
			status = fe.Code
		}

		switch status {
		case fiber.StatusBadRequest:
			return writeError(c, status, "BAD_REQUEST", "bad request")
		case fiber.StatusNotFound:
			return writeError(c, status, "NOT_FOUND", "resource not found")
		case fiber.StatusMethodNotAllowed:
			return writeError(c, status, "METHOD_NOT_ALLOWED", "method not allowed")
		case fiber.StatusRequestEntityTooLarge:
			return writeError(c, status, "FILE_TOO_LARGE", "request body too large")
		default:
			return writeError(c, fiber.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
		}
	}
}
