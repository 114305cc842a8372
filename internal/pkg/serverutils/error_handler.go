package serverutils

import (
	"errors"

	"github.com/gofiber/fiber/v2"
)

// ErrorMapper translates a domain error into an HTTP status and message.
// It returns false when it does not recognise the error.
type ErrorMapper func(err error) (int, string, bool)

// ErrorHandlerMiddleware turns errors returned by handlers into BaseResponse
// JSON. Mappers are consulted in order before the generic fallbacks.
func ErrorHandlerMiddleware(mappers ...ErrorMapper) fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		err := ctx.Next()
		if err == nil {
			return nil
		}
		code, message := resolveError(err, mappers)
		return ctx.Status(code).JSON(ErrorResponse(code, message))
	}
}

func resolveError(err error, mappers []ErrorMapper) (int, string) {
	for _, m := range mappers {
		if code, message, ok := m(err); ok {
			return code, message
		}
	}

	var validationErr *ValidationError
	if errors.As(err, &validationErr) {
		return fiber.StatusBadRequest, validationErr.Error()
	}

	var fiberErr *fiber.Error
	if errors.As(err, &fiberErr) {
		return fiberErr.Code, fiberErr.Message
	}

	return fiber.StatusInternalServerError, err.Error()
}
