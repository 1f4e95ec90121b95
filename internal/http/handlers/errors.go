package handlers

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"

	"agromart/internal/domain"
	applog "agromart/internal/log"
)

const genericMessage = "Something went wrong. Please try again."

func statusFor(code string) int {
	switch code {
	case domain.CodeInvalidInput,
		domain.CodeProductUnavailable,
		domain.CodeInsufficientStock,
		domain.CodeStockReservationFailed,
		domain.CodeShippingInfoRequired,
		domain.CodeUserResolutionFailed,
		domain.CodeOrderNotCancellable:
		return fiber.StatusBadRequest
	case domain.CodeUnauthenticated:
		return fiber.StatusUnauthorized
	case domain.CodeUnauthorized:
		return fiber.StatusForbidden
	case domain.CodeNotFound:
		return fiber.StatusNotFound
	case domain.CodeConflict:
		return fiber.StatusConflict
	}
	return fiber.StatusInternalServerError
}

// fail answers with {message, code}. Errors without a domain code are
// logged and replaced by a generic message.
func fail(c *fiber.Ctx, action string, err error) error {
	var de *domain.DomainError
	if !errors.As(err, &de) {
		applog.Error(c, action, err, nil)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"message": genericMessage})
	}
	status := statusFor(de.Code)
	fields := map[string]any{"code": de.Code}
	switch status {
	case fiber.StatusUnauthorized, fiber.StatusForbidden:
		applog.Security(c, action, fields)
	default:
		applog.Info(c, action, fields)
	}
	return c.Status(status).JSON(fiber.Map{"message": de.Message, "code": de.Code})
}

func badRequest(c *fiber.Ctx, field, message string) error {
	applog.Security(c, "validation.fail", map[string]any{"field": field})
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": message, "code": domain.CodeInvalidInput})
}

func isAPI(c *fiber.Ctx) bool {
	return strings.HasPrefix(c.Path(), "/api/") || c.Path() == "/api"
}

// ErrorHandler is the app-wide fallback for errors no handler answered.
// API paths get JSON, everything else a friendly page.
func ErrorHandler(c *fiber.Ctx, err error) error {
	status := fiber.StatusInternalServerError
	message := genericMessage
	var fe *fiber.Error
	if errors.As(err, &fe) {
		status = fe.Code
		if status < fiber.StatusInternalServerError {
			message = fe.Message
		}
	}
	if status >= fiber.StatusInternalServerError {
		applog.Error(c, "server.error", err, nil)
	}
	if isAPI(c) {
		return c.Status(status).JSON(fiber.Map{"message": message})
	}
	return render(c, status, "notfound", fiber.Map{"Message": message})
}
