package handlers

import (
	"errors"

	"debugdiary/internal/errs"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// StatusFor maps an error kind onto its HTTP status. Conflicts and rejected
// credentials share 400 with validation failures.
func StatusFor(kind errs.Kind) int {
	switch kind {
	case errs.KindValidation, errs.KindConflict, errs.KindUnauthorized:
		return fiber.StatusBadRequest
	case errs.KindNotFound:
		return fiber.StatusNotFound
	default:
		return fiber.StatusInternalServerError
	}
}

// writeError renders err as {"error": message}. Internal causes are logged
// and replaced by a generic message.
func writeError(c *fiber.Ctx, logger *zap.Logger, err error) error {
	e := errs.As(err)
	if e.Kind == errs.KindInternal {
		logger.Error("request failed",
			zap.String("method", c.Method()),
			zap.String("path", c.Path()),
			zap.Error(err),
		)
	}

	body := fiber.Map{"error": e.Message}
	if len(e.Fields) > 0 {
		body["errors"] = e.Fields
	}
	return c.Status(StatusFor(e.Kind)).JSON(body)
}

// ErrorHandler is the app-wide Fiber error handler. Framework errors keep
// their status; everything else goes through the error kind mapping.
func ErrorHandler(logger *zap.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		var fe *fiber.Error
		if errors.As(err, &fe) {
			if fe.Code >= fiber.StatusInternalServerError {
				logger.Error("request failed", zap.String("path", c.Path()), zap.Error(err))
				return c.Status(fe.Code).JSON(fiber.Map{"error": "internal server error"})
			}
			return c.Status(fe.Code).JSON(fiber.Map{"error": fe.Message})
		}
		return writeError(c, logger, err)
	}
}

func invalidBody(c *fiber.Ctx) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
		"error": "Invalid request body",
	})
}
