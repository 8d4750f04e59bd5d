package httpapi

import (
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

const internalErrorMessage = "An error occurred while processing the request"

// ErrorHandler renders every error as {success, error, message}.  Domain
// errors keep their message; anything unclassified is logged and replaced by
// a generic one.
func ErrorHandler(log *zap.SugaredLogger) fiber.ErrorHandler {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return func(c *fiber.Ctx, err error) error {
		code := statusFor(err)
		message := err.Error()

		switch {
		case code >= fiber.StatusInternalServerError && code != fiber.StatusBadGateway:
			log.Errorw("request failed",
				"method", c.Method(),
				"path", c.Path(),
				"request_id", c.GetRespHeader(fiber.HeaderXRequestID),
				"err", err,
			)
			message = internalErrorMessage
		case code == fiber.StatusBadGateway:
			log.Warnw("upstream failure", "path", c.Path(), "err", err)
			message = "Upstream provider is unavailable; please retry later"
		}

		return c.Status(code).JSON(fiber.Map{
			"success": false,
			"error":   true,
			"message": message,
		})
	}
}
