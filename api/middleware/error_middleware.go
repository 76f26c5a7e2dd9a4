package middleware

import (
	"log/slog"

	"github.com/gofiber/fiber/v2"
	"github.com/nilotpaul/meetsync/util"
)

func ErrorHandler(c *fiber.Ctx, err error) error {
	if apiErr, ok := err.(*util.AppError); ok {
		status := apiErr.Status

		slog.Error("HTTP API error", "errMsg", apiErr.Msg, "status", status, "err", apiErr.Err, "path", c.Path())

		body := fiber.Map{
			"status": status,
			"errMsg": apiErr.Msg,
		}
		if len(apiErr.Code) != 0 {
			body["code"] = apiErr.Code
		}

		return c.Status(status).JSON(body)
	}
	if fiberErr, ok := err.(*fiber.Error); ok {
		status := fiberErr.Code

		return c.Status(status).JSON(fiber.Map{
			"status": status,
			"errMsg": fiberErr.Message,
		})
	}

	// Sentinel errors that reached here unwrapped still get their status,
	// the message stays generic.
	status := util.HTTPStatus(err)
	slog.Error("HTTP API error", "err", err, "status", status, "path", c.Path())

	return c.Status(status).JSON(fiber.Map{
		"status": status,
		"errMsg": "something went wrong",
	})
}
