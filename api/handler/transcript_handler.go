package handler

import (
	"errors"
	"net/http"

	"github.com/gofiber/fiber/v2"
	"github.com/nilotpaul/meetsync/service"
	"github.com/nilotpaul/meetsync/setting"
	"github.com/nilotpaul/meetsync/util"
)

type TranscriptHandler struct {
	waiter *service.TranscriptWaiter
}

func NewTranscriptHandler(waiter *service.TranscriptWaiter) *TranscriptHandler {
	return &TranscriptHandler{
		waiter: waiter,
	}
}

// TranscriptHandler returns a transcription job. With `?wait=true` it blocks
// until the job finishes or the poll gives up.
func (h *TranscriptHandler) TranscriptHandler(c *fiber.Ctx) error {
	if !h.waiter.Configured() {
		return util.NewAppError(
			http.StatusInternalServerError,
			"transcription is not configured",
		).WithCode(setting.ErrCodeConfiguration)
	}

	id := c.Params("id")
	get := h.waiter.Get
	if c.QueryBool("wait") {
		get = h.waiter.Wait
	}

	t, err := get(c.UserContext(), id)
	if err != nil {
		status := util.HTTPStatus(err)
		var apiErr *service.APIError
		if errors.As(err, &apiErr) && apiErr.Status == http.StatusNotFound {
			status = http.StatusNotFound
		}

		return util.NewAppError(
			status,
			"failed to get the transcript",
			err,
		)
	}

	return c.JSON(t)
}
