package handler

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"slices"
	"time"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	MW "github.com/nilotpaul/meetsync/api/middleware"
	"github.com/nilotpaul/meetsync/setting"
	"github.com/nilotpaul/meetsync/store"
	"github.com/nilotpaul/meetsync/types"
	"github.com/nilotpaul/meetsync/util"
)

type AutomationHandler struct {
	registry    *store.ProviderRegistry
	automations types.AutomationStore
	dispatcher  *store.Dispatcher
}

func NewAutomationHandler(registry *store.ProviderRegistry, automations types.AutomationStore, dispatcher *store.Dispatcher) *AutomationHandler {
	return &AutomationHandler{
		registry:    registry,
		automations: automations,
		dispatcher:  dispatcher,
	}
}

func (h *AutomationHandler) ListHandler(c *fiber.Ctx) error {
	list, err := h.automations.List(c.UserContext(), MW.Identity(c))
	if err != nil {
		return toAppError(err, "failed to list the automations")
	}
	if list == nil {
		list = []*types.Automation{}
	}

	return c.JSON(list)
}

func (h *AutomationHandler) CreateHandler(c *fiber.Ctx) error {
	var a types.Automation
	if err := util.ParseAndValidate(c, &a); err != nil {
		return err
	}

	for i, step := range a.Steps {
		if _, err := h.registry.GetProvider(step.Type); err != nil {
			return util.NewAppError(
				http.StatusBadRequest,
				fmt.Sprintf("step %d has an unsupported type %q", i, step.Type),
			)
		}
	}

	// Ownership and ids are server side.
	a.ID = ""
	a.UserID = MW.Identity(c)
	a.CreatedAt = time.Time{}
	if err := h.automations.Create(c.UserContext(), &a); err != nil {
		return toAppError(err, "failed to create the automation")
	}

	return c.Status(http.StatusCreated).JSON(a)
}

// DispatchHandler runs the caller's automations for a meeting. The response
// status is the report's: 207 when some steps failed.
func (h *AutomationHandler) DispatchHandler(c *fiber.Ctx) error {
	var b types.DispatchHRBody
	if err := util.ParseAndValidate(c, &b); err != nil {
		return err
	}

	automations, err := h.selectAutomations(c, MW.Identity(c), b)
	if err != nil {
		return err
	}

	report := h.dispatcher.Dispatch(c.UserContext(), MW.Identity(c), &b.Meeting, automations)

	return c.Status(report.Status).JSON(report)
}

func (h *AutomationHandler) selectAutomations(c *fiber.Ctx, userID string, b types.DispatchHRBody) ([]*types.Automation, error) {
	if len(b.Meeting.ID) == 0 {
		return nil, util.NewAppError(
			http.StatusBadRequest,
			"meeting.id is required",
		)
	}

	all, err := h.automations.List(c.UserContext(), userID)
	if err != nil {
		return nil, toAppError(err, "failed to list the automations")
	}

	return filterAutomations(all, b.AutomationIDs), nil
}

// filterAutomations keeps the automations with the given ids, all of them
// when ids is empty.
func filterAutomations(all []*types.Automation, ids []string) []*types.Automation {
	if len(ids) == 0 {
		return all
	}

	selected := make([]*types.Automation, 0, len(ids))
	for _, a := range all {
		if slices.Contains(ids, a.ID) {
			selected = append(selected, a)
		}
	}

	return selected
}

// DispatchWebsocketHandler reads one dispatch request and streams every step
// result as it finishes, then the full report. Returned errors are written
// as an error frame by the wrapper, which also closes the connection.
func (h *AutomationHandler) DispatchWebsocketHandler(c *websocket.Conn) error {
	userID, _ := c.Locals(setting.IdentityLocalKey).(string)
	if len(userID) == 0 {
		return util.NewAppError(
			http.StatusUnauthorized,
			"no caller identity",
		)
	}

	var b types.DispatchHRBody
	if err := c.ReadJSON(&b); err != nil {
		return util.NewAppError(
			http.StatusBadRequest,
			"invalid dispatch request",
			err,
		)
	}
	if len(b.Meeting.ID) == 0 {
		return util.NewAppError(
			http.StatusBadRequest,
			"meeting.id is required",
		)
	}

	// The connection outlives the upgrade request's context.
	ctx := context.Background()

	all, err := h.automations.List(ctx, userID)
	if err != nil {
		return toAppError(err, "failed to list the automations")
	}
	automations := filterAutomations(all, b.AutomationIDs)

	var writeErr error
	report := h.dispatcher.DispatchStream(ctx, userID, &b.Meeting, automations, func(sr types.StepResult) {
		if writeErr != nil {
			return
		}
		writeErr = c.WriteJSON(fiber.Map{"step": sr})
	})
	if writeErr != nil {
		return writeErr
	}

	if err := c.WriteJSON(fiber.Map{"report": report}); err != nil {
		return err
	}
	if err := c.Close(); err != nil {
		log.Printf("failed to close the ws connection: %v", err)
	}

	return nil
}
