package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gofiber/fiber/v2"
	MW "github.com/nilotpaul/meetsync/api/middleware"
	"github.com/nilotpaul/meetsync/config"
	"github.com/nilotpaul/meetsync/store"
	"github.com/nilotpaul/meetsync/types"
	"github.com/nilotpaul/meetsync/util"
)

type IntegrationHandler struct {
	registry *store.ProviderRegistry
	flows    *store.FlowController
	tokens   *store.TokenManager
	creds    types.CredentialStore
	env      config.EnvConfig
}

func NewIntegrationHandler(
	registry *store.ProviderRegistry,
	flows *store.FlowController,
	tokens *store.TokenManager,
	creds types.CredentialStore,
	env config.EnvConfig,
) *IntegrationHandler {
	return &IntegrationHandler{
		registry: registry,
		flows:    flows,
		tokens:   tokens,
		creds:    creds,
		env:      env,
	}
}

// toAppError keeps the sentinel's status and code, msg is what the client sees.
func toAppError(err error, msg string) *util.AppError {
	return util.NewAppError(util.HTTPStatus(err), msg, err).WithCode(util.RedirectCode(err))
}

// AuthorizeHandler sends back the URL of the provider's consent page and sets
// the flow cookie the callback is matched against.
func (h *IntegrationHandler) AuthorizeHandler(c *fiber.Ctx) error {
	provider := c.Params("provider")

	res, err := h.flows.Authorize(c.UserContext(), provider, MW.Identity(c))
	if err != nil {
		return toAppError(err, "failed to start the authorization")
	}

	util.SetFlowCookie(c, provider, res.FlowID, h.env.Domain, res.MaxAge)

	return c.JSON(res)
}

// CallbackHandler finishes the flow. It always answers with a redirect to the
// integrations page, errors travel in its query string.
func (h *IntegrationHandler) CallbackHandler(c *fiber.Ctx) error {
	provider := c.Params("provider")

	res := h.flows.HandleCallback(c.UserContext(), provider, types.CallbackQuery{
		Code:             c.Query("code"),
		State:            c.Query("state"),
		Error:            c.Query("error"),
		ErrorDescription: c.Query("error_description"),
		FlowID:           util.GetFlowCookie(c, provider),
	})

	util.ClearFlowCookie(c, provider, h.env.Domain)

	return c.Redirect(res.URL, http.StatusFound)
}

// RevokeHandler revokes the tokens at the provider when it supports that,
// then disconnects the stored credential. A failed revoke does not stop the
// disconnect.
func (h *IntegrationHandler) RevokeHandler(c *fiber.Ctx) error {
	return h.disconnect(c, true)
}

// DisconnectHandler only disconnects the stored credential.
func (h *IntegrationHandler) DisconnectHandler(c *fiber.Ctx) error {
	return h.disconnect(c, false)
}

func (h *IntegrationHandler) disconnect(c *fiber.Ctx, revoke bool) error {
	userID := MW.Identity(c)

	p, err := h.registry.GetProvider(c.Params("provider"))
	if err != nil {
		return toAppError(err, "provider not found")
	}

	cred, err := h.creds.Get(c.UserContext(), userID, p.Name())
	if err != nil {
		if errors.Is(err, util.ErrCredentialNotFound) {
			return util.NewAppError(
				http.StatusNotFound,
				"integration is not connected",
			)
		}
		return toAppError(err, "failed to get the integration")
	}

	if revoke && cred.Connected {
		if err := p.Revoke(c.UserContext(), cred); err != nil {
			slog.Warn("provider revoke failed", "provider", p.Name(), "user_id", userID, "err", err)
		}
	}

	if err := h.creds.Clear(c.UserContext(), userID, p.Name()); err != nil {
		return toAppError(err, "failed to disconnect the integration")
	}

	return c.JSON(fiber.Map{
		"success": true,
	})
}

// VerifyTokenHandler checks an access token sent in the body against the
// provider.
func (h *IntegrationHandler) VerifyTokenHandler(c *fiber.Ctx) error {
	var b types.VerifyTokenHRBody
	if err := util.ParseAndValidate(c, &b); err != nil {
		return err
	}

	p, err := h.registry.GetProvider(c.Params("provider"))
	if err != nil {
		return toAppError(err, "provider not found")
	}

	return c.JSON(h.tokens.VerifyAccessToken(c.UserContext(), p.Name(), b.AccessToken))
}

// VerifyHandler checks the caller's stored credential against the provider.
func (h *IntegrationHandler) VerifyHandler(c *fiber.Ctx) error {
	p, err := h.registry.GetProvider(c.Params("provider"))
	if err != nil {
		return toAppError(err, "provider not found")
	}

	cred, err := h.creds.Get(c.UserContext(), MW.Identity(c), p.Name())
	if err != nil && !errors.Is(err, util.ErrCredentialNotFound) {
		return toAppError(err, "failed to get the integration")
	}

	return c.JSON(h.tokens.Verify(c.UserContext(), cred))
}

// IntegrationsHandler lists the caller's integrations without any secrets.
func (h *IntegrationHandler) IntegrationsHandler(c *fiber.Ctx) error {
	statuses, err := store.CredentialStatuses(c.UserContext(), h.creds, h.registry, MW.Identity(c))
	if err != nil {
		return toAppError(err, "failed to list the integrations")
	}

	return c.JSON(statuses)
}
