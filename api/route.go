package api

import (
	"log/slog"

	"github.com/gofiber/fiber/v2"
	"github.com/nilotpaul/meetsync/api/handler"
	MW "github.com/nilotpaul/meetsync/api/middleware"
	"github.com/nilotpaul/meetsync/config"
	"github.com/nilotpaul/meetsync/service"
	"github.com/nilotpaul/meetsync/setting"
	"github.com/nilotpaul/meetsync/store"
	"github.com/nilotpaul/meetsync/types"
	"github.com/nilotpaul/meetsync/util"
)

type Router struct {
	registry    *store.ProviderRegistry
	env         config.EnvConfig
	creds       types.CredentialStore
	automations types.AutomationStore
	flowStore   *store.FlowStore
	transcripts *service.TranscriptWaiter
	logger      *slog.Logger
}

func NewRouter(
	registry *store.ProviderRegistry,
	env config.EnvConfig,
	creds types.CredentialStore,
	automations types.AutomationStore,
	flowStore *store.FlowStore,
	transcripts *service.TranscriptWaiter,
	logger *slog.Logger,
) *Router {
	return &Router{
		registry:    registry,
		env:         env,
		creds:       creds,
		automations: automations,
		flowStore:   flowStore,
		transcripts: transcripts,
		logger:      logger,
	}
}

func (h *Router) RegisterRoutes(r fiber.Router) {
	r.Get("/healthcheck", func(c *fiber.Ctx) error {
		return c.JSON("OK")
	})

	flows := store.NewFlowController(store.FlowControllerConfig{
		Registry:        h.registry,
		Credentials:     h.creds,
		Flows:           h.flowStore,
		Codec:           util.NewStateCodec(h.env.StateSecret, setting.StateMaxAge),
		IntegrationsURL: h.env.IntegrationsURL,
		Logger:          h.logger,
	})
	tokens := store.NewTokenManager(h.registry, h.creds, h.logger)
	dispatcher := store.NewDispatcher(h.registry, tokens, h.logger)

	// OAuth flows for every provider.
	integrationHR := handler.NewIntegrationHandler(h.registry, flows, tokens, h.creds, h.env)
	r.Get("/auth/:provider", MW.RequireIdentity, integrationHR.AuthorizeHandler)
	r.Get("/:provider/callback", integrationHR.CallbackHandler)
	r.Post("/:provider/revoke", MW.RequireIdentity, integrationHR.RevokeHandler)
	r.Post("/:provider/disconnect", MW.RequireIdentity, integrationHR.DisconnectHandler)
	r.Post("/:provider/verify-token", MW.RequireIdentity, integrationHR.VerifyTokenHandler)
	r.Get("/:provider/verify", MW.RequireIdentity, integrationHR.VerifyHandler)
	r.Get("/integrations", MW.RequireIdentity, integrationHR.IntegrationsHandler)

	automationHR := handler.NewAutomationHandler(h.registry, h.automations, dispatcher)
	r.Get("/automations", MW.RequireIdentity, automationHR.ListHandler)
	r.Post("/automations", MW.RequireIdentity, automationHR.CreateHandler)
	r.Post("/automations/dispatch", MW.RequireIdentity, automationHR.DispatchHandler)
	r.Get("/ws/automations/dispatch", MW.RequireIdentity, util.MakeWebsocketHandler(automationHR.DispatchWebsocketHandler))

	transcriptHR := handler.NewTranscriptHandler(h.transcripts)
	r.Get("/transcripts/:id", MW.RequireIdentity, transcriptHR.TranscriptHandler)
}
