package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	MW "github.com/nilotpaul/meetsync/api/middleware"
	"github.com/nilotpaul/meetsync/config"
	"github.com/nilotpaul/meetsync/metrics"
	"github.com/nilotpaul/meetsync/service"
	"github.com/nilotpaul/meetsync/setting"
	"github.com/nilotpaul/meetsync/store"
	"github.com/nilotpaul/meetsync/types"
	"github.com/valyala/fasthttp/fasthttpadaptor"
)

const flowSweepInterval = time.Minute

type APIServer struct {
	listenAddr  string
	env         config.EnvConfig
	registry    *store.ProviderRegistry
	creds       types.CredentialStore
	automations types.AutomationStore
	transcripts *service.TranscriptWaiter
	flowStore   *store.FlowStore
	logger      *slog.Logger
}

type APIServerConfig struct {
	ListenAddr  string
	Env         config.EnvConfig
	Registry    *store.ProviderRegistry
	Credentials types.CredentialStore
	Automations types.AutomationStore
	Transcripts *service.TranscriptWaiter
	Logger      *slog.Logger
}

func NewAPIServer(cfg APIServerConfig) *APIServer {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Transcripts == nil {
		cfg.Transcripts = service.NewTranscriptWaiter(service.TranscriptConfig{APIKey: cfg.Env.AssemblyAIKey})
	}

	return &APIServer{
		listenAddr:  cfg.ListenAddr,
		env:         cfg.Env,
		registry:    cfg.Registry,
		creds:       cfg.Credentials,
		automations: cfg.Automations,
		transcripts: cfg.Transcripts,
		flowStore:   store.NewFlowStore(cfg.Logger),
		logger:      cfg.Logger,
	}
}

// App builds the fiber app with every route mounted.
func (s *APIServer) App() *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:      "Meetsync",
		ErrorHandler: MW.ErrorHandler,
	})
	logger := logger.New(logger.Config{
		Format: "[${ip}]:${port} ${status} - ${method} ${path}\n",
	})

	app.Use(logger)
	app.Get("/metrics", makeFiberHandler(metrics.Handler()))

	v1 := app.Group(setting.APIPrefix)

	handler := NewRouter(s.registry, s.env, s.creds, s.automations, s.flowStore, s.transcripts, s.logger)
	handler.RegisterRoutes(v1)

	return app
}

// Start serves until ctx is done, then shuts the app down.
func (s *APIServer) Start(ctx context.Context) error {
	app := s.App()

	go s.flowStore.Run(ctx, flowSweepInterval)
	go func() {
		<-ctx.Done()
		if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
			s.logger.Error("server shutdown failed", "err", err)
		}
	}()

	s.logger.Info("server started", "addr", "http://localhost:"+s.listenAddr)

	return app.Listen(":" + s.listenAddr)
}

func makeFiberHandler(h http.Handler) fiber.Handler {
	return func(c *fiber.Ctx) error {
		fasthttpadaptor.NewFastHTTPHandler(h)(c.Context())
		return nil
	}
}
