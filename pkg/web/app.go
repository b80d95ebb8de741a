package web

import (
	"log/slog"

	"github.com/dukex/nodebase/pkg/eventbus"
	"github.com/dukex/nodebase/pkg/metrics"
	"github.com/dukex/nodebase/pkg/persistence"
	"github.com/dukex/nodebase/pkg/realtime"
	"github.com/dukex/nodebase/pkg/registry"
	"github.com/dukex/nodebase/pkg/services"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/adaptor"
	"github.com/gofiber/fiber/v3/middleware/cors"
	"github.com/gofiber/fiber/v3/middleware/healthcheck"
	"github.com/gofiber/fiber/v3/middleware/logger"
)

// Dependencies are the collaborators of the API application.
type Dependencies struct {
	Logger        *slog.Logger
	Persistence   persistence.Persistence
	Registry      *registry.Registry
	EventBus      eventbus.EventPublisher
	Tokens        *realtime.Tokens
	Metrics       *metrics.Collector
	SessionSecret string
}

// NewApp wires the services into a fiber application serving the REST API,
// health probes and prometheus metrics.
func NewApp(deps Dependencies) *fiber.App {
	executionService := services.NewExecution(deps.Persistence, deps.EventBus, deps.Metrics, deps.Logger)

	handlers := NewAPIHandlers(
		services.NewWorkflow(deps.Persistence, deps.Registry, deps.Logger),
		executionService,
		services.NewRealtime(deps.Persistence.WorkflowRepository(), deps.Tokens, deps.Logger),
		services.NewGoogleForm(deps.Persistence.WorkflowRepository(), executionService, deps.Logger),
		services.NewNode(deps.Registry),
		validator.New(validator.WithRequiredStructEnabled()),
		deps.Logger,
	)

	app := fiber.New()
	app.Use(cors.New())
	app.Use(logger.New(logger.Config{
		DisableColors: true,
	}))

	app.Get(healthcheck.DefaultLivenessEndpoint, healthcheck.NewHealthChecker())
	app.Get(healthcheck.DefaultReadinessEndpoint, healthcheck.NewHealthChecker())
	app.Get("/metrics", adaptor.HTTPHandler(deps.Metrics.Handler()))

	app.Get("/", func(c fiber.Ctx) error {
		return c.SendString("nodebase API")
	})

	handlers.Mount(app, SessionAuth(deps.SessionSecret))

	return app
}
