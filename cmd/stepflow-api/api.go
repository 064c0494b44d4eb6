// Package main provides the stepflow API server: the validation step API and
// the hosted workflow builder sessions.
package main

import (
	"log/slog"
	"strconv"

	"github.com/dukex/stepflow/pkg/builder"
	"github.com/dukex/stepflow/pkg/eventbus"
	"github.com/dukex/stepflow/pkg/metrics"
	"github.com/dukex/stepflow/pkg/models"
	"github.com/dukex/stepflow/pkg/persistence"
	"github.com/dukex/stepflow/pkg/services"
	"github.com/dukex/stepflow/pkg/web"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/adaptor"
	"github.com/gofiber/fiber/v3/middleware/cors"
	"github.com/gofiber/fiber/v3/middleware/healthcheck"
	"github.com/gofiber/fiber/v3/middleware/logger"
)

type API struct {
	logger         *slog.Logger
	persistence    persistence.Persistence
	eventBus       eventbus.EventBus
	store          *builder.Store
	metrics        *metrics.Metrics
	sessionOptions []builder.Option
	validate       *validator.Validate
}

func NewAPI(
	logger *slog.Logger,
	persistence persistence.Persistence,
	eventBus eventbus.EventBus,
	store *builder.Store,
	m *metrics.Metrics,
	sessionOptions ...builder.Option,
) *API {
	return &API{
		logger:         logger,
		persistence:    persistence,
		eventBus:       eventBus,
		store:          store,
		metrics:        m,
		sessionOptions: sessionOptions,
		validate:       models.NewValidator(),
	}
}

func (a *API) App() *fiber.App {
	workflowService := services.NewWorkflow(a.persistence, a.eventBus, a.logger)
	stepService := services.NewStep(a.persistence, a.eventBus, a.logger)

	handlers := web.NewAPIHandlers(workflowService, stepService, a.validate, a.logger)
	builderHandlers := web.NewBuilderHandlers(
		a.store,
		services.NewLocalAPI(workflowService, stepService),
		a.validate,
		a.logger,
		a.sessionOptions...,
	)

	app := fiber.New()
	app.Use(cors.New())
	app.Use(logger.New(logger.Config{
		DisableColors: true,
	}))
	app.Use(a.observeRequests)

	app.Get(healthcheck.DefaultLivenessEndpoint, healthcheck.NewHealthChecker())
	app.Get(healthcheck.DefaultReadinessEndpoint, healthcheck.NewHealthChecker())

	app.Get("/", func(c fiber.Ctx) error {
		return c.SendString("stepflow API")
	})

	if a.metrics != nil {
		app.Get("/metrics", adaptor.HTTPHandler(a.metrics.Handler()))
	}

	v := app.Group("/validations")
	v.Get("/execution-points", handlers.GetExecutionPoints)
	v.Get("/datasources", handlers.GetDatasources)

	w := v.Group("/workflows")
	w.Get("/", handlers.GetWorkflows)
	w.Post("/", handlers.CreateWorkflow)
	w.Get("/:id", handlers.GetWorkflow)
	w.Put("/:id", handlers.UpdateWorkflow)
	w.Patch("/:id", handlers.UpdateWorkflow)
	w.Delete("/:id", handlers.DeleteWorkflow)

	// Step endpoints:
	v.Post("/steps/bulk-create", handlers.BulkCreateSteps)
	v.Post("/steps/bulk-update", handlers.BulkUpdateSteps)
	v.Delete("/steps/:id", handlers.DeleteStep)

	s := app.Group("/builder/sessions")
	s.Post("/", builderHandlers.CreateSession)
	s.Get("/:sid", builderHandlers.GetSession)
	s.Delete("/:sid", builderHandlers.CloseSession)
	s.Post("/:sid/nodes", builderHandlers.AddNode)
	s.Patch("/:sid/nodes/:nodeId", builderHandlers.UpdateNode)
	s.Delete("/:sid/nodes/:nodeId", builderHandlers.DeleteNode)
	s.Post("/:sid/edges", builderHandlers.Connect)
	s.Delete("/:sid/edges/:edgeId", builderHandlers.Disconnect)
	s.Put("/:sid/settings", builderHandlers.UpdateSettings)
	s.Post("/:sid/settings/save", builderHandlers.SaveSettings)
	s.Post("/:sid/layout", builderHandlers.Layout)
	s.Put("/:sid/root", builderHandlers.SetRoot)
	s.Get("/:sid/changes", builderHandlers.GetChanges)
	s.Post("/:sid/save", builderHandlers.Save)
	s.Get("/:sid/datasources", builderHandlers.GetDatasources)

	app.Get("/health", handlers.HealthCheck)

	return app
}

func (a *API) observeRequests(c fiber.Ctx) error {
	err := c.Next()

	a.metrics.ObserveRequest(c.Method(), c.Route().Path, c.Response().StatusCode())

	return err
}

func (a *API) Start(port int) error {
	app := a.App()

	err := app.Listen(":" + strconv.Itoa(port))

	return err
}
