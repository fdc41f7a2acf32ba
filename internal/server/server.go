package server

import (
	"log"

	"ai-assistant-client/internal/bootstrap"
	"ai-assistant-client/internal/config"
	"ai-assistant-client/internal/pkg/serverutils"

	"github.com/gofiber/contrib/otelfiber"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
)

type Server struct {
	app       *fiber.App
	cfg       *config.Config
	container *bootstrap.Container
}

func New(cfg *config.Config, container *bootstrap.Container) *Server {
	app := fiber.New(fiber.Config{
		BodyLimit:             50 * 1024 * 1024, // 50MB
		DisableStartupMessage: true,
	})

	app.Use(cors.New(cors.Config{
		AllowOrigins:  cfg.DevServer.CorsAllowedOrigins,
		AllowHeaders:  "Origin, Content-Type, Accept, Authorization, api-key",
		AllowMethods:  "GET, POST, PUT, PATCH, DELETE, OPTIONS",
		ExposeHeaders: "Content-Length, Content-Type",
	}))

	// OpenTelemetry tracing middleware (traces all HTTP requests)
	app.Use(otelfiber.Middleware())

	app.Use(serverutils.ErrorHandlerMiddleware())

	registerRoutes(app, container)

	return &Server{
		app:       app,
		cfg:       cfg,
		container: container,
	}
}

func (s *Server) GetApp() *fiber.App {
	return s.app
}

func (s *Server) Run() error {
	log.Printf("Dev backend is running on http://localhost:%s", s.cfg.DevServer.Port)
	return s.app.Listen(":" + s.cfg.DevServer.Port)
}

func (s *Server) Shutdown() error {
	return s.app.Shutdown()
}

func registerRoutes(app *fiber.App, c *bootstrap.Container) {
	api := app.Group("/api")

	c.AssistantController.RegisterRoutes(api)
	c.FileController.RegisterRoutes(api)
	c.JobController.RegisterRoutes(api)
	c.SpaceController.RegisterRoutes(api)
	c.PromptController.RegisterRoutes(api)
	c.TemplateController.RegisterRoutes(api)

	c.SocketController.RegisterRoutes(api)
}
