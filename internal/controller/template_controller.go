package controller

import (
	"ai-assistant-client/internal/pkg/serverutils"
	"ai-assistant-client/internal/service"
	"ai-assistant-client/pkg/api"

	"github.com/gofiber/fiber/v2"
)

type ITemplateController interface {
	RegisterRoutes(r fiber.Router)
	Templates(ctx *fiber.Ctx) error
	Limits(ctx *fiber.Ctx) error
}

type templateController struct {
	service service.ITemplateService
	creds   serverutils.Credentials
}

func NewTemplateController(service service.ITemplateService, creds serverutils.Credentials) ITemplateController {
	return &templateController{service: service, creds: creds}
}

func (c *templateController) RegisterRoutes(r fiber.Router) {
	templates := r.Group("/v1/templates")
	templates.Use(serverutils.JwtMiddleware(c.creds))
	templates.Get("/:kind", c.Templates)

	limits := r.Group("/v1/limits")
	limits.Use(serverutils.JwtMiddleware(c.creds))
	limits.Get("/", c.Limits)
}

func (c *templateController) Templates(ctx *fiber.Ctx) error {
	kind := api.TemplateKind(ctx.Params("kind"))
	if kind != api.TemplateAssistants && kind != api.TemplateApps {
		return fiber.NewError(fiber.StatusNotFound, "Unknown template kind "+string(kind))
	}
	return ctx.JSON(paginated(c.service.List(ctx.Context(), kind)))
}

func (c *templateController) Limits(ctx *fiber.Ctx) error {
	return ctx.JSON(c.service.Limits(ctx.Context()))
}
