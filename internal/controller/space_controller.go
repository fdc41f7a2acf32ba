package controller

import (
	"ai-assistant-client/internal/dto"
	"ai-assistant-client/internal/pkg/serverutils"
	"ai-assistant-client/internal/service"

	"github.com/gofiber/fiber/v2"
)

type ISpaceController interface {
	RegisterRoutes(r fiber.Router)
	GetAll(ctx *fiber.Ctx) error
	Create(ctx *fiber.Ctx) error
	Personal(ctx *fiber.Ctx) error
	Show(ctx *fiber.Ctx) error
	Update(ctx *fiber.Ctx) error
	Delete(ctx *fiber.Ctx) error
	Applications(ctx *fiber.Ctx) error
	Knowledge(ctx *fiber.Ctx) error
	CreateAssistant(ctx *fiber.Ctx) error
	CreateApp(ctx *fiber.Ctx) error
}

type spaceController struct {
	service service.ISpaceService
	creds   serverutils.Credentials
}

func NewSpaceController(service service.ISpaceService, creds serverutils.Credentials) ISpaceController {
	return &spaceController{service: service, creds: creds}
}

func (c *spaceController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/v1/spaces")
	h.Use(serverutils.JwtMiddleware(c.creds))
	h.Get("/", c.GetAll)
	h.Post("/", c.Create)
	h.Get("/type/personal", c.Personal)
	h.Get("/:id", c.Show)
	h.Patch("/:id", c.Update)
	h.Delete("/:id", c.Delete)
	h.Get("/:id/applications", c.Applications)
	h.Get("/:id/knowledge", c.Knowledge)
	h.Post("/:id/applications/assistants", c.CreateAssistant)
	h.Post("/:id/applications/apps", c.CreateApp)
}

func (c *spaceController) GetAll(ctx *fiber.Ctx) error {
	return ctx.JSON(paginated(c.service.List(ctx.Context())))
}

func (c *spaceController) Create(ctx *fiber.Ctx) error {
	var req dto.CreateSpaceRequest
	if err := ctx.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := c.service.Create(ctx.Context(), &req)
	if err != nil {
		return err
	}
	return ctx.Status(fiber.StatusCreated).JSON(res)
}

func (c *spaceController) Personal(ctx *fiber.Ctx) error {
	res, err := c.service.GetPersonal(ctx.Context())
	if err != nil {
		return err
	}
	return ctx.JSON(res)
}

func (c *spaceController) Show(ctx *fiber.Ctx) error {
	res, err := c.service.Get(ctx.Context(), ctx.Params("id"))
	if err != nil {
		return err
	}
	return ctx.JSON(res)
}

func (c *spaceController) Update(ctx *fiber.Ctx) error {
	var req dto.UpdateSpaceRequest
	if err := ctx.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := c.service.Update(ctx.Context(), ctx.Params("id"), &req)
	if err != nil {
		return err
	}
	return ctx.JSON(res)
}

func (c *spaceController) Delete(ctx *fiber.Ctx) error {
	if err := c.service.Delete(ctx.Context(), ctx.Params("id")); err != nil {
		return err
	}
	return ctx.SendStatus(fiber.StatusNoContent)
}

func (c *spaceController) Applications(ctx *fiber.Ctx) error {
	res, err := c.service.Applications(ctx.Context(), ctx.Params("id"))
	if err != nil {
		return err
	}
	return ctx.JSON(res)
}

func (c *spaceController) Knowledge(ctx *fiber.Ctx) error {
	res, err := c.service.Knowledge(ctx.Context(), ctx.Params("id"))
	if err != nil {
		return err
	}
	return ctx.JSON(res)
}

func (c *spaceController) CreateAssistant(ctx *fiber.Ctx) error {
	var req dto.CreateFromTemplateRequest
	if err := ctx.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := c.service.CreateAssistant(ctx.Context(), ctx.Params("id"), &req)
	if err != nil {
		return err
	}
	return ctx.Status(fiber.StatusCreated).JSON(res)
}

func (c *spaceController) CreateApp(ctx *fiber.Ctx) error {
	var req dto.CreateFromTemplateRequest
	if err := ctx.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := c.service.CreateApp(ctx.Context(), ctx.Params("id"), &req)
	if err != nil {
		return err
	}
	return ctx.Status(fiber.StatusCreated).JSON(res)
}
