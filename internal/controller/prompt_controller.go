package controller

import (
	"ai-assistant-client/internal/dto"
	"ai-assistant-client/internal/pkg/serverutils"
	"ai-assistant-client/internal/service"

	"github.com/gofiber/fiber/v2"
)

type IPromptController interface {
	RegisterRoutes(r fiber.Router)
	Show(ctx *fiber.Ctx) error
	Update(ctx *fiber.Ctx) error
	Delete(ctx *fiber.Ctx) error
}

type promptController struct {
	service service.IPromptService
	creds   serverutils.Credentials
}

func NewPromptController(service service.IPromptService, creds serverutils.Credentials) IPromptController {
	return &promptController{service: service, creds: creds}
}

func (c *promptController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/v1/prompts")
	h.Use(serverutils.JwtMiddleware(c.creds))
	h.Get("/:id", c.Show)
	h.Patch("/:id", c.Update)
	h.Delete("/:id", c.Delete)
}

func (c *promptController) Show(ctx *fiber.Ctx) error {
	res, err := c.service.Get(ctx.Context(), ctx.Params("id"))
	if err != nil {
		return err
	}
	return ctx.JSON(res)
}

func (c *promptController) Update(ctx *fiber.Ctx) error {
	var req dto.UpdatePromptRequest
	if err := ctx.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := c.service.UpdateDescription(ctx.Context(), ctx.Params("id"), req.Description)
	if err != nil {
		return err
	}
	return ctx.JSON(res)
}

func (c *promptController) Delete(ctx *fiber.Ctx) error {
	if err := c.service.Delete(ctx.Context(), ctx.Params("id")); err != nil {
		return err
	}
	return ctx.SendStatus(fiber.StatusNoContent)
}
