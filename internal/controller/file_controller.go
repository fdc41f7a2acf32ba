package controller

import (
	"ai-assistant-client/internal/pkg/serverutils"
	"ai-assistant-client/internal/service"

	"github.com/gofiber/fiber/v2"
)

type IFileController interface {
	RegisterRoutes(r fiber.Router)
	Upload(ctx *fiber.Ctx) error
	Delete(ctx *fiber.Ctx) error
}

type fileController struct {
	service service.IFileService
	creds   serverutils.Credentials
}

func NewFileController(service service.IFileService, creds serverutils.Credentials) IFileController {
	return &fileController{service: service, creds: creds}
}

func (c *fileController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/v1/files")
	h.Use(serverutils.JwtMiddleware(c.creds))
	h.Post("/", c.Upload)
	h.Delete("/:id", c.Delete)
}

func (c *fileController) Upload(ctx *fiber.Ctx) error {
	file, err := uploadedFile(ctx, fileField)
	if err != nil {
		return err
	}
	res, err := c.service.Upload(ctx.Context(), file)
	if err != nil {
		return err
	}
	return ctx.JSON(res)
}

func (c *fileController) Delete(ctx *fiber.Ctx) error {
	if err := c.service.Delete(ctx.Context(), ctx.Params("id")); err != nil {
		return err
	}
	return ctx.SendStatus(fiber.StatusNoContent)
}
