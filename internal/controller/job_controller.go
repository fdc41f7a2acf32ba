package controller

import (
	"ai-assistant-client/internal/dto"
	"ai-assistant-client/internal/pkg/serverutils"
	"ai-assistant-client/internal/service"

	"github.com/gofiber/fiber/v2"
)

type IJobController interface {
	RegisterRoutes(r fiber.Router)
	GetAll(ctx *fiber.Ctx) error
	Show(ctx *fiber.Ctx) error
	UploadInfoBlob(ctx *fiber.Ctx) error
}

type jobController struct {
	service service.IJobService
	creds   serverutils.Credentials
}

func NewJobController(service service.IJobService, creds serverutils.Credentials) IJobController {
	return &jobController{service: service, creds: creds}
}

func (c *jobController) RegisterRoutes(r fiber.Router) {
	jobs := r.Group("/v1/jobs")
	jobs.Use(serverutils.JwtMiddleware(c.creds))
	jobs.Get("/", c.GetAll)
	jobs.Get("/:id", c.Show)

	groups := r.Group("/v1/groups")
	groups.Use(serverutils.JwtMiddleware(c.creds))
	groups.Post("/:id/info-blobs/upload", c.UploadInfoBlob)
}

func (c *jobController) GetAll(ctx *fiber.Ctx) error {
	var q dto.ListJobsQuery
	if err := ctx.QueryParser(&q); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	return ctx.JSON(paginated(c.service.List(ctx.Context(), q.IncludeCompleted)))
}

func (c *jobController) Show(ctx *fiber.Ctx) error {
	res, err := c.service.Get(ctx.Context(), ctx.Params("id"))
	if err != nil {
		return err
	}
	return ctx.JSON(res)
}

func (c *jobController) UploadInfoBlob(ctx *fiber.Ctx) error {
	file, err := uploadedFile(ctx, infoBlobField)
	if err != nil {
		return err
	}
	res, err := c.service.UploadInfoBlob(ctx.Context(), ctx.Params("id"), file)
	if err != nil {
		return err
	}
	return ctx.Status(fiber.StatusAccepted).JSON(res)
}
