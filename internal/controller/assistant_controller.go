package controller

import (
	"bufio"
	"encoding/json"
	"fmt"
	"time"

	"ai-assistant-client/internal/dto"
	"ai-assistant-client/internal/pkg/logger"
	"ai-assistant-client/internal/pkg/serverutils"
	"ai-assistant-client/internal/service"
	"ai-assistant-client/pkg/api"

	"github.com/gofiber/fiber/v2"
)

type IAssistantController interface {
	RegisterRoutes(r fiber.Router)
	GetAll(ctx *fiber.Ctx) error
	Show(ctx *fiber.Ctx) error
	Update(ctx *fiber.Ctx) error
	Delete(ctx *fiber.Ctx) error
	Publish(ctx *fiber.Ctx) error
	Prompts(ctx *fiber.Ctx) error
	Ask(ctx *fiber.Ctx) error
	Sessions(ctx *fiber.Ctx) error
	ShowSession(ctx *fiber.Ctx) error
	DeleteSession(ctx *fiber.Ctx) error
}

type assistantController struct {
	assistants service.IAssistantService
	chat       service.IChatService
	creds      serverutils.Credentials
	chunkDelay time.Duration
	logger     logger.ILogger
}

func NewAssistantController(
	assistants service.IAssistantService,
	chat service.IChatService,
	creds serverutils.Credentials,
	chunkDelay time.Duration,
	log logger.ILogger,
) IAssistantController {
	return &assistantController{
		assistants: assistants,
		chat:       chat,
		creds:      creds,
		chunkDelay: chunkDelay,
		logger:     logger.OrNop(log),
	}
}

func (c *assistantController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/v1/assistants")
	h.Use(serverutils.JwtMiddleware(c.creds))
	h.Get("/", c.GetAll)
	h.Get("/:id", c.Show)
	h.Post("/:id", c.Update)
	h.Delete("/:id", c.Delete)
	h.Post("/:id/publish", c.Publish)
	h.Get("/:id/prompts", c.Prompts)
	h.Get("/:id/sessions", c.Sessions)
	h.Post("/:id/sessions", c.Ask)
	h.Get("/:id/sessions/:session_id", c.ShowSession)
	h.Post("/:id/sessions/:session_id", c.Ask)
	h.Delete("/:id/sessions/:session_id", c.DeleteSession)
}

func (c *assistantController) GetAll(ctx *fiber.Ctx) error {
	return ctx.JSON(paginated(c.assistants.List(ctx.Context())))
}

func (c *assistantController) Show(ctx *fiber.Ctx) error {
	res, err := c.assistants.Get(ctx.Context(), ctx.Params("id"))
	if err != nil {
		return err
	}
	return ctx.JSON(res)
}

func (c *assistantController) Update(ctx *fiber.Ctx) error {
	var req dto.UpdateAssistantRequest
	if err := ctx.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := c.assistants.Update(ctx.Context(), ctx.Params("id"), &req)
	if err != nil {
		return err
	}
	return ctx.JSON(res)
}

func (c *assistantController) Delete(ctx *fiber.Ctx) error {
	if err := c.assistants.Delete(ctx.Context(), ctx.Params("id")); err != nil {
		return err
	}
	return ctx.SendStatus(fiber.StatusNoContent)
}

func (c *assistantController) Publish(ctx *fiber.Ctx) error {
	res, err := c.assistants.Publish(ctx.Context(), ctx.Params("id"), ctx.QueryBool("published", true))
	if err != nil {
		return err
	}
	return ctx.JSON(res)
}

func (c *assistantController) Prompts(ctx *fiber.Ctx) error {
	res, err := c.assistants.ListPrompts(ctx.Context(), ctx.Params("id"))
	if err != nil {
		return err
	}
	return ctx.JSON(paginated(res))
}

// Ask answers in a new session, or in :session_id. With stream set the
// answer is sent as server-sent events, one per chunk, followed by an event
// carrying the stored message without answer text.
func (c *assistantController) Ask(ctx *fiber.Ctx) error {
	var req dto.AskRequest
	if err := ctx.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	answer, err := c.chat.Ask(ctx.Context(), ctx.Params("id"), ctx.Params("session_id"), &req)
	if err != nil {
		return err
	}
	msg := answer.Message

	if !req.Stream {
		return ctx.JSON(api.AssistantResponse{
			SessionID:  answer.SessionID,
			ID:         msg.ID,
			Question:   msg.Question,
			Answer:     msg.Answer,
			References: msg.References,
			Files:      msg.Files,
			CreatedAt:  msg.CreatedAt,
		})
	}

	ctx.Set(fiber.HeaderContentType, "text/event-stream")
	ctx.Set(fiber.HeaderCacheControl, "no-cache")
	ctx.Set(fiber.HeaderConnection, "keep-alive")

	delay := c.chunkDelay
	ctx.Context().SetBodyStreamWriter(func(w *bufio.Writer) {
		for _, chunk := range answer.Chunks {
			if err := writeEvent(w, api.AssistantResponse{
				SessionID:  answer.SessionID,
				Answer:     chunk,
				References: msg.References,
				Files:      []api.File{},
			}); err != nil {
				c.logger.Info("AssistantController", "Client left during stream", map[string]interface{}{"session_id": answer.SessionID})
				return
			}
			if delay > 0 {
				time.Sleep(delay)
			}
		}
		_ = writeEvent(w, api.AssistantResponse{
			SessionID:  answer.SessionID,
			ID:         msg.ID,
			Question:   msg.Question,
			References: msg.References,
			Files:      msg.Files,
			CreatedAt:  msg.CreatedAt,
		})
	})
	return nil
}

func writeEvent(w *bufio.Writer, data any) error {
	raw, err := json.Marshal(data)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "data: %s\n\n", raw); err != nil {
		return err
	}
	return w.Flush()
}

func (c *assistantController) Sessions(ctx *fiber.Ctx) error {
	var q dto.ListSessionsQuery
	if err := ctx.QueryParser(&q); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	if err := serverutils.ValidateRequest(q); err != nil {
		return err
	}

	res, err := c.chat.ListSessions(ctx.Context(), ctx.Params("id"), q)
	if err != nil {
		return err
	}
	return ctx.JSON(res)
}

func (c *assistantController) ShowSession(ctx *fiber.Ctx) error {
	res, err := c.chat.GetSession(ctx.Context(), ctx.Params("id"), ctx.Params("session_id"))
	if err != nil {
		return err
	}
	return ctx.JSON(res)
}

func (c *assistantController) DeleteSession(ctx *fiber.Ctx) error {
	if err := c.chat.DeleteSession(ctx.Context(), ctx.Params("id"), ctx.Params("session_id")); err != nil {
		return err
	}
	return ctx.SendStatus(fiber.StatusNoContent)
}

// paginated wraps a full list in the paginated envelope.
func paginated[T any](items []T) api.Paginated[T] {
	if items == nil {
		items = []T{}
	}
	return api.Paginated[T]{Items: items, Count: len(items), TotalCount: len(items)}
}
