package controller

import (
	"context"

	"essay-coach-be/internal/dto"
	"essay-coach-be/internal/pkg/serverutils"
	"essay-coach-be/internal/service"

	"github.com/gofiber/fiber/v2"
)

type IChatController interface {
	RegisterRoutes(r fiber.Router)
	GetSession(ctx *fiber.Ctx) error
	NewSession(ctx *fiber.Ctx) error
	SendMessage(ctx *fiber.Ctx) error
	ListConversations(ctx *fiber.Ctx) error
	NextPage(ctx *fiber.Ctx) error
	PreviousPage(ctx *fiber.Ctx) error
	LatestPage(ctx *fiber.Ctx) error
	LoadConversation(ctx *fiber.Ctx) error
}

type chatController struct {
	service   service.IChatService
	authMw    fiber.Handler
	rateLimit fiber.Handler
}

func NewChatController(service service.IChatService, authMw, rateLimit fiber.Handler) IChatController {
	return &chatController{service: service, authMw: authMw, rateLimit: rateLimit}
}

func (c *chatController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/chat", c.authMw)
	h.Get("/session", c.GetSession)
	h.Post("/session/new", c.NewSession)
	h.Post("/messages", c.rateLimit, c.SendMessage)

	h.Get("/conversations", c.ListConversations)
	h.Post("/conversations/next", c.NextPage)
	h.Post("/conversations/previous", c.PreviousPage)
	h.Post("/conversations/latest", c.LatestPage)
	h.Post("/conversations/:id/load", c.LoadConversation)
}

func (c *chatController) GetSession(ctx *fiber.Ctx) error {
	p, err := principalFrom(ctx)
	if err != nil {
		return err
	}
	res, err := c.service.GetSession(ctx.Context(), p)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Session", res))
}

func (c *chatController) NewSession(ctx *fiber.Ctx) error {
	p, err := principalFrom(ctx)
	if err != nil {
		return err
	}
	res, err := c.service.NewSession(ctx.Context(), p)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("New session started", res))
}

func (c *chatController) SendMessage(ctx *fiber.Ctx) error {
	p, err := principalFrom(ctx)
	if err != nil {
		return err
	}

	var req dto.SendMessageRequest
	if err := ctx.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
	}
	if err := serverutils.ValidateRequest(&req); err != nil {
		return err
	}

	res, err := c.service.SendMessage(ctx.UserContext(), p, &req)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Message sent", res))
}

func (c *chatController) listing(ctx *fiber.Ctx, message string, fn func(context.Context, service.Principal) (*dto.ConversationListResponse, error)) error {
	p, err := principalFrom(ctx)
	if err != nil {
		return err
	}
	res, err := fn(ctx.Context(), p)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse(message, res))
}

func (c *chatController) ListConversations(ctx *fiber.Ctx) error {
	return c.listing(ctx, "Conversations", c.service.ListConversations)
}

func (c *chatController) NextPage(ctx *fiber.Ctx) error {
	return c.listing(ctx, "Conversations", c.service.NextPage)
}

func (c *chatController) PreviousPage(ctx *fiber.Ctx) error {
	return c.listing(ctx, "Conversations", c.service.PreviousPage)
}

func (c *chatController) LatestPage(ctx *fiber.Ctx) error {
	return c.listing(ctx, "Conversations", c.service.LatestPage)
}

func (c *chatController) LoadConversation(ctx *fiber.Ctx) error {
	p, err := principalFrom(ctx)
	if err != nil {
		return err
	}
	id, err := uuidParam(ctx, "id")
	if err != nil {
		return err
	}
	res, err := c.service.LoadConversation(ctx.Context(), p, id)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Conversation loaded", res))
}
