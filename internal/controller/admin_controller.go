package controller

import (
	"essay-coach-be/internal/dto"
	"essay-coach-be/internal/pkg/serverutils"
	"essay-coach-be/internal/service"

	"github.com/gofiber/fiber/v2"
)

type IAdminController interface {
	RegisterRoutes(r fiber.Router)
	GetDashboardStats(ctx *fiber.Ctx) error
	GetAllUsers(ctx *fiber.Ctx) error
	CreateUser(ctx *fiber.Ctx) error
	GetUserConversations(ctx *fiber.Ctx) error
	DeleteUserConversations(ctx *fiber.Ctx) error
	GetTranscript(ctx *fiber.Ctx) error
	ExportConversation(ctx *fiber.Ctx) error
	DeleteConversation(ctx *fiber.Ctx) error
	BulkDeleteConversations(ctx *fiber.Ctx) error
}

type adminController struct {
	service service.IAdminService
	authMw  fiber.Handler
}

func NewAdminController(service service.IAdminService, authMw fiber.Handler) IAdminController {
	return &adminController{service: service, authMw: authMw}
}

func (c *adminController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/admin", c.authMw, serverutils.AdminOnly)

	h.Get("/dashboard", c.GetDashboardStats)

	h.Get("/users", c.GetAllUsers)
	h.Post("/users", c.CreateUser)
	h.Get("/users/:id/conversations", c.GetUserConversations)
	h.Delete("/users/:id/conversations", c.DeleteUserConversations)

	h.Get("/conversations/:id/messages", c.GetTranscript)
	h.Get("/conversations/:id/export", c.ExportConversation)
	h.Delete("/conversations/:id", c.DeleteConversation)
	h.Post("/conversations/delete", c.BulkDeleteConversations)
}

func (c *adminController) GetDashboardStats(ctx *fiber.Ctx) error {
	res, err := c.service.GetDashboardStats(ctx.Context())
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Dashboard stats", res))
}

func (c *adminController) GetAllUsers(ctx *fiber.Ctx) error {
	res, err := c.service.GetAllUsers(ctx.Context())
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Users", res))
}

func (c *adminController) CreateUser(ctx *fiber.Ctx) error {
	var req dto.AdminCreateUserRequest
	if err := ctx.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
	}
	if err := serverutils.ValidateRequest(&req); err != nil {
		return err
	}

	res, err := c.service.CreateUser(ctx.Context(), &req)
	if err != nil {
		return err
	}
	return ctx.Status(fiber.StatusCreated).JSON(serverutils.SuccessResponse("User created", res))
}

func (c *adminController) GetUserConversations(ctx *fiber.Ctx) error {
	userId, err := uuidParam(ctx, "id")
	if err != nil {
		return err
	}
	res, err := c.service.GetUserConversations(ctx.Context(), userId)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("User conversations", res))
}

func (c *adminController) DeleteUserConversations(ctx *fiber.Ctx) error {
	userId, err := uuidParam(ctx, "id")
	if err != nil {
		return err
	}
	n, err := c.service.DeleteUserConversations(ctx.Context(), userId)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("User conversations deleted", dto.DeleteResultResponse{Deleted: n}))
}

func (c *adminController) GetTranscript(ctx *fiber.Ctx) error {
	id, err := uuidParam(ctx, "id")
	if err != nil {
		return err
	}
	res, err := c.service.GetTranscript(ctx.Context(), id)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Conversation transcript", res))
}

func (c *adminController) ExportConversation(ctx *fiber.Ctx) error {
	id, err := uuidParam(ctx, "id")
	if err != nil {
		return err
	}
	name, data, err := c.service.ExportConversation(ctx.Context(), id)
	if err != nil {
		return err
	}
	ctx.Set(fiber.HeaderContentType, "text/csv; charset=utf-8")
	ctx.Attachment(name)
	return ctx.Send(data)
}

func (c *adminController) DeleteConversation(ctx *fiber.Ctx) error {
	id, err := uuidParam(ctx, "id")
	if err != nil {
		return err
	}
	if err := c.service.DeleteConversation(ctx.Context(), id); err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Conversation deleted", dto.DeleteResultResponse{Deleted: 1}))
}

func (c *adminController) BulkDeleteConversations(ctx *fiber.Ctx) error {
	var req dto.BulkDeleteConversationsRequest
	if err := ctx.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
	}
	if err := serverutils.ValidateRequest(&req); err != nil {
		return err
	}
	n, err := c.service.DeleteConversations(ctx.Context(), req.Ids)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Conversations deleted", dto.DeleteResultResponse{Deleted: n}))
}
