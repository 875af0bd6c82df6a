package controller

import (
	"essay-coach-be/internal/dto"
	"essay-coach-be/internal/pkg/serverutils"
	"essay-coach-be/internal/service"

	"github.com/gofiber/fiber/v2"
)

type IAuthController interface {
	RegisterRoutes(r fiber.Router)
	Login(ctx *fiber.Ctx) error
	Logout(ctx *fiber.Ctx) error
}

type authController struct {
	service service.IAuthService
	authMw  fiber.Handler
}

func NewAuthController(service service.IAuthService, authMw fiber.Handler) IAuthController {
	return &authController{service: service, authMw: authMw}
}

func (c *authController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/auth")
	h.Post("/login", c.Login)
	h.Post("/logout", c.authMw, c.Logout)
}

func (c *authController) Login(ctx *fiber.Ctx) error {
	var req dto.LoginRequest
	if err := ctx.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
	}
	if err := serverutils.ValidateRequest(&req); err != nil {
		return err
	}

	res, err := c.service.Login(ctx.Context(), &req)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Login successful", res))
}

func (c *authController) Logout(ctx *fiber.Ctx) error {
	p, err := principalFrom(ctx)
	if err != nil {
		return err
	}
	if err := c.service.Logout(ctx.Context(), p); err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse[any]("Logged out", nil))
}
