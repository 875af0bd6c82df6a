package controller

import (
	"essay-coach-be/internal/service"
	"essay-coach-be/pkg/apperror"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// principalFrom reads the caller set by serverutils.JwtMiddleware.
func principalFrom(ctx *fiber.Ctx) (service.Principal, error) {
	userIdStr, _ := ctx.Locals("user_id").(string)
	userId, err := uuid.Parse(userIdStr)
	if err != nil {
		return service.Principal{}, apperror.Authentication("read principal")
	}
	email, _ := ctx.Locals("email").(string)
	role, _ := ctx.Locals("role").(string)
	return service.Principal{UserID: userId, Email: email, Role: role}, nil
}

func uuidParam(ctx *fiber.Ctx, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(ctx.Params(name))
	if err != nil {
		return uuid.Nil, fiber.NewError(fiber.StatusBadRequest, "Invalid "+name)
	}
	return id, nil
}
