package serverutils

import (
	"errors"

	"essay-coach-be/internal/pkg/logger"
	"essay-coach-be/pkg/apperror"

	"github.com/gofiber/fiber/v2"
)

const (
	MsgAuthentication = "Invalid email or password"
	MsgNotFound       = "Conversation not found"
	MsgModel          = "The assistant is unavailable right now, please resubmit your message"
	MsgStore          = "Your message could not be saved, please try again"
	MsgTurnInProgress = "Please wait for the previous reply"
	MsgTurnAbandoned  = "The conversation changed before the reply arrived, please resubmit your message"
	MsgForbidden      = "Access denied"
	MsgRateLimited    = "Too many requests, please slow down"
	MsgInternal       = "Something went wrong, please try again"
)

// ErrorHandler is the single place where errors become user-visible notices.
// Only validation details are echoed; everything else gets a fixed message.
func ErrorHandler(log logger.ILogger) fiber.ErrorHandler {
	return func(ctx *fiber.Ctx, err error) error {
		status, message := classify(err)

		details := map[string]interface{}{
			"method": ctx.Method(),
			"path":   ctx.Path(),
			"status": status,
			"error":  err.Error(),
		}
		if status >= fiber.StatusInternalServerError {
			log.Error("HTTP", "Request failed", details)
		} else {
			log.Warn("HTTP", "Request rejected", details)
		}

		return ctx.Status(status).JSON(ErrorResponse(status, message))
	}
}

func classify(err error) (int, string) {
	var fiberErr *fiber.Error
	if errors.As(err, &fiberErr) {
		return fiberErr.Code, fiberErr.Message
	}

	switch apperror.KindOf(err) {
	case apperror.ErrValidation:
		var appErr *apperror.Error
		if errors.As(err, &appErr) && appErr.Err != nil {
			return fiber.StatusBadRequest, appErr.Err.Error()
		}
		return fiber.StatusBadRequest, "Invalid request"
	case apperror.ErrAuthentication:
		return fiber.StatusUnauthorized, MsgAuthentication
	case apperror.ErrForbidden:
		return fiber.StatusForbidden, MsgForbidden
	case apperror.ErrNotFound:
		return fiber.StatusNotFound, MsgNotFound
	case apperror.ErrTurnInProgress:
		return fiber.StatusConflict, MsgTurnInProgress
	case apperror.ErrTurnAbandoned:
		return fiber.StatusConflict, MsgTurnAbandoned
	case apperror.ErrRateLimited:
		return fiber.StatusTooManyRequests, MsgRateLimited
	case apperror.ErrModel:
		return fiber.StatusServiceUnavailable, MsgModel
	case apperror.ErrStore:
		return fiber.StatusInternalServerError, MsgStore
	}
	return fiber.StatusInternalServerError, MsgInternal
}
