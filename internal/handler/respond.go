package handler

import (
	"errors"

	"go-farm-market/internal/apperr"
	"go-farm-market/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// fail maps a service error onto its HTTP status and user-facing message.
func fail(c *fiber.Ctx, err error) error {
	return c.Status(apperr.HTTPStatus(err)).JSON(fiber.Map{"error": userMessage(err)})
}

func userMessage(err error) string {
	var ve *apperr.ValidationError
	var ise *apperr.InsufficientStockError
	switch {
	case errors.As(err, &ise):
		return ise.Error()
	case errors.As(err, &ve):
		return ve.Message
	case errors.Is(err, apperr.ErrNotFound):
		return "Product not found."
	case errors.Is(err, apperr.ErrUserNotFound):
		return "User not found."
	case errors.Is(err, apperr.ErrNotOwner):
		return "Forbidden: You do not own this product."
	case errors.Is(err, apperr.ErrOnlyUsersPurchase):
		return "Forbidden: Only users can purchase products."
	case errors.Is(err, apperr.ErrOnlyVillagers):
		return "Forbidden: Only villagers can view low stock products."
	case errors.Is(err, apperr.ErrForbidden):
		return "Forbidden."
	case errors.Is(err, apperr.ErrInvalidCredentials):
		return "Invalid credentials."
	case errors.Is(err, apperr.ErrInvalidToken):
		return "Invalid or expired token."
	default:
		return "Internal Server Error"
	}
}

// caller rebuilds the authenticated identity placed in context by RequireAuth.
func caller(c *fiber.Ctx) (service.Caller, error) {
	idStr, _ := c.Locals("user_id").(string)
	roleStr, _ := c.Locals("user_role").(string)

	id, err := uuid.Parse(idStr)
	if err != nil {
		return service.Caller{}, apperr.ErrInvalidToken
	}
	return service.Caller{ID: id, Role: roleFromString(roleStr)}, nil
}
