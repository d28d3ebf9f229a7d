package middleware

import (
	"strings"

	"go-farm-market/internal/model"
	"go-farm-market/pkg/jwt"

	"github.com/gofiber/fiber/v2"
)

// RequireAuth validates the bearer token and sets the caller identity in the
// request context for downstream handlers.
func RequireAuth() fiber.Handler {
	return func(c *fiber.Ctx) error {
		authHeader := c.Get("Authorization")
		if authHeader == "" {
			return c.Status(401).JSON(fiber.Map{"error": "Missing authorization token"})
		}

		// Extract token from "Bearer <token>"
		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
			return c.Status(401).JSON(fiber.Map{"error": "Invalid authorization format. Use: Bearer <token>"})
		}

		claims, err := jwt.ValidateToken(parts[1])
		if err != nil {
			return c.Status(401).JSON(fiber.Map{"error": "Invalid or expired token"})
		}

		c.Locals("user_id", claims.UserID.String())
		c.Locals("user_email", claims.Email)
		c.Locals("user_role", claims.Role)

		return c.Next()
	}
}

// RequireRole gates a route to callers holding the given role. The service
// layer re-checks role/ownership rules; this keeps obvious mismatches out of
// the engine entirely.
func RequireRole(role model.Role) fiber.Handler {
	return func(c *fiber.Ctx) error {
		got, ok := c.Locals("user_role").(string)
		if !ok {
			return c.Status(403).JSON(fiber.Map{"error": "No role found"})
		}
		if got != string(role) {
			switch role {
			case model.RoleUser:
				return c.Status(403).JSON(fiber.Map{"error": "Forbidden: Only users can purchase products."})
			case model.RoleVillager:
				return c.Status(403).JSON(fiber.Map{"error": "Forbidden: Villager role required."})
			}
			return c.Status(403).JSON(fiber.Map{"error": "Forbidden"})
		}
		return c.Next()
	}
}
