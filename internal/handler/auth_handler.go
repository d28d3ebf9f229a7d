package handler

import (
	"time"

	"go-farm-market/internal/service"

	"github.com/gofiber/fiber/v2"
)

const refreshCookieName = "refreshToken"

type AuthHandler struct {
	service service.AuthService
}

func NewAuthHandler(s service.AuthService) *AuthHandler {
	return &AuthHandler{service: s}
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *AuthHandler) Register(c *fiber.Ctx) error {
	var req service.RegisterRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "Invalid JSON"})
	}

	user, err := h.service.Register(&req)
	if err != nil {
		return fail(c, err)
	}
	return c.Status(201).JSON(fiber.Map{
		"message": "User registered successfully.",
		"id":      user.ID,
	})
}

func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req loginRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "Invalid JSON"})
	}

	result, err := h.service.Login(req.Email, req.Password)
	if err != nil {
		return fail(c, err)
	}

	setRefreshCookie(c, result.RefreshToken)
	return c.JSON(fiber.Map{
		"accessToken": result.AccessToken,
		"user":        result.User,
	})
}

// Refresh rotates the refresh token from the httpOnly cookie and returns a
// fresh access token.
func (h *AuthHandler) Refresh(c *fiber.Ctx) error {
	token := c.Cookies(refreshCookieName)
	if token == "" {
		return c.Status(401).JSON(fiber.Map{"error": "Missing refresh token"})
	}

	result, err := h.service.Refresh(token)
	if err != nil {
		return fail(c, err)
	}

	setRefreshCookie(c, result.RefreshToken)
	return c.JSON(fiber.Map{
		"accessToken": result.AccessToken,
		"user":        result.User,
	})
}

func (h *AuthHandler) Logout(c *fiber.Ctx) error {
	if token := c.Cookies(refreshCookieName); token != "" {
		// A broken cookie still clears; revocation is best-effort here.
		_ = h.service.Logout(token)
	}
	clearRefreshCookie(c)
	return c.JSON(fiber.Map{"message": "Logged out."})
}

func setRefreshCookie(c *fiber.Ctx, token string) {
	c.Cookie(&fiber.Cookie{
		Name:     refreshCookieName,
		Value:    token,
		Expires:  time.Now().Add(7 * 24 * time.Hour),
		HTTPOnly: true,
		Secure:   true,
		SameSite: fiber.CookieSameSiteStrictMode,
		Path:     "/auth",
	})
}

func clearRefreshCookie(c *fiber.Ctx) {
	c.Cookie(&fiber.Cookie{
		Name:     refreshCookieName,
		Value:    "",
		Expires:  time.Now().Add(-time.Hour),
		HTTPOnly: true,
		Secure:   true,
		SameSite: fiber.CookieSameSiteStrictMode,
		Path:     "/auth",
	})
}
