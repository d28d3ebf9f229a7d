package handler

import (
	"go-farm-market/internal/service"

	"github.com/gofiber/fiber/v2"
)

type VillagerHandler struct {
	service service.InventoryService
}

func NewVillagerHandler(s service.InventoryService) *VillagerHandler {
	return &VillagerHandler{service: s}
}

// LowStockProducts lists the caller's products at/below threshold, oldest
// low-stock episode first.
func (h *VillagerHandler) LowStockProducts(c *fiber.Ctx) error {
	who, err := caller(c)
	if err != nil {
		return fail(c, err)
	}

	products, err := h.service.ListLowStock(who)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{"products": products})
}
