package handler

import (
	"log"
	"strconv"

	"go-farm-market/internal/model"
	"go-farm-market/internal/service"
	"go-farm-market/pkg/storage"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type ProductHandler struct {
	service service.InventoryService
	store   *storage.Local
}

func NewProductHandler(s service.InventoryService, store *storage.Local) *ProductHandler {
	return &ProductHandler{service: s, store: store}
}

func roleFromString(s string) model.Role {
	return model.Role(s)
}

func parseUUID(id string) (uuid.UUID, error) {
	return uuid.Parse(id)
}

// GetProducts is public: everyone can browse listings.
func (h *ProductHandler) GetProducts(c *fiber.Ctx) error {
	products, err := h.service.ListProducts()
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{"products": products})
}

// CreateProduct accepts a multipart form: name, price, stock, category,
// low_stock_threshold plus an optional image file.
func (h *ProductHandler) CreateProduct(c *fiber.Ctx) error {
	who, err := caller(c)
	if err != nil {
		return fail(c, err)
	}

	req := service.CreateProductRequest{
		Name:     c.FormValue("name"),
		Category: c.FormValue("category"),
	}
	if req.Price, err = strconv.ParseFloat(c.FormValue("price", "0"), 64); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "Invalid price"})
	}
	if req.Stock, err = strconv.ParseFloat(c.FormValue("stock", "0"), 64); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "Invalid stock"})
	}
	if raw := c.FormValue("low_stock_threshold"); raw != "" {
		threshold, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return c.Status(400).JSON(fiber.Map{"error": "Invalid low_stock_threshold"})
		}
		req.LowStockThreshold = &threshold
	}

	var imagePaths []string
	if file, err := c.FormFile("image"); err == nil && file != nil {
		name, err := h.store.Save(file)
		if err != nil {
			log.Printf("image upload: %v", err)
			return c.Status(500).JSON(fiber.Map{"error": "Failed to store image"})
		}
		imagePaths = append(imagePaths, name)
	}

	product, err := h.service.CreateProduct(who, &req, imagePaths)
	if err != nil {
		return fail(c, err)
	}
	return c.Status(201).JSON(product)
}

func (h *ProductHandler) UpdateProduct(c *fiber.Ctx) error {
	who, err := caller(c)
	if err != nil {
		return fail(c, err)
	}
	productID, err := parseUUID(c.Params("id"))
	if err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "Invalid product ID"})
	}

	var req service.UpdateProductRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "Invalid JSON"})
	}

	updated, err := h.service.UpdateProduct(productID, who, &req)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{"message": "Product updated successfully", "product": updated})
}

func (h *ProductHandler) DeleteProduct(c *fiber.Ctx) error {
	who, err := caller(c)
	if err != nil {
		return fail(c, err)
	}
	productID, err := parseUUID(c.Params("id"))
	if err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "Invalid product ID"})
	}

	imagePaths, err := h.service.DeleteProduct(productID, who)
	if err != nil {
		return fail(c, err)
	}

	// DB rows are gone; image files go best-effort.
	for _, path := range imagePaths {
		if err := h.store.Remove(path); err != nil {
			log.Printf("delete image %s: %v", path, err)
		}
	}
	return c.JSON(fiber.Map{"message": "Product deleted successfully"})
}

// PurchaseRequest is the purchase body; quantity in kilograms.
type PurchaseRequest struct {
	Quantity float64 `json:"quantity"`
}

func (h *ProductHandler) Purchase(c *fiber.Ctx) error {
	who, err := caller(c)
	if err != nil {
		return fail(c, err)
	}
	productID, err := parseUUID(c.Params("id"))
	if err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "Invalid product ID"})
	}

	var req PurchaseRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "Valid positive quantity is required."})
	}

	result, err := h.service.Purchase(productID, who, req.Quantity)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{
		"message":         "Product purchased successfully.",
		"product":         result.Product,
		"low_stock_alert": result.LowStockAlert,
	})
}

// History returns the sales log for an owned product; ?days=N restricts the
// window.
func (h *ProductHandler) History(c *fiber.Ctx) error {
	who, err := caller(c)
	if err != nil {
		return fail(c, err)
	}
	productID, err := parseUUID(c.Params("id"))
	if err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "Invalid product ID"})
	}

	var sinceDays *int
	if raw := c.Query("days"); raw != "" {
		days, err := strconv.Atoi(raw)
		if err != nil {
			return c.Status(400).JSON(fiber.Map{"error": "days must be a positive integer"})
		}
		sinceDays = &days
	}

	transactions, err := h.service.History(productID, who, sinceDays)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{"transactions": transactions})
}
