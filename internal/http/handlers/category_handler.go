package handlers

import (
	"github.com/gofiber/fiber/v2"

	"agromart/internal/services"
)

type CategoryHandler struct {
	Catalog *services.CatalogService
}

// GET /api/categories and GET /api/admin/categories
func (h *CategoryHandler) List(c *fiber.Ctx) error {
	cats, err := h.Catalog.Categories(c.UserContext())
	if err != nil {
		return fail(c, "catalog.categories.fail", err)
	}
	return c.JSON(cats)
}

// GET / is the only page the API serves: a landing that lists the
// categories, or a friendly notice when the catalog cannot be read.
func (h *CategoryHandler) Home(c *fiber.Ctx) error {
	cats, err := h.Catalog.Categories(c.UserContext())
	if err != nil {
		return render(c, fiber.StatusServiceUnavailable, "unavailable", fiber.Map{"Message": "The catalog is temporarily unavailable."})
	}
	return render(c, fiber.StatusOK, "home", fiber.Map{"Categories": cats})
}
