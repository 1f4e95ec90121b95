package handlers

import (
	"github.com/gofiber/fiber/v2"

	applog "agromart/internal/log"
	"agromart/internal/services"
	"agromart/internal/validate"
)

// InventoryHandler is the back-office stock adjustment endpoint. Stock
// never changes through product updates.
type InventoryHandler struct {
	Catalog *services.CatalogService
}

// POST /api/admin/products/:id/stock
// Body {"delta": n}: positive receives goods, negative writes them off.
func (h *InventoryHandler) Adjust(c *fiber.Ctx) error {
	id, ok := validate.ID(c.Params("id"))
	if !ok {
		return badRequest(c, "id", "A valid product id is required")
	}
	var in struct {
		Delta int `json:"delta"`
	}
	if err := c.BodyParser(&in); err != nil {
		return badRequest(c, "body", "Malformed request body")
	}
	p, err := h.Catalog.AdjustStock(c.UserContext(), actorOf(c), id, in.Delta)
	if err != nil {
		return fail(c, "admin.inventory.save.fail", err)
	}
	applog.Audit(c, "admin.inventory.save", map[string]any{"product": id, "delta": in.Delta, "stock": p.Stock})
	return c.JSON(p)
}
