package handlers

import (
	"github.com/gofiber/fiber/v2"

	applog "agromart/internal/log"
	"agromart/internal/services"
	"agromart/internal/validate"
)

type CartHandler struct {
	Cart *services.CartService
}

type addToCart struct {
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
}

// POST /api/cart
func (h *CartHandler) Add(c *fiber.Ctx) error {
	var in addToCart
	if err := c.BodyParser(&in); err != nil {
		return badRequest(c, "body", "Malformed request body")
	}
	pid, ok := validate.ID(in.ProductID)
	if !ok {
		return badRequest(c, "productId", "A valid productId is required")
	}
	if in.Quantity == 0 {
		in.Quantity = 1
	}
	if err := h.Cart.Add(c.UserContext(), actorOf(c), pid, in.Quantity); err != nil {
		return fail(c, "cart.add.fail", err)
	}
	applog.Info(c, "cart.add", map[string]any{"product_id": pid, "qty": in.Quantity})
	return h.View(c)
}

// GET /api/cart
func (h *CartHandler) View(c *fiber.Ctx) error {
	cv, err := h.Cart.View(c.UserContext(), actorOf(c))
	if err != nil {
		return fail(c, "cart.view.fail", err)
	}
	return c.JSON(cv)
}

// DELETE /api/cart/items/:productId
func (h *CartHandler) Remove(c *fiber.Ctx) error {
	pid, ok := validate.ID(c.Params("productId"))
	if !ok {
		return badRequest(c, "productId", "A valid productId is required")
	}
	if err := h.Cart.Remove(c.UserContext(), actorOf(c), pid); err != nil {
		return fail(c, "cart.remove.fail", err)
	}
	return h.View(c)
}

// DELETE /api/cart
func (h *CartHandler) Clear(c *fiber.Ctx) error {
	if err := h.Cart.Clear(c.UserContext(), actorOf(c)); err != nil {
		return fail(c, "cart.clear.fail", err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}
