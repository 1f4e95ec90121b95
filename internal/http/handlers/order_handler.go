package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"agromart/internal/domain"
	applog "agromart/internal/log"
	"agromart/internal/services"
)

type OrderHandler struct {
	Orders *services.OrderService
}

// POST /api/orders
// An empty items list checks out the caller's cart.
func (h *OrderHandler) Place(c *fiber.Ctx) error {
	var req services.PlaceOrderRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "body", "Malformed request body")
	}
	var (
		o   *domain.Order
		err error
	)
	if len(req.Items) == 0 {
		o, err = h.Orders.Checkout(c.UserContext(), actorOf(c), req.PaymentMethod, req.ShippingAddress)
	} else {
		o, err = h.Orders.PlaceOrder(c.UserContext(), actorOf(c), req)
	}
	if err != nil {
		return fail(c, "order.place.fail", err)
	}
	applog.Audit(c, "order.place", map[string]any{
		"order_id": o.ID,
		"total":    o.TotalAmount.StringFixed(2),
		"items":    len(o.Items),
		"method":   string(o.PaymentMethod),
	})
	return c.Status(fiber.StatusCreated).JSON(o)
}

// GET /api/orders
func (h *OrderHandler) History(c *fiber.Ctx) error {
	orders, err := h.Orders.ListMine(c.UserContext(), actorOf(c))
	if err != nil {
		return fail(c, "orders.history.fail", err)
	}
	return c.JSON(orders)
}

// GET /api/orders/:id
func (h *OrderHandler) View(c *fiber.Ctx) error {
	o, err := h.Orders.Get(c.UserContext(), actorOf(c), c.Params("id"))
	if err != nil {
		if domain.Code(err) == domain.CodeNotFound {
			applog.Security(c, "access.denied.order", map[string]any{"order_id": c.Params("id")})
		}
		return fail(c, "order.view.fail", err)
	}
	return c.JSON(o)
}

// POST /api/orders/:id/cancel
func (h *OrderHandler) Cancel(c *fiber.Ctx) error {
	o, err := h.Orders.Cancel(c.UserContext(), actorOf(c), c.Params("id"))
	if err != nil {
		return fail(c, "order.cancel.fail", err)
	}
	applog.Audit(c, "order.cancel", map[string]any{"order_id": o.ID})
	return c.JSON(o)
}

// PATCH /api/orders/:id and PATCH /api/admin/orders/:id
func (h *OrderHandler) Update(c *fiber.Ctx) error {
	var in services.OrderUpdate
	if err := c.BodyParser(&in); err != nil {
		return badRequest(c, "body", "Malformed request body")
	}
	o, err := h.Orders.AdminUpdate(c.UserContext(), actorOf(c), c.Params("id"), in)
	if err != nil {
		return fail(c, "admin.orders.update.fail", err)
	}
	applog.Audit(c, "admin.orders.update", map[string]any{
		"order_id":       o.ID,
		"order_status":   string(o.OrderStatus),
		"payment_status": string(o.PaymentStatus),
	})
	return c.JSON(o)
}

// GET /api/admin/orders
func (h *OrderHandler) AdminList(c *fiber.Ctx) error {
	orders, err := h.Orders.ListAll(c.UserContext(), actorOf(c), c.QueryInt("limit", 100))
	if err != nil {
		return fail(c, "admin.orders.list.fail", err)
	}
	return c.JSON(orders)
}

type paymentRow struct {
	OrderID       string               `json:"orderId"`
	UserID        string               `json:"userId"`
	Amount        string               `json:"amount"`
	PaymentMethod domain.PaymentMethod `json:"paymentMethod"`
	PaymentStatus domain.PaymentStatus `json:"paymentStatus"`
	OrderStatus   domain.OrderStatus   `json:"orderStatus"`
	CreatedAt     time.Time            `json:"createdAt"`
}

// GET /api/admin/payments
func (h *OrderHandler) Payments(c *fiber.Ctx) error {
	orders, err := h.Orders.ListAll(c.UserContext(), actorOf(c), c.QueryInt("limit", 100))
	if err != nil {
		return fail(c, "admin.payments.list.fail", err)
	}
	rows := make([]paymentRow, 0, len(orders))
	for _, o := range orders {
		rows = append(rows, paymentRow{
			OrderID:       o.ID,
			UserID:        o.UserID,
			Amount:        o.TotalAmount.StringFixed(2),
			PaymentMethod: o.PaymentMethod,
			PaymentStatus: o.PaymentStatus,
			OrderStatus:   o.OrderStatus,
			CreatedAt:     o.CreatedAt,
		})
	}
	return c.JSON(rows)
}

// PATCH /api/admin/payments/:id
func (h *OrderHandler) UpdatePayment(c *fiber.Ctx) error {
	var in struct {
		PaymentStatus string `json:"paymentStatus"`
	}
	if err := c.BodyParser(&in); err != nil {
		return badRequest(c, "body", "Malformed request body")
	}
	o, err := h.Orders.SetPaymentStatus(c.UserContext(), actorOf(c), c.Params("id"), in.PaymentStatus)
	if err != nil {
		return fail(c, "admin.payments.update.fail", err)
	}
	applog.Audit(c, "admin.payments.update", map[string]any{"order_id": o.ID, "payment_status": string(o.PaymentStatus)})
	return c.JSON(o)
}
