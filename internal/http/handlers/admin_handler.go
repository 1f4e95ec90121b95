package handlers

import (
	"github.com/gofiber/fiber/v2"

	"agromart/internal/domain"
	"agromart/internal/services"
)

type AdminHandler struct {
	Orders *services.OrderService
	Apps   *services.ApplicationService
}

type dashboard struct {
	OrdersByStatus      map[domain.OrderStatus]int `json:"ordersByStatus"`
	UnpaidOrders        int                        `json:"unpaidOrders"`
	PendingVendors      int                        `json:"pendingVendors"`
	PendingDistributors int                        `json:"pendingDistributors"`
}

// GET /api/admin
// No employee permission maps to the dashboard, so only full admins get here.
func (h *AdminHandler) Dashboard(c *fiber.Ctx) error {
	ctx, a := c.UserContext(), actorOf(c)
	orders, err := h.Orders.ListAll(ctx, a, 500)
	if err != nil {
		return fail(c, "admin.dashboard.fail", err)
	}
	d := dashboard{OrdersByStatus: map[domain.OrderStatus]int{}}
	for _, o := range orders {
		d.OrdersByStatus[o.OrderStatus]++
		if o.PaymentStatus == domain.PaymentPending && o.OrderStatus != domain.OrderCancelled {
			d.UnpaidOrders++
		}
	}
	vendors, err := h.Apps.List(ctx, a, domain.KindVendor, domain.ApplicationPending)
	if err != nil {
		return fail(c, "admin.dashboard.fail", err)
	}
	distributors, err := h.Apps.List(ctx, a, domain.KindDistributor, domain.ApplicationPending)
	if err != nil {
		return fail(c, "admin.dashboard.fail", err)
	}
	d.PendingVendors, d.PendingDistributors = len(vendors), len(distributors)
	return c.JSON(d)
}
