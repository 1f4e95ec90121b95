package handlers

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"agromart/internal/domain"
	applog "agromart/internal/log"
	"agromart/internal/services"
	"agromart/internal/validate"
)

type ProductHandler struct {
	Catalog *services.CatalogService
}

func pageParams(c *fiber.Ctx) (limit, offset int) {
	limit = c.QueryInt("limit", 50)
	if limit < 1 || limit > 200 {
		limit = 50
	}
	offset = c.QueryInt("offset", 0)
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}

// GET /api/products?category=
func (h *ProductHandler) List(c *fiber.Ctx) error {
	limit, offset := pageParams(c)
	category := strings.TrimSpace(c.Query("category"))
	if len(category) > 40 {
		return badRequest(c, "category", "Unknown category")
	}
	prods, err := h.Catalog.Browse(c.UserContext(), category, limit, offset)
	if err != nil {
		return fail(c, "catalog.list.fail", err)
	}
	return c.JSON(prods)
}

// GET /api/products/:id
func (h *ProductHandler) Detail(c *fiber.Ctx) error {
	id, ok := validate.ID(c.Params("id"))
	if !ok {
		return fail(c, "catalog.detail.fail", domain.ErrNotFound)
	}
	p, err := h.Catalog.Product(c.UserContext(), id)
	if err != nil {
		return fail(c, "catalog.detail.fail", err)
	}
	return c.JSON(p)
}

// GET /api/admin/products
func (h *ProductHandler) AdminList(c *fiber.Ctx) error {
	limit, offset := pageParams(c)
	f := domain.ProductFilter{
		Category: strings.ToLower(strings.TrimSpace(c.Query("category"))),
		VendorID: c.Query("vendorId"),
		Limit:    limit,
		Offset:   offset,
	}
	prods, err := h.Catalog.ListAll(c.UserContext(), actorOf(c), f)
	if err != nil {
		return fail(c, "admin.products.list.fail", err)
	}
	return c.JSON(prods)
}

// POST /api/admin/products
func (h *ProductHandler) Create(c *fiber.Ctx) error {
	var in services.ProductInput
	if err := c.BodyParser(&in); err != nil {
		return badRequest(c, "body", "Malformed request body")
	}
	p, err := h.Catalog.Create(c.UserContext(), actorOf(c), in)
	if err != nil {
		return fail(c, "admin.products.create.fail", err)
	}
	applog.Audit(c, "admin.products.create", map[string]any{"product_id": p.ID, "stock": p.Stock})
	return c.Status(fiber.StatusCreated).JSON(p)
}

// PUT /api/admin/products/:id
func (h *ProductHandler) Update(c *fiber.Ctx) error {
	var in services.ProductInput
	if err := c.BodyParser(&in); err != nil {
		return badRequest(c, "body", "Malformed request body")
	}
	p, err := h.Catalog.Update(c.UserContext(), actorOf(c), c.Params("id"), in)
	if err != nil {
		return fail(c, "admin.products.update.fail", err)
	}
	applog.Audit(c, "admin.products.update", map[string]any{"product_id": p.ID})
	return c.JSON(p)
}

// POST /api/admin/products/:id/activate and /deactivate
func (h *ProductHandler) SetActive(active bool) fiber.Handler {
	return func(c *fiber.Ctx) error {
		p, err := h.Catalog.SetActive(c.UserContext(), actorOf(c), c.Params("id"), active)
		if err != nil {
			return fail(c, "admin.products.active.fail", err)
		}
		applog.Audit(c, "admin.products.active", map[string]any{"product_id": p.ID, "active": active})
		return c.JSON(p)
	}
}
