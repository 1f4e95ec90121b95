package handlers

import (
	"github.com/gofiber/fiber/v2"

	applog "agromart/internal/log"
	"agromart/internal/services"
)

type NewsHandler struct {
	News *services.NewsService
}

// GET /api/news
func (h *NewsHandler) List(c *fiber.Ctx) error {
	posts, err := h.News.Published(c.UserContext())
	if err != nil {
		return fail(c, "news.list.fail", err)
	}
	return c.JSON(posts)
}

// GET /api/news/:slug
func (h *NewsHandler) Detail(c *fiber.Ctx) error {
	p, err := h.News.Post(c.UserContext(), c.Params("slug"))
	if err != nil {
		return fail(c, "news.detail.fail", err)
	}
	return c.JSON(p)
}

// GET /api/admin/news
func (h *NewsHandler) AdminList(c *fiber.Ctx) error {
	posts, err := h.News.All(c.UserContext(), actorOf(c))
	if err != nil {
		return fail(c, "admin.news.list.fail", err)
	}
	return c.JSON(posts)
}

// POST /api/admin/news
func (h *NewsHandler) Create(c *fiber.Ctx) error {
	var in services.NewsInput
	if err := c.BodyParser(&in); err != nil {
		return badRequest(c, "body", "Malformed request body")
	}
	p, err := h.News.Create(c.UserContext(), actorOf(c), in)
	if err != nil {
		return fail(c, "admin.news.create.fail", err)
	}
	applog.Audit(c, "admin.news.create", map[string]any{"post_id": p.ID, "published": p.Published})
	return c.Status(fiber.StatusCreated).JSON(p)
}

// PUT /api/admin/news/:id
func (h *NewsHandler) Update(c *fiber.Ctx) error {
	var in services.NewsInput
	if err := c.BodyParser(&in); err != nil {
		return badRequest(c, "body", "Malformed request body")
	}
	p, err := h.News.Update(c.UserContext(), actorOf(c), c.Params("id"), in)
	if err != nil {
		return fail(c, "admin.news.update.fail", err)
	}
	applog.Audit(c, "admin.news.update", map[string]any{"post_id": p.ID, "published": p.Published})
	return c.JSON(p)
}

// DELETE /api/admin/news/:id
func (h *NewsHandler) Delete(c *fiber.Ctx) error {
	if err := h.News.Delete(c.UserContext(), actorOf(c), c.Params("id")); err != nil {
		return fail(c, "admin.news.delete.fail", err)
	}
	applog.Audit(c, "admin.news.delete", map[string]any{"post_id": c.Params("id")})
	return c.SendStatus(fiber.StatusNoContent)
}
