package handlers

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"agromart/internal/domain"
	applog "agromart/internal/log"
	"agromart/internal/services"
)

type ApplicationHandler struct {
	Apps *services.ApplicationService
}

// POST /api/applications
func (h *ApplicationHandler) Apply(c *fiber.Ctx) error {
	var in services.ApplicationInput
	if err := c.BodyParser(&in); err != nil {
		return badRequest(c, "body", "Malformed request body")
	}
	a, err := h.Apps.Apply(c.UserContext(), in)
	if err != nil {
		return fail(c, "application.apply.fail", err)
	}
	applog.Audit(c, "application.apply", map[string]any{"application_id": a.ID, "kind": string(a.Kind)})
	return c.Status(fiber.StatusCreated).JSON(a)
}

// List serves GET /api/admin/vendors and /api/admin/distributors.
func (h *ApplicationHandler) List(kind domain.ApplicationKind) fiber.Handler {
	return func(c *fiber.Ctx) error {
		status := domain.ApplicationStatus(strings.ToLower(strings.TrimSpace(c.Query("status"))))
		apps, err := h.Apps.List(c.UserContext(), actorOf(c), kind, status)
		if err != nil {
			return fail(c, "admin.applications.list.fail", err)
		}
		return c.JSON(apps)
	}
}

// SetStatus serves PATCH /api/admin/vendors/:id and /api/admin/distributors/:id.
func (h *ApplicationHandler) SetStatus(kind domain.ApplicationKind) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var in struct {
			Status string `json:"status"`
		}
		if err := c.BodyParser(&in); err != nil {
			return badRequest(c, "body", "Malformed request body")
		}
		status := domain.ApplicationStatus(strings.ToLower(strings.TrimSpace(in.Status)))
		a, err := h.Apps.SetStatus(c.UserContext(), actorOf(c), kind, c.Params("id"), status)
		if err != nil {
			return fail(c, "admin.applications.status.fail", err)
		}
		applog.Audit(c, "admin.applications.status", map[string]any{
			"application_id": a.ID,
			"kind":           string(kind),
			"status":         string(a.Status),
		})
		return c.JSON(a)
	}
}
