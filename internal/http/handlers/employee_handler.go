package handlers

import (
	"github.com/gofiber/fiber/v2"

	"agromart/internal/authz"
	applog "agromart/internal/log"
	"agromart/internal/services"
)

type EmployeeHandler struct {
	Employees *services.EmployeeService
}

// GET /api/admin/employees
func (h *EmployeeHandler) List(c *fiber.Ctx) error {
	emps, err := h.Employees.List(c.UserContext(), actorOf(c))
	if err != nil {
		return fail(c, "admin.employees.list.fail", err)
	}
	return c.JSON(emps)
}

// GET /api/admin/employees/catalog lists what can be granted.
func (h *EmployeeHandler) Catalog(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"permissions": authz.Catalog(),
		"roles":       authz.EmployeeRoles(),
	})
}

// POST /api/admin/employees
func (h *EmployeeHandler) Create(c *fiber.Ctx) error {
	var in services.EmployeeInput
	if err := c.BodyParser(&in); err != nil {
		return badRequest(c, "body", "Malformed request body")
	}
	e, err := h.Employees.Create(c.UserContext(), actorOf(c), in)
	if err != nil {
		return fail(c, "admin.employees.create.fail", err)
	}
	applog.Audit(c, "admin.employees.create", map[string]any{"user_id": e.ID, "employee_role": e.EmployeeRole})
	return c.Status(fiber.StatusCreated).JSON(e)
}

// PATCH /api/admin/employees/:id
func (h *EmployeeHandler) UpdateAccess(c *fiber.Ctx) error {
	var in struct {
		EmployeeRole string   `json:"employeeRole"`
		Permissions  []string `json:"permissions"`
	}
	if err := c.BodyParser(&in); err != nil {
		return badRequest(c, "body", "Malformed request body")
	}
	e, err := h.Employees.UpdateAccess(c.UserContext(), actorOf(c), c.Params("id"), in.EmployeeRole, in.Permissions)
	if err != nil {
		return fail(c, "admin.employees.update.fail", err)
	}
	applog.Audit(c, "admin.employees.update", map[string]any{"user_id": e.ID, "permissions": e.Permissions})
	return c.JSON(e)
}
