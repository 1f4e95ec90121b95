package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"agromart/internal/authz"
	"agromart/internal/domain"
	"agromart/internal/log"
	"agromart/internal/services"
	"agromart/internal/validate"
)

type AuthHandler struct {
	Auth          *services.AuthService
	SecureCookies bool
}

type credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type meResponse struct {
	Actor   *domain.Actor `json:"actor"`
	Landing string        `json:"landing"`
}

func landingFor(a *domain.Actor) string {
	if a.IsAdmin() {
		return authz.AdminLandingForPermissions([]string{string(authz.AllPermissions)})
	}
	return authz.AdminLandingForPermissions(a.Permissions)
}

func (h *AuthHandler) readCredentials(c *fiber.Ctx) (credentials, bool) {
	var in credentials
	if err := c.BodyParser(&in); err != nil {
		return in, false
	}
	email, ok := validate.Email(in.Email)
	if !ok || in.Password == "" || len(in.Password) > 72 {
		return in, false
	}
	in.Email = email
	return in, true
}

// POST /api/auth/login
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	in, ok := h.readCredentials(c)
	if !ok {
		log.Security(c, "auth.login.fail", map[string]any{"reason": "bad_format"})
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"message": "Invalid email or password"})
	}
	// a fresh id on every login so a planted cookie never gets promoted
	sid := uuid.NewString()
	a, err := h.Auth.Login(c.UserContext(), sid, in.Email, in.Password)
	if err != nil {
		if domain.Code(err) == domain.CodeUnauthenticated {
			log.Security(c, "auth.login.fail", map[string]any{"email": in.Email})
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"message": "Invalid email or password"})
		}
		return fail(c, "auth.login.error", err)
	}
	c.Cookie(sessionCookieFor(sid, h.SecureCookies, time.Time{}))
	setActor(c, a)
	log.Audit(c, "auth.login.success", map[string]any{"email": in.Email})
	return c.JSON(meResponse{Actor: a, Landing: landingFor(a)})
}

// POST /api/auth/logout
func (h *AuthHandler) Logout(c *fiber.Ctx) error {
	if sid := c.Cookies(sessionCookie); sid != "" {
		if err := h.Auth.Logout(c.UserContext(), sid); err != nil {
			log.Error(c, "auth.logout.fail", err, nil)
		}
	}
	c.Cookie(sessionCookieFor("", h.SecureCookies, time.Now().Add(-time.Hour)))
	log.Audit(c, "auth.logout", nil)
	return c.SendStatus(fiber.StatusNoContent)
}

// POST /api/auth/token
func (h *AuthHandler) Token(c *fiber.Ctx) error {
	in, ok := h.readCredentials(c)
	if !ok {
		log.Security(c, "auth.token.fail", map[string]any{"reason": "bad_format"})
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"message": "Invalid email or password"})
	}
	tok, exp, a, err := h.Auth.IssueToken(c.UserContext(), in.Email, in.Password)
	if err != nil {
		if domain.Code(err) == domain.CodeUnauthenticated {
			log.Security(c, "auth.token.fail", map[string]any{"email": in.Email})
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"message": "Invalid email or password"})
		}
		return fail(c, "auth.token.error", err)
	}
	log.Audit(c, "auth.token.issued", map[string]any{"email": in.Email})
	return c.JSON(fiber.Map{
		"token":     tok,
		"tokenType": "Bearer",
		"expiresAt": exp,
		"actor":     a,
	})
}

// POST /api/auth/signup
func (h *AuthHandler) Signup(c *fiber.Ctx) error {
	var in services.SignupInput
	if err := c.BodyParser(&in); err != nil {
		return badRequest(c, "body", "Malformed request body")
	}
	u, err := h.Auth.Signup(c.UserContext(), in)
	if err != nil {
		return fail(c, "auth.signup.fail", err)
	}
	log.Audit(c, "auth.signup", map[string]any{"user_id": u.ID})
	return c.Status(fiber.StatusCreated).JSON(u)
}

// GET /api/me
func (h *AuthHandler) Me(c *fiber.Ctx) error {
	a := actorOf(c)
	return c.JSON(meResponse{Actor: a, Landing: landingFor(a)})
}

// GET /api/csrf hands the current CSRF token to script clients.
func (h *AuthHandler) CSRF(c *fiber.Ctx) error {
	tok, _ := c.Locals("csrf").(string)
	return c.JSON(fiber.Map{"token": tok})
}
