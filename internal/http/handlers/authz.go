package handlers

import (
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"agromart/internal/authz"
	"agromart/internal/domain"
	applog "agromart/internal/log"
	"agromart/internal/services"
)

const sessionCookie = "sid"

func actorOf(c *fiber.Ctx) *domain.Actor {
	a, _ := c.Locals("actor").(*domain.Actor)
	return a
}

func setActor(c *fiber.Ctx, a *domain.Actor) {
	c.Locals("actor", a)
	c.Locals("actor_id", a.ID)
}

func bearer(c *fiber.Ctx) (string, bool) {
	h := c.Get(fiber.HeaderAuthorization)
	if len(h) > 7 && strings.EqualFold(h[:7], "bearer ") {
		return strings.TrimSpace(h[7:]), true
	}
	return "", false
}

// LoadActor resolves the caller once per request, from a bearer token when
// one is sent and from the session cookie otherwise. Anonymous requests
// pass through without an actor.
func LoadActor(auth *services.AuthService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx := c.UserContext()
		if raw, ok := bearer(c); ok {
			a, err := auth.TokenActor(ctx, raw)
			if err != nil {
				applog.Security(c, "auth.token.reject", nil)
				return c.Next()
			}
			setActor(c, a)
			return c.Next()
		}
		if sid := c.Cookies(sessionCookie); sid != "" {
			if a, err := auth.CurrentActor(ctx, sid); err == nil {
				setActor(c, a)
			}
		}
		return c.Next()
	}
}

// RequireActor answers 401 for anonymous callers.
func RequireActor() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if actorOf(c) == nil {
			return fail(c, "access.denied.anonymous", domain.ErrUnauthenticated)
		}
		return c.Next()
	}
}

// RequireAdminAPI gates everything under /api/admin on the route table.
// Callers without a matching permission get the same 404 as a missing
// route.
func RequireAdminAPI() fiber.Handler {
	return func(c *fiber.Ctx) error {
		a := actorOf(c)
		if allowedAdminAPI(a, c.Path(), c.Method()) {
			return c.Next()
		}
		fields := map[string]any{"route": c.Method() + " " + c.Path()}
		if a != nil {
			fields["role"] = string(a.Role)
		}
		applog.Security(c, "access.denied.admin", fields)
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"message": "Not found"})
	}
}

func allowedAdminAPI(a *domain.Actor, path, method string) bool {
	if a == nil {
		return false
	}
	if authz.HasPermission(a, authz.AllPermissions) {
		return true
	}
	perms := authz.PermissionForAdminAPI(path, method)
	return len(perms) > 0 && authz.HasAny(a, perms...)
}

func sessionCookieFor(sid string, secure bool, expires time.Time) *fiber.Cookie {
	return &fiber.Cookie{
		Name:     sessionCookie,
		Value:    sid,
		Path:     "/",
		HTTPOnly: true,
		SameSite: fiber.CookieSameSiteLaxMode,
		Secure:   secure,
		Expires:  expires,
	}
}

// ensureSID returns the session id cookie, minting one when absent.
func ensureSID(c *fiber.Ctx, secure bool) string {
	sid := c.Cookies(sessionCookie)
	if sid == "" {
		sid = uuid.NewString()
		c.Cookie(sessionCookieFor(sid, secure, time.Time{}))
	}
	return sid
}
