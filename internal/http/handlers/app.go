package handlers

import (
	"io"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/csrf"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"

	"agromart/internal/authz"
	"agromart/internal/domain"
	applog "agromart/internal/log"
)

type Options struct {
	CSRF          bool
	SecureCookies bool
	// AccessLog receives one line per request; nil turns it off.
	AccessLog io.Writer
	// RequestsPerMinute is the per-IP budget for the whole API.
	RequestsPerMinute int
	// LoginAttempts is the per-IP budget for credential checks per 10 minutes.
	LoginAttempts int
}

func (o Options) withDefaults() Options {
	if o.RequestsPerMinute <= 0 {
		o.RequestsPerMinute = 120
	}
	if o.LoginAttempts <= 0 {
		o.LoginAttempts = 5
	}
	return o
}

// NewApp assembles the middleware chain and every route.
func NewApp(d *Deps, opts Options) *fiber.App {
	opts = opts.withDefaults()

	app := fiber.New(fiber.Config{
		Views:        Views(),
		ErrorHandler: ErrorHandler,
		BodyLimit:    1 << 20,
	})

	// ---------- Middlewares ----------
	app.Use(recover.New())
	app.Use(requestid.New())
	if opts.AccessLog != nil {
		app.Use(logger.New(logger.Config{Output: opts.AccessLog}))
	}
	app.Use(helmet.New())
	app.Use(limiter.New(limiter.Config{
		Max:        opts.RequestsPerMinute,
		Expiration: time.Minute,
		LimitReached: func(c *fiber.Ctx) error {
			applog.Security(c, "rate.global.hit", nil)
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{"message": "Too many requests, retry soon"})
		},
	}))
	app.Use(LoadActor(d.Auth))
	if opts.CSRF {
		app.Use(csrf.New(csrf.Config{
			KeyLookup:      "header:X-Csrf-Token",
			CookieName:     "csrf_",
			CookieSameSite: "Lax",
			CookieSecure:   opts.SecureCookies,
			ContextKey:     "csrf",
			// bearer clients send no ambient credentials
			Next: func(c *fiber.Ctx) bool {
				_, ok := bearer(c)
				return ok
			},
			ErrorHandler: func(c *fiber.Ctx, err error) error {
				applog.Security(c, "csrf.fail", nil)
				return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"message": "Security check failed. Please refresh and try again."})
			},
		}))
	}

	credLimiter := limiter.New(limiter.Config{
		Max:        opts.LoginAttempts,
		Expiration: 10 * time.Minute,
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP() + "|login"
		},
		LimitReached: func(c *fiber.Ctx) error {
			applog.Security(c, "rate.login.hit", nil)
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{"message": "Too many attempts. Please try again later."})
		},
	})

	// ---------- Pages ----------
	app.Get("/", d.CategoryHandler.Home)
	app.Get("/healthz", func(c *fiber.Ctx) error { return c.JSON(fiber.Map{"ok": true}) })

	// ---------- Public API ----------
	api := app.Group("/api")
	api.Get("/csrf", d.AuthHandler.CSRF)
	api.Get("/products", d.ProductHandler.List)
	api.Get("/products/:id", d.ProductHandler.Detail)
	api.Get("/categories", d.CategoryHandler.List)
	api.Get("/news", d.NewsHandler.List)
	api.Get("/news/:slug", d.NewsHandler.Detail)
	api.Post("/applications", credLimiter, d.ApplicationHandler.Apply)

	api.Post("/auth/login", credLimiter, d.AuthHandler.Login)
	api.Post("/auth/token", credLimiter, d.AuthHandler.Token)
	api.Post("/auth/signup", credLimiter, d.AuthHandler.Signup)
	api.Post("/auth/logout", d.AuthHandler.Logout)

	// ---------- Signed-in API ----------
	signedIn := RequireActor()
	api.Get("/me", signedIn, d.AuthHandler.Me)

	api.Get("/cart", signedIn, d.CartHandler.View)
	api.Post("/cart", signedIn, d.CartHandler.Add)
	api.Delete("/cart/items/:productId", signedIn, d.CartHandler.Remove)
	api.Delete("/cart", signedIn, d.CartHandler.Clear)

	api.Post("/orders", signedIn, d.OrderHandler.Place)
	api.Get("/orders", signedIn, d.OrderHandler.History)
	api.Get("/orders/:id", signedIn, d.OrderHandler.View)
	api.Post("/orders/:id/cancel", signedIn, d.OrderHandler.Cancel)
	api.Patch("/orders/:id", signedIn, d.OrderHandler.Update)

	// vendors manage their own listings outside the admin area
	api.Get("/vendor/products", signedIn, d.ProductHandler.AdminList)
	api.Post("/vendor/products", signedIn, d.ProductHandler.Create)
	api.Put("/vendor/products/:id", signedIn, d.ProductHandler.Update)

	// ---------- Admin API ----------
	admin := app.Group(authz.AdminAPIPrefix, RequireAdminAPI())
	admin.Get("/", d.AdminHandler.Dashboard)

	admin.Get("/orders", d.OrderHandler.AdminList)
	admin.Get("/orders/:id", d.OrderHandler.View)
	admin.Patch("/orders/:id", d.OrderHandler.Update)

	admin.Get("/payments", d.OrderHandler.Payments)
	admin.Patch("/payments/:id", d.OrderHandler.UpdatePayment)

	admin.Get("/products", d.ProductHandler.AdminList)
	admin.Post("/products", d.ProductHandler.Create)
	admin.Put("/products/:id", d.ProductHandler.Update)
	admin.Post("/products/:id/activate", d.ProductHandler.SetActive(true))
	admin.Post("/products/:id/deactivate", d.ProductHandler.SetActive(false))
	admin.Post("/products/:id/stock", d.InventoryHandler.Adjust)

	admin.Get("/categories", d.CategoryHandler.List)

	admin.Get("/vendors", d.ApplicationHandler.List(domain.KindVendor))
	admin.Patch("/vendors/:id", d.ApplicationHandler.SetStatus(domain.KindVendor))
	admin.Get("/distributors", d.ApplicationHandler.List(domain.KindDistributor))
	admin.Patch("/distributors/:id", d.ApplicationHandler.SetStatus(domain.KindDistributor))

	admin.Get("/employees", d.EmployeeHandler.List)
	admin.Get("/employees/catalog", d.EmployeeHandler.Catalog)
	admin.Post("/employees", d.EmployeeHandler.Create)
	admin.Patch("/employees/:id", d.EmployeeHandler.UpdateAccess)

	admin.Get("/news", d.NewsHandler.AdminList)
	admin.Post("/news", d.NewsHandler.Create)
	admin.Put("/news/:id", d.NewsHandler.Update)
	admin.Delete("/news/:id", d.NewsHandler.Delete)

	// admin paths nothing matched still answer like the gate
	admin.Use(func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"message": "Not found"})
	})

	// ---------- 404 ----------
	app.Use(func(c *fiber.Ctx) error {
		if isAPI(c) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"message": "Not found"})
		}
		return notFoundPage(c, "Page not found")
	})
	return app
}
