package handlers

import (
	"embed"
	"io/fs"
	"net/http"

	"github.com/gofiber/fiber/v2"
	html "github.com/gofiber/template/html/v2"
)

//go:embed views/*.html
var views embed.FS

// Views is the template engine for the friendly fallback pages.
func Views() *html.Engine {
	sub, err := fs.Sub(views, "views")
	if err != nil {
		panic(err)
	}
	return html.NewFileSystem(http.FS(sub), ".html")
}

func render(c *fiber.Ctx, status int, tmpl string, data fiber.Map) error {
	if data == nil {
		data = fiber.Map{}
	}
	if a := actorOf(c); a != nil {
		data["Actor"] = a
	}
	if tok, _ := c.Locals("csrf").(string); tok != "" {
		data["CSRFToken"] = tok
	}
	if err := c.Status(status).Render(tmpl, data); err != nil {
		msg, _ := data["Message"].(string)
		return c.Status(status).SendString(msg)
	}
	return nil
}

func notFoundPage(c *fiber.Ctx, message string) error {
	return render(c, fiber.StatusNotFound, "notfound", fiber.Map{"Message": message})
}
