package notify

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
)

// WebhookSink POSTs each event as JSON to a fixed URL.
type WebhookSink struct {
	URL     string
	Timeout time.Duration
}

func (w *WebhookSink) Name() string { return "webhook" }

func (w *WebhookSink) Deliver(ctx context.Context, e Event) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	timeout := w.Timeout
	if dl, ok := ctx.Deadline(); ok {
		if left := time.Until(dl); timeout <= 0 || left < timeout {
			timeout = left
		}
	}

	a := fiber.Post(w.URL)
	a.Set("X-Agromart-Event", e.Type)
	a.Set("X-Agromart-Delivery", e.ID)
	a.JSON(e)
	if timeout > 0 {
		a.Timeout(timeout)
	}
	code, body, errs := a.Bytes()
	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	if code < 200 || code >= 300 {
		if len(body) > 200 {
			body = body[:200]
		}
		return fmt.Errorf("webhook answered %d: %s", code, body)
	}
	return nil
}
