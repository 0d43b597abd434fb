package http

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"

	"atrium/internal/config"
	"atrium/internal/metrics"
	"atrium/internal/services"
	"atrium/internal/store"
)

const webhookSignatureHeader = "X-Identity-Signature"

// identityWebhookHandler receives user lifecycle events from the
// hosted identity provider. The endpoint bypasses the route
// dispatcher, so signature verification is the only gate and it fails
// closed.
func identityWebhookHandler(c *fiber.Ctx) error {
	cfg := c.Locals("config").(*config.Config)
	st := c.Locals("store").(*store.Store)

	secret := cfg.Auth.Webhook.Secret
	if secret == "" {
		return c.Status(fiber.StatusNotFound).JSON(ErrorResponse{
			Success: false,
			Code:    "WEBHOOK_DISABLED",
			Error:   "identity webhook is not configured",
		})
	}

	payload := c.Body()
	header := c.Get(webhookSignatureHeader)
	if err := services.VerifyWebhookSignature(secret, payload, header, time.Now()); err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(ErrorResponse{
			Success: false,
			Code:    "BAD_SIGNATURE",
			Error:   "webhook signature verification failed",
		})
	}

	var event services.IdentityEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		return badRequestJSON(c)
	}

	sync := services.NewIdentitySync(st)
	if err := sync.Apply(c.Context(), event); err != nil {
		metrics.RecordWebhookEvent(event.Type, false)
		switch {
		case errors.Is(err, services.ErrUnknownEvent), errors.Is(err, services.ErrBadEventUser):
			return c.Status(fiber.StatusUnprocessableEntity).JSON(ErrorResponse{
				Success: false,
				Code:    "UNPROCESSABLE_EVENT",
				Error:   err.Error(),
			})
		case errors.Is(err, services.ErrUnknownOrg):
			// The provider may deliver user events before the matching
			// organization exists; ask for a retry.
			return c.Status(fiber.StatusConflict).JSON(ErrorResponse{
				Success: false,
				Code:    "UNKNOWN_ORGANIZATION",
				Error:   err.Error(),
			})
		default:
			return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{
				Success: false,
				Code:    "INTERNAL_ERROR",
				Error:   err.Error(),
			})
		}
	}

	metrics.RecordWebhookEvent(event.Type, true)
	return c.JSON(fiber.Map{"success": true})
}
