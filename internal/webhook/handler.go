package webhook

import (
	"context"
	"time"

	"visaflow/internal/common/errors"
	"visaflow/internal/common/logger"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Handler exposes the pipeline over HTTP.
type Handler struct {
	pipeline *Pipeline
	timeout  time.Duration
	logger   logger.Logger
}

func NewHandler(pipeline *Pipeline, timeout time.Duration, log logger.Logger) *Handler {
	return &Handler{pipeline: pipeline, timeout: timeout, logger: log}
}

func (h *Handler) Register(app *fiber.App) {
	app.Post("/webhooks/stripe", h.HandleStripe)
	app.Get("/healthz", h.Healthz)
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))
}

// HandleStripe receives one provider delivery. Anything the pipeline handled
// or deliberately did not act on is acknowledged with 200; verification
// failures get 400 so the provider stops redelivering the same broken
// request; retryable downstream failures get 500 so it does redeliver.
func (h *Handler) HandleStripe(c *fiber.Ctx) error {
	// The fasthttp buffer behind c.Body() is recycled after the handler
	// returns; the pipeline outlives nothing here, but the copy keeps the
	// payload stable across the signature check and JSON decode.
	payload := append([]byte(nil), c.Body()...)
	sigHeader := c.Get("Stripe-Signature")

	ctx, cancel := context.WithTimeout(c.UserContext(), h.timeout)
	defer cancel()

	outcome, err := h.pipeline.Handle(ctx, payload, sigHeader)
	if err != nil {
		stdErr := errors.Normalize(err)
		h.logger.WithError(err).Error("webhook delivery failed", map[string]interface{}{
			"outcome":   string(outcome),
			"errorCode": string(stdErr.Code),
			"retryable": stdErr.Retryable,
		})
		return c.Status(errors.HTTPStatus(err)).JSON(fiber.Map{
			"received": false,
			"outcome":  string(outcome),
			"error":    string(stdErr.Code),
		})
	}

	return c.JSON(fiber.Map{
		"received": true,
		"outcome":  string(outcome),
	})
}

func (h *Handler) Healthz(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":  "ok",
		"service": "visaflow-webhook",
	})
}
