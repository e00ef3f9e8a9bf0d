package api

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Checker-Finance/ziva-sdk/internal/endpoint"
)

// StatusSource is the client state exposed by the status server.
type StatusSource interface {
	HealthCheck(ctx context.Context) error
	DebugString(ctx context.Context) string
}

// Pinger reports broker connectivity; nil when events are disabled.
type Pinger interface {
	IsConnected() bool
}

// RegisterRoutes registers the status routes on the Fiber app.
func RegisterRoutes(app *fiber.App, src StatusSource, nc Pinger) {
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	app.Get("/healthz", func(c *fiber.Ctx) error {
		checks := map[string]string{"cache": "ok"}
		status := "ok"
		code := fiber.StatusOK

		healthCtx, cancel := context.WithTimeout(c.UserContext(), 2*time.Second)
		defer cancel()
		if err := src.HealthCheck(healthCtx); err != nil {
			checks["cache"] = err.Error()
			status = "degraded"
			code = fiber.StatusServiceUnavailable
		}

		if nc != nil {
			checks["nats"] = "ok"
			if !nc.IsConnected() {
				checks["nats"] = "disconnected"
				status = "degraded"
				code = fiber.StatusServiceUnavailable
			}
		}

		return c.Status(code).JSON(fiber.Map{
			"status": status,
			"checks": checks,
		})
	})

	app.Get("/credentials", func(c *fiber.Ctx) error {
		return c.SendString(src.DebugString(c.UserContext()))
	})

	app.Get("/resources", func(c *fiber.Ctx) error {
		types := endpoint.ResourceTypes()
		out := make([]fiber.Map, 0, len(types))
		for _, t := range types {
			d, _ := endpoint.Lookup(t)
			out = append(out, fiber.Map{"type": string(t), "default_fields": d.DefaultFields()})
		}
		return c.JSON(out)
	})
}
